package conversation

import (
	"context"
	"sync"
	"testing"
	"time"

	"leadbot_backend/platform/validator"

	"github.com/google/uuid"
)

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs due timers on the calling goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

// ForceFire runs the i-th timer callback even if it was stopped, as if the
// cancellation had been lost.
func (c *fakeClock) ForceFire(i int) {
	c.mu.Lock()
	t := c.timers[i]
	c.mu.Unlock()
	t.fn()
}

func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type memStore struct {
	mu           sync.Mutex
	contacts     map[string]Contact
	messages     []MessageRecord
	requirements map[uuid.UUID]RequirementRecord
	partials     int
	failUpsert   error
	failLookup   error
}

func newMemStore() *memStore {
	return &memStore{
		contacts:     make(map[string]Contact),
		requirements: make(map[uuid.UUID]RequirementRecord),
	}
}

func (m *memStore) GetContactByPhone(_ context.Context, phone string) (Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLookup != nil {
		return Contact{}, m.failLookup
	}
	c, ok := m.contacts[phone]
	if !ok {
		return Contact{}, ErrContactNotFound
	}
	return c, nil
}

func (m *memStore) UpsertContact(_ context.Context, p ContactUpsert) (Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpsert != nil {
		return Contact{}, m.failUpsert
	}
	c, ok := m.contacts[p.Phone]
	if !ok {
		c = Contact{ID: uuid.New(), Phone: p.Phone}
	}
	if p.Name != "" {
		c.Name = p.Name
	}
	if p.Email != "" {
		c.Email = p.Email
	}
	if c.AssignedTenantID == nil {
		tenant := p.TenantID
		c.AssignedTenantID = &tenant
	}
	m.contacts[p.Phone] = c
	return c, nil
}

func (m *memStore) InsertMessage(_ context.Context, msg MessageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *memStore) SaveRequirement(_ context.Context, req RequirementRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.Status == RequirementPartial {
		m.partials++
		if cur, ok := m.requirements[req.ConversationID]; ok && cur.Status != RequirementPartial {
			return nil
		}
	}
	m.requirements[req.ConversationID] = req
	return nil
}

func (m *memStore) requirementList() []RequirementRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RequirementRecord, 0, len(m.requirements))
	for _, r := range m.requirements {
		out = append(out, r)
	}
	return out
}

type recordingSender struct {
	mu   sync.Mutex
	sent map[string][]string
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: make(map[string][]string)}
}

func (r *recordingSender) Send(_ context.Context, counterpartyID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent[counterpartyID] = append(r.sent[counterpartyID], text)
	return nil
}

// drain returns and clears what was sent to counterpartyID.
func (r *recordingSender) drain(counterpartyID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sent[counterpartyID]
	delete(r.sent, counterpartyID)
	return out
}

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	return c
}

func testMachine(t *testing.T) *Machine {
	t.Helper()
	return NewMachine(testCatalog(t), validator.New().IsEmail)
}

type engineHarness struct {
	engine *Engine
	clock  *fakeClock
	store  *memStore
	sender *recordingSender
	tenant uuid.UUID
}

func newHarness(t *testing.T) *engineHarness {
	t.Helper()
	h := &engineHarness{
		clock:  newFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		store:  newMemStore(),
		sender: newRecordingSender(),
		tenant: uuid.New(),
	}
	h.engine = NewEngine(Options{
		TenantID: h.tenant,
		Machine:  testMachine(t),
		Sender:   h.sender,
		Store:    h.store,
		Clock:    h.clock,
	})
	return h
}

// say delivers text from counterparty at the given offset from the harness start.
func (h *engineHarness) say(t *testing.T, counterparty, text string, at time.Time) []string {
	t.Helper()
	h.clock.Set(at)
	err := h.engine.HandleInbound(context.Background(), Inbound{
		CounterpartyID: counterparty,
		Phone:          "+91" + counterparty,
		Text:           text,
		At:             at,
	})
	if err != nil {
		t.Fatalf("handle %q: %v", text, err)
	}
	return h.sender.drain(counterparty)
}
