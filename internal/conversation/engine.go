package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"leadbot_backend/internal/events"
	"leadbot_backend/platform/logger"

	"github.com/google/uuid"
)

// ErrEngineClosed is returned once the tenant session has been stopped.
var ErrEngineClosed = errors.New("conversation engine closed")

const (
	DefaultIdleTimeout  = 2 * time.Minute
	DefaultResumeWindow = 12 * time.Hour

	timerWriteTimeout = 15 * time.Second
)

// Inbound is one accepted customer message.
type Inbound struct {
	CounterpartyID string
	Phone          string
	Text           string
	At             time.Time
}

// Options configures an Engine.
type Options struct {
	TenantID     uuid.UUID
	Machine      *Machine
	Sender       Sender
	Store        LeadStore
	Partials     PartialSaver
	Bus          events.Bus
	Clock        Clock
	Log          *logger.Logger
	IdleTimeout  time.Duration
	ResumeWindow time.Duration
}

// Engine owns every live conversation of one tenant. Each conversation is
// serialized by its own mutex; different counterparties run concurrently.
type Engine struct {
	tenantID     uuid.UUID
	machine      *Machine
	sender       Sender
	store        LeadStore
	partials     PartialSaver
	bus          events.Bus
	clock        Clock
	log          *logger.Logger
	idleTimeout  time.Duration
	resumeWindow time.Duration

	mu        sync.Mutex
	sessions  map[string]*Session
	closed    bool
	suspended bool
}

// NewEngine creates an engine for one tenant.
func NewEngine(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.ResumeWindow <= 0 {
		opts.ResumeWindow = DefaultResumeWindow
	}
	if opts.Partials == nil && opts.Store != nil {
		opts.Partials = DirectPartialSaver(opts.Store)
	}
	if opts.Log == nil {
		opts.Log = logger.Discard()
	}
	return &Engine{
		tenantID:     opts.TenantID,
		machine:      opts.Machine,
		sender:       opts.Sender,
		store:        opts.Store,
		partials:     opts.Partials,
		bus:          opts.Bus,
		clock:        opts.Clock,
		log:          opts.Log,
		idleTimeout:  opts.IdleTimeout,
		resumeWindow: opts.ResumeWindow,
		sessions:     make(map[string]*Session),
	}
}

// HandleInbound runs one customer turn to completion, including replies,
// timer bookkeeping and any storage writes.
func (e *Engine) HandleInbound(ctx context.Context, msg Inbound) error {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}
	if msg.At.IsZero() {
		msg.At = e.clock.Now()
	}

	s, err := e.acquire(msg.CounterpartyID, msg.Phone)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	if !s.seeded {
		e.seed(ctx, s)
	}

	if s.AwaitingResume {
		e.touch(s, msg.At, text)
		out := e.machine.Resume(s, text)
		if out.Restarted {
			s.ID = uuid.New()
		}
		e.deliver(ctx, s, out.Replies)
		return nil
	}

	if !s.LastInboundAt.IsZero() && !s.Finalized && msg.At.Sub(s.LastInboundAt) >= e.resumeWindow {
		out := e.machine.EnterResume(s)
		s.Greeted = true
		s.LastInboundAt = msg.At
		e.scheduleIdle(s, msg.At)
		e.deliver(ctx, s, out.Replies)
		return nil
	}

	var replies []string
	if s.Returning && !s.Greeted {
		replies = append(replies, greeting(s.Name()))
		s.Greeted = true
	}

	e.touch(s, msg.At, text)

	var out Outcome
	if e.machine.Catalog().IsMenuCommand(text) {
		out = e.machine.ShowMenu(s)
	} else {
		out = e.machine.Step(s, text)
	}
	replies = append(replies, out.Replies...)
	e.deliver(ctx, s, replies)

	if out.Finalize {
		e.finalize(ctx, s, msg.At)
	}
	return nil
}

// acquire returns the locked session for counterpartyID, creating it if needed.
// A session removed by a concurrent finalize is skipped so the caller gets a fresh one.
func (e *Engine) acquire(counterpartyID, phone string) (*Session, error) {
	for {
		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			return nil, ErrEngineClosed
		}
		s, ok := e.sessions[counterpartyID]
		if !ok {
			s = newSession(counterpartyID, phone)
			e.sessions[counterpartyID] = s
		}
		e.mu.Unlock()

		s.mu.Lock()
		if s.removed {
			s.mu.Unlock()
			continue
		}
		if s.Phone == "" {
			s.Phone = phone
		}
		return s, nil
	}
}

// seed loads the stored contact to decide whether this is a returning customer.
// A contact owned by another tenant is treated as new here.
func (e *Engine) seed(ctx context.Context, s *Session) {
	if e.store == nil || s.Phone == "" {
		s.seeded = true
		return
	}
	contact, err := e.store.GetContactByPhone(ctx, s.Phone)
	switch {
	case errors.Is(err, ErrContactNotFound):
		s.seeded = true
	case err != nil:
		e.log.WithConversation(e.tenantID.String(), s.CounterpartyID).Warn("contact lookup failed", "error", err)
	default:
		s.seeded = true
		if contact.AssignedTenantID != nil && *contact.AssignedTenantID != e.tenantID {
			return
		}
		id := contact.ID
		s.Returning = true
		s.ContactID = &id
		s.KnownName = contact.Name
		s.KnownEmail = contact.Email
	}
}

func (e *Engine) touch(s *Session, at time.Time, text string) {
	s.LastInboundAt = at
	s.Data.LastMessage = text
	e.scheduleIdle(s, at)
}

func (e *Engine) deliver(ctx context.Context, s *Session, replies []string) {
	if e.sender == nil {
		return
	}
	for _, r := range replies {
		if strings.TrimSpace(r) == "" {
			continue
		}
		if err := e.sender.Send(ctx, s.CounterpartyID, r); err != nil {
			e.log.WithConversation(e.tenantID.String(), s.CounterpartyID).Error("send reply failed", "state", s.State, "error", err)
		}
	}
}

// finalize writes contact, message and requirement, thanks the customer and
// drops the session. A storage failure leaves the session untouched so the
// next turn can try again.
func (e *Engine) finalize(ctx context.Context, s *Session, at time.Time) {
	log := e.log.WithConversation(e.tenantID.String(), s.CounterpartyID)
	if e.store == nil {
		log.Error("finalize skipped: no lead store configured")
		return
	}

	summary := s.Summary()
	category := s.Category()

	contact, err := e.store.UpsertContact(ctx, ContactUpsert{
		TenantID: e.tenantID,
		Phone:    s.Phone,
		Name:     s.Name(),
		Email:    s.Email(),
	})
	if err != nil {
		e.abandonFinalize(ctx, s, "upsert contact", err)
		return
	}

	if err := e.store.InsertMessage(ctx, MessageRecord{
		TenantID:  e.tenantID,
		ContactID: contact.ID,
		Phone:     s.Phone,
		Body:      summary,
		At:        at,
	}); err != nil {
		e.abandonFinalize(ctx, s, "insert message", err)
		return
	}

	contactID := contact.ID
	if err := e.store.SaveRequirement(ctx, RequirementRecord{
		ConversationID: s.ID,
		TenantID:       e.tenantID,
		ContactID:      &contactID,
		Phone:          s.Phone,
		Category:       category,
		Details:        summary,
		State:          string(s.State),
		Status:         RequirementPending,
		At:             at,
	}); err != nil {
		e.abandonFinalize(ctx, s, "save requirement", err)
		return
	}

	e.deliver(ctx, s, []string{thanks(s.Name())})
	e.cancelIdle(s)
	s.Finalized = true
	e.remove(s)

	log.Info("lead captured", "conversationId", s.ID, "category", category, "returning", s.Returning)

	if e.bus != nil {
		e.bus.Publish(ctx, events.LeadCaptured{
			BaseEvent:      events.BaseEventAt(at),
			TenantID:       e.tenantID,
			ConversationID: s.ID,
			ContactID:      contact.ID,
			Phone:          s.Phone,
			Name:           s.Name(),
			Email:          s.Email(),
			Category:       category,
			Returning:      s.Returning,
		})
	}
}

func (e *Engine) abandonFinalize(ctx context.Context, s *Session, op string, err error) {
	e.log.WithConversation(e.tenantID.String(), s.CounterpartyID).Error("finalize failed", "operation", op, "state", s.State, "error", err)
	e.deliver(ctx, s, []string{msgSaveFailed})
}

// remove drops s from the tenant map. Caller holds s.mu.
func (e *Engine) remove(s *Session) {
	s.removed = true
	e.mu.Lock()
	if cur, ok := e.sessions[s.CounterpartyID]; ok && cur == s {
		delete(e.sessions, s.CounterpartyID)
	}
	e.mu.Unlock()
}

// Len is the number of live conversations.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// Snapshot returns the state of the conversation with counterpartyID, if live.
func (e *Engine) Snapshot(counterpartyID string) (State, Data, bool) {
	e.mu.Lock()
	s, ok := e.sessions[counterpartyID]
	e.mu.Unlock()
	if !ok {
		return "", Data{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return "", Data{}, false
	}
	return s.State, s.Data, true
}

// Suspend cancels every pending idle timer but keeps conversations, so a
// reconnect can pick them up again.
func (e *Engine) Suspend() {
	e.mu.Lock()
	e.suspended = true
	live := e.liveLocked()
	e.mu.Unlock()

	for _, s := range live {
		s.mu.Lock()
		e.cancelIdle(s)
		s.mu.Unlock()
	}
}

// Reactivate allows timers to be scheduled again after Suspend.
func (e *Engine) Reactivate() {
	e.mu.Lock()
	e.suspended = false
	e.mu.Unlock()
}

// Close cancels every timer and discards all conversations. When Close
// returns no timer callback can touch a session any more.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	live := e.liveLocked()
	e.sessions = make(map[string]*Session)
	e.mu.Unlock()

	for _, s := range live {
		s.mu.Lock()
		e.cancelIdle(s)
		s.removed = true
		s.mu.Unlock()
	}
}

func (e *Engine) liveLocked() []*Session {
	out := make([]*Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		out = append(out, s)
	}
	return out
}

func (e *Engine) timersOff() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed || e.suspended
}
