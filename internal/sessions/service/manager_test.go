package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"leadbot_backend/internal/conversation"
	"leadbot_backend/internal/events"
	"leadbot_backend/internal/whatsapp"
	"leadbot_backend/platform/logger"
	"leadbot_backend/platform/validator"

	"github.com/google/uuid"
)

type sentMessage struct {
	tenantID       uuid.UUID
	counterpartyID string
	text           string
}

type fakeTransport struct {
	mu           sync.Mutex
	connects     int
	connectErr   error
	onConnect    func(tenantID uuid.UUID)
	disconnects  []uuid.UUID
	onDisconnect func(tenantID uuid.UUID)
	sent         []sentMessage
}

func (f *fakeTransport) Connect(_ context.Context, tenantID uuid.UUID) error {
	f.mu.Lock()
	f.connects++
	err := f.connectErr
	hook := f.onConnect
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if hook != nil {
		hook(tenantID)
	}
	return nil
}

func (f *fakeTransport) Disconnect(tenantID uuid.UUID) error {
	f.mu.Lock()
	f.disconnects = append(f.disconnects, tenantID)
	hook := f.onDisconnect
	f.mu.Unlock()
	if hook != nil {
		hook(tenantID)
	}
	return nil
}

func (f *fakeTransport) Send(_ context.Context, tenantID uuid.UUID, counterpartyID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{tenantID: tenantID, counterpartyID: counterpartyID, text: text})
	return nil
}

func (f *fakeTransport) sentTo(counterpartyID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		if m.counterpartyID == counterpartyID {
			out = append(out, m.text)
		}
	}
	return out
}

type nullStore struct{}

func (nullStore) GetContactByPhone(context.Context, string) (conversation.Contact, error) {
	return conversation.Contact{}, conversation.ErrContactNotFound
}

func (nullStore) UpsertContact(_ context.Context, p conversation.ContactUpsert) (conversation.Contact, error) {
	return conversation.Contact{ID: uuid.New(), Phone: p.Phone, Name: p.Name, Email: p.Email}, nil
}

func (nullStore) InsertMessage(context.Context, conversation.MessageRecord) error { return nil }

func (nullStore) SaveRequirement(context.Context, conversation.RequirementRecord) error { return nil }

type staticTenants []uuid.UUID

func (s staticTenants) ListPairedTenants(context.Context) ([]uuid.UUID, error) {
	return s, nil
}

type managerHarness struct {
	manager   *Manager
	transport *fakeTransport
	bus       *events.InMemoryBus
	catalog   *conversation.Catalog

	mu      sync.Mutex
	engines map[uuid.UUID]*conversation.Engine
}

func newManagerHarness(t *testing.T) *managerHarness {
	t.Helper()
	catalog, err := conversation.DefaultCatalog()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	machine := conversation.NewMachine(catalog, validator.New().IsEmail)

	h := &managerHarness{
		transport: &fakeTransport{},
		bus:       events.NewInMemoryBus(logger.Discard()),
		catalog:   catalog,
		engines:   make(map[uuid.UUID]*conversation.Engine),
	}
	h.manager = NewManager(ManagerOptions{
		Transport: h.transport,
		Bus:       h.bus,
		QRWait:    50 * time.Millisecond,
		NewEngine: func(tenantID uuid.UUID, sender conversation.Sender) *conversation.Engine {
			engine := conversation.NewEngine(conversation.Options{
				TenantID: tenantID,
				Machine:  machine,
				Sender:   sender,
				Store:    nullStore{},
			})
			h.mu.Lock()
			h.engines[tenantID] = engine
			h.mu.Unlock()
			return engine
		},
	})
	return h
}

func (h *managerHarness) engine(tenantID uuid.UUID) *conversation.Engine {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.engines[tenantID]
}

func (h *managerHarness) connect(t *testing.T, tenantID uuid.UUID) {
	t.Helper()
	if _, err := h.manager.Start(context.Background(), tenantID); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.manager.OnStatus(context.Background(), whatsapp.StatusUpdate{TenantID: tenantID, Status: whatsapp.StatusConnected, Account: "+919800000000"})
	if st := h.manager.State(tenantID); st.Status != StatusConnected {
		t.Fatalf("expected connected, got %s", st.Status)
	}
}

func inbound(tenantID uuid.UUID, who, text string) whatsapp.InboundMessage {
	return whatsapp.InboundMessage{
		TenantID:       tenantID,
		CounterpartyID: who + "@s.whatsapp.net",
		Phone:          "+" + who,
		Text:           text,
		At:             time.Now(),
	}
}

func TestStartReturnsFirstQRChallenge(t *testing.T) {
	h := newManagerHarness(t)
	tenant := uuid.New()
	h.transport.onConnect = func(id uuid.UUID) {
		h.manager.OnStatus(context.Background(), whatsapp.StatusUpdate{TenantID: id, Status: whatsapp.StatusQR, QR: "2@abc"})
	}

	st, err := h.manager.Start(context.Background(), tenant)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if st.Status != StatusQR || st.QRChallenge != "2@abc" {
		t.Fatalf("expected qr challenge in start result, got %+v", st)
	}
}

func TestStartIsIdempotentWhileActive(t *testing.T) {
	h := newManagerHarness(t)
	tenant := uuid.New()
	h.connect(t, tenant)

	st, err := h.manager.Start(context.Background(), tenant)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if st.Status != StatusConnected {
		t.Fatalf("expected connected, got %s", st.Status)
	}
	if h.transport.connects != 1 {
		t.Fatalf("expected a single transport connect, got %d", h.transport.connects)
	}
}

func TestStartConnectFailureReportsError(t *testing.T) {
	h := newManagerHarness(t)
	tenant := uuid.New()
	h.transport.connectErr = errors.New("dial failed")

	if _, err := h.manager.Start(context.Background(), tenant); err == nil {
		t.Fatal("expected start to fail")
	}
	if st := h.manager.State(tenant); st.Status != StatusError || st.Reason != "dial failed" {
		t.Fatalf("expected error status with reason, got %+v", st)
	}

	h.transport.connectErr = nil
	if _, err := h.manager.Start(context.Background(), tenant); err != nil {
		t.Fatalf("expected restart from error to succeed: %v", err)
	}
}

func TestInboundIsIgnoredUntilConnected(t *testing.T) {
	h := newManagerHarness(t)
	tenant := uuid.New()

	h.manager.OnMessage(context.Background(), inbound(tenant, "919800000001", "hi"))
	if _, err := h.manager.Start(context.Background(), tenant); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.manager.OnMessage(context.Background(), inbound(tenant, "919800000001", "hi"))
	if sent := h.transport.sentTo("919800000001@s.whatsapp.net"); len(sent) != 0 {
		t.Fatalf("expected no replies before connect, got %v", sent)
	}

	h.manager.OnStatus(context.Background(), whatsapp.StatusUpdate{TenantID: tenant, Status: whatsapp.StatusConnected})
	h.manager.OnMessage(context.Background(), inbound(tenant, "919800000001", "hi"))
	sent := h.transport.sentTo("919800000001@s.whatsapp.net")
	if len(sent) != 1 || sent[0] != h.catalog.MainMenuText() {
		t.Fatalf("expected main menu reply, got %v", sent)
	}
}

func TestGroupSelfAndBlankMessagesAreIgnored(t *testing.T) {
	h := newManagerHarness(t)
	tenant := uuid.New()
	h.connect(t, tenant)

	group := whatsapp.InboundMessage{TenantID: tenant, CounterpartyID: "120363025246125244@g.us", Text: "hi"}
	self := inbound(tenant, "919800000002", "hi")
	self.IsFromSelf = true
	blank := inbound(tenant, "919800000003", "   ")

	for _, msg := range []whatsapp.InboundMessage{group, self, blank} {
		h.manager.OnMessage(context.Background(), msg)
	}
	if n := h.engine(tenant).Len(); n != 0 {
		t.Fatalf("expected no conversations, got %d", n)
	}
}

func TestStopUnknownTenantReportsIdle(t *testing.T) {
	h := newManagerHarness(t)
	tenant := uuid.New()

	st, err := h.manager.Stop(context.Background(), tenant)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if st.Status != StatusIdle {
		t.Fatalf("expected idle, got %s", st.Status)
	}
	if len(h.transport.disconnects) != 0 {
		t.Fatal("expected no transport call for an unknown tenant")
	}
}

func TestStopClosesEngineBeforeReleasingTransport(t *testing.T) {
	h := newManagerHarness(t)
	tenant := uuid.New()
	h.connect(t, tenant)
	h.manager.OnMessage(context.Background(), inbound(tenant, "919800000001", "hi"))

	engine := h.engine(tenant)
	var closedFirst bool
	h.transport.onDisconnect = func(uuid.UUID) {
		err := engine.HandleInbound(context.Background(), conversation.Inbound{CounterpartyID: "x", Phone: "+1", Text: "hi"})
		closedFirst = errors.Is(err, conversation.ErrEngineClosed)
	}

	st, err := h.manager.Stop(context.Background(), tenant)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !closedFirst {
		t.Fatal("expected engine to be closed before the transport disconnect")
	}
	if st.Status != StatusIdle || st.Conversations != 0 {
		t.Fatalf("expected idle without conversations, got %+v", st)
	}
	if got := h.manager.State(tenant).Status; got != StatusIdle {
		t.Fatalf("expected idle after stop, got %s", got)
	}
}

func TestTransportFaultKeepsConversations(t *testing.T) {
	h := newManagerHarness(t)
	tenant := uuid.New()
	h.connect(t, tenant)
	h.manager.OnMessage(context.Background(), inbound(tenant, "919800000001", "hi"))

	h.manager.OnStatus(context.Background(), whatsapp.StatusUpdate{TenantID: tenant, Status: whatsapp.StatusDisconnected, Reason: "connection lost"})
	st := h.manager.State(tenant)
	if st.Status != StatusDisconnected || st.Conversations != 1 {
		t.Fatalf("expected disconnected with one conversation, got %+v", st)
	}

	h.manager.OnStatus(context.Background(), whatsapp.StatusUpdate{TenantID: tenant, Status: whatsapp.StatusConnected})
	if st := h.manager.State(tenant); st.Status != StatusConnected || st.Conversations != 1 {
		t.Fatalf("expected reconnect to keep the conversation, got %+v", st)
	}
}

func TestAuthFailureClearsAccount(t *testing.T) {
	h := newManagerHarness(t)
	tenant := uuid.New()
	h.connect(t, tenant)

	h.manager.OnStatus(context.Background(), whatsapp.StatusUpdate{TenantID: tenant, Status: whatsapp.StatusAuthFailure, Reason: "logged out"})
	st := h.manager.State(tenant)
	if st.Status != StatusAuthFailure || st.BoundAccount != "" || st.Reason != "logged out" {
		t.Fatalf("unexpected state after auth failure %+v", st)
	}
}

func TestStatusChangesArePublished(t *testing.T) {
	h := newManagerHarness(t)
	tenant := uuid.New()

	var mu sync.Mutex
	var seen []events.TenantStatusChanged
	h.bus.Subscribe(events.TenantStatusChanged{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.(events.TenantStatusChanged))
		return nil
	}))

	h.connect(t, tenant)
	// repeated connected updates are not a change
	h.manager.OnStatus(context.Background(), whatsapp.StatusUpdate{TenantID: tenant, Status: whatsapp.StatusConnected})
	h.bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("expected starting and connected events, got %d", len(seen))
	}
	byStatus := map[string]events.TenantStatusChanged{}
	for _, e := range seen {
		byStatus[e.Status] = e
	}
	if e, ok := byStatus[string(StatusConnected)]; !ok || e.PreviousStatus != string(StatusStarting) || e.BoundAccount != "+919800000000" {
		t.Fatalf("unexpected connected event %+v", e)
	}
	if e, ok := byStatus[string(StatusStarting)]; !ok || e.PreviousStatus != string(StatusIdle) {
		t.Fatalf("unexpected starting event %+v", e)
	}
}

func TestUpdatesForUnknownTenantAreDropped(t *testing.T) {
	h := newManagerHarness(t)
	tenant := uuid.New()

	h.manager.OnStatus(context.Background(), whatsapp.StatusUpdate{TenantID: tenant, Status: whatsapp.StatusConnected})
	if st := h.manager.State(tenant); st.Status != StatusIdle {
		t.Fatalf("expected idle, got %s", st.Status)
	}
}

func TestRestoreAndShutdown(t *testing.T) {
	h := newManagerHarness(t)
	a, b := uuid.New(), uuid.New()
	h.manager.tenants = staticTenants{a, b}

	if err := h.manager.RestoreSessions(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if h.transport.connects != 2 {
		t.Fatalf("expected two connects, got %d", h.transport.connects)
	}
	if err := h.manager.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if len(h.transport.disconnects) != 2 {
		t.Fatalf("expected two disconnects, got %d", len(h.transport.disconnects))
	}
	for _, id := range []uuid.UUID{a, b} {
		if st := h.manager.State(id); st.Status != StatusIdle {
			t.Fatalf("expected %s idle after shutdown, got %s", id, st.Status)
		}
	}
}
