// Package service runs tenant messaging sessions. It owns each tenant's
// status lifecycle and conversation engine and routes transport events to them.
package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"leadbot_backend/internal/conversation"
	"leadbot_backend/internal/events"
	"leadbot_backend/internal/whatsapp"
	"leadbot_backend/platform/apperr"
	"leadbot_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"golang.org/x/sync/errgroup"
)

const (
	defaultQRWait       = 5 * time.Second
	restoreConcurrency  = 4
	restoreStartTimeout = 30 * time.Second
)

// State is the externally visible state of one tenant session.
type State struct {
	TenantID      uuid.UUID
	Status        Status
	QRChallenge   string
	BoundAccount  string
	Reason        string
	Conversations int
	UpdatedAt     time.Time
}

// EngineFactory builds the conversation engine of one tenant.
type EngineFactory func(tenantID uuid.UUID, sender conversation.Sender) *conversation.Engine

// TenantLister returns the tenants that have a paired device.
type TenantLister interface {
	ListPairedTenants(ctx context.Context) ([]uuid.UUID, error)
}

type tenantSession struct {
	mu        sync.Mutex
	id        uuid.UUID
	status    *fsm.FSM
	previous  Status
	qr        string
	account   string
	reason    string
	updatedAt time.Time
	engine    *conversation.Engine
	changed   chan struct{}
}

// signal wakes callers waiting for the next update. Caller holds ts.mu.
func (ts *tenantSession) signal() {
	close(ts.changed)
	ts.changed = make(chan struct{})
}

func (ts *tenantSession) current() Status {
	return Status(ts.status.Current())
}

func (ts *tenantSession) snapshot() State {
	st := State{
		TenantID:     ts.id,
		Status:       ts.current(),
		QRChallenge:  ts.qr,
		BoundAccount: ts.account,
		Reason:       ts.reason,
		UpdatedAt:    ts.updatedAt,
	}
	if ts.engine != nil {
		st.Conversations = ts.engine.Len()
	}
	return st
}

// Manager is the session orchestrator for all tenants.
type Manager struct {
	transport whatsapp.Transport
	newEngine EngineFactory
	bus       events.Bus
	tenants   TenantLister
	qrWait    time.Duration
	log       *logger.Logger
	now       func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*tenantSession
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Transport whatsapp.Transport
	NewEngine EngineFactory
	Bus       events.Bus
	Tenants   TenantLister
	QRWait    time.Duration
	Log       *logger.Logger
}

var _ whatsapp.Sink = (*Manager)(nil)

func NewManager(opts ManagerOptions) *Manager {
	if opts.QRWait <= 0 {
		opts.QRWait = defaultQRWait
	}
	if opts.Log == nil {
		opts.Log = logger.Discard()
	}
	return &Manager{
		transport: opts.Transport,
		newEngine: opts.NewEngine,
		bus:       opts.Bus,
		tenants:   opts.Tenants,
		qrWait:    opts.QRWait,
		log:       opts.Log,
		now:       time.Now,
		sessions:  make(map[uuid.UUID]*tenantSession),
	}
}

func (m *Manager) lookup(tenantID uuid.UUID) *tenantSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[tenantID]
}

func (m *Manager) getOrCreate(tenantID uuid.UUID) *tenantSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ts, ok := m.sessions[tenantID]; ok {
		return ts
	}
	ts := &tenantSession{id: tenantID, changed: make(chan struct{}), updatedAt: m.now()}
	ts.status = newStatusMachine(func(from, _ Status) { ts.previous = from })
	m.sessions[tenantID] = ts
	return ts
}

// Start opens the tenant's session. It is a no-op for a session that is
// already starting, pairing or connected. Start waits up to the QR wait for
// the first QR challenge or connection so the caller can show it.
func (m *Manager) Start(ctx context.Context, tenantID uuid.UUID) (State, error) {
	ts := m.getOrCreate(tenantID)
	log := m.log.WithTenant(tenantID.String())

	ts.mu.Lock()
	switch ts.current() {
	case StatusStarting, StatusQR, StatusConnected:
		st := ts.snapshot()
		ts.mu.Unlock()
		return st, nil
	}
	if _, err := fire(ctx, ts.status, evStart); err != nil {
		ts.mu.Unlock()
		return State{}, apperr.Wrap(apperr.KindInternal, "could not start session", err)
	}
	ts.qr = ""
	ts.reason = ""
	ts.updatedAt = m.now()
	if ts.engine == nil {
		ts.engine = m.newEngine(tenantID, m.senderFor(tenantID))
	}
	ts.signal()
	started := ts.snapshot()
	prev := ts.previous
	ts.mu.Unlock()

	m.publish(ctx, started, prev)
	log.Info("starting whatsapp session")

	if err := m.transport.Connect(ctx, tenantID); err != nil {
		log.Error("whatsapp connect failed", "error", err)
		m.OnStatus(ctx, whatsapp.StatusUpdate{TenantID: tenantID, Status: whatsapp.StatusError, Reason: err.Error()})
		return m.State(tenantID), apperr.Unavailable("could not connect to whatsapp", err)
	}

	return m.awaitSettled(ctx, ts), nil
}

// awaitSettled waits until the session leaves the starting status, the QR
// wait elapses or ctx is done, and returns the state at that point.
func (m *Manager) awaitSettled(ctx context.Context, ts *tenantSession) State {
	timer := time.NewTimer(m.qrWait)
	defer timer.Stop()

	for {
		ts.mu.Lock()
		st := ts.snapshot()
		changed := ts.changed
		ts.mu.Unlock()

		if st.Status != StatusStarting {
			return st
		}
		select {
		case <-changed:
		case <-timer.C:
			return st
		case <-ctx.Done():
			return st
		}
	}
}

// Stop closes the tenant's session. All idle timers are cancelled before the
// transport is released. Stopping an unknown tenant reports idle.
func (m *Manager) Stop(ctx context.Context, tenantID uuid.UUID) (State, error) {
	m.mu.Lock()
	ts, ok := m.sessions[tenantID]
	delete(m.sessions, tenantID)
	m.mu.Unlock()

	if !ok {
		return State{TenantID: tenantID, Status: StatusIdle}, nil
	}

	ts.mu.Lock()
	engine := ts.engine
	ts.engine = nil
	changed, err := fire(ctx, ts.status, evStop)
	ts.qr = ""
	ts.account = ""
	ts.reason = ""
	ts.updatedAt = m.now()
	ts.signal()
	st := ts.snapshot()
	prev := ts.previous
	ts.mu.Unlock()

	if engine != nil {
		engine.Close()
	}
	if derr := m.transport.Disconnect(tenantID); derr != nil {
		m.log.WithTenant(tenantID.String()).Warn("whatsapp disconnect failed", "error", derr)
	}
	if err != nil {
		return st, apperr.Wrap(apperr.KindInternal, "could not stop session", err)
	}
	if changed {
		m.publish(ctx, st, prev)
	}
	m.log.WithTenant(tenantID.String()).Info("whatsapp session stopped")
	return st, nil
}

// State returns the tenant's current state; tenants without a session are idle.
func (m *Manager) State(tenantID uuid.UUID) State {
	ts := m.lookup(tenantID)
	if ts == nil {
		return State{TenantID: tenantID, Status: StatusIdle}
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.snapshot()
}

// OnStatus applies a transport status update to the tenant's lifecycle.
// Transport faults suspend idle timers but keep conversations in memory.
func (m *Manager) OnStatus(ctx context.Context, update whatsapp.StatusUpdate) {
	ts := m.lookup(update.TenantID)
	if ts == nil {
		return
	}

	ts.mu.Lock()
	var (
		changed bool
		err     error
	)
	qrBefore := ts.qr
	switch update.Status {
	case whatsapp.StatusQR:
		changed, err = fire(ctx, ts.status, evQR)
		if ts.current() == StatusQR {
			ts.qr = update.QR
		}
	case whatsapp.StatusConnected:
		changed, err = fire(ctx, ts.status, evConnect)
		ts.qr = ""
		if update.Account != "" {
			ts.account = update.Account
		}
		if ts.engine != nil {
			ts.engine.Reactivate()
		}
	case whatsapp.StatusDisconnected:
		changed, err = fire(ctx, ts.status, evDisconnect)
		m.suspend(ts)
	case whatsapp.StatusAuthFailure:
		changed, err = fire(ctx, ts.status, evAuthFail)
		ts.qr = ""
		ts.account = ""
		m.suspend(ts)
	case whatsapp.StatusError:
		changed, err = fire(ctx, ts.status, evFail)
		ts.qr = ""
		m.suspend(ts)
	}
	if err != nil {
		ts.mu.Unlock()
		m.log.WithTenant(update.TenantID.String()).Error("status transition failed", "status", update.Status, "error", err)
		return
	}
	ts.reason = update.Reason
	changed = changed || ts.qr != qrBefore
	if changed {
		ts.updatedAt = m.now()
		ts.signal()
	}
	st := ts.snapshot()
	prev := ts.previous
	ts.mu.Unlock()

	if changed {
		m.publish(ctx, st, prev)
	}
}

// suspend cancels the tenant's idle timers. Caller holds ts.mu.
func (m *Manager) suspend(ts *tenantSession) {
	if ts.engine != nil {
		ts.engine.Suspend()
	}
}

// OnMessage routes an inbound message to the tenant's conversation engine.
// Own messages, blank text, group chats and tenants that are not connected
// are ignored.
func (m *Manager) OnMessage(ctx context.Context, msg whatsapp.InboundMessage) {
	if msg.IsFromSelf || strings.TrimSpace(msg.Text) == "" || whatsapp.IsGroupID(msg.CounterpartyID) {
		return
	}

	ts := m.lookup(msg.TenantID)
	if ts == nil {
		return
	}
	ts.mu.Lock()
	connected := ts.current() == StatusConnected
	engine := ts.engine
	ts.mu.Unlock()
	if !connected || engine == nil {
		return
	}

	phone := msg.Phone
	if phone == "" {
		phone = msg.CounterpartyID
	}

	err := engine.HandleInbound(ctx, conversation.Inbound{
		CounterpartyID: msg.CounterpartyID,
		Phone:          phone,
		Text:           msg.Text,
		At:             msg.At,
	})
	if err != nil && !errors.Is(err, conversation.ErrEngineClosed) {
		m.log.WithConversation(msg.TenantID.String(), msg.CounterpartyID).Error("handle inbound failed", "error", err)
	}
}

func (m *Manager) senderFor(tenantID uuid.UUID) conversation.Sender {
	return conversation.SenderFunc(func(ctx context.Context, counterpartyID, text string) error {
		return m.transport.Send(ctx, tenantID, counterpartyID, text)
	})
}

func (m *Manager) publish(ctx context.Context, st State, prev Status) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(ctx, events.TenantStatusChanged{
		BaseEvent:      events.BaseEventAt(st.UpdatedAt),
		TenantID:       st.TenantID,
		Status:         string(st.Status),
		PreviousStatus: string(prev),
		QRChallenge:    st.QRChallenge,
		BoundAccount:   st.BoundAccount,
		Reason:         st.Reason,
	})
}

// RestoreSessions starts every tenant with a paired device.
func (m *Manager) RestoreSessions(ctx context.Context) error {
	if m.tenants == nil {
		return nil
	}
	ids, err := m.tenants.ListPairedTenants(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(restoreConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			startCtx, cancel := context.WithTimeout(gctx, restoreStartTimeout)
			defer cancel()
			if _, err := m.Start(startCtx, id); err != nil {
				m.log.WithTenant(id.String()).Warn("restore session failed", "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	m.log.Info("whatsapp sessions restored", "count", len(ids))
	return nil
}

// Shutdown stops every tenant concurrently.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	ids := make([]uuid.UUID, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var g errgroup.Group
	for _, id := range ids {
		g.Go(func() error {
			_, err := m.Stop(ctx, id)
			return err
		})
	}
	return g.Wait()
}
