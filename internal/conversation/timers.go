package conversation

import (
	"context"
	"time"

	"leadbot_backend/internal/events"
)

// scheduleIdle replaces the session's idle timer with one firing idleTimeout
// after at. Caller holds s.mu.
func (e *Engine) scheduleIdle(s *Session, at time.Time) {
	e.cancelIdle(s)
	if e.timersOff() {
		return
	}

	s.idleSeq++
	seq := s.idleSeq
	delay := at.Add(e.idleTimeout).Sub(e.clock.Now())
	if delay < 0 {
		delay = 0
	}
	s.idle = e.clock.AfterFunc(delay, func() { e.onIdle(s, seq, at) })
}

// cancelIdle stops the pending timer and invalidates its fencing token.
// Caller holds s.mu.
func (e *Engine) cancelIdle(s *Session) {
	if s.idle != nil {
		s.idle.Stop()
		s.idle = nil
	}
	s.idleSeq++
}

// onIdle writes the partial snapshot if the timer is still the current one.
// A callback that lost a race with a newer message, finalize, Suspend or
// Close sees a stale token and returns without touching storage.
func (e *Engine) onIdle(s *Session, seq uint64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.removed || s.Finalized || s.idleSeq != seq || e.timersOff() {
		return
	}
	s.idle = nil

	if e.partials == nil {
		return
	}

	category := PartialCategoryPrefix + s.Category()
	req := RequirementRecord{
		ConversationID: s.ID,
		TenantID:       e.tenantID,
		ContactID:      s.ContactID,
		Phone:          s.Phone,
		Category:       category,
		Details:        s.Summary(),
		State:          string(s.State),
		Status:         RequirementPartial,
		At:             at,
	}

	ctx, cancel := context.WithTimeout(context.Background(), timerWriteTimeout)
	defer cancel()

	log := e.log.WithConversation(e.tenantID.String(), s.CounterpartyID)
	if err := e.partials.SavePartial(ctx, req); err != nil {
		log.Error("partial save failed", "conversationId", s.ID, "error", err)
		return
	}
	log.Info("partial lead saved", "conversationId", s.ID, "state", s.State, "category", category)

	if e.bus != nil {
		e.bus.Publish(context.WithoutCancel(ctx), events.PartialLeadSaved{
			BaseEvent:      events.BaseEventAt(e.clock.Now()),
			TenantID:       e.tenantID,
			ConversationID: s.ID,
			Phone:          s.Phone,
			Category:       category,
			State:          string(s.State),
		})
	}
}
