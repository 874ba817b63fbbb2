// Package events is the in-process event bus that decouples the session
// orchestrator and conversation engines from their observers.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is implemented by every published event.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// TenantEvent is an event that belongs to one tenant. Handlers use it to
// scope delivery; the bus uses it to attribute handler failures.
type TenantEvent interface {
	Event
	EventTenant() uuid.UUID
}

// BaseEvent carries the event time. Embed it in concrete events.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps the event with the wall clock.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// BaseEventAt stamps the event with t, typically the time of the customer
// message that caused it.
func BaseEventAt(t time.Time) BaseEvent {
	return BaseEvent{Timestamp: t}
}

// Handler reacts to one event.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus routes events to the handlers subscribed to their name.
type Bus interface {
	// Publish delivers asynchronously. It never blocks on handlers.
	Publish(ctx context.Context, event Event)
	// PublishSync runs the handlers in order and returns their joined errors.
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}
