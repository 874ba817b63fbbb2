// Package events defines the lead and session events modules exchange over
// the bus. The bus itself lives in platform/events; the aliases below let
// modules depend on this package alone.
package events

import (
	"leadbot_backend/platform/events"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	TenantEvent = events.TenantEvent
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var (
	NewBaseEvent   = events.NewBaseEvent
	BaseEventAt    = events.BaseEventAt
	// NewInMemoryBus is the process-local bus cmd/api wires every module to.
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Messaging Session Events
// =============================================================================

// TenantStatusChanged is published whenever a tenant's transport status or QR challenge changes.
type TenantStatusChanged struct {
	BaseEvent
	TenantID       uuid.UUID `json:"tenantId"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previousStatus"`
	QRChallenge    string    `json:"qrChallenge,omitempty"`
	BoundAccount   string    `json:"boundAccount,omitempty"`
	Reason         string    `json:"reason,omitempty"`
}

func (e TenantStatusChanged) EventName() string     { return "whatsapp.session.status_changed" }
func (e TenantStatusChanged) EventTenant() uuid.UUID { return e.TenantID }

// =============================================================================
// Lead Capture Events
// =============================================================================

// LeadCaptured is published after a conversation was finalized into contact,
// message and requirement records.
type LeadCaptured struct {
	BaseEvent
	TenantID       uuid.UUID `json:"tenantId"`
	ConversationID uuid.UUID `json:"conversationId"`
	ContactID      uuid.UUID `json:"contactId"`
	Phone          string    `json:"phone"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Category       string    `json:"category"`
	Returning      bool      `json:"returning"`
}

func (e LeadCaptured) EventName() string     { return "leads.lead.captured" }
func (e LeadCaptured) EventTenant() uuid.UUID { return e.TenantID }

// PartialLeadSaved is published when an idle conversation was snapshotted as a partial requirement.
type PartialLeadSaved struct {
	BaseEvent
	TenantID       uuid.UUID `json:"tenantId"`
	ConversationID uuid.UUID `json:"conversationId"`
	Phone          string    `json:"phone"`
	Category       string    `json:"category"`
	State          string    `json:"state"`
}

func (e PartialLeadSaved) EventName() string     { return "leads.lead.partial_saved" }
func (e PartialLeadSaved) EventTenant() uuid.UUID { return e.TenantID }

var (
	_ TenantEvent = TenantStatusChanged{}
	_ TenantEvent = LeadCaptured{}
	_ TenantEvent = PartialLeadSaved{}
)
