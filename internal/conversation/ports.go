package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrContactNotFound is returned by LeadStore.GetContactByPhone for unknown numbers.
var ErrContactNotFound = errors.New("contact not found")

// Contact is the stored customer record the engine reads and writes.
type Contact struct {
	ID               uuid.UUID
	Phone            string
	Name             string
	Email            string
	AssignedTenantID *uuid.UUID
}

// ContactUpsert creates or updates the contact for Phone.
type ContactUpsert struct {
	TenantID uuid.UUID
	Phone    string
	Name     string
	Email    string
}

// MessageRecord is an inbound message persisted with a captured lead.
type MessageRecord struct {
	TenantID  uuid.UUID
	ContactID uuid.UUID
	Phone     string
	Body      string
	At        time.Time
}

// RequirementStatus distinguishes idle snapshots from finished leads.
type RequirementStatus string

const (
	RequirementPartial RequirementStatus = "partial"
	RequirementPending RequirementStatus = "pending"
)

// PartialCategoryPrefix marks the category of requirements written by the idle timer.
const PartialCategoryPrefix = "partial:"

// RequirementRecord is one lead requirement keyed by its conversation.
type RequirementRecord struct {
	ConversationID uuid.UUID
	TenantID       uuid.UUID
	ContactID      *uuid.UUID
	Phone          string
	Category       string
	Details        string
	State          string
	Status         RequirementStatus
	At             time.Time
}

// LeadStore is the storage collaborator used to seed and finalize conversations.
type LeadStore interface {
	GetContactByPhone(ctx context.Context, phone string) (Contact, error)
	UpsertContact(ctx context.Context, params ContactUpsert) (Contact, error)
	InsertMessage(ctx context.Context, msg MessageRecord) error
	SaveRequirement(ctx context.Context, req RequirementRecord) error
}

// PartialSaver persists idle snapshots. Implementations may write directly or queue.
type PartialSaver interface {
	SavePartial(ctx context.Context, req RequirementRecord) error
}

// Sender delivers text to a counterparty of one tenant.
type Sender interface {
	Send(ctx context.Context, counterpartyID, text string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, counterpartyID, text string) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, counterpartyID, text string) error {
	return f(ctx, counterpartyID, text)
}

type directPartialSaver struct {
	store LeadStore
}

// DirectPartialSaver writes idle snapshots straight through store.
func DirectPartialSaver(store LeadStore) PartialSaver {
	return directPartialSaver{store: store}
}

func (d directPartialSaver) SavePartial(ctx context.Context, req RequirementRecord) error {
	req.Status = RequirementPartial
	return d.store.SaveRequirement(ctx, req)
}
