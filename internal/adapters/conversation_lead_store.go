package adapters

import (
	"context"
	"errors"

	"leadbot_backend/internal/conversation"
	leadsrepo "leadbot_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// LeadRepository is the subset of the leads repository the conversation engine needs.
type LeadRepository interface {
	GetContactByPhone(ctx context.Context, phone string) (leadsrepo.Contact, error)
	UpsertContact(ctx context.Context, params leadsrepo.UpsertContactParams) (leadsrepo.Contact, error)
	InsertMessage(ctx context.Context, params leadsrepo.InsertMessageParams) error
	SaveRequirement(ctx context.Context, params leadsrepo.SaveRequirementParams) error
}

// ConversationLeadStore adapts the leads repository to conversation.LeadStore.
type ConversationLeadStore struct {
	repo LeadRepository
}

func NewConversationLeadStore(repo LeadRepository) *ConversationLeadStore {
	return &ConversationLeadStore{repo: repo}
}

var _ conversation.LeadStore = (*ConversationLeadStore)(nil)

func (a *ConversationLeadStore) GetContactByPhone(ctx context.Context, phone string) (conversation.Contact, error) {
	c, err := a.repo.GetContactByPhone(ctx, phone)
	if errors.Is(err, leadsrepo.ErrNotFound) {
		return conversation.Contact{}, conversation.ErrContactNotFound
	}
	if err != nil {
		return conversation.Contact{}, err
	}
	return toConversationContact(c), nil
}

func (a *ConversationLeadStore) UpsertContact(ctx context.Context, params conversation.ContactUpsert) (conversation.Contact, error) {
	c, err := a.repo.UpsertContact(ctx, leadsrepo.UpsertContactParams{
		Phone:    params.Phone,
		Name:     params.Name,
		Email:    params.Email,
		TenantID: params.TenantID,
	})
	if err != nil {
		return conversation.Contact{}, err
	}
	return toConversationContact(c), nil
}

func (a *ConversationLeadStore) InsertMessage(ctx context.Context, msg conversation.MessageRecord) error {
	var contactID *uuid.UUID
	if msg.ContactID != uuid.Nil {
		id := msg.ContactID
		contactID = &id
	}
	return a.repo.InsertMessage(ctx, leadsrepo.InsertMessageParams{
		TenantID:  msg.TenantID,
		ContactID: contactID,
		Phone:     msg.Phone,
		Direction: leadsrepo.DirectionInbound,
		Body:      msg.Body,
		CreatedAt: msg.At,
	})
}

func (a *ConversationLeadStore) SaveRequirement(ctx context.Context, req conversation.RequirementRecord) error {
	return a.repo.SaveRequirement(ctx, ToSaveRequirementParams(req))
}

// ToSaveRequirementParams maps an engine requirement onto repository params.
func ToSaveRequirementParams(req conversation.RequirementRecord) leadsrepo.SaveRequirementParams {
	status := leadsrepo.StatusPending
	if req.Status == conversation.RequirementPartial {
		status = leadsrepo.StatusPartial
	}
	return leadsrepo.SaveRequirementParams{
		TenantID:       req.TenantID,
		ConversationID: req.ConversationID,
		ContactID:      req.ContactID,
		Phone:          req.Phone,
		Category:       req.Category,
		Details:        req.Details,
		State:          req.State,
		Status:         status,
		At:             req.At,
	}
}

func toConversationContact(c leadsrepo.Contact) conversation.Contact {
	out := conversation.Contact{
		ID:               c.ID,
		Phone:            c.Phone,
		AssignedTenantID: c.AssignedTenantID,
	}
	if c.Name != nil {
		out.Name = *c.Name
	}
	if c.Email != nil {
		out.Email = *c.Email
	}
	return out
}
