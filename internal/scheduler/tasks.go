package scheduler

import (
	"encoding/json"
	"fmt"
	"time"

	"leadbot_backend/internal/conversation"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const TaskPartialLeadSave = "leads.partial.save"

type PartialLeadSavePayload struct {
	ConversationID string    `json:"conversationId"`
	TenantID       string    `json:"tenantId"`
	ContactID      *string   `json:"contactId,omitempty"`
	Phone          string    `json:"phone"`
	Category       string    `json:"category"`
	Details        string    `json:"details"`
	State          string    `json:"state"`
	At             time.Time `json:"at"`
}

func NewPartialLeadSaveTask(payload PartialLeadSavePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPartialLeadSave, data), nil
}

func ParsePartialLeadSavePayload(task *asynq.Task) (PartialLeadSavePayload, error) {
	var payload PartialLeadSavePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return PartialLeadSavePayload{}, err
	}
	return payload, nil
}

func partialPayloadFromRecord(req conversation.RequirementRecord) PartialLeadSavePayload {
	payload := PartialLeadSavePayload{
		ConversationID: req.ConversationID.String(),
		TenantID:       req.TenantID.String(),
		Phone:          req.Phone,
		Category:       req.Category,
		Details:        req.Details,
		State:          req.State,
		At:             req.At,
	}
	if req.ContactID != nil {
		id := req.ContactID.String()
		payload.ContactID = &id
	}
	return payload
}

// Record converts the payload back into a partial requirement.
func (p PartialLeadSavePayload) Record() (conversation.RequirementRecord, error) {
	conversationID, err := uuid.Parse(p.ConversationID)
	if err != nil {
		return conversation.RequirementRecord{}, fmt.Errorf("conversation id: %w", err)
	}
	tenantID, err := uuid.Parse(p.TenantID)
	if err != nil {
		return conversation.RequirementRecord{}, fmt.Errorf("tenant id: %w", err)
	}

	rec := conversation.RequirementRecord{
		ConversationID: conversationID,
		TenantID:       tenantID,
		Phone:          p.Phone,
		Category:       p.Category,
		Details:        p.Details,
		State:          p.State,
		Status:         conversation.RequirementPartial,
		At:             p.At,
	}
	if p.ContactID != nil {
		contactID, err := uuid.Parse(*p.ContactID)
		if err != nil {
			return conversation.RequirementRecord{}, fmt.Errorf("contact id: %w", err)
		}
		rec.ContactID = &contactID
	}
	return rec, nil
}
