package transport

import (
	"time"

	"github.com/google/uuid"
)

type RequirementStatus string

const (
	RequirementStatusPartial RequirementStatus = "partial"
	RequirementStatusPending RequirementStatus = "pending"
)

// Request DTOs
type ListRequirementsRequest struct {
	Status   RequirementStatus `form:"status" validate:"omitempty,oneof=partial pending"`
	Page     int               `form:"page" validate:"omitempty,min=1"`
	PageSize int               `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// Response DTOs
type RequirementResponse struct {
	ID             uuid.UUID         `json:"id"`
	ConversationID uuid.UUID         `json:"conversationId"`
	ContactID      *uuid.UUID        `json:"contactId,omitempty"`
	Phone          string            `json:"phone"`
	Category       string            `json:"category"`
	Details        string            `json:"details"`
	State          string            `json:"state,omitempty"`
	Status         RequirementStatus `json:"status"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

type RequirementListResponse struct {
	Items      []RequirementResponse `json:"items"`
	Total      int                   `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"pageSize"`
	TotalPages int                   `json:"totalPages"`
}
