package transport

import "github.com/google/uuid"

// SessionResponse is the control-plane view of a tenant's WhatsApp session.
type SessionResponse struct {
	TenantID      uuid.UUID `json:"tenantId"`
	Status        string    `json:"status"`
	QRChallenge   string    `json:"qrChallenge,omitempty"`
	QRImage       string    `json:"qrImage,omitempty"`
	BoundAccount  string    `json:"boundAccount,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	Conversations int       `json:"conversations"`
	UpdatedAt     string    `json:"updatedAt,omitempty"`
}
