package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

type InsertMessageParams struct {
	TenantID  uuid.UUID
	ContactID *uuid.UUID
	Phone     string
	Direction string
	Body      string
	CreatedAt time.Time
}

const insertMessageQuery = `
	INSERT INTO messages (id, tenant_id, contact_id, phone, direction, body, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (r *Repository) InsertMessage(ctx context.Context, params InsertMessageParams) error {
	direction := params.Direction
	if direction == "" {
		direction = DirectionInbound
	}
	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.pool.Exec(ctx, insertMessageQuery,
		uuid.New(), params.TenantID, params.ContactID, params.Phone, direction, params.Body, createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}
