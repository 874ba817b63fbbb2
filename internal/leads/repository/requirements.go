package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	StatusPartial = "partial"
	StatusPending = "pending"
)

type Requirement struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	ConversationID uuid.UUID
	ContactID      *uuid.UUID
	Phone          string
	Category       string
	Details        string
	State          string
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type SaveRequirementParams struct {
	TenantID       uuid.UUID
	ConversationID uuid.UUID
	ContactID      *uuid.UUID
	Phone          string
	Category       string
	Details        string
	State          string
	Status         string
	At             time.Time
}

type ListRequirementsParams struct {
	TenantID uuid.UUID
	Status   string
	Limit    int
	Offset   int
}

// One row per conversation. A partial snapshot only replaces a row that is
// still partial and not newer than itself, so neither a late idle write nor a
// retried older snapshot can overwrite a finalized lead or a newer partial.
const saveRequirementQuery = `
	INSERT INTO requirements (id, tenant_id, conversation_id, contact_id, phone, category, details, state, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	ON CONFLICT (conversation_id) DO UPDATE SET
		contact_id = COALESCE(EXCLUDED.contact_id, requirements.contact_id),
		phone = EXCLUDED.phone,
		category = EXCLUDED.category,
		details = EXCLUDED.details,
		state = EXCLUDED.state,
		status = EXCLUDED.status,
		updated_at = EXCLUDED.updated_at
	WHERE EXCLUDED.status = 'pending'
		OR (requirements.status = 'partial' AND requirements.updated_at <= EXCLUDED.updated_at)`

const listRequirementsQuery = `
	SELECT id, tenant_id, conversation_id, contact_id, phone, category, details, state, status, created_at, updated_at,
		COUNT(*) OVER() AS total
	FROM requirements
	WHERE tenant_id = $1
		AND ($2 = '' OR status = $2)
	ORDER BY updated_at DESC
	LIMIT $3 OFFSET $4`

// SaveRequirement upserts the requirement of one conversation.
func (r *Repository) SaveRequirement(ctx context.Context, params SaveRequirementParams) error {
	at := params.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.pool.Exec(ctx, saveRequirementQuery,
		uuid.New(), params.TenantID, params.ConversationID, params.ContactID, params.Phone,
		params.Category, params.Details, params.State, params.Status, at,
	)
	if err != nil {
		return fmt.Errorf("save requirement: %w", err)
	}
	return nil
}

// ListRequirements returns a tenant's requirements, newest first, and the
// total number of matching rows.
func (r *Repository) ListRequirements(ctx context.Context, params ListRequirementsParams) ([]Requirement, int, error) {
	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(ctx, listRequirementsQuery, params.TenantID, params.Status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list requirements: %w", err)
	}
	defer rows.Close()

	items := make([]Requirement, 0)
	total := 0
	for rows.Next() {
		var req Requirement
		if err := rows.Scan(
			&req.ID, &req.TenantID, &req.ConversationID, &req.ContactID, &req.Phone, &req.Category,
			&req.Details, &req.State, &req.Status, &req.CreatedAt, &req.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan requirement: %w", err)
		}
		items = append(items, req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list requirements: %w", err)
	}
	return items, total, nil
}

const deletePartialRequirementsBeforeQuery = `
	DELETE FROM requirements
	WHERE status = 'partial' AND updated_at < $1`

// DeletePartialRequirementsBefore removes partial requirements not updated
// since before and returns how many were deleted.
func (r *Repository) DeletePartialRequirementsBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, deletePartialRequirementsBeforeQuery, before)
	if err != nil {
		return 0, fmt.Errorf("delete partial requirements: %w", err)
	}
	return tag.RowsAffected(), nil
}
