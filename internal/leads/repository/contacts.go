package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Contact struct {
	ID               uuid.UUID
	Phone            string
	Name             *string
	Email            *string
	AssignedTenantID *uuid.UUID
	Source           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type UpsertContactParams struct {
	Phone    string
	Name     string
	Email    string
	TenantID uuid.UUID
	Source   string
}

const contactColumns = `id, phone, name, email, assigned_tenant_id, source, created_at, updated_at`

const getContactByPhoneQuery = `
	SELECT ` + contactColumns + `
	FROM contacts
	WHERE phone = $1`

// Empty name/email never overwrite stored values and an existing tenant
// assignment is kept.
const upsertContactQuery = `
	INSERT INTO contacts (id, phone, name, email, assigned_tenant_id, source)
	VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6)
	ON CONFLICT (phone) DO UPDATE SET
		name = COALESCE(NULLIF(EXCLUDED.name, ''), contacts.name),
		email = COALESCE(NULLIF(EXCLUDED.email, ''), contacts.email),
		assigned_tenant_id = COALESCE(contacts.assigned_tenant_id, EXCLUDED.assigned_tenant_id),
		updated_at = now()
	RETURNING ` + contactColumns

func scanContact(row pgx.Row) (Contact, error) {
	var c Contact
	err := row.Scan(&c.ID, &c.Phone, &c.Name, &c.Email, &c.AssignedTenantID, &c.Source, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// GetContactByPhone returns the contact stored under an E.164 phone number.
func (r *Repository) GetContactByPhone(ctx context.Context, phone string) (Contact, error) {
	c, err := scanContact(r.pool.QueryRow(ctx, getContactByPhoneQuery, phone))
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	if err != nil {
		return Contact{}, fmt.Errorf("get contact by phone: %w", err)
	}
	return c, nil
}

// UpsertContact creates the contact or merges non-empty fields into the
// existing row. Concurrent upserts for one phone serialize on the row.
func (r *Repository) UpsertContact(ctx context.Context, params UpsertContactParams) (Contact, error) {
	source := params.Source
	if source == "" {
		source = "whatsapp"
	}
	c, err := scanContact(r.pool.QueryRow(ctx, upsertContactQuery,
		uuid.New(), params.Phone, params.Name, params.Email, params.TenantID, source,
	))
	if err != nil {
		return Contact{}, fmt.Errorf("upsert contact: %w", err)
	}
	return c, nil
}
