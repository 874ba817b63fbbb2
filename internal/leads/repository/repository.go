// Package repository persists contacts, inbound lead messages, requirements
// and the tenant to WhatsApp device mapping on PostgreSQL.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

// Repository is the pgx-backed storage for the lead-capture flow.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}
