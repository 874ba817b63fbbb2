// Package leads provides the lead storage bounded context module.
// This file defines the module that encapsulates leads setup and route registration.
package leads

import (
	apphttp "leadbot_backend/internal/http"
	"leadbot_backend/internal/leads/handler"
	"leadbot_backend/internal/leads/repository"
	"leadbot_backend/internal/leads/service"
	"leadbot_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	repo    *repository.Repository
	handler *handler.Handler
}

// NewModule creates the leads repository, service and handler.
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)
	return &Module{
		repo:    repo,
		handler: handler.New(svc, val),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Repository returns the shared repository. The conversation engine, the
// transport device mapping and the partial-save worker all write through it.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leadsGroup := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(leadsGroup)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
