// Package sessions provides the WhatsApp session bounded context module.
// This file wires the session manager and registers the control-plane routes.
package sessions

import (
	apphttp "leadbot_backend/internal/http"
	"leadbot_backend/internal/sessions/handler"
	"leadbot_backend/internal/sessions/service"
	"leadbot_backend/platform/logger"
)

// Module is the sessions bounded context module implementing http.Module.
type Module struct {
	manager *service.Manager
	handler *handler.Handler
}

// NewModule creates the session manager and its HTTP handler.
func NewModule(opts service.ManagerOptions, log *logger.Logger) *Module {
	opts.Log = log
	manager := service.NewManager(opts)
	return &Module{
		manager: manager,
		handler: handler.New(manager, log),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "sessions"
}

// Manager returns the session manager. The transport delivers its events here.
func (m *Module) Manager() *service.Manager {
	return m.manager
}

// RegisterRoutes mounts session routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/whatsapp/session")
	group.GET("", m.handler.Get)
	group.POST("/start", ctx.SessionRateLimiter.RateLimit(), m.handler.Start)
	group.POST("/stop", ctx.SessionRateLimiter.RateLimit(), m.handler.Stop)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
