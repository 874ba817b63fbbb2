// Package notification pushes session and lead events to tenant dashboards.
// The module subscribes to domain events and fans them out over SSE, and keeps
// a persisted alert feed for events a tenant must not miss while offline.
package notification

import (
	"context"
	"fmt"
	"strings"

	"leadbot_backend/internal/events"
	apphttp "leadbot_backend/internal/http"
	notifhandler "leadbot_backend/internal/notification/handler"
	"leadbot_backend/internal/notification/inapp"
	"leadbot_backend/internal/notification/sse"
	"leadbot_backend/platform/httpkit"
	"leadbot_backend/platform/logger"
	"leadbot_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const resourceTypeRequirement = "requirement"

// Module is the notification module implementing http.Module.
type Module struct {
	sse     *sse.Service
	inapp   *inapp.Service
	handler *notifhandler.HTTPHandler
	log     *logger.Logger
}

// NewModule wires the SSE hub and the alert feed and subscribes to the bus.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, bus events.Bus, log *logger.Logger) *Module {
	return newModule(inapp.NewRepository(pool), val, bus, log)
}

func newModule(store inapp.Store, val *validator.Validator, bus events.Bus, log *logger.Logger) *Module {
	sseSvc := sse.New(log)
	inappSvc := inapp.NewService(store, log)
	inappSvc.SetSSE(sseSvc)

	m := &Module{
		sse:     sseSvc,
		inapp:   inappSvc,
		handler: notifhandler.NewHTTPHandler(inappSvc, val),
		log:     log,
	}
	m.RegisterHandlers(bus)
	return m
}

// RegisterHandlers subscribes the module to the events it forwards.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.TenantStatusChanged{}.EventName(), events.HandlerFunc(m.handleTenantStatusChanged))
	bus.Subscribe(events.LeadCaptured{}.EventName(), events.HandlerFunc(m.handleLeadCaptured))
	bus.Subscribe(events.PartialLeadSaved{}.EventName(), events.HandlerFunc(m.handlePartialLeadSaved))
}

func (m *Module) handleTenantStatusChanged(ctx context.Context, event events.Event) error {
	e, ok := event.(events.TenantStatusChanged)
	if !ok {
		return nil
	}

	m.sse.PublishToTenant(e.TenantID, sse.Event{
		Type:    sse.EventSessionStatus,
		Message: e.Status,
		Data:    e,
	})

	switch e.Status {
	case "auth_failure":
		return m.inapp.Send(ctx, inapp.SendParams{
			TenantID: e.TenantID,
			Title:    "WhatsApp session signed out",
			Content:  withReason("Scan a new QR code to reconnect.", e.Reason),
			Category: "warning",
		})
	case "error":
		return m.inapp.Send(ctx, inapp.SendParams{
			TenantID: e.TenantID,
			Title:    "WhatsApp session failed",
			Content:  withReason("Restart the session to keep receiving leads.", e.Reason),
			Category: "error",
		})
	}
	return nil
}

func (m *Module) handleLeadCaptured(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadCaptured)
	if !ok {
		return nil
	}

	m.sse.PublishToTenant(e.TenantID, sse.Event{
		Type:    sse.EventLeadCaptured,
		Message: e.Category,
		Data:    e,
	})

	who := strings.TrimSpace(e.Name)
	if who == "" {
		who = e.Phone
	} else if e.Phone != "" {
		who = fmt.Sprintf("%s (%s)", who, e.Phone)
	}
	title := "New lead: " + e.Category
	if e.Returning {
		title = "Returning customer: " + e.Category
	}
	conversationID := e.ConversationID
	return m.inapp.Send(ctx, inapp.SendParams{
		TenantID:     e.TenantID,
		Title:        title,
		Content:      who,
		ResourceID:   &conversationID,
		ResourceType: resourceTypeRequirement,
		Category:     "success",
	})
}

func (m *Module) handlePartialLeadSaved(_ context.Context, event events.Event) error {
	e, ok := event.(events.PartialLeadSaved)
	if !ok {
		return nil
	}

	m.sse.PublishToTenant(e.TenantID, sse.Event{
		Type:    sse.EventPartialLeadSaved,
		Message: e.Category,
		Data:    e,
	})
	return nil
}

func withReason(text, reason string) string {
	if strings.TrimSpace(reason) == "" {
		return text
	}
	return text + " (" + reason + ")"
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// SSE returns the SSE hub.
func (m *Module) SSE() *sse.Service {
	return m.sse
}

// Close disconnects all SSE clients.
func (m *Module) Close() {
	m.sse.Close()
}

// RegisterRoutes mounts the event stream and the alert feed.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/whatsapp/events", m.sse.Handler(sseUserID, sseTenantID))
	m.handler.RegisterRoutes(ctx.Protected.Group("/notifications"))
}

func sseUserID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := httpkit.IdentityFrom(c)
	return id.UserID, ok
}

func sseTenantID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := httpkit.IdentityFrom(c)
	return id.TenantID, ok && id.HasTenant()
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
