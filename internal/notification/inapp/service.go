package inapp

import (
	"context"

	"leadbot_backend/internal/notification/sse"
	"leadbot_backend/platform/apperr"
	"leadbot_backend/platform/logger"
	"leadbot_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Store is the persistence used by Service.
type Store interface {
	Create(ctx context.Context, p CreateParams) (Notification, error)
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]Notification, int, error)
	CountUnread(ctx context.Context, tenantID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, tenantID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, tenantID uuid.UUID) error
}

type Service struct {
	repo Store
	sse  *sse.Service
	log  *logger.Logger
}

func NewService(repo Store, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

// SetSSE injects the SSE service used to push new notifications.
func (s *Service) SetSSE(sseSvc *sse.Service) {
	s.sse = sseSvc
}

type SendParams struct {
	TenantID     uuid.UUID
	Title        string
	Content      string
	ResourceID   *uuid.UUID
	ResourceType string
	Category     string // "info", "success", "warning", "error"
}

// Send persists the notification and pushes it to the tenant's open dashboards.
func (s *Service) Send(ctx context.Context, p SendParams) error {
	if s == nil || s.repo == nil {
		return apperr.Internal("in-app notification service not configured")
	}

	if p.Category == "" {
		p.Category = "info"
	}

	var resourceType *string
	if p.ResourceType != "" {
		resourceType = &p.ResourceType
	}

	notif, err := s.repo.Create(ctx, CreateParams{
		TenantID:     p.TenantID,
		Title:        sanitize.Text(p.Title),
		Content:      sanitize.Text(p.Content),
		ResourceID:   p.ResourceID,
		ResourceType: resourceType,
		Category:     p.Category,
	})
	if err != nil {
		if s.log != nil {
			s.log.Error("failed to persist in-app notification", "error", err, "tenantId", p.TenantID)
		}
		return err
	}

	if s.sse != nil {
		s.sse.PublishToTenant(p.TenantID, sse.Event{
			Type:    sse.EventNotification,
			Message: notif.Title,
			Data:    notif,
		})
	}

	return nil
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	offset := (page - 1) * pageSize
	return s.repo.List(ctx, tenantID, pageSize, offset)
}

func (s *Service) CountUnread(ctx context.Context, tenantID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, tenantID)
}

func (s *Service) MarkRead(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, tenantID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, tenantID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, tenantID)
}
