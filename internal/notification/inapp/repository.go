package inapp

import (
	"context"
	"time"

	"leadbot_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreate      = "notification.inapp.repository.create"
	opList        = "notification.inapp.repository.list"
	opCountUnread = "notification.inapp.repository.count_unread"
	opMarkRead    = "notification.inapp.repository.mark_read"
	opMarkAllRead = "notification.inapp.repository.mark_all_read"

	errRepoNotConfigured = "in-app notification repository not configured"
	errTenantIDRequired  = "tenantId is required"
)

type Notification struct {
	ID           uuid.UUID  `json:"id"`
	TenantID     uuid.UUID  `json:"tenantId"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	ResourceID   *uuid.UUID `json:"resourceId,omitempty"`
	ResourceType *string    `json:"resourceType,omitempty"`
	Category     string     `json:"category"`
	IsRead       bool       `json:"isRead"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type CreateParams struct {
	TenantID     uuid.UUID
	Title        string
	Content      string
	ResourceID   *uuid.UUID
	ResourceType *string
	Category     string
}

const notificationColumns = `id, tenant_id, title, content, resource_id, resource_type, category, is_read, created_at`

const createNotificationQuery = `
	INSERT INTO notifications (tenant_id, title, content, resource_id, resource_type, category)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING ` + notificationColumns

const listNotificationsQuery = `
	SELECT ` + notificationColumns + `, COUNT(*) OVER() AS total
	FROM notifications
	WHERE tenant_id = $1
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3`

const countUnreadQuery = `
	SELECT COUNT(*) FROM notifications
	WHERE tenant_id = $1 AND is_read = FALSE`

const markReadQuery = `
	UPDATE notifications
	SET is_read = TRUE, read_at = now()
	WHERE id = $1 AND tenant_id = $2`

const markAllReadQuery = `
	UPDATE notifications
	SET is_read = TRUE, read_at = now()
	WHERE tenant_id = $1 AND is_read = FALSE`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, p CreateParams) (Notification, error) {
	if r == nil || r.pool == nil {
		return Notification{}, apperr.Internal(errRepoNotConfigured).WithOp(opCreate)
	}
	if p.TenantID == uuid.Nil {
		return Notification{}, apperr.Validation(errTenantIDRequired).WithOp(opCreate)
	}
	if p.Title == "" || p.Content == "" {
		return Notification{}, apperr.Validation("title and content are required").WithOp(opCreate)
	}

	category := p.Category
	if category == "" {
		category = "info"
	}

	var n Notification
	err := r.pool.QueryRow(ctx, createNotificationQuery,
		p.TenantID, p.Title, p.Content, p.ResourceID, p.ResourceType, category,
	).Scan(&n.ID, &n.TenantID, &n.Title, &n.Content, &n.ResourceID, &n.ResourceType, &n.Category, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return Notification{}, apperr.Wrap(apperr.KindInternal, "create in-app notification", err).WithOp(opCreate)
	}

	return n, nil
}

func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]Notification, int, error) {
	if r == nil || r.pool == nil {
		return nil, 0, apperr.Internal(errRepoNotConfigured).WithOp(opList)
	}
	if tenantID == uuid.Nil {
		return nil, 0, apperr.Validation(errTenantIDRequired).WithOp(opList)
	}

	rows, err := r.pool.Query(ctx, listNotificationsQuery, tenantID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "list notifications query", err).WithOp(opList)
	}
	defer rows.Close()

	items := make([]Notification, 0, limit)
	total := 0
	for rows.Next() {
		var n Notification
		if scanErr := rows.Scan(&n.ID, &n.TenantID, &n.Title, &n.Content, &n.ResourceID, &n.ResourceType, &n.Category, &n.IsRead, &n.CreatedAt, &total); scanErr != nil {
			return nil, 0, apperr.Wrap(apperr.KindInternal, "scan notifications", scanErr).WithOp(opList)
		}
		items = append(items, n)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "iterate notifications", rowsErr).WithOp(opList)
	}

	return items, total, nil
}

func (r *Repository) CountUnread(ctx context.Context, tenantID uuid.UUID) (int, error) {
	if r == nil || r.pool == nil {
		return 0, apperr.Internal(errRepoNotConfigured).WithOp(opCountUnread)
	}
	if tenantID == uuid.Nil {
		return 0, apperr.Validation(errTenantIDRequired).WithOp(opCountUnread)
	}

	var count int
	if err := r.pool.QueryRow(ctx, countUnreadQuery, tenantID).Scan(&count); err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "count unread notifications", err).WithOp(opCountUnread)
	}

	return count, nil
}

func (r *Repository) MarkRead(ctx context.Context, tenantID, notificationID uuid.UUID) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opMarkRead)
	}
	if tenantID == uuid.Nil || notificationID == uuid.Nil {
		return apperr.Validation("tenantId and notificationId are required").WithOp(opMarkRead)
	}

	tag, err := r.pool.Exec(ctx, markReadQuery, notificationID, tenantID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "mark notification read", err).WithOp(opMarkRead)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("notification not found").WithOp(opMarkRead)
	}

	return nil
}

func (r *Repository) MarkAllRead(ctx context.Context, tenantID uuid.UUID) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opMarkAllRead)
	}
	if tenantID == uuid.Nil {
		return apperr.Validation(errTenantIDRequired).WithOp(opMarkAllRead)
	}

	if _, err := r.pool.Exec(ctx, markAllReadQuery, tenantID); err != nil {
		return apperr.Wrap(apperr.KindInternal, "mark all notifications read", err).WithOp(opMarkAllRead)
	}

	return nil
}
