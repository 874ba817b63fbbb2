// Package handler serves a tenant's persisted alert feed.
package handler

import (
	"context"
	"net/http"

	"leadbot_backend/internal/notification/inapp"
	"leadbot_backend/platform/httpkit"
	"leadbot_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const defaultPageSize = 20

// Feed is the part of inapp.Service the handler needs.
type Feed interface {
	List(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]inapp.Notification, int, error)
	CountUnread(ctx context.Context, tenantID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, tenantID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, tenantID uuid.UUID) error
}

type ListAlertsRequest struct {
	Page     int `form:"page" validate:"omitempty,min=1"`
	PageSize int `form:"pageSize" validate:"omitempty,min=1,max=50"`
}

type AlertListResponse struct {
	Items    []inapp.Notification `json:"items"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"pageSize"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

type HTTPHandler struct {
	feed Feed
	val  *validator.Validator
}

func NewHTTPHandler(feed Feed, val *validator.Validator) *HTTPHandler {
	return &HTTPHandler{feed: feed, val: val}
}

func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/unread", h.CountUnread)
	rg.PATCH("/read-all", h.MarkAllRead)
	rg.PATCH("/:id/read", h.MarkRead)
}

// List pages through the tenant's alerts, newest first.
// GET /api/v1/notifications?page=&pageSize=
func (h *HTTPHandler) List(c *gin.Context) {
	_, tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}

	var req ListAlertsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", validator.FieldErrors(err))
		return
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = defaultPageSize
	}

	items, total, err := h.feed.List(c.Request.Context(), tenantID, req.Page, req.PageSize)
	if httpkit.HandleError(c, err) {
		return
	}
	if items == nil {
		items = []inapp.Notification{}
	}

	httpkit.OK(c, AlertListResponse{Items: items, Total: total, Page: req.Page, PageSize: req.PageSize})
}

func (h *HTTPHandler) CountUnread(c *gin.Context) {
	_, tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}

	count, err := h.feed.CountUnread(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, UnreadCountResponse{Count: count})
}

// MarkRead reports 404 for alerts that belong to another tenant.
func (h *HTTPHandler) MarkRead(c *gin.Context) {
	_, tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	if err := h.feed.MarkRead(c.Request.Context(), tenantID, id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) MarkAllRead(c *gin.Context) {
	_, tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}

	if err := h.feed.MarkAllRead(c.Request.Context(), tenantID); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}
