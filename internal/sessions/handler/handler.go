package handler

import (
	"context"
	"encoding/base64"
	"time"

	"leadbot_backend/internal/sessions/service"
	"leadbot_backend/internal/sessions/transport"
	"leadbot_backend/platform/httpkit"
	"leadbot_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

const qrImageSize = 256

// SessionService is the control plane the handler drives.
type SessionService interface {
	Start(ctx context.Context, tenantID uuid.UUID) (service.State, error)
	Stop(ctx context.Context, tenantID uuid.UUID) (service.State, error)
	State(tenantID uuid.UUID) service.State
}

// Handler serves the WhatsApp session endpoints of the authenticated tenant.
type Handler struct {
	svc SessionService
	log *logger.Logger
}

func New(svc SessionService, log *logger.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Start opens the tenant's session and returns its status and any QR challenge.
// POST /api/v1/whatsapp/session/start
func (h *Handler) Start(c *gin.Context) {
	_, tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	st, err := h.svc.Start(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, h.toResponse(st))
}

// Stop closes the tenant's session. Stopping an idle session is not an error.
// POST /api/v1/whatsapp/session/stop
func (h *Handler) Stop(c *gin.Context) {
	_, tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	st, err := h.svc.Stop(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, h.toResponse(st))
}

// Get reports the tenant's session state.
// GET /api/v1/whatsapp/session
func (h *Handler) Get(c *gin.Context) {
	_, tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	httpkit.OK(c, h.toResponse(h.svc.State(tenantID)))
}

func (h *Handler) toResponse(st service.State) transport.SessionResponse {
	resp := transport.SessionResponse{
		TenantID:      st.TenantID,
		Status:        string(st.Status),
		QRChallenge:   st.QRChallenge,
		BoundAccount:  st.BoundAccount,
		Reason:        st.Reason,
		Conversations: st.Conversations,
	}
	if !st.UpdatedAt.IsZero() {
		resp.UpdatedAt = st.UpdatedAt.UTC().Format(time.RFC3339)
	}
	if st.QRChallenge != "" {
		img, err := QRImageDataURL(st.QRChallenge)
		if err != nil {
			h.log.Warn("render qr image failed", "tenantId", st.TenantID, "error", err)
		} else {
			resp.QRImage = img
		}
	}
	return resp
}

// QRImageDataURL renders a pairing challenge as a PNG data URL.
func QRImageDataURL(challenge string) (string, error) {
	png, err := qrcode.Encode(challenge, qrcode.Medium, qrImageSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
