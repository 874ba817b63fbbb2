// Package whatsapp connects tenants to WhatsApp through linked-device
// sessions and turns transport events into inbound messages and status updates.
package whatsapp

import (
	"context"
	"errors"
	"strings"
	"time"

	"leadbot_backend/platform/phone"

	"github.com/google/uuid"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
)

var (
	ErrNotConnected = errors.New("whatsapp session not connected")
	ErrInvalidJID   = errors.New("invalid whatsapp id")
)

// Status is a transport-level session status reported to the Sink.
type Status string

const (
	StatusQR           Status = "qr"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusAuthFailure  Status = "auth_failure"
	StatusError        Status = "error"
)

// InboundMessage is a text message received on a tenant's session.
type InboundMessage struct {
	TenantID       uuid.UUID
	CounterpartyID string
	Phone          string
	Text           string
	IsFromSelf     bool
	At             time.Time
}

// StatusUpdate reports a lifecycle change of a tenant's session. QR carries
// the pairing challenge for StatusQR, Account the bound number once connected.
type StatusUpdate struct {
	TenantID uuid.UUID
	Status   Status
	QR       string
	Account  string
	Reason   string
}

// Sink receives transport events. Calls for one tenant arrive in order.
type Sink interface {
	OnMessage(ctx context.Context, msg InboundMessage)
	OnStatus(ctx context.Context, update StatusUpdate)
}

// Transport is the per-tenant messaging session lifecycle plus outbound send.
type Transport interface {
	Connect(ctx context.Context, tenantID uuid.UUID) error
	Disconnect(tenantID uuid.UUID) error
	Send(ctx context.Context, tenantID uuid.UUID, counterpartyID, text string) error
}

// DeviceStore maps tenants to the linked device they paired.
type DeviceStore interface {
	LoadDevice(ctx context.Context, tenantID uuid.UUID) (string, error)
	SaveDevice(ctx context.Context, tenantID uuid.UUID, deviceJID string) error
	DeleteDevice(ctx context.Context, tenantID uuid.UUID) error
}

// IsGroupID reports whether id addresses a group, broadcast list, status
// feed or channel rather than a single person.
func IsGroupID(id string) bool {
	jid, err := types.ParseJID(strings.TrimSpace(id))
	if err != nil {
		return false
	}
	return isGroupServer(jid.Server)
}

func isGroupServer(server string) bool {
	switch server {
	case types.GroupServer, types.BroadcastServer, types.NewsletterServer:
		return true
	default:
		return false
	}
}

// CounterpartyPhone derives the E.164 number behind a person id. Ids that do
// not carry a phone number (hidden-user ids, groups) yield "".
func CounterpartyPhone(id string, n phone.Normalizer) string {
	jid, err := types.ParseJID(strings.TrimSpace(id))
	if err != nil || jid.Server != types.DefaultUserServer {
		return ""
	}
	return n.FromTransportUser(jid.User)
}

// messageText extracts the plain text body of a message, if any.
func messageText(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if text := msg.GetConversation(); text != "" {
		return text
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	if btn := msg.GetButtonsResponseMessage(); btn != nil {
		return btn.GetSelectedDisplayText()
	}
	if list := msg.GetListResponseMessage(); list != nil {
		return list.GetTitle()
	}
	return ""
}

func parseRecipient(id string) (types.JID, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return types.JID{}, ErrInvalidJID
	}
	if !strings.Contains(id, "@") {
		return types.NewJID(strings.TrimPrefix(id, "+"), types.DefaultUserServer), nil
	}
	jid, err := types.ParseJID(id)
	if err != nil {
		return types.JID{}, ErrInvalidJID
	}
	return jid, nil
}
