// Package logger is the slog wrapper every binary and module logs through.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Logger embeds *slog.Logger and adds scoping helpers for tenants and
// conversations plus a few fixed-shape event records.
type Logger struct {
	*slog.Logger
}

// New logs text at debug level in development and JSON at info level
// everywhere else.
func New(env string) *Logger {
	if strings.EqualFold(env, "development") {
		return &Logger{slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	}
	return &Logger{slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))}
}

// Discard drops every record.
func Discard() *Logger {
	return &Logger{slog.New(slog.DiscardHandler)}
}

func (l *Logger) WithTenant(tenantID string) *Logger {
	return &Logger{l.With(slog.String("tenant_id", tenantID))}
}

// WithConversation scopes to one (tenant, counterparty) pair. Only the last
// four digits of the counterparty are logged.
func (l *Logger) WithConversation(tenantID, counterparty string) *Logger {
	return &Logger{l.With(
		slog.String("tenant_id", tenantID),
		slog.String("counterparty", MaskCounterparty(counterparty)),
	)}
}

// MaskCounterparty keeps the last four characters of a phone number or JID
// user part.
func MaskCounterparty(id string) string {
	if at := strings.IndexByte(id, '@'); at >= 0 {
		id = id[:at]
	}
	if len(id) <= 4 {
		return id
	}
	return "***" + id[len(id)-4:]
}

func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

func (l *Logger) HTTPError(method, path string, status int, err error, clientIP string) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("client_ip", clientIP),
	)
}

// TransportEvent records a whatsapp session status change.
func (l *Logger) TransportEvent(tenantID, status, detail string) {
	l.Info("transport_event",
		slog.String("tenant_id", tenantID),
		slog.String("status", status),
		slog.String("detail", detail),
	)
}

func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
