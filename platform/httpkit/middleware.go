// Package httpkit holds the gin middleware, identity helpers and response
// writers shared by every module's handlers.
package httpkit

import (
	"strings"
	"time"

	"leadbot_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// Gin context keys populated by AuthRequired.
const (
	ContextUserIDKey   = "userID"
	ContextRolesKey    = "roles"
	ContextTenantIDKey = "tenantID"
)

// RequestLogger logs one line per request. Probe endpoints under /api/health
// and /api/ready are only logged when they fail; errors attached with
// HandleError are logged with their full chain on 5xx responses.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		if status < 400 && isProbe(path) {
			return
		}

		ip := c.ClientIP()
		if status >= 500 && len(c.Errors) > 0 {
			log.HTTPError(c.Request.Method, path, status, c.Errors.Last().Err, ip)
			return
		}
		log.HTTPRequest(c.Request.Method, path, status, float64(time.Since(start).Milliseconds()), ip)
	}
}

func isProbe(path string) bool {
	return strings.HasPrefix(path, "/api/health") || strings.HasPrefix(path, "/api/ready")
}

// SecurityHeaders sets the response headers every API reply carries. The API
// serves JSON and SSE only, so framing and content sniffing are denied.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		if c.Request.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
