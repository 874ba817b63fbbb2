package httpkit

import (
	"errors"
	"net/http"
	"strings"

	"leadbot_backend/platform/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var errWrongTokenType = errors.New("not an access token")

// accessClaims is the payload of operator access tokens. tenant_id is absent
// for operators not yet bound to a tenant.
type accessClaims struct {
	jwt.RegisteredClaims
	Type     string   `json:"type"`
	TenantID string   `json:"tenant_id,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// AuthRequired validates an HMAC-signed access token from the Authorization
// header. GET requests may pass it as ?token= instead, since EventSource
// cannot set headers.
func AuthRequired(cfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" && c.Request.Method == http.MethodGet {
			raw = c.Query("token")
		}
		if raw == "" {
			Error(c, http.StatusUnauthorized, "missing token", nil)
			return
		}

		claims, err := parseAccessToken(raw, cfg.GetJWTAccessSecret())
		if err != nil {
			Error(c, http.StatusUnauthorized, "invalid token", nil)
			return
		}
		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			Error(c, http.StatusUnauthorized, "invalid token", nil)
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextRolesKey, claims.Roles)
		if tid := strings.TrimSpace(claims.TenantID); tid != "" {
			tenantID, err := uuid.Parse(tid)
			if err != nil {
				Error(c, http.StatusUnauthorized, "invalid token", nil)
				return
			}
			c.Set(ContextTenantIDKey, tenantID)
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func parseAccessToken(raw, secret string) (*accessClaims, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.Type != "access" {
		return nil, errWrongTokenType
	}
	return claims, nil
}
