package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is the authenticated operator behind a request.
type Identity struct {
	UserID   uuid.UUID
	// TenantID is uuid.Nil when the token is not bound to a tenant.
	TenantID uuid.UUID
	Roles    []string
}

func (id Identity) HasTenant() bool { return id.TenantID != uuid.Nil }

// IdentityFrom reads what AuthRequired stored on the context. It reports false for
// unauthenticated requests.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	var id Identity
	v, exists := c.Get(ContextUserIDKey)
	if !exists {
		return Identity{}, false
	}
	userID, ok := v.(uuid.UUID)
	if !ok {
		return Identity{}, false
	}
	id.UserID = userID
	if v, exists := c.Get(ContextTenantIDKey); exists {
		id.TenantID, _ = v.(uuid.UUID)
	}
	if v, exists := c.Get(ContextRolesKey); exists {
		id.Roles, _ = v.([]string)
	}
	return id, true
}

// MustGetTenant aborts with 401 when unauthenticated and 403 when the token
// carries no tenant; every tenant-scoped handler starts with it.
func MustGetTenant(c *gin.Context) (Identity, uuid.UUID, bool) {
	id, ok := IdentityFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "unauthorized", nil)
		return Identity{}, uuid.Nil, false
	}
	if !id.HasTenant() {
		Error(c, http.StatusForbidden, "no tenant bound to token", nil)
		return Identity{}, uuid.Nil, false
	}
	return id, id.TenantID, true
}
