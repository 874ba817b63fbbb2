package httpkit

import (
	"errors"
	"net/http"

	"leadbot_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func Error(c *gin.Context, status int, message string, details any) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, Details: details})
}

// HandleError writes err as a JSON error and reports whether it did. The
// error is attached to the gin context so RequestLogger can log the cause
// that the client never sees.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	_ = c.Error(err)

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		Error(c, http.StatusInternalServerError, "internal error", nil)
		return true
	}
	Error(c, appErr.HTTPStatus(), appErr.PublicMessage(), appErr.Details)
	return true
}
