package api

import (
	"errors"
	"net/http"

	"storyreel/server/internal/auth"
	"storyreel/server/internal/store"

	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

func writeData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"data":     data,
		"trace_id": traceIDFromContext(c),
	})
}

func writeError(c *gin.Context, status int, code, message string, retryable bool, details map[string]any) {
	c.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			Retryable: retryable,
			Details:   details,
		},
		"trace_id": traceIDFromContext(c),
	})
}

func writeUnauthorized(c *gin.Context) {
	writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", false, nil)
}

// writeServiceError maps the service error kinds onto the HTTP surface.
// Unavailable is the only retryable kind; business-rule failures are final.
func writeServiceError(c *gin.Context, err error, fallbackMessage string) {
	switch {
	case errors.Is(err, store.ErrInvalidInput):
		writeError(c, http.StatusBadRequest, "INVALID_INPUT", "Invalid input", false, nil)
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, store.ErrUnauthenticated):
		writeUnauthorized(c)
	case errors.Is(err, store.ErrForbidden):
		writeError(c, http.StatusForbidden, "FORBIDDEN", "No access to resource", false, nil)
	case errors.Is(err, store.ErrNotFound):
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Resource not found", false, nil)
	case errors.Is(err, store.ErrInsufficientLives):
		writeError(c, http.StatusPaymentRequired, "INSUFFICIENT_LIVES", "No lives remaining", false, nil)
	case errors.Is(err, store.ErrConflict):
		writeError(c, http.StatusConflict, "CONFLICT", "Conflicting state", false, nil)
	case errors.Is(err, store.ErrUnavailable):
		writeError(c, http.StatusServiceUnavailable, "UNAVAILABLE", "Storage temporarily unavailable", true, nil)
	default:
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", fallbackMessage, false, nil)
	}
}
