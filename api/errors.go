package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xraph/settlement"
)

// statusFor maps an engine error to an HTTP status.
func statusFor(err error) int {
	switch {
	case settlement.IsFatal(err):
		return http.StatusInternalServerError
	case settlement.IsNotFound(err):
		return http.StatusNotFound
	case settlement.IsUnauthorized(err):
		return http.StatusForbidden
	case errors.Is(err, settlement.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case settlement.IsValidation(err):
		return http.StatusBadRequest
	case settlement.IsPrecondition(err):
		return http.StatusConflict
	case settlement.IsRetryable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a JSON error body. Internal errors are not
// echoed to the client.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("api: request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}

	body := gin.H{"error": err.Error()}
	var ve settlement.ValidationError
	if errors.As(err, &ve) {
		body["field"] = ve.Field
	}
	c.JSON(status, body)
}
