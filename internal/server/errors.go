package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/stash/internal/apperr"
)

// statusFor maps an error kind onto an HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInsufficientStock:
		return http.StatusConflict
	case apperr.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error body and aborts the request.
func (h *handlers) fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	body := gin.H{"error": err.Error(), "kind": kind}

	var stockErr *apperr.InsufficientStockError
	if errors.As(err, &stockErr) {
		body["requested"] = stockErr.Requested
		body["available"] = stockErr.Available
	}
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, body)
}

// badRequest reports a malformed request body or parameter.
func (h *handlers) badRequest(c *gin.Context, err error) {
	h.fail(c, apperr.Validationf("%v", err))
}
