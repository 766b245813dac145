package api

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Error codes used in JSON error bodies.
const (
	CodeBadRequest  = "bad_request"
	CodeNotFound    = "not_found"
	CodeInternal    = "internal_error"
	CodeUnavailable = "unavailable"
)

// Error writes the standard error body and aborts the request.
func Error(ctx *gin.Context, status int, code, message string) {
	ctx.AbortWithStatusJSON(status, gin.H{
		"error":     code,
		"message":   message,
		"timestamp": time.Now().UTC(),
	})
}

// RequestID returns the id set by the request id middleware.
func RequestID(ctx *gin.Context) string {
	if idVal, exists := ctx.Get("request_id"); exists {
		if rid, ok := idVal.(string); ok {
			return rid
		}
	}
	return ""
}
