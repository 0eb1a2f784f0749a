package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"disclone/internal/observability"
)

const (
	requestIDHeader = "X-Request-ID"
	deviceIDHeader  = "X-Device-Id"
)

// RequestID tags each request with the caller's X-Request-ID or a fresh uuid and
// carries it on the request context for audit headers.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)
		c.Request = c.Request.WithContext(observability.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

// DeviceID is the client-supplied device identifier, or "".
func DeviceID(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(deviceIDHeader))
}
