package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the request id in both directions.
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	maxRequestIDLen = 128
)

// RequestIDStore puts the request id into the request context.
type RequestIDStore interface {
	SetRequestIDToContext(ctx context.Context, requestID string) context.Context
}

// RequestID accepts the caller's X-Request-ID or generates one, and echoes it back.
func RequestID(store RequestIDStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}

		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(store.SetRequestIDToContext(c.Request.Context(), id))

		c.Next()
	}
}
