package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/medisupply-security/internal/logger"
)

// Logging logs HTTP requests and results.
type Logging struct {
	logger *logger.Logger
}

// NewLogging creates a new Logging middleware.
func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

// HandleHTTP logs method, route, duration and status for each request.
// Query strings are left out since they may carry personal data.
func (l *Logging) HandleHTTP(c *gin.Context) {
	start := time.Now()

	c.Next()

	status := c.Writer.Status()
	args := []any{
		"request_id", c.GetString(requestIDKey),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", status,
		"duration_ms", time.Since(start).Milliseconds(),
		"client_ip", c.ClientIP(),
	}
	if code := c.GetString(errorCodeKey); code != "" {
		args = append(args, "error_code", code)
	}

	switch {
	case status >= 500:
		if err := c.Errors.Last(); err != nil {
			args = append(args, "error", err.Error())
		}
		l.logger.Error("HTTP request failed", args...)
	case status >= 400:
		l.logger.Warn("HTTP request rejected", args...)
	default:
		l.logger.Info("HTTP request completed", args...)
	}
}
