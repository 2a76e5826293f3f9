package middleware

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/medisupply-security/internal/api/http/apierror"
	"github.com/dtroode/medisupply-security/internal/logger"
)

var errPanic = errors.New("handler panicked")

// Recovery turns panics into a generic 500 reply and logs them.
func Recovery(logger *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger.Error("HTTP handler panicked",
			"request_id", c.GetString(requestIDKey),
			"path", c.Request.URL.Path,
			"panic", fmt.Sprint(recovered))
		apierror.Abort(c, errPanic)
	})
}
