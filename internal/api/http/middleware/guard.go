package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/dtroode/medisupply-security/internal/api/http/apierror"
	"github.com/dtroode/medisupply-security/internal/guard"
	"github.com/dtroode/medisupply-security/internal/model"
)

// Guard runs check against the claims set by Authenticate. It must be
// installed after Authenticate.
func Guard(check guard.Check, contextManager model.ContextManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := contextManager.GetClaimsFromContext(c.Request.Context())
		if !ok {
			apierror.Abort(c, model.ErrMissingToken)
			return
		}

		claims, err := check(c.Request.Context(), claims)
		if err != nil {
			apierror.Abort(c, err)
			return
		}

		c.Request = c.Request.WithContext(contextManager.SetClaimsToContext(c.Request.Context(), claims))
		c.Next()
	}
}
