package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/medisupply-security/internal/api/http/apierror"
	"github.com/dtroode/medisupply-security/internal/logger"
	"github.com/dtroode/medisupply-security/internal/model"
)

// TokenService resolves claims from bearer access tokens.
type TokenService interface {
	Authenticate(ctx context.Context, accessToken string) (model.Claims, error)
}

// Authenticate validates bearer tokens and injects claims into the request context.
type Authenticate struct {
	tokenService   TokenService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(tokenService TokenService, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{tokenService: tokenService, contextManager: contextManager, logger: logger}
}

// HandleHTTP parses the Authorization header and rejects the request unless
// it carries a valid, unrevoked access token.
func (m *Authenticate) HandleHTTP(c *gin.Context) {
	tokenString, err := bearerToken(c.GetHeader("Authorization"))
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	claims, err := m.tokenService.Authenticate(c.Request.Context(), tokenString)
	if err != nil {
		if !model.IsInvalidToken(err) {
			m.logger.Error("Authenticate middleware: token check failed",
				"request_id", c.GetString(requestIDKey),
				"error", err.Error())
		}
		apierror.Abort(c, err)
		return
	}

	c.Request = c.Request.WithContext(m.contextManager.SetClaimsToContext(c.Request.Context(), claims))
	c.Next()
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", model.ErrMissingToken
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", model.ErrMalformedToken
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", model.ErrMissingToken
	}
	return token, nil
}
