// Package apierror turns service errors into HTTP responses.
package apierror

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/medisupply-security/internal/model"
)

// CodeKey is the gin context key holding the error code of an aborted request.
const CodeKey = "error_code"

// Response is the body of every error reply.
type Response struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code"`
}

type mapping struct {
	err    error
	status int
	code   string
	detail string
}

var mappings = []mapping{
	{model.ErrAuthentication, http.StatusUnauthorized, "authentication_failed", "Incorrect username or password"},
	{model.ErrMissingToken, http.StatusUnauthorized, "missing_token", "Authorization token is missing"},
	{model.ErrMalformedToken, http.StatusUnauthorized, "malformed_token", "Could not validate credentials"},
	{model.ErrInvalidSignature, http.StatusUnauthorized, "invalid_signature", "Could not validate credentials"},
	{model.ErrExpiredToken, http.StatusUnauthorized, "token_expired", "Token has expired"},
	{model.ErrWrongTokenType, http.StatusUnauthorized, "wrong_token_type", "Wrong token type"},
	{model.ErrTokenRevoked, http.StatusUnauthorized, "token_revoked", "Token has been revoked"},
	{model.ErrTokenMismatch, http.StatusUnauthorized, "token_mismatch", "Refresh token does not match this session"},
	{model.ErrInactiveUser, http.StatusForbidden, "inactive_user", "Inactive user"},
	{model.ErrForbidden, http.StatusForbidden, "forbidden", "Insufficient permissions"},
	{model.ErrMFARequired, http.StatusForbidden, "mfa_required", "MFA verification required"},
	{model.ErrNotFound, http.StatusNotFound, "not_found", "Resource not found"},
	{model.ErrRateLimited, http.StatusTooManyRequests, "rate_limited", "Too many requests"},
	{model.ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable", "Service temporarily unavailable"},
}

// Map returns the status and body for err. Unknown errors become a generic
// 500 with no detail from err itself.
func Map(err error) (int, Response) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		return http.StatusUnprocessableEntity, Response{Detail: verr.Error(), ErrorCode: "validation_error"}
	}

	for _, m := range mappings {
		if errors.Is(err, m.err) {
			return m.status, Response{Detail: m.detail, ErrorCode: m.code}
		}
	}

	return http.StatusInternalServerError, Response{Detail: "Internal server error", ErrorCode: "internal_error"}
}

// Abort writes the error reply for err and stops the handler chain.
func Abort(c *gin.Context, err error) {
	status, body := Map(err)
	_ = c.Error(err)
	c.Set(CodeKey, body.ErrorCode)
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(status, body)
}
