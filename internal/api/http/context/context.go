package context

import (
	"context"
	"slices"

	"github.com/dtroode/medisupply-security/internal/model"
)

type contextKey int

const (
	claimsKey contextKey = iota
	requestIDKey
)

var _ model.ContextManager = (*Manager)(nil)

// Manager stores verified claims and the request id in a request context.
type Manager struct{}

// NewManager creates a new context manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetClaimsToContext returns a context carrying a copy of claims.
func (m *Manager) SetClaimsToContext(ctx context.Context, claims model.Claims) context.Context {
	claims.Roles = slices.Clone(claims.Roles)
	return context.WithValue(ctx, claimsKey, claims)
}

// GetClaimsFromContext returns the claims set by SetClaimsToContext.
func (m *Manager) GetClaimsFromContext(ctx context.Context) (model.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(model.Claims)
	return claims, ok
}

// SetRequestIDToContext returns a context carrying requestID.
func (m *Manager) SetRequestIDToContext(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestIDFromContext returns the request id, or "" when none was set.
func (m *Manager) GetRequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDKey).(string)
	return requestID
}
