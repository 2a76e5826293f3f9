package context

import (
	stdctx "context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/medisupply-security/internal/model"
)

func TestManager_SetAndGetClaims(t *testing.T) {
	m := NewManager()
	claims := model.Claims{
		ID:          "jti-1",
		Subject:     "admin",
		Roles:       []string{"admin", "user"},
		Kind:        model.TokenKindAccess,
		MFAVerified: true,
		IssuedAt:    time.Unix(1700000000, 0),
		ExpiresAt:   time.Unix(1700001800, 0),
	}

	ctx := m.SetClaimsToContext(stdctx.Background(), claims)

	got, ok := m.GetClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, claims, got)
}

func TestManager_SetClaims_CopiesRoles(t *testing.T) {
	m := NewManager()
	roles := []string{"user"}

	ctx := m.SetClaimsToContext(stdctx.Background(), model.Claims{Subject: "user1", Roles: roles})
	roles[0] = "admin"

	got, ok := m.GetClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, []string{"user"}, got.Roles)
}

func TestManager_GetClaims_NotFound(t *testing.T) {
	m := NewManager()
	_, ok := m.GetClaimsFromContext(stdctx.Background())
	assert.False(t, ok)
}

func TestManager_RequestID(t *testing.T) {
	m := NewManager()
	assert.Empty(t, m.GetRequestIDFromContext(stdctx.Background()))

	ctx := m.SetRequestIDToContext(stdctx.Background(), "req-42")
	assert.Equal(t, "req-42", m.GetRequestIDFromContext(ctx))
}

func TestManager_KeysDoNotCollide(t *testing.T) {
	m := NewManager()
	ctx := m.SetRequestIDToContext(stdctx.Background(), "req-1")
	ctx = m.SetClaimsToContext(ctx, model.Claims{Subject: "user2"})

	claims, ok := m.GetClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "user2", claims.Subject)
	assert.Equal(t, "req-1", m.GetRequestIDFromContext(ctx))
}
