package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dtroode/medisupply-security/internal/fieldcipher"
	"github.com/dtroode/medisupply-security/internal/model"
	"github.com/dtroode/medisupply-security/internal/password"
	"github.com/dtroode/medisupply-security/internal/repository/memory"
	"github.com/dtroode/medisupply-security/internal/testutil"
	"github.com/dtroode/medisupply-security/internal/token"
)

var fastKDF = password.Params{Time: 1, MemKiB: 1024, Par: 1}

// authFixture wires the real auth stack over in-memory stores.
type authFixture struct {
	users   *memory.UserRepository
	refresh *memory.RefreshTokenRepository
	revoked *memory.RevocationList
	jwt     *token.JWT
	tokens  *TokenService
	auth    *Auth
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	log := testutil.MakeNoopLogger()
	hasher := password.NewHasher(fastKDF)

	f := &authFixture{
		users:   memory.NewUserRepository(),
		refresh: memory.NewRefreshTokenRepository(),
		revoked: memory.NewRevocationList(),
	}

	var err error
	f.jwt, err = token.NewJWT(bytes.Repeat([]byte{0x42}, 64))
	require.NoError(t, err)

	creds, err := NewCredentials(f.users, hasher, log)
	require.NoError(t, err)

	f.tokens = NewTokenService(f.jwt, f.refresh, f.revoked, f.users, testTTL, log)
	f.auth = NewAuth(creds, f.tokens, true, log)

	for _, u := range []struct {
		name, pass string
		roles      []string
	}{
		{"admin", "admin123", []string{model.RoleAdmin, model.RoleUser}},
		{"user1", "user123", []string{model.RoleUser}},
	} {
		hash, err := hasher.Hash(u.pass)
		require.NoError(t, err)
		_, err = f.users.Create(context.Background(), model.User{
			Username:     u.name,
			Email:        u.name + "@medisupply.local",
			Roles:        u.roles,
			Active:       true,
			PasswordHash: hash,
		})
		require.NoError(t, err)
	}

	return f
}

func newTestCipher(t *testing.T) *fieldcipher.Cipher {
	t.Helper()
	c, err := fieldcipher.New(bytes.Repeat([]byte{0x07}, fieldcipher.KeySize))
	require.NoError(t, err)
	return c
}
