package model

import (
	"slices"
	"time"
)

// TokenKind distinguishes access tokens from refresh tokens.
type TokenKind string

const (
	// TokenKindAccess authorizes API calls.
	TokenKindAccess TokenKind = "access"
	// TokenKindRefresh is only accepted by the refresh endpoint.
	TokenKindRefresh TokenKind = "refresh"
)

// Claims is the verified payload of a token.
type Claims struct {
	ID          string
	Subject     string
	Roles       []string
	Kind        TokenKind
	MFAVerified bool
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// HasRole reports whether role was granted when the token was minted.
func (c Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// Token is a minted token together with the claims it carries.
type Token struct {
	Value  string
	Claims Claims
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	Access  Token
	Refresh Token
}

// TokenIssuer mints signed tokens.
type TokenIssuer interface {
	MintAccess(user User, ttl time.Duration, mfaVerified bool) (Token, error)
	MintRefresh(user User, ttl time.Duration, mfaVerified bool) (Token, error)
}

// TokenVerifier validates presented tokens.
type TokenVerifier interface {
	Verify(tokenString string) (Claims, error)
}

// TokenManager both mints and verifies tokens with the same secret.
type TokenManager interface {
	TokenIssuer
	TokenVerifier
}
