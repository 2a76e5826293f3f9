package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RefreshTokenStore tracks issued refresh tokens so they can be rotated and revoked.
type RefreshTokenStore interface {
	Create(ctx context.Context, token RefreshToken) error
	GetByJTI(ctx context.Context, jti string) (RefreshToken, error)
	// RevokeByJTI returns ErrTokenRevoked when no live token had that jti.
	RevokeByJTI(ctx context.Context, jti string, reason RevokeReason) error
	RevokeAllByUser(ctx context.Context, username string, reason RevokeReason) error
}

// RevokeReason records why a refresh token stopped being usable.
type RevokeReason string

const (
	// RevokeReasonRotated marks a token exchanged for a new pair. Presenting
	// it again is treated as theft.
	RevokeReasonRotated RevokeReason = "rotated"
	RevokeReasonLogout  RevokeReason = "logout"
	RevokeReasonReuse   RevokeReason = "reuse"
)

// RefreshToken is the server-side state of an issued refresh token.
type RefreshToken struct {
	ID             uuid.UUID
	JTI            string
	Username       string
	TokenHash      []byte
	IssuedAt       time.Time
	ExpiresAt      time.Time
	RevokedAt      *time.Time
	RevokedReason  RevokeReason
	RotatedFromJTI *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RevocationList holds token ids that must be rejected before they expire.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
