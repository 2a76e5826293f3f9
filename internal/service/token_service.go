package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/medisupply-security/internal/logger"
	"github.com/dtroode/medisupply-security/internal/model"
	"github.com/dtroode/medisupply-security/internal/token"
)

// TokenTTL holds the lifetimes of minted tokens.
type TokenTTL struct {
	Access  time.Duration
	Refresh time.Duration
}

// TokenService provides high-level operations for issuing, refreshing,
// and revoking tokens. It composes the TokenManager, the RefreshTokenStore
// and the RevocationList.
type TokenService struct {
	manager model.TokenManager
	store   model.RefreshTokenStore
	revoked model.RevocationList
	users   model.UserStore
	ttl     TokenTTL
	now     func() time.Time
	logger  *logger.Logger
}

func NewTokenService(
	manager model.TokenManager,
	store model.RefreshTokenStore,
	revoked model.RevocationList,
	users model.UserStore,
	ttl TokenTTL,
	logger *logger.Logger,
) *TokenService {
	return &TokenService{
		manager: manager,
		store:   store,
		revoked: revoked,
		users:   users,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

// AccessTTL reports the lifetime of access tokens.
func (s *TokenService) AccessTTL() time.Duration {
	return s.ttl.Access
}

// Issue mints an access/refresh pair for user and records the refresh token.
func (s *TokenService) Issue(ctx context.Context, user model.User, mfaVerified bool) (model.TokenPair, error) {
	return s.issue(ctx, user, mfaVerified, nil)
}

func (s *TokenService) issue(ctx context.Context, user model.User, mfaVerified bool, rotatedFrom *string) (model.TokenPair, error) {
	access, err := s.manager.MintAccess(user, s.ttl.Access, mfaVerified)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("issue access: %w", err)
	}

	refresh, err := s.manager.MintRefresh(user, s.ttl.Refresh, mfaVerified)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("issue refresh: %w", err)
	}

	now := s.now()
	rt := model.RefreshToken{
		ID:             uuid.New(),
		JTI:            refresh.Claims.ID,
		Username:       user.Username,
		TokenHash:      hashRefresh(refresh.Value),
		IssuedAt:       refresh.Claims.IssuedAt,
		ExpiresAt:      refresh.Claims.ExpiresAt,
		RotatedFromJTI: rotatedFrom,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.Create(ctx, rt); err != nil {
		return model.TokenPair{}, fmt.Errorf("persist refresh: %w", err)
	}

	return model.TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// revoked, and the new pair carries the user's current roles.
func (s *TokenService) Refresh(ctx context.Context, presentedRefresh string) (model.TokenPair, error) {
	claims, err := s.manager.Verify(presentedRefresh)
	if err != nil {
		return model.TokenPair{}, err
	}
	if err := token.RequireKind(claims, model.TokenKindRefresh); err != nil {
		return model.TokenPair{}, err
	}

	rt, err := s.store.GetByJTI(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.TokenPair{}, model.ErrTokenRevoked
		}
		return model.TokenPair{}, fmt.Errorf("load refresh: %w", err)
	}

	if err := validateRecord(rt, hashRefresh(presentedRefresh), s.now()); err != nil {
		if errors.Is(err, model.ErrTokenRevoked) && rt.RevokedReason == model.RevokeReasonRotated {
			s.handleReuse(ctx, rt)
		}
		return model.TokenPair{}, err
	}

	user, err := s.users.GetByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.TokenPair{}, model.ErrInactiveUser
		}
		return model.TokenPair{}, fmt.Errorf("load user: %w", err)
	}
	if !user.Active {
		return model.TokenPair{}, model.ErrInactiveUser
	}

	// Revoke old token (rotation) and issue new pair. Losing the revoke race
	// means another request already rotated this token.
	if err := s.store.RevokeByJTI(ctx, rt.JTI, model.RevokeReasonRotated); err != nil {
		if errors.Is(err, model.ErrTokenRevoked) {
			return model.TokenPair{}, model.ErrTokenRevoked
		}
		return model.TokenPair{}, fmt.Errorf("revoke old refresh: %w", err)
	}

	rotatedFrom := rt.JTI
	pair, err := s.issue(ctx, user, claims.MFAVerified, &rotatedFrom)
	if err != nil {
		return model.TokenPair{}, err
	}

	s.logger.Debug("Token service: refresh token rotated",
		"username", user.Username,
		"old_jti", rt.JTI,
		"new_jti", pair.Refresh.Claims.ID)

	return pair, nil
}

// handleReuse revokes every session of a user whose already-rotated refresh
// token is presented again. Tokens ended by logout are only rejected.
func (s *TokenService) handleReuse(ctx context.Context, rt model.RefreshToken) {
	s.logger.Warn("Token service: revoked refresh token presented again",
		"username", rt.Username,
		"jti", rt.JTI)

	if err := s.store.RevokeAllByUser(ctx, rt.Username, model.RevokeReasonReuse); err != nil {
		s.logger.Error("Token service: failed to revoke sessions after reuse",
			"username", rt.Username,
			"error", err.Error())
	}
}

// Authenticate verifies an access token and checks the revocation list.
func (s *TokenService) Authenticate(ctx context.Context, accessToken string) (model.Claims, error) {
	claims, err := s.manager.Verify(accessToken)
	if err != nil {
		return model.Claims{}, err
	}
	if err := token.RequireKind(claims, model.TokenKindAccess); err != nil {
		return model.Claims{}, err
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return model.Claims{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return model.Claims{}, model.ErrTokenRevoked
	}

	return claims, nil
}

// Revoke ends the session behind access and, when given, the refresh token.
// The refresh token must belong to the same subject.
func (s *TokenService) Revoke(ctx context.Context, access model.Claims, presentedRefresh string) error {
	if presentedRefresh != "" {
		claims, err := s.manager.Verify(presentedRefresh)
		if err != nil {
			return err
		}
		if err := token.RequireKind(claims, model.TokenKindRefresh); err != nil {
			return err
		}
		if claims.Subject != access.Subject {
			return model.ErrTokenMismatch
		}
		if err := s.store.RevokeByJTI(ctx, claims.ID, model.RevokeReasonLogout); err != nil && !errors.Is(err, model.ErrTokenRevoked) {
			return fmt.Errorf("revoke refresh: %w", err)
		}
	}

	if err := s.revoked.Revoke(ctx, access.ID, access.ExpiresAt); err != nil {
		return fmt.Errorf("revoke access: %w", err)
	}

	return nil
}

func hashRefresh(token string) []byte {
	h := sha256.Sum256([]byte(token))
	return h[:]
}

func validateRecord(rt model.RefreshToken, presentedHash []byte, now time.Time) error {
	if rt.RevokedAt != nil {
		return model.ErrTokenRevoked
	}
	if !now.Before(rt.ExpiresAt) {
		return model.ErrExpiredToken
	}
	if !equalBytes(rt.TokenHash, presentedHash) {
		return model.ErrTokenMismatch
	}
	return nil
}

func equalBytes(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
