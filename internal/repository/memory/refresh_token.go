package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/medisupply-security/internal/model"
)

var _ model.RefreshTokenStore = (*RefreshTokenRepository)(nil)

type RefreshTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]model.RefreshToken
	now    func() time.Time
}

func NewRefreshTokenRepository() *RefreshTokenRepository {
	return &RefreshTokenRepository{
		tokens: make(map[string]model.RefreshToken),
		now:    time.Now,
	}
}

func (r *RefreshTokenRepository) Create(_ context.Context, token model.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tokens[token.JTI]; ok {
		return model.ErrAlreadyExists
	}
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	now := r.now()
	token.CreatedAt, token.UpdatedAt = now, now
	token.TokenHash = slices.Clone(token.TokenHash)
	r.tokens[token.JTI] = token
	return nil
}

func (r *RefreshTokenRepository) GetByJTI(_ context.Context, jti string) (model.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[jti]
	if !ok {
		return model.RefreshToken{}, model.ErrNotFound
	}
	token.TokenHash = slices.Clone(token.TokenHash)
	return token, nil
}

func (r *RefreshTokenRepository) RevokeByJTI(_ context.Context, jti string, reason model.RevokeReason) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[jti]
	if !ok || token.RevokedAt != nil {
		return model.ErrTokenRevoked
	}
	r.revoke(&token, reason)
	r.tokens[jti] = token
	return nil
}

func (r *RefreshTokenRepository) RevokeAllByUser(_ context.Context, username string, reason model.RevokeReason) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for jti, token := range r.tokens {
		if token.Username != username || token.RevokedAt != nil {
			continue
		}
		r.revoke(&token, reason)
		r.tokens[jti] = token
	}
	return nil
}

func (r *RefreshTokenRepository) revoke(token *model.RefreshToken, reason model.RevokeReason) {
	now := r.now()
	token.RevokedAt = &now
	token.RevokedReason = reason
	token.UpdatedAt = now
}
