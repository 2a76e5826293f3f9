package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dtroode/medisupply-security/internal/logger"
	"github.com/dtroode/medisupply-security/internal/model"
	"github.com/dtroode/medisupply-security/internal/password"
)

// PasswordHasher produces and checks password verifiers.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(encoded, password string) error
}

// Credentials looks users up and checks their passwords.
type Credentials struct {
	users  model.UserStore
	hasher PasswordHasher
	logger *logger.Logger
	// dummyHash is verified for unknown users so both failure paths cost the same.
	dummyHash string
}

func NewCredentials(users model.UserStore, hasher PasswordHasher, logger *logger.Logger) (*Credentials, error) {
	dummy, err := hasher.Hash("medisupply-dummy-password")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}

	return &Credentials{
		users:     users,
		hasher:    hasher,
		logger:    logger,
		dummyHash: dummy,
	}, nil
}

// Find returns the user or model.ErrNotFound.
func (c *Credentials) Find(ctx context.Context, username string) (model.User, error) {
	user, err := c.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by username: %w", err)
	}
	return user, nil
}

// VerifyPassword returns the user when candidate matches. Unknown users and
// wrong passwords both yield model.ErrAuthentication.
func (c *Credentials) VerifyPassword(ctx context.Context, username, candidate string) (model.User, error) {
	user, err := c.Find(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			_ = c.hasher.Verify(c.dummyHash, candidate)
			return model.User{}, model.ErrAuthentication
		}
		return model.User{}, err
	}

	if err := c.hasher.Verify(user.PasswordHash, candidate); err != nil {
		if errors.Is(err, password.ErrInvalidHash) {
			c.logger.Error("Credentials service: stored password hash is unusable",
				"username", username,
				"error", err.Error())
		}
		return model.User{}, model.ErrAuthentication
	}

	return user, nil
}
