package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dtroode/medisupply-security/internal/logger"
	"github.com/dtroode/medisupply-security/internal/model"
)

// Auth implements the login, refresh, logout and profile flows.
type Auth struct {
	credentials  *Credentials
	tokenService *TokenService
	// assumeMFA marks password logins as MFA-verified. There is no second
	// factor yet.
	assumeMFA bool
	logger    *logger.Logger
}

func NewAuth(credentials *Credentials, tokenService *TokenService, assumeMFA bool, logger *logger.Logger) *Auth {
	return &Auth{
		credentials:  credentials,
		tokenService: tokenService,
		assumeMFA:    assumeMFA,
		logger:       logger,
	}
}

// Login verifies the password and issues a token pair.
func (a *Auth) Login(ctx context.Context, username, password string) (model.TokenPair, error) {
	a.logger.Debug("Auth service: starting user login",
		"username", username)

	user, err := a.credentials.VerifyPassword(ctx, username, password)
	if err != nil {
		if errors.Is(err, model.ErrAuthentication) {
			a.logger.Info("Auth service: login rejected",
				"username", username)
		}
		return model.TokenPair{}, err
	}

	if !user.Active {
		a.logger.Info("Auth service: login by inactive user",
			"username", username)
		return model.TokenPair{}, model.ErrInactiveUser
	}

	pair, err := a.tokenService.Issue(ctx, user, a.assumeMFA)
	if err != nil {
		a.logger.Error("Auth service: failed to issue tokens",
			"username", username,
			"error", err.Error())
		return model.TokenPair{}, fmt.Errorf("failed to issue token: %w", err)
	}

	a.logger.Info("Auth service: user logged in",
		"username", username,
		"jti", pair.Access.Claims.ID)

	return pair, nil
}

// Refresh rotates a refresh token.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	pair, err := a.tokenService.Refresh(ctx, refreshToken)
	if err != nil {
		a.logger.Info("Auth service: refresh rejected",
			"error", err.Error())
		return model.TokenPair{}, err
	}
	return pair, nil
}

// Logout revokes the current access token and the given refresh token.
func (a *Auth) Logout(ctx context.Context, claims model.Claims, refreshToken string) error {
	if err := a.tokenService.Revoke(ctx, claims, refreshToken); err != nil {
		return err
	}

	a.logger.Info("Auth service: user logged out",
		"username", claims.Subject,
		"jti", claims.ID)

	return nil
}

// Me returns the live profile of the token subject.
func (a *Auth) Me(ctx context.Context, claims model.Claims) (model.User, error) {
	user, err := a.credentials.Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, model.ErrInactiveUser
		}
		return model.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

// AccessTTL reports the lifetime of issued access tokens.
func (a *Auth) AccessTTL() int64 {
	return int64(a.tokenService.AccessTTL().Seconds())
}
