// Package guard holds the authorization checks applied to verified claims.
//
// Checks run in a fixed order: the token is verified first, then the user
// must still be active, then MFA and role requirements are applied.
package guard

import (
	"context"
	"errors"
	"fmt"

	"github.com/dtroode/medisupply-security/internal/model"
)

// Check inspects verified claims and either passes them on or rejects them.
type Check func(ctx context.Context, claims model.Claims) (model.Claims, error)

// RequireActive reloads the subject and rejects deactivated or deleted users.
func RequireActive(users model.UserStore) Check {
	return func(ctx context.Context, claims model.Claims) (model.Claims, error) {
		user, err := users.GetByUsername(ctx, claims.Subject)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.Claims{}, fmt.Errorf("%w: %s no longer exists", model.ErrInactiveUser, claims.Subject)
			}
			return model.Claims{}, fmt.Errorf("failed to load user: %w", err)
		}
		if !user.Active {
			return model.Claims{}, model.ErrInactiveUser
		}
		return claims, nil
	}
}

// RequireRole rejects claims whose role snapshot lacks role.
func RequireRole(role string) Check {
	return func(_ context.Context, claims model.Claims) (model.Claims, error) {
		if !claims.HasRole(role) {
			return model.Claims{}, fmt.Errorf("%w: %s required", model.ErrForbidden, role)
		}
		return claims, nil
	}
}

// RequireMFA rejects sessions that did not complete a second factor.
func RequireMFA() Check {
	return func(_ context.Context, claims model.Claims) (model.Claims, error) {
		if !claims.MFAVerified {
			return model.Claims{}, model.ErrMFARequired
		}
		return claims, nil
	}
}

// Chain applies checks in order and stops at the first rejection.
func Chain(checks ...Check) Check {
	return func(ctx context.Context, claims model.Claims) (model.Claims, error) {
		var err error
		for _, check := range checks {
			claims, err = check(ctx, claims)
			if err != nil {
				return model.Claims{}, err
			}
		}
		return claims, nil
	}
}
