// Package bootstrap provisions the accounts a fresh deployment starts with.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dtroode/medisupply-security/internal/logger"
	"github.com/dtroode/medisupply-security/internal/model"
)

// Hasher produces password verifiers.
type Hasher interface {
	Hash(password string) (string, error)
}

// Account is a user to provision along with its initial password.
type Account struct {
	Username string
	Password string
	Email    string
	FullName string
	Roles    []string
}

// DemoAccounts are the users available out of the box in development.
var DemoAccounts = []Account{
	{
		Username: "admin",
		Password: "admin123",
		Email:    "admin@medisupply.com",
		FullName: "Administrator",
		Roles:    []string{model.RoleAdmin, model.RoleUser},
	},
	{
		Username: "user1",
		Password: "user123",
		Email:    "user1@medisupply.com",
		FullName: "User One",
		Roles:    []string{model.RoleUser},
	},
	{
		Username: "user2",
		Password: "user123",
		Email:    "user2@medisupply.com",
		FullName: "User Two",
		Roles:    []string{model.RoleUser},
	},
}

// Seed creates every account that does not exist yet. Existing users are left
// untouched, so restarts never reset a changed password.
func Seed(ctx context.Context, users model.UserStore, hasher Hasher, accounts []Account, log *logger.Logger) (int, error) {
	created := 0
	for _, acc := range accounts {
		if _, err := users.GetByUsername(ctx, acc.Username); err == nil {
			continue
		} else if !errors.Is(err, model.ErrNotFound) {
			return created, fmt.Errorf("failed to look up %s: %w", acc.Username, err)
		}

		hash, err := hasher.Hash(acc.Password)
		if err != nil {
			return created, fmt.Errorf("failed to hash password for %s: %w", acc.Username, err)
		}

		_, err = users.Create(ctx, model.User{
			Username:     acc.Username,
			Email:        acc.Email,
			FullName:     acc.FullName,
			Roles:        acc.Roles,
			Active:       true,
			PasswordHash: hash,
		})
		if errors.Is(err, model.ErrAlreadyExists) {
			// Another replica got there first.
			continue
		}
		if err != nil {
			return created, fmt.Errorf("failed to create %s: %w", acc.Username, err)
		}

		log.Info("Bootstrap: user provisioned",
			"username", acc.Username,
			"roles", acc.Roles)
		created++
	}

	return created, nil
}
