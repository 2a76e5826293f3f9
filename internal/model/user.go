package model

import (
	"context"
	"slices"
	"time"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (User, error)
	Create(ctx context.Context, user User) (User, error)
}

// User represents a provisioned account with its password verifier.
type User struct {
	Username     string
	Email        string
	FullName     string
	Roles        []string
	Active       bool
	PasswordHash string
	CreatedAt    time.Time
}

// HasRole reports whether the user holds role.
func (u User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// Well-known role names.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)
