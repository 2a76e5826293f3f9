// Package memory implements the repositories with process-local maps.
// Contents are lost on restart.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/dtroode/medisupply-security/internal/model"
)

var _ model.UserStore = (*UserRepository)(nil)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]model.User)}
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[username]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return cloneUser(user), nil
}

func (r *UserRepository) Create(_ context.Context, user model.User) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.Username]; ok {
		return model.User{}, model.ErrAlreadyExists
	}
	r.users[user.Username] = cloneUser(user)
	return cloneUser(user), nil
}

// SetActive enables or disables an account.
func (r *UserRepository) SetActive(_ context.Context, username string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[username]
	if !ok {
		return model.ErrNotFound
	}
	user.Active = active
	r.users[username] = user
	return nil
}

// Remove deletes an account.
func (r *UserRepository) Remove(_ context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[username]; !ok {
		return model.ErrNotFound
	}
	delete(r.users, username)
	return nil
}

func cloneUser(u model.User) model.User {
	u.Roles = slices.Clone(u.Roles)
	return u
}
