// Package timeout bounds every repository call with a deadline. A call that
// runs out of time fails with model.ErrStoreUnavailable instead of returning
// a partial or empty result.
package timeout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dtroode/medisupply-security/internal/model"
)

func call[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	res, err := fn(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			var zero T
			return zero, fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
		}
		return res, err
	}
	return res, nil
}

func exec(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	_, err := call(ctx, d, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

var _ model.UserStore = (*Users)(nil)

// Users wraps a model.UserStore.
type Users struct {
	next    model.UserStore
	timeout time.Duration
}

func NewUsers(next model.UserStore, timeout time.Duration) *Users {
	return &Users{next: next, timeout: timeout}
}

func (u *Users) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return call(ctx, u.timeout, func(ctx context.Context) (model.User, error) {
		return u.next.GetByUsername(ctx, username)
	})
}

func (u *Users) Create(ctx context.Context, user model.User) (model.User, error) {
	return call(ctx, u.timeout, func(ctx context.Context) (model.User, error) {
		return u.next.Create(ctx, user)
	})
}

var _ model.RecordRepository = (*Records)(nil)

// Records wraps a model.RecordRepository.
type Records struct {
	next    model.RecordRepository
	timeout time.Duration
}

func NewRecords(next model.RecordRepository, timeout time.Duration) *Records {
	return &Records{next: next, timeout: timeout}
}

func (r *Records) Replace(ctx context.Context, record model.SecureRecord) error {
	return exec(ctx, r.timeout, func(ctx context.Context) error {
		return r.next.Replace(ctx, record)
	})
}

func (r *Records) GetByID(ctx context.Context, id string) (model.SecureRecord, error) {
	return call(ctx, r.timeout, func(ctx context.Context) (model.SecureRecord, error) {
		return r.next.GetByID(ctx, id)
	})
}

func (r *Records) List(ctx context.Context) ([]model.SecureRecord, error) {
	return call(ctx, r.timeout, func(ctx context.Context) ([]model.SecureRecord, error) {
		return r.next.List(ctx)
	})
}

func (r *Records) Delete(ctx context.Context, id string) (bool, error) {
	return call(ctx, r.timeout, func(ctx context.Context) (bool, error) {
		return r.next.Delete(ctx, id)
	})
}

var _ model.RefreshTokenStore = (*RefreshTokens)(nil)

// RefreshTokens wraps a model.RefreshTokenStore.
type RefreshTokens struct {
	next    model.RefreshTokenStore
	timeout time.Duration
}

func NewRefreshTokens(next model.RefreshTokenStore, timeout time.Duration) *RefreshTokens {
	return &RefreshTokens{next: next, timeout: timeout}
}

func (r *RefreshTokens) Create(ctx context.Context, token model.RefreshToken) error {
	return exec(ctx, r.timeout, func(ctx context.Context) error {
		return r.next.Create(ctx, token)
	})
}

func (r *RefreshTokens) GetByJTI(ctx context.Context, jti string) (model.RefreshToken, error) {
	return call(ctx, r.timeout, func(ctx context.Context) (model.RefreshToken, error) {
		return r.next.GetByJTI(ctx, jti)
	})
}

func (r *RefreshTokens) RevokeByJTI(ctx context.Context, jti string, reason model.RevokeReason) error {
	return exec(ctx, r.timeout, func(ctx context.Context) error {
		return r.next.RevokeByJTI(ctx, jti, reason)
	})
}

func (r *RefreshTokens) RevokeAllByUser(ctx context.Context, username string, reason model.RevokeReason) error {
	return exec(ctx, r.timeout, func(ctx context.Context) error {
		return r.next.RevokeAllByUser(ctx, username, reason)
	})
}

var _ model.RevocationList = (*Revocations)(nil)

// Revocations wraps a model.RevocationList.
type Revocations struct {
	next    model.RevocationList
	timeout time.Duration
}

func NewRevocations(next model.RevocationList, timeout time.Duration) *Revocations {
	return &Revocations{next: next, timeout: timeout}
}

func (r *Revocations) Revoke(ctx context.Context, jti string, until time.Time) error {
	return exec(ctx, r.timeout, func(ctx context.Context) error {
		return r.next.Revoke(ctx, jti, until)
	})
}

func (r *Revocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return call(ctx, r.timeout, func(ctx context.Context) (bool, error) {
		return r.next.IsRevoked(ctx, jti)
	})
}
