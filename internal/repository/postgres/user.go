package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dtroode/medisupply-security/internal/model"
)

const uniqueViolation = "23505"

var _ model.UserStore = (*UserRepository)(nil)

type UserRepository struct {
	db *Connection
}

func NewUserRepository(db *Connection) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (model.User, error) {
	var user model.User
	query := `SELECT username, email, full_name, roles, active, password_hash, created_at
			  FROM users WHERE username = $1`

	err := r.db.QueryRow(ctx, query, username).Scan(
		&user.Username, &user.Email, &user.FullName, &user.Roles, &user.Active,
		&user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by username: %w", err)
	}

	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	query := `INSERT INTO users (username, email, full_name, roles, active, password_hash, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING username, email, full_name, roles, active, password_hash, created_at`

	if user.Roles == nil {
		user.Roles = []string{}
	}

	var saved model.User
	err := r.db.QueryRow(ctx, query,
		user.Username, user.Email, user.FullName, user.Roles, user.Active, user.PasswordHash, user.CreatedAt,
	).Scan(
		&saved.Username, &saved.Email, &saved.FullName, &saved.Roles, &saved.Active,
		&saved.PasswordHash, &saved.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.User{}, model.ErrAlreadyExists
		}
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return saved, nil
}

// SetActive enables or disables an account.
func (r *UserRepository) SetActive(ctx context.Context, username string, active bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE users SET active = $2 WHERE username = $1`, username, active)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
