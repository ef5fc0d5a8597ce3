package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/auth-session-service/internal/model"
)

const userColumns = `id, email, password_hash, first_name, last_name, role, is_active,
	created_at, updated_at, last_login_at`

// UserRepo persists users. Operations that also touch refresh_tokens run in
// a single transaction so a reader never sees half of them.
type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

// CreateWithRefreshToken inserts a new user together with its first session.
func (r *UserRepo) CreateWithRefreshToken(ctx context.Context, u model.User, rt model.RefreshToken) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning register transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	if _, err := tx.NamedExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, first_name, last_name, role, is_active, created_at, updated_at)
		 VALUES (:id, :email, :password_hash, :first_name, :last_name, :role, :is_active, :created_at, :updated_at)`,
		u); err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	if err := insertRefreshToken(ctx, tx, rt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing register: %w", err)
	}
	return nil
}

// GetByEmail fetches a user by exact email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := r.DB.GetContext(ctx, &u,
		"SELECT "+userColumns+" FROM users WHERE email = ? LIMIT 1", email)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := r.DB.GetContext(ctx, &u,
		"SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// Update writes the mutable profile columns of u.
func (r *UserRepo) Update(ctx context.Context, u model.User) error {
	_, err := r.DB.NamedExecContext(ctx,
		`UPDATE users SET email = :email, password_hash = :password_hash, first_name = :first_name,
		 last_name = :last_name, updated_at = :updated_at WHERE id = :id`, u)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("updating user: %w", err)
	}
	return nil
}

// UpdateLastLogin stamps a successful login.
func (r *UserRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?", at, at, id)
	if err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	return nil
}

// List returns all users, newest first.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	if err := r.DB.SelectContext(ctx, &users,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id DESC"); err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// Deactivate marks the user inactive and deletes every refresh token the user
// owns. It returns the number of sessions removed.
func (r *UserRepo) Deactivate(ctx context.Context, id string, at time.Time) (int64, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning deactivate transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	var exists int
	if err := tx.GetContext(ctx, &exists, "SELECT COUNT(*) FROM users WHERE id = ?", id); err != nil {
		return 0, fmt.Errorf("checking user: %w", err)
	}
	if exists == 0 {
		return 0, ErrNotFound
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?", false, at, id); err != nil {
		return 0, fmt.Errorf("deactivating user: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE user_id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("deleting user sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting user sessions: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing deactivate: %w", err)
	}
	return n, nil
}
