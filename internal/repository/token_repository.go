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

// TokenRepo persists refresh token rows keyed by the token's SHA-256 digest.
// Rows are inserted and deleted, never updated.
type TokenRepo struct{ DB *sqlx.DB }

func NewTokenRepo(db *sqlx.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a refresh token row.
func (r *TokenRepo) Store(ctx context.Context, rt model.RefreshToken) error {
	return insertRefreshToken(ctx, r.DB, rt)
}

// GetByHash fetches the row for a token digest.
func (r *TokenRepo) GetByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error) {
	var rt model.RefreshToken
	err := r.DB.GetContext(ctx, &rt,
		"SELECT id, user_id, token_hash, expires_at, created_at FROM refresh_tokens WHERE token_hash = ? LIMIT 1",
		tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RefreshToken{}, ErrNotFound
	}
	return rt, err
}

// DeleteByHash removes the row for a token digest and reports how many rows
// went away (0 or 1).
func (r *TokenRepo) DeleteByHash(ctx context.Context, tokenHash string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE token_hash = ?", tokenHash)
	if err != nil {
		return 0, fmt.Errorf("deleting refresh token: %w", err)
	}
	return res.RowsAffected()
}

// Rotate consumes oldHash and inserts next in one transaction. When the old
// row is already gone (a concurrent rotation or logout won) nothing is
// inserted and ErrNotFound is returned.
func (r *TokenRepo) Rotate(ctx context.Context, oldHash string, next model.RefreshToken) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning rotation transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	res, err := tx.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE token_hash = ?", oldHash)
	if err != nil {
		return fmt.Errorf("consuming old token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("consuming old token: %w", err)
	}
	if n != 1 {
		return ErrNotFound
	}
	if err := insertRefreshToken(ctx, tx, next); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rotation: %w", err)
	}
	return nil
}

// DeleteExpired removes rows whose expiry is before now and returns the count.
func (r *TokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE expires_at < ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("deleting expired tokens: %w", err)
	}
	return res.RowsAffected()
}

func insertRefreshToken(ctx context.Context, ex sqlx.ExtContext, rt model.RefreshToken) error {
	_, err := sqlx.NamedExecContext(ctx, ex,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at)
		 VALUES (:id, :user_id, :token_hash, :expires_at, :created_at)`, rt)
	if err != nil {
		return fmt.Errorf("inserting refresh token: %w", err)
	}
	return nil
}
