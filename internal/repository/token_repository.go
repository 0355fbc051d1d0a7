package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// TokenRepo stores refresh tokens.  Only the SHA-256 hash of the raw
// token ever reaches the database, so a leaked table cannot be used to
// mint sessions.
type TokenRepo struct {
	db *sql.DB
}

// NewTokenRepo returns a TokenRepo bound to the given database.
func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

// Save stores a refresh token hash for the member.
func (r *TokenRepo) Save(ctx context.Context, memberID uint64, tokenHash string, expiresAt time.Time) error {
	const q = `INSERT INTO refresh_tokens (member_id, token_hash, expires_at) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, memberID, tokenHash, expiresAt.UTC())
	return err
}

// FindValid returns the owning member of an unexpired token hash, or
// ErrTokenInvalid.
func (r *TokenRepo) FindValid(ctx context.Context, tokenHash string, now time.Time) (uint64, error) {
	const q = `SELECT member_id FROM refresh_tokens WHERE token_hash = ? AND expires_at > ?`
	var memberID uint64
	err := r.db.QueryRowContext(ctx, q, tokenHash, now.UTC()).Scan(&memberID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrTokenInvalid
	}
	return memberID, err
}

// Delete revokes a token by hash.  Deleting an unknown hash is a no-op
// so logout is idempotent.
func (r *TokenRepo) Delete(ctx context.Context, tokenHash string) error {
	const q = `DELETE FROM refresh_tokens WHERE token_hash = ?`
	_, err := r.db.ExecContext(ctx, q, tokenHash)
	return err
}

// PurgeExpired drops dead tokens; called opportunistically on refresh.
func (r *TokenRepo) PurgeExpired(ctx context.Context, now time.Time) error {
	const q = `DELETE FROM refresh_tokens WHERE expires_at <= ?`
	_, err := r.db.ExecContext(ctx, q, now.UTC())
	return err
}
