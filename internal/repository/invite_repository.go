package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// InviteRepo manages single-use activation tokens.  A member created by
// the admin cannot log in until they consume an invite by setting a
// password.
type InviteRepo struct {
	db *sql.DB
}

// NewInviteRepo returns an InviteRepo bound to the given database.
func NewInviteRepo(db *sql.DB) *InviteRepo { return &InviteRepo{db: db} }

// Create stores a new invite token for the member.
func (r *InviteRepo) Create(ctx context.Context, token string, memberID uint64, expiresAt time.Time) error {
	const q = `INSERT INTO invites (id, member_id, expires_at) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, token, memberID, expiresAt.UTC())
	return err
}

// PendingInvite is the preview returned while the member fills in the
// activation form.
type PendingInvite struct {
	MemberID uint64 `json:"-"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
}

// FindValid returns the member behind an unused, unexpired invite.
// Unknown, used and expired tokens are all ErrInviteInvalid.
func (r *InviteRepo) FindValid(ctx context.Context, token string, now time.Time) (*PendingInvite, error) {
	const q = `SELECT i.member_id, COALESCE(m.name, ''), m.email
	           FROM invites i
	           JOIN members m ON m.id = i.member_id
	           WHERE i.id = ? AND i.used = 0 AND i.expires_at > ?`
	var p PendingInvite
	err := r.db.QueryRowContext(ctx, q, token, now.UTC()).Scan(&p.MemberID, &p.Name, &p.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInviteInvalid
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Consume activates a member: it stores the password hash and burns the
// invite in one transaction.  The used=0 guard makes a concurrent
// double-submit of the same token activate at most once.
func (r *InviteRepo) Consume(ctx context.Context, token string, now time.Time, passwordHash string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const claim = `UPDATE invites SET used = 1 WHERE id = ? AND used = 0 AND expires_at > ?`
	res, err := tx.ExecContext(ctx, claim, token, now.UTC())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInviteInvalid
	}

	const set = `UPDATE members m
	             JOIN invites i ON i.member_id = m.id
	             SET m.password_hash = ?
	             WHERE i.id = ?`
	if _, err := tx.ExecContext(ctx, set, passwordHash, token); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
