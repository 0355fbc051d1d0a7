package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/cscoaching/slot-booking/internal/model"
)

// MemberRepo provides CRUD operations for members.  Credit balances
// are intentionally absent from this repo's write surface: booking and
// cancellation adjust them through the guarded updates in store.go, and
// the only unconditional credit write is the explicit admin edit in
// Update.
type MemberRepo struct {
	db *sql.DB
}

// NewMemberRepo returns a MemberRepo bound to the given database.
func NewMemberRepo(db *sql.DB) *MemberRepo { return &MemberRepo{db: db} }

const memberCols = `id, COALESCE(name, ''), email, COALESCE(password_hash, ''), credits, created_at`

func scanMember(row *sql.Row) (*model.Member, error) {
	var m model.Member
	err := row.Scan(&m.ID, &m.Name, &m.Email, &m.PasswordHash, &m.Credits, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByEmail looks a member up case-insensitively.  Returns
// ErrMemberNotFound when the email is unknown.
func (r *MemberRepo) GetByEmail(ctx context.Context, email string) (*model.Member, error) {
	const q = `SELECT ` + memberCols + ` FROM members WHERE LOWER(email) = LOWER(?)`
	m, err := scanMember(r.db.QueryRowContext(ctx, q, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	return m, err
}

// GetByID returns ErrMemberNotFound when no such member exists.
func (r *MemberRepo) GetByID(ctx context.Context, id uint64) (*model.Member, error) {
	const q = `SELECT ` + memberCols + ` FROM members WHERE id = ?`
	m, err := scanMember(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	return m, err
}

// List returns every member, newest first.
func (r *MemberRepo) List(ctx context.Context) ([]model.Member, error) {
	const q = `SELECT ` + memberCols + ` FROM members ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	members := make([]model.Member, 0)
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.PasswordHash, &m.Credits, &m.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// Create inserts a member with an initial credit balance and returns
// the new ID.  A clash on the email unique key surfaces as
// ErrDuplicateEmail.
func (r *MemberRepo) Create(ctx context.Context, name, email string, credits int64) (uint64, error) {
	const q = `INSERT INTO members (name, email, credits) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, nullString(name), email, credits)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return 0, ErrDuplicateEmail
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// Update patches name and/or credits, leaving nil fields untouched.
// This is the admin direct-edit path; it is the only unconditional
// write to the credit balance in the codebase.
func (r *MemberRepo) Update(ctx context.Context, id uint64, name *string, credits *int64) error {
	const q = `UPDATE members SET name = COALESCE(?, name), credits = COALESCE(?, credits) WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, name, credits, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL reports zero affected rows for a no-op update too, so
		// double-check existence before reporting not found.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// SetPassword stores the bcrypt hash for a member.
func (r *MemberRepo) SetPassword(ctx context.Context, id uint64, hash string) error {
	const q = `UPDATE members SET password_hash = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, hash, id)
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
