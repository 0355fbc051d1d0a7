package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/cscoaching/slot-booking/internal/model"
)

// BookingRepo provides the read side of bookings.  Creating, cancelling
// and moving bookings are transactional operations owned by the Store.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// GetDetail loads a booking joined with its slot and member.  Returns
// sql.ErrNoRows when the booking does not exist.
func (r *BookingRepo) GetDetail(ctx context.Context, id uint64) (*model.BookingDetail, error) {
	const q = `SELECT b.id, b.member_id, b.slot_id, COALESCE(b.notes, ''), b.created_at, b.cancelled_at, b.refunded,
	                  s.id, s.start_at, s.end_at, s.is_booked, COALESCE(s.location, ''), s.created_at,
	                  m.id, COALESCE(m.name, ''), m.email, m.credits, m.created_at
	           FROM bookings b
	           JOIN slots s ON s.id = b.slot_id
	           JOIN members m ON m.id = b.member_id
	           WHERE b.id = ?`
	var det model.BookingDetail
	var cancelled sql.NullTime
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&det.Booking.ID, &det.Booking.MemberID, &det.Booking.SlotID, &det.Booking.Notes,
		&det.Booking.CreatedAt, &cancelled, &det.Booking.Refunded,
		&det.Slot.ID, &det.Slot.StartAt, &det.Slot.EndAt, &det.Slot.IsBooked,
		&det.Slot.Location, &det.Slot.CreatedAt,
		&det.Member.ID, &det.Member.Name, &det.Member.Email, &det.Member.Credits, &det.Member.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if cancelled.Valid {
		t := cancelled.Time
		det.Booking.CancelledAt = &t
	}
	return &det, nil
}

// MemberBookingRow is one line of a member's booking history.
type MemberBookingRow struct {
	BookingID   uint64     `json:"booking_id"`
	SlotID      uint64     `json:"slot_id"`
	StartAt     time.Time  `json:"start_at"`
	EndAt       time.Time  `json:"end_at"`
	Location    string     `json:"location,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	Refunded    bool       `json:"refunded"`
}

// ListByMember returns the member's bookings, most recent slot first,
// including cancelled ones so the dashboard can show refunds.
func (r *BookingRepo) ListByMember(ctx context.Context, memberID uint64) ([]MemberBookingRow, error) {
	const q = `SELECT b.id, s.id, s.start_at, s.end_at, COALESCE(s.location, ''), b.cancelled_at, b.refunded
	           FROM bookings b
	           JOIN slots s ON s.id = b.slot_id
	           WHERE b.member_id = ?
	           ORDER BY s.start_at DESC`
	rows, err := r.db.QueryContext(ctx, q, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]MemberBookingRow, 0)
	for rows.Next() {
		var row MemberBookingRow
		var cancelled sql.NullTime
		if err := rows.Scan(&row.BookingID, &row.SlotID, &row.StartAt, &row.EndAt,
			&row.Location, &cancelled, &row.Refunded); err != nil {
			return nil, err
		}
		if cancelled.Valid {
			t := cancelled.Time
			row.CancelledAt = &t
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// AdminBookingRow is one line of the admin's upcoming-bookings view.
type AdminBookingRow struct {
	BookingID     uint64    `json:"booking_id"`
	MemberID      uint64    `json:"member_id"`
	MemberName    string    `json:"member_name,omitempty"`
	MemberEmail   string    `json:"member_email"`
	MemberCredits int64     `json:"member_credits"`
	SlotID        uint64    `json:"slot_id"`
	StartAt       time.Time `json:"start_at"`
	EndAt         time.Time `json:"end_at"`
	Location      string    `json:"location,omitempty"`
	Notes         string    `json:"notes,omitempty"`
}

// ListUpcoming returns active bookings whose slot has not started yet,
// soonest first.
func (r *BookingRepo) ListUpcoming(ctx context.Context, now time.Time) ([]AdminBookingRow, error) {
	const q = `SELECT b.id, b.member_id, COALESCE(m.name, ''), m.email, m.credits,
	                  s.id, s.start_at, s.end_at, COALESCE(s.location, ''), COALESCE(b.notes, '')
	           FROM bookings b
	           JOIN members m ON m.id = b.member_id
	           JOIN slots s ON s.id = b.slot_id
	           WHERE b.cancelled_at IS NULL AND s.start_at >= ?
	           ORDER BY s.start_at ASC`
	rows, err := r.db.QueryContext(ctx, q, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]AdminBookingRow, 0)
	for rows.Next() {
		var row AdminBookingRow
		if err := rows.Scan(&row.BookingID, &row.MemberID, &row.MemberName, &row.MemberEmail,
			&row.MemberCredits, &row.SlotID, &row.StartAt, &row.EndAt, &row.Location, &row.Notes); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
