package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/cscoaching/slot-booking/internal/booking"
	"github.com/cscoaching/slot-booking/internal/model"
)

// SlotRepo provides read and admin-side write access to slots.  The
// is_booked flag is never written here: flipping it is the booking
// engine's job and happens only through the guarded updates in
// store.go.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo returns a SlotRepo bound to the given database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

const slotCols = `id, start_at, end_at, is_booked, COALESCE(location, ''), created_at`

// GetByID returns sql.ErrNoRows when the slot does not exist; callers
// translate that to their own not-found sentinel.
func (r *SlotRepo) GetByID(ctx context.Context, id uint64) (*model.Slot, error) {
	const q = `SELECT ` + slotCols + ` FROM slots WHERE id = ?`
	var s model.Slot
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.StartAt, &s.EndAt, &s.IsBooked, &s.Location, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListWindow returns slots whose start falls in [from, to), ordered by
// start ascending, optionally restricted to open slots.
func (r *SlotRepo) ListWindow(ctx context.Context, from, to time.Time, onlyAvailable bool) ([]model.Slot, error) {
	q := `SELECT ` + slotCols + ` FROM slots WHERE start_at >= ? AND start_at < ?`
	if onlyAvailable {
		q += ` AND is_booked = 0`
	}
	q += ` ORDER BY start_at ASC`
	rows, err := r.db.QueryContext(ctx, q, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSlots(rows)
}

// ListAll returns every slot, newest first, for the admin screen.
func (r *SlotRepo) ListAll(ctx context.Context) ([]model.Slot, error) {
	const q = `SELECT ` + slotCols + ` FROM slots ORDER BY start_at DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSlots(rows)
}

func collectSlots(rows *sql.Rows) ([]model.Slot, error) {
	slots := make([]model.Slot, 0)
	for rows.Next() {
		var s model.Slot
		if err := rows.Scan(&s.ID, &s.StartAt, &s.EndAt, &s.IsBooked, &s.Location, &s.CreatedAt); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// DeleteUnbooked removes a slot only while it is open and carries no
// booking history (historical slots stay for the member's records).
// The bool reports whether a row was actually deleted.
func (r *SlotRepo) DeleteUnbooked(ctx context.Context, id uint64) (bool, error) {
	const q = `DELETE FROM slots
	           WHERE id = ? AND is_booked = 0
	             AND NOT EXISTS (SELECT 1 FROM bookings b WHERE b.slot_id = slots.id)`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Reschedule updates a slot's boundaries and location in place.  The
// caller is responsible for policy validation and for notifying the
// member when the slot is booked.  Moving onto a start another slot
// already occupies trips the unique key and comes back as
// booking.ErrDuplicateStart.
func (r *SlotRepo) Reschedule(ctx context.Context, id uint64, start, end time.Time, location string) error {
	const q = `UPDATE slots SET start_at = ?, end_at = ?, location = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, start.UTC(), end.UTC(), nullString(location), id)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return booking.ErrDuplicateStart
		}
	}
	return err
}

// ActiveBookingID returns the id of the active booking holding this
// slot, or sql.ErrNoRows when the slot is free.
func (r *SlotRepo) ActiveBookingID(ctx context.Context, slotID uint64) (uint64, error) {
	const q = `SELECT id FROM bookings WHERE slot_id = ? AND cancelled_at IS NULL`
	var id uint64
	err := r.db.QueryRowContext(ctx, q, slotID).Scan(&id)
	return id, err
}
