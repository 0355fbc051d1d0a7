package repository

import (
	"context"
	"database/sql"

	"github.com/cscoaching/slot-booking/internal/model"
)

// HolidayRepo manages the exclusion calendar.  Days are business-local
// YYYY-MM-DD strings; the schedule policy produces the keys so the
// repository never needs to know the timezone.
type HolidayRepo struct {
	db *sql.DB
}

// NewHolidayRepo returns a HolidayRepo bound to the given database.
func NewHolidayRepo(db *sql.DB) *HolidayRepo { return &HolidayRepo{db: db} }

// Upsert records a holiday, replacing the note if the day is already
// listed.
func (r *HolidayRepo) Upsert(ctx context.Context, day, note string) error {
	const q = `INSERT INTO holidays (day, note) VALUES (?, ?)
	           ON DUPLICATE KEY UPDATE note = VALUES(note)`
	_, err := r.db.ExecContext(ctx, q, day, nullString(note))
	return err
}

// Delete removes a holiday; deleting an unlisted day is a no-op.
func (r *HolidayRepo) Delete(ctx context.Context, day string) error {
	const q = `DELETE FROM holidays WHERE day = ?`
	_, err := r.db.ExecContext(ctx, q, day)
	return err
}

// List returns every holiday in day order.
func (r *HolidayRepo) List(ctx context.Context) ([]model.Holiday, error) {
	const q = `SELECT day, COALESCE(note, '') FROM holidays ORDER BY day ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Holiday, 0)
	for rows.Next() {
		var h model.Holiday
		if err := rows.Scan(&h.Day, &h.Note); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// DaysBetween returns the set of holiday day keys in the inclusive
// range, for maintenance and the public listing.
func (r *HolidayRepo) DaysBetween(ctx context.Context, from, to string) (map[string]bool, error) {
	const q = `SELECT day FROM holidays WHERE day >= ? AND day <= ?`
	rows, err := r.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	days := make(map[string]bool)
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		days[d] = true
	}
	return days, rows.Err()
}
