package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cscoaching/slot-booking/internal/booking"
	"github.com/cscoaching/slot-booking/internal/model"
)

// Store composes the entity repos and owns the multi-row atomic
// operations.  Every write that touches more than one row, or that must
// lose gracefully under concurrency, runs here inside a single
// transaction built from conditional updates: an UPDATE carries its
// precondition in the WHERE clause, and zero affected rows means the
// precondition failed and the whole transaction rolls back.  The guards
// decide the race winner on the hot paths; the one explicit row lock is
// the booking row during cancellation, which keeps a concurrent move
// from repointing it between the read and the stamp.
type Store struct {
	db       *sql.DB
	Members  *MemberRepo
	Slots    *SlotRepo
	Bookings *BookingRepo
	Holidays *HolidayRepo
	Invites  *InviteRepo
	Tokens   *TokenRepo
}

// NewStore wires every repo onto the shared database handle.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		panic("repository: nil db")
	}
	return &Store{
		db:       db,
		Members:  NewMemberRepo(db),
		Slots:    NewSlotRepo(db),
		Bookings: NewBookingRepo(db),
		Holidays: NewHolidayRepo(db),
		Invites:  NewInviteRepo(db),
		Tokens:   NewTokenRepo(db),
	}
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func affected(res sql.Result) (int64, error) {
	return res.RowsAffected()
}

// SlotByID implements booking.Store.
func (s *Store) SlotByID(ctx context.Context, id uint64) (*model.Slot, error) {
	slot, err := s.Slots.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrSlotNotFound
	}
	return slot, err
}

// MemberByEmail implements booking.Store.
func (s *Store) MemberByEmail(ctx context.Context, email string) (*model.Member, error) {
	m, err := s.Members.GetByEmail(ctx, email)
	if errors.Is(err, ErrMemberNotFound) {
		return nil, booking.ErrNotMember
	}
	return m, err
}

// BookingByID implements booking.Store.
func (s *Store) BookingByID(ctx context.Context, id uint64) (*model.BookingDetail, error) {
	det, err := s.Bookings.GetDetail(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrNotFound
	}
	return det, err
}

// CreateBooking implements booking.Store.  The credit decrement and the
// slot claim are both guarded; whichever guard fails first aborts the
// transaction, so a member is never charged for a slot they did not
// get and a slot is never double-sold.
func (s *Store) CreateBooking(ctx context.Context, slotID, memberID uint64, notes string) (uint64, int64, error) {
	var bookingID uint64
	var remaining int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		const spend = `UPDATE members SET credits = credits - 1 WHERE id = ? AND credits > 0`
		res, err := tx.ExecContext(ctx, spend, memberID)
		if err != nil {
			return err
		}
		if n, err := affected(res); err != nil {
			return err
		} else if n == 0 {
			return booking.ErrNoCredits
		}

		const claim = `UPDATE slots SET is_booked = 1 WHERE id = ? AND is_booked = 0`
		res, err = tx.ExecContext(ctx, claim, slotID)
		if err != nil {
			return err
		}
		if n, err := affected(res); err != nil {
			return err
		} else if n == 0 {
			return booking.ErrSlotTaken
		}

		const insert = `INSERT INTO bookings (member_id, slot_id, notes) VALUES (?, ?, ?)`
		ins, err := tx.ExecContext(ctx, insert, memberID, slotID, nullString(notes))
		if err != nil {
			return err
		}
		id, err := ins.LastInsertId()
		if err != nil {
			return err
		}
		bookingID = uint64(id)

		const balance = `SELECT credits FROM members WHERE id = ?`
		return tx.QueryRowContext(ctx, balance, memberID).Scan(&remaining)
	})
	if err != nil {
		return 0, 0, err
	}
	return bookingID, remaining, nil
}

// CancelBooking implements booking.Store.  Stamping cancelled_at is the
// guard: of two concurrent cancellations only one stamps, so the refund
// and the slot release happen exactly once.
func (s *Store) CancelBooking(ctx context.Context, bookingID uint64, refund bool) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		// FOR UPDATE serializes with a concurrent move of the same
		// booking, so the slot freed below is the one the booking
		// references at stamp time, not a stale snapshot.
		var slotID, memberID uint64
		const load = `SELECT slot_id, member_id FROM bookings WHERE id = ? FOR UPDATE`
		err := tx.QueryRowContext(ctx, load, bookingID).Scan(&slotID, &memberID)
		if errors.Is(err, sql.ErrNoRows) {
			return booking.ErrNotFound
		}
		if err != nil {
			return err
		}

		const stamp = `UPDATE bookings SET cancelled_at = UTC_TIMESTAMP(), refunded = ?
		               WHERE id = ? AND cancelled_at IS NULL`
		res, err := tx.ExecContext(ctx, stamp, refund, bookingID)
		if err != nil {
			return err
		}
		if n, err := affected(res); err != nil {
			return err
		} else if n == 0 {
			return booking.ErrAlreadyCancelled
		}

		const free = `UPDATE slots SET is_booked = 0 WHERE id = ?`
		if _, err := tx.ExecContext(ctx, free, slotID); err != nil {
			return err
		}

		if refund {
			const restore = `UPDATE members SET credits = credits + 1 WHERE id = ?`
			if _, err := tx.ExecContext(ctx, restore, memberID); err != nil {
				return err
			}
		}
		return nil
	})
}

// MoveBooking implements booking.Store.  Claiming the target slot first
// means a concurrent booking of that slot and a concurrent move can
// both run; the guards let exactly one of them through.
func (s *Store) MoveBooking(ctx context.Context, bookingID, oldSlotID, newSlotID uint64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		const claim = `UPDATE slots SET is_booked = 1 WHERE id = ? AND is_booked = 0`
		res, err := tx.ExecContext(ctx, claim, newSlotID)
		if err != nil {
			return err
		}
		if n, err := affected(res); err != nil {
			return err
		} else if n == 0 {
			return booking.ErrTargetBooked
		}

		const repoint = `UPDATE bookings SET slot_id = ? WHERE id = ? AND slot_id = ? AND cancelled_at IS NULL`
		res, err = tx.ExecContext(ctx, repoint, newSlotID, bookingID, oldSlotID)
		if err != nil {
			return err
		}
		if n, err := affected(res); err != nil {
			return err
		} else if n == 0 {
			return booking.ErrAlreadyCancelled
		}

		const free = `UPDATE slots SET is_booked = 0 WHERE id = ?`
		_, err = tx.ExecContext(ctx, free, oldSlotID)
		return err
	})
}

// PurgeExpiredSlots implements maintenance.Store.  A slot expires when
// its end instant has passed, so a session currently in progress is
// left alone.  Only slots that were never booked are removed; slots
// with booking history stay so member records keep their foreign keys.
func (s *Store) PurgeExpiredSlots(ctx context.Context, now time.Time) (int64, error) {
	const q = `DELETE FROM slots
	           WHERE end_at < ? AND is_booked = 0
	             AND NOT EXISTS (SELECT 1 FROM bookings b WHERE b.slot_id = slots.id)`
	res, err := s.db.ExecContext(ctx, q, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// InsertSlot implements maintenance.Store.  The unique key on start_at
// makes generation idempotent: re-running maintenance inserts nothing
// for starts that already exist.  The bool reports whether a row was
// created; when it is true the id identifies the new slot.
func (s *Store) InsertSlot(ctx context.Context, start, end time.Time, location string) (uint64, bool, error) {
	const q = `INSERT IGNORE INTO slots (start_at, end_at, location) VALUES (?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q, start.UTC(), end.UTC(), nullString(location))
	if err != nil {
		return 0, false, err
	}
	n, err := res.RowsAffected()
	if err != nil || n == 0 {
		return 0, false, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, err
	}
	return uint64(id), true, nil
}

// HolidayDays implements maintenance.Store.
func (s *Store) HolidayDays(ctx context.Context, from, to string) (map[string]bool, error) {
	return s.Holidays.DaysBetween(ctx, from, to)
}

// DeleteMember removes a member and all dependent rows.  Slots held by
// the member's active bookings are released first so they go back on
// sale; the bookings, invites and refresh tokens then go with the
// member through ON DELETE CASCADE.
func (s *Store) DeleteMember(ctx context.Context, id uint64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		const free = `UPDATE slots s
		              JOIN bookings b ON b.slot_id = s.id
		              SET s.is_booked = 0
		              WHERE b.member_id = ? AND b.cancelled_at IS NULL`
		if _, err := tx.ExecContext(ctx, free, id); err != nil {
			return err
		}

		const del = `DELETE FROM members WHERE id = ?`
		res, err := tx.ExecContext(ctx, del, id)
		if err != nil {
			return err
		}
		n, err := affected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrMemberNotFound
		}
		return nil
	})
}
