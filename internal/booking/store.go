package booking

import (
	"context"

	"github.com/cscoaching/slot-booking/internal/model"
)

// Store is the persistence contract the engine needs.  The three write
// operations are atomic all-or-nothing units built from conditional
// updates: CreateBooking decrements the member's credit only while it
// is positive and flips the slot only while it is free, CancelBooking
// stamps the cancellation only while the booking is still active, and
// MoveBooking claims the target slot only while it is unbooked.  A
// guard that matches zero rows aborts the whole unit with the matching
// sentinel error, leaving no net side effect.  The SQL implementation
// lives in the repository package; tests use an in-memory fake.
type Store interface {
	// SlotByID returns ErrSlotNotFound when no such slot exists.
	SlotByID(ctx context.Context, id uint64) (*model.Slot, error)

	// MemberByEmail looks a member up case-insensitively and returns
	// ErrNotMember when the email is unknown.
	MemberByEmail(ctx context.Context, email string) (*model.Member, error)

	// BookingByID returns the booking joined with its slot and member,
	// or ErrNotFound.
	BookingByID(ctx context.Context, id uint64) (*model.BookingDetail, error)

	// CreateBooking atomically spends one credit (guarded by
	// credits > 0), marks the slot booked (guarded by is_booked = 0)
	// and inserts the booking row.  It returns the new booking ID and
	// the member's post-decrement balance, or ErrNoCredits /
	// ErrSlotTaken when a guard loses its race.
	CreateBooking(ctx context.Context, slotID, memberID uint64, notes string) (bookingID uint64, remaining int64, err error)

	// CancelBooking atomically stamps the cancellation (guarded by
	// cancelled_at IS NULL, returning ErrAlreadyCancelled otherwise),
	// frees the slot and, iff refund is set, restores one credit.
	CancelBooking(ctx context.Context, bookingID uint64, refund bool) error

	// MoveBooking atomically claims the new slot (guarded by
	// is_booked = 0, returning ErrTargetBooked otherwise), frees the
	// old one and repoints the booking (guarded by the booking still
	// being active, returning ErrAlreadyCancelled otherwise).
	MoveBooking(ctx context.Context, bookingID, oldSlotID, newSlotID uint64) error
}
