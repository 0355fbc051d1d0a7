package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cscoaching/slot-booking/internal/notify"
)

// RefundCutoff is how long before the slot start a member-initiated
// cancellation still earns the credit back.
const RefundCutoff = 24 * time.Hour

// notifyTimeout bounds each fire-and-forget dispatch so a dead broker
// cannot pile up goroutines forever.
const notifyTimeout = 10 * time.Second

// Engine coordinates booking, cancellation and move operations.  All
// state lives behind the Store; the engine owns the ordering of checks,
// the refund rule and the post-commit notification dispatch.  A nil
// clock defaults to time.Now so tests can pin the refund cutoff.
type Engine struct {
	store    Store
	notifier notify.Notifier
	now      func() time.Time
}

// NewEngine constructs an Engine.  Both dependencies must be non-nil.
func NewEngine(store Store, notifier notify.Notifier) *Engine {
	if store == nil || notifier == nil {
		panic("nil dependency passed to NewEngine")
	}
	return &Engine{store: store, notifier: notifier, now: time.Now}
}

// BookResult is returned on a successful booking.
type BookResult struct {
	BookingID uint64 `json:"booking_id"`
	Credits   int64  `json:"credits"`
}

// Book reserves a slot for the member identified by email, spending one
// credit.  Failure modes, in evaluation order: ErrSlotNotFound,
// ErrSlotTaken, ErrNotMember, ErrNoCredits.  The first two credit/slot
// checks are advisory fast paths; the store's guarded transaction is
// what actually closes the race, and it reports the identical sentinel
// when a concurrent request wins.  On success three notifications go
// out after commit (admin alert, member confirmation and, when the
// balance hits zero, a top-up warning); none of them can fail the
// booking.
func (e *Engine) Book(ctx context.Context, slotID uint64, email, notes string) (BookResult, error) {
	slot, err := e.store.SlotByID(ctx, slotID)
	if err != nil {
		return BookResult{}, err
	}
	if slot.IsBooked {
		return BookResult{}, ErrSlotTaken
	}
	member, err := e.store.MemberByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return BookResult{}, err
	}
	if member.Credits <= 0 {
		return BookResult{}, ErrNoCredits
	}

	bookingID, remaining, err := e.store.CreateBooking(ctx, slot.ID, member.ID, notes)
	if err != nil {
		return BookResult{}, err
	}

	e.dispatch(func(ctx context.Context) {
		ev := notify.Event{
			BookingID:   bookingID,
			MemberName:  member.Name,
			MemberEmail: member.Email,
			StartsAt:    slot.StartAt.UTC().Format(time.RFC3339),
			EndsAt:      slot.EndAt.UTC().Format(time.RFC3339),
			Location:    slot.Location,
			Credits:     &remaining,
		}
		_ = e.notifier.AdminNewBooking(ctx, ev)
		_ = e.notifier.MemberConfirmation(ctx, ev)
		if remaining == 0 {
			_ = e.notifier.ZeroCredits(ctx, ev)
		}
	})

	return BookResult{BookingID: bookingID, Credits: remaining}, nil
}

// CancelResult is returned by both cancellation paths.
type CancelResult struct {
	Refunded bool `json:"refunded"`
}

// CancelByMember cancels one of the member's own bookings.  The refund
// is rule-based: the credit comes back iff the cancellation lands more
// than RefundCutoff before the slot starts.  A booking belonging to a
// different member is reported as ErrNotFound rather than leaking its
// existence.
func (e *Engine) CancelByMember(ctx context.Context, bookingID, memberID uint64) (CancelResult, error) {
	det, err := e.store.BookingByID(ctx, bookingID)
	if err != nil {
		return CancelResult{}, err
	}
	if det.Booking.MemberID != memberID {
		return CancelResult{}, ErrNotFound
	}
	if !det.Booking.Active() {
		return CancelResult{}, ErrAlreadyCancelled
	}
	refund := e.now().Before(det.Slot.StartAt.Add(-RefundCutoff))
	if err := e.store.CancelBooking(ctx, bookingID, refund); err != nil {
		return CancelResult{}, err
	}
	return CancelResult{Refunded: refund}, nil
}

// CancelByAdmin cancels any active booking.  The refund is the admin's
// explicit choice and overrides the cutoff rule.  The member is told
// their session was cancelled by the coach, fire-and-forget.
func (e *Engine) CancelByAdmin(ctx context.Context, bookingID uint64, refund bool) (CancelResult, error) {
	det, err := e.store.BookingByID(ctx, bookingID)
	if err != nil {
		return CancelResult{}, err
	}
	if !det.Booking.Active() {
		return CancelResult{}, ErrAlreadyCancelled
	}
	if err := e.store.CancelBooking(ctx, bookingID, refund); err != nil {
		return CancelResult{}, err
	}

	r := refund
	e.dispatch(func(ctx context.Context) {
		_ = e.notifier.Cancellation(ctx, notify.Event{
			BookingID:   bookingID,
			MemberName:  det.Member.Name,
			MemberEmail: det.Member.Email,
			StartsAt:    det.Slot.StartAt.UTC().Format(time.RFC3339),
			Location:    det.Slot.Location,
			Refunded:    &r,
		})
	})

	return CancelResult{Refunded: refund}, nil
}

// Move relocates an active booking onto a different open slot in the
// future.  No credit changes hands.  The member gets a reschedule
// notice carrying the old and new times.
func (e *Engine) Move(ctx context.Context, bookingID, newSlotID uint64) (uint64, error) {
	det, err := e.store.BookingByID(ctx, bookingID)
	if err != nil {
		return 0, err
	}
	if !det.Booking.Active() {
		return 0, ErrAlreadyCancelled
	}
	target, err := e.store.SlotByID(ctx, newSlotID)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return 0, ErrTargetNotFound
		}
		return 0, err
	}
	if target.IsBooked {
		return 0, ErrTargetBooked
	}
	if !target.StartAt.After(e.now()) {
		return 0, ErrTargetInPast
	}
	if err := e.store.MoveBooking(ctx, bookingID, det.Slot.ID, target.ID); err != nil {
		return 0, err
	}

	e.dispatch(func(ctx context.Context) {
		_ = e.notifier.Reschedule(ctx, notify.Event{
			BookingID:   bookingID,
			MemberName:  det.Member.Name,
			MemberEmail: det.Member.Email,
			OldStartsAt: det.Slot.StartAt.UTC().Format(time.RFC3339),
			StartsAt:    target.StartAt.UTC().Format(time.RFC3339),
			EndsAt:      target.EndAt.UTC().Format(time.RFC3339),
			Location:    target.Location,
		})
	})

	return target.ID, nil
}

// dispatch runs fn on its own goroutine with a bounded context.  It is
// only ever called after the store transaction has committed, so no
// lock or transaction is held across the network hop.
func (e *Engine) dispatch(fn func(ctx context.Context)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		fn(ctx)
	}()
}
