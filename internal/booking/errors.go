// Package booking implements the slot-booking and credit-settlement
// engine: booking a slot spends a credit, cancelling may refund it and
// moving relocates an active booking, all atomically against the store.
package booking

import "errors"

// Sentinel errors shared by the engine and its store implementations.
// The store returns ErrNoCredits/ErrSlotTaken from the guarded updates
// inside its transaction when a concurrent request wins the race, so
// callers see exactly the same failure whether it is detected up front
// or at commit time.  Handlers translate these into stable API codes.
var (
	ErrSlotNotFound     = errors.New("slot not found")
	ErrSlotTaken        = errors.New("slot already booked")
	ErrNotMember        = errors.New("email does not belong to a registered member")
	ErrNoCredits        = errors.New("no session credits remaining")
	ErrNotFound         = errors.New("booking not found")
	ErrAlreadyCancelled = errors.New("booking already cancelled")
	ErrTargetNotFound   = errors.New("target slot not found")
	ErrTargetBooked     = errors.New("target slot already booked")
	ErrTargetInPast     = errors.New("target slot starts in the past")
	ErrDuplicateStart   = errors.New("a slot already exists at this start time")
)
