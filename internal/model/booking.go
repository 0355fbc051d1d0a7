package model

import "time"

// Booking is a member's claim on one slot.  A booking with CancelledAt
// set is terminal: it is never un-cancelled, moved or re-cancelled.
// While a booking is active its slot must show IsBooked=true.
type Booking struct {
	ID          uint64     `json:"id"`
	MemberID    uint64     `json:"member_id"`
	SlotID      uint64     `json:"slot_id"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	Refunded    bool       `json:"refunded"`
}

// Active reports whether the booking still claims its slot.
func (b *Booking) Active() bool { return b.CancelledAt == nil }

// BookingDetail joins a booking with its slot and member.  It is the
// unit the cancellation and move engines operate on.
type BookingDetail struct {
	Booking Booking `json:"booking"`
	Slot    Slot    `json:"slot"`
	Member  Member  `json:"member"`
}
