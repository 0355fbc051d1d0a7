package model

import "time"

// Slot is a fixed-duration bookable time window at a location.  Start
// and end instants are stored in UTC; the schedule policy converts to
// the business timezone before evaluating weekday/hour rules.  A slot
// with IsBooked set is referenced by exactly one active booking.
type Slot struct {
	ID        uint64    `json:"id"`
	StartAt   time.Time `json:"start_at"`
	EndAt     time.Time `json:"end_at"`
	IsBooked  bool      `json:"is_booked"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
