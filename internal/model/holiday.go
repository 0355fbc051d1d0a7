package model

// Holiday is one excluded day in the availability calendar.  Day is a
// business-local calendar date in YYYY-MM-DD form.  Holidays suppress
// slot generation and are surfaced on the public listing; they are
// never a hard booking-time validation error.
type Holiday struct {
	Day  string `json:"day"`
	Note string `json:"note,omitempty"`
}
