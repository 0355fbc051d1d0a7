// Package schedule holds the weekday/hour/location whitelist governing
// which slots may exist.  The policy is pure: it owns no database state
// and evaluates everything on the wall clock of the business timezone,
// never the process-local zone.  Holiday exclusion is applied by the
// callers that read or generate slots, not here, because a holiday is a
// display/generation concern rather than a hard validation error.
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Typed rejection reasons surfaced to the API as DAY_NOT_ALLOWED and
// HOUR_NOT_ALLOWED.
var (
	ErrDayNotAllowed  = errors.New("no coaching on this day")
	ErrHourNotAllowed = errors.New("hour outside the coaching window")
)

// Rule is the bookable window for one weekday.  Start hours run from
// FirstHour to LastHour inclusive; a slot starting at LastHour still
// fits because slots are a fixed duration inside the window.
type Rule struct {
	Location  string
	FirstHour int
	LastHour  int
}

// Hours returns every legal start hour for the rule, in order.
func (r Rule) Hours() []int {
	hs := make([]int, 0, r.LastHour-r.FirstHour+1)
	for h := r.FirstHour; h <= r.LastHour; h++ {
		hs = append(hs, h)
	}
	return hs
}

// Policy decides whether a given start instant and location is a legal
// bookable slot.  It is immutable after construction and safe for
// concurrent use.
type Policy struct {
	loc   *time.Location
	rules map[time.Weekday]Rule
}

// New builds a policy over the given business timezone and weekday
// table.  Weekdays absent from the table are closed.
func New(loc *time.Location, rules map[time.Weekday]Rule) Policy {
	cp := make(map[time.Weekday]Rule, len(rules))
	for d, r := range rules {
		cp[d] = r
	}
	return Policy{loc: loc, rules: cp}
}

// Default returns the coaching calendar the business runs on: Monday
// 17:00-21:00 in Scunthorpe, Tuesday 17:00-22:00 in Hull, Wednesday
// 18:00-22:00 in Shipley and Thursday 17:00-22:00 in Hull.
func Default(loc *time.Location) Policy {
	return New(loc, map[time.Weekday]Rule{
		time.Monday:    {Location: "Scunthorpe", FirstHour: 17, LastHour: 20},
		time.Tuesday:   {Location: "Hull", FirstHour: 17, LastHour: 21},
		time.Wednesday: {Location: "Shipley", FirstHour: 18, LastHour: 21},
		time.Thursday:  {Location: "Hull", FirstHour: 17, LastHour: 21},
	})
}

// Location returns the business timezone the policy evaluates in.
func (p Policy) Location() *time.Location { return p.loc }

// Rule returns the weekday rule, if the day is open at all.
func (p Policy) Rule(d time.Weekday) (Rule, bool) {
	r, ok := p.rules[d]
	return r, ok
}

// IsBookable reports whether a slot may start at the given instant and
// location.  The instant is converted to the business timezone before
// the weekday and hour are read, so the answer does not drift across
// daylight-saving transitions.  A blank location matches the weekday's
// default venue; otherwise the location must mention it.
func (p Policy) IsBookable(start time.Time, location string) error {
	local := start.In(p.loc)
	rule, ok := p.rules[local.Weekday()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDayNotAllowed, local.Weekday())
	}
	h := local.Hour()
	if h < rule.FirstHour || h > rule.LastHour {
		return fmt.Errorf("%w: %02d:00 on %s", ErrHourNotAllowed, h, local.Weekday())
	}
	if !locationMatches(location, rule.Location) {
		return fmt.Errorf("%w: %s", ErrDayNotAllowed, local.Weekday())
	}
	return nil
}

// AllowedStartHours returns the legal start hours for a weekday and
// location, or nil when the day is closed or the location does not
// match the weekday's venue.
func (p Policy) AllowedStartHours(d time.Weekday, location string) []int {
	rule, ok := p.rules[d]
	if !ok || !locationMatches(location, rule.Location) {
		return nil
	}
	return rule.Hours()
}

// DefaultLocation returns the venue for a weekday, empty when closed.
func (p Policy) DefaultLocation(d time.Weekday) string {
	return p.rules[d].Location
}

// DayKey renders an instant as the business-local calendar day in
// YYYY-MM-DD form.  Holiday entries are keyed this way.
func (p Policy) DayKey(t time.Time) string {
	return t.In(p.loc).Format("2006-01-02")
}

// locationMatches applies the blank-matches-default rule: an empty slot
// location is implicitly the weekday's venue, anything else must
// contain the venue name, case-insensitively.
func locationMatches(location, venue string) bool {
	l := strings.ToLower(strings.TrimSpace(location))
	if l == "" {
		return true
	}
	return strings.Contains(l, strings.ToLower(venue))
}
