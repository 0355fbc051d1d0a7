// Package maintenance keeps the slot horizon populated: it purges
// expired unbooked slots and regenerates future ones from the schedule
// policy.  The job is idempotent because the store enforces slot
// uniqueness on exact start-instant equality, so it is safe to run from
// the admin trigger and the nightly timer at the same time.
package maintenance

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cscoaching/slot-booking/internal/schedule"
)

// Store is the slice of persistence the maintainer needs.
type Store interface {
	// PurgeExpiredSlots deletes every slot that is unbooked, ended
	// before now and was never booked (slots referenced by booking
	// history are kept as historical record).  Returns the number of
	// rows removed.
	PurgeExpiredSlots(ctx context.Context, now time.Time) (int64, error)

	// InsertSlot creates an open slot unless one already exists at the
	// same start instant.  The bool reports whether a row was created;
	// when it is true the id identifies the new slot.
	InsertSlot(ctx context.Context, start, end time.Time, location string) (uint64, bool, error)

	// HolidayDays returns the set of business-local day keys
	// (YYYY-MM-DD) marked as holidays in the inclusive range.
	HolidayDays(ctx context.Context, from, to string) (map[string]bool, error)
}

// Maintainer purges and regenerates slots.
type Maintainer struct {
	store    Store
	policy   schedule.Policy
	duration time.Duration
	now      func() time.Time
}

// New constructs a Maintainer generating slots of the given duration.
func New(store Store, policy schedule.Policy, slotDuration time.Duration) *Maintainer {
	if store == nil {
		panic("nil store passed to maintenance.New")
	}
	return &Maintainer{store: store, policy: policy, duration: slotDuration, now: time.Now}
}

// Result summarises one maintenance run.
type Result struct {
	Purged  int64 `json:"purged"`
	Created int64 `json:"created"`
	Days    int   `json:"days"`
}

// Run purges expired unbooked slots and tops the horizon up to `days`
// days ahead (clamped to [1,31]).  Generation walks business-local
// calendar days so a daylight-saving transition inside the horizon
// still yields slots at the right wall-clock hours.  Days listed in the
// holiday calendar are skipped, as are start instants not strictly in
// the future.
func (m *Maintainer) Run(ctx context.Context, days int) (Result, error) {
	if days < 1 {
		days = 1
	}
	if days > 31 {
		days = 31
	}
	now := m.now()

	purged, err := m.store.PurgeExpiredSlots(ctx, now)
	if err != nil {
		return Result{}, fmt.Errorf("purge expired slots: %w", err)
	}

	loc := m.policy.Location()
	local := now.In(loc)
	// Midnight of today in the business timezone; AddDate keeps the
	// wall clock at midnight across DST changes.
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	holidays, err := m.store.HolidayDays(ctx,
		dayStart.Format("2006-01-02"),
		dayStart.AddDate(0, 0, days-1).Format("2006-01-02"))
	if err != nil {
		return Result{}, fmt.Errorf("load holidays: %w", err)
	}

	var created int64
	for i := 0; i < days; i++ {
		day := dayStart.AddDate(0, 0, i)
		rule, open := m.policy.Rule(day.Weekday())
		if !open {
			continue
		}
		if holidays[day.Format("2006-01-02")] {
			continue
		}
		for _, h := range rule.Hours() {
			start := time.Date(day.Year(), day.Month(), day.Day(), h, 0, 0, 0, loc)
			if !start.After(now) {
				continue
			}
			_, ok, err := m.store.InsertSlot(ctx, start.UTC(), start.Add(m.duration).UTC(), rule.Location)
			if err != nil {
				return Result{}, fmt.Errorf("insert slot at %s: %w", start, err)
			}
			if ok {
				created++
			}
		}
	}
	return Result{Purged: purged, Created: created, Days: days}, nil
}

// StartDaily runs Run once per day at the given business-local HH:MM
// until the context is cancelled.  The next fire time is recomputed
// after every run, which keeps the wall-clock time stable across
// daylight-saving transitions.  Failures are logged and the loop keeps
// going.
func (m *Maintainer) StartDaily(ctx context.Context, at string, days int) {
	var hh, mm int
	if _, err := fmt.Sscanf(at, "%d:%d", &hh, &mm); err != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		log.Printf("maintenance: invalid schedule %q, using 02:15", at)
		hh, mm = 2, 15
	}
	go func() {
		for {
			now := m.now()
			local := now.In(m.policy.Location())
			next := time.Date(local.Year(), local.Month(), local.Day(), hh, mm, 0, 0, m.policy.Location())
			if !next.After(now) {
				next = next.AddDate(0, 0, 1)
			}
			timer := time.NewTimer(next.Sub(now))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			res, err := m.Run(ctx, days)
			if err != nil {
				log.Printf("maintenance: nightly run failed: %v", err)
				continue
			}
			log.Printf("maintenance: nightly run purged %d, created %d", res.Purged, res.Created)
		}
	}()
}
