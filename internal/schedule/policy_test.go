package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func london(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)
	return loc
}

func TestIsBookableWeekdayRules(t *testing.T) {
	loc := london(t)
	p := Default(loc)

	// Monday 2026-01-05 17:00 Scunthorpe is the first legal Monday slot.
	ok := time.Date(2026, 1, 5, 17, 0, 0, 0, loc)
	assert.NoError(t, p.IsBookable(ok, "Scunthorpe"))

	// Monday 21:00 is past the last start hour (20).
	late := time.Date(2026, 1, 5, 21, 0, 0, 0, loc)
	assert.ErrorIs(t, p.IsBookable(late, "Scunthorpe"), ErrHourNotAllowed)

	// Monday 16:00 is before the window opens.
	early := time.Date(2026, 1, 5, 16, 0, 0, 0, loc)
	assert.ErrorIs(t, p.IsBookable(early, "Scunthorpe"), ErrHourNotAllowed)

	// Friday is closed entirely.
	friday := time.Date(2026, 1, 9, 17, 0, 0, 0, loc)
	assert.ErrorIs(t, p.IsBookable(friday, ""), ErrDayNotAllowed)

	// Sunday too.
	sunday := time.Date(2026, 1, 11, 18, 0, 0, 0, loc)
	assert.ErrorIs(t, p.IsBookable(sunday, ""), ErrDayNotAllowed)
}

func TestIsBookableLastHourInclusive(t *testing.T) {
	loc := london(t)
	p := Default(loc)

	// Tuesday runs 17-21; a slot starting at 21:00 still fits.
	tue := time.Date(2026, 1, 6, 21, 0, 0, 0, loc)
	assert.NoError(t, p.IsBookable(tue, "Hull"))

	wed := time.Date(2026, 1, 7, 18, 0, 0, 0, loc)
	assert.NoError(t, p.IsBookable(wed, "Shipley"))
	wedEarly := time.Date(2026, 1, 7, 17, 0, 0, 0, loc)
	assert.ErrorIs(t, p.IsBookable(wedEarly, "Shipley"), ErrHourNotAllowed)
}

func TestIsBookableLocationMatching(t *testing.T) {
	loc := london(t)
	p := Default(loc)
	mon := time.Date(2026, 1, 5, 18, 0, 0, 0, loc)

	// Blank matches the weekday default.
	assert.NoError(t, p.IsBookable(mon, ""))
	// Case-insensitive substring match.
	assert.NoError(t, p.IsBookable(mon, "scunthorpe leisure centre"))
	// The wrong venue on the right day is rejected.
	assert.Error(t, p.IsBookable(mon, "Hull"))
}

func TestIsBookableAcrossDSTTransition(t *testing.T) {
	loc := london(t)
	p := Default(loc)

	// 2026-03-30 is the Monday after the clocks go forward: 17:00 local
	// is 16:00 UTC.  The policy must judge the local wall clock.
	utcInstant := time.Date(2026, 3, 30, 16, 0, 0, 0, time.UTC)
	require.Equal(t, 17, utcInstant.In(loc).Hour())
	assert.NoError(t, p.IsBookable(utcInstant, "Scunthorpe"))

	// In winter the same wall-clock slot is 17:00 UTC.
	winter := time.Date(2026, 1, 5, 17, 0, 0, 0, time.UTC)
	require.Equal(t, 17, winter.In(loc).Hour())
	assert.NoError(t, p.IsBookable(winter, "Scunthorpe"))
}

func TestAllowedStartHours(t *testing.T) {
	loc := london(t)
	p := Default(loc)

	assert.Equal(t, []int{17, 18, 19, 20}, p.AllowedStartHours(time.Monday, ""))
	assert.Equal(t, []int{17, 18, 19, 20, 21}, p.AllowedStartHours(time.Tuesday, "Hull"))
	assert.Nil(t, p.AllowedStartHours(time.Friday, ""))
	assert.Nil(t, p.AllowedStartHours(time.Tuesday, "Shipley"))
}

func TestDefaultLocation(t *testing.T) {
	p := Default(london(t))
	assert.Equal(t, "Scunthorpe", p.DefaultLocation(time.Monday))
	assert.Equal(t, "Hull", p.DefaultLocation(time.Thursday))
	assert.Equal(t, "", p.DefaultLocation(time.Saturday))
}

func TestDayKeyUsesBusinessZone(t *testing.T) {
	loc := london(t)
	p := Default(loc)

	// 23:30 UTC on a summer evening is already the next day in London.
	instant := time.Date(2026, 6, 1, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-06-02", p.DayKey(instant))

	// In winter London matches UTC.
	instant = time.Date(2026, 1, 5, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-01-05", p.DayKey(instant))
}

func TestRuleHours(t *testing.T) {
	r := Rule{Location: "Hull", FirstHour: 17, LastHour: 21}
	assert.Equal(t, []int{17, 18, 19, 20, 21}, r.Hours())
}
