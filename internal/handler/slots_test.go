package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotSpan(t *testing.T) {
	start := time.Date(2026, 9, 7, 17, 0, 0, 0, time.UTC)
	raw := start.Format(time.RFC3339)

	t.Run("default duration", func(t *testing.T) {
		gotStart, gotEnd, err := slotSpan(raw, 0, 60)
		require.NoError(t, err)
		assert.True(t, start.Equal(gotStart))
		assert.True(t, start.Add(time.Hour).Equal(gotEnd))
	})

	t.Run("duration override", func(t *testing.T) {
		_, gotEnd, err := slotSpan(raw, 90, 60)
		require.NoError(t, err)
		assert.True(t, start.Add(90*time.Minute).Equal(gotEnd))
	})

	t.Run("negative duration rejected", func(t *testing.T) {
		_, _, err := slotSpan(raw, -30, 60)
		assert.Error(t, err)
	})

	t.Run("bad start rejected", func(t *testing.T) {
		_, _, err := slotSpan("next tuesday", 0, 60)
		assert.Error(t, err)
	})
}

func TestHolidayKeys(t *testing.T) {
	got := holidayKeys(map[string]bool{
		"2026-12-25": true,
		"2026-01-01": true,
		"2026-08-31": true,
	})
	assert.Equal(t, []string{"2026-01-01", "2026-08-31", "2026-12-25"}, got)

	assert.Empty(t, holidayKeys(nil))
}
