package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeOfDayAtAnchorsOnDate(t *testing.T) {
	date := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	slot := NewTimeOfDay(16, 30)
	require.Equal(t, time.Date(2026, 5, 10, 16, 30, 0, 0, time.UTC), slot.At(date))
	require.Equal(t, "16:30", slot.String())
}

func TestTimeOfDayUnscheduledFallsBackToNoon(t *testing.T) {
	date := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	var slot TimeOfDay
	require.False(t, slot.Scheduled)
	require.Equal(t, time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC), slot.At(date))
	require.Equal(t, "flexible", slot.String())
}

func TestParseTimeOfDay(t *testing.T) {
	parsed := ParseTimeOfDay("09:00")
	require.True(t, parsed.Scheduled)
	require.Equal(t, 9, parsed.Hour)
	require.Equal(t, 0, parsed.Minute)

	for _, invalid := range []string{"", "flexible", "25:00", "10:99", "10", "ab:cd"} {
		parsed := ParseTimeOfDay(invalid)
		require.False(t, parsed.Scheduled, "input %q should be unscheduled", invalid)
	}
}

func TestDaySlotsLadder(t *testing.T) {
	require.Len(t, DaySlots, 5)
	require.Equal(t, "09:00", DaySlots[0].String())
	require.Equal(t, "11:30", DaySlots[1].String())
	require.Equal(t, "14:00", DaySlots[2].String())
	require.Equal(t, "16:30", DaySlots[3].String())
	require.Equal(t, "19:00", DaySlots[4].String())
}
