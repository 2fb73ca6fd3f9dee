package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeCompletionDateUnits(t *testing.T) {
	cases := []struct {
		name     string
		start    time.Time
		duration string
		want     time.Time
	}{
		{"days", date(2024, time.January, 15), "45 days", date(2024, time.February, 29)},
		{"single day", date(2024, time.January, 15), "1 day", date(2024, time.January, 16)},
		{"weeks", date(2024, time.January, 15), "2 weeks", date(2024, time.January, 29)},
		{"months", date(2024, time.January, 15), "6 months", date(2024, time.July, 15)},
		{"years", date(2023, time.March, 1), "1 year", date(2024, time.March, 1)},
		{"case insensitive", date(2024, time.January, 15), "6 MONTHS", date(2024, time.July, 15)},
		{"no space", date(2024, time.January, 15), "3month", date(2024, time.April, 15)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ComputeCompletionDate(tc.start, tc.duration)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestComputeCompletionDateClampsMonthEnd(t *testing.T) {
	// Jan 31 + 1 month lands on the last valid day of February.
	got, ok := ComputeCompletionDate(date(2024, time.January, 31), "1 month")
	require.True(t, ok)
	assert.Equal(t, date(2024, time.February, 29), got)

	got, ok = ComputeCompletionDate(date(2023, time.January, 31), "1 month")
	require.True(t, ok)
	assert.Equal(t, date(2023, time.February, 28), got)

	// Leap day + 1 year clamps to Feb 28.
	got, ok = ComputeCompletionDate(date(2024, time.February, 29), "1 year")
	require.True(t, ok)
	assert.Equal(t, date(2025, time.February, 28), got)
}

func TestComputeCompletionDateDeterministic(t *testing.T) {
	start := date(2024, time.January, 15)
	first, ok := ComputeCompletionDate(start, "6 months")
	require.True(t, ok)
	for i := 0; i < 5; i++ {
		again, ok := ComputeCompletionDate(start, "6 months")
		require.True(t, ok)
		assert.Equal(t, first, again)
	}
}

func TestComputeCompletionDateUnparseable(t *testing.T) {
	for _, duration := range []string{"", "lifetime access", "self paced", "months"} {
		_, ok := ComputeCompletionDate(date(2024, time.January, 15), duration)
		assert.False(t, ok, "duration %q should not be computable", duration)
	}

	_, ok := ComputeCompletionDate(time.Time{}, "6 months")
	assert.False(t, ok, "zero start date should not be computable")
}

func TestIsCompletedBoundary(t *testing.T) {
	start := date(2024, time.January, 15)
	end := date(2024, time.July, 15)

	assert.True(t, IsCompleted(start, "6 months", end))
	assert.False(t, IsCompleted(start, "6 months", end.Add(-time.Second)))
	assert.True(t, IsCompleted(start, "6 months", end.Add(time.Hour)))
}

func TestIsCompletedUnparseableDuration(t *testing.T) {
	start := date(2024, time.January, 15)
	assert.False(t, IsCompleted(start, "lifetime access", date(2100, time.January, 1)))
}
