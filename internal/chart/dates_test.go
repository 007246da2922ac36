package chart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAlignDateSnapsBackwardToSaturday(t *testing.T) {
	t.Parallel()

	// 2024-01-06 is a Saturday.
	saturday := time.Date(2024, time.January, 6, 0, 0, 0, 0, time.UTC)
	for offset := 0; offset < 7; offset++ {
		d := saturday.AddDate(0, 0, offset)
		aligned := AlignDate(d)
		require.Equal(t, time.Saturday, aligned.Weekday(), "offset %d", offset)
		require.False(t, aligned.After(d))
		require.Equal(t, saturday, aligned, "offset %d", offset)
	}
}

func TestAlignDateIdempotent(t *testing.T) {
	t.Parallel()

	d := time.Date(2024, time.March, 14, 17, 45, 3, 0, time.UTC)
	once := AlignDate(d)
	require.Equal(t, once, AlignDate(once))
	require.Equal(t, time.Saturday, once.Weekday())
}

func TestStartDateKnownChart(t *testing.T) {
	t.Parallel()

	latest := time.Date(2024, time.January, 6, 0, 0, 0, 0, time.UTC)
	require.Equal(t,
		time.Date(1958, time.August, 9, 0, 0, 0, 0, time.UTC),
		StartDate("hot-100", latest))
	require.Equal(t,
		time.Date(2020, time.September, 19, 0, 0, 0, 0, time.UTC),
		StartDate("global-200", latest))
}

func TestStartDateUnknownChartDefaultsToTwoYears(t *testing.T) {
	t.Parallel()

	latest := time.Date(2024, time.January, 6, 0, 0, 0, 0, time.UTC)
	cutoff := StartDate("indie-500", latest)
	require.Equal(t, time.Saturday, cutoff.Weekday())
	require.Equal(t, time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC), cutoff)
}
