package chart

import "time"

// Weekly charts publish on Saturdays.
const publishWeekday = time.Saturday

// Earliest chart date per known chart slug. Backfill past these dates is
// pointless; the pages do not exist.
var chartLaunchDates = map[string]time.Time{
	"hot-100":       time.Date(1958, time.August, 9, 0, 0, 0, 0, time.UTC),
	"billboard-200": time.Date(1963, time.August, 17, 0, 0, 0, 0, time.UTC),
	"global-200":    time.Date(2020, time.September, 19, 0, 0, 0, 0, time.UTC),
}

// AlignDate snaps an arbitrary date backward to the canonical publish
// weekday. Aligned dates are fixed points: AlignDate(AlignDate(d)) == AlignDate(d).
func AlignDate(d time.Time) time.Time {
	d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	back := (int(d.Weekday()) - int(publishWeekday) + 7) % 7
	return d.AddDate(0, 0, -back)
}

// StartDate returns the backfill cutoff for a chart: the launch date for
// known charts, otherwise two years before the latest aligned date. Dates
// earlier than the cutoff are never scanned.
func StartDate(chartName string, latestAligned time.Time) time.Time {
	if launch, ok := chartLaunchDates[chartName]; ok {
		return launch
	}
	return AlignDate(latestAligned.AddDate(-2, 0, 0))
}
