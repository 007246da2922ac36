package backfill

import (
	"time"

	"github.com/tonearc/chartpulse/internal/chart"
)

const chartWeekStep = 7 // days between consecutive chart dates

// scanWindow computes the dates a chart backfill run should scan, given the
// persisted state, the latest aligned chart date, and the chart's cutoff.
//
// While backfill is incomplete the walk steps backward from the last scanned
// date (or from the latest date on first reference) and stops the moment a
// candidate falls before the cutoff; crossing the cutoff reports the
// backfill complete. Once complete, the walk steps forward from the last
// scanned date, never past the latest date.
func scanWindow(state chart.ScanState, latest, cutoff time.Time, weeks int) (dates []time.Time, crossedCutoff bool) {
	if weeks <= 0 {
		return nil, false
	}

	if !state.BackfillComplete {
		next := latest
		if state.LastScannedDate != nil {
			next = state.LastScannedDate.AddDate(0, 0, -chartWeekStep)
		}
		for i := 0; i < weeks; i++ {
			if next.Before(cutoff) {
				return dates, true
			}
			dates = append(dates, next)
			next = next.AddDate(0, 0, -chartWeekStep)
		}
		return dates, false
	}

	if state.LastScannedDate == nil {
		// Completed state always carries a last scanned date; tolerate a
		// manually edited row by rescanning just the latest date.
		return []time.Time{latest}, false
	}
	next := state.LastScannedDate.AddDate(0, 0, chartWeekStep)
	for i := 0; i < weeks && !next.After(latest); i++ {
		dates = append(dates, next)
		next = next.AddDate(0, 0, chartWeekStep)
	}
	return dates, false
}
