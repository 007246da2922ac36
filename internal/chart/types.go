// Package chart turns weekly chart pages into structured entries and
// canonical matching keys.
package chart

import "time"

// Entry is one ranked row of a weekly chart page.
type Entry struct {
	Rank   int
	Title  string
	Artist string
}

// ScanState is the persisted backfill progress marker for one
// (source, chart) pair.
type ScanState struct {
	Source           string
	Chart            string
	LastScannedDate  *time.Time
	BackfillComplete bool
	UpdatedAt        time.Time
}

// Clock supplies the current time; injected so date alignment is testable.
type Clock interface {
	Now() time.Time
}
