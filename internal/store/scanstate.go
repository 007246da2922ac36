package store

import (
	"context"
	"fmt"
	"time"

	"github.com/tonearc/chartpulse/internal/chart"
)

// GetOrCreateScanState loads the scan state for one (source, chart) pair,
// creating the row on first reference with no last-scanned date and backfill
// incomplete.
func (s *Store) GetOrCreateScanState(ctx context.Context, source, name string) (chart.ScanState, error) {
	const insert = `
INSERT INTO chart_scan_state (chart_source, chart_name, last_scanned_date, backfill_complete, updated_at)
VALUES ($1, $2, NULL, FALSE, NOW())
ON CONFLICT (chart_source, chart_name) DO NOTHING`
	if _, err := s.pool.Exec(ctx, insert, source, name); err != nil {
		return chart.ScanState{}, fmt.Errorf("create scan state: %w", err)
	}

	const query = `
SELECT last_scanned_date, backfill_complete, updated_at
FROM chart_scan_state
WHERE chart_source = $1 AND chart_name = $2`
	state := chart.ScanState{Source: source, Chart: name}
	var last *time.Time
	err := s.pool.QueryRow(ctx, query, source, name).
		Scan(&last, &state.BackfillComplete, &state.UpdatedAt)
	if err != nil {
		return chart.ScanState{}, fmt.Errorf("load scan state: %w", err)
	}
	state.LastScannedDate = last
	return state, nil
}

// SaveScanState persists the progress marker. Last writer wins; there is no
// row-level coordination between concurrent runs.
func (s *Store) SaveScanState(ctx context.Context, state chart.ScanState) error {
	const query = `
UPDATE chart_scan_state
SET last_scanned_date = $3, backfill_complete = $4, updated_at = NOW()
WHERE chart_source = $1 AND chart_name = $2`
	_, err := s.pool.Exec(ctx, query,
		state.Source, state.Chart, state.LastScannedDate, state.BackfillComplete)
	if err != nil {
		return fmt.Errorf("save scan state: %w", err)
	}
	return nil
}

// ResetScanState clears the marker back to its initial value so the backward
// scan restarts from the latest chart date.
func (s *Store) ResetScanState(ctx context.Context, source, name string) error {
	const query = `
UPDATE chart_scan_state
SET last_scanned_date = NULL, backfill_complete = FALSE, updated_at = NOW()
WHERE chart_source = $1 AND chart_name = $2`
	if _, err := s.pool.Exec(ctx, query, source, name); err != nil {
		return fmt.Errorf("reset scan state: %w", err)
	}
	return nil
}
