package backfill

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tonearc/chartpulse/internal/chart"
	"github.com/tonearc/chartpulse/internal/metrics"
)

// ChartParams are the arguments of one chart backfill run.
type ChartParams struct {
	Source     string
	Chart      string
	Weeks      int
	ForceReset bool
}

// Orchestrator drives the sequential chart scan: one date at a time, with a
// politeness sleep between dates, persisting progress as it goes. This path
// is deliberately not concurrent; the chart site is rate sensitive.
type Orchestrator struct {
	store   ChartStore
	fetcher EntryFetcher
	stop    StopSignal
	clock   chart.Clock
	sleeper Sleeper
	logger  *zap.Logger
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(
	st ChartStore,
	fetcher EntryFetcher,
	stop StopSignal,
	clock chart.Clock,
	sleeper Sleeper,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		store:   st,
		fetcher: fetcher,
		stop:    stop,
		clock:   clock,
		sleeper: sleeper,
		logger:  logger,
	}
}

// Run executes one chart backfill window. Fetch failures skip the date and
// the run continues; only state-loading errors abort the whole run.
func (o *Orchestrator) Run(ctx context.Context, params ChartParams) error {
	if o.stop.StopRequested() {
		o.logger.Info("stop requested, chart backfill not started",
			zap.String("source", params.Source), zap.String("chart", params.Chart))
		return nil
	}

	if params.ForceReset {
		if err := o.store.ResetScanState(ctx, params.Source, params.Chart); err != nil {
			return fmt.Errorf("force reset scan state: %w", err)
		}
	}
	state, err := o.store.GetOrCreateScanState(ctx, params.Source, params.Chart)
	if err != nil {
		return fmt.Errorf("load scan state: %w", err)
	}

	latest := chart.AlignDate(o.clock.Now())
	cutoff := chart.StartDate(params.Chart, latest)
	dates, crossedCutoff := scanWindow(state, latest, cutoff, params.Weeks)
	if len(dates) == 0 && !crossedCutoff {
		o.logger.Info("chart backfill window empty",
			zap.String("source", params.Source), zap.String("chart", params.Chart))
		return nil
	}

	if len(dates) == 0 {
		// The very first candidate already fell before the cutoff; record
		// completion without fetching anything.
		state.BackfillComplete = true
		state.LastScannedDate = &latest
		if err := o.store.SaveScanState(ctx, state); err != nil {
			return fmt.Errorf("save scan state: %w", err)
		}
		return nil
	}

	artistKeys, err := o.store.ArtistKeysByNormalizedName(ctx)
	if err != nil {
		return fmt.Errorf("load artist keys: %w", err)
	}

	o.logger.Info("chart backfill starting",
		zap.String("source", params.Source),
		zap.String("chart", params.Chart),
		zap.Int("dates", len(dates)),
		zap.Time("cutoff", cutoff),
		zap.Bool("backward", !state.BackfillComplete))

	scanned := 0
	for _, date := range dates {
		if o.stop.StopRequested() {
			o.logger.Info("stop requested, chart backfill halting",
				zap.String("chart", params.Chart), zap.Int("scanned", scanned))
			break
		}
		o.scanDate(ctx, params, date, artistKeys)
		scanned++
		// Politeness pause even after a failed date; the site saw a request
		// either way.
		o.sleeper.Sleep(ctx)
	}

	next := nextState(state, dates[:scanned], latest, crossedCutoff, scanned == len(dates))
	if next == nil {
		return nil
	}
	if err := o.store.SaveScanState(ctx, *next); err != nil {
		return fmt.Errorf("save scan state: %w", err)
	}
	return nil
}

// scanDate fetches and persists one chart date. Failures are logged and
// swallowed; the date is simply skipped until a future run.
func (o *Orchestrator) scanDate(ctx context.Context, params ChartParams, date time.Time, artistKeys map[string]int64) {
	entries, err := o.fetcher.FetchEntries(ctx, params.Chart, date)
	if err != nil {
		metrics.ObserveChartDate(params.Chart, "failed")
		o.logger.Warn("chart fetch failed",
			zap.String("chart", params.Chart), zap.Time("date", date), zap.Error(err))
		return
	}
	if err := o.store.UpsertChartEntries(ctx, params.Source, params.Chart, date, entries); err != nil {
		metrics.ObserveChartDate(params.Chart, "failed")
		o.logger.Error("store chart entries failed",
			zap.String("chart", params.Chart), zap.Time("date", date), zap.Error(err))
		return
	}
	matched, err := o.store.ApplyTrackStats(ctx, params.Source, params.Chart, date, entries, artistKeys)
	if err != nil {
		metrics.ObserveChartDate(params.Chart, "failed")
		o.logger.Error("apply track stats failed",
			zap.String("chart", params.Chart), zap.Time("date", date), zap.Error(err))
		return
	}
	metrics.ObserveChartDate(params.Chart, "scanned")
	metrics.ObserveEntriesStored(params.Chart, len(entries))
	o.logger.Info("chart date scanned",
		zap.String("chart", params.Chart),
		zap.Time("date", date),
		zap.Int("entries", len(entries)),
		zap.Int("matched", matched))
}

// nextState derives the progress marker to persist after a run. A nil return
// means nothing was accomplished and the stored state should stay untouched.
func nextState(prev chart.ScanState, scanned []time.Time, latest time.Time, crossedCutoff, finishedWindow bool) *chart.ScanState {
	next := prev
	switch {
	case crossedCutoff && finishedWindow:
		// Backward walk hit the cutoff: backfill is done and the marker
		// snaps forward to the newest chart date.
		next.BackfillComplete = true
		next.LastScannedDate = &latest
	case len(scanned) == 0:
		return nil
	case prev.BackfillComplete:
		last := scanned[len(scanned)-1]
		next.LastScannedDate = &last
	default:
		// Still walking backward; remember the earliest date reached.
		earliest := scanned[len(scanned)-1]
		next.LastScannedDate = &earliest
	}
	return &next
}
