package backfill

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/tonearc/chartpulse/internal/metrics"
	"github.com/tonearc/chartpulse/internal/musicapi"
	"github.com/tonearc/chartpulse/internal/store"
)

// Album selection modes.
const (
	AlbumModeAll   = "all"   // albums with no tracks, then partial albums
	AlbumModeEmpty = "empty" // only albums with no tracks at all
)

// AlbumTrackPool completes album track lists from the external catalog with
// bounded concurrency. Every worker persists its own result immediately, so
// a stopped or crashed run keeps everything finished so far.
type AlbumTrackPool struct {
	store  AlbumStore
	source TrackSource
	stop   StopSignal
	logger *zap.Logger
}

// NewAlbumTrackPool constructs an AlbumTrackPool.
func NewAlbumTrackPool(st AlbumStore, source TrackSource, stop StopSignal, logger *zap.Logger) *AlbumTrackPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlbumTrackPool{store: st, source: source, stop: stop, logger: logger}
}

// Run selects up to limit album targets and fans them out across at most
// concurrency workers. Missing credentials abort before any selection or
// mutation.
func (p *AlbumTrackPool) Run(ctx context.Context, mode string, limit, concurrency int) error {
	if !p.source.Configured() {
		p.logger.Warn("album track backfill skipped: external catalog credentials not configured")
		return musicapi.ErrMissingCredentials
	}
	includePartial, err := includePartialAlbums(mode)
	if err != nil {
		return err
	}
	if limit <= 0 {
		limit = 25
	}
	if concurrency <= 0 {
		concurrency = 2
	}

	targets, err := p.store.AlbumsMissingTracks(ctx, limit, includePartial)
	if err != nil {
		return fmt.Errorf("select album targets: %w", err)
	}
	p.logger.Info("album track backfill starting",
		zap.Int("targets", len(targets)), zap.Int("concurrency", concurrency))

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for _, target := range targets {
		wg.Add(1)
		go func(target store.AlbumTarget) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			// Stop is honored at worker start only; an in-flight catalog
			// call is never preempted.
			if p.stop.StopRequested() {
				return
			}
			metrics.IncActiveWorkers()
			defer metrics.DecActiveWorkers()
			p.processAlbum(ctx, target)
		}(target)
	}
	wg.Wait()
	return nil
}

func (p *AlbumTrackPool) processAlbum(ctx context.Context, target store.AlbumTarget) {
	tracks, err := p.source.GetAlbumTracks(ctx, target.ExternalID)
	if err != nil {
		metrics.ObserveBackfillItem("album_tracks", "failed")
		p.logger.Warn("fetch album tracks failed",
			zap.Int64("album_id", target.ID),
			zap.String("external_id", target.ExternalID),
			zap.Error(err))
		return
	}

	rows := make([]store.AlbumTrack, 0, len(tracks))
	for _, tr := range tracks {
		rows = append(rows, store.AlbumTrack{
			Title:      tr.Title,
			Position:   tr.Position,
			DurationMs: tr.DurationMs,
			ExternalID: tr.ExternalID,
		})
	}
	if err := p.store.SaveAlbumTracks(ctx, target.ID, rows); err != nil {
		metrics.ObserveBackfillItem("album_tracks", "failed")
		p.logger.Error("save album tracks failed",
			zap.Int64("album_id", target.ID), zap.Error(err))
		return
	}
	metrics.ObserveBackfillItem("album_tracks", "succeeded")
	p.logger.Debug("album tracks saved",
		zap.Int64("album_id", target.ID), zap.Int("tracks", len(rows)))
}

func includePartialAlbums(mode string) (bool, error) {
	switch mode {
	case "", AlbumModeAll:
		return true, nil
	case AlbumModeEmpty:
		return false, nil
	default:
		return false, fmt.Errorf("unknown album backfill mode %q", mode)
	}
}
