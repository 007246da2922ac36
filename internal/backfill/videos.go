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

// VideoLinkPool discovers video links for tracks with bounded concurrency.
// Outcomes are persisted per track as they complete: a link, a not-found
// marker, or a failed marker, so re-runs skip everything already attempted
// unless retryFailed is set.
type VideoLinkPool struct {
	store      VideoStore
	searcher   VideoSearcher
	stop       StopSignal
	maxResults int
	logger     *zap.Logger
}

// NewVideoLinkPool constructs a VideoLinkPool. maxResults bounds how many
// search candidates are requested per track.
func NewVideoLinkPool(st VideoStore, searcher VideoSearcher, stop StopSignal, maxResults int, logger *zap.Logger) *VideoLinkPool {
	if maxResults <= 0 {
		maxResults = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VideoLinkPool{
		store:      st,
		searcher:   searcher,
		stop:       stop,
		maxResults: maxResults,
		logger:     logger,
	}
}

// Run selects up to limit video targets and fans them out across at most
// concurrency workers.
func (p *VideoLinkPool) Run(ctx context.Context, limit int, retryFailed bool, concurrency int) error {
	if !p.searcher.Configured() {
		p.logger.Warn("video link backfill skipped: video api key not configured")
		return musicapi.ErrMissingCredentials
	}
	if limit <= 0 {
		limit = 25
	}
	if concurrency <= 0 {
		concurrency = 2
	}

	targets, err := p.store.VideoBackfillTargets(ctx, limit, retryFailed)
	if err != nil {
		return fmt.Errorf("select video targets: %w", err)
	}
	p.logger.Info("video link backfill starting",
		zap.Int("targets", len(targets)),
		zap.Int("concurrency", concurrency),
		zap.Bool("retry_failed", retryFailed))

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for _, target := range targets {
		wg.Add(1)
		go func(target store.VideoTarget) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if p.stop.StopRequested() {
				return
			}
			metrics.IncActiveWorkers()
			defer metrics.DecActiveWorkers()
			p.processTrack(ctx, target)
		}(target)
	}
	wg.Wait()
	return nil
}

func (p *VideoLinkPool) processTrack(ctx context.Context, target store.VideoTarget) {
	videos, err := p.searcher.SearchVideos(ctx, target.Artist, target.Title, target.Album, p.maxResults)
	switch {
	case err != nil:
		metrics.ObserveBackfillItem("youtube_links", "failed")
		p.logger.Warn("video search failed",
			zap.Int64("track_id", target.TrackID), zap.Error(err))
		if err := p.store.MarkTrackVideoFailed(ctx, target.TrackID, store.VideoStatusFailed); err != nil {
			p.logger.Error("mark video failed errored",
				zap.Int64("track_id", target.TrackID), zap.Error(err))
		}
	case len(videos) == 0:
		metrics.ObserveBackfillItem("youtube_links", "not_found")
		if err := p.store.MarkTrackVideoFailed(ctx, target.TrackID, store.VideoStatusNotFound); err != nil {
			p.logger.Error("mark video not found errored",
				zap.Int64("track_id", target.TrackID), zap.Error(err))
		}
	default:
		metrics.ObserveBackfillItem("youtube_links", "succeeded")
		if err := p.store.SetTrackVideo(ctx, target.TrackID, videos[0].ID); err != nil {
			p.logger.Error("set track video errored",
				zap.Int64("track_id", target.TrackID), zap.Error(err))
			return
		}
		p.logger.Debug("track video linked",
			zap.Int64("track_id", target.TrackID), zap.String("video_id", videos[0].ID))
	}
}
