// Package backfill drives catalog ingestion: the sequential chart scan
// orchestrator and the bounded-concurrency enrichment pools.
package backfill

import (
	"context"
	"time"

	"github.com/tonearc/chartpulse/internal/chart"
	"github.com/tonearc/chartpulse/internal/musicapi"
	"github.com/tonearc/chartpulse/internal/store"
)

// EntryFetcher retrieves the parsed entries of one chart page.
type EntryFetcher interface {
	FetchEntries(ctx context.Context, slug string, date time.Time) ([]chart.Entry, error)
}

// ChartStore is the slice of the catalog the chart orchestrator touches.
type ChartStore interface {
	GetOrCreateScanState(ctx context.Context, source, name string) (chart.ScanState, error)
	ResetScanState(ctx context.Context, source, name string) error
	SaveScanState(ctx context.Context, state chart.ScanState) error
	UpsertChartEntries(ctx context.Context, source, name string, date time.Time, entries []chart.Entry) error
	ArtistKeysByNormalizedName(ctx context.Context) (map[string]int64, error)
	ApplyTrackStats(ctx context.Context, source, name string, date time.Time, entries []chart.Entry, artistKeys map[string]int64) (int, error)
}

// AlbumStore selects album targets and persists fetched track lists.
type AlbumStore interface {
	AlbumsMissingTracks(ctx context.Context, limit int, includePartial bool) ([]store.AlbumTarget, error)
	SaveAlbumTracks(ctx context.Context, albumID int64, tracks []store.AlbumTrack) error
}

// VideoStore selects video targets and persists per-track outcomes.
type VideoStore interface {
	VideoBackfillTargets(ctx context.Context, limit int, retryFailed bool) ([]store.VideoTarget, error)
	SetTrackVideo(ctx context.Context, trackID int64, videoID string) error
	MarkTrackVideoFailed(ctx context.Context, trackID int64, status string) error
}

// TrackSource fetches album track lists from the external catalog.
type TrackSource interface {
	Configured() bool
	GetAlbumTracks(ctx context.Context, albumExternalID string) ([]musicapi.Track, error)
}

// VideoSearcher searches the external video API.
type VideoSearcher interface {
	Configured() bool
	SearchVideos(ctx context.Context, artist, track, album string, maxResults int) ([]musicapi.Video, error)
}

// StopSignal is polled at unit-of-work boundaries; it never preempts work
// already in flight.
type StopSignal interface {
	StopRequested() bool
}
