package store

import (
	"context"
	"fmt"
)

// AlbumTarget is an album whose track list needs completion.
type AlbumTarget struct {
	ID         int64
	ExternalID string
	Title      string
	TrackTotal int
}

// AlbumTrack is one track fetched from the external source for persistence.
type AlbumTrack struct {
	Title      string
	Position   int
	DurationMs int
	ExternalID string
}

// VideoTarget is a track that still needs a video link.
type VideoTarget struct {
	TrackID int64
	Artist  string
	Title   string
	Album   string
}

// Video link statuses recorded on tracks.
const (
	VideoStatusLinked   = "linked"
	VideoStatusFailed   = "failed"
	VideoStatusNotFound = "not_found"
)

const albumsZeroTracksQuery = `
SELECT a.id, a.external_id, a.title, a.track_total
FROM albums a
LEFT JOIN tracks t ON t.album_id = a.id
GROUP BY a.id, a.external_id, a.title, a.track_total
HAVING COUNT(t.id) = 0
ORDER BY a.id ASC
LIMIT $1`

const albumsPartialTracksQuery = `
SELECT a.id, a.external_id, a.title, a.track_total
FROM albums a
LEFT JOIN tracks t ON t.album_id = a.id
GROUP BY a.id, a.external_id, a.title, a.track_total
HAVING COUNT(t.id) > 0 AND COUNT(t.id) < a.track_total
ORDER BY a.id ASC
LIMIT $1`

// AlbumsMissingTracks selects albums for track backfill: albums with no
// tracks at all first, then, when includePartial is set, albums with fewer
// tracks than their declared total filling whatever quota remains. Both
// tiers order by ascending ID so repeated runs walk the catalog
// deterministically.
func (s *Store) AlbumsMissingTracks(ctx context.Context, limit int, includePartial bool) ([]AlbumTarget, error) {
	targets, err := s.queryAlbumTargets(ctx, albumsZeroTracksQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("select empty albums: %w", err)
	}
	remaining := limit - len(targets)
	if !includePartial || remaining <= 0 {
		return targets, nil
	}
	partial, err := s.queryAlbumTargets(ctx, albumsPartialTracksQuery, remaining)
	if err != nil {
		return nil, fmt.Errorf("select partial albums: %w", err)
	}
	return append(targets, partial...), nil
}

func (s *Store) queryAlbumTargets(ctx context.Context, query string, limit int) ([]AlbumTarget, error) {
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []AlbumTarget
	for rows.Next() {
		var t AlbumTarget
		if err := rows.Scan(&t.ID, &t.ExternalID, &t.Title, &t.TrackTotal); err != nil {
			return nil, fmt.Errorf("scan album target: %w", err)
		}
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return targets, nil
}

const favoritedVideoTargetsQuery = `
SELECT t.id, ar.name, t.title, al.title
FROM tracks t
JOIN artists ar ON ar.id = t.artist_id
JOIN albums al ON al.id = t.album_id
WHERE t.video_id IS NULL
  AND t.favorited_at IS NOT NULL
  AND (t.video_status IS NULL OR $2)
ORDER BY t.favorited_at DESC, t.play_count DESC, t.id ASC
LIMIT $1`

const popularVideoTargetsQuery = `
SELECT t.id, ar.name, t.title, al.title
FROM tracks t
JOIN artists ar ON ar.id = t.artist_id
JOIN albums al ON al.id = t.album_id
WHERE t.video_id IS NULL
  AND t.favorited_at IS NULL
  AND (t.video_status IS NULL OR $2)
ORDER BY t.play_count DESC, t.id ASC
LIMIT $1`

// VideoBackfillTargets selects tracks needing a video link: favorited tracks
// first (favorite recency, then popularity, then ID), then the most popular
// unlinked tracks filling the remaining quota. Tracks already linked are
// never returned; tracks previously marked failed or not-found are excluded
// unless retryFailed is set.
func (s *Store) VideoBackfillTargets(ctx context.Context, limit int, retryFailed bool) ([]VideoTarget, error) {
	targets, err := s.queryVideoTargets(ctx, favoritedVideoTargetsQuery, limit, retryFailed)
	if err != nil {
		return nil, fmt.Errorf("select favorited video targets: %w", err)
	}
	remaining := limit - len(targets)
	if remaining <= 0 {
		return targets, nil
	}
	popular, err := s.queryVideoTargets(ctx, popularVideoTargetsQuery, remaining, retryFailed)
	if err != nil {
		return nil, fmt.Errorf("select popular video targets: %w", err)
	}
	return append(targets, popular...), nil
}

func (s *Store) queryVideoTargets(ctx context.Context, query string, limit int, retryFailed bool) ([]VideoTarget, error) {
	rows, err := s.pool.Query(ctx, query, limit, retryFailed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []VideoTarget
	for rows.Next() {
		var t VideoTarget
		if err := rows.Scan(&t.TrackID, &t.Artist, &t.Title, &t.Album); err != nil {
			return nil, fmt.Errorf("scan video target: %w", err)
		}
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return targets, nil
}

// SaveAlbumTracks persists one album's fetched track list, keyed by
// (album_id, position) so re-fetching an album is idempotent.
func (s *Store) SaveAlbumTracks(ctx context.Context, albumID int64, tracks []AlbumTrack) error {
	const query = `
INSERT INTO tracks (album_id, position, title, duration_ms, external_id)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (album_id, position)
DO UPDATE SET title = EXCLUDED.title, duration_ms = EXCLUDED.duration_ms, external_id = EXCLUDED.external_id`
	for _, tr := range tracks {
		if _, err := s.pool.Exec(ctx, query, albumID, tr.Position, tr.Title, tr.DurationMs, tr.ExternalID); err != nil {
			return fmt.Errorf("save track %d of album %d: %w", tr.Position, albumID, err)
		}
	}
	return nil
}

// SetTrackVideo records a discovered video link on one track.
func (s *Store) SetTrackVideo(ctx context.Context, trackID int64, videoID string) error {
	const query = `
UPDATE tracks SET video_id = $2, video_status = $3, video_checked_at = NOW()
WHERE id = $1`
	if _, err := s.pool.Exec(ctx, query, trackID, videoID, VideoStatusLinked); err != nil {
		return fmt.Errorf("set track video: %w", err)
	}
	return nil
}

// MarkTrackVideoFailed records a failed or empty search so the track is
// skipped on later runs unless retryFailed overrides it.
func (s *Store) MarkTrackVideoFailed(ctx context.Context, trackID int64, status string) error {
	const query = `
UPDATE tracks SET video_status = $2, video_checked_at = NOW()
WHERE id = $1`
	if _, err := s.pool.Exec(ctx, query, trackID, status); err != nil {
		return fmt.Errorf("mark track video %s: %w", status, err)
	}
	return nil
}
