package store

import (
	"context"
	"fmt"
	"time"

	"github.com/tonearc/chartpulse/internal/chart"
)

// UpsertChartEntries stores the raw entries for one chart date. The key is
// (source, name, date, rank); re-scanning a date overwrites rather than
// duplicates.
func (s *Store) UpsertChartEntries(ctx context.Context, source, name string, date time.Time, entries []chart.Entry) error {
	const query = `
INSERT INTO raw_chart_entries (chart_source, chart_name, chart_date, rank, title, artist)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (chart_source, chart_name, chart_date, rank)
DO UPDATE SET title = EXCLUDED.title, artist = EXCLUDED.artist`
	for _, e := range entries {
		if _, err := s.pool.Exec(ctx, query, source, name, date, e.Rank, e.Title, e.Artist); err != nil {
			return fmt.Errorf("upsert chart entry rank %d: %w", e.Rank, err)
		}
	}
	return nil
}

// ArtistKeysByNormalizedName maps every local artist's normalization key to
// its ID. When two artists collide on the same key the lowest ID wins, so
// chart matching is deterministic across runs.
func (s *Store) ArtistKeysByNormalizedName(ctx context.Context) (map[string]int64, error) {
	const query = `SELECT id, name FROM artists ORDER BY id ASC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list artists: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]int64)
	for rows.Next() {
		var id int64
		var artistName string
		if err := rows.Scan(&id, &artistName); err != nil {
			return nil, fmt.Errorf("scan artist row: %w", err)
		}
		key := chart.NormalizeArtistName(artistName)
		if key == "" {
			continue
		}
		if _, taken := keys[key]; !taken {
			keys[key] = id
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artists: %w", err)
	}
	return keys, nil
}

// ApplyTrackStats upserts one aggregate stat row per entry whose normalized
// artist matches a local artist. Returns how many entries matched.
func (s *Store) ApplyTrackStats(ctx context.Context, source, name string, date time.Time, entries []chart.Entry, artistKeys map[string]int64) (int, error) {
	const query = `
INSERT INTO chart_track_stats (artist_id, chart_source, chart_name, chart_date, rank, title_key)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (artist_id, chart_source, chart_name, chart_date, title_key)
DO UPDATE SET rank = EXCLUDED.rank`
	matched := 0
	for _, e := range entries {
		artistID, ok := artistKeys[chart.NormalizeArtistName(e.Artist)]
		if !ok {
			continue
		}
		titleKey := chart.NormalizeTrackTitle(e.Title)
		if titleKey == "" {
			continue
		}
		if _, err := s.pool.Exec(ctx, query, artistID, source, name, date, e.Rank, titleKey); err != nil {
			return matched, fmt.Errorf("apply track stat rank %d: %w", e.Rank, err)
		}
		matched++
	}
	return matched, nil
}
