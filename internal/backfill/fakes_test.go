package backfill

import (
	"context"
	"sync"
	"time"

	"github.com/tonearc/chartpulse/internal/chart"
	"github.com/tonearc/chartpulse/internal/musicapi"
	"github.com/tonearc/chartpulse/internal/store"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

type upsertCall struct {
	date    time.Time
	entries []chart.Entry
}

type fakeChartStore struct {
	mu         sync.Mutex
	state      chart.ScanState
	artistKeys map[string]int64

	resetCalls  int
	getCalls    int
	keyCalls    int
	upserts     []upsertCall
	applyCalls  int
	savedStates []chart.ScanState
}

func (f *fakeChartStore) GetOrCreateScanState(_ context.Context, source, name string) (chart.ScanState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	st := f.state
	st.Source = source
	st.Chart = name
	return st, nil
}

func (f *fakeChartStore) ResetScanState(context.Context, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetCalls++
	f.state.LastScannedDate = nil
	f.state.BackfillComplete = false
	return nil
}

func (f *fakeChartStore) SaveScanState(_ context.Context, state chart.ScanState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedStates = append(f.savedStates, state)
	return nil
}

func (f *fakeChartStore) UpsertChartEntries(_ context.Context, _, _ string, date time.Time, entries []chart.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, upsertCall{date: date, entries: entries})
	return nil
}

func (f *fakeChartStore) ArtistKeysByNormalizedName(context.Context) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keyCalls++
	return f.artistKeys, nil
}

func (f *fakeChartStore) ApplyTrackStats(_ context.Context, _, _ string, _ time.Time, entries []chart.Entry, keys map[string]int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applyCalls++
	matched := 0
	for _, e := range entries {
		if _, ok := keys[chart.NormalizeArtistName(e.Artist)]; ok {
			matched++
		}
	}
	return matched, nil
}

func (f *fakeChartStore) lastSaved() (chart.ScanState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.savedStates) == 0 {
		return chart.ScanState{}, false
	}
	return f.savedStates[len(f.savedStates)-1], true
}

type fakeFetcher struct {
	mu      sync.Mutex
	entries map[string][]chart.Entry // keyed by date string
	errs    map[string]error
	calls   []time.Time
	onFetch func(date time.Time)
}

func (f *fakeFetcher) FetchEntries(_ context.Context, _ string, date time.Time) ([]chart.Entry, error) {
	f.mu.Lock()
	f.calls = append(f.calls, date)
	hook := f.onFetch
	f.mu.Unlock()
	if hook != nil {
		hook(date)
	}
	key := date.Format("2006-01-02")
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	return f.entries[key], nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeAlbumStore struct {
	mu      sync.Mutex
	targets []store.AlbumTarget
	gotMode bool // includePartial passed to selection
	saved   map[int64][]store.AlbumTrack
	saveErr error
}

func (f *fakeAlbumStore) AlbumsMissingTracks(_ context.Context, limit int, includePartial bool) ([]store.AlbumTarget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotMode = includePartial
	if limit < len(f.targets) {
		return f.targets[:limit], nil
	}
	return f.targets, nil
}

func (f *fakeAlbumStore) SaveAlbumTracks(_ context.Context, albumID int64, tracks []store.AlbumTrack) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.saved == nil {
		f.saved = make(map[int64][]store.AlbumTrack)
	}
	f.saved[albumID] = tracks
	return nil
}

func (f *fakeAlbumStore) savedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

type fakeTrackSource struct {
	mu         sync.Mutex
	configured bool
	tracks     []musicapi.Track
	err        error
	delay      time.Duration

	calls       int
	inFlight    int
	maxInFlight int
}

func (f *fakeTrackSource) Configured() bool { return f.configured }

func (f *fakeTrackSource) GetAlbumTracks(context.Context, string) ([]musicapi.Track, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
	return f.tracks, f.err
}

func (f *fakeTrackSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeVideoStore struct {
	mu       sync.Mutex
	targets  []store.VideoTarget
	gotRetry bool
	linked   map[int64]string
	marked   map[int64]string
}

func (f *fakeVideoStore) VideoBackfillTargets(_ context.Context, limit int, retryFailed bool) ([]store.VideoTarget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotRetry = retryFailed
	if limit < len(f.targets) {
		return f.targets[:limit], nil
	}
	return f.targets, nil
}

func (f *fakeVideoStore) SetTrackVideo(_ context.Context, trackID int64, videoID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.linked == nil {
		f.linked = make(map[int64]string)
	}
	f.linked[trackID] = videoID
	return nil
}

func (f *fakeVideoStore) MarkTrackVideoFailed(_ context.Context, trackID int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.marked == nil {
		f.marked = make(map[int64]string)
	}
	f.marked[trackID] = status
	return nil
}

type fakeVideoSearcher struct {
	mu         sync.Mutex
	configured bool
	videos     []musicapi.Video
	err        error
	calls      int
}

func (f *fakeVideoSearcher) Configured() bool { return f.configured }

func (f *fakeVideoSearcher) SearchVideos(context.Context, string, string, string, int) ([]musicapi.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.videos, f.err
}
