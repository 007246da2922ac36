package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tonearc/chartpulse/internal/backfill"
	"github.com/tonearc/chartpulse/internal/config"
	"github.com/tonearc/chartpulse/internal/control"
)

type fakeChartRunner struct {
	mu     sync.Mutex
	params []backfill.ChartParams
	block  chan struct{} // when set, Run waits until closed
}

func (f *fakeChartRunner) Run(_ context.Context, params backfill.ChartParams) error {
	f.mu.Lock()
	f.params = append(f.params, params)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return nil
}

func (f *fakeChartRunner) calls() []backfill.ChartParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backfill.ChartParams(nil), f.params...)
}

type fakeAlbumRunner struct {
	mu          sync.Mutex
	mode        string
	limit       int
	concurrency int
	calls       int
}

func (f *fakeAlbumRunner) Run(_ context.Context, mode string, limit, concurrency int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode, f.limit, f.concurrency = mode, limit, concurrency
	f.calls++
	return nil
}

type fakeVideoRunner struct {
	mu          sync.Mutex
	limit       int
	retryFailed bool
	concurrency int
	calls       int
}

func (f *fakeVideoRunner) Run(_ context.Context, limit int, retryFailed bool, concurrency int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limit, f.retryFailed, f.concurrency = limit, retryFailed, concurrency
	f.calls++
	return nil
}

func testConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{Port: 8080},
		DB:     config.DBConfig{DSN: "postgres://localhost/test"},
		Backfill: config.BackfillConfig{
			DefaultWeeks:     4,
			AlbumLimit:       25,
			AlbumConcurrency: 2,
			VideoLimit:       25,
			VideoConcurrency: 2,
		},
	}
}

func newTestServer(t *testing.T, cfg config.Config) (*Server, *control.Registry, *fakeChartRunner, *fakeAlbumRunner, *fakeVideoRunner) {
	t.Helper()
	reg := control.NewRegistry()
	charts := &fakeChartRunner{}
	albums := &fakeAlbumRunner{}
	videos := &fakeVideoRunner{}
	srv := NewServer(context.Background(), reg, charts, albums, videos, cfg, zap.NewNop())
	return srv, reg, charts, albums, videos
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReady(t *testing.T) {
	t.Parallel()

	srv, _, _, _, _ := newTestServer(t, testConfig())
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, srv.Handler(), http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestChartBackfillDispatchesAndEchoesParams(t *testing.T) {
	t.Parallel()

	srv, _, charts, _, _ := newTestServer(t, testConfig())
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/maintenance/chart-backfill",
		`{"chart_source":"billboard","chart_name":"hot-100","weeks":6,"force_reset":true}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "hot-100", resp["chart_name"])
	require.Equal(t, float64(6), resp["weeks"])
	require.Equal(t, true, resp["force_reset"])

	require.Eventually(t, func() bool {
		return len(charts.calls()) == 1
	}, time.Second, 5*time.Millisecond)
	got := charts.calls()[0]
	require.Equal(t, backfill.ChartParams{Source: "billboard", Chart: "hot-100", Weeks: 6, ForceReset: true}, got)
}

func TestChartBackfillDefaultsWeeks(t *testing.T) {
	t.Parallel()

	srv, _, charts, _, _ := newTestServer(t, testConfig())
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/maintenance/chart-backfill",
		`{"chart_source":"billboard","chart_name":"hot-100"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		return len(charts.calls()) == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 4, charts.calls()[0].Weeks)
}

func TestChartBackfillRejectsMissingChart(t *testing.T) {
	t.Parallel()

	srv, _, charts, _, _ := newTestServer(t, testConfig())
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/maintenance/chart-backfill",
		`{"chart_source":"billboard"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, charts.calls())
}

func TestChartBackfillRejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	srv, _, _, _, _ := newTestServer(t, testConfig())
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/maintenance/chart-backfill", "{nope")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAlbumBackfillAppliesDefaults(t *testing.T) {
	t.Parallel()

	srv, _, _, albums, _ := newTestServer(t, testConfig())
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/maintenance/backfill-album-tracks", `{}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		albums.mu.Lock()
		defer albums.mu.Unlock()
		return albums.calls == 1
	}, time.Second, 5*time.Millisecond)
	albums.mu.Lock()
	defer albums.mu.Unlock()
	require.Equal(t, backfill.AlbumModeAll, albums.mode)
	require.Equal(t, 25, albums.limit)
	require.Equal(t, 2, albums.concurrency)
}

func TestAlbumBackfillRejectsUnknownMode(t *testing.T) {
	t.Parallel()

	srv, _, _, albums, _ := newTestServer(t, testConfig())
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/maintenance/backfill-album-tracks", `{"mode":"bogus"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	albums.mu.Lock()
	defer albums.mu.Unlock()
	require.Zero(t, albums.calls)
}

func TestYouTubeBackfillPassesRetryFlag(t *testing.T) {
	t.Parallel()

	srv, _, _, _, videos := newTestServer(t, testConfig())
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/maintenance/backfill-youtube-links",
		`{"limit":10,"retry_failed":true,"concurrency":3}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		videos.mu.Lock()
		defer videos.mu.Unlock()
		return videos.calls == 1
	}, time.Second, 5*time.Millisecond)
	videos.mu.Lock()
	defer videos.mu.Unlock()
	require.Equal(t, 10, videos.limit)
	require.True(t, videos.retryFailed)
	require.Equal(t, 3, videos.concurrency)
}

func TestStopAndStatusRoundTrip(t *testing.T) {
	t.Parallel()

	srv, reg, _, _, _ := newTestServer(t, testConfig())

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/maintenance/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"stop_requested":false`)

	rec = doJSON(t, srv.Handler(), http.MethodPost, "/maintenance/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, reg.StopRequested())

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/maintenance/status", "")
	require.Contains(t, rec.Body.String(), `"stop_requested":true`)
}

func TestExplicitStartClearsPendingStop(t *testing.T) {
	t.Parallel()

	srv, reg, charts, _, _ := newTestServer(t, testConfig())
	reg.RequestStop()

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/maintenance/chart-backfill",
		`{"chart_source":"billboard","chart_name":"hot-100"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.False(t, reg.StopRequested())

	require.Eventually(t, func() bool {
		return len(charts.calls()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestActionStatusReflectsRunningAction(t *testing.T) {
	t.Parallel()

	srv, _, charts, _, _ := newTestServer(t, testConfig())
	charts.block = make(chan struct{})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/maintenance/chart-backfill",
		`{"chart_source":"billboard","chart_name":"hot-100"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	running := func() bool {
		rec := doJSON(t, srv.Handler(), http.MethodGet, "/maintenance/action-status", "")
		var statuses map[string]bool
		if err := json.Unmarshal(rec.Body.Bytes(), &statuses); err != nil {
			return false
		}
		return statuses[control.ActionChartBackfill]
	}

	require.Eventually(t, running, time.Second, 5*time.Millisecond)

	close(charts.block)

	require.Eventually(t, func() bool { return !running() }, time.Second, 5*time.Millisecond)
}

func TestAPIKeyMiddleware(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, APIKey: "secret"}
	srv, _, _, _, _ := newTestServer(t, cfg)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-API-Key", "secret")
	ok := httptest.NewRecorder()
	srv.Handler().ServeHTTP(ok, req)
	require.Equal(t, http.StatusOK, ok.Code)
}

func TestRequestIDHeaderSet(t *testing.T) {
	t.Parallel()

	srv, _, _, _, _ := newTestServer(t, testConfig())
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", "")
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
