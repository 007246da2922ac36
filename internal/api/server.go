// Package api exposes the maintenance HTTP interface for the ingestion
// service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tonearc/chartpulse/internal/backfill"
	"github.com/tonearc/chartpulse/internal/config"
	"github.com/tonearc/chartpulse/internal/control"
	"github.com/tonearc/chartpulse/internal/metrics"
)

// ChartRunner runs one chart backfill window.
type ChartRunner interface {
	Run(ctx context.Context, params backfill.ChartParams) error
}

// AlbumRunner runs one album track backfill batch.
type AlbumRunner interface {
	Run(ctx context.Context, mode string, limit, concurrency int) error
}

// VideoRunner runs one video link backfill batch.
type VideoRunner interface {
	Run(ctx context.Context, limit int, retryFailed bool, concurrency int) error
}

// Server wires HTTP handlers to the registry and backfill runners.
type Server struct {
	router   chi.Router
	registry *control.Registry
	charts   ChartRunner
	albums   AlbumRunner
	videos   VideoRunner
	cfg      config.Config
	logger   *zap.Logger

	// base context for dispatched background runs; detached from the
	// request so a run outlives its trigger.
	baseCtx context.Context
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	baseCtx context.Context,
	registry *control.Registry,
	charts ChartRunner,
	albums AlbumRunner,
	videos VideoRunner,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	s := &Server{
		registry: registry,
		charts:   charts,
		albums:   albums,
		videos:   videos,
		cfg:      cfg,
		logger:   logger,
		baseCtx:  baseCtx,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metricsMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/maintenance", func(r chi.Router) {
		r.Post("/chart-backfill", s.startChartBackfill)
		r.Post("/backfill-album-tracks", s.startAlbumTrackBackfill)
		r.Post("/backfill-youtube-links", s.startYouTubeLinkBackfill)
		r.Post("/stop", s.requestStop)
		r.Get("/status", s.stopStatus)
		r.Get("/action-status", s.actionStatuses)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type chartBackfillRequest struct {
	ChartSource string `json:"chart_source"`
	ChartName   string `json:"chart_name"`
	Weeks       int    `json:"weeks"`
	ForceReset  bool   `json:"force_reset"`
}

func (s *Server) startChartBackfill(w http.ResponseWriter, r *http.Request) {
	var req chartBackfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.ChartSource == "" || req.ChartName == "" {
		writeError(w, http.StatusBadRequest, "chart_source and chart_name required")
		return
	}
	if req.Weeks <= 0 {
		req.Weeks = s.cfg.Backfill.DefaultWeeks
	}

	params := backfill.ChartParams{
		Source:     req.ChartSource,
		Chart:      req.ChartName,
		Weeks:      req.Weeks,
		ForceReset: req.ForceReset,
	}
	s.dispatch(control.ActionChartBackfill, func(ctx context.Context) error {
		return s.charts.Run(ctx, params)
	})
	writeJSON(w, http.StatusAccepted, map[string]any{
		"action":       control.ActionChartBackfill,
		"chart_source": params.Source,
		"chart_name":   params.Chart,
		"weeks":        params.Weeks,
		"force_reset":  params.ForceReset,
	})
}

type albumBackfillRequest struct {
	Mode        string `json:"mode"`
	Limit       int    `json:"limit"`
	Concurrency int    `json:"concurrency"`
}

func (s *Server) startAlbumTrackBackfill(w http.ResponseWriter, r *http.Request) {
	var req albumBackfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Mode == "" {
		req.Mode = backfill.AlbumModeAll
	}
	if req.Mode != backfill.AlbumModeAll && req.Mode != backfill.AlbumModeEmpty {
		writeError(w, http.StatusBadRequest, "mode must be \"all\" or \"empty\"")
		return
	}
	if req.Limit <= 0 {
		req.Limit = s.cfg.Backfill.AlbumLimit
	}
	if req.Concurrency <= 0 {
		req.Concurrency = s.cfg.Backfill.AlbumConcurrency
	}

	mode, limit, concurrency := req.Mode, req.Limit, req.Concurrency
	s.dispatch(control.ActionAlbumTrackBackfill, func(ctx context.Context) error {
		return s.albums.Run(ctx, mode, limit, concurrency)
	})
	writeJSON(w, http.StatusAccepted, map[string]any{
		"action":      control.ActionAlbumTrackBackfill,
		"mode":        mode,
		"limit":       limit,
		"concurrency": concurrency,
	})
}

type videoBackfillRequest struct {
	Limit       int  `json:"limit"`
	RetryFailed bool `json:"retry_failed"`
	Concurrency int  `json:"concurrency"`
}

func (s *Server) startYouTubeLinkBackfill(w http.ResponseWriter, r *http.Request) {
	var req videoBackfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Limit <= 0 {
		req.Limit = s.cfg.Backfill.VideoLimit
	}
	if req.Concurrency <= 0 {
		req.Concurrency = s.cfg.Backfill.VideoConcurrency
	}

	limit, retry, concurrency := req.Limit, req.RetryFailed, req.Concurrency
	s.dispatch(control.ActionYouTubeBackfill, func(ctx context.Context) error {
		return s.videos.Run(ctx, limit, retry, concurrency)
	})
	writeJSON(w, http.StatusAccepted, map[string]any{
		"action":       control.ActionYouTubeBackfill,
		"limit":        limit,
		"retry_failed": retry,
		"concurrency":  concurrency,
	})
}

func (s *Server) requestStop(w http.ResponseWriter, _ *http.Request) {
	s.registry.RequestStop()
	writeJSON(w, http.StatusOK, map[string]bool{"stop_requested": true})
}

func (s *Server) stopStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"stop_requested": s.registry.StopRequested()})
}

func (s *Server) actionStatuses(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.ActionStatuses())
}

// dispatch runs work in the background under an action key. An explicit
// start clears any pending stop so the new run is not stillborn; the status
// flag always clears afterward, panics included.
func (s *Server) dispatch(key string, work func(ctx context.Context) error) {
	s.registry.ClearStop()
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("background run panicked",
					zap.String("action", key), zap.Any("panic", rec))
			}
		}()
		err := s.registry.Run(key, func() error {
			return work(s.baseCtx)
		})
		if err != nil {
			s.logger.Error("background run failed",
				zap.String("action", key), zap.Error(err))
			return
		}
		s.logger.Info("background run finished", zap.String("action", key))
	}()
}
