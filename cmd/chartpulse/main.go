// Package main wires together the chart ingestion service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tonearc/chartpulse/internal/api"
	"github.com/tonearc/chartpulse/internal/backfill"
	"github.com/tonearc/chartpulse/internal/chart"
	"github.com/tonearc/chartpulse/internal/clock/system"
	"github.com/tonearc/chartpulse/internal/config"
	"github.com/tonearc/chartpulse/internal/control"
	"github.com/tonearc/chartpulse/internal/logging"
	"github.com/tonearc/chartpulse/internal/musicapi"
	"github.com/tonearc/chartpulse/internal/store"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.New(ctx, store.Config{
		DSN:             cfg.DB.DSN,
		MaxConns:        int32(cfg.DB.MaxConns),
		MinConns:        int32(cfg.DB.MinConns),
		MaxConnLifetime: cfg.DB.MaxConnLifetime(),
	})
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}
	defer st.Close()

	fetcher := chart.NewFetcher(chart.FetcherConfig{
		BaseURL:       cfg.Scrape.BaseURL,
		UserAgent:     cfg.Scrape.UserAgent,
		RespectRobots: cfg.Scrape.RespectRobots,
		Timeout:       cfg.ScrapeTimeout(),
	})
	albumClient := musicapi.NewAlbumClient(musicapi.AlbumClientConfig{
		ClientID:     cfg.Catalog.ClientID,
		ClientSecret: cfg.Catalog.ClientSecret,
	})
	videoClient := musicapi.NewVideoClient(musicapi.VideoClientConfig{
		APIKey: cfg.YouTube.APIKey,
	})

	registry := control.NewRegistry()
	clock := system.New()
	min, max := cfg.PolitenessBounds()
	sleeper := backfill.NewRandomSleeper(min, max)

	orchestrator := backfill.NewOrchestrator(st, fetcher, registry, clock, sleeper, logger.Named("chart"))
	albumPool := backfill.NewAlbumTrackPool(st, albumClient, registry, logger.Named("albums"))
	videoPool := backfill.NewVideoLinkPool(st, videoClient, registry, cfg.Backfill.VideoMaxResults, logger.Named("videos"))

	apiServer := api.NewServer(ctx, registry, orchestrator, albumPool, videoPool, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	// Signal running backfills; they observe it at their next unit of work.
	registry.RequestStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
