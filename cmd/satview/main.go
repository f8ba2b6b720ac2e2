package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/satview/satview/internal/api"
	"github.com/satview/satview/internal/auth"
	"github.com/satview/satview/internal/config"
	"github.com/satview/satview/internal/metrics"
	"github.com/satview/satview/internal/propagation"
	"github.com/satview/satview/internal/snapshot"
	"github.com/satview/satview/internal/stream"
	"github.com/satview/satview/internal/tle"
)

func main() {
	configPath := flag.String("config", os.Getenv("SATVIEW_CONFIG"), "path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel(),
	}))

	store := tle.NewStore()
	tleCache := tle.NewCache(cfg.TLE.CacheDir, cfg.TLE.CacheMaxFiles)
	fetcher := tle.NewFetcher(cfg.TLE.SourceURL, logger, cfg.TLE.ExtraURLs...)

	refresher := tle.NewRefresher(fetcher, tleCache, store, cfg.RefreshInterval(), logger)

	// Seed the store from the on-disk cache so the service is ready before
	// the first fetch completes (or when fetching is disabled entirely).
	if err := refresher.LoadFromCache(); err != nil {
		logger.Info("no element cache found, starting empty", "error", err)
	}

	propCfg := propagation.PropConfig{
		Workers: cfg.Propagation.Workers,
		Step:    time.Duration(cfg.Propagation.StepSeconds) * time.Second,
		Horizon: time.Duration(cfg.Propagation.HorizonSeconds) * time.Second,
	}
	prop := propagation.NewPropagator(store, propCfg, logger)
	metrics.SetPropagationWorkersActive(propCfg.Workers)

	snapCache := snapshot.NewCache(snapshot.Config{
		Step:        time.Duration(cfg.Snapshot.StepSeconds) * time.Second,
		Horizon:     time.Duration(cfg.Snapshot.HorizonSeconds) * time.Second,
		GracePeriod: time.Duration(cfg.Snapshot.GracePeriodSeconds) * time.Second,
		Buffer:      time.Duration(cfg.Snapshot.BufferSeconds) * time.Second,
	}, prop, store, logger)

	streamHandler := stream.NewHandler(snapCache, store, stream.Config{
		MaxConcurrentPerIP: cfg.Stream.MaxConcurrentPerIP,
		MaxConcurrentTotal: cfg.Stream.MaxConcurrentTotal,
		KeepaliveInterval:  time.Duration(cfg.Stream.KeepaliveIntervalSeconds) * time.Second,
		TrustProxy:         cfg.Stream.TrustProxy,
	}, logger)

	authCfg := auth.Config{Enabled: cfg.Auth.Enabled, Token: cfg.Auth.Token}

	deps := api.Deps{
		Store:  store,
		Cache:  snapCache,
		Stream: streamHandler,
	}
	if cfg.TLE.FetchEnabled {
		deps.Refresher = refresher
	}
	srv := api.NewServer(cfg.Server.Addr, deps, authCfg, logger)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go snapCache.Start(ctx)
	if cfg.TLE.FetchEnabled {
		go refresher.Start(ctx)
	}

	// Background goroutine to update the element-set age gauge.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				age := store.AgeSeconds()
				if age >= 0 {
					metrics.SetTLEDatasetAge(age)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("starting server",
			"addr", cfg.Server.Addr,
			"auth_enabled", authCfg.Enabled,
			"tle_fetch_enabled", cfg.TLE.FetchEnabled,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
