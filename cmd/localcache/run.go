package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/eugener/localcache/internal/cache"
	"github.com/eugener/localcache/internal/config"
	"github.com/eugener/localcache/internal/server"
	"github.com/eugener/localcache/internal/storage/sqlite"
	"github.com/eugener/localcache/internal/telemetry"
	"github.com/eugener/localcache/internal/worker"
)

func run(configPath string) error {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	slog.Info("starting localcache", "version", version, "addr", cfg.Server.Addr)

	ctx := context.Background()

	// Tracing
	if cfg.Telemetry.Tracing.Enabled {
		shutdown, err := telemetry.SetupTracing(ctx, cfg.Telemetry.Tracing.Endpoint, cfg.Telemetry.Tracing.SampleRate)
		if err != nil {
			return err
		}
		defer shutdown(context.Background())
	}

	// Open origin database
	store, err := sqlite.New(cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	// Cache handler: one immutable capacity/TTL snapshot shared by all workers
	handler, err := cache.New(cfg.Cache.Capacity, cfg.Cache.TTL)
	if err != nil {
		return err
	}

	// Worker pool: each worker owns one per-worker store
	pool := worker.NewPool(cfg.Workers.Count)
	poolCtx, stopPool := context.WithCancel(ctx)
	defer stopPool()
	poolDone := make(chan struct{})
	go func() {
		pool.Run(poolCtx)
		close(poolDone)
	}()

	// Metrics
	deps := server.Deps{
		Cache:      handler,
		Pool:       pool,
		Origin:     store,
		ReadyCheck: store.Ping,
	}
	if cfg.Telemetry.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		deps.Metrics = telemetry.NewMetrics(reg)
		deps.PromGatherer = reg
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.New(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("localcache ready",
		"addr", cfg.Server.Addr,
		"workers", pool.Size(),
		"capacity", handler.Capacity(),
		"ttl", handler.TTL(),
	)

	// Wait for signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig)
	case err := <-errCh:
		return err
	}

	// Shutdown: stop accepting requests, then stop the workers.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	stopPool()
	<-poolDone

	slog.Info("localcache stopped")
	return nil
}
