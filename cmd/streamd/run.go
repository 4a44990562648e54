package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/dnscache"

	streamworker "github.com/freezer333/streaming-worker"
	"github.com/freezer333/streaming-worker/internal/config"
	"github.com/freezer333/streaming-worker/internal/hub"
	"github.com/freezer333/streaming-worker/internal/server"
	"github.com/freezer333/streaming-worker/internal/storage"
	"github.com/freezer333/streaming-worker/internal/storage/sqlite"
	"github.com/freezer333/streaming-worker/internal/telemetry"
	"github.com/freezer333/streaming-worker/internal/background"
	"github.com/freezer333/streaming-worker/workers"
)

func run(configPath string) error {
	// Load config; an empty path runs on built-in defaults.
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	slog.Info("starting streamd", "version", version, "addr", cfg.Server.Addr)

	// Tracing
	if cfg.Telemetry.Tracing.Enabled {
		stopTracing, err := telemetry.SetupTracing(context.Background(),
			cfg.Telemetry.Tracing.Endpoint, version, cfg.Telemetry.Tracing.SampleRate)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := stopTracing(ctx); err != nil {
				slog.Error("tracing shutdown failed", "error", err)
			}
		}()
	}

	// Metrics
	var (
		metrics        *telemetry.Metrics
		metricsHandler http.Handler
	)
	if cfg.Telemetry.Metrics.Enabled {
		promReg := prometheus.NewRegistry()
		metrics = telemetry.NewMetrics(promReg)
		metricsHandler = promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})
	}

	// History store; an empty DSN runs the daemon memory-only.
	var (
		history    storage.HistoryStore
		recorder   *background.HistoryRecorder
		readyCheck server.ReadyChecker
		tasks      []background.Task
	)
	if cfg.History.DSN != "" {
		store, err := sqlite.New(cfg.History.DSN)
		if err != nil {
			return err
		}
		defer store.Close()

		history = store
		readyCheck = store.Ping
		recorder = background.NewHistoryRecorder(store, cfg.History.FlushInterval)
		tasks = append(tasks, recorder)
		if cfg.History.Retention > 0 {
			tasks = append(tasks, background.NewPruner(store, cfg.History.Retention))
		}
	}

	// Worker registry: the full built-in set by default, or the configured
	// subset with its per-worker option defaults.
	resolver := &dnscache.Resolver{}
	builtins := map[string]streamworker.Factory{
		"counter":     workers.NewCounter,
		"accumulator": workers.NewAccumulator,
		"factorizer":  workers.NewFactorizer,
		"sensor":      workers.NewSensor,
		"fetcher":     workers.NewFetcher(resolver),
	}

	registry := streamworker.NewRegistry()
	defaults := make(map[string]streamworker.Options)
	if len(cfg.Workers) == 0 {
		for name, f := range builtins {
			registry.Register(name, f)
		}
	} else {
		for _, entry := range cfg.Workers {
			f, ok := builtins[entry.Name]
			if !ok {
				slog.Warn("unknown worker, skipping", "name", entry.Name)
				continue
			}
			registry.Register(entry.Name, f)
			if len(entry.Options) > 0 {
				defaults[entry.Name] = streamworker.Options(entry.Options)
			}
		}
	}

	// Session hub. The recorder is handed over behind a nil check so a
	// disabled history never leaves a typed-nil sink in the interface.
	var sink hub.HistorySink
	if recorder != nil {
		sink = recorder
	}
	sessions, err := hub.New(hub.Config{
		Registry:     registry,
		Metrics:      metrics,
		History:      sink,
		MaxLive:      cfg.Sessions.MaxLive,
		TombstoneTTL: cfg.Sessions.TombstoneTTL,
		Defaults:     defaults,
	})
	if err != nil {
		return err
	}

	// Background tasks
	tasks = append(tasks, background.NewReaper(sessions, metrics, recorder, cfg.Sessions.MaxIdle))
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	bgDone := make(chan struct{})
	go func() {
		defer close(bgDone)
		// Task failures are logged by the runner itself.
		_ = background.NewRunner(tasks...).Run(bgCtx)
	}()

	// Create HTTP server
	handler := server.New(server.Deps{
		Hub:            sessions,
		History:        history,
		AuthToken:      cfg.Server.AuthToken,
		ReadyCheck:     readyCheck,
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
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

	slog.Info("streamd ready", "addr", cfg.Server.Addr)

	// Wait for signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig)
	case err := <-errCh:
		return err
	}

	// Close sessions first: attached streams see their terminal frames and
	// exit, which lets the server drain its in-flight requests. Background
	// workers stop last so the recorder flushes the final history records.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := sessions.Shutdown(shutdownCtx); err != nil {
		slog.Warn("sessions did not terminate before timeout", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	bgCancel()
	<-bgDone

	slog.Info("streamd stopped")
	return nil
}
