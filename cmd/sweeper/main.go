// Command sweeper runs the periodic coordination pass: it drains any
// unprocessed coordination events, ages open triggers through the
// escalation sweep, and dispatches pending notifications.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cadencehq/cadence/internal/config"
	"github.com/cadencehq/cadence/internal/coordination"
	"github.com/cadencehq/cadence/internal/delivery"
	"github.com/cadencehq/cadence/internal/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	store := sqlite.NewCoordinationStore(db)
	engine := coordination.NewService(store, logger)
	dispatcher := delivery.NewDispatcher(
		store,
		&delivery.LogNotifier{Logger: logger},
		cfg.Sweep.DeliveryBatchSize,
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	httpServer := startMetricsServer(logger, cfg.Metrics.Addr)
	defer shutdownMetricsServer(logger, httpServer)

	logger.Info("sweeper started",
		"interval", cfg.Sweep.Interval,
		"project_id", cfg.Sweep.ProjectID,
		"db", cfg.DB.Path)

	runPass(ctx, logger, engine, dispatcher, cfg.Sweep.ProjectID)

	ticker := time.NewTicker(cfg.Sweep.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runPass(ctx, logger, engine, dispatcher, cfg.Sweep.ProjectID)
		}
	}
}

// runPass executes one scheduled cycle. Each step is independently
// retryable, so a failure is logged and the next tick picks up the rest.
func runPass(ctx context.Context, logger *slog.Logger, engine *coordination.Service, dispatcher *delivery.Dispatcher, projectID string) {
	now := time.Now().UTC()

	drained, err := engine.ProcessEvents(ctx, coordination.ProcessRequest{
		Now:      now,
		Selector: coordination.EventSelector{ProjectID: projectID},
	})
	if err != nil {
		logger.Error("event drain failed", "error", err)
	}

	swept, err := engine.RunScheduledSweep(ctx, coordination.SweepRequest{
		Now:       now,
		ProjectID: projectID,
	})
	if err != nil {
		logger.Error("escalation sweep failed", "error", err)
	}

	sent, err := dispatcher.DispatchPending(ctx, projectID)
	if err != nil {
		logger.Error("delivery dispatch failed", "error", err)
	}

	if drained == nil {
		drained = &coordination.Result{}
	}
	if swept == nil {
		swept = &coordination.Result{}
	}
	logger.Info("pass complete",
		"events_processed", drained.ProcessedEvents,
		"triggers_created", drained.CreatedTriggers+swept.CreatedTriggers,
		"triggers_resolved", drained.ResolvedTriggers+swept.ResolvedTriggers,
		"escalations_swept", swept.ProcessedEvents,
		"notifications_sent", sent)
}

func startMetricsServer(logger *slog.Logger, addr string) *http.Server {
	router := http.NewServeMux()
	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}
	go func() {
		logger.Info("metrics listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	return server
}

func shutdownMetricsServer(logger *slog.Logger, server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
