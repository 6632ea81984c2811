// Package main runs the course hub service: it wires storage, cache and
// event delivery, then serves health and metrics until it is signalled to
// stop.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alem-hub/course-hub/config"
	"github.com/alem-hub/course-hub/internal/app"
	httpserver "github.com/alem-hub/course-hub/internal/interface/http"
	"github.com/alem-hub/course-hub/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. Configuration and logging
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := newLogger(cfg).With(
		logger.Version(cfg.App.Version),
		logger.Environment(string(cfg.App.Environment)),
	)
	log.Info("starting course hub", logger.String("name", cfg.App.Name))

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Wiring
	// ─────────────────────────────────────────────────────────────────────────
	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to wire application: %w", err)
	}
	defer a.Close()

	if err := a.StartJobs(ctx); err != nil {
		return fmt.Errorf("failed to start jobs: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. Ops endpoints
	// ─────────────────────────────────────────────────────────────────────────
	srvCfg := httpserver.DefaultConfig()
	srvCfg.Addr = cfg.App.HTTPAddr
	srv := httpserver.NewServer(srvCfg, a.OpsHandler(), log)
	errCh := srv.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. Wait for shutdown
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Error("http shutdown failed", logger.Err(err))
	}

	if dlq := a.Dispatcher.DeadLetterQueue(); dlq != nil && dlq.Size() > 0 {
		log.Warn("exiting with undelivered events", logger.Int("dead_letters", dlq.Size()))
	}
	log.Info("course hub stopped")
	return nil
}

func newLogger(cfg *config.Config) *logger.Logger {
	return logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.Observability.AddCaller,
		Format:    cfg.Observability.LogFormat,
	})
}
