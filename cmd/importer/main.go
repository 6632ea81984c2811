// Package main imports YAML course documents into the course hub.
//
// Usage:
//
//	importer [-dir ./catalog] [-fail-fast]
//
// Every document is validated against the catalog schema before it is
// stored as a draft course. Cached outlines are dropped afterwards.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alem-hub/course-hub/config"
	"github.com/alem-hub/course-hub/internal/app"
	"github.com/alem-hub/course-hub/internal/infrastructure/catalog"
	"github.com/alem-hub/course-hub/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fs := flag.NewFlagSet("importer", flag.ContinueOnError)
	dir := fs.String("dir", cfg.Catalog.Dir, "directory with course documents")
	failFast := fs.Bool("fail-fast", cfg.Catalog.FailFast, "stop at the first rejected document")
	if err := fs.Parse(args); err != nil {
		return err
	}

	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.Observability.AddCaller,
		Format:    cfg.Observability.LogFormat,
	}).With(logger.Component("importer"))

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	loader, err := catalog.NewLoader(log.Slog())
	if err != nil {
		return err
	}
	report, err := loader.ImportDir(ctx, *dir, a.Commands.ImportCourse, *failFast)
	if err != nil {
		return err
	}

	if a.OutlineCache != nil && len(report.Imported) > 0 {
		if err := a.OutlineCache.InvalidateAll(ctx); err != nil {
			log.Warn("failed to clear outline cache", logger.Err(err))
		}
	}

	for _, res := range report.Imported {
		log.Debug("course stored",
			logger.CourseID(res.CourseID),
			logger.Int("sections", res.Sections),
			logger.Int("quizzes", res.Quizzes),
		)
	}
	for path, ferr := range report.Failed {
		log.Error("document rejected", logger.Path(path), logger.Err(ferr))
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d documents rejected", len(report.Failed), len(report.Failed)+len(report.Imported))
	}
	return nil
}
