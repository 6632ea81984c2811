// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alem-hub/course-hub/internal/domain/course"
	"github.com/alem-hub/course-hub/internal/domain/shared"
	"github.com/alem-hub/course-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXECUTOR
// Runs one load → mutate → save → publish cycle for a course aggregate.
// A lost version race re-runs the whole cycle on a fresh copy.
// ══════════════════════════════════════════════════════════════════════════════

// OutlineInvalidator drops cached read models of a course after a write.
type OutlineInvalidator interface {
	Invalidate(ctx context.Context, courseID int64) error
}

// ExecutorConfig contains the collaborators of an Executor.
type ExecutorConfig struct {
	Repository course.Repository

	// Publisher receives the events drained after a successful save. Optional.
	Publisher shared.EventPublisher

	// Cache is invalidated after every successful save. Optional.
	Cache OutlineInvalidator

	// MaxAttempts bounds optimistic-lock retries. Default: 3.
	MaxAttempts int

	Logger *slog.Logger
}

// Executor is shared by every command handler in this package.
type Executor struct {
	repo      course.Repository
	publisher shared.EventPublisher
	cache     OutlineInvalidator
	retrier   *retry.Retrier
	logger    *slog.Logger
}

// NewExecutor creates a new Executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Executor{
		repo:      cfg.Repository,
		publisher: cfg.Publisher,
		cache:     cfg.Cache,
		retrier:   retry.OptimisticLockRetrier(cfg.MaxAttempts, shared.IsOptimisticLock),
		logger:    cfg.Logger,
	}
}

// NextID allocates an id for a new course or child entity.
func (e *Executor) NextID(ctx context.Context) (int64, error) {
	id, err := e.repo.NextID(ctx)
	if err != nil {
		return 0, fmt.Errorf("allocate id: %w", err)
	}
	return id, nil
}

// NextIDs allocates n ids.
func (e *Executor) NextIDs(ctx context.Context, n int) ([]int64, error) {
	ids := make([]int64, 0, n)
	for range n {
		id, err := e.NextID(ctx)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Create stores a brand new course and publishes whatever it raised.
func (e *Executor) Create(ctx context.Context, c *course.Course) error {
	if err := e.repo.Create(ctx, c); err != nil {
		return err
	}
	e.afterSave(ctx, c, "create")
	return nil
}

// Mutate loads the course, applies fn, records the actor and saves.
// fn must only touch the course it is given: it runs again on every retry.
func (e *Executor) Mutate(
	ctx context.Context,
	courseID int64,
	actor string,
	op string,
	fn func(c *course.Course) error,
) (*course.Course, error) {
	start := time.Now()
	attempts := 0
	var saved *course.Course

	err := e.retrier.Do(ctx, func(ctx context.Context) error {
		attempts++
		c, err := e.repo.GetByID(ctx, courseID)
		if err != nil {
			return err
		}

		if err := fn(c); err != nil {
			return err
		}
		c.Touch(actor)

		if c.IsMarkedForRemoval() {
			err = e.repo.Remove(ctx, c)
		} else {
			err = e.repo.Save(ctx, c)
		}
		if err != nil {
			if shared.IsOptimisticLock(err) {
				e.logger.Warn("course save lost a version race",
					"course_id", courseID,
					"operation", op,
					"attempt", attempts,
				)
			}
			return err
		}

		saved = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.afterSave(ctx, saved, op)
	e.logger.Debug("course command applied",
		"course_id", courseID,
		"operation", op,
		"actor", actor,
		"attempts", attempts,
		"duration", time.Since(start),
	)
	return saved, nil
}

// afterSave publishes drained events and drops cached outlines.
// Failures here are logged: the write itself already committed.
func (e *Executor) afterSave(ctx context.Context, c *course.Course, op string) {
	events := c.PullEvents()
	if e.publisher != nil {
		for _, event := range events {
			if err := e.publisher.Publish(event); err != nil {
				e.logger.Error("failed to publish course event",
					"course_id", c.ID(),
					"event_type", event.EventType(),
					"operation", op,
					"error", err,
				)
			}
		}
	}

	if e.cache != nil {
		if err := e.cache.Invalidate(ctx, c.ID()); err != nil {
			e.logger.Warn("failed to invalidate course outline",
				"course_id", c.ID(),
				"operation", op,
				"error", err,
			)
		}
	}
}
