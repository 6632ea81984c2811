// Package jobs contains the maintenance jobs run by the scheduler.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/alem-hub/course-hub/internal/infrastructure/messaging"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPLAY DEAD LETTERS JOB
// Event handlers that exhausted their retries (a notification stream that was
// down, a cache that timed out) are redelivered once the collaborator is back.
// ══════════════════════════════════════════════════════════════════════════════

// DeadLetters is the queue a replay drains.
type DeadLetters interface {
	Size() int
	Pop() (messaging.DeadLetterEntry, bool)
}

// Redeliverer runs one dead-lettered handler again. A failure must put the
// entry back on the queue.
type Redeliverer interface {
	Redeliver(entry messaging.DeadLetterEntry) error
}

// ReplayStats describes the last run.
type ReplayStats struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Attempted int           `json:"attempted"`
	Recovered int           `json:"recovered"`
	Failed    int           `json:"failed"`
	Remaining int           `json:"remaining"`
}

// ReplayDeadLettersJob redelivers up to Batch dead letters per run.
type ReplayDeadLettersJob struct {
	queue       DeadLetters
	redeliverer Redeliverer
	batch       int
	logger      *slog.Logger

	lastRun atomic.Pointer[ReplayStats]
}

// NewReplayDeadLettersJob creates the job. batch <= 0 means 50.
func NewReplayDeadLettersJob(queue DeadLetters, redeliverer Redeliverer, batch int, logger *slog.Logger) *ReplayDeadLettersJob {
	if logger == nil {
		logger = slog.Default()
	}
	if batch <= 0 {
		batch = 50
	}
	return &ReplayDeadLettersJob{
		queue:       queue,
		redeliverer: redeliverer,
		batch:       batch,
		logger:      logger.With("job", "replay_dead_letters"),
	}
}

// Name implements scheduler.Job.
func (j *ReplayDeadLettersJob) Name() string { return "replay_dead_letters" }

// Description implements scheduler.Job.
func (j *ReplayDeadLettersJob) Description() string {
	return "Redeliver event handlers that exhausted their retries"
}

// Run implements scheduler.Job. Entries that fail again go to the back of
// the queue, so one run never sees the same entry twice.
func (j *ReplayDeadLettersJob) Run(ctx context.Context) error {
	stats := &ReplayStats{StartedAt: time.Now().UTC()}
	defer func() {
		stats.Duration = time.Since(stats.StartedAt)
		stats.Remaining = j.queue.Size()
		j.lastRun.Store(stats)
	}()

	n := min(j.queue.Size(), j.batch)
	for range n {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, ok := j.queue.Pop()
		if !ok {
			break
		}
		stats.Attempted++

		if err := j.redeliverer.Redeliver(entry); err != nil {
			stats.Failed++
			j.logger.Warn("redelivery failed",
				"handler", entry.HandlerName,
				"event_type", entry.Event.EventType(),
				"aggregate_id", entry.Event.AggregateID(),
				"first_failed_at", entry.FailedAt,
				"error", err,
			)
			continue
		}
		stats.Recovered++
	}

	if stats.Attempted > 0 {
		j.logger.Info("dead letters replayed",
			"attempted", stats.Attempted,
			"recovered", stats.Recovered,
			"failed", stats.Failed,
		)
	}
	if stats.Failed > 0 && stats.Recovered == 0 {
		return fmt.Errorf("replay: all %d redeliveries failed", stats.Failed)
	}
	return nil
}

// LastRun returns the stats of the previous run, nil before the first.
func (j *ReplayDeadLettersJob) LastRun() *ReplayStats {
	return j.lastRun.Load()
}
