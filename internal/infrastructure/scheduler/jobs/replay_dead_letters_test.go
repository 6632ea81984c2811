package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/course-hub/internal/domain/course"
	"github.com/alem-hub/course-hub/internal/infrastructure/messaging"
)

// requeueingRedeliverer fails for the named handlers and puts them back.
type requeueingRedeliverer struct {
	queue   *messaging.DeadLetterQueue
	failing map[string]bool
	seen    []string
}

func (r *requeueingRedeliverer) Redeliver(e messaging.DeadLetterEntry) error {
	r.seen = append(r.seen, e.HandlerName)
	if r.failing[e.HandlerName] {
		r.queue.Add(e)
		return errors.New("still down")
	}
	return nil
}

func fill(q *messaging.DeadLetterQueue, names ...string) {
	for i, name := range names {
		q.Add(messaging.DeadLetterEntry{
			Event:       course.NewCoursePublishedEvent(int64(i+1), "t"),
			HandlerName: name,
		})
	}
}

func TestReplayDeadLetters_RecoversAndRequeues(t *testing.T) {
	q := messaging.NewDeadLetterQueue(10)
	fill(q, "a", "b", "c")
	r := &requeueingRedeliverer{queue: q, failing: map[string]bool{"b": true}}
	job := NewReplayDeadLettersJob(q, r, 0, nil)

	assert.Nil(t, job.LastRun())
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, []string{"a", "b", "c"}, r.seen, "requeued entries are not retried in the same run")
	stats := job.LastRun()
	require.NotNil(t, stats)
	assert.Equal(t, 3, stats.Attempted)
	assert.Equal(t, 2, stats.Recovered)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Remaining)
}

func TestReplayDeadLetters_RespectsBatch(t *testing.T) {
	q := messaging.NewDeadLetterQueue(10)
	fill(q, "a", "b", "c", "d")
	r := &requeueingRedeliverer{queue: q}

	require.NoError(t, NewReplayDeadLettersJob(q, r, 3, nil).Run(context.Background()))
	assert.Equal(t, []string{"a", "b", "c"}, r.seen)
	assert.Equal(t, 1, q.Size())
}

func TestReplayDeadLetters_FailsWhenNothingRecovers(t *testing.T) {
	q := messaging.NewDeadLetterQueue(10)
	fill(q, "a", "b")
	r := &requeueingRedeliverer{queue: q, failing: map[string]bool{"a": true, "b": true}}

	err := NewReplayDeadLettersJob(q, r, 10, nil).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, q.Size())
}

func TestReplayDeadLetters_EmptyQueue(t *testing.T) {
	q := messaging.NewDeadLetterQueue(10)
	job := NewReplayDeadLettersJob(q, &requeueingRedeliverer{queue: q}, 10, nil)

	require.NoError(t, job.Run(context.Background()))
	assert.Zero(t, job.LastRun().Attempted)
}
