package messaging

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/course-hub/internal/domain/course"
	"github.com/alem-hub/course-hub/internal/domain/shared"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *InMemoryEventBus) {
	t.Helper()
	bus := NewInMemoryEventBus(DefaultInMemoryEventBusConfig())
	cfg := DefaultDispatcherConfig(bus)
	cfg.Retry = RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
	cfg.DeadLetterQueueSize = 2
	d := NewDispatcher(cfg)
	require.NoError(t, d.Start())
	t.Cleanup(func() {
		d.Stop()
		_ = bus.Close()
	})
	return d, bus
}

func TestDispatcher_RoutesByEventType(t *testing.T) {
	d, bus := newTestDispatcher(t)

	var published, reviewed atomic.Int32
	require.NoError(t, d.Register(shared.EventCoursePublished, "published", func(shared.Event) error {
		published.Add(1)
		return nil
	}))
	require.NoError(t, d.Register(shared.EventCourseReviewed, "reviewed", func(shared.Event) error {
		reviewed.Add(1)
		return nil
	}))

	require.NoError(t, bus.Publish(course.NewCoursePublishedEvent(1, "alice")))
	require.NoError(t, bus.Publish(course.NewCoursePublishedEvent(2, "alice")))
	require.NoError(t, bus.Publish(course.NewCourseReviewedEvent(1, "bob", 5)))

	assert.Equal(t, int32(2), published.Load())
	assert.Equal(t, int32(1), reviewed.Load())

	snap := d.Metrics().Snapshot()
	assert.Equal(t, int64(2), snap.Dispatched[shared.EventCoursePublished])
	assert.Equal(t, int64(3), snap.Executions)
}

func TestDispatcher_RetriesThenSucceeds(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var calls atomic.Int32
	require.NoError(t, d.Register(shared.EventCoursePublished, "flaky", func(shared.Event) error {
		if calls.Add(1) < 3 {
			return errors.New("stream unavailable")
		}
		return nil
	}))

	require.NoError(t, d.Dispatch(course.NewCoursePublishedEvent(1, "alice")))
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, int64(1), d.Metrics().Snapshot().RetrySuccesses)
	assert.Zero(t, d.DeadLetterQueue().Size())
}

func TestDispatcher_ExhaustedGoesToDeadLetters(t *testing.T) {
	d, _ := newTestDispatcher(t)

	require.NoError(t, d.Register(shared.EventCoursePublished, "broken", func(shared.Event) error {
		return errors.New("stream unavailable")
	}))
	require.NoError(t, d.Register(shared.EventCoursePublished, "fine", func(shared.Event) error { return nil }))

	err := d.Dispatch(course.NewCoursePublishedEvent(9, "alice"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler broken failed after 3 attempts")

	require.Equal(t, 1, d.DeadLetterQueue().Size())
	entry, ok := d.DeadLetterQueue().Pop()
	require.True(t, ok)
	assert.Equal(t, "broken", entry.HandlerName)
	assert.Equal(t, 3, entry.Attempts)
	assert.Equal(t, "9", entry.Event.AggregateID())
	assert.Equal(t, int64(1), d.Metrics().Snapshot().Failures)
}

func TestDispatcher_RecoveryMiddleware(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.Use(RecoveryMiddleware(d.logger))

	require.NoError(t, d.RegisterHandler(shared.EventCourseReviewed, HandlerRegistration{
		Name:        "panics",
		MaxAttempts: 1,
		Handler:     func(shared.Event) error { panic("nil map") },
	}))

	err := d.Dispatch(course.NewCourseReviewedEvent(1, "bob", 2))
	assert.ErrorIs(t, err, ErrHandlerPanic)
}

func TestDispatcher_HandlerTimeout(t *testing.T) {
	d, _ := newTestDispatcher(t)

	release := make(chan struct{})
	defer close(release)
	require.NoError(t, d.RegisterHandler(shared.EventCoursePublished, HandlerRegistration{
		Name:        "slow",
		MaxAttempts: 1,
		Timeout:     10 * time.Millisecond,
		Handler: func(shared.Event) error {
			<-release
			return nil
		},
	}))

	err := d.Dispatch(course.NewCoursePublishedEvent(1, "alice"))
	assert.ErrorContains(t, err, "handler timeout")
}

func TestDispatcher_RegistrationRules(t *testing.T) {
	d, _ := newTestDispatcher(t)
	noop := func(shared.Event) error { return nil }

	assert.Error(t, d.Register(shared.EventCoursePublished, "", noop))
	assert.Error(t, d.Register(shared.EventCoursePublished, "x", nil))
	require.NoError(t, d.Register(shared.EventCoursePublished, "x", noop))
	assert.Error(t, d.Register(shared.EventCoursePublished, "x", noop))
	assert.NoError(t, d.Register(shared.EventCourseReviewed, "x", noop))
}

func TestDeadLetterQueue_EvictsOldest(t *testing.T) {
	q := NewDeadLetterQueue(2)
	for _, name := range []string{"a", "b", "c"} {
		q.Add(DeadLetterEntry{HandlerName: name})
	}

	entries := q.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].HandlerName)
	assert.Equal(t, "c", entries[1].HandlerName)
}

func TestDispatcher_RedeliverDeadLetter(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var healthy atomic.Bool
	var calls atomic.Int32
	require.NoError(t, d.Register(shared.EventCoursePublished, "notify", func(shared.Event) error {
		calls.Add(1)
		if !healthy.Load() {
			return errors.New("sink down")
		}
		return nil
	}))

	require.Error(t, d.Dispatch(course.NewCoursePublishedEvent(1, "alice")))
	entry, ok := d.DeadLetterQueue().Pop()
	require.True(t, ok)

	require.Error(t, d.Redeliver(entry))
	assert.Equal(t, 1, d.DeadLetterQueue().Size(), "failed redelivery is queued again")

	entry, _ = d.DeadLetterQueue().Pop()
	healthy.Store(true)
	require.NoError(t, d.Redeliver(entry))
	assert.Zero(t, d.DeadLetterQueue().Size())
	assert.Equal(t, int32(7), calls.Load())

	err := d.Redeliver(DeadLetterEntry{Event: entry.Event, HandlerName: "gone"})
	assert.ErrorIs(t, err, ErrHandlerNotFound)
}
