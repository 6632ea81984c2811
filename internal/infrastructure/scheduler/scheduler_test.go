package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name  string
	runs  atomic.Int32
	err   error
	block chan struct{}
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "test job" }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.block != nil {
		select {
		case <-j.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return j.err
}

func TestParseSchedule(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 7, 30, 0, time.UTC)

	tests := []struct {
		spec string
		next time.Time
	}{
		{"@every 1m30s", base.Add(90 * time.Second)},
		{"*/5 * * * *", time.Date(2026, 3, 14, 10, 10, 0, 0, time.UTC)},
		{"0 21 * * *", time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC)},
		{"30 2 * * 0", time.Date(2026, 3, 15, 2, 30, 0, 0, time.UTC)},
		{"0,15-16 11 * * *", time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)},
		{"10-40/15 10 * * *", time.Date(2026, 3, 14, 10, 10, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			s, err := ParseSchedule(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.next, s.Next(base))
			assert.Equal(t, tt.spec, s.String())
		})
	}
}

func TestParseSchedule_Invalid(t *testing.T) {
	for _, spec := range []string{"", "@every soon", "@every -1m", "* * * *", "61 * * * *", "*/0 * * * *", "5-1 * * * *", "a * * * *"} {
		_, err := ParseSchedule(spec)
		assert.Error(t, err, spec)
	}
}

func TestScheduler_RunsDueJobs(t *testing.T) {
	s := New(Config{Tick: 5 * time.Millisecond})
	job := &countingJob{name: "tick"}
	require.NoError(t, s.Register(job, Every(10*time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	assert.Eventually(t, func() bool { return job.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
	assert.False(t, s.IsRunning())

	infos := s.Jobs()
	require.Len(t, infos, 1)
	assert.Equal(t, "@every 10ms", infos[0].Schedule)
	assert.GreaterOrEqual(t, infos[0].Runs, int64(2))
	require.NotNil(t, infos[0].LastResult)
	assert.True(t, infos[0].LastResult.Success())
}

func TestScheduler_DoesNotOverlapRuns(t *testing.T) {
	s := New(Config{Tick: 2 * time.Millisecond})
	job := &countingJob{name: "slow", block: make(chan struct{})}
	require.NoError(t, s.Register(job, Every(time.Millisecond)))
	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool { return s.Jobs()[0].Skipped > 0 }, time.Second, 2*time.Millisecond)
	assert.Equal(t, int32(1), job.runs.Load())

	close(job.block)
	require.NoError(t, s.Stop())
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(Config{})
	ok := &countingJob{name: "ok"}
	bad := &countingJob{name: "bad", err: errors.New("boom")}
	require.NoError(t, s.Register(ok, Every(time.Hour)))
	require.NoError(t, s.Register(bad, Every(time.Hour)))

	res, err := s.RunNow(context.Background(), "ok")
	require.NoError(t, err)
	assert.True(t, res.Manual)

	res, err = s.RunNow(context.Background(), "bad")
	require.EqualError(t, err, "boom")
	assert.False(t, res.Success())

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	infos := s.Jobs()
	assert.Equal(t, "bad", infos[0].Name)
	assert.Equal(t, int64(1), infos[0].Failures)
}

func TestScheduler_RegisterRules(t *testing.T) {
	s := New(Config{})
	job := &countingJob{name: "x"}

	assert.ErrorIs(t, s.Register(nil, Every(time.Second)), ErrNilJob)
	assert.ErrorIs(t, s.Register(job, nil), ErrNilSchedule)
	require.NoError(t, s.Register(job, Every(time.Second)))
	assert.ErrorIs(t, s.Register(job, Every(time.Second)), ErrJobAlreadyExists)
}
