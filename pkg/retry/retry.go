// Package retry re-runs operations with exponential backoff and jitter.
//
// The command executor retries lost version races with it, the dispatcher
// and notifier retry handler and Redis calls, and the Postgres pool retries
// its first ping.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ERROR MARKERS
// ═══════════════════════════════════════════════════════════════════════════

// markedError tags an error as worth retrying or as final.
type markedError struct {
	err   error
	retry bool
}

func (e *markedError) Error() string { return e.err.Error() }
func (e *markedError) Unwrap() error { return e.err }

// Retryable marks err as worth another attempt. Without a RetryIf option
// only marked errors are retried.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &markedError{err: err, retry: true}
}

// Permanent marks err as final: Do returns it at once, unwrapped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &markedError{err: err}
}

// IsRetryable reports whether err carries a Retryable mark.
func IsRetryable(err error) bool {
	var m *markedError
	return errors.As(err, &m) && m.retry
}

// IsPermanent reports whether err carries a Permanent mark.
func IsPermanent(err error) bool {
	var m *markedError
	return errors.As(err, &m) && !m.retry
}

// unmark strips a top-level mark so callers see the original error.
func unmark(err error) error {
	if m, ok := err.(*markedError); ok {
		return m.err
	}
	return err
}

// ═══════════════════════════════════════════════════════════════════════════
// BACKOFF
// ═══════════════════════════════════════════════════════════════════════════

// Backoff computes the pause before a retry.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	// Jitter spreads each delay by up to ±Jitter of its value (0..1).
	Jitter float64
}

// Delay returns the pause after the given failed attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	d := float64(b.Initial) * math.Pow(b.Multiplier, float64(attempt-1))
	if limit := float64(b.Max); limit > 0 && d > limit {
		d = limit
	}
	if b.Jitter > 0 {
		d += d * b.Jitter * (rand.Float64()*2 - 1)
	}
	return time.Duration(max(d, 0))
}

// ═══════════════════════════════════════════════════════════════════════════
// RETRIER
// ═══════════════════════════════════════════════════════════════════════════

// Config holds retry configuration.
type Config struct {
	// MaxAttempts counts the first call. Default: 3.
	MaxAttempts int

	Backoff Backoff

	// RetryIf decides which errors are retried. Nil retries only Retryable errors.
	RetryIf func(error) bool

	// OnRetry runs before each pause.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig returns three attempts with 100ms doubling up to 30s.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		Backoff: Backoff{
			Initial:    100 * time.Millisecond,
			Max:        30 * time.Second,
			Multiplier: 2,
			Jitter:     0.1,
		},
	}
}

// Option adjusts a Config.
type Option func(*Config)

// WithMaxAttempts sets the attempt limit. Non-positive values are ignored.
func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxAttempts = n
		}
	}
}

// WithInitialDelay sets the first pause.
func WithInitialDelay(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Backoff.Initial = d
		}
	}
}

// WithMaxDelay caps every pause.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Backoff.Max = d
		}
	}
}

// WithBackoff replaces the whole backoff curve.
func WithBackoff(b Backoff) Option {
	return func(c *Config) {
		if b.Multiplier < 1 {
			b.Multiplier = 1
		}
		b.Jitter = min(max(b.Jitter, 0), 1)
		c.Backoff = b
	}
}

// WithRetryIf sets which errors are retried.
func WithRetryIf(fn func(error) bool) Option {
	return func(c *Config) { c.RetryIf = fn }
}

// WithOnRetry sets a hook called before each pause.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(c *Config) { c.OnRetry = fn }
}

// Retrier runs operations under one Config. Safe for concurrent use.
type Retrier struct {
	cfg Config
}

// New creates a Retrier from DefaultConfig and opts.
func New(opts ...Option) *Retrier {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Retrier{cfg: cfg}
}

func (r *Retrier) shouldRetry(err error) bool {
	if IsPermanent(err) {
		return false
	}
	if r.cfg.RetryIf != nil {
		return r.cfg.RetryIf(err)
	}
	return IsRetryable(err)
}

// Do calls op until it succeeds, returns an error that is not retried, the
// attempts run out or ctx ends. The last error is returned without its mark.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return unmark(err)
			}
			return ctxErr
		}

		if err = op(ctx); err == nil {
			return nil
		}
		if attempt >= r.cfg.MaxAttempts || !r.shouldRetry(err) {
			return unmark(err)
		}

		delay := r.cfg.Backoff.Delay(attempt)
		if r.cfg.OnRetry != nil {
			r.cfg.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return unmark(err)
		case <-timer.C:
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// PRESETS
// ═══════════════════════════════════════════════════════════════════════════

// OptimisticLockRetrier re-runs a whole load/mutate/save cycle when the
// save lost a version race. isConflict decides which errors qualify.
func OptimisticLockRetrier(maxAttempts int, isConflict func(error) bool) *Retrier {
	return New(
		WithMaxAttempts(maxAttempts),
		WithBackoff(Backoff{Initial: 10 * time.Millisecond, Max: 200 * time.Millisecond, Multiplier: 2, Jitter: 0.3}),
		WithRetryIf(isConflict),
	)
}

// RedisRetrier retries cache and stream calls unless the caller gave up.
func RedisRetrier() *Retrier {
	return New(
		WithMaxAttempts(3),
		WithBackoff(Backoff{Initial: 50 * time.Millisecond, Max: 500 * time.Millisecond, Multiplier: 2, Jitter: 0.1}),
		WithRetryIf(func(err error) bool { return !errors.Is(err, context.Canceled) }),
	)
}

// DatabaseRetrier retries Retryable database errors.
func DatabaseRetrier() *Retrier {
	return New(
		WithMaxAttempts(3),
		WithBackoff(Backoff{Initial: 50 * time.Millisecond, Max: time.Second, Multiplier: 2, Jitter: 0.05}),
	)
}
