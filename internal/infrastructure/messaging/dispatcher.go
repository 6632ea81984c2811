package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/alem-hub/course-hub/internal/domain/shared"
	"github.com/alem-hub/course-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCHER
// Routes bus events to named side-effect handlers (notifications, cache
// invalidation) with middleware, bounded concurrency, retries and a
// dead letter queue for deliveries that keep failing.
// ══════════════════════════════════════════════════════════════════════════════

// Dispatcher fans events out to registered handlers.
type Dispatcher struct {
	bus         shared.EventSubscriber
	handlers    map[shared.EventType][]HandlerRegistration
	middlewares []Middleware
	retry       RetryConfig
	logger      *slog.Logger
	deadLetterQ *DeadLetterQueue
	metrics     *DispatcherMetrics

	workerPool chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc
	mu         sync.RWMutex
}

// HandlerRegistration describes one handler.
type HandlerRegistration struct {
	Name    string
	Handler shared.EventHandler

	// MaxAttempts counts the first delivery. Zero uses the dispatcher default.
	MaxAttempts int

	Timeout time.Duration
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	Bus            shared.EventSubscriber
	WorkerPoolSize int
	Retry          RetryConfig

	// DeadLetterQueueSize of zero disables the queue.
	DeadLetterQueueSize int

	Logger *slog.Logger
}

// RetryConfig controls redelivery of failed handlers.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the retry policy used for notifications.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

// DefaultDispatcherConfig returns sensible defaults.
func DefaultDispatcherConfig(bus shared.EventSubscriber) DispatcherConfig {
	return DispatcherConfig{
		Bus:                 bus,
		WorkerPoolSize:      8,
		Retry:               DefaultRetryConfig(),
		DeadLetterQueueSize: 1000,
	}
}

// NewDispatcher creates a new event dispatcher.
func NewDispatcher(config DispatcherConfig) *Dispatcher {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.WorkerPoolSize <= 0 {
		config.WorkerPoolSize = 8
	}
	if config.Retry.MaxAttempts <= 0 {
		config.Retry = DefaultRetryConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		bus:        config.Bus,
		handlers:   make(map[shared.EventType][]HandlerRegistration),
		retry:      config.Retry,
		logger:     config.Logger.With("component", "dispatcher"),
		metrics:    NewDispatcherMetrics(),
		workerPool: make(chan struct{}, config.WorkerPoolSize),
		ctx:        ctx,
		cancel:     cancel,
	}
	if config.DeadLetterQueueSize > 0 {
		d.deadLetterQ = NewDeadLetterQueue(config.DeadLetterQueueSize)
	}
	return d
}

// RegisterHandler registers a handler for an event type.
func (d *Dispatcher) RegisterHandler(eventType shared.EventType, reg HandlerRegistration) error {
	if reg.Handler == nil {
		return errors.New("handler cannot be nil")
	}
	if reg.Name == "" {
		return errors.New("handler name is required")
	}
	if reg.MaxAttempts <= 0 {
		reg.MaxAttempts = d.retry.MaxAttempts
	}
	if reg.Timeout <= 0 {
		reg.Timeout = 30 * time.Second
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.handlers[eventType] {
		if existing.Name == reg.Name {
			return fmt.Errorf("handler %q already registered for %s", reg.Name, eventType)
		}
	}
	d.handlers[eventType] = append(d.handlers[eventType], reg)
	d.logger.Debug("registered handler", "event_type", eventType, "handler_name", reg.Name)
	return nil
}

// Register is a convenience method for simple handler registration.
func (d *Dispatcher) Register(eventType shared.EventType, name string, handler shared.EventHandler) error {
	return d.RegisterHandler(eventType, HandlerRegistration{Name: name, Handler: handler})
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// Middleware wraps handler execution.
type Middleware func(shared.EventHandler) shared.EventHandler

// Use adds middleware to the dispatcher. The first one added runs outermost.
func (d *Dispatcher) Use(middleware Middleware) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.middlewares = append(d.middlewares, middleware)
}

// RecoveryMiddleware turns handler panics into errors.
func RecoveryMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("handler panic recovered",
						"event_type", event.EventType(),
						"panic", r,
						"stack", string(debug.Stack()),
					)
					err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
				}
			}()
			return next(event)
		}
	}
}

// LoggingMiddleware logs handler execution.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) error {
			start := time.Now()
			err := next(event)
			if err != nil {
				logger.Warn("handler failed",
					"event_type", event.EventType(),
					"aggregate_id", event.AggregateID(),
					"duration", time.Since(start),
					"error", err,
				)
				return err
			}
			logger.Debug("handler completed",
				"event_type", event.EventType(),
				"aggregate_id", event.AggregateID(),
				"duration", time.Since(start),
			)
			return nil
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT DISPATCHING
// ══════════════════════════════════════════════════════════════════════════════

// Start subscribes the dispatcher to every event on its bus.
func (d *Dispatcher) Start() error {
	if d.bus == nil {
		return errors.New("dispatcher has no bus")
	}
	return d.bus.SubscribeAll(d.Dispatch)
}

// Dispatch runs every handler registered for the event and waits for them.
// Failed handlers end up in the dead letter queue; Dispatch reports them
// joined into one error.
func (d *Dispatcher) Dispatch(event shared.Event) error {
	d.mu.RLock()
	handlers := d.handlers[event.EventType()]
	middlewares := d.middlewares
	d.mu.RUnlock()

	if len(handlers) == 0 {
		return nil
	}
	d.metrics.RecordDispatch(event.EventType())

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, reg := range handlers {
		wg.Add(1)
		go func(r HandlerRegistration) {
			defer wg.Done()
			if err := d.executeHandler(event, r, middlewares); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(reg)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Redeliver runs the handler named in a dead letter entry again with the
// normal retry policy. Another failure puts the event back on the queue.
func (d *Dispatcher) Redeliver(entry DeadLetterEntry) error {
	d.mu.RLock()
	handlers := d.handlers[entry.Event.EventType()]
	middlewares := d.middlewares
	d.mu.RUnlock()

	for _, reg := range handlers {
		if reg.Name == entry.HandlerName {
			return d.executeHandler(entry.Event, reg, middlewares)
		}
	}
	return fmt.Errorf("%w: %s for %s", ErrHandlerNotFound, entry.HandlerName, entry.Event.EventType())
}

func (d *Dispatcher) executeHandler(event shared.Event, reg HandlerRegistration, middlewares []Middleware) error {
	select {
	case d.workerPool <- struct{}{}:
		defer func() { <-d.workerPool }()
	case <-d.ctx.Done():
		return d.ctx.Err()
	}

	handler := reg.Handler
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}

	attempts := 0
	retrier := retry.New(
		retry.WithMaxAttempts(reg.MaxAttempts),
		retry.WithInitialDelay(d.retry.InitialBackoff),
		retry.WithMaxDelay(d.retry.MaxBackoff),
		retry.WithRetryIf(func(err error) bool { return !errors.Is(err, context.Canceled) }),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			d.logger.Debug("retrying handler", "handler", reg.Name, "attempt", attempt, "backoff", delay, "error", err)
		}),
	)
	start := time.Now()
	err := retrier.Do(d.ctx, func(ctx context.Context) error {
		attempts++
		return d.executeWithTimeout(ctx, handler, event, reg.Timeout)
	})
	d.metrics.RecordExecution(time.Since(start), err == nil)

	if err == nil {
		if attempts > 1 {
			d.metrics.RecordRetrySuccess()
		}
		return nil
	}

	if d.deadLetterQ != nil {
		d.deadLetterQ.Add(DeadLetterEntry{
			Event:       event,
			HandlerName: reg.Name,
			Error:       err,
			Attempts:    attempts,
			FailedAt:    time.Now().UTC(),
		})
	}
	d.metrics.RecordFailure()
	return fmt.Errorf("handler %s failed after %d attempts: %w", reg.Name, attempts, err)
}

func (d *Dispatcher) executeWithTimeout(ctx context.Context, handler shared.EventHandler, event shared.Event, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- handler(event) }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("handler timeout after %v", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop cancels pending retries.
func (d *Dispatcher) Stop() {
	d.cancel()
	d.logger.Info("dispatcher stopped")
}

// Metrics returns dispatcher metrics.
func (d *Dispatcher) Metrics() *DispatcherMetrics {
	return d.metrics
}

// DeadLetterQueue returns the dead letter queue, nil when disabled.
func (d *Dispatcher) DeadLetterQueue() *DeadLetterQueue {
	return d.deadLetterQ
}

// ══════════════════════════════════════════════════════════════════════════════
// DEAD LETTER QUEUE
// ══════════════════════════════════════════════════════════════════════════════

// DeadLetterEntry represents a delivery that exhausted its retries.
type DeadLetterEntry struct {
	Event       shared.Event
	HandlerName string
	Error       error
	Attempts    int
	FailedAt    time.Time
}

// DeadLetterQueue keeps the most recent failed deliveries.
type DeadLetterQueue struct {
	entries []DeadLetterEntry
	maxSize int
	mu      sync.Mutex
}

// NewDeadLetterQueue creates a queue holding at most maxSize entries.
func NewDeadLetterQueue(maxSize int) *DeadLetterQueue {
	return &DeadLetterQueue{maxSize: maxSize}
}

// Add appends an entry, evicting the oldest one when full.
func (q *DeadLetterQueue) Add(entry DeadLetterEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) >= q.maxSize {
		q.entries = q.entries[1:]
	}
	q.entries = append(q.entries, entry)
}

// Entries returns a copy of the queue.
func (q *DeadLetterQueue) Entries() []DeadLetterEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]DeadLetterEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Size returns the number of queued entries.
func (q *DeadLetterQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Pop removes and returns the oldest entry.
func (q *DeadLetterQueue) Pop() (DeadLetterEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return DeadLetterEntry{}, false
	}
	e := q.entries[0]
	q.entries = q.entries[1:]
	return e, true
}

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// DispatcherMetrics counts deliveries.
type DispatcherMetrics struct {
	dispatched      map[shared.EventType]int64
	executions      int64
	failures        int64
	retrySuccesses  int64
	totalDurationNs int64
	mu              sync.Mutex
}

// NewDispatcherMetrics creates empty metrics.
func NewDispatcherMetrics() *DispatcherMetrics {
	return &DispatcherMetrics{dispatched: make(map[shared.EventType]int64)}
}

// RecordDispatch counts one dispatched event.
func (m *DispatcherMetrics) RecordDispatch(eventType shared.EventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatched[eventType]++
}

// RecordExecution counts one handler run including its retries.
func (m *DispatcherMetrics) RecordExecution(duration time.Duration, _ bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executions++
	m.totalDurationNs += duration.Nanoseconds()
}

// RecordRetrySuccess counts a handler that succeeded after a retry.
func (m *DispatcherMetrics) RecordRetrySuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retrySuccesses++
}

// RecordFailure counts a handler that exhausted its retries.
func (m *DispatcherMetrics) RecordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

// Snapshot returns a copy of the counters.
func (m *DispatcherMetrics) Snapshot() DispatcherMetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := DispatcherMetricsSnapshot{
		Dispatched:     make(map[shared.EventType]int64, len(m.dispatched)),
		Executions:     m.executions,
		Failures:       m.failures,
		RetrySuccesses: m.retrySuccesses,
	}
	for k, v := range m.dispatched {
		s.Dispatched[k] = v
	}
	if m.executions > 0 {
		s.AvgDuration = time.Duration(m.totalDurationNs / m.executions)
	}
	return s
}

// DispatcherMetricsSnapshot is a point-in-time copy of DispatcherMetrics.
type DispatcherMetricsSnapshot struct {
	Dispatched     map[shared.EventType]int64 `json:"dispatched"`
	Executions     int64                      `json:"executions"`
	Failures       int64                      `json:"failures"`
	RetrySuccesses int64                      `json:"retry_successes"`
	AvgDuration    time.Duration              `json:"avg_duration"`
}
