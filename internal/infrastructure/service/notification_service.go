// Package service adapts outbound collaborators (notification delivery) to
// the ports of the application layer.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alem-hub/course-hub/pkg/circuitbreaker"
	"github.com/alem-hub/course-hub/pkg/retry"
)

// Notification kinds.
const (
	KindCoursePublished = "course_published"
	KindCourseReviewed  = "course_reviewed"
)

// DefaultNotificationStream is the Redis stream read by the notification
// workers of the platform.
const DefaultNotificationStream = "course-hub:notifications"

// Notification is one message for the enrollment and mailing collaborators.
type Notification struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	CourseID  int64     `json:"course_id"`
	Teacher   string    `json:"teacher,omitempty"`
	Username  string    `json:"username,omitempty"`
	Rating    int       `json:"rating,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationSink delivers one notification.
type NotificationSink interface {
	Deliver(ctx context.Context, n Notification) error
}

// ═══════════════════════════════════════════════════════════════════════════
// NOTIFICATION SERVICE
// ═══════════════════════════════════════════════════════════════════════════

// NotificationService implements eventhandler.Notifier. Delivery is retried
// and guarded by a circuit breaker so a dead sink fails fast.
type NotificationService struct {
	sink    NotificationSink
	retrier *retry.Retrier
	breaker *circuitbreaker.CircuitBreaker
	now     func() time.Time
	logger  *slog.Logger
}

// NewNotificationService wraps sink.
func NewNotificationService(sink NotificationSink, logger *slog.Logger) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "notifier")
	return &NotificationService{
		sink:    sink,
		retrier: retry.RedisRetrier(),
		breaker: circuitbreaker.NotifierBreaker(func(name string, from, to circuitbreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		}),
		now:    time.Now,
		logger: logger,
	}
}

// Breaker exposes the delivery breaker for metrics.
func (s *NotificationService) Breaker() *circuitbreaker.CircuitBreaker {
	return s.breaker
}

// NotifyCoursePublished tells collaborators a course went live.
func (s *NotificationService) NotifyCoursePublished(ctx context.Context, courseID int64, teacher string) error {
	return s.send(ctx, Notification{Kind: KindCoursePublished, CourseID: courseID, Teacher: teacher})
}

// NotifyCourseReviewed tells the course teacher about a new review.
func (s *NotificationService) NotifyCourseReviewed(ctx context.Context, courseID int64, username string, rating int) error {
	return s.send(ctx, Notification{Kind: KindCourseReviewed, CourseID: courseID, Username: username, Rating: rating})
}

func (s *NotificationService) send(ctx context.Context, n Notification) error {
	n.ID = uuid.NewString()
	n.CreatedAt = s.now().UTC()

	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.retrier.Do(ctx, func(ctx context.Context) error {
			return s.sink.Deliver(ctx, n)
		})
	})
	if err != nil {
		return fmt.Errorf("deliver %s for course %d: %w", n.Kind, n.CourseID, err)
	}
	s.logger.Debug("notification delivered", "kind", n.Kind, "course_id", n.CourseID, "id", n.ID)
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// SINKS
// ═══════════════════════════════════════════════════════════════════════════

// RedisStreamSink appends notifications to a capped Redis stream.
type RedisStreamSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisStreamSink creates a sink. The stream keeps roughly maxLen
// entries; zero means 10000.
func NewRedisStreamSink(client *redis.Client, stream string, maxLen int64) *RedisStreamSink {
	if stream == "" {
		stream = DefaultNotificationStream
	}
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &RedisStreamSink{client: client, stream: stream, maxLen: maxLen}
}

// Deliver implements NotificationSink.
func (r *RedisStreamSink) Deliver(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return retry.Permanent(fmt.Errorf("encode notification: %w", err))
	}
	return r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: r.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"id":        n.ID,
			"kind":      n.Kind,
			"course_id": strconv.FormatInt(n.CourseID, 10),
			"body":      string(body),
		},
	}).Err()
}

// LogSink writes notifications to the log. Used when Redis is disabled.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a log-only sink.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "notification_log")}
}

// Deliver implements NotificationSink.
func (l *LogSink) Deliver(_ context.Context, n Notification) error {
	l.logger.Info("notification",
		"id", n.ID,
		"kind", n.Kind,
		"course_id", n.CourseID,
		"teacher", n.Teacher,
		"username", n.Username,
		"rating", n.Rating,
	)
	return nil
}
