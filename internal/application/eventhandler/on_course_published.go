// Package eventhandler contains domain event subscribers. They run after the
// write that raised the event has committed and only produce side effects:
// notifications and cache invalidation.
package eventhandler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/alem-hub/course-hub/config"
	"github.com/alem-hub/course-hub/internal/domain/course"
	"github.com/alem-hub/course-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON COURSE PUBLISHED HANDLER
// Tells enrollment and notification collaborators that a course went live
// and drops the cached outline.
// ═══════════════════════════════════════════════════════════════════════════

// Notifier delivers course news to collaborators outside this service.
type Notifier interface {
	NotifyCoursePublished(ctx context.Context, courseID int64, teacher string) error
	NotifyCourseReviewed(ctx context.Context, courseID int64, username string, rating int) error
}

// CacheInvalidator drops cached read models of a course.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, courseID int64) error
}

// OnCoursePublishedHandler handles shared.EventCoursePublished.
type OnCoursePublishedHandler struct {
	notifier Notifier
	cache    CacheInvalidator // Optional
	features *config.FeatureFlags
	logger   *slog.Logger
	timeout  time.Duration
}

// NewOnCoursePublishedHandler creates a new handler.
func NewOnCoursePublishedHandler(
	notifier Notifier,
	cache CacheInvalidator,
	features *config.FeatureFlags,
	logger *slog.Logger,
) *OnCoursePublishedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnCoursePublishedHandler{
		notifier: notifier,
		cache:    cache,
		features: features,
		logger:   logger.With("handler", "on_course_published"),
		timeout:  10 * time.Second,
	}
}

// Handle implements shared.EventHandler.
func (h *OnCoursePublishedHandler) Handle(event shared.Event) error {
	courseID, teacher, ok := publishedFields(event)
	if !ok {
		h.logger.Warn("received unexpected event", "event_type", event.EventType())
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	h.logger.Info("course published", "course_id", courseID, "teacher", teacher)

	if h.cache != nil {
		if err := h.cache.Invalidate(ctx, courseID); err != nil {
			h.logger.Warn("failed to invalidate outline", "course_id", courseID, "error", err)
		}
	}

	fctx := &config.FeatureContext{CourseID: courseID, Teacher: teacher}
	if h.notifier == nil || !h.features.IsEnabled(config.FeaturePublishNotify, fctx) {
		return nil
	}
	if err := h.notifier.NotifyCoursePublished(ctx, courseID, teacher); err != nil {
		return fmt.Errorf("notify course published %d: %w", courseID, err)
	}
	return nil
}

// publishedFields accepts the typed event and the payload-only form
// delivered by the Redis bus.
func publishedFields(event shared.Event) (int64, string, bool) {
	switch e := event.(type) {
	case course.CoursePublishedEvent:
		return e.CourseID, e.Teacher, true
	case *course.CoursePublishedEvent:
		return e.CourseID, e.Teacher, true
	}
	if event.EventType() != shared.EventCoursePublished {
		return 0, "", false
	}
	p := event.Payload()
	id, ok := payloadInt64(p, "course_id")
	if !ok {
		id, ok = parseAggregateID(event.AggregateID())
	}
	teacher, _ := p["teacher"].(string)
	return id, teacher, ok
}

// payloadInt64 reads a number that may have gone through JSON.
func payloadInt64(p map[string]interface{}, key string) (int64, bool) {
	switch v := p[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case string:
		return parseAggregateID(v)
	default:
		return 0, false
	}
}

func parseAggregateID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}
