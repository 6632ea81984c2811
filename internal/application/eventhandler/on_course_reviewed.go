package eventhandler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alem-hub/course-hub/internal/domain/course"
	"github.com/alem-hub/course-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON COURSE REVIEWED HANDLER
// Refreshes the outline (average rating) and tells the teacher.
// ═══════════════════════════════════════════════════════════════════════════

// OnCourseReviewedHandler handles shared.EventCourseReviewed.
type OnCourseReviewedHandler struct {
	notifier Notifier         // Optional
	cache    CacheInvalidator // Optional
	logger   *slog.Logger
}

// NewOnCourseReviewedHandler creates a new handler.
func NewOnCourseReviewedHandler(notifier Notifier, cache CacheInvalidator, logger *slog.Logger) *OnCourseReviewedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnCourseReviewedHandler{
		notifier: notifier,
		cache:    cache,
		logger:   logger.With("handler", "on_course_reviewed"),
	}
}

// Handle implements shared.EventHandler.
func (h *OnCourseReviewedHandler) Handle(event shared.Event) error {
	courseID, username, rating, ok := reviewedFields(event)
	if !ok {
		h.logger.Warn("received unexpected event", "event_type", event.EventType())
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	h.logger.Info("course reviewed", "course_id", courseID, "username", username, "rating", rating)

	if h.cache != nil {
		if err := h.cache.Invalidate(ctx, courseID); err != nil {
			h.logger.Warn("failed to invalidate outline", "course_id", courseID, "error", err)
		}
	}
	if h.notifier == nil {
		return nil
	}
	if err := h.notifier.NotifyCourseReviewed(ctx, courseID, username, rating); err != nil {
		return fmt.Errorf("notify course reviewed %d: %w", courseID, err)
	}
	return nil
}

func reviewedFields(event shared.Event) (int64, string, int, bool) {
	switch e := event.(type) {
	case course.CourseReviewedEvent:
		return e.CourseID, e.Username, e.Rating, true
	case *course.CourseReviewedEvent:
		return e.CourseID, e.Username, e.Rating, true
	}
	if event.EventType() != shared.EventCourseReviewed {
		return 0, "", 0, false
	}
	p := event.Payload()
	id, ok := payloadInt64(p, "course_id")
	if !ok {
		return 0, "", 0, false
	}
	rating, _ := payloadInt64(p, "rating")
	username, _ := p["username"].(string)
	return id, username, int(rating), true
}
