package eventhandler

import (
	"fmt"

	"github.com/alem-hub/course-hub/internal/domain/shared"
)

// Registrar attaches named handlers to event types.
type Registrar interface {
	Register(eventType shared.EventType, name string, handler shared.EventHandler) error
}

// Register attaches the course handlers. Nil handlers are skipped.
func Register(r Registrar, published *OnCoursePublishedHandler, reviewed *OnCourseReviewedHandler) error {
	if published != nil {
		if err := r.Register(shared.EventCoursePublished, "on_course_published", published.Handle); err != nil {
			return fmt.Errorf("register %s: %w", shared.EventCoursePublished, err)
		}
	}
	if reviewed != nil {
		if err := r.Register(shared.EventCourseReviewed, "on_course_reviewed", reviewed.Handle); err != nil {
			return fmt.Errorf("register %s: %w", shared.EventCourseReviewed, err)
		}
	}
	return nil
}
