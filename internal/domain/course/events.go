package course

import (
	"strconv"

	"github.com/alem-hub/course-hub/internal/domain/shared"
)

// CoursePublishedEvent is raised when a publish request is approved.
// Enrollment and notification services subscribe to it.
type CoursePublishedEvent struct {
	shared.BaseEvent
	CourseID int64  `json:"course_id"`
	Teacher  string `json:"teacher"`
}

// NewCoursePublishedEvent creates the event for the given course.
func NewCoursePublishedEvent(courseID int64, teacher string) CoursePublishedEvent {
	return CoursePublishedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventCoursePublished, strconv.FormatInt(courseID, 10)),
		CourseID:  courseID,
		Teacher:   teacher,
	}
}

// Payload implements shared.Event.
func (e CoursePublishedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"course_id": e.CourseID,
		"teacher":   e.Teacher,
	}
}

// CourseReviewedEvent is raised when a student reviews a course.
type CourseReviewedEvent struct {
	shared.BaseEvent
	CourseID int64  `json:"course_id"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
}

// NewCourseReviewedEvent creates the event for the given review.
func NewCourseReviewedEvent(courseID int64, username string, rating int) CourseReviewedEvent {
	return CourseReviewedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventCourseReviewed, strconv.FormatInt(courseID, 10)),
		CourseID:  courseID,
		Username:  username,
		Rating:    rating,
	}
}

// Payload implements shared.Event.
func (e CourseReviewedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"course_id": e.CourseID,
		"username":  e.Username,
		"rating":    e.Rating,
	}
}
