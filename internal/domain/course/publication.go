package course

import (
	"fmt"
	"strings"

	"github.com/alem-hub/course-hub/internal/domain/shared"
)

// Publication lifecycle:
//
//	Draft (published=false, unpublished=false)
//	  -> PendingPublish   (unresolved PUBLISH request)
//	  -> Published        (published=true,  unpublished=false)
//	  -> PendingUnpublish (unresolved UNPUBLISH request)
//	  -> Unpublished      (published=true,  unpublished=true)
//
// Only one request may be unresolved at a time.

// IsAnyRequestUnresolved reports whether a request is still waiting for a resolver.
func (c *Course) IsAnyRequestUnresolved() bool {
	for _, r := range c.requests {
		if !r.resolved {
			return true
		}
	}
	return false
}

func (c *Course) isLive() bool {
	return c.published && !c.unpublished
}

func (c *Course) fileRequest(r *CourseRequest, want RequestType, op string) error {
	if r == nil {
		return shared.InvalidInput("course", op, "request is required")
	}
	if r.rtype != want {
		return shared.InvalidInput("course", op, fmt.Sprintf("request must be of type %s", want))
	}
	if c.IsAnyRequestUnresolved() {
		return shared.InvalidInput("course", op, "another request is still unresolved")
	}
	if c.teacher == "" || r.requestedBy != c.teacher {
		return shared.InvalidInput("course", op, "only the course teacher can file a request")
	}
	if _, exists := c.requests[r.id]; exists {
		return shared.InvalidInput("course", op, fmt.Sprintf("request %d already exists", r.id))
	}
	c.requests[r.id] = r
	return nil
}

func (c *Course) findRequest(id int64, want RequestType, op string) (*CourseRequest, error) {
	r, ok := c.requests[id]
	if !ok {
		return nil, shared.NotFound("course", op, fmt.Sprintf("request %d not found", id))
	}
	if err := r.checkResolvable(want, op); err != nil {
		return nil, err
	}
	return r, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PUBLISH
// ══════════════════════════════════════════════════════════════════════════════

// RequestPublish files a publish request on behalf of the teacher.
func (c *Course) RequestPublish(r *CourseRequest) error {
	const op = "RequestPublish"
	if !c.everySectionHasLessons() {
		return shared.InvalidInput("course", op, "course needs at least one section and every section needs lessons")
	}
	if c.teacher == "" {
		return shared.InvalidInput("course", op, "course has no teacher")
	}
	if c.IsPublishedAndNotUnpublishedOrDeleted() {
		return shared.InvalidInput("course", op, "course is already published")
	}
	return c.fileRequest(r, RequestPublish, op)
}

// ApprovePublish resolves a publish request and makes the course live.
func (c *Course) ApprovePublish(requestID int64, approvedBy, message string) error {
	const op = "ApprovePublish"
	if strings.TrimSpace(message) == "" {
		return shared.InvalidInput("course", op, "approve message cannot be blank")
	}
	if c.IsPublishedAndNotUnpublishedOrDeleted() {
		return shared.InvalidInput("course", op, "course is already published")
	}
	if strings.TrimSpace(approvedBy) == "" || approvedBy == c.teacher {
		return shared.InvalidInput("course", op, "the course teacher cannot approve their own course")
	}
	r, err := c.findRequest(requestID, RequestPublish, op)
	if err != nil {
		return err
	}

	at := now()
	r.approve(approvedBy, message, at)
	c.approvedBy = approvedBy
	c.published = true
	c.publishedDate = &at
	c.unpublished = false
	for _, s := range c.sections {
		s.published = true
	}
	c.raise(NewCoursePublishedEvent(c.id, c.teacher))
	return nil
}

// RejectPublish resolves a publish request without changing the course state.
func (c *Course) RejectPublish(requestID int64, rejectedBy, reason string) error {
	const op = "RejectPublish"
	if strings.TrimSpace(reason) == "" {
		return shared.InvalidInput("course", op, "reject reason cannot be blank")
	}
	if c.IsPublishedAndNotUnpublishedOrDeleted() {
		return shared.InvalidInput("course", op, "course is already published")
	}
	if strings.TrimSpace(rejectedBy) == "" || rejectedBy == c.teacher {
		return shared.InvalidInput("course", op, "the course teacher cannot reject their own course")
	}
	r, err := c.findRequest(requestID, RequestPublish, op)
	if err != nil {
		return err
	}
	r.reject(rejectedBy, reason, now())
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UNPUBLISH
// ══════════════════════════════════════════════════════════════════════════════

// RequestUnpublish files an unpublish request for a live course.
func (c *Course) RequestUnpublish(r *CourseRequest) error {
	const op = "RequestUnpublish"
	if !c.isLive() || c.deleted {
		return shared.InvalidInput("course", op, "only a published course can be unpublished")
	}
	return c.fileRequest(r, RequestUnpublish, op)
}

// checkUnpublishResolver applies the guards shared by approve and reject of an unpublish request.
func (c *Course) checkUnpublishResolver(resolver, op string) error {
	if !c.isLive() || c.deleted {
		return shared.InvalidInput("course", op, "course is not published")
	}
	if strings.TrimSpace(resolver) == "" || resolver == c.teacher {
		return shared.InvalidInput("course", op, "the course teacher cannot resolve their own request")
	}
	if resolver != c.approvedBy {
		return shared.InvalidInput("course", op, "only the approver of the publication can resolve this request")
	}
	return nil
}

// ApproveUnpublish withdraws the course. It stays published=true so earlier
// students keep their access, and it becomes editable again.
func (c *Course) ApproveUnpublish(requestID int64, approvedBy, message string) error {
	const op = "ApproveUnpublish"
	if strings.TrimSpace(message) == "" {
		return shared.InvalidInput("course", op, "approve message cannot be blank")
	}
	if err := c.checkUnpublishResolver(approvedBy, op); err != nil {
		return err
	}
	r, err := c.findRequest(requestID, RequestUnpublish, op)
	if err != nil {
		return err
	}

	at := now()
	r.approve(approvedBy, message, at)
	c.approvedBy = approvedBy
	c.unpublished = true
	c.unpublishedDate = &at
	return nil
}

// RejectUnpublish keeps the course live.
func (c *Course) RejectUnpublish(requestID int64, rejectedBy, reason string) error {
	const op = "RejectUnpublish"
	if strings.TrimSpace(reason) == "" {
		return shared.InvalidInput("course", op, "reject reason cannot be blank")
	}
	if err := c.checkUnpublishResolver(rejectedBy, op); err != nil {
		return err
	}
	r, err := c.findRequest(requestID, RequestUnpublish, op)
	if err != nil {
		return err
	}
	r.reject(rejectedBy, reason, now())
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REVIEWS
// ══════════════════════════════════════════════════════════════════════════════

// AddReview records a student's review. Each username may review a course once.
func (c *Course) AddReview(r *Review) error {
	const op = "AddReview"
	if c.IsNotPublishedOrDeleted() {
		return shared.InvalidInput("course", op, "only a published course can be reviewed")
	}
	if r == nil {
		return shared.InvalidInput("course", op, "review is required")
	}
	if _, exists := c.reviews[r.id]; exists {
		return shared.InvalidInput("course", op, fmt.Sprintf("review %d already exists", r.id))
	}
	for _, existing := range c.reviews {
		if existing.username == r.username {
			return shared.InvalidInput("course", op, fmt.Sprintf("%s has already reviewed this course", r.username))
		}
	}
	c.reviews[r.id] = r
	c.raise(NewCourseReviewedEvent(c.id, r.username, r.rating))
	return nil
}
