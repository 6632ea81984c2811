package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/course-hub/config"
	"github.com/alem-hub/course-hub/internal/domain/course"
	"github.com/alem-hub/course-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PUBLICATION COMMANDS
// Teacher files a request; an admin approves or rejects it.
// ══════════════════════════════════════════════════════════════════════════════

// PublicationResult reports the request and the course state after a workflow step.
type PublicationResult struct {
	CourseID    int64
	RequestID   int64
	Status      course.RequestStatus
	Published   bool
	Unpublished bool
	ApprovedBy  string
	Version     int64
}

func publicationResult(c *course.Course, requestID int64) *PublicationResult {
	res := &PublicationResult{
		CourseID:    c.ID(),
		RequestID:   requestID,
		Published:   c.IsPublished(),
		Unpublished: c.IsUnpublished(),
		ApprovedBy:  c.ApprovedBy(),
		Version:     c.Version(),
	}
	if r, ok := c.Request(requestID); ok {
		res.Status = r.Status()
	}
	return res
}

// ─── File a request ───────────────────────────────────────────────────────────

// FileRequestCommand asks for the course to be published or unpublished.
// Serves both RequestPublish and RequestUnpublish.
type FileRequestCommand struct {
	CourseID    int64              `validate:"gt=0"`
	Type        course.RequestType `validate:"oneof=PUBLISH UNPUBLISH"`
	Message     string             `validate:"max=2000"`
	RequestedBy string             `validate:"notblank"`
}

// Validate validates the command.
func (c FileRequestCommand) Validate() error { return validateCommand("FileRequest", c) }

// FileRequestHandler handles FileRequestCommand.
type FileRequestHandler struct {
	exec *Executor
}

// NewFileRequestHandler creates a new FileRequestHandler.
func NewFileRequestHandler(exec *Executor) *FileRequestHandler {
	return &FileRequestHandler{exec: exec}
}

// Handle executes the command.
func (h *FileRequestHandler) Handle(ctx context.Context, cmd FileRequestCommand) (*PublicationResult, error) {
	op := "request_" + lower(cmd.Type)
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	requestID, err := h.exec.NextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c, err := h.exec.Mutate(ctx, cmd.CourseID, cmd.RequestedBy, op, func(c *course.Course) error {
		r, err := course.NewCourseRequest(course.CourseRequestParams{
			ID:          requestID,
			Type:        cmd.Type,
			Message:     cmd.Message,
			RequestedBy: cmd.RequestedBy,
		})
		if err != nil {
			return err
		}
		if cmd.Type == course.RequestPublish {
			return c.RequestPublish(r)
		}
		return c.RequestUnpublish(r)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return publicationResult(c, requestID), nil
}

// ─── Resolve a request ────────────────────────────────────────────────────────

// Resolution is the admin's decision on a request.
type Resolution string

const (
	ResolutionApprove Resolution = "approve"
	ResolutionReject  Resolution = "reject"
)

// ResolveRequestCommand approves or rejects a pending request.
// Serves ApprovePublish, RejectPublish, ApproveUnpublish and RejectUnpublish.
// Note is the approval message or the rejection reason.
type ResolveRequestCommand struct {
	CourseID   int64              `validate:"gt=0"`
	RequestID  int64              `validate:"gt=0"`
	Type       course.RequestType `validate:"oneof=PUBLISH UNPUBLISH"`
	Resolution Resolution         `validate:"oneof=approve reject"`
	Note       string             `validate:"notblank,max=2000"`
	ResolvedBy string             `validate:"notblank"`
}

// Validate validates the command.
func (c ResolveRequestCommand) Validate() error { return validateCommand("ResolveRequest", c) }

// ResolveRequestHandler handles ResolveRequestCommand.
type ResolveRequestHandler struct {
	exec *Executor
}

// NewResolveRequestHandler creates a new ResolveRequestHandler.
func NewResolveRequestHandler(exec *Executor) *ResolveRequestHandler {
	return &ResolveRequestHandler{exec: exec}
}

// Handle executes the command.
func (h *ResolveRequestHandler) Handle(ctx context.Context, cmd ResolveRequestCommand) (*PublicationResult, error) {
	op := string(cmd.Resolution) + "_" + lower(cmd.Type)
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c, err := h.exec.Mutate(ctx, cmd.CourseID, cmd.ResolvedBy, op, func(c *course.Course) error {
		switch {
		case cmd.Type == course.RequestPublish && cmd.Resolution == ResolutionApprove:
			return c.ApprovePublish(cmd.RequestID, cmd.ResolvedBy, cmd.Note)
		case cmd.Type == course.RequestPublish:
			return c.RejectPublish(cmd.RequestID, cmd.ResolvedBy, cmd.Note)
		case cmd.Resolution == ResolutionApprove:
			return c.ApproveUnpublish(cmd.RequestID, cmd.ResolvedBy, cmd.Note)
		default:
			return c.RejectUnpublish(cmd.RequestID, cmd.ResolvedBy, cmd.Note)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return publicationResult(c, cmd.RequestID), nil
}

// ─── Reviews ──────────────────────────────────────────────────────────────────

// AddReviewCommand records a student's review of a published course.
type AddReviewCommand struct {
	CourseID int64  `validate:"gt=0"`
	Username string `validate:"notblank,max=255"`
	Rating   int    `validate:"gte=1,lte=5"`
	Content  string `validate:"max=5000"`
}

// Validate validates the command.
func (c AddReviewCommand) Validate() error { return validateCommand("AddReview", c) }

// AddReviewResult reports the new review and the updated average.
type AddReviewResult struct {
	CourseID      int64
	ReviewID      int64
	AverageRating float64
	Version       int64
}

// AddReviewHandler handles AddReviewCommand.
type AddReviewHandler struct {
	exec     *Executor
	features *config.FeatureFlags
}

// NewAddReviewHandler creates a new AddReviewHandler. features may be nil.
func NewAddReviewHandler(exec *Executor, features *config.FeatureFlags) *AddReviewHandler {
	return &AddReviewHandler{exec: exec, features: features}
}

// Handle executes the command.
func (h *AddReviewHandler) Handle(ctx context.Context, cmd AddReviewCommand) (*AddReviewResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("add_review: %w", err)
	}
	if !h.features.IsEnabled(config.FeatureReviews, &config.FeatureContext{CourseID: cmd.CourseID}) {
		return nil, fmt.Errorf("add_review: %w",
			shared.InvalidInput("command", "AddReview", "reviews are disabled for this course"))
	}

	reviewID, err := h.exec.NextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("add_review: %w", err)
	}

	c, err := h.exec.Mutate(ctx, cmd.CourseID, cmd.Username, "add_review", func(c *course.Course) error {
		r, err := course.NewReview(course.ReviewParams{
			ID:       reviewID,
			Username: cmd.Username,
			Rating:   cmd.Rating,
			Content:  cmd.Content,
		})
		if err != nil {
			return err
		}
		return c.AddReview(r)
	})
	if err != nil {
		return nil, fmt.Errorf("add_review: %w", err)
	}

	return &AddReviewResult{
		CourseID:      c.ID(),
		ReviewID:      reviewID,
		AverageRating: c.AverageRating(),
		Version:       c.Version(),
	}, nil
}

func lower(t course.RequestType) string {
	if t == course.RequestUnpublish {
		return "unpublish"
	}
	return "publish"
}
