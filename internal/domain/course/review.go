package course

import (
	"strings"
	"time"

	"github.com/alem-hub/course-hub/internal/domain/shared"
)

// Rating bounds of a review.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is a student's rating of a published course.
type Review struct {
	id        int64
	username  string
	rating    int
	content   string
	createdAt time.Time
}

// ReviewParams contains the data required to create a review.
type ReviewParams struct {
	ID       int64
	Username string
	Rating   int
	Content  string
}

// NewReview creates a validated review.
func NewReview(p ReviewParams) (*Review, error) {
	if p.ID <= 0 {
		return nil, shared.NewDomainError("review", "New", shared.ErrInvalidID, "review id must be positive")
	}
	if strings.TrimSpace(p.Username) == "" {
		return nil, shared.InvalidInput("review", "New", "username is required")
	}
	if p.Rating < MinRating || p.Rating > MaxRating {
		return nil, shared.InvalidInput("review", "New", "rating must be between 1 and 5")
	}
	return &Review{
		id:        p.ID,
		username:  p.Username,
		rating:    p.Rating,
		content:   strings.TrimSpace(p.Content),
		createdAt: now(),
	}, nil
}

func (r *Review) ID() int64            { return r.id }
func (r *Review) Username() string     { return r.username }
func (r *Review) Rating() int          { return r.rating }
func (r *Review) Content() string      { return r.content }
func (r *Review) CreatedAt() time.Time { return r.createdAt }
