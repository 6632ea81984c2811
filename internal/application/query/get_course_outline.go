package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alem-hub/course-hub/config"
	"github.com/alem-hub/course-hub/internal/domain/course"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET COURSE OUTLINE QUERY
// Read model of a course: structure, publication state and rating.
// Served from the outline cache when it is available.
// ══════════════════════════════════════════════════════════════════════════════

// GetCourseOutlineQuery contains the query parameters.
type GetCourseOutlineQuery struct {
	CourseID int64

	// SkipCache forces a repository read.
	SkipCache bool
}

// Validate checks the query parameters.
func (q GetCourseOutlineQuery) Validate() error {
	if q.CourseID <= 0 {
		return errors.New("course_id must be positive")
	}
	return nil
}

// OutlineCache stores rendered outlines keyed by course id.
type OutlineCache interface {
	Get(ctx context.Context, courseID int64) (*CourseOutlineDTO, error)
	Set(ctx context.Context, outline *CourseOutlineDTO) error
	Invalidate(ctx context.Context, courseID int64) error
}

// ErrOutlineCacheMiss is returned by OutlineCache.Get when nothing is cached.
var ErrOutlineCacheMiss = errors.New("outline cache miss")

// CourseOutlineDTO is the outline of one course.
type CourseOutlineDTO struct {
	CourseID      int64     `json:"course_id"`
	Title         string    `json:"title"`
	Teacher       string    `json:"teacher"`
	Language      string    `json:"language"`
	Price         string    `json:"price,omitempty"`
	Published     bool      `json:"published"`
	Unpublished   bool      `json:"unpublished"`
	Deleted       bool      `json:"deleted"`
	Editable      bool      `json:"editable"`
	PendingReview bool      `json:"pending_review"`
	AverageRating float64   `json:"average_rating"`
	ReviewCount   int       `json:"review_count"`
	Version       int64     `json:"version"`
	GeneratedAt   time.Time `json:"generated_at"`

	Sections []OutlineSectionDTO `json:"sections"`

	// LessonTitles maps every lesson id to its title.
	LessonTitles map[int64]string `json:"lesson_titles"`
}

// OutlineSectionDTO is one section of an outline.
type OutlineSectionDTO struct {
	ID         int64              `json:"id"`
	Title      string             `json:"title"`
	OrderIndex int                `json:"order_index"`
	Published  bool               `json:"published"`
	Lessons    []OutlineLessonDTO `json:"lessons"`
	Quizzes    []OutlineQuizDTO   `json:"quizzes"`
}

// OutlineLessonDTO is one lesson of an outline.
type OutlineLessonDTO struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Type       string `json:"type"`
	OrderIndex int    `json:"order_index"`
}

// OutlineQuizDTO is one active quiz of an outline.
type OutlineQuizDTO struct {
	ID                  int64  `json:"id"`
	Title               string `json:"title"`
	AfterLessonID       int64  `json:"after_lesson_id"`
	TotalScore          int    `json:"total_score"`
	PassScorePercentage int    `json:"pass_score_percentage"`
	QuestionCount       int    `json:"question_count"`
}

// GetCourseOutlineHandler handles GetCourseOutlineQuery.
type GetCourseOutlineHandler struct {
	repo     course.Repository
	cache    OutlineCache // Optional
	features *config.FeatureFlags
	logger   *slog.Logger
}

// NewGetCourseOutlineHandler creates a new GetCourseOutlineHandler.
func NewGetCourseOutlineHandler(
	repo course.Repository,
	cache OutlineCache,
	features *config.FeatureFlags,
	logger *slog.Logger,
) *GetCourseOutlineHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetCourseOutlineHandler{repo: repo, cache: cache, features: features, logger: logger}
}

// Handle executes the query.
func (h *GetCourseOutlineHandler) Handle(ctx context.Context, q GetCourseOutlineQuery) (*CourseOutlineDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_course_outline: %w", err)
	}

	useCache := h.cache != nil && !q.SkipCache &&
		h.features.IsEnabled(config.FeatureOutlineCache, &config.FeatureContext{CourseID: q.CourseID})

	if useCache {
		outline, err := h.cache.Get(ctx, q.CourseID)
		if err == nil {
			return outline, nil
		}
		if !errors.Is(err, ErrOutlineCacheMiss) {
			h.logger.Warn("outline cache read failed", "course_id", q.CourseID, "error", err)
		}
	}

	c, err := h.repo.GetByID(ctx, q.CourseID)
	if err != nil {
		return nil, fmt.Errorf("get_course_outline: %w", err)
	}
	outline := BuildCourseOutline(c)

	if useCache {
		if err := h.cache.Set(ctx, outline); err != nil {
			h.logger.Warn("outline cache write failed", "course_id", q.CourseID, "error", err)
		}
	}
	return outline, nil
}

// BuildCourseOutline renders the read model of a loaded course.
func BuildCourseOutline(c *course.Course) *CourseOutlineDTO {
	out := &CourseOutlineDTO{
		CourseID:      c.ID(),
		Title:         c.Title(),
		Teacher:       c.Teacher(),
		Language:      c.Language().String(),
		Published:     c.IsPublished(),
		Unpublished:   c.IsUnpublished(),
		Deleted:       c.IsDeleted(),
		Editable:      c.IsEditable(),
		PendingReview: c.IsAnyRequestUnresolved(),
		AverageRating: c.AverageRating(),
		ReviewCount:   len(c.Reviews()),
		Version:       c.Version(),
		GeneratedAt:   time.Now().UTC(),
		LessonTitles:  c.LessonIDAndTitleMap(),
	}
	if p := c.Price(); p != nil {
		out.Price = p.String()
	}

	for _, s := range c.Sections() {
		sec := OutlineSectionDTO{
			ID:         s.ID(),
			Title:      s.Title(),
			OrderIndex: s.OrderIndex(),
			Published:  s.IsPublished(),
		}
		for _, l := range s.Lessons() {
			sec.Lessons = append(sec.Lessons, OutlineLessonDTO{
				ID:         l.ID(),
				Title:      l.Title(),
				Type:       string(l.Type()),
				OrderIndex: l.OrderIndex(),
			})
		}
		for _, q := range s.Quizzes() {
			if q.IsDeleted() {
				continue
			}
			sec.Quizzes = append(sec.Quizzes, OutlineQuizDTO{
				ID:                  q.ID(),
				Title:               q.Title(),
				AfterLessonID:       q.AfterLessonID(),
				TotalScore:          q.TotalScore(),
				PassScorePercentage: q.PassScorePercentage(),
				QuestionCount:       len(q.Questions()),
			})
		}
		out.Sections = append(out.Sections, sec)
	}
	return out
}
