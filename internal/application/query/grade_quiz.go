// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alem-hub/course-hub/internal/domain/course"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRADE QUIZ QUERY
// Grades one submission against the current version of a quiz. Grading
// reads the aggregate and never changes it.
// ══════════════════════════════════════════════════════════════════════════════

// GradeQuizQuery contains a student's submission.
type GradeQuizQuery struct {
	CourseID int64
	QuizID   int64

	// Answers maps question id to the selected option ids.
	Answers course.Answers

	// Student is only used for logging.
	Student string
}

// Validate checks the query parameters.
func (q GradeQuizQuery) Validate() error {
	if q.CourseID <= 0 {
		return errors.New("course_id must be positive")
	}
	if q.QuizID <= 0 {
		return errors.New("quiz_id must be positive")
	}
	return nil
}

// GradeQuizDTO is the grading outcome.
type GradeQuizDTO struct {
	CourseID   int64 `json:"course_id"`
	QuizID     int64 `json:"quiz_id"`
	Score      int   `json:"score"`
	TotalScore int   `json:"total_score"`
	Passed     bool  `json:"passed"`
}

// GradeQuizHandler handles GradeQuizQuery.
type GradeQuizHandler struct {
	repo   course.Repository
	logger *slog.Logger
}

// NewGradeQuizHandler creates a new GradeQuizHandler.
func NewGradeQuizHandler(repo course.Repository, logger *slog.Logger) *GradeQuizHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GradeQuizHandler{repo: repo, logger: logger}
}

// Handle executes the query.
func (h *GradeQuizHandler) Handle(ctx context.Context, q GradeQuizQuery) (*GradeQuizDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("grade_quiz: %w", err)
	}

	c, err := h.repo.GetByID(ctx, q.CourseID)
	if err != nil {
		return nil, fmt.Errorf("grade_quiz: %w", err)
	}

	res, err := c.CalculateQuiz(q.QuizID, q.Answers)
	if err != nil {
		return nil, fmt.Errorf("grade_quiz: %w", err)
	}

	h.logger.Debug("quiz graded",
		"course_id", q.CourseID,
		"quiz_id", q.QuizID,
		"student", q.Student,
		"score", res.Score,
		"total_score", res.TotalScore,
		"passed", res.Passed,
	)

	return &GradeQuizDTO{
		CourseID:   q.CourseID,
		QuizID:     res.QuizID,
		Score:      res.Score,
		TotalScore: res.TotalScore,
		Passed:     res.Passed,
	}, nil
}
