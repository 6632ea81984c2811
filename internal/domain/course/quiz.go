package course

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alem-hub/course-hub/internal/domain/shared"
)

// Answers maps a question id to the option ids a student submitted for it.
type Answers map[int64][]int64

// Quiz belongs to a section and is shown after one of the section's lessons.
type Quiz struct {
	id                  int64
	title               string
	description         string
	afterLessonID       int64
	questions           map[int64]*Question
	totalScore          int
	passScorePercentage int
	deleted             bool
}

// QuizParams contains the data required to create a quiz.
type QuizParams struct {
	ID                  int64
	Title               string
	Description         string
	AfterLessonID       int64
	PassScorePercentage int
	Questions           []*Question
}

// UpdateQuizParams replaces the editable part of a quiz.
type UpdateQuizParams struct {
	Title               string
	Description         string
	AfterLessonID       int64
	PassScorePercentage int
}

// NewQuiz creates a quiz. Initial questions go through the same rules as addQuestion.
func NewQuiz(p QuizParams) (*Quiz, error) {
	if p.ID <= 0 {
		return nil, shared.NewDomainError("quiz", "New", shared.ErrInvalidID, "quiz id must be positive")
	}
	if err := validateQuizFields(p.Title, p.AfterLessonID, p.PassScorePercentage); err != nil {
		return nil, err
	}

	q := &Quiz{
		id:                  p.ID,
		title:               strings.TrimSpace(p.Title),
		description:         p.Description,
		afterLessonID:       p.AfterLessonID,
		questions:           make(map[int64]*Question, len(p.Questions)),
		passScorePercentage: p.PassScorePercentage,
	}
	for _, question := range p.Questions {
		if err := q.addQuestion(question); err != nil {
			return nil, err
		}
	}
	return q, nil
}

func validateQuizFields(title string, afterLessonID int64, pass int) error {
	if strings.TrimSpace(title) == "" {
		return shared.InvalidInput("quiz", "Validate", "quiz title cannot be blank")
	}
	if afterLessonID <= 0 {
		return shared.InvalidInput("quiz", "Validate", "quiz must follow a lesson")
	}
	if pass < 0 || pass > 100 {
		return shared.InvalidInput("quiz", "Validate", "pass score percentage must be between 0 and 100")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GETTERS
// ══════════════════════════════════════════════════════════════════════════════

func (q *Quiz) ID() int64                { return q.id }
func (q *Quiz) Title() string            { return q.title }
func (q *Quiz) Description() string      { return q.description }
func (q *Quiz) AfterLessonID() int64     { return q.afterLessonID }
func (q *Quiz) TotalScore() int          { return q.totalScore }
func (q *Quiz) PassScorePercentage() int { return q.passScorePercentage }
func (q *Quiz) IsDeleted() bool          { return q.deleted }

// Questions returns the questions ordered by id.
func (q *Quiz) Questions() []*Question {
	out := make([]*Question, 0, len(q.questions))
	for _, question := range q.questions {
		out = append(out, question)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Question looks a question up by id.
func (q *Quiz) Question(id int64) (*Question, bool) {
	question, ok := q.questions[id]
	return question, ok
}

// ══════════════════════════════════════════════════════════════════════════════
// MUTATIONS (called through CourseSection)
// ══════════════════════════════════════════════════════════════════════════════

func (q *Quiz) hasQuestionContent(content string, except int64) bool {
	for id, existing := range q.questions {
		if id != except && existing.content == content {
			return true
		}
	}
	return false
}

func (q *Quiz) addQuestion(question *Question) error {
	if question == nil {
		return shared.InvalidInput("quiz", "AddQuestion", "question is required")
	}
	if question.id <= 0 {
		return shared.NewDomainError("quiz", "AddQuestion", shared.ErrInvalidID, "question id must be positive")
	}
	if err := question.validateTypeAndOptions(); err != nil {
		return err
	}
	for _, existing := range q.questions {
		if err := existing.conflictWith(question, "AddQuestion"); err != nil {
			return err
		}
	}
	if q.hasQuestionContent(question.content, 0) {
		return shared.InvalidInput("quiz", "AddQuestion", "a question with the same content already exists")
	}
	q.questions[question.id] = question
	q.totalScore += question.score
	return nil
}

func (q *Quiz) updateQuestion(id int64, p UpdateQuestionParams) error {
	existing, ok := q.questions[id]
	if !ok {
		return shared.NotFound("quiz", "UpdateQuestion", fmt.Sprintf("question %d not found", id))
	}
	candidate := existing.candidate(p)
	if err := candidate.validateTypeAndOptions(); err != nil {
		return err
	}
	for otherID, other := range q.questions {
		if otherID == id {
			continue
		}
		if err := other.conflictWith(candidate, "UpdateQuestion"); err != nil {
			return err
		}
	}
	if q.hasQuestionContent(candidate.content, id) {
		return shared.InvalidInput("quiz", "UpdateQuestion", "a question with the same content already exists")
	}
	q.totalScore += candidate.score - existing.score
	*existing = *candidate
	return nil
}

func (q *Quiz) deleteQuestion(id int64) error {
	existing, ok := q.questions[id]
	if !ok {
		return shared.NotFound("quiz", "DeleteQuestion", fmt.Sprintf("question %d not found", id))
	}
	q.totalScore -= existing.score
	delete(q.questions, id)
	return nil
}

func (q *Quiz) update(p UpdateQuizParams) error {
	if err := validateQuizFields(p.Title, p.AfterLessonID, p.PassScorePercentage); err != nil {
		return err
	}
	q.title = strings.TrimSpace(p.Title)
	q.description = p.Description
	q.afterLessonID = p.AfterLessonID
	q.passScorePercentage = p.PassScorePercentage
	return nil
}

func (q *Quiz) delete() error {
	if q.deleted {
		return shared.InvalidInput("quiz", "Delete", "quiz is already deleted")
	}
	q.deleted = true
	return nil
}

func (q *Quiz) restore() error {
	if !q.deleted {
		return shared.InvalidInput("quiz", "Restore", "quiz is not deleted")
	}
	q.deleted = false
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SCORING
// ══════════════════════════════════════════════════════════════════════════════

// CalculateScore sums the scores of the questions whose submitted option set
// equals the correct option set. Answers for unknown questions are ignored.
func (q *Quiz) CalculateScore(answers Answers) int {
	score := 0
	for questionID, submitted := range answers {
		question, ok := q.questions[questionID]
		if !ok {
			continue
		}
		if question.isAnsweredCorrectly(submitted) {
			score += question.score
		}
	}
	return score
}

// IsPassed reports whether score reaches passScorePercentage of totalScore.
// A quiz without points cannot be passed.
func (q *Quiz) IsPassed(score int) bool {
	if q.totalScore <= 0 {
		return false
	}
	percentage := float64(score) / float64(q.totalScore) * 100
	return percentage >= float64(q.passScorePercentage)
}
