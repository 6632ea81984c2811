package course

import (
	"fmt"
	"strings"

	"github.com/alem-hub/course-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// QuestionType determines the expected shape of the answer options.
type QuestionType string

const (
	// QuestionSingleChoice - two or more options, exactly one correct.
	QuestionSingleChoice QuestionType = "SINGLE_CHOICE"
	// QuestionMultipleChoice - two or more options, at least two correct.
	QuestionMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	// QuestionTrueFalse - exactly two options, exactly one correct.
	QuestionTrueFalse QuestionType = "TRUE_FALSE"
)

// IsValid checks that the question type is known.
func (t QuestionType) IsValid() bool {
	switch t {
	case QuestionSingleChoice, QuestionMultipleChoice, QuestionTrueFalse:
		return true
	default:
		return false
	}
}

// Score bounds of a single question.
const (
	MinQuestionScore = 0
	MaxQuestionScore = 5
)

// ══════════════════════════════════════════════════════════════════════════════
// ANSWER OPTION
// ══════════════════════════════════════════════════════════════════════════════

// AnswerOption is one selectable answer of a question.
type AnswerOption struct {
	id      int64
	content string
	correct bool
}

// NewAnswerOption creates a validated answer option.
func NewAnswerOption(id int64, content string, correct bool) (AnswerOption, error) {
	if id <= 0 {
		return AnswerOption{}, shared.NewDomainError("option", "New", shared.ErrInvalidID, "option id must be positive")
	}
	if strings.TrimSpace(content) == "" {
		return AnswerOption{}, shared.InvalidInput("option", "New", "option content cannot be blank")
	}
	return AnswerOption{id: id, content: content, correct: correct}, nil
}

// ID returns the option identifier.
func (o AnswerOption) ID() int64 { return o.id }

// Content returns the option text.
func (o AnswerOption) Content() string { return o.content }

// IsCorrect reports whether the option is part of the right answer.
func (o AnswerOption) IsCorrect() bool { return o.correct }

// ══════════════════════════════════════════════════════════════════════════════
// QUESTION
// ══════════════════════════════════════════════════════════════════════════════

// Question is owned by a Quiz and owns its answer options.
type Question struct {
	id      int64
	content string
	qtype   QuestionType
	score   int
	options []AnswerOption
}

// QuestionParams contains the data required to create a question.
type QuestionParams struct {
	ID      int64
	Content string
	Type    QuestionType
	Score   int
	Options []AnswerOption
}

// NewQuestion creates a question and validates its type/options shape.
func NewQuestion(p QuestionParams) (*Question, error) {
	if p.ID <= 0 {
		return nil, shared.NewDomainError("question", "New", shared.ErrInvalidID, "question id must be positive")
	}
	q := &Question{
		id:      p.ID,
		content: strings.TrimSpace(p.Content),
		qtype:   p.Type,
		score:   p.Score,
		options: append([]AnswerOption(nil), p.Options...),
	}
	if err := q.validateTypeAndOptions(); err != nil {
		return nil, err
	}
	return q, nil
}

// UpdateQuestionParams replaces the editable part of a question.
type UpdateQuestionParams struct {
	Content string
	Type    QuestionType
	Score   int
	Options []AnswerOption
}

// ID returns the question identifier.
func (q *Question) ID() int64 { return q.id }

// Content returns the question text.
func (q *Question) Content() string { return q.content }

// Type returns the question type.
func (q *Question) Type() QuestionType { return q.qtype }

// Score returns the points awarded for a correct answer.
func (q *Question) Score() int { return q.score }

// Options returns a copy of the answer options.
func (q *Question) Options() []AnswerOption {
	return append([]AnswerOption(nil), q.options...)
}

// candidate builds the would-be state of the question after an update.
func (q *Question) candidate(p UpdateQuestionParams) *Question {
	return &Question{
		id:      q.id,
		content: strings.TrimSpace(p.Content),
		qtype:   p.Type,
		score:   p.Score,
		options: append([]AnswerOption(nil), p.Options...),
	}
}

func (q *Question) hasOption(id int64) bool {
	for _, o := range q.options {
		if o.id == id {
			return true
		}
	}
	return false
}

// conflictWith rejects other when it reuses this question's id or one of its option ids.
func (q *Question) conflictWith(other *Question, op string) error {
	if q.id == other.id {
		return shared.InvalidInput("question", op, fmt.Sprintf("question %d already exists", other.id))
	}
	for _, o := range other.options {
		if q.hasOption(o.id) {
			return shared.InvalidInput("question", op,
				fmt.Sprintf("option %d belongs to question %d", o.id, q.id))
		}
	}
	return nil
}

// validateTypeAndOptions enforces content, score and the option table of each question type.
func (q *Question) validateTypeAndOptions() error {
	const op = "Validate"

	if q.content == "" {
		return shared.InvalidInput("question", op, "question content cannot be blank")
	}
	if !q.qtype.IsValid() {
		return shared.InvalidInput("question", op, fmt.Sprintf("unknown question type %q", q.qtype))
	}
	if q.score < MinQuestionScore || q.score > MaxQuestionScore {
		return shared.NewDomainError("question", op, shared.ErrInvalidInput,
			fmt.Sprintf("score must be between %d and %d", MinQuestionScore, MaxQuestionScore))
	}

	contents := make(map[string]struct{}, len(q.options))
	ids := make(map[int64]struct{}, len(q.options))
	correct := 0
	for _, o := range q.options {
		if o.id <= 0 || strings.TrimSpace(o.content) == "" {
			return shared.InvalidInput("question", op, "every option needs an id and non-blank content")
		}
		if _, dup := ids[o.id]; dup {
			return shared.InvalidInput("question", op, fmt.Sprintf("option id %d is used twice", o.id))
		}
		if _, dup := contents[o.content]; dup {
			return shared.InvalidInput("question", op, fmt.Sprintf("option %q is duplicated", o.content))
		}
		ids[o.id] = struct{}{}
		contents[o.content] = struct{}{}
		if o.correct {
			correct++
		}
	}

	switch q.qtype {
	case QuestionSingleChoice:
		if len(q.options) < 2 {
			return shared.InvalidInput("question", op, "single choice question needs at least 2 options")
		}
		if correct != 1 {
			return shared.InvalidInput("question", op, "single choice question needs exactly 1 correct option")
		}
	case QuestionMultipleChoice:
		if len(q.options) < 2 {
			return shared.InvalidInput("question", op, "multiple choice question needs at least 2 options")
		}
		if correct < 2 {
			return shared.InvalidInput("question", op, "multiple choice question needs at least 2 correct options")
		}
	case QuestionTrueFalse:
		if len(q.options) != 2 {
			return shared.InvalidInput("question", op, "true/false question needs exactly 2 options")
		}
		if correct != 1 {
			return shared.InvalidInput("question", op, "true/false question needs exactly 1 correct option")
		}
	}
	return nil
}

// isAnsweredCorrectly reports whether the submitted option ids are exactly the correct ones.
// Duplicate submissions collapse; ids that do not belong to the question make the answer wrong.
func (q *Question) isAnsweredCorrectly(submitted []int64) bool {
	if len(submitted) == 0 {
		return false
	}
	want := make(map[int64]struct{})
	for _, o := range q.options {
		if o.correct {
			want[o.id] = struct{}{}
		}
	}
	got := make(map[int64]struct{}, len(submitted))
	for _, id := range submitted {
		got[id] = struct{}{}
	}
	if len(got) != len(want) {
		return false
	}
	for id := range got {
		if _, ok := want[id]; !ok {
			return false
		}
	}
	return true
}
