package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/course-hub/internal/domain/course"
	"github.com/alem-hub/course-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUIZ COMMANDS
// Quizzes, their lifecycle and their questions.
// ══════════════════════════════════════════════════════════════════════════════

// OptionInput describes one answer option. ID 0 means a new option; a
// non-zero ID keeps an option of the question being updated.
type OptionInput struct {
	ID      int64  `validate:"gte=0"`
	Content string `validate:"notblank,max=1000"`
	Correct bool
}

// QuestionInput describes a question and its options.
type QuestionInput struct {
	Content string              `validate:"notblank,max=2000"`
	Type    course.QuestionType `validate:"question_type"`
	Score   int                 `validate:"gte=0,lte=5"`
	Options []OptionInput       `validate:"min=1,dive"`
}

func (q QuestionInput) newOptionCount() int {
	n := 0
	for _, o := range q.Options {
		if o.ID == 0 {
			n++
		}
	}
	return n
}

// questionIDs are ids reserved for one question before the mutate cycle.
type questionIDs struct {
	question int64
	options  []int64
}

func reserveQuestionIDs(ctx context.Context, exec *Executor, in QuestionInput, withQuestionID bool) (questionIDs, error) {
	n := in.newOptionCount()
	if withQuestionID {
		n++
	}
	ids, err := exec.NextIDs(ctx, n)
	if err != nil {
		return questionIDs{}, err
	}
	var out questionIDs
	if withQuestionID {
		out.question, ids = ids[0], ids[1:]
	}
	out.options = ids
	return out, nil
}

func buildOptions(in QuestionInput, ids []int64) ([]course.AnswerOption, error) {
	opts := make([]course.AnswerOption, 0, len(in.Options))
	next := 0
	for _, o := range in.Options {
		id := o.ID
		if id == 0 {
			id = ids[next]
			next++
		}
		opt, err := course.NewAnswerOption(id, o.Content, o.Correct)
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
	}
	return opts, nil
}

// checkOptionIDs accepts only ids of options the question already owns.
func checkOptionIDs(in QuestionInput, owned []course.AnswerOption) error {
	for _, o := range in.Options {
		if o.ID == 0 {
			continue
		}
		known := false
		for _, existing := range owned {
			if existing.ID() == o.ID {
				known = true
				break
			}
		}
		if !known {
			return shared.InvalidInput("question", "Options",
				fmt.Sprintf("option %d does not belong to this question", o.ID))
		}
	}
	return nil
}

func buildQuestion(in QuestionInput, ids questionIDs) (*course.Question, error) {
	if err := checkOptionIDs(in, nil); err != nil {
		return nil, err
	}
	opts, err := buildOptions(in, ids.options)
	if err != nil {
		return nil, err
	}
	return course.NewQuestion(course.QuestionParams{
		ID:      ids.question,
		Content: in.Content,
		Type:    in.Type,
		Score:   in.Score,
		Options: opts,
	})
}

// QuizResult identifies the quiz a command touched.
type QuizResult struct {
	CourseID    int64
	SectionID   int64
	QuizID      int64
	QuestionIDs []int64
	TotalScore  int
	Version     int64
}

func quizResult(c *course.Course, sectionID, quizID int64) *QuizResult {
	res := &QuizResult{CourseID: c.ID(), SectionID: sectionID, QuizID: quizID, Version: c.Version()}
	if s, ok := c.Section(sectionID); ok {
		if q, ok := s.Quiz(quizID); ok {
			res.TotalScore = q.TotalScore()
			for _, question := range q.Questions() {
				res.QuestionIDs = append(res.QuestionIDs, question.ID())
			}
		}
	}
	return res
}

// ─── Add / update quiz ────────────────────────────────────────────────────────

// AddQuizCommand places a quiz after a lesson of a section.
type AddQuizCommand struct {
	CourseID            int64           `validate:"gt=0"`
	SectionID           int64           `validate:"gt=0"`
	Title               string          `validate:"notblank,max=255"`
	Description         string          `validate:"max=10000"`
	AfterLessonID       int64           `validate:"gt=0"`
	PassScorePercentage int             `validate:"gte=0,lte=100"`
	Questions           []QuestionInput `validate:"dive"`
	Actor               string          `validate:"notblank"`
}

// Validate validates the command.
func (c AddQuizCommand) Validate() error { return validateCommand("AddQuiz", c) }

// AddQuizHandler handles AddQuizCommand.
type AddQuizHandler struct {
	exec *Executor
}

// NewAddQuizHandler creates a new AddQuizHandler.
func NewAddQuizHandler(exec *Executor) *AddQuizHandler {
	return &AddQuizHandler{exec: exec}
}

// Handle executes the command.
func (h *AddQuizHandler) Handle(ctx context.Context, cmd AddQuizCommand) (*QuizResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("add_quiz: %w", err)
	}

	quizID, err := h.exec.NextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("add_quiz: %w", err)
	}
	reserved := make([]questionIDs, 0, len(cmd.Questions))
	for _, in := range cmd.Questions {
		ids, err := reserveQuestionIDs(ctx, h.exec, in, true)
		if err != nil {
			return nil, fmt.Errorf("add_quiz: %w", err)
		}
		reserved = append(reserved, ids)
	}

	c, err := h.exec.Mutate(ctx, cmd.CourseID, cmd.Actor, "add_quiz", func(c *course.Course) error {
		questions := make([]*course.Question, 0, len(cmd.Questions))
		for i, in := range cmd.Questions {
			q, err := buildQuestion(in, reserved[i])
			if err != nil {
				return err
			}
			questions = append(questions, q)
		}
		quiz, err := course.NewQuiz(course.QuizParams{
			ID:                  quizID,
			Title:               cmd.Title,
			Description:         cmd.Description,
			AfterLessonID:       cmd.AfterLessonID,
			PassScorePercentage: cmd.PassScorePercentage,
			Questions:           questions,
		})
		if err != nil {
			return err
		}
		return c.AddQuizToSection(cmd.SectionID, quiz)
	})
	if err != nil {
		return nil, fmt.Errorf("add_quiz: %w", err)
	}
	return quizResult(c, cmd.SectionID, quizID), nil
}

// UpdateQuizCommand replaces the editable fields of a quiz.
type UpdateQuizCommand struct {
	CourseID            int64  `validate:"gt=0"`
	SectionID           int64  `validate:"gt=0"`
	QuizID              int64  `validate:"gt=0"`
	Title               string `validate:"notblank,max=255"`
	Description         string `validate:"max=10000"`
	AfterLessonID       int64  `validate:"gt=0"`
	PassScorePercentage int    `validate:"gte=0,lte=100"`
	Actor               string `validate:"notblank"`
}

// Validate validates the command.
func (c UpdateQuizCommand) Validate() error { return validateCommand("UpdateQuiz", c) }

// UpdateQuizHandler handles UpdateQuizCommand.
type UpdateQuizHandler struct {
	exec *Executor
}

// NewUpdateQuizHandler creates a new UpdateQuizHandler.
func NewUpdateQuizHandler(exec *Executor) *UpdateQuizHandler {
	return &UpdateQuizHandler{exec: exec}
}

// Handle executes the command.
func (h *UpdateQuizHandler) Handle(ctx context.Context, cmd UpdateQuizCommand) (*QuizResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_quiz: %w", err)
	}

	c, err := h.exec.Mutate(ctx, cmd.CourseID, cmd.Actor, "update_quiz", func(c *course.Course) error {
		return c.UpdateQuizInSection(cmd.SectionID, cmd.QuizID, course.UpdateQuizParams{
			Title:               cmd.Title,
			Description:         cmd.Description,
			AfterLessonID:       cmd.AfterLessonID,
			PassScorePercentage: cmd.PassScorePercentage,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("update_quiz: %w", err)
	}
	return quizResult(c, cmd.SectionID, cmd.QuizID), nil
}

// ─── Quiz lifecycle ───────────────────────────────────────────────────────────

// ChangeQuizLifecycleCommand soft-deletes, restores or force-deletes a quiz.
type ChangeQuizLifecycleCommand struct {
	CourseID  int64                 `validate:"gt=0"`
	SectionID int64                 `validate:"gt=0"`
	QuizID    int64                 `validate:"gt=0"`
	Action    CourseLifecycleAction `validate:"oneof=delete restore delete_force"`
	Actor     string                `validate:"notblank"`
}

// Validate validates the command.
func (c ChangeQuizLifecycleCommand) Validate() error { return validateCommand("ChangeQuizLifecycle", c) }

// ChangeQuizLifecycleHandler handles ChangeQuizLifecycleCommand.
type ChangeQuizLifecycleHandler struct {
	exec *Executor
}

// NewChangeQuizLifecycleHandler creates a new ChangeQuizLifecycleHandler.
func NewChangeQuizLifecycleHandler(exec *Executor) *ChangeQuizLifecycleHandler {
	return &ChangeQuizLifecycleHandler{exec: exec}
}

// Handle executes the command.
func (h *ChangeQuizLifecycleHandler) Handle(ctx context.Context, cmd ChangeQuizLifecycleCommand) (*QuizResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("quiz_%s: %w", cmd.Action, err)
	}

	c, err := h.exec.Mutate(ctx, cmd.CourseID, cmd.Actor, "quiz_"+string(cmd.Action), func(c *course.Course) error {
		switch cmd.Action {
		case ActionDelete:
			return c.DeleteQuizInSection(cmd.SectionID, cmd.QuizID)
		case ActionRestore:
			return c.RestoreQuizInSection(cmd.SectionID, cmd.QuizID)
		default:
			return c.DeleteForceQuizInSection(cmd.SectionID, cmd.QuizID)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("quiz_%s: %w", cmd.Action, err)
	}
	return quizResult(c, cmd.SectionID, cmd.QuizID), nil
}

// ─── Questions ────────────────────────────────────────────────────────────────

// AddQuestionCommand adds a question to an active quiz.
type AddQuestionCommand struct {
	CourseID  int64 `validate:"gt=0"`
	SectionID int64 `validate:"gt=0"`
	QuizID    int64 `validate:"gt=0"`
	Question  QuestionInput
	Actor     string `validate:"notblank"`
}

// Validate validates the command.
func (c AddQuestionCommand) Validate() error { return validateCommand("AddQuestion", c) }

// AddQuestionHandler handles AddQuestionCommand.
type AddQuestionHandler struct {
	exec *Executor
}

// NewAddQuestionHandler creates a new AddQuestionHandler.
func NewAddQuestionHandler(exec *Executor) *AddQuestionHandler {
	return &AddQuestionHandler{exec: exec}
}

// Handle executes the command.
func (h *AddQuestionHandler) Handle(ctx context.Context, cmd AddQuestionCommand) (*QuizResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("add_question: %w", err)
	}

	ids, err := reserveQuestionIDs(ctx, h.exec, cmd.Question, true)
	if err != nil {
		return nil, fmt.Errorf("add_question: %w", err)
	}

	c, err := h.exec.Mutate(ctx, cmd.CourseID, cmd.Actor, "add_question", func(c *course.Course) error {
		q, err := buildQuestion(cmd.Question, ids)
		if err != nil {
			return err
		}
		return c.AddQuestionToQuiz(cmd.SectionID, cmd.QuizID, q)
	})
	if err != nil {
		return nil, fmt.Errorf("add_question: %w", err)
	}
	return quizResult(c, cmd.SectionID, cmd.QuizID), nil
}

// UpdateQuestionCommand replaces a question atomically. Options with ID 0 get new ids.
type UpdateQuestionCommand struct {
	CourseID   int64 `validate:"gt=0"`
	SectionID  int64 `validate:"gt=0"`
	QuizID     int64 `validate:"gt=0"`
	QuestionID int64 `validate:"gt=0"`
	Question   QuestionInput
	Actor      string `validate:"notblank"`
}

// Validate validates the command.
func (c UpdateQuestionCommand) Validate() error { return validateCommand("UpdateQuestion", c) }

// UpdateQuestionHandler handles UpdateQuestionCommand.
type UpdateQuestionHandler struct {
	exec *Executor
}

// NewUpdateQuestionHandler creates a new UpdateQuestionHandler.
func NewUpdateQuestionHandler(exec *Executor) *UpdateQuestionHandler {
	return &UpdateQuestionHandler{exec: exec}
}

// Handle executes the command.
func (h *UpdateQuestionHandler) Handle(ctx context.Context, cmd UpdateQuestionCommand) (*QuizResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_question: %w", err)
	}

	ids, err := reserveQuestionIDs(ctx, h.exec, cmd.Question, false)
	if err != nil {
		return nil, fmt.Errorf("update_question: %w", err)
	}

	c, err := h.exec.Mutate(ctx, cmd.CourseID, cmd.Actor, "update_question", func(c *course.Course) error {
		if existing, ok := findQuestion(c, cmd.SectionID, cmd.QuizID, cmd.QuestionID); ok {
			if err := checkOptionIDs(cmd.Question, existing.Options()); err != nil {
				return err
			}
		}
		opts, err := buildOptions(cmd.Question, ids.options)
		if err != nil {
			return err
		}
		return c.UpdateQuestionInQuiz(cmd.SectionID, cmd.QuizID, cmd.QuestionID, course.UpdateQuestionParams{
			Content: cmd.Question.Content,
			Type:    cmd.Question.Type,
			Score:   cmd.Question.Score,
			Options: opts,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("update_question: %w", err)
	}
	return quizResult(c, cmd.SectionID, cmd.QuizID), nil
}

// findQuestion returns nothing when any level is missing; the domain call reports it.
func findQuestion(c *course.Course, sectionID, quizID, questionID int64) (*course.Question, bool) {
	s, ok := c.Section(sectionID)
	if !ok {
		return nil, false
	}
	q, ok := s.Quiz(quizID)
	if !ok {
		return nil, false
	}
	return q.Question(questionID)
}

// DeleteQuestionCommand removes a question from an active quiz.
type DeleteQuestionCommand struct {
	CourseID   int64  `validate:"gt=0"`
	SectionID  int64  `validate:"gt=0"`
	QuizID     int64  `validate:"gt=0"`
	QuestionID int64  `validate:"gt=0"`
	Actor      string `validate:"notblank"`
}

// Validate validates the command.
func (c DeleteQuestionCommand) Validate() error { return validateCommand("DeleteQuestion", c) }

// DeleteQuestionHandler handles DeleteQuestionCommand.
type DeleteQuestionHandler struct {
	exec *Executor
}

// NewDeleteQuestionHandler creates a new DeleteQuestionHandler.
func NewDeleteQuestionHandler(exec *Executor) *DeleteQuestionHandler {
	return &DeleteQuestionHandler{exec: exec}
}

// Handle executes the command.
func (h *DeleteQuestionHandler) Handle(ctx context.Context, cmd DeleteQuestionCommand) (*QuizResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("delete_question: %w", err)
	}

	c, err := h.exec.Mutate(ctx, cmd.CourseID, cmd.Actor, "delete_question", func(c *course.Course) error {
		return c.DeleteQuestionFromQuiz(cmd.SectionID, cmd.QuizID, cmd.QuestionID)
	})
	if err != nil {
		return nil, fmt.Errorf("delete_question: %w", err)
	}
	return quizResult(c, cmd.SectionID, cmd.QuizID), nil
}
