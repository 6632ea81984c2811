package course

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/course-hub/internal/domain/shared"
)

func sumScores(q *Quiz) int {
	total := 0
	for _, question := range q.Questions() {
		total += question.Score()
	}
	return total
}

func TestQuestionTypeTable(t *testing.T) {
	tests := []struct {
		name    string
		qtype   QuestionType
		options []AnswerOption
		wantErr bool
	}{
		{"single choice with 1 option", QuestionSingleChoice, []AnswerOption{opt(t, 1, "a", true)}, true},
		{"single choice with 2 correct", QuestionSingleChoice, []AnswerOption{opt(t, 1, "a", true), opt(t, 2, "b", true)}, true},
		{"single choice valid", QuestionSingleChoice, []AnswerOption{opt(t, 1, "a", true), opt(t, 2, "b", false), opt(t, 3, "c", false)}, false},
		{"true/false with 3 options", QuestionTrueFalse, []AnswerOption{opt(t, 1, "true", true), opt(t, 2, "false", false), opt(t, 3, "maybe", false)}, true},
		{"true/false with 0 correct", QuestionTrueFalse, []AnswerOption{opt(t, 1, "true", false), opt(t, 2, "false", false)}, true},
		{"true/false valid", QuestionTrueFalse, []AnswerOption{opt(t, 1, "true", true), opt(t, 2, "false", false)}, false},
		{"multiple choice with 1 correct", QuestionMultipleChoice, []AnswerOption{opt(t, 1, "a", true), opt(t, 2, "b", false)}, true},
		{"multiple choice valid", QuestionMultipleChoice, []AnswerOption{opt(t, 1, "a", true), opt(t, 2, "b", true), opt(t, 3, "c", false)}, false},
		{"duplicate option content", QuestionSingleChoice, []AnswerOption{opt(t, 1, "a", true), opt(t, 2, "a", false)}, true},
		{"options differ only in case", QuestionSingleChoice, []AnswerOption{opt(t, 1, "a", true), opt(t, 2, "A", false)}, false},
		{"duplicate option id", QuestionSingleChoice, []AnswerOption{opt(t, 1, "a", true), opt(t, 1, "b", false)}, true},
		{"unknown type", QuestionType("ESSAY"), []AnswerOption{opt(t, 1, "a", true), opt(t, 2, "b", false)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewQuestion(QuestionParams{ID: 1, Content: "Q", Type: tt.qtype, Score: 1, Options: tt.options})
			if tt.wantErr {
				assert.ErrorIs(t, err, shared.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQuestion_ScoreAndContent(t *testing.T) {
	options := []AnswerOption{opt(t, 1, "a", true), opt(t, 2, "b", false)}
	for _, score := range []int{-1, 6} {
		_, err := NewQuestion(QuestionParams{ID: 1, Content: "Q", Type: QuestionSingleChoice, Score: score, Options: options})
		assert.ErrorIs(t, err, shared.ErrInvalidInput, "score %d", score)
	}
	_, err := NewQuestion(QuestionParams{ID: 1, Content: " ", Type: QuestionSingleChoice, Score: 1, Options: options})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = NewAnswerOption(1, "  ", true)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestQuiz_TotalScoreTracksQuestions(t *testing.T) {
	q := newTestQuiz(t, 1, 100, "Quiz", 50)

	require.NoError(t, q.addQuestion(singleChoice(t, 1, "Q1", 2)))
	require.NoError(t, q.addQuestion(singleChoice(t, 2, "Q2", 3)))
	assert.Equal(t, 5, q.TotalScore())
	assert.Equal(t, sumScores(q), q.TotalScore())

	err := q.addQuestion(singleChoice(t, 3, "Q1", 4))
	assert.ErrorIs(t, err, shared.ErrInvalidInput, "duplicate content")
	assert.Equal(t, 5, q.TotalScore())

	require.NoError(t, q.updateQuestion(1, UpdateQuestionParams{
		Content: "Q1 edited",
		Type:    QuestionSingleChoice,
		Score:   5,
		Options: []AnswerOption{opt(t, 11, "right", true), opt(t, 12, "wrong", false)},
	}))
	assert.Equal(t, 8, q.TotalScore())
	assert.Equal(t, sumScores(q), q.TotalScore())

	require.NoError(t, q.deleteQuestion(2))
	assert.Equal(t, 5, q.TotalScore())
	assert.Equal(t, sumScores(q), q.TotalScore())

	assert.ErrorIs(t, q.deleteQuestion(2), shared.ErrNotFound)
	assert.ErrorIs(t, q.updateQuestion(2, UpdateQuestionParams{}), shared.ErrNotFound)
}

func TestQuiz_UpdateQuestionIsAtomic(t *testing.T) {
	q := newTestQuiz(t, 1, 100, "Quiz", 50)
	require.NoError(t, q.addQuestion(singleChoice(t, 1, "Q1", 2)))
	require.NoError(t, q.addQuestion(singleChoice(t, 2, "Q2", 3)))

	// valid shape but duplicate content of Q2
	err := q.updateQuestion(1, UpdateQuestionParams{
		Content: "Q2",
		Type:    QuestionSingleChoice,
		Score:   5,
		Options: []AnswerOption{opt(t, 11, "right", true), opt(t, 12, "wrong", false)},
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	// true/false with a single option
	err = q.updateQuestion(1, UpdateQuestionParams{
		Content: "Q1 new",
		Type:    QuestionTrueFalse,
		Score:   4,
		Options: []AnswerOption{opt(t, 11, "right", true)},
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	question, ok := q.Question(1)
	require.True(t, ok)
	assert.Equal(t, "Q1", question.Content())
	assert.Equal(t, 2, question.Score())
	assert.Equal(t, QuestionSingleChoice, question.Type())
	assert.Equal(t, 5, q.TotalScore())
}

func TestQuiz_DeleteRestore(t *testing.T) {
	q := newTestQuiz(t, 1, 100, "Quiz", 50)

	assert.ErrorIs(t, q.restore(), shared.ErrInvalidInput)
	require.NoError(t, q.delete())
	assert.ErrorIs(t, q.delete(), shared.ErrInvalidInput)
	require.NoError(t, q.restore())
	assert.False(t, q.IsDeleted())
}

func TestNewQuiz_Validation(t *testing.T) {
	_, err := NewQuiz(QuizParams{ID: 1, Title: "Quiz", AfterLessonID: 100, PassScorePercentage: 101})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = NewQuiz(QuizParams{ID: 1, Title: "", AfterLessonID: 100, PassScorePercentage: 50})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = NewQuiz(QuizParams{ID: 1, Title: "Quiz", PassScorePercentage: 50})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestQuiz_Scoring(t *testing.T) {
	multi, err := NewQuestion(QuestionParams{
		ID:      3,
		Content: "Pick the primes",
		Type:    QuestionMultipleChoice,
		Score:   4,
		Options: []AnswerOption{opt(t, 31, "2", true), opt(t, 32, "3", true), opt(t, 33, "4", false)},
	})
	require.NoError(t, err)

	q := newTestQuiz(t, 1, 100, "Quiz", 60)
	require.NoError(t, q.addQuestion(singleChoice(t, 1, "Q1", 1)))
	require.NoError(t, q.addQuestion(multi))
	require.Equal(t, 5, q.TotalScore())

	tests := []struct {
		name    string
		answers Answers
		score   int
		passed  bool
	}{
		{"all correct", Answers{1: {11}, 3: {32, 31}}, 5, true},
		{"duplicates collapse", Answers{1: {11, 11}, 3: {31, 32, 31}}, 5, true},
		{"partial multiple choice gets nothing", Answers{1: {11}, 3: {31}}, 1, false},
		{"extra wrong option gets nothing", Answers{1: {11}, 3: {31, 32, 33}}, 1, false},
		{"only multiple choice", Answers{3: {31, 32}}, 4, true},
		{"wrong single choice", Answers{1: {12}, 3: {31, 32}}, 4, true},
		{"unknown question ignored", Answers{99: {1}}, 0, false},
		{"empty submission", Answers{}, 0, false},
		{"empty option list", Answers{1: {}}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := q.CalculateScore(tt.answers)
			assert.Equal(t, tt.score, score)
			assert.Equal(t, tt.passed, q.IsPassed(score))
		})
	}
}

func TestQuiz_IsPassedBoundaries(t *testing.T) {
	q := newTestQuiz(t, 1, 100, "Quiz", 50)
	assert.False(t, q.IsPassed(0), "quiz without points")

	require.NoError(t, q.addQuestion(singleChoice(t, 1, "Q1", 2)))
	require.NoError(t, q.addQuestion(singleChoice(t, 2, "Q2", 2)))

	assert.True(t, q.IsPassed(2), "exactly the threshold passes")
	assert.False(t, q.IsPassed(1))

	zero := newTestQuiz(t, 2, 100, "Open", 0)
	require.NoError(t, zero.addQuestion(singleChoice(t, 3, "Q3", 1)))
	assert.True(t, zero.IsPassed(0))
}

func TestCourse_CalculateQuiz(t *testing.T) {
	c := courseWithLesson(t)
	require.NoError(t, c.AddQuizToSection(10, newTestQuiz(t, 300, 100, "Quiz", 50)))
	require.NoError(t, c.AddQuestionToQuiz(10, 300, singleChoice(t, 1, "Q1", 2)))

	res, err := c.CalculateQuiz(300, Answers{1: {11}})
	require.NoError(t, err)
	assert.Equal(t, QuizResult{QuizID: 300, Score: 2, TotalScore: 2, Passed: true}, res)

	_, err = c.CalculateQuiz(301, Answers{})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, c.DeleteQuizInSection(10, 300))
	_, err = c.CalculateQuiz(300, Answers{1: {11}})
	assert.ErrorIs(t, err, shared.ErrNotFound, "deleted quiz cannot be graded")
}
