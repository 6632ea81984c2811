package course

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/course-hub/internal/domain/shared"
)

func TestScenario_QuizAfterMissingLesson(t *testing.T) {
	c := courseWithLesson(t)

	err := c.AddQuizToSection(10, newTestQuiz(t, 300, 999, "Quiz", 50))
	assert.ErrorIs(t, err, shared.ErrNotFound)
	s, _ := c.Section(10)
	assert.Empty(t, s.Quizzes())
}

func TestScenario_DuplicateLinks(t *testing.T) {
	c := courseWithLesson(t)
	require.NoError(t, c.AddSection(newTestSection(t, 11, "S2")))

	link := "https://cdn.example.com/v1.mp4"
	err := c.AddLessonToSection(10, newVideoLesson(t, 101, "V1 again", link))
	assert.ErrorIs(t, err, shared.ErrInvalidInput, "same section")

	require.NoError(t, c.AddLessonToSection(11, newVideoLesson(t, 102, "V1 copy", link)), "other section")
}

func TestNewLesson_Validation(t *testing.T) {
	tests := []struct {
		name    string
		params  LessonParams
		wantErr bool
	}{
		{"video without link", LessonParams{ID: 1, Title: "L", Type: LessonVideo}, true},
		{"text with ftp link", LessonParams{ID: 1, Title: "L", Type: LessonText, Link: "ftp://example.com/a"}, true},
		{"video with relative link", LessonParams{ID: 1, Title: "L", Type: LessonVideo, Link: "/videos/1"}, true},
		{"quiz without quiz id", LessonParams{ID: 1, Title: "L", Type: LessonQuiz}, true},
		{"unknown type", LessonParams{ID: 1, Title: "L", Type: "PODCAST"}, true},
		{"blank title", LessonParams{ID: 1, Title: " ", Type: LessonAssignment}, true},
		{"assignment without link", LessonParams{ID: 1, Title: "L", Type: LessonAssignment}, false},
		{"quiz lesson", LessonParams{ID: 1, Title: "L", Type: LessonQuiz, QuizID: 7}, false},
		{"text lesson", LessonParams{ID: 1, Title: "L", Type: LessonText, Link: "http://example.com/notes"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLesson(tt.params)
			if tt.wantErr {
				assert.ErrorIs(t, err, shared.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLessons_OrderIndexIsAppendOnly(t *testing.T) {
	c := newTestCourse(t)
	require.NoError(t, c.AddSection(newTestSection(t, 10, "S1")))
	for i := int64(1); i <= 4; i++ {
		l, err := NewLesson(LessonParams{ID: 100 + i, Title: "L" + string(rune('0'+i)), Type: LessonAssignment})
		require.NoError(t, err)
		require.NoError(t, c.AddLessonToSection(10, l))
	}
	require.NoError(t, c.RemoveLessonFromSection(10, 103))

	l, err := NewLesson(LessonParams{ID: 105, Title: "L5", Type: LessonAssignment})
	require.NoError(t, err)
	require.NoError(t, c.AddLessonToSection(10, l))

	s, _ := c.Section(10)
	var got []int
	for _, lesson := range s.Lessons() {
		got = append(got, lesson.OrderIndex())
	}
	assert.Equal(t, []int{1, 2, 4, 5}, got)
}

func TestUpdateLessonInSection(t *testing.T) {
	c := courseWithLesson(t)
	require.NoError(t, c.AddLessonToSection(10, newVideoLesson(t, 101, "V2", "https://example.com/v2")))

	err := c.UpdateLessonInSection(10, 101, UpdateLessonParams{Title: "V1", Type: LessonVideo, Link: "https://example.com/v2"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput, "duplicate title")

	err = c.UpdateLessonInSection(10, 101, UpdateLessonParams{Title: "V2", Type: LessonVideo, Link: "https://cdn.example.com/v1.mp4"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput, "duplicate link")

	err = c.UpdateLessonInSection(10, 999, UpdateLessonParams{Title: "V9", Type: LessonAssignment})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, c.UpdateLessonInSection(10, 101, UpdateLessonParams{Title: "V2 HD", Type: LessonVideo, Link: "https://example.com/v2-hd"}))

	s, _ := c.Section(10)
	l, _ := s.Lesson(101)
	assert.Equal(t, "V2 HD", l.Title())
	assert.Equal(t, "https://example.com/v2-hd", l.Link())
	assert.Equal(t, 2, l.OrderIndex())
}

func TestQuizPlacement(t *testing.T) {
	c := courseWithLesson(t)
	require.NoError(t, c.AddLessonToSection(10, newVideoLesson(t, 101, "V2", "https://example.com/v2")))
	require.NoError(t, c.AddQuizToSection(10, newTestQuiz(t, 300, 100, "Quiz 1", 50)))

	assert.ErrorIs(t, c.AddQuizToSection(10, newTestQuiz(t, 301, 100, "Quiz 2", 50)), shared.ErrInvalidInput,
		"second quiz after the same lesson")
	assert.ErrorIs(t, c.AddQuizToSection(10, newTestQuiz(t, 302, 101, "Quiz 1", 50)), shared.ErrInvalidInput,
		"duplicate title")
	require.NoError(t, c.AddQuizToSection(10, newTestQuiz(t, 303, 101, "Quiz 2", 50)))

	err := c.UpdateQuizInSection(10, 303, UpdateQuizParams{Title: "Quiz 2", AfterLessonID: 100, PassScorePercentage: 50})
	assert.ErrorIs(t, err, shared.ErrInvalidInput, "move onto an occupied lesson")
	err = c.UpdateQuizInSection(10, 303, UpdateQuizParams{Title: "Quiz 2", AfterLessonID: 999, PassScorePercentage: 50})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, c.UpdateQuizInSection(10, 303, UpdateQuizParams{Title: "Final", Description: "d", AfterLessonID: 101, PassScorePercentage: 80}))
	s, _ := c.Section(10)
	q, _ := s.Quiz(303)
	assert.Equal(t, "Final", q.Title())
	assert.Equal(t, 80, q.PassScorePercentage())
}

func TestRemoveLesson_FollowedByQuiz(t *testing.T) {
	c := courseWithLesson(t)
	require.NoError(t, c.AddQuizToSection(10, newTestQuiz(t, 300, 100, "Quiz", 50)))

	assert.ErrorIs(t, c.RemoveLessonFromSection(10, 100), shared.ErrInvalidInput)

	require.NoError(t, c.DeleteQuizInSection(10, 300))
	assert.ErrorIs(t, c.RemoveLessonFromSection(10, 100), shared.ErrInvalidInput, "soft-deleted quiz still follows it")

	require.NoError(t, c.DeleteForceQuizInSection(10, 300))
	require.NoError(t, c.RemoveLessonFromSection(10, 100))
}

func TestQuizLifecycleThroughCourse(t *testing.T) {
	c := courseWithLesson(t)
	require.NoError(t, c.AddQuizToSection(10, newTestQuiz(t, 300, 100, "Quiz", 50)))
	require.NoError(t, c.AddQuestionToQuiz(10, 300, singleChoice(t, 1, "Q1", 2)))

	assert.ErrorIs(t, c.DeleteForceQuizInSection(10, 300), shared.ErrInvalidInput, "force delete of an active quiz")
	assert.ErrorIs(t, c.RestoreQuizInSection(10, 300), shared.ErrInvalidInput)

	require.NoError(t, c.DeleteQuizInSection(10, 300))
	assert.ErrorIs(t, c.AddQuestionToQuiz(10, 300, singleChoice(t, 2, "Q2", 1)), shared.ErrInvalidInput,
		"deleted quiz cannot be edited")
	assert.ErrorIs(t, c.DeleteQuestionFromQuiz(10, 300, 1), shared.ErrInvalidInput)

	require.NoError(t, c.RestoreQuizInSection(10, 300))
	require.NoError(t, c.UpdateQuestionInQuiz(10, 300, 1, UpdateQuestionParams{
		Content: "Q1",
		Type:    QuestionTrueFalse,
		Score:   3,
		Options: []AnswerOption{opt(t, 11, "true", true), opt(t, 12, "false", false)},
	}))
	require.NoError(t, c.DeleteQuestionFromQuiz(10, 300, 1))

	s, _ := c.Section(10)
	q, _ := s.Quiz(300)
	assert.Zero(t, q.TotalScore())

	assert.ErrorIs(t, c.DeleteQuizInSection(10, 999), shared.ErrNotFound)
	assert.ErrorIs(t, c.AddQuestionToQuiz(10, 999, singleChoice(t, 3, "Q3", 1)), shared.ErrNotFound)
}

func TestQuizOperations_PublishedCourse(t *testing.T) {
	c := publishedCourse(t)

	assert.ErrorIs(t, c.AddQuizToSection(10, newTestQuiz(t, 300, 100, "Quiz", 50)), shared.ErrInvalidInput)
	assert.ErrorIs(t, c.AddLessonToSection(10, newVideoLesson(t, 101, "V2", "https://example.com/v2")), shared.ErrInvalidInput)
	assert.ErrorIs(t, c.RemoveSection(10), shared.ErrInvalidInput)
}

func TestAddQuizToSection_IDUniqueAcrossSections(t *testing.T) {
	c := courseWithLesson(t)
	require.NoError(t, c.AddSection(newTestSection(t, 11, "S2")))
	require.NoError(t, c.AddLessonToSection(11, newVideoLesson(t, 101, "V2", "https://example.com/v2")))
	require.NoError(t, c.AddQuizToSection(10, newTestQuiz(t, 300, 100, "Quiz", 50)))

	assert.ErrorIs(t, c.AddQuizToSection(11, newTestQuiz(t, 300, 101, "Quiz", 50)), shared.ErrInvalidInput)
}

func TestQuestionOwnership_NoSharedIDs(t *testing.T) {
	c := courseWithLesson(t)
	require.NoError(t, c.AddLessonToSection(10, newVideoLesson(t, 101, "V2", "https://cdn.example.com/v2.mp4")))
	require.NoError(t, c.AddQuizToSection(10, newTestQuiz(t, 300, 100, "First", 50)))
	require.NoError(t, c.AddQuizToSection(10, newTestQuiz(t, 301, 101, "Second", 50)))
	require.NoError(t, c.AddQuestionToQuiz(10, 300, singleChoice(t, 1, "Q1", 2)))

	borrowing := func(id int64, optionID int64) *Question {
		q, err := NewQuestion(QuestionParams{
			ID: id, Content: "borrowed", Type: QuestionSingleChoice, Score: 1,
			Options: []AnswerOption{opt(t, optionID, "right", true), opt(t, 900+id, "wrong", false)},
		})
		require.NoError(t, err)
		return q
	}

	assert.ErrorIs(t, c.AddQuestionToQuiz(10, 300, borrowing(2, 11)), shared.ErrInvalidInput, "same quiz")
	assert.ErrorIs(t, c.AddQuestionToQuiz(10, 301, borrowing(3, 11)), shared.ErrInvalidInput, "other quiz")
	assert.ErrorIs(t, c.AddQuestionToQuiz(10, 301, singleChoice(t, 1, "Q1 again", 1)), shared.ErrInvalidInput,
		"question id of another quiz")

	require.NoError(t, c.AddQuestionToQuiz(10, 301, singleChoice(t, 4, "Q4", 1)))
	err := c.UpdateQuestionInQuiz(10, 301, 4, UpdateQuestionParams{
		Content: "Q4",
		Type:    QuestionSingleChoice,
		Score:   1,
		Options: []AnswerOption{opt(t, 41, "right", true), opt(t, 12, "taken", false)},
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput, "option of a question in another quiz")

	require.NoError(t, c.DeleteQuizInSection(10, 300))
	assert.ErrorIs(t, c.AddQuestionToQuiz(10, 301, borrowing(5, 12)), shared.ErrInvalidInput,
		"soft-deleted quizzes keep their ids")

	s, _ := c.Section(10)
	second, _ := s.Quiz(301)
	assert.Equal(t, 1, second.TotalScore())
}

func TestAddQuiz_RejectsQuizSharingOptions(t *testing.T) {
	c := courseWithLesson(t)
	require.NoError(t, c.AddLessonToSection(10, newVideoLesson(t, 101, "V2", "https://cdn.example.com/v2.mp4")))
	require.NoError(t, c.AddQuizToSection(10, newTestQuiz(t, 300, 100, "First", 50)))
	require.NoError(t, c.AddQuestionToQuiz(10, 300, singleChoice(t, 1, "Q1", 2)))

	copied, err := NewQuestion(QuestionParams{
		ID: 2, Content: "Q2", Type: QuestionTrueFalse, Score: 1,
		Options: []AnswerOption{opt(t, 11, "true", true), opt(t, 22, "false", false)},
	})
	require.NoError(t, err)
	quiz, err := NewQuiz(QuizParams{ID: 301, Title: "Second", AfterLessonID: 101, PassScorePercentage: 50, Questions: []*Question{copied}})
	require.NoError(t, err)

	assert.ErrorIs(t, c.AddQuizToSection(10, quiz), shared.ErrInvalidInput)
	s, _ := c.Section(10)
	_, ok := s.Quiz(301)
	assert.False(t, ok)
}

func TestZeroValueChildrenAreRejected(t *testing.T) {
	c := courseWithLesson(t)

	assert.ErrorIs(t, c.AddQuizToSection(10, &Quiz{}), shared.ErrInvalidID)

	require.NoError(t, c.AddQuizToSection(10, newTestQuiz(t, 300, 100, "Quiz", 50)))
	assert.ErrorIs(t, c.AddQuestionToQuiz(10, 300, &Question{}), shared.ErrInvalidID)

	unvalidated := &Question{id: 7, content: "no options", qtype: QuestionSingleChoice, score: 5}
	assert.ErrorIs(t, c.AddQuestionToQuiz(10, 300, unvalidated), shared.ErrInvalidInput)

	s, _ := c.Section(10)
	q, _ := s.Quiz(300)
	assert.Empty(t, q.Questions())
	assert.Zero(t, q.TotalScore())
}
