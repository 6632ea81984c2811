package course

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alem-hub/course-hub/internal/domain/shared"
)

const (
	testTeacher = "teacher-1"
	testAdmin   = "admin-1"
)

func newTestCourse(t *testing.T) *Course {
	t.Helper()
	c, err := NewCourse(NewCourseParams{
		ID:        1,
		Title:     "X",
		Language:  shared.LanguageEnglish,
		Teacher:   testTeacher,
		CreatedBy: testTeacher,
	})
	require.NoError(t, err)
	return c
}

func newTestSection(t *testing.T, id int64, title string) *CourseSection {
	t.Helper()
	s, err := NewCourseSection(id, title)
	require.NoError(t, err)
	return s
}

func newVideoLesson(t *testing.T, id int64, title, link string) *Lesson {
	t.Helper()
	l, err := NewLesson(LessonParams{ID: id, Title: title, Type: LessonVideo, Link: link})
	require.NoError(t, err)
	return l
}

func opt(t *testing.T, id int64, content string, correct bool) AnswerOption {
	t.Helper()
	o, err := NewAnswerOption(id, content, correct)
	require.NoError(t, err)
	return o
}

// singleChoice builds a valid single choice question whose correct option id is id*10+1.
func singleChoice(t *testing.T, id int64, content string, score int) *Question {
	t.Helper()
	q, err := NewQuestion(QuestionParams{
		ID:      id,
		Content: content,
		Type:    QuestionSingleChoice,
		Score:   score,
		Options: []AnswerOption{
			opt(t, id*10+1, "right", true),
			opt(t, id*10+2, "wrong", false),
		},
	})
	require.NoError(t, err)
	return q
}

func newTestQuiz(t *testing.T, id, afterLessonID int64, title string, pass int) *Quiz {
	t.Helper()
	q, err := NewQuiz(QuizParams{ID: id, Title: title, AfterLessonID: afterLessonID, PassScorePercentage: pass})
	require.NoError(t, err)
	return q
}

// courseWithLesson returns a draft course with section 10 holding lesson 100.
func courseWithLesson(t *testing.T) *Course {
	t.Helper()
	c := newTestCourse(t)
	require.NoError(t, c.AddSection(newTestSection(t, 10, "S1")))
	require.NoError(t, c.AddLessonToSection(10, newVideoLesson(t, 100, "V1", "https://cdn.example.com/v1.mp4")))
	return c
}

// publishedCourse returns courseWithLesson after a full publish approval by testAdmin.
func publishedCourse(t *testing.T) *Course {
	t.Helper()
	c := courseWithLesson(t)
	req, err := NewCourseRequest(CourseRequestParams{ID: 500, Type: RequestPublish, Message: "ready", RequestedBy: testTeacher})
	require.NoError(t, err)
	require.NoError(t, c.RequestPublish(req))
	require.NoError(t, c.ApprovePublish(500, testAdmin, "looks good"))
	c.PullEvents()
	return c
}

// unpublishedCourse returns publishedCourse after a full unpublish approval.
func unpublishedCourse(t *testing.T) *Course {
	t.Helper()
	c := publishedCourse(t)
	req, err := NewCourseRequest(CourseRequestParams{ID: 501, Type: RequestUnpublish, Message: "rework", RequestedBy: testTeacher})
	require.NoError(t, err)
	require.NoError(t, c.RequestUnpublish(req))
	require.NoError(t, c.ApproveUnpublish(501, testAdmin, "ok"))
	return c
}
