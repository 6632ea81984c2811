package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/course-hub/internal/application/command"
	"github.com/alem-hub/course-hub/internal/domain/course"
	"github.com/alem-hub/course-hub/internal/domain/shared"
	"github.com/alem-hub/course-hub/internal/infrastructure/persistence/memory"
)

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	l, err := NewLoader(nil)
	require.NoError(t, err)
	return l
}

func TestLoader_LoadFile(t *testing.T) {
	doc, err := newTestLoader(t).LoadFile("testdata/catalog/go-basics.yaml")
	require.NoError(t, err)

	assert.Equal(t, "Go Basics", doc.Title)
	require.NotNil(t, doc.Price)
	assert.Equal(t, "19.90", doc.Price.Amount)
	require.Len(t, doc.Sections, 1)
	assert.Len(t, doc.Sections[0].Lessons, 2)
	require.Len(t, doc.Sections[0].Quizzes, 1)
	assert.Len(t, doc.Sections[0].Quizzes[0].Questions, 2)
}

func TestLoader_RejectsSchemaViolations(t *testing.T) {
	_, err := newTestLoader(t).LoadFile("testdata/catalog/zz-broken.yml")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDocument)
	assert.Contains(t, err.Error(), "type")
}

func TestLoader_Parse(t *testing.T) {
	l := newTestLoader(t)

	tests := []struct {
		name string
		yaml string
	}{
		{"empty", ""},
		{"not yaml", "title: [unclosed"},
		{"missing sections", "title: X\nlanguage: en\ncreated_by: a\n"},
		{"unknown field", "title: X\nlanguage: en\ncreated_by: a\nsections: []\nowner: me\n"},
		{"score out of range", `
title: X
language: en
created_by: a
sections:
  - title: S
    quizzes:
      - title: Q
        after_lesson: L
        pass_score_percentage: 50
        questions:
          - content: c
            type: SINGLE_CHOICE
            score: 9
            options: [{content: a, correct: true}]
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidDocument)
		})
	}
}

func TestDocument_ToCommand(t *testing.T) {
	doc, err := newTestLoader(t).LoadFile("testdata/catalog/go-basics.yaml")
	require.NoError(t, err)

	cmd, err := doc.ToCommand("go-basics.yaml")
	require.NoError(t, err)

	assert.Equal(t, shared.LanguageEnglish, cmd.Course.Language)
	assert.Equal(t, []shared.Language{shared.LanguageVietnamese}, cmd.Course.Subtitles)
	assert.Equal(t, "USD", cmd.Price.Currency)
	assert.Equal(t, course.LessonVideo, cmd.Sections[0].Lessons[0].Type)
	assert.Equal(t, "Hello world", cmd.Sections[0].Quizzes[0].AfterLesson)
	assert.Equal(t, course.QuestionTrueFalse, cmd.Sections[0].Quizzes[0].Questions[1].Type)
	require.NoError(t, cmd.Validate())

	doc.Language = "klingon"
	_, err = doc.ToCommand("x")
	assert.Error(t, err)
}

func newImporter() (*command.ImportCourseHandler, *memory.CourseRepository) {
	repo := memory.NewCourseRepository()
	exec := command.NewExecutor(command.ExecutorConfig{Repository: repo})
	return command.NewImportCourseHandler(exec, repo, nil, nil), repo
}

func TestLoader_ImportDir(t *testing.T) {
	l := newTestLoader(t)
	importer, repo := newImporter()

	report, err := l.ImportDir(context.Background(), "testdata/catalog", importer, false)
	require.NoError(t, err)

	require.Len(t, report.Imported, 1)
	assert.Len(t, report.Failed, 1)
	assert.Equal(t, 1, repo.Len())

	res := report.Imported[0]
	assert.Equal(t, 1, res.Sections)
	assert.Equal(t, 2, res.Lessons)
	assert.Equal(t, 1, res.Quizzes)
	assert.Equal(t, 2, res.Questions)

	c, err := repo.GetByID(context.Background(), res.CourseID)
	require.NoError(t, err)
	require.NotNil(t, c.Price())
	assert.Equal(t, int64(1990), c.Price().Amount())
	assert.Equal(t, 3, c.Sections()[0].Quizzes()[0].TotalScore())
}

func TestLoader_ImportDirFailFast(t *testing.T) {
	l := newTestLoader(t)
	importer, _ := newImporter()

	// The valid document sorts first, so a second run fails on the duplicate title.
	_, err := l.ImportDir(context.Background(), "testdata/catalog", importer, false)
	require.NoError(t, err)

	report, err := l.ImportDir(context.Background(), "testdata/catalog", importer, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrAlreadyExists))
	assert.Empty(t, report.Imported)
	assert.Len(t, report.Failed, 1)
}

func TestFiles(t *testing.T) {
	files, err := Files("testdata/catalog")
	require.NoError(t, err)
	assert.Equal(t, []string{"testdata/catalog/go-basics.yaml", "testdata/catalog/zz-broken.yml"}, files)

	_, err = Files("testdata/missing")
	assert.Error(t, err)
}
