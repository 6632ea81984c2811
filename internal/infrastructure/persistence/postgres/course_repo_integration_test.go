//go:build integration

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/alem-hub/course-hub/internal/domain/course"
	"github.com/alem-hub/course-hub/internal/domain/shared"
)

func startPostgres(t *testing.T) *Connection {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("courses"),
		tcpostgres.WithUsername("courses"),
		tcpostgres.WithPassword("courses"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.URL = dsn
	conn, err := NewConnection(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	require.NoError(t, NewMigrator(conn).Migrate(ctx))
	return conn
}

// buildCourse creates a course with one section, a lesson, a quiz and a
// pending publish request, drawing every id from the repository.
func buildCourse(t *testing.T, repo *CourseRepository) *course.Course {
	t.Helper()
	ctx := context.Background()
	next := func() int64 {
		id, err := repo.NextID(ctx)
		require.NoError(t, err)
		return id
	}

	c, err := course.NewCourse(course.NewCourseParams{
		ID:        next(),
		Title:     "Go in practice " + time.Now().Format(time.RFC3339Nano),
		Language:  shared.LanguageEnglish,
		Teacher:   "alice",
		CreatedBy: "alice",
	})
	require.NoError(t, err)

	sectionID := next()
	s, err := course.NewCourseSection(sectionID, "Basics")
	require.NoError(t, err)
	require.NoError(t, c.AddSection(s))

	lessonID := next()
	l, err := course.NewLesson(course.LessonParams{ID: lessonID, Title: "Intro", Type: course.LessonVideo, Link: "https://cdn.example.com/intro.mp4"})
	require.NoError(t, err)
	require.NoError(t, c.AddLessonToSection(sectionID, l))

	q, err := course.NewQuiz(course.QuizParams{ID: next(), Title: "Check", AfterLessonID: lessonID, PassScorePercentage: 50})
	require.NoError(t, err)
	require.NoError(t, c.AddQuizToSection(sectionID, q))

	questionID := next()
	right, err := course.NewAnswerOption(next(), "yes", true)
	require.NoError(t, err)
	wrong, err := course.NewAnswerOption(next(), "no", false)
	require.NoError(t, err)
	question, err := course.NewQuestion(course.QuestionParams{
		ID: questionID, Content: "Is Go compiled?", Type: course.QuestionSingleChoice, Score: 2,
		Options: []course.AnswerOption{right, wrong},
	})
	require.NoError(t, err)
	require.NoError(t, c.AddQuestionToQuiz(sectionID, q.ID(), question))

	price, err := shared.NewMoney(1999, "USD")
	require.NoError(t, err)
	require.NoError(t, c.ChangePrice(price))

	req, err := course.NewCourseRequest(course.CourseRequestParams{ID: next(), Type: course.RequestPublish, RequestedBy: "alice"})
	require.NoError(t, err)
	require.NoError(t, c.RequestPublish(req))

	c.Touch("alice")
	return c
}

func TestCourseRepository_CreateAndLoadGraph(t *testing.T) {
	conn := startPostgres(t)
	repo := NewCourseRepository(conn)
	ctx := context.Background()

	c := buildCourse(t, repo)
	require.NoError(t, repo.Create(ctx, c))
	assert.Equal(t, int64(1), c.Version())

	loaded, err := repo.GetByID(ctx, c.ID())
	require.NoError(t, err)

	assert.Equal(t, c.Title(), loaded.Title())
	assert.Equal(t, int64(1), loaded.Version())
	require.NotNil(t, loaded.Price())
	assert.Equal(t, int64(1999), loaded.Price().Amount())
	require.Len(t, loaded.Sections(), 1)

	sec := loaded.Sections()[0]
	require.Len(t, sec.Lessons(), 1)
	require.Len(t, sec.Quizzes(), 1)
	quiz := sec.Quizzes()[0]
	assert.Equal(t, 2, quiz.TotalScore())
	require.Len(t, quiz.Questions(), 1)
	assert.Len(t, quiz.Questions()[0].Options(), 2)
	assert.True(t, loaded.IsAnyRequestUnresolved())

	exists, err := repo.ExistsByTitle(ctx, c.Title())
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCourseRepository_SaveBumpsVersionAndRewritesChildren(t *testing.T) {
	conn := startPostgres(t)
	repo := NewCourseRepository(conn)
	ctx := context.Background()

	c := buildCourse(t, repo)
	require.NoError(t, repo.Create(ctx, c))

	loaded, err := repo.GetByID(ctx, c.ID())
	require.NoError(t, err)
	reqID := loaded.Requests()[0].ID()
	require.NoError(t, loaded.ApprovePublish(reqID, "admin", "ok"))
	loaded.Touch("admin")
	require.NoError(t, repo.Save(ctx, loaded))
	assert.Equal(t, int64(2), loaded.Version())

	again, err := repo.GetByID(ctx, c.ID())
	require.NoError(t, err)
	assert.True(t, again.IsPublished())
	assert.Equal(t, "admin", again.ApprovedBy())
	assert.False(t, again.IsAnyRequestUnresolved())
	assert.Equal(t, int64(2), again.Version())
}

func TestCourseRepository_OptimisticLock(t *testing.T) {
	conn := startPostgres(t)
	repo := NewCourseRepository(conn)
	ctx := context.Background()

	c := buildCourse(t, repo)
	require.NoError(t, repo.Create(ctx, c))

	first, err := repo.GetByID(ctx, c.ID())
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, c.ID())
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, copyOf := range []*course.Course{first, second} {
		wg.Add(1)
		go func(i int, cc *course.Course) {
			defer wg.Done()
			cc.Touch("writer")
			errs[i] = repo.Save(ctx, cc)
		}(i, copyOf)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.True(t, shared.IsOptimisticLock(err), "unexpected error: %v", err)
			failures++
		}
	}
	assert.Equal(t, 1, failures)
}

func TestCourseRepository_RemoveStaleCopy(t *testing.T) {
	conn := startPostgres(t)
	repo := NewCourseRepository(conn)
	ctx := context.Background()

	c := buildCourse(t, repo)
	require.NoError(t, c.Delete())
	require.NoError(t, repo.Create(ctx, c))

	stale, err := repo.GetByID(ctx, c.ID())
	require.NoError(t, err)
	fresh, err := repo.GetByID(ctx, c.ID())
	require.NoError(t, err)

	require.NoError(t, fresh.Restore())
	require.NoError(t, repo.Save(ctx, fresh))

	require.NoError(t, stale.DeleteForce())
	assert.True(t, shared.IsOptimisticLock(repo.Remove(ctx, stale)))

	restored, err := repo.GetByID(ctx, c.ID())
	require.NoError(t, err)
	assert.False(t, restored.IsDeleted())
}

func TestCourseRepository_RemoveAndNotFound(t *testing.T) {
	conn := startPostgres(t)
	repo := NewCourseRepository(conn)
	ctx := context.Background()

	c := buildCourse(t, repo)
	require.NoError(t, repo.Create(ctx, c))
	require.NoError(t, repo.Remove(ctx, c))

	_, err := repo.GetByID(ctx, c.ID())
	assert.True(t, shared.IsNotFound(err))
	assert.True(t, shared.IsNotFound(repo.Remove(ctx, c)))
	assert.True(t, shared.IsNotFound(repo.Save(ctx, c)))

	var children int
	require.NoError(t, conn.QueryRow(ctx, "SELECT count(*) FROM course_lessons WHERE course_id = $1", c.ID()).Scan(&children))
	assert.Zero(t, children)
}

func TestCourseRepository_CreateDuplicateID(t *testing.T) {
	conn := startPostgres(t)
	repo := NewCourseRepository(conn)
	ctx := context.Background()

	c := buildCourse(t, repo)
	require.NoError(t, repo.Create(ctx, c))
	err := repo.Create(ctx, c)
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestMigrator_StatusAndRollback(t *testing.T) {
	conn := startPostgres(t)
	ctx := context.Background()
	m := NewMigrator(conn)

	status, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status, 1)
	assert.True(t, status[0].IsApplied)

	require.NoError(t, m.Rollback(ctx))
	status, err = m.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status[0].IsApplied)

	require.NoError(t, m.Migrate(ctx))
}
