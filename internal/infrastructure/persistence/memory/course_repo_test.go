package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/course-hub/internal/domain/course"
	"github.com/alem-hub/course-hub/internal/domain/shared"
)

func newCourse(t *testing.T, repo *CourseRepository) *course.Course {
	t.Helper()
	id, err := repo.NextID(context.Background())
	require.NoError(t, err)
	c, err := course.NewCourse(course.NewCourseParams{
		ID:        id,
		Title:     "Go basics",
		Language:  shared.LanguageEnglish,
		Teacher:   "teacher-1",
		CreatedBy: "teacher-1",
	})
	require.NoError(t, err)
	return c
}

func TestCourseRepository_CreateAndLoadCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewCourseRepository()
	c := newCourse(t, repo)

	require.NoError(t, repo.Create(ctx, c))
	assert.Equal(t, int64(1), c.Version())
	assert.ErrorIs(t, repo.Create(ctx, c), shared.ErrAlreadyExists)

	loaded, err := repo.GetByID(ctx, c.ID())
	require.NoError(t, err)
	assert.NotSame(t, c, loaded)
	assert.Equal(t, c.Snapshot(), loaded.Snapshot())

	// mutating the loaded copy does not leak into the store
	sectionID, _ := repo.NextID(ctx)
	s, err := course.NewCourseSection(sectionID, "Intro")
	require.NoError(t, err)
	require.NoError(t, loaded.AddSection(s))

	again, err := repo.GetByID(ctx, c.ID())
	require.NoError(t, err)
	assert.Empty(t, again.Sections())

	exists, err := repo.ExistsByTitle(ctx, "Go basics")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCourseRepository_OptimisticLock(t *testing.T) {
	ctx := context.Background()
	repo := NewCourseRepository()
	c := newCourse(t, repo)
	require.NoError(t, repo.Create(ctx, c))

	first, err := repo.GetByID(ctx, c.ID())
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, c.ID())
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, first))
	assert.Equal(t, int64(2), first.Version())

	err = repo.Save(ctx, second)
	assert.ErrorIs(t, err, shared.ErrOptimisticLock)
	assert.True(t, shared.IsOptimisticLock(err))
}

func TestCourseRepository_RemoveAndNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewCourseRepository()
	c := newCourse(t, repo)
	require.NoError(t, repo.Create(ctx, c))

	require.NoError(t, repo.Remove(ctx, c))
	assert.Equal(t, 0, repo.Len())

	_, err := repo.GetByID(ctx, c.ID())
	assert.True(t, shared.IsNotFound(err))
	assert.ErrorIs(t, repo.Remove(ctx, c), shared.ErrNotFound)
}

func TestCourseRepository_RemoveStaleCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewCourseRepository()
	c := newCourse(t, repo)
	require.NoError(t, c.Delete())
	require.NoError(t, repo.Create(ctx, c))

	stale, err := repo.GetByID(ctx, c.ID())
	require.NoError(t, err)
	fresh, err := repo.GetByID(ctx, c.ID())
	require.NoError(t, err)

	require.NoError(t, fresh.Restore())
	require.NoError(t, repo.Save(ctx, fresh))

	require.NoError(t, stale.DeleteForce())
	err = repo.Remove(ctx, stale)
	assert.ErrorIs(t, err, shared.ErrOptimisticLock)
	assert.Equal(t, 1, repo.Len())

	restored, err := repo.GetByID(ctx, c.ID())
	require.NoError(t, err)
	assert.False(t, restored.IsDeleted())
}
