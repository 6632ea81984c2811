package course

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/course-hub/internal/domain/shared"
)

func TestNewCourse_Validation(t *testing.T) {
	tests := []struct {
		name   string
		params NewCourseParams
	}{
		{"blank title", NewCourseParams{ID: 1, Title: "  ", Language: shared.LanguageEnglish}},
		{"unknown language", NewCourseParams{ID: 1, Title: "X", Language: "KLINGON"}},
		{"subtitles contain language", NewCourseParams{
			ID: 1, Title: "X", Language: shared.LanguageEnglish,
			Subtitles: []shared.Language{shared.LanguageVietnamese, shared.LanguageEnglish},
		}},
		{"unknown subtitle", NewCourseParams{
			ID: 1, Title: "X", Language: shared.LanguageEnglish, Subtitles: []shared.Language{"ELVISH"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCourse(tt.params)
			assert.ErrorIs(t, err, shared.ErrInvalidInput)
		})
	}

	_, err := NewCourse(NewCourseParams{ID: 0, Title: "X", Language: shared.LanguageEnglish})
	assert.ErrorIs(t, err, shared.ErrInvalidID)
}

func TestNewCourse_NormalizesSets(t *testing.T) {
	c, err := NewCourse(NewCourseParams{
		ID:        1,
		Title:     " Go ",
		Language:  shared.LanguageEnglish,
		Subtitles: []shared.Language{shared.LanguageVietnamese, shared.LanguageFrench, shared.LanguageVietnamese},
		Benefits:  []string{"concurrency", "", "concurrency", "testing"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Go", c.Title())
	assert.Equal(t, []shared.Language{shared.LanguageFrench, shared.LanguageVietnamese}, c.Subtitles())
	assert.Equal(t, []string{"concurrency", "testing"}, c.Benefits())
	assert.False(t, c.IsPublished())
	assert.True(t, c.IsEditable())
}

func TestUpdateInfo_SubtitlesNeverContainLanguage(t *testing.T) {
	c := newTestCourse(t)

	err := c.UpdateInfo(UpdateInfoParams{Title: "Y", Subtitles: []shared.Language{shared.LanguageEnglish}})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Equal(t, "X", c.Title())
	assert.Empty(t, c.Subtitles())

	require.NoError(t, c.UpdateInfo(UpdateInfoParams{Title: "Y", Subtitles: []shared.Language{shared.LanguageJapanese}}))
	assert.Equal(t, "Y", c.Title())
	assert.NotContains(t, c.Subtitles(), c.Language())
}

func TestEditGate_PublishedCourse(t *testing.T) {
	c := publishedCourse(t)

	price, err := shared.NewMoney(100, "VND")
	require.NoError(t, err)

	assert.ErrorIs(t, c.UpdateInfo(UpdateInfoParams{Title: "Y"}), shared.ErrInvalidInput)
	assert.ErrorIs(t, c.ChangePrice(price), shared.ErrInvalidInput)
	assert.ErrorIs(t, c.AssignTeacher("teacher-2"), shared.ErrInvalidInput)
	assert.ErrorIs(t, c.AddSection(newTestSection(t, 11, "S2")), shared.ErrInvalidInput)
}

func TestAddSection_OrderIndex(t *testing.T) {
	c := newTestCourse(t)
	for i, title := range []string{"S1", "S2", "S3", "S4"} {
		require.NoError(t, c.AddSection(newTestSection(t, int64(10+i), title)))
	}
	require.NoError(t, c.RemoveSection(12))

	before := map[int64]int{}
	for _, s := range c.Sections() {
		before[s.ID()] = s.OrderIndex()
	}
	assert.Equal(t, map[int64]int{10: 1, 11: 2, 13: 4}, before)

	require.NoError(t, c.AddSection(newTestSection(t, 14, "S5")))
	s, ok := c.Section(14)
	require.True(t, ok)
	assert.Equal(t, 5, s.OrderIndex())

	for id, idx := range before {
		s, ok := c.Section(id)
		require.True(t, ok)
		assert.Equal(t, idx, s.OrderIndex())
	}
}

func TestAddSection_FirstGetsIndexOne(t *testing.T) {
	c := newTestCourse(t)
	require.NoError(t, c.AddSection(newTestSection(t, 10, "S1")))
	assert.Equal(t, 1, c.Sections()[0].OrderIndex())
}

func TestAddSection_Rejections(t *testing.T) {
	c := courseWithLesson(t)

	err := c.AddSection(newTestSection(t, 11, "S1"))
	assert.ErrorIs(t, err, shared.ErrInvalidInput, "duplicate title")

	withLesson := newTestSection(t, 12, "S2")
	require.NoError(t, withLesson.addLesson(newVideoLesson(t, 200, "L", "https://example.com/l")))
	err = c.AddSection(withLesson)
	assert.ErrorIs(t, err, shared.ErrInvalidInput, "section must be bare")

	assert.Len(t, c.Sections(), 1)
}

func TestSectionOperations_NotFound(t *testing.T) {
	c := courseWithLesson(t)

	assert.ErrorIs(t, c.UpdateSection(99, "Other"), shared.ErrNotFound)
	assert.ErrorIs(t, c.RemoveSection(99), shared.ErrNotFound)
	assert.ErrorIs(t, c.AddLessonToSection(99, newVideoLesson(t, 300, "L", "https://example.com/x")), shared.ErrNotFound)
	assert.ErrorIs(t, c.RemoveLessonFromSection(10, 999), shared.ErrNotFound)
}

func TestUpdateSection_DuplicateTitle(t *testing.T) {
	c := courseWithLesson(t)
	require.NoError(t, c.AddSection(newTestSection(t, 11, "S2")))

	assert.ErrorIs(t, c.UpdateSection(11, "S1"), shared.ErrInvalidInput)
	require.NoError(t, c.UpdateSection(11, "S2 renamed"))

	s, _ := c.Section(11)
	assert.Equal(t, "S2 renamed", s.Title())
}

func TestSoftDelete(t *testing.T) {
	c := newTestCourse(t)

	assert.ErrorIs(t, c.Restore(), shared.ErrInvalidInput, "restore of a live course")
	assert.ErrorIs(t, c.DeleteForce(), shared.ErrInvalidInput, "force delete requires soft delete")

	require.NoError(t, c.Delete())
	assert.True(t, c.IsDeleted())
	assert.ErrorIs(t, c.Delete(), shared.ErrInvalidInput, "second delete")
	assert.False(t, c.IsEditable())

	require.NoError(t, c.Restore())
	assert.False(t, c.IsDeleted())

	require.NoError(t, c.Delete())
	require.NoError(t, c.DeleteForce())
	assert.True(t, c.IsMarkedForRemoval())
}

func TestDelete_PublishedCourse(t *testing.T) {
	c := publishedCourse(t)
	assert.ErrorIs(t, c.Delete(), shared.ErrInvalidInput)

	u := unpublishedCourse(t)
	assert.NoError(t, u.Delete())
}

func TestChangePrice(t *testing.T) {
	c := newTestCourse(t)
	price, err := shared.NewMoney(100, "VND")
	require.NoError(t, err)

	assert.ErrorIs(t, c.ChangePrice(price), shared.ErrInvalidInput, "no sections")

	require.NoError(t, c.AddSection(newTestSection(t, 10, "S1")))
	assert.ErrorIs(t, c.ChangePrice(price), shared.ErrInvalidInput, "empty section")

	require.NoError(t, c.AddLessonToSection(10, newVideoLesson(t, 100, "V1", "https://example.com/v1")))

	negative, err := shared.NewMoney(-1, "VND")
	require.NoError(t, err)
	assert.ErrorIs(t, c.ChangePrice(negative), shared.ErrInvalidInput)
	assert.Nil(t, c.Price())

	require.NoError(t, c.ChangePrice(price))
	require.NotNil(t, c.Price())
	assert.True(t, price.Equal(*c.Price()))
}

func TestAssignTeacher(t *testing.T) {
	c := newTestCourse(t)
	assert.ErrorIs(t, c.AssignTeacher(" "), shared.ErrInvalidInput)
	require.NoError(t, c.AssignTeacher("teacher-2"))
	assert.Equal(t, "teacher-2", c.Teacher())
}

func TestLessonIDAndTitleMap(t *testing.T) {
	c := courseWithLesson(t)
	require.NoError(t, c.AddSection(newTestSection(t, 11, "S2")))
	require.NoError(t, c.AddLessonToSection(11, newVideoLesson(t, 101, "V2", "https://example.com/v2")))

	assert.Equal(t, map[int64]string{100: "V1", 101: "V2"}, c.LessonIDAndTitleMap())
}

func TestReviews(t *testing.T) {
	draft := newTestCourse(t)
	r, err := NewReview(ReviewParams{ID: 1, Username: "alice", Rating: 5})
	require.NoError(t, err)
	assert.ErrorIs(t, draft.AddReview(r), shared.ErrInvalidInput, "draft course cannot be reviewed")

	c := publishedCourse(t)
	assert.Zero(t, c.AverageRating())

	require.NoError(t, c.AddReview(r))
	second, err := NewReview(ReviewParams{ID: 2, Username: "bob", Rating: 2})
	require.NoError(t, err)
	require.NoError(t, c.AddReview(second))

	again, err := NewReview(ReviewParams{ID: 3, Username: "alice", Rating: 1})
	require.NoError(t, err)
	assert.ErrorIs(t, c.AddReview(again), shared.ErrInvalidInput)

	assert.InDelta(t, 3.5, c.AverageRating(), 0.0001)

	events := c.PullEvents()
	require.Len(t, events, 2)
	assert.Equal(t, shared.EventCourseReviewed, events[0].EventType())
	reviewed, ok := events[0].(CourseReviewedEvent)
	require.True(t, ok)
	assert.Equal(t, "alice", reviewed.Username)
}

func TestNewReview_RatingBounds(t *testing.T) {
	for _, rating := range []int{0, 6} {
		_, err := NewReview(ReviewParams{ID: 1, Username: "alice", Rating: rating})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	}
}
