package course

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/course-hub/internal/domain/shared"
)

func publishRequest(t *testing.T, id int64, by string) *CourseRequest {
	t.Helper()
	r, err := NewCourseRequest(CourseRequestParams{ID: id, Type: RequestPublish, Message: "please", RequestedBy: by})
	require.NoError(t, err)
	return r
}

func unpublishRequest(t *testing.T, id int64, by string) *CourseRequest {
	t.Helper()
	r, err := NewCourseRequest(CourseRequestParams{ID: id, Type: RequestUnpublish, Message: "withdraw", RequestedBy: by})
	require.NoError(t, err)
	return r
}

func TestScenario_CreatePriceAndPublish(t *testing.T) {
	c, err := NewCourse(NewCourseParams{ID: 1, Title: "X", Language: shared.LanguageEnglish, Teacher: testTeacher})
	require.NoError(t, err)
	require.NoError(t, c.AddSection(newTestSection(t, 10, "S1")))
	require.NoError(t, c.AddLessonToSection(10, newVideoLesson(t, 100, "V1", "https://cdn.example.com/v1.mp4")))

	price, err := shared.NewMoney(100, "VND")
	require.NoError(t, err)
	require.NoError(t, c.ChangePrice(price))

	require.NoError(t, c.RequestPublish(publishRequest(t, 500, testTeacher)))
	assert.True(t, c.IsAnyRequestUnresolved())

	require.NoError(t, c.ApprovePublish(500, testAdmin, "approved"))

	assert.True(t, c.IsPublished())
	assert.False(t, c.IsUnpublished())
	assert.NotNil(t, c.PublishedDate())
	assert.Equal(t, testAdmin, c.ApprovedBy())
	assert.False(t, c.IsAnyRequestUnresolved())

	req, ok := c.Request(500)
	require.True(t, ok)
	assert.Equal(t, RequestApproved, req.Status())
	assert.Equal(t, testAdmin, req.ResolvedBy())
	assert.Equal(t, "approved", req.ApproveMessage())

	events := c.PullEvents()
	require.Len(t, events, 1)
	published, ok := events[0].(CoursePublishedEvent)
	require.True(t, ok)
	assert.Equal(t, int64(1), published.CourseID)
	assert.Equal(t, testTeacher, published.Teacher)
	assert.Equal(t, "1", published.AggregateID())
	assert.Empty(t, c.PullEvents(), "events are drained once")
}

func TestScenario_UpdateSectionOfPublishedCourse(t *testing.T) {
	c := publishedCourse(t)

	err := c.UpdateSection(10, "S1 v2")
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Contains(t, err.Error(), "Cannot update a section in a published course")
}

func TestScenario_SelfApproval(t *testing.T) {
	c := courseWithLesson(t)
	require.NoError(t, c.RequestPublish(publishRequest(t, 500, testTeacher)))

	assert.ErrorIs(t, c.ApprovePublish(500, testTeacher, "mine"), shared.ErrInvalidInput)
	assert.ErrorIs(t, c.RejectPublish(500, testTeacher, "mine"), shared.ErrInvalidInput)
	assert.False(t, c.IsPublished())
	assert.True(t, c.IsAnyRequestUnresolved())
}

func TestRequestPublish_Guards(t *testing.T) {
	t.Run("no sections", func(t *testing.T) {
		c := newTestCourse(t)
		assert.ErrorIs(t, c.RequestPublish(publishRequest(t, 500, testTeacher)), shared.ErrInvalidInput)
	})
	t.Run("empty section", func(t *testing.T) {
		c := courseWithLesson(t)
		require.NoError(t, c.AddSection(newTestSection(t, 11, "S2")))
		assert.ErrorIs(t, c.RequestPublish(publishRequest(t, 500, testTeacher)), shared.ErrInvalidInput)
	})
	t.Run("no teacher", func(t *testing.T) {
		c, err := NewCourse(NewCourseParams{ID: 1, Title: "X", Language: shared.LanguageEnglish})
		require.NoError(t, err)
		require.NoError(t, c.AddSection(newTestSection(t, 10, "S1")))
		require.NoError(t, c.AddLessonToSection(10, newVideoLesson(t, 100, "V1", "https://example.com/v")))
		assert.ErrorIs(t, c.RequestPublish(publishRequest(t, 500, "someone")), shared.ErrInvalidInput)
	})
	t.Run("wrong type", func(t *testing.T) {
		c := courseWithLesson(t)
		assert.ErrorIs(t, c.RequestPublish(unpublishRequest(t, 500, testTeacher)), shared.ErrInvalidInput)
	})
	t.Run("not the teacher", func(t *testing.T) {
		c := courseWithLesson(t)
		assert.ErrorIs(t, c.RequestPublish(publishRequest(t, 500, "someone")), shared.ErrInvalidInput)
	})
	t.Run("second unresolved request", func(t *testing.T) {
		c := courseWithLesson(t)
		require.NoError(t, c.RequestPublish(publishRequest(t, 500, testTeacher)))
		assert.ErrorIs(t, c.RequestPublish(publishRequest(t, 501, testTeacher)), shared.ErrInvalidInput)
		assert.Len(t, c.Requests(), 1)
	})
	t.Run("already published", func(t *testing.T) {
		c := publishedCourse(t)
		assert.ErrorIs(t, c.RequestPublish(publishRequest(t, 502, testTeacher)), shared.ErrInvalidInput)
	})
}

func TestApprovePublish_Guards(t *testing.T) {
	c := courseWithLesson(t)
	require.NoError(t, c.RequestPublish(publishRequest(t, 500, testTeacher)))

	assert.ErrorIs(t, c.ApprovePublish(500, testAdmin, "  "), shared.ErrInvalidInput, "blank message")
	assert.ErrorIs(t, c.ApprovePublish(999, testAdmin, "ok"), shared.ErrNotFound, "unknown request")

	require.NoError(t, c.ApprovePublish(500, testAdmin, "ok"))
	assert.ErrorIs(t, c.ApprovePublish(500, testAdmin, "ok"), shared.ErrInvalidInput, "already published")
}

func TestRejectPublish(t *testing.T) {
	c := courseWithLesson(t)
	require.NoError(t, c.RequestPublish(publishRequest(t, 500, testTeacher)))

	assert.ErrorIs(t, c.RejectPublish(500, testAdmin, ""), shared.ErrInvalidInput)
	require.NoError(t, c.RejectPublish(500, testAdmin, "needs more lessons"))

	assert.False(t, c.IsPublished())
	assert.False(t, c.IsUnpublished())
	req, _ := c.Request(500)
	assert.Equal(t, RequestRejected, req.Status())
	assert.Equal(t, "needs more lessons", req.RejectReason())
	assert.True(t, req.IsResolved())
	assert.Empty(t, c.PullEvents())

	assert.ErrorIs(t, c.ApprovePublish(500, testAdmin, "changed my mind"), shared.ErrInvalidInput, "resolved request")

	require.NoError(t, c.RequestPublish(publishRequest(t, 501, testTeacher)), "a new request after rejection")
}

func TestUnpublishRoundTrip(t *testing.T) {
	c := publishedCourse(t)

	require.NoError(t, c.RequestUnpublish(unpublishRequest(t, 501, testTeacher)))
	require.NoError(t, c.ApproveUnpublish(501, testAdmin, "withdrawn"))

	assert.True(t, c.IsPublished())
	assert.True(t, c.IsUnpublished())
	assert.NotNil(t, c.UnpublishedDate())
	assert.True(t, c.IsEditable())

	assert.ErrorIs(t, c.ApproveUnpublish(501, testAdmin, "again"), shared.ErrInvalidInput)
	assert.ErrorIs(t, c.RejectUnpublish(501, testAdmin, "too late"), shared.ErrInvalidInput)
}

func TestUnpublish_Guards(t *testing.T) {
	t.Run("draft course", func(t *testing.T) {
		c := courseWithLesson(t)
		assert.ErrorIs(t, c.RequestUnpublish(unpublishRequest(t, 501, testTeacher)), shared.ErrInvalidInput)
	})
	t.Run("requester must be teacher", func(t *testing.T) {
		c := publishedCourse(t)
		assert.ErrorIs(t, c.RequestUnpublish(unpublishRequest(t, 501, testAdmin)), shared.ErrInvalidInput)
	})
	t.Run("only the original approver resolves", func(t *testing.T) {
		c := publishedCourse(t)
		require.NoError(t, c.RequestUnpublish(unpublishRequest(t, 501, testTeacher)))

		assert.ErrorIs(t, c.ApproveUnpublish(501, "admin-2", "ok"), shared.ErrInvalidInput)
		assert.ErrorIs(t, c.RejectUnpublish(501, "admin-2", "no"), shared.ErrInvalidInput)
		assert.ErrorIs(t, c.ApproveUnpublish(501, testTeacher, "ok"), shared.ErrInvalidInput)
		assert.ErrorIs(t, c.ApproveUnpublish(999, testAdmin, "ok"), shared.ErrNotFound)
		assert.ErrorIs(t, c.ApproveUnpublish(500, testAdmin, "ok"), shared.ErrInvalidInput, "publish request id")
	})
	t.Run("rejection keeps the course live", func(t *testing.T) {
		c := publishedCourse(t)
		require.NoError(t, c.RequestUnpublish(unpublishRequest(t, 501, testTeacher)))
		require.NoError(t, c.RejectUnpublish(501, testAdmin, "students are enrolled"))

		assert.True(t, c.IsPublished())
		assert.False(t, c.IsUnpublished())
		assert.False(t, c.IsEditable())
	})
}

func TestUnpublishedMode_SectionConflicts(t *testing.T) {
	c := unpublishedCourse(t)

	err := c.AddLessonToSection(10, newVideoLesson(t, 101, "V2", "https://example.com/v2"))
	assert.ErrorIs(t, err, shared.ErrInvalidInput, "legacy section is frozen")
	assert.ErrorIs(t, c.UpdateSection(10, "renamed"), shared.ErrInvalidInput)
	assert.ErrorIs(t, c.RemoveSection(10), shared.ErrInvalidInput)

	require.NoError(t, c.AddSection(newTestSection(t, 11, "S2")))
	s, _ := c.Section(11)
	assert.False(t, s.IsPublished())
	assert.Equal(t, 2, s.OrderIndex())

	require.NoError(t, c.AddLessonToSection(11, newVideoLesson(t, 101, "V2", "https://example.com/v2")))
	require.NoError(t, c.UpdateSection(11, "S2 final"))

	require.NoError(t, c.RequestPublish(publishRequest(t, 502, testTeacher)))
	require.NoError(t, c.ApprovePublish(502, "admin-2", "republish"))

	assert.True(t, c.IsPublished())
	assert.False(t, c.IsUnpublished())
	assert.Equal(t, "admin-2", c.ApprovedBy())
	for _, sec := range c.Sections() {
		assert.True(t, sec.IsPublished(), "section %d republished", sec.ID())
	}
}

func TestRequestHistoryIsKept(t *testing.T) {
	c := unpublishedCourse(t)

	reqs := c.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, RequestPublish, reqs[0].Type())
	assert.Equal(t, RequestUnpublish, reqs[1].Type())
	for _, r := range reqs {
		assert.True(t, r.IsResolved())
		assert.NotNil(t, r.ResolveDate())
	}
}
