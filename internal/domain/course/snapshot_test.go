package course

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/course-hub/internal/domain/shared"
)

func TestRehydrate_RestoresFullGraph(t *testing.T) {
	c := unpublishedCourse(t)
	require.NoError(t, c.AddSection(newTestSection(t, 11, "S2")))
	require.NoError(t, c.AddLessonToSection(11, newVideoLesson(t, 101, "V2", "https://example.com/v2")))
	require.NoError(t, c.AddQuizToSection(11, newTestQuiz(t, 300, 101, "Quiz", 50)))
	require.NoError(t, c.AddQuestionToQuiz(11, 300, singleChoice(t, 1, "Q1", 3)))
	price, err := shared.NewMoney(1250, "USD")
	require.NoError(t, err)
	require.NoError(t, c.ChangePrice(price))

	snap := c.Snapshot()
	restored, err := Rehydrate(snap)
	require.NoError(t, err)

	assert.Equal(t, snap, restored.Snapshot())
	assert.Empty(t, restored.PendingEvents())
	assert.True(t, restored.IsUnpublished())

	res, err := restored.CalculateQuiz(300, Answers{1: {11}})
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalScore)
	assert.True(t, res.Passed)

	// the legacy section is still frozen after a reload
	assert.ErrorIs(t, restored.UpdateSection(10, "renamed"), shared.ErrInvalidInput)
	assert.Equal(t, "12.50 USD", restored.Price().String())
}

func TestRehydrate_InvalidCurrency(t *testing.T) {
	amount := int64(100)
	_, err := Rehydrate(CourseSnapshot{ID: 1, Title: "X", PriceAmount: &amount, PriceCurrency: "???"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
