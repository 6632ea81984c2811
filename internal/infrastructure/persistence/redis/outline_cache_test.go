package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/course-hub/internal/application/query"
)

func sampleOutline() *query.CourseOutlineDTO {
	return &query.CourseOutlineDTO{
		CourseID:    7,
		Title:       "Go basics",
		Teacher:     "alice",
		Language:    "en",
		Version:     3,
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Sections: []query.OutlineSectionDTO{
			{ID: 8, Title: "Intro", Lessons: []query.OutlineLessonDTO{{ID: 9, Title: "Hello", Type: "TEXT"}}},
		},
		LessonTitles: map[int64]string{9: "Hello"},
	}
}

func TestFingerprint_IgnoresGeneratedAt(t *testing.T) {
	a := sampleOutline()
	b := sampleOutline()
	b.GeneratedAt = b.GeneratedAt.Add(time.Hour)

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fb, err := Fingerprint(b)
	require.NoError(t, err)

	assert.Equal(t, fa, fb)
	assert.Len(t, fa, 64)
}

func TestFingerprint_ChangesWithContent(t *testing.T) {
	a := sampleOutline()
	b := sampleOutline()
	b.Sections[0].Lessons[0].Title = "Hello, world"

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fb, err := Fingerprint(b)
	require.NoError(t, err)

	assert.NotEqual(t, fa, fb)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "course:outline:42", CourseOutlineKey(42))
	assert.Equal(t, "course:fingerprint:42", CourseFingerprintKey(42))
}

func TestConfigOptions(t *testing.T) {
	opts, err := Config{URL: "redis://:secret@cache:6380/2", PoolSize: 5}.Options()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 5, opts.PoolSize)

	opts, err = DefaultConfig().Options()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)

	_, err = Config{URL: "://bad"}.Options()
	assert.Error(t, err)
}
