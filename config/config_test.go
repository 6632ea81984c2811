package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "course-hub", cfg.App.Name)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 3, cfg.App.SaveMaxAttempts)
	assert.Equal(t, EventsModeSync, cfg.Events.Mode)
	assert.Equal(t, 10*time.Minute, cfg.Redis.OutlineTTL)
	assert.Empty(t, cfg.Database.URL)
	assert.True(t, cfg.Features.IsEnabled(FeatureReviews, nil))
}

func TestLoad_DatabaseURLFromParts(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "hub")
	t.Setenv("DB_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://hub:secret@db:5432/courses?sslmode=disable", cfg.Database.URL)
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := &Config{
		App:    AppConfig{Environment: EnvProduction, SaveMaxAttempts: 0},
		Redis:  RedisConfig{Disabled: true},
		Events: EventsConfig{Mode: EventsModeRedis, Channel: ""},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required in production")
	assert.Contains(t, err.Error(), "APP_SAVE_MAX_ATTEMPTS")
	assert.Contains(t, err.Error(), "requires Redis to be enabled")
	assert.Contains(t, err.Error(), "EVENTS_CHANNEL")
}

func TestValidate_UnknownEventsMode(t *testing.T) {
	cfg := &Config{
		App:    AppConfig{Environment: EnvDevelopment, SaveMaxAttempts: 1},
		Redis:  RedisConfig{OutlineTTL: time.Minute},
		Events: EventsConfig{Mode: "kafka"},
	}
	assert.ErrorContains(t, cfg.Validate(), `got "kafka"`)
}

func TestFeatureFlags_EnvOverrides(t *testing.T) {
	t.Setenv("FEATURE_COURSE_REVIEWS", "false")
	t.Setenv("FEATURE_OUTLINE_CACHE_TEACHERS", "alice, bob")

	ff := LoadFeatureFlags()

	assert.False(t, ff.IsEnabled(FeatureReviews, &FeatureContext{CourseID: 1}))
	assert.True(t, ff.IsEnabled(FeatureReviews, &FeatureContext{CourseID: 1, IsAdmin: true}))
	assert.True(t, ff.IsEnabled(FeatureOutlineCache, &FeatureContext{Teacher: "bob"}))
	assert.False(t, ff.IsEnabled(FeatureOutlineCache, &FeatureContext{Teacher: "carol"}))
}

func TestFeatureFlags_RolloutIsStablePerCourse(t *testing.T) {
	ff := LoadFeatureFlags()
	require.NoError(t, ff.SetRolloutPercent(FeatureOutlineCache, 50))

	first := ff.IsEnabled(FeatureOutlineCache, &FeatureContext{CourseID: 77})
	for range 10 {
		assert.Equal(t, first, ff.IsEnabled(FeatureOutlineCache, &FeatureContext{CourseID: 77}))
	}

	ff.SetCourseOverride(77, FeatureOutlineCache, !first)
	assert.Equal(t, !first, ff.IsEnabled(FeatureOutlineCache, &FeatureContext{CourseID: 77}))
	ff.ClearCourseOverrides(77)
	assert.Equal(t, first, ff.IsEnabled(FeatureOutlineCache, &FeatureContext{CourseID: 77}))

	assert.ErrorIs(t, ff.SetRolloutPercent("nope", 10), ErrFeatureNotFound)
	assert.ErrorIs(t, ff.SetRolloutPercent(FeatureOutlineCache, 101), ErrInvalidRolloutPercent)
}

func TestFeatureFlags_NilEnablesDefaults(t *testing.T) {
	var ff *FeatureFlags
	assert.True(t, ff.IsEnabled(FeatureReviews, nil))
	assert.False(t, ff.IsEnabled(FeatureCatalogOverwrite, nil))
}
