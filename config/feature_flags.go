package config

import (
	"hash/fnv"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles for course features.
// Supports percentage rollout by course, teacher targeting and per-course overrides.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// Override rules (for testing/debugging)
	courseOverrides map[int64]map[string]bool // courseID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Courses are assigned based on hash of their ID
	RolloutPercent int

	// Teacher targeting. Empty means all teachers.
	TargetTeachers []string

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	CourseID int64
	Teacher  string
	IsAdmin  bool
}

// Predefined feature flag names.
const (
	FeatureReviews          = "course.reviews"           // AddReview on published courses
	FeatureOutlineCache     = "outline.cache"            // Redis cache for course outlines
	FeaturePublishNotify    = "notify.course_published"  // Notify collaborators on publish
	FeatureCatalogOverwrite = "catalog.overwrite_titles" // Importer may reuse an existing title
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:        make(map[string]*Feature),
		courseOverrides: make(map[int64]map[string]bool),
	}

	ff.initializeDefaults()
	ff.loadFromEnvironment()

	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureReviews] = &Feature{
		Name:           FeatureReviews,
		Description:    "Allow reviews on published courses",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureOutlineCache] = &Feature{
		Name:           FeatureOutlineCache,
		Description:    "Serve course outlines from Redis",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeaturePublishNotify] = &Feature{
		Name:           FeaturePublishNotify,
		Description:    "Notify enrollment and notification collaborators when a course goes live",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureCatalogOverwrite] = &Feature{
		Name:           FeatureCatalogOverwrite,
		Description:    "Import catalog entries even when a course with the same title exists",
		Enabled:        false,
		RolloutPercent: 0,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_COURSE_REVIEWS=false
// Example: FEATURE_OUTLINE_CACHE=50 (50% of courses)
// Teacher targeting: FEATURE_<NAME>_TEACHERS=alice,bob
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		feature.TargetTeachers = getEnvStringSlice(envKey+"_TEACHERS", feature.TargetTeachers)

		val := os.Getenv(envKey)
		if val == "" {
			continue
		}
		if b, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = b
			if b {
				feature.RolloutPercent = 100
			} else {
				feature.RolloutPercent = 0
			}
			continue
		}
		if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
			feature.Enabled = p > 0
			feature.RolloutPercent = p
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "course.reviews" -> "FEATURE_COURSE_REVIEWS"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
// A nil FeatureFlags enables every known default-on feature.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	if ff == nil {
		return featureName != FeatureCatalogOverwrite
	}

	ff.mu.RLock()
	defer ff.mu.RUnlock()

	if ctx != nil && ctx.CourseID != 0 {
		if overrides, ok := ff.courseOverrides[ctx.CourseID]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	if ctx != nil && ctx.IsAdmin {
		return true
	}

	if !feature.Enabled {
		return false
	}

	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	if len(feature.TargetTeachers) > 0 && ctx != nil && ctx.Teacher != "" {
		if !slices.Contains(feature.TargetTeachers, ctx.Teacher) {
			return false
		}
	}

	if feature.RolloutPercent < 100 && ctx != nil && ctx.CourseID != 0 {
		return isInRollout(ctx.CourseID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout uses consistent hashing so a course stays in its bucket.
func isInRollout(courseID int64, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(strconv.FormatInt(courseID, 10)))

	return int(h.Sum32()%100) < percent
}

// SetCourseOverride sets a feature override for a specific course.
func (ff *FeatureFlags) SetCourseOverride(courseID int64, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.courseOverrides[courseID]; !ok {
		ff.courseOverrides[courseID] = make(map[string]bool)
	}
	ff.courseOverrides[courseID][featureName] = enabled
}

// ClearCourseOverrides removes all overrides for a course.
func (ff *FeatureFlags) ClearCourseOverrides(courseID int64) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.courseOverrides, courseID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		featureCopy := *v
		featureCopy.TargetTeachers = slices.Clone(v.TargetTeachers)
		result[k] = &featureCopy
	}
	return result
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
