package course

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository stores whole course aggregates.
type Repository interface {
	// NextID returns a fresh id for a course or any of its children.
	// Ids come from one sequence, so they are unique across entity kinds.
	NextID(ctx context.Context) (int64, error)

	// Create stores a new course and sets its version to 1.
	// Returns shared.ErrAlreadyExists if the id is taken.
	Create(ctx context.Context, c *Course) error

	// GetByID loads the full graph: sections, lessons, quizzes, questions,
	// options, requests and reviews.
	// Returns shared.ErrNotFound if the course does not exist.
	GetByID(ctx context.Context, id int64) (*Course, error)

	// ExistsByTitle reports whether a course that is not force-removed has
	// this exact title. Used by the catalog importer.
	ExistsByTitle(ctx context.Context, title string) (bool, error)

	// Save replaces the stored graph when the stored version equals c.Version()
	// and increments the version.
	// Returns shared.ErrOptimisticLock when another save won the race.
	Save(ctx context.Context, c *Course) error

	// Remove permanently deletes a course marked by DeleteForce when the
	// stored version equals c.Version().
	// Returns shared.ErrNotFound if the course does not exist and
	// shared.ErrOptimisticLock when another save won the race.
	Remove(ctx context.Context, c *Course) error
}
