// Package memory provides an in-process course repository for development
// and tests. It stores snapshots, so callers never share aggregate pointers.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/alem-hub/course-hub/internal/domain/course"
	"github.com/alem-hub/course-hub/internal/domain/shared"
)

// CourseRepository implements course.Repository in memory.
type CourseRepository struct {
	mu      sync.RWMutex
	courses map[int64]course.CourseSnapshot
	nextID  int64
}

// NewCourseRepository creates an empty repository.
func NewCourseRepository() *CourseRepository {
	return &CourseRepository{courses: make(map[int64]course.CourseSnapshot)}
}

// Compile-time check.
var _ course.Repository = (*CourseRepository)(nil)

// NextID implements course.Repository.
func (r *CourseRepository) NextID(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	return r.nextID, nil
}

// Create implements course.Repository.
func (r *CourseRepository) Create(_ context.Context, c *course.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.courses[c.ID()]; exists {
		return shared.NewDomainError("course", "Create", shared.ErrAlreadyExists,
			fmt.Sprintf("course %d already exists", c.ID()))
	}
	c.SetVersion(1)
	r.courses[c.ID()] = c.Snapshot()
	return nil
}

// GetByID implements course.Repository.
func (r *CourseRepository) GetByID(_ context.Context, id int64) (*course.Course, error) {
	r.mu.RLock()
	snap, ok := r.courses[id]
	r.mu.RUnlock()

	if !ok {
		return nil, shared.NotFound("course", "GetByID", fmt.Sprintf("course %d not found", id))
	}
	return course.Rehydrate(snap)
}

// ExistsByTitle implements course.Repository.
func (r *CourseRepository) ExistsByTitle(_ context.Context, title string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, snap := range r.courses {
		if snap.Title == title {
			return true, nil
		}
	}
	return false, nil
}

// Save implements course.Repository.
func (r *CourseRepository) Save(_ context.Context, c *course.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.courses[c.ID()]
	if !ok {
		return shared.NotFound("course", "Save", fmt.Sprintf("course %d not found", c.ID()))
	}
	if stored.Version != c.Version() {
		return shared.NewDomainError("course", "Save", shared.ErrOptimisticLock,
			fmt.Sprintf("course %d was modified concurrently (stored version %d, have %d)",
				c.ID(), stored.Version, c.Version()))
	}

	c.SetVersion(c.Version() + 1)
	r.courses[c.ID()] = c.Snapshot()
	return nil
}

// Remove implements course.Repository.
func (r *CourseRepository) Remove(_ context.Context, c *course.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.courses[c.ID()]
	if !ok {
		return shared.NotFound("course", "Remove", fmt.Sprintf("course %d not found", c.ID()))
	}
	if stored.Version != c.Version() {
		return shared.NewDomainError("course", "Remove", shared.ErrOptimisticLock,
			fmt.Sprintf("course %d was modified concurrently (stored version %d, have %d)",
				c.ID(), stored.Version, c.Version()))
	}
	delete(r.courses, c.ID())
	return nil
}

// Len returns the number of stored courses.
func (r *CourseRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.courses)
}
