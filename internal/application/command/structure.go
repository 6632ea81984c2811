package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/course-hub/internal/domain/course"
)

// ══════════════════════════════════════════════════════════════════════════════
// STRUCTURE COMMANDS
// Sections and lessons. Ids are allocated before the mutate cycle so a
// retried save reuses them.
// ══════════════════════════════════════════════════════════════════════════════

// SectionResult identifies the section a command touched.
type SectionResult struct {
	CourseID  int64
	SectionID int64
	Version   int64
}

// LessonResult identifies the lesson a command touched.
type LessonResult struct {
	CourseID   int64
	SectionID  int64
	LessonID   int64
	OrderIndex int
	Version    int64
}

// ─── Sections ─────────────────────────────────────────────────────────────────

// AddSectionCommand appends an empty section to a course.
type AddSectionCommand struct {
	CourseID int64  `validate:"gt=0"`
	Title    string `validate:"notblank,max=255"`
	Actor    string `validate:"notblank"`
}

// Validate validates the command.
func (c AddSectionCommand) Validate() error { return validateCommand("AddSection", c) }

// AddSectionHandler handles AddSectionCommand.
type AddSectionHandler struct {
	exec *Executor
}

// NewAddSectionHandler creates a new AddSectionHandler.
func NewAddSectionHandler(exec *Executor) *AddSectionHandler {
	return &AddSectionHandler{exec: exec}
}

// Handle executes the command.
func (h *AddSectionHandler) Handle(ctx context.Context, cmd AddSectionCommand) (*SectionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("add_section: %w", err)
	}

	sectionID, err := h.exec.NextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("add_section: %w", err)
	}

	c, err := h.exec.Mutate(ctx, cmd.CourseID, cmd.Actor, "add_section", func(c *course.Course) error {
		s, err := course.NewCourseSection(sectionID, cmd.Title)
		if err != nil {
			return err
		}
		return c.AddSection(s)
	})
	if err != nil {
		return nil, fmt.Errorf("add_section: %w", err)
	}
	return &SectionResult{CourseID: c.ID(), SectionID: sectionID, Version: c.Version()}, nil
}

// UpdateSectionCommand renames a section.
type UpdateSectionCommand struct {
	CourseID  int64  `validate:"gt=0"`
	SectionID int64  `validate:"gt=0"`
	Title     string `validate:"notblank,max=255"`
	Actor     string `validate:"notblank"`
}

// Validate validates the command.
func (c UpdateSectionCommand) Validate() error { return validateCommand("UpdateSection", c) }

// UpdateSectionHandler handles UpdateSectionCommand.
type UpdateSectionHandler struct {
	exec *Executor
}

// NewUpdateSectionHandler creates a new UpdateSectionHandler.
func NewUpdateSectionHandler(exec *Executor) *UpdateSectionHandler {
	return &UpdateSectionHandler{exec: exec}
}

// Handle executes the command.
func (h *UpdateSectionHandler) Handle(ctx context.Context, cmd UpdateSectionCommand) (*SectionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_section: %w", err)
	}

	c, err := h.exec.Mutate(ctx, cmd.CourseID, cmd.Actor, "update_section", func(c *course.Course) error {
		return c.UpdateSection(cmd.SectionID, cmd.Title)
	})
	if err != nil {
		return nil, fmt.Errorf("update_section: %w", err)
	}
	return &SectionResult{CourseID: c.ID(), SectionID: cmd.SectionID, Version: c.Version()}, nil
}

// RemoveSectionCommand removes a section together with its lessons and quizzes.
type RemoveSectionCommand struct {
	CourseID  int64  `validate:"gt=0"`
	SectionID int64  `validate:"gt=0"`
	Actor     string `validate:"notblank"`
}

// Validate validates the command.
func (c RemoveSectionCommand) Validate() error { return validateCommand("RemoveSection", c) }

// RemoveSectionHandler handles RemoveSectionCommand.
type RemoveSectionHandler struct {
	exec *Executor
}

// NewRemoveSectionHandler creates a new RemoveSectionHandler.
func NewRemoveSectionHandler(exec *Executor) *RemoveSectionHandler {
	return &RemoveSectionHandler{exec: exec}
}

// Handle executes the command.
func (h *RemoveSectionHandler) Handle(ctx context.Context, cmd RemoveSectionCommand) (*SectionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("remove_section: %w", err)
	}

	c, err := h.exec.Mutate(ctx, cmd.CourseID, cmd.Actor, "remove_section", func(c *course.Course) error {
		return c.RemoveSection(cmd.SectionID)
	})
	if err != nil {
		return nil, fmt.Errorf("remove_section: %w", err)
	}
	return &SectionResult{CourseID: c.ID(), SectionID: cmd.SectionID, Version: c.Version()}, nil
}

// ─── Lessons ──────────────────────────────────────────────────────────────────

// LessonInput carries the editable fields of a lesson.
type LessonInput struct {
	Title  string            `validate:"notblank,max=255"`
	Type   course.LessonType `validate:"lesson_type"`
	Link   string            `validate:"omitempty,max=2048"`
	QuizID int64             `validate:"gte=0"`
}

// AddLessonCommand appends a lesson to a section.
type AddLessonCommand struct {
	CourseID  int64 `validate:"gt=0"`
	SectionID int64 `validate:"gt=0"`
	Lesson    LessonInput
	Actor     string `validate:"notblank"`
}

// Validate validates the command.
func (c AddLessonCommand) Validate() error { return validateCommand("AddLesson", c) }

// AddLessonHandler handles AddLessonCommand.
type AddLessonHandler struct {
	exec *Executor
}

// NewAddLessonHandler creates a new AddLessonHandler.
func NewAddLessonHandler(exec *Executor) *AddLessonHandler {
	return &AddLessonHandler{exec: exec}
}

// Handle executes the command.
func (h *AddLessonHandler) Handle(ctx context.Context, cmd AddLessonCommand) (*LessonResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("add_lesson: %w", err)
	}

	lessonID, err := h.exec.NextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("add_lesson: %w", err)
	}

	c, err := h.exec.Mutate(ctx, cmd.CourseID, cmd.Actor, "add_lesson", func(c *course.Course) error {
		l, err := course.NewLesson(course.LessonParams{
			ID:     lessonID,
			Title:  cmd.Lesson.Title,
			Type:   cmd.Lesson.Type,
			Link:   cmd.Lesson.Link,
			QuizID: cmd.Lesson.QuizID,
		})
		if err != nil {
			return err
		}
		return c.AddLessonToSection(cmd.SectionID, l)
	})
	if err != nil {
		return nil, fmt.Errorf("add_lesson: %w", err)
	}
	return lessonResult(c, cmd.SectionID, lessonID), nil
}

// UpdateLessonCommand replaces the editable fields of a lesson.
type UpdateLessonCommand struct {
	CourseID  int64 `validate:"gt=0"`
	SectionID int64 `validate:"gt=0"`
	LessonID  int64 `validate:"gt=0"`
	Lesson    LessonInput
	Actor     string `validate:"notblank"`
}

// Validate validates the command.
func (c UpdateLessonCommand) Validate() error { return validateCommand("UpdateLesson", c) }

// UpdateLessonHandler handles UpdateLessonCommand.
type UpdateLessonHandler struct {
	exec *Executor
}

// NewUpdateLessonHandler creates a new UpdateLessonHandler.
func NewUpdateLessonHandler(exec *Executor) *UpdateLessonHandler {
	return &UpdateLessonHandler{exec: exec}
}

// Handle executes the command.
func (h *UpdateLessonHandler) Handle(ctx context.Context, cmd UpdateLessonCommand) (*LessonResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_lesson: %w", err)
	}

	c, err := h.exec.Mutate(ctx, cmd.CourseID, cmd.Actor, "update_lesson", func(c *course.Course) error {
		return c.UpdateLessonInSection(cmd.SectionID, cmd.LessonID, course.UpdateLessonParams{
			Title:  cmd.Lesson.Title,
			Type:   cmd.Lesson.Type,
			Link:   cmd.Lesson.Link,
			QuizID: cmd.Lesson.QuizID,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("update_lesson: %w", err)
	}
	return lessonResult(c, cmd.SectionID, cmd.LessonID), nil
}

// RemoveLessonCommand removes a lesson from a section.
type RemoveLessonCommand struct {
	CourseID  int64  `validate:"gt=0"`
	SectionID int64  `validate:"gt=0"`
	LessonID  int64  `validate:"gt=0"`
	Actor     string `validate:"notblank"`
}

// Validate validates the command.
func (c RemoveLessonCommand) Validate() error { return validateCommand("RemoveLesson", c) }

// RemoveLessonHandler handles RemoveLessonCommand.
type RemoveLessonHandler struct {
	exec *Executor
}

// NewRemoveLessonHandler creates a new RemoveLessonHandler.
func NewRemoveLessonHandler(exec *Executor) *RemoveLessonHandler {
	return &RemoveLessonHandler{exec: exec}
}

// Handle executes the command.
func (h *RemoveLessonHandler) Handle(ctx context.Context, cmd RemoveLessonCommand) (*SectionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("remove_lesson: %w", err)
	}

	c, err := h.exec.Mutate(ctx, cmd.CourseID, cmd.Actor, "remove_lesson", func(c *course.Course) error {
		return c.RemoveLessonFromSection(cmd.SectionID, cmd.LessonID)
	})
	if err != nil {
		return nil, fmt.Errorf("remove_lesson: %w", err)
	}
	return &SectionResult{CourseID: c.ID(), SectionID: cmd.SectionID, Version: c.Version()}, nil
}

func lessonResult(c *course.Course, sectionID, lessonID int64) *LessonResult {
	res := &LessonResult{CourseID: c.ID(), SectionID: sectionID, LessonID: lessonID, Version: c.Version()}
	if s, ok := c.Section(sectionID); ok {
		if l, ok := s.Lesson(lessonID); ok {
			res.OrderIndex = l.OrderIndex()
		}
	}
	return res
}
