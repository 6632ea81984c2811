package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/course-hub/internal/domain/course"
	"github.com/alem-hub/course-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE COMMANDS
// Creation, descriptive info, price, teacher and the soft-delete lifecycle.
// ══════════════════════════════════════════════════════════════════════════════

// CourseResult is returned by commands that only change the course itself.
type CourseResult struct {
	CourseID int64
	Version  int64
}

func courseResult(c *course.Course) *CourseResult {
	return &CourseResult{CourseID: c.ID(), Version: c.Version()}
}

// ─── Create ───────────────────────────────────────────────────────────────────

// CreateCourseCommand creates a draft course.
type CreateCourseCommand struct {
	Title         string            `validate:"notblank,max=255"`
	Description   string            `validate:"max=10000"`
	ThumbnailURL  string            `validate:"omitempty,url"`
	Language      shared.Language   `validate:"course_language"`
	Subtitles     []shared.Language `validate:"dive,course_language"`
	Benefits      []string          `validate:"dive,notblank"`
	Prerequisites []string          `validate:"dive,notblank"`
	Teacher       string
	CreatedBy     string `validate:"notblank"`
}

// Validate validates the command.
func (c CreateCourseCommand) Validate() error {
	return validateCommand("CreateCourse", c)
}

// CreateCourseHandler handles CreateCourseCommand.
type CreateCourseHandler struct {
	exec *Executor
}

// NewCreateCourseHandler creates a new CreateCourseHandler.
func NewCreateCourseHandler(exec *Executor) *CreateCourseHandler {
	return &CreateCourseHandler{exec: exec}
}

// Handle executes the command.
func (h *CreateCourseHandler) Handle(ctx context.Context, cmd CreateCourseCommand) (*CourseResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("create_course: %w", err)
	}

	id, err := h.exec.NextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("create_course: %w", err)
	}

	c, err := course.NewCourse(course.NewCourseParams{
		ID:            id,
		Title:         cmd.Title,
		Description:   cmd.Description,
		ThumbnailURL:  cmd.ThumbnailURL,
		Language:      cmd.Language,
		Subtitles:     cmd.Subtitles,
		Benefits:      cmd.Benefits,
		Prerequisites: cmd.Prerequisites,
		Teacher:       cmd.Teacher,
		CreatedBy:     cmd.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create_course: %w", err)
	}

	if err := h.exec.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create_course: save: %w", err)
	}
	return courseResult(c), nil
}

// ─── Update info ──────────────────────────────────────────────────────────────

// UpdateCourseInfoCommand replaces the descriptive fields of a course.
type UpdateCourseInfoCommand struct {
	CourseID      int64             `validate:"gt=0"`
	Title         string            `validate:"notblank,max=255"`
	Description   string            `validate:"max=10000"`
	ThumbnailURL  string            `validate:"omitempty,url"`
	Subtitles     []shared.Language `validate:"dive,course_language"`
	Benefits      []string          `validate:"dive,notblank"`
	Prerequisites []string          `validate:"dive,notblank"`
	Actor         string            `validate:"notblank"`
}

// Validate validates the command.
func (c UpdateCourseInfoCommand) Validate() error {
	return validateCommand("UpdateCourseInfo", c)
}

// UpdateCourseInfoHandler handles UpdateCourseInfoCommand.
type UpdateCourseInfoHandler struct {
	exec *Executor
}

// NewUpdateCourseInfoHandler creates a new UpdateCourseInfoHandler.
func NewUpdateCourseInfoHandler(exec *Executor) *UpdateCourseInfoHandler {
	return &UpdateCourseInfoHandler{exec: exec}
}

// Handle executes the command.
func (h *UpdateCourseInfoHandler) Handle(ctx context.Context, cmd UpdateCourseInfoCommand) (*CourseResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_course_info: %w", err)
	}

	c, err := h.exec.Mutate(ctx, cmd.CourseID, cmd.Actor, "update_course_info", func(c *course.Course) error {
		return c.UpdateInfo(course.UpdateInfoParams{
			Title:         cmd.Title,
			Description:   cmd.Description,
			ThumbnailURL:  cmd.ThumbnailURL,
			Subtitles:     cmd.Subtitles,
			Benefits:      cmd.Benefits,
			Prerequisites: cmd.Prerequisites,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("update_course_info: %w", err)
	}
	return courseResult(c), nil
}

// ─── Price ────────────────────────────────────────────────────────────────────

// ChangePriceCommand sets the course price. Amount is a decimal string ("12.50").
type ChangePriceCommand struct {
	CourseID int64  `validate:"gt=0"`
	Amount   string `validate:"notblank"`
	Currency string `validate:"len=3"`
	Actor    string `validate:"notblank"`
}

// Validate validates the command.
func (c ChangePriceCommand) Validate() error {
	return validateCommand("ChangePrice", c)
}

// ChangePriceHandler handles ChangePriceCommand.
type ChangePriceHandler struct {
	exec *Executor
}

// NewChangePriceHandler creates a new ChangePriceHandler.
func NewChangePriceHandler(exec *Executor) *ChangePriceHandler {
	return &ChangePriceHandler{exec: exec}
}

// Handle executes the command.
func (h *ChangePriceHandler) Handle(ctx context.Context, cmd ChangePriceCommand) (*CourseResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("change_price: %w", err)
	}

	price, err := shared.ParseMoney(cmd.Amount, cmd.Currency)
	if err != nil {
		return nil, fmt.Errorf("change_price: %w", err)
	}

	c, err := h.exec.Mutate(ctx, cmd.CourseID, cmd.Actor, "change_price", func(c *course.Course) error {
		return c.ChangePrice(price)
	})
	if err != nil {
		return nil, fmt.Errorf("change_price: %w", err)
	}
	return courseResult(c), nil
}

// ─── Teacher ──────────────────────────────────────────────────────────────────

// AssignTeacherCommand hands the course over to a teacher.
type AssignTeacherCommand struct {
	CourseID int64  `validate:"gt=0"`
	Teacher  string `validate:"notblank"`
	Actor    string `validate:"notblank"`
}

// Validate validates the command.
func (c AssignTeacherCommand) Validate() error {
	return validateCommand("AssignTeacher", c)
}

// AssignTeacherHandler handles AssignTeacherCommand.
type AssignTeacherHandler struct {
	exec *Executor
}

// NewAssignTeacherHandler creates a new AssignTeacherHandler.
func NewAssignTeacherHandler(exec *Executor) *AssignTeacherHandler {
	return &AssignTeacherHandler{exec: exec}
}

// Handle executes the command.
func (h *AssignTeacherHandler) Handle(ctx context.Context, cmd AssignTeacherCommand) (*CourseResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("assign_teacher: %w", err)
	}

	c, err := h.exec.Mutate(ctx, cmd.CourseID, cmd.Actor, "assign_teacher", func(c *course.Course) error {
		return c.AssignTeacher(cmd.Teacher)
	})
	if err != nil {
		return nil, fmt.Errorf("assign_teacher: %w", err)
	}
	return courseResult(c), nil
}

// ─── Lifecycle ────────────────────────────────────────────────────────────────

// CourseLifecycleAction selects Delete, Restore or DeleteForce.
type CourseLifecycleAction string

const (
	ActionDelete      CourseLifecycleAction = "delete"
	ActionRestore     CourseLifecycleAction = "restore"
	ActionDeleteForce CourseLifecycleAction = "delete_force"
)

// ChangeCourseLifecycleCommand soft-deletes, restores or permanently removes a course.
type ChangeCourseLifecycleCommand struct {
	CourseID int64                 `validate:"gt=0"`
	Action   CourseLifecycleAction `validate:"oneof=delete restore delete_force"`
	Actor    string                `validate:"notblank"`
}

// Validate validates the command.
func (c ChangeCourseLifecycleCommand) Validate() error {
	return validateCommand("ChangeCourseLifecycle", c)
}

// ChangeCourseLifecycleResult reports the state after the action.
type ChangeCourseLifecycleResult struct {
	CourseID int64
	Deleted  bool
	Removed  bool
}

// ChangeCourseLifecycleHandler handles ChangeCourseLifecycleCommand.
type ChangeCourseLifecycleHandler struct {
	exec *Executor
}

// NewChangeCourseLifecycleHandler creates a new ChangeCourseLifecycleHandler.
func NewChangeCourseLifecycleHandler(exec *Executor) *ChangeCourseLifecycleHandler {
	return &ChangeCourseLifecycleHandler{exec: exec}
}

// Handle executes the command.
func (h *ChangeCourseLifecycleHandler) Handle(
	ctx context.Context,
	cmd ChangeCourseLifecycleCommand,
) (*ChangeCourseLifecycleResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("course_%s: %w", cmd.Action, err)
	}

	c, err := h.exec.Mutate(ctx, cmd.CourseID, cmd.Actor, "course_"+string(cmd.Action), func(c *course.Course) error {
		switch cmd.Action {
		case ActionDelete:
			return c.Delete()
		case ActionRestore:
			return c.Restore()
		default:
			return c.DeleteForce()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("course_%s: %w", cmd.Action, err)
	}

	return &ChangeCourseLifecycleResult{
		CourseID: c.ID(),
		Deleted:  c.IsDeleted(),
		Removed:  c.IsMarkedForRemoval(),
	}, nil
}
