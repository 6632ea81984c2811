package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alem-hub/course-hub/config"
	"github.com/alem-hub/course-hub/internal/domain/course"
	"github.com/alem-hub/course-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// IMPORT COURSE COMMAND
// Builds a whole draft course from a catalog document and stores it in one
// Create. The document is applied through the same aggregate methods a
// teacher would call, so every structural rule still holds.
// ══════════════════════════════════════════════════════════════════════════════

// ImportQuiz is a quiz placed after the lesson with the given title.
type ImportQuiz struct {
	Title               string          `validate:"notblank,max=255"`
	Description         string          `validate:"max=10000"`
	AfterLesson         string          `validate:"notblank"`
	PassScorePercentage int             `validate:"gte=0,lte=100"`
	Questions           []QuestionInput `validate:"dive"`
}

// ImportSection is a section with its lessons in order.
type ImportSection struct {
	Title   string        `validate:"notblank,max=255"`
	Lessons []LessonInput `validate:"dive"`
	Quizzes []ImportQuiz  `validate:"dive"`
}

// PriceInput is a decimal amount with an ISO 4217 currency.
type PriceInput struct {
	Amount   string `validate:"notblank"`
	Currency string `validate:"len=3"`
}

// ImportCourseCommand contains a full course outline.
type ImportCourseCommand struct {
	Course   CreateCourseCommand
	Price    *PriceInput     `validate:"omitnil"`
	Sections []ImportSection `validate:"dive"`

	// Source names the document for logs.
	Source string
}

// Validate validates the command.
func (c ImportCourseCommand) Validate() error { return validateCommand("ImportCourse", c) }

// ImportCourseResult summarizes the stored course.
type ImportCourseResult struct {
	CourseID  int64
	Sections  int
	Lessons   int
	Quizzes   int
	Questions int
}

// ImportCourseHandler handles ImportCourseCommand.
type ImportCourseHandler struct {
	exec     *Executor
	repo     course.Repository
	features *config.FeatureFlags
	logger   *slog.Logger
}

// NewImportCourseHandler creates a new ImportCourseHandler. features may be nil.
func NewImportCourseHandler(
	exec *Executor,
	repo course.Repository,
	features *config.FeatureFlags,
	logger *slog.Logger,
) *ImportCourseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportCourseHandler{exec: exec, repo: repo, features: features, logger: logger}
}

// Handle executes the command.
func (h *ImportCourseHandler) Handle(ctx context.Context, cmd ImportCourseCommand) (*ImportCourseResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("import_course: %w", err)
	}

	if !h.features.IsEnabled(config.FeatureCatalogOverwrite, &config.FeatureContext{Teacher: cmd.Course.Teacher}) {
		exists, err := h.repo.ExistsByTitle(ctx, cmd.Course.Title)
		if err != nil {
			return nil, fmt.Errorf("import_course: %w", err)
		}
		if exists {
			return nil, fmt.Errorf("import_course: %w", shared.NewDomainError("command", "ImportCourse",
				shared.ErrAlreadyExists, fmt.Sprintf("course %q already exists", cmd.Course.Title)))
		}
	}

	c, res, err := h.build(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("import_course: %w", err)
	}
	c.Touch(cmd.Course.CreatedBy)

	if err := h.exec.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("import_course: save: %w", err)
	}

	h.logger.Info("course imported",
		"course_id", res.CourseID,
		"source", cmd.Source,
		"sections", res.Sections,
		"lessons", res.Lessons,
		"quizzes", res.Quizzes,
	)
	return res, nil
}

func (h *ImportCourseHandler) build(ctx context.Context, cmd ImportCourseCommand) (*course.Course, *ImportCourseResult, error) {
	id, err := h.exec.NextID(ctx)
	if err != nil {
		return nil, nil, err
	}

	c, err := course.NewCourse(course.NewCourseParams{
		ID:            id,
		Title:         cmd.Course.Title,
		Description:   cmd.Course.Description,
		ThumbnailURL:  cmd.Course.ThumbnailURL,
		Language:      cmd.Course.Language,
		Subtitles:     cmd.Course.Subtitles,
		Benefits:      cmd.Course.Benefits,
		Prerequisites: cmd.Course.Prerequisites,
		Teacher:       cmd.Course.Teacher,
		CreatedBy:     cmd.Course.CreatedBy,
	})
	if err != nil {
		return nil, nil, err
	}
	res := &ImportCourseResult{CourseID: id}

	for si, in := range cmd.Sections {
		sectionID, err := h.exec.NextID(ctx)
		if err != nil {
			return nil, nil, err
		}
		s, err := course.NewCourseSection(sectionID, in.Title)
		if err != nil {
			return nil, nil, fmt.Errorf("section %d: %w", si+1, err)
		}
		if err := c.AddSection(s); err != nil {
			return nil, nil, fmt.Errorf("section %d: %w", si+1, err)
		}
		res.Sections++

		lessonIDs := make(map[string]int64, len(in.Lessons))
		for li, lin := range in.Lessons {
			lessonID, err := h.exec.NextID(ctx)
			if err != nil {
				return nil, nil, err
			}
			l, err := course.NewLesson(course.LessonParams{
				ID:     lessonID,
				Title:  lin.Title,
				Type:   lin.Type,
				Link:   lin.Link,
				QuizID: lin.QuizID,
			})
			if err == nil {
				err = c.AddLessonToSection(sectionID, l)
			}
			if err != nil {
				return nil, nil, fmt.Errorf("section %q lesson %d: %w", in.Title, li+1, err)
			}
			lessonIDs[lin.Title] = lessonID
			res.Lessons++
		}

		for _, qin := range in.Quizzes {
			n, err := h.addQuiz(ctx, c, sectionID, qin, lessonIDs)
			if err != nil {
				return nil, nil, fmt.Errorf("section %q quiz %q: %w", in.Title, qin.Title, err)
			}
			res.Quizzes++
			res.Questions += n
		}
	}

	if cmd.Price != nil {
		price, err := shared.ParseMoney(cmd.Price.Amount, cmd.Price.Currency)
		if err != nil {
			return nil, nil, err
		}
		if err := c.ChangePrice(price); err != nil {
			return nil, nil, err
		}
	}

	return c, res, nil
}

func (h *ImportCourseHandler) addQuiz(
	ctx context.Context,
	c *course.Course,
	sectionID int64,
	in ImportQuiz,
	lessonIDs map[string]int64,
) (int, error) {
	afterLessonID, ok := lessonIDs[in.AfterLesson]
	if !ok {
		return 0, shared.NotFound("command", "ImportCourse", fmt.Sprintf("lesson %q not found in section", in.AfterLesson))
	}

	quizID, err := h.exec.NextID(ctx)
	if err != nil {
		return 0, err
	}
	questions := make([]*course.Question, 0, len(in.Questions))
	for _, qin := range in.Questions {
		ids, err := reserveQuestionIDs(ctx, h.exec, qin, true)
		if err != nil {
			return 0, err
		}
		q, err := buildQuestion(qin, ids)
		if err != nil {
			return 0, err
		}
		questions = append(questions, q)
	}

	quiz, err := course.NewQuiz(course.QuizParams{
		ID:                  quizID,
		Title:               in.Title,
		Description:         in.Description,
		AfterLessonID:       afterLessonID,
		PassScorePercentage: in.PassScorePercentage,
		Questions:           questions,
	})
	if err != nil {
		return 0, err
	}
	if err := c.AddQuizToSection(sectionID, quiz); err != nil {
		return 0, err
	}
	return len(questions), nil
}
