package course

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alem-hub/course-hub/internal/domain/shared"
)

// now is the clock used for dates set by domain methods.
var now = func() time.Time { return time.Now().UTC() }

// ══════════════════════════════════════════════════════════════════════════════
// AGGREGATE ROOT: COURSE
// ══════════════════════════════════════════════════════════════════════════════

// Course is the aggregate root. It owns sections, requests and reviews,
// and every change to them goes through its methods.
type Course struct {
	id            int64
	title         string
	description   string
	thumbnailURL  string
	language      shared.Language
	subtitles     []shared.Language
	benefits      []string
	prerequisites []string
	price         *shared.Money

	teacher         string
	approvedBy      string
	published       bool
	unpublished     bool
	publishedDate   *time.Time
	unpublishedDate *time.Time
	deleted         bool
	removed         bool
	version         int64

	createdBy      string
	createdAt      time.Time
	lastModifiedBy string
	lastModifiedAt time.Time

	sections map[int64]*CourseSection
	requests map[int64]*CourseRequest
	reviews  map[int64]*Review

	events []shared.Event
}

// NewCourseParams contains the data required to create a course.
type NewCourseParams struct {
	ID            int64
	Title         string
	Description   string
	ThumbnailURL  string
	Language      shared.Language
	Subtitles     []shared.Language
	Benefits      []string
	Prerequisites []string
	Teacher       string
	CreatedBy     string
}

// UpdateInfoParams holds the descriptive fields of a course. Language is fixed at creation.
type UpdateInfoParams struct {
	Title         string
	Description   string
	ThumbnailURL  string
	Subtitles     []shared.Language
	Benefits      []string
	Prerequisites []string
}

// NewCourse creates a draft course.
func NewCourse(p NewCourseParams) (*Course, error) {
	if p.ID <= 0 {
		return nil, shared.NewDomainError("course", "New", shared.ErrInvalidID, "course id must be positive")
	}
	if !p.Language.IsValid() {
		return nil, shared.InvalidInput("course", "New", fmt.Sprintf("unsupported language %q", p.Language))
	}
	if err := validateInfo("New", p.Title, p.Language, p.Subtitles); err != nil {
		return nil, err
	}

	at := now()
	return &Course{
		id:             p.ID,
		title:          strings.TrimSpace(p.Title),
		description:    p.Description,
		thumbnailURL:   strings.TrimSpace(p.ThumbnailURL),
		language:       p.Language,
		subtitles:      shared.UniqueLanguages(p.Subtitles),
		benefits:       shared.UniqueStrings(p.Benefits),
		prerequisites:  shared.UniqueStrings(p.Prerequisites),
		teacher:        strings.TrimSpace(p.Teacher),
		createdBy:      p.CreatedBy,
		createdAt:      at,
		lastModifiedBy: p.CreatedBy,
		lastModifiedAt: at,
		sections:       make(map[int64]*CourseSection),
		requests:       make(map[int64]*CourseRequest),
		reviews:        make(map[int64]*Review),
	}, nil
}

func validateInfo(op, title string, lang shared.Language, subtitles []shared.Language) error {
	if strings.TrimSpace(title) == "" {
		return shared.InvalidInput("course", op, "course title cannot be blank")
	}
	for _, sub := range subtitles {
		if !sub.IsValid() {
			return shared.InvalidInput("course", op, fmt.Sprintf("unsupported subtitle language %q", sub))
		}
		if sub == lang {
			return shared.InvalidInput("course", op, "subtitles cannot contain the course language")
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GETTERS
// ══════════════════════════════════════════════════════════════════════════════

func (c *Course) ID() int64                   { return c.id }
func (c *Course) Title() string               { return c.title }
func (c *Course) Description() string         { return c.description }
func (c *Course) ThumbnailURL() string        { return c.thumbnailURL }
func (c *Course) Language() shared.Language   { return c.language }
func (c *Course) Teacher() string             { return c.teacher }
func (c *Course) ApprovedBy() string          { return c.approvedBy }
func (c *Course) IsPublished() bool           { return c.published }
func (c *Course) IsUnpublished() bool         { return c.unpublished }
func (c *Course) PublishedDate() *time.Time   { return c.publishedDate }
func (c *Course) UnpublishedDate() *time.Time { return c.unpublishedDate }
func (c *Course) IsDeleted() bool             { return c.deleted }
func (c *Course) Version() int64              { return c.version }
func (c *Course) CreatedBy() string           { return c.createdBy }
func (c *Course) CreatedAt() time.Time        { return c.createdAt }
func (c *Course) LastModifiedBy() string      { return c.lastModifiedBy }
func (c *Course) LastModifiedAt() time.Time   { return c.lastModifiedAt }

// Subtitles returns a copy of the subtitle languages.
func (c *Course) Subtitles() []shared.Language {
	return append([]shared.Language(nil), c.subtitles...)
}

// Benefits returns a copy of the benefit list.
func (c *Course) Benefits() []string { return append([]string(nil), c.benefits...) }

// Prerequisites returns a copy of the prerequisite list.
func (c *Course) Prerequisites() []string { return append([]string(nil), c.prerequisites...) }

// Price returns the current price, or nil when the course has none.
func (c *Course) Price() *shared.Money {
	if c.price == nil {
		return nil
	}
	p := *c.price
	return &p
}

// Sections returns the sections ordered by orderIndex.
func (c *Course) Sections() []*CourseSection {
	out := make([]*CourseSection, 0, len(c.sections))
	for _, s := range c.sections {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].orderIndex < out[j].orderIndex })
	return out
}

// Section looks a section up by id.
func (c *Course) Section(id int64) (*CourseSection, bool) {
	s, ok := c.sections[id]
	return s, ok
}

// Requests returns every request ever filed, oldest first.
func (c *Course) Requests() []*CourseRequest {
	out := make([]*CourseRequest, 0, len(c.requests))
	for _, r := range c.requests {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Request looks a request up by id.
func (c *Course) Request(id int64) (*CourseRequest, bool) {
	r, ok := c.requests[id]
	return r, ok
}

// Reviews returns the reviews ordered by id.
func (c *Course) Reviews() []*Review {
	out := make([]*Review, 0, len(c.reviews))
	for _, r := range c.reviews {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// STATE PREDICATES
// ══════════════════════════════════════════════════════════════════════════════

// IsPublishedAndNotUnpublishedOrDeleted is true when the course is live or deleted,
// i.e. when it cannot be edited.
func (c *Course) IsPublishedAndNotUnpublishedOrDeleted() bool {
	return (c.published && !c.unpublished) || c.deleted
}

// IsNotPublishedOrDeleted is true when the course is not visible to students.
func (c *Course) IsNotPublishedOrDeleted() bool {
	return !c.published || c.deleted
}

// IsEditable is the complement of IsPublishedAndNotUnpublishedOrDeleted.
func (c *Course) IsEditable() bool {
	return !c.IsPublishedAndNotUnpublishedOrDeleted()
}

// isInUnpublishedMode is true after an unpublish approval until the next publish.
func (c *Course) isInUnpublishedMode() bool {
	return c.published && c.unpublished
}

// IsMarkedForRemoval reports whether DeleteForce succeeded and the repository must drop the course.
func (c *Course) IsMarkedForRemoval() bool { return c.removed }

func (c *Course) checkEditable(op, action string) error {
	if c.IsPublishedAndNotUnpublishedOrDeleted() {
		return shared.InvalidInput("course", op, fmt.Sprintf("Cannot %s in a published course", action))
	}
	return nil
}

func (c *Course) everySectionHasLessons() bool {
	if len(c.sections) == 0 {
		return false
	}
	for _, s := range c.sections {
		if !s.HasLessons() {
			return false
		}
	}
	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE INFO
// ══════════════════════════════════════════════════════════════════════════════

// UpdateInfo replaces the descriptive fields of an editable course.
func (c *Course) UpdateInfo(p UpdateInfoParams) error {
	if err := c.checkEditable("UpdateInfo", "update the information"); err != nil {
		return err
	}
	if err := validateInfo("UpdateInfo", p.Title, c.language, p.Subtitles); err != nil {
		return err
	}
	c.title = strings.TrimSpace(p.Title)
	c.description = p.Description
	c.thumbnailURL = strings.TrimSpace(p.ThumbnailURL)
	c.subtitles = shared.UniqueLanguages(p.Subtitles)
	c.benefits = shared.UniqueStrings(p.Benefits)
	c.prerequisites = shared.UniqueStrings(p.Prerequisites)
	return nil
}

// ChangePrice sets the price. Every section must already have lessons.
func (c *Course) ChangePrice(price shared.Money) error {
	const op = "ChangePrice"
	if err := c.checkEditable(op, "change the price"); err != nil {
		return err
	}
	if !c.everySectionHasLessons() {
		return shared.InvalidInput("course", op, "every section must have lessons before pricing")
	}
	if err := price.Validate(); err != nil {
		return shared.WrapError("course", op, shared.ErrInvalidInput, "price must be non-negative with a valid currency", err)
	}
	c.price = &price
	return nil
}

// AssignTeacher hands the course over to another teacher.
func (c *Course) AssignTeacher(teacher string) error {
	if err := c.checkEditable("AssignTeacher", "assign a teacher"); err != nil {
		return err
	}
	teacher = strings.TrimSpace(teacher)
	if teacher == "" {
		return shared.InvalidInput("course", "AssignTeacher", "teacher is required")
	}
	c.teacher = teacher
	return nil
}

// Touch records who changed the course last. The application layer calls it before saving.
func (c *Course) Touch(by string) {
	c.lastModifiedBy = by
	c.lastModifiedAt = now()
}

// ══════════════════════════════════════════════════════════════════════════════
// SOFT DELETE
// ══════════════════════════════════════════════════════════════════════════════

// Delete soft-deletes the course.
func (c *Course) Delete() error {
	if c.deleted {
		return shared.InvalidInput("course", "Delete", "course is already deleted")
	}
	if c.published && !c.unpublished {
		return shared.InvalidInput("course", "Delete", "Cannot delete a published course")
	}
	c.deleted = true
	return nil
}

// Restore undoes Delete.
func (c *Course) Restore() error {
	if !c.deleted {
		return shared.InvalidInput("course", "Restore", "course is not deleted")
	}
	c.deleted = false
	return nil
}

// DeleteForce marks a soft-deleted course for permanent removal.
func (c *Course) DeleteForce() error {
	if !c.deleted {
		return shared.InvalidInput("course", "DeleteForce", "course must be deleted before it can be removed")
	}
	if c.removed {
		return shared.InvalidInput("course", "DeleteForce", "course is already removed")
	}
	c.removed = true
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// READS
// ══════════════════════════════════════════════════════════════════════════════

// QuizResult is the outcome of grading one submission.
type QuizResult struct {
	QuizID     int64
	Score      int
	TotalScore int
	Passed     bool
}

// CalculateQuiz grades answers against an active quiz of any section.
func (c *Course) CalculateQuiz(quizID int64, answers Answers) (QuizResult, error) {
	for _, s := range c.sections {
		q, ok := s.quizzes[quizID]
		if !ok {
			continue
		}
		if q.deleted {
			break
		}
		score := q.CalculateScore(answers)
		return QuizResult{
			QuizID:     q.id,
			Score:      score,
			TotalScore: q.totalScore,
			Passed:     q.IsPassed(score),
		}, nil
	}
	return QuizResult{}, shared.NotFound("course", "CalculateQuiz", fmt.Sprintf("quiz %d not found", quizID))
}

// AverageRating returns the mean review rating, or 0 without reviews.
func (c *Course) AverageRating() float64 {
	if len(c.reviews) == 0 {
		return 0
	}
	total := 0
	for _, r := range c.reviews {
		total += r.rating
	}
	return float64(total) / float64(len(c.reviews))
}

// LessonIDAndTitleMap maps every lesson id of the course to its title.
func (c *Course) LessonIDAndTitleMap() map[int64]string {
	out := make(map[int64]string)
	for _, s := range c.sections {
		for id, l := range s.lessons {
			out[id] = l.title
		}
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENTS
// ══════════════════════════════════════════════════════════════════════════════

func (c *Course) raise(e shared.Event) {
	c.events = append(c.events, e)
}

// PendingEvents returns the events raised since the last PullEvents without draining them.
func (c *Course) PendingEvents() []shared.Event {
	return append([]shared.Event(nil), c.events...)
}

// PullEvents drains the pending events. Call it only after a successful save.
func (c *Course) PullEvents() []shared.Event {
	events := c.events
	c.events = nil
	return events
}
