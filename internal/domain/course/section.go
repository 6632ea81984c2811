package course

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alem-hub/course-hub/internal/domain/shared"
)

// CourseSection groups lessons and the quizzes that follow them.
type CourseSection struct {
	id         int64
	title      string
	orderIndex int
	published  bool
	lessons    map[int64]*Lesson
	quizzes    map[int64]*Quiz
}

// NewCourseSection creates a bare section. Sections start published;
// the course marks them otherwise when it is added in unpublished mode.
func NewCourseSection(id int64, title string) (*CourseSection, error) {
	if id <= 0 {
		return nil, shared.NewDomainError("section", "New", shared.ErrInvalidID, "section id must be positive")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, shared.InvalidInput("section", "New", "section title cannot be blank")
	}
	return &CourseSection{
		id:        id,
		title:     title,
		published: true,
		lessons:   make(map[int64]*Lesson),
		quizzes:   make(map[int64]*Quiz),
	}, nil
}

func (s *CourseSection) ID() int64         { return s.id }
func (s *CourseSection) Title() string     { return s.title }
func (s *CourseSection) OrderIndex() int   { return s.orderIndex }
func (s *CourseSection) IsPublished() bool { return s.published }
func (s *CourseSection) HasLessons() bool  { return len(s.lessons) > 0 }

// Lessons returns the lessons ordered by orderIndex.
func (s *CourseSection) Lessons() []*Lesson {
	out := make([]*Lesson, 0, len(s.lessons))
	for _, l := range s.lessons {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].orderIndex < out[j].orderIndex })
	return out
}

// Lesson looks a lesson up by id.
func (s *CourseSection) Lesson(id int64) (*Lesson, bool) {
	l, ok := s.lessons[id]
	return l, ok
}

// Quizzes returns all quizzes, soft-deleted included, ordered by id.
func (s *CourseSection) Quizzes() []*Quiz {
	out := make([]*Quiz, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Quiz looks a quiz up by id.
func (s *CourseSection) Quiz(id int64) (*Quiz, bool) {
	q, ok := s.quizzes[id]
	return q, ok
}

// ══════════════════════════════════════════════════════════════════════════════
// LESSONS
// ══════════════════════════════════════════════════════════════════════════════

func (s *CourseSection) nextLessonIndex() int {
	highest := 0
	for _, l := range s.lessons {
		if l.orderIndex > highest {
			highest = l.orderIndex
		}
	}
	return highest + 1
}

// checkLessonConflicts rejects a duplicate title or non-empty link among the other lessons.
func (s *CourseSection) checkLessonConflicts(candidate *Lesson, op string) error {
	for id, existing := range s.lessons {
		if id == candidate.id {
			continue
		}
		if existing.title == candidate.title {
			return shared.InvalidInput("section", op, fmt.Sprintf("lesson %q already exists in section", candidate.title))
		}
		if candidate.link != "" && existing.link == candidate.link {
			return shared.InvalidInput("section", op, "a lesson with the same link already exists in section")
		}
	}
	return nil
}

func (s *CourseSection) addLesson(l *Lesson) error {
	if l == nil {
		return shared.InvalidInput("section", "AddLesson", "lesson is required")
	}
	if _, exists := s.lessons[l.id]; exists {
		return shared.InvalidInput("section", "AddLesson", fmt.Sprintf("lesson %d already exists", l.id))
	}
	if err := s.checkLessonConflicts(l, "AddLesson"); err != nil {
		return err
	}
	l.orderIndex = s.nextLessonIndex()
	s.lessons[l.id] = l
	return nil
}

func (s *CourseSection) updateLesson(id int64, p UpdateLessonParams) error {
	existing, ok := s.lessons[id]
	if !ok {
		return shared.NotFound("section", "UpdateLesson", fmt.Sprintf("lesson %d not found", id))
	}
	candidate := *existing
	if err := candidate.apply(p); err != nil {
		return err
	}
	if err := s.checkLessonConflicts(&candidate, "UpdateLesson"); err != nil {
		return err
	}
	*existing = candidate
	return nil
}

func (s *CourseSection) removeLesson(id int64) error {
	if _, ok := s.lessons[id]; !ok {
		return shared.NotFound("section", "RemoveLesson", fmt.Sprintf("lesson %d not found", id))
	}
	for _, q := range s.quizzes {
		if q.afterLessonID == id {
			return shared.InvalidInput("section", "RemoveLesson",
				fmt.Sprintf("lesson %d is followed by quiz %d", id, q.id))
		}
	}
	delete(s.lessons, id)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// QUIZZES
// ══════════════════════════════════════════════════════════════════════════════

func (s *CourseSection) findQuiz(id int64, op string) (*Quiz, error) {
	q, ok := s.quizzes[id]
	if !ok {
		return nil, shared.NotFound("section", op, fmt.Sprintf("quiz %d not found", id))
	}
	return q, nil
}

// checkQuizPlacement validates title uniqueness and the lesson the quiz follows.
func (s *CourseSection) checkQuizPlacement(quizID int64, title string, afterLessonID int64, op string) error {
	if _, ok := s.lessons[afterLessonID]; !ok {
		return shared.NotFound("section", op, fmt.Sprintf("lesson %d not found", afterLessonID))
	}
	for id, existing := range s.quizzes {
		if id == quizID {
			continue
		}
		if existing.title == title {
			return shared.InvalidInput("section", op, fmt.Sprintf("quiz %q already exists in section", title))
		}
		if existing.afterLessonID == afterLessonID {
			return shared.InvalidInput("section", op,
				fmt.Sprintf("lesson %d is already followed by quiz %d", afterLessonID, existing.id))
		}
	}
	return nil
}

func (s *CourseSection) addQuiz(q *Quiz) error {
	if q == nil {
		return shared.InvalidInput("section", "AddQuiz", "quiz is required")
	}
	if q.id <= 0 {
		return shared.NewDomainError("section", "AddQuiz", shared.ErrInvalidID, "quiz id must be positive")
	}
	if err := validateQuizFields(q.title, q.afterLessonID, q.passScorePercentage); err != nil {
		return err
	}
	if q.questions == nil {
		q.questions = make(map[int64]*Question)
	}
	if _, exists := s.quizzes[q.id]; exists {
		return shared.InvalidInput("section", "AddQuiz", fmt.Sprintf("quiz %d already exists", q.id))
	}
	if err := s.checkQuizPlacement(q.id, q.title, q.afterLessonID, "AddQuiz"); err != nil {
		return err
	}
	s.quizzes[q.id] = q
	return nil
}

func (s *CourseSection) updateQuiz(id int64, p UpdateQuizParams) error {
	q, err := s.findQuiz(id, "UpdateQuiz")
	if err != nil {
		return err
	}
	if err := validateQuizFields(p.Title, p.AfterLessonID, p.PassScorePercentage); err != nil {
		return err
	}
	if err := s.checkQuizPlacement(id, strings.TrimSpace(p.Title), p.AfterLessonID, "UpdateQuiz"); err != nil {
		return err
	}
	return q.update(p)
}

func (s *CourseSection) deleteQuiz(id int64) error {
	q, err := s.findQuiz(id, "DeleteQuiz")
	if err != nil {
		return err
	}
	return q.delete()
}

func (s *CourseSection) restoreQuiz(id int64) error {
	q, err := s.findQuiz(id, "RestoreQuiz")
	if err != nil {
		return err
	}
	return q.restore()
}

// deleteForceQuiz drops a soft-deleted quiz from the section.
func (s *CourseSection) deleteForceQuiz(id int64) error {
	q, err := s.findQuiz(id, "DeleteForceQuiz")
	if err != nil {
		return err
	}
	if !q.deleted {
		return shared.InvalidInput("section", "DeleteForceQuiz", "quiz must be deleted before it can be removed")
	}
	delete(s.quizzes, id)
	return nil
}

// editableQuiz returns an active quiz for question edits.
func (s *CourseSection) editableQuiz(id int64, op string) (*Quiz, error) {
	q, err := s.findQuiz(id, op)
	if err != nil {
		return nil, err
	}
	if q.deleted {
		return nil, shared.InvalidInput("section", op, fmt.Sprintf("quiz %d is deleted", id))
	}
	return q, nil
}

func (s *CourseSection) addQuestion(quizID int64, question *Question) error {
	q, err := s.editableQuiz(quizID, "AddQuestion")
	if err != nil {
		return err
	}
	return q.addQuestion(question)
}

func (s *CourseSection) updateQuestion(quizID, questionID int64, p UpdateQuestionParams) error {
	q, err := s.editableQuiz(quizID, "UpdateQuestion")
	if err != nil {
		return err
	}
	return q.updateQuestion(questionID, p)
}

func (s *CourseSection) deleteQuestion(quizID, questionID int64) error {
	q, err := s.editableQuiz(quizID, "DeleteQuestion")
	if err != nil {
		return err
	}
	return q.deleteQuestion(questionID)
}

func (s *CourseSection) rename(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return shared.InvalidInput("section", "Update", "section title cannot be blank")
	}
	s.title = title
	return nil
}
