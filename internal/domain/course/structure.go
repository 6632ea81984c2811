package course

import (
	"fmt"
	"strings"

	"github.com/alem-hub/course-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SECTIONS
// ══════════════════════════════════════════════════════════════════════════════

func (c *Course) nextSectionIndex() int {
	highest := 0
	for _, s := range c.sections {
		if s.orderIndex > highest {
			highest = s.orderIndex
		}
	}
	return highest + 1
}

func (c *Course) hasSectionTitle(title string, except int64) bool {
	for id, s := range c.sections {
		if id != except && s.title == title {
			return true
		}
	}
	return false
}

// checkConflictBetweenUnpublishedAndPublishedForSection rejects edits of sections that were
// already approved when the course went back into unpublished mode.
func (c *Course) checkConflictBetweenUnpublishedAndPublishedForSection(s *CourseSection, op string) error {
	if c.isInUnpublishedMode() && s.published {
		return shared.InvalidInput("course", op,
			fmt.Sprintf("section %d belongs to the published version of the course and cannot be changed", s.id))
	}
	return nil
}

// sectionForEdit runs the guards shared by every structural change inside a section.
func (c *Course) sectionForEdit(sectionID int64, op, action string) (*CourseSection, error) {
	if err := c.checkEditable(op, action); err != nil {
		return nil, err
	}
	s, ok := c.sections[sectionID]
	if !ok {
		return nil, shared.NotFound("course", op, fmt.Sprintf("section %d not found", sectionID))
	}
	if err := c.checkConflictBetweenUnpublishedAndPublishedForSection(s, op); err != nil {
		return nil, err
	}
	return s, nil
}

// AddSection appends a bare section. Its order index follows the highest existing one.
func (c *Course) AddSection(s *CourseSection) error {
	const op = "AddSection"
	if err := c.checkEditable(op, "add a section"); err != nil {
		return err
	}
	if s == nil {
		return shared.InvalidInput("course", op, "section is required")
	}
	if s.HasLessons() || len(s.quizzes) > 0 {
		return shared.InvalidInput("course", op, "section must be added without lessons")
	}
	if _, exists := c.sections[s.id]; exists {
		return shared.InvalidInput("course", op, fmt.Sprintf("section %d already exists", s.id))
	}
	if c.hasSectionTitle(s.title, 0) {
		return shared.InvalidInput("course", op, fmt.Sprintf("section %q already exists", s.title))
	}

	s.orderIndex = c.nextSectionIndex()
	if c.isInUnpublishedMode() {
		s.published = false
	}
	c.sections[s.id] = s
	return nil
}

// UpdateSection renames a section.
func (c *Course) UpdateSection(sectionID int64, title string) error {
	const op = "UpdateSection"
	s, err := c.sectionForEdit(sectionID, op, "update a section")
	if err != nil {
		return err
	}
	if c.hasSectionTitle(strings.TrimSpace(title), sectionID) {
		return shared.InvalidInput("course", op, fmt.Sprintf("section %q already exists", strings.TrimSpace(title)))
	}
	return s.rename(title)
}

// RemoveSection drops a section with everything it owns. Other order indexes stay as they are.
func (c *Course) RemoveSection(sectionID int64) error {
	if _, err := c.sectionForEdit(sectionID, "RemoveSection", "remove a section"); err != nil {
		return err
	}
	delete(c.sections, sectionID)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LESSONS
// ══════════════════════════════════════════════════════════════════════════════

// AddLessonToSection appends a lesson to a section.
func (c *Course) AddLessonToSection(sectionID int64, l *Lesson) error {
	s, err := c.sectionForEdit(sectionID, "AddLessonToSection", "add a lesson")
	if err != nil {
		return err
	}
	return s.addLesson(l)
}

// UpdateLessonInSection edits a lesson in place.
func (c *Course) UpdateLessonInSection(sectionID, lessonID int64, p UpdateLessonParams) error {
	s, err := c.sectionForEdit(sectionID, "UpdateLessonInSection", "update a lesson")
	if err != nil {
		return err
	}
	return s.updateLesson(lessonID, p)
}

// RemoveLessonFromSection drops a lesson that no quiz follows.
func (c *Course) RemoveLessonFromSection(sectionID, lessonID int64) error {
	s, err := c.sectionForEdit(sectionID, "RemoveLessonFromSection", "remove a lesson")
	if err != nil {
		return err
	}
	return s.removeLesson(lessonID)
}

// ══════════════════════════════════════════════════════════════════════════════
// QUIZZES
// ══════════════════════════════════════════════════════════════════════════════

// AddQuizToSection places a quiz after an existing lesson of the section.
func (c *Course) AddQuizToSection(sectionID int64, q *Quiz) error {
	const op = "AddQuizToSection"
	s, err := c.sectionForEdit(sectionID, op, "add a quiz")
	if err != nil {
		return err
	}
	if q != nil {
		for _, other := range c.sections {
			if _, exists := other.quizzes[q.id]; exists {
				return shared.InvalidInput("course", op, fmt.Sprintf("quiz %d already exists", q.id))
			}
		}
		for _, question := range q.questions {
			if err := c.checkQuestionOwnership(op, q.id, question); err != nil {
				return err
			}
		}
	}
	return s.addQuiz(q)
}

// UpdateQuizInSection edits quiz settings.
func (c *Course) UpdateQuizInSection(sectionID, quizID int64, p UpdateQuizParams) error {
	s, err := c.sectionForEdit(sectionID, "UpdateQuizInSection", "update a quiz")
	if err != nil {
		return err
	}
	return s.updateQuiz(quizID, p)
}

// DeleteQuizInSection soft-deletes a quiz.
func (c *Course) DeleteQuizInSection(sectionID, quizID int64) error {
	s, err := c.sectionForEdit(sectionID, "DeleteQuizInSection", "delete a quiz")
	if err != nil {
		return err
	}
	return s.deleteQuiz(quizID)
}

// RestoreQuizInSection undoes DeleteQuizInSection.
func (c *Course) RestoreQuizInSection(sectionID, quizID int64) error {
	s, err := c.sectionForEdit(sectionID, "RestoreQuizInSection", "restore a quiz")
	if err != nil {
		return err
	}
	return s.restoreQuiz(quizID)
}

// DeleteForceQuizInSection removes a soft-deleted quiz for good.
func (c *Course) DeleteForceQuizInSection(sectionID, quizID int64) error {
	s, err := c.sectionForEdit(sectionID, "DeleteForceQuizInSection", "delete a quiz")
	if err != nil {
		return err
	}
	return s.deleteForceQuiz(quizID)
}

// ══════════════════════════════════════════════════════════════════════════════
// QUESTIONS
// ══════════════════════════════════════════════════════════════════════════════

// checkQuestionOwnership rejects a question whose id or option ids already
// belong to a question of another quiz. Soft-deleted quizzes count.
func (c *Course) checkQuestionOwnership(op string, quizID int64, q *Question) error {
	if q == nil {
		return nil
	}
	for _, s := range c.sections {
		for id, other := range s.quizzes {
			if id == quizID {
				continue
			}
			for _, existing := range other.questions {
				if err := existing.conflictWith(q, op); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// AddQuestionToQuiz adds a question to an active quiz.
func (c *Course) AddQuestionToQuiz(sectionID, quizID int64, q *Question) error {
	const op = "AddQuestionToQuiz"
	s, err := c.sectionForEdit(sectionID, op, "add a question")
	if err != nil {
		return err
	}
	if err := c.checkQuestionOwnership(op, quizID, q); err != nil {
		return err
	}
	return s.addQuestion(quizID, q)
}

// UpdateQuestionInQuiz replaces a question's content, type, score and options.
func (c *Course) UpdateQuestionInQuiz(sectionID, quizID, questionID int64, p UpdateQuestionParams) error {
	const op = "UpdateQuestionInQuiz"
	s, err := c.sectionForEdit(sectionID, op, "update a question")
	if err != nil {
		return err
	}
	if err := c.checkQuestionOwnership(op, quizID, &Question{id: questionID, options: p.Options}); err != nil {
		return err
	}
	return s.updateQuestion(quizID, questionID, p)
}

// DeleteQuestionFromQuiz removes a question from an active quiz.
func (c *Course) DeleteQuestionFromQuiz(sectionID, quizID, questionID int64) error {
	s, err := c.sectionForEdit(sectionID, "DeleteQuestionFromQuiz", "delete a question")
	if err != nil {
		return err
	}
	return s.deleteQuestion(quizID, questionID)
}
