package course

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/alem-hub/course-hub/internal/domain/shared"
)

// LessonType describes the content a lesson points at.
type LessonType string

const (
	LessonVideo      LessonType = "VIDEO"
	LessonText       LessonType = "TEXT"
	LessonQuiz       LessonType = "QUIZ"
	LessonAssignment LessonType = "ASSIGNMENT"
)

// IsValid checks that the lesson type is known.
func (t LessonType) IsValid() bool {
	switch t {
	case LessonVideo, LessonText, LessonQuiz, LessonAssignment:
		return true
	default:
		return false
	}
}

// requiresLink reports whether lessons of this type must carry a link.
func (t LessonType) requiresLink() bool {
	return t == LessonVideo || t == LessonText
}

// Lesson is a leaf content descriptor of a section.
type Lesson struct {
	id         int64
	title      string
	ltype      LessonType
	link       string
	quizID     int64
	orderIndex int
}

// LessonParams contains the data required to create a lesson.
type LessonParams struct {
	ID     int64
	Title  string
	Type   LessonType
	Link   string
	QuizID int64
}

// UpdateLessonParams replaces the editable part of a lesson.
type UpdateLessonParams struct {
	Title  string
	Type   LessonType
	Link   string
	QuizID int64
}

// NewLesson creates a lesson. The order index is assigned when it is added to a section.
func NewLesson(p LessonParams) (*Lesson, error) {
	if p.ID <= 0 {
		return nil, shared.NewDomainError("lesson", "New", shared.ErrInvalidID, "lesson id must be positive")
	}
	l := &Lesson{id: p.ID}
	if err := l.apply(UpdateLessonParams{Title: p.Title, Type: p.Type, Link: p.Link, QuizID: p.QuizID}); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Lesson) ID() int64        { return l.id }
func (l *Lesson) Title() string    { return l.title }
func (l *Lesson) Type() LessonType { return l.ltype }
func (l *Lesson) Link() string     { return l.link }
func (l *Lesson) QuizID() int64    { return l.quizID }
func (l *Lesson) OrderIndex() int  { return l.orderIndex }

// apply validates p and then overwrites the editable fields.
func (l *Lesson) apply(p UpdateLessonParams) error {
	title := strings.TrimSpace(p.Title)
	link := strings.TrimSpace(p.Link)

	if title == "" {
		return shared.InvalidInput("lesson", "Validate", "lesson title cannot be blank")
	}
	if !p.Type.IsValid() {
		return shared.InvalidInput("lesson", "Validate", fmt.Sprintf("unknown lesson type %q", p.Type))
	}
	if p.Type.requiresLink() && link == "" {
		return shared.InvalidInput("lesson", "Validate", fmt.Sprintf("%s lesson requires a link", strings.ToLower(string(p.Type))))
	}
	if link != "" && !isHTTPURL(link) {
		return shared.InvalidInput("lesson", "Validate", "lesson link must be an http(s) URL")
	}
	if p.Type == LessonQuiz && p.QuizID <= 0 {
		return shared.InvalidInput("lesson", "Validate", "quiz lesson requires a quiz id")
	}

	l.title = title
	l.ltype = p.Type
	l.link = link
	l.quizID = p.QuizID
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
