// Package catalog reads course catalog documents (YAML) and turns them into
// import commands. Documents are checked against an embedded JSON schema
// before they are decoded.
package catalog

import (
	"fmt"
	"strings"

	"github.com/alem-hub/course-hub/internal/application/command"
	"github.com/alem-hub/course-hub/internal/domain/course"
	"github.com/alem-hub/course-hub/internal/domain/shared"
)

// Document is one course in the catalog.
type Document struct {
	Title         string    `yaml:"title"`
	Description   string    `yaml:"description"`
	ThumbnailURL  string    `yaml:"thumbnail_url"`
	Language      string    `yaml:"language"`
	Subtitles     []string  `yaml:"subtitles"`
	Benefits      []string  `yaml:"benefits"`
	Prerequisites []string  `yaml:"prerequisites"`
	Teacher       string    `yaml:"teacher"`
	CreatedBy     string    `yaml:"created_by"`
	Price         *Price    `yaml:"price"`
	Sections      []Section `yaml:"sections"`
}

// Price is a decimal amount. Numbers are read as written, so 19.90 keeps
// its two decimals.
type Price struct {
	Amount   string `yaml:"amount"`
	Currency string `yaml:"currency"`
}

type Section struct {
	Title   string   `yaml:"title"`
	Lessons []Lesson `yaml:"lessons"`
	Quizzes []Quiz   `yaml:"quizzes"`
}

type Lesson struct {
	Title string `yaml:"title"`
	Type  string `yaml:"type"`
	Link  string `yaml:"link"`
}

type Quiz struct {
	Title               string     `yaml:"title"`
	Description         string     `yaml:"description"`
	AfterLesson         string     `yaml:"after_lesson"`
	PassScorePercentage int        `yaml:"pass_score_percentage"`
	Questions           []Question `yaml:"questions"`
}

type Question struct {
	Content string   `yaml:"content"`
	Type    string   `yaml:"type"`
	Score   int      `yaml:"score"`
	Options []Option `yaml:"options"`
}

type Option struct {
	Content string `yaml:"content"`
	Correct bool   `yaml:"correct"`
}

// ToCommand maps the document onto an import command. source names the
// document in logs.
func (d Document) ToCommand(source string) (command.ImportCourseCommand, error) {
	lang, err := shared.ParseLanguage(d.Language)
	if err != nil {
		return command.ImportCourseCommand{}, fmt.Errorf("%s: language: %w", source, err)
	}
	subtitles := make([]shared.Language, 0, len(d.Subtitles))
	for _, s := range d.Subtitles {
		l, err := shared.ParseLanguage(s)
		if err != nil {
			return command.ImportCourseCommand{}, fmt.Errorf("%s: subtitle: %w", source, err)
		}
		subtitles = append(subtitles, l)
	}

	cmd := command.ImportCourseCommand{
		Course: command.CreateCourseCommand{
			Title:         strings.TrimSpace(d.Title),
			Description:   d.Description,
			ThumbnailURL:  d.ThumbnailURL,
			Language:      lang,
			Subtitles:     subtitles,
			Benefits:      d.Benefits,
			Prerequisites: d.Prerequisites,
			Teacher:       d.Teacher,
			CreatedBy:     d.CreatedBy,
		},
		Source: source,
	}
	if d.Price != nil {
		cmd.Price = &command.PriceInput{
			Amount:   strings.TrimSpace(d.Price.Amount),
			Currency: strings.ToUpper(d.Price.Currency),
		}
	}

	for _, s := range d.Sections {
		sec := command.ImportSection{Title: s.Title}
		for _, l := range s.Lessons {
			sec.Lessons = append(sec.Lessons, command.LessonInput{
				Title: l.Title,
				Type:  course.LessonType(strings.ToUpper(l.Type)),
				Link:  l.Link,
			})
		}
		for _, q := range s.Quizzes {
			quiz := command.ImportQuiz{
				Title:               q.Title,
				Description:         q.Description,
				AfterLesson:         q.AfterLesson,
				PassScorePercentage: q.PassScorePercentage,
			}
			for _, question := range q.Questions {
				in := command.QuestionInput{
					Content: question.Content,
					Type:    course.QuestionType(strings.ToUpper(question.Type)),
					Score:   question.Score,
				}
				for _, o := range question.Options {
					in.Options = append(in.Options, command.OptionInput{Content: o.Content, Correct: o.Correct})
				}
				quiz.Questions = append(quiz.Questions, in)
			}
			sec.Quizzes = append(sec.Quizzes, quiz)
		}
		cmd.Sections = append(cmd.Sections, sec)
	}
	return cmd, nil
}
