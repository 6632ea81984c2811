package course

import (
	"time"

	"github.com/alem-hub/course-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOTS
// Plain-data copies of the aggregate used by repositories to store and load it.
// ══════════════════════════════════════════════════════════════════════════════

// CourseSnapshot is the full persisted state of a course.
type CourseSnapshot struct {
	ID              int64             `json:"id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	ThumbnailURL    string            `json:"thumbnail_url"`
	Language        shared.Language   `json:"language"`
	Subtitles       []shared.Language `json:"subtitles"`
	Benefits        []string          `json:"benefits"`
	Prerequisites   []string          `json:"prerequisites"`
	PriceAmount     *int64            `json:"price_amount,omitempty"`
	PriceCurrency   string            `json:"price_currency,omitempty"`
	Teacher         string            `json:"teacher"`
	ApprovedBy      string            `json:"approved_by"`
	Published       bool              `json:"published"`
	Unpublished     bool              `json:"unpublished"`
	PublishedDate   *time.Time        `json:"published_date,omitempty"`
	UnpublishedDate *time.Time        `json:"unpublished_date,omitempty"`
	Deleted         bool              `json:"deleted"`
	Version         int64             `json:"version"`
	CreatedBy       string            `json:"created_by"`
	CreatedAt       time.Time         `json:"created_at"`
	LastModifiedBy  string            `json:"last_modified_by"`
	LastModifiedAt  time.Time         `json:"last_modified_at"`
	Sections        []SectionSnapshot `json:"sections"`
	Requests        []RequestSnapshot `json:"requests"`
	Reviews         []ReviewSnapshot  `json:"reviews"`
}

type SectionSnapshot struct {
	ID         int64            `json:"id"`
	Title      string           `json:"title"`
	OrderIndex int              `json:"order_index"`
	Published  bool             `json:"published"`
	Lessons    []LessonSnapshot `json:"lessons"`
	Quizzes    []QuizSnapshot   `json:"quizzes"`
}

type LessonSnapshot struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	Type       LessonType `json:"type"`
	Link       string     `json:"link,omitempty"`
	QuizID     int64      `json:"quiz_id,omitempty"`
	OrderIndex int        `json:"order_index"`
}

type QuizSnapshot struct {
	ID                  int64              `json:"id"`
	Title               string             `json:"title"`
	Description         string             `json:"description"`
	AfterLessonID       int64              `json:"after_lesson_id"`
	TotalScore          int                `json:"total_score"`
	PassScorePercentage int                `json:"pass_score_percentage"`
	Deleted             bool               `json:"deleted"`
	Questions           []QuestionSnapshot `json:"questions"`
}

type QuestionSnapshot struct {
	ID      int64            `json:"id"`
	Content string           `json:"content"`
	Type    QuestionType     `json:"type"`
	Score   int              `json:"score"`
	Options []OptionSnapshot `json:"options"`
}

type OptionSnapshot struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
	Correct bool   `json:"correct"`
}

type RequestSnapshot struct {
	ID             int64         `json:"id"`
	Type           RequestType   `json:"type"`
	Message        string        `json:"message"`
	RequestedBy    string        `json:"requested_by"`
	Status         RequestStatus `json:"status"`
	Resolved       bool          `json:"resolved"`
	ResolvedBy     string        `json:"resolved_by,omitempty"`
	ResolveDate    *time.Time    `json:"resolve_date,omitempty"`
	RejectReason   string        `json:"reject_reason,omitempty"`
	ApproveMessage string        `json:"approve_message,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

type ReviewSnapshot struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Rating    int       `json:"rating"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot copies the aggregate into plain data. Pending events are not part of it.
func (c *Course) Snapshot() CourseSnapshot {
	s := CourseSnapshot{
		ID:              c.id,
		Title:           c.title,
		Description:     c.description,
		ThumbnailURL:    c.thumbnailURL,
		Language:        c.language,
		Subtitles:       c.Subtitles(),
		Benefits:        c.Benefits(),
		Prerequisites:   c.Prerequisites(),
		Teacher:         c.teacher,
		ApprovedBy:      c.approvedBy,
		Published:       c.published,
		Unpublished:     c.unpublished,
		PublishedDate:   copyTime(c.publishedDate),
		UnpublishedDate: copyTime(c.unpublishedDate),
		Deleted:         c.deleted,
		Version:         c.version,
		CreatedBy:       c.createdBy,
		CreatedAt:       c.createdAt,
		LastModifiedBy:  c.lastModifiedBy,
		LastModifiedAt:  c.lastModifiedAt,
	}
	if c.price != nil {
		amount := c.price.Amount()
		s.PriceAmount = &amount
		s.PriceCurrency = c.price.Currency()
	}

	for _, sec := range c.Sections() {
		ss := SectionSnapshot{ID: sec.id, Title: sec.title, OrderIndex: sec.orderIndex, Published: sec.published}
		for _, l := range sec.Lessons() {
			ss.Lessons = append(ss.Lessons, LessonSnapshot{
				ID: l.id, Title: l.title, Type: l.ltype, Link: l.link, QuizID: l.quizID, OrderIndex: l.orderIndex,
			})
		}
		for _, q := range sec.Quizzes() {
			qs := QuizSnapshot{
				ID:                  q.id,
				Title:               q.title,
				Description:         q.description,
				AfterLessonID:       q.afterLessonID,
				TotalScore:          q.totalScore,
				PassScorePercentage: q.passScorePercentage,
				Deleted:             q.deleted,
			}
			for _, question := range q.Questions() {
				qq := QuestionSnapshot{ID: question.id, Content: question.content, Type: question.qtype, Score: question.score}
				for _, o := range question.options {
					qq.Options = append(qq.Options, OptionSnapshot{ID: o.id, Content: o.content, Correct: o.correct})
				}
				qs.Questions = append(qs.Questions, qq)
			}
			ss.Quizzes = append(ss.Quizzes, qs)
		}
		s.Sections = append(s.Sections, ss)
	}

	for _, r := range c.Requests() {
		s.Requests = append(s.Requests, RequestSnapshot{
			ID:             r.id,
			Type:           r.rtype,
			Message:        r.message,
			RequestedBy:    r.requestedBy,
			Status:         r.status,
			Resolved:       r.resolved,
			ResolvedBy:     r.resolvedBy,
			ResolveDate:    copyTime(r.resolveDate),
			RejectReason:   r.rejectReason,
			ApproveMessage: r.approveMessage,
			CreatedAt:      r.createdAt,
		})
	}
	for _, r := range c.Reviews() {
		s.Reviews = append(s.Reviews, ReviewSnapshot{
			ID: r.id, Username: r.username, Rating: r.rating, Content: r.content, CreatedAt: r.createdAt,
		})
	}
	return s
}

// Rehydrate rebuilds a course from stored data. Stored state is trusted;
// only the price currency is checked because Money cannot be built without it.
// The quiz totalScore is recomputed from the questions.
func Rehydrate(s CourseSnapshot) (*Course, error) {
	c := &Course{
		id:              s.ID,
		title:           s.Title,
		description:     s.Description,
		thumbnailURL:    s.ThumbnailURL,
		language:        s.Language,
		subtitles:       append([]shared.Language(nil), s.Subtitles...),
		benefits:        append([]string(nil), s.Benefits...),
		prerequisites:   append([]string(nil), s.Prerequisites...),
		teacher:         s.Teacher,
		approvedBy:      s.ApprovedBy,
		published:       s.Published,
		unpublished:     s.Unpublished,
		publishedDate:   copyTime(s.PublishedDate),
		unpublishedDate: copyTime(s.UnpublishedDate),
		deleted:         s.Deleted,
		version:         s.Version,
		createdBy:       s.CreatedBy,
		createdAt:       s.CreatedAt,
		lastModifiedBy:  s.LastModifiedBy,
		lastModifiedAt:  s.LastModifiedAt,
		sections:        make(map[int64]*CourseSection, len(s.Sections)),
		requests:        make(map[int64]*CourseRequest, len(s.Requests)),
		reviews:         make(map[int64]*Review, len(s.Reviews)),
	}
	if s.PriceAmount != nil {
		price, err := shared.NewMoney(*s.PriceAmount, s.PriceCurrency)
		if err != nil {
			return nil, err
		}
		c.price = &price
	}

	for _, ss := range s.Sections {
		sec := &CourseSection{
			id:         ss.ID,
			title:      ss.Title,
			orderIndex: ss.OrderIndex,
			published:  ss.Published,
			lessons:    make(map[int64]*Lesson, len(ss.Lessons)),
			quizzes:    make(map[int64]*Quiz, len(ss.Quizzes)),
		}
		for _, l := range ss.Lessons {
			sec.lessons[l.ID] = &Lesson{
				id: l.ID, title: l.Title, ltype: l.Type, link: l.Link, quizID: l.QuizID, orderIndex: l.OrderIndex,
			}
		}
		for _, qs := range ss.Quizzes {
			q := &Quiz{
				id:                  qs.ID,
				title:               qs.Title,
				description:         qs.Description,
				afterLessonID:       qs.AfterLessonID,
				passScorePercentage: qs.PassScorePercentage,
				deleted:             qs.Deleted,
				questions:           make(map[int64]*Question, len(qs.Questions)),
			}
			for _, qq := range qs.Questions {
				question := &Question{id: qq.ID, content: qq.Content, qtype: qq.Type, score: qq.Score}
				for _, o := range qq.Options {
					question.options = append(question.options, AnswerOption{id: o.ID, content: o.Content, correct: o.Correct})
				}
				q.questions[qq.ID] = question
				q.totalScore += qq.Score
			}
			sec.quizzes[qs.ID] = q
		}
		c.sections[ss.ID] = sec
	}

	for _, r := range s.Requests {
		c.requests[r.ID] = &CourseRequest{
			id:             r.ID,
			rtype:          r.Type,
			message:        r.Message,
			requestedBy:    r.RequestedBy,
			status:         r.Status,
			resolved:       r.Resolved,
			resolvedBy:     r.ResolvedBy,
			resolveDate:    copyTime(r.ResolveDate),
			rejectReason:   r.RejectReason,
			approveMessage: r.ApproveMessage,
			createdAt:      r.CreatedAt,
		}
	}
	for _, r := range s.Reviews {
		c.reviews[r.ID] = &Review{id: r.ID, username: r.Username, rating: r.Rating, content: r.Content, createdAt: r.CreatedAt}
	}
	return c, nil
}

// SetVersion is used by repositories after a successful save.
func (c *Course) SetVersion(v int64) { c.version = v }

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
