package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/course-hub/internal/domain/course"
	"github.com/alem-hub/course-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE REPOSITORY IMPLEMENTATION
// The aggregate is stored as a course row plus one table per child kind.
// Save rewrites the children of a course inside the version-checked
// transaction, so a load always sees one consistent graph.
// ══════════════════════════════════════════════════════════════════════════════

// CourseRepository implements course.Repository for PostgreSQL.
type CourseRepository struct {
	conn *Connection
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(conn *Connection) *CourseRepository {
	return &CourseRepository{conn: conn}
}

var _ course.Repository = (*CourseRepository)(nil)

// NextID implements course.Repository.
func (r *CourseRepository) NextID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.conn.QueryRow(ctx, "SELECT nextval('course_hub_id_seq')").Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to allocate id: %w", err)
	}
	return id, nil
}

// Create implements course.Repository.
func (r *CourseRepository) Create(ctx context.Context, c *course.Course) error {
	snap := c.Snapshot()
	snap.Version = 1

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		query := `
			INSERT INTO courses (
				id, title, description, thumbnail_url, language, subtitles, benefits, prerequisites,
				price_amount, price_currency, teacher, approved_by, published, unpublished,
				published_date, unpublished_date, deleted, version,
				created_by, created_at, last_modified_by, last_modified_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		`
		_, err := tx.Exec(ctx, query,
			snap.ID,
			snap.Title,
			snap.Description,
			snap.ThumbnailURL,
			string(snap.Language),
			languagesToStrings(snap.Subtitles),
			nonNil(snap.Benefits),
			nonNil(snap.Prerequisites),
			snap.PriceAmount,
			nullString(snap.PriceCurrency),
			snap.Teacher,
			snap.ApprovedBy,
			snap.Published,
			snap.Unpublished,
			snap.PublishedDate,
			snap.UnpublishedDate,
			snap.Deleted,
			snap.Version,
			snap.CreatedBy,
			snap.CreatedAt,
			snap.LastModifiedBy,
			snap.LastModifiedAt,
		)
		if err != nil {
			if IsUniqueViolation(err) {
				return shared.NewDomainError("course", "Create", shared.ErrAlreadyExists,
					fmt.Sprintf("course %d already exists", snap.ID))
			}
			return fmt.Errorf("failed to create course: %w", err)
		}
		return r.insertChildren(ctx, tx, snap)
	})
	if err != nil {
		return err
	}

	c.SetVersion(1)
	return nil
}

// GetByID implements course.Repository.
func (r *CourseRepository) GetByID(ctx context.Context, id int64) (*course.Course, error) {
	var snap course.CourseSnapshot

	err := r.conn.WithTx(ctx, ReadOnlyTxOptions(), func(tx pgx.Tx) error {
		loaded, err := r.loadCourse(ctx, tx, id)
		if err != nil {
			return err
		}
		snap = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return course.Rehydrate(snap)
}

// ExistsByTitle implements course.Repository.
func (r *CourseRepository) ExistsByTitle(ctx context.Context, title string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM courses WHERE title = $1)", title).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check course title: %w", err)
	}
	return exists, nil
}

// Save implements course.Repository.
func (r *CourseRepository) Save(ctx context.Context, c *course.Course) error {
	snap := c.Snapshot()

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		query := `
			UPDATE courses SET
				title = $3, description = $4, thumbnail_url = $5, language = $6,
				subtitles = $7, benefits = $8, prerequisites = $9,
				price_amount = $10, price_currency = $11, teacher = $12, approved_by = $13,
				published = $14, unpublished = $15, published_date = $16, unpublished_date = $17,
				deleted = $18, last_modified_by = $19, last_modified_at = $20,
				version = version + 1
			WHERE id = $1 AND version = $2
		`
		tag, err := tx.Exec(ctx, query,
			snap.ID,
			snap.Version,
			snap.Title,
			snap.Description,
			snap.ThumbnailURL,
			string(snap.Language),
			languagesToStrings(snap.Subtitles),
			nonNil(snap.Benefits),
			nonNil(snap.Prerequisites),
			snap.PriceAmount,
			nullString(snap.PriceCurrency),
			snap.Teacher,
			snap.ApprovedBy,
			snap.Published,
			snap.Unpublished,
			snap.PublishedDate,
			snap.UnpublishedDate,
			snap.Deleted,
			snap.LastModifiedBy,
			snap.LastModifiedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update course: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return r.versionConflict(ctx, tx, "Save", snap.ID, snap.Version)
		}

		for _, stmt := range []string{
			"DELETE FROM course_sections WHERE course_id = $1",
			"DELETE FROM course_requests WHERE course_id = $1",
			"DELETE FROM course_reviews WHERE course_id = $1",
		} {
			if _, err := tx.Exec(ctx, stmt, snap.ID); err != nil {
				return fmt.Errorf("failed to clear course children: %w", err)
			}
		}
		return r.insertChildren(ctx, tx, snap)
	})
	if err != nil {
		return err
	}

	c.SetVersion(snap.Version + 1)
	return nil
}

// versionConflict tells a missing course apart from a lost version race.
func (r *CourseRepository) versionConflict(ctx context.Context, tx pgx.Tx, op string, id, version int64) error {
	var stored int64
	err := tx.QueryRow(ctx, "SELECT version FROM courses WHERE id = $1", id).Scan(&stored)
	if IsNoRows(err) {
		return shared.NotFound("course", op, fmt.Sprintf("course %d not found", id))
	}
	if err != nil {
		return fmt.Errorf("failed to read course version: %w", err)
	}
	return shared.NewDomainError("course", op, shared.ErrOptimisticLock,
		fmt.Sprintf("course %d was modified concurrently (stored version %d, have %d)",
			id, stored, version))
}

// Remove implements course.Repository. Children go with the course row.
func (r *CourseRepository) Remove(ctx context.Context, c *course.Course) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "DELETE FROM courses WHERE id = $1 AND version = $2", c.ID(), c.Version())
		if err != nil {
			return fmt.Errorf("failed to remove course: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return r.versionConflict(ctx, tx, "Remove", c.ID(), c.Version())
		}
		return nil
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Writing children
// ─────────────────────────────────────────────────────────────────────────────

func (r *CourseRepository) insertChildren(ctx context.Context, tx pgx.Tx, snap course.CourseSnapshot) error {
	batch := &pgx.Batch{}

	for _, s := range snap.Sections {
		batch.Queue(`INSERT INTO course_sections (id, course_id, title, order_index, published)
			VALUES ($1, $2, $3, $4, $5)`,
			s.ID, snap.ID, s.Title, s.OrderIndex, s.Published)

		for _, l := range s.Lessons {
			batch.Queue(`INSERT INTO course_lessons (id, course_id, section_id, title, type, link, quiz_id, order_index)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				l.ID, snap.ID, s.ID, l.Title, string(l.Type), l.Link, nullID(l.QuizID), l.OrderIndex)
		}

		for _, q := range s.Quizzes {
			batch.Queue(`INSERT INTO course_quizzes (id, course_id, section_id, title, description,
					after_lesson_id, total_score, pass_score_percentage, deleted)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				q.ID, snap.ID, s.ID, q.Title, q.Description,
				q.AfterLessonID, q.TotalScore, q.PassScorePercentage, q.Deleted)

			for qi, question := range q.Questions {
				batch.Queue(`INSERT INTO quiz_questions (id, course_id, quiz_id, content, type, score, position)
					VALUES ($1, $2, $3, $4, $5, $6, $7)`,
					question.ID, snap.ID, q.ID, question.Content, string(question.Type), question.Score, qi)

				for oi, o := range question.Options {
					batch.Queue(`INSERT INTO question_options (id, course_id, question_id, content, correct, position)
						VALUES ($1, $2, $3, $4, $5, $6)`,
						o.ID, snap.ID, question.ID, o.Content, o.Correct, oi)
				}
			}
		}
	}

	for _, req := range snap.Requests {
		batch.Queue(`INSERT INTO course_requests (id, course_id, type, message, requested_by, status,
				resolved, resolved_by, resolve_date, reject_reason, approve_message, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			req.ID, snap.ID, string(req.Type), req.Message, req.RequestedBy, string(req.Status),
			req.Resolved, req.ResolvedBy, req.ResolveDate, req.RejectReason, req.ApproveMessage, req.CreatedAt)
	}

	for _, rv := range snap.Reviews {
		batch.Queue(`INSERT INTO course_reviews (id, course_id, username, rating, content, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			rv.ID, snap.ID, rv.Username, rv.Rating, rv.Content, rv.CreatedAt)
	}

	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("course", "Save", shared.ErrAlreadyExists,
				fmt.Sprintf("course %d: child id already in use", snap.ID))
		}
		return fmt.Errorf("failed to write course children: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Reading the graph
// ─────────────────────────────────────────────────────────────────────────────

func (r *CourseRepository) loadCourse(ctx context.Context, tx pgx.Tx, id int64) (course.CourseSnapshot, error) {
	var (
		snap          course.CourseSnapshot
		lang          string
		subtitles     []string
		priceCurrency *string
	)
	err := tx.QueryRow(ctx, `
		SELECT id, title, description, thumbnail_url, language, subtitles, benefits, prerequisites,
			   price_amount, price_currency, teacher, approved_by, published, unpublished,
			   published_date, unpublished_date, deleted, version,
			   created_by, created_at, last_modified_by, last_modified_at
		FROM courses
		WHERE id = $1
	`, id).Scan(
		&snap.ID,
		&snap.Title,
		&snap.Description,
		&snap.ThumbnailURL,
		&lang,
		&subtitles,
		&snap.Benefits,
		&snap.Prerequisites,
		&snap.PriceAmount,
		&priceCurrency,
		&snap.Teacher,
		&snap.ApprovedBy,
		&snap.Published,
		&snap.Unpublished,
		&snap.PublishedDate,
		&snap.UnpublishedDate,
		&snap.Deleted,
		&snap.Version,
		&snap.CreatedBy,
		&snap.CreatedAt,
		&snap.LastModifiedBy,
		&snap.LastModifiedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return snap, shared.NotFound("course", "GetByID", fmt.Sprintf("course %d not found", id))
		}
		return snap, fmt.Errorf("failed to load course: %w", err)
	}
	snap.Language = shared.Language(lang)
	for _, s := range subtitles {
		snap.Subtitles = append(snap.Subtitles, shared.Language(s))
	}
	if priceCurrency != nil {
		snap.PriceCurrency = *priceCurrency
	}

	sections, err := r.loadSections(ctx, tx, id)
	if err != nil {
		return snap, err
	}
	snap.Sections = sections

	if snap.Requests, err = r.loadRequests(ctx, tx, id); err != nil {
		return snap, err
	}
	if snap.Reviews, err = r.loadReviews(ctx, tx, id); err != nil {
		return snap, err
	}
	return snap, nil
}

func (r *CourseRepository) loadSections(ctx context.Context, tx pgx.Tx, courseID int64) ([]course.SectionSnapshot, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, title, order_index, published
		FROM course_sections WHERE course_id = $1 ORDER BY order_index, id
	`, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sections: %w", err)
	}
	sections, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (course.SectionSnapshot, error) {
		var s course.SectionSnapshot
		err := row.Scan(&s.ID, &s.Title, &s.OrderIndex, &s.Published)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan sections: %w", err)
	}

	lessons, err := r.loadLessons(ctx, tx, courseID)
	if err != nil {
		return nil, err
	}
	quizzes, err := r.loadQuizzes(ctx, tx, courseID)
	if err != nil {
		return nil, err
	}
	for i := range sections {
		sections[i].Lessons = lessons[sections[i].ID]
		sections[i].Quizzes = quizzes[sections[i].ID]
	}
	return sections, nil
}

func (r *CourseRepository) loadLessons(ctx context.Context, tx pgx.Tx, courseID int64) (map[int64][]course.LessonSnapshot, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, section_id, title, type, link, quiz_id, order_index
		FROM course_lessons WHERE course_id = $1 ORDER BY section_id, order_index, id
	`, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lessons: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]course.LessonSnapshot)
	for rows.Next() {
		var (
			l         course.LessonSnapshot
			sectionID int64
			ltype     string
			quizID    *int64
		)
		if err := rows.Scan(&l.ID, &sectionID, &l.Title, &ltype, &l.Link, &quizID, &l.OrderIndex); err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		l.Type = course.LessonType(ltype)
		if quizID != nil {
			l.QuizID = *quizID
		}
		out[sectionID] = append(out[sectionID], l)
	}
	return out, rows.Err()
}

func (r *CourseRepository) loadQuizzes(ctx context.Context, tx pgx.Tx, courseID int64) (map[int64][]course.QuizSnapshot, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, section_id, title, description, after_lesson_id, total_score, pass_score_percentage, deleted
		FROM course_quizzes WHERE course_id = $1 ORDER BY section_id, id
	`, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quizzes: %w", err)
	}

	type quizRow struct {
		sectionID int64
		quiz      course.QuizSnapshot
	}
	quizRows, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (quizRow, error) {
		var q quizRow
		err := row.Scan(&q.quiz.ID, &q.sectionID, &q.quiz.Title, &q.quiz.Description,
			&q.quiz.AfterLessonID, &q.quiz.TotalScore, &q.quiz.PassScorePercentage, &q.quiz.Deleted)
		return q, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan quizzes: %w", err)
	}

	questions, err := r.loadQuestions(ctx, tx, courseID)
	if err != nil {
		return nil, err
	}

	out := make(map[int64][]course.QuizSnapshot)
	for _, qr := range quizRows {
		qr.quiz.Questions = questions[qr.quiz.ID]
		out[qr.sectionID] = append(out[qr.sectionID], qr.quiz)
	}
	return out, nil
}

func (r *CourseRepository) loadQuestions(ctx context.Context, tx pgx.Tx, courseID int64) (map[int64][]course.QuestionSnapshot, error) {
	options, err := r.loadOptions(ctx, tx, courseID)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, quiz_id, content, type, score
		FROM quiz_questions WHERE course_id = $1 ORDER BY quiz_id, position
	`, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]course.QuestionSnapshot)
	for rows.Next() {
		var (
			q      course.QuestionSnapshot
			quizID int64
			qtype  string
		)
		if err := rows.Scan(&q.ID, &quizID, &q.Content, &qtype, &q.Score); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		q.Type = course.QuestionType(qtype)
		q.Options = options[q.ID]
		out[quizID] = append(out[quizID], q)
	}
	return out, rows.Err()
}

func (r *CourseRepository) loadOptions(ctx context.Context, tx pgx.Tx, courseID int64) (map[int64][]course.OptionSnapshot, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, question_id, content, correct
		FROM question_options WHERE course_id = $1 ORDER BY question_id, position
	`, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load options: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]course.OptionSnapshot)
	for rows.Next() {
		var (
			o          course.OptionSnapshot
			questionID int64
		)
		if err := rows.Scan(&o.ID, &questionID, &o.Content, &o.Correct); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		out[questionID] = append(out[questionID], o)
	}
	return out, rows.Err()
}

func (r *CourseRepository) loadRequests(ctx context.Context, tx pgx.Tx, courseID int64) ([]course.RequestSnapshot, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, type, message, requested_by, status, resolved, resolved_by,
			   resolve_date, reject_reason, approve_message, created_at
		FROM course_requests WHERE course_id = $1 ORDER BY created_at, id
	`, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load requests: %w", err)
	}
	requests, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (course.RequestSnapshot, error) {
		var (
			req    course.RequestSnapshot
			rtype  string
			status string
		)
		err := row.Scan(&req.ID, &rtype, &req.Message, &req.RequestedBy, &status, &req.Resolved,
			&req.ResolvedBy, &req.ResolveDate, &req.RejectReason, &req.ApproveMessage, &req.CreatedAt)
		req.Type = course.RequestType(rtype)
		req.Status = course.RequestStatus(status)
		return req, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan requests: %w", err)
	}
	return requests, nil
}

func (r *CourseRepository) loadReviews(ctx context.Context, tx pgx.Tx, courseID int64) ([]course.ReviewSnapshot, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, username, rating, content, created_at
		FROM course_reviews WHERE course_id = $1 ORDER BY created_at, id
	`, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reviews: %w", err)
	}
	reviews, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (course.ReviewSnapshot, error) {
		var rv course.ReviewSnapshot
		err := row.Scan(&rv.ID, &rv.Username, &rv.Rating, &rv.Content, &rv.CreatedAt)
		return rv, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan reviews: %w", err)
	}
	return reviews, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func languagesToStrings(langs []shared.Language) []string {
	out := make([]string, 0, len(langs))
	for _, l := range langs {
		out = append(out, string(l))
	}
	return out
}

// nonNil keeps NOT NULL array columns from receiving NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
