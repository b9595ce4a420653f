package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ozgesheedu/ozgeshe/core"
	"github.com/ozgesheedu/ozgeshe/core/catalog"
	"github.com/ozgesheedu/ozgeshe/core/user"
)

const (
	foreignKeyViolation = "23503"

	courseSelect = `SELECT c.id, c.title, c.description, c.level, c.subject, c.price, c.is_published,
		c.created_by_id, c.group_id, c.created_at, c.updated_at,
		u.name AS owner_name, u.role AS owner_role,
		g.name AS group_name, g.subject AS group_subject, g.description AS group_description,
		(SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id) AS enrollment_count
	FROM courses c
	JOIN users u ON u.id = c.created_by_id
	LEFT JOIN course_groups g ON g.id = c.group_id`

	lessonColumns = `id, course_id, order_index, title, description, video_url, homework_text, attachment_url, created_at, updated_at`

	groupSelect = `SELECT g.id, g.name, g.description, g.subject, g.created_at,
		(SELECT COUNT(*) FROM courses c WHERE c.group_id = g.id) AS course_count
	FROM course_groups g`
)

type courseRow struct {
	ID               string      `db:"id"`
	Title            string      `db:"title"`
	Description      string      `db:"description"`
	Level            string      `db:"level"`
	Subject          string      `db:"subject"`
	Price            core.Money  `db:"price"`
	IsPublished      bool        `db:"is_published"`
	CreatedByID      string      `db:"created_by_id"`
	GroupID          null.String `db:"group_id"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
	OwnerName        string      `db:"owner_name"`
	OwnerRole        string      `db:"owner_role"`
	GroupName        null.String `db:"group_name"`
	GroupSubject     null.String `db:"group_subject"`
	GroupDescription null.String `db:"group_description"`
	EnrollmentCount  int         `db:"enrollment_count"`
}

func (r courseRow) toCourse() catalog.Course {
	c := catalog.Course{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Level:           core.Level(r.Level),
		Subject:         core.Subject(r.Subject),
		Price:           r.Price,
		IsPublished:     r.IsPublished,
		CreatedBy:       catalog.Owner{ID: r.CreatedByID, Name: r.OwnerName, Role: user.Role(r.OwnerRole)},
		GroupID:         r.GroupID,
		EnrollmentCount: r.EnrollmentCount,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
	if r.GroupID.Valid {
		c.Group = &catalog.GroupSummary{
			ID:          r.GroupID.String,
			Name:        r.GroupName.String,
			Subject:     core.Subject(r.GroupSubject.String),
			Description: r.GroupDescription,
		}
	}
	return c
}

type lessonRow struct {
	ID            string      `db:"id"`
	CourseID      string      `db:"course_id"`
	OrderIndex    int         `db:"order_index"`
	Title         string      `db:"title"`
	Description   string      `db:"description"`
	VideoURL      string      `db:"video_url"`
	HomeworkText  string      `db:"homework_text"`
	AttachmentURL null.String `db:"attachment_url"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

func (r lessonRow) toLesson() catalog.Lesson {
	return catalog.Lesson{
		ID:            r.ID,
		CourseID:      r.CourseID,
		OrderIndex:    r.OrderIndex,
		Title:         r.Title,
		Description:   r.Description,
		VideoURL:      r.VideoURL,
		HomeworkText:  r.HomeworkText,
		AttachmentURL: r.AttachmentURL,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type groupRow struct {
	ID          string      `db:"id"`
	Name        string      `db:"name"`
	Description null.String `db:"description"`
	Subject     string      `db:"subject"`
	CreatedAt   time.Time   `db:"created_at"`
	CourseCount int         `db:"course_count"`
}

func (r groupRow) toGroup() catalog.CourseGroup {
	return catalog.CourseGroup{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Subject:     core.Subject(r.Subject),
		CourseCount: r.CourseCount,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

type catalogRepository struct {
	db core.DB
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db core.DB) catalog.Repository {
	return &catalogRepository{db: db}
}

func (repo *catalogRepository) CreateCourse(ctx context.Context, course catalog.Course) (catalog.Course, error) {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO courses (id, title, description, level, subject, price, is_published, created_by_id, group_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		course.ID, course.Title, course.Description, course.Level, course.Subject, course.Price, course.IsPublished,
		course.CreatedBy.ID, course.GroupID, course.CreatedAt.UTC(), course.UpdatedAt.UTC())
	if err != nil {
		return catalog.Course{}, errors.Wrap(err, "inserting course")
	}
	return repo.GetCourse(ctx, course.ID)
}

func (repo *catalogRepository) GetCourse(ctx context.Context, id string) (catalog.Course, error) {
	if !validID(id) {
		return catalog.Course{}, catalog.ErrCourseNotFound
	}
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, courseSelect+` WHERE c.id = $1`, id); err != nil {
		return catalog.Course{}, trapNoRowsErr(err, catalog.ErrCourseNotFound, "finding course")
	}
	return row.toCourse(), nil
}

func (repo *catalogRepository) QueryCourses(ctx context.Context, filter catalog.CourseFilter) ([]catalog.Course, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.PublishedOnly {
		where = append(where, "c.is_published")
	}
	if filter.OwnerID != "" {
		where = append(where, "c.created_by_id = "+arg(filter.OwnerID))
	}
	if filter.Subject != "" {
		where = append(where, "c.subject = "+arg(filter.Subject))
	}
	if filter.Level != "" {
		where = append(where, "c.level = "+arg(filter.Level))
	}
	if filter.GroupID != "" {
		if !validID(filter.GroupID) {
			return []catalog.Course{}, nil
		}
		where = append(where, "c.group_id = "+arg(filter.GroupID))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where = append(where, fmt.Sprintf("(c.title ILIKE %s OR c.description ILIKE %s)", p, p))
	}

	query := courseSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY c.created_at DESC"

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]catalog.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.toCourse())
	}
	return courses, nil
}

func (repo *catalogRepository) UpdateCourse(ctx context.Context, course catalog.Course) (catalog.Course, error) {
	err := exec(ctx, repo.db, catalog.ErrCourseNotFound, "updating course",
		`UPDATE courses SET title = $2, description = $3, level = $4, price = $5, is_published = $6, updated_at = $7
		WHERE id = $1`,
		course.ID, course.Title, course.Description, course.Level, course.Price, course.IsPublished, course.UpdatedAt.UTC())
	if err != nil {
		return catalog.Course{}, err
	}
	return repo.GetCourse(ctx, course.ID)
}

func (repo *catalogRepository) DeleteCourse(ctx context.Context, id string) error {
	if !validID(id) {
		return catalog.ErrCourseNotFound
	}
	// lessons, enrollments, progress and slots go with it (ON DELETE CASCADE)
	return exec(ctx, repo.db, catalog.ErrCourseNotFound, "deleting course", `DELETE FROM courses WHERE id = $1`, id)
}

func (repo *catalogRepository) ListLessons(ctx context.Context, courseIDs ...string) ([]catalog.Lesson, error) {
	ids := validIDs(courseIDs)
	if len(ids) == 0 {
		return []catalog.Lesson{}, nil
	}
	var rows []lessonRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT `+lessonColumns+` FROM lessons WHERE course_id = ANY($1) ORDER BY course_id, order_index`,
		pq.StringArray(ids))
	if err != nil {
		return nil, errors.Wrap(err, "listing lessons")
	}
	lessons := make([]catalog.Lesson, 0, len(rows))
	for _, r := range rows {
		lessons = append(lessons, r.toLesson())
	}
	return lessons, nil
}

func (repo *catalogRepository) GetLesson(ctx context.Context, id string) (catalog.Lesson, error) {
	return getLesson(ctx, repo.db, id, "")
}

// getLesson finds a lesson, restricted to courseID when it is not empty.
func getLesson(ctx context.Context, db core.DBExecutor, id, courseID string) (catalog.Lesson, error) {
	if !validID(id) {
		return catalog.Lesson{}, catalog.ErrLessonNotFound
	}
	var row lessonRow
	err := db.GetContext(ctx, &row,
		`SELECT `+lessonColumns+` FROM lessons WHERE id = $1 AND ($2 = '' OR course_id::text = $2)`, id, courseID)
	if err != nil {
		return catalog.Lesson{}, trapNoRowsErr(err, catalog.ErrLessonNotFound, "finding lesson")
	}
	return row.toLesson(), nil
}

// WithLessonsLocked serialises the lesson writes of a course behind a row lock on the course.
// The (course_id, order_index) unique constraint is deferred, so shifts may overlap until commit.
func (repo *catalogRepository) WithLessonsLocked(ctx context.Context, courseID string, fn func(w catalog.LessonWriter) error) error {
	if !validID(courseID) {
		return catalog.ErrCourseNotFound
	}
	return inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var id string
		if err := tx.GetContext(ctx, &id, `SELECT id FROM courses WHERE id = $1 FOR UPDATE`, courseID); err != nil {
			return trapNoRowsErr(err, catalog.ErrCourseNotFound, "locking course")
		}
		return fn(&lessonWriter{tx: tx, courseID: courseID})
	})
}

type lessonWriter struct {
	tx       *sqlx.Tx
	courseID string
}

func (w *lessonWriter) CountLessons(ctx context.Context) (int, error) {
	var n int
	err := w.tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM lessons WHERE course_id = $1`, w.courseID)
	return n, errors.Wrap(err, "counting lessons")
}

func (w *lessonWriter) GetLesson(ctx context.Context, id string) (catalog.Lesson, error) {
	return getLesson(ctx, w.tx, id, w.courseID)
}

func (w *lessonWriter) ShiftLessons(ctx context.Context, from, to, delta int) error {
	_, err := w.tx.ExecContext(ctx,
		`UPDATE lessons SET order_index = order_index + $4 WHERE course_id = $1 AND order_index BETWEEN $2 AND $3`,
		w.courseID, from, to, delta)
	return errors.Wrap(err, "shifting lessons")
}

func (w *lessonWriter) CreateLesson(ctx context.Context, lesson catalog.Lesson) (catalog.Lesson, error) {
	var row lessonRow
	err := w.tx.GetContext(ctx, &row,
		`INSERT INTO lessons (id, course_id, order_index, title, description, video_url, homework_text, attachment_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+lessonColumns,
		lesson.ID, w.courseID, lesson.OrderIndex, lesson.Title, lesson.Description, lesson.VideoURL, lesson.HomeworkText,
		lesson.AttachmentURL, lesson.CreatedAt.UTC(), lesson.UpdatedAt.UTC())
	if err != nil {
		return catalog.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return row.toLesson(), nil
}

func (w *lessonWriter) UpdateLesson(ctx context.Context, lesson catalog.Lesson) (catalog.Lesson, error) {
	var row lessonRow
	err := w.tx.GetContext(ctx, &row,
		`UPDATE lessons
		SET order_index = $3, title = $4, description = $5, video_url = $6, homework_text = $7, attachment_url = $8, updated_at = $9
		WHERE id = $1 AND course_id = $2
		RETURNING `+lessonColumns,
		lesson.ID, w.courseID, lesson.OrderIndex, lesson.Title, lesson.Description, lesson.VideoURL, lesson.HomeworkText,
		lesson.AttachmentURL, lesson.UpdatedAt.UTC())
	if err != nil {
		return catalog.Lesson{}, trapNoRowsErr(err, catalog.ErrLessonNotFound, "updating lesson")
	}
	return row.toLesson(), nil
}

func (w *lessonWriter) DeleteLesson(ctx context.Context, id string) error {
	return exec(ctx, w.tx, catalog.ErrLessonNotFound, "deleting lesson",
		`DELETE FROM lessons WHERE id = $1 AND course_id = $2`, id, w.courseID)
}

func (repo *catalogRepository) CreateGroup(ctx context.Context, group catalog.CourseGroup) (catalog.CourseGroup, error) {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO course_groups (id, name, description, subject, created_at) VALUES ($1, $2, $3, $4, $5)`,
		group.ID, group.Name, group.Description, group.Subject, group.CreatedAt.UTC())
	if err != nil {
		return catalog.CourseGroup{}, errors.Wrap(err, "inserting course group")
	}
	return repo.GetGroup(ctx, group.ID)
}

func (repo *catalogRepository) GetGroup(ctx context.Context, id string) (catalog.CourseGroup, error) {
	if !validID(id) {
		return catalog.CourseGroup{}, catalog.ErrGroupNotFound
	}
	var row groupRow
	if err := repo.db.GetContext(ctx, &row, groupSelect+` WHERE g.id = $1`, id); err != nil {
		return catalog.CourseGroup{}, trapNoRowsErr(err, catalog.ErrGroupNotFound, "finding course group")
	}
	return row.toGroup(), nil
}

func (repo *catalogRepository) QueryGroups(ctx context.Context) ([]catalog.CourseGroup, error) {
	var rows []groupRow
	if err := repo.db.SelectContext(ctx, &rows, groupSelect+` ORDER BY g.created_at DESC`); err != nil {
		return nil, errors.Wrap(err, "querying course groups")
	}
	groups := make([]catalog.CourseGroup, 0, len(rows))
	for _, r := range rows {
		groups = append(groups, r.toGroup())
	}
	return groups, nil
}

func (repo *catalogRepository) DeleteGroup(ctx context.Context, id string) error {
	if !validID(id) {
		return catalog.ErrGroupNotFound
	}
	err := exec(ctx, repo.db, catalog.ErrGroupNotFound, "deleting course group", `DELETE FROM course_groups WHERE id = $1`, id)
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == foreignKeyViolation {
		return catalog.ErrGroupNotEmpty
	}
	return err
}
