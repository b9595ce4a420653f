package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ozgesheedu/ozgeshe/core"
	"github.com/ozgesheedu/ozgeshe/core/enrollment"
)

const (
	enrollmentColumns = `id, student_id, course_id, teacher_id, status, purchased_at`

	summarySelect = `SELECT e.id, e.student_id, e.course_id, e.teacher_id, e.status, e.purchased_at,
		c.title AS course_title, c.level AS course_level, c.subject AS course_subject,
		(SELECT COUNT(*) FROM lessons l WHERE l.course_id = e.course_id) AS total_lessons,
		(SELECT COUNT(*) FROM lesson_progress p WHERE p.enrollment_id = e.id AND p.is_completed) AS completed_lessons
	FROM enrollments e
	JOIN courses c ON c.id = e.course_id`

	progressColumns = `id, enrollment_id, lesson_id, is_completed, homework_answer, submitted_at`
)

type enrollmentRow struct {
	ID          string      `db:"id"`
	StudentID   string      `db:"student_id"`
	CourseID    string      `db:"course_id"`
	TeacherID   null.String `db:"teacher_id"`
	Status      string      `db:"status"`
	PurchasedAt time.Time   `db:"purchased_at"`
}

func (r enrollmentRow) toEnrollment() enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:          r.ID,
		StudentID:   r.StudentID,
		CourseID:    r.CourseID,
		TeacherID:   r.TeacherID,
		Status:      enrollment.Status(r.Status),
		PurchasedAt: r.PurchasedAt.UTC(),
	}
}

type summaryRow struct {
	enrollmentRow
	CourseTitle      string `db:"course_title"`
	CourseLevel      string `db:"course_level"`
	CourseSubject    string `db:"course_subject"`
	TotalLessons     int    `db:"total_lessons"`
	CompletedLessons int    `db:"completed_lessons"`
}

func (r summaryRow) course() enrollment.CourseSummary {
	return enrollment.CourseSummary{
		ID:      r.CourseID,
		Title:   r.CourseTitle,
		Level:   core.Level(r.CourseLevel),
		Subject: core.Subject(r.CourseSubject),
	}
}

func (r summaryRow) toSummary() enrollment.Summary {
	return enrollment.Summary{
		Enrollment:       r.toEnrollment(),
		Course:           r.course(),
		TotalLessons:     r.TotalLessons,
		CompletedLessons: r.CompletedLessons,
	}
}

type teacherRow struct {
	summaryRow
	StudentName  string `db:"student_name"`
	StudentEmail string `db:"student_email"`
}

type progressRow struct {
	ID             string      `db:"id"`
	EnrollmentID   string      `db:"enrollment_id"`
	LessonID       string      `db:"lesson_id"`
	IsCompleted    bool        `db:"is_completed"`
	HomeworkAnswer null.String `db:"homework_answer"`
	SubmittedAt    null.Time   `db:"submitted_at"`
}

func (r progressRow) toProgress() enrollment.Progress {
	return enrollment.Progress{
		ID:             r.ID,
		EnrollmentID:   r.EnrollmentID,
		LessonID:       r.LessonID,
		IsCompleted:    r.IsCompleted,
		HomeworkAnswer: r.HomeworkAnswer,
		SubmittedAt:    r.SubmittedAt,
	}
}

type enrollmentRepository struct {
	db core.DBExecutor
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db core.DBExecutor) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	var row enrollmentRow
	err := repo.db.GetContext(ctx, &row,
		`INSERT INTO enrollments (id, student_id, course_id, teacher_id, status, purchased_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+enrollmentColumns,
		e.ID, e.StudentID, e.CourseID, e.TeacherID, e.Status, e.PurchasedAt.UTC())
	if err != nil {
		if isUniqueViolation(err, "enrollments_student_course_key") {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return row.toEnrollment(), nil
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, studentID, courseID string) (enrollment.Enrollment, error) {
	if !validID(studentID) || !validID(courseID) {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	var row enrollmentRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE student_id = $1 AND course_id = $2`, studentID, courseID)
	if err != nil {
		return enrollment.Enrollment{}, trapNoRowsErr(err, enrollment.ErrNotFound, "finding enrollment")
	}
	return row.toEnrollment(), nil
}

func (repo *enrollmentRepository) ListStudentEnrollments(ctx context.Context, studentID string) ([]enrollment.Summary, error) {
	var rows []summaryRow
	err := repo.db.SelectContext(ctx, &rows, summarySelect+` WHERE e.student_id = $1 ORDER BY e.purchased_at DESC`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "listing enrollments")
	}
	summaries := make([]enrollment.Summary, 0, len(rows))
	for _, r := range rows {
		summaries = append(summaries, r.toSummary())
	}
	return summaries, nil
}

func (repo *enrollmentRepository) GetStudentEnrollment(ctx context.Context, studentID, id string) (enrollment.Summary, error) {
	if !validID(id) {
		return enrollment.Summary{}, enrollment.ErrNotFound
	}
	var row summaryRow
	err := repo.db.GetContext(ctx, &row, summarySelect+` WHERE e.id = $1 AND e.student_id = $2`, id, studentID)
	if err != nil {
		return enrollment.Summary{}, trapNoRowsErr(err, enrollment.ErrNotFound, "finding enrollment")
	}
	return row.toSummary(), nil
}

func (repo *enrollmentRepository) ListTeacherEnrollments(ctx context.Context, teacherID string) ([]enrollment.TeacherRow, error) {
	query := `SELECT e.id, e.student_id, e.course_id, e.teacher_id, e.status, e.purchased_at,
		c.title AS course_title, c.level AS course_level, c.subject AS course_subject,
		0 AS total_lessons, 0 AS completed_lessons,
		s.name AS student_name, s.email AS student_email
	FROM enrollments e
	JOIN courses c ON c.id = e.course_id
	JOIN users s ON s.id = e.student_id`
	var args []interface{}
	if teacherID != "" {
		query += ` WHERE e.teacher_id = $1 OR c.created_by_id = $1`
		args = append(args, teacherID)
	}
	query += ` ORDER BY e.purchased_at DESC`

	var rows []teacherRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "listing teacher enrollments")
	}
	out := make([]enrollment.TeacherRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, enrollment.TeacherRow{
			Enrollment: r.toEnrollment(),
			Student:    enrollment.PersonSummary{ID: r.StudentID, Name: r.StudentName, Email: r.StudentEmail},
			Course:     r.course(),
		})
	}
	return out, nil
}

func (repo *enrollmentRepository) UpsertProgress(ctx context.Context, p enrollment.Progress) (enrollment.Progress, error) {
	var row progressRow
	err := repo.db.GetContext(ctx, &row,
		`INSERT INTO lesson_progress (id, enrollment_id, lesson_id, is_completed, homework_answer, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT lesson_progress_enrollment_lesson_key DO UPDATE
		SET is_completed = EXCLUDED.is_completed, homework_answer = EXCLUDED.homework_answer, submitted_at = EXCLUDED.submitted_at
		RETURNING `+progressColumns,
		p.ID, p.EnrollmentID, p.LessonID, p.IsCompleted, p.HomeworkAnswer, p.SubmittedAt)
	if err != nil {
		return enrollment.Progress{}, errors.Wrap(err, "upserting progress")
	}
	return row.toProgress(), nil
}

func (repo *enrollmentRepository) ListProgress(ctx context.Context, enrollmentID string) ([]enrollment.Progress, error) {
	var rows []progressRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT `+progressColumns+` FROM lesson_progress WHERE enrollment_id = $1`, enrollmentID)
	if err != nil {
		return nil, errors.Wrap(err, "listing progress")
	}
	progress := make([]enrollment.Progress, 0, len(rows))
	for _, r := range rows {
		progress = append(progress, r.toProgress())
	}
	return progress, nil
}
