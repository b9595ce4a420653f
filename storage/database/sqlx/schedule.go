package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ozgesheedu/ozgeshe/core"
	"github.com/ozgesheedu/ozgeshe/core/schedule"
)

const slotSelect = `SELECT s.id, s.teacher_id, s.course_id, s.lesson_id, s.student_id, s.date, s.duration_minutes,
		s.description, s.online_link, s.created_at,
		c.title AS course_title, l.title AS lesson_title, st.name AS student_name, t.name AS teacher_name
	FROM schedule_slots s
	JOIN courses c ON c.id = s.course_id
	JOIN users t ON t.id = s.teacher_id
	LEFT JOIN lessons l ON l.id = s.lesson_id
	LEFT JOIN users st ON st.id = s.student_id`

type slotRow struct {
	ID              string      `db:"id"`
	TeacherID       string      `db:"teacher_id"`
	CourseID        string      `db:"course_id"`
	LessonID        null.String `db:"lesson_id"`
	StudentID       null.String `db:"student_id"`
	Date            time.Time   `db:"date"`
	DurationMinutes int         `db:"duration_minutes"`
	Description     null.String `db:"description"`
	OnlineLink      null.String `db:"online_link"`
	CreatedAt       time.Time   `db:"created_at"`
	CourseTitle     string      `db:"course_title"`
	LessonTitle     null.String `db:"lesson_title"`
	StudentName     null.String `db:"student_name"`
	TeacherName     string      `db:"teacher_name"`
}

func (r slotRow) toSlot() schedule.Slot {
	s := schedule.Slot{
		ID:              r.ID,
		TeacherID:       r.TeacherID,
		CourseID:        r.CourseID,
		LessonID:        r.LessonID,
		StudentID:       r.StudentID,
		Date:            r.Date.UTC(),
		DurationMinutes: r.DurationMinutes,
		Description:     r.Description,
		OnlineLink:      r.OnlineLink,
		CreatedAt:       r.CreatedAt.UTC(),
		Course:          &schedule.Ref{ID: r.CourseID, Name: r.CourseTitle},
		Teacher:         &schedule.Ref{ID: r.TeacherID, Name: r.TeacherName},
	}
	if r.LessonID.Valid {
		s.Lesson = &schedule.Ref{ID: r.LessonID.String, Name: r.LessonTitle.String}
	}
	if r.StudentID.Valid {
		s.Student = &schedule.Ref{ID: r.StudentID.String, Name: r.StudentName.String}
	}
	return s
}

type scheduleRepository struct {
	db core.DBExecutor
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db core.DBExecutor) schedule.Repository {
	return &scheduleRepository{db: db}
}

func (repo *scheduleRepository) selectSlots(ctx context.Context, query string, args ...interface{}) ([]schedule.Slot, error) {
	var rows []slotRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "listing slots")
	}
	slots := make([]schedule.Slot, 0, len(rows))
	for _, r := range rows {
		slots = append(slots, r.toSlot())
	}
	return slots, nil
}

func (repo *scheduleRepository) CreateSlot(ctx context.Context, slot schedule.Slot) (schedule.Slot, error) {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO schedule_slots (id, teacher_id, course_id, lesson_id, student_id, date, duration_minutes, description, online_link, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		slot.ID, slot.TeacherID, slot.CourseID, slot.LessonID, slot.StudentID, slot.Date.UTC(), slot.DurationMinutes,
		slot.Description, slot.OnlineLink, slot.CreatedAt.UTC())
	if err != nil {
		return schedule.Slot{}, errors.Wrap(err, "inserting slot")
	}
	return repo.GetSlot(ctx, slot.ID)
}

func (repo *scheduleRepository) GetSlot(ctx context.Context, id string) (schedule.Slot, error) {
	if !validID(id) {
		return schedule.Slot{}, schedule.ErrNotFound
	}
	var row slotRow
	if err := repo.db.GetContext(ctx, &row, slotSelect+` WHERE s.id = $1`, id); err != nil {
		return schedule.Slot{}, trapNoRowsErr(err, schedule.ErrNotFound, "finding slot")
	}
	return row.toSlot(), nil
}

func (repo *scheduleRepository) ListTeacherSlots(ctx context.Context, teacherID string) ([]schedule.Slot, error) {
	if teacherID == "" {
		return repo.selectSlots(ctx, slotSelect+` ORDER BY s.date`)
	}
	return repo.selectSlots(ctx, slotSelect+` WHERE s.teacher_id = $1 ORDER BY s.date`, teacherID)
}

func (repo *scheduleRepository) ListStudentSlots(ctx context.Context, studentID string, from time.Time, limit int) ([]schedule.Slot, error) {
	return repo.selectSlots(ctx, slotSelect+` WHERE s.student_id = $1 AND s.date >= $2 ORDER BY s.date LIMIT $3`,
		studentID, from.UTC(), limit)
}

func (repo *scheduleRepository) UpdateSlot(ctx context.Context, slot schedule.Slot) (schedule.Slot, error) {
	err := exec(ctx, repo.db, schedule.ErrNotFound, "updating slot",
		`UPDATE schedule_slots
		SET course_id = $2, lesson_id = $3, student_id = $4, date = $5, duration_minutes = $6, description = $7, online_link = $8
		WHERE id = $1`,
		slot.ID, slot.CourseID, slot.LessonID, slot.StudentID, slot.Date.UTC(), slot.DurationMinutes, slot.Description, slot.OnlineLink)
	if err != nil {
		return schedule.Slot{}, err
	}
	return repo.GetSlot(ctx, slot.ID)
}

func (repo *scheduleRepository) DeleteSlot(ctx context.Context, id string) error {
	if !validID(id) {
		return schedule.ErrNotFound
	}
	return exec(ctx, repo.db, schedule.ErrNotFound, "deleting slot", `DELETE FROM schedule_slots WHERE id = $1`, id)
}
