package dummydb

import (
	"context"
	"sort"

	"github.com/ozgesheedu/ozgeshe/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) courseSummary(courseID string) enrollment.CourseSummary {
	c := repo.db.courses[courseID]
	return enrollment.CourseSummary{ID: c.ID, Title: c.Title, Level: c.Level, Subject: c.Subject}
}

func (repo *enrollmentRepository) summarize(e enrollment.Enrollment) enrollment.Summary {
	s := enrollment.Summary{Enrollment: e, Course: repo.courseSummary(e.CourseID)}
	for _, l := range repo.db.lessons {
		if l.CourseID == e.CourseID {
			s.TotalLessons++
		}
	}
	for _, p := range repo.db.progress {
		if p.EnrollmentID == e.ID && p.IsCompleted {
			s.CompletedLessons++
		}
	}
	return s
}

func (repo *enrollmentRepository) CreateEnrollment(_ context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.enrollments {
		if existing.StudentID == e.StudentID && existing.CourseID == e.CourseID {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
	}
	repo.db.enrollments[e.ID] = e
	return e, nil
}

func (repo *enrollmentRepository) GetEnrollment(_ context.Context, studentID, courseID string) (enrollment.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, e := range repo.db.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			return e, nil
		}
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) ListStudentEnrollments(_ context.Context, studentID string) ([]enrollment.Summary, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	summaries := make([]enrollment.Summary, 0)
	for _, e := range repo.db.enrollments {
		if e.StudentID == studentID {
			summaries = append(summaries, repo.summarize(e))
		}
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].PurchasedAt.After(summaries[j].PurchasedAt) })
	return summaries, nil
}

func (repo *enrollmentRepository) GetStudentEnrollment(_ context.Context, studentID, id string) (enrollment.Summary, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	e, ok := repo.db.enrollments[id]
	if !ok || e.StudentID != studentID {
		return enrollment.Summary{}, enrollment.ErrNotFound
	}
	return repo.summarize(e), nil
}

func (repo *enrollmentRepository) ListTeacherEnrollments(_ context.Context, teacherID string) ([]enrollment.TeacherRow, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rows := make([]enrollment.TeacherRow, 0)
	for _, e := range repo.db.enrollments {
		if teacherID != "" {
			bound := e.TeacherID.Valid && e.TeacherID.String == teacherID
			if !bound && repo.db.courses[e.CourseID].CreatedBy.ID != teacherID {
				continue
			}
		}
		student := repo.db.users[e.StudentID]
		rows = append(rows, enrollment.TeacherRow{
			Enrollment: e,
			Student:    enrollment.PersonSummary{ID: student.ID, Name: student.Name, Email: student.Email},
			Course:     repo.courseSummary(e.CourseID),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].PurchasedAt.After(rows[j].PurchasedAt) })
	return rows, nil
}

func (repo *enrollmentRepository) UpsertProgress(_ context.Context, p enrollment.Progress) (enrollment.Progress, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, existing := range repo.db.progress {
		if existing.EnrollmentID == p.EnrollmentID && existing.LessonID == p.LessonID {
			p.ID = id
			break
		}
	}
	repo.db.progress[p.ID] = p
	return p, nil
}

func (repo *enrollmentRepository) ListProgress(_ context.Context, enrollmentID string) ([]enrollment.Progress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	progress := make([]enrollment.Progress, 0)
	for _, p := range repo.db.progress {
		if p.EnrollmentID == enrollmentID {
			progress = append(progress, p)
		}
	}
	return progress, nil
}
