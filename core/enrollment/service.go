package enrollment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ozgesheedu/ozgeshe/core"
	"github.com/ozgesheedu/ozgeshe/core/catalog"
	"github.com/ozgesheedu/ozgeshe/core/user"
)

var (
	// errors
	ErrNotFound        = core.NewNotFound("ENROLLMENT_NOT_FOUND", "enrollment not found")
	ErrAlreadyEnrolled = core.NewConflict("ALREADY_ENROLLED", "already enrolled in this course")
	ErrNotEnrolled     = core.NewForbidden("NOT_ENROLLED", "not enrolled in this course")
)

type (
	Repository interface {
		// CreateEnrollment returns ErrAlreadyEnrolled if the (student, course) pair exists.
		CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		GetEnrollment(ctx context.Context, studentID, courseID string) (Enrollment, error)
		// ListStudentEnrollments returns the student's enrollments, newest first, with lesson counts.
		ListStudentEnrollments(ctx context.Context, studentID string) ([]Summary, error)
		GetStudentEnrollment(ctx context.Context, studentID, id string) (Summary, error)
		// ListTeacherEnrollments returns enrollments bound to teacherID or to a course it owns, newest first.
		// An empty teacherID returns every enrollment.
		ListTeacherEnrollments(ctx context.Context, teacherID string) ([]TeacherRow, error)
		// UpsertProgress inserts or replaces the progress row of (EnrollmentID, LessonID).
		UpsertProgress(ctx context.Context, p Progress) (Progress, error)
		ListProgress(ctx context.Context, enrollmentID string) ([]Progress, error)
	}

	// Catalog is the part of the catalog store enrollments read from.
	Catalog interface {
		GetCourse(ctx context.Context, id string) (catalog.Course, error)
		GetLesson(ctx context.Context, id string) (catalog.Lesson, error)
		ListLessons(ctx context.Context, courseIDs ...string) ([]catalog.Lesson, error)
	}

	Service struct {
		repo    Repository
		catalog Catalog
	}
)

func NewService(repo Repository, catalog Catalog) *Service {
	return &Service{repo: repo, catalog: catalog}
}

// Enroll registers the student on a published course.
func (svc *Service) Enroll(ctx context.Context, actor user.Actor, courseID string) (Enrollment, error) {
	if err := user.Authorize(actor, user.RoleStudent); err != nil {
		return Enrollment{}, err
	}

	course, err := svc.catalog.GetCourse(ctx, courseID)
	if err != nil {
		if err == catalog.ErrCourseNotFound {
			return Enrollment{}, catalog.ErrCourseNotAvailable
		}
		return Enrollment{}, errors.Wrap(err, "getting course")
	}
	if !course.IsPublished && !actor.IsAdmin() {
		return Enrollment{}, catalog.ErrCourseNotAvailable
	}

	if _, err = svc.repo.GetEnrollment(ctx, actor.ID, courseID); err == nil {
		return Enrollment{}, ErrAlreadyEnrolled
	} else if err != ErrNotFound {
		return Enrollment{}, errors.Wrap(err, "getting enrollment")
	}

	e := Enrollment{
		ID:          uuid.New().String(),
		StudentID:   actor.ID,
		CourseID:    courseID,
		Status:      StatusActive,
		PurchasedAt: time.Now().UTC(),
	}
	// admin-owned courses have no schedulable teacher
	if course.CreatedBy.Role == user.RoleTeacher {
		e.TeacherID = null.StringFrom(course.CreatedBy.ID)
	}
	// the unique (student, course) constraint settles concurrent requests
	return svc.repo.CreateEnrollment(ctx, e)
}

// SubmitHomework records the student's answer for a lesson; a later submission replaces the earlier one.
func (svc *Service) SubmitHomework(ctx context.Context, actor user.Actor, lessonID string, sub Submission) (Progress, error) {
	if err := user.Authorize(actor, user.RoleStudent); err != nil {
		return Progress{}, err
	}

	lesson, err := svc.catalog.GetLesson(ctx, lessonID)
	if err != nil {
		return Progress{}, err
	}
	e, err := svc.repo.GetEnrollment(ctx, actor.ID, lesson.CourseID)
	if err != nil {
		if err == ErrNotFound {
			return Progress{}, ErrNotEnrolled
		}
		return Progress{}, errors.Wrap(err, "getting enrollment")
	}

	completed := true
	if sub.IsCompleted != nil {
		completed = *sub.IsCompleted
	}
	p := Progress{
		ID:             uuid.New().String(),
		EnrollmentID:   e.ID,
		LessonID:       lesson.ID,
		IsCompleted:    completed,
		HomeworkAnswer: null.StringFromPtr(sub.HomeworkAnswer),
		SubmittedAt:    null.TimeFrom(time.Now().UTC()),
	}
	p, err = svc.repo.UpsertProgress(ctx, p)
	return p, errors.Wrap(err, "saving progress")
}

// ListMine returns the actor's enrollments with their progress.
func (svc *Service) ListMine(ctx context.Context, actor user.Actor) ([]Summary, error) {
	if err := user.Authorize(actor, user.RoleStudent); err != nil {
		return nil, err
	}
	summaries, err := svc.repo.ListStudentEnrollments(ctx, actor.ID)
	if err != nil {
		return nil, errors.Wrap(err, "listing enrollments")
	}
	for i := range summaries {
		summaries[i].Progress = Percent(summaries[i].CompletedLessons, summaries[i].TotalLessons)
	}
	return summaries, nil
}

// GetMine returns one of the actor's enrollments with every lesson of the course and its progress.
func (svc *Service) GetMine(ctx context.Context, actor user.Actor, id string) (Detail, error) {
	if err := user.Authorize(actor, user.RoleStudent); err != nil {
		return Detail{}, err
	}
	summary, err := svc.repo.GetStudentEnrollment(ctx, actor.ID, id)
	if err != nil {
		return Detail{}, err
	}

	lessons, err := svc.catalog.ListLessons(ctx, summary.CourseID)
	if err != nil {
		return Detail{}, errors.Wrap(err, "listing lessons")
	}
	progress, err := svc.repo.ListProgress(ctx, summary.ID)
	if err != nil {
		return Detail{}, errors.Wrap(err, "listing progress")
	}
	byLesson := make(map[string]Progress, len(progress))
	for _, p := range progress {
		byLesson[p.LessonID] = p
	}

	detail := Detail{Summary: summary, Lessons: make([]LessonWithProgress, 0, len(lessons))}
	var completed int
	for _, l := range lessons {
		lp := LessonWithProgress{Lesson: l}
		if p, ok := byLesson[l.ID]; ok {
			lp.IsCompleted = p.IsCompleted
			lp.HomeworkAnswer = p.HomeworkAnswer
			lp.SubmittedAt = p.SubmittedAt
		}
		if lp.IsCompleted {
			completed++
		}
		detail.Lessons = append(detail.Lessons, lp)
	}
	detail.CompletedLessons = completed
	detail.TotalLessons = len(lessons)
	detail.Progress = Percent(completed, len(lessons))
	return detail, nil
}

// CompletedLessons maps lesson ids to their completion for a student enrolled in the course.
// Other actors get an empty map.
func (svc *Service) CompletedLessons(ctx context.Context, actor *user.Actor, courseID string) (map[string]bool, error) {
	completed := make(map[string]bool)
	if actor == nil || !actor.IsStudent() {
		return completed, nil
	}
	e, err := svc.repo.GetEnrollment(ctx, actor.ID, courseID)
	if err != nil {
		if err == ErrNotFound {
			return completed, nil
		}
		return nil, errors.Wrap(err, "getting enrollment")
	}
	progress, err := svc.repo.ListProgress(ctx, e.ID)
	if err != nil {
		return nil, errors.Wrap(err, "listing progress")
	}
	for _, p := range progress {
		completed[p.LessonID] = p.IsCompleted
	}
	return completed, nil
}

// ListForTeacher returns the enrollments of the actor's students, or all of them for admins.
func (svc *Service) ListForTeacher(ctx context.Context, actor user.Actor) ([]TeacherRow, error) {
	if err := user.Authorize(actor, user.RoleTeacher, user.RoleAdmin); err != nil {
		return nil, err
	}
	teacherID := actor.ID
	if actor.IsAdmin() {
		teacherID = ""
	}
	rows, err := svc.repo.ListTeacherEnrollments(ctx, teacherID)
	return rows, errors.Wrap(err, "listing enrollments")
}
