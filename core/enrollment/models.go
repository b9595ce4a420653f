package enrollment

import (
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/ozgesheedu/ozgeshe/core"
	"github.com/ozgesheedu/ozgeshe/core/catalog"
)

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Enrollment struct {
	ID          string      `json:"id"`
	StudentID   string      `json:"studentId"`
	CourseID    string      `json:"courseId"`
	TeacherID   null.String `json:"teacherId"`
	Status      Status      `json:"status"`
	PurchasedAt time.Time   `json:"purchasedAt"` // UTC
}

// Progress is the per-lesson state of an enrollment; at most one exists per (enrollment, lesson).
type Progress struct {
	ID             string      `json:"id"`
	EnrollmentID   string      `json:"enrollmentId"`
	LessonID       string      `json:"lessonId"`
	IsCompleted    bool        `json:"isCompleted"`
	HomeworkAnswer null.String `json:"homeworkAnswer"`
	SubmittedAt    null.Time   `json:"submittedAt"`
}

type CourseSummary struct {
	ID      string       `json:"id"`
	Title   string       `json:"title"`
	Level   core.Level   `json:"level"`
	Subject core.Subject `json:"subject"`
}

type PersonSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Summary is a student's view of one enrollment.
type Summary struct {
	Enrollment
	Course           CourseSummary `json:"course"`
	CompletedLessons int           `json:"completedLessons"`
	TotalLessons     int           `json:"totalLessons"`
	Progress         int           `json:"progress"` // percent
}

type LessonWithProgress struct {
	catalog.Lesson
	IsCompleted    bool        `json:"isCompleted"`
	HomeworkAnswer null.String `json:"homeworkAnswer"`
	SubmittedAt    null.Time   `json:"submittedAt"`
}

// Detail is a student's view of one enrollment with every lesson of the course.
type Detail struct {
	Summary
	Lessons []LessonWithProgress `json:"lessons"`
}

// TeacherRow is an enrollment as listed to the teacher of the course.
type TeacherRow struct {
	Enrollment
	Student PersonSummary `json:"student"`
	Course  CourseSummary `json:"course"`
}

// Submission is a homework answer and/or completion mark for a lesson.
// IsCompleted defaults to true.
type Submission struct {
	HomeworkAnswer *string `json:"homeworkAnswer" validate:"omitempty,min=3,max=4000"`
	IsCompleted    *bool   `json:"isCompleted"`
}

func (s *Submission) Validate(validate *validator.Validate) error {
	s.HomeworkAnswer = core.CleanStringPtr(s.HomeworkAnswer)
	return validate.Struct(s)
}

// Percent returns round(100 * completed / total), or 0 for a course without lessons.
func Percent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) * 100 / float64(total)))
}
