package schedule

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/ozgesheedu/ozgeshe/core"
)

// Slot is a dated teaching session of a course, optionally for one lesson and one student.
type Slot struct {
	ID              string      `json:"id"`
	TeacherID       string      `json:"teacherId"`
	CourseID        string      `json:"courseId"`
	LessonID        null.String `json:"lessonId"`
	StudentID       null.String `json:"studentId"`
	Date            time.Time   `json:"date"` // UTC
	DurationMinutes int         `json:"durationMinutes"`
	Description     null.String `json:"description"`
	OnlineLink      null.String `json:"onlineLink"`
	CreatedAt       time.Time   `json:"createdAt"` // UTC

	Course  *Ref `json:"course,omitempty"`
	Lesson  *Ref `json:"lesson,omitempty"`
	Student *Ref `json:"student,omitempty"`
	Teacher *Ref `json:"teacher,omitempty"`
}

// Ref names a related record.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type NewSlot struct {
	CourseID        string    `json:"courseId" validate:"required,uuid"`
	LessonID        string    `json:"lessonId" validate:"omitempty,uuid"`
	StudentID       string    `json:"studentId" validate:"omitempty,uuid"`
	Date            time.Time `json:"date" validate:"required"`
	DurationMinutes int       `json:"durationMinutes" validate:"required,min=15,max=180"`
	Description     string    `json:"description" validate:"omitempty,max=500"`
	OnlineLink      string    `json:"onlineLink" validate:"omitempty,url"`
}

func (ns *NewSlot) Validate(validate *validator.Validate) error {
	ns.CourseID = core.CleanString(ns.CourseID)
	ns.LessonID = core.CleanString(ns.LessonID)
	ns.StudentID = core.CleanString(ns.StudentID)
	ns.Description = core.CleanString(ns.Description)
	ns.OnlineLink = core.CleanString(ns.OnlineLink)
	return validate.Struct(ns)
}

// UpdateSlot defines what may change on a Slot. An empty string clears an optional field.
type UpdateSlot struct {
	CourseID        *string    `json:"courseId" validate:"omitempty,uuid"`
	LessonID        *string    `json:"lessonId" validate:"omitempty,uuid"`
	StudentID       *string    `json:"studentId" validate:"omitempty,uuid"`
	Date            *time.Time `json:"date"`
	DurationMinutes *int       `json:"durationMinutes" validate:"omitempty,min=15,max=180"`
	Description     *string    `json:"description" validate:"omitempty,max=500"`
	OnlineLink      *string    `json:"onlineLink" validate:"omitempty,url"`
}

func (us *UpdateSlot) Validate(validate *validator.Validate) error {
	us.CourseID = core.CleanStringPtr(us.CourseID)
	us.LessonID = core.CleanStringPtr(us.LessonID)
	us.StudentID = core.CleanStringPtr(us.StudentID)
	us.Description = core.CleanStringPtr(us.Description)
	us.OnlineLink = core.CleanStringPtr(us.OnlineLink)

	check := *us
	check.CourseID = core.NilIfEmpty(us.CourseID)
	check.LessonID = core.NilIfEmpty(us.LessonID)
	check.StudentID = core.NilIfEmpty(us.StudentID)
	check.OnlineLink = core.NilIfEmpty(us.OnlineLink)
	return validate.Struct(check)
}

func optional(s string) null.String {
	return null.NewString(s, s != "")
}
