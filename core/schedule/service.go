package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ozgesheedu/ozgeshe/core"
	"github.com/ozgesheedu/ozgeshe/core/catalog"
	"github.com/ozgesheedu/ozgeshe/core/user"
)

// UpcomingLimit caps the student's upcoming schedule.
const UpcomingLimit = 6

var (
	// errors
	ErrNotFound          = core.NewNotFound("SLOT_NOT_FOUND", "schedule slot not found")
	ErrLessonNotInCourse = core.NewBadRequest("LESSON_NOT_IN_COURSE", "lesson not part of course")
	ErrStudentNotFound   = core.NewBadRequest("STUDENT_NOT_FOUND", "student not found")
)

type (
	Repository interface {
		CreateSlot(ctx context.Context, slot Slot) (Slot, error)
		GetSlot(ctx context.Context, id string) (Slot, error)
		// ListTeacherSlots returns the teacher's slots by date; an empty teacherID returns all of them.
		ListTeacherSlots(ctx context.Context, teacherID string) ([]Slot, error)
		// ListStudentSlots returns at most limit slots of the student dated at or after `from`.
		ListStudentSlots(ctx context.Context, studentID string, from time.Time, limit int) ([]Slot, error)
		UpdateSlot(ctx context.Context, slot Slot) (Slot, error)
		DeleteSlot(ctx context.Context, id string) error
	}

	Catalog interface {
		GetCourse(ctx context.Context, id string) (catalog.Course, error)
		GetLesson(ctx context.Context, id string) (catalog.Lesson, error)
	}

	Users interface {
		GetUserByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		repo    Repository
		catalog Catalog
		users   Users
	}
)

func NewService(repo Repository, catalog Catalog, users Users) *Service {
	return &Service{repo: repo, catalog: catalog, users: users}
}

// List returns the actor's slots, or every slot for admins.
func (svc *Service) List(ctx context.Context, actor user.Actor) ([]Slot, error) {
	if err := user.Authorize(actor, user.RoleTeacher, user.RoleAdmin); err != nil {
		return nil, err
	}
	teacherID := actor.ID
	if actor.IsAdmin() {
		teacherID = ""
	}
	slots, err := svc.repo.ListTeacherSlots(ctx, teacherID)
	return slots, errors.Wrap(err, "listing slots")
}

// Upcoming returns the student's next slots.
func (svc *Service) Upcoming(ctx context.Context, actor user.Actor) ([]Slot, error) {
	if err := user.Authorize(actor, user.RoleStudent); err != nil {
		return nil, err
	}
	slots, err := svc.repo.ListStudentSlots(ctx, actor.ID, time.Now().UTC(), UpcomingLimit)
	return slots, errors.Wrap(err, "listing slots")
}

// managedCourse returns the course if the actor may schedule it.
func (svc *Service) managedCourse(ctx context.Context, actor user.Actor, courseID string) (catalog.Course, error) {
	course, err := svc.catalog.GetCourse(ctx, courseID)
	if err != nil {
		return catalog.Course{}, err
	}
	if !course.CanManage(actor) {
		return catalog.Course{}, core.ErrForbidden
	}
	return course, nil
}

func (svc *Service) checkLesson(ctx context.Context, lessonID, courseID string) error {
	if lessonID == "" {
		return nil
	}
	lesson, err := svc.catalog.GetLesson(ctx, lessonID)
	if err != nil {
		if err == catalog.ErrLessonNotFound {
			return ErrLessonNotInCourse
		}
		return errors.Wrap(err, "getting lesson")
	}
	if lesson.CourseID != courseID {
		return ErrLessonNotInCourse
	}
	return nil
}

func (svc *Service) checkStudent(ctx context.Context, studentID string) error {
	if studentID == "" {
		return nil
	}
	usr, err := svc.users.GetUserByID(ctx, studentID)
	if err != nil {
		if err == user.ErrNotFound {
			return ErrStudentNotFound
		}
		return errors.Wrap(err, "getting student")
	}
	if usr.Role != user.RoleStudent {
		return ErrStudentNotFound
	}
	return nil
}

// Create schedules a slot. Slots created by an admin belong to the course owner.
func (svc *Service) Create(ctx context.Context, actor user.Actor, ns NewSlot) (Slot, error) {
	if err := user.Authorize(actor, user.RoleTeacher, user.RoleAdmin); err != nil {
		return Slot{}, err
	}
	course, err := svc.managedCourse(ctx, actor, ns.CourseID)
	if err != nil {
		return Slot{}, err
	}
	if err = svc.checkLesson(ctx, ns.LessonID, course.ID); err != nil {
		return Slot{}, err
	}
	if err = svc.checkStudent(ctx, ns.StudentID); err != nil {
		return Slot{}, err
	}

	teacherID := actor.ID
	if actor.IsAdmin() {
		teacherID = course.CreatedBy.ID
	}
	slot := Slot{
		ID:              uuid.New().String(),
		TeacherID:       teacherID,
		CourseID:        course.ID,
		LessonID:        optional(ns.LessonID),
		StudentID:       optional(ns.StudentID),
		Date:            ns.Date.UTC(),
		DurationMinutes: ns.DurationMinutes,
		Description:     optional(ns.Description),
		OnlineLink:      optional(ns.OnlineLink),
		CreatedAt:       time.Now().UTC(),
	}
	slot, err = svc.repo.CreateSlot(ctx, slot)
	return slot, errors.Wrap(err, "creating slot")
}

// ownedSlot returns the slot if it belongs to the actor (or the actor is an admin).
func (svc *Service) ownedSlot(ctx context.Context, actor user.Actor, id string) (Slot, error) {
	if err := user.Authorize(actor, user.RoleTeacher, user.RoleAdmin); err != nil {
		return Slot{}, err
	}
	slot, err := svc.repo.GetSlot(ctx, id)
	if err != nil {
		return Slot{}, err
	}
	if !actor.IsAdmin() && slot.TeacherID != actor.ID {
		return Slot{}, core.ErrForbidden
	}
	return slot, nil
}

func (svc *Service) Update(ctx context.Context, actor user.Actor, id string, us UpdateSlot) (Slot, error) {
	slot, err := svc.ownedSlot(ctx, actor, id)
	if err != nil {
		return Slot{}, err
	}

	if us.CourseID != nil && *us.CourseID != "" && *us.CourseID != slot.CourseID {
		course, err := svc.managedCourse(ctx, actor, *us.CourseID)
		if err != nil {
			return Slot{}, err
		}
		slot.CourseID = course.ID
	}
	if us.LessonID != nil {
		slot.LessonID = optional(*us.LessonID)
	}
	if us.StudentID != nil {
		slot.StudentID = optional(*us.StudentID)
	}
	if err = svc.checkLesson(ctx, slot.LessonID.String, slot.CourseID); err != nil {
		return Slot{}, err
	}
	if us.StudentID != nil {
		if err = svc.checkStudent(ctx, slot.StudentID.String); err != nil {
			return Slot{}, err
		}
	}

	if us.Date != nil {
		slot.Date = us.Date.UTC()
	}
	if us.DurationMinutes != nil {
		slot.DurationMinutes = *us.DurationMinutes
	}
	if us.Description != nil {
		slot.Description = optional(*us.Description)
	}
	if us.OnlineLink != nil {
		slot.OnlineLink = optional(*us.OnlineLink)
	}

	slot, err = svc.repo.UpdateSlot(ctx, slot)
	return slot, errors.Wrap(err, "updating slot")
}

func (svc *Service) Delete(ctx context.Context, actor user.Actor, id string) error {
	if _, err := svc.ownedSlot(ctx, actor, id); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteSlot(ctx, id), "deleting slot")
}
