package catalog

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ozgesheedu/ozgeshe/core"
	"github.com/ozgesheedu/ozgeshe/core/user"
)

var (
	// errors
	ErrCourseNotFound       = core.NewNotFound("COURSE_NOT_FOUND", "course not found")
	ErrCourseNotAvailable   = core.NewNotFound("COURSE_NOT_AVAILABLE", "course not available")
	ErrLessonNotFound       = core.NewNotFound("LESSON_NOT_FOUND", "lesson not found")
	ErrGroupNotFound        = core.NewNotFound("GROUP_NOT_FOUND", "course group not found")
	ErrGroupNotEmpty        = core.NewBadRequest("GROUP_NOT_EMPTY", "course group still has courses")
	ErrSubjectMismatch      = core.NewBadRequest("SUBJECT_MISMATCH", "course subject must match the group subject")
	ErrSubjectNotPermitted  = core.NewForbidden("SUBJECT_NOT_PERMITTED", "subject not permitted for this teacher")
	ErrLessonOrderingFailed = core.NewError(http.StatusInternalServerError, "LESSON_ORDERING_FAILED", "unable to update lesson order")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, course Course) (Course, error)
		// GetCourse returns the course with its owner, group and enrollment count, without lessons.
		GetCourse(ctx context.Context, id string) (Course, error)
		// QueryCourses returns courses matching the filter, newest first, without lessons.
		QueryCourses(ctx context.Context, filter CourseFilter) ([]Course, error)
		UpdateCourse(ctx context.Context, course Course) (Course, error)
		// DeleteCourse removes the course together with its lessons, enrollments and schedule slots.
		DeleteCourse(ctx context.Context, id string) error

		// ListLessons returns the lessons of the given courses ordered by course then orderIndex.
		ListLessons(ctx context.Context, courseIDs ...string) ([]Lesson, error)
		GetLesson(ctx context.Context, id string) (Lesson, error)
		// WithLessonsLocked runs fn in a single transaction holding an exclusive lock on the course.
		// Any error returned by fn rolls every write back.
		WithLessonsLocked(ctx context.Context, courseID string, fn func(w LessonWriter) error) error

		CreateGroup(ctx context.Context, group CourseGroup) (CourseGroup, error)
		// GetGroup returns the group with its course count.
		GetGroup(ctx context.Context, id string) (CourseGroup, error)
		QueryGroups(ctx context.Context) ([]CourseGroup, error)
		DeleteGroup(ctx context.Context, id string) error
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// attachLessons fills the ordered lessons of each course.
func (svc *Service) attachLessons(ctx context.Context, courses ...*Course) error {
	if len(courses) == 0 {
		return nil
	}
	ids := make([]string, 0, len(courses))
	byID := make(map[string]*Course, len(courses))
	for _, c := range courses {
		c.Lessons = []Lesson{}
		ids = append(ids, c.ID)
		byID[c.ID] = c
	}

	lessons, err := svc.repo.ListLessons(ctx, ids...)
	if err != nil {
		return errors.Wrap(err, "listing lessons")
	}
	for _, l := range lessons {
		if c, ok := byID[l.CourseID]; ok {
			c.Lessons = append(c.Lessons, l)
		}
	}
	return nil
}

func (svc *Service) queryWithLessons(ctx context.Context, filter CourseFilter) ([]Course, error) {
	courses, err := svc.repo.QueryCourses(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	ptrs := make([]*Course, 0, len(courses))
	for i := range courses {
		ptrs = append(ptrs, &courses[i])
	}
	if err = svc.attachLessons(ctx, ptrs...); err != nil {
		return nil, err
	}
	return courses, nil
}

// ListPublished returns the public catalogue.
func (svc *Service) ListPublished(ctx context.Context, filter CourseFilter) ([]Course, error) {
	filter.Clean()
	filter.PublishedOnly = true
	filter.OwnerID = ""
	return svc.queryWithLessons(ctx, filter)
}

// ListForTeacher returns the actor's own courses, or every course for admins.
func (svc *Service) ListForTeacher(ctx context.Context, actor user.Actor) ([]Course, error) {
	if err := user.Authorize(actor, user.RoleTeacher, user.RoleAdmin); err != nil {
		return nil, err
	}
	var filter CourseFilter
	if !actor.IsAdmin() {
		filter.OwnerID = actor.ID
	}
	return svc.queryWithLessons(ctx, filter)
}

// Get returns a course and its ordered lessons. Unpublished courses only exist for their owner and admins.
func (svc *Service) Get(ctx context.Context, actor *user.Actor, id string) (Course, error) {
	course, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if !course.VisibleTo(actor) {
		return Course{}, ErrCourseNotAvailable
	}
	if err = svc.attachLessons(ctx, &course); err != nil {
		return Course{}, err
	}
	return course, nil
}

// GetForManagement returns a course the actor may edit.
func (svc *Service) GetForManagement(ctx context.Context, actor user.Actor, id string) (Course, error) {
	if err := user.Authorize(actor, user.RoleTeacher, user.RoleAdmin); err != nil {
		return Course{}, err
	}
	course, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if !course.CanManage(actor) {
		return Course{}, core.ErrForbidden
	}
	return course, nil
}

func (svc *Service) Create(ctx context.Context, actor user.Actor, nc NewCourse) (Course, error) {
	if err := user.Authorize(actor, user.RoleTeacher, user.RoleAdmin); err != nil {
		return Course{}, err
	}

	var group *GroupSummary
	if nc.GroupID != "" {
		g, err := svc.repo.GetGroup(ctx, nc.GroupID)
		if err != nil {
			return Course{}, err
		}
		if g.Subject != nc.Subject {
			return Course{}, ErrSubjectMismatch
		}
		group = g.Summary()
	}

	// teachers without declared subjects are not restricted
	if actor.IsTeacher() && len(actor.Subjects) > 0 && !core.HasSubject(actor.Subjects, nc.Subject) {
		return Course{}, ErrSubjectNotPermitted
	}

	now := time.Now().UTC()
	course := Course{
		ID:          uuid.New().String(),
		Title:       nc.Title,
		Description: nc.Description,
		Level:       nc.Level,
		Subject:     nc.Subject,
		Price:       nc.Price,
		IsPublished: nc.IsPublished,
		CreatedBy:   Owner{ID: actor.ID, Name: actor.Name, Role: actor.Role},
		GroupID:     null.NewString(nc.GroupID, nc.GroupID != ""),
		Group:       group,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	course, err := svc.repo.CreateCourse(ctx, course)
	if err != nil {
		return Course{}, errors.Wrap(err, "creating course")
	}
	course.Lessons = []Lesson{}
	return course, nil
}

func (svc *Service) Update(ctx context.Context, actor user.Actor, id string, uc UpdateCourse) (Course, error) {
	course, err := svc.GetForManagement(ctx, actor, id)
	if err != nil {
		return Course{}, err
	}

	if uc.Title != nil {
		course.Title = *uc.Title
	}
	if uc.Description != nil {
		course.Description = *uc.Description
	}
	if uc.Level != nil {
		course.Level = *uc.Level
	}
	if uc.Price != nil {
		course.Price = *uc.Price
	}
	if uc.IsPublished != nil {
		course.IsPublished = *uc.IsPublished
	}
	course.UpdatedAt = time.Now().UTC()

	if course, err = svc.repo.UpdateCourse(ctx, course); err != nil {
		return Course{}, errors.Wrap(err, "updating course")
	}
	if err = svc.attachLessons(ctx, &course); err != nil {
		return Course{}, err
	}
	return course, nil
}

func (svc *Service) Delete(ctx context.Context, actor user.Actor, id string) error {
	if _, err := svc.GetForManagement(ctx, actor, id); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteCourse(ctx, id), "deleting course")
}

// GetLesson returns a lesson by id.
func (svc *Service) GetLesson(ctx context.Context, id string) (Lesson, error) {
	return svc.repo.GetLesson(ctx, id)
}

// withLessons runs fn as one unit of work. Unexpected failures are logged and collapsed
// into ErrLessonOrderingFailed; expected domain errors pass through.
func (svc *Service) withLessons(ctx context.Context, courseID string, fn func(w LessonWriter) error) error {
	err := svc.repo.WithLessonsLocked(ctx, courseID, fn)
	if err == nil || core.ErrorStatus(err) != 0 {
		return err
	}
	svc.logger.Error("lesson ordering transaction rolled back", err, map[string]interface{}{"courseId": courseID})
	return ErrLessonOrderingFailed
}

// CreateLesson inserts a lesson at nl.OrderIndex (appended when zero or past the end).
func (svc *Service) CreateLesson(ctx context.Context, actor user.Actor, courseID string, nl NewLesson) (Lesson, error) {
	if _, err := svc.GetForManagement(ctx, actor, courseID); err != nil {
		return Lesson{}, err
	}

	now := time.Now().UTC()
	lesson := Lesson{
		ID:            uuid.New().String(),
		CourseID:      courseID,
		Title:         nl.Title,
		Description:   nl.Description,
		VideoURL:      nl.VideoURL,
		HomeworkText:  nl.HomeworkText,
		AttachmentURL: null.NewString(nl.AttachmentURL, nl.AttachmentURL != ""),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var created Lesson
	err := svc.withLessons(ctx, courseID, func(w LessonWriter) error {
		var err error
		created, err = insertLesson(ctx, w, lesson, nl.OrderIndex)
		return err
	})
	return created, err
}

// UpdateLesson applies a partial update; a new orderIndex moves the lesson within its course.
func (svc *Service) UpdateLesson(ctx context.Context, actor user.Actor, id string, ul UpdateLesson) (Lesson, error) {
	lesson, err := svc.repo.GetLesson(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	if _, err = svc.GetForManagement(ctx, actor, lesson.CourseID); err != nil {
		return Lesson{}, err
	}

	var updated Lesson
	err = svc.withLessons(ctx, lesson.CourseID, func(w LessonWriter) error {
		// re-read under the lock: the position may have moved since
		current, err := w.GetLesson(ctx, id)
		if err != nil {
			return err
		}
		applyLessonUpdate(&current, ul)

		if ul.OrderIndex != nil && *ul.OrderIndex != current.OrderIndex {
			updated, err = moveLesson(ctx, w, current, *ul.OrderIndex)
			return err
		}
		updated, err = w.UpdateLesson(ctx, current)
		return errors.Wrap(err, "updating lesson")
	})
	return updated, err
}

func applyLessonUpdate(lesson *Lesson, ul UpdateLesson) {
	if ul.Title != nil {
		lesson.Title = *ul.Title
	}
	if ul.Description != nil {
		lesson.Description = *ul.Description
	}
	if ul.VideoURL != nil {
		lesson.VideoURL = *ul.VideoURL
	}
	if ul.HomeworkText != nil {
		lesson.HomeworkText = *ul.HomeworkText
	}
	if ul.AttachmentURL != nil {
		lesson.AttachmentURL = null.NewString(*ul.AttachmentURL, *ul.AttachmentURL != "")
	}
	lesson.UpdatedAt = time.Now().UTC()
}

// DeleteLesson removes a lesson and closes the gap it leaves.
func (svc *Service) DeleteLesson(ctx context.Context, actor user.Actor, id string) error {
	lesson, err := svc.repo.GetLesson(ctx, id)
	if err != nil {
		return err
	}
	if _, err = svc.GetForManagement(ctx, actor, lesson.CourseID); err != nil {
		return err
	}

	return svc.withLessons(ctx, lesson.CourseID, func(w LessonWriter) error {
		current, err := w.GetLesson(ctx, id)
		if err != nil {
			return err
		}
		return removeLesson(ctx, w, current)
	})
}

func (svc *Service) ListGroups(ctx context.Context) ([]CourseGroup, error) {
	groups, err := svc.repo.QueryGroups(ctx)
	return groups, errors.Wrap(err, "querying course groups")
}

func (svc *Service) CreateGroup(ctx context.Context, actor user.Actor, ng NewGroup) (CourseGroup, error) {
	if err := user.Authorize(actor, user.RoleAdmin); err != nil {
		return CourseGroup{}, err
	}
	group := CourseGroup{
		ID:          uuid.New().String(),
		Name:        ng.Name,
		Description: null.NewString(ng.Description, ng.Description != ""),
		Subject:     ng.Subject,
		CreatedAt:   time.Now().UTC(),
	}
	group, err := svc.repo.CreateGroup(ctx, group)
	return group, errors.Wrap(err, "creating course group")
}

// DeleteGroup removes an empty group.
func (svc *Service) DeleteGroup(ctx context.Context, actor user.Actor, id string) error {
	if err := user.Authorize(actor, user.RoleAdmin); err != nil {
		return err
	}
	group, err := svc.repo.GetGroup(ctx, id)
	if err != nil {
		return err
	}
	if group.CourseCount > 0 {
		return ErrGroupNotEmpty
	}
	return errors.Wrap(svc.repo.DeleteGroup(ctx, id), "deleting course group")
}
