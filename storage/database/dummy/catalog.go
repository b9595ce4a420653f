package dummydb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/ozgesheedu/ozgeshe/core/catalog"
)

type catalogRepository struct {
	db *DB
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *DB) catalog.Repository {
	return &catalogRepository{db: db}
}

// hydrate fills the owner, group and enrollment count of a stored course.
func (repo *catalogRepository) hydrate(c catalog.Course) catalog.Course {
	if owner, ok := repo.db.users[c.CreatedBy.ID]; ok {
		c.CreatedBy = catalog.Owner{ID: owner.ID, Name: owner.Name, Role: owner.Role}
	}
	c.Group = nil
	if c.GroupID.Valid {
		if g, ok := repo.db.groups[c.GroupID.String]; ok {
			c.Group = g.Summary()
		}
	}
	c.EnrollmentCount = 0
	for _, e := range repo.db.enrollments {
		if e.CourseID == c.ID {
			c.EnrollmentCount++
		}
	}
	c.Lessons = nil
	return c
}

func (repo *catalogRepository) CreateCourse(_ context.Context, course catalog.Course) (catalog.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	course.Lessons = nil
	course.Group = nil
	repo.db.courses[course.ID] = course
	return repo.hydrate(course), nil
}

func (repo *catalogRepository) GetCourse(_ context.Context, id string) (catalog.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return repo.hydrate(c), nil
	}
	return catalog.Course{}, catalog.ErrCourseNotFound
}

func (repo *catalogRepository) QueryCourses(_ context.Context, filter catalog.CourseFilter) ([]catalog.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]catalog.Course, 0)
	for _, c := range repo.db.courses {
		switch {
		case filter.PublishedOnly && !c.IsPublished,
			filter.OwnerID != "" && c.CreatedBy.ID != filter.OwnerID,
			filter.Subject != "" && c.Subject != filter.Subject,
			filter.Level != "" && c.Level != filter.Level,
			filter.GroupID != "" && c.GroupID.String != filter.GroupID,
			filter.Search != "" && !containsFold(c.Title, filter.Search) && !containsFold(c.Description, filter.Search):
			continue
		}
		courses = append(courses, repo.hydrate(c))
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].CreatedAt.After(courses[j].CreatedAt) })
	return courses, nil
}

func (repo *catalogRepository) UpdateCourse(_ context.Context, course catalog.Course) (catalog.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[course.ID]; !ok {
		return catalog.Course{}, catalog.ErrCourseNotFound
	}
	course.Lessons = nil
	repo.db.courses[course.ID] = course
	return repo.hydrate(course), nil
}

func (repo *catalogRepository) DeleteCourse(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return catalog.ErrCourseNotFound
	}
	repo.db.deleteCourse(id)
	return nil
}

func (repo *catalogRepository) ListLessons(_ context.Context, courseIDs ...string) ([]catalog.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lessons := make([]catalog.Lesson, 0)
	for _, id := range courseIDs {
		lessons = append(lessons, repo.db.courseLessons(id)...)
	}
	return lessons, nil
}

func (repo *catalogRepository) GetLesson(_ context.Context, id string) (catalog.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if l, ok := repo.db.lessons[id]; ok {
		return l, nil
	}
	return catalog.Lesson{}, catalog.ErrLessonNotFound
}

// WithLessonsLocked runs fn against a copy of the course's lessons and publishes the copy
// only if fn succeeds and the positions are still unique.
func (repo *catalogRepository) WithLessonsLocked(ctx context.Context, courseID string, fn func(w catalog.LessonWriter) error) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[courseID]; !ok {
		return catalog.ErrCourseNotFound
	}
	w := &lessonWriter{courseID: courseID, lessons: make(map[string]catalog.Lesson), deleted: make(map[string]bool)}
	for _, l := range repo.db.courseLessons(courseID) {
		w.lessons[l.ID] = l
	}

	if err := fn(w); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	positions := make(map[int]bool, len(w.lessons))
	for _, l := range w.lessons {
		if positions[l.OrderIndex] {
			return errors.Errorf("duplicate orderIndex %d in course %s", l.OrderIndex, courseID)
		}
		positions[l.OrderIndex] = true
	}

	for id := range w.deleted {
		repo.db.deleteLesson(id)
	}
	for id, l := range w.lessons {
		repo.db.lessons[id] = l
	}
	return nil
}

type lessonWriter struct {
	courseID string
	lessons  map[string]catalog.Lesson
	deleted  map[string]bool
}

func (w *lessonWriter) CountLessons(_ context.Context) (int, error) {
	return len(w.lessons), nil
}

func (w *lessonWriter) GetLesson(_ context.Context, id string) (catalog.Lesson, error) {
	if l, ok := w.lessons[id]; ok {
		return l, nil
	}
	return catalog.Lesson{}, catalog.ErrLessonNotFound
}

func (w *lessonWriter) ShiftLessons(_ context.Context, from, to, delta int) error {
	for id, l := range w.lessons {
		if l.OrderIndex >= from && l.OrderIndex <= to {
			l.OrderIndex += delta
			w.lessons[id] = l
		}
	}
	return nil
}

func (w *lessonWriter) CreateLesson(_ context.Context, lesson catalog.Lesson) (catalog.Lesson, error) {
	lesson.CourseID = w.courseID
	w.lessons[lesson.ID] = lesson
	return lesson, nil
}

func (w *lessonWriter) UpdateLesson(_ context.Context, lesson catalog.Lesson) (catalog.Lesson, error) {
	if _, ok := w.lessons[lesson.ID]; !ok {
		return catalog.Lesson{}, catalog.ErrLessonNotFound
	}
	w.lessons[lesson.ID] = lesson
	return lesson, nil
}

func (w *lessonWriter) DeleteLesson(_ context.Context, id string) error {
	if _, ok := w.lessons[id]; !ok {
		return catalog.ErrLessonNotFound
	}
	delete(w.lessons, id)
	w.deleted[id] = true
	return nil
}

func (repo *catalogRepository) countCourses(groupID string) int {
	var n int
	for _, c := range repo.db.courses {
		if c.GroupID.Valid && c.GroupID.String == groupID {
			n++
		}
	}
	return n
}

func (repo *catalogRepository) CreateGroup(_ context.Context, group catalog.CourseGroup) (catalog.CourseGroup, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	group.CourseCount = 0
	repo.db.groups[group.ID] = group
	return group, nil
}

func (repo *catalogRepository) GetGroup(_ context.Context, id string) (catalog.CourseGroup, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	g, ok := repo.db.groups[id]
	if !ok {
		return catalog.CourseGroup{}, catalog.ErrGroupNotFound
	}
	g.CourseCount = repo.countCourses(id)
	return g, nil
}

func (repo *catalogRepository) QueryGroups(_ context.Context) ([]catalog.CourseGroup, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	groups := make([]catalog.CourseGroup, 0, len(repo.db.groups))
	for _, g := range repo.db.groups {
		g.CourseCount = repo.countCourses(g.ID)
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].CreatedAt.After(groups[j].CreatedAt) })
	return groups, nil
}

func (repo *catalogRepository) DeleteGroup(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.groups[id]; !ok {
		return catalog.ErrGroupNotFound
	}
	if repo.countCourses(id) > 0 {
		return catalog.ErrGroupNotEmpty
	}
	delete(repo.db.groups, id)
	return nil
}
