// Package dummydb is an in-memory implementation of every repository, used by tests and local runs.
package dummydb

import (
	"sort"
	"strings"
	"sync"

	"github.com/ozgesheedu/ozgeshe/core/catalog"
	"github.com/ozgesheedu/ozgeshe/core/commerce"
	"github.com/ozgesheedu/ozgeshe/core/enrollment"
	"github.com/ozgesheedu/ozgeshe/core/schedule"
	"github.com/ozgesheedu/ozgeshe/core/user"
)

// DB holds every table behind one lock, so cascades are atomic.
type DB struct {
	sync.RWMutex

	users       map[string]user.User
	groups      map[string]catalog.CourseGroup
	courses     map[string]catalog.Course
	lessons     map[string]catalog.Lesson
	enrollments map[string]enrollment.Enrollment
	progress    map[string]enrollment.Progress
	slots       map[string]schedule.Slot
	books       map[string]commerce.Book
	orders      map[string]commerce.Order
}

func Open() (*DB, error) {
	db := &DB{
		users:       make(map[string]user.User),
		groups:      make(map[string]catalog.CourseGroup),
		courses:     make(map[string]catalog.Course),
		lessons:     make(map[string]catalog.Lesson),
		enrollments: make(map[string]enrollment.Enrollment),
		progress:    make(map[string]enrollment.Progress),
		slots:       make(map[string]schedule.Slot),
		books:       make(map[string]commerce.Book),
		orders:      make(map[string]commerce.Order),
	}
	return db, nil
}

// Close is a no-op, it lets DB stand in for a real connection.
func (db *DB) Close() error { return nil }

// deleteCourse removes the course and everything that references it. Callers hold the write lock.
func (db *DB) deleteCourse(id string) {
	delete(db.courses, id)
	for lid, l := range db.lessons {
		if l.CourseID == id {
			db.deleteLesson(lid)
		}
	}
	for eid, e := range db.enrollments {
		if e.CourseID == id {
			db.deleteEnrollment(eid)
		}
	}
	for sid, s := range db.slots {
		if s.CourseID == id {
			delete(db.slots, sid)
		}
	}
}

func (db *DB) deleteLesson(id string) {
	delete(db.lessons, id)
	for pid, p := range db.progress {
		if p.LessonID == id {
			delete(db.progress, pid)
		}
	}
	for sid, s := range db.slots {
		if s.LessonID.Valid && s.LessonID.String == id {
			s.LessonID.Valid = false
			s.LessonID.String = ""
			db.slots[sid] = s
		}
	}
}

func (db *DB) deleteEnrollment(id string) {
	delete(db.enrollments, id)
	for pid, p := range db.progress {
		if p.EnrollmentID == id {
			delete(db.progress, pid)
		}
	}
}

func (db *DB) courseLessons(courseID string) []catalog.Lesson {
	lessons := make([]catalog.Lesson, 0)
	for _, l := range db.lessons {
		if l.CourseID == courseID {
			lessons = append(lessons, l)
		}
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].OrderIndex < lessons[j].OrderIndex })
	return lessons
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
