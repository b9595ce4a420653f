package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/ozgesheedu/ozgeshe/core/schedule"
)

type scheduleRepository struct {
	db *DB
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *DB) schedule.Repository {
	return &scheduleRepository{db: db}
}

// hydrate fills the references of a stored slot.
func (repo *scheduleRepository) hydrate(s schedule.Slot) schedule.Slot {
	s.Course, s.Lesson, s.Student, s.Teacher = nil, nil, nil, nil
	if c, ok := repo.db.courses[s.CourseID]; ok {
		s.Course = &schedule.Ref{ID: c.ID, Name: c.Title}
	}
	if l, ok := repo.db.lessons[s.LessonID.String]; s.LessonID.Valid && ok {
		s.Lesson = &schedule.Ref{ID: l.ID, Name: l.Title}
	}
	if u, ok := repo.db.users[s.StudentID.String]; s.StudentID.Valid && ok {
		s.Student = &schedule.Ref{ID: u.ID, Name: u.Name}
	}
	if u, ok := repo.db.users[s.TeacherID]; ok {
		s.Teacher = &schedule.Ref{ID: u.ID, Name: u.Name}
	}
	return s
}

func sortByDate(slots []schedule.Slot) {
	sort.Slice(slots, func(i, j int) bool { return slots[i].Date.Before(slots[j].Date) })
}

func (repo *scheduleRepository) CreateSlot(_ context.Context, slot schedule.Slot) (schedule.Slot, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.slots[slot.ID] = slot
	return repo.hydrate(slot), nil
}

func (repo *scheduleRepository) GetSlot(_ context.Context, id string) (schedule.Slot, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.slots[id]; ok {
		return repo.hydrate(s), nil
	}
	return schedule.Slot{}, schedule.ErrNotFound
}

func (repo *scheduleRepository) ListTeacherSlots(_ context.Context, teacherID string) ([]schedule.Slot, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	slots := make([]schedule.Slot, 0)
	for _, s := range repo.db.slots {
		if teacherID == "" || s.TeacherID == teacherID {
			slots = append(slots, repo.hydrate(s))
		}
	}
	sortByDate(slots)
	return slots, nil
}

func (repo *scheduleRepository) ListStudentSlots(_ context.Context, studentID string, from time.Time, limit int) ([]schedule.Slot, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	slots := make([]schedule.Slot, 0)
	for _, s := range repo.db.slots {
		if s.StudentID.Valid && s.StudentID.String == studentID && !s.Date.Before(from) {
			slots = append(slots, repo.hydrate(s))
		}
	}
	sortByDate(slots)
	if limit > 0 && len(slots) > limit {
		slots = slots[:limit]
	}
	return slots, nil
}

func (repo *scheduleRepository) UpdateSlot(_ context.Context, slot schedule.Slot) (schedule.Slot, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.slots[slot.ID]; !ok {
		return schedule.Slot{}, schedule.ErrNotFound
	}
	repo.db.slots[slot.ID] = slot
	return repo.hydrate(slot), nil
}

func (repo *scheduleRepository) DeleteSlot(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.slots[id]; !ok {
		return schedule.ErrNotFound
	}
	delete(repo.db.slots, id)
	return nil
}
