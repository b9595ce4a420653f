package catalog

import (
	"context"
	"math"

	"github.com/pkg/errors"
)

// maxOrderIndex is the open upper bound of a shift range.
const maxOrderIndex = math.MaxInt32

// LessonWriter performs the lesson writes of one course inside a single unit of work.
// Implementations only touch lessons of the locked course.
type LessonWriter interface {
	CountLessons(ctx context.Context) (int, error)
	GetLesson(ctx context.Context, id string) (Lesson, error)
	// ShiftLessons adds delta to the orderIndex of every lesson with from <= orderIndex <= to.
	ShiftLessons(ctx context.Context, from, to, delta int) error
	CreateLesson(ctx context.Context, lesson Lesson) (Lesson, error)
	UpdateLesson(ctx context.Context, lesson Lesson) (Lesson, error)
	DeleteLesson(ctx context.Context, id string) error
}

// clamp bounds pos to [lo, hi].
func clamp(pos, lo, hi int) int {
	if pos < lo {
		return lo
	}
	if pos > hi {
		return hi
	}
	return pos
}

// insertLesson writes lesson at position pos (1-indexed, 0 appends), making room by shifting
// every lesson at or after pos down by one.
func insertLesson(ctx context.Context, w LessonWriter, lesson Lesson, pos int) (Lesson, error) {
	count, err := w.CountLessons(ctx)
	if err != nil {
		return Lesson{}, errors.Wrap(err, "counting lessons")
	}
	if pos == 0 {
		pos = count + 1
	}
	pos = clamp(pos, 1, count+1)

	if pos <= count {
		if err = w.ShiftLessons(ctx, pos, maxOrderIndex, 1); err != nil {
			return Lesson{}, errors.Wrap(err, "shifting lessons")
		}
	}
	lesson.OrderIndex = pos
	created, err := w.CreateLesson(ctx, lesson)
	return created, errors.Wrap(err, "creating lesson")
}

// moveLesson saves lesson at position `to`, where lesson.OrderIndex still holds its current position.
// Lessons between the two positions close the gap left behind.
func moveLesson(ctx context.Context, w LessonWriter, lesson Lesson, to int) (Lesson, error) {
	count, err := w.CountLessons(ctx)
	if err != nil {
		return Lesson{}, errors.Wrap(err, "counting lessons")
	}
	from := lesson.OrderIndex
	to = clamp(to, 1, count)

	switch {
	case to < from:
		err = w.ShiftLessons(ctx, to, from-1, 1)
	case to > from:
		err = w.ShiftLessons(ctx, from+1, to, -1)
	}
	if err != nil {
		return Lesson{}, errors.Wrap(err, "shifting lessons")
	}

	lesson.OrderIndex = to
	updated, err := w.UpdateLesson(ctx, lesson)
	return updated, errors.Wrap(err, "updating lesson")
}

// removeLesson deletes lesson and pulls every later lesson up by one.
func removeLesson(ctx context.Context, w LessonWriter, lesson Lesson) error {
	if err := w.DeleteLesson(ctx, lesson.ID); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return errors.Wrap(w.ShiftLessons(ctx, lesson.OrderIndex+1, maxOrderIndex, -1), "shifting lessons")
}
