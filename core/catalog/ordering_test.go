package catalog

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memWriter is a LessonWriter over a single course kept in memory.
type memWriter struct {
	lessons map[string]Lesson
	failOn  string // name of the operation that fails, if any
}

func newMemWriter(titles ...string) *memWriter {
	w := &memWriter{lessons: make(map[string]Lesson)}
	for i, t := range titles {
		w.lessons[t] = Lesson{ID: t, Title: t, OrderIndex: i + 1}
	}
	return w
}

func (w *memWriter) fail(op string) error {
	if w.failOn == op {
		return errors.New(op + " failed")
	}
	return nil
}

func (w *memWriter) CountLessons(context.Context) (int, error) { return len(w.lessons), w.fail("count") }

func (w *memWriter) GetLesson(_ context.Context, id string) (Lesson, error) {
	l, ok := w.lessons[id]
	if !ok {
		return Lesson{}, ErrLessonNotFound
	}
	return l, nil
}

func (w *memWriter) ShiftLessons(_ context.Context, from, to, delta int) error {
	if err := w.fail("shift"); err != nil {
		return err
	}
	for id, l := range w.lessons {
		if l.OrderIndex >= from && l.OrderIndex <= to {
			l.OrderIndex += delta
			w.lessons[id] = l
		}
	}
	return nil
}

func (w *memWriter) CreateLesson(_ context.Context, l Lesson) (Lesson, error) {
	w.lessons[l.ID] = l
	return l, w.fail("create")
}

func (w *memWriter) UpdateLesson(_ context.Context, l Lesson) (Lesson, error) {
	w.lessons[l.ID] = l
	return l, nil
}

func (w *memWriter) DeleteLesson(_ context.Context, id string) error {
	delete(w.lessons, id)
	return nil
}

// ordered returns "title:index" pairs by orderIndex.
func (w *memWriter) ordered() []string {
	ls := make([]Lesson, 0, len(w.lessons))
	for _, l := range w.lessons {
		ls = append(ls, l)
	}
	sort.Slice(ls, func(i, j int) bool { return ls[i].OrderIndex < ls[j].OrderIndex })
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, fmt.Sprintf("%s:%d", l.Title, l.OrderIndex))
	}
	return out
}

// assertDense checks that the orderIndex set is exactly {1..N}.
func assertDense(t *testing.T, w *memWriter) {
	t.Helper()
	seen := make(map[int]bool, len(w.lessons))
	for _, l := range w.lessons {
		require.False(t, seen[l.OrderIndex], "duplicate orderIndex %d", l.OrderIndex)
		seen[l.OrderIndex] = true
	}
	for i := 1; i <= len(w.lessons); i++ {
		require.True(t, seen[i], "missing orderIndex %d in %v", i, w.ordered())
	}
}

func TestInsertLesson(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		pos  int
		want []string
	}{
		{name: "append (zero)", pos: 0, want: []string{"A:1", "B:2", "C:3", "N:4"}},
		{name: "first", pos: 1, want: []string{"N:1", "A:2", "B:3", "C:4"}},
		{name: "middle", pos: 2, want: []string{"A:1", "N:2", "B:3", "C:4"}},
		{name: "end", pos: 4, want: []string{"A:1", "B:2", "C:3", "N:4"}},
		{name: "past the end is clamped", pos: 99, want: []string{"A:1", "B:2", "C:3", "N:4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newMemWriter("A", "B", "C")
			created, err := insertLesson(ctx, w, Lesson{ID: "N", Title: "N"}, tt.pos)
			require.NoError(t, err)
			assert.Equal(t, tt.want, w.ordered())
			assert.Equal(t, w.lessons["N"].OrderIndex, created.OrderIndex)
		})
	}

	t.Run("into an empty course", func(t *testing.T) {
		w := newMemWriter()
		_, err := insertLesson(ctx, w, Lesson{ID: "N", Title: "N"}, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"N:1"}, w.ordered())
	})
}

func TestMoveLesson(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		lesson string
		to     int
		want   []string
	}{
		{name: "last to second", lesson: "D", to: 2, want: []string{"A:1", "D:2", "B:3", "C:4"}},
		{name: "first to third", lesson: "A", to: 3, want: []string{"B:1", "C:2", "A:3", "D:4"}},
		{name: "to first", lesson: "C", to: 1, want: []string{"C:1", "A:2", "B:3", "D:4"}},
		{name: "past the end is clamped", lesson: "B", to: 10, want: []string{"A:1", "C:2", "D:3", "B:4"}},
		{name: "same position", lesson: "B", to: 2, want: []string{"A:1", "B:2", "C:3", "D:4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newMemWriter("A", "B", "C", "D")
			moved, err := moveLesson(ctx, w, w.lessons[tt.lesson], tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.want, w.ordered())
			assert.Equal(t, w.lessons[tt.lesson].OrderIndex, moved.OrderIndex)
		})
	}
}

func TestRemoveLesson(t *testing.T) {
	ctx := context.Background()

	w := newMemWriter("A", "B", "C")
	require.NoError(t, removeLesson(ctx, w, w.lessons["B"]))
	assert.Equal(t, []string{"A:1", "C:2"}, w.ordered())

	require.NoError(t, removeLesson(ctx, w, w.lessons["C"]))
	assert.Equal(t, []string{"A:1"}, w.ordered())
}

func TestOrderingFailuresPropagate(t *testing.T) {
	ctx := context.Background()
	for _, op := range []string{"count", "shift", "create"} {
		w := newMemWriter("A", "B")
		w.failOn = op
		_, err := insertLesson(ctx, w, Lesson{ID: "N", Title: "N"}, 1)
		assert.Error(t, err, op)
	}
}

func TestOrderingStaysDense(t *testing.T) {
	ctx := context.Background()
	rnd := rand.New(rand.NewSource(42))
	w := newMemWriter()

	var next int
	for step := 0; step < 2000; step++ {
		n := len(w.lessons)
		switch op := rnd.Intn(3); {
		case op == 0 || n == 0:
			next++
			id := fmt.Sprintf("L%d", next)
			_, err := insertLesson(ctx, w, Lesson{ID: id, Title: id}, rnd.Intn(n+3))
			require.NoError(t, err)
		case op == 1:
			l := w.lessons[randomID(rnd, w)]
			_, err := moveLesson(ctx, w, l, rnd.Intn(n+3)-1)
			require.NoError(t, err)
		default:
			l := w.lessons[randomID(rnd, w)]
			require.NoError(t, removeLesson(ctx, w, l))
		}
		assertDense(t, w)
	}
}

func randomID(rnd *rand.Rand, w *memWriter) string {
	ids := make([]string, 0, len(w.lessons))
	for id := range w.lessons {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids[rnd.Intn(len(ids))]
}
