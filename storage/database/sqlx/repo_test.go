package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozgesheedu/ozgeshe/core"
	"github.com/ozgesheedu/ozgeshe/core/catalog"
	"github.com/ozgesheedu/ozgeshe/core/commerce"
	"github.com/ozgesheedu/ozgeshe/core/enrollment"
	"github.com/ozgesheedu/ozgeshe/core/user"
	emailsvc "github.com/ozgesheedu/ozgeshe/services/email"
	logsvc "github.com/ozgesheedu/ozgeshe/services/logger"
	sqlxrepos "github.com/ozgesheedu/ozgeshe/storage/database/sqlx"
	"github.com/ozgesheedu/ozgeshe/testutil"
)

func lessonTitles(t *testing.T, repo catalog.Repository, courseID string) []string {
	t.Helper()
	lessons, err := repo.ListLessons(context.Background(), courseID)
	require.NoError(t, err)
	titles := make([]string, 0, len(lessons))
	for i, l := range lessons {
		require.Equal(t, i+1, l.OrderIndex, "order indexes must be 1..N")
		titles = append(titles, l.Title)
	}
	return titles
}

func newLesson(title string, pos int) catalog.NewLesson {
	return catalog.NewLesson{
		Title:        title,
		Description:  "Lesson " + title,
		VideoURL:     "https://video.example.com/" + title,
		HomeworkText: "Homework for " + title,
		OrderIndex:   pos,
	}
}

func Test_catalogRepository_lessonOrdering(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	usrRepo := sqlxrepos.NewUserRepository(db)
	repo := sqlxrepos.NewCatalogRepository(db)
	svc := catalog.NewService(repo, logsvc.NewNopLogger())

	teacher := testutil.CreateUser(t, usrRepo, "Aigerim", "aigerim@ozgeshe.kz", "", user.RoleTeacher, true)
	actor := teacher.Actor()
	course := testutil.CreateCourse(t, repo, teacher, "English A1", core.SubjectEnglish, true)
	lessons := testutil.CreateLessons(t, repo, course.ID, "Alpha", "Bravo", "Charlie", "Delta")

	// move Delta to 2
	pos := 2
	_, err := svc.UpdateLesson(ctx, actor, lessons[3].ID, catalog.UpdateLesson{OrderIndex: &pos})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Delta", "Bravo", "Charlie"}, lessonTitles(t, repo, course.ID))

	// move Alpha to the end, past N
	pos = 10
	_, err = svc.UpdateLesson(ctx, actor, lessons[0].ID, catalog.UpdateLesson{OrderIndex: &pos})
	require.NoError(t, err)
	assert.Equal(t, []string{"Delta", "Bravo", "Charlie", "Alpha"}, lessonTitles(t, repo, course.ID))

	// delete at 2
	require.NoError(t, svc.DeleteLesson(ctx, actor, lessons[1].ID))
	assert.Equal(t, []string{"Delta", "Charlie", "Alpha"}, lessonTitles(t, repo, course.ID))

	// insert at 1, then past the end
	_, err = svc.CreateLesson(ctx, actor, course.ID, newLesson("Echo", 1))
	require.NoError(t, err)
	_, err = svc.CreateLesson(ctx, actor, course.ID, newLesson("Foxtrot", 42))
	require.NoError(t, err)
	assert.Equal(t, []string{"Echo", "Delta", "Charlie", "Alpha", "Foxtrot"}, lessonTitles(t, repo, course.ID))

	// a failing unit of work leaves the order untouched
	err = repo.WithLessonsLocked(ctx, course.ID, func(w catalog.LessonWriter) error {
		if err := w.ShiftLessons(ctx, 1, 5, 1); err != nil {
			return err
		}
		return catalog.ErrLessonNotFound
	})
	assert.Equal(t, catalog.ErrLessonNotFound, err)
	assert.Equal(t, []string{"Echo", "Delta", "Charlie", "Alpha", "Foxtrot"}, lessonTitles(t, repo, course.ID))

	err = repo.WithLessonsLocked(ctx, uuid.New().String(), func(w catalog.LessonWriter) error { return nil })
	assert.Equal(t, catalog.ErrCourseNotFound, err)
}

func Test_enrollmentRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	usrRepo := sqlxrepos.NewUserRepository(db)
	catalogRepo := sqlxrepos.NewCatalogRepository(db)
	repo := sqlxrepos.NewEnrollmentRepository(db)
	svc := enrollment.NewService(repo, catalogRepo)

	teacher := testutil.CreateUser(t, usrRepo, "Aigerim", "aigerim@ozgeshe.kz", "", user.RoleTeacher, true)
	student := testutil.CreateUser(t, usrRepo, "Dana", "dana@ozgeshe.kz", "", user.RoleStudent, true)
	course := testutil.CreateCourse(t, catalogRepo, teacher, "English A1", core.SubjectEnglish, true)
	lessons := testutil.CreateLessons(t, catalogRepo, course.ID, "Alpha", "Bravo", "Charlie")
	actor := student.Actor()

	e, err := svc.Enroll(ctx, actor, course.ID)
	require.NoError(t, err)
	assert.Equal(t, teacher.ID, e.TeacherID.String)
	assert.Equal(t, enrollment.StatusActive, e.Status)

	_, err = svc.Enroll(ctx, actor, course.ID)
	assert.Equal(t, enrollment.ErrAlreadyEnrolled, err)

	t.Run("unique constraint backstop", func(t *testing.T) {
		_, err := repo.CreateEnrollment(ctx, enrollment.Enrollment{
			ID:          uuid.New().String(),
			StudentID:   student.ID,
			CourseID:    course.ID,
			Status:      enrollment.StatusActive,
			PurchasedAt: time.Now().UTC(),
		})
		assert.Equal(t, enrollment.ErrAlreadyEnrolled, err)
	})

	t.Run("second submission supersedes the first", func(t *testing.T) {
		first, second := "first answer", "second answer"
		_, err := svc.SubmitHomework(ctx, actor, lessons[0].ID, enrollment.Submission{HomeworkAnswer: &first})
		require.NoError(t, err)
		_, err = svc.SubmitHomework(ctx, actor, lessons[0].ID, enrollment.Submission{HomeworkAnswer: &second})
		require.NoError(t, err)

		progress, err := repo.ListProgress(ctx, e.ID)
		require.NoError(t, err)
		require.Len(t, progress, 1)
		assert.Equal(t, "second answer", progress[0].HomeworkAnswer.String)
		assert.True(t, progress[0].IsCompleted)
	})

	t.Run("summaries", func(t *testing.T) {
		summaries, err := svc.ListMine(ctx, actor)
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, 1, summaries[0].CompletedLessons)
		assert.Equal(t, 3, summaries[0].TotalLessons)
		assert.Equal(t, 33, summaries[0].Progress)
	})

	t.Run("course deletion cascades", func(t *testing.T) {
		require.NoError(t, catalogRepo.DeleteCourse(ctx, course.ID))
		_, err := repo.GetEnrollment(ctx, student.ID, course.ID)
		assert.Equal(t, enrollment.ErrNotFound, err)
		progress, err := repo.ListProgress(ctx, e.ID)
		require.NoError(t, err)
		assert.Empty(t, progress)
	})
}

func Test_commerceRepository_orders(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	conf := core.NewTestConfig()
	logger := logsvc.NewNopLogger()
	usrRepo := sqlxrepos.NewUserRepository(db)
	repo := sqlxrepos.NewCommerceRepository(db)
	svc := commerce.NewService(repo, emailsvc.NewConsoleServiceMock(conf, logger))

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@ozgeshe.kz", "", user.RoleAdmin, true)
	student := testutil.CreateUser(t, usrRepo, "Dana", "dana@ozgeshe.kz", "", user.RoleStudent, true)
	grammar := testutil.CreateBook(t, repo, "Grammar", core.MoneyFromFloat(20))
	vocab := testutil.CreateBook(t, repo, "Vocabulary", core.MoneyFromFloat(12.5))
	actor := student.Actor()

	_, err := svc.PlaceOrder(ctx, actor, commerce.NewOrder{Items: []commerce.NewOrderItem{
		{BookID: grammar.ID, Quantity: 1},
		{BookID: uuid.New().String(), Quantity: 1},
	}})
	assert.Equal(t, commerce.ErrBooksUnavailable, err)
	orders, err := svc.ListMine(ctx, actor)
	require.NoError(t, err)
	assert.Empty(t, orders)

	order, err := svc.PlaceOrder(ctx, actor, commerce.NewOrder{Items: []commerce.NewOrderItem{
		{BookID: grammar.ID, Quantity: 1},
		{BookID: vocab.ID, Quantity: 2},
	}})
	require.NoError(t, err)
	assert.Equal(t, core.MoneyFromFloat(45), order.TotalPrice)

	price := core.MoneyFromFloat(30)
	_, err = svc.UpdateBook(ctx, admin.Actor(), grammar.ID, commerce.UpdateBook{Price: &price})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteBook(ctx, admin.Actor(), vocab.ID))

	got, err := svc.GetMine(ctx, actor, order.ID)
	require.NoError(t, err)
	assert.Equal(t, core.MoneyFromFloat(45), got.TotalPrice)
	require.Len(t, got.Items, 2)
	// items come back in the order they were submitted
	assert.Equal(t, "Grammar", got.Items[0].Title)
	assert.Equal(t, core.MoneyFromFloat(20), got.Items[0].PriceAtPurchase)
	assert.Equal(t, grammar.ID, got.Items[0].BookID.String)
	assert.Equal(t, "Vocabulary", got.Items[1].Title)
	assert.Equal(t, core.MoneyFromFloat(12.5), got.Items[1].PriceAtPurchase)
	assert.False(t, got.Items[1].BookID.Valid, "deleted books are unlinked")

	_, err = svc.GetMine(ctx, admin.Actor(), order.ID)
	assert.Equal(t, commerce.ErrOrderNotFound, err)
}
