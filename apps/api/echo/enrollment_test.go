package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozgesheedu/ozgeshe/core"
	"github.com/ozgesheedu/ozgeshe/core/enrollment"
	"github.com/ozgesheedu/ozgeshe/core/user"
	"github.com/ozgesheedu/ozgeshe/testutil"
)

func Test_enrollmentApi(t *testing.T) {
	app := setup(t)
	teacher := testutil.CreateUser(t, app.usrRepo, "Aigerim", "aigerim@ozgeshe.kz", "", user.RoleTeacher, true)
	other := testutil.CreateUser(t, app.usrRepo, "Bolat", "bolat@ozgeshe.kz", "", user.RoleTeacher, true)
	student := testutil.CreateUser(t, app.usrRepo, "Dana", "dana@ozgeshe.kz", "", user.RoleStudent, true)
	course := testutil.CreateCourse(t, app.catalogRepo, teacher, "English A1", core.SubjectEnglish, true)
	draft := testutil.CreateCourse(t, app.catalogRepo, teacher, "Draft", core.SubjectEnglish, false)
	lessons := testutil.CreateLessons(t, app.catalogRepo, course.ID, "A", "B", "C")
	foreign := testutil.CreateLessons(t, app.catalogRepo, draft.ID, "X")
	studentToken := app.getToken(t, student)

	t.Run("enroll", func(t *testing.T) {
		tests := []httpTest{
			{name: "students only", method: http.MethodPost, path: "/api/courses/" + course.ID + "/enroll", token: app.getToken(t, teacher), wantCode: http.StatusForbidden},
			{
				name: "unpublished course", method: http.MethodPost, path: "/api/courses/" + draft.ID + "/enroll", token: studentToken,
				wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr("COURSE_NOT_AVAILABLE", "course not available")),
			},
			{name: "first enrollment", method: http.MethodPost, path: "/api/courses/" + course.ID + "/enroll", token: studentToken, wantCode: http.StatusCreated},
			{
				name: "second enrollment", method: http.MethodPost, path: "/api/courses/" + course.ID + "/enroll", token: studentToken,
				wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr("ALREADY_ENROLLED", "already enrolled in this course")),
			},
		}
		app.run(t, tests)
	})

	t.Run("complete", func(t *testing.T) {
		tests := []httpTest{
			{
				name: "not enrolled", method: http.MethodPost, path: "/api/lessons/" + foreign[0].ID + "/complete", token: studentToken,
				wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr("NOT_ENROLLED", "not enrolled in this course")),
			},
			{name: "first submission", method: http.MethodPost, path: "/api/lessons/" + lessons[0].ID + "/complete", token: studentToken, body: []byte(`{"homeworkAnswer": "first answer"}`), wantCode: http.StatusOK},
			{name: "second submission", method: http.MethodPost, path: "/api/lessons/" + lessons[0].ID + "/complete", token: studentToken, body: []byte(`{"homeworkAnswer": "second answer"}`), wantCode: http.StatusOK},
			{name: "mark only", method: http.MethodPost, path: "/api/lessons/" + lessons[1].ID + "/complete", token: studentToken, wantCode: http.StatusOK},
		}
		app.run(t, tests)
	})

	t.Run("my enrollments", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/my/enrollments", studentToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var summaries []enrollment.Summary
		unmarchall(t, rec, &summaries)
		require.Len(t, summaries, 1)
		assert.Equal(t, 2, summaries[0].CompletedLessons)
		assert.Equal(t, 3, summaries[0].TotalLessons)
		assert.Equal(t, 67, summaries[0].Progress)
		assert.Equal(t, teacher.ID, summaries[0].TeacherID.String)

		rec = app.do(http.MethodGet, "/api/my/enrollments/"+summaries[0].ID, studentToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var detail enrollment.Detail
		unmarchall(t, rec, &detail)
		require.Len(t, detail.Lessons, 3)
		assert.True(t, detail.Lessons[0].IsCompleted)
		assert.Equal(t, "second answer", detail.Lessons[0].HomeworkAnswer.String)
		assert.True(t, detail.Lessons[1].IsCompleted)
		assert.False(t, detail.Lessons[1].HomeworkAnswer.Valid)
		assert.False(t, detail.Lessons[2].IsCompleted)

		// course page shows the student's completion
		page := app.getCourse(t, course.ID, studentToken)
		require.Len(t, page.Lessons, 3)
		assert.True(t, page.Lessons[0].IsCompleted)
		assert.False(t, page.Lessons[2].IsCompleted)

		app.run(t, []httpTest{
			{name: "someone else's enrollment", path: "/api/my/enrollments/" + summaries[0].ID, token: app.getToken(t, testutil.CreateUser(t, app.usrRepo, "Erlan", "erlan@ozgeshe.kz", "", user.RoleStudent, true)), wantCode: http.StatusNotFound},
			{name: "students only", path: "/api/my/enrollments", token: app.getToken(t, teacher), wantCode: http.StatusForbidden},
		})
	})

	t.Run("teacher enrollments", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/teacher/enrollments", app.getToken(t, teacher))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var rows []enrollment.TeacherRow
		unmarchall(t, rec, &rows)
		require.Len(t, rows, 1)
		assert.Equal(t, student.ID, rows[0].Student.ID)
		assert.Equal(t, course.ID, rows[0].Course.ID)

		app.run(t, []httpTest{
			{name: "other teacher sees nothing", path: "/api/teacher/enrollments", token: app.getToken(t, other), wantCode: http.StatusOK, wantData: []byte(`[]`)},
			{name: "students cannot list", path: "/api/teacher/enrollments", token: studentToken, wantCode: http.StatusForbidden},
		})
	})
}
