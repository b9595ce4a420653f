package echoapi_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozgesheedu/ozgeshe/core"
	"github.com/ozgesheedu/ozgeshe/core/schedule"
	"github.com/ozgesheedu/ozgeshe/core/user"
	"github.com/ozgesheedu/ozgeshe/testutil"
)

func Test_scheduleApi(t *testing.T) {
	app := setup(t)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin@ozgeshe.kz", "", user.RoleAdmin, true)
	teacher := testutil.CreateUser(t, app.usrRepo, "Aigerim", "aigerim@ozgeshe.kz", "", user.RoleTeacher, true)
	other := testutil.CreateUser(t, app.usrRepo, "Bolat", "bolat@ozgeshe.kz", "", user.RoleTeacher, true)
	student := testutil.CreateUser(t, app.usrRepo, "Dana", "dana@ozgeshe.kz", "", user.RoleStudent, true)
	course := testutil.CreateCourse(t, app.catalogRepo, teacher, "English A1", core.SubjectEnglish, true)
	otherCourse := testutil.CreateCourse(t, app.catalogRepo, other, "Algebra", core.SubjectMath, true)
	lessons := testutil.CreateLessons(t, app.catalogRepo, course.ID, "A")
	foreign := testutil.CreateLessons(t, app.catalogRepo, otherCourse.ID, "X")
	teacherToken := app.getToken(t, teacher)

	tomorrow := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	slot := func(courseID, lessonID, studentID string, duration int) []byte {
		return []byte(fmt.Sprintf(
			`{"courseId": %q, "lessonId": %q, "studentId": %q, "date": %q, "durationMinutes": %d, "onlineLink": "https://meet.example.com/abc"}`,
			courseID, lessonID, studentID, tomorrow.Format(time.RFC3339), duration,
		))
	}

	tests := []httpTest{
		{name: "students cannot create", method: http.MethodPost, path: "/api/teacher/schedule", token: app.getToken(t, student), body: slot(course.ID, "", "", 60), wantCode: http.StatusForbidden},
		{name: "duration too short", method: http.MethodPost, path: "/api/teacher/schedule", token: teacherToken, body: slot(course.ID, "", "", 10), wantCode: http.StatusBadRequest},
		{name: "not the course owner", method: http.MethodPost, path: "/api/teacher/schedule", token: teacherToken, body: slot(otherCourse.ID, "", "", 60), wantCode: http.StatusForbidden},
		{
			name: "lesson of another course", method: http.MethodPost, path: "/api/teacher/schedule", token: teacherToken,
			body: slot(course.ID, foreign[0].ID, "", 60), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr("LESSON_NOT_IN_COURSE", "lesson not part of course")),
		},
		{
			name: "student is a teacher", method: http.MethodPost, path: "/api/teacher/schedule", token: teacherToken,
			body: slot(course.ID, "", other.ID, 60), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr("STUDENT_NOT_FOUND", "student not found")),
		},
	}
	app.run(t, tests)

	rec := app.do(http.MethodPost, "/api/teacher/schedule", teacherToken, slot(course.ID, lessons[0].ID, student.ID, 60))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created schedule.Slot
	unmarchall(t, rec, &created)
	assert.Equal(t, teacher.ID, created.TeacherID)
	assert.True(t, tomorrow.Equal(created.Date))

	t.Run("student schedule", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/my/schedule", app.getToken(t, student))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var slots []schedule.Slot
		unmarchall(t, rec, &slots)
		require.Len(t, slots, 1)
		assert.Equal(t, created.ID, slots[0].ID)
		require.NotNil(t, slots[0].Course)
		assert.Equal(t, "English A1", slots[0].Course.Name)
	})

	t.Run("teacher schedule", func(t *testing.T) {
		for _, tc := range []struct {
			token string
			want  int
		}{
			{teacherToken, 1},
			{app.getToken(t, other), 0},
			{app.getToken(t, admin), 1},
		} {
			rec := app.do(http.MethodGet, "/api/teacher/schedule", tc.token)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var slots []schedule.Slot
			unmarchall(t, rec, &slots)
			assert.Len(t, slots, tc.want)
		}
	})

	app.run(t, []httpTest{
		{name: "other teachers cannot edit", method: http.MethodPatch, path: "/api/teacher/schedule/" + created.ID, token: app.getToken(t, other), body: []byte(`{"durationMinutes": 90}`), wantCode: http.StatusForbidden},
		{name: "owner edits", method: http.MethodPatch, path: "/api/teacher/schedule/" + created.ID, token: teacherToken, body: []byte(`{"durationMinutes": 90, "studentId": ""}`), wantCode: http.StatusOK},
		{name: "student removed", path: "/api/my/schedule", token: app.getToken(t, student), wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{name: "delete", method: http.MethodDelete, path: "/api/teacher/schedule/" + created.ID, token: teacherToken, wantCode: http.StatusOK, wantData: []byte(`{"success": true}`)},
		{
			name: "already deleted", method: http.MethodDelete, path: "/api/teacher/schedule/" + created.ID, token: teacherToken, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr("SLOT_NOT_FOUND", "schedule slot not found")),
		},
	})
}
