package echoapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/ozgesheedu/ozgeshe/apps/api/echo"
	"github.com/ozgesheedu/ozgeshe/core/user"
	"github.com/ozgesheedu/ozgeshe/services/email"
	"github.com/ozgesheedu/ozgeshe/testutil"
)

func Test_userApi_register(t *testing.T) {
	app := setup(t)
	testutil.CreateUser(t, app.usrRepo, "Taken", "taken@ozgeshe.kz", "password123", user.RoleStudent, true)

	required := "this field is required"
	tests := []httpTest{
		{
			name: "empty body", method: http.MethodPost, path: "/api/auth/register", body: []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.ErrorResponse{
				Error: "validation failed", Code: "VALIDATION_FAILED",
				Fields: map[string]string{"name": required, "email": required, "password": required},
			}),
		},
		{
			name: "admin self registration", method: http.MethodPost, path: "/api/auth/register",
			body:     []byte(`{"name": "Eve", "email": "eve@ozgeshe.kz", "password": "password123", "role": "ADMIN"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr("ADMIN_SELF_REGISTER", "admin accounts cannot be self-registered")),
		},
		{
			name: "email taken", method: http.MethodPost, path: "/api/auth/register",
			body:     []byte(`{"name": "Copy", "email": " TAKEN@ozgeshe.kz", "password": "password123"}`),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr("EMAIL_TAKEN", "a user with this email already exists")),
		},
	}
	app.run(t, tests)

	t.Run("success", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/api/auth/register", "",
			[]byte(`{"name": "Dana", "email": "Dana@ozgeshe.kz", "password": "password123"}`))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp echoapi.AuthResponse
		unmarchall(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "dana@ozgeshe.kz", resp.User.Email)
		assert.Equal(t, user.RoleStudent, resp.User.Role)
		assert.NotContains(t, rec.Body.String(), "password")

		// the token is immediately usable
		rec = app.do(http.MethodGet, "/api/auth/me", resp.Token)
		require.Equal(t, http.StatusOK, rec.Code)
		var me user.User
		unmarchall(t, rec, &me)
		assert.Equal(t, resp.User.ID, me.ID)
	})
}

func Test_userApi_login(t *testing.T) {
	app := setup(t)
	testutil.CreateUser(t, app.usrRepo, "Dana", "dana@ozgeshe.kz", "password123", user.RoleStudent, true)
	testutil.CreateUser(t, app.usrRepo, "Gone", "gone@ozgeshe.kz", "password123", user.RoleStudent, false)

	invalid := marchallObj(t, httpErr("INVALID_CREDENTIALS", "invalid credentials"))
	tests := []httpTest{
		{
			name: "unknown email", method: http.MethodPost, path: "/api/auth/login",
			body: []byte(`{"email": "nobody@ozgeshe.kz", "password": "password123"}`), wantCode: http.StatusUnauthorized, wantData: invalid,
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/api/auth/login",
			body: []byte(`{"email": "dana@ozgeshe.kz", "password": "wrong-password"}`), wantCode: http.StatusUnauthorized, wantData: invalid,
		},
		{
			name: "deactivated", method: http.MethodPost, path: "/api/auth/login",
			body: []byte(`{"email": "gone@ozgeshe.kz", "password": "password123"}`), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr("ACCOUNT_DISABLED", "account disabled")),
		},
	}
	app.run(t, tests)

	t.Run("success", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/api/auth/login", "", []byte(`{"email": "DANA@ozgeshe.kz", "password": "password123"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp echoapi.AuthResponse
		unmarchall(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.True(t, resp.User.LastLogin.Valid)
	})
}

func Test_userApi_me(t *testing.T) {
	app := setup(t)
	dana := testutil.CreateUser(t, app.usrRepo, "Dana", "dana@ozgeshe.kz", "", user.RoleStudent, true)
	gone := testutil.CreateUser(t, app.usrRepo, "Gone", "gone@ozgeshe.kz", "", user.RoleStudent, false)
	unauthorized := marchallObj(t, httpErr("UNAUTHORIZED", "user not authenticated"))

	tests := []httpTest{
		{name: "auth required", path: "/api/auth/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "deactivated user", path: "/api/auth/me", token: app.getToken(t, gone), wantCode: http.StatusUnauthorized, wantData: unauthorized},
		{
			name: "unknown user", path: "/api/auth/me", wantCode: http.StatusUnauthorized, wantData: unauthorized,
			token: app.getToken(t, user.User{ID: "d6c3e1a2-2b7e-4a53-9c0c-6f1b2f0e1d11", Role: user.RoleAdmin}),
		},
		{name: "ok", path: "/api/auth/me", token: app.getToken(t, dana), wantCode: http.StatusOK, wantData: marchallObj(t, dana)},
	}
	app.run(t, tests)

	t.Run("tampered token", func(t *testing.T) {
		token := app.getToken(t, dana)
		rec := app.do(http.MethodGet, "/api/auth/me", token+"x")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func Test_userApi_refreshToken(t *testing.T) {
	app := setup(t)
	dana := testutil.CreateUser(t, app.usrRepo, "Dana", "dana@ozgeshe.kz", "", user.RoleStudent, true)

	expired := echoapi.GetUserClaims(app.conf, dana, time.Now().Add(-app.conf.Server.JWTRefreshExpirationDelta-time.Hour).Unix())
	expiredToken, err := echoapi.GenerateToken(app.conf, expired)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/api/auth/token-refresh", wantCode: http.StatusUnauthorized},
		{
			name: "refresh expired", method: http.MethodPost, path: "/api/auth/token-refresh", token: expiredToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr("REFRESH_EXPIRED", "refresh has expired")),
		},
		{name: "ok", method: http.MethodPost, path: "/api/auth/token-refresh", token: app.getToken(t, dana), wantCode: http.StatusOK},
	}
	app.run(t, tests)
}

func Test_userApi_passwordReset(t *testing.T) {
	app := setup(t)
	testutil.CreateUser(t, app.usrRepo, "Dana", "dana@ozgeshe.kz", "password123", user.RoleStudent, true)
	ok := marchallObj(t, echoapi.SuccessResponse{Success: true})

	// unknown emails get the same answer
	app.run(t, []httpTest{
		{name: "unknown email", method: http.MethodPost, path: "/api/auth/password-reset", body: []byte(`{"email": "nobody@ozgeshe.kz"}`), wantCode: http.StatusOK, wantData: ok},
	})
	assert.Empty(t, emailsvc.SentMessages())

	app.run(t, []httpTest{
		{name: "known email", method: http.MethodPost, path: "/api/auth/password-reset", body: []byte(`{"email": "dana@ozgeshe.kz"}`), wantCode: http.StatusOK, wantData: ok},
	})
	sent := emailsvc.SentMessages()
	require.Len(t, sent, 1)
	data, isMap := sent[0].TemplateData.(map[string]string)
	require.True(t, isMap)

	app.run(t, []httpTest{
		{
			name: "bad token", method: http.MethodPost, path: "/api/auth/password-reset-confirm",
			body:     []byte(`{"uid": "` + data["UID"] + `", "token": "nope", "password": "new-password", "passwordConfirm": "new-password"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "confirm", method: http.MethodPost, path: "/api/auth/password-reset-confirm",
			body:     []byte(`{"uid": "` + data["UID"] + `", "token": "` + data["Token"] + `", "password": "new-password", "passwordConfirm": "new-password"}`),
			wantCode: http.StatusOK, wantData: ok,
		},
		{
			name: "login with new password", method: http.MethodPost, path: "/api/auth/login",
			body: []byte(`{"email": "dana@ozgeshe.kz", "password": "new-password"}`), wantCode: http.StatusOK,
		},
	})
}

func Test_userApi_admin(t *testing.T) {
	app := setup(t)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin@ozgeshe.kz", "", user.RoleAdmin, true)
	teacher := testutil.CreateUser(t, app.usrRepo, "Aigerim", "aigerim@ozgeshe.kz", "", user.RoleTeacher, true)
	student := testutil.CreateUser(t, app.usrRepo, "Dana", "dana@ozgeshe.kz", "", user.RoleStudent, false)
	adminToken := app.getToken(t, admin)

	forbidden := marchallObj(t, httpErr("FORBIDDEN", "permission denied"))
	tests := []httpTest{
		{name: "auth required", path: "/api/admin/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "admin required", path: "/api/admin/users", token: app.getToken(t, teacher), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "role filter", path: "/api/admin/users?role=TEACHER", token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, []user.User{teacher})},
		{name: "isActive filter", path: "/api/admin/users?isActive=false", token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, []user.User{student})},
		{name: "bad isActive", path: "/api/admin/users?isActive=maybe", token: adminToken, wantCode: http.StatusBadRequest},
		{name: "lowercase role", path: "/api/admin/users?role=teacher&ordering=-createdAt,,name", token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, []user.User{teacher})},
		{
			name: "bad role", path: "/api/admin/users?role=JANITOR", token: adminToken, wantCode: http.StatusBadRequest,
			wantData: []byte(`{"error": "validation failed", "code": "VALIDATION_FAILED", "fields": {"role": "role is not valid"}}`),
		},
		{name: "search", path: "/api/admin/users?search=AIGER", token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, []user.User{teacher})},
		{
			name: "admin cannot demote themselves", method: http.MethodPatch, path: "/api/admin/users/" + admin.ID, token: adminToken,
			body: []byte(`{"role": "TEACHER"}`), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr("SELF_UPDATE_FORBIDDEN", "admins cannot demote or deactivate themselves")),
		},
		{
			name: "invalid role", method: http.MethodPatch, path: "/api/admin/users/" + teacher.ID, token: adminToken,
			body: []byte(`{"role": "ROOT"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.ErrorResponse{
				Error: "validation failed", Code: "VALIDATION_FAILED",
				Fields: map[string]string{"role": "role must be one of ADMIN, TEACHER, STUDENT"},
			}),
		},
		{
			name: "unknown user", method: http.MethodPatch, path: "/api/admin/users/8f8e5d36-34a4-4d2d-a4c6-1d8f0b8e6a11", token: adminToken,
			body: []byte(`{"isActive": true}`), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr("USER_NOT_FOUND", "user not found")),
		},
	}
	app.run(t, tests)

	t.Run("activate and set subjects", func(t *testing.T) {
		rec := app.do(http.MethodPatch, "/api/admin/users/"+student.ID, adminToken,
			[]byte(`{"isActive": true, "role": "TEACHER", "subjects": ["ENGLISH", "ENGLISH"]}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var usr user.User
		unmarchall(t, rec, &usr)
		assert.True(t, usr.IsActive)
		assert.Equal(t, user.RoleTeacher, usr.Role)
		assert.Len(t, usr.Subjects, 1)
		assert.Equal(t, "ENGLISH", string(usr.Subjects[0]))
	})
}
