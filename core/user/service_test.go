package user_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozgesheedu/ozgeshe/core"
	"github.com/ozgesheedu/ozgeshe/core/user"
	"github.com/ozgesheedu/ozgeshe/services/email"
	"github.com/ozgesheedu/ozgeshe/services/logger"
	"github.com/ozgesheedu/ozgeshe/storage/database/dummy"
	"github.com/ozgesheedu/ozgeshe/testutil"
)

func setup(t *testing.T) (user.Repository, *user.Service) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewUserRepository(db)
	conf := core.NewTestConfig()
	emailsvc.ResetSentMessages()
	return repo, user.NewService(repo, emailsvc.NewConsoleServiceMock(conf, logsvc.NewNopLogger()), conf)
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	repo, svc := setup(t)
	testutil.CreateUser(t, repo, "Dana", "dana@ozgeshe.kz", "", user.RoleStudent, true)

	tests := []struct {
		name     string
		input    user.NewUser
		wantErr  error
		wantRole user.Role
	}{
		{name: "default role", input: user.NewUser{Name: "Erlan", Email: "erlan@ozgeshe.kz", Password: "password1"}, wantRole: user.RoleStudent},
		{name: "teacher", input: user.NewUser{Name: "Aigerim", Email: "aigerim@ozgeshe.kz", Password: "password1", Role: user.RoleTeacher}, wantRole: user.RoleTeacher},
		{name: "admin", input: user.NewUser{Name: "Boss", Email: "boss@ozgeshe.kz", Password: "password1", Role: user.RoleAdmin}, wantErr: user.ErrAdminSelfRegister},
		{name: "email taken", input: user.NewUser{Name: "Dana", Email: "dana@ozgeshe.kz", Password: "password1"}, wantErr: user.ErrEmailTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := svc.Register(ctx, tt.input)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, usr.Role)
			assert.True(t, usr.IsActive)
			assert.NoError(t, usr.CheckPassword("password1"))
		})
	}
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	repo, svc := setup(t)
	testutil.CreateUser(t, repo, "Dana", "dana@ozgeshe.kz", "password1", user.RoleStudent, true)
	testutil.CreateUser(t, repo, "Erlan", "erlan@ozgeshe.kz", "password1", user.RoleStudent, false)

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr error
	}{
		{name: "valid", email: " DANA@ozgeshe.kz", pwd: "password1"},
		{name: "wrong password", email: "dana@ozgeshe.kz", pwd: "password2", wantErr: user.ErrInvalidCredentials},
		{name: "unknown email", email: "nobody@ozgeshe.kz", pwd: "password1", wantErr: user.ErrInvalidCredentials},
		{name: "inactive", email: "erlan@ozgeshe.kz", pwd: "password1", wantErr: user.ErrAccountDisabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := svc.Authenticate(ctx, tt.email, tt.pwd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, usr.LastLogin.Valid)
		})
	}
}

func TestService_AdminUpdate(t *testing.T) {
	ctx := context.Background()
	repo, svc := setup(t)
	admin := testutil.CreateUser(t, repo, "Admin", "admin@ozgeshe.kz", "", user.RoleAdmin, true)
	teacher := testutil.CreateUser(t, repo, "Aigerim", "aigerim@ozgeshe.kz", "", user.RoleTeacher, true)

	student, inactive := user.RoleStudent, false
	_, err := svc.AdminUpdate(ctx, admin.Actor(), admin.ID, user.AdminUpdate{Role: &student})
	assert.Equal(t, user.ErrSelfUpdate, err)
	_, err = svc.AdminUpdate(ctx, admin.Actor(), admin.ID, user.AdminUpdate{IsActive: &inactive})
	assert.Equal(t, user.ErrSelfUpdate, err)
	_, err = svc.AdminUpdate(ctx, teacher.Actor(), admin.ID, user.AdminUpdate{IsActive: &inactive})
	assert.Equal(t, core.ErrForbidden, err)

	updated, err := svc.AdminUpdate(ctx, admin.Actor(), teacher.ID, user.AdminUpdate{
		IsActive: &inactive,
		Subjects: []core.Subject{core.SubjectMath, core.SubjectIT, core.SubjectMath},
	})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, []core.Subject{core.SubjectMath, core.SubjectIT}, updated.Subjects)
}

func TestService_EnsureAdmin(t *testing.T) {
	ctx := context.Background()
	repo, svc := setup(t)
	testutil.CreateUser(t, repo, "Aigerim", "aigerim@ozgeshe.kz", "", user.RoleTeacher, false)

	usr, err := svc.EnsureAdmin(ctx, "Aigerim", "Aigerim@ozgeshe.kz", "password1")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, usr.Role)
	assert.True(t, usr.IsActive)

	_, err = svc.EnsureAdmin(ctx, "Root", "root@ozgeshe.kz", "password1")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "root@ozgeshe.kz", "password1")
	assert.NoError(t, err)
}

func TestService_PasswordReset(t *testing.T) {
	ctx := context.Background()
	repo, svc := setup(t)
	testutil.CreateUser(t, repo, "Dana", "dana@ozgeshe.kz", "password1", user.RoleStudent, true)

	assert.Equal(t, user.ErrNotFound, svc.RequestPasswordReset(ctx, "nobody@ozgeshe.kz"))
	require.NoError(t, svc.RequestPasswordReset(ctx, "dana@ozgeshe.kz"))

	sent := emailsvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "password_reset", sent[0].TemplateName)
	data := sent[0].TemplateData.(map[string]string)
	assert.Contains(t, sent[0].TextContent, "/password-reset/"+data["UID"]+"/"+data["Token"])

	err := svc.ResetPassword(ctx, user.ResetUserPassword{UID: data["UID"], Token: "bogus-token", Password: "password2"})
	require.Error(t, err)
	_, ok := err.(*core.ValidationError)
	assert.True(t, ok)

	rp := user.ResetUserPassword{UID: data["UID"], Token: data["Token"], Password: "password2", PasswordConfirm: "password2"}
	require.NoError(t, svc.ResetPassword(ctx, rp))
	_, err = svc.Authenticate(ctx, "dana@ozgeshe.kz", "password2")
	require.NoError(t, err)

	// tokens are single use: the new password hash invalidates them
	assert.Error(t, svc.ResetPassword(ctx, rp))
}
