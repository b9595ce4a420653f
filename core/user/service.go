package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ozgesheedu/ozgeshe/core"
)

var (
	// errors
	ErrNotFound           = core.NewNotFound("USER_NOT_FOUND", "user not found")
	ErrEmailTaken         = core.NewConflict("EMAIL_TAKEN", "a user with this email already exists")
	ErrAdminSelfRegister  = core.NewForbidden("ADMIN_SELF_REGISTER", "admin accounts cannot be self-registered")
	ErrInvalidCredentials = core.NewUnauthorized("INVALID_CREDENTIALS", "invalid credentials")
	ErrAccountDisabled    = core.NewForbidden("ACCOUNT_DISABLED", "account disabled")
	ErrSelfUpdate         = core.NewForbidden("SELF_UPDATE_FORBIDDEN", "admins cannot demote or deactivate themselves")
)

type (
	Repository interface {
		// CreateUser returns ErrEmailTaken when the email is already in use.
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		QueryUsers(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		tokens  tokenGenerator
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		tokens: tokenGenerator{
			secretKey: []byte(conf.SecretKey),
			timeout:   conf.Server.PasswordResetTimeoutDelta,
		},
	}
}

// Register creates an active TEACHER or STUDENT account (STUDENT when no role is given).
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	switch nu.Role {
	case "":
		nu.Role = RoleStudent
	case RoleAdmin:
		return User{}, ErrAdminSelfRegister
	case RoleTeacher, RoleStudent:
	default:
		return User{}, core.NewValidationError(nil, core.FieldError{Field: "role", Error: "invalid role"})
	}

	if _, err := svc.repo.GetUserByEmail(ctx, nu.Email); err == nil {
		return User{}, ErrEmailTaken
	} else if err != ErrNotFound {
		return User{}, errors.Wrap(err, "checking email")
	}

	now := time.Now().UTC()
	usr := User{
		ID:        uuid.New().String(),
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      nu.Role,
		Subjects:  []core.Subject{},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

// Authenticate checks the credentials and records the login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if err == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrAccountDisabled
	}

	usr.LastLogin = null.TimeFrom(time.Now().UTC())
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "setting lastLogin")
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	filter.Clean()
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

// AdminUpdate changes the role, activity and subjects of a user. Admins cannot lock themselves out.
func (svc *Service) AdminUpdate(ctx context.Context, actor Actor, id string, au AdminUpdate) (User, error) {
	if err := Authorize(actor, RoleAdmin); err != nil {
		return User{}, err
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	if usr.ID == actor.ID {
		if (au.Role != nil && *au.Role != RoleAdmin) || (au.IsActive != nil && !*au.IsActive) {
			return User{}, ErrSelfUpdate
		}
	}

	if au.Role != nil {
		usr.Role = *au.Role
	}
	if au.IsActive != nil {
		usr.IsActive = *au.IsActive
	}
	if au.Subjects != nil {
		usr.Subjects = dedupSubjects(au.Subjects)
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// SetPassword replaces the password of the user with the given email.
func (svc *Service) SetPassword(ctx context.Context, email, pwd string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

// EnsureAdmin creates an active admin, or promotes and reactivates an existing account with that email.
func (svc *Service) EnsureAdmin(ctx context.Context, name, email, pwd string) (User, error) {
	email = core.CleanString(email, true /* lower */)
	usr, err := svc.repo.GetUserByEmail(ctx, email)
	exists := err == nil
	if err != nil {
		if err != ErrNotFound {
			return User{}, err
		}
		usr = User{
			ID:        uuid.New().String(),
			Name:      core.CleanString(name),
			Email:     email,
			Subjects:  []core.Subject{},
			CreatedAt: time.Now().UTC(),
		}
	}

	usr.Role = RoleAdmin
	usr.IsActive = true
	usr.UpdatedAt = time.Now().UTC()
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	if exists {
		return svc.repo.UpdateUser(ctx, usr)
	}
	return svc.repo.CreateUser(ctx, usr)
}

// RequestPasswordReset emails a reset link to the active user owning `email`.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrAccountDisabled
	}
	svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *Service) sendPasswordResetMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password reset",
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"UID":   encodeUID(usr),
			"Token": svc.tokens.makeToken(usr),
		},
	})
}

// ResetPassword sets a new password if the uid/token pair is still valid.
func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	invalidErr := core.NewValidationError(errInvalidToken, core.FieldError{Field: "token", Error: errInvalidToken.Error()})

	id, err := decodeUID(rp.UID)
	if err != nil {
		return invalidErr
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return invalidErr
		}
		return errors.Wrap(err, "finding user by ID")
	}

	switch err = svc.tokens.verifyToken(usr, rp.Token); err {
	case nil:
	case errTokenExpired:
		return core.NewValidationError(err, core.FieldError{Field: "token", Error: err.Error()})
	default:
		return invalidErr
	}

	if err = usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "updating password")
}

func dedupSubjects(subjects []core.Subject) []core.Subject {
	out := make([]core.Subject, 0, len(subjects))
	for _, s := range subjects {
		if !core.HasSubject(out, s) {
			out = append(out, s)
		}
	}
	return out
}
