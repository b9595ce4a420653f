package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/ozgesheedu/ozgeshe/core"
	"github.com/ozgesheedu/ozgeshe/core/user"
)

// authMiddleware verifies the JWT then reloads its user on every request, so that deactivated
// or deleted accounts lose access at once. With optional, anonymous requests pass through.
func authMiddleware(conf *core.Config, svc *user.Service, optional bool) echo.MiddlewareFunc {
	jwt := middleware.JWTWithConfig(newJWTConfig(conf, optional))
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return jwt(actorMiddleware(svc, optional)(next))
	}
}

func actorMiddleware(svc *user.Service, optional bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				if optional {
					return next(ctx)
				}
				return err
			}

			usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
			if err != nil {
				if errors.Cause(err) == user.ErrNotFound {
					return errUnauthorized
				}
				return errors.Wrap(err, "finding user by ID")
			}
			if !usr.IsActive {
				return errUnauthorized
			}

			ctx.Set(contextUserKey, usr)
			ctx.Set(contextActorKey, usr.Actor())
			return next(ctx)
		}
	}
}

// rolesMiddleware lets through actors holding one of roles.
func rolesMiddleware(roles ...user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			actor, err := getContextActor(ctx)
			if err != nil {
				return err
			}
			if err = user.Authorize(actor, roles...); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

var (
	adminOnly        = rolesMiddleware(user.RoleAdmin)
	studentOnly      = rolesMiddleware(user.RoleStudent)
	teacherOrAdmin   = rolesMiddleware(user.RoleTeacher, user.RoleAdmin)
	anyAuthenticated = rolesMiddleware()
)
