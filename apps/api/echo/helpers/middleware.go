package helpers

import (
	"github.com/labstack/echo/v4"

	"github.com/smartsubmit/smartsubmit/core/user"
)

// RoleMiddleware gates a route group on a role. Membership is checked
// against storage on every request, not read from the token.
func RoleMiddleware(svc *user.Service, roleID int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			userID, err := ContextUserID(ctx)
			if err != nil {
				return err
			}
			ok, err := svc.HasRole(ctx.Request().Context(), userID, roleID)
			if err != nil {
				return err
			}
			if !ok {
				return ErrForbidden
			}
			return next(ctx)
		}
	}
}

func AdminMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return RoleMiddleware(svc, user.RoleAdmin)
}

func TeacherMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return RoleMiddleware(svc, user.RoleTeacher)
}
