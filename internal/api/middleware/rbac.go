package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/member-portal/internal/core/domain"
)

// RequireAdmin lets through only sessions whose token carries isAdmin.
// It must run after Auth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := c.Get(UserKey).(domain.SanitizedUser)
			if !ok || !user.IsAdmin {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
