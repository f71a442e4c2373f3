package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/member-portal/internal/api/middleware"
	"github.com/99minutos/member-portal/internal/core/domain"
)

// currentUser returns the session user injected by the Auth middleware.
// The email in the token is the identity every /v1/users/me call acts on.
func currentUser(c echo.Context) (domain.SanitizedUser, error) {
	user, ok := c.Get(middleware.UserKey).(domain.SanitizedUser)
	if !ok || user.Email == "" {
		return domain.SanitizedUser{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return user, nil
}

// bindAndValidate decodes the request body into req and runs struct validation.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return nil
}
