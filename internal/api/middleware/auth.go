package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/member-portal/internal/api/metrics"
	"github.com/99minutos/member-portal/internal/core/domain"
)

// UserKey is the echo context key holding the authenticated domain.SanitizedUser.
const UserKey = "user"

// TokenVerifier checks a session token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (domain.SanitizedUser, bool)
}

// Auth validates the bearer token and injects the session user into context.
func Auth(tokens TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			user, ok := tokens.Verify(parts[1])
			if !ok {
				metrics.TokenVerificationsTotal.WithLabelValues("invalid").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			metrics.TokenVerificationsTotal.WithLabelValues("valid").Inc()

			c.Set(UserKey, user)
			return next(c)
		}
	}
}
