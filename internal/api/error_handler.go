package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/member-portal/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors. Code is
// stable across message changes and is set for domain errors only.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Stable error codes clients can branch on.
const (
	CodeInvalidCredentials   = "invalid_credentials"
	CodeEmailExists          = "email_exists"
	CodeUserNotFound         = "user_not_found"
	CodeIncorrectOldPassword = "incorrect_old_password"
	CodeNotRegistered        = "not_registered"
	CodeUnverifiedEmail      = "unverified_email"
	CodeForbidden            = "forbidden"
	CodeInvalidTier          = "invalid_tier"
	CodeInvalidInput         = "invalid_input"
	CodeInvalidOAuthState    = "invalid_oauth_state"
	CodePaymentNotCompleted  = "payment_not_completed"
	CodeUnavailable          = "unavailable"
)

// domainErrors is checked in order; msg "" means the error's own text is shown.
var domainErrors = []struct {
	err    error
	status int
	code   string
	msg    string
}{
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials, "invalid email or password"},
	{domain.ErrDuplicateEmail, http.StatusConflict, CodeEmailExists, "email already exists"},
	{domain.ErrUserNotFound, http.StatusNotFound, CodeUserNotFound, "user not found"},
	{domain.ErrIncorrectOldPassword, http.StatusBadRequest, CodeIncorrectOldPassword, "incorrect old password"},
	// Carries the email so the sign-in page can tell the user which account
	// is missing.
	{domain.ErrNotRegistered, http.StatusNotFound, CodeNotRegistered, ""},
	{domain.ErrUnverifiedEmail, http.StatusForbidden, CodeUnverifiedEmail, "provider email is not verified"},
	{domain.ErrForbidden, http.StatusForbidden, CodeForbidden, "access forbidden"},
	{domain.ErrInvalidTier, http.StatusUnprocessableEntity, CodeInvalidTier, "unknown subscription plan"},
	{domain.ErrInvalidInput, http.StatusUnprocessableEntity, CodeInvalidInput, "invalid input"},
	{domain.ErrInvalidOAuthState, http.StatusBadRequest, CodeInvalidOAuthState, "sign-in session expired, try again"},
	{domain.ErrPaymentNotCompleted, http.StatusPaymentRequired, CodePaymentNotCompleted, "payment not completed"},
	{domain.ErrUnavailable, http.StatusServiceUnavailable, CodeUnavailable, "something went wrong, try again"},
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status codes.
//   - Logs unexpected errors without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>", "code": "<code>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	for _, d := range domainErrors {
		if !errors.Is(err, d.err) {
			continue
		}
		msg := d.msg
		if msg == "" {
			msg = err.Error()
		}
		return d.status, errorResponse{Error: msg, Code: d.code}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}
