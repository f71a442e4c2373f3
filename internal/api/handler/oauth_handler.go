package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/member-portal/internal/api/metrics"
	"github.com/99minutos/member-portal/internal/core/domain"
	"github.com/99minutos/member-portal/internal/core/ports"
)

// OAuthHandler runs the Google sign-in redirect and callback.
type OAuthHandler struct {
	oauthService ports.OAuthService
}

func NewOAuthHandler(oauthService ports.OAuthService) *OAuthHandler {
	return &OAuthHandler{oauthService: oauthService}
}

// Begin redirects to the provider consent screen. intent=register creates an
// account on the way back; the default only logs existing accounts in.
//
// @Summary      Start Google sign-in
// @Tags         oauth
// @Param        intent  query  string  false  "login or register"  Enums(login, register)
// @Success      302
// @Failure      422  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /auth/google/login [get]
func (h *OAuthHandler) Begin(c echo.Context) error {
	intent := ports.OAuthIntent(c.QueryParam("intent"))
	if intent == "" {
		intent = ports.IntentLogin
	}

	url, err := h.oauthService.BeginAuth(c.Request().Context(), intent)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "intent must be one of: login register")
		}
		return err
	}
	return c.Redirect(http.StatusFound, url)
}

// Callback completes the provider flow and returns a session.
//
// @Summary      Google sign-in callback
// @Tags         oauth
// @Produce      json
// @Param        state  query     string  true  "OAuth state"
// @Param        code   query     string  true  "Authorisation code"
// @Success      200    {object}  oauthResponse
// @Failure      400    {object}  errorResponse
// @Failure      403    {object}  errorResponse
// @Failure      404    {object}  errorResponse
// @Failure      503    {object}  errorResponse
// @Router       /auth/google/callback [get]
func (h *OAuthHandler) Callback(c echo.Context) error {
	if msg := c.QueryParam("error"); msg != "" {
		metrics.OAuthTotal.WithLabelValues("denied").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "sign-in was cancelled: "+msg)
	}

	res, err := h.oauthService.CompleteAuth(c.Request().Context(), c.QueryParam("state"), c.QueryParam("code"))
	if err != nil {
		metrics.OAuthTotal.WithLabelValues(oauthOutcome(err)).Inc()
		return err
	}

	outcome := "login"
	if res.Created {
		outcome = "registered"
	}
	metrics.OAuthTotal.WithLabelValues(outcome).Inc()

	return c.JSON(http.StatusOK, oauthResponse{
		User:    res.User,
		Token:   res.Token,
		Profile: res.Profile,
		Created: res.Created,
	})
}

func oauthOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotRegistered):
		return "not_registered"
	case errors.Is(err, domain.ErrInvalidOAuthState):
		return "invalid_state"
	case errors.Is(err, domain.ErrUnverifiedEmail):
		return "unverified"
	default:
		return "error"
	}
}
