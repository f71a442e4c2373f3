package handler

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/member-portal/internal/api/metrics"
	"github.com/99minutos/member-portal/internal/core/domain"
	"github.com/99minutos/member-portal/internal/core/ports"
)

// UserHandler serves the signed-in user's own account.
type UserHandler struct {
	authService ports.AuthService
}

func NewUserHandler(authService ports.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

// Me returns the stored record of the caller.
//
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	me, err := currentUser(c)
	if err != nil {
		return err
	}

	user, err := h.authService.FindByEmail(c.Request().Context(), me.Email)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrUserNotFound
	}
	return c.JSON(http.StatusOK, userResponse{User: *user})
}

// UpdateProfile changes the display name and/or the first-time-login flag.
//
// @Summary      Update profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Fields to change"
// @Success      200   {object}  messageResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/users/me [patch]
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	me, err := currentUser(c)
	if err != nil {
		return err
	}
	var req updateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err = h.authService.UpdateProfile(c.Request().Context(), me.Email, ports.ProfileUpdate{
		Name:           req.Name,
		FirstTimeLogin: req.FirstTimeLogin,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "profile updated"})
}

// ChangePhoto replaces the caller's photo reference.
//
// @Summary      Change photo
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changePhotoRequest  true  "Photo URL"
// @Success      200   {object}  messageResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/users/me/photo [put]
func (h *UserHandler) ChangePhoto(c echo.Context) error {
	me, err := currentUser(c)
	if err != nil {
		return err
	}
	var req changePhotoRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.ChangePhoto(c.Request().Context(), me.Email, req.Photo); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "photo updated"})
}

// ChangePassword replaces the password after checking the old one.
//
// @Summary      Change password
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changePasswordRequest  true  "Old and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/users/me/password [put]
func (h *UserHandler) ChangePassword(c echo.Context) error {
	me, err := currentUser(c)
	if err != nil {
		return err
	}
	var req changePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.ChangePassword(c.Request().Context(), me.Email, req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "password changed"})
}

// AdminHandler serves account lookups and tier changes for administrators.
type AdminHandler struct {
	authService ports.AuthService
}

func NewAdminHandler(authService ports.AuthService) *AdminHandler {
	return &AdminHandler{authService: authService}
}

// GetUser looks up any account by email.
//
// @Summary      Find user by email
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        email  path      string  true  "User email"
// @Success      200    {object}  userResponse
// @Failure      401    {object}  errorResponse
// @Failure      403    {object}  errorResponse
// @Failure      404    {object}  errorResponse
// @Router       /v1/admin/users/{email} [get]
func (h *AdminHandler) GetUser(c echo.Context) error {
	user, err := h.authService.FindByEmail(c.Request().Context(), emailParam(c))
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrUserNotFound
	}
	return c.JSON(http.StatusOK, userResponse{User: *user})
}

// SetTier sets the subscription tier label of an account.
//
// @Summary      Change subscription tier
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        email  path      string             true  "User email"
// @Param        body   body      changeTierRequest  true  "New tier"
// @Success      200    {object}  messageResponse
// @Failure      401    {object}  errorResponse
// @Failure      403    {object}  errorResponse
// @Failure      404    {object}  errorResponse
// @Failure      422    {object}  errorResponse
// @Router       /v1/admin/users/{email}/tier [put]
func (h *AdminHandler) SetTier(c echo.Context) error {
	var req changeTierRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	tier := domain.Tier(req.Tier)
	if err := h.authService.ChangeTier(c.Request().Context(), emailParam(c), tier); err != nil {
		return err
	}

	metrics.TierChangesTotal.WithLabelValues(string(tier), "admin").Inc()
	return c.JSON(http.StatusOK, messageResponse{Message: "subscription updated"})
}

// emailParam returns the :email path segment, decoding %40 when the client
// escaped the at-sign.
func emailParam(c echo.Context) string {
	raw := c.Param("email")
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
