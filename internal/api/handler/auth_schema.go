package handler

import "github.com/99minutos/member-portal/internal/core/domain"

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type registerRequest struct {
	Name     string `json:"name"     validate:"required,max=120"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,maxbytes=72"`
	Photo    string `json:"photo"    validate:"omitempty,max=2048"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type verifyRequest struct {
	Token string `json:"token" validate:"required"`
}

type sessionResponse struct {
	User  domain.SanitizedUser `json:"user"`
	Token string               `json:"token"`
}

type userResponse struct {
	User domain.SanitizedUser `json:"user"`
}

type verifyResponse struct {
	Valid bool                  `json:"valid"`
	User  *domain.SanitizedUser `json:"user,omitempty"`
}

type logoutResponse struct {
	Redirect string `json:"redirect"`
}

type oauthResponse struct {
	User    domain.SanitizedUser `json:"user"`
	Token   string               `json:"token"`
	Profile domain.OAuthProfile  `json:"profile"`
	Created bool                 `json:"created"`
}

type updateProfileRequest struct {
	Name           *string `json:"name"           validate:"omitempty,min=1,max=120"`
	FirstTimeLogin *bool   `json:"firstTimeLogin"`
}

type changePhotoRequest struct {
	Photo string `json:"photo" validate:"required,max=2048"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,maxbytes=72"`
}

type changeTierRequest struct {
	Tier string `json:"paymentType" validate:"required"`
}

type messageResponse struct {
	Message string `json:"message"`
}
