package ports

import (
	"context"

	"github.com/99minutos/member-portal/internal/core/domain"
)

// RegisterInput carries the fields collected by the registration form.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Photo    string
}

// ProfileUpdate is the only set of fields a user may edit on their profile.
type ProfileUpdate struct {
	Name           *string
	FirstTimeLogin *bool
}

// LoginResult is returned on a successful login or token refresh.
type LoginResult struct {
	User  domain.SanitizedUser
	Token string
}

type AuthService interface {
	// Login returns nil, nil when the email is unknown or the password is wrong.
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Register(ctx context.Context, in RegisterInput) (*domain.SanitizedUser, error)
	ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error
	UpdateProfile(ctx context.Context, email string, update ProfileUpdate) error
	ChangePhoto(ctx context.Context, email, photo string) error
	ChangeTier(ctx context.Context, email string, tier domain.Tier) error
	// FindByEmail returns nil, nil when no record matches.
	FindByEmail(ctx context.Context, email string) (*domain.SanitizedUser, error)
	Refresh(ctx context.Context, email string) (*LoginResult, error)
	IssueToken(user domain.SanitizedUser) (string, error)
	VerifyToken(token string) (domain.SanitizedUser, bool)
}
