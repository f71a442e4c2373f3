package ports

import (
	"context"
	"time"

	"github.com/99minutos/member-portal/internal/core/domain"
)

// OAuthIntent records why the user started the provider round trip.
type OAuthIntent string

const (
	IntentLogin    OAuthIntent = "login"
	IntentRegister OAuthIntent = "register"
)

// OAuthIdentity is the provider's view of the signed-in user.
type OAuthIdentity struct {
	Profile       domain.OAuthProfile
	EmailVerified bool
}

// OAuthProvider talks to the third-party identity provider.
type OAuthProvider interface {
	AuthURL(state string) string
	Identify(ctx context.Context, code string) (*OAuthIdentity, error)
}

// OAuthStateStore keeps one-time state values between redirect and callback.
type OAuthStateStore interface {
	Save(ctx context.Context, state string, intent OAuthIntent, ttl time.Duration) error
	// Consume returns domain.ErrInvalidOAuthState for unknown or expired states.
	Consume(ctx context.Context, state string) (OAuthIntent, error)
}

// OAuthResult is returned by the OAuth bridge.
type OAuthResult struct {
	User    domain.SanitizedUser
	Token   string
	Profile domain.OAuthProfile
	// Created is true when the call registered a new account.
	Created bool
}

type OAuthService interface {
	Reconcile(ctx context.Context, profile domain.OAuthProfile) (*OAuthResult, error)
	AutoRegister(ctx context.Context, profile domain.OAuthProfile) (*OAuthResult, error)
	BeginAuth(ctx context.Context, intent OAuthIntent) (string, error)
	CompleteAuth(ctx context.Context, state, code string) (*OAuthResult, error)
}
