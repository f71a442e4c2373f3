package domain

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrIncorrectOldPassword = errors.New("incorrect old password")
	ErrNotRegistered        = errors.New("email is not registered")
	ErrInvalidTier          = errors.New("unknown subscription tier")
	ErrInvalidOAuthState    = errors.New("invalid or expired oauth state")
	ErrUnverifiedEmail      = errors.New("identity provider email is not verified")
	ErrPaymentNotCompleted  = errors.New("payment not completed")
	ErrForbidden            = errors.New("access forbidden")
	ErrInvalidInput         = errors.New("invalid input")

	// ErrUnavailable replaces storage, cache, signing and payment-provider
	// failures at the service boundary. Callers should ask the user to retry.
	ErrUnavailable = errors.New("service temporarily unavailable")
)
