package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/member-portal/internal/core/domain"
	"github.com/99minutos/member-portal/internal/core/ports"
)

// OAuthStateTTL bounds the time between redirect and callback.
const OAuthStateTTL = 10 * time.Minute

// OAuthService reconciles identity-provider sessions with local accounts.
type OAuthService struct {
	repo         ports.UserRepository
	hasher       ports.PasswordHasher
	auth         *AuthService
	provider     ports.OAuthProvider
	states       ports.OAuthStateStore
	verifiedOnly bool
	log          zerolog.Logger
}

func NewOAuthService(
	auth *AuthService,
	provider ports.OAuthProvider,
	states ports.OAuthStateStore,
	verifiedOnly bool,
	log zerolog.Logger,
) *OAuthService {
	return &OAuthService{
		repo:         auth.repo,
		hasher:       auth.hasher,
		auth:         auth,
		provider:     provider,
		states:       states,
		verifiedOnly: verifiedOnly,
		log:          log,
	}
}

// Reconcile logs an already-registered provider identity in. On the first
// provider login the provider avatar replaces the stored photo.
func (s *OAuthService) Reconcile(ctx context.Context, profile domain.OAuthProfile) (*ports.OAuthResult, error) {
	email := domain.NormalizeEmail(profile.Email)
	if email == "" {
		return nil, domain.ErrInvalidInput
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotRegistered, email)
		}
		return nil, s.auth.unavailable("oauth reconcile", err)
	}

	if user.FirstTimeLogin && profile.Image != "" {
		done := false
		patch := domain.UserPatch{Photo: &profile.Image, FirstTimeLogin: &done}
		if err := s.auth.update(ctx, "oauth reconcile: promote avatar", email, patch); err != nil {
			return nil, err
		}
		user.Photo = profile.Image
		user.FirstTimeLogin = false
		s.auth.invalidate(ctx, ports.ViewProfile)
	}

	res, err := s.auth.issue(user)
	if err != nil {
		return nil, err
	}
	return &ports.OAuthResult{User: res.User, Token: res.Token, Profile: profile}, nil
}

// AutoRegister creates an account for a provider identity. An existing
// account for the same email, including one created concurrently, is
// logged in instead.
func (s *OAuthService) AutoRegister(ctx context.Context, profile domain.OAuthProfile) (*ports.OAuthResult, error) {
	email := domain.NormalizeEmail(profile.Email)
	if email == "" {
		return nil, domain.ErrInvalidInput
	}

	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	// The provider vouches for the identity; the local password only has to be
	// something nobody can guess.
	secret, err := randomSecret()
	if err != nil {
		return nil, s.auth.unavailable("oauth register: secret", err)
	}

	_, err = s.auth.Register(ctx, ports.RegisterInput{
		Name:     name,
		Email:    email,
		Password: secret,
		Photo:    profile.Image,
	})
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrDuplicateEmail):
		s.log.Info().Msg("oauth registration found existing account, logging in")
		return s.Reconcile(ctx, profile)
	default:
		return nil, err
	}

	res, err := s.Reconcile(ctx, profile)
	if err != nil {
		return nil, err
	}
	res.Created = true
	return res, nil
}

// BeginAuth stores a one-time state for intent and returns the provider URL.
func (s *OAuthService) BeginAuth(ctx context.Context, intent ports.OAuthIntent) (string, error) {
	if intent != ports.IntentLogin && intent != ports.IntentRegister {
		return "", domain.ErrInvalidInput
	}

	state := uuid.NewString()
	if err := s.states.Save(ctx, state, intent, OAuthStateTTL); err != nil {
		return "", s.auth.unavailable("oauth begin", err)
	}
	return s.provider.AuthURL(state), nil
}

// CompleteAuth handles the provider callback.
func (s *OAuthService) CompleteAuth(ctx context.Context, state, code string) (*ports.OAuthResult, error) {
	if state == "" || code == "" {
		return nil, domain.ErrInvalidOAuthState
	}

	intent, err := s.states.Consume(ctx, state)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidOAuthState) {
			return nil, domain.ErrInvalidOAuthState
		}
		return nil, s.auth.unavailable("oauth consume state", err)
	}

	identity, err := s.provider.Identify(ctx, code)
	if err != nil {
		return nil, s.auth.unavailable("oauth identify", err)
	}
	if identity.Profile.Email == "" {
		return nil, domain.ErrInvalidInput
	}
	if s.verifiedOnly && !identity.EmailVerified {
		return nil, domain.ErrUnverifiedEmail
	}

	if intent == ports.IntentRegister {
		return s.AutoRegister(ctx, identity.Profile)
	}
	return s.Reconcile(ctx, identity.Profile)
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
