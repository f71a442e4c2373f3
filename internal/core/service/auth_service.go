package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/member-portal/internal/core/domain"
	"github.com/99minutos/member-portal/internal/core/ports"
)

// AuthService implements registration, login and account updates on top of
// the credential store, password hasher and token service.
type AuthService struct {
	repo        ports.UserRepository
	hasher      ports.PasswordHasher
	tokens      ports.TokenService
	invalidator ports.ViewInvalidator
	log         zerolog.Logger
}

func NewAuthService(
	repo ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenService,
	invalidator ports.ViewInvalidator,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		repo:        repo,
		hasher:      hasher,
		tokens:      tokens,
		invalidator: invalidator,
		log:         log,
	}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil
	}

	user, err := s.repo.FindCredentials(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil
		}
		return nil, s.unavailable("login", err)
	}

	if !s.hasher.Compare(user.PasswordHash, password) {
		return nil, nil
	}

	return s.issue(user)
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.SanitizedUser, error) {
	email := domain.NormalizeEmail(in.Email)
	if in.Name == "" || email == "" || in.Password == "" || len(in.Password) > domain.MaxPasswordBytes {
		return nil, domain.ErrInvalidInput
	}

	hash, err := s.hash("register: hash password", in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:          email,
		PasswordHash:   hash,
		Name:           in.Name,
		Photo:          in.Photo,
		FirstTimeLogin: true,
		CreatedAt:      time.Now().UTC(),
		Tier:           domain.TierFree,
	}

	// Uniqueness is enforced by the store's index, not by a prior lookup.
	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, s.unavailable("register", err)
	}

	s.log.Info().Str("user_id", created.ID).Msg("user registered")

	clean := domain.Sanitize(created)
	return &clean, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error {
	email = domain.NormalizeEmail(email)
	if newPassword == "" || len(newPassword) > domain.MaxPasswordBytes {
		return domain.ErrInvalidInput
	}

	user, err := s.repo.FindCredentials(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		return s.unavailable("change password", err)
	}

	if !s.hasher.Compare(user.PasswordHash, oldPassword) {
		return domain.ErrIncorrectOldPassword
	}

	hash, err := s.hash("change password: hash", newPassword)
	if err != nil {
		return err
	}

	// Tokens issued before this point stay valid until they expire.
	if err := s.update(ctx, "change password", email, domain.UserPatch{PasswordHash: &hash}); err != nil {
		return err
	}

	s.invalidate(ctx, ports.ViewProfile)
	return nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, email string, update ports.ProfileUpdate) error {
	patch := domain.UserPatch{Name: update.Name, FirstTimeLogin: update.FirstTimeLogin}
	if patch.IsEmpty() {
		return nil
	}
	if update.Name != nil && *update.Name == "" {
		return domain.ErrInvalidInput
	}

	if err := s.update(ctx, "update profile", domain.NormalizeEmail(email), patch); err != nil {
		return err
	}

	s.invalidate(ctx, ports.ViewHome)
	return nil
}

func (s *AuthService) ChangePhoto(ctx context.Context, email, photo string) error {
	if err := s.update(ctx, "change photo", domain.NormalizeEmail(email), domain.UserPatch{Photo: &photo}); err != nil {
		return err
	}

	s.invalidate(ctx, ports.ViewProfile)
	return nil
}

func (s *AuthService) ChangeTier(ctx context.Context, email string, tier domain.Tier) error {
	if !tier.Valid() {
		return domain.ErrInvalidTier
	}

	if err := s.update(ctx, "change tier", domain.NormalizeEmail(email), domain.UserPatch{Tier: &tier}); err != nil {
		return err
	}

	s.log.Info().Str("tier", string(tier)).Msg("subscription tier changed")
	s.invalidate(ctx, ports.ViewHome)
	return nil
}

func (s *AuthService) FindByEmail(ctx context.Context, email string) (*domain.SanitizedUser, error) {
	user, err := s.repo.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil
		}
		return nil, s.unavailable("find by email", err)
	}

	clean := domain.Sanitize(user)
	return &clean, nil
}

// Refresh re-reads the stored record and issues a token with current claims.
func (s *AuthService) Refresh(ctx context.Context, email string) (*ports.LoginResult, error) {
	user, err := s.repo.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, s.unavailable("refresh", err)
	}

	return s.issue(user)
}

func (s *AuthService) IssueToken(user domain.SanitizedUser) (string, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", s.unavailable("issue token", err)
	}
	return token, nil
}

func (s *AuthService) VerifyToken(token string) (domain.SanitizedUser, bool) {
	return s.tokens.Verify(token)
}

func (s *AuthService) issue(user *domain.User) (*ports.LoginResult, error) {
	clean := domain.Sanitize(user)
	token, err := s.IssueToken(clean)
	if err != nil {
		return nil, err
	}
	return &ports.LoginResult{User: clean, Token: token}, nil
}

// hash keeps input errors from the hasher visible to the caller.
func (s *AuthService) hash(op, password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return "", domain.ErrInvalidInput
		}
		return "", s.unavailable(op, err)
	}
	return hash, nil
}

func (s *AuthService) update(ctx context.Context, op, email string, patch domain.UserPatch) error {
	if err := s.repo.Update(ctx, email, patch); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		return s.unavailable(op, err)
	}
	return nil
}

// invalidate is best effort: a missed signal only delays a view refresh.
func (s *AuthService) invalidate(ctx context.Context, path string) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, path); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("failed to publish view invalidation")
	}
}

// unavailable logs the real cause and hides it from the caller.
func (s *AuthService) unavailable(op string, err error) error {
	s.log.Error().Err(err).Str("op", op).Msg("auth operation failed")
	return domain.ErrUnavailable
}
