package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/member-portal/internal/core/domain"
)

var errStoreDown = errors.New("connection refused")

// stubUserRepo mimics the store's unique index on email.
type stubUserRepo struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	nextID  int
	failAll bool
	creates int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return nil, errStoreDown
	}
	r.creates++
	if _, exists := r.users[user.Email]; exists {
		return nil, domain.ErrDuplicateEmail
	}
	r.nextID++
	stored := cloneUser(user)
	stored.ID = strconv.Itoa(r.nextID)
	r.users[stored.Email] = stored
	return cloneUser(stored), nil
}

func (r *stubUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := r.FindCredentials(ctx, email)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = ""
	return u, nil
}

func (r *stubUserRepo) FindCredentials(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return nil, errStoreDown
	}
	u, ok := r.users[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) Update(_ context.Context, email string, patch domain.UserPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return errStoreDown
	}
	u, ok := r.users[email]
	if !ok {
		return domain.ErrUserNotFound
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Photo != nil {
		u.Photo = *patch.Photo
	}
	if patch.FirstTimeLogin != nil {
		u.FirstTimeLogin = *patch.FirstTimeLogin
	}
	if patch.Tier != nil {
		u.Tier = *patch.Tier
	}
	if patch.PasswordHash != nil {
		u.PasswordHash = *patch.PasswordHash
	}
	return nil
}

func (r *stubUserRepo) get(email string) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneUser(r.users[email])
}

type recordingInvalidator struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (i *recordingInvalidator) Invalidate(_ context.Context, path string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.paths = append(i.paths, path)
	return i.err
}

func (i *recordingInvalidator) last() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.paths) == 0 {
		return ""
	}
	return i.paths[len(i.paths)-1]
}

func newTestTokens() *JWTService {
	svc, _ := NewJWTService("secret")
	return svc
}

func newTestAuthService() (*AuthService, *stubUserRepo, *recordingInvalidator) {
	repo := newStubUserRepo()
	inv := &recordingInvalidator{}
	svc := NewAuthService(repo, NewBcryptHasher(bcrypt.MinCost), newTestTokens(), inv, zerolog.Nop())
	return svc, repo, inv
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
