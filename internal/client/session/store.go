// Package session holds the client's view of who is signed in.
//
// Local storage is the only persisted copy. The in-memory state is derived
// from it on Load and is replaced only after a storage write succeeds, so a
// failed write never leaves the two disagreeing.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/99minutos/member-portal/internal/core/domain"
)

// Storage keys.
const (
	KeyUser      = "authUser"
	KeyOAuthUser = "authGoogleUser"
	KeyToken     = "authToken"
)

// LoginPath is where protected views send visitors without a session.
const LoginPath = "/login"

// ErrLoginRequired is returned by RequireUser when nobody is signed in.
var ErrLoginRequired = errors.New("login required")

type state struct {
	user      *domain.SanitizedUser
	oauthUser *domain.OAuthProfile
	token     string
}

// Store is safe for concurrent use within one process.
type Store struct {
	mu      sync.RWMutex
	storage Storage
	cur     state
}

func NewStore(storage Storage) *Store {
	return &Store{storage: storage}
}

// Load rebuilds the in-memory state from storage. Entries that no longer
// decode are removed from storage and treated as absent.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		next  state
		stale []Op
	)

	raw, err := s.storage.Get(ctx, KeyUser)
	if err != nil {
		return err
	}
	if raw != nil {
		var u domain.SanitizedUser
		if json.Unmarshal(raw, &u) == nil {
			next.user = &u
		} else {
			stale = append(stale, DeleteOp(KeyUser))
		}
	}

	raw, err = s.storage.Get(ctx, KeyOAuthUser)
	if err != nil {
		return err
	}
	if raw != nil {
		var p domain.OAuthProfile
		if json.Unmarshal(raw, &p) == nil {
			next.oauthUser = &p
		} else {
			stale = append(stale, DeleteOp(KeyOAuthUser))
		}
	}

	raw, err = s.storage.Get(ctx, KeyToken)
	if err != nil {
		return err
	}
	next.token = string(raw)

	if len(stale) > 0 {
		if err := s.storage.Apply(ctx, stale...); err != nil {
			return err
		}
	}

	s.cur = next
	return nil
}

// SetLocalUser stores the signed-in user. nil clears the slot.
func (s *Store) SetLocalUser(ctx context.Context, user *domain.SanitizedUser) error {
	return s.commit(ctx, func(st *state) ([]Op, error) {
		op, err := userOp(user)
		if err != nil {
			return nil, err
		}
		st.user = cloneUser(user)
		return []Op{op}, nil
	})
}

// SetOAuthUser stores the identity-provider profile. nil clears the slot.
func (s *Store) SetOAuthUser(ctx context.Context, profile *domain.OAuthProfile) error {
	return s.commit(ctx, func(st *state) ([]Op, error) {
		op, err := profileOp(profile)
		if err != nil {
			return nil, err
		}
		st.oauthUser = cloneProfile(profile)
		return []Op{op}, nil
	})
}

// SetSession stores the user and token of a successful login together.
func (s *Store) SetSession(ctx context.Context, user domain.SanitizedUser, token string) error {
	return s.commit(ctx, func(st *state) ([]Op, error) {
		op, err := userOp(&user)
		if err != nil {
			return nil, err
		}
		st.user = &user
		st.token = token
		return []Op{op, SetOp(KeyToken, []byte(token))}, nil
	})
}

// SetOAuthSession stores a provider login: user, token and provider profile.
func (s *Store) SetOAuthSession(ctx context.Context, user domain.SanitizedUser, token string, profile domain.OAuthProfile) error {
	return s.commit(ctx, func(st *state) ([]Op, error) {
		uop, err := userOp(&user)
		if err != nil {
			return nil, err
		}
		pop, err := profileOp(&profile)
		if err != nil {
			return nil, err
		}
		st.user = &user
		st.oauthUser = &profile
		st.token = token
		return []Op{uop, pop, SetOp(KeyToken, []byte(token))}, nil
	})
}

// Logout removes every session key and clears both user slots.
func (s *Store) Logout(ctx context.Context) error {
	return s.commit(ctx, func(st *state) ([]Op, error) {
		*st = state{}
		return []Op{DeleteOp(KeyUser), DeleteOp(KeyOAuthUser), DeleteOp(KeyToken)}, nil
	})
}

func (s *Store) LocalUser() *domain.SanitizedUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneUser(s.cur.user)
}

func (s *Store) OAuthUser() *domain.OAuthProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProfile(s.cur.oauthUser)
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.token
}

// RequireUser is the admission check for protected views.
func (s *Store) RequireUser() (domain.SanitizedUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cur.user == nil {
		return domain.SanitizedUser{}, fmt.Errorf("%w: redirect to %s", ErrLoginRequired, LoginPath)
	}
	return *s.cur.user, nil
}

// commit is the only mutation path: mutate builds the next state and the
// storage ops, storage is written, and only then is the state swapped in.
func (s *Store) commit(ctx context.Context, mutate func(*state) ([]Op, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cur
	ops, err := mutate(&next)
	if err != nil {
		return err
	}
	if err := s.storage.Apply(ctx, ops...); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	s.cur = next
	return nil
}

func userOp(u *domain.SanitizedUser) (Op, error) {
	if u == nil {
		return DeleteOp(KeyUser), nil
	}
	b, err := json.Marshal(u)
	if err != nil {
		return Op{}, fmt.Errorf("encode user: %w", err)
	}
	return SetOp(KeyUser, b), nil
}

func profileOp(p *domain.OAuthProfile) (Op, error) {
	if p == nil {
		return DeleteOp(KeyOAuthUser), nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return Op{}, fmt.Errorf("encode oauth user: %w", err)
	}
	return SetOp(KeyOAuthUser, b), nil
}

func cloneUser(u *domain.SanitizedUser) *domain.SanitizedUser {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func cloneProfile(p *domain.OAuthProfile) *domain.OAuthProfile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
