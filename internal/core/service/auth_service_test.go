package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/99minutos/member-portal/internal/core/domain"
	"github.com/99minutos/member-portal/internal/core/ports"
)

func register(t *testing.T, svc *AuthService, name, email, password string) *domain.SanitizedUser {
	t.Helper()
	user, err := svc.Register(context.Background(), ports.RegisterInput{Name: name, Email: email, Password: password})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return user
}

func TestAuthService_Scenario(t *testing.T) {
	svc, _, _ := newTestAuthService()
	ctx := context.Background()

	register(t, svc, "Ann", "ann@x.com", "password1")

	_, err := svc.Register(ctx, ports.RegisterInput{Name: "Ann2", Email: "ann@x.com", Password: "password2"})
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	res, err := svc.Login(ctx, "ann@x.com", "password1")
	if err != nil || res == nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.User.Name != "Ann" || res.User.Tier != domain.TierFree {
		t.Fatalf("unexpected user: %+v", res.User)
	}
	if res.Token == "" {
		t.Fatalf("expected token")
	}

	res, err = svc.Login(ctx, "ann@x.com", "wrong")
	if err != nil || res != nil {
		t.Fatalf("expected nil result for wrong password, got %+v, %v", res, err)
	}
}

func TestAuthService_Register_Defaults(t *testing.T) {
	svc, repo, _ := newTestAuthService()

	user := register(t, svc, "Bob", " Bob@Example.com ", "password1")
	if user.Email != "bob@example.com" {
		t.Fatalf("email not normalised: %q", user.Email)
	}
	if !user.FirstTimeLogin || user.IsAdmin || user.Tier != domain.TierFree {
		t.Fatalf("unexpected defaults: %+v", user)
	}

	stored := repo.get("bob@example.com")
	if stored.PasswordHash == "" || stored.PasswordHash == "password1" {
		t.Fatalf("expected password to be hashed, got %q", stored.PasswordHash)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc, _, _ := newTestAuthService()

	inputs := []ports.RegisterInput{
		{Email: "a@x.com", Password: "password1"},
		{Name: "A", Password: "password1"},
		{Name: "A", Email: "a@x.com"},
	}
	for _, in := range inputs {
		if _, err := svc.Register(context.Background(), in); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %+v, got %v", in, err)
		}
	}
}

func TestAuthService_Register_ConcurrentSameEmail(t *testing.T) {
	svc, repo, _ := newTestAuthService()

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, dupes int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(context.Background(), ports.RegisterInput{Name: "Ann", Email: "ann@x.com", Password: "password1"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrDuplicateEmail):
				dupes++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || dupes != n-1 {
		t.Fatalf("expected 1 success and %d conflicts, got %d and %d", n-1, ok, dupes)
	}
	if repo.creates != n {
		t.Fatalf("expected every attempt to reach the store, got %d", repo.creates)
	}
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	svc, _, _ := newTestAuthService()

	res, err := svc.Login(context.Background(), "ghost@x.com", "password1")
	if err != nil || res != nil {
		t.Fatalf("expected nil, nil; got %+v, %v", res, err)
	}
}

func TestAuthService_Login_TokenVerifies(t *testing.T) {
	svc, _, _ := newTestAuthService()
	register(t, svc, "Ann", "ann@x.com", "password1")

	res, err := svc.Login(context.Background(), "ANN@x.com", "password1")
	if err != nil || res == nil {
		t.Fatalf("login failed: %v", err)
	}

	got, ok := svc.VerifyToken(res.Token)
	if !ok {
		t.Fatalf("expected token to verify")
	}
	if got != res.User {
		t.Fatalf("claims mismatch: %+v vs %+v", got, res.User)
	}
}

func TestAuthService_Login_StoreFailure(t *testing.T) {
	svc, repo, _ := newTestAuthService()
	repo.failAll = true

	_, err := svc.Login(context.Background(), "ann@x.com", "password1")
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if errors.Is(err, errStoreDown) {
		t.Fatalf("driver error must not leak")
	}
}

func TestAuthService_ChangePassword(t *testing.T) {
	svc, _, inv := newTestAuthService()
	ctx := context.Background()
	register(t, svc, "Ann", "ann@x.com", "password1")

	if err := svc.ChangePassword(ctx, "ann@x.com", "password1", "password9"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if inv.last() != ports.ViewProfile {
		t.Fatalf("expected profile invalidation, got %q", inv.last())
	}

	if res, _ := svc.Login(ctx, "ann@x.com", "password1"); res != nil {
		t.Fatalf("old password must no longer work")
	}
	if res, _ := svc.Login(ctx, "ann@x.com", "password9"); res == nil {
		t.Fatalf("new password must work")
	}
}

func TestAuthService_ChangePassword_Errors(t *testing.T) {
	svc, _, _ := newTestAuthService()
	ctx := context.Background()
	register(t, svc, "Ann", "ann@x.com", "password1")

	if err := svc.ChangePassword(ctx, "ghost@x.com", "password1", "password2"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := svc.ChangePassword(ctx, "ann@x.com", "nope", "password2"); !errors.Is(err, domain.ErrIncorrectOldPassword) {
		t.Fatalf("expected ErrIncorrectOldPassword, got %v", err)
	}
}

func TestAuthService_ChangePassword_OldTokenStillValid(t *testing.T) {
	svc, _, _ := newTestAuthService()
	ctx := context.Background()
	register(t, svc, "Ann", "ann@x.com", "password1")

	res, _ := svc.Login(ctx, "ann@x.com", "password1")
	if err := svc.ChangePassword(ctx, "ann@x.com", "password1", "password2"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, ok := svc.VerifyToken(res.Token); !ok {
		t.Fatalf("tokens issued before a password change remain valid until expiry")
	}
}

func TestAuthService_UpdateProfile(t *testing.T) {
	svc, repo, inv := newTestAuthService()
	register(t, svc, "Ann", "ann@x.com", "password1")

	name := "Annie"
	first := false
	if err := svc.UpdateProfile(context.Background(), "ann@x.com", ports.ProfileUpdate{Name: &name, FirstTimeLogin: &first}); err != nil {
		t.Fatalf("update profile: %v", err)
	}

	stored := repo.get("ann@x.com")
	if stored.Name != "Annie" || stored.FirstTimeLogin {
		t.Fatalf("profile not updated: %+v", stored)
	}
	if stored.Tier != domain.TierFree || stored.Photo != "" {
		t.Fatalf("untouched fields changed: %+v", stored)
	}
	if inv.last() != ports.ViewHome {
		t.Fatalf("expected home invalidation, got %q", inv.last())
	}
}

func TestAuthService_UpdateProfile_Errors(t *testing.T) {
	svc, _, _ := newTestAuthService()
	ctx := context.Background()
	empty := ""
	name := "X"

	if err := svc.UpdateProfile(ctx, "ann@x.com", ports.ProfileUpdate{}); err != nil {
		t.Fatalf("empty update should be a no-op, got %v", err)
	}
	if err := svc.UpdateProfile(ctx, "ann@x.com", ports.ProfileUpdate{Name: &empty}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := svc.UpdateProfile(ctx, "ghost@x.com", ports.ProfileUpdate{Name: &name}); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthService_ChangePhotoAndTier(t *testing.T) {
	svc, repo, inv := newTestAuthService()
	ctx := context.Background()
	register(t, svc, "Ann", "ann@x.com", "password1")

	if err := svc.ChangePhoto(ctx, "ann@x.com", "https://img/ann.png"); err != nil {
		t.Fatalf("change photo: %v", err)
	}
	if inv.last() != ports.ViewProfile {
		t.Fatalf("expected profile invalidation, got %q", inv.last())
	}

	if err := svc.ChangeTier(ctx, "ann@x.com", domain.TierPremiumAnnual); err != nil {
		t.Fatalf("change tier: %v", err)
	}
	if inv.last() != ports.ViewHome {
		t.Fatalf("expected home invalidation, got %q", inv.last())
	}

	stored := repo.get("ann@x.com")
	if stored.Photo != "https://img/ann.png" || stored.Tier != domain.TierPremiumAnnual {
		t.Fatalf("unexpected record: %+v", stored)
	}

	if err := svc.ChangeTier(ctx, "ann@x.com", "Gold"); !errors.Is(err, domain.ErrInvalidTier) {
		t.Fatalf("expected ErrInvalidTier, got %v", err)
	}
}

func TestAuthService_InvalidationFailureIsNotFatal(t *testing.T) {
	svc, _, inv := newTestAuthService()
	register(t, svc, "Ann", "ann@x.com", "password1")
	inv.err = errors.New("redis down")

	if err := svc.ChangePhoto(context.Background(), "ann@x.com", "p.png"); err != nil {
		t.Fatalf("expected success despite invalidation failure, got %v", err)
	}
}

func TestAuthService_FindByEmail(t *testing.T) {
	svc, _, _ := newTestAuthService()
	register(t, svc, "Ann", "ann@x.com", "password1")

	user, err := svc.FindByEmail(context.Background(), "ann@x.com")
	if err != nil || user == nil || user.Name != "Ann" {
		t.Fatalf("unexpected result: %+v, %v", user, err)
	}

	user, err = svc.FindByEmail(context.Background(), "ghost@x.com")
	if err != nil || user != nil {
		t.Fatalf("expected nil, nil; got %+v, %v", user, err)
	}
}

func TestAuthService_RefreshReflectsTierChange(t *testing.T) {
	svc, _, _ := newTestAuthService()
	ctx := context.Background()
	register(t, svc, "Ann", "ann@x.com", "password1")

	before, _ := svc.Login(ctx, "ann@x.com", "password1")
	if err := svc.ChangeTier(ctx, "ann@x.com", domain.TierStandardMonthly); err != nil {
		t.Fatalf("change tier: %v", err)
	}

	stale, _ := svc.VerifyToken(before.Token)
	if stale.Tier != domain.TierFree {
		t.Fatalf("old token should still carry the old tier, got %q", stale.Tier)
	}

	after, err := svc.Refresh(ctx, "ann@x.com")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	fresh, ok := svc.VerifyToken(after.Token)
	if !ok || fresh.Tier != domain.TierStandardMonthly {
		t.Fatalf("refreshed token should carry the new tier, got %+v", fresh)
	}

	if _, err := svc.Refresh(ctx, "ghost@x.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthService_VerifyAfterExpiry(t *testing.T) {
	svc, _, _ := newTestAuthService()
	tokens := svc.tokens.(*JWTService)
	issued := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	tokens.now = fixedClock(issued)

	register(t, svc, "Ann", "ann@x.com", "password1")
	res, _ := svc.Login(context.Background(), "ann@x.com", "password1")

	tokens.now = fixedClock(issued.Add(TokenTTL + time.Second))
	if _, ok := svc.VerifyToken(res.Token); ok {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestAuthService_PasswordOverByteLimit(t *testing.T) {
	svc, repo, _ := newTestAuthService()
	ctx := context.Background()
	long := strings.Repeat("é", 40)

	_, err := svc.Register(ctx, ports.RegisterInput{Name: "Ann", Email: "ann@x.com", Password: long})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if repo.get("ann@x.com") != nil {
		t.Fatalf("nothing should be stored")
	}

	register(t, svc, "Ann", "ann@x.com", "password1")
	if err := svc.ChangePassword(ctx, "ann@x.com", "password1", long); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
