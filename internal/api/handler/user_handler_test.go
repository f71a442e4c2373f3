package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/99minutos/member-portal/internal/core/domain"
	"github.com/99minutos/member-portal/internal/core/ports"
)

func TestUserHandler_Me(t *testing.T) {
	stub := &stubAuthService{
		findByEmailFn: func(ctx context.Context, email string) (*domain.SanitizedUser, error) {
			if email != "ann@gmail.com" {
				t.Fatalf("unexpected email %q", email)
			}
			u := ann
			u.Photo = "https://cdn/ann.png"
			return &u, nil
		},
	}
	h := NewUserHandler(stub)

	c, rec := newContext(http.MethodGet, "/v1/users/me", "", &ann)
	if err := h.Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp userResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.User.Photo != "https://cdn/ann.png" {
		t.Fatalf("expected the stored record, got %+v", resp.User)
	}
}

func TestUserHandler_Me_Deleted(t *testing.T) {
	stub := &stubAuthService{
		findByEmailFn: func(context.Context, string) (*domain.SanitizedUser, error) { return nil, nil },
	}
	h := NewUserHandler(stub)

	c, _ := newContext(http.MethodGet, "/v1/users/me", "", &ann)
	if err := h.Me(c); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserHandler_UpdateProfile(t *testing.T) {
	var got ports.ProfileUpdate
	stub := &stubAuthService{
		updateProfileFn: func(ctx context.Context, email string, update ports.ProfileUpdate) error {
			got = update
			return nil
		},
	}
	h := NewUserHandler(stub)

	c, rec := newContext(http.MethodPatch, "/v1/users/me", `{"firstTimeLogin":false}`, &ann)
	if err := h.UpdateProfile(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.Name != nil || got.FirstTimeLogin == nil || *got.FirstTimeLogin {
		t.Fatalf("unexpected update: %+v", got)
	}
}

func TestUserHandler_UpdateProfile_EmptyName(t *testing.T) {
	h := NewUserHandler(&stubAuthService{})

	c, _ := newContext(http.MethodPatch, "/v1/users/me", `{"name":""}`, &ann)
	if got := httpCode(t, h.UpdateProfile(c)); got != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", got)
	}
}

func TestUserHandler_ChangePhoto(t *testing.T) {
	var photo string
	stub := &stubAuthService{
		changePhotoFn: func(ctx context.Context, email, p string) error {
			photo = p
			return nil
		},
	}
	h := NewUserHandler(stub)

	c, _ := newContext(http.MethodPut, "/v1/users/me/photo", `{"photo":"https://cdn/new.png"}`, &ann)
	if err := h.ChangePhoto(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if photo != "https://cdn/new.png" {
		t.Fatalf("unexpected photo %q", photo)
	}
}

func TestUserHandler_ChangePassword(t *testing.T) {
	stub := &stubAuthService{
		changePasswordFn: func(ctx context.Context, email, oldPassword, newPassword string) error {
			if oldPassword != "password1" {
				return domain.ErrIncorrectOldPassword
			}
			return nil
		},
	}
	h := NewUserHandler(stub)

	c, _ := newContext(http.MethodPut, "/v1/users/me/password", `{"oldPassword":"password1","newPassword":"password2"}`, &ann)
	if err := h.ChangePassword(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	c, _ = newContext(http.MethodPut, "/v1/users/me/password", `{"oldPassword":"nope","newPassword":"password2"}`, &ann)
	if err := h.ChangePassword(c); !errors.Is(err, domain.ErrIncorrectOldPassword) {
		t.Fatalf("expected ErrIncorrectOldPassword, got %v", err)
	}

	c, _ = newContext(http.MethodPut, "/v1/users/me/password", `{"oldPassword":"password1","newPassword":"short"}`, &ann)
	if got := httpCode(t, h.ChangePassword(c)); got != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", got)
	}

	long := `{"oldPassword":"password1","newPassword":"` + strings.Repeat("é", 40) + `"}`
	c, _ = newContext(http.MethodPut, "/v1/users/me/password", long, &ann)
	if got := httpCode(t, h.ChangePassword(c)); got != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for a password over 72 bytes, got %d", got)
	}
}

func TestAdminHandler_GetUser(t *testing.T) {
	stub := &stubAuthService{
		findByEmailFn: func(ctx context.Context, email string) (*domain.SanitizedUser, error) {
			if email != "ann@gmail.com" {
				return nil, nil
			}
			u := ann
			return &u, nil
		},
	}
	h := NewAdminHandler(stub)

	c, rec := newContext(http.MethodGet, "/", "", nil)
	c.SetParamNames("email")
	c.SetParamValues("ann%40gmail.com")
	if err := h.GetUser(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c, _ = newContext(http.MethodGet, "/", "", nil)
	c.SetParamNames("email")
	c.SetParamValues("bob@gmail.com")
	if err := h.GetUser(c); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAdminHandler_SetTier(t *testing.T) {
	var tier domain.Tier
	stub := &stubAuthService{
		changeTierFn: func(ctx context.Context, email string, next domain.Tier) error {
			if !next.Valid() {
				return domain.ErrInvalidTier
			}
			tier = next
			return nil
		},
	}
	h := NewAdminHandler(stub)

	c, _ := newContext(http.MethodPut, "/", `{"paymentType":"Premium Annual"}`, nil)
	c.SetParamNames("email")
	c.SetParamValues("ann@gmail.com")
	if err := h.SetTier(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if tier != domain.TierPremiumAnnual {
		t.Fatalf("unexpected tier %q", tier)
	}

	c, _ = newContext(http.MethodPut, "/", `{"paymentType":"Gold"}`, nil)
	c.SetParamNames("email")
	c.SetParamValues("ann@gmail.com")
	if err := h.SetTier(c); !errors.Is(err, domain.ErrInvalidTier) {
		t.Fatalf("expected ErrInvalidTier, got %v", err)
	}
}
