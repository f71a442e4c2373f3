package handler

import (
	"context"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/member-portal/internal/api/middleware"
	"github.com/99minutos/member-portal/internal/core/domain"
	"github.com/99minutos/member-portal/internal/core/ports"
)

// stubAuthService panics on any call whose function is not set.
type stubAuthService struct {
	loginFn          func(ctx context.Context, email, password string) (*ports.LoginResult, error)
	registerFn       func(ctx context.Context, in ports.RegisterInput) (*domain.SanitizedUser, error)
	changePasswordFn func(ctx context.Context, email, oldPassword, newPassword string) error
	updateProfileFn  func(ctx context.Context, email string, update ports.ProfileUpdate) error
	changePhotoFn    func(ctx context.Context, email, photo string) error
	changeTierFn     func(ctx context.Context, email string, tier domain.Tier) error
	findByEmailFn    func(ctx context.Context, email string) (*domain.SanitizedUser, error)
	refreshFn        func(ctx context.Context, email string) (*ports.LoginResult, error)
	verifyFn         func(token string) (domain.SanitizedUser, bool)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.SanitizedUser, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error {
	return s.changePasswordFn(ctx, email, oldPassword, newPassword)
}

func (s *stubAuthService) UpdateProfile(ctx context.Context, email string, update ports.ProfileUpdate) error {
	return s.updateProfileFn(ctx, email, update)
}

func (s *stubAuthService) ChangePhoto(ctx context.Context, email, photo string) error {
	return s.changePhotoFn(ctx, email, photo)
}

func (s *stubAuthService) ChangeTier(ctx context.Context, email string, tier domain.Tier) error {
	return s.changeTierFn(ctx, email, tier)
}

func (s *stubAuthService) FindByEmail(ctx context.Context, email string) (*domain.SanitizedUser, error) {
	return s.findByEmailFn(ctx, email)
}

func (s *stubAuthService) Refresh(ctx context.Context, email string) (*ports.LoginResult, error) {
	return s.refreshFn(ctx, email)
}

func (s *stubAuthService) IssueToken(domain.SanitizedUser) (string, error) {
	panic("IssueToken is not routed")
}

func (s *stubAuthService) VerifyToken(token string) (domain.SanitizedUser, bool) {
	return s.verifyFn(token)
}

type stubOAuthService struct {
	beginFn    func(ctx context.Context, intent ports.OAuthIntent) (string, error)
	completeFn func(ctx context.Context, state, code string) (*ports.OAuthResult, error)
}

func (s *stubOAuthService) Reconcile(context.Context, domain.OAuthProfile) (*ports.OAuthResult, error) {
	panic("not used by handlers")
}

func (s *stubOAuthService) AutoRegister(context.Context, domain.OAuthProfile) (*ports.OAuthResult, error) {
	panic("not used by handlers")
}

func (s *stubOAuthService) BeginAuth(ctx context.Context, intent ports.OAuthIntent) (string, error) {
	return s.beginFn(ctx, intent)
}

func (s *stubOAuthService) CompleteAuth(ctx context.Context, state, code string) (*ports.OAuthResult, error) {
	return s.completeFn(ctx, state, code)
}

type stubBillingService struct {
	config     ports.BillingConfig
	checkoutFn func(ctx context.Context, email, plan string, period domain.BillingPeriod) (*ports.CheckoutSession, error)
	confirmFn  func(ctx context.Context, email, transactionID string) (*ports.LoginResult, error)
}

func (s *stubBillingService) Config() ports.BillingConfig { return s.config }

func (s *stubBillingService) Checkout(ctx context.Context, email, plan string, period domain.BillingPeriod) (*ports.CheckoutSession, error) {
	return s.checkoutFn(ctx, email, plan, period)
}

func (s *stubBillingService) Confirm(ctx context.Context, email, transactionID string) (*ports.LoginResult, error) {
	return s.confirmFn(ctx, email, transactionID)
}

var ann = domain.SanitizedUser{
	ID:             "1",
	Name:           "Ann",
	Email:          "ann@gmail.com",
	FirstTimeLogin: true,
	CreatedAt:      "2024-01-02T03:04:05Z",
	Tier:           domain.TierFree,
}

// newContext builds an echo context with the validator installed. A non-nil
// user is injected the way the Auth middleware does it.
func newContext(method, target, body string, user *domain.SanitizedUser) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if user != nil {
		c.Set(middleware.UserKey, *user)
	}
	return c, rec
}
