// Package api is the client side of the member portal HTTP API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/99minutos/member-portal/internal/core/domain"
)

const defaultTimeout = 15 * time.Second

// Error is a non-2xx response. Unwrap maps it to the domain sentinel the
// server produced it from, so callers can use errors.Is. The server's error
// code decides when present, since one status can carry several errors.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

var codeErrors = map[string]error{
	"invalid_credentials":    domain.ErrInvalidCredentials,
	"email_exists":           domain.ErrDuplicateEmail,
	"user_not_found":         domain.ErrUserNotFound,
	"incorrect_old_password": domain.ErrIncorrectOldPassword,
	"not_registered":         domain.ErrNotRegistered,
	"unverified_email":       domain.ErrUnverifiedEmail,
	"forbidden":              domain.ErrForbidden,
	"invalid_tier":           domain.ErrInvalidTier,
	"invalid_input":          domain.ErrInvalidInput,
	"invalid_oauth_state":    domain.ErrInvalidOAuthState,
	"payment_not_completed":  domain.ErrPaymentNotCompleted,
	"unavailable":            domain.ErrUnavailable,
}

func (e *Error) Unwrap() error {
	if err, ok := codeErrors[e.Code]; ok {
		return err
	}
	switch e.Status {
	case http.StatusUnauthorized:
		return domain.ErrInvalidCredentials
	case http.StatusConflict:
		return domain.ErrDuplicateEmail
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusPaymentRequired:
		return domain.ErrPaymentNotCompleted
	case http.StatusServiceUnavailable:
		return domain.ErrUnavailable
	}
	return nil
}

type Session struct {
	User  domain.SanitizedUser `json:"user"`
	Token string               `json:"token"`
}

// OAuthSession is the result of a completed Google sign-in.
type OAuthSession struct {
	User    domain.SanitizedUser `json:"user"`
	Token   string               `json:"token"`
	Profile domain.OAuthProfile  `json:"profile"`
	Created bool                 `json:"created"`
}

type CheckoutSession struct {
	TransactionID string `json:"transactionId"`
	PriceID       string `json:"priceId"`
	PaymentType   string `json:"paymentType"`
}

type BillingConfig struct {
	ClientToken string            `json:"clientToken"`
	Environment string            `json:"environment"`
	Prices      map[string]string `json:"prices"`
}

type ProfileUpdate struct {
	Name           *string `json:"name,omitempty"`
	FirstTimeLogin *bool   `json:"firstTimeLogin,omitempty"`
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets where bearer tokens come from, typically session.Store.Token.
func WithToken(token func() string) Option {
	return func(c *Client) { c.token = token }
}

type Client struct {
	base  *url.URL
	http  *http.Client
	token func() string
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	c := &Client{
		base:  u,
		http:  &http.Client{Timeout: defaultTimeout},
		token: func() string { return "" },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Register(ctx context.Context, name, email, password, photo string) (*domain.SanitizedUser, error) {
	var out struct {
		User domain.SanitizedUser `json:"user"`
	}
	body := map[string]string{"name": name, "email": email, "password": password, "photo": photo}
	if err := c.do(ctx, http.MethodPost, "/auth/register", false, body, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Login returns errors.Is(err, domain.ErrInvalidCredentials) for a wrong
// email or password.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var out Session
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", false, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Verify(ctx context.Context, token string) (*domain.SanitizedUser, bool, error) {
	var out struct {
		Valid bool                  `json:"valid"`
		User  *domain.SanitizedUser `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/verify", false, map[string]string{"token": token}, &out); err != nil {
		return nil, false, err
	}
	return out.User, out.Valid, nil
}

// Logout acknowledges the sign-out and returns where to go next.
func (c *Client) Logout(ctx context.Context) (string, error) {
	var out struct {
		Redirect string `json:"redirect"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/logout", false, nil, &out); err != nil {
		return "", err
	}
	return out.Redirect, nil
}

func (c *Client) Refresh(ctx context.Context) (*Session, error) {
	var out Session
	if err := c.do(ctx, http.MethodPost, "/v1/auth/refresh", true, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (*domain.SanitizedUser, error) {
	var out struct {
		User domain.SanitizedUser `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/users/me", true, nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) error {
	return c.do(ctx, http.MethodPatch, "/v1/users/me", true, update, nil)
}

func (c *Client) ChangePhoto(ctx context.Context, photo string) error {
	return c.do(ctx, http.MethodPut, "/v1/users/me/photo", true, map[string]string{"photo": photo}, nil)
}

func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	body := map[string]string{"oldPassword": oldPassword, "newPassword": newPassword}
	return c.do(ctx, http.MethodPut, "/v1/users/me/password", true, body, nil)
}

func (c *Client) BillingConfig(ctx context.Context) (*BillingConfig, error) {
	var out BillingConfig
	if err := c.do(ctx, http.MethodGet, "/v1/billing/config", true, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Checkout(ctx context.Context, plan, period string) (*CheckoutSession, error) {
	var out CheckoutSession
	body := map[string]string{"plan": plan, "period": period}
	if err := c.do(ctx, http.MethodPost, "/v1/billing/checkout", true, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmPayment returns a session carrying the upgraded tier.
func (c *Client) ConfirmPayment(ctx context.Context, transactionID string) (*Session, error) {
	var out Session
	body := map[string]string{"transactionId": transactionID}
	if err := c.do(ctx, http.MethodPost, "/v1/billing/confirm", true, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GoogleLoginURL is the browser entry point of the Google flow.
func (c *Client) GoogleLoginURL(intent string) string {
	u := c.base.JoinPath("/auth/google/login")
	u.RawQuery = url.Values{"intent": {intent}}.Encode()
	return u.String()
}

// CompleteGoogle finishes the Google flow with the state and code Google
// redirected back with.
func (c *Client) CompleteGoogle(ctx context.Context, state, code string) (*OAuthSession, error) {
	u := c.base.JoinPath("/auth/google/callback")
	u.RawQuery = url.Values{"state": {state}, "code": {code}}.Encode()

	var out OAuthSession
	if err := c.send(ctx, http.MethodGet, u, false, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, auth bool, in, out any) error {
	return c.send(ctx, method, c.base.JoinPath(path), auth, in, out)
}

func (c *Client) send(ctx context.Context, method string, u *url.URL, auth bool, in, out any) error {
	path := u.Path
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		token := c.token()
		if token == "" {
			return &Error{Status: http.StatusUnauthorized, Message: "not signed in"}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var payload struct {
		Error   string `json:"error"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := http.StatusText(resp.StatusCode)
	var code string
	if json.Unmarshal(raw, &payload) == nil {
		code = payload.Code
		switch {
		case payload.Error != "":
			msg = payload.Error
		case payload.Message != "":
			msg = payload.Message
		}
	}
	return &Error{Status: resp.StatusCode, Code: code, Message: msg}
}

// IsStatus reports whether err is an API error with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}
