package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/member-portal/internal/core/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, opts...)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New("localhost:8080")
	require.Error(t, err)
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "password1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid email or password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"user":  domain.SanitizedUser{ID: "u1", Name: "Ann", Email: body["email"], Tier: domain.TierFree},
			"token": "tok",
		})
	})

	sess, err := c.Login(context.Background(), "ann@x.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", sess.User.Name)
	assert.Equal(t, domain.TierFree, sess.User.Tier)
	assert.Equal(t, "tok", sess.Token)

	_, err = c.Login(context.Background(), "ann@x.com", "wrong")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Contains(t, err.Error(), "invalid email or password")
}

func TestRegister_Conflict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "email already exists"})
	})

	_, err := c.Register(context.Background(), "Ann", "ann@x.com", "password1", "")
	require.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestBearerToken(t *testing.T) {
	token := ""
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/users/me", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"user": domain.SanitizedUser{Email: "ann@x.com"}})
	}, WithToken(func() string { return token }))

	_, err := c.Me(context.Background())
	require.ErrorIs(t, err, domain.ErrInvalidCredentials, "no request is sent without a token")

	token = "tok"
	u, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", u.Email)
}

func TestVerify(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"valid": false})
	})

	u, ok, err := c.Verify(context.Background(), "garbage")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, u)
}

func TestLogout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"redirect": "/login"})
	})

	to, err := c.Logout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/login", to)
}

func TestChangePassword_NoBodyExpected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "old", body["oldPassword"])
		assert.Equal(t, "newpassword", body["newPassword"])
		writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
	}, WithToken(func() string { return "tok" }))

	require.NoError(t, c.ChangePassword(context.Background(), "old", "newpassword"))
}

func TestErrorWithoutJSONBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, WithToken(func() string { return "tok" }))

	_, err := c.Checkout(context.Background(), "pro", "monthly")
	require.ErrorIs(t, err, domain.ErrUnavailable)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Service Unavailable", apiErr.Message)
}

func TestGoogleLoginURL(t *testing.T) {
	c, err := New("https://portal.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example.com/auth/google/login?intent=register", c.GoogleLoginURL("register"))
}

func TestCompleteGoogle(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/auth/google/callback", r.URL.Path)
		if r.URL.Query().Get("state") != "st-1" || r.URL.Query().Get("code") != "c-1" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sign-in session expired, try again", "code": "invalid_oauth_state"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"user":    domain.SanitizedUser{Name: "Ann", Email: "ann@gmail.com"},
			"token":   "tok",
			"profile": domain.OAuthProfile{Name: "Ann", Email: "ann@gmail.com", Image: "https://img/a.png"},
			"created": true,
		})
	})

	sess, err := c.CompleteGoogle(context.Background(), "st-1", "c-1")
	require.NoError(t, err)
	assert.True(t, sess.Created)
	assert.Equal(t, "tok", sess.Token)
	assert.Equal(t, "https://img/a.png", sess.Profile.Image)

	_, err = c.CompleteGoogle(context.Background(), "stale", "c-1")
	require.ErrorIs(t, err, domain.ErrInvalidOAuthState)
}

func TestErrorCodeTellsNotFoundCasesApart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("code") == "unregistered" {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "email is not registered: ann@gmail.com", "code": "not_registered"})
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found", "code": "user_not_found"})
	}, WithToken(func() string { return "tok" }))

	_, err := c.CompleteGoogle(context.Background(), "st", "unregistered")
	require.ErrorIs(t, err, domain.ErrNotRegistered)
	assert.NotErrorIs(t, err, domain.ErrUserNotFound)

	_, err = c.Me(context.Background())
	require.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.NotErrorIs(t, err, domain.ErrNotRegistered)
}

func TestBilling(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/billing/config":
			writeJSON(w, http.StatusOK, map[string]any{
				"clientToken": "ctok",
				"environment": "sandbox",
				"prices":      map[string]string{"Premium Annual": "pri_prem_annual_012"},
			})
		case "/v1/billing/checkout":
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "premium", body["plan"])
			assert.Equal(t, "annual", body["period"])
			writeJSON(w, http.StatusCreated, map[string]string{"transactionId": "txn_01", "priceId": "pri_prem_annual_012", "paymentType": "Premium Annual"})
		case "/v1/billing/confirm":
			writeJSON(w, http.StatusPaymentRequired, map[string]string{"error": "payment not completed", "code": "payment_not_completed"})
		}
	}, WithToken(func() string { return "tok" }))
	ctx := context.Background()

	cfg, err := c.BillingConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pri_prem_annual_012", cfg.Prices["Premium Annual"])

	co, err := c.Checkout(ctx, "premium", "annual")
	require.NoError(t, err)
	assert.Equal(t, "txn_01", co.TransactionID)

	_, err = c.ConfirmPayment(ctx, "txn_01")
	require.ErrorIs(t, err, domain.ErrPaymentNotCompleted)
}
