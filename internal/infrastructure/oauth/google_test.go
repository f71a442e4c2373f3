package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"golang.org/x/oauth2"
)

func newTestGoogle(t *testing.T, userStatus int) *GoogleProvider {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if userStatus != http.StatusOK {
			w.WriteHeader(userStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(googleUser{
			ID:            "123",
			Email:         "ann@gmail.com",
			VerifiedEmail: true,
			Name:          "Ann Lee",
			Picture:       "https://lh3/ann.jpg",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := NewGoogleProvider(GoogleConfig{ClientID: "cid", ClientSecret: "csecret", RedirectURL: "http://localhost/cb"})
	p.conf.Endpoint = oauth2.Endpoint{
		AuthURL:   srv.URL + "/auth",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	p.userInfoURL = srv.URL + "/userinfo"
	return p
}

func TestGoogleProvider_AuthURL(t *testing.T) {
	p := NewGoogleProvider(GoogleConfig{ClientID: "cid", RedirectURL: "http://localhost/cb"})

	u, err := url.Parse(p.AuthURL("state-1"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if q.Get("state") != "state-1" || q.Get("client_id") != "cid" || q.Get("redirect_uri") != "http://localhost/cb" {
		t.Fatalf("unexpected query %v", q)
	}
	if u.Host != "accounts.google.com" {
		t.Fatalf("unexpected host %q", u.Host)
	}
}

func TestGoogleProvider_Identify(t *testing.T) {
	p := newTestGoogle(t, http.StatusOK)

	id, err := p.Identify(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	if id.Profile.Email != "ann@gmail.com" || id.Profile.Name != "Ann Lee" || id.Profile.Image != "https://lh3/ann.jpg" {
		t.Fatalf("unexpected profile %+v", id.Profile)
	}
	if !id.EmailVerified {
		t.Fatalf("expected verified email")
	}
}

func TestGoogleProvider_Identify_BadCode(t *testing.T) {
	p := newTestGoogle(t, http.StatusOK)
	if _, err := p.Identify(context.Background(), "bad-code"); err == nil {
		t.Fatalf("expected exchange error")
	}
}

func TestGoogleProvider_Identify_UserInfoFailure(t *testing.T) {
	p := newTestGoogle(t, http.StatusInternalServerError)
	if _, err := p.Identify(context.Background(), "good-code"); err == nil {
		t.Fatalf("expected userinfo error")
	}
}
