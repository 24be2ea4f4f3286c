package xauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRefreshSendsFormAndBasicAuth(t *testing.T) {
	var gotGrant, gotRefresh, gotClientID string
	var gotUser, gotPass string
	var gotBasic bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		gotGrant = r.PostFormValue("grant_type")
		gotRefresh = r.PostFormValue("refresh_token")
		gotClientID = r.PostFormValue("client_id")
		gotUser, gotPass, gotBasic = r.BasicAuth()
		_, _ = w.Write([]byte(`{"access_token":"new-access","refresh_token":"new-refresh","expires_in":3600}`))
	}))
	defer server.Close()

	client := NewClient(Config{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		TokenURL:     server.URL,
	}, server.Client())

	tok, err := client.Refresh(context.Background(), "old-refresh")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if gotGrant != "refresh_token" || gotRefresh != "old-refresh" || gotClientID != "client-1" {
		t.Errorf("form = grant_type=%q refresh_token=%q client_id=%q", gotGrant, gotRefresh, gotClientID)
	}
	if !gotBasic || gotUser != "client-1" || gotPass != "secret-1" {
		t.Errorf("basic auth = %v %q:%q, want client-1:secret-1", gotBasic, gotUser, gotPass)
	}
	if tok.AccessToken != "new-access" || tok.RefreshToken != "new-refresh" || tok.ExpiresIn != 3600 {
		t.Errorf("token = %+v", tok)
	}
}

func TestRefreshOmitsBasicAuthWithoutSecret(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := r.BasicAuth(); ok {
			t.Error("basic auth sent without a configured client secret")
		}
		_, _ = w.Write([]byte(`{"access_token":"a"}`))
	}))
	defer server.Close()

	client := NewClient(Config{ClientID: "client-1", TokenURL: server.URL}, server.Client())
	if _, err := client.Refresh(context.Background(), "r"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
}

func TestRefreshNonSuccessIsDenied(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer server.Close()

	client := NewClient(Config{ClientID: "client-1", TokenURL: server.URL}, server.Client())
	_, err := client.Refresh(context.Background(), "stale")
	if !errors.Is(err, errRefreshDenied) {
		t.Errorf("err = %v, want errRefreshDenied", err)
	}
}

func TestRefreshTransportFailureIsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(Config{ClientID: "client-1", TokenURL: server.URL}, nil)
	_, err := client.Refresh(context.Background(), "r")

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("err = %v, want *UpstreamError", err)
	}
	if upstream.StatusCode != 0 {
		t.Errorf("status = %d, want 0 when no response arrived", upstream.StatusCode)
	}
}

func TestRefreshEmptyTokenIsDenied(t *testing.T) {
	client := NewClient(Config{ClientID: "client-1"}, nil)
	_, err := client.Refresh(context.Background(), "")
	if !errors.Is(err, errRefreshDenied) {
		t.Errorf("err = %v, want errRefreshDenied", err)
	}
}

func TestRefreshMissingClientIDIsConfigError(t *testing.T) {
	client := NewClient(Config{}, nil)
	_, err := client.Refresh(context.Background(), "r")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("err = %v, want *ConfigError", err)
	}
}

func TestApplyTokenKeepsRefreshTokenWithoutRotation(t *testing.T) {
	now := time.Now()
	prev := Credential{
		AccessToken:  "old-access",
		RefreshToken: "keep-me",
		SubjectID:    "u1",
	}

	next := applyToken(prev, &Token{AccessToken: "new-access"}, now)

	if next.RefreshToken != "keep-me" {
		t.Errorf("refresh token = %q, want previous value retained", next.RefreshToken)
	}
	if next.AccessToken != "new-access" {
		t.Errorf("access token = %q", next.AccessToken)
	}
	if want := now.UnixMilli() + defaultExpiresIn*1000; next.ExpiresAt != want {
		t.Errorf("expires_at = %d, want %d (default 7200s)", next.ExpiresAt, want)
	}
}

func TestApplyTokenRecomputesExpiry(t *testing.T) {
	now := time.Now()
	next := applyToken(Credential{}, &Token{AccessToken: "a", RefreshToken: "r", ExpiresIn: 120}, now)
	if want := now.UnixMilli() + 120_000; next.ExpiresAt != want {
		t.Errorf("expires_at = %d, want %d", next.ExpiresAt, want)
	}
	if next.RefreshToken != "r" {
		t.Errorf("refresh token = %q, want rotated value", next.RefreshToken)
	}
}
