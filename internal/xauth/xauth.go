// Package xauth implements the X (Twitter) bookmark access layer:
// PKCE authorization, token exchange and refresh, and bookmark
// retrieval with a single transparent refresh-retry on expiry.
package xauth

import (
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cookie names under which the caller persists credential state. The
// layer never touches cookies itself; it reads and writes through the
// SecretStore capability.
const (
	SecretAccessToken   = "x_access_token"
	SecretRefreshToken  = "x_refresh_token"
	SecretSubjectID     = "x_user_id"
	SecretHandle        = "x_user_handle"
	SecretExpiresAt     = "x_expires_at"
	SecretOAuthVerifier = "x_oauth_verifier"
	SecretOAuthState    = "x_oauth_state"
)

const (
	// TransientSecretTTL bounds the verifier/state lifetime during the
	// authorization round-trip.
	TransientSecretTTL = 600

	// RefreshTokenTTL is the local retention ceiling for refresh tokens.
	RefreshTokenTTL = 90 * 24 * 60 * 60

	// defaultExpiresIn is assumed when the token endpoint omits
	// expires_in.
	defaultExpiresIn = 7200
)

// SecretStore is the caller-supplied storage for per-session secrets,
// typically backed by http-only cookies. Values set with a ttl of zero
// are deleted.
type SecretStore interface {
	Get(name string) (string, bool)
	Set(name, value string, ttlSeconds int)
}

// Credential is the persisted record for one connected account.
type Credential struct {
	AccessToken  string
	RefreshToken string
	SubjectID    string
	Handle       string
	// ExpiresAt is epoch milliseconds past which the access token is
	// treated as invalid locally, even if the provider has not rejected
	// it yet.
	ExpiresAt int64
}

// Connected reports whether the credential is usable: access token and
// subject id present and not locally expired.
func (c Credential) Connected(now time.Time) bool {
	return c.AccessToken != "" && c.SubjectID != "" && c.ExpiresAt > now.UnixMilli()
}

// expired is the local conservative signal that triggers a proactive
// refresh on use. It does not mean the provider would reject the token.
func (c Credential) expired(now time.Time) bool {
	return c.ExpiresAt <= now.UnixMilli()
}

// Config holds the process-wide OAuth application settings, read-only
// after startup.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string

	// Endpoint overrides; empty means the production X endpoints.
	AuthURL    string
	TokenURL   string
	APIBaseURL string
}

const (
	defaultAuthURL    = "https://x.com/i/oauth2/authorize"
	defaultTokenURL   = "https://api.x.com/2/oauth2/token"
	defaultAPIBaseURL = "https://api.x.com"
)

// Client talks to the X OAuth and API endpoints. Construct with
// NewClient and share freely; all methods are safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
	now  func() time.Time

	// refreshGroup collapses concurrent refreshes for the same subject
	// within this process. Optional hardening: concurrent invocations
	// from separate processes still race, last successful refresh wins.
	refreshGroup singleflight.Group
}

// NewClient returns a client using httpClient for all provider calls.
// A nil httpClient falls back to a 30s-timeout default.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		cfg:  cfg,
		http: httpClient,
		now:  time.Now,
	}
}

func (c *Client) authURL() string {
	if c.cfg.AuthURL != "" {
		return c.cfg.AuthURL
	}
	return defaultAuthURL
}

func (c *Client) tokenURL() string {
	if c.cfg.TokenURL != "" {
		return c.cfg.TokenURL
	}
	return defaultTokenURL
}

func (c *Client) apiBaseURL() string {
	if c.cfg.APIBaseURL != "" {
		return c.cfg.APIBaseURL
	}
	return defaultAPIBaseURL
}

// LoadCredential reads the persisted credential record from the store.
func LoadCredential(store SecretStore) Credential {
	cred := Credential{}
	cred.AccessToken, _ = store.Get(SecretAccessToken)
	cred.RefreshToken, _ = store.Get(SecretRefreshToken)
	cred.SubjectID, _ = store.Get(SecretSubjectID)
	cred.Handle, _ = store.Get(SecretHandle)
	if raw, ok := store.Get(SecretExpiresAt); ok {
		cred.ExpiresAt = parseEpochMillis(raw)
	}
	return cred
}

// SaveCredential persists the credential record. The access token
// expires with the token itself; the remaining values are retained for
// the refresh-token ceiling so a stale access token can still be
// refreshed.
func SaveCredential(store SecretStore, cred Credential, now time.Time) {
	accessTTL := int((cred.ExpiresAt - now.UnixMilli()) / 1000)
	if accessTTL < 0 {
		accessTTL = 0
	}
	store.Set(SecretAccessToken, cred.AccessToken, accessTTL)
	store.Set(SecretRefreshToken, cred.RefreshToken, RefreshTokenTTL)
	store.Set(SecretSubjectID, cred.SubjectID, RefreshTokenTTL)
	store.Set(SecretHandle, cred.Handle, RefreshTokenTTL)
	store.Set(SecretExpiresAt, formatEpochMillis(cred.ExpiresAt), RefreshTokenTTL)
}

// ClearCredential destroys the credential record and any in-flight
// authorization secrets. Idempotent.
func ClearCredential(store SecretStore) {
	for _, name := range []string{
		SecretAccessToken,
		SecretRefreshToken,
		SecretSubjectID,
		SecretHandle,
		SecretExpiresAt,
		SecretOAuthVerifier,
		SecretOAuthState,
	} {
		store.Set(name, "", 0)
	}
}
