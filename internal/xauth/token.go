package xauth

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/stashyhq/stashy/internal/json"
)

// Token is a fragment returned by the token endpoint. RefreshToken and
// ExpiresIn are optional: the provider may skip rotation and omit the
// expiry.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// Exchange trades an authorization code plus its PKCE verifier for the
// initial token pair. Used by the OAuth callback.
func (c *Client) Exchange(ctx context.Context, code, verifier string) (*Token, error) {
	if c.cfg.ClientID == "" {
		return nil, &ConfigError{Missing: []string{"TWITTER_CLIENT_ID"}}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := c.oauthConfig().Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", verifier),
	)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	expiresIn := tok.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultExpiresIn
	}
	return &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    expiresIn,
	}, nil
}

// Refresh mints a new access token from a refresh token.
//
// The request is form-encoded with grant_type=refresh_token and the
// client id in the body; when a client secret is configured it is also
// sent as HTTP Basic credentials (the provider accepts either). A
// non-success status comes back as errRefreshDenied, which is an
// expected outcome, not a fault; a transport failure comes back as an
// UpstreamError with a zero status.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	if refreshToken == "" {
		return nil, errRefreshDenied
	}
	if c.cfg.ClientID == "" {
		return nil, &ConfigError{Missing: []string{"TWITTER_CLIENT_ID"}}
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", c.cfg.ClientID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.cfg.ClientSecret != "" {
		basic := base64.StdEncoding.EncodeToString([]byte(c.cfg.ClientID + ":" + c.cfg.ClientSecret))
		req.Header.Set("Authorization", "Basic "+basic)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &UpstreamError{Body: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &UpstreamError{Body: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", errRefreshDenied, resp.StatusCode)
	}

	tok := &Token{}
	if err := json.Unmarshal(body, tok); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: response carried no access token", errRefreshDenied)
	}
	return tok, nil
}

// applyToken folds a token fragment into an existing credential record.
// A missing refresh token keeps the previous one (rotation is optional
// on the provider side); a missing expiry assumes the 7200s default.
// expires_at is always recomputed from now, never trusted from any
// other source.
func applyToken(prev Credential, tok *Token, now time.Time) Credential {
	next := prev
	next.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		next.RefreshToken = tok.RefreshToken
	}
	expiresIn := tok.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultExpiresIn
	}
	next.ExpiresAt = now.UnixMilli() + expiresIn*1000
	return next
}

func parseEpochMillis(raw string) int64 {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return value
}

func formatEpochMillis(value int64) string {
	return strconv.FormatInt(value, 10)
}
