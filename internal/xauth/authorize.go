package xauth

import (
	"golang.org/x/oauth2"

	"github.com/stashyhq/stashy/internal/oauth/pkce"
)

// scopes is the fixed, read-oriented scope set requested on every
// connect attempt.
var scopes = []string{"bookmark.read", "tweet.read", "users.read", "offline.access"}

// AuthorizationRequest is the output of one connect initiation. The
// caller persists Codes.CodeVerifier and Codes.State for the lifetime
// of the authorization round-trip and redirects the user to URL.
type AuthorizationRequest struct {
	Codes *pkce.Codes
	URL   string
}

func (c *Client) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		RedirectURL:  c.cfg.CallbackURL,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.authURL(),
			TokenURL: c.tokenURL(),
		},
	}
}

// BeginAuthorization generates fresh PKCE codes and builds the
// provider authorization URL. Fails with *ConfigError when the
// application identifiers are not configured; that is a deployment
// problem, not a retryable condition.
func (c *Client) BeginAuthorization() (*AuthorizationRequest, error) {
	var missing []string
	if c.cfg.ClientID == "" {
		missing = append(missing, "TWITTER_CLIENT_ID")
	}
	if c.cfg.CallbackURL == "" {
		missing = append(missing, "TWITTER_CALLBACK_URL")
	}
	if len(missing) > 0 {
		return nil, &ConfigError{Missing: missing}
	}

	codes, err := pkce.Generate()
	if err != nil {
		return nil, err
	}

	authorizeURL := c.oauthConfig().AuthCodeURL(codes.State,
		oauth2.SetAuthURLParam("code_challenge", codes.CodeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)

	return &AuthorizationRequest{Codes: codes, URL: authorizeURL}, nil
}
