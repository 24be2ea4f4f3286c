package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	log "github.com/stashyhq/stashy/internal/logging"
	"github.com/stashyhq/stashy/internal/xauth"
)

// handleConnect starts the OAuth flow: generates PKCE codes, stashes
// the verifier and state as short-lived cookies and redirects to the
// provider's authorization page.
func (s *Server) handleConnect(c *gin.Context) {
	req, err := s.x.BeginAuthorization()
	if err != nil {
		var cfgErr *xauth.ConfigError
		if errors.As(err, &cfgErr) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": cfgErr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start X authorization"})
		return
	}

	secrets := s.secrets(c)
	secrets.Set(xauth.SecretOAuthVerifier, req.Codes.CodeVerifier, xauth.TransientSecretTTL)
	secrets.Set(xauth.SecretOAuthState, req.Codes.State, xauth.TransientSecretTTL)

	c.Redirect(http.StatusTemporaryRedirect, req.URL)
}

// handleCallback finishes the flow: checks the state echo, exchanges
// the code with the stored verifier, resolves the account and persists
// the credential record. The transient secrets are consumed either way.
func (s *Server) handleCallback(c *gin.Context) {
	secrets := s.secrets(c)
	storedState, _ := secrets.Get(xauth.SecretOAuthState)
	verifier, _ := secrets.Get(xauth.SecretOAuthVerifier)
	secrets.Set(xauth.SecretOAuthVerifier, "", 0)
	secrets.Set(xauth.SecretOAuthState, "", 0)

	if errParam := c.Query("error"); errParam != "" {
		log.Warnf("X authorization denied: %s", errParam)
		c.Redirect(http.StatusTemporaryRedirect, "/?x_error=denied")
		return
	}

	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" || storedState == "" || state != storedState || verifier == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid OAuth callback"})
		return
	}

	ctx := c.Request.Context()
	tok, err := s.x.Exchange(ctx, code, verifier)
	if err != nil {
		log.WithError(err).Error("X code exchange failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to complete X authorization"})
		return
	}

	user, err := s.x.FetchUser(ctx, tok.AccessToken)
	if err != nil {
		log.WithError(err).Error("X user lookup failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to resolve X account"})
		return
	}

	now := time.Now()
	cred := xauth.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		SubjectID:    user.ID,
		Handle:       user.Username,
		ExpiresAt:    now.UnixMilli() + tok.ExpiresIn*1000,
	}
	xauth.SaveCredential(secrets, cred, now)

	log.Infof("X account connected: @%s", user.Username)
	c.Redirect(http.StatusTemporaryRedirect, "/")
}

// handleDisconnect clears the credential record. Idempotent: succeeds
// even when nothing was connected.
func (s *Server) handleDisconnect(c *gin.Context) {
	xauth.ClearCredential(s.secrets(c))
	c.Redirect(http.StatusTemporaryRedirect, "/")
}

// handleStatus reports the connection state without mutating anything.
func (s *Server) handleStatus(c *gin.Context) {
	cred := xauth.LoadCredential(s.secrets(c))
	connected := cred.Connected(time.Now())

	var handle *string
	if connected && cred.Handle != "" {
		handle = &cred.Handle
	}
	c.JSON(http.StatusOK, gin.H{"connected": connected, "handle": handle})
}
