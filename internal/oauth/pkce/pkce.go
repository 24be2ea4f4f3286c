// Package pkce provides PKCE (Proof Key for Code Exchange) utilities
// for OAuth 2.0 authorization code flows as specified in RFC 7636.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Codes holds the verification codes for one OAuth2 PKCE attempt.
// PKCE is an extension to the Authorization Code flow to prevent
// CSRF and authorization code injection attacks.
type Codes struct {
	// CodeVerifier is the cryptographically random string used to correlate
	// the authorization request to the token request.
	CodeVerifier string `json:"code_verifier"`
	// CodeChallenge is the SHA256 hash of the code verifier, base64url-encoded.
	CodeChallenge string `json:"code_challenge"`
	// State is an independent random value echoed back on the callback
	// to correlate it with this attempt.
	State string `json:"state"`
}

const (
	verifierBytes = 48
	stateBytes    = 32
)

// Generate creates a fresh set of PKCE codes. All random values come
// from crypto/rand; reuse across attempts is a security defect.
func Generate() (*Codes, error) {
	codeVerifier, err := randomURLSafe(verifierBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}

	state, err := randomURLSafe(stateBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	return &Codes{
		CodeVerifier:  codeVerifier,
		CodeChallenge: ChallengeFor(codeVerifier),
		State:         state,
	}, nil
}

// ChallengeFor returns the S256 code challenge for a verifier:
// base64url(sha256(verifier)) without padding.
func ChallengeFor(codeVerifier string) string {
	hash := sha256.Sum256([]byte(codeVerifier))
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(hash[:])
}

func randomURLSafe(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(bytes), nil
}
