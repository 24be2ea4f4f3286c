package pkce

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestGenerateChallengeMatchesVerifier(t *testing.T) {
	codes, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	hash := sha256.Sum256([]byte(codes.CodeVerifier))
	want := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(hash[:])
	if codes.CodeChallenge != want {
		t.Errorf("challenge = %q, want base64url(sha256(verifier)) = %q", codes.CodeChallenge, want)
	}
}

func TestGenerateEntropy(t *testing.T) {
	codes, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for name, value := range map[string]string{
		"verifier": codes.CodeVerifier,
		"state":    codes.State,
	} {
		decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(value)
		if err != nil {
			t.Fatalf("%s is not valid base64url: %v", name, err)
		}
		if len(decoded) < 24 {
			t.Errorf("%s decodes to %d bytes, want at least 24", name, len(decoded))
		}
	}
}

func TestGenerateNeverRepeats(t *testing.T) {
	first, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if first.CodeVerifier == second.CodeVerifier {
		t.Error("two generations produced the same verifier")
	}
	if first.State == second.State {
		t.Error("two generations produced the same state")
	}
}

func TestChallengeForKnownVector(t *testing.T) {
	// RFC 7636 appendix B test vector.
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	want := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
	if got := ChallengeFor(verifier); got != want {
		t.Errorf("ChallengeFor = %q, want %q", got, want)
	}
}
