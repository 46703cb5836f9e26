package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/jrsteele09/newsfeed-auth/oauth2"
	"github.com/segmentio/ksuid"
)

// VerifierEntropyBytes is the amount of randomness behind each verifier and state.
const VerifierEntropyBytes = 32

// Challenge is one verifier/challenge pair. Only S256 is ever produced.
type Challenge struct {
	CodeVerifier        string
	CodeChallenge       string
	CodeChallengeMethod oauth2.CodeMethodType
}

// Generate creates a fresh PKCE verifier and its S256 challenge.
func Generate() (Challenge, error) {
	verifier, err := randomString(VerifierEntropyBytes)
	if err != nil {
		return Challenge{}, fmt.Errorf("generate code verifier: %w", err)
	}
	return Challenge{
		CodeVerifier:        verifier,
		CodeChallenge:       ChallengeFromVerifier(verifier),
		CodeChallengeMethod: oauth2.CodeMethodTypeS256,
	}, nil
}

// ChallengeFromVerifier computes BASE64URL-NOPAD(SHA256(verifier)).
func ChallengeFromVerifier(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// NewState returns an unguessable anti-forgery value for the authorization request.
func NewState() (string, error) {
	state, err := randomString(VerifierEntropyBytes)
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return state, nil
}

// NewCorrelationID identifies one login attempt in the flow store.
func NewCorrelationID() string {
	return ksuid.New().String()
}

// randomString creates a random base64url string from n bytes
func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
