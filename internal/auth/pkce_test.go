package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeneratePKCE(t *testing.T) {
	pkce := GeneratePKCE()

	assert.Len(t, pkce.Verifier, 64)
	for _, c := range pkce.Verifier {
		assert.Contains(t, verifierCharset, string(c))
	}

	// S256 challenge: 32 hash bytes → 43 base64url chars, no padding.
	assert.Len(t, pkce.Challenge, 43)
	assert.NotContains(t, pkce.Challenge, "=")
	assert.NotContains(t, pkce.Challenge, "+")
	assert.NotContains(t, pkce.Challenge, "/")
}

func TestChallengeFor(t *testing.T) {
	verifier := "test-verifier-value"
	hash := sha256.Sum256([]byte(verifier))
	want := base64.RawURLEncoding.EncodeToString(hash[:])

	assert.Equal(t, want, ChallengeFor(verifier))
	// Deterministic.
	assert.Equal(t, ChallengeFor(verifier), ChallengeFor(verifier))
}

func TestGenerateState(t *testing.T) {
	state := GenerateState()
	assert.Len(t, state, 32)
	for _, c := range state {
		assert.Contains(t, stateCharset, string(c))
	}
	assert.NotEqual(t, state, GenerateState())
}

func TestVerifierUniqueness(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		v := GeneratePKCE().Verifier
		assert.False(t, seen[v], "duplicate verifier")
		seen[v] = true
	}
}

func TestVerifierWithinRFCBounds(t *testing.T) {
	v := GeneratePKCE().Verifier
	assert.GreaterOrEqual(t, len(v), 43)
	assert.LessOrEqual(t, len(v), 128)
	assert.False(t, strings.ContainsAny(v, " +/="))
}
