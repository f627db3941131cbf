package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// verifierCharset is the set RFC 7636 allows in a code verifier.
const verifierCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

// verifierLength is within the RFC 7636 bounds of 43..128.
const verifierLength = 64

const stateCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
const stateLength = 32

// PKCE holds a code verifier and its S256 challenge.
type PKCE struct {
	Verifier  string
	Challenge string
}

// GeneratePKCE creates a fresh verifier/challenge pair.
func GeneratePKCE() PKCE {
	verifier := randomString(verifierCharset, verifierLength)
	return PKCE{
		Verifier:  verifier,
		Challenge: ChallengeFor(verifier),
	}
}

// ChallengeFor computes the S256 code challenge for a verifier:
// base64url without padding over the SHA-256 digest.
func ChallengeFor(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// GenerateState creates a random CSRF state parameter.
func GenerateState() string {
	return randomString(stateCharset, stateLength)
}

func randomString(charset string, length int) string {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		panic("failed to read random bytes: " + err.Error())
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}
