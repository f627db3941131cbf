// Package auth implements the browser-based OAuth2 login used by the
// Gemini Code Assist backend: PKCE, a loopback callback listener, and
// on-disk credential storage with automatic refresh.
package auth

import (
	"os"
	"time"
)

// Google OAuth client for the Code Assist flow.
// Overridable via LEO_OAUTH_CLIENT_ID / LEO_OAUTH_CLIENT_SECRET.
var (
	OAuthClientID     = envOr("LEO_OAUTH_CLIENT_ID", "")
	OAuthClientSecret = envOr("LEO_OAUTH_CLIENT_SECRET", "")
)

const (
	CallbackPort = 8085
	CallbackPath = "/callback"
	RedirectURI  = "http://localhost:8085/callback"
)

// Google OAuth endpoints
const (
	GoogleAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	GoogleTokenURL = "https://oauth2.googleapis.com/token"
)

// OAuth scopes requested during login.
var Scopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

const (
	// CallbackTimeout bounds how long we wait for the browser redirect.
	CallbackTimeout = 5 * time.Minute

	// TokenRefreshBuffer treats tokens expiring within this window as
	// already expired so requests never race the real expiry.
	TokenRefreshBuffer = 5 * time.Minute
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
