package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAuthURL(t *testing.T) {
	p := NewProvider(t.TempDir())
	raw := p.buildAuthURL("the-challenge", "the-state")

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	q := parsed.Query()

	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, RedirectURI, q.Get("redirect_uri"))
	assert.Equal(t, "the-challenge", q.Get("code_challenge"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, "the-state", q.Get("state"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))

	scope := q.Get("scope")
	assert.Contains(t, scope, "cloud-platform")
	assert.Contains(t, scope, "userinfo.email")
	assert.Contains(t, scope, "userinfo.profile")
	assert.NotContains(t, scope, "+") // space-joined, not plus-joined
}

func TestExchangeCode(t *testing.T) {
	var gotForm url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":3600}`))
	}))
	defer server.Close()

	p := NewProvider(t.TempDir())
	p.tokenURL = server.URL

	creds, err := p.exchangeCode(context.Background(), "the-code", "the-verifier")
	require.NoError(t, err)

	assert.Equal(t, "authorization_code", gotForm.Get("grant_type"))
	assert.Equal(t, "the-code", gotForm.Get("code"))
	assert.Equal(t, "the-verifier", gotForm.Get("code_verifier"))
	assert.Equal(t, RedirectURI, gotForm.Get("redirect_uri"))

	assert.Equal(t, "at", creds.AccessToken)
	assert.Equal(t, "rt", creds.RefreshToken)
	require.NotNil(t, creds.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *creds.ExpiresAt, time.Minute)
}

func TestRefreshTokenPreservesOldRefreshToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Google often omits refresh_token on refresh.
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new-at","token_type":"Bearer","expires_in":3600}`))
	}))
	defer server.Close()

	p := NewProvider(t.TempDir())
	p.tokenURL = server.URL

	old := &Credentials{
		AccessToken:  "old-at",
		RefreshToken: "old-rt",
		Email:        "ada@example.com",
		ProjectID:    "proj-1",
	}
	creds, err := p.refreshToken(context.Background(), old)
	require.NoError(t, err)

	assert.Equal(t, "new-at", creds.AccessToken)
	assert.Equal(t, "old-rt", creds.RefreshToken)
	assert.Equal(t, "ada@example.com", creds.Email)
	assert.Equal(t, "proj-1", creds.ProjectID)
}

func TestRefreshTokenUsesNewRefreshTokenWhenGiven(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new-at","refresh_token":"new-rt","token_type":"Bearer","expires_in":3600}`))
	}))
	defer server.Close()

	p := NewProvider(t.TempDir())
	p.tokenURL = server.URL

	creds, err := p.refreshToken(context.Background(), &Credentials{RefreshToken: "old-rt"})
	require.NoError(t, err)
	assert.Equal(t, "new-rt", creds.RefreshToken)
}

func TestPostFormErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	p := NewProvider(t.TempDir())
	p.tokenURL = server.URL

	_, err := p.refreshToken(context.Background(), &Credentials{RefreshToken: "rt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestGetValidTokenUsesCachedCredentials(t *testing.T) {
	dir := t.TempDir()
	future := time.Now().Add(time.Hour)
	require.NoError(t, SaveCredentials(dir, &Credentials{
		AccessToken: "cached-token",
		ExpiresAt:   &future,
	}))

	p := NewProvider(dir)
	token, err := p.GetValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cached-token", token)
}

func TestGetValidTokenRefreshesExpired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"refreshed","token_type":"Bearer","expires_in":3600}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	past := time.Now().Add(-time.Hour)
	require.NoError(t, SaveCredentials(dir, &Credentials{
		AccessToken:  "stale",
		RefreshToken: "rt",
		ExpiresAt:    &past,
	}))

	p := NewProvider(dir)
	p.tokenURL = server.URL

	token, err := p.GetValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refreshed", token)

	// The refreshed credentials were persisted.
	saved, err := LoadCredentials(dir)
	require.NoError(t, err)
	assert.Equal(t, "refreshed", saved.AccessToken)
	assert.Equal(t, "rt", saved.RefreshToken)
}

func TestLogout(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveCredentials(dir, &Credentials{AccessToken: "x"}))

	p := NewProvider(dir)
	require.NoError(t, p.Logout())

	creds, err := p.Credentials()
	require.NoError(t, err)
	assert.Nil(t, creds)
}
