package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"leo/internal/logging"
)

// tokenResponse is the JSON body of Google's token endpoint.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Provider manages OAuth credentials: loading, refreshing, and running
// the interactive browser login when nothing usable is stored.
type Provider struct {
	configDir  string
	httpClient *http.Client

	// endpoint overrides for tests
	authURL  string
	tokenURL string

	mu    sync.Mutex
	creds *Credentials
}

// NewProvider creates a Provider storing credentials under configDir.
func NewProvider(configDir string) *Provider {
	return &Provider{
		configDir:  configDir,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		authURL:    GoogleAuthURL,
		tokenURL:   GoogleTokenURL,
	}
}

// Credentials returns the currently loaded credentials, loading them
// from disk on first use. Returns nil when not logged in.
func (p *Provider) Credentials() (*Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadLocked()
}

func (p *Provider) loadLocked() (*Credentials, error) {
	if p.creds != nil {
		return p.creds, nil
	}
	creds, err := LoadCredentials(p.configDir)
	if err != nil {
		return nil, err
	}
	p.creds = creds
	return creds, nil
}

// GetValidToken returns a usable access token, refreshing or running
// the full browser login as needed.
func (p *Provider) GetValidToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	creds, err := p.loadLocked()
	if err != nil {
		return "", err
	}

	if creds != nil && !creds.IsExpired() {
		return creds.AccessToken, nil
	}

	if creds != nil && creds.CanRefresh() {
		refreshed, err := p.refreshToken(ctx, creds)
		if err == nil {
			p.creds = refreshed
			if err := SaveCredentials(p.configDir, refreshed); err != nil {
				logging.Warn("failed to persist refreshed credentials", "error", err)
			}
			return refreshed.AccessToken, nil
		}
		logging.Warn("token refresh failed, falling back to browser login", "error", err)
	}

	fresh, err := p.authorizeLocked(ctx)
	if err != nil {
		return "", err
	}
	return fresh.AccessToken, nil
}

// Authorize runs the full interactive browser login and stores the
// resulting credentials.
func (p *Provider) Authorize(ctx context.Context) (*Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.authorizeLocked(ctx)
}

func (p *Provider) authorizeLocked(ctx context.Context) (*Credentials, error) {
	pkce := GeneratePKCE()
	state := GenerateState()
	loginURL := p.buildAuthURL(pkce.Challenge, state)

	fmt.Println("Opening your browser to sign in with Google...")
	fmt.Println("If it does not open, visit:")
	fmt.Println("  " + loginURL)
	if err := openBrowser(loginURL); err != nil {
		logging.Warn("failed to open browser", "error", err)
	}

	callbackCtx, cancel := context.WithTimeout(ctx, CallbackTimeout)
	defer cancel()

	result, err := WaitForCallback(callbackCtx)
	if err != nil {
		return nil, err
	}
	if result.State != state {
		return nil, fmt.Errorf("state mismatch in oauth callback, possible CSRF")
	}

	creds, err := p.exchangeCode(ctx, result.Code, pkce.Verifier)
	if err != nil {
		return nil, err
	}

	p.creds = creds
	if err := SaveCredentials(p.configDir, creds); err != nil {
		return nil, err
	}
	logging.Info("oauth login complete")
	return creds, nil
}

// buildAuthURL builds the Google authorization URL for this login.
func (p *Provider) buildAuthURL(challenge, state string) string {
	params := url.Values{}
	params.Set("client_id", OAuthClientID)
	params.Set("redirect_uri", RedirectURI)
	params.Set("response_type", "code")
	params.Set("scope", strings.Join(Scopes, " "))
	params.Set("code_challenge", challenge)
	params.Set("code_challenge_method", "S256")
	params.Set("state", state)
	params.Set("access_type", "offline")
	params.Set("prompt", "consent")
	return p.authURL + "?" + params.Encode()
}

// exchangeCode trades the authorization code for tokens.
func (p *Provider) exchangeCode(ctx context.Context, code, verifier string) (*Credentials, error) {
	form := url.Values{}
	form.Set("client_id", OAuthClientID)
	form.Set("client_secret", OAuthClientSecret)
	form.Set("code", code)
	form.Set("code_verifier", verifier)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", RedirectURI)

	resp, err := p.postForm(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	return credentialsFrom(resp, ""), nil
}

// refreshToken obtains a new access token using the refresh token.
// Google may omit the refresh token from the response; the old one is
// kept in that case.
func (p *Provider) refreshToken(ctx context.Context, old *Credentials) (*Credentials, error) {
	form := url.Values{}
	form.Set("client_id", OAuthClientID)
	form.Set("client_secret", OAuthClientSecret)
	form.Set("refresh_token", old.RefreshToken)
	form.Set("grant_type", "refresh_token")

	resp, err := p.postForm(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	creds := credentialsFrom(resp, old.RefreshToken)
	creds.Email = old.Email
	creds.ProjectID = old.ProjectID
	return creds, nil
}

func (p *Provider) postForm(ctx context.Context, form url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	return &token, nil
}

func credentialsFrom(resp *tokenResponse, fallbackRefresh string) *Credentials {
	creds := &Credentials{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
	}
	if creds.RefreshToken == "" {
		creds.RefreshToken = fallbackRefresh
	}
	if resp.ExpiresIn > 0 {
		expiry := time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
		creds.ExpiresAt = &expiry
	}
	return creds
}

// SetProjectID caches the resolved cloud project in the stored credentials.
func (p *Provider) SetProjectID(projectID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	creds, err := p.loadLocked()
	if err != nil {
		return err
	}
	if creds == nil {
		return fmt.Errorf("not logged in")
	}
	creds.ProjectID = projectID
	return SaveCredentials(p.configDir, creds)
}

// Logout removes stored credentials.
func (p *Provider) Logout() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.creds = nil
	return DeleteCredentials(p.configDir)
}

// openBrowser opens url in the default browser.
func openBrowser(target string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", target).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target).Start()
	default:
		return exec.Command("xdg-open", target).Start()
	}
}
