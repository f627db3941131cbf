package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"leo/internal/fileutil"
)

// CredentialsFile is the name of the token store inside the config dir.
const CredentialsFile = "credentials.json"

// Credentials are the stored OAuth tokens.
type Credentials struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	TokenType    string     `json:"token_type,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Email        string     `json:"email,omitempty"`

	// ProjectID caches the resolved Google Cloud project.
	ProjectID string `json:"project_id,omitempty"`
}

// IsExpired reports whether the access token is expired or expires
// within the refresh buffer. A token without an expiry never expires.
func (c *Credentials) IsExpired() bool {
	if c == nil || c.ExpiresAt == nil {
		return false
	}
	return time.Now().After(c.ExpiresAt.Add(-TokenRefreshBuffer))
}

// CanRefresh reports whether a refresh token is available.
func (c *Credentials) CanRefresh() bool {
	return c != nil && c.RefreshToken != ""
}

// CredentialsPath returns the token store path under configDir.
func CredentialsPath(configDir string) string {
	return filepath.Join(configDir, CredentialsFile)
}

// LoadCredentials reads stored credentials. A missing file returns
// (nil, nil) so callers can treat it as "not logged in".
func LoadCredentials(configDir string) (*Credentials, error) {
	data, err := os.ReadFile(CredentialsPath(configDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return &creds, nil
}

// SaveCredentials writes credentials with owner-only permissions.
func SaveCredentials(configDir string, creds *Credentials) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	// Atomic write closes the window where a concurrent reader could
	// see a half-written token file.
	if err := fileutil.WriteAtomic(CredentialsPath(configDir), data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

// DeleteCredentials removes stored credentials. Missing files are fine.
func DeleteCredentials(configDir string) error {
	err := os.Remove(CredentialsPath(configDir))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}
