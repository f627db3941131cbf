package auth

import (
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialsIsExpired(t *testing.T) {
	// No expiry recorded: treat as never expiring.
	creds := &Credentials{AccessToken: "tok"}
	assert.False(t, creds.IsExpired())

	future := time.Now().Add(time.Hour)
	creds.ExpiresAt = &future
	assert.False(t, creds.IsExpired())

	// Inside the 5-minute refresh buffer counts as expired.
	soon := time.Now().Add(2 * time.Minute)
	creds.ExpiresAt = &soon
	assert.True(t, creds.IsExpired())

	past := time.Now().Add(-time.Hour)
	creds.ExpiresAt = &past
	assert.True(t, creds.IsExpired())
}

func TestCredentialsCanRefresh(t *testing.T) {
	assert.False(t, (&Credentials{}).CanRefresh())
	assert.True(t, (&Credentials{RefreshToken: "r"}).CanRefresh())

	var nilCreds *Credentials
	assert.False(t, nilCreds.CanRefresh())
}

func TestSaveLoadCredentials(t *testing.T) {
	dir := t.TempDir()

	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	in := &Credentials{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		ExpiresAt:    &expiry,
		ProjectID:    "my-project",
	}
	require.NoError(t, SaveCredentials(dir, in))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(CredentialsPath(dir))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	out, err := LoadCredentials(dir)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "access", out.AccessToken)
	assert.Equal(t, "refresh", out.RefreshToken)
	assert.Equal(t, "my-project", out.ProjectID)
	require.NotNil(t, out.ExpiresAt)
	assert.True(t, expiry.Equal(*out.ExpiresAt))
}

func TestLoadCredentialsMissing(t *testing.T) {
	creds, err := LoadCredentials(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestDeleteCredentials(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveCredentials(dir, &Credentials{AccessToken: "x"}))
	require.NoError(t, DeleteCredentials(dir))

	creds, err := LoadCredentials(dir)
	require.NoError(t, err)
	assert.Nil(t, creds)

	// Deleting again is not an error.
	require.NoError(t, DeleteCredentials(dir))
}
