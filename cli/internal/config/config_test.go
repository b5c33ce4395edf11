package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "default", cfg.CurrentProfile)
	assert.NotNil(t, cfg.Profiles)
	assert.Empty(t, cfg.Profiles)
	assert.NotNil(t, cfg.Defaults)
	assert.Equal(t, "http://localhost:8080", cfg.Defaults.APIURL)
	assert.Equal(t, "http://localhost:8000", cfg.Defaults.GatewayURL)
}

func TestLoad_NoConfigFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.CurrentProfile)
	assert.Equal(t, "http://localhost:8080", cfg.Defaults.APIURL)
}

func TestLoad_WithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `current_profile: production
profiles:
  production:
    api_url: https://chat.relayroom.example.com
    access_token: test-token-123
    refresh_token: refresh-token-456
defaults:
  api_url: http://localhost:8080
  gateway_url: http://localhost:8000
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0600))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.CurrentProfile)
	profile, err := cfg.GetProfile("production")
	require.NoError(t, err)
	assert.Equal(t, "https://chat.relayroom.example.com", profile.APIURL)
	assert.Equal(t, "test-token-123", profile.AccessToken)
	assert.Equal(t, "refresh-token-456", profile.RefreshToken)
}

func TestSaveProfile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg := Default()
	cfg.path = configPath

	err := cfg.SaveProfile("staging", "https://staging.relayroom.example.com", "access", "refresh")
	require.NoError(t, err)

	loaded, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "staging", loaded.CurrentProfile)
	profile, err := loaded.GetProfile("staging")
	require.NoError(t, err)
	assert.Equal(t, "https://staging.relayroom.example.com", profile.APIURL)
	assert.Equal(t, "access", profile.AccessToken)

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestGetProfile_UsesCurrentWhenEmpty(t *testing.T) {
	cfg := Default()
	cfg.Profiles["default"] = &Profile{APIURL: "http://localhost:8080"}

	profile, err := cfg.GetProfile("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", profile.APIURL)
}

func TestGetProfile_NotFound(t *testing.T) {
	cfg := Default()

	_, err := cfg.GetProfile("missing")
	assert.Error(t, err)
}

func TestGetAPIURL_FallsBackToDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "http://localhost:8080", cfg.GetAPIURL("missing"))

	cfg.Profiles["prod"] = &Profile{APIURL: "https://chat.relayroom.example.com"}
	assert.Equal(t, "https://chat.relayroom.example.com", cfg.GetAPIURL("prod"))
}

func TestRemoveProfile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg := Default()
	cfg.path = configPath
	require.NoError(t, cfg.SaveProfile("default", "http://localhost:8080", "a", "r"))

	require.NoError(t, cfg.RemoveProfile("default"))
	assert.Empty(t, cfg.CurrentProfile)

	_, err := cfg.GetProfile("default")
	assert.Error(t, err)
}

func TestRemoveProfile_NotFound(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.RemoveProfile("missing"))
}
