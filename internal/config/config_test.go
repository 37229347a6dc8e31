package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"AUTH_BASE_URL", "AUTH_TIMEOUT", "AUTH_TOKEN_STORE", "LOG_LEVEL", "ACCESS_TOKEN_TTL", "CORS_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.Client.BaseURL)
	assert.Equal(t, DefaultTimeout, cfg.Client.Timeout)
	assert.Equal(t, "keyring", cfg.TokenStore.Kind)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, DefaultAccessTokenTTL, cfg.DevServer.AccessTokenTTL)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.DevServer.CORSOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AUTH_BASE_URL", "https://auth.example.com/api/v1/")
	t.Setenv("AUTH_TIMEOUT", "2s")
	t.Setenv("AUTH_TOKEN_STORE", "file")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("DEVSERVER_PURGE_SCHEDULE", "0 * * * *")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://auth.example.com/api/v1", cfg.Client.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Client.Timeout)
	assert.Equal(t, "file", cfg.TokenStore.Kind)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.DevServer.CORSOrigins)
	assert.True(t, cfg.DevServer.CookieSecure)
	assert.Equal(t, "0 * * * *", cfg.DevServer.PurgeSchedule)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := map[string]string{
		"AUTH_TIMEOUT":      "soon",
		"REFRESH_TOKEN_TTL": "7days",
		"COOKIE_SECURE":     "maybe",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}

	t.Run("non-positive timeout", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("AUTH_TIMEOUT", "0s")
		_, err := Load()
		assert.Error(t, err)
	})
}
