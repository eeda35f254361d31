package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable FromEnv reads so the host environment
// cannot leak into the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HOST", "PORT", "GIN_MODE", "CORS_ORIGINS", "SERVER_READ_TIMEOUT", "SERVER_WRITE_TIMEOUT",
		"GITHUB_TOKEN", "GITHUB_API_URL", "USER_AGENT", "REQUEST_TIMEOUT", "RETRY_ATTEMPTS", "RETRY_DELAY",
		"SEARCH_CEILING", "SEARCH_MAX_PAGES", "SEARCH_PAGE_TIMEOUT", "REDIS_URL", "LOG_LEVEL", "LOG_PRETTY",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.GinMode)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 90*time.Second, cfg.Server.WriteTimeout)

	assert.Empty(t, cfg.GitHub.Token)
	assert.Empty(t, cfg.GitHub.APIURL)
	assert.Equal(t, "topic-repo-search/0.1.0", cfg.GitHub.UserAgent)
	assert.Equal(t, 10*time.Second, cfg.GitHub.RequestTimeout)
	assert.Equal(t, 3, cfg.GitHub.RetryAttempts)
	assert.Equal(t, 2*time.Second, cfg.GitHub.RetryDelay)

	assert.Equal(t, 500, cfg.Search.Ceiling)
	assert.Equal(t, 5, cfg.Search.MaxPages)
	assert.Equal(t, 45*time.Second, cfg.Search.PageTimeout)

	assert.Empty(t, cfg.Redis.URL)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Pretty)

	assert.Equal(t, "0.0.0.0:8080", cfg.GetServerAddress())
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000, https://example.com ,")
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("GITHUB_API_URL", "https://github.example.com/api/v3")
	t.Setenv("RETRY_ATTEMPTS", "5")
	t.Setenv("RETRY_DELAY", "3")
	t.Setenv("SEARCH_PAGE_TIMEOUT", "20s")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_PRETTY", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000", "https://example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "ghp_test", cfg.GitHub.Token)
	assert.Equal(t, "https://github.example.com/api/v3", cfg.GitHub.APIURL)
	assert.Equal(t, 5, cfg.GitHub.RetryAttempts)
	assert.Equal(t, 3*time.Second, cfg.GitHub.RetryDelay)
	assert.Equal(t, 20*time.Second, cfg.Search.PageTimeout)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Pretty)
}

func TestFromEnv_UnparsableValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("RETRY_ATTEMPTS", "many")
	t.Setenv("REQUEST_TIMEOUT", "soon")
	t.Setenv("LOG_PRETTY", "maybe")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.GitHub.RetryAttempts)
	assert.Equal(t, 10*time.Second, cfg.GitHub.RequestTimeout)
	assert.False(t, cfg.Logging.Pretty)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "unknown gin mode", env: map[string]string{"GIN_MODE": "prod"}, wantErr: "GIN_MODE must be debug, release or test"},
		{name: "non numeric port", env: map[string]string{"PORT": "http"}, wantErr: "PORT must be numeric"},
		{name: "relative api url", env: map[string]string{"GITHUB_API_URL": "api/v3"}, wantErr: "GITHUB_API_URL must be an absolute URL"},
		{name: "zero retry attempts", env: map[string]string{"RETRY_ATTEMPTS": "0"}, wantErr: "RETRY_ATTEMPTS must be between 1 and 10"},
		{name: "ceiling above GitHub limit", env: map[string]string{"SEARCH_CEILING": "5000"}, wantErr: "SEARCH_CEILING must be between 1 and 1000"},
		{name: "too many pages", env: map[string]string{"SEARCH_MAX_PAGES": "11"}, wantErr: "SEARCH_MAX_PAGES must be between 1 and 10"},
		{name: "negative request timeout", env: map[string]string{"REQUEST_TIMEOUT": "-1s"}, wantErr: "REQUEST_TIMEOUT must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
