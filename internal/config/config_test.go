package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"GITHUB_CLIENT_ID":     "cid",
		"GITHUB_CLIENT_SECRET": "csecret",
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := parseFrom(baseEnv())
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 3001, cfg.Port)
	assert.Equal(t, "0.0.0.0:3001", cfg.Addr())
	assert.Equal(t, "http://0.0.0.0:3001", cfg.BaseURL())
	assert.Equal(t, "frontend", cfg.FrontendDir)
	assert.Equal(t, "data/devdashboard.db", cfg.DBPath)
	assert.Equal(t, 2, cfg.StoreRetries)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	assert.False(t, cfg.UsePostgres())
	assert.Nil(t, cfg.CORSOrigins)

	assert.Equal(t, "http://localhost:3001/auth/github/callback", cfg.GitHub.RedirectURL)
	assert.Equal(t, "https://api.github.com/user", cfg.GitHub.UserURL)
	assert.Empty(t, cfg.GitHub.TokenURL)
	assert.Equal(t, 10*time.Second, cfg.GitHub.Timeout)
}

func TestParse_Overrides(t *testing.T) {
	environ := baseEnv()
	environ["PORT"] = "8080"
	environ["PUBLIC_URL"] = "https://dash.example.com/"
	environ["LOG_LEVEL"] = "debug"
	environ["GITHUB_TIMEOUT"] = "3s"
	environ["GITHUB_TOKEN_URL"] = "http://127.0.0.1:9999/token"
	environ["CORS_ORIGINS"] = "https://a.example.com, https://b.example.com,"
	environ["DATABASE_URL"] = "postgresql://u:p@db:5432/devdash"

	cfg, err := parseFrom(environ)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, 3*time.Second, cfg.GitHub.Timeout)
	assert.Equal(t, "http://127.0.0.1:9999/token", cfg.GitHub.TokenURL)
	assert.Equal(t, "https://dash.example.com/auth/github/callback", cfg.GitHub.RedirectURL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	assert.True(t, cfg.UsePostgres())
}

func TestParse_ExplicitRedirectWins(t *testing.T) {
	environ := baseEnv()
	environ["GITHUB_REDIRECT_URL"] = "http://72.61.5.158:3001/auth/github/callback"

	cfg, err := parseFrom(environ)
	require.NoError(t, err)
	assert.Equal(t, "http://72.61.5.158:3001/auth/github/callback", cfg.GitHub.RedirectURL)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(map[string]string)
		wantMsg string
	}{
		{"missing client id", func(e map[string]string) { delete(e, "GITHUB_CLIENT_ID") }, "GITHUB_CLIENT_ID"},
		{"missing client secret", func(e map[string]string) { delete(e, "GITHUB_CLIENT_SECRET") }, "GITHUB_CLIENT_SECRET"},
		{"port out of range", func(e map[string]string) { e["PORT"] = "70000" }, "PORT"},
		{"port not a number", func(e map[string]string) { e["PORT"] = "abc" }, "Port"},
		{"bad log level", func(e map[string]string) { e["LOG_LEVEL"] = "loud" }, "LOG_LEVEL"},
		{"short state secret", func(e map[string]string) { e["OAUTH_STATE_SECRET"] = "short" }, "OAUTH_STATE_SECRET"},
		{"bad encryption key", func(e map[string]string) { e["TOKEN_ENCRYPTION_KEY"] = "xyz" }, "TOKEN_ENCRYPTION_KEY"},
		{"too many retries", func(e map[string]string) { e["STORE_RETRIES"] = "11" }, "STORE_RETRIES"},
		{"zero timeout", func(e map[string]string) { e["GITHUB_TIMEOUT"] = "0s" }, "GITHUB_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			environ := baseEnv()
			tt.mutate(environ)

			_, err := parseFrom(environ)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestUsePostgres(t *testing.T) {
	tests := map[string]bool{
		"":                          false,
		"postgres://u@h/db":         true,
		"postgresql://u@h/db":       true,
		"file:data/devdashboard.db": false,
		"mysql://u@h/db":            false,
	}
	for dsn, want := range tests {
		assert.Equal(t, want, Config{DatabaseURL: dsn}.UsePostgres(), dsn)
	}
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("GITHUB_CLIENT_ID=from-dotenv\nGITHUB_CLIENT_SECRET=s3cret\nPORT=4001\n"), 0o600))
	t.Chdir(dir)

	// godotenv sets variables with os.Setenv; register them with t.Setenv
	// first so they are restored when the test ends.
	t.Setenv("GITHUB_CLIENT_ID", "")
	t.Setenv("GITHUB_CLIENT_SECRET", "")
	t.Setenv("PORT", "")
	os.Unsetenv("GITHUB_CLIENT_ID")
	os.Unsetenv("GITHUB_CLIENT_SECRET")
	os.Unsetenv("PORT")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.GitHub.ClientID)
	assert.Equal(t, 4001, cfg.Port)
}
