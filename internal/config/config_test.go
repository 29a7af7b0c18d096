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

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"VOTING_CONFIG", "PORT", "ENV", "LOG_LEVEL", "API_BASE_URL", "API_TIMEOUT",
		"RENDER_WAIT", "SESSION_LIFETIME", "REFRESH_COMMENTS_AFTER_POST",
		"LOGIN_RATE", "LOGIN_BURST",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.APIBaseURL)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.APITimeout)
	assert.False(t, cfg.RefreshCommentsAfterPost)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_BASE_URL", "http://backend:9000")
	t.Setenv("RENDER_WAIT", "500ms")
	t.Setenv("REFRESH_COMMENTS_AFTER_POST", "true")
	t.Setenv("LOGIN_BURST", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://backend:9000", cfg.APIBaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.RenderWait)
	assert.True(t, cfg.RefreshCommentsAfterPost)
	assert.Equal(t, 3, cfg.LoginBurst)
}

func TestLoadInvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API_TIMEOUT")
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "voting.yaml")
	data := "api_base_url: http://from-file:8000\nport: \"4000\"\nrender_wait: 2s\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	t.Setenv("VOTING_CONFIG", path)
	t.Setenv("PORT", "5000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://from-file:8000", cfg.APIBaseURL)
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.RenderWait)
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("VOTING_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, Config{LogLevel: "debug"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, Config{LogLevel: "WARN"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, Config{LogLevel: "loud"}.SlogLevel())
}
