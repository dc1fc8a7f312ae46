package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "9600", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "*", cfg.Server.CORSOrigins)

	// Terminal config
	assert.Equal(t, 5*time.Second, cfg.Terminal.ReapInterval)
	assert.Equal(t, 10*time.Second, cfg.Terminal.ShutdownTimeout)
	assert.False(t, cfg.Terminal.RecordTranscripts)

	// Webhook disabled by default
	assert.Empty(t, cfg.Webhook.URL)
	assert.Equal(t, 3, cfg.Webhook.MaxRetries)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":               "9000",
		"HOST":               "0.0.0.0",
		"REAP_INTERVAL":      "2s",
		"RECORD_TRANSCRIPTS": "true",
		"DATA_DIR":           "/tmp/agentsmonitor-test",
		"WEBHOOK_URL":        "http://localhost:9999/hook",
		"LOG_LEVEL":          "debug",
		"LOG_DEV":            "true",
		"RATE_LIMIT_RPS":     "500",
		"RATE_LIMIT_BURST":   "1000",
		"RATE_LIMIT_ENABLED": "false",
	}

	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 2*time.Second, cfg.Terminal.ReapInterval)
	assert.True(t, cfg.Terminal.RecordTranscripts)
	assert.Equal(t, "/tmp/agentsmonitor-test", cfg.Storage.DataDir)
	assert.Equal(t, "http://localhost:9999/hook", cfg.Webhook.URL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.toml")
	content := `
[server]
port = "7777"
host = "0.0.0.0"

[terminal]
reap_interval = "30s"
record_transcripts = true

[webhook]
url = "http://hooks.internal/sessions"
max_retries = 5
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, "7777", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 30*time.Second, cfg.Terminal.ReapInterval)
	assert.True(t, cfg.Terminal.RecordTranscripts)
	assert.Equal(t, "http://hooks.internal/sessions", cfg.Webhook.URL)
	assert.Equal(t, 5, cfg.Webhook.MaxRetries)

	// Sections absent from the file keep their defaults.
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(file, []byte("[server]\nport = \"7777\"\n"), 0o644))

	t.Setenv("PORT", "8888")

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "8888", cfg.Server.Port)
}

func TestLoadMissingFileFallsThrough(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, "9600", cfg.Server.Port)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(file, []byte("not [valid toml"), 0o644))

	_, err := Load(file)
	assert.Error(t, err)
}

func TestLoadOrDefault(t *testing.T) {
	cfg := LoadOrDefault("")
	require.NotNil(t, cfg)
	assert.Equal(t, "9600", cfg.Server.Port)
}
