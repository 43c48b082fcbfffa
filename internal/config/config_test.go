package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
api:
  base_url: "https://api.pagereach.io"
  timeout_seconds: 45

credentials:
  path: "/tmp/creds.json"

livestatus:
  probe_interval_seconds: 15
  poll_interval_seconds: 5
  max_failures: 3

dashboard:
  cooldown_ms: 2000
  range_days: 7

logging:
  level: "debug"
  encoding: "json"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	// Test API config
	assert.Equal(t, "https://api.pagereach.io", cfg.API.BaseURL)
	assert.Equal(t, 45, cfg.API.TimeoutSeconds)

	// Test credentials config
	assert.Equal(t, "/tmp/creds.json", cfg.Credentials.Path)

	// Test livestatus config
	assert.Equal(t, 15, cfg.LiveStatus.ProbeIntervalSeconds)
	assert.Equal(t, 5, cfg.LiveStatus.PollIntervalSeconds)
	assert.Equal(t, 3, cfg.LiveStatus.MaxFailures)

	// Test dashboard config
	assert.Equal(t, 2000, cfg.Dashboard.CooldownMillis)
	assert.Equal(t, 7, cfg.Dashboard.RangeDays)

	// Test logging config
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Encoding)
}

func TestLoadDefaults(t *testing.T) {
	// Create a minimal config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
api:
  base_url: "https://api.pagereach.io"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	// Verify defaults are applied
	assert.Equal(t, 30, cfg.API.TimeoutSeconds)
	assert.Equal(t, 30, cfg.LiveStatus.ProbeIntervalSeconds)
	assert.Equal(t, 2, cfg.LiveStatus.PollIntervalSeconds)
	assert.Equal(t, 10, cfg.LiveStatus.MaxFailures)
	assert.Equal(t, 1000, cfg.Dashboard.CooldownMillis)
	assert.Equal(t, 30, cfg.Dashboard.RangeDays)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Encoding)
}

func TestLoadFromEnv(t *testing.T) {
	// Create a minimal config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
api:
  base_url: "https://file-url.example.com"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	t.Setenv("PAGEREACH_API_URL", "https://env-url.example.com")
	t.Setenv("PAGEREACH_LOG_LEVEL", "warn")

	cfg, err := LoadFromEnv(configPath)
	require.NoError(t, err)

	// Environment variables should override file values
	assert.Equal(t, "https://env-url.example.com", cfg.API.BaseURL)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadFromEnvWithoutFile(t *testing.T) {
	t.Setenv("PAGEREACH_CREDENTIALS_PATH", "/tmp/override-creds.json")

	cfg, err := LoadFromEnv("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, "/tmp/override-creds.json", cfg.Credentials.Path)
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestTimeout(t *testing.T) {
	cfg := APIConfig{TimeoutSeconds: 45}
	assert.Equal(t, 45*1000000000, int(cfg.Timeout().Nanoseconds()))
}

func TestIntervals(t *testing.T) {
	cfg := LiveStatusConfig{ProbeIntervalSeconds: 30, PollIntervalSeconds: 2}
	assert.Equal(t, 30*1000000000, int(cfg.ProbeInterval().Nanoseconds()))
	assert.Equal(t, 2*1000000000, int(cfg.PollInterval().Nanoseconds()))
}

func TestResolvePathDefault(t *testing.T) {
	cfg := CredentialsConfig{}
	path, err := cfg.ResolvePath()
	require.NoError(t, err)
	assert.Contains(t, path, filepath.Join("pagereach", "credentials.json"))
}
