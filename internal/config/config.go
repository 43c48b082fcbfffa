package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the console
type Config struct {
	API         APIConfig         `yaml:"api"`
	Credentials CredentialsConfig `yaml:"credentials"`
	LiveStatus  LiveStatusConfig  `yaml:"livestatus"`
	Dashboard   DashboardConfig   `yaml:"dashboard"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// APIConfig holds backend API connection settings
type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the HTTP client timeout as a duration
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CredentialsConfig holds credential storage settings
type CredentialsConfig struct {
	Path string `yaml:"path"`
}

// ResolvePath returns the credential file path, defaulting to
// <user config dir>/pagereach/credentials.json when unset.
func (c CredentialsConfig) ResolvePath() (string, error) {
	if c.Path != "" {
		return c.Path, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "pagereach", "credentials.json"), nil
}

// LiveStatusConfig holds live campaign status channel settings
type LiveStatusConfig struct {
	ProbeIntervalSeconds int `yaml:"probe_interval_seconds"`
	PollIntervalSeconds  int `yaml:"poll_interval_seconds"`
	MaxFailures          int `yaml:"max_failures"`
}

// ProbeInterval returns how often the websocket liveness probe fires
func (c LiveStatusConfig) ProbeInterval() time.Duration {
	return time.Duration(c.ProbeIntervalSeconds) * time.Second
}

// PollInterval returns the status polling cadence for fallback mode
func (c LiveStatusConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// DashboardConfig holds dashboard refresh settings
type DashboardConfig struct {
	CooldownMillis int `yaml:"cooldown_ms"`
	RangeDays      int `yaml:"range_days"`
}

// Cooldown returns the minimum gap between non-forced dashboard refreshes
func (c DashboardConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownMillis) * time.Millisecond
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8000"
	}
	if cfg.API.TimeoutSeconds == 0 {
		cfg.API.TimeoutSeconds = 30
	}
	if cfg.LiveStatus.ProbeIntervalSeconds == 0 {
		cfg.LiveStatus.ProbeIntervalSeconds = 30
	}
	if cfg.LiveStatus.PollIntervalSeconds == 0 {
		cfg.LiveStatus.PollIntervalSeconds = 2
	}
	if cfg.LiveStatus.MaxFailures == 0 {
		cfg.LiveStatus.MaxFailures = 10
	}
	if cfg.Dashboard.CooldownMillis == 0 {
		cfg.Dashboard.CooldownMillis = 1000
	}
	if cfg.Dashboard.RangeDays == 0 {
		cfg.Dashboard.RangeDays = 30
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Encoding == "" {
		cfg.Logging.Encoding = "console"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so local setups can keep the API URL in .env while deployed consoles use
// real env vars. An empty path yields the defaults with env overrides.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	// Override with environment variables if present
	if baseURL := os.Getenv("PAGEREACH_API_URL"); baseURL != "" {
		cfg.API.BaseURL = baseURL
	}
	if credPath := os.Getenv("PAGEREACH_CREDENTIALS_PATH"); credPath != "" {
		cfg.Credentials.Path = credPath
	}
	if level := os.Getenv("PAGEREACH_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if encoding := os.Getenv("PAGEREACH_LOG_ENCODING"); encoding != "" {
		cfg.Logging.Encoding = encoding
	}

	return cfg, nil
}
