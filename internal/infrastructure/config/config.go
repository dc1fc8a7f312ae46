package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Terminal  TerminalConfig  `toml:"terminal"`
	Storage   StorageConfig   `toml:"storage"`
	Webhook   WebhookConfig   `toml:"webhook"`
	Logging   LogConfig       `toml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration. The backend serves the
// desktop shell over loopback by default.
type ServerConfig struct {
	Port        string `envconfig:"PORT" toml:"port"`
	Host        string `envconfig:"HOST" toml:"host"`
	CORSOrigins string `envconfig:"CORS_ORIGINS" toml:"cors_origins"`
}

// TerminalConfig holds terminal manager configuration.
type TerminalConfig struct {
	ReapInterval      time.Duration `envconfig:"REAP_INTERVAL" toml:"reap_interval"`
	ShutdownTimeout   time.Duration `envconfig:"SHUTDOWN_TIMEOUT" toml:"shutdown_timeout"`
	RecordTranscripts bool          `envconfig:"RECORD_TRANSCRIPTS" toml:"record_transcripts"`
}

// StorageConfig holds session persistence configuration. An empty DataDir
// resolves to the platform data directory at startup.
type StorageConfig struct {
	DataDir string `envconfig:"DATA_DIR" toml:"data_dir"`
}

// WebhookConfig holds the optional session-event webhook. An empty URL
// disables delivery.
type WebhookConfig struct {
	URL        string        `envconfig:"WEBHOOK_URL" toml:"url"`
	Timeout    time.Duration `envconfig:"WEBHOOK_TIMEOUT" toml:"timeout"`
	MaxRetries int           `envconfig:"WEBHOOK_MAX_RETRIES" toml:"max_retries"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" toml:"rps"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" toml:"enabled"`
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "9600",
			Host:        "127.0.0.1",
			CORSOrigins: "*",
		},
		Terminal: TerminalConfig{
			ReapInterval:      5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			RecordTranscripts: false,
		},
		Storage: StorageConfig{
			DataDir: "",
		},
		Webhook: WebhookConfig{
			URL:        "",
			Timeout:    10 * time.Second,
			MaxRetries: 3,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// Load builds configuration in three layers: defaults, then the optional
// TOML file, then environment variables. Environment wins.
func Load(file string) (*Config, error) {
	cfg := Default()

	if file != "" {
		data, err := os.ReadFile(file)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// Missing file is fine; env and defaults still apply.
		case err != nil:
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", file, err)
			}
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("load config from environment: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads configuration or returns defaults on failure.
func LoadOrDefault(file string) *Config {
	cfg, err := Load(file)
	if err != nil {
		return Default()
	}
	return cfg
}
