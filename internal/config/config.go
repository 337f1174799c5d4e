// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Credential store backends accepted in MAILWATCH_TOKEN_STORE.
const (
	StoreSQLite   = "sqlite"
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config holds the application configuration loaded from environment
// variables. The OAuth client settings, webhook URL, poll interval, and list
// cap are required; startup fails without them.
type Config struct {
	GoogleClientID     string   `env:"MAILWATCH_GOOGLE_CLIENT_ID,required,notEmpty"`
	GoogleClientSecret string   `env:"MAILWATCH_GOOGLE_CLIENT_SECRET,required,notEmpty"`
	OAuthRedirectURL   string   `env:"MAILWATCH_OAUTH_REDIRECT_URL,required,notEmpty"`
	OAuthScopes        []string `env:"MAILWATCH_OAUTH_SCOPES" envSeparator:"," envDefault:"https://www.googleapis.com/auth/gmail.modify"`

	WebhookURL     string `env:"MAILWATCH_WEBHOOK_URL,required,notEmpty"`
	PollIntervalMS int    `env:"MAILWATCH_POLL_INTERVAL_MS,required"`
	MaxPollResults int    `env:"MAILWATCH_MAX_POLL_RESULTS,required"`
	Marker         string `env:"MAILWATCH_MARKER" envDefault:"ALERT"`

	ListenAddr    string `env:"MAILWATCH_LISTEN_ADDR" envDefault:"127.0.0.1:8080"`
	LogBufferSize int    `env:"MAILWATCH_LOG_BUFFER_SIZE" envDefault:"50"`

	TokenStore    string `env:"MAILWATCH_TOKEN_STORE" envDefault:"sqlite"`
	DBPath        string `env:"MAILWATCH_DB_PATH" envDefault:"mailwatch.db"`
	TokenFile     string `env:"MAILWATCH_TOKEN_FILE" envDefault:"credential.json"`
	RedisAddr     string `env:"MAILWATCH_REDIS_ADDR"`
	RedisPassword string `env:"MAILWATCH_REDIS_PASSWORD"`
	RedisDB       int    `env:"MAILWATCH_REDIS_DB" envDefault:"0"`
	PostgresDSN   string `env:"MAILWATCH_POSTGRES_DSN"`
}

// Load reads configuration from environment variables and returns a validated
// Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate covers the constraints the struct tags cannot express.
func (c *Config) validate() error {
	if c.PollIntervalMS <= 0 {
		return errors.New("MAILWATCH_POLL_INTERVAL_MS must be a positive number of milliseconds")
	}
	if c.MaxPollResults <= 0 {
		return errors.New("MAILWATCH_MAX_POLL_RESULTS must be positive")
	}
	if c.Marker == "" {
		return errors.New("MAILWATCH_MARKER must not be empty")
	}

	switch c.TokenStore {
	case StoreSQLite, StoreFile:
	case StoreRedis:
		if c.RedisAddr == "" {
			return errors.New("MAILWATCH_REDIS_ADDR is required when MAILWATCH_TOKEN_STORE=redis")
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return errors.New("MAILWATCH_POSTGRES_DSN is required when MAILWATCH_TOKEN_STORE=postgres")
		}
	default:
		return fmt.Errorf("MAILWATCH_TOKEN_STORE has unknown value %q (valid: sqlite, file, redis, postgres)", c.TokenStore)
	}

	return nil
}

// PollInterval returns the poll timer period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}
