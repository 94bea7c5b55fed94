// Package config loads retype settings from an optional YAML file, a .env
// file and the environment, in that order of precedence from low to high.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Remote store drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the full application configuration
type Config struct {
	RemoteDriver string `yaml:"remote_driver" env:"RETYPE_REMOTE_DRIVER"`
	RemoteDSN    string `yaml:"remote_dsn" env:"RETYPE_REMOTE_DSN"`
	CachePath    string `yaml:"cache_path" env:"RETYPE_CACHE_PATH"`
	HTTPAddr     string `yaml:"http_addr" env:"RETYPE_HTTP_ADDR"`
	Timezone     string `yaml:"timezone" env:"RETYPE_TIMEZONE"`

	FreshnessWindow time.Duration `yaml:"freshness_window" env:"RETYPE_FRESHNESS_WINDOW"`
	Cooldown        time.Duration `yaml:"cooldown" env:"RETYPE_COOLDOWN"`
	PollInterval    time.Duration `yaml:"poll_interval" env:"RETYPE_POLL_INTERVAL"`

	// Words credited for finishing a paragraph or a wisdom section
	ParagraphCredit int `yaml:"paragraph_credit" env:"RETYPE_PARAGRAPH_CREDIT"`
	WisdomCredit    int `yaml:"wisdom_credit" env:"RETYPE_WISDOM_CREDIT"`

	ShareBaseURL string `yaml:"share_base_url" env:"RETYPE_SHARE_BASE_URL"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		RemoteDriver:    DriverSQLite,
		RemoteDSN:       "./data/retype.db",
		CachePath:       "./data/profile.db",
		HTTPAddr:        ":8080",
		Timezone:        "Local",
		FreshnessWindow: 5 * time.Second,
		Cooldown:        300 * time.Millisecond,
		PollInterval:    2 * time.Second,
		ParagraphCredit: 8,
		WisdomCredit:    8,
		ShareBaseURL:    "http://localhost:8080/",
	}
}

// Load builds the configuration. path may be empty; a missing .env file is
// not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := readFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	return nil
}

// Validate checks values that cannot be fixed with a default
func (c *Config) Validate() error {
	switch c.RemoteDriver {
	case DriverSQLite, DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unsupported remote driver %q", c.RemoteDriver)
	}
	if c.RemoteDriver != DriverMemory && c.RemoteDSN == "" {
		return fmt.Errorf("remote_dsn is required for driver %s", c.RemoteDriver)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.FreshnessWindow < 0 || c.Cooldown < 0 {
		return fmt.Errorf("freshness_window and cooldown must not be negative")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.ParagraphCredit < 0 || c.WisdomCredit < 0 {
		return fmt.Errorf("word credits must not be negative")
	}
	return nil
}

// Location resolves Timezone. Calendar dates of all counters use it.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
