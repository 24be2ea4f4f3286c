// Package config defines the application configuration, loaded from a
// yaml file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root application configuration.
type Config struct {
	// Port is the HTTP listen port. Default: 8480.
	Port int `yaml:"port" json:"port"`

	// LoggingToFile enables rotated file logging in addition to stdout.
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`

	// X holds the X (Twitter) OAuth application settings.
	X XConfig `yaml:"x" json:"x"`

	// Store holds the persisted tweet store settings.
	Store StoreConfig `yaml:"store" json:"store"`

	// Reader holds the article extraction settings.
	Reader ReaderConfig `yaml:"reader" json:"reader"`
}

// XConfig holds the OAuth application identifiers for the X API.
// ClientSecret is optional; public clients authenticate with the
// client id alone.
type XConfig struct {
	ClientID     string `yaml:"client-id" json:"client-id"`
	ClientSecret string `yaml:"client-secret" json:"client-secret"`
	CallbackURL  string `yaml:"callback-url" json:"callback-url"`

	// AuthURL, TokenURL and APIBaseURL override the provider endpoints.
	// Only set in tests.
	AuthURL    string `yaml:"auth-url,omitempty" json:"auth-url,omitempty"`
	TokenURL   string `yaml:"token-url,omitempty" json:"token-url,omitempty"`
	APIBaseURL string `yaml:"api-base-url,omitempty" json:"api-base-url,omitempty"`
}

// StoreConfig holds tweet store settings.
type StoreConfig struct {
	// DSN selects the backend: sqlite://path or postgres://...
	// Empty disables the persisted store endpoints.
	DSN string `yaml:"dsn" json:"dsn"`
}

// ReaderConfig holds article extraction settings.
type ReaderConfig struct {
	// UserAgent sent on outbound article fetches.
	UserAgent string `yaml:"user-agent,omitempty" json:"user-agent,omitempty"`

	// RequestsPerMinute caps the read-article endpoint. Default: 30.
	RequestsPerMinute int `yaml:"requests-per-minute,omitempty" json:"requests-per-minute,omitempty"`
}

const (
	defaultPort              = 8480
	defaultReaderUserAgent   = "Mozilla/5.0 (compatible; StashyBot/1.0; +https://stashy.local)"
	defaultRequestsPerMinute = 30
)

// Load reads the config file at path, applies environment overrides and
// defaults. A missing file is not an error when optional is true; the
// returned config then carries env values and defaults only.
func Load(path string, optional bool) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if errParse := yaml.Unmarshal(data, cfg); errParse != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, errParse)
		}
	case os.IsNotExist(err) && optional:
		// fall through to env + defaults
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TWITTER_CLIENT_ID"); v != "" {
		c.X.ClientID = v
	}
	if v := os.Getenv("TWITTER_CLIENT_SECRET"); v != "" {
		c.X.ClientSecret = v
	}
	if v := os.Getenv("TWITTER_CALLBACK_URL"); v != "" {
		c.X.CallbackURL = v
	}
	if v := os.Getenv("STASHY_DSN"); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Port = port
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.Reader.UserAgent == "" {
		c.Reader.UserAgent = defaultReaderUserAgent
	}
	if c.Reader.RequestsPerMinute <= 0 {
		c.Reader.RequestsPerMinute = defaultRequestsPerMinute
	}
}

// DSN describes a parsed store connection string.
type DSN struct {
	// Backend is "sqlite" or "postgres".
	Backend string
	// Path is the on-disk path for sqlite backends.
	Path string
	// URL is the full connection URL for postgres backends.
	URL string
}

// ParseDSN splits a connection string into backend and location.
// Returns nil for an empty DSN (store disabled).
func ParseDSN(raw string) (*DSN, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	switch {
	case strings.HasPrefix(raw, "sqlite://"):
		path := strings.TrimPrefix(raw, "sqlite://")
		if path == "" {
			return nil, fmt.Errorf("sqlite DSN is missing a path")
		}
		return &DSN{Backend: "sqlite", Path: path}, nil
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return &DSN{Backend: "postgres", URL: raw}, nil
	default:
		return nil, fmt.Errorf("unsupported DSN %q (use sqlite:// or postgres://)", raw)
	}
}
