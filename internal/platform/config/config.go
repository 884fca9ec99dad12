// Package config loads application configuration from environment variables.
// All variables use the LEARN_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	Auth        AuthConfig
	Catalog     CatalogConfig
	Certificate CertificateConfig
	Email       EmailConfig
	Log         LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int
	Host           string
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL runs the
// service on in-memory stores.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
	Migrate  bool
}

// CacheConfig holds Dragonfly/Redis connection settings for the catalog cache.
// An empty URL disables caching.
type CacheConfig struct {
	URL        string
	CatalogTTL time.Duration
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	JWTSecret string
}

// CatalogConfig points at the directory of course YAML files.
type CatalogConfig struct {
	Path string
}

// CertificateConfig holds certificate numbering settings. When NumberingURL
// is set, numbers come from the external numbering service.
type CertificateConfig struct {
	NumberPrefix     string
	SigningSecret    string
	NumberingURL     string
	NumberingTimeout time.Duration
	Kinds            []string
	// DirectoryPath is a YAML list of recipients used to name certificates
	// when the caller's token carries no name or email.
	DirectoryPath    string
}

// EmailConfig holds SendGrid settings for certificate emails. An empty API
// key disables email.
type EmailConfig struct {
	SendGridAPIKey string
	FromAddress    string
	FromName       string
	VerifyURL      string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with LEARN_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           envInt("LEARN_SERVER_PORT", 8080),
			Host:           envStr("LEARN_SERVER_HOST", "0.0.0.0"),
			RequestTimeout: envDuration("LEARN_SERVER_REQUEST_TIMEOUT", 30*time.Second),
			AllowedOrigins: envList("LEARN_SERVER_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			URL:      envStr("LEARN_DATABASE_URL", ""),
			MaxConns: envInt("LEARN_DATABASE_MAX_CONNS", 25),
			MinConns: envInt("LEARN_DATABASE_MIN_CONNS", 5),
			Migrate:  envBool("LEARN_DATABASE_MIGRATE", true),
		},
		Cache: CacheConfig{
			URL:        envStr("LEARN_CACHE_URL", ""),
			CatalogTTL: envDuration("LEARN_CACHE_CATALOG_TTL", 10*time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret: envStr("LEARN_AUTH_JWT_SECRET", "change-me-in-production"),
		},
		Catalog: CatalogConfig{
			Path: envStr("LEARN_CATALOG_PATH", "./courses"),
		},
		Certificate: CertificateConfig{
			NumberPrefix:     envStr("LEARN_CERTIFICATE_NUMBER_PREFIX", "PAI"),
			SigningSecret:    envStr("LEARN_CERTIFICATE_SIGNING_SECRET", ""),
			NumberingURL:     envStr("LEARN_CERTIFICATE_NUMBERING_URL", ""),
			NumberingTimeout: envDuration("LEARN_CERTIFICATE_NUMBERING_TIMEOUT", 10*time.Second),
			Kinds:            envList("LEARN_CERTIFICATE_KINDS", []string{"completion"}),
			DirectoryPath:    envStr("LEARN_CERTIFICATE_DIRECTORY_PATH", ""),
		},
		Email: EmailConfig{
			SendGridAPIKey: envStr("LEARN_EMAIL_SENDGRID_API_KEY", ""),
			FromAddress:    envStr("LEARN_EMAIL_FROM_ADDRESS", ""),
			FromName:       envStr("LEARN_EMAIL_FROM_NAME", "P&AI Academy"),
			VerifyURL:      envStr("LEARN_EMAIL_VERIFY_URL", ""),
		},
		Log: LogConfig{
			Level:  envStr("LEARN_LOG_LEVEL", "info"),
			Format: envStr("LEARN_LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("LEARN_AUTH_JWT_SECRET is required")
	}

	if c.Catalog.Path == "" {
		return fmt.Errorf("LEARN_CATALOG_PATH is required")
	}

	if len(c.Certificate.Kinds) == 0 {
		return fmt.Errorf("LEARN_CERTIFICATE_KINDS must name at least one kind")
	}

	if c.Email.SendGridAPIKey != "" && c.Email.FromAddress == "" {
		return fmt.Errorf("LEARN_EMAIL_FROM_ADDRESS is required when SendGrid is enabled")
	}

	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("LEARN_DATABASE_MIN_CONNS (%d) exceeds LEARN_DATABASE_MAX_CONNS (%d)",
			c.Database.MinConns, c.Database.MaxConns)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LEARN_LOG_LEVEL must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("LEARN_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	return nil
}

// UsesDatabase reports whether PostgreSQL-backed stores are configured.
func (c *Config) UsesDatabase() bool {
	return c.Database.URL != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList splits a comma-separated value, dropping empty items.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for item := range strings.SplitSeq(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
