// Package config defines service configuration and its loading.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreMongo  = "mongo"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the document store: memory or mongo.
	StoreDriver   string `koanf:"store_driver"`
	MongoURI      string `koanf:"mongo_uri"`
	MongoDatabase string `koanf:"mongo_database"`

	// JWTSecret verifies identity tokens. Empty disables authenticated routes.
	JWTSecret   string `koanf:"jwt_secret"`
	JWTIssuer   string `koanf:"jwt_issuer"`
	JWTAudience string `koanf:"jwt_audience"`

	// CORSAllowedOrigins is a comma separated list; "*" allows any origin.
	CORSAllowedOrigins string `koanf:"cors_allowed_origins"`

	// RefreshIntervalSeconds enables periodic snapshot refreshes when > 0.
	RefreshIntervalSeconds int `koanf:"refresh_interval_seconds"`
	// FetchTimeoutSeconds bounds one snapshot fetch.
	FetchTimeoutSeconds int `koanf:"fetch_timeout_seconds"`

	// Photo uploads to S3-compatible storage.
	PhotosEnabled         bool   `koanf:"photos_enabled"`
	PhotosEndpoint        string `koanf:"photos_endpoint"`
	PhotosRegion          string `koanf:"photos_region"`
	PhotosBucket          string `koanf:"photos_bucket"`
	PhotosAccessKeyID     string `koanf:"photos_access_key_id"`
	PhotosSecretAccessKey string `koanf:"photos_secret_access_key"`
	PhotosPublicBaseURL   string `koanf:"photos_public_base_url"`
	PhotosMaxBytes        int64  `koanf:"photos_max_bytes"`

	// SeedFile is a YAML fixture. With the memory store it is the initial
	// data; with mongo it is served while the store is unreachable.
	SeedFile string `koanf:"seed_file"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		StoreDriver:         StoreMemory,
		MongoURI:            "mongodb://localhost:27017",
		MongoDatabase:       "kartboard",
		CORSAllowedOrigins:  "*",
		FetchTimeoutSeconds: 10,
		PhotosRegion:        "auto",
		PhotosMaxBytes:      5 << 20,
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.StoreDriver {
	case StoreMemory:
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("%w: mongo_uri is required for the mongo store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	if c.RefreshIntervalSeconds < 0 {
		return fmt.Errorf("%w: refresh_interval_seconds must not be negative", ErrInvalidConfig)
	}
	if c.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: fetch_timeout_seconds must be positive", ErrInvalidConfig)
	}
	if c.PhotosEnabled && (c.PhotosBucket == "" || c.PhotosPublicBaseURL == "") {
		return fmt.Errorf("%w: photos_bucket and photos_public_base_url are required when photos are enabled", ErrInvalidConfig)
	}
	return nil
}

// RefreshInterval returns the periodic refresh interval; zero disables it.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

// FetchTimeout returns the snapshot fetch timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// AllowedOrigins splits CORSAllowedOrigins.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
