// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

// Package config loads Cinelog configuration from built-in defaults, an
// optional YAML file and environment variables, in that order of precedence.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Catalog    CatalogConfig    `koanf:"catalog"`
	Enrichment EnrichmentConfig `koanf:"enrichment"`
	Session    SessionConfig    `koanf:"session"`
	Ingest     IngestConfig     `koanf:"ingest"`
	API        APIConfig        `koanf:"api"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
}

// CatalogConfig holds settings for the external movie catalog (TMDB API).
type CatalogConfig struct {
	BaseURL      string `koanf:"base_url"`
	ImageBaseURL string `koanf:"image_base_url"`

	// APIKey is sent as the api_key query parameter. AccessToken, when set,
	// is sent as a bearer token instead.
	APIKey      string `koanf:"api_key"`
	AccessToken string `koanf:"access_token"`
	Language    string `koanf:"language"`

	// MaxConcurrent caps in-flight requests regardless of caller batching.
	MaxConcurrent int `koanf:"max_concurrent"`

	// RequestsPerWindow requests are allowed per Window.
	RequestsPerWindow int           `koanf:"requests_per_window"`
	Window            time.Duration `koanf:"window"`

	RequestTimeout time.Duration `koanf:"request_timeout"`
	MaxRetries     int           `koanf:"max_retries"`
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`

	TopCast      int `koanf:"top_cast"`
	TopDirectors int `koanf:"top_directors"`

	CircuitBreakerEnabled bool          `koanf:"circuit_breaker_enabled"`
	BreakerTimeout        time.Duration `koanf:"breaker_timeout"`

	CacheEnabled bool          `koanf:"cache_enabled"`
	CachePath    string        `koanf:"cache_path"` // empty = in-memory cache
	CacheTTL     time.Duration `koanf:"cache_ttl"`
}

// EnrichmentConfig holds background enrichment settings.
type EnrichmentConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Interval   time.Duration `koanf:"interval"`
	BatchSize  int           `koanf:"batch_size"`
	RunTimeout time.Duration `koanf:"run_timeout"`
}

// SessionConfig holds upload session lifetime settings.
type SessionConfig struct {
	TTL          time.Duration `koanf:"ttl"`
	ReapInterval time.Duration `koanf:"reap_interval"`
}

// IngestConfig holds upload and merge settings.
type IngestConfig struct {
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
	MaxFiles       int   `koanf:"max_files"`

	// SourcePriority lists source kinds from lowest to highest priority.
	SourcePriority []string `koanf:"source_priority"`
}

// APIConfig holds pagination defaults.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// SecurityConfig holds request limiting and CORS settings.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Load reads configuration from defaults, config file and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
