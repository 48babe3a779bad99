// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists config file locations in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cinelog/config.yaml",
	"/etc/cinelog/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults. They are loaded first and
// overridden by the config file and then the environment.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Database: DatabaseConfig{
			Path:      "/data/cinelog.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Catalog: CatalogConfig{
			BaseURL:               "https://api.themoviedb.org/3",
			ImageBaseURL:          "https://image.tmdb.org/t/p/w500",
			Language:              "en-US",
			MaxConcurrent:         8,  // well under TMDB's ~50 req/s ceiling
			RequestsPerWindow:     40, // per Window
			Window:                10 * time.Second,
			RequestTimeout:        10 * time.Second,
			MaxRetries:            3,
			RetryBaseDelay:        500 * time.Millisecond,
			TopCast:               5,
			TopDirectors:          3,
			CircuitBreakerEnabled: true,
			BreakerTimeout:        30 * time.Second,
			CacheEnabled:          true,
			CachePath:             "",
			CacheTTL:              7 * 24 * time.Hour,
		},
		Enrichment: EnrichmentConfig{
			Enabled:    true,
			Interval:   30 * time.Second,
			BatchSize:  10,
			RunTimeout: 30 * time.Minute,
		},
		Session: SessionConfig{
			TTL:          24 * time.Hour,
			ReapInterval: 15 * time.Minute,
		},
		Ingest: IngestConfig{
			MaxUploadBytes: 32 << 20, // 32MB
			MaxFiles:       8,
			SourcePriority: []string{"history", "ratings", "diary"},
		},
		API: APIConfig{
			DefaultPageSize: 50,
			MaxPageSize:     500,
		},
		Security: SecurityConfig{
			RateLimitReqs:     120,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration in layers:
//  1. built-in defaults
//  2. optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. environment variables listed in envMappings
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"ingest.source_priority",
}

// processSliceFields splits comma-separated strings for known slice fields.
// Values from YAML are already slices and are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
// Variables not listed are ignored so unrelated environment does not leak in.
var envMappings = map[string]string{
	// Server
	"http_host":        "server.host",
	"http_port":        "server.port",
	"read_timeout":     "server.read_timeout",
	"write_timeout":    "server.write_timeout",
	"idle_timeout":     "server.idle_timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	// Catalog
	"tmdb_base_url":               "catalog.base_url",
	"tmdb_image_base_url":         "catalog.image_base_url",
	"tmdb_api_key":                "catalog.api_key",
	"tmdb_access_token":           "catalog.access_token",
	"tmdb_language":               "catalog.language",
	"catalog_max_concurrent":      "catalog.max_concurrent",
	"catalog_requests_per_window": "catalog.requests_per_window",
	"catalog_window":              "catalog.window",
	"catalog_request_timeout":     "catalog.request_timeout",
	"catalog_max_retries":         "catalog.max_retries",
	"catalog_retry_base_delay":    "catalog.retry_base_delay",
	"catalog_top_cast":            "catalog.top_cast",
	"catalog_top_directors":       "catalog.top_directors",
	"catalog_circuit_breaker":     "catalog.circuit_breaker_enabled",
	"catalog_breaker_timeout":     "catalog.breaker_timeout",
	"catalog_cache_enabled":       "catalog.cache_enabled",
	"catalog_cache_path":          "catalog.cache_path",
	"catalog_cache_ttl":           "catalog.cache_ttl",

	// Enrichment
	"enrichment_enabled":     "enrichment.enabled",
	"enrichment_interval":    "enrichment.interval",
	"enrichment_batch_size":  "enrichment.batch_size",
	"enrichment_run_timeout": "enrichment.run_timeout",

	// Sessions
	"session_ttl":           "session.ttl",
	"session_reap_interval": "session.reap_interval",

	// Ingest
	"max_upload_bytes":       "ingest.max_upload_bytes",
	"max_upload_files":       "ingest.max_files",
	"ingest_source_priority": "ingest.source_priority",

	// API
	"api_default_page_size": "api.default_page_size",
	"api_max_page_size":     "api.max_page_size",

	// Security
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its koanf path,
// returning "" for variables that are not configuration.
//
// Examples:
//   - TMDB_API_KEY -> catalog.api_key
//   - ENRICHMENT_BATCH_SIZE -> enrichment.batch_size
//   - DUCKDB_PATH -> database.path
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
