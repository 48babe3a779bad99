// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	validLogLevels = map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true,
	}
	validLogFormats = map[string]bool{
		"json": true, "console": true,
	}
	validSourceKinds = map[string]bool{
		"history": true, "ratings": true, "diary": true,
	}
)

// Validate checks that configuration values are present and in range.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateEnrichment(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	if err := c.validateIngest(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be >= 0")
	}
	return nil
}

// validateCatalog checks the catalog client settings. Credentials are only
// required when enrichment is enabled.
func (c *Config) validateCatalog() error {
	if err := validateBaseURL(c.Catalog.BaseURL, "TMDB_BASE_URL"); err != nil {
		return err
	}
	if c.Enrichment.Enabled && c.Catalog.APIKey == "" && c.Catalog.AccessToken == "" {
		return fmt.Errorf("TMDB_API_KEY or TMDB_ACCESS_TOKEN is required when ENRICHMENT_ENABLED=true")
	}
	if c.Catalog.MaxConcurrent < 1 || c.Catalog.MaxConcurrent > 50 {
		return fmt.Errorf("CATALOG_MAX_CONCURRENT must be between 1 and 50")
	}
	if c.Catalog.RequestsPerWindow < 1 {
		return fmt.Errorf("CATALOG_REQUESTS_PER_WINDOW must be at least 1")
	}
	if c.Catalog.Window < 100*time.Millisecond {
		return fmt.Errorf("CATALOG_WINDOW must be at least 100ms")
	}
	if c.Catalog.RequestTimeout <= 0 {
		return fmt.Errorf("CATALOG_REQUEST_TIMEOUT must be positive")
	}
	if c.Catalog.MaxRetries < 0 || c.Catalog.MaxRetries > 10 {
		return fmt.Errorf("CATALOG_MAX_RETRIES must be between 0 and 10")
	}
	if c.Catalog.TopCast < 0 || c.Catalog.TopDirectors < 0 {
		return fmt.Errorf("CATALOG_TOP_CAST and CATALOG_TOP_DIRECTORS must be >= 0")
	}
	if c.Catalog.CacheEnabled && c.Catalog.CacheTTL <= 0 {
		return fmt.Errorf("CATALOG_CACHE_TTL must be positive when the cache is enabled")
	}
	return nil
}

func (c *Config) validateEnrichment() error {
	if c.Enrichment.BatchSize < 1 || c.Enrichment.BatchSize > 100 {
		return fmt.Errorf("ENRICHMENT_BATCH_SIZE must be between 1 and 100")
	}
	if c.Enrichment.Interval < time.Second {
		return fmt.Errorf("ENRICHMENT_INTERVAL must be at least 1s")
	}
	return nil
}

func (c *Config) validateSession() error {
	if c.Session.TTL < time.Minute {
		return fmt.Errorf("SESSION_TTL must be at least 1m")
	}
	if c.Session.ReapInterval <= 0 {
		return fmt.Errorf("SESSION_REAP_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) validateIngest() error {
	if c.Ingest.MaxUploadBytes < 1024 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be at least 1024")
	}
	if c.Ingest.MaxFiles < 1 {
		return fmt.Errorf("MAX_UPLOAD_FILES must be at least 1")
	}
	if len(c.Ingest.SourcePriority) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(c.Ingest.SourcePriority))
	for _, kind := range c.Ingest.SourcePriority {
		kind = strings.ToLower(strings.TrimSpace(kind))
		if !validSourceKinds[kind] {
			return fmt.Errorf("INGEST_SOURCE_PRIORITY contains unknown source %q", kind)
		}
		if seen[kind] {
			return fmt.Errorf("INGEST_SOURCE_PRIORITY lists %q twice", kind)
		}
		seen[kind] = true
	}
	if len(seen) != len(validSourceKinds) {
		return fmt.Errorf("INGEST_SOURCE_PRIORITY must list history, ratings and diary")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.DefaultPageSize < 1 || c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("API_DEFAULT_PAGE_SIZE must be >= 1 and <= API_MAX_PAGE_SIZE")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
	}
	if c.Security.RateLimitWindow < time.Second {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// validateBaseURL accepts http(s) URLs with an optional path prefix but no
// query string, e.g. https://api.themoviedb.org/3.
func validateBaseURL(rawURL, fieldName string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %q", fieldName, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	if parsed.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters", fieldName)
	}
	return nil
}
