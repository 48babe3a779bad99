// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package catalog

import (
	"fmt"
	"io"

	"github.com/tomtom215/cinelog/internal/config"
	"github.com/tomtom215/cinelog/internal/logging"
)

// nopCloser is returned when the stack owns no resources
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewFromConfig builds the configured client stack:
// TMDBClient, optionally behind a circuit breaker, optionally behind a cache.
// The returned Closer releases the cache store.
func NewFromConfig(cfg *config.CatalogConfig) (Client, io.Closer, error) {
	var client Client = NewTMDBClient(cfg)

	if cfg.CircuitBreakerEnabled {
		client = NewCircuitBreakerClient(client, cfg.BreakerTimeout)
	}

	if !cfg.CacheEnabled {
		return client, nopCloser{}, nil
	}

	var cache Cache
	if cfg.CachePath != "" {
		bc, err := OpenBadgerCache(cfg.CachePath, cfg.CacheTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open catalog cache: %w", err)
		}
		cache = bc
		logging.Info().Str("path", cfg.CachePath).Dur("ttl", cfg.CacheTTL).Msg("Catalog cache: badger")
	} else {
		cache = NewMemoryCache(cfg.CacheTTL)
		logging.Info().Dur("ttl", cfg.CacheTTL).Msg("Catalog cache: memory")
	}

	caching := NewCachingClient(client, cache)
	return caching, caching, nil
}
