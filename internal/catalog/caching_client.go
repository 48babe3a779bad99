// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package catalog

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cinelog/internal/logging"
	"github.com/tomtom215/cinelog/internal/metrics"
	"github.com/tomtom215/cinelog/internal/models"
)

// CachingClient is a read-through cache in front of another Client.
//
// Search results are cached under search:<title>|<year>, a miss being
// stored as ID 0 so repeated lookups of unknown titles spend no budget.
// Details are cached under details:<id>. Degraded lookups are never cached.
type CachingClient struct {
	client Client
	cache  Cache
	logger zerolog.Logger
}

// NewCachingClient wraps client with cache.
func NewCachingClient(client Client, cache Cache) *CachingClient {
	return &CachingClient{
		client: client,
		cache:  cache,
		logger: logging.WithComponent("catalog-cache"),
	}
}

func searchKey(title string, year *int) string {
	y := ""
	if year != nil {
		y = strconv.Itoa(*year)
	}
	return "search:" + strings.ToLower(strings.TrimSpace(title)) + "|" + y
}

func detailsKey(id int) string {
	return "details:" + strconv.Itoa(id)
}

// Search returns a cached ID or asks the wrapped client.
func (c *CachingClient) Search(ctx context.Context, title string, year *int) (int, error) {
	key := searchKey(title, year)
	if data, ok := c.get(key, endpointSearch); ok {
		id, err := strconv.Atoi(string(data))
		if err == nil {
			if id == 0 {
				return 0, ErrNotFound
			}
			return id, nil
		}
	}

	id, err := c.client.Search(ctx, title, year)
	switch {
	case err == nil:
		c.set(key, []byte(strconv.Itoa(id)))
	case errors.Is(err, ErrNotFound) && !IsUnavailable(err) && ctx.Err() == nil:
		c.set(key, []byte("0"))
	}
	return id, err
}

// FetchDetails returns cached details or asks the wrapped client.
func (c *CachingClient) FetchDetails(ctx context.Context, id int) (*models.Enrichment, error) {
	key := detailsKey(id)
	if data, ok := c.get(key, endpointDetails); ok {
		var e models.Enrichment
		if err := json.Unmarshal(data, &e); err == nil {
			return &e, nil
		}
	}

	details, err := c.client.FetchDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(details); err == nil {
		c.set(key, data)
	}
	return details, nil
}

// Enrich searches and fetches details through the cache
func (c *CachingClient) Enrich(ctx context.Context, title string, year *int) (*models.Enrichment, error) {
	return enrich(ctx, c, title, year)
}

// Close closes the cache store
func (c *CachingClient) Close() error {
	return c.cache.Close()
}

func (c *CachingClient) get(key, kind string) ([]byte, bool) {
	data, ok, err := c.cache.Get(key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Catalog cache read failed")
		ok = false
	}
	if ok {
		metrics.CatalogCacheHits.WithLabelValues(kind).Inc()
	} else {
		metrics.CatalogCacheMisses.WithLabelValues(kind).Inc()
	}
	return data, ok
}

func (c *CachingClient) set(key string, value []byte) {
	if err := c.cache.Set(key, value); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Catalog cache write failed")
	}
}
