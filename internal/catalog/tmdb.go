// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/tomtom215/cinelog/internal/config"
	"github.com/tomtom215/cinelog/internal/logging"
	"github.com/tomtom215/cinelog/internal/metrics"
	"github.com/tomtom215/cinelog/internal/models"
)

const (
	// maxErrorBodySize limits how much of an error response is read
	maxErrorBodySize = 64 * 1024

	// maxBodySize limits successful response bodies
	maxBodySize = 4 * 1024 * 1024

	// maxRetryAfter caps a server-requested wait
	maxRetryAfter = time.Minute

	endpointSearch  = "search"
	endpointDetails = "details"
)

// errNoResults is an empty search result page
var errNoResults = errors.New("no search results")

// TMDBClient talks to a TMDB-compatible HTTP API.
//
// Safe for concurrent use. The semaphore and limiter are shared by every
// caller, so total outbound concurrency never exceeds MaxConcurrent and the
// request rate never exceeds RequestsPerWindow per Window no matter how the
// callers batch their work.
type TMDBClient struct {
	baseURL      string
	imageBaseURL string
	apiKey       string
	accessToken  string
	language     string

	client         *http.Client
	sem            *semaphore.Weighted
	limiter        *rate.Limiter
	requestTimeout time.Duration
	maxRetries     int
	retryBaseDelay time.Duration

	topCast      int
	topDirectors int

	logger zerolog.Logger
}

// NewTMDBClient creates a catalog client from cfg.
func NewTMDBClient(cfg *config.CatalogConfig) *TMDBClient {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	limit := rate.Inf
	if cfg.RequestsPerWindow > 0 && cfg.Window > 0 {
		limit = rate.Every(cfg.Window / time.Duration(cfg.RequestsPerWindow))
	}

	return &TMDBClient{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		imageBaseURL:   strings.TrimRight(cfg.ImageBaseURL, "/"),
		apiKey:         cfg.APIKey,
		accessToken:    cfg.AccessToken,
		language:       cfg.Language,
		client:         &http.Client{},
		sem:            semaphore.NewWeighted(int64(maxConcurrent)),
		limiter:        rate.NewLimiter(limit, maxConcurrent),
		requestTimeout: cfg.RequestTimeout,
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
		topCast:        cfg.TopCast,
		topDirectors:   cfg.TopDirectors,
		logger:         logging.WithComponent("catalog"),
	}
}

// Search returns the ID of the first match for title. When year is given
// and nothing matches, the search is retried once without the year.
func (c *TMDBClient) Search(ctx context.Context, title string, year *int) (int, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, ErrNotFound
	}

	id, err := c.searchOnce(ctx, title, year)
	if errors.Is(err, errNoResults) && year != nil {
		c.logger.Debug().Str("title", title).Int("year", *year).Msg("No match with year, retrying without")
		id, err = c.searchOnce(ctx, title, nil)
	}
	if errors.Is(err, errNoResults) {
		return 0, ErrNotFound
	}
	return id, err
}

func (c *TMDBClient) searchOnce(ctx context.Context, title string, year *int) (int, error) {
	params := url.Values{}
	params.Set("query", title)
	params.Set("include_adult", "false")
	if year != nil {
		params.Set("year", strconv.Itoa(*year))
	}

	var page searchResponse
	if err := c.getJSON(ctx, endpointSearch, "/search/movie", params, &page); err != nil {
		return 0, err
	}
	for _, result := range page.Results {
		if result.ID > 0 {
			return result.ID, nil
		}
	}
	return 0, errNoResults
}

// FetchDetails returns normalized metadata for a catalog ID.
func (c *TMDBClient) FetchDetails(ctx context.Context, id int) (*models.Enrichment, error) {
	if id <= 0 {
		return nil, ErrNotFound
	}

	params := url.Values{}
	params.Set("append_to_response", "credits")

	var details movieDetails
	if err := c.getJSON(ctx, endpointDetails, "/movie/"+strconv.Itoa(id), params, &details); err != nil {
		return nil, err
	}
	return details.normalize(c.imageBaseURL, c.topDirectors, c.topCast), nil
}

// Enrich searches for the movie and fetches its details.
func (c *TMDBClient) Enrich(ctx context.Context, title string, year *int) (*models.Enrichment, error) {
	return enrich(ctx, c, title, year)
}

// attemptOutcome classifies one HTTP attempt.
type attemptOutcome struct {
	retryable  bool
	retryAfter time.Duration
	err        error
}

// getJSON performs a GET with retries and decodes the body into out.
func (c *TMDBClient) getJSON(ctx context.Context, endpoint, path string, params url.Values, out any) error {
	if c.language != "" {
		params.Set("language", c.language)
	}
	if c.accessToken == "" && c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	reqURL := c.baseURL + path + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		outcome := c.doAttempt(ctx, endpoint, reqURL, out)
		if outcome.err == nil {
			return nil
		}
		lastErr = outcome.err

		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrNotFound, ctx.Err())
		}
		if !outcome.retryable {
			return outcome.err
		}
		if attempt == c.maxRetries {
			break
		}

		// Exponential backoff: base, 2x base, 4x base...
		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if outcome.retryAfter > 0 {
			delay = outcome.retryAfter
		}
		c.logger.Debug().Str("endpoint", endpoint).Int("attempt", attempt+1).
			Dur("delay", delay).Err(outcome.err).Msg("Retrying catalog request")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrNotFound, ctx.Err())
		}
	}

	return degraded(endpoint, fmt.Errorf("retries exhausted after %d attempts: %w", c.maxRetries+1, lastErr))
}

// doAttempt waits for budget, holds a concurrency slot for one HTTP round
// trip and decodes the response.
func (c *TMDBClient) doAttempt(ctx context.Context, endpoint, reqURL string, out any) attemptOutcome {
	waitStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return attemptOutcome{err: degraded(endpoint, fmt.Errorf("rate budget wait: %w", err))}
	}
	metrics.CatalogRateLimitWait.Observe(time.Since(waitStart).Seconds())

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return attemptOutcome{err: degraded(endpoint, fmt.Errorf("concurrency slot wait: %w", err))}
	}
	defer c.sem.Release(1)

	metrics.CatalogInFlight.Inc()
	defer metrics.CatalogInFlight.Dec()

	reqCtx := ctx
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return attemptOutcome{err: degraded(endpoint, fmt.Errorf("failed to create request: %w", err))}
	}
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordCatalogRequest(endpoint, "retry", time.Since(start))
		return attemptOutcome{retryable: true, err: degraded(endpoint, fmt.Errorf("HTTP request failed: %w", err))}
	}
	defer closeBody(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			metrics.RecordCatalogRequest(endpoint, "retry", time.Since(start))
			return attemptOutcome{retryable: true, err: degraded(endpoint, fmt.Errorf("failed to read response: %w", err))}
		}
		if err := json.Unmarshal(body, out); err != nil {
			metrics.RecordCatalogRequest(endpoint, "error", time.Since(start))
			return attemptOutcome{err: degraded(endpoint, fmt.Errorf("failed to decode response: %w", err))}
		}
		metrics.RecordCatalogRequest(endpoint, "success", time.Since(start))
		return attemptOutcome{}

	case resp.StatusCode == http.StatusNotFound:
		metrics.RecordCatalogRequest(endpoint, "not_found", time.Since(start))
		return attemptOutcome{err: ErrNotFound}

	case resp.StatusCode == http.StatusTooManyRequests:
		metrics.RecordCatalogRequest(endpoint, "retry", time.Since(start))
		return attemptOutcome{
			retryable:  true,
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
			err:        degraded(endpoint, fmt.Errorf("rate limited (HTTP 429)")),
		}

	case resp.StatusCode >= 500:
		metrics.RecordCatalogRequest(endpoint, "retry", time.Since(start))
		body := readBodyForError(resp.Body)
		return attemptOutcome{retryable: true, err: degraded(endpoint, fmt.Errorf("status %d: %s", resp.StatusCode, body))}

	default:
		metrics.RecordCatalogRequest(endpoint, "error", time.Since(start))
		body := readBodyForError(resp.Body)
		return attemptOutcome{err: degraded(endpoint, fmt.Errorf("status %d: %s", resp.StatusCode, body))}
	}
}

// parseRetryAfter reads a Retry-After header given in seconds or as an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	var delay time.Duration
	if seconds, err := strconv.Atoi(value); err == nil {
		delay = time.Duration(seconds) * time.Second
	} else if when, err := http.ParseTime(value); err == nil {
		delay = when.Sub(now)
	}

	if delay < 0 {
		return 0
	}
	if delay > maxRetryAfter {
		return maxRetryAfter
	}
	return delay
}

// readBodyForError reads at most maxErrorBodySize bytes for error messages
func readBodyForError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return "(failed to read response body)"
	}
	return strings.TrimSpace(string(body))
}

// closeBody drains and closes a response body so the connection is reused
func closeBody(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxErrorBodySize))
	_ = body.Close()
}
