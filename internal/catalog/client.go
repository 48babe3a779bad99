// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

/*
Package catalog looks up movie metadata in a TMDB-compatible catalog API.

The stack is layered, each layer implementing Client:

	CachingClient -> CircuitBreakerClient -> TMDBClient

TMDBClient owns the outbound budget: a semaphore caps requests in flight and
a token bucket caps requests per window, independent of how many goroutines
call it. Transient failures (network errors, 5xx, 429) are retried with
exponential backoff, honoring Retry-After.

Errors:
  - ErrNotFound: the catalog has no match, or the lookup degraded.
  - ErrUnavailable: the lookup degraded (timeout, non-success status,
    retries exhausted). Degraded errors match both sentinels, so callers that
    only care about "no metadata" check ErrNotFound while the circuit breaker
    counts ErrUnavailable.
*/
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/cinelog/internal/models"
)

var (
	// ErrNotFound means no metadata could be obtained for the movie.
	ErrNotFound = errors.New("movie not found in catalog")

	// ErrUnavailable means the catalog could not answer.
	ErrUnavailable = errors.New("catalog unavailable")
)

// Client is the catalog lookup contract used by the enrichment worker.
type Client interface {
	// Search returns the catalog ID of the best match for title and year.
	Search(ctx context.Context, title string, year *int) (int, error)

	// FetchDetails returns the normalized metadata of a catalog movie.
	FetchDetails(ctx context.Context, id int) (*models.Enrichment, error)

	// Enrich searches and fetches details in one call.
	Enrich(ctx context.Context, title string, year *int) (*models.Enrichment, error)
}

// degradedError is a lookup that failed for reasons other than "no match".
type degradedError struct {
	op  string
	err error
}

func (e *degradedError) Error() string {
	return fmt.Sprintf("catalog %s: %v", e.op, e.err)
}

func (e *degradedError) Unwrap() error {
	return e.err
}

// Is matches both ErrNotFound and ErrUnavailable.
func (e *degradedError) Is(target error) bool {
	return target == ErrNotFound || target == ErrUnavailable
}

// degraded wraps err as an unavailable lookup.
func degraded(op string, err error) error {
	return &degradedError{op: op, err: err}
}

// IsUnavailable reports whether err is a degraded lookup rather than a miss.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// enrich is the shared Search then FetchDetails flow.
func enrich(ctx context.Context, c Client, title string, year *int) (*models.Enrichment, error) {
	id, err := c.Search(ctx, title, year)
	if err != nil {
		return nil, err
	}
	return c.FetchDetails(ctx, id)
}
