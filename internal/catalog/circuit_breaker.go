// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/cinelog/internal/logging"
	"github.com/tomtom215/cinelog/internal/metrics"
	"github.com/tomtom215/cinelog/internal/models"
)

// breakerName labels the catalog breaker in metrics
const breakerName = "catalog-api"

// CircuitBreakerClient wraps a Client with a circuit breaker.
//
// Only degraded lookups (ErrUnavailable) count as failures; a movie the
// catalog does not know is a successful answer. While open, every call fails
// fast with an error matching both ErrNotFound and ErrUnavailable.
type CircuitBreakerClient struct {
	client Client
	cb     *gobreaker.CircuitBreaker[any]
	name   string
}

// NewCircuitBreakerClient wraps client. Configuration:
//   - Max 3 requests in half-open state
//   - 1 minute measurement window
//   - openTimeout before attempting recovery
//   - Opens after 5 consecutive failures, or 60% failures over 10+ requests
func NewCircuitBreakerClient(client Client, openTimeout time.Duration) *CircuitBreakerClient {
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     openTimeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 5 {
				logging.Warn().Uint32("consecutive_failures", counts.ConsecutiveFailures).Msg("[CIRCUIT BREAKER] Opening catalog circuit")
				return true
			}
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			if failureRatio >= 0.6 {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening catalog circuit")
				return true
			}
			return false
		},

		IsSuccessful: func(err error) bool {
			return err == nil || !IsUnavailable(err)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &CircuitBreakerClient{client: client, cb: cb, name: breakerName}
}

// State returns the current breaker state
func (cbc *CircuitBreakerClient) State() gobreaker.State {
	return cbc.cb.State()
}

// execute runs fn under breaker protection
func (cbc *CircuitBreakerClient) execute(op string, fn func() (any, error)) (any, error) {
	result, err := cbc.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
			return nil, degraded(op, err)
		}
		if IsUnavailable(err) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	return result, nil
}

// Search runs a catalog search with circuit breaker protection
func (cbc *CircuitBreakerClient) Search(ctx context.Context, title string, year *int) (int, error) {
	result, err := cbc.execute(endpointSearch, func() (any, error) {
		return cbc.client.Search(ctx, title, year)
	})
	if err != nil {
		return 0, err
	}
	id, ok := result.(int)
	if !ok {
		return 0, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return id, nil
}

// FetchDetails fetches movie details with circuit breaker protection
func (cbc *CircuitBreakerClient) FetchDetails(ctx context.Context, id int) (*models.Enrichment, error) {
	result, err := cbc.execute(endpointDetails, func() (any, error) {
		return cbc.client.FetchDetails(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	details, ok := result.(*models.Enrichment)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return details, nil
}

// Enrich searches and fetches details, each call protected by the breaker
func (cbc *CircuitBreakerClient) Enrich(ctx context.Context, title string, year *int) (*models.Enrichment, error) {
	return enrich(ctx, cbc, title, year)
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
