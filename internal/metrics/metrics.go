// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

// Package metrics registers the Prometheus instrumentation for Cinelog:
// DuckDB queries, the HTTP API, the catalog client and its circuit breaker,
// enrichment runs and session lifecycle.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	DBConflictRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_transaction_conflict_retries_total",
			Help: "Total number of retries after a DuckDB transaction conflict",
		},
		[]string{"operation"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)

	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_progress_connections",
			Help: "Number of open session progress WebSocket connections",
		},
	)

	// Catalog Client Metrics
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_requests_total",
			Help: "Total number of catalog HTTP requests",
		},
		[]string{"endpoint", "outcome"}, // outcome: success, not_found, retry, error
	)

	CatalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_request_duration_seconds",
			Help:    "Catalog HTTP request latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	CatalogInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_requests_in_flight",
			Help: "Number of catalog HTTP requests currently in flight",
		},
	)

	CatalogRateLimitWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_rate_limit_wait_seconds",
			Help:    "Time spent waiting for the catalog request budget",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15},
		},
	)

	CatalogCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_hits_total",
			Help: "Total number of catalog cache hits",
		},
		[]string{"kind"}, // search, details
	)

	CatalogCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_misses_total",
			Help: "Total number of catalog cache misses",
		},
		[]string{"kind"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Enrichment Metrics
	EnrichmentMovies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_movies_total",
			Help: "Total number of movies processed by the enrichment worker",
		},
		[]string{"outcome"}, // enriched, not_found, failed
	)

	EnrichmentBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "enrichment_batch_duration_seconds",
			Help:    "Duration of one enrichment batch",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	EnrichmentRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_runs_total",
			Help: "Total number of enrichment worker runs per session",
		},
		[]string{"result"}, // completed, partial, error
	)

	EnrichmentRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "enrichment_run_duration_seconds",
			Help:    "Duration of one enrichment worker run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 900},
		},
	)

	EnrichmentSchedulerLastTick = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "enrichment_scheduler_last_tick_timestamp",
			Help: "Unix timestamp of the last enrichment scheduler tick",
		},
	)

	EnrichmentPendingSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "enrichment_pending_sessions",
			Help: "Sessions in the enriching state at the last scheduler tick",
		},
	)

	// Session Metrics
	SessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_transitions_total",
			Help: "Total number of session status transitions",
		},
		[]string{"to_status"},
	)

	SessionsReaped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_reaped_total",
			Help: "Total number of expired sessions deleted",
		},
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_duration_seconds",
			Help:    "Duration of upload ingestion (merge and persist)",
			Buckets: prometheus.DefBuckets,
		},
	)

	IngestRecords = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_records_total",
			Help: "Total number of merged movie records persisted",
		},
	)

	IngestRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_rejected_total",
			Help: "Total number of uploads rejected before a session was created",
		},
		[]string{"reason"}, // validation, parse
	)
)

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordCatalogRequest records one catalog HTTP attempt.
func RecordCatalogRequest(endpoint, outcome string, duration time.Duration) {
	CatalogRequests.WithLabelValues(endpoint, outcome).Inc()
	CatalogRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordEnrichmentRun records the end of one worker run for a session.
func RecordEnrichmentRun(result string, duration time.Duration) {
	EnrichmentRuns.WithLabelValues(result).Inc()
	EnrichmentRunDuration.Observe(duration.Seconds())
}

// RecordSessionTransition counts a status change.
func RecordSessionTransition(to string) {
	SessionTransitions.WithLabelValues(to).Inc()
}

// RecordIngest records a successful ingest.
func RecordIngest(records int, duration time.Duration) {
	IngestRecords.Add(float64(records))
	IngestDuration.Observe(duration.Seconds())
}
