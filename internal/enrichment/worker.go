// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

/*
Package enrichment fills movie records with catalog metadata in the background.

The Worker processes one session: it lists the movies that still need
enrichment, splits them into fixed-size batches and runs every movie of a
batch in its own goroutine. Batches run strictly one after another. A unit
that fails (catalog miss, degraded lookup, storage error, panic) is logged and
still counted toward the session's progress, so one bad movie never blocks
completion.

The Scheduler drives the Worker: on every tick it lists sessions in the
enriching state and runs the worker for each of them in turn.
*/
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/cinelog/internal/catalog"
	"github.com/tomtom215/cinelog/internal/database"
	"github.com/tomtom215/cinelog/internal/metrics"
	"github.com/tomtom215/cinelog/internal/models"
)

// DefaultBatchSize is the number of movies enriched concurrently.
const DefaultBatchSize = 10

// Store is the storage used by the worker. *database.DB implements it.
type Store interface {
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ListUnenrichedMovies(ctx context.Context, sessionID string) ([]models.MovieRecord, error)
	ApplyEnrichment(ctx context.Context, sessionID, movieID string, e *models.Enrichment) error
	RecordProgress(ctx context.Context, sessionID, movieID string) (bool, error)
	TransitionSession(ctx context.Context, id string, next models.SessionStatus, errMsg string) error
}

// Result summarizes one worker run.
type Result struct {
	Processed int  `json:"processed"`
	Enriched  int  `json:"enriched"`
	NotFound  int  `json:"not_found"`
	Failed    int  `json:"failed"`
	Batches   int  `json:"batches"`
	Completed bool `json:"completed"`
}

// Worker enriches the movies of one session at a time.
type Worker struct {
	store     Store
	catalog   catalog.Client
	batchSize int
	logger    zerolog.Logger
}

// NewWorker creates a worker. A batchSize below 1 uses DefaultBatchSize.
func NewWorker(store Store, client catalog.Client, batchSize int, logger zerolog.Logger) *Worker {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Worker{
		store:     store,
		catalog:   client,
		batchSize: batchSize,
		logger:    logger.With().Str("component", "enrichment_worker").Logger(),
	}
}

// unit outcomes
const (
	outcomeEnriched = "enriched"
	outcomeNotFound = "not_found"
	outcomeFailed   = "failed"
)

// counters aggregates unit outcomes across the goroutines of a batch.
type counters struct {
	processed atomic.Int64
	enriched  atomic.Int64
	notFound  atomic.Int64
	failed    atomic.Int64
}

// Run enriches every pending movie of the session and marks the session
// completed once its progress reaches the total.
//
// Per-movie failures never escape Run. The returned error is reserved for
// failures outside the batch boundary, such as listing pending movies or
// re-reading the session.
func (w *Worker) Run(ctx context.Context, sessionID string) (*Result, error) {
	start := time.Now()
	log := w.logger.With().Str("session_id", sessionID).Logger()

	movies, err := w.store.ListUnenrichedMovies(ctx, sessionID)
	if err != nil {
		metrics.RecordEnrichmentRun("error", time.Since(start))
		return nil, fmt.Errorf("list pending movies: %w", err)
	}

	result := &Result{}
	if len(movies) == 0 {
		completed, err := w.complete(ctx, sessionID)
		if err != nil {
			metrics.RecordEnrichmentRun("error", time.Since(start))
			return nil, err
		}
		result.Completed = completed
		metrics.RecordEnrichmentRun("completed", time.Since(start))
		return result, nil
	}

	log.Info().Int("pending", len(movies)).Int("batch_size", w.batchSize).Msg("Enrichment run started")

	var c counters
	for begin := 0; begin < len(movies); begin += w.batchSize {
		if err := ctx.Err(); err != nil {
			break
		}
		end := begin + w.batchSize
		if end > len(movies) {
			end = len(movies)
		}
		w.runBatch(ctx, sessionID, movies[begin:end], &c)
		result.Batches++
	}

	result.Processed = int(c.processed.Load())
	result.Enriched = int(c.enriched.Load())
	result.NotFound = int(c.notFound.Load())
	result.Failed = int(c.failed.Load())

	completed, err := w.checkCompletion(ctx, sessionID)
	if err != nil {
		metrics.RecordEnrichmentRun("error", time.Since(start))
		return result, err
	}
	result.Completed = completed

	runResult := "partial"
	if completed {
		runResult = "completed"
	}
	metrics.RecordEnrichmentRun(runResult, time.Since(start))

	log.Info().
		Int("processed", result.Processed).
		Int("enriched", result.Enriched).
		Int("not_found", result.NotFound).
		Int("failed", result.Failed).
		Int("batches", result.Batches).
		Bool("completed", completed).
		Dur("duration", time.Since(start)).
		Msg("Enrichment run finished")

	return result, nil
}

// runBatch processes one batch and waits for all of its units.
func (w *Worker) runBatch(ctx context.Context, sessionID string, batch []models.MovieRecord, c *counters) {
	batchStart := time.Now()

	// A plain Group: one unit's error must not cancel its siblings.
	var g errgroup.Group
	for i := range batch {
		movie := batch[i]
		g.Go(func() error {
			outcome, err := w.processUnit(ctx, sessionID, &movie)
			c.processed.Add(1)
			switch outcome {
			case outcomeEnriched:
				c.enriched.Add(1)
			case outcomeNotFound:
				c.notFound.Add(1)
			default:
				c.failed.Add(1)
			}
			metrics.EnrichmentMovies.WithLabelValues(outcome).Inc()
			if err != nil {
				w.logger.Warn().Err(err).
					Str("session_id", sessionID).
					Str("movie_id", movie.ID).
					Str("title", movie.Title).
					Msg("Movie enrichment failed")
			}
			return err
		})
	}
	_ = g.Wait()

	metrics.EnrichmentBatchDuration.Observe(time.Since(batchStart).Seconds())
}

// processUnit enriches one movie and always records its progress.
func (w *Worker) processUnit(ctx context.Context, sessionID string, movie *models.MovieRecord) (outcome string, err error) {
	outcome = outcomeFailed
	defer func() {
		if r := recover(); r != nil {
			outcome = outcomeFailed
			err = fmt.Errorf("panic enriching %q: %v", movie.Title, r)
		}
		if _, progressErr := w.store.RecordProgress(ctx, sessionID, movie.ID); progressErr != nil {
			outcome = outcomeFailed
			err = errors.Join(err, fmt.Errorf("record progress: %w", progressErr))
		}
	}()

	enrichment, lookupErr := w.catalog.Enrich(ctx, movie.Title, movie.Year)
	switch {
	case lookupErr == nil:
	case catalog.IsUnavailable(lookupErr):
		return outcomeFailed, fmt.Errorf("catalog lookup: %w", lookupErr)
	case errors.Is(lookupErr, catalog.ErrNotFound):
		return outcomeNotFound, nil
	default:
		return outcomeFailed, fmt.Errorf("catalog lookup: %w", lookupErr)
	}

	if err := w.store.ApplyEnrichment(ctx, sessionID, movie.ID, enrichment); err != nil {
		return outcomeFailed, fmt.Errorf("apply enrichment: %w", err)
	}
	return outcomeEnriched, nil
}

// checkCompletion re-reads the session and completes it when every movie
// has been counted.
func (w *Worker) checkCompletion(ctx context.Context, sessionID string) (bool, error) {
	session, err := w.store.GetSession(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("reload session: %w", err)
	}
	if session.Status == models.SessionCompleted {
		return true, nil
	}
	if session.EnrichedItems < session.TotalItems {
		return false, nil
	}
	return w.complete(ctx, sessionID)
}

// complete moves the session to completed. A session another run already
// completed counts as completed.
func (w *Worker) complete(ctx context.Context, sessionID string) (bool, error) {
	err := w.store.TransitionSession(ctx, sessionID, models.SessionCompleted, "")
	if err == nil {
		w.logger.Info().Str("session_id", sessionID).Msg("Session enrichment completed")
		return true, nil
	}
	if errors.Is(err, database.ErrInvalidTransition) {
		session, getErr := w.store.GetSession(ctx, sessionID)
		if getErr == nil && session.Status == models.SessionCompleted {
			return true, nil
		}
	}
	return false, fmt.Errorf("complete session: %w", err)
}
