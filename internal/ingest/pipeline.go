// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

// Package ingest turns uploaded export files into a persisted session.
//
// The pipeline merges the files first, so malformed uploads are rejected
// before any session exists. It then creates the session, stores the merged
// records in one transaction and hands the session to background enrichment:
//
//	files -> merge.Merger -> uploading -> processing -> enriching
//
// A storage failure after the session exists moves it to failed with a short
// message that clients can show.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cinelog/internal/logging"
	"github.com/tomtom215/cinelog/internal/merge"
	"github.com/tomtom215/cinelog/internal/metrics"
	"github.com/tomtom215/cinelog/internal/models"
)

// Store defines the database operations required by the pipeline.
type Store interface {
	CreateSession(ctx context.Context, ttl time.Duration) (*models.Session, error)
	GetSession(ctx context.Context, id string) (*models.Session, error)
	TransitionSession(ctx context.Context, id string, next models.SessionStatus, errMsg string) error
	InsertMovieRecords(ctx context.Context, sessionID string, records []models.MovieRecord) (int, error)
}

// Notifier is told when a session is ready for enrichment.
type Notifier interface {
	TriggerNow()
}

// ErrFileTooLarge is returned for a file over the configured upload limit.
var ErrFileTooLarge = errors.New("file exceeds the upload size limit")

// failTimeout bounds marking a session failed after the request context ended.
const failTimeout = 5 * time.Second

// Pipeline ingests export files into sessions.
type Pipeline struct {
	store    Store
	merger   *merge.Merger
	ttl      time.Duration
	notifier Notifier
	logger   zerolog.Logger
}

// NewPipeline creates a pipeline. notifier may be nil.
func NewPipeline(store Store, merger *merge.Merger, ttl time.Duration, notifier Notifier) *Pipeline {
	return &Pipeline{
		store:    store,
		merger:   merger,
		ttl:      ttl,
		notifier: notifier,
		logger:   logging.WithComponent("ingest"),
	}
}

// Ingest validates and merges files, then persists them as a new session.
// Validation and parse errors are returned before a session is created.
func (p *Pipeline) Ingest(ctx context.Context, files []merge.File) (*models.Session, error) {
	start := time.Now()

	result, err := p.merge(files)
	if err != nil {
		return nil, err
	}

	session, err := p.Begin(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.startProcessing(ctx, session.ID); err != nil {
		return nil, err
	}
	return p.persist(ctx, session.ID, result, start)
}

// Begin creates an uploading session for transports that register the
// session before the files are complete.
func (p *Pipeline) Begin(ctx context.Context) (*models.Session, error) {
	session, err := p.store.CreateSession(ctx, p.ttl)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	p.logger.Debug().Str("session_id", session.ID).Msg("Upload session started")
	return session, nil
}

// Process merges files into a session created by Begin. Unlike Ingest, a
// validation error here fails the existing session.
func (p *Pipeline) Process(ctx context.Context, sessionID string, files []merge.File) (*models.Session, error) {
	start := time.Now()

	if err := p.startProcessing(ctx, sessionID); err != nil {
		return nil, err
	}
	result, err := p.merge(files)
	if err != nil {
		p.fail(ctx, sessionID, models.SessionProcessing, err)
		return nil, err
	}
	return p.persist(ctx, sessionID, result, start)
}

// startProcessing moves an uploading session to processing.
func (p *Pipeline) startProcessing(ctx context.Context, sessionID string) error {
	if err := p.store.TransitionSession(ctx, sessionID, models.SessionProcessing, ""); err != nil {
		p.fail(ctx, sessionID, models.SessionUploading, err)
		return fmt.Errorf("start processing: %w", err)
	}
	return nil
}

func (p *Pipeline) merge(files []merge.File) (*merge.Result, error) {
	result, err := p.merger.Merge(files)
	if err == nil {
		return result, nil
	}

	reason := "parse"
	var verr *merge.ValidationError
	if errors.Is(err, merge.ErrNoFiles) || errors.As(err, &verr) {
		reason = "validation"
	}
	metrics.IngestRejected.WithLabelValues(reason).Inc()
	p.logger.Info().Err(err).Str("reason", reason).Msg("Upload rejected")
	return nil, err
}

// persist stores merged records of a processing session and advances it to
// enrichment. A session without records also goes to enriching; the worker
// completes it on its first run.
func (p *Pipeline) persist(ctx context.Context, sessionID string, result *merge.Result, start time.Time) (*models.Session, error) {
	log := p.logger.With().Str("session_id", sessionID).Logger()

	records := make([]models.MovieRecord, len(result.Records))
	for i := range result.Records {
		records[i] = result.Records[i].ToMovieRecord(sessionID)
	}

	total := 0
	if len(records) > 0 {
		var err error
		total, err = p.store.InsertMovieRecords(ctx, sessionID, records)
		if err != nil {
			p.fail(ctx, sessionID, models.SessionProcessing, err)
			return nil, fmt.Errorf("store records: %w", err)
		}
	}

	next := models.SessionEnriching
	if err := p.store.TransitionSession(ctx, sessionID, next, ""); err != nil {
		p.fail(ctx, sessionID, models.SessionProcessing, err)
		return nil, fmt.Errorf("start enrichment: %w", err)
	}

	metrics.RecordIngest(total, time.Since(start))
	log.Info().
		Int("records", total).
		Int("duplicates", result.DuplicateRows).
		Int("skipped", result.SkippedRows).
		Str("status", string(next)).
		Dur("duration", time.Since(start)).
		Msg("Upload ingested")

	if p.notifier != nil {
		p.notifier.TriggerNow()
	}

	session, err := p.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("reload session: %w", err)
	}
	return session, nil
}

// fail marks the session failed. It uses a detached context so a canceled
// request still leaves the session in a terminal state.
func (p *Pipeline) fail(ctx context.Context, sessionID string, from models.SessionStatus, cause error) {
	failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failTimeout)
	defer cancel()

	// failed is only reachable from processing
	if from == models.SessionUploading {
		if err := p.store.TransitionSession(failCtx, sessionID, models.SessionProcessing, ""); err != nil {
			p.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to move session to processing before failing it")
		}
	}

	msg := FailureMessage(cause)
	if err := p.store.TransitionSession(failCtx, sessionID, models.SessionFailed, msg); err != nil {
		p.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to mark session failed")
		return
	}
	p.logger.Warn().Err(cause).Str("session_id", sessionID).Str("error_message", msg).Msg("Session failed")
}

// FailureMessage converts err into the short message stored on a failed
// session. Upload problems keep their detail; internal errors do not.
func FailureMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case merge.IsValidationError(err):
		return err.Error()
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "upload processing was interrupted"
	default:
		return "could not save the uploaded records"
	}
}
