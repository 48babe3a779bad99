// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

// Package reaper deletes expired upload sessions and their records.
package reaper

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cinelog/internal/metrics"
)

// DefaultInterval is how often expired sessions are removed.
const DefaultInterval = 10 * time.Minute

// Store deletes sessions whose expiry is before now, cascading to records.
type Store interface {
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
}

// Reaper periodically removes expired sessions.
type Reaper struct {
	store    Store
	interval time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

// New creates a reaper. A non-positive interval uses DefaultInterval.
func New(store Store, interval time.Duration, logger zerolog.Logger) *Reaper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reaper{
		store:    store,
		interval: interval,
		now:      time.Now,
		logger:   logger.With().Str("component", "session-reaper").Logger(),
	}
}

// RunOnce deletes every session expired at the current time.
func (r *Reaper) RunOnce(ctx context.Context) (int, error) {
	count, err := r.store.DeleteExpiredSessions(ctx, r.now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		metrics.SessionsReaped.Add(float64(count))
		r.logger.Info().Int("count", count).Msg("Deleted expired sessions")
	}
	return count, nil
}

// Serve implements suture.Service. It reaps once on start and then on every
// interval until ctx is canceled.
func (r *Reaper) Serve(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.reap(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.reap(ctx)
		}
	}
}

func (r *Reaper) reap(ctx context.Context) {
	if _, err := r.RunOnce(ctx); err != nil {
		r.logger.Error().Err(err).Msg("Session reaper error")
	}
}

// String implements fmt.Stringer for supervisor logs.
func (r *Reaper) String() string {
	return "session-reaper"
}
