// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package enrichment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cinelog/internal/metrics"
	"github.com/tomtom215/cinelog/internal/models"
)

// SessionLister finds sessions waiting for enrichment.
type SessionLister interface {
	ListSessionsByStatus(ctx context.Context, status models.SessionStatus) ([]models.Session, error)
}

// Runner enriches one session. *Worker implements it.
type Runner interface {
	Run(ctx context.Context, sessionID string) (*Result, error)
}

// Config holds configuration for the enrichment scheduler.
type Config struct {
	// Interval is how often to look for enriching sessions (default: 30s)
	Interval time.Duration

	// RunTimeout bounds a single session run (default: 30m)
	RunTimeout time.Duration

	// Enabled controls whether the scheduler is active
	Enabled bool
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		Interval:   30 * time.Second,
		RunTimeout: 30 * time.Minute,
		Enabled:    true,
	}
}

// Scheduler periodically runs the worker for every enriching session.
type Scheduler struct {
	sessions SessionLister
	runner   Runner
	logger   zerolog.Logger
	config   Config

	// trigger is buffered so TriggerNow never blocks
	trigger chan struct{}

	// Runtime state
	mu       sync.Mutex
	running  bool
	stopping bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewScheduler creates a new enrichment scheduler.
func NewScheduler(sessions SessionLister, runner Runner, logger zerolog.Logger, config Config) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = 30 * time.Second
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = 30 * time.Minute
	}

	return &Scheduler{
		sessions: sessions,
		runner:   runner,
		logger:   logger.With().Str("component", "enrichment-scheduler").Logger(),
		config:   config,
		trigger:  make(chan struct{}, 1),
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	if !s.config.Enabled {
		s.logger.Info().Msg("Enrichment scheduler disabled")
		go func() {
			defer close(s.doneCh)
			<-s.stopCh
		}()
		return nil
	}

	s.logger.Info().
		Dur("interval", s.config.Interval).
		Dur("run_timeout", s.config.RunTimeout).
		Msg("Starting enrichment scheduler")

	go s.run(ctx)
	return nil
}

// Stop stops the scheduler loop and waits for the current tick to finish.
// Concurrent calls all wait; only the first closes the stop channel.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	if s.stopping {
		s.mu.Unlock()
		<-doneCh
		return nil
	}
	s.stopping = true
	s.mu.Unlock()

	s.logger.Info().Msg("Stopping enrichment scheduler...")
	close(stopCh)
	<-doneCh

	s.mu.Lock()
	s.running = false
	s.stopping = false
	s.mu.Unlock()

	s.logger.Info().Msg("Enrichment scheduler stopped")
	return nil
}

// IsRunning returns whether the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// TriggerNow requests a tick without waiting for the ticker. Requests made
// while a tick is pending are coalesced.
func (s *Scheduler) TriggerNow() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Run immediately on start
	s.tick(ctx)

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.trigger:
			s.tick(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// tick runs the worker for each enriching session, one after another.
func (s *Scheduler) tick(ctx context.Context) {
	metrics.EnrichmentSchedulerLastTick.SetToCurrentTime()

	sessions, err := s.sessions.ListSessionsByStatus(ctx, models.SessionEnriching)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list enriching sessions")
		return
	}
	metrics.EnrichmentPendingSessions.Set(float64(len(sessions)))

	if len(sessions) == 0 {
		s.logger.Debug().Msg("No sessions waiting for enrichment")
		return
	}

	s.logger.Debug().Int("count", len(sessions)).Msg("Found sessions waiting for enrichment")

	for i := range sessions {
		if s.isStopping(ctx) {
			return
		}
		s.runSession(ctx, sessions[i].ID)
	}
}

func (s *Scheduler) runSession(ctx context.Context, sessionID string) {
	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	if _, err := s.runner.Run(runCtx, sessionID); err != nil {
		// The session stays enriching and is picked up again next tick.
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Enrichment run failed")
	}
}

func (s *Scheduler) isStopping(ctx context.Context) bool {
	select {
	case <-s.stopCh:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
