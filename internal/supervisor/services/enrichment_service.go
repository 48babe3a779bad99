// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package services

import (
	"context"
	"fmt"
)

// EnrichmentScheduler is the Start/Stop lifecycle of
// *enrichment.Scheduler.
type EnrichmentScheduler interface {
	Start(ctx context.Context) error
	Stop() error
}

// EnrichmentSchedulerService adapts the enrichment scheduler to suture:
// Start on Serve, Stop on cancellation. A failed Start is returned so the
// supervisor restarts the service with backoff.
type EnrichmentSchedulerService struct {
	scheduler EnrichmentScheduler
	name      string
}

// NewEnrichmentSchedulerService wraps scheduler.
func NewEnrichmentSchedulerService(scheduler EnrichmentScheduler) *EnrichmentSchedulerService {
	return &EnrichmentSchedulerService{
		scheduler: scheduler,
		name:      "enrichment-scheduler",
	}
}

// Serve implements suture.Service.
func (s *EnrichmentSchedulerService) Serve(ctx context.Context) error {
	if err := s.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("enrichment scheduler start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.scheduler.Stop(); err != nil {
		return fmt.Errorf("enrichment scheduler stop failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for suture's logs.
func (s *EnrichmentSchedulerService) String() string {
	return s.name
}
