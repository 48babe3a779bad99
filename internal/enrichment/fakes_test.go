// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package enrichment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/cinelog/internal/catalog"
	"github.com/tomtom215/cinelog/internal/database"
	"github.com/tomtom215/cinelog/internal/models"
)

// fakeStore keeps one session and its movies in memory with the same
// progress rules as the database store.
type fakeStore struct {
	mu        sync.Mutex
	session   models.Session
	movies    map[string]*models.MovieRecord
	order     []string
	listErr   error
	getErr    error
	applyErr  map[string]error
	progress  []int
	transited []models.SessionStatus
}

func newFakeStore(status models.SessionStatus, n int) *fakeStore {
	s := &fakeStore{
		session: models.Session{
			ID:         "session-1",
			Status:     status,
			TotalItems: n,
		},
		movies:   make(map[string]*models.MovieRecord),
		applyErr: make(map[string]error),
	}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("movie-%02d", i)
		s.movies[id] = &models.MovieRecord{
			ID:        id,
			SessionID: s.session.ID,
			Key:       id,
			Title:     fmt.Sprintf("Film %02d", i),
		}
		s.order = append(s.order, id)
	}
	return s
}

func (s *fakeStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	if id != s.session.ID {
		return nil, database.ErrSessionNotFound
	}
	session := s.session
	return &session, nil
}

func (s *fakeStore) ListUnenrichedMovies(ctx context.Context, sessionID string) ([]models.MovieRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var pending []models.MovieRecord
	for _, id := range s.order {
		m := s.movies[id]
		if !m.EnrichmentApplied && !m.Processed {
			pending = append(pending, *m)
		}
	}
	return pending, nil
}

func (s *fakeStore) ApplyEnrichment(ctx context.Context, sessionID, movieID string, e *models.Enrichment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.applyErr[movieID]; err != nil {
		return err
	}
	m, ok := s.movies[movieID]
	if !ok {
		return database.ErrMovieNotFound
	}
	m.Enrichment = *e
	m.EnrichmentApplied = true
	return nil
}

func (s *fakeStore) RecordProgress(ctx context.Context, sessionID, movieID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.movies[movieID]
	if !ok {
		return false, database.ErrMovieNotFound
	}
	if m.Processed {
		return false, nil
	}
	m.Processed = true
	if s.session.EnrichedItems < s.session.TotalItems {
		s.session.EnrichedItems++
	}
	s.progress = append(s.progress, s.session.EnrichedItems)
	return true, nil
}

func (s *fakeStore) TransitionSession(ctx context.Context, id string, next models.SessionStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.session.Status.CanTransitionTo(next) {
		return database.ErrInvalidTransition
	}
	s.session.Status = next
	s.transited = append(s.transited, next)
	return nil
}

func (s *fakeStore) snapshot() (models.Session, []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session, append([]int(nil), s.progress...)
}

// fakeCatalog scripts lookups by title and tracks concurrency.
type fakeCatalog struct {
	delay    time.Duration
	notFound map[string]bool
	degraded map[string]bool
	panics   map[string]bool

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		notFound: make(map[string]bool),
		degraded: make(map[string]bool),
		panics:   make(map[string]bool),
	}
}

func (c *fakeCatalog) Search(ctx context.Context, title string, year *int) (int, error) {
	return 1, nil
}

func (c *fakeCatalog) FetchDetails(ctx context.Context, id int) (*models.Enrichment, error) {
	return &models.Enrichment{ExternalID: &id}, nil
}

func (c *fakeCatalog) Enrich(ctx context.Context, title string, year *int) (*models.Enrichment, error) {
	c.calls.Add(1)
	current := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		peak := c.maxInFlight.Load()
		if current <= peak || c.maxInFlight.CompareAndSwap(peak, current) {
			break
		}
	}

	if c.delay > 0 {
		time.Sleep(c.delay)
	}

	switch {
	case c.panics[title]:
		panic("catalog exploded")
	case c.degraded[title]:
		return nil, fmt.Errorf("%w: %w", catalog.ErrNotFound, catalog.ErrUnavailable)
	case c.notFound[title]:
		return nil, catalog.ErrNotFound
	}

	id := 42
	return &models.Enrichment{
		ExternalID: &id,
		Genres:     []string{"Drama"},
	}, nil
}

var errStorage = errors.New("storage offline")
