// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package api

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/cinelog/internal/config"
	"github.com/tomtom215/cinelog/internal/database"
	"github.com/tomtom215/cinelog/internal/merge"
	"github.com/tomtom215/cinelog/internal/models"
)

const (
	testSessionID = "3f1c2b7e-8d4a-4c6b-9e2f-1a2b3c4d5e6f"
	otherSession  = "7a9d0c1e-2b3f-4a5c-8d6e-0f1a2b3c4d5e"
)

// fakeStore is an in-memory Store. When script holds views for a session,
// each GetSessionStatus call consumes the next one and the last one sticks.
type fakeStore struct {
	mu       sync.Mutex
	pingErr  error
	statusFn func() error
	views    map[string]*models.SessionStatusView
	script   map[string][]models.SessionStatusView
	movies   map[string][]models.MovieRecord
	touched  map[string]int
	deleted  []string
	polls    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		views:   make(map[string]*models.SessionStatusView),
		script:  make(map[string][]models.SessionStatusView),
		movies:  make(map[string][]models.MovieRecord),
		touched: make(map[string]int),
	}
}

func (f *fakeStore) addSession(id string, status models.SessionStatus, movies ...models.MovieRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views[id] = &models.SessionStatusView{
		ID:         id,
		Status:     status,
		TotalItems: len(movies),
		ExpiresAt:  time.Now().Add(time.Hour),
	}
	f.movies[id] = movies
}

func (f *fakeStore) Ping(ctx context.Context) error {
	return f.pingErr
}

func (f *fakeStore) GetSessionStatus(ctx context.Context, id string) (*models.SessionStatusView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.statusFn != nil {
		if err := f.statusFn(); err != nil {
			return nil, err
		}
	}
	if steps := f.script[id]; len(steps) > 0 {
		view := steps[0]
		if len(steps) > 1 {
			f.script[id] = steps[1:]
		}
		return &view, nil
	}
	view, ok := f.views[id]
	if !ok {
		return nil, database.ErrSessionNotFound
	}
	cp := *view
	return &cp, nil
}

func (f *fakeStore) TouchSession(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.views[id]; !ok {
		return database.ErrSessionNotFound
	}
	f.touched[id]++
	return nil
}

func (f *fakeStore) ListMovieRecords(ctx context.Context, sessionID string, limit, offset int) ([]models.MovieRecord, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.views[sessionID]; !ok {
		return nil, 0, database.ErrSessionNotFound
	}
	all := f.movies[sessionID]
	if offset >= len(all) {
		return []models.MovieRecord{}, len(all), nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}

func (f *fakeStore) GetMovieRecord(ctx context.Context, sessionID, movieID string) (*models.MovieRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.views[sessionID]; !ok {
		return nil, database.ErrSessionNotFound
	}
	for i := range f.movies[sessionID] {
		if f.movies[sessionID][i].ID == movieID {
			m := f.movies[sessionID][i]
			return &m, nil
		}
	}
	return nil, database.ErrMovieNotFound
}

func (f *fakeStore) GetSessionStats(ctx context.Context, sessionID string) (*models.SessionStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.views[sessionID]; !ok {
		return nil, database.ErrSessionNotFound
	}
	return &models.SessionStats{TotalMovies: len(f.movies[sessionID])}, nil
}

func (f *fakeStore) DeleteSession(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.views[id]; !ok {
		return database.ErrSessionNotFound
	}
	delete(f.views, id)
	delete(f.movies, id)
	f.deleted = append(f.deleted, id)
	return nil
}

// fakeIngester records the files it was given.
type fakeIngester struct {
	mu      sync.Mutex
	err     error
	session *models.Session
	files   []merge.File
}

func (f *fakeIngester) Ingest(ctx context.Context, files []merge.File) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files = files
	if f.err != nil {
		return nil, f.err
	}
	if f.session != nil {
		return f.session, nil
	}
	return &models.Session{
		ID:         testSessionID,
		Status:     models.SessionEnriching,
		TotalItems: len(files),
		ExpiresAt:  time.Now().Add(time.Hour),
	}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Ingest: config.IngestConfig{MaxUploadBytes: 1 << 20, MaxFiles: 3},
		API:    config.APIConfig{DefaultPageSize: 2, MaxPageSize: 5},
		Security: config.SecurityConfig{
			RateLimitDisabled: true,
			CORSOrigins:       []string{"https://app.example.com"},
		},
	}
}

// newTestRouter returns the full route table over the given fakes.
func newTestRouter(t *testing.T, store *fakeStore, ingester *fakeIngester, cfg *config.Config) (http.Handler, *Handler) {
	t.Helper()
	handler := NewHandler(store, ingester, cfg)
	handler.streamInterval = 10 * time.Millisecond
	router := NewRouter(handler, NewChiMiddleware(MiddlewareConfigFromConfig(cfg)))
	return router.SetupChi(), handler
}

func movie(id, title string) models.MovieRecord {
	return models.MovieRecord{ID: id, SessionID: testSessionID, Key: "https://boxd.it/" + id, Title: title, Tags: []string{}}
}
