// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package reaper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cinelog/internal/config"
	"github.com/tomtom215/cinelog/internal/database"
	"github.com/tomtom215/cinelog/internal/models"
)

type mockStore struct {
	mu    sync.Mutex
	calls []time.Time
	count int
	err   error
}

func (m *mockStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, now)
	return m.count, m.err
}

func (m *mockStore) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func TestNew_DefaultInterval(t *testing.T) {
	r := New(&mockStore{}, 0, zerolog.Nop())
	if r.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", r.interval, DefaultInterval)
	}
	if r.String() != "session-reaper" {
		t.Errorf("String() = %q", r.String())
	}
}

func TestRunOnce(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		store   *mockStore
		want    int
		wantErr bool
	}{
		{"deletes", &mockStore{count: 3}, 3, false},
		{"nothing expired", &mockStore{}, 0, false},
		{"store error", &mockStore{err: errors.New("locked")}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.store, time.Minute, zerolog.Nop())
			r.now = func() time.Time { return fixed }

			got, err := r.RunOnce(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("RunOnce() = %d, want %d", got, tt.want)
			}
			if !tt.store.calls[0].Equal(fixed) {
				t.Errorf("called with %v, want %v", tt.store.calls[0], fixed)
			}
		})
	}
}

func TestServe_TicksUntilCanceled(t *testing.T) {
	store := &mockStore{err: errors.New("transient")}
	r := New(store, 5*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx) }()

	time.Sleep(40 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	if store.callCount() < 2 {
		t.Errorf("calls = %d, want errors not to stop the loop", store.callCount())
	}
}

func TestRunOnce_Database(t *testing.T) {
	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB", Threads: 2})
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	expired, err := db.CreateSession(ctx, time.Minute)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	live, err := db.CreateSession(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	r := New(db, time.Minute, zerolog.Nop())
	r.now = func() time.Time { return time.Now().Add(time.Hour) }

	count, err := r.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	if _, err := db.GetSession(ctx, live.ID); err != nil {
		t.Errorf("live session: %v", err)
	}
	// Expired sessions read as not found even before reaping, so check the
	// row count through the status listing.
	sessions, err := db.ListSessionsByStatus(ctx, models.SessionUploading)
	if err != nil {
		t.Fatalf("ListSessionsByStatus: %v", err)
	}
	for _, s := range sessions {
		if s.ID == expired.ID {
			t.Error("expired session still present")
		}
	}
}
