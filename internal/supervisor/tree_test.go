// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/cinelog/internal/logging"
	"github.com/tomtom215/cinelog/internal/reaper"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestDefaultTreeConfig(t *testing.T) {
	config := DefaultTreeConfig()

	if config.FailureThreshold != 5.0 {
		t.Errorf("expected FailureThreshold 5.0, got %f", config.FailureThreshold)
	}
	if config.FailureDecay != 30.0 {
		t.Errorf("expected FailureDecay 30.0, got %f", config.FailureDecay)
	}
	if config.FailureBackoff != 15*time.Second {
		t.Errorf("expected FailureBackoff 15s, got %v", config.FailureBackoff)
	}
	if config.ShutdownTimeout != 10*time.Second {
		t.Errorf("expected ShutdownTimeout 10s, got %v", config.ShutdownTimeout)
	}
}

func TestSupervisorTreeConstruction(t *testing.T) {
	t.Run("applies default values for zero config", func(t *testing.T) {
		tree, err := NewSupervisorTree(quietLogger(), TreeConfig{})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}
		if tree.Root() == nil {
			t.Fatal("root supervisor should not be nil")
		}
		if tree.config != DefaultTreeConfig() {
			t.Errorf("expected defaults, got %+v", tree.config)
		}
	})

	t.Run("keeps explicit values", func(t *testing.T) {
		tree, err := NewSupervisorTree(quietLogger(), TreeConfig{FailureThreshold: 2, FailureBackoff: time.Second})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}
		if tree.config.FailureThreshold != 2 || tree.config.FailureBackoff != time.Second {
			t.Errorf("explicit values overwritten: %+v", tree.config)
		}
	})

	t.Run("nil logger falls back to default", func(t *testing.T) {
		if _, err := NewSupervisorTree(nil, TreeConfig{}); err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}
	})
}

func TestSupervisorTreeLifecycle(t *testing.T) {
	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureBackoff:  100 * time.Millisecond,
		ShutdownTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("failed to create tree: %v", err)
	}

	dataSvc := newMockService("mock-data")
	processingSvc := newMockService("mock-processing")
	apiSvc := newMockService("mock-api")
	tree.AddDataService(dataSvc)
	tree.AddProcessingService(processingSvc)
	tree.AddAPIService(apiSvc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	if !waitFor(t, time.Second, func() bool {
		return dataSvc.startCount.Load() > 0 && processingSvc.startCount.Load() > 0 && apiSvc.startCount.Load() > 0
	}) {
		t.Fatal("not every layer started its service")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not shut down in time")
	}

	for _, svc := range []*mockService{dataSvc, processingSvc, apiSvc} {
		if svc.stopCount.Load() != svc.startCount.Load() {
			t.Errorf("%s: %d starts but %d stops", svc.name, svc.startCount.Load(), svc.stopCount.Load())
		}
	}
}

func TestSupervisorTreeFailureIsolation(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	failing := newMockService("flaky-enrichment").failTimes(2)
	stable := newMockService("http")
	tree.AddProcessingService(failing)
	tree.AddAPIService(stable)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	if !waitFor(t, 2*time.Second, func() bool { return failing.startCount.Load() >= 3 }) {
		t.Errorf("expected at least 3 starts for failing service, got %d", failing.startCount.Load())
	}
	if got := stable.startCount.Load(); got != 1 {
		t.Errorf("stable service should start exactly once, got %d", got)
	}

	cancel()
	<-errCh
}

func TestRemoveProcessingService(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})
	svc := newMockService("removable")
	token := tree.AddProcessingService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	if !waitFor(t, time.Second, func() bool { return svc.startCount.Load() > 0 }) {
		t.Fatal("service did not start")
	}
	if err := tree.RemoveProcessingService(token); err != nil {
		t.Fatalf("RemoveProcessingService: %v", err)
	}
	if !waitFor(t, time.Second, func() bool { return svc.stopCount.Load() > 0 }) {
		t.Error("removed service was not stopped")
	}

	cancel()
	<-errCh
}

type countingStore struct {
	calls atomic.Int32
}

func (c *countingStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	c.calls.Add(1)
	return 0, nil
}

func TestSupervisorTreeRunsReaper(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})
	store := &countingStore{}
	tree.AddDataService(reaper.New(store, 10*time.Millisecond, logging.Logger()))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	if !waitFor(t, 2*time.Second, func() bool { return store.calls.Load() >= 2 }) {
		t.Errorf("expected the reaper to run repeatedly, got %d runs", store.calls.Load())
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not shut down in time")
	}
}
