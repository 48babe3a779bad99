// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/cinelog/internal/models"
)

func TestMemoryCache_TTL(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return base }

	if err := cache.Set("k", []byte("v")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, ok, err := cache.Get("k")
	if err != nil || !ok || string(value) != "v" {
		t.Fatalf("Get() = %q, %v, %v", value, ok, err)
	}

	cache.now = func() time.Time { return base.Add(time.Minute) }
	if _, ok, _ := cache.Get("k"); ok {
		t.Error("entry still visible after TTL")
	}
	if cache.Len() != 0 {
		t.Errorf("expired entry not evicted, len = %d", cache.Len())
	}
}

func TestBadgerCache(t *testing.T) {
	cache, err := OpenBadgerCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("OpenBadgerCache() error = %v", err)
	}
	defer cache.Close()

	if _, ok, err := cache.Get("missing"); ok || err != nil {
		t.Errorf("Get(missing) = %v, %v", ok, err)
	}

	if err := cache.Set("details:1", []byte(`{"external_id":1}`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	value, ok, err := cache.Get("details:1")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if string(value) != `{"external_id":1}` {
		t.Errorf("value = %s", value)
	}
}

func TestCachingClient_Search(t *testing.T) {
	fake := &fakeClient{searchID: 348}
	client := NewCachingClient(fake, NewMemoryCache(time.Hour))
	ctx := context.Background()
	year := 1979

	for i := 0; i < 3; i++ {
		id, err := client.Search(ctx, "Alien", &year)
		if err != nil || id != 348 {
			t.Fatalf("Search() = %d, %v", id, err)
		}
	}
	if searches, _ := fake.calls(); searches != 1 {
		t.Errorf("wrapped searches = %d, want 1", searches)
	}

	// Same title, different year is a different key.
	if _, err := client.Search(ctx, "alien ", nil); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if searches, _ := fake.calls(); searches != 2 {
		t.Errorf("wrapped searches = %d, want 2", searches)
	}
}

func TestCachingClient_CachesMissesNotOutages(t *testing.T) {
	ctx := context.Background()

	miss := &fakeClient{searchErr: ErrNotFound}
	client := NewCachingClient(miss, NewMemoryCache(time.Hour))
	for i := 0; i < 2; i++ {
		if _, err := client.Search(ctx, "Unknown", nil); !errors.Is(err, ErrNotFound) {
			t.Fatalf("error = %v, want ErrNotFound", err)
		}
	}
	if searches, _ := miss.calls(); searches != 1 {
		t.Errorf("miss looked up %d times, want 1", searches)
	}

	outage := &fakeClient{searchErr: degraded("search", errors.New("timeout"))}
	client = NewCachingClient(outage, NewMemoryCache(time.Hour))
	for i := 0; i < 2; i++ {
		if _, err := client.Search(ctx, "Unknown", nil); !IsUnavailable(err) {
			t.Fatalf("error = %v, want unavailable", err)
		}
	}
	if searches, _ := outage.calls(); searches != 2 {
		t.Errorf("outage looked up %d times, want 2", searches)
	}
}

func TestCachingClient_Details(t *testing.T) {
	id := 348
	runtime := 117
	fake := &fakeClient{searchID: 348, details: &models.Enrichment{
		ExternalID: &id, RuntimeMinutes: &runtime, Genres: []string{"Horror"},
	}}
	client := NewCachingClient(fake, NewMemoryCache(time.Hour))

	for i := 0; i < 2; i++ {
		e, err := client.Enrich(context.Background(), "Alien", nil)
		if err != nil {
			t.Fatalf("Enrich() error = %v", err)
		}
		if e.RuntimeMinutes == nil || *e.RuntimeMinutes != 117 || len(e.Genres) != 1 {
			t.Errorf("cached details = %+v", e)
		}
	}
	if searches, details := fake.calls(); searches != 1 || details != 1 {
		t.Errorf("wrapped calls = %d/%d, want 1/1", searches, details)
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := testCatalogConfig("http://127.0.0.1:1")

	client, closer, err := NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}
	if _, ok := client.(*TMDBClient); !ok {
		t.Errorf("plain config built %T, want *TMDBClient", client)
	}
	_ = closer.Close()

	cfg.CircuitBreakerEnabled = true
	cfg.CacheEnabled = true
	cfg.CachePath = t.TempDir()
	cfg.CacheTTL = time.Hour
	client, closer, err = NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}
	defer closer.Close()

	caching, ok := client.(*CachingClient)
	if !ok {
		t.Fatalf("full config built %T, want *CachingClient", client)
	}
	if _, ok := caching.client.(*CircuitBreakerClient); !ok {
		t.Errorf("cache wraps %T, want *CircuitBreakerClient", caching.client)
	}
	if _, ok := caching.cache.(*BadgerCache); !ok {
		t.Errorf("cache is %T, want *BadgerCache", caching.cache)
	}

	cfg.CachePath = ""
	client, memCloser, err := NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}
	defer memCloser.Close()
	if caching, ok := client.(*CachingClient); !ok {
		t.Errorf("memory config built %T, want *CachingClient", client)
	} else if _, ok := caching.cache.(*MemoryCache); !ok {
		t.Errorf("cache is %T, want *MemoryCache", caching.cache)
	}
}
