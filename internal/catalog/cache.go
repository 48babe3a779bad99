// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package catalog

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Cache stores catalog responses by key with a fixed entry TTL.
type Cache interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Close() error
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// NewMemoryCache creates an in-memory cache. A ttl <= 0 never expires entries.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns a copy of the cached value.
func (c *MemoryCache) Get(key string) ([]byte, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !entry.expires.IsZero() && !c.now().Before(entry.expires) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte(nil), entry.value...), true, nil
}

// Set stores a copy of value.
func (c *MemoryCache) Set(key string, value []byte) error {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if c.ttl > 0 {
		entry.expires = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close releases nothing; it exists to satisfy Cache.
func (c *MemoryCache) Close() error {
	return nil
}

// cacheKeyPrefix namespaces catalog entries inside the Badger store
const cacheKeyPrefix = "catalog:"

// BadgerCache is a persistent Cache backed by BadgerDB entry TTLs.
type BadgerCache struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenBadgerCache opens (or creates) a Badger store at dir.
func OpenBadgerCache(dir string, ttl time.Duration) (*BadgerCache, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory %s: %w", dir, err)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return NewBadgerCache(db, ttl), nil
}

// NewBadgerCache wraps an open Badger store.
func NewBadgerCache(db *badger.DB, ttl time.Duration) *BadgerCache {
	return &BadgerCache{db: db, ttl: ttl}
}

// Get returns the cached value. Expired entries are invisible.
func (c *BadgerCache) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cacheKeyPrefix + key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cache entry: %w", err)
	}
	return value, true, nil
}

// Set stores value with the cache TTL.
func (c *BadgerCache) Set(key string, value []byte) error {
	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(cacheKeyPrefix+key), value)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
}

// Close closes the underlying Badger store.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}
