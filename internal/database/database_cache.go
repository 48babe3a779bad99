// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package database

import (
	"sync"
)

// acquireSessionLock acquires the write mutex for one session row.
func (db *DB) acquireSessionLock(sessionID string) *sync.Mutex {
	muInterface, _ := db.sessionLocks.LoadOrStore(sessionID, &sync.Mutex{})
	mu, ok := muInterface.(*sync.Mutex)
	if !ok {
		mu = &sync.Mutex{}
		db.sessionLocks.Store(sessionID, mu)
	}
	mu.Lock()
	return mu
}

// releaseSessionLock releases the per-session mutex lock
func (db *DB) releaseSessionLock(mu *sync.Mutex) {
	mu.Unlock()
}

// forgetSessionLock drops the lock entry of a deleted session.
func (db *DB) forgetSessionLock(sessionID string) {
	db.sessionLocks.Delete(sessionID)
}
