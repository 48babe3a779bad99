// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

// Package database is the DuckDB-backed session store for Cinelog.
//
// # Overview
//
// The store persists upload sessions and their merged movie records. It is
// shared by the ingest pipeline, the enrichment worker, the reaper and the
// HTTP API, all of which run concurrently.
//
// # Architecture
//
//   - database.go: lifecycle (open, pool, schema, close)
//   - database_schema.go: table and index creation
//   - migrations.go: versioned, append-only migrations
//   - database_connection.go: per-operation connections, transactions, conflict retry
//   - database_cache.go: per-session write locks
//   - crud_sessions.go: session lifecycle and expiry
//   - crud_movies.go: record insertion, enrichment and progress accounting
//   - crud_stats.go: per-session summary statistics
//
// # Connection Model
//
// No connection is ever held by a caller between operations. Every public
// method acquires its own *sql.Conn from the pool, runs one statement or one
// transaction on it, and returns it before returning. Enrichment goroutines
// can therefore call the store freely without sharing handles.
//
// # Concurrency
//
// Writes that touch a session row (status transitions, the progress counter,
// record insertion) are serialized by a per-session mutex and retried with
// exponential backoff when DuckDB reports a transaction conflict. The
// progress counter is incremented at most once per movie, guarded by the
// movie's processed flag, and is clamped to the session total.
//
// # Cascading Delete
//
// DuckDB does not implement ON DELETE CASCADE, so movie_records.session_id is
// a logical foreign key. DeleteSession and DeleteExpiredSessions remove the
// records and the session row in a single transaction.
//
// # Expiry
//
// A session whose expires_at has passed reads as ErrSessionNotFound even
// before the reaper deletes it.
package database
