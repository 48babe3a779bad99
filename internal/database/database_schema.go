// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// getTableCreationQueries returns the CREATE TABLE statements.
//
// movie_records.session_id references sessions.id without a declared
// FOREIGN KEY: DuckDB rejects deleting a referenced row even inside the
// transaction that deletes the referencing rows first, and has no
// ON DELETE CASCADE. The store deletes records and sessions together.
func getTableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			total_items INTEGER NOT NULL DEFAULT 0,
			enriched_items INTEGER NOT NULL DEFAULT 0,
			error_message TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			last_accessed_at TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS movie_records (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			movie_key TEXT NOT NULL,
			title TEXT NOT NULL,
			year INTEGER,
			rating DOUBLE,
			watched_date DATE,
			rewatch BOOLEAN NOT NULL DEFAULT false,
			tags TEXT NOT NULL DEFAULT '[]',
			review TEXT,
			enrichment_applied BOOLEAN NOT NULL DEFAULT false,
			processed BOOLEAN NOT NULL DEFAULT false,
			external_id INTEGER,
			genres TEXT,
			directors TEXT,
			cast_members TEXT,
			runtime_minutes INTEGER,
			synopsis TEXT,
			external_rating DOUBLE,
			poster_url TEXT,
			backdrop_url TEXT,
			enriched_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL
		);`,
	}
}

// getIndexQueries returns the CREATE INDEX statements.
// Columns that UPDATEs touch (status, counters, enrichment fields) stay
// unindexed; DuckDB rewrites such updates as delete plus insert.
func getIndexQueries() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);`,
		`CREATE INDEX IF NOT EXISTS idx_movie_records_session ON movie_records(session_id);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_movie_records_session_key ON movie_records(session_id, movie_key);`,
	}
}

// createTables creates the core database tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range getTableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

// createIndexes creates the lookup indexes
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range getIndexQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}
	return nil
}
