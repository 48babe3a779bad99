// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

/*
database_connection.go - Connection Management

Every store operation acquires its own *sql.Conn from the pool and releases
it before returning, so no caller ever shares a connection with another
goroutine.

Connection Pool Configuration:
  - MaxOpenConns: Based on CPU count for parallelism
  - MaxIdleConns: 2 for efficient connection reuse
  - ConnMaxLifetime: 1 hour to prevent stale connections
  - ConnMaxIdleTime: 5 minutes for idle connection cleanup

Conflict Handling:
DuckDB uses optimistic concurrency and aborts a transaction that writes a row
another open transaction has written. retryOnConflict re-runs such operations
with 1ms, 2ms, 4ms backoff.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/tomtom215/cinelog/internal/logging"
	"github.com/tomtom215/cinelog/internal/metrics"
)

// maxConflictRetries bounds retries after a DuckDB transaction conflict
const maxConflictRetries = 3

// configureConnectionPool sets connection pool parameters
func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// withConn runs fn on a dedicated connection that is returned to the pool afterwards.
func (db *DB) withConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := db.conn.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer closeWithLog(conn, "database connection")

	return fn(conn)
}

// withTx runs fn inside a transaction on a dedicated connection.
// The transaction is committed when fn returns nil and rolled back otherwise.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return db.withConn(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		if err := fn(tx); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Debug().Err(rbErr).Msg("Rollback after failed transaction")
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}

// retryOnConflict runs fn, retrying on DuckDB transaction conflicts and
// INTERNAL errors with exponential backoff.
func (db *DB) retryOnConflict(ctx context.Context, operation string, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		if !isTransactionConflict(err) && !isInternalError(err) {
			return err
		}

		if attempt < maxConflictRetries-1 {
			metrics.DBConflictRetries.WithLabelValues(operation).Inc()
			backoff := time.Millisecond * time.Duration(1<<uint(attempt)) // 1ms, 2ms, 4ms
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", operation, maxConflictRetries, err)
}

// isTransactionConflict checks if an error is a DuckDB transaction conflict
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Transaction conflict") ||
		strings.Contains(errStr, "Conflict on update") ||
		strings.Contains(errStr, "cannot update a table that has been altered")
}

// isInternalError checks if an error is a DuckDB INTERNAL error
func isInternalError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "INTERNAL Error")
}

// isConnectionError checks if an error indicates database connection loss
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	return strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "connection reset") ||
		strings.Contains(errMsg, "broken pipe") ||
		strings.Contains(errMsg, "bad connection") ||
		strings.Contains(errMsg, "database is closed")
}

// IsUnavailable reports whether err means the database itself cannot be
// reached, as opposed to a failed query.
func IsUnavailable(err error) bool {
	return isConnectionError(err)
}
