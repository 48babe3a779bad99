// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/cinelog/internal/logging"
	"github.com/tomtom215/cinelog/internal/metrics"
	"github.com/tomtom215/cinelog/internal/models"
)

const sessionColumns = `id, status, total_items, enriched_items, error_message,
	created_at, updated_at, expires_at, last_accessed_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var s models.Session
	var status string
	var errMsg sql.NullString
	if err := row.Scan(&s.ID, &status, &s.TotalItems, &s.EnrichedItems, &errMsg,
		&s.CreatedAt, &s.UpdatedAt, &s.ExpiresAt, &s.LastAccessedAt); err != nil {
		return nil, err
	}
	s.Status = models.SessionStatus(status)
	s.ErrorMessage = stringPtr(errMsg)
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	s.ExpiresAt = s.ExpiresAt.UTC()
	s.LastAccessedAt = s.LastAccessedAt.UTC()
	return &s, nil
}

// CreateSession inserts a new session in the uploading state that expires
// ttl after creation. The ID is a random UUIDv4.
func (db *DB) CreateSession(ctx context.Context, ttl time.Duration) (*models.Session, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive, got %s", ttl)
	}

	now := db.timestamp()
	session := &models.Session{
		ID:             uuid.NewString(),
		Status:         models.SessionUploading,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(ttl),
		LastAccessedAt: now,
	}

	start := time.Now()
	err := db.withConn(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO sessions (id, status, total_items, enriched_items, error_message,
				created_at, updated_at, expires_at, last_accessed_at)
			VALUES (?, ?, 0, 0, NULL, ?, ?, ?, ?)`,
			session.ID, string(session.Status), session.CreatedAt, session.UpdatedAt,
			session.ExpiresAt, session.LastAccessedAt)
		return err
	})
	metrics.RecordDBQuery("INSERT", "sessions", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	metrics.RecordSessionTransition(string(session.Status))
	logging.Debug().Str("session_id", session.ID).Time("expires_at", session.ExpiresAt).Msg("Session created")
	return session, nil
}

// GetSession returns the session with the given ID.
// Unknown and expired sessions return ErrSessionNotFound.
func (db *DB) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var session *models.Session
	start := time.Now()
	err := db.withConn(ctx, func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx,
			`SELECT `+sessionColumns+` FROM sessions WHERE id = ? AND expires_at > ?`,
			id, db.timestamp())
		s, err := scanSession(row)
		if err != nil {
			return err
		}
		session = s
		return nil
	})
	metrics.RecordDBQuery("SELECT", "sessions", time.Since(start), ignoreNoRows(err))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// GetSessionStatus returns the polling view of a session.
func (db *DB) GetSessionStatus(ctx context.Context, id string) (*models.SessionStatusView, error) {
	session, err := db.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return session.StatusView(), nil
}

// TransitionSession moves a session to next. The update only applies when the
// current status is one of next's predecessors, so a status never moves
// backward and terminal sessions never change. errMsg is stored when non-empty.
func (db *DB) TransitionSession(ctx context.Context, id string, next models.SessionStatus, errMsg string) error {
	if !next.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}
	from := next.Predecessors()
	if len(from) == 0 {
		return fmt.Errorf("%w: nothing transitions to %s", ErrInvalidTransition, next)
	}

	mu := db.acquireSessionLock(id)
	defer db.releaseSessionLock(mu)

	args := make([]any, 0, 5+len(from))
	args = append(args, string(next), errMsg, errMsg, db.timestamp(), id)
	for _, status := range from {
		args = append(args, string(status))
	}

	query := `UPDATE sessions
		SET status = ?,
			error_message = CASE WHEN ? = '' THEN error_message ELSE ? END,
			updated_at = ?
		WHERE id = ? AND status IN (` + placeholders(len(from)) + `)`

	var affected int64
	start := time.Now()
	err := db.retryOnConflict(ctx, "transition_session", func() error {
		return db.withConn(ctx, func(conn *sql.Conn) error {
			result, err := conn.ExecContext(ctx, query, args...)
			if err != nil {
				return err
			}
			affected, err = result.RowsAffected()
			return err
		})
	})
	metrics.RecordDBQuery("UPDATE", "sessions", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to transition session: %w", err)
	}

	if affected == 0 {
		current, err := db.currentStatus(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
	}

	metrics.RecordSessionTransition(string(next))
	logging.Debug().Str("session_id", id).Str("status", string(next)).Msg("Session transitioned")
	return nil
}

// currentStatus reads the raw status, ignoring expiry.
func (db *DB) currentStatus(ctx context.Context, id string) (models.SessionStatus, error) {
	var status string
	err := db.withConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, `SELECT status FROM sessions WHERE id = ?`, id).Scan(&status)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session status: %w", err)
	}
	return models.SessionStatus(status), nil
}

// TouchSession records a read access to the session.
func (db *DB) TouchSession(ctx context.Context, id string) error {
	now := db.timestamp()
	var affected int64
	err := db.retryOnConflict(ctx, "touch_session", func() error {
		return db.withConn(ctx, func(conn *sql.Conn) error {
			result, err := conn.ExecContext(ctx,
				`UPDATE sessions SET last_accessed_at = ? WHERE id = ? AND expires_at > ?`,
				now, id, now)
			if err != nil {
				return err
			}
			affected, err = result.RowsAffected()
			return err
		})
	})
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListSessionsByStatus returns unexpired sessions in the given status,
// oldest first.
func (db *DB) ListSessionsByStatus(ctx context.Context, status models.SessionStatus) ([]models.Session, error) {
	var sessions []models.Session
	start := time.Now()
	err := db.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx,
			`SELECT `+sessionColumns+` FROM sessions
			WHERE status = ? AND expires_at > ?
			ORDER BY created_at, id`,
			string(status), db.timestamp())
		if err != nil {
			return err
		}
		defer closeQuietly(rows)

		for rows.Next() {
			s, err := scanSession(rows)
			if err != nil {
				return err
			}
			sessions = append(sessions, *s)
		}
		return rows.Err()
	})
	metrics.RecordDBQuery("SELECT", "sessions", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// DeleteSession removes a session and all of its movie records in one
// transaction. Expired sessions can still be deleted.
func (db *DB) DeleteSession(ctx context.Context, id string) error {
	mu := db.acquireSessionLock(id)
	defer db.releaseSessionLock(mu)

	var affected int64
	start := time.Now()
	err := db.retryOnConflict(ctx, "delete_session", func() error {
		return db.withTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `DELETE FROM movie_records WHERE session_id = ?`, id); err != nil {
				return fmt.Errorf("delete movie records: %w", err)
			}
			result, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
			if err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
			affected, err = result.RowsAffected()
			return err
		})
	})
	metrics.RecordDBQuery("DELETE", "sessions", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}

	db.forgetSessionLock(id)
	logging.Debug().Str("session_id", id).Msg("Session deleted")
	return nil
}

// DeleteExpiredSessions removes every session whose expiry is at or before
// now, together with its movie records, and returns how many sessions were
// deleted.
func (db *DB) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.UTC().Truncate(time.Microsecond)

	var ids []string
	start := time.Now()
	err := db.retryOnConflict(ctx, "delete_expired_sessions", func() error {
		ids = ids[:0]
		return db.withTx(ctx, func(tx *sql.Tx) error {
			rows, err := tx.QueryContext(ctx, `SELECT id FROM sessions WHERE expires_at <= ?`, cutoff)
			if err != nil {
				return fmt.Errorf("select expired sessions: %w", err)
			}
			for rows.Next() {
				var id string
				if err := rows.Scan(&id); err != nil {
					closeQuietly(rows)
					return err
				}
				ids = append(ids, id)
			}
			closeQuietly(rows)
			if err := rows.Err(); err != nil {
				return err
			}
			if len(ids) == 0 {
				return nil
			}

			if _, err := tx.ExecContext(ctx,
				`DELETE FROM movie_records WHERE session_id IN (SELECT id FROM sessions WHERE expires_at <= ?)`,
				cutoff); err != nil {
				return fmt.Errorf("delete expired movie records: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, cutoff); err != nil {
				return fmt.Errorf("delete expired sessions: %w", err)
			}
			return nil
		})
	})
	metrics.RecordDBQuery("DELETE", "sessions", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	for _, id := range ids {
		db.forgetSessionLock(id)
	}
	return len(ids), nil
}

// ignoreNoRows hides sql.ErrNoRows from query error metrics.
func ignoreNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}
