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

	"github.com/tomtom215/cinelog/internal/logging"
	"github.com/tomtom215/cinelog/internal/metrics"
	"github.com/tomtom215/cinelog/internal/models"
)

const movieColumns = `id, session_id, movie_key, title, year, rating, watched_date, rewatch,
	tags, review, enrichment_applied, processed, external_id, genres, directors,
	cast_members, runtime_minutes, synopsis, external_rating, poster_url,
	backdrop_url, enriched_at`

func scanMovieRecord(row rowScanner) (*models.MovieRecord, error) {
	var m models.MovieRecord
	var (
		year, externalID, runtime          sql.NullInt64
		rating, externalRating             sql.NullFloat64
		watchedDate, enrichedAt            sql.NullTime
		tags, genres, directors, cast      sql.NullString
		review, synopsis, poster, backdrop sql.NullString
	)
	if err := row.Scan(&m.ID, &m.SessionID, &m.Key, &m.Title, &year, &rating, &watchedDate,
		&m.Rewatch, &tags, &review, &m.EnrichmentApplied, &m.Processed, &externalID,
		&genres, &directors, &cast, &runtime, &synopsis, &externalRating, &poster,
		&backdrop, &enrichedAt); err != nil {
		return nil, err
	}

	m.Year = intPtr(year)
	m.Rating = floatPtr(rating)
	m.WatchedDate = timePtr(watchedDate)
	m.Review = stringPtr(review)
	m.ExternalID = intPtr(externalID)
	m.RuntimeMinutes = intPtr(runtime)
	m.Synopsis = stringPtr(synopsis)
	m.ExternalRating = floatPtr(externalRating)
	m.PosterURL = stringPtr(poster)
	m.BackdropURL = stringPtr(backdrop)
	m.EnrichedAt = timePtr(enrichedAt)

	var err error
	if m.Tags, err = unmarshalList(tags); err != nil {
		return nil, err
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}
	if m.Genres, err = unmarshalList(genres); err != nil {
		return nil, err
	}
	if m.Directors, err = unmarshalList(directors); err != nil {
		return nil, err
	}
	if m.Cast, err = unmarshalList(cast); err != nil {
		return nil, err
	}
	return &m, nil
}

// InsertMovieRecords stores the merged records of a processing session in
// one transaction and fixes the session's total_items to the stored count.
// Record IDs are derived from the session and key; records repeating a key
// already in the batch are ignored.
func (db *DB) InsertMovieRecords(ctx context.Context, sessionID string, records []models.MovieRecord) (int, error) {
	mu := db.acquireSessionLock(sessionID)
	defer db.releaseSessionLock(mu)

	now := db.timestamp()
	var total int
	start := time.Now()
	err := db.retryOnConflict(ctx, "insert_movie_records", func() error {
		return db.withTx(ctx, func(tx *sql.Tx) error {
			var status string
			err := tx.QueryRowContext(ctx, `SELECT status FROM sessions WHERE id = ?`, sessionID).Scan(&status)
			if errors.Is(err, sql.ErrNoRows) {
				return ErrSessionNotFound
			}
			if err != nil {
				return fmt.Errorf("read session status: %w", err)
			}
			if models.SessionStatus(status) != models.SessionProcessing {
				return fmt.Errorf("%w: cannot insert records while %s", ErrInvalidTransition, status)
			}

			stmt, err := tx.PrepareContext(ctx, `
				INSERT INTO movie_records (id, session_id, movie_key, title, year, rating,
					watched_date, rewatch, tags, review, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
			if err != nil {
				return fmt.Errorf("prepare insert: %w", err)
			}
			defer closeQuietly(stmt)

			seen := make(map[string]struct{}, len(records))
			for i := range records {
				rec := &records[i]
				if rec.Key == "" {
					return fmt.Errorf("%w: record %d has an empty key", ErrInvalidRecord, i)
				}
				if _, dup := seen[rec.Key]; dup {
					continue
				}
				seen[rec.Key] = struct{}{}

				tags, err := marshalList(rec.Tags)
				if err != nil {
					return err
				}
				if _, err := stmt.ExecContext(ctx,
					models.MovieRecordID(sessionID, rec.Key), sessionID, rec.Key, rec.Title,
					nullableInt(rec.Year), nullableFloat(rec.Rating), nullableTime(rec.WatchedDate),
					rec.Rewatch, tags, nullableString(rec.Review), now); err != nil {
					return fmt.Errorf("insert record %q: %w", rec.Key, err)
				}
			}

			if err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM movie_records WHERE session_id = ?`, sessionID).Scan(&total); err != nil {
				return fmt.Errorf("count records: %w", err)
			}

			_, err = tx.ExecContext(ctx,
				`UPDATE sessions SET total_items = ?, updated_at = ? WHERE id = ?`,
				total, now, sessionID)
			if err != nil {
				return fmt.Errorf("set session total: %w", err)
			}
			return nil
		})
	})
	metrics.RecordDBQuery("INSERT", "movie_records", time.Since(start), err)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrInvalidRecord) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to insert movie records: %w", err)
	}

	logging.Debug().Str("session_id", sessionID).Int("total", total).Msg("Movie records inserted")
	return total, nil
}

// ListUnenrichedMovies returns the movies of a session that have neither
// been enriched nor counted toward progress.
func (db *DB) ListUnenrichedMovies(ctx context.Context, sessionID string) ([]models.MovieRecord, error) {
	var movies []models.MovieRecord
	start := time.Now()
	err := db.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx,
			`SELECT `+movieColumns+` FROM movie_records
			WHERE session_id = ? AND enrichment_applied = false AND processed = false
			ORDER BY title, movie_key`, sessionID)
		if err != nil {
			return err
		}
		defer closeQuietly(rows)

		for rows.Next() {
			m, err := scanMovieRecord(rows)
			if err != nil {
				return err
			}
			movies = append(movies, *m)
		}
		return rows.Err()
	})
	metrics.RecordDBQuery("SELECT", "movie_records", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list unenriched movies: %w", err)
	}
	return movies, nil
}

// ApplyEnrichment stores catalog metadata on one movie and marks it enriched.
func (db *DB) ApplyEnrichment(ctx context.Context, sessionID, movieID string, e *models.Enrichment) error {
	if e == nil {
		return fmt.Errorf("%w: nil enrichment", ErrInvalidRecord)
	}

	genres, err := marshalList(e.Genres)
	if err != nil {
		return err
	}
	directors, err := marshalList(e.Directors)
	if err != nil {
		return err
	}
	cast, err := marshalList(e.Cast)
	if err != nil {
		return err
	}

	enrichedAt := db.timestamp()
	if e.EnrichedAt != nil {
		enrichedAt = e.EnrichedAt.UTC().Truncate(time.Microsecond)
	}

	var affected int64
	start := time.Now()
	err = db.retryOnConflict(ctx, "apply_enrichment", func() error {
		return db.withConn(ctx, func(conn *sql.Conn) error {
			result, err := conn.ExecContext(ctx, `
				UPDATE movie_records SET
					external_id = ?, genres = ?, directors = ?, cast_members = ?,
					runtime_minutes = ?, synopsis = ?, external_rating = ?,
					poster_url = ?, backdrop_url = ?, enriched_at = ?,
					enrichment_applied = true
				WHERE id = ? AND session_id = ?`,
				nullableInt(e.ExternalID), genres, directors, cast,
				nullableInt(e.RuntimeMinutes), nullableString(e.Synopsis), nullableFloat(e.ExternalRating),
				nullableString(e.PosterURL), nullableString(e.BackdropURL), enrichedAt,
				movieID, sessionID)
			if err != nil {
				return err
			}
			affected, err = result.RowsAffected()
			return err
		})
	})
	metrics.RecordDBQuery("UPDATE", "movie_records", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to apply enrichment: %w", err)
	}
	if affected == 0 {
		return ErrMovieNotFound
	}
	return nil
}

// RecordProgress counts one movie toward the session's enriched_items.
//
// The counter increments at most once per movie: the movie's processed flag
// and the counter are updated in one transaction, and a movie already
// processed is a no-op returning false. The counter never exceeds
// total_items.
func (db *DB) RecordProgress(ctx context.Context, sessionID, movieID string) (bool, error) {
	mu := db.acquireSessionLock(sessionID)
	defer db.releaseSessionLock(mu)

	now := db.timestamp()
	var counted bool
	start := time.Now()
	err := db.retryOnConflict(ctx, "record_progress", func() error {
		counted = false
		return db.withTx(ctx, func(tx *sql.Tx) error {
			result, err := tx.ExecContext(ctx,
				`UPDATE movie_records SET processed = true
				WHERE id = ? AND session_id = ? AND processed = false`,
				movieID, sessionID)
			if err != nil {
				return fmt.Errorf("mark processed: %w", err)
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return err
			}

			if affected == 0 {
				var exists int
				err := tx.QueryRowContext(ctx,
					`SELECT COUNT(*) FROM movie_records WHERE id = ? AND session_id = ?`,
					movieID, sessionID).Scan(&exists)
				if err != nil {
					return fmt.Errorf("check movie: %w", err)
				}
				if exists == 0 {
					return ErrMovieNotFound
				}
				return nil
			}

			if _, err := tx.ExecContext(ctx,
				`UPDATE sessions
				SET enriched_items = LEAST(enriched_items + 1, total_items), updated_at = ?
				WHERE id = ?`, now, sessionID); err != nil {
				return fmt.Errorf("increment progress: %w", err)
			}
			counted = true
			return nil
		})
	})
	metrics.RecordDBQuery("UPDATE", "sessions", time.Since(start), err)
	if errors.Is(err, ErrMovieNotFound) {
		return false, err
	}
	if err != nil {
		return false, fmt.Errorf("failed to record progress: %w", err)
	}
	return counted, nil
}

// ListMovieRecords returns one page of a session's records ordered by title
// then key, plus the total record count.
func (db *DB) ListMovieRecords(ctx context.Context, sessionID string, limit, offset int) ([]models.MovieRecord, int, error) {
	if _, err := db.GetSession(ctx, sessionID); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	movies := []models.MovieRecord{}
	var total int
	start := time.Now()
	err := db.withConn(ctx, func(conn *sql.Conn) error {
		if err := conn.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM movie_records WHERE session_id = ?`, sessionID).Scan(&total); err != nil {
			return err
		}

		rows, err := conn.QueryContext(ctx,
			`SELECT `+movieColumns+` FROM movie_records
			WHERE session_id = ?
			ORDER BY title, movie_key
			LIMIT ? OFFSET ?`, sessionID, limit, offset)
		if err != nil {
			return err
		}
		defer closeQuietly(rows)

		for rows.Next() {
			m, err := scanMovieRecord(rows)
			if err != nil {
				return err
			}
			movies = append(movies, *m)
		}
		return rows.Err()
	})
	metrics.RecordDBQuery("SELECT", "movie_records", time.Since(start), err)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list movie records: %w", err)
	}
	return movies, total, nil
}

// GetMovieRecord returns one record of an unexpired session.
func (db *DB) GetMovieRecord(ctx context.Context, sessionID, movieID string) (*models.MovieRecord, error) {
	if _, err := db.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	var movie *models.MovieRecord
	err := db.withConn(ctx, func(conn *sql.Conn) error {
		m, err := scanMovieRecord(conn.QueryRowContext(ctx,
			`SELECT `+movieColumns+` FROM movie_records WHERE id = ? AND session_id = ?`,
			movieID, sessionID))
		if err != nil {
			return err
		}
		movie = m
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMovieNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get movie record: %w", err)
	}
	return movie, nil
}
