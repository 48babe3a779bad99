// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package database

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/tomtom215/cinelog/internal/metrics"
	"github.com/tomtom215/cinelog/internal/models"
)

// topNamesLimit caps the genre and director rankings
const topNamesLimit = 10

// GetSessionStats summarizes the records of an unexpired session.
// Genre and director rankings only consider enriched records.
func (db *DB) GetSessionStats(ctx context.Context, sessionID string) (*models.SessionStats, error) {
	if _, err := db.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	stats := &models.SessionStats{
		RatingHistogram: []models.RatingBucket{},
		WatchedByYear:   []models.YearCount{},
		TopGenres:       []models.NameCount{},
		TopDirectors:    []models.NameCount{},
	}

	start := time.Now()
	err := db.withConn(ctx, func(conn *sql.Conn) error {
		if err := db.querySummary(ctx, conn, sessionID, stats); err != nil {
			return fmt.Errorf("summary: %w", err)
		}
		if err := db.queryRatingHistogram(ctx, conn, sessionID, stats); err != nil {
			return fmt.Errorf("rating histogram: %w", err)
		}
		if err := db.queryWatchedByYear(ctx, conn, sessionID, stats); err != nil {
			return fmt.Errorf("watched by year: %w", err)
		}
		if err := db.queryTopNames(ctx, conn, sessionID, stats); err != nil {
			return fmt.Errorf("top names: %w", err)
		}
		return nil
	})
	metrics.RecordDBQuery("SELECT", "movie_records", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to get session stats: %w", err)
	}
	return stats, nil
}

func (db *DB) querySummary(ctx context.Context, conn *sql.Conn, sessionID string, stats *models.SessionStats) error {
	var avg sql.NullFloat64
	err := conn.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE enrichment_applied),
			COUNT(rating),
			AVG(rating),
			COUNT(*) FILTER (WHERE rewatch),
			COUNT(review),
			CAST(COALESCE(SUM(runtime_minutes), 0) AS BIGINT)
		FROM movie_records
		WHERE session_id = ?`, sessionID).Scan(
		&stats.TotalMovies, &stats.EnrichedMovies, &stats.RatedMovies, &avg,
		&stats.Rewatches, &stats.Reviews, &stats.TotalRuntime)
	if err != nil {
		return err
	}
	if avg.Valid {
		rounded := math.Round(avg.Float64*100) / 100
		stats.AverageRating = &rounded
	}
	return nil
}

func (db *DB) queryRatingHistogram(ctx context.Context, conn *sql.Conn, sessionID string, stats *models.SessionStats) error {
	rows, err := conn.QueryContext(ctx, `
		SELECT rating, COUNT(*)
		FROM movie_records
		WHERE session_id = ? AND rating IS NOT NULL
		GROUP BY rating
		ORDER BY rating`, sessionID)
	if err != nil {
		return err
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var b models.RatingBucket
		if err := rows.Scan(&b.Rating, &b.Count); err != nil {
			return err
		}
		stats.RatingHistogram = append(stats.RatingHistogram, b)
	}
	return rows.Err()
}

func (db *DB) queryWatchedByYear(ctx context.Context, conn *sql.Conn, sessionID string, stats *models.SessionStats) error {
	rows, err := conn.QueryContext(ctx, `
		SELECT CAST(year(watched_date) AS INTEGER) AS watched_year, COUNT(*)
		FROM movie_records
		WHERE session_id = ? AND watched_date IS NOT NULL
		GROUP BY watched_year
		ORDER BY watched_year`, sessionID)
	if err != nil {
		return err
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var y models.YearCount
		if err := rows.Scan(&y.Year, &y.Count); err != nil {
			return err
		}
		stats.WatchedByYear = append(stats.WatchedByYear, y)
	}
	return rows.Err()
}

// queryTopNames ranks genres and directors. The list columns are JSON text,
// so they are decoded and counted here rather than in SQL.
func (db *DB) queryTopNames(ctx context.Context, conn *sql.Conn, sessionID string, stats *models.SessionStats) error {
	rows, err := conn.QueryContext(ctx, `
		SELECT genres, directors
		FROM movie_records
		WHERE session_id = ? AND enrichment_applied = true`, sessionID)
	if err != nil {
		return err
	}
	defer closeQuietly(rows)

	genreCounts := make(map[string]int)
	directorCounts := make(map[string]int)
	for rows.Next() {
		var genresText, directorsText sql.NullString
		if err := rows.Scan(&genresText, &directorsText); err != nil {
			return err
		}
		genres, err := unmarshalList(genresText)
		if err != nil {
			return err
		}
		directors, err := unmarshalList(directorsText)
		if err != nil {
			return err
		}
		for _, g := range genres {
			genreCounts[g]++
		}
		for _, d := range directors {
			directorCounts[d]++
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	stats.TopGenres = rankNames(genreCounts, topNamesLimit)
	stats.TopDirectors = rankNames(directorCounts, topNamesLimit)
	return nil
}

// rankNames orders names by count descending, then name ascending.
func rankNames(counts map[string]int, limit int) []models.NameCount {
	ranked := make([]models.NameCount, 0, len(counts))
	for name, count := range counts {
		ranked = append(ranked, models.NameCount{Name: name, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Name < ranked[j].Name
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
