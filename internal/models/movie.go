// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package models

import (
	"crypto/sha256"
	"time"

	"github.com/google/uuid"
)

// MovieRecord is one merged film entry within a session.
//
// Key is the natural key taken from the export (the film URI), never the
// display title, because titles collide across films.
type MovieRecord struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"session_id"`
	Key         string     `json:"key"`
	Title       string     `json:"title"`
	Year        *int       `json:"year,omitempty"`
	Rating      *float64   `json:"rating,omitempty"`
	WatchedDate *time.Time `json:"watched_date,omitempty"`
	Rewatch     bool       `json:"rewatch"`
	Tags        []string   `json:"tags"`
	Review      *string    `json:"review,omitempty"`

	// EnrichmentApplied is set once catalog metadata has been stored.
	EnrichmentApplied bool `json:"enrichment_applied"`

	// Processed is set once the movie has been counted toward session
	// progress, whether or not enrichment succeeded.
	Processed bool `json:"processed"`

	Enrichment
}

// Enrichment holds the catalog metadata attached to a movie.
type Enrichment struct {
	ExternalID     *int       `json:"external_id,omitempty"`
	Genres         []string   `json:"genres,omitempty"`
	Directors      []string   `json:"directors,omitempty"`
	Cast           []string   `json:"cast,omitempty"`
	RuntimeMinutes *int       `json:"runtime_minutes,omitempty"`
	Synopsis       *string    `json:"synopsis,omitempty"`
	ExternalRating *float64   `json:"external_rating,omitempty"`
	PosterURL      *string    `json:"poster_url,omitempty"`
	BackdropURL    *string    `json:"backdrop_url,omitempty"`
	EnrichedAt     *time.Time `json:"enriched_at,omitempty"`
}

// MovieRecordID derives a stable record ID from the session and natural key,
// so re-inserting the same export never produces a second row.
func MovieRecordID(sessionID, key string) string {
	hash := sha256.Sum256([]byte(sessionID + "\x00" + key))
	id, err := uuid.FromBytes(hash[:16])
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// SessionStats summarizes a session's records for dashboards.
type SessionStats struct {
	TotalMovies     int            `json:"total_movies"`
	EnrichedMovies  int            `json:"enriched_movies"`
	RatedMovies     int            `json:"rated_movies"`
	AverageRating   *float64       `json:"average_rating,omitempty"`
	Rewatches       int            `json:"rewatches"`
	Reviews         int            `json:"reviews"`
	TotalRuntime    int            `json:"total_runtime_minutes"`
	RatingHistogram []RatingBucket `json:"rating_histogram"`
	WatchedByYear   []YearCount    `json:"watched_by_year"`
	TopGenres       []NameCount    `json:"top_genres"`
	TopDirectors    []NameCount    `json:"top_directors"`
}

// RatingBucket counts movies with one rating value.
type RatingBucket struct {
	Rating float64 `json:"rating"`
	Count  int     `json:"count"`
}

// YearCount counts movies watched in a calendar year.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// NameCount is a ranked name with its frequency.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
