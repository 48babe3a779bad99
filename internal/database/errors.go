// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package database

import (
	"errors"
	"io"

	"github.com/tomtom215/cinelog/internal/logging"
)

var (
	// ErrSessionNotFound is returned for unknown, deleted or expired sessions.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidTransition is returned when a status update would not move
	// the session forward along the lifecycle.
	ErrInvalidTransition = errors.New("invalid session status transition")

	// ErrMovieNotFound is returned when a movie record does not exist in the session.
	ErrMovieNotFound = errors.New("movie record not found")

	// ErrInvalidRecord is returned for records that cannot be persisted.
	ErrInvalidRecord = errors.New("invalid movie record")
)

// closeWithLog closes a resource and logs any error
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource and explicitly ignores any error.
// Use this in error paths where Close() errors are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
