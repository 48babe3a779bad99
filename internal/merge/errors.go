// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package merge

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFiles is returned when Merge is called without any input.
	ErrNoFiles = errors.New("no files provided")

	// ErrUnrecognizedFile marks a filename that maps to no source kind.
	ErrUnrecognizedFile = errors.New("unrecognized file")

	// ErrMissingColumn marks a file without its mandatory key column.
	ErrMissingColumn = errors.New("missing required column")

	// ErrEmptyFile marks a file with no header row.
	ErrEmptyFile = errors.New("file is empty")

	// ErrWrongDelimiter marks a file that is not comma separated.
	ErrWrongDelimiter = errors.New("file is not comma separated")

	// ErrInvalidEncoding marks a file that is not valid UTF-8.
	ErrInvalidEncoding = errors.New("file is not valid UTF-8")
)

// ValidationError reports a file that is well formed but unusable.
type ValidationError struct {
	File   string
	Column string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s: %v %q", e.File, e.Err, e.Column)
	}
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ParseError reports a file that could not be read as CSV.
type ParseError struct {
	File string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %v", e.File, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsValidationError reports whether err was caused by the uploaded files
// rather than by the system. Such errors are returned to the uploader and
// no session is created for them.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoFiles) {
		return true
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	var pe *ParseError
	return errors.As(err, &pe)
}
