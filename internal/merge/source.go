// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package merge

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SourceKind identifies which export file a row came from.
type SourceKind string

const (
	SourceUnknown SourceKind = ""
	SourceHistory SourceKind = "history"
	SourceRatings SourceKind = "ratings"
	SourceDiary   SourceKind = "diary"
)

// filenamePrefixes maps lower-case filename prefixes to their source kind.
var filenamePrefixes = []struct {
	prefix string
	kind   SourceKind
}{
	{"watched", SourceHistory},
	{"ratings", SourceRatings},
	{"diary", SourceDiary},
	{"reviews", SourceDiary},
}

// Classify maps a filename to its source kind. Directories in the name are
// ignored and matching is case-insensitive. Only .csv files are recognized.
func Classify(filename string) SourceKind {
	base := strings.ToLower(filepath.Base(strings.ReplaceAll(filename, "\\", "/")))
	if !strings.HasSuffix(base, ".csv") {
		return SourceUnknown
	}
	for _, p := range filenamePrefixes {
		if strings.HasPrefix(base, p.prefix) {
			return p.kind
		}
	}
	return SourceUnknown
}

// DefaultPriority returns the source order from lowest to highest priority.
func DefaultPriority() []SourceKind {
	return []SourceKind{SourceHistory, SourceRatings, SourceDiary}
}

// ParsePriority converts configured names (lowest priority first) into
// source kinds. Every kind must appear exactly once.
func ParsePriority(names []string) ([]SourceKind, error) {
	if len(names) == 0 {
		return DefaultPriority(), nil
	}

	seen := make(map[SourceKind]bool, len(names))
	kinds := make([]SourceKind, 0, len(names))
	for _, name := range names {
		kind := SourceKind(strings.ToLower(strings.TrimSpace(name)))
		switch kind {
		case SourceHistory, SourceRatings, SourceDiary:
		default:
			return nil, fmt.Errorf("unknown source kind %q", name)
		}
		if seen[kind] {
			return nil, fmt.Errorf("source kind %q listed twice", name)
		}
		seen[kind] = true
		kinds = append(kinds, kind)
	}
	if len(kinds) != len(DefaultPriority()) {
		return nil, fmt.Errorf("source priority must list history, ratings and diary, got %v", names)
	}
	return kinds, nil
}

// Column names as they appear in export headers, lower-cased.
const (
	colName        = "name"
	colYear        = "year"
	colDate        = "date"
	colRating      = "rating"
	colRewatch     = "rewatch"
	colTags        = "tags"
	colWatchedDate = "watched date"
	colReview      = "review"
)

// KeyColumn is the display name of the mandatory identity column.
const KeyColumn = "Letterboxd URI"

// keyColumnAliases are accepted header names for the identity column.
var keyColumnAliases = []string{"letterboxd uri", "uri", "key"}
