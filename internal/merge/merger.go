// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package merge

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cinelog/internal/logging"
)

// Result is the outcome of a successful merge.
type Result struct {
	// Records holds one merged row per distinct key, in order of first appearance.
	Records []Row

	// RowsBySource counts accepted rows per kind before deduplication.
	RowsBySource map[SourceKind]int

	// DuplicateRows counts rows dropped because an earlier row of the same
	// kind had the same key.
	DuplicateRows int

	// SkippedRows counts rows without a key.
	SkippedRows int
}

// Merger parses and merges export files using a fixed source priority.
type Merger struct {
	priority []SourceKind
	logger   zerolog.Logger
}

// NewMerger creates a merger. priority lists kinds from lowest to highest;
// an empty slice selects DefaultPriority.
func NewMerger(priority []SourceKind) (*Merger, error) {
	if len(priority) == 0 {
		priority = DefaultPriority()
	}
	names := make([]string, len(priority))
	for i, k := range priority {
		names[i] = string(k)
	}
	checked, err := ParsePriority(names)
	if err != nil {
		return nil, fmt.Errorf("invalid source priority: %w", err)
	}

	return &Merger{
		priority: checked,
		logger:   logging.WithComponent("merge"),
	}, nil
}

// Priority returns the configured order, lowest first.
func (m *Merger) Priority() []SourceKind {
	out := make([]SourceKind, len(m.priority))
	copy(out, m.priority)
	return out
}

// Parse classifies and parses a single file.
func (m *Merger) Parse(f File) ([]Row, error) {
	kind := Classify(f.Name)
	if kind == SourceUnknown {
		return nil, &ValidationError{File: f.Name, Err: ErrUnrecognizedFile}
	}
	rows, _, err := parseFile(f, kind)
	return rows, err
}

// Merge parses every file and folds them into one record per key.
// The first invalid file aborts the whole batch.
func (m *Merger) Merge(files []File) (*Result, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	result := &Result{RowsBySource: make(map[SourceKind]int)}
	byKind := make(map[SourceKind][]Row, len(m.priority))
	seen := make(map[SourceKind]map[string]bool, len(m.priority))

	for _, f := range files {
		kind := Classify(f.Name)
		if kind == SourceUnknown {
			return nil, &ValidationError{File: f.Name, Err: ErrUnrecognizedFile}
		}

		rows, skipped, err := parseFile(f, kind)
		if err != nil {
			return nil, err
		}
		result.SkippedRows += skipped

		if seen[kind] == nil {
			seen[kind] = make(map[string]bool)
		}
		for i := range rows {
			if seen[kind][rows[i].Key] {
				result.DuplicateRows++
				continue
			}
			seen[kind][rows[i].Key] = true
			byKind[kind] = append(byKind[kind], rows[i])
			result.RowsBySource[kind]++
		}

		m.logger.Debug().
			Str("file", f.Name).
			Str("kind", string(kind)).
			Int("rows", len(rows)).
			Int("skipped", skipped).
			Msg("Parsed export file")
	}

	merged := make(map[string]*Row)
	var order []string
	for _, kind := range m.priority {
		for _, row := range byKind[kind] {
			if existing, ok := merged[row.Key]; ok {
				existing.overlay(&row)
				continue
			}
			r := row
			merged[r.Key] = &r
			order = append(order, r.Key)
		}
	}

	result.Records = make([]Row, 0, len(order))
	for _, key := range order {
		result.Records = append(result.Records, *merged[key])
	}

	m.logger.Info().
		Int("files", len(files)).
		Int("records", len(result.Records)).
		Int("duplicates", result.DuplicateRows).
		Int("skipped", result.SkippedRows).
		Msg("Merged export files")

	return result, nil
}

// overlay applies the non-empty fields of a higher-priority row.
func (r *Row) overlay(hi *Row) {
	if hi.Title != "" {
		r.Title = hi.Title
	}
	if hi.Year != nil {
		r.Year = hi.Year
	}
	if hi.Rating != nil {
		r.Rating = hi.Rating
	}
	if hi.WatchedDate != nil {
		r.WatchedDate = hi.WatchedDate
	}
	if len(hi.Tags) > 0 {
		r.Tags = hi.Tags
	}
	if hi.Review != nil {
		r.Review = hi.Review
	}
	if hi.Rewatch != nil {
		r.Rewatch = hi.Rewatch
	}
	r.Sources = append(r.Sources, hi.Sources...)
}
