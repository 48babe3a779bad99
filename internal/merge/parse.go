// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package merge

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tomtom215/cinelog/internal/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// File is one uploaded export file.
type File struct {
	Name string
	Data []byte
}

// Row is the normalized shape shared by all source kinds. Nil fields mean
// the source did not supply a usable value.
type Row struct {
	Key         string
	Title       string
	Year        *int
	Rating      *float64
	WatchedDate *time.Time
	Tags        []string
	Review      *string
	Rewatch     *bool

	// Sources lists the kinds that contributed to a merged row, in fold order.
	Sources []SourceKind
}

// ToMovieRecord converts a merged row into a record owned by sessionID.
func (r *Row) ToMovieRecord(sessionID string) models.MovieRecord {
	rec := models.MovieRecord{
		ID:          models.MovieRecordID(sessionID, r.Key),
		SessionID:   sessionID,
		Key:         r.Key,
		Title:       r.Title,
		Year:        r.Year,
		Rating:      r.Rating,
		WatchedDate: r.WatchedDate,
		Tags:        r.Tags,
		Review:      r.Review,
	}
	if r.Rewatch != nil {
		rec.Rewatch = *r.Rewatch
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	return rec
}

// header maps lower-cased column names to their index.
type header map[string]int

func newHeader(cols []string) header {
	h := make(header, len(cols))
	for i, c := range cols {
		name := strings.ToLower(strings.TrimSpace(c))
		if _, exists := h[name]; !exists {
			h[name] = i
		}
	}
	return h
}

func (h header) keyIndex() (int, bool) {
	for _, alias := range keyColumnAliases {
		if i, ok := h[alias]; ok {
			return i, true
		}
	}
	return 0, false
}

func (h header) get(record []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

// parseFile reads one file of a known kind into rows. Rows with an empty
// key are skipped and counted.
func parseFile(f File, kind SourceKind) ([]Row, int, error) {
	data := bytes.TrimPrefix(f.Data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, 0, &ValidationError{File: f.Name, Err: ErrEmptyFile}
	}
	if !utf8.Valid(data) {
		return nil, 0, &ParseError{File: f.Name, Err: ErrInvalidEncoding}
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	cols, err := r.Read()
	if err != nil {
		return nil, 0, &ParseError{File: f.Name, Line: 1, Err: err}
	}
	if len(cols) == 1 && strings.ContainsAny(cols[0], ";\t|") {
		return nil, 0, &ParseError{File: f.Name, Line: 1, Err: ErrWrongDelimiter}
	}

	h := newHeader(cols)
	keyIdx, ok := h.keyIndex()
	if !ok {
		return nil, 0, &ValidationError{File: f.Name, Column: KeyColumn, Err: ErrMissingColumn}
	}

	var rows []Row
	skipped := 0
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				return nil, 0, &ParseError{File: f.Name, Line: csvErr.Line, Err: csvErr.Err}
			}
			return nil, 0, &ParseError{File: f.Name, Err: err}
		}

		if keyIdx >= len(record) || strings.TrimSpace(record[keyIdx]) == "" {
			skipped++
			continue
		}
		rows = append(rows, normalizeRow(kind, h, record, strings.TrimSpace(record[keyIdx])))
	}

	return rows, skipped, nil
}

// normalizeRow applies the per-kind column semantics.
func normalizeRow(kind SourceKind, h header, record []string, key string) Row {
	row := Row{
		Key:     key,
		Title:   strings.TrimSpace(h.get(record, colName)),
		Year:    parseYear(h.get(record, colYear)),
		Sources: []SourceKind{kind},
	}

	switch kind {
	case SourceHistory:
		row.WatchedDate = parseDate(h.get(record, colDate))
	case SourceRatings:
		// The date column of a ratings export is when the rating was given,
		// not when the film was watched.
		row.Rating = parseRating(h.get(record, colRating))
	case SourceDiary:
		row.WatchedDate = parseDate(h.get(record, colWatchedDate))
		if row.WatchedDate == nil {
			row.WatchedDate = parseDate(h.get(record, colDate))
		}
		row.Rating = parseRating(h.get(record, colRating))
		row.Rewatch = parseBool(h.get(record, colRewatch))
		row.Tags = parseTags(h.get(record, colTags))
		row.Review = parseText(h.get(record, colReview))
	}

	return row
}
