// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package merge

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// MinRating and MaxRating bound the normalized rating scale.
	MinRating = 0.5
	MaxRating = 5.0

	minYear = 1870
	maxYear = 2200
)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// parseDate returns nil for empty or unparseable input.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

// parseYear returns nil for empty, non-numeric or implausible years.
func parseYear(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	y, err := strconv.Atoi(s)
	if err != nil || y < minYear || y > maxYear {
		return nil
	}
	return &y
}

// parseRating accepts numeric ratings and star strings ("★★★½") and rounds
// to the nearest half step. Anything outside [MinRating, MaxRating] is nil.
func parseRating(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var v float64
	if strings.ContainsAny(s, "★½") {
		for _, r := range s {
			switch r {
			case '★':
				v++
			case '½':
				v += 0.5
			default:
				return nil
			}
		}
	} else {
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return nil
		}
		v = parsed
	}

	v = math.Round(v*2) / 2
	if v < MinRating || v > MaxRating {
		return nil
	}
	return &v
}

// parseBool returns nil for empty input so an absent value is inherited
// from lower-priority sources.
func parseBool(s string) *bool {
	var b bool
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1":
		b = true
	case "no", "n", "false", "0":
		b = false
	default:
		return nil
	}
	return &b
}

// parseTags splits a comma separated tag list, trimming blanks and keeping
// the first occurrence of each tag.
func parseTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		tags = append(tags, p)
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

func parseText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
