// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/cinelog/internal/database"
	"github.com/tomtom215/cinelog/internal/logging"
	"github.com/tomtom215/cinelog/internal/validation"
)

// Pagination defaults used when the API config leaves them unset.
const (
	fallbackPageSize    = 50
	fallbackMaxPageSize = 500
)

// sanitizeLogValue escapes control characters so request values cannot
// forge log lines.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// sessionID returns the {id} path parameter, or writes a 404 and returns
// false when it cannot name a session.
func sessionID(rw *ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if verr := validation.ValidateSessionID(id); verr != nil {
		rw.NotFound("Session not found")
		return "", false
	}
	return id, true
}

// intParam reads an integer query parameter. A missing value yields def;
// a malformed one is an error.
func intParam(r *http.Request, key string, def int) (int, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

// pagination parses and validates limit and offset.
func (h *Handler) pagination(rw *ResponseWriter, r *http.Request) (validation.PageRequest, bool) {
	defaultSize, maxSize := fallbackPageSize, fallbackMaxPageSize
	if h.config != nil {
		if h.config.API.DefaultPageSize > 0 {
			defaultSize = h.config.API.DefaultPageSize
		}
		if h.config.API.MaxPageSize > 0 {
			maxSize = h.config.API.MaxPageSize
		}
	}

	limit, err := intParam(r, "limit", defaultSize)
	if err != nil {
		rw.ValidationError(err.Error(), map[string]string{"field": "limit"})
		return validation.PageRequest{}, false
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		rw.ValidationError(err.Error(), map[string]string{"field": "offset"})
		return validation.PageRequest{}, false
	}

	req := validation.PageRequest{Limit: limit, Offset: offset}
	if verr := validation.ValidatePage(&req, maxSize); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return validation.PageRequest{}, false
	}
	return req, true
}

// respondStoreError maps store errors onto API responses.
func respondStoreError(rw *ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, database.ErrSessionNotFound):
		rw.NotFound("Session not found")
	case errors.Is(err, database.ErrMovieNotFound):
		rw.NotFound("Movie not found")
	case database.IsUnavailable(err):
		logging.Ctx(r.Context()).Error().Err(err).Msg("Database unavailable")
		rw.ServiceUnavailable("Database unavailable, try again later")
	default:
		rw.DatabaseError(err)
	}
}
