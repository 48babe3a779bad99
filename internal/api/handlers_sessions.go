// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/cinelog/internal/logging"
	"github.com/tomtom215/cinelog/internal/merge"
	"github.com/tomtom215/cinelog/internal/validation"
)

// uploadField is the multipart field carrying export files.
const uploadField = "files"

// multipartMemory is how much of an upload is buffered in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

// CreateSession accepts a multipart upload of export files, merges them and
// starts enrichment.
//
// Responses: 201 with the session status, 400 VALIDATION_ERROR or
// PARSE_ERROR naming the offending file, 413 when the upload is too large.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var maxBytes int64
	maxFiles := 0
	if h.config != nil {
		maxBytes = h.config.Ingest.MaxUploadBytes
		maxFiles = h.config.Ingest.MaxFiles
	}
	if maxBytes > 0 {
		if r.ContentLength > maxBytes {
			rw.PayloadTooLarge(fmt.Sprintf("Upload exceeds the %d byte limit", maxBytes))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			rw.PayloadTooLarge(fmt.Sprintf("Upload exceeds the %d byte limit", tooLarge.Limit))
			return
		}
		rw.BadRequest("Request must be multipart/form-data with a \"files\" field")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	headers := r.MultipartForm.File[uploadField]
	if verr := validation.ValidateUpload(&validation.UploadRequest{Files: len(headers)}, maxFiles); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	files := make([]merge.File, 0, len(headers))
	for _, fh := range headers {
		data, err := readUpload(fh)
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Str("file", sanitizeLogValue(fh.Filename)).Msg("Failed to read uploaded file")
			rw.BadRequest("Could not read uploaded file " + fh.Filename)
			return
		}
		files = append(files, merge.File{Name: fh.Filename, Data: data})
	}

	session, err := h.ingester.Ingest(r.Context(), files)
	if err != nil {
		h.respondIngestError(rw, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/sessions/"+session.ID)
	rw.Created(session.StatusView())
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}

// respondIngestError maps ingest failures. File problems are the client's
// and are reported with the file name; anything else is internal.
func (h *Handler) respondIngestError(rw *ResponseWriter, r *http.Request, err error) {
	var parseErr *merge.ParseError
	var validationErr *merge.ValidationError
	switch {
	case errors.As(err, &parseErr):
		rw.ParseError(parseErr.Error())
	case errors.As(err, &validationErr):
		rw.ValidationError(validationErr.Error(), map[string]string{"file": validationErr.File})
	case errors.Is(err, merge.ErrNoFiles):
		rw.ValidationError("At least one export file is required", nil)
	default:
		respondStoreError(rw, r, err)
	}
}

// GetSession returns the status view of a session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := sessionID(rw, r)
	if !ok {
		return
	}

	view, err := h.store.GetSessionStatus(r.Context(), id)
	if err != nil {
		respondStoreError(rw, r, err)
		return
	}
	rw.Success(view)
}

// ListMovies returns one page of a session's records ordered by title.
func (h *Handler) ListMovies(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := sessionID(rw, r)
	if !ok {
		return
	}
	page, ok := h.pagination(rw, r)
	if !ok {
		return
	}

	movies, total, err := h.store.ListMovieRecords(r.Context(), id, page.Limit, page.Offset)
	if err != nil {
		respondStoreError(rw, r, err)
		return
	}

	if err := h.store.TouchSession(r.Context(), id); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("session_id", id).Msg("Failed to update session access time")
	}

	rw.SuccessWithPagination(movies, &PaginationMeta{
		Total:   total,
		Count:   len(movies),
		Offset:  page.Offset,
		Limit:   page.Limit,
		HasMore: page.Offset+len(movies) < total,
	})
}

// GetMovie returns one record of a session.
func (h *Handler) GetMovie(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := sessionID(rw, r)
	if !ok {
		return
	}

	movie, err := h.store.GetMovieRecord(r.Context(), id, chi.URLParam(r, "movieID"))
	if err != nil {
		respondStoreError(rw, r, err)
		return
	}
	rw.Success(movie)
}

// GetStats returns summary statistics of a session's records.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := sessionID(rw, r)
	if !ok {
		return
	}

	stats, err := h.store.GetSessionStats(r.Context(), id)
	if err != nil {
		respondStoreError(rw, r, err)
		return
	}
	rw.Success(stats)
}

// DeleteSession removes a session and all of its records.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := sessionID(rw, r)
	if !ok {
		return
	}

	if err := h.store.DeleteSession(r.Context(), id); err != nil {
		respondStoreError(rw, r, err)
		return
	}
	logging.Ctx(r.Context()).Info().Str("session_id", id).Msg("Session deleted by client")
	rw.NoContent()
}
