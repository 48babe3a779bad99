// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package validation

import (
	"fmt"
	"strconv"
)

// PageRequest holds pagination parameters. The tags are hard bounds;
// ValidatePage also applies the configured maximum.
type PageRequest struct {
	Limit  int `query:"limit" validate:"min=1,max=1000"`
	Offset int `query:"offset" validate:"min=0,max=1000000"`
}

// SessionRequest identifies a session from the URL path.
type SessionRequest struct {
	ID string `query:"id" validate:"required,session_id"`
}

// UploadRequest describes a multipart upload before its files are parsed.
type UploadRequest struct {
	Files int `query:"files" validate:"min=1"`
}

// ValidatePage checks pagination against the hard bounds and the
// configured maximum page size.
func ValidatePage(req *PageRequest, maxLimit int) *RequestValidationError {
	if verr := ValidateStruct(req); verr != nil {
		return verr
	}
	if maxLimit > 0 && req.Limit > maxLimit {
		return limitError("limit", req.Limit, maxLimit)
	}
	return nil
}

// ValidateUpload checks the file count against maxFiles.
func ValidateUpload(req *UploadRequest, maxFiles int) *RequestValidationError {
	if verr := ValidateStruct(req); verr != nil {
		return verr
	}
	if maxFiles > 0 && req.Files > maxFiles {
		return limitError("files", req.Files, maxFiles)
	}
	return nil
}

// ValidateSessionID checks a session ID taken from the path.
func ValidateSessionID(id string) *RequestValidationError {
	return ValidateStruct(&SessionRequest{ID: id})
}

func limitError(field string, value, limit int) *RequestValidationError {
	param := strconv.Itoa(limit)
	return &RequestValidationError{errors: []ValidationError{{
		field:   field,
		tag:     "max",
		param:   param,
		value:   value,
		message: fmt.Sprintf(errorMessageWithParam["max"], field, param),
	}}}
}
