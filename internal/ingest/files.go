// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tomtom215/cinelog/internal/merge"
)

// ReadFiles loads local export files for offline ingestion. Each file is
// limited to maxBytes; a non-positive limit disables the check.
func ReadFiles(paths []string, maxBytes int64) ([]merge.File, error) {
	files := make([]merge.File, 0, len(paths))
	for _, path := range paths {
		data, err := readLimited(path, maxBytes)
		if err != nil {
			return nil, err
		}
		files = append(files, merge.File{Name: filepath.Base(path), Data: data})
	}
	return files, nil
}

func readLimited(path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%s: %w", path, ErrFileTooLarge)
	}
	return data, nil
}
