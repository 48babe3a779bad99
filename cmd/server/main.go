// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package main

import (
	"os"

	"github.com/tomtom215/cinelog/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
