// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

// Package main is the cinelog binary.
//
// Cinelog imports film diary exports (diary, ratings, watched, reviews,
// watchlist CSVs), merges them into one record per film, and enriches every
// record from a TMDB-compatible catalog in the background.
//
// # Commands
//
//	cinelog serve                  Run the HTTP API, enrichment scheduler and session reaper
//	cinelog ingest diary.csv ...   Import local files and enrich them without the server
//	cinelog reap                   Delete expired sessions once
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (TMDB_API_KEY, HTTP_PORT, DUCKDB_PATH, ...)
//   - Config file (--config, CONFIG_PATH, or ./config.yaml)
//   - Built-in defaults
//
// # Signal Handling
//
// serve shuts down on SIGINT and SIGTERM: the HTTP server drains in-flight
// requests, the enrichment scheduler finishes its current batch, and the
// database is checkpointed and closed.
package main
