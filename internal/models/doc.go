// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

/*
Package models defines the data structures shared across Cinelog.

Key Components:

  - Session: one upload, its lifecycle status and enrichment progress
  - SessionStatus: the forward-only state machine
    (uploading -> processing -> enriching -> completed, failed as a side exit)
  - MovieRecord: one merged film entry owned by a session
  - Enrichment: catalog metadata attached to a MovieRecord
  - SessionStats: aggregated figures for dashboards

Models carry JSON tags for the HTTP API. Nullable columns are pointers.
*/
package models
