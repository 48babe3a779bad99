// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

/*
Package api provides the HTTP REST API layer for Cinelog.

Clients upload film diary exports, poll or stream the progress of catalog
enrichment, and page through the merged records of a session.

Endpoints:

  - GET    /health                               Liveness and database connectivity
  - GET    /metrics                              Prometheus metrics
  - POST   /api/v1/sessions                      Multipart upload ("files"), 201 with status
  - GET    /api/v1/sessions/{id}                 Session status and progress
  - DELETE /api/v1/sessions/{id}                 Remove a session and its records
  - GET    /api/v1/sessions/{id}/movies          Paginated records (limit, offset)
  - GET    /api/v1/sessions/{id}/movies/{movie}  One record
  - GET    /api/v1/sessions/{id}/stats           Summary statistics
  - GET    /api/v1/sessions/{id}/ws              WebSocket progress stream

Every JSON response uses the APIResponse envelope. Errors carry a stable
machine-readable code (VALIDATION_ERROR, PARSE_ERROR, NOT_FOUND, ...) and a
short message that never includes internal details.

Usage Example:

	handler := api.NewHandler(db, pipeline, cfg)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.MiddlewareConfigFromConfig(cfg)))
	srv := &http.Server{Addr: cfg.Server.Addr(), Handler: router.SetupChi()}

Unknown and malformed session IDs are both answered with 404 so that the
API does not reveal which identifiers exist.
*/
package api
