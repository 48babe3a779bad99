// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/cinelog/internal/config"
	"github.com/tomtom215/cinelog/internal/logging"
	"github.com/tomtom215/cinelog/internal/merge"
	"github.com/tomtom215/cinelog/internal/models"
)

// Store is the read and delete surface the handlers need.
// *database.DB implements it.
type Store interface {
	Ping(ctx context.Context) error
	GetSessionStatus(ctx context.Context, id string) (*models.SessionStatusView, error)
	TouchSession(ctx context.Context, id string) error
	ListMovieRecords(ctx context.Context, sessionID string, limit, offset int) ([]models.MovieRecord, int, error)
	GetMovieRecord(ctx context.Context, sessionID, movieID string) (*models.MovieRecord, error)
	GetSessionStats(ctx context.Context, sessionID string) (*models.SessionStats, error)
	DeleteSession(ctx context.Context, id string) error
}

// Ingester turns uploaded files into a session. *ingest.Pipeline implements it.
type Ingester interface {
	Ingest(ctx context.Context, files []merge.File) (*models.Session, error)
}

// defaultStreamInterval is how often the progress stream polls the store.
const defaultStreamInterval = time.Second

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	store     Store
	ingester  Ingester
	config    *config.Config
	startTime time.Time

	// streamInterval is replaceable in tests
	streamInterval time.Duration
}

// NewHandler creates the API handlers.
func NewHandler(store Store, ingester Ingester, cfg *config.Config) *Handler {
	return &Handler{
		store:          store,
		ingester:       ingester,
		config:         cfg,
		startTime:      time.Now(),
		streamInterval: defaultStreamInterval,
	}
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin accepts requests without an Origin header (non-browser
// clients) and browser requests from a configured CORS origin.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if h.config == nil {
		return true
	}
	for _, allowed := range h.config.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}
