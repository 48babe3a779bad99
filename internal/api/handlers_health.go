// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package api

import (
	"context"
	"net/http"
	"time"
)

// Version is reported by the health endpoint. Overridden at build time
// with -ldflags "-X github.com/tomtom215/cinelog/internal/api.Version=...".
var Version = "dev"

// healthPingTimeout bounds the database check so a wedged store cannot
// hang health probes.
const healthPingTimeout = 2 * time.Second

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status            string  `json:"status"`
	Version           string  `json:"version"`
	DatabaseConnected bool    `json:"database_connected"`
	Uptime            float64 `json:"uptime"`
}

// Health reports process liveness and database connectivity.
// A disconnected database answers 503 so orchestrators stop routing traffic.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()
	dbConnected := h.store != nil && h.store.Ping(ctx) == nil

	health := HealthStatus{
		Status:            "healthy",
		Version:           Version,
		DatabaseConnected: dbConnected,
		Uptime:            time.Since(h.startTime).Seconds(),
	}
	if !dbConnected {
		health.Status = "degraded"
		rw.writeJSON(http.StatusServiceUnavailable, APIResponse{Success: false, Data: health, Meta: rw.meta()})
		return
	}
	rw.Success(health)
}
