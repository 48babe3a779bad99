// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/cinelog/internal/database"
	"github.com/tomtom215/cinelog/internal/logging"
	"github.com/tomtom215/cinelog/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 // clients only send control frames
)

// Stream message types.
const (
	StreamMessageProgress = "progress"
	StreamMessageError    = "error"
)

// StreamMessage is one frame of the progress stream.
type StreamMessage struct {
	Type    string                    `json:"type"`
	Data    *models.SessionStatusView `json:"data,omitempty"`
	Message string                    `json:"message,omitempty"`
}

// StreamProgress upgrades to a WebSocket and pushes the session's status view
// whenever it changes. The stream ends with a normal close once the session
// reaches a terminal state.
func (h *Handler) StreamProgress(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := sessionID(rw, r)
	if !ok {
		return
	}

	// Unknown sessions get a plain 404 instead of an upgrade.
	view, err := h.store.GetSessionStatus(r.Context(), id)
	if err != nil {
		respondStoreError(rw, r, err)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		logging.Ctx(r.Context()).Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()

	log := logging.Ctx(r.Context()).With().Str("session_id", id).Logger()

	// The read loop only exists to process control frames and to notice
	// when the client goes away.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		conn.SetReadLimit(maxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug().Err(err).Msg("Progress stream closed unexpectedly")
				}
				return
			}
		}
	}()

	write := func(msg StreamMessage) bool {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return false
		}
		if err := conn.WriteJSON(msg); err != nil {
			log.Debug().Err(err).Msg("Failed to write progress message")
			return false
		}
		return true
	}
	closeStream := func(code int, text string) {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, text))
	}

	if !write(StreamMessage{Type: StreamMessageProgress, Data: view}) {
		return
	}
	if view.Status.IsTerminal() {
		closeStream(websocket.CloseNormalClosure, string(view.Status))
		return
	}

	interval := h.streamInterval
	if interval <= 0 {
		interval = defaultStreamInterval
	}
	poll := time.NewTicker(interval)
	defer poll.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	last := *view
	for {
		select {
		case <-r.Context().Done():
			return
		case <-clientGone:
			return
		case <-ping.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-poll.C:
			current, err := h.store.GetSessionStatus(r.Context(), id)
			if err != nil {
				if errors.Is(err, database.ErrSessionNotFound) {
					write(StreamMessage{Type: StreamMessageError, Message: "Session not found"})
					closeStream(websocket.CloseNormalClosure, "session removed")
					return
				}
				// Transient store errors are retried on the next poll
				log.Warn().Err(err).Msg("Failed to poll session status")
				continue
			}
			if statusChanged(&last, current) {
				if !write(StreamMessage{Type: StreamMessageProgress, Data: current}) {
					return
				}
				last = *current
			}
			if current.Status.IsTerminal() {
				closeStream(websocket.CloseNormalClosure, string(current.Status))
				return
			}
		}
	}
}

func statusChanged(prev, next *models.SessionStatusView) bool {
	if prev.Status != next.Status || prev.EnrichedItems != next.EnrichedItems || prev.TotalItems != next.TotalItems {
		return true
	}
	if (prev.ErrorMessage == nil) != (next.ErrorMessage == nil) {
		return true
	}
	return prev.ErrorMessage != nil && *prev.ErrorMessage != *next.ErrorMessage
}
