// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package models

import (
	"time"
)

// SessionStatus is the lifecycle state of an upload session.
type SessionStatus string

const (
	SessionUploading  SessionStatus = "uploading"
	SessionProcessing SessionStatus = "processing"
	SessionEnriching  SessionStatus = "enriching"
	SessionCompleted  SessionStatus = "completed"
	SessionFailed     SessionStatus = "failed"
)

// sessionTransitions lists the allowed successors of each status.
// Terminal states have no entry.
var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionUploading:  {SessionProcessing},
	SessionProcessing: {SessionEnriching, SessionFailed},
	SessionEnriching:  {SessionCompleted, SessionFailed},
}

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionUploading, SessionProcessing, SessionEnriching, SessionCompleted, SessionFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionFailed
}

// CanTransitionTo reports whether moving from s to next is a forward transition.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	for _, allowed := range sessionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Predecessors returns every status that may transition into s.
// The store uses it to guard updates so a status never moves backward.
func (s SessionStatus) Predecessors() []SessionStatus {
	var from []SessionStatus
	for _, candidate := range []SessionStatus{SessionUploading, SessionProcessing, SessionEnriching} {
		if candidate.CanTransitionTo(s) {
			from = append(from, candidate)
		}
	}
	return from
}

// Session is one user upload and the unit of enrichment work.
//
// EnrichedItems never decreases and never exceeds TotalItems. TotalItems is
// fixed while the session is processing and never changes afterwards.
type Session struct {
	ID             string        `json:"id"`
	Status         SessionStatus `json:"status"`
	TotalItems     int           `json:"total_items"`
	EnrichedItems  int           `json:"enriched_items"`
	ErrorMessage   *string       `json:"error_message,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	ExpiresAt      time.Time     `json:"expires_at"`
	LastAccessedAt time.Time     `json:"last_accessed_at"`
}

// IsExpired reports whether the session has passed its expiry at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// ProgressPercent returns enrichment progress in the range [0, 100].
func (s *Session) ProgressPercent() float64 {
	if s.TotalItems <= 0 {
		if s.Status == SessionCompleted {
			return 100
		}
		return 0
	}
	pct := float64(s.EnrichedItems) / float64(s.TotalItems) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// StatusView returns the polling representation of the session.
func (s *Session) StatusView() *SessionStatusView {
	return &SessionStatusView{
		ID:              s.ID,
		Status:          s.Status,
		TotalItems:      s.TotalItems,
		EnrichedItems:   s.EnrichedItems,
		ErrorMessage:    s.ErrorMessage,
		ProgressPercent: s.ProgressPercent(),
		ExpiresAt:       s.ExpiresAt,
	}
}

// SessionStatusView is the cheap read model returned to polling clients.
type SessionStatusView struct {
	ID              string        `json:"id"`
	Status          SessionStatus `json:"status"`
	TotalItems      int           `json:"total_items"`
	EnrichedItems   int           `json:"enriched_items"`
	ErrorMessage    *string       `json:"error_message"`
	ProgressPercent float64       `json:"progress_percent"`
	ExpiresAt       time.Time     `json:"expires_at"`
}
