// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/cinelog/internal/models"
)

func TestCreateSession(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	session, err := db.CreateSession(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	parsed, err := uuid.Parse(session.ID)
	if err != nil {
		t.Fatalf("session ID %q is not a UUID: %v", session.ID, err)
	}
	if parsed.Version() != 4 {
		t.Errorf("session ID version = %d, want 4", parsed.Version())
	}
	if session.Status != models.SessionUploading {
		t.Errorf("status = %s, want uploading", session.Status)
	}
	if got := session.ExpiresAt.Sub(session.CreatedAt); got != 24*time.Hour {
		t.Errorf("expires_at - created_at = %s, want 24h", got)
	}

	got, err := db.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.ID != session.ID || got.Status != session.Status {
		t.Errorf("GetSession() = %+v, want %+v", got, session)
	}
	if !got.CreatedAt.Equal(session.CreatedAt) || !got.ExpiresAt.Equal(session.ExpiresAt) {
		t.Errorf("timestamps differ: got created %s expires %s, want %s %s",
			got.CreatedAt, got.ExpiresAt, session.CreatedAt, session.ExpiresAt)
	}

	if _, err := db.CreateSession(ctx, 0); err == nil {
		t.Error("CreateSession(0) should fail")
	}
}

func TestGetSession_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetSession(context.Background(), uuid.NewString())
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession() error = %v, want ErrSessionNotFound", err)
	}
}

func TestGetSession_Expired(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return base }

	session, err := db.CreateSession(ctx, time.Hour)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	db.now = func() time.Time { return base.Add(59 * time.Minute) }
	if _, err := db.GetSessionStatus(ctx, session.ID); err != nil {
		t.Fatalf("GetSessionStatus() before expiry error = %v", err)
	}

	db.now = func() time.Time { return base.Add(time.Hour) }
	if _, err := db.GetSessionStatus(ctx, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSessionStatus() at expiry error = %v, want ErrSessionNotFound", err)
	}
	if err := db.TouchSession(ctx, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("TouchSession() after expiry error = %v, want ErrSessionNotFound", err)
	}
}

func TestTransitionSession(t *testing.T) {
	tests := []struct {
		name    string
		path    []models.SessionStatus
		next    models.SessionStatus
		wantErr error
	}{
		{name: "uploading to processing", next: models.SessionProcessing},
		{name: "processing to enriching", path: []models.SessionStatus{models.SessionProcessing}, next: models.SessionEnriching},
		{name: "processing to failed", path: []models.SessionStatus{models.SessionProcessing}, next: models.SessionFailed},
		{name: "enriching to completed", path: []models.SessionStatus{models.SessionProcessing, models.SessionEnriching}, next: models.SessionCompleted},
		{name: "uploading to enriching skips a state", next: models.SessionEnriching, wantErr: ErrInvalidTransition},
		{name: "backward enriching to processing", path: []models.SessionStatus{models.SessionProcessing, models.SessionEnriching}, next: models.SessionProcessing, wantErr: ErrInvalidTransition},
		{name: "processing to completed", path: []models.SessionStatus{models.SessionProcessing}, next: models.SessionCompleted, wantErr: ErrInvalidTransition},
		{name: "completed is terminal", path: []models.SessionStatus{models.SessionProcessing, models.SessionEnriching, models.SessionCompleted}, next: models.SessionFailed, wantErr: ErrInvalidTransition},
		{name: "failed is terminal", path: []models.SessionStatus{models.SessionProcessing, models.SessionFailed}, next: models.SessionEnriching, wantErr: ErrInvalidTransition},
		{name: "nothing enters uploading", next: models.SessionUploading, wantErr: ErrInvalidTransition},
		{name: "unknown status", next: models.SessionStatus("paused"), wantErr: ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			ctx := context.Background()

			session, err := db.CreateSession(ctx, time.Hour)
			if err != nil {
				t.Fatalf("CreateSession() error = %v", err)
			}
			for _, step := range tt.path {
				if err := db.TransitionSession(ctx, session.ID, step, ""); err != nil {
					t.Fatalf("setup transition to %s: %v", step, err)
				}
			}

			err = db.TransitionSession(ctx, session.ID, tt.next, "")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("TransitionSession(%s) error = %v, want %v", tt.next, err, tt.wantErr)
			}

			got, err := db.GetSession(ctx, session.ID)
			if err != nil {
				t.Fatalf("GetSession() error = %v", err)
			}
			want := models.SessionUploading
			if len(tt.path) > 0 {
				want = tt.path[len(tt.path)-1]
			}
			if tt.wantErr == nil {
				want = tt.next
			}
			if got.Status != want {
				t.Errorf("status = %s, want %s", got.Status, want)
			}
		})
	}
}

func TestTransitionSession_ErrorMessage(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	session := createProcessingSession(t, db, nil)
	if err := db.TransitionSession(ctx, session.ID, models.SessionFailed, "failed to store movie records"); err != nil {
		t.Fatalf("TransitionSession(failed) error = %v", err)
	}

	view, err := db.GetSessionStatus(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSessionStatus() error = %v", err)
	}
	if view.Status != models.SessionFailed {
		t.Errorf("status = %s, want failed", view.Status)
	}
	if view.ErrorMessage == nil || *view.ErrorMessage != "failed to store movie records" {
		t.Errorf("error message = %v", view.ErrorMessage)
	}
}

func TestTransitionSession_UnknownSession(t *testing.T) {
	db := setupTestDB(t)

	err := db.TransitionSession(context.Background(), uuid.NewString(), models.SessionProcessing, "")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestListSessionsByStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := createProcessingSession(t, db, testRecords(1))
	second := createProcessingSession(t, db, testRecords(1))
	third := createProcessingSession(t, db, testRecords(1))

	for _, s := range []*models.Session{first, third} {
		if err := db.TransitionSession(ctx, s.ID, models.SessionEnriching, ""); err != nil {
			t.Fatalf("TransitionSession(enriching): %v", err)
		}
	}

	sessions, err := db.ListSessionsByStatus(ctx, models.SessionEnriching)
	if err != nil {
		t.Fatalf("ListSessionsByStatus() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d enriching sessions, want 2", len(sessions))
	}
	ids := map[string]bool{sessions[0].ID: true, sessions[1].ID: true}
	if !ids[first.ID] || !ids[third.ID] || ids[second.ID] {
		t.Errorf("unexpected sessions listed: %v", ids)
	}
}

func TestTouchSession(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return base }
	session, err := db.CreateSession(ctx, time.Hour)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	db.now = func() time.Time { return base.Add(10 * time.Minute) }
	if err := db.TouchSession(ctx, session.ID); err != nil {
		t.Fatalf("TouchSession() error = %v", err)
	}

	got, err := db.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if !got.LastAccessedAt.Equal(base.Add(10 * time.Minute)) {
		t.Errorf("last_accessed_at = %s, want %s", got.LastAccessedAt, base.Add(10*time.Minute))
	}
	if !got.ExpiresAt.Equal(base.Add(time.Hour)) {
		t.Errorf("touch must not extend expiry, expires_at = %s", got.ExpiresAt)
	}
}

func TestDeleteSession_Cascades(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	doomed := createProcessingSession(t, db, testRecords(5))
	kept := createProcessingSession(t, db, testRecords(3))

	if err := db.DeleteSession(ctx, doomed.ID); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}

	if _, err := db.GetSession(ctx, doomed.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession() after delete error = %v, want ErrSessionNotFound", err)
	}

	var orphans int
	if err := db.Conn().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM movie_records WHERE session_id = ?`, doomed.ID).Scan(&orphans); err != nil {
		t.Fatalf("count records: %v", err)
	}
	if orphans != 0 {
		t.Errorf("%d movie records survived session deletion", orphans)
	}

	_, total, err := db.ListMovieRecords(ctx, kept.ID, 10, 0)
	if err != nil {
		t.Fatalf("ListMovieRecords(kept) error = %v", err)
	}
	if total != 3 {
		t.Errorf("other session lost records: total = %d, want 3", total)
	}

	if err := db.DeleteSession(ctx, doomed.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second DeleteSession() error = %v, want ErrSessionNotFound", err)
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return base }

	short, err := db.CreateSession(ctx, time.Hour)
	if err != nil {
		t.Fatalf("CreateSession(short): %v", err)
	}
	if err := db.TransitionSession(ctx, short.ID, models.SessionProcessing, ""); err != nil {
		t.Fatalf("TransitionSession: %v", err)
	}
	if _, err := db.InsertMovieRecords(ctx, short.ID, testRecords(4)); err != nil {
		t.Fatalf("InsertMovieRecords: %v", err)
	}

	long, err := db.CreateSession(ctx, 48*time.Hour)
	if err != nil {
		t.Fatalf("CreateSession(long): %v", err)
	}

	deleted, err := db.DeleteExpiredSessions(ctx, base.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("DeleteExpiredSessions() error = %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted %d sessions before expiry, want 0", deleted)
	}

	deleted, err = db.DeleteExpiredSessions(ctx, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("DeleteExpiredSessions() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	var remaining int
	if err := db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM movie_records`).Scan(&remaining); err != nil {
		t.Fatalf("count records: %v", err)
	}
	if remaining != 0 {
		t.Errorf("%d movie records of the expired session remain", remaining)
	}

	db.now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, err := db.GetSession(ctx, long.ID); err != nil {
		t.Errorf("unexpired session was affected: %v", err)
	}
}
