// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestContextIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if RequestIDFromContext(ctx) != "" || SessionIDFromContext(ctx) != "" {
		t.Fatal("empty context should carry no IDs")
	}

	ctx = ContextWithRequestID(ctx, "req-1")
	ctx = ContextWithSessionID(ctx, "sess-1")

	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("RequestIDFromContext() = %q, want req-1", got)
	}
	if got := SessionIDFromContext(ctx); got != "sess-1" {
		t.Errorf("SessionIDFromContext() = %q, want sess-1", got)
	}
}

func TestGenerateRequestID(t *testing.T) {
	t.Parallel()

	a, b := GenerateRequestID(), GenerateRequestID()
	if a == b || len(a) != 36 {
		t.Errorf("unexpected request IDs %q, %q", a, b)
	}
}

func TestCtx_AddsFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
	ctx = ContextWithRequestID(ctx, "req-9")
	ctx = ContextWithSessionID(ctx, "sess-9")

	Ctx(ctx).Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-9"`) || !strings.Contains(out, `"session_id":"sess-9"`) {
		t.Errorf("missing context fields: %s", out)
	}
}
