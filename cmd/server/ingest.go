// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/cinelog/internal/enrichment"
	"github.com/tomtom215/cinelog/internal/ingest"
	"github.com/tomtom215/cinelog/internal/models"
)

// maxOfflinePasses bounds worker runs for one offline session. Every pass
// counts each pending movie, so one pass normally completes the session.
const maxOfflinePasses = 3

// ingestReport is printed to stdout when an offline ingest finishes.
type ingestReport struct {
	Session    *models.SessionStatusView `json:"session"`
	Enrichment *enrichment.Result        `json:"enrichment,omitempty"`
}

func newIngestCmd(opts *rootOptions) *cobra.Command {
	var skipEnrich bool

	cmd := &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Import local export files and enrich them",
		Long: `ingest merges the given CSV exports into a new session, enriches every
film from the catalog and prints the final session status as JSON.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIngest(ctx, opts, args, !skipEnrich, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&skipEnrich, "skip-enrich", false, "store the merged records without contacting the catalog")
	return cmd
}

func runIngest(ctx context.Context, opts *rootOptions, paths []string, enrich bool, out io.Writer) error {
	a, err := openApp(opts, enrich)
	if err != nil {
		return err
	}
	defer a.Close()

	files, err := ingest.ReadFiles(paths, a.cfg.Ingest.MaxUploadBytes)
	if err != nil {
		return err
	}
	pipeline, err := a.newPipeline(nil)
	if err != nil {
		return err
	}

	session, err := pipeline.Ingest(ctx, files)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	var result *enrichment.Result
	if enrich && session.Status == models.SessionEnriching {
		result, err = enrichOffline(ctx, a.newWorker(), session.ID)
		if err != nil {
			return err
		}
	}

	view, err := a.db.GetSessionStatus(ctx, session.ID)
	if err != nil {
		return err
	}
	return writeReport(out, ingestReport{Session: view, Enrichment: result})
}

// enrichOffline runs the worker until the session completes, summing the
// results of every pass.
func enrichOffline(ctx context.Context, runner enrichment.Runner, sessionID string) (*enrichment.Result, error) {
	total := &enrichment.Result{}
	for pass := 0; pass < maxOfflinePasses; pass++ {
		result, err := runner.Run(ctx, sessionID)
		if err != nil {
			return total, fmt.Errorf("enrichment failed: %w", err)
		}
		total.Processed += result.Processed
		total.Enriched += result.Enriched
		total.NotFound += result.NotFound
		total.Failed += result.Failed
		total.Batches += result.Batches
		if result.Completed {
			total.Completed = true
			return total, nil
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
	return total, nil
}

func writeReport(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
