// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/cinelog/internal/api"
	"github.com/tomtom215/cinelog/internal/enrichment"
	"github.com/tomtom215/cinelog/internal/logging"
	"github.com/tomtom215/cinelog/internal/reaper"
	"github.com/tomtom215/cinelog/internal/supervisor"
	"github.com/tomtom215/cinelog/internal/supervisor/services"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with background enrichment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	a, err := openApp(opts, true)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg := a.cfg

	logging.Info().Str("version", version).Msg("Starting Cinelog with supervisor tree")

	scheduler := enrichment.NewScheduler(a.db, a.newWorker(), logging.Logger(), enrichment.Config{
		Interval:   cfg.Enrichment.Interval,
		RunTimeout: cfg.Enrichment.RunTimeout,
		Enabled:    cfg.Enrichment.Enabled,
	})

	pipeline, err := a.newPipeline(scheduler)
	if err != nil {
		return err
	}

	handler := api.NewHandler(a.db, pipeline, cfg)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.MiddlewareConfigFromConfig(cfg)))
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	treeConfig := supervisor.DefaultTreeConfig()
	treeConfig.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), treeConfig)
	if err != nil {
		return fmt.Errorf("failed to create supervisor tree: %w", err)
	}

	tree.AddDataService(reaper.New(a.db, cfg.Session.ReapInterval, logging.Logger()))
	tree.AddProcessingService(services.NewEnrichmentSchedulerService(scheduler))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	logging.Info().
		Str("addr", server.Addr).
		Bool("enrichment", cfg.Enrichment.Enabled).
		Dur("session_ttl", cfg.Session.TTL).
		Msg("Supervisor tree starting")

	err = tree.Serve(ctx)
	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within the shutdown timeout")
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree stopped: %w", err)
	}

	logging.Info().Msg("Cinelog stopped")
	return nil
}
