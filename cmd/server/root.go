// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomtom215/cinelog/internal/api"
	"github.com/tomtom215/cinelog/internal/catalog"
	"github.com/tomtom215/cinelog/internal/config"
	"github.com/tomtom215/cinelog/internal/database"
	"github.com/tomtom215/cinelog/internal/enrichment"
	"github.com/tomtom215/cinelog/internal/ingest"
	"github.com/tomtom215/cinelog/internal/logging"
	"github.com/tomtom215/cinelog/internal/merge"
)

var (
	version = "dev"
	commit  = "none"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "cinelog",
		Short: "Film diary import and catalog enrichment",
		Long: `cinelog imports film diary exports, merges them into one record per film,
and enriches each record with metadata from a TMDB-compatible catalog.`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.configPath != "" {
				return os.Setenv(config.ConfigPathEnvVar, opts.configPath)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config.yaml (overrides CONFIG_PATH)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newIngestCmd(opts))
	cmd.AddCommand(newReapCmd(opts))
	return cmd
}

// app holds the components every command builds from the configuration.
type app struct {
	cfg           *config.Config
	db            *database.DB
	catalog       catalog.Client
	catalogCloser io.Closer
}

// openApp loads configuration, initializes logging and opens the database.
// The catalog stack is only built when withCatalog is set.
func openApp(opts *rootOptions, withCatalog bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.Logging.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logging.Init(logging.Config{
		Level:     level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	api.Version = version

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a := &app{cfg: cfg, db: db}

	if withCatalog {
		client, closer, err := catalog.NewFromConfig(&cfg.Catalog)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize catalog client: %w", err)
		}
		a.catalog = client
		a.catalogCloser = closer
	}

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Bool("catalog", withCatalog).
		Msg("Configuration loaded")
	return a, nil
}

// Close releases the catalog cache and closes the database.
func (a *app) Close() {
	if a.catalogCloser != nil {
		if err := a.catalogCloser.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing catalog cache")
		}
	}
	if err := a.db.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing database")
	}
}

func (a *app) newPipeline(notifier ingest.Notifier) (*ingest.Pipeline, error) {
	priority, err := merge.ParsePriority(a.cfg.Ingest.SourcePriority)
	if err != nil {
		return nil, fmt.Errorf("invalid source priority: %w", err)
	}
	merger, err := merge.NewMerger(priority)
	if err != nil {
		return nil, err
	}
	return ingest.NewPipeline(a.db, merger, a.cfg.Session.TTL, notifier), nil
}

func (a *app) newWorker() *enrichment.Worker {
	return enrichment.NewWorker(a.db, a.catalog, a.cfg.Enrichment.BatchSize, logging.Logger())
}
