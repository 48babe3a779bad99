// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

/*
Package supervisor provides process supervision for the Cinelog server using
suture v4.

# Overview

	RootSupervisor ("cinelog")
	├── DataSupervisor ("data-layer")
	│   └── session-reaper
	├── ProcessingSupervisor ("processing-layer")
	│   └── EnrichmentSchedulerService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Each layer counts failures independently. A panic in the enrichment loop is
restarted with backoff while the HTTP server keeps serving status reads.

Supervisor events (start, stop, failure, backoff) are logged through the
sutureslog adapter, bridged onto zerolog by logging.NewSlogLogger.

# Usage Example

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddDataService(reaper.New(db, cfg.Session.ReapInterval, logging.Logger()))
	tree.AddProcessingService(services.NewEnrichmentSchedulerService(scheduler))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return tree.Serve(ctx)
*/
package supervisor
