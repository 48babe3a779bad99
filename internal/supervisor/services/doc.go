// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

// Package services adapts long-running components to suture.Service.
//
// Components that already block in Serve(ctx), such as the session reaper,
// are added to the tree directly. The wrappers here cover the other two
// lifecycle shapes: http.Server's ListenAndServe/Shutdown pair and the
// enrichment scheduler's Start/Stop pair.
package services
