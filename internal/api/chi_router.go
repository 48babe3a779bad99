// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/cinelog/internal/config"
)

// Router owns the handlers and middleware and builds the route table.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil middleware factory uses the defaults.
func NewRouter(handler *Handler, chiMw *ChiMiddleware) *Router {
	if chiMw == nil {
		chiMw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: chiMw}
}

// MiddlewareConfigFromConfig derives the middleware settings from the
// application config.
func MiddlewareConfigFromConfig(cfg *config.Config) *ChiMiddlewareConfig {
	mwCfg := DefaultChiMiddlewareConfig()
	if cfg == nil {
		return mwCfg
	}
	mwCfg.CORSAllowedOrigins = cfg.Security.CORSOrigins
	if cfg.Security.RateLimitReqs > 0 {
		mwCfg.RateLimitRequests = cfg.Security.RateLimitReqs
	}
	if cfg.Security.RateLimitWindow > 0 {
		mwCfg.RateLimitWindow = cfg.Security.RateLimitWindow
	}
	mwCfg.RateLimitDisabled = cfg.Security.RateLimitDisabled
	return mwCfg
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestLogging())
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		NewResponseWriter(w, req).NotFound("Endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		NewResponseWriter(w, req).Error(http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
	})

	// ========================
	// Operational Endpoints
	// ========================
	r.With(APISecurityHeaders()).Get("/health", router.handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	// ========================
	// Session Endpoints
	// ========================
	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(PrometheusMetrics())

		r.With(router.chiMiddleware.RateLimitCustom(RateLimitUpload)).Post("/", router.handler.CreateSession)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", router.handler.GetSession)
			r.Delete("/", router.handler.DeleteSession)
			r.Get("/movies", router.handler.ListMovies)
			r.Get("/movies/{movieID}", router.handler.GetMovie)
			r.Get("/stats", router.handler.GetStats)
			r.Get("/ws", router.handler.StreamProgress)
		})
	})

	return r
}
