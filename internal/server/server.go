// Package server implements the HTTP transport layer for the localcache demo service.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eugener/localcache/internal/cache"
	"github.com/eugener/localcache/internal/storage/sqlite"
	"github.com/eugener/localcache/internal/telemetry"
	"github.com/eugener/localcache/internal/worker"
)

// ReadyChecker reports whether the system is ready to serve traffic.
type ReadyChecker func(ctx context.Context) error

// Deps holds all dependencies for the HTTP server.
type Deps struct {
	Cache        *cache.Handler
	Pool         *worker.Pool
	Origin       *sqlite.Store       // nil = /v1/items endpoints not mounted
	ReadyCheck   ReadyChecker        // nil = always ready (for tests)
	Metrics      *telemetry.Metrics  // nil = no metrics recording
	PromGatherer prometheus.Gatherer // nil = no /metrics endpoint
}

// New creates an http.Handler with all routes and middleware wired.
func New(deps Deps) http.Handler {
	s := &server{deps: deps}

	r := chi.NewRouter()

	// Global middleware
	r.Use(s.recovery)
	r.Use(s.requestID)
	r.Use(s.logging)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}

	// System endpoints
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if deps.PromGatherer != nil {
		r.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(deps.PromGatherer, promhttp.HandlerOpts{}))
	}

	// Cache API -- every operation is routed to the worker owning the key,
	// so one key is always served by the same per-worker store.
	r.Post("/v1/cache", s.handleCachePut)
	r.Get("/v1/cache/{key}", s.handleCacheGet)
	r.Get("/v1/config", s.handleConfig)

	// Read-through item API backed by the SQLite origin.
	if deps.Origin != nil {
		r.Get("/v1/items/{key}", s.handleItemGet)
		r.Put("/v1/items/{key}", s.handleItemPut)
	}

	return r
}

type server struct {
	deps Deps
}
