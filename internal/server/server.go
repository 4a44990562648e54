// Package server implements the HTTP transport layer for the streamd daemon.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/freezer333/streaming-worker/internal/hub"
	"github.com/freezer333/streaming-worker/internal/storage"
	"github.com/freezer333/streaming-worker/internal/telemetry"
)

// tracer late-binds through the otel global, so it picks up the provider
// installed by telemetry.SetupTracing and stays a no-op otherwise.
var tracer = telemetry.Tracer("streamd/server")

// ReadyChecker reports whether the system is ready to serve traffic.
type ReadyChecker func(ctx context.Context) error

// Deps holds all dependencies for the HTTP server.
type Deps struct {
	Hub            *hub.Hub
	History        storage.HistoryStore // nil = history endpoints not mounted
	AuthToken      string               // empty = no authentication
	ReadyCheck     ReadyChecker         // nil = always ready (for tests)
	Metrics        *telemetry.Metrics   // nil = no instrumentation
	MetricsHandler http.Handler         // nil = no /metrics endpoint
}

// New creates an http.Handler with all routes and middleware wired.
func New(deps Deps) http.Handler {
	s := &server{deps: deps}

	r := chi.NewRouter()

	// Global middleware. Recovery sits inside logging so a mid-stream
	// panic aborts the connection with the request still logged.
	r.Use(s.requestID)
	r.Use(s.logging)
	r.Use(s.recovery)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}

	// System endpoints (no auth)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// Session API (auth required when a token is configured)
	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/v1/workers", s.handleListWorkers)

		r.Post("/v1/sessions", s.handleCreateSession)
		r.Get("/v1/sessions", s.handleListSessions)
		r.Get("/v1/sessions/{id}", s.handleGetSession)
		r.Delete("/v1/sessions/{id}", s.handleCloseSession)
		r.Post("/v1/sessions/{id}/messages", s.handlePushMessage)
		r.Get("/v1/sessions/{id}/events", s.handleSessionEvents)
		r.Get("/v1/sessions/{id}/ws", s.handleSessionWS)

		if deps.History != nil {
			r.Get("/v1/history", s.handleListHistory)
			r.Get("/v1/history/{id}", s.handleGetHistory)
		}
	})

	return r
}

type server struct {
	deps Deps
}
