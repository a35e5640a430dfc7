// Package api exposes the world over a JSON HTTP API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"evenflow/internal/affinity"
	"evenflow/internal/engine"
	"evenflow/internal/world"
)

type Server struct {
	engine  *engine.Engine
	world   *world.World
	router  chi.Router
	mcp     http.Handler
	version string
	started time.Time
}

type Option func(*Server)

// WithMCP mounts h at /mcp.
func WithMCP(h http.Handler) Option {
	return func(s *Server) { s.mcp = h }
}

func New(eng *engine.Engine, version string, opts ...Option) *Server {
	s := &Server{
		engine:  eng,
		world:   eng.World,
		version: version,
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(traceRequests)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/locations", s.handleListLocations)
		r.Route("/locations/{locationID}", func(r chi.Router) {
			r.Get("/", s.handleLocationState)
			r.Get("/affinity", s.handleAffinity)
			r.Post("/predict", s.handlePredict)
			r.Post("/events", s.handleLogEvent)
			r.Get("/events", s.handleListEvents)
			r.Get("/history", s.handleHistory)
			r.Get("/valuation", s.handleValuation)
		})

		r.Get("/traces", s.handleQueryTraces)
		r.Get("/affordances", s.handleRegistry)
		r.Put("/affordances/{affordanceType}", s.handleSetAffordance)
		r.Get("/export", s.handleExport)
		r.Get("/config", s.handleConfig)
	})

	if s.mcp != nil {
		r.Mount("/mcp", s.mcp)
	}

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   s.version,
		"uptime":    time.Since(s.started).Seconds(),
		"locations": len(s.world.ListLocations()),
		"store":     s.engine.Store != nil,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeErr maps domain errors onto status codes.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, affinity.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, affinity.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrNoStore):
		writeError(w, http.StatusNotImplemented, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
