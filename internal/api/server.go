// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api exposes the invocation router over a loopback HTTP bridge.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/settingsd/internal/api/middleware"
)

// DefaultMaxBodyBytes caps the size of an invocation payload.
const DefaultMaxBodyBytes = 1 << 20

// Invoker dispatches named commands. *invoke.Router satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, name string, args json.RawMessage) (any, error)
	Commands() []string
}

// Config controls the HTTP bridge.
type Config struct {
	AllowedOrigins  []string
	Token           string
	RateLimit       int           // invoke requests per window per client; 0 disables
	RateLimitWindow time.Duration // defaults to one minute
	MaxBodyBytes    int64
	EnableLogging   bool
	EnableMetrics   bool
	Readiness       http.Handler         // served at /readyz when set
	TracerProvider  trace.TracerProvider // traces /invoke when set
}

type server struct {
	inv     Invoker
	maxBody int64
}

// NewHandler builds the bridge's router.
func NewHandler(inv Invoker, cfg Config) http.Handler {
	s := &server{inv: inv, maxBody: cfg.MaxBodyBytes}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}

	r := middleware.NewRouter(middleware.StackConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		EnableMetrics:  cfg.EnableMetrics,
		EnableLogging:  cfg.EnableLogging,
		Token:          cfg.Token,
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/commands", s.handleCommands)
	r.Handle("/metrics", promhttp.Handler())
	if cfg.Readiness != nil {
		r.Method(http.MethodGet, "/readyz", cfg.Readiness)
	}

	r.Group(func(r chi.Router) {
		if cfg.TracerProvider != nil {
			r.Use(middleware.Tracing(cfg.TracerProvider))
		}
		if cfg.RateLimit > 0 {
			window := cfg.RateLimitWindow
			if window <= 0 {
				window = time.Minute
			}
			r.Use(middleware.RateLimit(middleware.RateLimitConfig{
				RequestLimit: cfg.RateLimit,
				WindowSize:   window,
			}))
		}
		r.Post("/invoke/{command}", s.handleInvoke)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})

	return r
}
