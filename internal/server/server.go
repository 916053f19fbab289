// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/anamnesis-dev/aurora/internal/agent"
	"github.com/anamnesis-dev/aurora/internal/observability"
	"github.com/anamnesis-dev/aurora/internal/provider"
	"github.com/anamnesis-dev/aurora/internal/store"
	auroraerr "github.com/anamnesis-dev/aurora/pkg/errors"
)

// Config holds HTTP server configuration.
type Config struct {
	ListenAddr   string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Deps are the collaborators behind the HTTP surface.
type Deps struct {
	Loop      *agent.Loop
	Providers *provider.Registry
	Sessions  store.SessionStore
	Metrics   *observability.Metrics
	Logger    *slog.Logger
}

// Server wraps a chi router with a huma API and the HTTP listener.
type Server struct {
	router chi.Router
	api    huma.API
	cfg    Config
	deps   Deps
}

// New creates a Server with chi router, huma API, health and metrics
// endpoints, and CORS for the SPA origin.
func New(cfg Config, deps Deps) (*Server, error) {
	if cfg.ListenAddr == "" {
		return nil, auroraerr.New(auroraerr.CodeServerStartFailure, "listen address is required")
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// Tool loops can take several model round trips.
		cfg.WriteTimeout = 120 * time.Second
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware(cfg.CORSOrigins))

	// Huma API with OpenAPI spec
	humaConfig := huma.DefaultConfig("Aurora 3D Agent", "0.1.0")
	humaConfig.Info.Description = "Conversational medical-education agent for the Anamnesis platform"
	api := humachi.New(r, humaConfig)

	srv := &Server{
		router: r,
		api:    api,
		cfg:    cfg,
		deps:   deps,
	}

	srv.registerRoutes()

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	return srv, nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server and blocks until the context is cancelled,
// then performs graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return auroraerr.Wrapf(err, auroraerr.CodeServerStartFailure, "listening on %s", s.cfg.ListenAddr)
	}

	s.deps.Logger.Info("http server listening", "addr", ln.Addr().String())

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return auroraerr.Wrap(err, auroraerr.CodeServerInternalFailure, "shutting down")
	}

	return <-errCh
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
