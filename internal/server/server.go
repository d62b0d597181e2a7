// Package server exposes the engine over HTTP: a small JSON API for
// processing and invalidating packages, the public content mount serving
// extracted files, a websocket stream of engine events, and a health
// endpoint with cache statistics.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/scormkit/scormkit/internal/config"
	"github.com/scormkit/scormkit/internal/engine"
	"github.com/scormkit/scormkit/internal/logging"
)

// Server wires the engine into an http.Server.
type Server struct {
	engine         *engine.Engine
	httpServer     *http.Server
	mount          string
	workspaceDir   string
	allowedOrigins []string
	logger         logging.Logger
}

// New creates a Server around an already-constructed engine.
func New(cfg *config.Config, eng *engine.Engine, logger logging.Logger) *Server {
	s := &Server{
		engine:         eng,
		mount:          cfg.Server.Mount,
		workspaceDir:   cfg.Workspace.Dir,
		allowedOrigins: cfg.Server.AllowedOrigins,
		logger:         logger.WithComponent("server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/packages", s.handleProcess)
	mux.HandleFunc("GET /api/packages/{courseId}/launch", s.handleItemLaunch)
	mux.HandleFunc("DELETE /api/packages/{courseId}", s.handleInvalidate)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws/events", s.handleEvents)
	mux.HandleFunc("GET "+strings.TrimSuffix(s.mount, "/")+"/{courseId}/{contentPath...}", s.handleContent)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           s.withMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info(ctx, "server listening",
		"addr", s.httpServer.Addr, "mount", s.mount)

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
