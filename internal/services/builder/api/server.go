// Package api hosts the builder HTTP JSON API: rule-definition CRUD plus
// live editing sessions driving the requirement-tree engine.
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/louisbranch/threshold.games/internal/platform/timeouts"
	"github.com/louisbranch/threshold.games/internal/services/builder/session"
	"github.com/louisbranch/threshold.games/internal/services/builder/storage"
	"github.com/louisbranch/threshold.games/internal/telemetry"
)

// Config defines the inputs for the builder API server.
type Config struct {
	HTTPAddr string
}

// Dependencies carries the collaborators the handler needs.
type Dependencies struct {
	Store    storage.Store
	Sessions *session.Manager
	Emitter  *telemetry.Emitter
}

// Server hosts the builder HTTP server.
type Server struct {
	httpAddr   string
	httpServer *http.Server
}

// NewServer builds the builder API server.
func NewServer(config Config, deps Dependencies) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}
	if deps.Sessions == nil {
		deps.Sessions = session.NewManager()
	}

	handler := NewHandler(deps)
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           handler,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}
	return &Server{httpAddr: httpAddr, httpServer: httpServer}, nil
}

// ListenAndServe runs the HTTP server until the context ends.
//
// On cancellation, it performs a bounded shutdown so in-flight requests
// are drained before hard close.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("builder server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("builder api listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
