// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/blinklabs-io/scholarhub/host"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const DefaultListenAddress = ":8080"

type Config struct {
	ListenAddress string
	// ReuseAddress sets SO_REUSEADDR on the listener socket
	ReuseAddress bool
}

// Server is the REST API in front of the scholarship DAO and build registry
type Server struct {
	config     Config
	logger     *slog.Logger
	backend    Backend
	tokens     *host.TokenVerifier
	httpServer *http.Server
	listener   net.Listener
	mu         sync.Mutex
}

// New creates a new API server. A nil token verifier disables bearer
// authentication, which leaves every request without a caller identity
func New(
	cfg Config,
	backend Backend,
	tokens *host.TokenVerifier,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	logger = logger.With("component", "api")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	return &Server{
		config:  cfg,
		logger:  logger,
		backend: backend,
		tokens:  tokens,
	}
}

// Handler returns the routed handler without starting a listener
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc(
		"POST /api/v0/applications",
		s.handleSubmitApplication,
	)
	mux.HandleFunc(
		"GET /api/v0/applications",
		s.handleListApplications,
	)
	mux.HandleFunc(
		"GET /api/v0/applications/{id}",
		s.handleGetApplication,
	)
	mux.HandleFunc(
		"POST /api/v0/applications/{id}/votes",
		s.handleVote,
	)
	mux.HandleFunc(
		"POST /api/v0/applications/{id}/distribute",
		s.handleDistribute,
	)
	mux.HandleFunc("GET /api/v0/stats", s.handleStats)
	mux.HandleFunc(
		"PUT /api/v0/builds/{id}",
		s.handleRegisterBuild,
	)
	mux.HandleFunc(
		"POST /api/v0/builds/{id}/verify",
		s.handleVerifyBuild,
	)
	mux.HandleFunc(
		"GET /api/v0/builds/{id}",
		s.handleGetBuild,
	)
	mux.HandleFunc(
		"GET /api/v0/builds/{id}/verified",
		s.handleBuildVerified,
	)
	mux.HandleFunc("GET /api/v0/events", s.handleEvents)
	return s.authenticate(mux)
}

// Start starts the HTTP server in a background goroutine
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.httpServer != nil {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	server := &http.Server{
		Addr: s.config.ListenAddress,
		// Use h2c so we can serve HTTP/2 without TLS
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 60 * time.Second,
	}
	s.httpServer = server
	s.mu.Unlock()

	if err := s.startServer(ctx, server); err != nil {
		s.mu.Lock()
		s.httpServer = nil
		s.mu.Unlock()
		return err
	}

	s.logger.Info(
		"API listener started on " + s.Addr(),
	)

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		srv := s.httpServer
		s.httpServer = nil
		s.mu.Unlock()
		if srv == nil {
			return
		}
		s.logger.Debug("context cancelled, shutting down API server")
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			30*time.Second,
		)
		defer cancel()
		//nolint:contextcheck
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(
				"failed to shutdown API server on context cancellation",
				"error", err,
			)
		}
	}()

	return nil
}

// Addr returns the bound listener address once started, or the configured
// listen address otherwise
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.ListenAddress
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()
	if srv != nil {
		s.logger.Debug("shutting down API server")
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown API server: %w", err)
		}
	}
	return nil
}

// startServer binds the listening socket first so port conflicts are
// reported to the caller, then serves in a background goroutine
func (s *Server) startServer(ctx context.Context, server *http.Server) error {
	listenConfig := net.ListenConfig{}
	if s.config.ReuseAddress {
		listenConfig.Control = socketControl
	}
	ln, err := listenConfig.Listen(ctx, "tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen for API server: %w", err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}
