// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

// Package blockfrosttest serves a synthetic Blockfrost
// indexer backed by a Backend. It is used by tests and by the
// mock-indexer command.
package blockfrosttest

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
)

const DefaultPathPrefix = "/api/v0"

// Config configures a Server.
type Config struct {
	ListenAddress string
	// ProjectID, when set, must be presented in the
	// project_id header of every API request.
	ProjectID  string
	PathPrefix string
}

// Server is the synthetic indexer.
type Server struct {
	config     Config
	logger     *slog.Logger
	backend    Backend
	httpServer *http.Server
	mu         sync.Mutex
	statsMu    sync.Mutex
	requests   map[string]int
}

// New creates a new synthetic indexer.
func New(
	cfg Config,
	backend Backend,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	logger = logger.With("component", "mock-indexer")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":3000"
	}
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = DefaultPathPrefix
	}
	return &Server{
		config:   cfg,
		logger:   logger,
		backend:  backend,
		requests: make(map[string]int),
	}
}

// Handler returns the request router. It can be mounted on an
// httptest.Server without calling Start.
func (s *Server) Handler() http.Handler {
	p := s.config.PathPrefix
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET "+p+"/health", s.handleHealth)
	mux.HandleFunc("GET "+p+"/blocks/latest", s.handleLatestBlock)
	mux.HandleFunc(
		"GET "+p+"/epochs/latest/parameters",
		s.handleLatestEpochParams,
	)
	mux.HandleFunc(
		"GET "+p+"/addresses/{address}/utxos",
		s.handleAddressUtxos,
	)
	mux.HandleFunc(
		"GET "+p+"/addresses/{address}/utxos/{asset}",
		s.handleAddressUtxos,
	)
	mux.HandleFunc("POST "+p+"/tx/submit", s.handleSubmitTx)
	mux.HandleFunc("POST "+p+"/utils/txs/evaluate", s.handleEvaluateTx)
	mux.HandleFunc("/", s.handleNotFound)
	return s.middleware(mux)
}

func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.statsMu.Lock()
		s.requests[r.URL.Path]++
		s.statsMu.Unlock()
		if s.config.ProjectID != "" && r.URL.Path != "/" &&
			r.Header.Get("project_id") != s.config.ProjectID {
			writeError(
				w,
				http.StatusForbidden,
				"Forbidden",
				"Invalid project token.",
			)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Requests returns how many requests were received for path.
func (s *Server) Requests(path string) int {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.requests[path]
}

// Start starts the HTTP server in a background goroutine.
func (s *Server) Start(
	ctx context.Context,
) error {
	s.mu.Lock()
	if s.httpServer != nil {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	server := &http.Server{
		Addr:              s.config.ListenAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 60 * time.Second,
	}
	s.httpServer = server
	s.mu.Unlock()

	addr, err := s.startServer(server)
	if err != nil {
		s.mu.Lock()
		s.httpServer = nil
		s.mu.Unlock()
		return err
	}

	s.logger.Info(
		"mock indexer listener started on " + addr,
	)

	// Monitor context for cancellation
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		srv := s.httpServer
		s.httpServer = nil
		s.mu.Unlock()

		if srv != nil {
			s.logger.Debug(
				"context cancelled, shutting down mock indexer",
			)
			//nolint:contextcheck
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				30*time.Second,
			)
			defer cancel()
			//nolint:contextcheck
			if err := srv.Shutdown(
				shutdownCtx,
			); err != nil {
				s.logger.Error(
					"failed to shutdown mock indexer "+
						"on context cancellation",
					"error", err,
				)
			}
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(
	ctx context.Context,
) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()

	if srv != nil {
		s.logger.Debug("shutting down mock indexer")
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf(
				"failed to shutdown mock indexer: %w",
				err,
			)
		}
	}
	return nil
}

// startServer binds the listening socket first so port
// conflicts are detected immediately, then serves in a
// background goroutine. It returns the bound address.
func (s *Server) startServer(
	server *http.Server,
) (string, error) {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return "", fmt.Errorf(
			"failed to listen for mock indexer: %w",
			err,
		)
	}
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(
				"mock indexer server error",
				"error", err,
			)
		}
	}()
	return ln.Addr().String(), nil
}
