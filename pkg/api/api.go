// Package api serves indexed run history over HTTP.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/api/indexer"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/api/runstore"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/config"
)

const shutdownTimeout = 10 * time.Second

// Server exposes the API HTTP server lifecycle.
type Server interface {
	Start(ctx context.Context) error
	Stop() error
}

// Compile-time interface check.
var _ Server = (*server)(nil)

type server struct {
	log         logrus.FieldLogger
	cfg         *config.APIConfig
	historyPath string
	store       runstore.Store
	indexer     indexer.Indexer
	httpServer  *http.Server
	wg          sync.WaitGroup
}

// NewServer creates a new API server over the given history file.
func NewServer(log logrus.FieldLogger, cfg *config.APIConfig, historyPath string) Server {
	return &server{
		log:         log.WithField("component", "api"),
		cfg:         cfg,
		historyPath: historyPath,
	}
}

// Start opens the run store, binds the listener and starts serving.
// The background indexer starts only after the server is listening, so
// the API is reachable while the first pass runs.
func (s *server) Start(ctx context.Context) error {
	s.store = runstore.NewStore(s.log, &s.cfg.Database)
	if err := s.store.Start(ctx); err != nil {
		return fmt.Errorf("starting run store: %w", err)
	}

	router := s.buildRouter()

	s.httpServer = &http.Server{
		Addr:              s.cfg.Server.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Bind the listener synchronously so we fail fast on port conflicts.
	ln, err := net.Listen("tcp", s.cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Server.Listen, err)
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.log.WithField("listen", s.cfg.Server.Listen).
			Info("API server starting")

		if err := s.httpServer.Serve(ln); err != nil &&
			err != http.ErrServerClosed {
			s.log.WithError(err).Error("HTTP server error")
		}
	}()

	if s.cfg.Indexing.Enabled {
		interval, err := time.ParseDuration(s.cfg.Indexing.Interval)
		if err != nil {
			return fmt.Errorf("parsing indexing interval: %w", err)
		}

		s.indexer = indexer.NewIndexer(
			s.log, s.store, s.historyPath, interval, s.cfg.Indexing.Concurrency,
		)

		if err := s.indexer.Start(ctx); err != nil {
			return fmt.Errorf("starting indexer: %w", err)
		}
	}

	return nil
}

// Stop gracefully shuts down the HTTP server, the indexer and the
// store.
func (s *server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(
			context.Background(), shutdownTimeout,
		)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	s.wg.Wait()

	if s.indexer != nil {
		if err := s.indexer.Stop(); err != nil {
			s.log.WithError(err).Warn("Indexer stop error")
		}
	}

	if s.store != nil {
		if err := s.store.Stop(); err != nil {
			return fmt.Errorf("stopping run store: %w", err)
		}
	}

	s.log.Info("API server stopped")

	return nil
}
