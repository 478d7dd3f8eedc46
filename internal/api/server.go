// Package api serves the read-only transfer query API. It shares the
// persistence store with the ingestion loop but never mutates it.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/slotscan/solana-indexer/internal/types"
	"github.com/slotscan/solana-indexer/pkg/data/clickhouse/transfers"
	"github.com/slotscan/solana-indexer/pkg/metrics"
)

var (
	ErrInvalidLogger = errors.New("invalid logger: must not be nil")
	ErrInvalidStore  = errors.New("invalid transfer store: must not be nil")
)

const defaultQueryTimeout = 10 * time.Second

// Store is the read side of the transfer repository.
type Store interface {
	Query(ctx context.Context, filter transfers.Filter) ([]types.TransferRecord, error)
}

// Server serves the transfer query API over HTTP.
type Server struct {
	sugar        *zap.SugaredLogger
	store        Store
	metrics      *metrics.Metrics // nil if metrics disabled
	queryTimeout time.Duration
	httpServer   *http.Server
}

// Option configures the Server.
type Option func(*Server)

// WithMetrics enables metrics collection for query requests.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithQueryTimeout bounds the store query time per request.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.queryTimeout = d
		}
	}
}

// NewServer creates the query API server listening on host:port.
func NewServer(sugar *zap.SugaredLogger, store Store, host string, port int, opts ...Option) (*Server, error) {
	if sugar == nil {
		return nil, ErrInvalidLogger
	}
	if store == nil {
		return nil, ErrInvalidStore
	}

	s := &Server{
		sugar:        sugar,
		store:        store,
		queryTimeout: defaultQueryTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	router := mux.NewRouter()
	router.HandleFunc("/transactions", s.handleTransactions).Methods(http.MethodGet)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(host, strconv.Itoa(port)),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Addr returns the address the server is configured to listen on.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start begins serving requests. This is non-blocking.
// Returns a channel that receives an error if the server fails.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("query api server: %w", err)
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully stops the server, waiting for active requests to
// complete or until the context is cancelled.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
