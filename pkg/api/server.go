// Package api exposes the ledger over HTTP.
//
// Owner-scoped routes trust an upstream authenticator to forward the verified
// owner id in a header; this package only parses it.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ledger-query/pkg/balance"
	"ledger-query/pkg/logging"
	"ledger-query/pkg/payment"
	"ledger-query/pkg/transactions"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports backend reachability for /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the handlers' collaborators.
type Services struct {
	Transactions *transactions.Service
	Payments     *payment.Service
	Balance      *balance.Calculator
	Health       Pinger

	// Registry is served on /metrics; nil disables the endpoint and request metrics.
	Registry *prometheus.Registry
	Logger   *logging.Logger
}

// Server serves the ledger API.
type Server struct {
	services Services
	router   *mux.Router
	server   *http.Server
	config   ServerConfig
	logger   *logging.Logger
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	// Address to listen on (e.g., ":8080")
	Address string

	// OwnerHeader carries the verified owner id
	OwnerHeader string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// HealthTimeout bounds the store ping behind /health
	HealthTimeout time.Duration

	// MetricsNamespace prefixes the HTTP request metrics
	MetricsNamespace string
}

// DefaultServerConfig returns a default configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Address:          ":8080",
		OwnerHeader:      "X-Owner-ID",
		ReadTimeout:      15 * time.Second,
		WriteTimeout:     15 * time.Second,
		IdleTimeout:      60 * time.Second,
		HealthTimeout:    2 * time.Second,
		MetricsNamespace: "ledger",
	}
}

// NewServer wires the routes. It fails only if the request metrics cannot be
// registered.
func NewServer(services Services, config ServerConfig) (*Server, error) {
	if config.OwnerHeader == "" {
		config.OwnerHeader = "X-Owner-ID"
	}
	if config.HealthTimeout <= 0 {
		config.HealthTimeout = 2 * time.Second
	}
	logger := services.Logger
	if logger == nil {
		logger = logging.L()
	}

	s := &Server{
		services: services,
		config:   config,
		logger:   logger.Named("api"),
	}

	r := mux.NewRouter()

	if services.Registry != nil {
		httpMetrics := NewHTTPMetrics(config.MetricsNamespace)
		if err := httpMetrics.Register(services.Registry); err != nil {
			return nil, err
		}
		r.Use(httpMetrics.Middleware())
		r.Handle("/metrics", promhttp.HandlerFor(services.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/payments", s.handleCreatePayment).Methods(http.MethodPost)
	api.HandleFunc("/payments/{id}", s.handleGetPayment).Methods(http.MethodGet)

	owned := api.NewRoute().Subrouter()
	owned.Use(s.requireOwner(config.OwnerHeader))
	owned.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	owned.HandleFunc("/transactions/{id}", s.handleGetTransaction).Methods(http.MethodGet)
	owned.HandleFunc("/bus-lock/balance", s.handleLockBalance).Methods(http.MethodGet)

	s.router = r
	s.server = &http.Server{
		Addr:         config.Address,
		Handler:      r,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens until Stop is called. It returns nil after a graceful stop.
func (s *Server) Serve() error {
	s.logger.Info("Server listening", zap.String("address", s.config.Address))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
