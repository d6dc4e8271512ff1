package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/tsforecast/internal/api"
	"github.com/inferloop/tsforecast/internal/observability/health"
	"github.com/inferloop/tsforecast/internal/observability/metrics"
	"github.com/inferloop/tsforecast/internal/pipeline"
	"github.com/inferloop/tsforecast/internal/storage"
	"github.com/inferloop/tsforecast/pkg/interfaces"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	logger     *logrus.Logger
	config     *Config
	metrics    *metrics.PrometheusMetrics
	health     *health.HealthMonitor
	uploads    interfaces.UploadStore
}

// NewServer wires storage, metrics, the pipeline and the routes
func NewServer(config *Config, logger *logrus.Logger) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if logger == nil {
		logger = logrus.New()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}

	pm, err := metrics.NewPrometheusMetrics(&config.Metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	store, err := storage.NewUploadStore(&config.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload store: %w", err)
	}
	uploads := storage.NewInstrumentedUploadStore(store, pm)

	monitor := health.NewHealthMonitor(config.Version, logger)
	monitor.RegisterCheck("upload_store", false, uploads.Ping)

	server := &Server{
		logger:  logger,
		config:  config,
		metrics: pm,
		health:  monitor,
		uploads: uploads,
	}

	handlers := api.NewHandlers(&api.HandlerConfig{
		Pipeline:       pipeline.New(logger, pipeline.WithRecorder(pm)),
		Uploads:        uploads,
		Health:         monitor,
		SampleFile:     config.SampleFile,
		DefaultEngine:  config.DefaultEngine,
		MaxUploadBytes: config.MaxUploadBytes,
		Logger:         logger,
	})

	middleware := api.DefaultMiddlewareConfig()
	middleware.EnableCORS = config.EnableCORS
	middleware.AllowedOrigins = config.AllowedOrigins
	middleware.Recorder = pm

	routerConfig := &api.RouterConfig{
		Handlers:   handlers,
		Middleware: middleware,
		Logger:     logger,
	}
	// Without a dedicated port the API router serves /metrics itself
	if config.Metrics.Enabled && config.Metrics.Port == 0 {
		routerConfig.MetricsHandler = pm.Handler()
	}
	server.router = api.NewRouter(routerConfig)

	server.httpServer = &http.Server{
		Addr:         config.Addr(),
		Handler:      server.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return server, nil
}

// Start connects the upload store and serves until Stop is called
func (s *Server) Start(ctx context.Context) error {
	if err := s.uploads.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect upload store: %w", err)
	}

	if err := s.metrics.Start(ctx); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"address": s.config.Addr(),
		"storage": s.uploads.Backend(),
	}).Info("Starting HTTP server")

	var err error
	if s.config.TLSCertFile != "" && s.config.TLSKeyFile != "" {
		s.logger.Info("Starting HTTPS server")
		err = s.httpServer.ListenAndServeTLS(s.config.TLSCertFile, s.config.TLSKeyFile)
	} else {
		err = s.httpServer.ListenAndServe()
	}
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.metrics.Stop(shutdownCtx); err != nil {
		s.logger.WithError(err).Error("Error shutting down metrics server")
	}

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.WithError(err).Error("Error shutting down HTTP server")
		return err
	}

	if err := s.uploads.Close(); err != nil {
		s.logger.WithError(err).Warn("Error closing upload store")
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// GetConfig returns the server configuration
func (s *Server) GetConfig() *Config {
	return s.config
}
