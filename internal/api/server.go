// Package api provides the HTTP API server for capture task management.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iannil/one-data-studio-sub007/internal/api/handlers"
	"github.com/iannil/one-data-studio-sub007/internal/api/middleware"
	"github.com/iannil/one-data-studio-sub007/internal/capture"
	"github.com/iannil/one-data-studio-sub007/internal/capture/engine"
	"github.com/iannil/one-data-studio-sub007/internal/config"
	"github.com/iannil/one-data-studio-sub007/internal/metrics"
)

// Server is the HTTP API server.
type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	manager    *engine.Manager
	httpServer *http.Server
	router     *gin.Engine
}

// ServerConfig holds server configuration options.
type ServerConfig struct {
	// Config is the application configuration.
	Config *config.Config

	// Logger is the structured logger.
	Logger *slog.Logger

	// Manager is the capture task manager the API fronts.
	Manager *engine.Manager

	// CORSConfig is the CORS configuration.
	CORSConfig middleware.CORSConfig

	// RateLimitConfig is the rate limiting configuration.
	RateLimitConfig middleware.RateLimitConfig
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig(cfg *config.Config, logger *slog.Logger, manager *engine.Manager) ServerConfig {
	return ServerConfig{
		Config:          cfg,
		Logger:          logger,
		Manager:         manager,
		CORSConfig:      middleware.DefaultCORSConfig(),
		RateLimitConfig: middleware.DefaultRateLimitConfig(),
	}
}

// NewServer creates a new API server.
func NewServer(serverCfg ServerConfig) *Server {
	logger := serverCfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if serverCfg.Config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	if serverCfg.Config.Metrics.Enabled {
		metrics.Register()
	}

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(logger))
	if serverCfg.Config.Metrics.Enabled {
		router.Use(middleware.Metrics())
	}
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS(serverCfg.CORSConfig))
	router.Use(middleware.RateLimiter(serverCfg.RateLimitConfig))

	s := &Server{
		cfg:     serverCfg.Config,
		logger:  logger.With("component", "api-server"),
		manager: serverCfg.Manager,
		router:  router,
	}

	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:         serverCfg.Config.API.ListenAddr,
		Handler:      router,
		ReadTimeout:  serverCfg.Config.API.ReadTimeout,
		WriteTimeout: serverCfg.Config.API.WriteTimeout,
		IdleTimeout:  serverCfg.Config.API.ReadTimeout * 4,
	}

	return s
}

// registerRoutes registers all API routes.
func (s *Server) registerRoutes() {
	healthHandler := handlers.NewHealthHandler(s.manager)
	versionHandler := handlers.NewVersionHandler(s.cfg.Version)

	defaults := capture.SourceConfig{
		Schema:         "public",
		BatchSize:      s.cfg.Engine.DefaultBatchSize,
		PollInterval:   s.cfg.Engine.DefaultPollInterval,
		SnapshotMode:   capture.SnapshotInitial,
		ConnectTimeout: s.cfg.Engine.ConnectTimeout,
	}

	// Health endpoints (no versioning)
	s.router.GET("/health", healthHandler.GetHealth)
	s.router.GET("/health/live", healthHandler.GetLiveness)

	// Metrics endpoint (no versioning)
	if s.cfg.Metrics.Enabled {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/version", versionHandler.GetVersion)

		if s.manager != nil {
			taskHandler := handlers.NewTaskHandler(s.manager, defaults)
			v1.POST("/tasks", taskHandler.Create)
			v1.GET("/tasks", taskHandler.List)
			v1.GET("/tasks/:id", taskHandler.Get)
			v1.DELETE("/tasks/:id", taskHandler.Remove)
			v1.POST("/tasks/:id/start", taskHandler.Start)
			v1.POST("/tasks/:id/pause", taskHandler.Pause)
			v1.POST("/tasks/:id/resume", taskHandler.Resume)
			v1.POST("/tasks/:id/stop", taskHandler.Stop)
			v1.GET("/tasks/:id/metrics", taskHandler.Metrics)
			v1.GET("/tasks/:id/events", taskHandler.Events)
			v1.GET("/metrics/tasks", taskHandler.AllMetrics)
		}
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.cfg.API.ListenAddr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping API server")

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the underlying Gin router for testing.
func (s *Server) Router() *gin.Engine {
	return s.router
}
