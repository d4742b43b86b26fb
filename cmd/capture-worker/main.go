// Package main provides the entry point for the capture worker service.
// The worker runs polling change-data-capture tasks against PostgreSQL
// and MySQL sources and exposes a management API over HTTP.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iannil/one-data-studio-sub007/internal/api"
	"github.com/iannil/one-data-studio-sub007/internal/capture"
	"github.com/iannil/one-data-studio-sub007/internal/capture/connector"
	"github.com/iannil/one-data-studio-sub007/internal/capture/connector/mysql"
	"github.com/iannil/one-data-studio-sub007/internal/capture/connector/postgres"
	"github.com/iannil/one-data-studio-sub007/internal/capture/engine"
	"github.com/iannil/one-data-studio-sub007/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting capture worker",
		"version", cfg.Version,
		"environment", cfg.Environment,
	)

	factories := map[capture.SourceKind]connector.Factory{
		capture.SourcePostgres: postgres.Factory(logger),
		capture.SourceMySQL:    mysql.Factory(logger),
	}

	manager := engine.NewManager(engine.Config{
		BufferCapacity: cfg.Engine.BufferCapacity,
		IdleInterval:   cfg.Engine.IdleInterval,
	}, factories, logger)

	serverCfg := api.DefaultServerConfig(cfg, logger, manager)
	serverCfg.CORSConfig.AllowedOrigins = cfg.API.CORSOrigins
	serverCfg.RateLimitConfig.RequestsPerSecond = cfg.API.RateLimitRPS
	serverCfg.RateLimitConfig.BurstSize = cfg.API.RateLimitBurst
	server := api.NewServer(serverCfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("api server shutdown failed", "error", err)
	}
	if err := manager.Close(shutdownCtx); err != nil {
		logger.Error("manager shutdown failed", "error", err)
	}

	logger.Info("capture worker stopped")
	return nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
