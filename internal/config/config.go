// Package config provides configuration loading for the capture worker.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the capture worker.
type Config struct {
	// Version is the application version
	Version string

	// Environment is the deployment environment (development, staging, production)
	Environment string

	// API configuration
	API APIConfig

	// Engine configuration
	Engine EngineConfig

	// Metrics configuration
	Metrics MetricsConfig

	// Log configuration
	Log LogConfig
}

// APIConfig holds API server configuration.
type APIConfig struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of the response
	WriteTimeout time.Duration

	// CORSOrigins is a list of allowed CORS origins (use "*" for all)
	CORSOrigins []string

	// RateLimitRPS is the rate limit in requests per second
	RateLimitRPS float64

	// RateLimitBurst is the maximum burst size for rate limiting
	RateLimitBurst int
}

// EngineConfig holds capture engine configuration.
type EngineConfig struct {
	// BufferCapacity is the per-task event buffer capacity
	BufferCapacity int

	// IdleInterval is the scheduler sleep when no task is schedulable
	IdleInterval time.Duration

	// DefaultBatchSize is the batch size applied to tasks that do not set one
	DefaultBatchSize int

	// DefaultPollInterval is the poll interval applied to tasks that do not set one
	DefaultPollInterval time.Duration

	// ConnectTimeout bounds connector calls
	ConnectTimeout time.Duration
}

// MetricsConfig holds metrics/observability configuration.
type MetricsConfig struct {
	// Enabled enables Prometheus metrics and the /metrics endpoint
	Enabled bool
}

// LogConfig holds logging configuration.
type LogConfig struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string

	// Format is the log output format (json, text)
	Format string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Version:     getEnv("CAPTURE_VERSION", "0.1.0"),
		Environment: getEnv("CAPTURE_ENV", "development"),

		API: APIConfig{
			ListenAddr:     getEnv("CAPTURE_API_LISTEN_ADDR", ":8080"),
			ReadTimeout:    getDurationEnv("CAPTURE_API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getDurationEnv("CAPTURE_API_WRITE_TIMEOUT", 15*time.Second),
			CORSOrigins:    getSliceEnv("CAPTURE_API_CORS_ORIGINS", []string{"*"}),
			RateLimitRPS:   getFloatEnv("CAPTURE_API_RATE_LIMIT_RPS", 100),
			RateLimitBurst: getIntEnv("CAPTURE_API_RATE_LIMIT_BURST", 200),
		},

		Engine: EngineConfig{
			BufferCapacity:      getIntEnv("CAPTURE_BUFFER_CAPACITY", 10000),
			IdleInterval:        getDurationEnv("CAPTURE_IDLE_INTERVAL", 500*time.Millisecond),
			DefaultBatchSize:    getIntEnv("CAPTURE_DEFAULT_BATCH_SIZE", 500),
			DefaultPollInterval: getDurationEnv("CAPTURE_DEFAULT_POLL_INTERVAL", time.Second),
			ConnectTimeout:      getDurationEnv("CAPTURE_CONNECT_TIMEOUT", 10*time.Second),
		},

		Metrics: MetricsConfig{
			Enabled: getBoolEnv("CAPTURE_METRICS_ENABLED", true),
		},

		Log: LogConfig{
			Level:  getEnv("CAPTURE_LOG_LEVEL", "info"),
			Format: getEnv("CAPTURE_LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, p := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
