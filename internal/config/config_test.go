package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Test with default values
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Version != "0.1.0" {
		t.Errorf("Version = %v, want %v", cfg.Version, "0.1.0")
	}

	if cfg.Environment != "development" {
		t.Errorf("Environment = %v, want %v", cfg.Environment, "development")
	}

	if cfg.API.ListenAddr != ":8080" {
		t.Errorf("API.ListenAddr = %v, want %v", cfg.API.ListenAddr, ":8080")
	}

	if cfg.Engine.BufferCapacity != 10000 {
		t.Errorf("Engine.BufferCapacity = %v, want %v", cfg.Engine.BufferCapacity, 10000)
	}

	if cfg.Engine.DefaultPollInterval != time.Second {
		t.Errorf("Engine.DefaultPollInterval = %v, want %v", cfg.Engine.DefaultPollInterval, time.Second)
	}

	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	os.Setenv("CAPTURE_VERSION", "1.0.0")
	os.Setenv("CAPTURE_ENV", "production")
	os.Setenv("CAPTURE_BUFFER_CAPACITY", "500")
	os.Setenv("CAPTURE_IDLE_INTERVAL", "250ms")
	os.Setenv("CAPTURE_API_CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	defer func() {
		os.Unsetenv("CAPTURE_VERSION")
		os.Unsetenv("CAPTURE_ENV")
		os.Unsetenv("CAPTURE_BUFFER_CAPACITY")
		os.Unsetenv("CAPTURE_IDLE_INTERVAL")
		os.Unsetenv("CAPTURE_API_CORS_ORIGINS")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Version != "1.0.0" {
		t.Errorf("Version = %v, want %v", cfg.Version, "1.0.0")
	}

	if cfg.Environment != "production" {
		t.Errorf("Environment = %v, want %v", cfg.Environment, "production")
	}

	if cfg.Engine.BufferCapacity != 500 {
		t.Errorf("Engine.BufferCapacity = %v, want %v", cfg.Engine.BufferCapacity, 500)
	}

	if cfg.Engine.IdleInterval != 250*time.Millisecond {
		t.Errorf("Engine.IdleInterval = %v, want %v", cfg.Engine.IdleInterval, 250*time.Millisecond)
	}

	want := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.API.CORSOrigins) != 2 || cfg.API.CORSOrigins[0] != want[0] || cfg.API.CORSOrigins[1] != want[1] {
		t.Errorf("API.CORSOrigins = %v, want %v", cfg.API.CORSOrigins, want)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	os.Setenv("CAPTURE_BUFFER_CAPACITY", "lots")
	os.Setenv("CAPTURE_IDLE_INTERVAL", "soon")
	os.Setenv("CAPTURE_METRICS_ENABLED", "maybe")
	defer func() {
		os.Unsetenv("CAPTURE_BUFFER_CAPACITY")
		os.Unsetenv("CAPTURE_IDLE_INTERVAL")
		os.Unsetenv("CAPTURE_METRICS_ENABLED")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Engine.BufferCapacity != 10000 {
		t.Errorf("Engine.BufferCapacity = %v, want default 10000", cfg.Engine.BufferCapacity)
	}
	if cfg.Engine.IdleInterval != 500*time.Millisecond {
		t.Errorf("Engine.IdleInterval = %v, want default 500ms", cfg.Engine.IdleInterval)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want default true")
	}
}
