// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	ServiceName    = "stockroom"
	ServiceVersion = "0.1.0"
)

const (
	TracesPath     = "/v1/traces"
	MetricsPath    = "/v1/metrics"
	LogsPath       = "/v1/logs"
	ExportTimeout  = 30 * time.Second
	MetricInterval = 15 * time.Second
)

type Config struct {
	Port            string
	LogLevel        string
	OtelEndpoint    string
	OtelAuthHeader  string
	RateLimitRPS    float64
	RateLimitBurst  int
	ShutdownTimeout time.Duration
	ServiceURL      string
}

// Load reads the configuration from the environment. An empty OTEL_ENDPOINT
// disables telemetry export.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "3000"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		OtelEndpoint:   os.Getenv("OTEL_ENDPOINT"),
		OtelAuthHeader: os.Getenv("OTEL_AUTH_HEADER"),
		ServiceURL:     getEnv("INVENTORY_SERVICE_URL", "http://localhost:3000"),
	}

	var err error
	if cfg.RateLimitRPS, err = strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "0"), 64); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_RPS: %w", err)
	}
	if cfg.RateLimitRPS < 0 {
		return nil, fmt.Errorf("RATE_LIMIT_RPS must not be negative")
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(getEnv("RATE_LIMIT_BURST", "20")); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_BURST: %w", err)
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s")); err != nil {
		return nil, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
	}
	if cfg.Port == "" {
		return nil, fmt.Errorf("PORT must not be empty")
	}

	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// TelemetryEnabled reports whether an OTLP endpoint is configured.
func (c *Config) TelemetryEnabled() bool {
	return c.OtelEndpoint != ""
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
