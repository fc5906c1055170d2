// Package api provides the HTTP server for the wildlife service.
// The JSON endpoints live in the v2 subpackage.
package api

import (
	"fmt"
	"time"

	"github.com/labstack/gommon/bytes"

	"github.com/tphakala/wildlife-go/internal/conf"
	"github.com/tphakala/wildlife-go/internal/logger"
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// Default constants for the HTTP server.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultBodyLimit       = "12M"
)

// Config holds the HTTP server configuration.
type Config struct {
	Listen string // host:port, e.g. ":8080"

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// BodyLimit caps request bodies, e.g. "12M". Uploads are limited to 10 MiB
	// of image data, the rest is multipart overhead.
	BodyLimit string

	Debug bool

	// MetricsPath serves Prometheus metrics when non-empty.
	MetricsPath string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:          ":8080",
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       DefaultBodyLimit,
	}
}

// ConfigFromSettings creates a Config from the application settings.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()

	if settings.WebServer.Listen != "" {
		cfg.Listen = settings.WebServer.Listen
	}
	if settings.WebServer.BodyLimit != "" {
		cfg.BodyLimit = settings.WebServer.BodyLimit
	}
	if settings.WebServer.Timeout > 0 {
		cfg.ReadTimeout = settings.WebServer.Timeout
		cfg.WriteTimeout = settings.WebServer.Timeout
	}
	cfg.Debug = settings.WebServer.Debug || settings.Debug

	if settings.Metrics.Enabled {
		cfg.MetricsPath = settings.Metrics.Path
		if cfg.MetricsPath == "" {
			cfg.MetricsPath = "/metrics"
		}
	}

	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if _, err := bytes.Parse(c.BodyLimit); err != nil {
		return fmt.Errorf("invalid body limit %q: %w", c.BodyLimit, err)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	return nil
}

// String returns a human-readable representation of the config.
func (c *Config) String() string {
	metrics := "disabled"
	if c.MetricsPath != "" {
		metrics = c.MetricsPath
	}
	return fmt.Sprintf("Server Config: listen=%s, body_limit=%s, metrics=%s, debug=%v",
		c.Listen, c.BodyLimit, metrics, c.Debug)
}
