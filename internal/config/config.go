// Package config loads cloudvar-server configuration from environment
// variables (with .env support) and CLI flag overrides, following the same
// two-presentation pattern (human Print, structured LogConfig) as the
// teacher's config.go.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all server configuration.
//
// Tags:
//
//	env: environment variable name
//	envDefault: default value if not set
type Config struct {
	// Listener
	Addr       string `env:"CLOUDVAR_ADDR" envDefault:":9082"`
	UnixSocket string `env:"CLOUDVAR_UNIX_SOCKET" envDefault:""`
	WebRoot    string `env:"CLOUDVAR_WEB_ROOT" envDefault:"./playground"`

	// Admission control (ambient, not a protocol feature — see
	// internal/resourceguard)
	MaxConnectAcceptsPerSec float64 `env:"CLOUDVAR_MAX_ACCEPTS_PER_SEC" envDefault:"200"`
	MaxConnectBurst         int     `env:"CLOUDVAR_MAX_ACCEPT_BURST" envDefault:"400"`
	CPURejectThreshold      float64 `env:"CLOUDVAR_CPU_REJECT_THRESHOLD" envDefault:"90.0"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Metrics
	MetricsAddr string `env:"CLOUDVAR_METRICS_ADDR" envDefault:":9090"`
}

// Load reads configuration from an optional .env file and environment
// variables. Priority: env vars > .env file > defaults.
func Load(logger *zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if logger != nil {
			logger.Info().Msg("No .env file found (using environment variables only)")
		}
	} else if logger != nil {
		logger.Info().Msg("Loaded configuration from .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("CLOUDVAR_ADDR is required")
	}
	if c.CPURejectThreshold < 0 || c.CPURejectThreshold > 100 {
		return fmt.Errorf("CLOUDVAR_CPU_REJECT_THRESHOLD must be 0-100, got %.1f", c.CPURejectThreshold)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error (got: %s)", c.LogLevel)
	}

	validLogFormats := map[string]bool{"json": true, "pretty": true}
	if !validLogFormats[c.LogFormat] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, pretty (got: %s)", c.LogFormat)
	}

	return nil
}

// Print logs configuration in a human-readable form for startup output.
func (c *Config) Print() {
	fmt.Println("=== cloudvar-server configuration ===")
	if c.UnixSocket != "" {
		fmt.Printf("Unix socket:  %s\n", c.UnixSocket)
	} else {
		fmt.Printf("Address:      %s\n", c.Addr)
	}
	fmt.Printf("Web root:     %s\n", c.WebRoot)
	fmt.Printf("Log level:    %s\n", c.LogLevel)
	fmt.Printf("Log format:   %s\n", c.LogFormat)
	fmt.Printf("Metrics addr: %s\n", c.MetricsAddr)
	fmt.Println("======================================")
}

// LogConfig logs configuration using structured logging.
func (c *Config) LogConfig(logger zerolog.Logger) {
	logger.Info().
		Str("addr", c.Addr).
		Str("unix_socket", c.UnixSocket).
		Str("web_root", c.WebRoot).
		Float64("max_accepts_per_sec", c.MaxConnectAcceptsPerSec).
		Int("max_accept_burst", c.MaxConnectBurst).
		Float64("cpu_reject_threshold", c.CPURejectThreshold).
		Str("log_level", c.LogLevel).
		Str("log_format", c.LogFormat).
		Str("metrics_addr", c.MetricsAddr).
		Msg("configuration loaded")
}
