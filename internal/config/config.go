// Package config loads server and engine settings from the environment.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Engine    EngineConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	// Request bodies larger than this are rejected.
	MaxBodyBytes int64 `envconfig:"MAX_BODY_BYTES" default:"1048576"`
	// Empty allows every origin.
	CORSOrigins []string `envconfig:"CORS_ORIGINS"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	// Server-wide cap ahead of the per-IP buckets; 0 disables it. A zero
	// burst means one second's worth of requests.
	GlobalRequestsPerSecond int `envconfig:"RATE_LIMIT_GLOBAL_RPS" default:"0"`
	GlobalBurst             int `envconfig:"RATE_LIMIT_GLOBAL_BURST" default:"0"`
}

// EngineConfig bounds tool calls.
type EngineConfig struct {
	Precision  string  `envconfig:"FLATEX_PRECISION" default:"f64"`
	MaxExprLen int     `envconfig:"FLATEX_MAX_EXPR_LEN" default:"4096"`
	MaxOrder   int     `envconfig:"FLATEX_MAX_ORDER" default:"8"`
	FDStep     float64 `envconfig:"FLATEX_FD_STEP" default:"0"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault is Load for callers that can run without the environment,
// such as the CLI. Invalid settings yield Default().
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			Host:         "0.0.0.0",
			MaxBodyBytes: 1 << 20,
		},
		Logging: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Engine: EngineConfig{
			Precision:  "f64",
			MaxExprLen: 4096,
			MaxOrder:   8,
		},
	}
}

// Validate rejects settings the engine cannot honour.
func (c *Config) Validate() error {
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("invalid MAX_BODY_BYTES %d", c.Server.MaxBodyBytes)
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("invalid RATE_LIMIT_RPS %d", c.RateLimit.RequestsPerSecond)
		}
		if c.RateLimit.Burst <= 0 {
			return fmt.Errorf("invalid RATE_LIMIT_BURST %d", c.RateLimit.Burst)
		}
		if c.RateLimit.GlobalRequestsPerSecond < 0 {
			return fmt.Errorf("invalid RATE_LIMIT_GLOBAL_RPS %d", c.RateLimit.GlobalRequestsPerSecond)
		}
		if c.RateLimit.GlobalBurst < 0 {
			return fmt.Errorf("invalid RATE_LIMIT_GLOBAL_BURST %d", c.RateLimit.GlobalBurst)
		}
	}
	switch c.Engine.Precision {
	case "f32", "f64":
	default:
		return fmt.Errorf("invalid FLATEX_PRECISION %q: want f32 or f64", c.Engine.Precision)
	}
	if c.Engine.MaxExprLen <= 0 {
		return fmt.Errorf("invalid FLATEX_MAX_EXPR_LEN %d", c.Engine.MaxExprLen)
	}
	if c.Engine.MaxOrder <= 0 {
		return fmt.Errorf("invalid FLATEX_MAX_ORDER %d", c.Engine.MaxOrder)
	}
	if c.Engine.FDStep < 0 {
		return fmt.Errorf("invalid FLATEX_FD_STEP %g", c.Engine.FDStep)
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string { return c.Server.Host + ":" + c.Server.Port }
