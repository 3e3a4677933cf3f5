// Package models - Service configuration and operational settings.
//
// Configuration Philosophy:
// - Hierarchical configuration with logical grouping (server, store, limiter, etc.)
// - Environment-friendly defaults that work out of the box
// - Comprehensive validation to catch misconfigurations early
// - Security-first approach with safe defaults
package models

import (
	"errors"
	"fmt"
	"time"
)

// Store type constants
const (
	StoreTypeRedis  = "redis"
	StoreTypeMemory = "memory"
)

// Config is the root configuration structure containing all service settings.
type Config struct {
	Server        ServerConfig          `yaml:"server" json:"server"`               // HTTP server configuration
	Store         StoreConfig           `yaml:"store" json:"store"`                 // Shared counter store
	Limiter       LimiterConfig         `yaml:"limiter" json:"limiter"`             // Admission-control behavior
	Tiers         map[string]TierConfig `yaml:"tiers" json:"tiers"`                 // Per-tier limit overrides
	Security      SecurityConfig        `yaml:"security" json:"security"`           // Admin authentication
	Logging       LoggingConfig         `yaml:"logging" json:"logging"`             // Logging and output configuration
	Metrics       MetricsConfig         `yaml:"metrics" json:"metrics"`             // Monitoring and metrics
	Observability ObservabilityConfig   `yaml:"observability" json:"observability"` // Tracing configuration
}

type ServerConfig struct {
	Port         int           `yaml:"port" json:"port"`
	Host         string        `yaml:"host" json:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
}

type StoreConfig struct {
	Type  string      `yaml:"type" json:"type"`
	Redis RedisConfig `yaml:"redis" json:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	PoolSize int    `yaml:"pool_size" json:"pool_size"`
}

type LimiterConfig struct {
	// KeyPrefix namespaces all store keys written by this deployment.
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`

	// DefaultTier is applied to anonymous callers of the protected API.
	DefaultTier string `yaml:"default_tier" json:"default_tier"`

	// AuthenticatedTier is applied to authenticated callers.
	AuthenticatedTier string `yaml:"authenticated_tier" json:"authenticated_tier"`

	// FullAccounting records traffic in every window even when an earlier
	// window already denied the call, keeping hour/day counters honest at
	// the cost of extra store round trips per denial.
	FullAccounting bool `yaml:"full_accounting" json:"full_accounting"`

	// SelfProtect applies the distributed limiter as middleware to the
	// service's own decision API.
	SelfProtect bool `yaml:"self_protect" json:"self_protect"`
}

// TierConfig overrides the built-in limits for one tier.
type TierConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int `yaml:"requests_per_hour" json:"requests_per_hour"`
	RequestsPerDay    int `yaml:"requests_per_day" json:"requests_per_day"`
	BurstAllowance    int `yaml:"burst_allowance" json:"burst_allowance"`
}

type SecurityConfig struct {
	// AdminToken authorizes the reset and usage endpoints. Empty disables
	// admin authentication (development only).
	AdminToken string `yaml:"admin_token" json:"admin_token"`

	// AdminGuard throttles the admin endpoints with an in-process token
	// bucket so admin traffic cannot hammer the store.
	AdminGuard AdminGuardConfig `yaml:"admin_guard" json:"admin_guard"`
}

type AdminGuardConfig struct {
	Enabled           bool `yaml:"enabled" json:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute" json:"requests_per_minute"`
	Burst             int  `yaml:"burst" json:"burst"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name" json:"service_name"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"` // "stdout" or "otlp"
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate" json:"sample_rate"`
}

// NewDefaultConfig returns a configuration with sensible defaults that work
// out of the box for local development.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Store: StoreConfig{
			Type: StoreTypeRedis,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
			},
		},
		Limiter: LimiterConfig{
			KeyPrefix:         "ratelimit:",
			DefaultTier:       "free",
			AuthenticatedTier: "pro",
		},
		Security: SecurityConfig{
			AdminGuard: AdminGuardConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				Burst:             20,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Observability: ObservabilityConfig{
			ServiceName: "gatekeeper",
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "stdout",
				SampleRate: 0.1,
			},
		},
	}
}

// Validate checks the configuration for errors across all components.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Store.Type {
	case StoreTypeRedis:
		if c.Store.Redis.Addr == "" {
			return errors.New("redis address is required when store type is redis")
		}
	case StoreTypeMemory:
		// No further settings required.
	default:
		return fmt.Errorf("unsupported store type: %s", c.Store.Type)
	}

	if c.Limiter.KeyPrefix == "" {
		return errors.New("limiter key prefix must not be empty")
	}
	if c.Limiter.DefaultTier == "" {
		return errors.New("limiter default tier must not be empty")
	}
	if c.Limiter.AuthenticatedTier == "" {
		return errors.New("limiter authenticated tier must not be empty")
	}

	for name, tier := range c.Tiers {
		if tier.RequestsPerMinute <= 0 || tier.RequestsPerHour <= 0 || tier.RequestsPerDay <= 0 {
			return fmt.Errorf("tier %s: window limits must be positive", name)
		}
		if tier.BurstAllowance < 0 {
			return fmt.Errorf("tier %s: burst allowance must not be negative", name)
		}
	}

	if c.Security.AdminGuard.Enabled {
		if c.Security.AdminGuard.RequestsPerMinute <= 0 {
			return errors.New("admin guard requests per minute must be positive")
		}
		if c.Security.AdminGuard.Burst <= 0 {
			return errors.New("admin guard burst must be positive")
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			return fmt.Errorf("invalid metrics port: %d", c.Metrics.Port)
		}
		if c.Metrics.Path == "" {
			return errors.New("metrics path is required when metrics are enabled")
		}
	}

	if c.Observability.Tracing.Enabled {
		switch c.Observability.Tracing.Exporter {
		case "stdout":
		case "otlp":
			if c.Observability.Tracing.OTLPEndpoint == "" {
				return errors.New("otlp endpoint is required when trace exporter is otlp")
			}
		default:
			return fmt.Errorf("unsupported trace exporter: %s", c.Observability.Tracing.Exporter)
		}
	}

	return nil
}
