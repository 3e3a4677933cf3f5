// Package config loads service configuration from a YAML file and the
// environment, applies defaults, and validates the result.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gatekeeper/internal/models"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from file and environment variables
func Load(configPath string) (*models.Config, error) {
	// Start with default configuration
	config := models.NewDefaultConfig()

	// Load from file if provided and exists
	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Override with environment variables
	loadFromEnvironment(config)

	// Validate the final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(config *models.Config, filePath string) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", filePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

// loadFromEnvironment loads configuration from environment variables
func loadFromEnvironment(config *models.Config) {
	// Server configuration
	if port := os.Getenv("GATEKEEPER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if host := os.Getenv("GATEKEEPER_HOST"); host != "" {
		config.Server.Host = host
	}

	if timeout := os.Getenv("GATEKEEPER_READ_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.ReadTimeout = d
		}
	}

	if timeout := os.Getenv("GATEKEEPER_WRITE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.WriteTimeout = d
		}
	}

	if timeout := os.Getenv("GATEKEEPER_IDLE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.IdleTimeout = d
		}
	}

	// Store configuration
	if storeType := os.Getenv("GATEKEEPER_STORE_TYPE"); storeType != "" {
		config.Store.Type = storeType
	}

	if addr := os.Getenv("GATEKEEPER_REDIS_ADDR"); addr != "" {
		config.Store.Redis.Addr = addr
	}

	if password := os.Getenv("GATEKEEPER_REDIS_PASSWORD"); password != "" {
		config.Store.Redis.Password = password
	}

	if db := os.Getenv("GATEKEEPER_REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			config.Store.Redis.DB = n
		}
	}

	if poolSize := os.Getenv("GATEKEEPER_REDIS_POOL_SIZE"); poolSize != "" {
		if n, err := strconv.Atoi(poolSize); err == nil {
			config.Store.Redis.PoolSize = n
		}
	}

	// Limiter configuration
	if prefix := os.Getenv("GATEKEEPER_KEY_PREFIX"); prefix != "" {
		config.Limiter.KeyPrefix = prefix
	}

	if tier := os.Getenv("GATEKEEPER_DEFAULT_TIER"); tier != "" {
		config.Limiter.DefaultTier = tier
	}

	if tier := os.Getenv("GATEKEEPER_AUTHENTICATED_TIER"); tier != "" {
		config.Limiter.AuthenticatedTier = tier
	}

	if full := os.Getenv("GATEKEEPER_FULL_ACCOUNTING"); full != "" {
		config.Limiter.FullAccounting = full == "true"
	}

	if selfProtect := os.Getenv("GATEKEEPER_SELF_PROTECT"); selfProtect != "" {
		config.Limiter.SelfProtect = selfProtect == "true"
	}

	// Security configuration
	if token := os.Getenv("GATEKEEPER_ADMIN_TOKEN"); token != "" {
		config.Security.AdminToken = token
	}

	// Logging configuration
	if level := os.Getenv("GATEKEEPER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if format := os.Getenv("GATEKEEPER_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}

	if output := os.Getenv("GATEKEEPER_LOG_OUTPUT"); output != "" {
		config.Logging.Output = output
	}

	// Metrics configuration
	if enabled := os.Getenv("GATEKEEPER_METRICS_ENABLED"); enabled != "" {
		config.Metrics.Enabled = enabled == "true"
	}

	if port := os.Getenv("GATEKEEPER_METRICS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Metrics.Port = p
		}
	}

	// Observability configuration
	if name := os.Getenv("GATEKEEPER_SERVICE_NAME"); name != "" {
		config.Observability.ServiceName = name
	}

	if enabled := os.Getenv("GATEKEEPER_TRACING_ENABLED"); enabled != "" {
		config.Observability.Tracing.Enabled = enabled == "true"
	}

	if endpoint := os.Getenv("GATEKEEPER_OTLP_ENDPOINT"); endpoint != "" {
		config.Observability.Tracing.OTLPEndpoint = endpoint
		config.Observability.Tracing.Exporter = "otlp"
	}
}
