package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatekeeper/internal/models"
)

func TestLoad_DefaultsOnly(t *testing.T) {
	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, models.StoreTypeRedis, config.Store.Type)
	assert.Equal(t, "ratelimit:", config.Limiter.KeyPrefix)
	assert.Equal(t, "free", config.Limiter.DefaultTier)
}

func TestLoad_FromYAMLFile(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "config.yaml")

	configContent := `
server:
  port: 9000
  host: "127.0.0.1"
  read_timeout: 15s
store:
  type: "redis"
  redis:
    addr: "redis.internal:6379"
    password: "secret"
    db: 2
    pool_size: 25
limiter:
  key_prefix: "acme:rl:"
  default_tier: "free"
  authenticated_tier: "enterprise"
  full_accounting: true
  self_protect: true
tiers:
  pro:
    requests_per_minute: 1200
    requests_per_hour: 20000
    requests_per_day: 200000
    burst_allowance: 100
security:
  admin_token: "sekrit"
logging:
  level: "debug"
  format: "text"
`
	require.NoError(t, os.WriteFile(configFile, []byte(configContent), 0o644))

	config, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, "127.0.0.1", config.Server.Host)
	assert.Equal(t, 15*time.Second, config.Server.ReadTimeout)

	assert.Equal(t, "redis.internal:6379", config.Store.Redis.Addr)
	assert.Equal(t, "secret", config.Store.Redis.Password)
	assert.Equal(t, 2, config.Store.Redis.DB)
	assert.Equal(t, 25, config.Store.Redis.PoolSize)

	assert.Equal(t, "acme:rl:", config.Limiter.KeyPrefix)
	assert.Equal(t, "enterprise", config.Limiter.AuthenticatedTier)
	assert.True(t, config.Limiter.FullAccounting)
	assert.True(t, config.Limiter.SelfProtect)

	require.Contains(t, config.Tiers, "pro")
	assert.Equal(t, 1200, config.Tiers["pro"].RequestsPerMinute)
	assert.Equal(t, 100, config.Tiers["pro"].BurstAllowance)

	assert.Equal(t, "sekrit", config.Security.AdminToken)
	assert.Equal(t, "debug", config.Logging.Level)

	// Values absent from the file keep their defaults.
	assert.Equal(t, 9090, config.Metrics.Port)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoad_InvalidYAMLFails(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "bad.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("server: [not a map"), 0o644))

	_, err := Load(configFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("GATEKEEPER_PORT", "9999")
	t.Setenv("GATEKEEPER_HOST", "10.1.2.3")
	t.Setenv("GATEKEEPER_READ_TIMEOUT", "45s")
	t.Setenv("GATEKEEPER_STORE_TYPE", "memory")
	t.Setenv("GATEKEEPER_KEY_PREFIX", "env:rl:")
	t.Setenv("GATEKEEPER_DEFAULT_TIER", "pro")
	t.Setenv("GATEKEEPER_AUTHENTICATED_TIER", "enterprise")
	t.Setenv("GATEKEEPER_FULL_ACCOUNTING", "true")
	t.Setenv("GATEKEEPER_SELF_PROTECT", "true")
	t.Setenv("GATEKEEPER_ADMIN_TOKEN", "env-token")
	t.Setenv("GATEKEEPER_LOG_LEVEL", "warn")
	t.Setenv("GATEKEEPER_METRICS_ENABLED", "false")
	t.Setenv("GATEKEEPER_SERVICE_NAME", "gatekeeper-staging")

	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, "10.1.2.3", config.Server.Host)
	assert.Equal(t, 45*time.Second, config.Server.ReadTimeout)
	assert.Equal(t, models.StoreTypeMemory, config.Store.Type)
	assert.Equal(t, "env:rl:", config.Limiter.KeyPrefix)
	assert.Equal(t, "pro", config.Limiter.DefaultTier)
	assert.Equal(t, "enterprise", config.Limiter.AuthenticatedTier)
	assert.True(t, config.Limiter.FullAccounting)
	assert.True(t, config.Limiter.SelfProtect)
	assert.Equal(t, "env-token", config.Security.AdminToken)
	assert.Equal(t, "warn", config.Logging.Level)
	assert.False(t, config.Metrics.Enabled)
	assert.Equal(t, "gatekeeper-staging", config.Observability.ServiceName)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("server:\n  port: 9000\n"), 0o644))

	t.Setenv("GATEKEEPER_PORT", "9100")

	config, err := Load(configFile)
	require.NoError(t, err)
	assert.Equal(t, 9100, config.Server.Port, "environment wins over file")
}

func TestLoad_RedisEnvironment(t *testing.T) {
	t.Setenv("GATEKEEPER_REDIS_ADDR", "redis.prod:6380")
	t.Setenv("GATEKEEPER_REDIS_PASSWORD", "hunter2")
	t.Setenv("GATEKEEPER_REDIS_DB", "3")
	t.Setenv("GATEKEEPER_REDIS_POOL_SIZE", "50")

	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "redis.prod:6380", config.Store.Redis.Addr)
	assert.Equal(t, "hunter2", config.Store.Redis.Password)
	assert.Equal(t, 3, config.Store.Redis.DB)
	assert.Equal(t, 50, config.Store.Redis.PoolSize)
}

func TestLoad_OTLPEndpointSelectsExporter(t *testing.T) {
	t.Setenv("GATEKEEPER_TRACING_ENABLED", "true")
	t.Setenv("GATEKEEPER_OTLP_ENDPOINT", "collector:4317")

	config, err := Load("")
	require.NoError(t, err)

	assert.True(t, config.Observability.Tracing.Enabled)
	assert.Equal(t, "otlp", config.Observability.Tracing.Exporter)
	assert.Equal(t, "collector:4317", config.Observability.Tracing.OTLPEndpoint)
}

func TestLoad_InvalidFinalConfigFails(t *testing.T) {
	t.Setenv("GATEKEEPER_STORE_TYPE", "cassandra")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoad_MalformedNumericEnvIsIgnored(t *testing.T) {
	t.Setenv("GATEKEEPER_PORT", "not-a-number")

	config, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, config.Server.Port, "unparseable values fall back to defaults")
}
