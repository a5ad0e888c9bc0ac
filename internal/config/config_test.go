package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chdirTemp moves into an empty directory so no config.yaml is found.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("EXTERNAL_API_BASE_URL", "")
	t.Setenv("EXTERNAL_API_TIMEOUT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.Upstream.BaseURL)
	assert.Equal(t, 5000, cfg.Upstream.TimeoutMs)
	assert.Equal(t, 5*time.Second, cfg.Upstream.Timeout())
	assert.Equal(t, 100, cfg.Upstream.BatchSize)
	assert.Equal(t, 10000, cfg.Upstream.MaxPages)
	assert.Equal(t, 3, cfg.Upstream.RetryAttempts)
	assert.Equal(t, 500, cfg.Upstream.RetryDelayMs)
	assert.InDelta(t, 10.0, cfg.Upstream.RateLimit, 0.001)
	assert.Equal(t, 10, cfg.Upstream.RateBurst)
	assert.Equal(t, 5, cfg.Upstream.CircuitFailureThreshold)
	assert.Equal(t, 30, cfg.Upstream.CircuitResetSecs)
	assert.Equal(t, "aurora-qa/1.0", cfg.Upstream.UserAgent)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "aurora-qa.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Monitoring.Enabled)
	assert.Equal(t, 300, cfg.Monitoring.CheckIntervalSecs)
	assert.Equal(t, 24, cfg.Monitoring.LookbackWindowHours)
	assert.InDelta(t, 0.5, cfg.Monitoring.FailureRateThreshold, 1e-9)
	assert.Equal(t, 3, cfg.Monitoring.ConsecutiveFailures)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
upstream:
  base_url: https://example.test/api
  batch_size: 50
store:
  driver: none
log:
  level: debug
  format: console
server:
  port: 9090
  cors_origins:
    - https://app.example.test
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://example.test/api", cfg.Upstream.BaseURL)
	assert.Equal(t, 50, cfg.Upstream.BatchSize)
	assert.Equal(t, "none", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://app.example.test"}, cfg.Server.CORSOrigins)
	// Defaults still apply for unset values
	assert.Equal(t, 5000, cfg.Upstream.TimeoutMs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("AURORA_STORE_DRIVER", "postgres")
	t.Setenv("AURORA_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadLegacyEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("EXTERNAL_API_BASE_URL", "  https://legacy.example.test  ")
	t.Setenv("EXTERNAL_API_TIMEOUT", "7000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://legacy.example.test", cfg.Upstream.BaseURL)
	assert.Equal(t, 7000, cfg.Upstream.TimeoutMs)
}

func TestLoadPrefixedEnvWins(t *testing.T) {
	chdirTemp(t)
	t.Setenv("EXTERNAL_API_BASE_URL", "https://legacy.example.test")
	t.Setenv("AURORA_UPSTREAM_BASE_URL", "https://primary.example.test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://primary.example.test", cfg.Upstream.BaseURL)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("upstream: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			BaseURL:       "https://example.test",
			TimeoutMs:     5000,
			BatchSize:     100,
			RetryAttempts: 3,
			RetryDelayMs:  500,
			RateLimit:     10,
		},
		Store:  StoreConfig{Driver: DriverSQLite, DatabaseURL: "aurora-qa.db"},
		Server: ServerConfig{Port: 3000},
	}
}

func TestValidate_AllModes(t *testing.T) {
	cfg := validDefaults()
	for _, mode := range []string{ModeServe, ModeAsk, ModeFetch, ModeRuns} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestValidate_MissingBaseURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Upstream.BaseURL = ""

	for _, mode := range []string{ModeServe, ModeAsk, ModeFetch} {
		err := cfg.Validate(mode)
		require.Error(t, err, mode)
		assert.Contains(t, err.Error(), "upstream.base_url is required")
	}
	assert.NoError(t, cfg.Validate(ModeRuns))
}

func TestValidate_BadBaseURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Upstream.BaseURL = "example.test"

	err := cfg.Validate(ModeAsk)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be an http(s) URL")
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := validDefaults()
	cfg.Upstream.TimeoutMs = 0
	cfg.Upstream.BatchSize = -1
	cfg.Upstream.RetryAttempts = 0
	cfg.Upstream.RetryDelayMs = -5
	cfg.Server.Port = 0

	err := cfg.Validate(ModeServe)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream.timeout_ms must be > 0")
	assert.Contains(t, err.Error(), "upstream.batch_size must be > 0")
	assert.Contains(t, err.Error(), "upstream.retry_attempts must be >= 1")
	assert.Contains(t, err.Error(), "upstream.retry_delay_ms must be >= 0")
	assert.Contains(t, err.Error(), "server.port must be between 1 and 65535")
}

func TestValidate_Store(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	err := cfg.Validate(ModeFetch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown store.driver "mysql"`)

	cfg.Store.Driver = DriverPostgres
	cfg.Store.DatabaseURL = ""
	err = cfg.Validate(ModeFetch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.Driver = DriverNone
	assert.NoError(t, cfg.Validate(ModeFetch))
	err = cfg.Validate(ModeRuns)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no fetch-run history")
}

func TestValidate_Monitoring(t *testing.T) {
	cfg := validDefaults()
	cfg.Monitoring.Enabled = true
	cfg.Monitoring.FailureRateThreshold = 0.5
	assert.NoError(t, cfg.Validate(ModeServe))

	cfg.Monitoring.FailureRateThreshold = 1.5
	cfg.Monitoring.WebhookURL = "hooks.example.test"
	cfg.Store.Driver = DriverNone
	err := cfg.Validate(ModeServe)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring.enabled requires a fetch-run store")
	assert.Contains(t, err.Error(), "monitoring.failure_rate_threshold must be between 0 and 1")
	assert.Contains(t, err.Error(), "monitoring.webhook_url must be an http(s) URL")

	// Only serve runs the checker.
	assert.NoError(t, cfg.Validate(ModeAsk))
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestDebug(t *testing.T) {
	cfg := validDefaults()
	cfg.Upstream.BaseURL = "https://messages.example.test/v1"

	info := cfg.Debug()
	assert.True(t, info.BaseURLSet)
	assert.Equal(t, "https://messages.exa...", info.BaseURL)
	assert.Equal(t, len("https://messages.example.test/v1"), info.BaseURLLength)
	assert.Equal(t, 5000, info.TimeoutMs)
	assert.Equal(t, "sqlite", info.StoreDriver)

	cfg.Upstream.BaseURL = "http://a.test"
	assert.Equal(t, "http://a.test...", cfg.Debug().BaseURL)

	cfg.Upstream.BaseURL = ""
	info = cfg.Debug()
	assert.False(t, info.BaseURLSet)
	assert.Equal(t, "NOT SET", info.BaseURL)
	assert.Zero(t, info.BaseURLLength)
}
