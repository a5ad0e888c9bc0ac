package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the top-level configuration.
type Config struct {
	Upstream UpstreamConfig `yaml:"upstream" mapstructure:"upstream"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// UpstreamConfig configures the messages API client and paginated fetch.
type UpstreamConfig struct {
	BaseURL                 string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutMs               int     `yaml:"timeout_ms" mapstructure:"timeout_ms"`
	BatchSize               int     `yaml:"batch_size" mapstructure:"batch_size"`
	MaxPages                int     `yaml:"max_pages" mapstructure:"max_pages"`
	RetryAttempts           int     `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryDelayMs            int     `yaml:"retry_delay_ms" mapstructure:"retry_delay_ms"`
	RateLimit               float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst               int     `yaml:"rate_burst" mapstructure:"rate_burst"`
	CircuitFailureThreshold int     `yaml:"circuit_failure_threshold" mapstructure:"circuit_failure_threshold"`
	CircuitResetSecs        int     `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
	UserAgent               string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// Timeout returns the per-page request timeout.
func (u UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutMs) * time.Millisecond
}

// StoreConfig selects the fetch-run history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port                int      `yaml:"port" mapstructure:"port"`
	CORSOrigins         []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	ShutdownTimeoutSecs int      `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
}

// MonitoringConfig configures fetch-health alerting. Alerts are logged, and
// posted to WebhookURL when it is set.
type MonitoringConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	ConsecutiveFailures  int     `yaml:"consecutive_failures" mapstructure:"consecutive_failures"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// Load reads configuration from config.yaml (optional), AURORA_* environment
// variables, and the legacy EXTERNAL_API_* variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("AURORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The prefixed name wins when both are set.
	if err := v.BindEnv("upstream.base_url", "AURORA_UPSTREAM_BASE_URL", "EXTERNAL_API_BASE_URL"); err != nil {
		return nil, eris.Wrap(err, "config: bind env")
	}
	if err := v.BindEnv("upstream.timeout_ms", "AURORA_UPSTREAM_TIMEOUT_MS", "EXTERNAL_API_TIMEOUT"); err != nil {
		return nil, eris.Wrap(err, "config: bind env")
	}

	v.SetDefault("upstream.base_url", "")
	v.SetDefault("upstream.timeout_ms", 5000)
	v.SetDefault("upstream.batch_size", 100)
	v.SetDefault("upstream.max_pages", 10000)
	v.SetDefault("upstream.retry_attempts", 3)
	v.SetDefault("upstream.retry_delay_ms", 500)
	v.SetDefault("upstream.rate_limit", 10)
	v.SetDefault("upstream.rate_burst", 10)
	v.SetDefault("upstream.circuit_failure_threshold", 5)
	v.SetDefault("upstream.circuit_reset_secs", 30)
	v.SetDefault("upstream.user_agent", "aurora-qa/1.0")
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.database_url", "aurora-qa.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout_secs", 10)
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.5)
	v.SetDefault("monitoring.consecutive_failures", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	cfg.Upstream.BaseURL = strings.TrimSpace(cfg.Upstream.BaseURL)

	return &cfg, nil
}

// Validation modes, one per command.
const (
	ModeServe = "serve"
	ModeAsk   = "ask"
	ModeFetch = "fetch"
	ModeRuns  = "runs"
)

// Validate checks the settings the given mode needs and reports every
// problem found.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case ModeServe:
		errs = append(errs, c.validateUpstream()...)
		errs = append(errs, c.validateStore()...)
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server.port must be between 1 and 65535, got %d", c.Server.Port))
		}
		errs = append(errs, c.validateMonitoring()...)
	case ModeAsk, ModeFetch:
		errs = append(errs, c.validateUpstream()...)
		errs = append(errs, c.validateStore()...)
	case ModeRuns:
		errs = append(errs, c.validateStore()...)
		if c.Store.Driver == DriverNone {
			errs = append(errs, "store.driver is none; there is no fetch-run history")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateUpstream() []string {
	var errs []string
	u := c.Upstream
	switch {
	case u.BaseURL == "":
		errs = append(errs, "upstream.base_url is required (set EXTERNAL_API_BASE_URL or AURORA_UPSTREAM_BASE_URL)")
	case !strings.HasPrefix(u.BaseURL, "http://") && !strings.HasPrefix(u.BaseURL, "https://"):
		errs = append(errs, fmt.Sprintf("upstream.base_url must be an http(s) URL, got %q", u.BaseURL))
	}
	if u.TimeoutMs <= 0 {
		errs = append(errs, fmt.Sprintf("upstream.timeout_ms must be > 0, got %d", u.TimeoutMs))
	}
	if u.BatchSize <= 0 {
		errs = append(errs, fmt.Sprintf("upstream.batch_size must be > 0, got %d", u.BatchSize))
	}
	if u.RetryAttempts < 1 {
		errs = append(errs, fmt.Sprintf("upstream.retry_attempts must be >= 1, got %d", u.RetryAttempts))
	}
	if u.RetryDelayMs < 0 {
		errs = append(errs, fmt.Sprintf("upstream.retry_delay_ms must be >= 0, got %d", u.RetryDelayMs))
	}
	if u.RateLimit < 0 {
		errs = append(errs, fmt.Sprintf("upstream.rate_limit must be >= 0, got %g", u.RateLimit))
	}
	return errs
}

func (c *Config) validateMonitoring() []string {
	m := c.Monitoring
	if !m.Enabled {
		return nil
	}
	var errs []string
	if c.Store.Driver == DriverNone {
		errs = append(errs, "monitoring.enabled requires a fetch-run store (store.driver is none)")
	}
	if m.FailureRateThreshold < 0 || m.FailureRateThreshold > 1 {
		errs = append(errs, fmt.Sprintf("monitoring.failure_rate_threshold must be between 0 and 1, got %g", m.FailureRateThreshold))
	}
	if m.WebhookURL != "" && !strings.HasPrefix(m.WebhookURL, "http://") && !strings.HasPrefix(m.WebhookURL, "https://") {
		errs = append(errs, fmt.Sprintf("monitoring.webhook_url must be an http(s) URL, got %q", m.WebhookURL))
	}
	return errs
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case DriverSQLite, DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required for driver " + c.Store.Driver}
		}
	case DriverNone:
	default:
		return []string{fmt.Sprintf("unknown store.driver %q", c.Store.Driver)}
	}
	return nil
}

// DebugInfo describes the upstream settings without exposing the full URL.
type DebugInfo struct {
	BaseURLSet    bool   `json:"baseUrlExists"`
	BaseURL       string `json:"baseUrl"`
	BaseURLLength int    `json:"baseUrlLength"`
	TimeoutMs     int    `json:"timeoutMs"`
	StoreDriver   string `json:"storeDriver"`
}

const maskPrefixLen = 20

// Debug returns the masked upstream settings.
func (c *Config) Debug() DebugInfo {
	info := DebugInfo{
		BaseURL:     "NOT SET",
		TimeoutMs:   c.Upstream.TimeoutMs,
		StoreDriver: c.Store.Driver,
	}
	if u := c.Upstream.BaseURL; u != "" {
		info.BaseURLSet = true
		info.BaseURLLength = len(u)
		info.BaseURL = u[:min(len(u), maskPrefixLen)] + "..."
	}
	return info
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
