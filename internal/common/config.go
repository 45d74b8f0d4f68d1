package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"

	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/models"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Providers   ProvidersConfig `toml:"providers"`
	Cache       CacheConfig     `toml:"cache"`
	Retry       RetryConfig     `toml:"retry"`
	Health      HealthConfig    `toml:"health"`
	Breaker     BreakerConfig   `toml:"breaker"`
	LLM         LLMConfig       `toml:"llm"`
	Analysis    AnalysisConfig  `toml:"analysis"`
	RSS         RSSConfig       `toml:"rss"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Notify      NotifyConfig    `toml:"notify"`
}

// ServerConfig controls the metrics/health listener used by `vigil serve`
type ServerConfig struct {
	Port int    `toml:"port" validate:"gte=0,lte=65535"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger       BadgerConfig `toml:"badger"`
	VariablesDir string       `toml:"variables_dir"` // variables.toml location; empty skips loading
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=trace debug info warn error"`
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // default "15:04:05"
}

// VendorConfig configures one market-data vendor adapter.
// An adapter is registered only when Enabled and an API key resolves.
type VendorConfig struct {
	Enabled   bool   `toml:"enabled"`
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"` // Alpaca only
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit" validate:"gte=0"` // requests per second, 0 = vendor default
	Timeout   string `toml:"timeout"`
}

// ProvidersConfig lists all market-data vendors.
type ProvidersConfig struct {
	Alpaca  VendorConfig `toml:"alpaca"`
	Polygon VendorConfig `toml:"polygon"`
	Finnhub VendorConfig `toml:"finnhub"`
	FMP     VendorConfig `toml:"fmp"`
	EODHD   VendorConfig `toml:"eodhd"`
	// UseMockWhenEmpty registers the synthetic adapter when no vendor key resolves
	UseMockWhenEmpty bool `toml:"use_mock_when_empty"`
}

// CacheConfig holds per-kind TTLs and the optional shared redis tier.
type CacheConfig struct {
	QuoteTTL     string `toml:"quote_ttl"`
	IntradayTTL  string `toml:"intraday_ttl"`
	DailyTTL     string `toml:"daily_ttl"`
	ProfileTTL   string `toml:"profile_ttl"`
	MetricsTTL   string `toml:"metrics_ttl"`
	SentimentTTL string `toml:"sentiment_ttl"`

	RedisAddr     string `toml:"redis_addr"` // empty disables the shared tier
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	RedisPrefix   string `toml:"redis_prefix"`
}

type RetryConfig struct {
	MaxRetries        int     `toml:"max_retries" validate:"gte=0,lte=10"`
	InitialDelay      string  `toml:"initial_delay"`
	MaxDelay          string  `toml:"max_delay"`
	Multiplier        float64 `toml:"multiplier" validate:"gte=1"`
	RateLimitCooldown string  `toml:"rate_limit_cooldown"`
}

type HealthConfig struct {
	EnforcedCooldown string `toml:"enforced_cooldown"` // blacklist duration after auth/quota failures
}

// BreakerConfig configures the per-adapter circuit breaker.
type BreakerConfig struct {
	Enabled             bool   `toml:"enabled"`
	ConsecutiveFailures uint32 `toml:"consecutive_failures"`
	OpenTimeout         string `toml:"open_timeout"`
	HalfOpenRequests    uint32 `toml:"half_open_requests"`
}

// LLMConfig contains unified configuration for all LLM providers
type LLMConfig struct {
	DefaultProvider string `toml:"default_provider" validate:"required"`
	DefaultModel    string `toml:"default_model"`

	AnthropicAPIKey string `toml:"anthropic_api_key"`
	GeminiAPIKey    string `toml:"gemini_api_key"`
	OpenAIAPIKey    string `toml:"openai_api_key"`
	OpenAIBaseURL   string `toml:"openai_base_url"` // OpenAI-compatible endpoint (openrouter, groq, ollama ...)

	// Routes overrides per-stage routing; keyed by stage name
	Routes map[string]StageRoute `toml:"routes"`
}

// StageRoute is a config-file override for one pipeline stage.
type StageRoute struct {
	Provider        string  `toml:"provider"`
	Model           string  `toml:"model"`
	Tools           string  `toml:"tools"`
	Temperature     float64 `toml:"temperature"`
	MaxOutputTokens int     `toml:"max_output_tokens"`
	Timeout         string  `toml:"timeout"`
	ReasoningDepth  string  `toml:"reasoning_depth"`
}

// AnalysisConfig supplies defaults for AnalysisRequest fields.
type AnalysisConfig struct {
	Intent            string                    `toml:"intent"`
	Risk              string                    `toml:"risk"`
	AssetClass        string                    `toml:"asset_class"`
	DiscoveryMode     string                    `toml:"discovery_mode"`
	MaxShortlist      int                       `toml:"max_shortlist" validate:"gte=1"`
	MaxDecisionKeep   int                       `toml:"max_decision_keep" validate:"gte=1"`
	EnrichConcurrency int                       `toml:"enrich_concurrency" validate:"gte=1"`
	CustomTickers     []string                  `toml:"custom_tickers"`
	Blocklist         []string                  `toml:"blocklist"`
	Screener          models.ScreenerThresholds `toml:"screener"`
	SaveHistory       bool                      `toml:"save_history"`
}

type RSSConfig struct {
	CatalogPath    string              `toml:"catalog_path"` // YAML catalog; empty uses the built-in catalog
	Feeds          []string            `toml:"feeds"`        // extra feed URLs always fetched
	RetentionDays  int                 `toml:"retention_days" validate:"gte=1"`
	LookbackHours  int                 `toml:"lookback_hours" validate:"gte=1"`
	PerTickerLimit int                 `toml:"per_ticker_limit" validate:"gte=1"`
	Timeout        string              `toml:"timeout"`
	Selection      models.RssSelection `toml:"selection"`
}

type SchedulerConfig struct {
	Enabled         bool    `toml:"enabled"`
	Schedule        string  `toml:"schedule"`         // Cron schedule format
	AlertConfidence float64 `toml:"alert_confidence"` // minimum setup confidence that raises an alert
}

type NotifyConfig struct {
	ReportDir string   `toml:"report_dir"` // empty disables the HTML and PDF report sinks
	PDF       bool     `toml:"pdf"`        // also write a PDF next to each HTML report
	EmailTo   []string `toml:"email_to" validate:"dive,email"`
	WebSocket bool     `toml:"websocket"` // stream alerts on /ws/alerts while serving
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 9090,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
			VariablesDir: ".",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		Providers: ProvidersConfig{
			Alpaca:           VendorConfig{Enabled: true},
			Polygon:          VendorConfig{Enabled: true},
			Finnhub:          VendorConfig{Enabled: true},
			FMP:              VendorConfig{Enabled: true},
			EODHD:            VendorConfig{Enabled: true},
			UseMockWhenEmpty: true,
		},
		Cache: CacheConfig{
			QuoteTTL:     "5s",
			IntradayTTL:  "2m",
			DailyTTL:     "24h",
			ProfileTTL:   "24h",
			MetricsTTL:   "24h",
			SentimentTTL: "15m",
			RedisPrefix:  "vigil:",
		},
		Retry: RetryConfig{
			MaxRetries:        3,
			InitialDelay:      "1s",
			MaxDelay:          "10s",
			Multiplier:        2.0,
			RateLimitCooldown: "5s",
		},
		Health: HealthConfig{
			EnforcedCooldown: "10m",
		},
		Breaker: BreakerConfig{
			Enabled:             true,
			ConsecutiveFailures: 5,
			OpenTimeout:         "60s",
			HalfOpenRequests:    1,
		},
		LLM: LLMConfig{
			DefaultProvider: "anthropic",
			DefaultModel:    "claude-sonnet-4-5",
		},
		Analysis: AnalysisConfig{
			Intent:            string(models.IntentSwing),
			Risk:              string(models.RiskModerate),
			AssetClass:        string(models.AssetEquity),
			DiscoveryMode:     string(models.DiscoveryStatic),
			MaxShortlist:      10,
			MaxDecisionKeep:   5,
			EnrichConcurrency: 4,
			Screener:          models.DefaultScreenerThresholds(),
			SaveHistory:       true,
		},
		RSS: RSSConfig{
			RetentionDays:  7,
			LookbackHours:  48,
			PerTickerLimit: 3,
			Timeout:        "15s",
		},
		Scheduler: SchedulerConfig{
			Enabled:         false,
			Schedule:        "30 9-16 * * 1-5", // half past every market hour, weekdays
			AlertConfidence: 0.75,
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
func LoadFromFile(kvStorage interfaces.KeyValueStorage, path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles(kvStorage)
	}
	return LoadFromFiles(kvStorage, path)
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env
// Later files override earlier files.
// kvStorage is accepted for symmetry with ResolveAPIKey and may be nil.
func LoadFromFiles(kvStorage interfaces.KeyValueStorage, paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadDotEnv loads .env style files into the process environment.
// Missing files are ignored; existing variables are never overwritten.
func LoadDotEnv(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("VIGIL_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("VIGIL_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("VIGIL_LOG_LEVEL"); level != "" {
		config.Logging.Level = strings.ToLower(level)
	}

	if path := os.Getenv("VIGIL_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	if addr := os.Getenv("VIGIL_REDIS_ADDR"); addr != "" {
		config.Cache.RedisAddr = addr
	}

	if provider := os.Getenv("VIGIL_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = strings.ToLower(provider)
	}
	if model := os.Getenv("VIGIL_LLM_MODEL"); model != "" {
		config.LLM.DefaultModel = model
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

var configValidator = validator.New()

// Validate checks field constraints and the scheduler expression.
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Scheduler.Enabled {
		if err := ValidateSchedule(c.Scheduler.Schedule); err != nil {
			return err
		}
	}
	return nil
}

// keyToEnvMapping maps KV store key names to environment variable names.
// Environment variables have highest priority; vendor-standard names come last.
var keyToEnvMapping = map[string][]string{
	"alpaca_api_key":    {"VIGIL_ALPACA_API_KEY", "APCA_API_KEY_ID"},
	"alpaca_api_secret": {"VIGIL_ALPACA_API_SECRET", "APCA_API_SECRET_KEY"},
	"polygon_api_key":   {"VIGIL_POLYGON_API_KEY", "POLYGON_API_KEY"},
	"finnhub_api_key":   {"VIGIL_FINNHUB_API_KEY", "FINNHUB_API_KEY"},
	"fmp_api_key":       {"VIGIL_FMP_API_KEY", "FMP_API_KEY"},
	"eodhd_api_key":     {"VIGIL_EODHD_API_KEY", "EODHD_API_KEY"},
	"anthropic_api_key": {"VIGIL_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"},
	"gemini_api_key":    {"VIGIL_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"openai_api_key":    {"VIGIL_OPENAI_API_KEY", "OPENAI_API_KEY"},
}

// ResolveAPIKey resolves an API key by name with environment variable priority
// Resolution order: environment variables → KV store → config fallback → error
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if kvStorage != nil {
		apiKey, err := kvStorage.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment, KV store, or config", name)
}

// ValidateSchedule validates a cron schedule expression and ensures minimum 5-minute interval
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	parts := strings.Fields(schedule)
	if len(parts) < 5 {
		return fmt.Errorf("invalid cron format: expected 5 fields")
	}

	minuteField := parts[0]
	if minuteField == "*" {
		return fmt.Errorf("schedule must have minimum 5-minute interval (every minute is not allowed)")
	}
	if strings.HasPrefix(minuteField, "*/") {
		interval, err := strconv.Atoi(strings.TrimPrefix(minuteField, "*/"))
		if err == nil && interval < 5 {
			return fmt.Errorf("schedule interval must be at least 5 minutes, got %d", interval)
		}
	}

	return nil
}

// ParseDuration parses a Go duration string, returning fallback when empty or invalid.
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
