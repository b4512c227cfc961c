package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the orchestration platform.
// It supports three-layer configuration priority:
//  1. Default values (lowest priority)
//  2. Environment variables (medium priority)
//  3. Functional options (highest priority), applied in the order given;
//     WithConfigFile is one of them, so values from a YAML file override
//     environment variables and are overridden by options listed after it
//
// Example usage:
//
//	cfg, err := NewConfig(
//	    WithName("orchestrad"),
//	    WithLogLevel("debug"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
type Config struct {
	// Core identity
	Name string `json:"name" env:"ORCHESTRA_NAME" default:"orchestrad"`

	// Providers configuration (one entry per vendor, keyed by provider name)
	Providers ProvidersConfig `json:"providers"`

	// Budget / cost ledger configuration
	Budget BudgetConfig `json:"budget"`

	// Drop Zone configuration
	DropZone DropZoneConfig `json:"dropzone"`

	// Telemetry configuration (optional OTel backing for the event emitter)
	Telemetry TelemetryConfig `json:"telemetry"`

	// Resilience configuration
	Resilience ResilienceConfig `json:"resilience"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`

	// Development configuration
	Development DevelopmentConfig `json:"development"`

	// Logger instance for configuration operations (excluded from JSON)
	logger Logger `json:"-"`
}

// ProviderConfig holds per-vendor LLM client settings.
type ProviderConfig struct {
	Enabled    bool          `json:"enabled" yaml:"enabled"`
	APIKey     string        `json:"api_key" yaml:"api_key"`
	BaseURL    string        `json:"base_url" yaml:"base_url"`
	Region     string        `json:"region" yaml:"region"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`
	MaxRetries int           `json:"max_retries" yaml:"max_retries"`
}

// ProvidersConfig holds settings for every supported vendor.
type ProvidersConfig struct {
	Anthropic ProviderConfig `json:"anthropic" yaml:"anthropic"`
	OpenAI    ProviderConfig `json:"openai" yaml:"openai"`
	Bedrock   ProviderConfig `json:"bedrock" yaml:"bedrock"`
	Gemini    ProviderConfig `json:"gemini" yaml:"gemini"`
}

// BudgetConfig contains cost-accounting thresholds.
// WarnThresholdUSD makes the ledger log a warning through its logger once
// per window when an agent's total reaches it; no budget_warn event is
// emitted for it. HardCapUSD causes the agent
// to refuse further invocations for the active window with
// ErrBudgetExceeded.
type BudgetConfig struct {
	WarnThresholdUSD float64       `json:"warn_threshold_usd" env:"ORCHESTRA_BUDGET_WARN_USD" default:"5.0"`
	HardCapUSD       float64       `json:"hard_cap_usd" env:"ORCHESTRA_BUDGET_HARD_CAP_USD" default:"25.0"`
	WindowDuration   time.Duration `json:"window_duration" env:"ORCHESTRA_BUDGET_WINDOW" default:"24h"`
	PriceTablePath   string        `json:"price_table_path" env:"ORCHESTRA_PRICE_TABLE_PATH"`
}

// DropZoneConfig contains directory-watcher settings for the Drop Zone.
type DropZoneConfig struct {
	Enabled    bool   `json:"enabled" env:"ORCHESTRA_DROPZONE_ENABLED" default:"false"`
	WatchDir   string `json:"watch_dir" env:"ORCHESTRA_DROPZONE_DIR" default:"./dropzone/tasks"`
	ResultsDir string `json:"results_dir" env:"ORCHESTRA_DROPZONE_RESULTS_DIR" default:"./dropzone/results"`
	ArchiveDir string `json:"archive_dir" env:"ORCHESTRA_DROPZONE_ARCHIVE_DIR" default:"./dropzone/archive"`
}

// TelemetryConfig contains observability configuration for metrics and
// distributed tracing. This is an optional module — the event emitter's
// JSONL sinks are always the system of record; OTel is supplemental.
type TelemetryConfig struct {
	Enabled        bool    `json:"enabled" env:"ORCHESTRA_TELEMETRY_ENABLED" default:"false"`
	Endpoint       string  `json:"endpoint" env:"ORCHESTRA_TELEMETRY_ENDPOINT,OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName    string  `json:"service_name" env:"ORCHESTRA_TELEMETRY_SERVICE_NAME,OTEL_SERVICE_NAME"`
	MetricsEnabled bool    `json:"metrics_enabled" env:"ORCHESTRA_TELEMETRY_METRICS" default:"true"`
	TracingEnabled bool    `json:"tracing_enabled" env:"ORCHESTRA_TELEMETRY_TRACING" default:"true"`
	SamplingRate   float64 `json:"sampling_rate" env:"ORCHESTRA_TELEMETRY_SAMPLING_RATE" default:"1.0"`
	Insecure       bool    `json:"insecure" env:"ORCHESTRA_TELEMETRY_INSECURE" default:"true"`
}

// ResilienceConfig contains fault tolerance settings that NewConfig loads
// and validates. The agent layer's circuit breakers take their threshold
// and recovery timeout from agent.Config; no package in this module reads
// these fields.
type ResilienceConfig struct {
	CircuitBreaker CircuitBreakerSettings `json:"circuit_breaker"`
	Retry          RetrySettings          `json:"retry"`
	Timeout        TimeoutConfig          `json:"timeout"`
}

// CircuitBreakerSettings holds circuit breaker tunables that can be set
// from the environment.
type CircuitBreakerSettings struct {
	ErrorThreshold   float64       `json:"error_threshold" env:"ORCHESTRA_CB_ERROR_THRESHOLD" default:"0.5"`
	VolumeThreshold  int           `json:"volume_threshold" env:"ORCHESTRA_CB_VOLUME_THRESHOLD" default:"10"`
	SleepWindow      time.Duration `json:"sleep_window" env:"ORCHESTRA_CB_SLEEP_WINDOW" default:"30s"`
	HalfOpenRequests int           `json:"half_open_requests" env:"ORCHESTRA_CB_HALF_OPEN" default:"3"`
}

// RetrySettings defines retry pattern settings with exponential backoff.
type RetrySettings struct {
	MaxAttempts   int           `json:"max_attempts" env:"ORCHESTRA_RETRY_MAX_ATTEMPTS" default:"3"`
	InitialDelay  time.Duration `json:"initial_delay" env:"ORCHESTRA_RETRY_INITIAL_DELAY" default:"250ms"`
	MaxDelay      time.Duration `json:"max_delay" env:"ORCHESTRA_RETRY_MAX_DELAY" default:"10s"`
	BackoffFactor float64       `json:"backoff_factor" env:"ORCHESTRA_RETRY_BACKOFF_FACTOR" default:"2.0"`
}

// TimeoutConfig defines timeout settings for provider invocations.
type TimeoutConfig struct {
	DefaultTimeout time.Duration `json:"default_timeout" env:"ORCHESTRA_TIMEOUT_DEFAULT" default:"60s"`
	MaxTimeout     time.Duration `json:"max_timeout" env:"ORCHESTRA_TIMEOUT_MAX" default:"5m"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level      string `json:"level" env:"ORCHESTRA_LOG_LEVEL" default:"info"`
	Format     string `json:"format" env:"ORCHESTRA_LOG_FORMAT" default:"json"`
	Output     string `json:"output" env:"ORCHESTRA_LOG_OUTPUT" default:"stdout"`
	TimeFormat string `json:"time_format" env:"ORCHESTRA_LOG_TIME_FORMAT" default:"2006-01-02T15:04:05.000Z07:00"`
}

// DevelopmentConfig contains settings for local development and testing.
type DevelopmentConfig struct {
	Enabled      bool `json:"enabled" env:"ORCHESTRA_DEV_MODE" default:"false"`
	MockProvider bool `json:"mock_provider" env:"ORCHESTRA_MOCK_PROVIDER" default:"false"`
	DebugLogging bool `json:"debug_logging" env:"ORCHESTRA_DEBUG" default:"false"`
	PrettyLogs   bool `json:"pretty_logs" env:"ORCHESTRA_PRETTY_LOGS" default:"false"`
}

// Option is a functional option for configuring the platform. Options are
// applied in order and can return an error if the configuration is invalid.
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults for local
// development: text logging, no providers enabled, Drop Zone disabled.
func DefaultConfig() *Config {
	return &Config{
		Name: "orchestrad",
		Providers: ProvidersConfig{
			Anthropic: ProviderConfig{Timeout: 60 * time.Second, MaxRetries: 3},
			OpenAI:    ProviderConfig{Timeout: 60 * time.Second, MaxRetries: 3},
			Bedrock:   ProviderConfig{Timeout: 60 * time.Second, MaxRetries: 3, Region: "us-east-1"},
			Gemini:    ProviderConfig{Timeout: 60 * time.Second, MaxRetries: 3},
		},
		Budget: BudgetConfig{
			WarnThresholdUSD: 5.0,
			HardCapUSD:       25.0,
			WindowDuration:   24 * time.Hour,
		},
		DropZone: DropZoneConfig{
			Enabled:    false,
			WatchDir:   "./dropzone/tasks",
			ResultsDir: "./dropzone/results",
			ArchiveDir: "./dropzone/archive",
		},
		Telemetry: TelemetryConfig{
			Enabled:        false,
			ServiceName:    "orchestrad",
			MetricsEnabled: true,
			TracingEnabled: true,
			SamplingRate:   1.0,
			Insecure:       true,
		},
		Resilience: ResilienceConfig{
			CircuitBreaker: CircuitBreakerSettings{
				ErrorThreshold:   0.5,
				VolumeThreshold:  10,
				SleepWindow:      30 * time.Second,
				HalfOpenRequests: 3,
			},
			Retry: RetrySettings{
				MaxAttempts:   3,
				InitialDelay:  250 * time.Millisecond,
				MaxDelay:      10 * time.Second,
				BackoffFactor: 2.0,
			},
			Timeout: TimeoutConfig{
				DefaultTimeout: 60 * time.Second,
				MaxTimeout:     5 * time.Minute,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stdout",
			TimeFormat: time.RFC3339Nano,
		},
		Development: DevelopmentConfig{
			Enabled:    os.Getenv("ORCHESTRA_DEV_MODE") != "",
			PrettyLogs: true,
		},
	}
}

// LoadFromEnv overlays environment variables onto the config. Standard
// provider credential variables (ANTHROPIC_API_KEY, OPENAI_API_KEY,
// GOOGLE_API_KEY) are honored alongside ORCHESTRA_-prefixed overrides.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("ORCHESTRA_NAME"); v != "" {
		c.Name = v
	}

	if v := firstNonEmptyEnv("ORCHESTRA_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"); v != "" {
		c.Providers.Anthropic.APIKey = v
		c.Providers.Anthropic.Enabled = true
	}
	if v := firstNonEmptyEnv("ORCHESTRA_OPENAI_API_KEY", "OPENAI_API_KEY"); v != "" {
		c.Providers.OpenAI.APIKey = v
		c.Providers.OpenAI.Enabled = true
	}
	if v := firstNonEmptyEnv("ORCHESTRA_GEMINI_API_KEY", "GOOGLE_API_KEY"); v != "" {
		c.Providers.Gemini.APIKey = v
		c.Providers.Gemini.Enabled = true
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.Providers.Bedrock.Region = v
	}
	if v := os.Getenv("ORCHESTRA_BEDROCK_ENABLED"); v != "" {
		c.Providers.Bedrock.Enabled = parseBool(v)
	}

	if v := os.Getenv("ORCHESTRA_BUDGET_WARN_USD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Budget.WarnThresholdUSD = f
		}
	}
	if v := os.Getenv("ORCHESTRA_BUDGET_HARD_CAP_USD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Budget.HardCapUSD = f
		}
	}
	if v := os.Getenv("ORCHESTRA_PRICE_TABLE_PATH"); v != "" {
		c.Budget.PriceTablePath = v
	}

	if v := os.Getenv("ORCHESTRA_DROPZONE_ENABLED"); v != "" {
		c.DropZone.Enabled = parseBool(v)
	}
	if v := os.Getenv("ORCHESTRA_DROPZONE_DIR"); v != "" {
		c.DropZone.WatchDir = v
	}

	if v := firstNonEmptyEnv("ORCHESTRA_TELEMETRY_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
		c.Telemetry.Enabled = true
	}

	if v := os.Getenv("ORCHESTRA_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ORCHESTRA_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("ORCHESTRA_DEBUG"); v != "" {
		c.Development.DebugLogging = parseBool(v)
	}
	if v := os.Getenv("ORCHESTRA_MOCK_PROVIDER"); v != "" {
		c.Development.MockProvider = parseBool(v)
	}

	if c.logger != nil {
		c.logger.Info("loaded configuration from environment", map[string]interface{}{
			"config_source": "environment_variables",
		})
	}

	return nil
}

// LoadFromFile overlays a YAML configuration file onto the config. Fields
// absent from the file are left untouched, so a file only needs to specify
// overrides.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Name == "" {
		return NewFrameworkError("Config.Validate", ErrorKindInvalidConfiguration, "", "name must not be empty", nil)
	}
	if c.Budget.HardCapUSD <= 0 {
		return NewFrameworkError("Config.Validate", ErrorKindInvalidConfiguration, "", "budget.hard_cap_usd must be positive", nil)
	}
	if c.Budget.WarnThresholdUSD > c.Budget.HardCapUSD {
		return NewFrameworkError("Config.Validate", ErrorKindInvalidConfiguration, "", "budget.warn_threshold_usd must not exceed hard_cap_usd", nil)
	}
	if c.Resilience.CircuitBreaker.ErrorThreshold <= 0 || c.Resilience.CircuitBreaker.ErrorThreshold > 1 {
		return NewFrameworkError("Config.Validate", ErrorKindInvalidConfiguration, "", "resilience.circuit_breaker.error_threshold must be in (0, 1]", nil)
	}
	if c.DropZone.Enabled && c.DropZone.WatchDir == "" {
		return NewFrameworkError("Config.Validate", ErrorKindInvalidConfiguration, "", "dropzone.watch_dir must be set when dropzone is enabled", nil)
	}
	return nil
}

func firstNonEmptyEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}

// WithName sets the service name used in logs and trace service attributes.
func WithName(name string) Option {
	return func(c *Config) error {
		if name == "" {
			return fmt.Errorf("name must not be empty")
		}
		c.Name = name
		return nil
	}
}

// WithAnthropicAPIKey configures the Anthropic provider.
func WithAnthropicAPIKey(key string) Option {
	return func(c *Config) error {
		c.Providers.Anthropic.APIKey = key
		c.Providers.Anthropic.Enabled = key != ""
		return nil
	}
}

// WithOpenAIAPIKey configures the OpenAI provider.
func WithOpenAIAPIKey(key string) Option {
	return func(c *Config) error {
		c.Providers.OpenAI.APIKey = key
		c.Providers.OpenAI.Enabled = key != ""
		return nil
	}
}

// WithBudget sets the warn/hard-cap thresholds for the cost ledger.
func WithBudget(warnUSD, hardCapUSD float64) Option {
	return func(c *Config) error {
		if warnUSD > hardCapUSD {
			return fmt.Errorf("warn threshold %.2f exceeds hard cap %.2f", warnUSD, hardCapUSD)
		}
		c.Budget.WarnThresholdUSD = warnUSD
		c.Budget.HardCapUSD = hardCapUSD
		return nil
	}
}

// WithDropZone enables the Drop Zone and sets its watched directory.
func WithDropZone(watchDir string) Option {
	return func(c *Config) error {
		c.DropZone.Enabled = true
		c.DropZone.WatchDir = watchDir
		return nil
	}
}

// WithTelemetry enables the optional OTel backing for the event emitter.
func WithTelemetry(enabled bool, endpoint string) Option {
	return func(c *Config) error {
		c.Telemetry.Enabled = enabled
		c.Telemetry.Endpoint = endpoint
		return nil
	}
}

// WithLogLevel overrides the log level (debug, info, warn, error).
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		c.Logging.Level = level
		return nil
	}
}

// WithLogFormat overrides the log format (json, text).
func WithLogFormat(format string) Option {
	return func(c *Config) error {
		if format != "json" && format != "text" {
			return fmt.Errorf("log format must be json or text, got %q", format)
		}
		c.Logging.Format = format
		return nil
	}
}

// WithCircuitBreaker overrides Resilience.CircuitBreaker's error threshold
// and sleep window. The agent layer's breakers do not read these fields;
// they are configured through agent.Config.
func WithCircuitBreaker(errorThreshold float64, sleepWindow time.Duration) Option {
	return func(c *Config) error {
		c.Resilience.CircuitBreaker.ErrorThreshold = errorThreshold
		c.Resilience.CircuitBreaker.SleepWindow = sleepWindow
		return nil
	}
}

// WithConfigFile loads a YAML file when the option is applied: after
// environment variables, and in list order among the other options, so
// options listed after it override values from the file.
func WithConfigFile(path string) Option {
	return func(c *Config) error {
		return c.LoadFromFile(path)
	}
}

// WithDevelopmentMode sets Development.Enabled and Development.PrettyLogs.
// It does not change Development.MockProvider; WithMockProvider sets that.
func WithDevelopmentMode(enabled bool) Option {
	return func(c *Config) error {
		c.Development.Enabled = enabled
		c.Development.PrettyLogs = enabled
		return nil
	}
}

// WithMockProvider forces every provider adapter to use the deterministic
// in-memory mock, regardless of configured credentials.
func WithMockProvider(enabled bool) Option {
	return func(c *Config) error {
		c.Development.MockProvider = enabled
		return nil
	}
}

// WithLogger overrides the logger used for configuration-time diagnostics.
func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.logger = logger
		return nil
	}
}

// NewConfig builds a Config from defaults, environment variables, and the
// given functional options, in that priority order, then validates the
// result.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env config: %w", err)
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if cfg.logger == nil {
		logger := NewProductionLogger(cfg.Logging, cfg.Development, cfg.Name)
		if prodLogger, ok := logger.(*ProductionLogger); ok {
			trackLogger(prodLogger)
		}
		cfg.logger = logger
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Logger returns the Config's logger, built from LoggingConfig during
// NewConfig (or overridden via WithLogger). Composition roots wiring the
// rest of the platform from a *Config use this rather than constructing
// their own ProductionLogger.
func (c *Config) Logger() Logger {
	return c.logger
}

// ============================================================================
// ProductionLogger Implementation - Layered Observability Architecture
// ============================================================================

// ProductionLogger provides layered observability for platform operations:
// a structured log line always, plus an optional metrics emission layer
// enabled once a telemetry provider registers itself via
// SetMetricsRegistry.
type ProductionLogger struct {
	level       string
	debug       bool
	serviceName string
	format      string
	output      io.Writer

	metricsEnabled bool
}

// NewProductionLogger creates a logger from LoggingConfig.
func NewProductionLogger(logging LoggingConfig, dev DevelopmentConfig, serviceName string) Logger {
	var output io.Writer = os.Stdout
	if logging.Output == "stderr" {
		output = os.Stderr
	}

	return &ProductionLogger{
		level:          strings.ToLower(logging.Level),
		debug:          dev.DebugLogging || logging.Level == "debug",
		serviceName:    serviceName,
		format:         logging.Format,
		output:         output,
		metricsEnabled: false,
	}
}

// EnableMetrics is called by the telemetry module when it registers itself.
func (p *ProductionLogger) EnableMetrics() {
	p.metricsEnabled = true
}

func (p *ProductionLogger) Info(msg string, fields map[string]interface{}) {
	p.logEvent("INFO", msg, fields, nil)
}

func (p *ProductionLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.logEvent("INFO", msg, fields, ctx)
}

func (p *ProductionLogger) Error(msg string, fields map[string]interface{}) {
	p.logEvent("ERROR", msg, fields, nil)
}

func (p *ProductionLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.logEvent("ERROR", msg, fields, ctx)
}

func (p *ProductionLogger) Warn(msg string, fields map[string]interface{}) {
	p.logEvent("WARN", msg, fields, nil)
}

func (p *ProductionLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.logEvent("WARN", msg, fields, ctx)
}

func (p *ProductionLogger) Debug(msg string, fields map[string]interface{}) {
	if p.debug {
		p.logEvent("DEBUG", msg, fields, nil)
	}
}

func (p *ProductionLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	if p.debug {
		p.logEvent("DEBUG", msg, fields, ctx)
	}
}

func (p *ProductionLogger) logEvent(level, msg string, fields map[string]interface{}, ctx context.Context) {
	timestamp := time.Now().Format(time.RFC3339)

	if p.format == "json" {
		logEntry := map[string]interface{}{
			"timestamp": timestamp,
			"level":     level,
			"service":   p.serviceName,
			"message":   msg,
		}

		if ctx != nil && p.metricsEnabled {
			if baggage := getContextBaggage(ctx); len(baggage) > 0 {
				for k, v := range baggage {
					logEntry["trace."+k] = v
				}
			}
		}

		for k, v := range fields {
			logEntry[k] = v
		}

		if data, err := json.Marshal(logEntry); err == nil {
			fmt.Fprintln(p.output, string(data))
		}
	} else {
		traceInfo := ""
		if ctx != nil && p.metricsEnabled {
			if baggage := getContextBaggage(ctx); baggage["request_id"] != "" {
				traceInfo = fmt.Sprintf("[req=%s] ", baggage["request_id"])
			}
		}

		var fieldStr strings.Builder
		if len(fields) > 0 {
			fieldStr.WriteString(" ")
			for k, v := range fields {
				fieldStr.WriteString(fmt.Sprintf("%s=%v ", k, v))
			}
		}

		fmt.Fprintf(p.output, "%s [%s] [%s] %s%s%s\n",
			timestamp, level, p.serviceName, traceInfo, msg, fieldStr.String())
	}

	if p.metricsEnabled {
		p.emitFrameworkMetric(level, msg, fields, ctx)
	}
}

func (p *ProductionLogger) emitFrameworkMetric(level, msg string, fields map[string]interface{}, ctx context.Context) {
	labels := []string{
		"level", level,
		"service", p.serviceName,
	}

	for k, v := range fields {
		switch k {
		case "operation", "status", "error_kind", "provider", "workflow":
			labels = append(labels, k, fmt.Sprintf("%v", v))
		}
	}

	if ctx != nil {
		emitMetricWithContext(ctx, "orchestra.platform.operations", 1.0, labels...)
	} else {
		emitMetric("orchestra.platform.operations", 1.0, labels...)
	}
}

func emitMetric(name string, value float64, labels ...string) {
	if globalMetricsRegistry != nil {
		globalMetricsRegistry.Counter(name, labels...)
	}
}

func emitMetricWithContext(ctx context.Context, name string, value float64, labels ...string) {
	if globalMetricsRegistry != nil {
		globalMetricsRegistry.EmitWithContext(ctx, name, value, labels...)
	}
}

func getContextBaggage(ctx context.Context) map[string]string {
	if globalMetricsRegistry != nil {
		return globalMetricsRegistry.GetBaggage(ctx)
	}
	return make(map[string]string)
}
