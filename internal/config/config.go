// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration
	Host            string        `envconfig:"RICE_HOST" yaml:"host"`
	Port            int           `envconfig:"RICE_PORT" yaml:"port"`
	ReadTimeout     time.Duration `envconfig:"RICE_READ_TIMEOUT" yaml:"read_timeout"`
	WriteTimeout    time.Duration `envconfig:"RICE_WRITE_TIMEOUT" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `envconfig:"RICE_SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout"`

	// Access log configuration
	AccessLog AccessLogConfig `yaml:"access_log"`

	// Search configuration
	Search SearchConfig `yaml:"search"`

	// Logging configuration
	Log LogConfig `yaml:"log"`

	// Security configuration
	Security SecurityConfig `yaml:"security"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// AccessLogConfig holds access log settings.
type AccessLogConfig struct {
	// Output is stdout, stderr, or a file path. Files are opened for append.
	Output string `envconfig:"RICE_ACCESS_LOG_OUTPUT" yaml:"output"`
	// TrustForwarded takes the client ip from X-Forwarded-For / X-Real-IP.
	TrustForwarded bool `envconfig:"RICE_ACCESS_LOG_TRUST_FORWARDED" yaml:"trust_forwarded"`
	// Headers lists request headers recorded as attributes.
	Headers []string `envconfig:"RICE_ACCESS_LOG_HEADERS" yaml:"headers"`
}

// SearchConfig holds settings of the bundled document index.
type SearchConfig struct {
	Partitions     int           `envconfig:"RICE_SEARCH_PARTITIONS" yaml:"partitions"`
	DownPartitions []int         `envconfig:"RICE_SEARCH_DOWN_PARTITIONS" yaml:"down_partitions"`
	TimeBudget     time.Duration `envconfig:"RICE_SEARCH_TIME_BUDGET" yaml:"time_budget"`
	DefaultHits    int           `envconfig:"RICE_SEARCH_DEFAULT_HITS" yaml:"default_hits"`
	MaxHits        int           `envconfig:"RICE_SEARCH_MAX_HITS" yaml:"max_hits"`
	DocumentsFile  string        `envconfig:"RICE_SEARCH_DOCUMENTS_FILE" yaml:"documents_file"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"RICE_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"RICE_LOG_FORMAT" yaml:"format"`
}

// SecurityConfig holds security settings.
type SecurityConfig struct {
	RateLimit int `envconfig:"RICE_RATE_LIMIT" yaml:"rate_limit"` // 0 = disabled
}

// ObservabilityConfig holds observability settings.
type ObservabilityConfig struct {
	MetricsEnabled bool   `envconfig:"RICE_METRICS_ENABLED" yaml:"metrics_enabled"`
	MetricsPath    string `envconfig:"RICE_METRICS_PATH" yaml:"metrics_path"`
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Set defaults first
	setDefaults(cfg)

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.Host = "0.0.0.0"
	cfg.Port = 8080
	cfg.ReadTimeout = 30 * time.Second
	cfg.WriteTimeout = 60 * time.Second
	cfg.ShutdownTimeout = 30 * time.Second

	cfg.AccessLog = AccessLogConfig{
		Output: "stdout",
	}

	cfg.Search = SearchConfig{
		Partitions:  4,
		TimeBudget:  500 * time.Millisecond,
		DefaultHits: 10,
		MaxHits:     400,
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}

	cfg.Observability = ObservabilityConfig{
		MetricsEnabled: true,
		MetricsPath:    "/metrics",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}

	if c.AccessLog.Output == "" {
		errs = append(errs, "access_log.output must not be empty")
	}

	if c.Search.Partitions < 1 {
		errs = append(errs, "search.partitions must be positive")
	}
	for _, p := range c.Search.DownPartitions {
		if p < 0 || p >= c.Search.Partitions {
			errs = append(errs, fmt.Sprintf("search.down_partitions: %d out of range [0,%d)", p, c.Search.Partitions))
		}
	}
	if c.Search.TimeBudget <= 0 {
		errs = append(errs, "search.time_budget must be positive")
	}
	if c.Search.DefaultHits < 1 {
		errs = append(errs, "search.default_hits must be positive")
	}
	if c.Search.MaxHits < c.Search.DefaultHits {
		errs = append(errs, "search.max_hits must be at least search.default_hits")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if c.Security.RateLimit < 0 {
		errs = append(errs, "rate_limit must not be negative")
	}

	if c.Observability.MetricsEnabled && !strings.HasPrefix(c.Observability.MetricsPath, "/") {
		errs = append(errs, "metrics_path must start with /")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Address returns the server address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
