// Package config provides CLI configuration management for the ffdl command-line tool.
// It supports loading configuration from YAML files, environment variables, and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/export"
)

// OutputFormat defines the supported output formats for CLI results.
type OutputFormat string

const (
	// OutputFormatText is human-readable plain text output.
	OutputFormatText OutputFormat = "text"
	// OutputFormatJSON is JSON-formatted output for machine processing.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML is YAML-formatted output for machine processing.
	OutputFormatYAML OutputFormat = "yaml"
)

// LogFormat selects how diagnostic logs are rendered.
type LogFormat string

const (
	LogFormatConsole LogFormat = "console"
	LogFormatJSON    LogFormat = "json"
)

// Default configuration values.
const (
	DefaultAPIEndpoint   = "https://api.fireflies.ai/graphql"
	DefaultOutputDir     = "."
	DefaultTimeout       = 5 * time.Minute
	DefaultPageSize      = 1
	DefaultRetryMax      = 3
	DefaultOutputFormat  = OutputFormatText
	DefaultLogFormat     = LogFormatConsole
	DefaultEventsChannel = "events.transcript.exported"
	DefaultConfigDir     = ".ffdl"
	DefaultConfigFile    = "config.yaml"
)

// EventsConfig holds event publication settings. Redis publication is off
// unless RedisAddr is set; Kafka publication is off unless KafkaBrokers is set.
type EventsConfig struct {
	RedisAddr     string   `yaml:"redis_addr,omitempty"`
	RedisPassword string   `yaml:"redis_password,omitempty"`
	RedisDB       int      `yaml:"redis_db,omitempty"`
	Channel       string   `yaml:"channel,omitempty"`
	KafkaBrokers  []string `yaml:"kafka_brokers,omitempty"`
	KafkaTopic    string   `yaml:"kafka_topic,omitempty"`
}

// Enabled reports whether events should be published at all.
func (c EventsConfig) Enabled() bool {
	return c.RedisEnabled() || c.KafkaEnabled()
}

// RedisEnabled reports whether events go to Redis.
func (c EventsConfig) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// KafkaEnabled reports whether events go to Kafka.
func (c EventsConfig) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// RunLogConfig holds the PostgreSQL run history settings.
type RunLogConfig struct {
	// DSN is a lib/pq connection string or URL.
	DSN string `yaml:"dsn,omitempty"`
}

// Enabled reports whether results should be recorded.
func (c RunLogConfig) Enabled() bool {
	return c.DSN != ""
}

// CLIConfig holds the CLI configuration settings.
type CLIConfig struct {
	// APIEndpoint is the Fireflies GraphQL endpoint.
	APIEndpoint string `yaml:"api_endpoint"`

	// OutputDir is the root under which dated artifact directories are created.
	OutputDir string `yaml:"output_dir"`

	// Timeout bounds a single Fireflies API request attempt. Media downloads
	// are bounded only by cancellation.
	Timeout time.Duration `yaml:"timeout"`

	// PageSize is the number of transcripts requested per page.
	PageSize int `yaml:"page_size"`

	// RetryMax is the number of retries for transient HTTP failures.
	RetryMax int `yaml:"retry_max"`

	// Formats lists the artifact writers to run. Empty means all.
	Formats []string `yaml:"formats,omitempty"`

	// DownloadMedia enables audio and video downloads.
	DownloadMedia bool `yaml:"download_media"`

	// OutputFormat specifies the default output format for commands.
	OutputFormat OutputFormat `yaml:"output_format"`

	// LogFormat selects console or JSON logs on stderr.
	LogFormat LogFormat `yaml:"log_format"`

	// Debug enables verbose debug logging.
	Debug bool `yaml:"debug,omitempty"`

	// Events configures optional Redis publication.
	Events EventsConfig `yaml:"events,omitempty"`

	// RunLog configures optional PostgreSQL run history.
	RunLog RunLogConfig `yaml:"runlog,omitempty"`

	// MetricsFile, when set, receives Prometheus textfile metrics after each run.
	MetricsFile string `yaml:"metrics_file,omitempty"`
}

// DefaultConfig returns a CLIConfig with default values.
func DefaultConfig() *CLIConfig {
	return &CLIConfig{
		APIEndpoint:   DefaultAPIEndpoint,
		OutputDir:     DefaultOutputDir,
		Timeout:       DefaultTimeout,
		PageSize:      DefaultPageSize,
		RetryMax:      DefaultRetryMax,
		Formats:       export.Names(),
		DownloadMedia: true,
		OutputFormat:  DefaultOutputFormat,
		LogFormat:     DefaultLogFormat,
		Events:        EventsConfig{Channel: DefaultEventsChannel},
	}
}

// ConfigDir returns the configuration directory path.
// Uses $FFDL_CONFIG_DIR if set, otherwise ~/.ffdl
func ConfigDir() (string, error) {
	if dir := os.Getenv("FFDL_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// LoadConfig loads the CLI configuration from file and environment variables.
// Configuration is loaded in this order (later sources override earlier):
// 1. Default values
// 2. Config file (~/.ffdl/config.yaml or $FFDL_CONFIG_DIR/config.yaml)
// 3. Environment variables (FFDL_*)
func LoadConfig() (*CLIConfig, error) {
	cfg := DefaultConfig()

	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// configFile mirrors CLIConfig with YAML-friendly types: durations as strings
// and pointers where an explicit false or zero must override a default.
type configFile struct {
	APIEndpoint   string       `yaml:"api_endpoint,omitempty"`
	OutputDir     string       `yaml:"output_dir,omitempty"`
	Timeout       string       `yaml:"timeout,omitempty"`
	PageSize      int          `yaml:"page_size,omitempty"`
	RetryMax      *int         `yaml:"retry_max,omitempty"`
	Formats       []string     `yaml:"formats,omitempty"`
	DownloadMedia *bool        `yaml:"download_media,omitempty"`
	OutputFormat  OutputFormat `yaml:"output_format,omitempty"`
	LogFormat     LogFormat    `yaml:"log_format,omitempty"`
	Debug         bool         `yaml:"debug,omitempty"`
	Events        EventsConfig `yaml:"events,omitempty"`
	RunLog        RunLogConfig `yaml:"runlog,omitempty"`
	MetricsFile   string       `yaml:"metrics_file,omitempty"`
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *CLIConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var fileCfg configFile
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if fileCfg.APIEndpoint != "" {
		cfg.APIEndpoint = fileCfg.APIEndpoint
	}
	if fileCfg.OutputDir != "" {
		cfg.OutputDir = fileCfg.OutputDir
	}
	if fileCfg.Timeout != "" {
		timeout, err := time.ParseDuration(fileCfg.Timeout)
		if err != nil {
			return fmt.Errorf("parsing timeout: %w", err)
		}
		cfg.Timeout = timeout
	}
	if fileCfg.PageSize != 0 {
		cfg.PageSize = fileCfg.PageSize
	}
	if fileCfg.RetryMax != nil {
		cfg.RetryMax = *fileCfg.RetryMax
	}
	if len(fileCfg.Formats) > 0 {
		cfg.Formats = fileCfg.Formats
	}
	if fileCfg.DownloadMedia != nil {
		cfg.DownloadMedia = *fileCfg.DownloadMedia
	}
	if fileCfg.OutputFormat != "" {
		cfg.OutputFormat = fileCfg.OutputFormat
	}
	if fileCfg.LogFormat != "" {
		cfg.LogFormat = fileCfg.LogFormat
	}
	cfg.Debug = fileCfg.Debug
	if fileCfg.Events.RedisAddr != "" {
		cfg.Events.RedisAddr = fileCfg.Events.RedisAddr
	}
	if fileCfg.Events.RedisPassword != "" {
		cfg.Events.RedisPassword = fileCfg.Events.RedisPassword
	}
	if fileCfg.Events.RedisDB != 0 {
		cfg.Events.RedisDB = fileCfg.Events.RedisDB
	}
	if fileCfg.Events.Channel != "" {
		cfg.Events.Channel = fileCfg.Events.Channel
	}
	if len(fileCfg.Events.KafkaBrokers) > 0 {
		cfg.Events.KafkaBrokers = fileCfg.Events.KafkaBrokers
	}
	if fileCfg.Events.KafkaTopic != "" {
		cfg.Events.KafkaTopic = fileCfg.Events.KafkaTopic
	}
	if fileCfg.RunLog.DSN != "" {
		cfg.RunLog.DSN = fileCfg.RunLog.DSN
	}
	if fileCfg.MetricsFile != "" {
		cfg.MetricsFile = fileCfg.MetricsFile
	}

	return nil
}

// loadFromEnv overlays environment variables onto the configuration.
// Malformed numeric or duration values are reported rather than ignored.
func loadFromEnv(cfg *CLIConfig) error {
	if v := os.Getenv("FFDL_API_ENDPOINT"); v != "" {
		cfg.APIEndpoint = v
	}

	if v := os.Getenv("FFDL_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}

	if v := os.Getenv("FFDL_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing FFDL_TIMEOUT: %w", err)
		}
		cfg.Timeout = timeout
	}

	if v := os.Getenv("FFDL_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing FFDL_PAGE_SIZE: %w", err)
		}
		cfg.PageSize = n
	}

	if v := os.Getenv("FFDL_RETRY_MAX"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing FFDL_RETRY_MAX: %w", err)
		}
		cfg.RetryMax = n
	}

	if v := os.Getenv("FFDL_FORMATS"); v != "" {
		cfg.Formats = SplitList(v)
	}

	if v := os.Getenv("FFDL_DOWNLOAD_MEDIA"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing FFDL_DOWNLOAD_MEDIA: %w", err)
		}
		cfg.DownloadMedia = b
	}

	if v := os.Getenv("FFDL_OUTPUT_FORMAT"); v != "" {
		cfg.OutputFormat = OutputFormat(v)
	}

	if v := os.Getenv("FFDL_LOG_FORMAT"); v != "" {
		cfg.LogFormat = LogFormat(v)
	}

	if v := os.Getenv("FFDL_DEBUG"); v == "true" || v == "1" {
		cfg.Debug = true
	}

	if v := os.Getenv("FFDL_REDIS_ADDR"); v != "" {
		cfg.Events.RedisAddr = v
	}
	if v := os.Getenv("FFDL_REDIS_PASSWORD"); v != "" {
		cfg.Events.RedisPassword = v
	}
	if v := os.Getenv("FFDL_EVENTS_CHANNEL"); v != "" {
		cfg.Events.Channel = v
	}
	if v := os.Getenv("FFDL_KAFKA_BROKERS"); v != "" {
		cfg.Events.KafkaBrokers = SplitList(v)
	}
	if v := os.Getenv("FFDL_KAFKA_TOPIC"); v != "" {
		cfg.Events.KafkaTopic = v
	}

	if v := os.Getenv("FFDL_RUNLOG_DSN"); v != "" {
		cfg.RunLog.DSN = v
	}

	if v := os.Getenv("FFDL_METRICS_FILE"); v != "" {
		cfg.MetricsFile = v
	}

	return nil
}

// SplitList splits a comma-separated list, trimming blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks that the configuration is valid.
func (c *CLIConfig) Validate() error {
	if c.APIEndpoint == "" {
		return fmt.Errorf("api_endpoint is required")
	}

	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive")
	}

	if c.RetryMax < 0 {
		return fmt.Errorf("retry_max must not be negative")
	}

	for _, f := range c.Formats {
		if !export.IsFormat(strings.ToLower(f)) {
			return fmt.Errorf("invalid format: %q (must be one of %s)", f, strings.Join(export.Names(), ", "))
		}
	}

	if !c.OutputFormat.IsValid() {
		return fmt.Errorf("invalid output_format: %q (must be text, json, or yaml)", c.OutputFormat)
	}

	if !c.LogFormat.IsValid() {
		return fmt.Errorf("invalid log_format: %q (must be console or json)", c.LogFormat)
	}

	return nil
}

// IsValid checks if the output format is valid.
func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML:
		return true
	default:
		return false
	}
}

// String returns the string representation of the output format.
func (f OutputFormat) String() string {
	return string(f)
}

// IsValid checks if the log format is valid.
func (f LogFormat) IsValid() bool {
	return f == LogFormatConsole || f == LogFormatJSON
}

// SaveConfig saves the configuration to the config file.
func SaveConfig(cfg *CLIConfig) error {
	configDir, err := ConfigDir()
	if err != nil {
		return fmt.Errorf("getting config directory: %w", err)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(configDir, DefaultConfigFile)

	retryMax := cfg.RetryMax
	downloadMedia := cfg.DownloadMedia
	fileCfg := configFile{
		APIEndpoint:   cfg.APIEndpoint,
		OutputDir:     cfg.OutputDir,
		Timeout:       cfg.Timeout.String(),
		PageSize:      cfg.PageSize,
		RetryMax:      &retryMax,
		Formats:       cfg.Formats,
		DownloadMedia: &downloadMedia,
		OutputFormat:  cfg.OutputFormat,
		LogFormat:     cfg.LogFormat,
		Debug:         cfg.Debug,
		Events:        cfg.Events,
		RunLog:        cfg.RunLog,
		MetricsFile:   cfg.MetricsFile,
	}

	data, err := yaml.Marshal(&fileCfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	// The file may hold a Redis password or DSN.
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// ResolvedOutputDir returns OutputDir with ~ expanded.
func (c *CLIConfig) ResolvedOutputDir() (string, error) {
	return ExpandPath(c.OutputDir)
}
