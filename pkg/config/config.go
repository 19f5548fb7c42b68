package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/activity-monitor/pkg/activity"
	"github.com/Veraticus/activity-monitor/pkg/input"
	"github.com/Veraticus/activity-monitor/pkg/report"
)

const envPrefix = "ACTIVITY_MONITOR_"

// Config holds all configuration for activity-monitor
type Config struct {
	IdleThreshold time.Duration `yaml:"idle_threshold" env:"ACTIVITY_MONITOR_IDLE_THRESHOLD"`

	// Export settings
	ExportDir     string   `yaml:"export_dir" env:"ACTIVITY_MONITOR_EXPORT_DIR"`
	ExportFormats []string `yaml:"export_formats" env:"ACTIVITY_MONITOR_EXPORT_FORMATS"`
	ExportOnStop  bool     `yaml:"export_on_stop" env:"ACTIVITY_MONITOR_EXPORT_ON_STOP"`

	// Event source
	Source  string   `yaml:"source" env:"ACTIVITY_MONITOR_SOURCE"`
	Command string   `yaml:"command" env:"ACTIVITY_MONITOR_COMMAND"`
	Args    []string `yaml:"args"`
	Mouse   bool     `yaml:"mouse" env:"ACTIVITY_MONITOR_MOUSE"`

	// Display
	StatusLine     bool          `yaml:"status_line" env:"ACTIVITY_MONITOR_STATUS_LINE"`
	StatusInterval time.Duration `yaml:"status_interval" env:"ACTIVITY_MONITOR_STATUS_INTERVAL"`

	MetricsAddr string `yaml:"metrics_addr" env:"ACTIVITY_MONITOR_METRICS_ADDR"`

	// Logging
	LogLevel  string `yaml:"log_level" env:"ACTIVITY_MONITOR_LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"ACTIVITY_MONITOR_LOG_FORMAT"`
	LogFile   string `yaml:"log_file" env:"ACTIVITY_MONITOR_LOG_FILE"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		IdleThreshold:  activity.DefaultIdleThreshold,
		ExportDir:      ".",
		ExportFormats:  []string{report.FormatCSV, report.FormatText},
		ExportOnStop:   true,
		Source:         input.KindTerminal,
		Mouse:          true,
		StatusLine:     true,
		StatusInterval: time.Second,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load loads configuration from file and environment. An explicit path
// must exist; the default locations are optional.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = getConfigPath()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil && (explicit || !os.IsNotExist(err)) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Override with environment variables
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// getConfigPath returns the config file path
func getConfigPath() string {
	// Check for explicit config path
	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		return path
	}

	// Check XDG config directory
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "activity-monitor", "config.yaml")
	}

	// Fall back to home directory
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "activity-monitor", "config.yaml")
	}

	return ""
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, path string) error {
	// #nosec G304 - The config file path comes from trusted sources (flag, env var or standard locations)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(cfg *Config) error {
	if v := os.Getenv(envPrefix + "IDLE_THRESHOLD"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sIDLE_THRESHOLD: %w", envPrefix, err)
		}
		cfg.IdleThreshold = d
	}

	if v := os.Getenv(envPrefix + "EXPORT_DIR"); v != "" {
		cfg.ExportDir = v
	}

	if v := os.Getenv(envPrefix + "EXPORT_FORMATS"); v != "" {
		cfg.ExportFormats = ParseFormats(v)
	}

	if err := envBool("EXPORT_ON_STOP", &cfg.ExportOnStop); err != nil {
		return err
	}

	if v := os.Getenv(envPrefix + "SOURCE"); v != "" {
		cfg.Source = v
	}

	if v := os.Getenv(envPrefix + "COMMAND"); v != "" {
		cfg.Command = v
	}

	if err := envBool("MOUSE", &cfg.Mouse); err != nil {
		return err
	}

	if err := envBool("STATUS_LINE", &cfg.StatusLine); err != nil {
		return err
	}

	if v := os.Getenv(envPrefix + "STATUS_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sSTATUS_INTERVAL: %w", envPrefix, err)
		}
		cfg.StatusInterval = d
	}

	if v := os.Getenv(envPrefix + "METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}

	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if v := os.Getenv(envPrefix + "LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	if v := os.Getenv(envPrefix + "LOG_FILE"); v != "" {
		cfg.LogFile = v
	}

	return nil
}

func envBool(name string, dst *bool) error {
	v := os.Getenv(envPrefix + name)
	switch v {
	case "":
	case "true", "1", "yes":
		*dst = true
	case "false", "0", "no":
		*dst = false
	default:
		return fmt.Errorf("invalid %s%s value: %q (use true/false)", envPrefix, name, v)
	}
	return nil
}

// ParseFormats splits a comma-separated format list.
func ParseFormats(s string) []string {
	var formats []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			formats = append(formats, f)
		}
	}
	return formats
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.IdleThreshold <= 0 {
		return &activity.ConfigurationError{
			Field:  "idle_threshold",
			Value:  c.IdleThreshold.String(),
			Reason: "must be positive",
		}
	}

	for _, f := range c.ExportFormats {
		if f != report.FormatCSV && f != report.FormatText {
			return fmt.Errorf("export_formats: unsupported format %q", f)
		}
	}

	if !slices.Contains([]string{input.KindTerminal, input.KindPTY}, c.Source) {
		return fmt.Errorf("source must be %q or %q, got %q", input.KindTerminal, input.KindPTY, c.Source)
	}

	if c.Source == input.KindPTY && c.Command == "" {
		return fmt.Errorf("command is required for the pty source")
	}

	if c.StatusInterval <= 0 {
		return fmt.Errorf("status_interval must be positive")
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}

	return nil
}
