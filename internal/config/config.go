package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Queue    QueueConfig    `yaml:"queue"`
	Printer  PrinterConfig  `yaml:"printer"`
	Webhooks WebhookConfig  `yaml:"webhooks"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	AuthEnabled  bool          `yaml:"auth_enabled"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type QueueConfig struct {
	PollInterval  time.Duration `yaml:"poll_interval"`
	MaxAttempts   int           `yaml:"max_attempts"`
	BatchLimit    int           `yaml:"batch_limit"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	LeaseTimeout  time.Duration `yaml:"lease_timeout"`
	RetentionDays int           `yaml:"retention_days"`
}

type PrinterConfig struct {
	// Simulation routes print jobs to a no-op generator instead of the
	// real device command.
	Simulation bool    `yaml:"simulation"`
	Command    string  `yaml:"command"`
	FailRate   float64 `yaml:"fail_rate"`
}

type WebhookConfig struct {
	Enabled bool          `yaml:"enabled"`
	URLs    []string      `yaml:"urls"`
	Secret  string        `yaml:"secret"`
	Timeout time.Duration `yaml:"timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "./data/taskspool.db",
		},
		Queue: QueueConfig{
			PollInterval:  5 * time.Second,
			MaxAttempts:   3,
			BatchLimit:    10,
			RetryDelay:    0,
			LeaseTimeout:  0,
			RetentionDays: 7,
		},
		Printer: PrinterConfig{
			Simulation: true,
		},
		Webhooks: WebhookConfig{
			Timeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the YAML config at configPath on top of the defaults, then
// applies SPOOL_* environment overrides. A missing file is not an error.
func Load(configPath string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SPOOL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("SPOOL_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("SPOOL_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Queue.PollInterval = d
		}
	}
	if v := os.Getenv("SPOOL_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Queue.MaxAttempts = n
		}
	}
	if v := os.Getenv("SPOOL_SIMULATION_MODE"); v != "" {
		c.Printer.Simulation = v == "true" || v == "1"
	}
	if v := os.Getenv("SPOOL_PRINT_COMMAND"); v != "" {
		c.Printer.Command = v
	}
	if v := os.Getenv("SPOOL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SPOOL_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be non-negative")
	}
	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server write timeout must be non-negative")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Queue.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.Queue.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1")
	}
	if c.Queue.BatchLimit < 1 {
		return fmt.Errorf("batch limit must be at least 1")
	}
	if c.Queue.RetryDelay < 0 {
		return fmt.Errorf("retry delay must be non-negative")
	}
	if c.Queue.LeaseTimeout < 0 {
		return fmt.Errorf("lease timeout must be non-negative")
	}
	if c.Queue.RetentionDays < 0 {
		return fmt.Errorf("retention days must be non-negative")
	}
	if !c.Printer.Simulation && c.Printer.Command == "" {
		return fmt.Errorf("printer command is required when simulation is off")
	}
	if c.Printer.FailRate < 0 || c.Printer.FailRate > 1 {
		return fmt.Errorf("printer fail rate must be between 0 and 1")
	}
	if c.Webhooks.Enabled && len(c.Webhooks.URLs) == 0 {
		return fmt.Errorf("webhooks enabled but no urls configured")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (valid: json, text)", c.Logging.Format)
	}

	return nil
}
