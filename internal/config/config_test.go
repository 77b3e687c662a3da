package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load with missing file: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Queue.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %v, want 5s", cfg.Queue.PollInterval)
	}
	if cfg.Queue.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.Queue.MaxAttempts)
	}
	if cfg.Queue.BatchLimit != 10 {
		t.Errorf("BatchLimit = %d, want 10", cfg.Queue.BatchLimit)
	}
	if cfg.Queue.RetentionDays != 7 {
		t.Errorf("RetentionDays = %d, want 7", cfg.Queue.RetentionDays)
	}
	if !cfg.Printer.Simulation {
		t.Error("Simulation = false, want true by default")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want info/json", cfg.Logging)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 9090
database:
  path: /tmp/spool-test.db
queue:
  poll_interval: 2s
  max_attempts: 5
printer:
  simulation: false
  command: lp -d thermal
logging:
  level: debug
  format: text
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Database.Path != "/tmp/spool-test.db" {
		t.Errorf("Path = %q", cfg.Database.Path)
	}
	if cfg.Queue.PollInterval != 2*time.Second {
		t.Errorf("PollInterval = %v, want 2s", cfg.Queue.PollInterval)
	}
	if cfg.Queue.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.Queue.MaxAttempts)
	}
	if cfg.Printer.Simulation {
		t.Error("Simulation = true, want false")
	}
	if cfg.Printer.Command != "lp -d thermal" {
		t.Errorf("Command = %q", cfg.Printer.Command)
	}
	// Values not present in the file keep their defaults.
	if cfg.Queue.BatchLimit != 10 {
		t.Errorf("BatchLimit = %d, want default 10", cfg.Queue.BatchLimit)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config failed validation: %v", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load with malformed yaml succeeded, want error")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SPOOL_PORT", "3000")
	t.Setenv("SPOOL_DB_PATH", "/var/lib/spool.db")
	t.Setenv("SPOOL_POLL_INTERVAL", "500ms")
	t.Setenv("SPOOL_MAX_ATTEMPTS", "2")
	t.Setenv("SPOOL_SIMULATION_MODE", "false")
	t.Setenv("SPOOL_PRINT_COMMAND", "cat")
	t.Setenv("SPOOL_LOG_LEVEL", "warn")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Database.Path != "/var/lib/spool.db" {
		t.Errorf("Path = %q", cfg.Database.Path)
	}
	if cfg.Queue.PollInterval != 500*time.Millisecond {
		t.Errorf("PollInterval = %v, want 500ms", cfg.Queue.PollInterval)
	}
	if cfg.Queue.MaxAttempts != 2 {
		t.Errorf("MaxAttempts = %d, want 2", cfg.Queue.MaxAttempts)
	}
	if cfg.Printer.Simulation {
		t.Error("Simulation = true, want false from env")
	}
	if cfg.Printer.Command != "cat" {
		t.Errorf("Command = %q, want cat", cfg.Printer.Command)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %q, want warn", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"empty db path", func(c *Config) { c.Database.Path = "" }},
		{"zero poll interval", func(c *Config) { c.Queue.PollInterval = 0 }},
		{"zero max attempts", func(c *Config) { c.Queue.MaxAttempts = 0 }},
		{"zero batch limit", func(c *Config) { c.Queue.BatchLimit = 0 }},
		{"negative retry delay", func(c *Config) { c.Queue.RetryDelay = -time.Second }},
		{"negative retention", func(c *Config) { c.Queue.RetentionDays = -1 }},
		{"real printer without command", func(c *Config) { c.Printer.Simulation = false }},
		{"fail rate above one", func(c *Config) { c.Printer.FailRate = 1.5 }},
		{"webhooks without urls", func(c *Config) { c.Webhooks.Enabled = true }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate succeeded, want error")
			}
		})
	}
}
