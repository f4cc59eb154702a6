package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesDurationsAndProviders(t *testing.T) {
	path := writeConfig(t, `
postgres:
  dsn: "host=localhost dbname=test"
collector:
  enabled_providers: [sportingbet, superbet]
  interval: 15m
  timeout: 10s
  backoff_unit: 250ms
  workers: 4
providers:
  sportingbet:
    base_url: "https://example.com"
    sport_id: 4
health:
  port: 8090
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := cfg.Collector.Interval.Std(); got != 15*time.Minute {
		t.Errorf("Interval = %v, want 15m", got)
	}
	if got := cfg.Collector.Timeout.Std(); got != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", got)
	}
	if got := cfg.Collector.BackoffUnit.Std(); got != 250*time.Millisecond {
		t.Errorf("BackoffUnit = %v, want 250ms", got)
	}
	if cfg.Collector.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Collector.Workers)
	}
	if len(cfg.Collector.EnabledProviders) != 2 {
		t.Errorf("EnabledProviders = %v", cfg.Collector.EnabledProviders)
	}
	if cfg.Providers.Sportingbet.SportID != 4 {
		t.Errorf("SportID = %d, want 4", cfg.Providers.Sportingbet.SportID)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
postgres:
  dsn: "host=localhost dbname=test"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Collector.Workers != 8 {
		t.Errorf("default Workers = %d, want 8", cfg.Collector.Workers)
	}
	if cfg.Collector.FlushSize != 200 {
		t.Errorf("default FlushSize = %d, want 200", cfg.Collector.FlushSize)
	}
	if cfg.Collector.RetryAttempts != 3 {
		t.Errorf("default RetryAttempts = %d, want 3", cfg.Collector.RetryAttempts)
	}
	if got := cfg.Collector.BackoffUnit.Std(); got != 500*time.Millisecond {
		t.Errorf("default BackoffUnit = %v, want 500ms", got)
	}
	if got := cfg.Health.ReadHeaderTimeout.Std(); got != 5*time.Second {
		t.Errorf("default ReadHeaderTimeout = %v, want 5s", got)
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	path := writeConfig(t, `
collector:
  timeout: soon
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unparseable duration")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
