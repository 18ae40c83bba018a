package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Browser.WaitTimeout != 10*time.Second {
		t.Errorf("expected 10s wait timeout, got %s", cfg.Browser.WaitTimeout)
	}
	if cfg.Browser.SettleDelay != 3*time.Second {
		t.Errorf("expected 3s settle delay, got %s", cfg.Browser.SettleDelay)
	}
	if cfg.Storage.OutputPath != "elecciones_lavalleja.csv" {
		t.Errorf("unexpected output path %q", cfg.Storage.OutputPath)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "escrutinio.yaml")
	yaml := `
source:
  district_code: MONTEVIDEO
  district_name: Montevideo
browser:
  wait_timeout: 2s
  settle_delay: 500ms
storage:
  types: [csv, jsonl]
  output_path: out.csv
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Source.DistrictCode != "MONTEVIDEO" || cfg.Source.DistrictName != "Montevideo" {
		t.Errorf("district not loaded: %+v", cfg.Source)
	}
	if cfg.Browser.WaitTimeout != 2*time.Second {
		t.Errorf("expected 2s, got %s", cfg.Browser.WaitTimeout)
	}
	if cfg.Browser.SettleDelay != 500*time.Millisecond {
		t.Errorf("expected 500ms, got %s", cfg.Browser.SettleDelay)
	}
	if len(cfg.Storage.Types) != 2 || cfg.Storage.Types[1] != "jsonl" {
		t.Errorf("unexpected storage types %v", cfg.Storage.Types)
	}
	if cfg.Storage.OutputPath != "out.csv" {
		t.Errorf("unexpected output path %q", cfg.Storage.OutputPath)
	}
	// Untouched keys keep their defaults.
	if cfg.Source.SelectFunc != "selectDepto" {
		t.Errorf("expected default select func, got %q", cfg.Source.SelectFunc)
	}
	if cfg.Extract.ContainerID != "resultadosDepartamental" {
		t.Errorf("expected default container, got %q", cfg.Extract.ContainerID)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad url", func(c *Config) { c.Source.URL = "ftp://example.com" }},
		{"empty district", func(c *Config) { c.Source.DistrictCode = " " }},
		{"zero wait", func(c *Config) { c.Browser.WaitTimeout = 0 }},
		{"negative settle", func(c *Config) { c.Browser.SettleDelay = -time.Second }},
		{"bad fetcher", func(c *Config) { c.Fetcher.Type = "curl" }},
		{"no storage", func(c *Config) { c.Storage.Types = nil }},
		{"bad storage", func(c *Config) { c.Storage.Types = []string{"parquet"} }},
		{"jsonl without path", func(c *Config) {
			c.Storage.Types = []string{"jsonl"}
			c.Storage.LogPath = ""
		}},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"bad metrics port", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Port = 70000
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}
