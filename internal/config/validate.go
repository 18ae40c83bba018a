package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if err := ValidateURL(cfg.Source.URL); err != nil {
		return fmt.Errorf("source.url: %w", err)
	}
	if strings.TrimSpace(cfg.Source.DistrictCode) == "" {
		return fmt.Errorf("source.district_code must not be empty")
	}

	if cfg.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be > 0")
	}
	if cfg.Browser.WaitTimeout <= 0 {
		return fmt.Errorf("browser.wait_timeout must be > 0")
	}
	if cfg.Browser.SettleDelay < 0 {
		return fmt.Errorf("browser.settle_delay must be >= 0")
	}

	if cfg.Extract.ContainerID == "" {
		return fmt.Errorf("extract.container_id must not be empty")
	}
	if cfg.Extract.PartyRow == "" || cfg.Extract.PartyName == "" || cfg.Extract.PartyVotes == "" {
		return fmt.Errorf("extract.party_row, party_name and party_votes must all be set")
	}

	if cfg.Fetcher.Type != "http" && cfg.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher.type must be 'http' or 'browser', got %q", cfg.Fetcher.Type)
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}

	if len(cfg.Storage.Types) == 0 {
		return fmt.Errorf("storage.types must list at least one backend")
	}
	validStorageTypes := map[string]bool{
		"csv": true, "jsonl": true, "sqlite": true, "mongodb": true,
	}
	for _, t := range cfg.Storage.Types {
		if !validStorageTypes[t] {
			return fmt.Errorf("storage type %q is not supported (valid: csv, jsonl, sqlite, mongodb)", t)
		}
		switch t {
		case "csv":
			if cfg.Storage.OutputPath == "" {
				return fmt.Errorf("storage.output_path must be set for csv")
			}
		case "jsonl":
			if cfg.Storage.LogPath == "" {
				return fmt.Errorf("storage.log_path must be set for jsonl")
			}
		case "sqlite":
			if cfg.Storage.SQLitePath == "" {
				return fmt.Errorf("storage.sqlite_path must be set for sqlite")
			}
		case "mongodb":
			if cfg.Storage.Mongo.URI == "" || cfg.Storage.Mongo.Database == "" || cfg.Storage.Mongo.Collection == "" {
				return fmt.Errorf("storage.mongo uri, database and collection must be set for mongodb")
			}
		}
	}

	if cfg.Monitor.Enabled && cfg.Monitor.SnapshotDir == "" {
		return fmt.Errorf("monitor.snapshot_dir must be set when monitor is enabled")
	}
	if cfg.Monitor.Interval < 0 {
		return fmt.Errorf("monitor.interval must be >= 0")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks if a URL string is a loadable results page.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
