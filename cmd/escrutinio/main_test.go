package main

import (
	"testing"

	"github.com/IshaanNene/escrutinio/internal/config"
)

func TestApplyCLIOverrides(t *testing.T) {
	t.Cleanup(func() {
		verbose, outputPath, districtCode, districtName, sourceURL, fetcherType = false, "", "", "", "", ""
	})

	verbose = true
	outputPath = "out/maldonado.csv"
	districtCode = "TREINTA Y TRES"
	fetcherType = "HTTP"

	cfg := config.DefaultConfig()
	applyCLIOverrides(cfg)

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug level, got %q", cfg.Logging.Level)
	}
	if cfg.Storage.OutputPath != "out/maldonado.csv" {
		t.Errorf("output not applied: %q", cfg.Storage.OutputPath)
	}
	if cfg.Source.DistrictName != "Treinta Y Tres" {
		t.Errorf("expected derived name, got %q", cfg.Source.DistrictName)
	}
	if cfg.Fetcher.Type != "http" {
		t.Errorf("expected http fetcher, got %q", cfg.Fetcher.Type)
	}

	districtName = "Treinta y Tres"
	applyCLIOverrides(cfg)
	if cfg.Source.DistrictName != "Treinta y Tres" {
		t.Errorf("explicit name not applied: %q", cfg.Source.DistrictName)
	}
}

func TestStoredWhere(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Types = []string{"csv", "sqlite"}
	if got := storedWhere(cfg); got != "elecciones_lavalleja.csv, elecciones.db" {
		t.Errorf("storedWhere = %q", got)
	}
}
