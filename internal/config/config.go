package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for escrutinio.
type Config struct {
	Source   SourceConfig   `mapstructure:"source"   yaml:"source"`
	Browser  BrowserConfig  `mapstructure:"browser"  yaml:"browser"`
	Extract  ExtractConfig  `mapstructure:"extract"  yaml:"extract"`
	Fetcher  FetcherConfig  `mapstructure:"fetcher"  yaml:"fetcher"`
	Storage  StorageConfig  `mapstructure:"storage"  yaml:"storage"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Monitor  MonitorConfig  `mapstructure:"monitor"  yaml:"monitor"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"  yaml:"metrics"`
}

// SourceConfig identifies the results page and the district to select on it.
type SourceConfig struct {
	URL          string `mapstructure:"url"           yaml:"url"`
	DistrictCode string `mapstructure:"district_code" yaml:"district_code"`
	DistrictName string `mapstructure:"district_name" yaml:"district_name"`
	SelectFunc   string `mapstructure:"select_func"   yaml:"select_func"`
}

// BrowserConfig controls the headless browser session.
type BrowserConfig struct {
	Bin               string        `mapstructure:"bin"                yaml:"bin"`
	Headless          bool          `mapstructure:"headless"           yaml:"headless"`
	Stealth           bool          `mapstructure:"stealth"            yaml:"stealth"`
	UserAgent         string        `mapstructure:"user_agent"         yaml:"user_agent"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	WaitTimeout       time.Duration `mapstructure:"wait_timeout"       yaml:"wait_timeout"`
	SettleDelay       time.Duration `mapstructure:"settle_delay"       yaml:"settle_delay"`
}

// ExtractConfig holds the page structure the extractor relies on.
type ExtractConfig struct {
	ContainerID string `mapstructure:"container_id" yaml:"container_id"`
	PartyRow    string `mapstructure:"party_row"    yaml:"party_row"`
	PartyName   string `mapstructure:"party_name"   yaml:"party_name"`
	PartyVotes  string `mapstructure:"party_votes"  yaml:"party_votes"`
}

// FetcherConfig selects how the page is loaded.
type FetcherConfig struct {
	Type        string `mapstructure:"type"          yaml:"type"` // browser, http
	MaxBodySize int64  `mapstructure:"max_body_size" yaml:"max_body_size"`
}

// StorageConfig controls output/storage.
type StorageConfig struct {
	Types      []string    `mapstructure:"types"       yaml:"types"`
	OutputPath string      `mapstructure:"output_path" yaml:"output_path"`
	LogPath    string      `mapstructure:"log_path"    yaml:"log_path"`
	SQLitePath string      `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	Mongo      MongoConfig `mapstructure:"mongo"       yaml:"mongo"`
}

// MongoConfig configures the MongoDB backend.
type MongoConfig struct {
	URI        string `mapstructure:"uri"        yaml:"uri"`
	Database   string `mapstructure:"database"   yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// PipelineConfig controls the record processing pipeline.
type PipelineConfig struct {
	Defaults map[string]any `mapstructure:"defaults" yaml:"defaults"`
}

// MonitorConfig controls change detection and scheduled runs.
type MonitorConfig struct {
	Enabled     bool          `mapstructure:"enabled"      yaml:"enabled"`
	SnapshotDir string        `mapstructure:"snapshot_dir" yaml:"snapshot_dir"`
	Interval    time.Duration `mapstructure:"interval"     yaml:"interval"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config pointed at the Lavalleja departmental results.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			URL:          "https://eleccionesdepartamentales2025.corteelectoral.gub.uy/ResultadosDepartamentales.htm#",
			DistrictCode: "LAVALLEJA",
			DistrictName: "Lavalleja",
			SelectFunc:   "selectDepto",
		},
		Browser: BrowserConfig{
			Headless:          true,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			NavigationTimeout: 30 * time.Second,
			WaitTimeout:       10 * time.Second,
			SettleDelay:       3 * time.Second,
		},
		Extract: ExtractConfig{
			ContainerID: "resultadosDepartamental",
			PartyRow:    ".row.row-xsm.manito",
			PartyName:   ".lema, .lema-sm",
			PartyVotes:  ".subtotal, .subtotal-sm",
		},
		Fetcher: FetcherConfig{
			Type:        "browser",
			MaxBodySize: 10 * 1024 * 1024, // 10MB
		},
		Storage: StorageConfig{
			Types:      []string{"csv"},
			OutputPath: "elecciones_lavalleja.csv",
			LogPath:    "elecciones_lavalleja.jsonl",
			SQLitePath: "elecciones.db",
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "escrutinio",
				Collection: "snapshots",
			},
		},
		Monitor: MonitorConfig{
			Enabled:     false,
			SnapshotDir: ".escrutinio_snapshots",
			Interval:    5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
