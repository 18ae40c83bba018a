package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/escrutinio/internal/config"
	"github.com/IshaanNene/escrutinio/internal/storage"
	"github.com/IshaanNene/escrutinio/internal/types"
)

// renderRecord prints a record as a two-column field/value table.
func renderRecord(rec *types.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Field", "Value"})
	for _, k := range rec.Keys() {
		t.AppendRow(table.Row{k, rec.FlatValue(k)})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// renderTable prints a materialized table.
func renderTable(tbl *storage.Table) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)

	header := make(table.Row, len(tbl.Columns))
	for i, c := range tbl.Columns {
		header[i] = c
	}
	t.AppendHeader(header)

	for _, r := range tbl.Rows {
		row := make(table.Row, len(r))
		for i, v := range r {
			row[i] = v
		}
		t.AppendRow(row)
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func renderMetrics(snap map[string]int64) {
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Metric", "Value"})
	for _, k := range keys {
		t.AppendRow(table.Row{k, snap[k]})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// storedWhere describes the configured destinations.
func storedWhere(cfg *config.Config) string {
	var dest []string
	for _, t := range cfg.Storage.Types {
		switch t {
		case "csv":
			dest = append(dest, cfg.Storage.OutputPath)
		case "jsonl":
			dest = append(dest, cfg.Storage.LogPath)
		case "sqlite":
			dest = append(dest, cfg.Storage.SQLitePath)
		case "mongodb":
			dest = append(dest, fmt.Sprintf("mongodb %s.%s", cfg.Storage.Mongo.Database, cfg.Storage.Mongo.Collection))
		}
	}
	return strings.Join(dest, ", ")
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			applyCLIOverrides(cfg)

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Section", "Key", "Value"})
			t.AppendRows([]table.Row{
				{"source", "url", cfg.Source.URL},
				{"source", "district", fmt.Sprintf("%s (%s)", cfg.Source.DistrictCode, cfg.Source.DistrictName)},
				{"source", "select_func", cfg.Source.SelectFunc},
			})
			t.AppendSeparator()
			t.AppendRows([]table.Row{
				{"browser", "headless", cfg.Browser.Headless},
				{"browser", "stealth", cfg.Browser.Stealth},
				{"browser", "navigation_timeout", cfg.Browser.NavigationTimeout},
				{"browser", "wait_timeout", cfg.Browser.WaitTimeout},
				{"browser", "settle_delay", cfg.Browser.SettleDelay},
			})
			t.AppendSeparator()
			t.AppendRows([]table.Row{
				{"extract", "container_id", cfg.Extract.ContainerID},
				{"extract", "party_row", cfg.Extract.PartyRow},
				{"fetcher", "type", cfg.Fetcher.Type},
			})
			t.AppendSeparator()
			t.AppendRows([]table.Row{
				{"storage", "types", strings.Join(cfg.Storage.Types, ", ")},
				{"storage", "output_path", cfg.Storage.OutputPath},
				{"storage", "log_path", cfg.Storage.LogPath},
				{"storage", "sqlite_path", cfg.Storage.SQLitePath},
			})
			t.AppendSeparator()
			t.AppendRows([]table.Row{
				{"monitor", "enabled", cfg.Monitor.Enabled},
				{"monitor", "interval", cfg.Monitor.Interval},
				{"logging", "level", cfg.Logging.Level},
				{"metrics", "enabled", cfg.Metrics.Enabled},
				{"metrics", "port", cfg.Metrics.Port},
			})
			t.SetStyle(table.StyleRounded)
			t.Render()

			if err := config.Validate(cfg); err != nil {
				fmt.Printf("⚠️  %v\n", err)
			}
			return nil
		},
	}
}
