package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/escrutinio/internal/storage"
)

var (
	exportLog   string
	exportOut   string
	exportPrint bool
)

// exportCmd creates the "export" subcommand.
func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Rebuild a CSV table from the JSONL log",
		Long: `Reads every record from the JSONL log written by the jsonl storage backend
and writes the union of their fields as a CSV table, one row per record.`,
		Args: cobra.NoArgs,
		RunE: runExport,
	}
	cmd.Flags().StringVar(&exportLog, "log", "", "JSONL log path (default storage.log_path)")
	cmd.Flags().StringVar(&exportOut, "out", "", "CSV output path (default <log>_export.csv)")
	cmd.Flags().BoolVar(&exportPrint, "print", false, "also print the table")
	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	logPath := exportLog
	if logPath == "" {
		logPath = cfg.Storage.LogPath
	}
	out := exportOut
	if out == "" {
		out = strings.TrimSuffix(logPath, filepath.Ext(logPath)) + "_export.csv"
	}

	table, err := storage.Materialize(logPath)
	if err != nil {
		return fmt.Errorf("materialize %s: %w", logPath, err)
	}
	if err := table.WriteCSV(out); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	logger.Info("export complete", "log", logPath, "out", out, "rows", len(table.Rows), "columns", len(table.Columns))
	fmt.Printf("✅ Exported %d rows × %d columns to %s\n", len(table.Rows), len(table.Columns), out)

	if exportPrint {
		renderTable(table)
	}
	return nil
}
