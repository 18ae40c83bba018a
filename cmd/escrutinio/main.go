package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/escrutinio/internal/config"
)

var (
	cfgFile      string
	verbose      bool
	outputPath   string
	districtCode string
	districtName string
	sourceURL    string
	fetcherType  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "escrutinio",
		Short: "Departmental election results scraper",
		Long: `escrutinio loads the departmental results page of the Uruguayan electoral
court, switches it to one department and appends the summary counts and the
votes per party to a CSV file as one timestamped row.

Run with no subcommand to scrape once.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runScrape,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "CSV output path")
	rootCmd.PersistentFlags().StringVar(&districtCode, "district", "", "district code passed to the selection routine (e.g. LAVALLEJA)")
	rootCmd.PersistentFlags().StringVar(&districtName, "district-name", "", "district display name (e.g. Lavalleja)")
	rootCmd.PersistentFlags().StringVar(&sourceURL, "url", "", "results page URL")
	rootCmd.PersistentFlags().StringVar(&fetcherType, "fetcher", "", "page fetcher: browser, http")

	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stdout, "❌ Error: %v\n", err)
		os.Exit(1)
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("escrutinio %s\n", config.Version)
		},
	}
}

// loadConfig loads, overrides and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	applyCLIOverrides(cfg)

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if outputPath != "" {
		cfg.Storage.OutputPath = outputPath
	}
	if districtCode != "" {
		cfg.Source.DistrictCode = districtCode
		if districtName == "" {
			cfg.Source.DistrictName = titleCase(districtCode)
		}
	}
	if districtName != "" {
		cfg.Source.DistrictName = districtName
	}
	if sourceURL != "" {
		cfg.Source.URL = sourceURL
	}
	if fetcherType != "" {
		cfg.Fetcher.Type = strings.ToLower(fetcherType)
	}
}

// titleCase turns "TREINTA Y TRES" into "Treinta Y Tres".
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// setupLogger creates a structured logger.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down...", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
