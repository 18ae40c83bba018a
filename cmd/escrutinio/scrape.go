package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/escrutinio/internal/monitor"
	"github.com/IshaanNene/escrutinio/internal/scrape"
)

var watchEvery time.Duration

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Scrape the results page once and append a row",
		Args:  cobra.NoArgs,
		RunE:  runScrape,
	}
}

// runScrape executes a single scrape. It is also the root command's action.
func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	ctx, cancel := signalContext(logger)
	defer cancel()

	runner, err := scrape.New(cfg, logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	fmt.Printf("🗳️  Scraping %s...\n", cfg.Source.DistrictName)
	fmt.Printf("⏰ %s\n", time.Now().Format("2006-01-02 15:04:05"))

	rec, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("scraping failed: %w", err)
	}

	fmt.Printf("✅ Saved to %s\n", storedWhere(cfg))
	fmt.Println("📋 Latest record:")
	renderRecord(rec)
	return nil
}

// watchCmd creates the "watch" subcommand.
func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Scrape on a fixed interval until interrupted",
		Long: `Runs a scrape immediately and then on every interval. Each run is
independent and launches its own browser; a failed run is logged and the
next one still happens.`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
	cmd.Flags().DurationVar(&watchEvery, "every", 0, "interval between runs (default monitor.interval)")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if watchEvery > 0 {
		cfg.Monitor.Interval = watchEvery
	}
	logger := setupLogger(cfg)

	ctx, cancel := signalContext(logger)
	defer cancel()

	runner, err := scrape.New(cfg, logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	if cfg.Metrics.Enabled {
		if err := runner.Metrics().StartServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
	}

	logger.Info("watching",
		"district", cfg.Source.DistrictCode,
		"interval", cfg.Monitor.Interval,
		"change_detection", cfg.Monitor.Enabled,
	)

	err = monitor.Watch(ctx, cfg.Monitor.Interval, logger, func(ctx context.Context) error {
		_, err := runner.Run(ctx)
		return err
	})
	if err != nil {
		return err
	}

	renderMetrics(runner.Metrics().Snapshot())
	return nil
}
