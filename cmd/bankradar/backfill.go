package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var backfillMaxAge time.Duration

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Seed and correct first-seen records from posted dates",
	Long:  "Fetches every source once. Links posted within --max-age that were never recorded are seeded; recorded links whose posted date is earlier than their detection are moved back. Nothing is queued.",
	RunE:  runBackfill,
}

func init() {
	backfillCmd.Flags().DurationVar(&backfillMaxAge, "max-age", 0, "only consider postings this recent (default: backfill_max_age)")
	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}
	maxAge := backfillMaxAge
	if maxAge <= 0 {
		maxAge = cfg.BackfillMaxAge
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		return err
	}
	defer st.Close()

	httpClient := newHTTPClient(cfg)
	sources, err := buildSources(cfg, httpClient, logger)
	if err != nil {
		return err
	}

	stats, err := buildPipeline(cfg, sources, st, nil, logger).Backfill(ctx, maxAge)
	if err != nil {
		logger.Error("backfill failed", "error", err)
		return err
	}
	fmt.Printf("backfill: %d seeded, %d corrected, %d skipped without date, %d skipped as too old\n",
		stats.Seeded, stats.Corrected, stats.SkippedNoDate, stats.SkippedTooOld)
	return nil
}
