package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	runDispatch bool
	runDryRun   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one ingestion pass and exit",
	Long:  "Fetches every enabled source once, records fresh postings and queues notifications. With --dispatch the queue is drained afterwards.",
	RunE:  runOnce,
}

func init() {
	runCmd.Flags().BoolVar(&runDispatch, "dispatch", false, "drain the notification queue after the run")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "fetch and match, but record and queue nothing")
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	open := openStorage
	if runDryRun {
		logger.Info("dry-run mode: nothing will be recorded or queued")
		open = dryRunStorage
	}
	st, err := open(ctx, cfg, logger)
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
	reporter := buildReporter(cfg, httpClient, logger)
	if runDryRun {
		reporter = nil
	}

	sum, err := buildPipeline(cfg, sources, st, reporter, logger).Run(ctx)
	if err != nil {
		logger.Error("run failed", "error", err)
		return err
	}
	fmt.Printf("run %s: %d sources, %d fetched, %d new, %d queued, %d pruned in %s\n",
		sum.RunID, sum.Sources, sum.Fetched, sum.Fresh, sum.Queued, sum.Pruned, sum.Elapsed.Round(time.Millisecond))
	if len(sum.Failed) > 0 {
		fmt.Printf("failed sources: %s\n", strings.Join(sum.Failed, ", "))
	}

	if !runDispatch {
		return nil
	}
	return drain(ctx, cfg, st, httpClient, logger)
}
