package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/bankradar/internal/config"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Deliver queued notifications and exit",
	Long:  "Drains the notification queue: one digest per subscriber per channel, then the end-of-day nothing-found email when its window is open.",
	RunE:  runDispatchCmd,
}

func init() {
	rootCmd.AddCommand(dispatchCmd)
}

func runDispatchCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		return err
	}
	defer st.Close()

	return drain(ctx, cfg, st, newHTTPClient(cfg), logger)
}

func drain(ctx context.Context, cfg *config.Config, st *storage, httpClient *http.Client, logger *slog.Logger) error {
	sum, err := buildDispatcher(cfg, st, httpClient, logger).Drain(ctx, time.Now())
	if err != nil {
		logger.Error("dispatch failed", "error", err)
		return err
	}
	fmt.Printf("dispatch: %d items for %d subscribers, %d dropped, %d nothing-found\n",
		sum.Items, sum.Subscribers, sum.Dropped, sum.NothingFoundSent)
	for _, name := range sortedKeys(sum.Sent, sum.Failed) {
		fmt.Printf("  %-6s sent %d  failed %d\n", name, sum.Sent[name], sum.Failed[name])
	}
	return nil
}

func sortedKeys(maps ...map[string]int) []string {
	seen := map[string]bool{}
	var keys []string
	for _, m := range maps {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}
