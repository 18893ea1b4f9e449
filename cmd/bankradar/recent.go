package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/bankradar/internal/filter"
)

var (
	recentWindow time.Duration
	recentAll    bool
)

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Print recently first-seen postings",
	Long:  "Lists postings whose effective age (earlier of first detection and posted date) falls inside the window, newest first.",
	RunE:  runRecent,
}

func init() {
	recentCmd.Flags().DurationVar(&recentWindow, "window", 0, "look-back window (default: recent_windows.this_week)")
	recentCmd.Flags().BoolVar(&recentAll, "all", false, "include titles that are neither analyst nor intern roles")
	rootCmd.AddCommand(recentCmd)
}

func runRecent(cmd *cobra.Command, args []string) error {
	logger := silentLogger()
	if debug {
		logger = setupLogger(true)
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	window := recentWindow
	if window <= 0 {
		window = cfg.RecentWindows.ThisWeek
	}

	ctx := context.Background()
	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.freshness.ListRecent(ctx, time.Now(), window)
	if err != nil {
		return err
	}

	fmt.Printf("%-16s %-8s %-50s %s\n", "Effective", "Bank", "Title", "Location")
	fmt.Println(strings.Repeat("─", 100))
	shown := 0
	for _, r := range records {
		if !recentAll && !filter.IsAnalystOrIntern(r.Title) {
			continue
		}
		shown++
		fmt.Printf("%-16s %-8s %-50s %s\n",
			r.EffectiveAge().UTC().Format("2006-01-02 15:04"), r.BankKey, truncate(r.Title, 50), r.Location)
	}
	fmt.Printf("\n%d postings in the last %s\n", shown, window)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
