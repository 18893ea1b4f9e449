package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/bankradar/internal/audit"
	"github.com/amishk599/bankradar/internal/config"
	"github.com/amishk599/bankradar/internal/model"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Browse one source's postings interactively (TUI)",
	Long:  "Shows the bank picker, fetches the chosen source, then compares what it returned with what survives normalization.",
	RunE:  runAuditCmd,
}

func init() {
	rootCmd.AddCommand(auditCmd)
}

func runAuditCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	// Any log line written before the alt screen starts corrupts the TUI.
	logger := silentLogger()
	sources, err := buildSources(cfg, newHTTPClient(cfg), logger)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		fmt.Println("No enabled sources in config.")
		return nil
	}

	var seen func() []model.FirstSeenRecord
	if st, err := openStorage(context.Background(), cfg, logger); err == nil {
		defer st.Close()
		seen = func() []model.FirstSeenRecord {
			recs, _ := st.freshness.ListRecent(context.Background(), time.Now(), cfg.Retention)
			return recs
		}
	}

	return runAudit(cfg, sources, seen)
}

func runAudit(cfg *config.Config, sources []model.Source, seen func() []model.FirstSeenRecord) error {
	for {
		choice, err := audit.RunSourcePicker(sources)
		if err != nil {
			return fmt.Errorf("picker: %w", err)
		}
		if choice < 0 {
			return nil
		}
		src := sources[choice]

		raw, elapsed, err := audit.RunLoader(src, cfg.RunTimeout)
		if errors.Is(err, audit.ErrCancelled) {
			continue
		}
		if err != nil {
			fmt.Printf("Error fetching %s: %v\n", src.Name(), err)
			continue
		}

		var recs []model.FirstSeenRecord
		if seen != nil {
			recs = seen()
		}
		wantQuit, err := audit.RunAuditTUI(audit.BuildReport(src, raw, recs, elapsed))
		if err != nil {
			fmt.Printf("TUI error: %v\n", err)
		}
		if wantQuit {
			return nil
		}
	}
}
