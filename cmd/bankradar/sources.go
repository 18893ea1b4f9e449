package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/bankradar/internal/adapter"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List registered bank sources",
	Long:  "Prints every registered source and whether the config enables it.",
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	all := adapter.Registry(adapter.Options{})
	enabledKeys := cfg.EnabledSourceKeys()

	fmt.Printf("%-12s %-32s %s\n", "Key", "Bank", "Status")
	fmt.Println(strings.Repeat("─", 54))

	enabled := 0
	for _, s := range all {
		status := "disabled"
		if enabledKeys == nil || slices.Contains(enabledKeys, s.Key()) {
			status = "enabled"
			enabled++
		}
		fmt.Printf("%-12s %-32s %s\n", s.Key(), s.Name(), status)
	}

	fmt.Printf("\nTotal: %d sources (%d enabled, %d disabled)\n", len(all), enabled, len(all)-enabled)
	return nil
}
