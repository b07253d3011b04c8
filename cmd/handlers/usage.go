package handlers

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"newsbrief/internal/config"
	"newsbrief/internal/cost"
	"newsbrief/internal/logger"
	"newsbrief/internal/store"
)

// NewUsageCmd creates the usage command for inspecting recorded API
// spend.
func NewUsageCmd() *cobra.Command {
	var since time.Duration

	usageCmd := &cobra.Command{
		Use:   "usage",
		Short: "Report recorded provider usage and estimated cost",
		Long:  `Summarize the persisted API usage log: calls, tokens, and estimated cost per provider.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsage(since)
		},
	}

	usageCmd.Flags().DurationVar(&since, "since", 7*24*time.Hour, "Report window, counted back from now")
	return usageCmd
}

func runUsage(since time.Duration) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Init(cfg.App.LogLevel)

	db, err := store.New(cfg.App.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open article store: %w", err)
	}
	defer db.Close()

	records, err := db.ListUsage(time.Now().Add(-since))
	if err != nil {
		return fmt.Errorf("failed to read usage log: %w", err)
	}
	if len(records) == 0 {
		fmt.Printf("No provider usage recorded in the last %s.\n", since)
		return nil
	}

	printCostReport(os.Stdout, cost.Summarize(records, cost.DefaultPricing))
	return nil
}

func printCostReport(w io.Writer, report cost.Report) {
	fmt.Fprintf(w, "Provider usage: %d calls, %d tokens, $%.4f estimated\n",
		report.Calls, report.Tokens, report.CostUSD)
	for _, pu := range report.Providers {
		fmt.Fprintf(w, "  %-20s %4d calls (%d ok, %d failed)  %8d tokens  $%.4f\n",
			pu.Provider, pu.Calls, pu.Successes, pu.Failures, pu.Tokens, pu.CostUSD)
	}
}
