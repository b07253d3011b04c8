package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "newsbrief",
		Short: "newsbrief turns raw news batches into ranked, summarized digests.",
		Long: `newsbrief processes batches of raw article records through a fixed
pipeline: normalize, filter, score, deduplicate, rank, then summarize
each surviving article through the configured LLM providers with
automatic fallback.`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.newsbrief.yaml)")

	rootCmd.AddCommand(NewRunCmd())
	rootCmd.AddCommand(NewScoreCmd())
	rootCmd.AddCommand(NewUsageCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
