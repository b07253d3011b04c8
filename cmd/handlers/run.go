package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"newsbrief/internal/cache"
	"newsbrief/internal/config"
	"newsbrief/internal/core"
	"newsbrief/internal/cost"
	"newsbrief/internal/logger"
	"newsbrief/internal/pipeline"
	"newsbrief/internal/provider"
	"newsbrief/internal/rank"
	"newsbrief/internal/router"
	"newsbrief/internal/store"
)

// NewRunCmd creates the run command, the main pipeline entrypoint.
func NewRunCmd() *cobra.Command {
	var (
		inputFile  string
		outputFile string
		asJSON     bool
		showCost   bool
		timeout    time.Duration
	)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Process a batch of raw article records into a ranked, summarized digest",
		Long: `Read one or more source batches from a JSON file, run them through the
full pipeline, and write the resulting digest to stdout or a file.

The input file holds an array of source batches:

  [{"source": {"name": "TechWire", "type": "feed"}, "records": [...]}]`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), inputFile, outputFile, asJSON, showCost, timeout)
		},
	}

	runCmd.Flags().StringVarP(&inputFile, "input", "i", "", "JSON file with source batches (required)")
	runCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the digest to a file instead of stdout")
	runCmd.Flags().BoolVar(&asJSON, "json", false, "Emit the digest as JSON instead of markdown")
	runCmd.Flags().BoolVar(&showCost, "cost", false, "Print an estimated API cost report after the run")
	runCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "Overall run deadline")
	_ = runCmd.MarkFlagRequired("input")

	return runCmd
}

func runPipeline(ctx context.Context, inputFile, outputFile string, asJSON, showCost bool, timeout time.Duration) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Init(cfg.App.LogLevel)

	batches, err := readBatches(inputFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := store.New(cfg.App.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open article store: %w", err)
	}
	defer db.Close()

	var backing cache.Backing
	var sink router.UsageSink
	if cfg.Cache.Persist {
		backing = db
		sink = db
	}
	summaries, err := cache.New(cfg.Cache.Entries, backing)
	if err != nil {
		return err
	}

	providers, err := buildProviders(ctx, cfg.Providers)
	if err != nil {
		return err
	}

	usageLog := router.NewUsageLog(sink)
	r, err := router.New(providers, cfg.RouterOptions(), summaries, usageLog)
	if err != nil {
		return fmt.Errorf("failed to build provider router: %w", err)
	}

	p := pipeline.New(cfg.FilterConfig(), cfg.ScoreConfig(), r, pipeline.WithArchiver(db))
	res, err := p.Run(ctx, batches)
	if err != nil {
		return err
	}
	if res.Warning != "" {
		fmt.Fprintln(os.Stderr, "Warning:", res.Warning)
	}

	var out string
	if asJSON {
		out, err = renderJSON(res)
	} else {
		out = renderMarkdown(res)
	}
	if err != nil {
		return err
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(out), 0o644); err != nil {
			return fmt.Errorf("failed to write digest: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Digest written to %s\n", outputFile)
	} else {
		fmt.Print(out)
	}

	if showCost {
		printCostReport(os.Stderr, cost.Summarize(usageLog.Records(), cost.DefaultPricing))
	}
	return nil
}

// buildProviders instantiates every configured provider, preserving
// configuration order.
func buildProviders(ctx context.Context, configs []provider.Config) ([]provider.Provider, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("no providers configured; add a providers section to the config file")
	}
	providers := make([]provider.Provider, 0, len(configs))
	for _, pc := range configs {
		p, err := provider.New(ctx, pc)
		if err != nil {
			return nil, fmt.Errorf("failed to build provider %q: %w", pc.ID, err)
		}
		providers = append(providers, p)
	}
	return providers, nil
}

func readBatches(path string) ([]pipeline.SourceBatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	var batches []pipeline.SourceBatch
	if err := json.Unmarshal(data, &batches); err != nil {
		return nil, fmt.Errorf("failed to parse input file %s: %w", path, err)
	}
	if len(batches) == 0 {
		return nil, fmt.Errorf("input file %s contains no source batches", path)
	}
	return batches, nil
}

func renderJSON(res *pipeline.Result) (string, error) {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode digest: %w", err)
	}
	return string(data) + "\n", nil
}

// renderMarkdown writes the digest grouped by category in display
// order, each group already ranked.
func renderMarkdown(res *pipeline.Result) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("# News Digest — %s\n\n", res.Stats.StartTime.Format("2006-01-02")))

	for _, cat := range rank.CategoryOrder {
		group := res.ByCategory[cat]
		if len(group) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("## %s\n\n", categoryHeading(cat)))
		for _, a := range group {
			b.WriteString(fmt.Sprintf("### [%s](%s)\n", a.Title, a.SourceURL))
			b.WriteString(fmt.Sprintf("*%s · %s · score %d*\n\n",
				a.SourceName, a.PublishedAt.Format("2006-01-02 15:04"), a.Relevance()))
			if a.Summary != "" {
				b.WriteString(a.Summary + "\n\n")
			} else {
				b.WriteString("_No summary available._\n\n")
			}
		}
	}

	b.WriteString(fmt.Sprintf("---\n%d records in, %d articles out (%d filtered, %d duplicates removed, %d summarized) in %s\n",
		res.Stats.TotalRecords,
		res.Stats.Summarized+res.Stats.CacheFallbacks+res.Stats.Exhausted,
		res.Stats.FilteredOut,
		res.Stats.DuplicatesRemoved,
		res.Stats.Summarized,
		res.Stats.ProcessingTime.Round(time.Millisecond)))
	return b.String()
}

func categoryHeading(cat core.Category) string {
	switch cat {
	case core.CategoryAI:
		return "AI & Machine Learning"
	case core.CategoryFinance:
		return "Finance"
	case core.CategoryScience:
		return "Science"
	case core.CategoryManufacturing:
		return "Manufacturing"
	case core.CategoryHobby:
		return "Hobby"
	}
	return "Other"
}
