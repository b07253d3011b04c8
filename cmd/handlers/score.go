package handlers

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"newsbrief/internal/config"
	"newsbrief/internal/core"
	"newsbrief/internal/logger"
	"newsbrief/internal/normalize"
)

// NewScoreCmd creates the score command, a debugging aid that runs a
// single raw record through normalization, the filter, and the scorer
// and prints what each stage decided.
func NewScoreCmd() *cobra.Command {
	var (
		sourceName string
		sourceType string
	)

	scoreCmd := &cobra.Command{
		Use:   "score <record.json>",
		Short: "Score a single raw record and explain the result",
		Long: `Normalize one raw record, run the filter checks, and print the matched
keywords and relevance score. Useful for tuning keyword lists and
credibility tables without running a full batch.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(args[0], sourceName, sourceType)
		},
	}

	scoreCmd.Flags().StringVar(&sourceName, "source", "manual", "Source name for the record")
	scoreCmd.Flags().StringVar(&sourceType, "type", "feed", "Source type: wire-news, feed, filing, preprint")
	return scoreCmd
}

func runScore(path, sourceName, sourceType string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Init(cfg.App.LogLevel)

	st, err := core.ParseSourceType(sourceType)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read record file: %w", err)
	}
	var raw core.RawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse record file %s: %w", path, err)
	}

	now := time.Now().UTC()
	article, err := normalize.Normalize(raw, core.SourceDescriptor{Name: sourceName, Type: st}, now)
	if err != nil {
		return err
	}

	fmt.Printf("Article:  %s\n", article.Title)
	fmt.Printf("Id:       %s\n", article.ID)
	fmt.Printf("Category: %s\n", article.Category)

	if ok, reason := cfg.FilterConfig().Check(article, now); !ok {
		fmt.Printf("Filter:   rejected (%s)\n", reason)
		return nil
	}
	fmt.Println("Filter:   accepted")

	sc := cfg.ScoreConfig()
	matched := sc.MatchKeywords(article)
	fmt.Printf("Keywords: %s\n", strings.Join(matched, ", "))
	fmt.Printf("Score:    %d\n", sc.Score(article, matched, now))
	return nil
}
