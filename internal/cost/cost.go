// Package cost estimates token counts for provider calls and turns the
// append-only API usage log into a spend report.
package cost

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"newsbrief/internal/core"
)

// Pricing holds per-model costs in USD per 1M tokens.
type Pricing struct {
	InputPer1MTokens  float64
	OutputPer1MTokens float64
}

// DefaultPricing maps provider ids to pricing. Unlisted providers are
// reported with zero cost (local models, mocks).
var DefaultPricing = map[string]Pricing{
	"openai-mini":      {InputPer1MTokens: 0.15, OutputPer1MTokens: 0.60},
	"anthropic-haiku":  {InputPer1MTokens: 0.80, OutputPer1MTokens: 4.00},
	"anthropic-sonnet": {InputPer1MTokens: 3.00, OutputPer1MTokens: 15.00},
	"google-flash":     {InputPer1MTokens: 0.075, OutputPer1MTokens: 0.30},
}

// EstimateTokenCount approximates the token count of text. Roughly one
// token per 3.5 characters, which is pessimistic enough for mixed
// English/Japanese content.
func EstimateTokenCount(text string) int {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	if text == "" {
		return 0
	}
	return int(math.Ceil(float64(utf8.RuneCountInString(text)) / 3.5))
}

// ProviderUsage aggregates the usage rows for one provider.
type ProviderUsage struct {
	Provider  string
	Calls     int
	Successes int
	Failures  int
	Tokens    int
	CostUSD   float64
}

// Report is the cost summary for a set of usage records.
type Report struct {
	Calls     int
	Tokens    int
	CostUSD   float64
	Providers []ProviderUsage // Sorted by descending cost
}

// Summarize folds usage records into a report using the given pricing
// table. Token spend is charged at the input rate, the dominant term
// for summarization workloads.
func Summarize(records []core.APIUsageRecord, pricing map[string]Pricing) Report {
	byProvider := make(map[string]*ProviderUsage)

	var report Report
	for _, rec := range records {
		pu, ok := byProvider[rec.Provider]
		if !ok {
			pu = &ProviderUsage{Provider: rec.Provider}
			byProvider[rec.Provider] = pu
		}

		pu.Calls++
		pu.Tokens += rec.Tokens
		if rec.Outcome == core.OutcomeSuccess {
			pu.Successes++
		} else {
			pu.Failures++
		}
		if p, ok := pricing[rec.Provider]; ok {
			pu.CostUSD += float64(rec.Tokens) / 1_000_000 * p.InputPer1MTokens
		}

		report.Calls++
		report.Tokens += rec.Tokens
	}

	for _, pu := range byProvider {
		report.CostUSD += pu.CostUSD
		report.Providers = append(report.Providers, *pu)
	}
	sort.Slice(report.Providers, func(i, j int) bool {
		if report.Providers[i].CostUSD != report.Providers[j].CostUSD {
			return report.Providers[i].CostUSD > report.Providers[j].CostUSD
		}
		return report.Providers[i].Provider < report.Providers[j].Provider
	})
	return report
}
