package router

import (
	"strings"

	"newsbrief/internal/core"
	"newsbrief/internal/provider"
)

// Table is the provider routing rule: an ordered provider list per
// (category, task) plus a default list used when no rule matches. It is
// immutable once the router is constructed.
type Table struct {
	Rules   map[core.Category]map[string][]string `mapstructure:"rules"`
	Default []string                              `mapstructure:"default"`
}

// ProvidersFor returns the ordered provider ids for a category and
// task, falling back to the default list.
func (t Table) ProvidersFor(category core.Category, task string) []string {
	if byTask, ok := t.Rules[category]; ok {
		if list, ok := byTask[task]; ok && len(list) > 0 {
			return list
		}
	}
	return t.Default
}

// Difficulty configures the optional difficulty-based routing override.
// Disabled by default; the category table is the normal behavior.
type Difficulty struct {
	Enabled bool     `mapstructure:"enabled"`
	Terms   []string `mapstructure:"terms"` // Academic/technical markers counted in the text
	// Density thresholds in matches per 100 words.
	MediumDensity float64 `mapstructure:"medium_density"`
	HighDensity   float64 `mapstructure:"high_density"`
}

// DefaultDifficulty returns the heuristic defaults with the override
// switched off.
func DefaultDifficulty() Difficulty {
	return Difficulty{
		Enabled: false,
		Terms: []string{
			"algorithm", "theorem", "quantum", "neural", "stochastic",
			"regression", "derivative", "protein", "genome", "qubit",
			"transformer", "benchmark", "拡散モデル", "定理",
		},
		MediumDensity: 1.0,
		HighDensity:   3.0,
	}
}

// Classify buckets source text into a difficulty tier by the density of
// technical terms per 100 words.
func (d Difficulty) Classify(text string) provider.Tier {
	words := strings.Fields(text)
	if len(words) == 0 {
		return provider.TierLow
	}

	lowered := strings.ToLower(text)
	matches := 0
	for _, term := range d.Terms {
		matches += strings.Count(lowered, strings.ToLower(term))
	}

	density := float64(matches) / float64(len(words)) * 100
	switch {
	case density >= d.HighDensity:
		return provider.TierHigh
	case density >= d.MediumDensity:
		return provider.TierMedium
	default:
		return provider.TierLow
	}
}
