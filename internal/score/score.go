// Package score computes the 0-100 relevance score for canonical
// articles. Scoring is pure and reproducible: the reference time is
// caller-supplied and never read from the wall clock.
package score

import (
	"strings"
	"time"

	"newsbrief/internal/core"
)

// Sub-score caps. The final score is the truncated sum of four
// independent terms, clamped to 100.
const (
	keywordPointsPerMatch = 20
	keywordCap            = 40
	qualityTermCap        = 10.0
)

// Config holds the scoring inputs that are configuration, not code:
// the keyword list matched against article text and the per-source
// credibility table.
type Config struct {
	Keywords           []string       // Terms matched against title and body
	Credibility        map[string]int // Source name -> credibility points (0-20)
	UnknownCredibility int            // Points for sources missing from the table
}

// DefaultConfig returns a starting configuration. The credibility table
// is expected to be overridden per deployment.
func DefaultConfig() Config {
	return Config{
		Keywords: []string{
			"AI", "LLM", "machine learning", "semiconductor", "earnings",
			"robotics", "quantum", "open source",
		},
		Credibility: map[string]int{
			"Reuters":    18,
			"Bloomberg":  18,
			"Nikkei":     16,
			"arXiv":      14,
			"TechCrunch": 12,
		},
		UnknownCredibility: 10,
	}
}

// MatchKeywords returns the configured keywords found in the article's
// title or body, case-insensitively. Each keyword counts at most once.
func (c Config) MatchKeywords(article core.Article) []string {
	haystack := strings.ToLower(article.Title + " " + article.BodyText())
	var matched []string
	for _, kw := range c.Keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// Score computes the relevance score for one article given its matched
// keywords and the batch reference time. Identical inputs always yield
// an identical score.
func (c Config) Score(article core.Article, matched []string, now time.Time) int {
	keywordPts := keywordPointsPerMatch * len(matched)
	if keywordPts > keywordCap {
		keywordPts = keywordCap
	}

	total := float64(keywordPts) +
		float64(recencyPoints(now.Sub(article.PublishedAt))) +
		float64(c.credibilityPoints(article.SourceName)) +
		qualityPoints(article)

	score := int(total)
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// Apply scores every article in place: matched keywords, relevance
// score, and the table credibility (rescaled to 0-100) are recorded on
// each record. Order is preserved.
func (c Config) Apply(articles []core.Article, now time.Time) []core.Article {
	for i := range articles {
		matched := c.MatchKeywords(articles[i])
		relevance := c.Score(articles[i], matched, now)
		credibility := c.credibilityPoints(articles[i].SourceName) * 5

		articles[i].Keywords = matched
		articles[i].RelevanceScore = &relevance
		articles[i].CredibilityScore = &credibility
	}
	return articles
}

// recencyPoints is a step function on article age.
func recencyPoints(age time.Duration) int {
	switch {
	case age < time.Hour:
		return 20
	case age < 6*time.Hour:
		return 15
	case age < 24*time.Hour:
		return 10
	default:
		return 5
	}
}

func (c Config) credibilityPoints(sourceName string) int {
	if pts, ok := c.Credibility[sourceName]; ok {
		return pts
	}
	return c.UnknownCredibility
}

// qualityPoints averages two length-derived terms, each capped at 10:
// title length / 10 and body length / 50.
func qualityPoints(article core.Article) float64 {
	titleTerm := float64(len([]rune(article.Title))) / 10
	if titleTerm > qualityTermCap {
		titleTerm = qualityTermCap
	}
	bodyTerm := float64(len([]rune(article.BodyText()))) / 50
	if bodyTerm > qualityTermCap {
		bodyTerm = qualityTermCap
	}
	return (titleTerm + bodyTerm) / 2
}
