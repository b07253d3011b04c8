// Package filter drops low-quality, stale, or malformed canonical
// articles before scoring. All checks are pure and order-preserving.
package filter

import (
	"strings"
	"time"

	"newsbrief/internal/core"
)

// Config holds the acceptance thresholds. All four checks must pass for
// an article to survive.
type Config struct {
	MinTitleLength int           // Titles shorter than this are rejected (runes)
	MinBodyLength  int           // Body/description shorter than this is rejected (runes)
	MaxAge         time.Duration // Articles older than now - MaxAge are rejected
	BlockList      []string      // Title substrings that mark removed/withdrawn articles
}

// DefaultConfig returns the documented default thresholds.
func DefaultConfig() Config {
	return Config{
		MinTitleLength: 10,
		MinBodyLength:  50,
		MaxAge:         72 * time.Hour,
		BlockList:      []string{"[Removed]", "[Deleted]", "[削除]"},
	}
}

// Check reports whether the article passes all acceptance checks, and
// if not, which check rejected it.
func (c Config) Check(article core.Article, now time.Time) (bool, string) {
	if len([]rune(article.Title)) < c.MinTitleLength {
		return false, "title too short"
	}
	for _, marker := range c.BlockList {
		if strings.Contains(strings.ToLower(article.Title), strings.ToLower(marker)) {
			return false, "title matches block list"
		}
	}
	if len([]rune(article.BodyText())) < c.MinBodyLength {
		return false, "body too short"
	}
	if now.Sub(article.PublishedAt) > c.MaxAge {
		return false, "article too old"
	}
	return true, ""
}

// Apply returns the articles that pass every check, preserving input
// order. The rejected articles are dropped from the working set, never
// mutated.
func (c Config) Apply(articles []core.Article, now time.Time) []core.Article {
	surviving := make([]core.Article, 0, len(articles))
	for _, a := range articles {
		if ok, _ := c.Check(a, now); ok {
			surviving = append(surviving, a)
		}
	}
	return surviving
}
