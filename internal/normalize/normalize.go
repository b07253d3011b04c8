// Package normalize converts source-specific raw records into canonical
// articles. It is pure: all inputs, including the reference time, come
// from the caller, and no I/O happens here.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"newsbrief/internal/core"
)

// articleNamespace seeds deterministic article ids. Repeated fetches of
// the same (title, source) pair must collide to the same id, so ids are
// name-based UUIDs, never random.
var articleNamespace = uuid.MustParse("8f2b4a6e-1d3c-4f5a-9b7e-2c8d0e4f6a1b")

// dateLayouts covers the publication-date formats the supported sources
// emit: RFC3339 (NewsAPI, arXiv), RFC1123/RFC822 (RSS), and the bare
// date used by filing indexes.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NormalizationError reports a raw record that cannot be normalized.
// The orchestrator skips the record and continues the batch.
type NormalizationError struct {
	Source string // Source name the record came from
	Field  string // Raw field that was missing or malformed
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("cannot normalize record from %s: field %q %s", e.Source, e.Field, e.Reason)
}

// ArticleID derives the stable identifier for a (title, source name)
// pair. Identical inputs always produce the same id.
func ArticleID(title, sourceName string) string {
	name := strings.ToLower(strings.TrimSpace(title)) + "|" + strings.ToLower(strings.TrimSpace(sourceName))
	return uuid.NewSHA1(articleNamespace, []byte(name)).String()
}

// Normalize converts one raw record into a canonical article. The
// supplied now becomes fetched_at and anchors validation.
func Normalize(raw core.RawRecord, source core.SourceDescriptor, now time.Time) (core.Article, error) {
	title := raw.FirstString("title", "headline")
	if title == "" {
		return core.Article{}, &NormalizationError{Source: source.Name, Field: "title", Reason: "is missing"}
	}

	sourceURL := raw.FirstString("url", "source_url", "link")
	if sourceURL == "" {
		return core.Article{}, &NormalizationError{Source: source.Name, Field: "url", Reason: "is missing"}
	}

	publishedRaw := raw.FirstString("published_at", "publishedAt", "pubDate", "published", "date", "submitted")
	if publishedRaw == "" {
		return core.Article{}, &NormalizationError{Source: source.Name, Field: "published_at", Reason: "is missing"}
	}
	publishedAt, err := parseDate(publishedRaw)
	if err != nil {
		return core.Article{}, &NormalizationError{Source: source.Name, Field: "published_at", Reason: err.Error()}
	}

	fetchedAt := now.UTC()
	if publishedAt.After(fetchedAt) {
		// Source clock runs ahead; keep fetched_at >= published_at.
		fetchedAt = publishedAt
	}

	article := core.Article{
		ID:          ArticleID(title, source.Name),
		Title:       title,
		SourceURL:   sourceURL,
		SourceName:  source.Name,
		SourceType:  source.Type,
		Category:    categoryFor(source.Type, raw.String("category")),
		PublishedAt: publishedAt,
		FetchedAt:   fetchedAt,
		Language:    raw.String("language"),
		Description: raw.FirstString("description", "summary", "abstract"),
		Content:     raw.String("content"),
		ImageURL:    raw.FirstString("image_url", "urlToImage"),
		Authors:     stringSlice(raw["authors"]),
		RawPayload:  raw,
	}

	if err := article.Validate(now); err != nil {
		return core.Article{}, err
	}
	return article, nil
}

// categoryFor resolves an article's category. Some source types imply
// one deterministically; everything else keeps the raw category or
// falls back to unknown.
func categoryFor(st core.SourceType, raw string) core.Category {
	switch st {
	case core.SourceFiling:
		return core.CategoryFinance
	case core.SourcePreprint:
		return core.CategoryScience
	}
	return core.ParseCategory(raw)
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("has unrecognized date format %q", s)
}

func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
