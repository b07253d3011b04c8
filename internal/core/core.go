package core

import (
	"fmt"
	"strings"
	"time"
)

// SourceType identifies the kind of upstream a record came from.
type SourceType string

const (
	SourceWireNews SourceType = "wire-news" // wire-service articles (NewsAPI etc.)
	SourceFeed     SourceType = "feed"      // RSS/Atom entries
	SourceFiling   SourceType = "filing"    // regulatory filings (EDINET etc.)
	SourcePreprint SourceType = "preprint"  // preprint metadata (arXiv etc.)
)

// ParseSourceType validates a raw source-type string against the closed set.
func ParseSourceType(s string) (SourceType, error) {
	switch SourceType(s) {
	case SourceWireNews, SourceFeed, SourceFiling, SourcePreprint:
		return SourceType(s), nil
	}
	return "", fmt.Errorf("unknown source type %q", s)
}

// Category is the editorial bucket an article is ranked under.
type Category string

const (
	CategoryAI            Category = "AI"
	CategoryFinance       Category = "finance"
	CategoryScience       Category = "science"
	CategoryManufacturing Category = "manufacturing"
	CategoryHobby         Category = "hobby"
	CategoryUnknown       Category = "unknown"
)

// ParseCategory maps a raw category string to the closed set, falling
// back to CategoryUnknown for anything unrecognized.
func ParseCategory(s string) Category {
	switch Category(s) {
	case CategoryAI, CategoryFinance, CategoryScience, CategoryManufacturing, CategoryHobby:
		return Category(s)
	}
	return CategoryUnknown
}

// Article is the canonical representation every pipeline stage operates on.
// It is created exactly once by the normalizer and mutated in place by the
// scorer (scores), deduplicator (IsDuplicate) and router (Summary).
type Article struct {
	ID         string     `json:"id"`          // Deterministic id derived from (title, source name)
	Title      string     `json:"title"`       // Article title
	SourceURL  string     `json:"source_url"`  // Link to the original article
	SourceName string     `json:"source_name"` // Human-readable source name
	SourceType SourceType `json:"source_type"` // Kind of upstream the record came from
	Category   Category   `json:"category"`    // Editorial bucket, "unknown" unless implied by source

	PublishedAt time.Time `json:"published_at"` // When the article was published (UTC)
	FetchedAt   time.Time `json:"fetched_at"`   // When the system retrieved the record (UTC)

	Summary          string   `json:"summary,omitempty"`           // Set only after successful routing
	SummaryProvider  string   `json:"summary_provider,omitempty"`  // Provider that produced the summary
	Keywords         []string `json:"keywords,omitempty"`          // Matched terms, order-irrelevant
	RelevanceScore   *int     `json:"relevance_score,omitempty"`   // 0-100, set by the scorer
	CredibilityScore *int     `json:"credibility_score,omitempty"` // 0-100, from the credibility table

	// Source-specific extras carried through for rendering and audit.
	Authors     []string       `json:"authors,omitempty"`
	Language    string         `json:"language,omitempty"`
	Description string         `json:"description,omitempty"` // Short description/abstract
	Content     string         `json:"content,omitempty"`     // Body text when the source provides one
	ImageURL    string         `json:"image_url,omitempty"`
	RawPayload  map[string]any `json:"raw_payload,omitempty"` // Original record, never mutated

	IsDuplicate bool `json:"is_duplicate"` // Set by the deduplicator on the retained representative
}

// clockSkewAllowance tolerates sources whose clocks run slightly ahead;
// published_at further in the future than this fails validation.
const clockSkewAllowance = time.Hour

// ValidationError reports a canonical-invariant violation at construction.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("article validation failed: %s %s", e.Field, e.Reason)
}

// Validate checks the construction-time invariants against the supplied
// reference time. The caller provides now so validation is reproducible.
func (a *Article) Validate(now time.Time) error {
	switch {
	case a.ID == "":
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	case a.Title == "":
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	case a.SourceURL == "":
		return &ValidationError{Field: "source_url", Reason: "must not be empty"}
	case a.SourceName == "":
		return &ValidationError{Field: "source_name", Reason: "must not be empty"}
	}

	if err := validateScore("relevance_score", a.RelevanceScore); err != nil {
		return err
	}
	if err := validateScore("credibility_score", a.CredibilityScore); err != nil {
		return err
	}

	if a.PublishedAt.After(now.Add(clockSkewAllowance)) {
		return &ValidationError{Field: "published_at", Reason: "is in the future"}
	}
	if a.FetchedAt.Before(a.PublishedAt) {
		return &ValidationError{Field: "fetched_at", Reason: "precedes published_at"}
	}
	return nil
}

func validateScore(field string, v *int) error {
	if v != nil && (*v < 0 || *v > 100) {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be in [0,100], got %d", *v)}
	}
	return nil
}

// BodyText returns the best available body for length checks and
// summarization: full content when present, otherwise the description.
func (a *Article) BodyText() string {
	if a.Content != "" {
		return a.Content
	}
	return a.Description
}

// Relevance returns the relevance score, or 0 when unset.
func (a *Article) Relevance() int {
	if a.RelevanceScore == nil {
		return 0
	}
	return *a.RelevanceScore
}

// SourceDescriptor identifies the upstream a raw record was fetched from.
// The fetch clients own this shape; the normalizer is its sole consumer here.
type SourceDescriptor struct {
	Name string     `json:"name"`
	Type SourceType `json:"type"`
}

// RawRecord is a source-specific record as handed over by a fetch client.
// Field names vary per source and are resolved by the normalizer.
type RawRecord map[string]any

// String returns the named field as a trimmed string, or "" if absent or
// not string-typed.
func (r RawRecord) String(key string) string {
	if v, ok := r[key]; ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// FirstString returns the first present, non-empty string among keys.
func (r RawRecord) FirstString(keys ...string) string {
	for _, k := range keys {
		if s := r.String(k); s != "" {
			return s
		}
	}
	return ""
}

// UsageOutcome classifies how a provider attempt ended.
type UsageOutcome string

const (
	OutcomeSuccess UsageOutcome = "success"
	OutcomeError   UsageOutcome = "error"
	OutcomeTimeout UsageOutcome = "timeout"
)

// APIUsageRecord is one append-only observability row for a provider call.
// Existing rows are never mutated.
type APIUsageRecord struct {
	Provider  string        `json:"provider"`   // Provider identifier
	Task      string        `json:"task"`       // Task name, e.g. "summarize"
	ArticleID string        `json:"article_id"` // Article the call was made for
	Tokens    int           `json:"tokens"`     // Estimated tokens consumed
	Latency   time.Duration `json:"latency"`    // Round-trip latency
	Outcome   UsageOutcome  `json:"outcome"`    // success | error | timeout
	Timestamp time.Time     `json:"timestamp"`  // When the attempt completed
}
