// Package pipeline sequences the stages over one fetch batch:
// normalize -> filter -> score -> dedup -> rank -> route. Stages are
// strict barriers: each runs to completion over the whole working set
// before the next begins, and the working set is owned by a single run.
package pipeline

import (
	"context"
	"time"

	"newsbrief/internal/core"
	"newsbrief/internal/dedup"
	"newsbrief/internal/filter"
	"newsbrief/internal/logger"
	"newsbrief/internal/normalize"
	"newsbrief/internal/rank"
	"newsbrief/internal/router"
	"newsbrief/internal/score"
)

// SourceBatch is the inbound unit: the raw records fetched from one
// source, plus the descriptor identifying it.
type SourceBatch struct {
	Source  core.SourceDescriptor `json:"source"`
	Records []core.RawRecord      `json:"records"`
}

// Archiver persists canonical articles after a run. internal/store
// provides the sqlite one; archiving failures never fail the run.
type Archiver interface {
	SaveArticle(article core.Article) error
}

// Stats tracks one run's counters.
type Stats struct {
	TotalRecords          int
	NormalizationFailures int
	FilteredOut           int
	DuplicatesRemoved     int
	Summarized            int
	CacheFallbacks        int
	Exhausted             int
	StartTime             time.Time
	EndTime               time.Time
	ProcessingTime        time.Duration
}

// Result is the final output of one run: the per-category ranked,
// summarized article sequences.
type Result struct {
	ByCategory map[core.Category][]core.Article
	// NeedsRetry lists article ids that exhausted every provider with
	// no cached summary; they should be retried next run.
	NeedsRetry []string
	Stats      Stats
	// Warning is set when the batch produced no usable input.
	Warning string
}

// Pipeline orchestrates one fetch batch end to end.
type Pipeline struct {
	filter  filter.Config
	scorer  score.Config
	router  *router.Router
	archive Archiver         // may be nil
	now     func() time.Time // injectable for reproducible runs
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithArchiver persists surviving articles after routing.
func WithArchiver(a Archiver) Option {
	return func(p *Pipeline) { p.archive = a }
}

// WithClock overrides the batch reference clock.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New assembles a pipeline from the stage configurations and a ready
// router.
func New(filterCfg filter.Config, scoreCfg score.Config, r *router.Router, opts ...Option) *Pipeline {
	p := &Pipeline{
		filter: filterCfg,
		scorer: scoreCfg,
		router: r,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes one fetch batch. Per-record failures are isolated and
// counted; the only batch-level condition is zero survivors after the
// filter, which is reported as a warning, not an error.
func (p *Pipeline) Run(ctx context.Context, batches []SourceBatch) (*Result, error) {
	now := p.now().UTC()
	stats := Stats{StartTime: now}

	// Stage 1: normalize. Bad records are skipped and counted.
	var working []core.Article
	for _, batch := range batches {
		for _, raw := range batch.Records {
			stats.TotalRecords++
			article, err := normalize.Normalize(raw, batch.Source, now)
			if err != nil {
				stats.NormalizationFailures++
				logger.Warn("skipping record that failed normalization",
					"source", batch.Source.Name, "error", err.Error())
				continue
			}
			working = append(working, article)
		}
	}
	logger.Info("normalized batch",
		"records", stats.TotalRecords, "articles", len(working), "failures", stats.NormalizationFailures)

	// Stage 2: filter.
	surviving := p.filter.Apply(working, now)
	stats.FilteredOut = len(working) - len(surviving)
	if len(surviving) == 0 {
		stats.EndTime = p.now().UTC()
		stats.ProcessingTime = stats.EndTime.Sub(stats.StartTime)
		logger.Warn("no articles survived the filter", "records", stats.TotalRecords)
		return &Result{
			ByCategory: map[core.Category][]core.Article{},
			Stats:      stats,
			Warning:    "no articles survived filtering; nothing to publish",
		}, nil
	}

	// Stage 3: score.
	surviving = p.scorer.Apply(surviving, now)

	// Stage 4: deduplicate.
	deduped := dedup.Deduplicate(surviving)
	stats.DuplicatesRemoved = len(surviving) - len(deduped)

	// Stage 5: rank.
	ranked := rank.Rank(deduped)

	// Stage 6: route. The ranked order is flattened for dispatch and
	// summaries are written back into the per-category groups.
	ordered := rank.Flatten(ranked)
	results := p.router.RouteAll(ctx, ordered)

	routed := make(map[string]core.Article, len(results))
	var needsRetry []string
	for _, res := range results {
		routed[res.Article.ID] = res.Article
		switch {
		case res.Status == router.StatusSummarized:
			stats.Summarized++
		case res.FromCache:
			stats.CacheFallbacks++
		default:
			stats.Exhausted++
			if res.NeedsRetry {
				needsRetry = append(needsRetry, res.Article.ID)
			}
		}
	}
	for cat, group := range ranked {
		for i := range group {
			if r, ok := routed[group[i].ID]; ok {
				group[i] = r
			}
		}
		ranked[cat] = group
	}

	p.archiveAll(ranked)

	stats.EndTime = p.now().UTC()
	stats.ProcessingTime = stats.EndTime.Sub(stats.StartTime)
	logger.Info("batch complete",
		"articles", len(deduped),
		"summarized", stats.Summarized,
		"cache_fallbacks", stats.CacheFallbacks,
		"exhausted", stats.Exhausted,
		"duration", stats.ProcessingTime.String())

	return &Result{ByCategory: ranked, NeedsRetry: needsRetry, Stats: stats}, nil
}

func (p *Pipeline) archiveAll(ranked map[core.Category][]core.Article) {
	if p.archive == nil {
		return
	}
	for _, group := range ranked {
		for _, article := range group {
			if err := p.archive.SaveArticle(article); err != nil {
				logger.Warn("failed to archive article", "article_id", article.ID, "error", err.Error())
			}
		}
	}
}
