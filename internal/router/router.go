// Package router selects a summarization provider for each ranked
// article, invokes it, and falls back across an ordered provider list
// on failure. Many articles may be routed in parallel; within one
// article, providers are always tried sequentially so failed attempts
// never burn quota on racing calls.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"newsbrief/internal/core"
	"newsbrief/internal/cost"
	"newsbrief/internal/logger"
	"newsbrief/internal/provider"
)

// Status tracks an article through the routing state machine:
// pending -> awaiting-provider -> summarized | exhausted.
type Status string

const (
	StatusPending          Status = "pending"
	StatusAwaitingProvider Status = "awaiting-provider"
	StatusSummarized       Status = "summarized"
	StatusExhausted        Status = "exhausted"
)

// SummaryCache is the fallback store consulted when every provider
// fails for an article.
type SummaryCache interface {
	Get(articleID string) (string, bool)
	Put(articleID, summary string) error
}

// Result is the routing outcome for one article.
type Result struct {
	Article    core.Article // Copy with Summary set on success or cache hit
	Status     Status
	Provider   string // Provider that produced the summary, if any
	FromCache  bool   // Summary came from the fallback cache
	Attempts   int    // Provider attempts actually made
	NeedsRetry bool   // Exhausted with no cached summary; retry next run
}

// Options configures a Router.
type Options struct {
	Table           Table
	Difficulty      Difficulty
	MaxOutputTokens int   // Per-summary output bound passed to providers
	Concurrency     int64 // Max articles routed in parallel
}

// Router routes summarize calls across the configured providers.
// The provider registry and routing table are fixed at construction
// and never mutated afterwards.
type Router struct {
	providers map[string]provider.Provider
	order     []string // Registration order, used by the difficulty override
	opts      Options
	cache     SummaryCache // may be nil
	usage     *UsageLog
}

// New validates the routing table against the registered providers and
// returns a ready router. Every id referenced by a rule must name a
// registered provider.
func New(providers []provider.Provider, opts Options, summaries SummaryCache, usage *UsageLog) (*Router, error) {
	if len(providers) == 0 {
		return nil, errors.New("router needs at least one provider")
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = 300
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if usage == nil {
		usage = NewUsageLog(nil)
	}

	registry := make(map[string]provider.Provider, len(providers))
	order := make([]string, 0, len(providers))
	for _, p := range providers {
		if _, dup := registry[p.ID()]; dup {
			return nil, fmt.Errorf("duplicate provider id %q", p.ID())
		}
		registry[p.ID()] = p
		order = append(order, p.ID())
	}

	check := func(list []string, where string) error {
		for _, id := range list {
			if _, ok := registry[id]; !ok {
				return fmt.Errorf("routing table (%s) references unknown provider %q", where, id)
			}
		}
		return nil
	}
	if err := check(opts.Table.Default, "default"); err != nil {
		return nil, err
	}
	for cat, byTask := range opts.Table.Rules {
		for task, list := range byTask {
			if err := check(list, fmt.Sprintf("%s/%s", cat, task)); err != nil {
				return nil, err
			}
		}
	}

	return &Router{providers: registry, order: order, opts: opts, cache: summaries, usage: usage}, nil
}

// Usage returns the router's append-only usage log.
func (r *Router) Usage() *UsageLog { return r.usage }

// Route summarizes one article, trying providers strictly in priority
// order. On exhaustion it falls back to the summary cache; exhaustion
// is logged, never returned as an error.
func (r *Router) Route(ctx context.Context, article core.Article) Result {
	res := Result{Article: article, Status: StatusPending}

	list := r.providerOrder(article)
	if len(list) == 0 {
		logger.Warn("no providers configured for article", "article_id", article.ID, "category", string(article.Category))
		return r.exhausted(res, false)
	}

	res.Status = StatusAwaitingProvider
	text := summarizeInput(article)
	inputTokens := cost.EstimateTokenCount(text)

	for _, id := range list {
		if ctx.Err() != nil {
			return r.exhausted(res, true)
		}

		p := r.providers[id]
		start := time.Now()
		summary, err := p.Summarize(ctx, text, r.opts.MaxOutputTokens)
		latency := time.Since(start)
		res.Attempts++

		if err != nil {
			r.recordAttempt(article.ID, id, inputTokens, latency, err)
			if ctx.Err() != nil {
				// Run-level cancellation, not a provider fault.
				return r.exhausted(res, true)
			}
			logger.Warn("provider attempt failed, trying next",
				"article_id", article.ID, "provider", id, "error", err.Error())
			continue
		}

		r.usage.Append(core.APIUsageRecord{
			Provider:  id,
			Task:      provider.TaskSummarize,
			ArticleID: article.ID,
			Tokens:    inputTokens + cost.EstimateTokenCount(summary),
			Latency:   latency,
			Outcome:   core.OutcomeSuccess,
			Timestamp: time.Now().UTC(),
		})

		res.Article.Summary = summary
		res.Article.SummaryProvider = id
		res.Provider = id
		res.Status = StatusSummarized

		if r.cache != nil {
			if err := r.cache.Put(article.ID, summary); err != nil {
				logger.Warn("failed to cache summary", "article_id", article.ID, "error", err.Error())
			}
		}
		return res
	}

	return r.exhausted(res, false)
}

// RouteAll routes a batch with bounded parallelism, preserving input
// order in the results. When ctx is cancelled, unstarted and in-flight
// articles surface as exhausted with no summary; no worker slot leaks.
func (r *Router) RouteAll(ctx context.Context, articles []core.Article) []Result {
	results := make([]Result, len(articles))
	sem := semaphore.NewWeighted(r.opts.Concurrency)
	var wg sync.WaitGroup

	for i := range articles {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Run cancelled while waiting for a slot.
			for j := i; j < len(articles); j++ {
				results[j] = Result{Article: articles[j], Status: StatusExhausted, NeedsRetry: true}
			}
			break
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = r.Route(ctx, articles[i])
		}(i)
	}

	wg.Wait()
	return results
}

// providerOrder resolves the ordered provider list for an article.
// With the difficulty override enabled, tier-matching providers are
// preferred ahead of the category table's list; otherwise the table
// (or its default) is used as-is.
func (r *Router) providerOrder(article core.Article) []string {
	tableList := r.opts.Table.ProvidersFor(article.Category, provider.TaskSummarize)
	if !r.opts.Difficulty.Enabled {
		return tableList
	}

	tier := r.opts.Difficulty.Classify(summarizeInput(article))
	seen := make(map[string]bool, len(r.order))
	var list []string
	for _, id := range r.order {
		if r.providers[id].Tier() == tier {
			list = append(list, id)
			seen[id] = true
		}
	}
	for _, id := range tableList {
		if !seen[id] {
			list = append(list, id)
			seen[id] = true
		}
	}
	return list
}

// exhausted finalizes a routing failure. Unless the run was cancelled,
// the most recent cached summary for the article id is returned when
// one exists; otherwise the article is marked for retry next run.
func (r *Router) exhausted(res Result, cancelled bool) Result {
	res.Status = StatusExhausted

	if !cancelled && r.cache != nil {
		if summary, ok := r.cache.Get(res.Article.ID); ok {
			res.Article.Summary = summary
			res.FromCache = true
			logger.Info("all providers failed, using cached summary",
				"article_id", res.Article.ID, "attempts", res.Attempts)
			return res
		}
	}

	res.NeedsRetry = true
	logger.Error("article exhausted all providers with no cached summary", nil,
		"article_id", res.Article.ID, "attempts", res.Attempts, "cancelled", cancelled)
	return res
}

// summarizeInput assembles the text handed to providers: title plus the
// best available body.
func summarizeInput(article core.Article) string {
	parts := []string{"Title: " + article.Title}
	if article.Description != "" && article.Description != article.Content {
		parts = append(parts, article.Description)
	}
	if article.Content != "" {
		parts = append(parts, article.Content)
	}
	return strings.Join(parts, "\n\n")
}

// recordAttempt appends a failed attempt to the usage log.
func (r *Router) recordAttempt(articleID, providerID string, tokens int, latency time.Duration, err error) {
	outcome := core.OutcomeError
	var perr *provider.Error
	if errors.As(err, &perr) && perr.Kind == provider.KindTimeout {
		outcome = core.OutcomeTimeout
	}

	r.usage.Append(core.APIUsageRecord{
		Provider:  providerID,
		Task:      provider.TaskSummarize,
		ArticleID: articleID,
		Tokens:    tokens,
		Latency:   latency,
		Outcome:   outcome,
		Timestamp: time.Now().UTC(),
	})
}
