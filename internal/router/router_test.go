package router

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsbrief/internal/core"
	"newsbrief/internal/provider"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]string)}
}

func (c *fakeCache) Get(id string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[id]
	return s, ok
}

func (c *fakeCache) Put(id, summary string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = summary
	return nil
}

func routable(id string) core.Article {
	return core.Article{
		ID:          id,
		Title:       "Some newsworthy headline about " + id,
		SourceURL:   "https://example.com/" + id,
		SourceName:  "Example",
		Category:    core.CategoryAI,
		Content:     "Body text for " + id,
		PublishedAt: testNow.Add(-time.Hour),
		FetchedAt:   testNow,
	}
}

func failing(id string, kind provider.ErrorKind) *provider.Static {
	return &provider.Static{Name: id, Fail: &provider.Error{Kind: kind}}
}

func working(id string) *provider.Static {
	return &provider.Static{Name: id, Response: id + ": "}
}

func newRouter(t *testing.T, providers []provider.Provider, opts Options, c SummaryCache) *Router {
	t.Helper()
	if opts.Table.Default == nil {
		ids := make([]string, len(providers))
		for i, p := range providers {
			ids[i] = p.ID()
		}
		opts.Table.Default = ids
	}
	r, err := New(providers, opts, c, NewUsageLog(nil))
	require.NoError(t, err)
	return r
}

func TestRouteFallbackOrder(t *testing.T) {
	r := newRouter(t, []provider.Provider{
		failing("p1", provider.KindTransport),
		failing("p2", provider.KindRateLimited),
		working("p3"),
	}, Options{}, nil)

	res := r.Route(context.Background(), routable("a1"))

	assert.Equal(t, StatusSummarized, res.Status)
	assert.Equal(t, "p3", res.Provider)
	assert.Equal(t, "p3", res.Article.SummaryProvider)
	assert.Equal(t, 3, res.Attempts)
	assert.True(t, strings.HasPrefix(res.Article.Summary, "p3: "))

	// Exactly two failures and one success in the usage log, in order.
	records := r.Usage().Records()
	require.Len(t, records, 3)
	assert.Equal(t, "p1", records[0].Provider)
	assert.Equal(t, core.OutcomeError, records[0].Outcome)
	assert.Equal(t, "p2", records[1].Provider)
	assert.Equal(t, core.OutcomeError, records[1].Outcome)
	assert.Equal(t, "p3", records[2].Provider)
	assert.Equal(t, core.OutcomeSuccess, records[2].Outcome)
}

func TestRouteFirstProviderWins(t *testing.T) {
	r := newRouter(t, []provider.Provider{working("p1"), working("p2")}, Options{}, nil)

	res := r.Route(context.Background(), routable("a1"))
	assert.Equal(t, "p1", res.Provider)
	assert.Equal(t, 1, res.Attempts, "later providers are not tried after a success")
}

func TestRouteExhaustionWithCache(t *testing.T) {
	c := newFakeCache()
	require.NoError(t, c.Put("a1", "last week's summary"))

	r := newRouter(t, []provider.Provider{
		failing("p1", provider.KindTimeout),
		failing("p2", provider.KindTransport),
	}, Options{}, c)

	res := r.Route(context.Background(), routable("a1"))

	assert.Equal(t, StatusExhausted, res.Status)
	assert.True(t, res.FromCache)
	assert.False(t, res.NeedsRetry)
	assert.Equal(t, "last week's summary", res.Article.Summary)

	// Timeout failures are recorded as timeouts.
	records := r.Usage().Records()
	require.Len(t, records, 2)
	assert.Equal(t, core.OutcomeTimeout, records[0].Outcome)
	assert.Equal(t, core.OutcomeError, records[1].Outcome)
}

func TestRouteExhaustionWithoutCache(t *testing.T) {
	r := newRouter(t, []provider.Provider{failing("p1", provider.KindTransport)}, Options{}, newFakeCache())

	res := r.Route(context.Background(), routable("a1"))

	assert.Equal(t, StatusExhausted, res.Status)
	assert.False(t, res.FromCache)
	assert.True(t, res.NeedsRetry)
	assert.Empty(t, res.Article.Summary)
}

func TestRouteSuccessPopulatesCache(t *testing.T) {
	c := newFakeCache()
	r := newRouter(t, []provider.Provider{working("p1")}, Options{}, c)

	res := r.Route(context.Background(), routable("a1"))
	require.Equal(t, StatusSummarized, res.Status)

	cached, ok := c.Get("a1")
	require.True(t, ok)
	assert.Equal(t, res.Article.Summary, cached)
}

func TestRouteCategoryRuleOverridesDefault(t *testing.T) {
	table := Table{
		Rules: map[core.Category]map[string][]string{
			core.CategoryAI: {provider.TaskSummarize: {"special"}},
		},
		Default: []string{"fallback"},
	}
	r := newRouter(t, []provider.Provider{working("fallback"), working("special")}, Options{Table: table}, nil)

	aiRes := r.Route(context.Background(), routable("a1"))
	assert.Equal(t, "special", aiRes.Provider)

	finance := routable("a2")
	finance.Category = core.CategoryFinance
	finRes := r.Route(context.Background(), finance)
	assert.Equal(t, "fallback", finRes.Provider)
}

func TestNewRejectsUnknownProviderInTable(t *testing.T) {
	table := Table{Default: []string{"ghost"}}
	_, err := New([]provider.Provider{working("p1")}, Options{Table: table}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestNewRejectsDuplicateProviderIDs(t *testing.T) {
	_, err := New([]provider.Provider{working("p1"), working("p1")},
		Options{Table: Table{Default: []string{"p1"}}}, nil, nil)
	assert.Error(t, err)
}

func TestDifficultyOverridePrefersTier(t *testing.T) {
	cheap := working("cheap")
	cheap.ProviderTier = provider.TierLow
	strong := working("strong")
	strong.ProviderTier = provider.TierHigh

	difficulty := DefaultDifficulty()
	difficulty.Enabled = true

	table := Table{Default: []string{"cheap", "strong"}}
	r := newRouter(t, []provider.Provider{cheap, strong},
		Options{Table: table, Difficulty: difficulty}, nil)

	dense := routable("paper")
	dense.Content = "quantum qubit theorem algorithm stochastic neural transformer"
	res := r.Route(context.Background(), dense)
	assert.Equal(t, "strong", res.Provider, "high-difficulty text prefers the high tier")

	casual := routable("note")
	casual.Content = "a friendly human interest story about a local bakery and its bread"
	res = r.Route(context.Background(), casual)
	assert.Equal(t, "cheap", res.Provider)
}

func TestDifficultyDisabledUsesTableOrder(t *testing.T) {
	cheap := working("cheap")
	cheap.ProviderTier = provider.TierLow
	strong := working("strong")
	strong.ProviderTier = provider.TierHigh

	r := newRouter(t, []provider.Provider{cheap, strong},
		Options{Table: Table{Default: []string{"strong", "cheap"}}}, nil)

	res := r.Route(context.Background(), routable("a1"))
	assert.Equal(t, "strong", res.Provider)
}

func TestRouteAllPreservesOrder(t *testing.T) {
	r := newRouter(t, []provider.Provider{working("p1")}, Options{Concurrency: 3}, nil)

	articles := []core.Article{routable("a"), routable("b"), routable("c"), routable("d")}
	results := r.RouteAll(context.Background(), articles)

	require.Len(t, results, 4)
	for i, res := range results {
		assert.Equal(t, articles[i].ID, res.Article.ID)
		assert.Equal(t, StatusSummarized, res.Status)
	}
}

// slowProvider tracks how many Summarize calls are in flight at once.
type slowProvider struct {
	mu       sync.Mutex
	inFlight int
	peak     int
}

func (p *slowProvider) ID() string { return "slow" }

func (p *slowProvider) Tier() provider.Tier { return provider.TierMedium }

func (p *slowProvider) Summarize(ctx context.Context, text string, maxOutputTokens int) (string, error) {
	p.mu.Lock()
	p.inFlight++
	if p.inFlight > p.peak {
		p.peak = p.inFlight
	}
	p.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	p.mu.Lock()
	p.inFlight--
	p.mu.Unlock()
	return "summary", nil
}

func TestRouteAllBoundsParallelism(t *testing.T) {
	slow := &slowProvider{}
	r := newRouter(t, []provider.Provider{slow}, Options{Concurrency: 2}, nil)

	articles := make([]core.Article, 12)
	for i := range articles {
		articles[i] = routable(string(rune('a' + i)))
	}

	results := r.RouteAll(context.Background(), articles)

	require.Len(t, results, 12)
	for _, res := range results {
		assert.Equal(t, StatusSummarized, res.Status)
	}
	assert.LessOrEqual(t, slow.peak, 2, "no more articles in flight than the configured bound")
	assert.Greater(t, slow.peak, 0)
}

func TestRouteAllCancellation(t *testing.T) {
	r := newRouter(t, []provider.Provider{working("p1")}, Options{Concurrency: 2}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := r.RouteAll(ctx, []core.Article{routable("a"), routable("b"), routable("c")})
	require.Len(t, results, 3)
	for _, res := range results {
		assert.Equal(t, StatusExhausted, res.Status)
		assert.Empty(t, res.Article.Summary, "cancelled articles carry no summary")
		assert.True(t, res.NeedsRetry)
	}
}

func TestUsageLogConcurrentAppends(t *testing.T) {
	log := NewUsageLog(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Append(core.APIUsageRecord{Provider: "p", Task: "summarize", Tokens: 1})
		}()
	}
	wg.Wait()

	assert.Len(t, log.Records(), 50)
}
