package filter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"newsbrief/internal/core"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func acceptable() core.Article {
	return core.Article{
		ID:          "a1",
		Title:       "A headline long enough to pass",
		SourceURL:   "https://example.com/a",
		SourceName:  "Example",
		Content:     strings.Repeat("body text ", 20),
		PublishedAt: testNow.Add(-3 * time.Hour),
		FetchedAt:   testNow,
	}
}

func TestCheckTitleLengthBoundary(t *testing.T) {
	cfg := DefaultConfig()

	short := acceptable()
	short.Title = "123456789" // 9 runes, below the 10-rune minimum
	ok, reason := cfg.Check(short, testNow)
	assert.False(t, ok)
	assert.Equal(t, "title too short", reason)

	exact := acceptable()
	exact.Title = "1234567890" // exactly at the minimum
	ok, _ = cfg.Check(exact, testNow)
	assert.True(t, ok)
}

func TestCheckBlockList(t *testing.T) {
	cfg := DefaultConfig()

	blocked := acceptable()
	blocked.Title = "[Removed] Some headline here"
	ok, reason := cfg.Check(blocked, testNow)
	assert.False(t, ok)
	assert.Equal(t, "title matches block list", reason)

	// Matching is case-insensitive.
	blocked.Title = "[removed] some headline here"
	ok, _ = cfg.Check(blocked, testNow)
	assert.False(t, ok)
}

func TestCheckBodyLength(t *testing.T) {
	cfg := DefaultConfig()

	thin := acceptable()
	thin.Content = ""
	thin.Description = "too short"
	ok, reason := cfg.Check(thin, testNow)
	assert.False(t, ok)
	assert.Equal(t, "body too short", reason)

	// Description alone can satisfy the check when content is absent.
	thin.Description = strings.Repeat("x", 50)
	ok, _ = cfg.Check(thin, testNow)
	assert.True(t, ok)
}

func TestCheckMaxAge(t *testing.T) {
	cfg := DefaultConfig()

	stale := acceptable()
	stale.PublishedAt = testNow.Add(-73 * time.Hour)
	ok, reason := cfg.Check(stale, testNow)
	assert.False(t, ok)
	assert.Equal(t, "article too old", reason)

	edge := acceptable()
	edge.PublishedAt = testNow.Add(-72 * time.Hour)
	ok, _ = cfg.Check(edge, testNow)
	assert.True(t, ok)
}

func TestApplyPreservesOrder(t *testing.T) {
	cfg := DefaultConfig()

	first := acceptable()
	first.ID = "first"
	rejected := acceptable()
	rejected.ID = "rejected"
	rejected.Title = "short"
	last := acceptable()
	last.ID = "last"

	out := cfg.Apply([]core.Article{first, rejected, last}, testNow)
	assert.Len(t, out, 2)
	assert.Equal(t, "first", out[0].ID)
	assert.Equal(t, "last", out[1].ID)
}

func TestApplyEmptyInput(t *testing.T) {
	out := DefaultConfig().Apply(nil, testNow)
	assert.Empty(t, out)
}
