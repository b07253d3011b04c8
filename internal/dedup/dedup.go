// Package dedup merges near-duplicate articles. Two articles are the
// same story when their titles, lower-cased and with digit runs
// collapsed, are identical.
package dedup

import (
	"regexp"
	"strings"

	"newsbrief/internal/core"
)

var digitRuns = regexp.MustCompile(`[0-9]+`)

// NormalizeTitle produces the duplicate-group key for a title:
// lower-cased, whitespace collapsed, every digit run replaced by a
// single placeholder digit so "profit up 20%" and "profit up 35%"
// collide.
func NormalizeTitle(title string) string {
	key := strings.ToLower(strings.TrimSpace(title))
	key = digitRuns.ReplaceAllString(key, "0")
	return strings.Join(strings.Fields(key), " ")
}

// Deduplicate keeps exactly one representative per duplicate group: the
// highest-scored member, ties broken by earliest published_at. Losing
// members are removed from the working set. The retained representative
// gets IsDuplicate set when its group had more than one member.
//
// Single pass over the input; output order follows each group's first
// appearance, so results are stable for a fixed input order.
func Deduplicate(articles []core.Article) []core.Article {
	// Maps the group key to the representative's position in out.
	best := make(map[string]int, len(articles))
	out := make([]core.Article, 0, len(articles))

	for _, a := range articles {
		key := NormalizeTitle(a.Title)
		idx, seen := best[key]
		if !seen {
			out = append(out, a)
			best[key] = len(out) - 1
			continue
		}

		if beats(a, out[idx]) {
			out[idx] = a
		}
		out[idx].IsDuplicate = true
	}
	return out
}

// beats reports whether challenger should replace current as the group
// representative: higher relevance score wins, earlier published_at
// breaks ties.
func beats(challenger, current core.Article) bool {
	cs, rs := challenger.Relevance(), current.Relevance()
	if cs != rs {
		return cs > rs
	}
	return challenger.PublishedAt.Before(current.PublishedAt)
}
