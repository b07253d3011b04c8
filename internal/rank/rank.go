// Package rank partitions articles by category and orders each
// partition deterministically.
package rank

import (
	"sort"

	"newsbrief/internal/core"
)

// Rank groups articles by category and sorts each group descending by
// (relevance score, published_at). The sort is stable, so articles that
// tie on both keys keep their input order and the output is fully
// deterministic.
func Rank(articles []core.Article) map[core.Category][]core.Article {
	ranked := make(map[core.Category][]core.Article)
	for _, a := range articles {
		ranked[a.Category] = append(ranked[a.Category], a)
	}

	for _, group := range ranked {
		sort.SliceStable(group, func(i, j int) bool {
			si, sj := group[i].Relevance(), group[j].Relevance()
			if si != sj {
				return si > sj
			}
			return group[i].PublishedAt.After(group[j].PublishedAt)
		})
	}
	return ranked
}

// CategoryOrder is the fixed display order for category groups.
var CategoryOrder = []core.Category{
	core.CategoryAI,
	core.CategoryFinance,
	core.CategoryScience,
	core.CategoryManufacturing,
	core.CategoryHobby,
	core.CategoryUnknown,
}

// Flatten returns all ranked articles as one slice, categories in a
// fixed display order, for callers that want a single sequence.
func Flatten(ranked map[core.Category][]core.Article) []core.Article {
	var out []core.Article
	for _, cat := range CategoryOrder {
		out = append(out, ranked[cat]...)
	}
	return out
}
