// Package cache holds the most recent successful summary per article
// id. The router falls back to it when every provider fails.
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Backing is a durable summary store consulted on memory misses and
// written through on puts. internal/store provides the sqlite one.
type Backing interface {
	GetSummary(articleID string) (string, bool, error)
	PutSummary(articleID, summary string) error
}

// Summaries is a bounded in-memory summary cache with optional
// write-through persistence. Safe for concurrent use.
type Summaries struct {
	mem     *lru.Cache[string, string]
	backing Backing // may be nil
}

// New creates a summary cache holding up to size entries in memory.
// backing may be nil for a purely in-memory cache.
func New(size int, backing Backing) (*Summaries, error) {
	mem, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create summary cache: %w", err)
	}
	return &Summaries{mem: mem, backing: backing}, nil
}

// Get returns the most recent cached summary for an article id.
func (s *Summaries) Get(articleID string) (string, bool) {
	if summary, ok := s.mem.Get(articleID); ok {
		return summary, true
	}
	if s.backing == nil {
		return "", false
	}
	summary, ok, err := s.backing.GetSummary(articleID)
	if err != nil || !ok {
		return "", false
	}
	s.mem.Add(articleID, summary)
	return summary, true
}

// Put records the latest summary for an article id, replacing any
// previous entry.
func (s *Summaries) Put(articleID, summary string) error {
	s.mem.Add(articleID, summary)
	if s.backing == nil {
		return nil
	}
	if err := s.backing.PutSummary(articleID, summary); err != nil {
		return fmt.Errorf("failed to persist summary for %s: %w", articleID, err)
	}
	return nil
}

// Len reports the number of in-memory entries.
func (s *Summaries) Len() int { return s.mem.Len() }
