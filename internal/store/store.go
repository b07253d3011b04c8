// Package store persists pipeline output: archived canonical articles,
// fallback summaries, and the append-only API usage log. It backs the
// interfaces the core consumes but the core never depends on it
// directly.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"newsbrief/internal/core"
	"newsbrief/internal/logger"
)

// Store is the SQLite-backed persistence layer.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (or creates) the database under dataDir.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "newsbrief.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	articlesTable := `
	CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		source_url TEXT NOT NULL,
		source_name TEXT NOT NULL,
		source_type TEXT,
		category TEXT,
		published_at DATETIME,
		fetched_at DATETIME,
		relevance_score INTEGER,
		credibility_score INTEGER,
		summary TEXT,
		summary_provider TEXT,
		is_duplicate BOOLEAN,
		keywords TEXT,
		raw_payload TEXT
	);`

	summariesTable := `
	CREATE TABLE IF NOT EXISTS summaries (
		article_id TEXT PRIMARY KEY,
		summary_text TEXT NOT NULL,
		updated_at DATETIME
	);`

	usageTable := `
	CREATE TABLE IF NOT EXISTS api_usage (
		provider TEXT NOT NULL,
		task TEXT NOT NULL,
		article_id TEXT,
		tokens INTEGER,
		latency_ms INTEGER,
		outcome TEXT,
		timestamp DATETIME
	);`

	for _, table := range []string{articlesTable, summariesTable, usageTable} {
		if _, err := s.db.Exec(table); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveArticle archives a canonical article keyed by id. Re-running a
// batch upserts the same row rather than duplicating it.
func (s *Store) SaveArticle(article core.Article) error {
	keywords := strings.Join(article.Keywords, ",")
	payload, err := json.Marshal(article.RawPayload)
	if err != nil {
		logger.Warn("failed to encode raw payload, archiving without it",
			"article_id", article.ID, "error", err.Error())
		payload = []byte("{}")
	}

	query := `
	INSERT OR REPLACE INTO articles
	(id, title, source_url, source_name, source_type, category,
	 published_at, fetched_at, relevance_score, credibility_score,
	 summary, summary_provider, is_duplicate, keywords, raw_payload)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.Exec(query,
		article.ID,
		article.Title,
		article.SourceURL,
		article.SourceName,
		string(article.SourceType),
		string(article.Category),
		article.PublishedAt,
		article.FetchedAt,
		nullableInt(article.RelevanceScore),
		nullableInt(article.CredibilityScore),
		article.Summary,
		article.SummaryProvider,
		article.IsDuplicate,
		keywords,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to save article %s: %w", article.ID, err)
	}
	return nil
}

// GetSummary returns the persisted fallback summary for an article id.
func (s *Store) GetSummary(articleID string) (string, bool, error) {
	var summary string
	err := s.db.QueryRow(
		`SELECT summary_text FROM summaries WHERE article_id = ?`, articleID,
	).Scan(&summary)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read summary for %s: %w", articleID, err)
	}
	return summary, true, nil
}

// PutSummary stores the most recent summary for an article id,
// replacing any previous one.
func (s *Store) PutSummary(articleID, summary string) error {
	_, err := s.db.Exec(`
	INSERT OR REPLACE INTO summaries (article_id, summary_text, updated_at)
	VALUES (?, ?, ?)`,
		articleID, summary, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store summary for %s: %w", articleID, err)
	}
	return nil
}

// AppendUsage appends one API usage row. Rows are insert-only; nothing
// updates or deletes them.
func (s *Store) AppendUsage(rec core.APIUsageRecord) error {
	_, err := s.db.Exec(`
	INSERT INTO api_usage (provider, task, article_id, tokens, latency_ms, outcome, timestamp)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Provider,
		rec.Task,
		rec.ArticleID,
		rec.Tokens,
		rec.Latency.Milliseconds(),
		string(rec.Outcome),
		rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append usage record: %w", err)
	}
	return nil
}

// ListUsage returns all usage rows recorded at or after since, oldest
// first.
func (s *Store) ListUsage(since time.Time) ([]core.APIUsageRecord, error) {
	rows, err := s.db.Query(`
	SELECT provider, task, article_id, tokens, latency_ms, outcome, timestamp
	FROM api_usage WHERE timestamp >= ? ORDER BY timestamp`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage records: %w", err)
	}
	defer rows.Close()

	var records []core.APIUsageRecord
	for rows.Next() {
		var rec core.APIUsageRecord
		var latencyMS int64
		var outcome string
		if err := rows.Scan(&rec.Provider, &rec.Task, &rec.ArticleID,
			&rec.Tokens, &latencyMS, &outcome, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan usage record: %w", err)
		}
		rec.Latency = time.Duration(latencyMS) * time.Millisecond
		rec.Outcome = core.UsageOutcome(outcome)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
