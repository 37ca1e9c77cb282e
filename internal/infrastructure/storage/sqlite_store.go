// Package storage implements the persistence gateway on an embedded sqlite
// database. All writes are single-row inserts/updates; the pipeline commits
// facts incrementally, so no cross-row transactions are needed.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/revixhub/news-ai-filter/internal/domain"
	"github.com/revixhub/news-ai-filter/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    type TEXT NOT NULL,
    name TEXT NOT NULL,
    endpoint TEXT NOT NULL,
    is_active BOOLEAN DEFAULT 1,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS content (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source_id INTEGER NOT NULL,
    source_name TEXT NOT NULL,
    title TEXT NOT NULL,
    body TEXT NOT NULL,
    link TEXT,
    published_at TEXT NOT NULL,
    processed_at TEXT,
    importance_score INTEGER,
    category TEXT,
    explanation TEXT,
    is_promotional BOOLEAN DEFAULT 0,
    FOREIGN KEY (source_id) REFERENCES sources(id)
);

CREATE TABLE IF NOT EXISTS digests (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    insights TEXT,
    created_at TEXT NOT NULL,
    sent_at TEXT
);

CREATE TABLE IF NOT EXISTS metrics (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    digest_id INTEGER,
    run_id TEXT,
    duration_seconds REAL NOT NULL,
    sources_count INTEGER NOT NULL,
    raw_items_count INTEGER NOT NULL,
    scored_items_count INTEGER NOT NULL,
    top_items_count INTEGER NOT NULL,
    errors_count INTEGER DEFAULT 0,
    created_at TEXT NOT NULL,
    FOREIGN KEY (digest_id) REFERENCES digests(id)
);

CREATE INDEX IF NOT EXISTS idx_content_published_at ON content(published_at);
CREATE INDEX IF NOT EXISTS idx_content_fingerprint ON content(source_id, title);
CREATE INDEX IF NOT EXISTS idx_content_importance ON content(importance_score);
`

// timeLayout keeps timestamps lexicographically comparable inside sqlite.
const timeLayout = time.RFC3339

// Store persists pipeline state in a sqlite database.
type Store struct {
	db *sql.DB
}

var _ ports.ContentStore = (*Store)(nil)

// Open opens or creates the database at path and bootstraps the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// sqlite serializes writers anyway; a single pooled connection avoids
	// SQLITE_BUSY under concurrent pipeline writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// AddSource inserts a source row and returns its id.
func (s *Store) AddSource(ctx context.Context, source domain.Source) (int64, error) {
	query, args, err := sq.Insert("sources").
		Columns("type", "name", "endpoint", "is_active").
		Values(string(source.Type), source.Name, source.Endpoint, source.Active).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert source: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert source: %w", err)
	}

	return result.LastInsertId()
}

// ActiveSources lists active sources, optionally scoped to one type.
func (s *Store) ActiveSources(ctx context.Context, sourceType domain.SourceType) ([]domain.Source, error) {
	builder := sq.Select("id", "type", "name", "endpoint", "is_active").
		From("sources").
		Where(sq.Eq{"is_active": true})
	if sourceType != "" {
		builder = builder.Where(sq.Eq{"type": string(sourceType)})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select sources: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		var (
			src     domain.Source
			srcType string
		)
		if err := rows.Scan(&src.ID, &srcType, &src.Name, &src.Endpoint, &src.Active); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		src.Type = domain.SourceType(srcType)
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return sources, nil
}

// SetSourceActive toggles a source without touching its other fields.
func (s *Store) SetSourceActive(ctx context.Context, id int64, active bool) error {
	query, args, err := sq.Update("sources").
		Set("is_active", active).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update source: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update source: %w", err)
	}

	return nil
}

// IsDuplicate reports whether a row with the same (source, title) fingerprint
// exists inside the freshness window.
func (s *Store) IsDuplicate(ctx context.Context, title string, sourceID int64, window time.Duration) (bool, error) {
	cutoff := time.Now().UTC().Add(-window).Format(timeLayout)

	query, args, err := sq.Select("COUNT(*)").
		From("content").
		Where(sq.Eq{"title": title, "source_id": sourceID}).
		Where(sq.GtOrEq{"published_at": cutoff}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build duplicate check: %w", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("duplicate check: %w", err)
	}

	return count > 0, nil
}

// SaveRawContent inserts a raw item before scoring and returns its row id.
func (s *Store) SaveRawContent(ctx context.Context, item domain.RawItem, promotional bool) (int64, error) {
	query, args, err := sq.Insert("content").
		Columns("source_id", "source_name", "title", "body", "link",
			"published_at", "processed_at", "is_promotional").
		Values(item.SourceID, item.SourceName, item.Title, item.Body, item.Link,
			item.PublishedAt.UTC().Format(timeLayout),
			time.Now().UTC().Format(timeLayout),
			promotional).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert content: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert content: %w", err)
	}

	return result.LastInsertId()
}

// UpdateAnalysis writes scoring results onto an already saved row.
func (s *Store) UpdateAnalysis(ctx context.Context, id int64, score int, category domain.Category, explanation string) error {
	query, args, err := sq.Update("content").
		Set("importance_score", score).
		Set("category", string(category)).
		Set("explanation", explanation).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update analysis: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update analysis: %w", err)
	}

	return nil
}

// SaveDigest stores the assembled digest as a JSON snapshot and returns its id.
func (s *Store) SaveDigest(ctx context.Context, digest domain.Digest) (int64, error) {
	content, err := json.Marshal(map[string]any{
		"top_items":   digest.TopItems,
		"other_items": digest.OtherItems,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal digest content: %w", err)
	}

	insights, err := json.Marshal(digest.Insights)
	if err != nil {
		return 0, fmt.Errorf("marshal digest insights: %w", err)
	}

	query, args, err := sq.Insert("digests").
		Columns("user_id", "title", "content", "insights", "created_at").
		Values(digest.UserID, digest.Title, string(content), string(insights),
			digest.CreatedAt.UTC().Format(timeLayout)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert digest: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert digest: %w", err)
	}

	return result.LastInsertId()
}

// MarkDigestSent records the delivery timestamp.
func (s *Store) MarkDigestSent(ctx context.Context, id int64, sentAt time.Time) error {
	query, args, err := sq.Update("digests").
		Set("sent_at", sentAt.UTC().Format(timeLayout)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update digest: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update digest: %w", err)
	}

	return nil
}

// SaveMetrics stores one accounting row per generation run.
func (s *Store) SaveMetrics(ctx context.Context, metrics domain.ProcessingMetrics) error {
	var digestID any
	if metrics.DigestID != 0 {
		digestID = metrics.DigestID
	}

	query, args, err := sq.Insert("metrics").
		Columns("digest_id", "run_id", "duration_seconds", "sources_count",
			"raw_items_count", "scored_items_count", "top_items_count",
			"errors_count", "created_at").
		Values(digestID, metrics.RunID, metrics.Duration.Seconds(),
			metrics.SourcesCount, metrics.RawItemsCount, metrics.ScoredItemsCount,
			metrics.TopItemsCount, metrics.ErrorsCount,
			metrics.CreatedAt.UTC().Format(timeLayout)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert metrics: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert metrics: %w", err)
	}

	return nil
}

// CleanupOlderThan removes content rows older than the retention period and
// returns how many were deleted.
func (s *Store) CleanupOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(timeLayout)

	query, args, err := sq.Delete("content").
		Where(sq.Lt{"published_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build cleanup: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("cleanup content: %w", err)
	}

	return result.RowsAffected()
}
