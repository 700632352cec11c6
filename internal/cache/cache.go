// Package cache persists session summaries in a SQLite database so repeated
// listings skip re-reading unchanged files.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"clawlog/internal/store"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Cache is a SQLite-backed store.SummaryCache.
type Cache struct {
	db *sql.DB
}

var _ store.SummaryCache = (*Cache)(nil)

// DefaultPath returns the standard cache database location under the
// user cache directory.
func DefaultPath() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve cache directory: %w", err)
	}
	return filepath.Join(base, "clawlog", "sessions.db"), nil
}

// Open opens or creates the cache database at the given path.
func Open(dbPath string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached summary for path when the recorded mtime and size
// both match. A stale or absent row is a miss, not an error.
func (c *Cache) Get(path string, mtimeNs, sizeBytes int64) (store.SessionSummary, bool, error) {
	row := c.db.QueryRow(`SELECT
		agent, session_id, messages, user_messages, assistant_messages,
		total_cost, first_at, last_at, first_prompt, deleted
		FROM sessions
		WHERE path = ? AND mtime_ns = ? AND size_bytes = ?`,
		path, mtimeNs, sizeBytes)

	sum := store.SessionSummary{
		Path:      path,
		Modified:  time.Unix(0, mtimeNs),
		SizeBytes: sizeBytes,
	}
	var firstAt, lastAt, firstPrompt sql.NullString
	var deleted int
	err := row.Scan(
		&sum.Agent, &sum.SessionID, &sum.Messages, &sum.UserCount, &sum.AssistantCount,
		&sum.TotalCost, &firstAt, &lastAt, &firstPrompt, &deleted,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return store.SessionSummary{}, false, nil
	}
	if err != nil {
		return store.SessionSummary{}, false, err
	}

	if firstAt.Valid && firstAt.String != "" {
		sum.FirstAt, _ = time.Parse(time.RFC3339Nano, firstAt.String)
	}
	if lastAt.Valid && lastAt.String != "" {
		sum.LastAt, _ = time.Parse(time.RFC3339Nano, lastAt.String)
	}
	if firstPrompt.Valid {
		sum.FirstPrompt = firstPrompt.String
	}
	sum.Deleted = deleted != 0

	return sum, true, nil
}

// Put stores or replaces the summary row for sum.Path.
func (c *Cache) Put(sum store.SessionSummary) error {
	deleted := 0
	if sum.Deleted {
		deleted = 1
	}
	firstAt := ""
	if !sum.FirstAt.IsZero() {
		firstAt = sum.FirstAt.UTC().Format(time.RFC3339Nano)
	}
	lastAt := ""
	if !sum.LastAt.IsZero() {
		lastAt = sum.LastAt.UTC().Format(time.RFC3339Nano)
	}

	_, err := c.db.Exec(`INSERT OR REPLACE INTO sessions
		(path, mtime_ns, size_bytes, agent, session_id, messages,
		 user_messages, assistant_messages, total_cost, first_at, last_at,
		 first_prompt, deleted, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.Path, sum.Modified.UnixNano(), sum.SizeBytes, sum.Agent, sum.SessionID,
		sum.Messages, sum.UserCount, sum.AssistantCount, sum.TotalCost,
		firstAt, lastAt, sum.FirstPrompt, deleted,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// Count returns the number of cached summary rows.
func (c *Cache) Count() (int, error) {
	var count int
	err := c.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count)
	return count, err
}

// Prune drops rows whose path is not in keep. It returns the number of
// rows removed.
func (c *Cache) Prune(keep map[string]bool) (int, error) {
	rows, err := c.db.Query("SELECT path FROM sessions")
	if err != nil {
		return 0, err
	}
	defer rows.Close() //nolint:errcheck

	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return 0, err
		}
		if !keep[path] {
			stale = append(stale, path)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, path := range stale {
		if _, err := c.db.Exec("DELETE FROM sessions WHERE path = ?", path); err != nil {
			return len(stale), err
		}
	}
	return len(stale), nil
}
