// Package history implements the local browsing-history/bookmark store and
// the fetcher that serves ranked candidate sites from it.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Store defines the interface for history data operations.
type Store interface {
	AddVisit(ctx context.Context, url, title string) error
	AddBookmark(ctx context.Context, url, title string) error
	RemoveBookmark(ctx context.Context, url string) error
	TopSites(ctx context.Context, filter string, limit int) ([]Site, error)
	Bookmarks(ctx context.Context, filter string, limit int) ([]Site, error)
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// Prepared statements
	insertVisit    *sql.Stmt
	insertBookmark *sql.Stmt
	deleteBookmark *sql.Stmt
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and
// migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.insertVisit, err = s.db.Prepare(`
		INSERT INTO visits (url, title, visit_count, last_visit)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(url) DO UPDATE SET
			visit_count = visit_count + 1,
			title       = excluded.title,
			last_visit  = excluded.last_visit
	`)
	if err != nil {
		return err
	}

	s.insertBookmark, err = s.db.Prepare(`
		INSERT INTO bookmarks (url, title)
		VALUES (?, ?)
		ON CONFLICT(url) DO UPDATE SET title = excluded.title
	`)
	if err != nil {
		return err
	}

	s.deleteBookmark, err = s.db.Prepare(`DELETE FROM bookmarks WHERE url = ?`)
	if err != nil {
		return err
	}

	return nil
}

// likePattern wraps a raw filter in a contains-anywhere LIKE pattern,
// escaping the LIKE metacharacters so typed input is matched literally.
func likePattern(filter string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(filter) + "%"
}

// parseTimestamp tries several common SQLite timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}

// AddVisit records one visit to url. A repeat visit bumps the count,
// refreshes the title and the last-visit time.
func (s *SQLiteStore) AddVisit(ctx context.Context, url, title string) error {
	ts := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.insertVisit.ExecContext(ctx, url, title, ts); err != nil {
		return fmt.Errorf("insert visit: %w", err)
	}
	return nil
}

// AddBookmark stores url as a bookmark. Re-adding refreshes the title only.
func (s *SQLiteStore) AddBookmark(ctx context.Context, url, title string) error {
	if _, err := s.insertBookmark.ExecContext(ctx, url, title); err != nil {
		return fmt.Errorf("insert bookmark: %w", err)
	}
	return nil
}

// RemoveBookmark deletes a bookmark by url.
func (s *SQLiteStore) RemoveBookmark(ctx context.Context, url string) error {
	res, err := s.deleteBookmark.ExecContext(ctx, url)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("bookmark %s not found", url)
	}
	return nil
}

// TopSites returns history rows whose url or title contains filter, ranked
// by visit count then recency. An empty filter returns the overall top rows.
func (s *SQLiteStore) TopSites(ctx context.Context, filter string, limit int) ([]Site, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT url, title, visit_count, last_visit FROM visits
	`
	var args []interface{}
	if filter != "" {
		query += ` WHERE url LIKE ? ESCAPE '\' OR title LIKE ? ESCAPE '\'`
		p := likePattern(filter)
		args = append(args, p, p)
	}
	query += " ORDER BY visit_count DESC, last_visit DESC LIMIT ?"
	args = append(args, limit)

	return s.scanSites(ctx, false, query, args...)
}

// Bookmarks returns bookmark rows whose url or title contains filter, most
// recently added first.
func (s *SQLiteStore) Bookmarks(ctx context.Context, filter string, limit int) ([]Site, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT url, title, 0, added_at FROM bookmarks
	`
	var args []interface{}
	if filter != "" {
		query += ` WHERE url LIKE ? ESCAPE '\' OR title LIKE ? ESCAPE '\'`
		p := likePattern(filter)
		args = append(args, p, p)
	}
	query += " ORDER BY added_at DESC LIMIT ?"
	args = append(args, limit)

	return s.scanSites(ctx, true, query, args...)
}

// scanSites executes a query and scans results into Site slices.
func (s *SQLiteStore) scanSites(ctx context.Context, bookmarked bool, query string, args ...interface{}) ([]Site, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sites: %w", err)
	}
	defer rows.Close()

	var sites []Site
	for rows.Next() {
		var site Site
		var tsStr string
		if err := rows.Scan(&site.URL, &site.Title, &site.VisitCount, &tsStr); err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		site.LastVisit, _ = parseTimestamp(tsStr)
		site.Bookmarked = bookmarked
		sites = append(sites, site)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Return empty slice rather than nil
	if sites == nil {
		sites = []Site{}
	}

	return sites, nil
}

// GetStats returns aggregate statistics about the database.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM visits").Scan(&stats.TotalVisits)
	if err != nil {
		return nil, fmt.Errorf("count visits: %w", err)
	}

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bookmarks").Scan(&stats.TotalBookmarks)
	if err != nil {
		return nil, fmt.Errorf("count bookmarks: %w", err)
	}

	if stats.TotalVisits > 0 {
		var oldestStr, newestStr string
		err = s.db.QueryRowContext(ctx, "SELECT MIN(last_visit), MAX(last_visit) FROM visits").Scan(&oldestStr, &newestStr)
		if err != nil {
			return nil, fmt.Errorf("visit time range: %w", err)
		}
		stats.OldestVisit, _ = parseTimestamp(oldestStr)
		stats.NewestVisit, _ = parseTimestamp(newestStr)
	}

	return stats, nil
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{s.insertVisit, s.insertBookmark, s.deleteBookmark}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
