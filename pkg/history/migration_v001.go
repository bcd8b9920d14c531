package history

import "database/sql"

// migrateV001 creates the initial schema: the visits and bookmarks tables
// with their indexes. Every statement uses IF NOT EXISTS for idempotency.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS visits (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			url         TEXT NOT NULL UNIQUE,
			title       TEXT NOT NULL DEFAULT '',
			visit_count INTEGER NOT NULL DEFAULT 1,
			last_visit  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS bookmarks (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			url        TEXT NOT NULL UNIQUE,
			title      TEXT NOT NULL DEFAULT '',
			added_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_visits_rank     ON visits(visit_count DESC, last_visit DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_visits_last     ON visits(last_visit)`,
		`CREATE INDEX IF NOT EXISTS idx_bookmarks_added ON bookmarks(added_at)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
