package storage

import "fmt"

// migrate creates the schema if it doesn't exist.
func (db *DB) migrate() error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	db.logger.Debug("database migrations applied", "count", len(migrations))
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS entries (
		id                TEXT PRIMARY KEY,
		unique_id         TEXT NOT NULL UNIQUE,
		title             TEXT NOT NULL,
		provider          TEXT NOT NULL,
		station_id        TEXT NOT NULL DEFAULT '',
		place             TEXT NOT NULL DEFAULT '',
		name              TEXT NOT NULL DEFAULT '',
		departures        INTEGER NOT NULL DEFAULT 10,
		scan_interval     INTEGER NOT NULL DEFAULT 60,
		transport_types   TEXT NOT NULL DEFAULT '[]',
		api_key           TEXT NOT NULL DEFAULT '',
		api_key_secondary TEXT NOT NULL DEFAULT '',
		created_at        INTEGER NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_entries_provider ON entries(provider)`,
}
