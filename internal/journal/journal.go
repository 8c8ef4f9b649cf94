// Package journal keeps a local SQLite record of every disklayer run and
// of the partition identities each create resolved.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DefaultPath is the default database location
const DefaultPath = "/var/lib/disklayer/journal.db"

// Journal wraps the SQLite database connection
type Journal struct {
	conn *sql.DB
	path string
}

// Open opens or creates the journal at the given path
func Open(path string) (*Journal, error) {
	if path == "" {
		path = DefaultPath
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to configure journal: %w", err)
	}

	j := &Journal{conn: conn, path: path}

	if err := j.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return j, nil
}

// Close closes the database connection
func (j *Journal) Close() error {
	return j.conn.Close()
}

// Path returns the database file path
func (j *Journal) Path() string {
	return j.path
}

// migrate runs the schema migrations not applied yet
func (j *Journal) migrate() error {
	_, err := j.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	var version int
	err = j.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return err
	}

	migrations := []string{
		migrationV1,
		migrationV2,
	}

	for i, migration := range migrations {
		v := i + 1
		if v <= version {
			continue
		}

		tx, err := j.conn.Begin()
		if err != nil {
			return err
		}

		if _, err := tx.Exec(migration); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration v%d failed: %w", v, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", v); err != nil {
			tx.Rollback()
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

// migrationV1 creates the run log
const migrationV1 = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    operation TEXT NOT NULL,
    host TEXT NOT NULL,
    status TEXT NOT NULL,
    error TEXT,
    dry_run INTEGER DEFAULT 0,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_host ON runs(host);
`

// migrationV2 records the identities resolved by create runs
const migrationV2 = `
CREATE TABLE IF NOT EXISTS partitions (
    id INTEGER PRIMARY KEY,
    run_id TEXT NOT NULL REFERENCES runs(id),
    disk TEXT NOT NULL,
    partition_id INTEGER NOT NULL,
    label TEXT NOT NULL,
    device TEXT,
    device_name TEXT,
    device_by_id TEXT,
    device_by_partlabel TEXT,
    luks_mapper TEXT
);

CREATE INDEX IF NOT EXISTS idx_partitions_run ON partitions(run_id);
CREATE INDEX IF NOT EXISTS idx_partitions_label ON partitions(label);
`
