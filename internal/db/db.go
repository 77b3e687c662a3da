package db

import (
	"database/sql"
	"fmt"
	"sort"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens (or creates) the SQLite database at path and applies pending
// migrations. The returned handle is limited to a single connection: the
// store has one writer per process and short-lived row-level locks only.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

type migration struct {
	Version string
	SQL     string
}

var migrations = []migration{
	{
		Version: "001_create_print_jobs",
		SQL: `
			CREATE TABLE IF NOT EXISTS print_jobs (
				id              TEXT PRIMARY KEY,
				title           TEXT NOT NULL,
				description     TEXT NOT NULL DEFAULT '',
				priority        TEXT NOT NULL DEFAULT 'medium',
				category        TEXT NOT NULL DEFAULT '',
				estimated_time  TEXT NOT NULL DEFAULT '',
				due_date        DATETIME,
				status          TEXT NOT NULL DEFAULT 'pending',
				attempts        INTEGER NOT NULL DEFAULT 0,
				max_attempts    INTEGER NOT NULL DEFAULT 3,
				last_error      TEXT NOT NULL DEFAULT '',
				created_at      DATETIME NOT NULL,
				updated_at      DATETIME NOT NULL,
				next_attempt_at DATETIME NOT NULL,
				claimed_at      DATETIME,
				completed_at    DATETIME
			);
			CREATE INDEX IF NOT EXISTS idx_print_jobs_status     ON print_jobs(status);
			CREATE INDEX IF NOT EXISTS idx_print_jobs_created_at ON print_jobs(created_at);
			CREATE INDEX IF NOT EXISTS idx_print_jobs_priority   ON print_jobs(priority);
		`,
	},
	{
		Version: "002_create_settings",
		SQL: `
			CREATE TABLE IF NOT EXISTS settings (
				key        TEXT PRIMARY KEY,
				value      TEXT NOT NULL,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			);
		`,
	},
}

func runMigrations(conn *sql.DB) error {
	if _, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := conn.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate migrations: %w", err)
	}

	pending := make([]migration, 0, len(migrations))
	for _, m := range migrations {
		if !applied[m.Version] {
			pending = append(pending, m)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].Version < pending[j].Version
	})

	for _, m := range pending {
		tx, err := conn.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %s: %w", m.Version, err)
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %s: %w", m.Version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", m.Version, err)
		}
	}
	return nil
}
