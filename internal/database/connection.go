package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Connect opens the remote row store database and makes sure its schema exists.
// driver is either "sqlite3" or "postgres".
func Connect(driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case "sqlite3":
		if dir := filepath.Dir(dsn); dir != "." && !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	case "postgres":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == "sqlite3" {
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := InitializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InitializeSchema creates the content and stats tables if they don't exist
func InitializeSchema(db *sqlx.DB) error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	dateType := "TEXT"
	if db.DriverName() == "postgres" {
		idColumn = "BIGSERIAL PRIMARY KEY"
		dateType = "DATE"
	}

	tables := []struct {
		name string
		ddl  string
	}{
		{"content_sets", `
			CREATE TABLE IF NOT EXISTS content_sets (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL DEFAULT '',
				subtitle TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL DEFAULT ''
			)`},
		{"paragraphs", `
			CREATE TABLE IF NOT EXISTS paragraphs (
				id TEXT PRIMARY KEY,
				content_set_id TEXT NOT NULL REFERENCES content_sets(id),
				order_index INTEGER NOT NULL DEFAULT 0,
				content TEXT NOT NULL
			)`},
		{"wisdom_sections", `
			CREATE TABLE IF NOT EXISTS wisdom_sections (
				id TEXT PRIMARY KEY,
				content_set_id TEXT NOT NULL REFERENCES content_sets(id),
				type TEXT NOT NULL DEFAULT '',
				title TEXT NOT NULL DEFAULT '',
				content TEXT NOT NULL
			)`},
		{"user_progress", `
			CREATE TABLE IF NOT EXISTS user_progress (
				id ` + idColumn + `,
				user_id TEXT NOT NULL,
				content_id TEXT NOT NULL,
				content_type TEXT NOT NULL,
				completed BOOLEAN NOT NULL DEFAULT FALSE,
				completed_at TEXT,
				UNIQUE(user_id, content_id, content_type)
			)`},
		{"word_logs", `
			CREATE TABLE IF NOT EXISTS word_logs (
				id ` + idColumn + `,
				user_id TEXT NOT NULL,
				word_count INTEGER NOT NULL,
				created_at TEXT NOT NULL
			)`},
		{"sessions", `
			CREATE TABLE IF NOT EXISTS sessions (
				id ` + idColumn + `,
				user_id TEXT NOT NULL,
				content_set_id TEXT NOT NULL DEFAULT '',
				content_id TEXT NOT NULL DEFAULT '',
				original_text TEXT NOT NULL DEFAULT '',
				typed_text TEXT NOT NULL DEFAULT '',
				word_count INTEGER NOT NULL DEFAULT 0,
				time_spent_seconds INTEGER NOT NULL DEFAULT 0,
				timestamp TEXT NOT NULL
			)`},
		{"user_daily_stats", `
			CREATE TABLE IF NOT EXISTS user_daily_stats (
				id ` + idColumn + `,
				user_id TEXT NOT NULL,
				date ` + dateType + ` NOT NULL,
				total_words INTEGER NOT NULL DEFAULT 0,
				UNIQUE(user_id, date)
			)`},
		{"daily_totals", `
			CREATE TABLE IF NOT EXISTS daily_totals (
				id ` + idColumn + `,
				user_id TEXT NOT NULL,
				date ` + dateType + ` NOT NULL,
				total_words INTEGER NOT NULL DEFAULT 0,
				time_spent_seconds INTEGER NOT NULL DEFAULT 0,
				UNIQUE(user_id, date)
			)`},
		{"user_stats", `
			CREATE TABLE IF NOT EXISTS user_stats (
				user_id TEXT PRIMARY KEY,
				words INTEGER NOT NULL DEFAULT 0
			)`},
		{"access_codes", `
			CREATE TABLE IF NOT EXISTS access_codes (
				id ` + idColumn + `,
				code TEXT NOT NULL UNIQUE,
				code_type TEXT NOT NULL DEFAULT '',
				is_used BOOLEAN NOT NULL DEFAULT FALSE,
				used_at TEXT,
				user_id TEXT
			)`},
	}

	for _, t := range tables {
		if _, err := db.Exec(t.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
	}
	return nil
}
