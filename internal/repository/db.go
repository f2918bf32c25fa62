package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and
// ensures all required tables exist. Pass ":memory:" for an in-memory
// database.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			holder TEXT NOT NULL,
			kind TEXT NOT NULL,
			currency TEXT NOT NULL,
			balance TEXT NOT NULL,
			authority TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_kind ON accounts(kind)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_currency ON accounts(currency)`,

		`CREATE TABLE IF NOT EXISTS statement_entries (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			value_date TEXT NOT NULL,
			currency TEXT NOT NULL,
			amount TEXT NOT NULL,
			direction TEXT NOT NULL,
			reference TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_statement_entries_kind ON statement_entries(kind)`,

		`CREATE TABLE IF NOT EXISTS cases (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			review_reason TEXT NOT NULL DEFAULT '',
			pending_until TEXT,
			retry_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			document TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cases_status ON cases(status)`,

		`CREATE TABLE IF NOT EXISTS account_operations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			case_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			account_id TEXT NOT NULL,
			account_name TEXT NOT NULL,
			account_kind TEXT NOT NULL,
			amount TEXT NOT NULL,
			currency TEXT NOT NULL,
			balance_before TEXT NOT NULL,
			balance_after TEXT NOT NULL,
			correlation_ref TEXT NOT NULL,
			action_tag TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			UNIQUE (case_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_account_operations_case ON account_operations(case_id)`,

		`CREATE TABLE IF NOT EXISTS audit_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			case_id TEXT NOT NULL,
			stage TEXT NOT NULL,
			outcome TEXT NOT NULL,
			details TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_case ON audit_events(case_id)`,

		`CREATE TABLE IF NOT EXISTS notices (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			case_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			recipient TEXT NOT NULL DEFAULT '',
			detail TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notices_case ON notices(case_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}

	return nil
}
