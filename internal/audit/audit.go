// Package audit records migration runs in a SQLite ledger: one row per
// run and one row per identifier assignment. The ledger exists so the
// operator can verify foreign-key consistency and mapping completeness
// after the fact; the migration itself never reads it.
package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mberg/mpmigrate/internal/remap"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
	members_rows INTEGER NOT NULL,
	members_start INTEGER NOT NULL,
	subscriptions_rows INTEGER NOT NULL,
	subscriptions_start INTEGER NOT NULL,
	transactions_rows INTEGER NOT NULL,
	transactions_start INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS id_assignments (
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	table_name TEXT NOT NULL,
	old_id TEXT NOT NULL,
	new_id TEXT NOT NULL,
	PRIMARY KEY (run_id, table_name, old_id)
);
`

// Ledger wraps the SQLite audit database.
type Ledger struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the ledger at path and ensures the schema.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create ledger schema: %w", err)
	}

	return &Ledger{db: db, path: path}, nil
}

// Path returns the ledger file path.
func (l *Ledger) Path() string {
	return l.path
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record writes one run and every identifier assignment it made, in a
// single transaction.
func (l *Ledger) Record(res *remap.Result) error {
	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (run_id, members_rows, members_start,
			subscriptions_rows, subscriptions_start,
			transactions_rows, transactions_start)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, res.RunID,
		res.Members.Rows, res.Members.Start,
		res.Subscriptions.Rows, res.Subscriptions.Start,
		res.Transactions.Rows, res.Transactions.Start)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO id_assignments (run_id, table_name, old_id, new_id)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare assignment insert: %w", err)
	}
	defer stmt.Close()

	tables := []struct {
		name string
		ids  remap.IDMap
	}{
		{"members", res.Members.IDs},
		{"subscriptions", res.Subscriptions.IDs},
		{"transactions", res.Transactions.IDs},
	}
	for _, t := range tables {
		for _, old := range sortedByNewID(t.ids) {
			if _, err := stmt.Exec(res.RunID, t.name, old, t.ids[old]); err != nil {
				return fmt.Errorf("failed to record %s assignment %q: %w", t.name, old, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger transaction: %w", err)
	}
	return nil
}

// AssignmentCount returns the number of recorded assignments for a run.
func (l *Ledger) AssignmentCount(runID string) (int, error) {
	var n int
	err := l.db.QueryRow(`SELECT COUNT(*) FROM id_assignments WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count assignments: %w", err)
	}
	return n, nil
}

// Lookup returns the new identifier recorded for one original identifier.
func (l *Ledger) Lookup(runID, tableName, oldID string) (string, error) {
	var newID string
	err := l.db.QueryRow(`
		SELECT new_id FROM id_assignments
		WHERE run_id = ? AND table_name = ? AND old_id = ?
	`, runID, tableName, oldID).Scan(&newID)
	if err != nil {
		return "", fmt.Errorf("failed to look up %s assignment %q: %w", tableName, oldID, err)
	}
	return newID, nil
}

// sortedByNewID orders the original identifiers by their assigned
// sequence number so the ledger rows come out in allocation order.
func sortedByNewID(ids remap.IDMap) []string {
	olds := make([]string, 0, len(ids))
	for old := range ids {
		olds = append(olds, old)
	}
	sort.Slice(olds, func(i, j int) bool {
		a, _ := strconv.Atoi(ids[olds[i]])
		b, _ := strconv.Atoi(ids[olds[j]])
		return a < b
	})
	return olds
}
