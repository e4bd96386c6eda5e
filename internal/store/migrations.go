package store

import (
	"database/sql"
	"fmt"

	"automata/internal/logging"
)

// Schema versions:
// v1: launches table (at, type, kind, instance_id, reason)
// v2: source and detail columns
const CurrentSchemaVersion = 2

const baseSchema = `
CREATE TABLE IF NOT EXISTS launches (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	at          INTEGER NOT NULL,
	type        TEXT NOT NULL,
	kind        TEXT NOT NULL,
	instance_id TEXT NOT NULL DEFAULT '',
	reason      TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_launches_at ON launches(at);
CREATE INDEX IF NOT EXISTS idx_launches_kind_type ON launches(kind, type);

CREATE TABLE IF NOT EXISTS schema_versions (
	version    INTEGER NOT NULL,
	applied_at INTEGER NOT NULL
);
`

// Migration adds a column to an existing table.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations upgrade v1 journals in place.
var pendingMigrations = []Migration{
	{"launches", "source", "TEXT NOT NULL DEFAULT ''"},
	{"launches", "detail", "TEXT NOT NULL DEFAULT ''"},
}

// RunMigrations creates the schema and applies missing columns.
func RunMigrations(db *sql.DB) error {
	timer := logging.StartTimer(logging.CategoryStore, "RunMigrations")
	defer timer.Stop()

	if _, err := db.Exec(baseSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	applied := 0
	for _, m := range pendingMigrations {
		if columnExists(db, m.Table, m.Column) {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("migrate %s.%s: %w", m.Table, m.Column, err)
		}
		logging.Store("migration applied: added %s.%s", m.Table, m.Column)
		applied++
	}

	if GetSchemaVersion(db) < CurrentSchemaVersion {
		if _, err := db.Exec("INSERT INTO schema_versions (version, applied_at) VALUES (?, strftime('%s','now'))", CurrentSchemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	}
	logging.StoreDebug("schema migrations complete: applied=%d", applied)
	return nil
}

// GetSchemaVersion returns the newest recorded schema version, or 0.
func GetSchemaVersion(db *sql.DB) int {
	var version sql.NullInt64
	if err := db.QueryRow("SELECT MAX(version) FROM schema_versions").Scan(&version); err != nil {
		logging.StoreDebug("schema version lookup failed: %v", err)
		return 0
	}
	return int(version.Int64)
}

// columnExists checks a column with PRAGMA table_info.
func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		logging.StoreDebug("PRAGMA table_info(%s) failed: %v", table, err)
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid, notnull, pk int
		var name, ctype string
		var dflt interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}
