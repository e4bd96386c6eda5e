// Package store persists the launch journal: one row per launch, skip,
// construction failure and stop, kept in a WAL-mode SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"automata/internal/logging"

	_ "modernc.org/sqlite"
)

// ErrClosed is returned by operations on a closed journal.
var ErrClosed = errors.New("journal is closed")

// Entry is one journal row.
type Entry struct {
	ID         int64
	At         time.Time
	Type       string
	Kind       string
	InstanceID string
	Source     string
	Reason     string
	Detail     string
}

// Journal is the SQLite launch journal. Safe for concurrent use.
type Journal struct {
	db   *sql.DB
	path string

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the journal at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}

	logging.Store("journal opened at %s (schema v%d)", path, GetSchemaVersion(db))
	return &Journal{db: db, path: path}, nil
}

// Path returns the database file path.
func (j *Journal) Path() string { return j.path }

// Close closes the database. Later calls are no-ops.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}

// Record appends e. A zero At is stamped with the current time.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrClosed
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	return retryOp(ctx, defaultRetryConfig, func() error {
		_, err := j.db.ExecContext(ctx,
			`INSERT INTO launches (at, type, kind, instance_id, source, reason, detail)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.At.UnixNano(), e.Type, e.Kind, e.InstanceID, e.Source, e.Reason, e.Detail)
		return err
	})
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, at, type, kind, instance_id, source, reason, detail
		 FROM launches ORDER BY at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var at int64
		if err := rows.Scan(&e.ID, &at, &e.Type, &e.Kind, &e.InstanceID, &e.Source, &e.Reason, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.At = time.Unix(0, at)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Counts returns the number of entries per kind and type.
func (j *Journal) Counts(ctx context.Context) (map[string]map[string]int, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrClosed
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT kind, type, COUNT(*) FROM launches GROUP BY kind, type`)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]map[string]int)
	for rows.Next() {
		var kind, typ string
		var n int
		if err := rows.Scan(&kind, &typ, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		if counts[kind] == nil {
			counts[kind] = make(map[string]int)
		}
		counts[kind][typ] = n
	}
	return counts, rows.Err()
}

// Prune deletes entries older than before and returns how many went.
func (j *Journal) Prune(ctx context.Context, before time.Time) (int64, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return 0, ErrClosed
	}

	var n int64
	err := retryOp(ctx, defaultRetryConfig, func() error {
		res, err := j.db.ExecContext(ctx, `DELETE FROM launches WHERE at < ?`, before.UnixNano())
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err == nil && n > 0 {
		logging.StoreDebug("pruned %d journal entries", n)
	}
	return n, err
}
