package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitemapgen/internal/model"
)

// HistoryDB stores one row per completed crawl run.
//
// Design decision: A single database file for all domains rather than
// one per domain. Cross-domain queries (the history subcommand) stay
// trivial and there is only one file to back up.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file when
	// they do not exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging. Recommended; concurrent
	// batch runs write summaries from several goroutines.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{CreateIfNotExists: true, EnableWAL: true}
}

// Open opens or creates the history database under dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, "sitemapgen.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("history database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite: mode=rw opens existing only, rwc may create.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports a single writer; keep the pool at one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close() //nolint:errcheck // Best effort cleanup
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close() //nolint:errcheck // Best effort cleanup
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// createTables creates the schema if it does not exist.
func (h *HistoryDB) createTables() error {
	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	domain      TEXT    NOT NULL,
	url_count   INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	finished_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_domain ON runs(domain, finished_at DESC);
`
	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun appends a completed run's summary.
func (h *HistoryDB) SaveRun(ctx context.Context, run model.RunSummary) error {
	const q = `INSERT INTO runs (domain, url_count, duration_ms, finished_at) VALUES (?, ?, ?, ?)`

	finished := run.FinishedAt
	if finished.IsZero() {
		finished = time.Now().UTC()
	}

	if _, err := h.db.ExecContext(ctx, q, run.Domain, run.URLCount, run.Duration.Milliseconds(), finished); err != nil {
		return fmt.Errorf("failed to save run summary: %w", err)
	}
	return nil
}

// LatestCount returns the URL count of the most recent run for the
// domain. ok is false when the domain has no history yet.
func (h *HistoryDB) LatestCount(ctx context.Context, domain string) (count int, ok bool, err error) {
	const q = `SELECT url_count FROM runs WHERE domain = ? ORDER BY finished_at DESC, id DESC LIMIT 1`

	err = h.db.QueryRowContext(ctx, q, domain).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query latest run: %w", err)
	}
	return count, true, nil
}

// Runs returns the domain's run summaries, newest first, up to limit.
// A non-positive limit returns everything.
func (h *HistoryDB) Runs(ctx context.Context, domain string, limit int) ([]model.RunSummary, error) {
	q := `SELECT id, domain, url_count, duration_ms, finished_at FROM runs WHERE domain = ? ORDER BY finished_at DESC, id DESC`
	args := []any{domain}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []model.RunSummary
	for rows.Next() {
		var run model.RunSummary
		var durationMS int64
		if err := rows.Scan(&run.ID, &run.Domain, &run.URLCount, &durationMS, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, run)
	}
	return out, rows.Err()
}
