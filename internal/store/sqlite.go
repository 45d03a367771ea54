package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"vnstock/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ RunLedger = (*SQLiteLedger)(nil)

const statusRunning = "running"

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	instrument  TEXT NOT NULL,
	kind        TEXT NOT NULL,
	from_date   TEXT NOT NULL,
	to_date     TEXT NOT NULL,
	status      TEXT NOT NULL,
	items       INTEGER NOT NULL DEFAULT 0,
	failures    INTEGER NOT NULL DEFAULT 0,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER
);
CREATE TABLE IF NOT EXISTS run_items (
	run_id     TEXT NOT NULL REFERENCES runs(run_id),
	symbol     TEXT NOT NULL,
	stock_date TEXT NOT NULL,
	row_count  INTEGER NOT NULL,
	partitions INTEGER NOT NULL,
	error      TEXT
);
CREATE INDEX IF NOT EXISTS run_items_run ON run_items(run_id);
`

// SQLiteLedger implements RunLedger backed by a SQLite database.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger opens (or creates) a SQLite database at dbPath and ensures
// the ledger tables exist.
func NewSQLiteLedger(dbPath string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One writer at a time; runs are sequential anyway.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(ledgerSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

// OpenSQLiteLedgerReadOnly opens an existing ledger for queries only. It
// never creates the file; a missing ledger is an os.ErrNotExist error.
func OpenSQLiteLedgerReadOnly(dbPath string) (*SQLiteLedger, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("ledger %s: %w", dbPath, err)
	}
	db, err := sql.Open("sqlite", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening ledger %s: %w", dbPath, err)
	}
	return &SQLiteLedger{db: db}, nil
}

// Close closes the underlying database connection.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

// ---------------------------------------------------------------------------
// RunLedger implementation
// ---------------------------------------------------------------------------

// BeginRun inserts the run with status "running".
func (l *SQLiteLedger) BeginRun(ctx context.Context, r *domain.RunReport) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, instrument, kind, from_date, to_date, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Instrument.Symbol, string(r.Instrument.Kind),
		r.From.Format(dateLayout), r.To.Format(dateLayout),
		statusRunning, r.StartedAt.UnixMilli(),
	)
	return err
}

// RecordItem appends one item outcome.
func (l *SQLiteLedger) RecordItem(ctx context.Context, runID string, it domain.ItemResult) error {
	var errText sql.NullString
	if it.Err != nil {
		errText = sql.NullString{String: it.Err.Error(), Valid: true}
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO run_items (run_id, symbol, stock_date, row_count, partitions, error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, it.Item.Symbol, it.Item.Date.Format(dateLayout), it.Rows, it.Partitions, errText,
	)
	return err
}

// FinishRun stores the terminal status and counts.
func (l *SQLiteLedger) FinishRun(ctx context.Context, r *domain.RunReport) error {
	_, err := l.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, items = ?, failures = ?, finished_at = ? WHERE run_id = ?`,
		string(r.Status), len(r.Items), len(r.Failures()), r.FinishedAt.UnixMilli(), r.RunID,
	)
	return err
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// ListRuns returns the most recent runs, newest first, up to limit.
func (l *SQLiteLedger) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, instrument, from_date, to_date, status, items, failures, started_at, finished_at
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			s        RunSummary
			status   string
			started  int64
			finished sql.NullInt64
		)
		if err := rows.Scan(&s.RunID, &s.Instrument, &s.From, &s.To, &status, &s.Items, &s.Failures, &started, &finished); err != nil {
			return nil, err
		}
		s.Status = domain.RunStatus(status)
		s.StartedAt = time.UnixMilli(started)
		if finished.Valid {
			s.FinishedAt = time.UnixMilli(finished.Int64)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ItemRecord is one stored item outcome.
type ItemRecord struct {
	Symbol     string
	StockDate  string
	Rows       int
	Partitions int
	Error      string
}

// ListItems returns the item outcomes of a run in insertion order.
func (l *SQLiteLedger) ListItems(ctx context.Context, runID string) ([]ItemRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT symbol, stock_date, row_count, partitions, error FROM run_items WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ItemRecord
	for rows.Next() {
		var (
			it      ItemRecord
			errText sql.NullString
		)
		if err := rows.Scan(&it.Symbol, &it.StockDate, &it.Rows, &it.Partitions, &errText); err != nil {
			return nil, err
		}
		it.Error = errText.String
		out = append(out, it)
	}
	return out, rows.Err()
}
