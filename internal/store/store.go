// Package store defines storage interfaces for hive-partitioned candle data
// and for the run ledger, with Parquet and SQLite implementations.
package store

import (
	"context"
	"time"

	"vnstock/internal/domain"
)

// WriteOutcome describes what a partition write did, or would have done in
// dry-run mode.
type WriteOutcome struct {
	Path     string
	Rows     int
	Replaced bool // an existing partition was (or would be) removed
	DryRun   bool
	Skipped  bool // no rows, nothing touched
}

// PartitionWriter replaces the partition for one (prefix, stock date).
type PartitionWriter interface {
	// WritePartition fully replaces the partition with rows. Empty frames
	// touch nothing. In dry-run mode nothing on disk changes.
	WritePartition(ctx context.Context, prefix string, date time.Time, rows *domain.Frame, dryRun bool) (WriteOutcome, error)
}

// PartitionReader loads partitions back.
type PartitionReader interface {
	// ReadPartition returns the rows of one partition sorted by time.
	ReadPartition(ctx context.Context, prefix string, date time.Time) (*domain.Frame, error)

	// ListDates returns the stock dates present under prefix, ascending.
	ListDates(ctx context.Context, prefix string) ([]time.Time, error)
}

// RunLedger records run and item outcomes.
type RunLedger interface {
	// BeginRun inserts a run in progress.
	BeginRun(ctx context.Context, r *domain.RunReport) error

	// RecordItem appends one item outcome to a run.
	RecordItem(ctx context.Context, runID string, it domain.ItemResult) error

	// FinishRun stores the terminal status of a run.
	FinishRun(ctx context.Context, r *domain.RunReport) error
}

// RunSummary is one row of the ledger's run history.
type RunSummary struct {
	RunID      string
	Instrument string
	From       string
	To         string
	Status     domain.RunStatus
	Items      int
	Failures   int
	StartedAt  time.Time
	FinishedAt time.Time
}
