package gather

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vnstock/internal/domain"
	"vnstock/internal/store"
	"vnstock/internal/util"
)

// SnapshotColumn is stamped on every written row with the engine's "now".
const SnapshotColumn = "snapshot_dttm"

// EngineOpts configures an Engine. Zero values select defaults.
type EngineOpts struct {
	// Throttle is the flat delay between consecutive work items.
	Throttle time.Duration
	// IntervalDays steps plain-instrument plans.
	IntervalDays int
	// TimeColumn is the row timestamp used to derive stock dates.
	TimeColumn string
	// Ledger records non-dry runs; nil disables it.
	Ledger store.RunLedger
	Clock  util.Clock
	Logger *slog.Logger
}

// Engine runs plan → fetch → write for one instrument at a time. Items are
// processed strictly in plan order; per-item failures are recorded and the
// run continues.
type Engine struct {
	planner    *Planner
	fetcher    Fetcher
	writer     store.PartitionWriter
	ledger     store.RunLedger
	clock      util.Clock
	throttle   time.Duration
	timeColumn string
	log        *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(fetcher Fetcher, writer store.PartitionWriter, opts EngineOpts) *Engine {
	if opts.Clock == nil {
		opts.Clock = util.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = util.Discard()
	}
	if opts.TimeColumn == "" {
		opts.TimeColumn = store.TimeColumn
	}
	return &Engine{
		planner:    NewPlanner(opts.IntervalDays),
		fetcher:    fetcher,
		writer:     writer,
		ledger:     opts.Ledger,
		clock:      opts.Clock,
		throttle:   opts.Throttle,
		timeColumn: opts.TimeColumn,
		log:        opts.Logger.With("component", "engine"),
	}
}

// Run plans and executes one acquisition over [from, to] (YYYYMMDD). An empty
// to means the from day for plain instruments and the rest of the active
// contract window for rolling ones. A planning error fails the run before any
// fetch and is returned; item errors only mark the report
// completed_with_errors.
func (e *Engine) Run(ctx context.Context, inst domain.Instrument, from, to string, dryRun bool) (*domain.RunReport, error) {
	report := &domain.RunReport{
		RunID:      uuid.NewString(),
		Instrument: inst,
		DryRun:     dryRun,
		StartedAt:  e.clock.Now(),
	}
	log := e.log.With("run", report.RunID, "instrument", inst.Symbol, "dry_run", dryRun)
	defer util.Timed(log, e.clock, "run")()

	// Planning
	rng, err := ParseRange(from, to)
	if err == nil {
		rng, err = e.planner.Resolve(inst, rng)
	}
	if err != nil {
		return e.fail(log, report, err)
	}
	report.From, report.To = rng.Start, rng.End

	plan, err := e.planner.Plan(inst, rng)
	if err != nil {
		return e.fail(log, report, err)
	}
	log.Info("planned run",
		"from", rng.Start.Format("2006-01-02"),
		"to", rng.End.Format("2006-01-02"),
		"items", len(plan),
	)

	ledger := e.ledger
	if dryRun {
		ledger = nil
	}
	if ledger != nil {
		if err := ledger.BeginRun(ctx, report); err != nil {
			log.Warn("ledger begin failed", "err", err)
			ledger = nil
		}
	}

	// Fetch and write, one item at a time.
	for i, item := range plan {
		if ctx.Err() != nil {
			break
		}
		if i > 0 && e.throttle > 0 {
			e.clock.Sleep(e.throttle)
		}

		res := e.runItem(ctx, log, item, dryRun)
		report.Items = append(report.Items, res)
		if ledger != nil {
			if err := ledger.RecordItem(ctx, report.RunID, res); err != nil {
				log.Warn("ledger record failed", "err", err)
			}
		}
	}

	report.FinishedAt = e.clock.Now()
	report.Status = domain.RunCompleted
	if len(report.Failures()) > 0 {
		report.Status = domain.RunCompletedWithErrors
	}
	if err := ctx.Err(); err != nil {
		report.Status = domain.RunFailed
	}

	if ledger != nil {
		// The run context may be cancelled; the terminal status still lands.
		if err := ledger.FinishRun(context.WithoutCancel(ctx), report); err != nil {
			log.Warn("ledger finish failed", "err", err)
		}
	}

	log.Info("run complete",
		"status", report.Status,
		"items", len(report.Items),
		"failures", len(report.Failures()),
	)
	if report.Status == domain.RunFailed {
		return report, ctx.Err()
	}
	return report, nil
}

func (e *Engine) fail(log *slog.Logger, report *domain.RunReport, err error) (*domain.RunReport, error) {
	report.Status = domain.RunFailed
	report.FinishedAt = e.clock.Now()
	log.Error("planning failed", "err", err)
	return report, err
}

// runItem fetches one work item and writes one partition per stock date in
// the result. A failed date does not stop the other dates of the item.
func (e *Engine) runItem(ctx context.Context, log *slog.Logger, item domain.WorkItem, dryRun bool) domain.ItemResult {
	res := domain.ItemResult{Item: item}
	date := item.Date.Format("2006-01-02")
	log = log.With("symbol", item.Symbol, "date", date)

	log.Info("fetching")
	frame, err := e.fetcher.Fetch(ctx, item.Symbol, item.Date)
	if err != nil {
		log.Error("fetch failed", "err", err)
		res.Err = err
		return res
	}
	if frame.Len() == 0 {
		log.Info("no data")
		return res
	}

	snapshot := e.clock.Now()
	stamps := make([]any, frame.Len())
	for i := range stamps {
		stamps[i] = snapshot
	}
	if err := frame.Set(SnapshotColumn, stamps); err != nil {
		res.Err = err
		return res
	}

	slices, err := frame.SplitByDate(e.timeColumn)
	if err != nil {
		log.Error("partitioning failed", "err", err)
		res.Err = err
		return res
	}

	var errs []error
	for _, s := range slices {
		out, err := e.writer.WritePartition(ctx, item.OutputPrefix, s.Date, s.Frame, dryRun)
		if err != nil {
			log.Error("write failed", "stock_date", s.Date.Format("2006-01-02"), "err", err)
			errs = append(errs, err)
			continue
		}
		if out.Skipped {
			continue
		}
		res.Partitions++
		res.Rows += out.Rows
	}
	res.Err = errors.Join(errs...)
	return res
}
