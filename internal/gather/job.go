package gather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"vnstock/internal/domain"
	"vnstock/internal/util"
)

// Compile-time interface check.
var _ Gatherer = (*DailyJob)(nil)

// DailyJob acquires one day for every configured instrument, in order.
type DailyJob struct {
	engine      *Engine
	instruments []domain.Instrument
	clock       util.Clock
	dryRun      bool
	log         *slog.Logger
}

// NewDailyJob creates a DailyJob over instruments.
func NewDailyJob(engine *Engine, instruments []domain.Instrument, clock util.Clock, dryRun bool, log *slog.Logger) *DailyJob {
	if clock == nil {
		clock = util.SystemClock{}
	}
	if log == nil {
		log = util.Discard()
	}
	return &DailyJob{
		engine:      engine,
		instruments: instruments,
		clock:       clock,
		dryRun:      dryRun,
		log:         log.With("gatherer", "vn-daily"),
	}
}

// Name returns the gatherer identifier.
func (j *DailyJob) Name() string { return "vn-daily" }

// Run acquires today's date in the fixed local timezone.
func (j *DailyJob) Run(ctx context.Context) error {
	_, err := j.RunDate(ctx, j.clock.Now().Format(util.DateLayout))
	return err
}

// RunDate acquires day (YYYYMMDD) for each instrument. Only planning errors
// are returned; item failures are in the reports.
func (j *DailyJob) RunDate(ctx context.Context, day string) ([]*domain.RunReport, error) {
	var (
		reports []*domain.RunReport
		errs    []error
	)
	for i, inst := range j.instruments {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		// Same flat delay the engine applies between items of one run.
		if i > 0 && j.engine.throttle > 0 {
			j.clock.Sleep(j.engine.throttle)
		}
		r, err := j.engine.Run(ctx, inst, day, day, j.dryRun)
		reports = append(reports, r)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", inst.Symbol, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		j.log.Error("daily run failed", "date", day, "err", err)
		return reports, err
	}
	return reports, nil
}
