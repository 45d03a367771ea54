// Package scheduler runs a gatherer on cron triggers in the fixed UTC+7
// timezone. All triggers share one job, so a trigger that fires while the
// previous run is still going is skipped rather than queued.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"vnstock/internal/gather"
	"vnstock/internal/util"
)

// Scheduler triggers one gatherer on a set of standard five-field cron specs.
type Scheduler struct {
	cron     *cron.Cron
	gatherer gather.Gatherer
	specs    []string
	scheds   []cron.Schedule
	job      cron.Job
	log      *slog.Logger

	mu  sync.Mutex
	ctx context.Context
}

// New parses specs and registers g under each of them.
func New(g gather.Gatherer, specs []string, log *slog.Logger) (*Scheduler, error) {
	if log == nil {
		log = util.Discard()
	}
	log = log.With("component", "scheduler", "gatherer", g.Name())
	cl := cronLogger{log: log}

	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(util.Location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		gatherer: g,
		specs:    specs,
		log:      log,
		ctx:      context.Background(),
	}
	s.job = cron.NewChain(cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(s.fire))

	scheds, err := parseSpecs(specs)
	if err != nil {
		return nil, err
	}
	for _, sched := range scheds {
		s.cron.Schedule(sched, s.job)
	}
	s.scheds = scheds
	return s, nil
}

func parseSpecs(specs []string) ([]cron.Schedule, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("scheduler: no cron specs")
	}
	scheds := make([]cron.Schedule, 0, len(specs))
	for _, spec := range specs {
		sched, err := cron.ParseStandard(spec)
		if err != nil {
			return nil, fmt.Errorf("scheduler: parse %q: %w", spec, err)
		}
		scheds = append(scheds, sched)
	}
	return scheds, nil
}

// Run starts the cron loop and blocks until ctx is cancelled, then waits for
// an in-flight run to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.log.Info("scheduler started", "specs", s.specs, "next", s.Next(time.Now()).Format(time.RFC3339))
	s.cron.Start()

	<-ctx.Done()
	s.log.Info("scheduler stopping")
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
	return nil
}

// Next returns the earliest trigger strictly after t across all specs.
// It is the zero time when no spec can fire again.
func (s *Scheduler) Next(t time.Time) time.Time {
	next := s.Upcoming(t, 1)
	if len(next) == 0 {
		return time.Time{}
	}
	return next[0]
}

// Upcoming returns the next n trigger times after t in ascending order.
// Coinciding triggers are reported once.
func (s *Scheduler) Upcoming(t time.Time, n int) []time.Time {
	return upcoming(s.scheds, t, n)
}

// Upcoming parses specs and returns their next n trigger times after t
// without building a scheduler.
func Upcoming(specs []string, t time.Time, n int) ([]time.Time, error) {
	scheds, err := parseSpecs(specs)
	if err != nil {
		return nil, err
	}
	return upcoming(scheds, t, n), nil
}

func upcoming(scheds []cron.Schedule, t time.Time, n int) []time.Time {
	t = t.In(util.Location)
	seen := make(map[time.Time]bool)
	var out []time.Time
	for _, sched := range scheds {
		at := t
		for i := 0; i < n; i++ {
			at = sched.Next(at)
			if at.IsZero() {
				break
			}
			if !seen[at] {
				seen[at] = true
				out = append(out, at)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	s.log.Info("trigger fired")
	if err := s.gatherer.Run(ctx); err != nil {
		s.log.Error("run failed", "elapsed", time.Since(start), "err", err)
		return
	}
	s.log.Info("run done", "elapsed", time.Since(start))
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "err", err)...)
}
