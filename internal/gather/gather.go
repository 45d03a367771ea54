// Package gather plans and executes acquisition runs: it turns an instrument
// and a date window into work items, fetches each item, and hands the rows
// to a partition writer.
package gather

import (
	"context"
	"time"

	"vnstock/internal/domain"
	"vnstock/internal/util"
)

// Gatherer is the interface for scheduled acquisition jobs.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run performs one acquisition pass.
	Run(ctx context.Context) error
}

// Fetcher retrieves the rows of one symbol for one day. A day without data
// yields an empty frame and a nil error.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, day time.Time) (*domain.Frame, error)
}

// DateRange is an inclusive window of calendar dates. A zero End leaves the
// window open: the planner closes it per instrument kind.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Open reports whether the range has no explicit end.
func (r DateRange) Open() bool { return r.End.IsZero() }

// ParseRange parses YYYYMMDD bounds. An empty to leaves End zero.
func ParseRange(from, to string) (DateRange, error) {
	start, err := util.ParseDate(from)
	if err != nil {
		return DateRange{}, err
	}
	if to == "" {
		return DateRange{Start: start}, nil
	}
	end, err := util.ParseDate(to)
	if err != nil {
		return DateRange{}, err
	}
	return DateRange{Start: start, End: end}, nil
}
