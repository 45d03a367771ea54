// Package domain defines the core value types shared by the planner, the
// fetchers, and the partition store.
package domain

import (
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Instruments
// ---------------------------------------------------------------------------

// SymbolKind distinguishes instruments with a fixed ticker from instruments
// whose ticker rotates with a monthly contract.
type SymbolKind string

const (
	KindPlain   SymbolKind = "plain"
	KindRolling SymbolKind = "rolling"
)

// Instrument is a tagged variant over SymbolKind. For KindPlain, Symbol is the
// ticker used for every date. For KindRolling, Symbol is the product prefix
// (e.g. "VN30F") and ProductCode is the exchange product code used by the
// post-cutover naming scheme.
type Instrument struct {
	Kind        SymbolKind
	Symbol      string
	ProductCode string
}

// Plain returns an instrument with a fixed ticker.
func Plain(symbol string) Instrument {
	return Instrument{Kind: KindPlain, Symbol: symbol}
}

// Rolling returns a rolling-contract instrument for the given product prefix
// and exchange product code.
func Rolling(prefix, productCode string) Instrument {
	return Instrument{Kind: KindRolling, Symbol: prefix, ProductCode: productCode}
}

func (i Instrument) String() string {
	return fmt.Sprintf("%s(%s)", i.Kind, i.Symbol)
}

// ---------------------------------------------------------------------------
// Contract months
// ---------------------------------------------------------------------------

// ContractMonth identifies the delivery month of a rolling contract.
type ContractMonth struct {
	Year  int
	Month time.Month
}

// MonthOf returns the contract month containing t.
func MonthOf(t time.Time) ContractMonth {
	return ContractMonth{Year: t.Year(), Month: t.Month()}
}

// Next returns the following contract month.
func (c ContractMonth) Next() ContractMonth {
	if c.Month == time.December {
		return ContractMonth{Year: c.Year + 1, Month: time.January}
	}
	return ContractMonth{Year: c.Year, Month: c.Month + 1}
}

// Prev returns the preceding contract month.
func (c ContractMonth) Prev() ContractMonth {
	if c.Month == time.January {
		return ContractMonth{Year: c.Year - 1, Month: time.December}
	}
	return ContractMonth{Year: c.Year, Month: c.Month - 1}
}

func (c ContractMonth) String() string {
	return fmt.Sprintf("%04d-%02d", c.Year, int(c.Month))
}

// ---------------------------------------------------------------------------
// Run plans
// ---------------------------------------------------------------------------

// WorkItem is one (symbol, day) fetch. OutputPrefix is the store-relative
// directory under which the symbol's partitions live.
type WorkItem struct {
	Symbol       string
	Date         time.Time
	OutputPrefix string
}

// RunPlan is the ordered list of work items for one run.
type RunPlan []WorkItem

// RunStatus is the terminal state of a run.
type RunStatus string

const (
	RunCompleted           RunStatus = "completed"
	RunCompletedWithErrors RunStatus = "completed_with_errors"
	RunFailed              RunStatus = "failed"
)

// ItemResult records what happened to one work item.
type ItemResult struct {
	Item       WorkItem
	Rows       int
	Partitions int
	Err        error
}

// RunReport summarises a finished run.
type RunReport struct {
	RunID      string
	Instrument Instrument
	From       time.Time
	To         time.Time
	DryRun     bool
	Status     RunStatus
	Items      []ItemResult
	StartedAt  time.Time
	FinishedAt time.Time
}

// Failures returns the item results that carry an error.
func (r *RunReport) Failures() []ItemResult {
	var out []ItemResult
	for _, it := range r.Items {
		if it.Err != nil {
			out = append(out, it)
		}
	}
	return out
}
