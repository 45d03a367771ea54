package gather

import (
	"fmt"
	"path"
	"time"

	"vnstock/internal/contract"
	"vnstock/internal/domain"
	"vnstock/internal/util"
)

// Planner expands an instrument and a date window into a RunPlan.
type Planner struct {
	// IntervalDays is the step of plain-instrument plans.
	IntervalDays int
}

// NewPlanner creates a Planner stepping plain instruments by intervalDays
// (values below one fall back to one day).
func NewPlanner(intervalDays int) *Planner {
	if intervalDays < 1 {
		intervalDays = 1
	}
	return &Planner{IntervalDays: intervalDays}
}

// Resolve closes an open range for inst. A plain instrument covers the start
// day only; a rolling instrument covers the rest of the contract window
// active on the start day.
func (p *Planner) Resolve(inst domain.Instrument, r DateRange) (DateRange, error) {
	if inst.Symbol == "" {
		return DateRange{}, fmt.Errorf("%w: empty symbol", domain.ErrInvalidInstrument)
	}
	start := util.DateOf(r.Start)
	if !r.Open() {
		return DateRange{Start: start, End: util.DateOf(r.End)}, nil
	}

	switch inst.Kind {
	case domain.KindPlain:
		return DateRange{Start: start, End: start}, nil
	case domain.KindRolling:
		cm, err := contract.ActiveMonth(start)
		if err != nil {
			return DateRange{}, err
		}
		_, end, err := contract.Window(cm)
		if err != nil {
			return DateRange{}, err
		}
		return DateRange{Start: start, End: end}, nil
	default:
		return DateRange{}, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidInstrument, inst.Kind)
	}
}

// Plan returns the ordered work items for inst over r. A window with no
// eligible days yields an empty plan, not an error.
func (p *Planner) Plan(inst domain.Instrument, r DateRange) (domain.RunPlan, error) {
	r, err := p.Resolve(inst, r)
	if err != nil {
		return nil, err
	}
	start, end := r.Start, r.End

	switch inst.Kind {
	case domain.KindPlain:
		return p.planPlain(inst, start, end), nil
	case domain.KindRolling:
		return p.planRolling(inst, start, end)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidInstrument, inst.Kind)
	}
}

// planPlain emits every calendar day in [start, end] stepped by IntervalDays.
func (p *Planner) planPlain(inst domain.Instrument, start, end time.Time) domain.RunPlan {
	var plan domain.RunPlan
	for d := start; !d.After(end); d = d.AddDate(0, 0, p.IntervalDays) {
		plan = append(plan, domain.WorkItem{
			Symbol:       inst.Symbol,
			Date:         d,
			OutputPrefix: inst.Symbol,
		})
	}
	return plan
}

// planRolling walks contract months from the one active at start, emitting
// the business days of each month's window clipped to [start, end]. Every
// day in a window carries that month's single ticker.
func (p *Planner) planRolling(inst domain.Instrument, start, end time.Time) (domain.RunPlan, error) {
	resolver := contract.NewResolver(inst)

	cm, err := contract.ActiveMonth(start)
	if err != nil {
		return nil, err
	}

	var plan domain.RunPlan
	for {
		lo, hi, err := contract.Window(cm)
		if err != nil {
			return nil, err
		}
		if lo.After(end) {
			break
		}
		symbol, err := resolver.Symbol(cm)
		if err != nil {
			return nil, err
		}

		if lo.Before(start) {
			lo = start
		}
		if hi.After(end) {
			hi = end
		}
		for d := lo; !d.After(hi); d = d.AddDate(0, 0, 1) {
			if !util.IsBusinessDay(d) {
				continue
			}
			plan = append(plan, domain.WorkItem{
				Symbol:       symbol,
				Date:         d,
				OutputPrefix: path.Join(inst.Symbol, symbol),
			})
		}
		cm = cm.Next()
	}
	return plan, nil
}
