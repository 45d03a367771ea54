// Package contract resolves rolling index-futures contracts to the ticker
// symbol that was tradable for a given contract month or date.
package contract

import (
	"fmt"
	"time"

	"vnstock/internal/domain"
	"vnstock/internal/util"
)

const (
	// MinYear and MaxYear bound the supported contract years. The legacy
	// scheme encodes only two year digits.
	MinYear = 2000
	MaxYear = 2099

	// YearCodes cycles with period 30 starting at YearCodeBase.
	YearCodes    = "ABCDEFGHJKLMNPQRSTVW0123456789"
	YearCodeBase = 2020
	MonthCodes   = "123456789ABC"

	// DefaultSuffix closes every new-scheme futures code.
	DefaultSuffix = "000"
)

// DefaultCutover is the last contract expiry listed under the legacy naming
// scheme.
var DefaultCutover = util.Date(2025, time.June, 19)

// DefaultLegacyMonths are contract months that kept their legacy tickers
// after the cutover because they were listed before it.
var DefaultLegacyMonths = []domain.ContractMonth{
	{Year: 2025, Month: time.September},
	{Year: 2025, Month: time.December},
}

// Resolver maps contract months to ticker symbols for one rolling product.
type Resolver struct {
	Prefix       string
	ProductCode  string
	Suffix       string
	Cutover      time.Time
	LegacyMonths map[domain.ContractMonth]bool
}

// NewResolver returns a Resolver with the default cutover and legacy
// carve-outs for the given instrument.
func NewResolver(inst domain.Instrument) *Resolver {
	legacy := make(map[domain.ContractMonth]bool, len(DefaultLegacyMonths))
	for _, cm := range DefaultLegacyMonths {
		legacy[cm] = true
	}
	return &Resolver{
		Prefix:       inst.Symbol,
		ProductCode:  inst.ProductCode,
		Suffix:       DefaultSuffix,
		Cutover:      DefaultCutover,
		LegacyMonths: legacy,
	}
}

// ActiveMonth returns the contract month being traded on date d: the month
// containing d, or the next month once d is past that month's expiry.
func ActiveMonth(d time.Time) (domain.ContractMonth, error) {
	cm := domain.MonthOf(d)
	exp, err := util.Expiry(cm)
	if err != nil {
		return domain.ContractMonth{}, err
	}
	if util.DateOf(d).After(exp) {
		return cm.Next(), nil
	}
	return cm, nil
}

// Window returns the inclusive business-day bounds [start, end] during which
// the contract month's ticker is the active one: the day after the previous
// month's expiry through this month's expiry.
func Window(cm domain.ContractMonth) (start, end time.Time, err error) {
	prevExp, err := util.Expiry(cm.Prev())
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err = util.Expiry(cm)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return prevExp.AddDate(0, 0, 1), end, nil
}

// Symbol returns the ticker for a contract month.
func (r *Resolver) Symbol(cm domain.ContractMonth) (string, error) {
	if cm.Year < MinYear || cm.Year > MaxYear || cm.Month < time.January || cm.Month > time.December {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidContractMonth, cm)
	}
	exp, err := util.Expiry(cm)
	if err != nil {
		return "", err
	}
	if !exp.After(r.Cutover) || r.LegacyMonths[cm] {
		return r.legacy(cm), nil
	}
	if len(r.ProductCode) != 4 {
		return "", fmt.Errorf("%w: product code %q for %s", domain.ErrInvalidInstrument, r.ProductCode, r.Prefix)
	}
	return r.coded(cm), nil
}

// SymbolAt returns the ticker of the contract active on date d.
func (r *Resolver) SymbolAt(d time.Time) (string, error) {
	cm, err := ActiveMonth(d)
	if err != nil {
		return "", err
	}
	return r.Symbol(cm)
}

// legacy renders prefix + YYMM, e.g. VN30F2506.
func (r *Resolver) legacy(cm domain.ContractMonth) string {
	return fmt.Sprintf("%s%02d%02d", r.Prefix, cm.Year%100, int(cm.Month))
}

// coded renders product code + year code + month code + suffix, e.g. 41I1F7000.
func (r *Resolver) coded(cm domain.ContractMonth) string {
	y := ((cm.Year-YearCodeBase)%len(YearCodes) + len(YearCodes)) % len(YearCodes)
	return r.ProductCode + string(YearCodes[y]) + string(MonthCodes[cm.Month-1]) + r.Suffix
}
