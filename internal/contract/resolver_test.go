package contract

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vnstock/internal/domain"
	"vnstock/internal/util"
)

func newVN30F() *Resolver {
	return NewResolver(domain.Rolling("VN30F", "41I1"))
}

func TestSymbolLegacyBeforeCutover(t *testing.T) {
	r := newVN30F()
	for year := 2000; year <= 2025; year++ {
		for m := time.January; m <= time.December; m++ {
			cm := domain.ContractMonth{Year: year, Month: m}
			if year == 2025 && m > time.June {
				continue
			}
			got, err := r.Symbol(cm)
			require.NoError(t, err)
			want := "VN30F" + cm.String()[2:4] + cm.String()[5:7]
			assert.Equal(t, want, got, cm.String())
		}
	}
}

func TestSymbolCarveOuts(t *testing.T) {
	r := newVN30F()
	got, err := r.Symbol(domain.ContractMonth{Year: 2025, Month: time.September})
	require.NoError(t, err)
	assert.Equal(t, "VN30F2509", got)

	got, err = r.Symbol(domain.ContractMonth{Year: 2025, Month: time.December})
	require.NoError(t, err)
	assert.Equal(t, "VN30F2512", got)
}

func TestSymbolNewCoding(t *testing.T) {
	r := newVN30F()
	tests := []struct {
		cm   domain.ContractMonth
		want string
	}{
		{domain.ContractMonth{Year: 2025, Month: time.July}, "41I1F7000"},
		{domain.ContractMonth{Year: 2025, Month: time.August}, "41I1F8000"},
		{domain.ContractMonth{Year: 2025, Month: time.October}, "41I1FA000"},
		{domain.ContractMonth{Year: 2025, Month: time.November}, "41I1FB000"},
		{domain.ContractMonth{Year: 2026, Month: time.January}, "41I1G1000"},
		{domain.ContractMonth{Year: 2026, Month: time.December}, "41I1GC000"},
		{domain.ContractMonth{Year: 2040, Month: time.March}, "41I103000"},
		{domain.ContractMonth{Year: 2050, Month: time.March}, "41I1A3000"},
	}
	for _, tt := range tests {
		got, err := r.Symbol(tt.cm)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.cm.String())
		assert.Len(t, got, 9)
	}
}

func TestYearCodePeriod(t *testing.T) {
	r := newVN30F()
	for year := 2026; year+30 <= MaxYear; year++ {
		a, err := r.Symbol(domain.ContractMonth{Year: year, Month: time.May})
		require.NoError(t, err)
		b, err := r.Symbol(domain.ContractMonth{Year: year + 30, Month: time.May})
		require.NoError(t, err)
		assert.Equal(t, a, b, "year %d vs %d", year, year+30)
	}
}

func TestSymbolInvalidContractMonth(t *testing.T) {
	r := newVN30F()
	for _, cm := range []domain.ContractMonth{
		{Year: 1999, Month: time.May},
		{Year: 2100, Month: time.May},
		{Year: 2025, Month: 0},
		{Year: 2025, Month: 13},
	} {
		_, err := r.Symbol(cm)
		assert.True(t, errors.Is(err, domain.ErrInvalidContractMonth), cm.String())
	}
}

func TestSymbolMissingProductCode(t *testing.T) {
	r := NewResolver(domain.Rolling("VN30F", ""))
	_, err := r.Symbol(domain.ContractMonth{Year: 2026, Month: time.March})
	assert.ErrorIs(t, err, domain.ErrInvalidInstrument)
}

func TestActiveMonthRollsAfterExpiry(t *testing.T) {
	cm, err := ActiveMonth(util.Date(2025, time.June, 19))
	require.NoError(t, err)
	assert.Equal(t, domain.ContractMonth{Year: 2025, Month: time.June}, cm)

	cm, err = ActiveMonth(util.Date(2025, time.June, 20))
	require.NoError(t, err)
	assert.Equal(t, domain.ContractMonth{Year: 2025, Month: time.July}, cm)

	sym, err := newVN30F().SymbolAt(util.Date(2025, time.June, 20))
	require.NoError(t, err)
	assert.Equal(t, "41I1F7000", sym)

	sym, err = newVN30F().SymbolAt(util.Date(2025, time.June, 5))
	require.NoError(t, err)
	assert.Equal(t, "VN30F2506", sym)
}

func TestWindowsPartitionBusinessDays(t *testing.T) {
	// Every business day belongs to exactly one contract month's window.
	start := util.Date(2023, time.January, 1)
	end := util.Date(2027, time.December, 31)

	type window struct{ lo, hi time.Time }
	var windows []window
	for cm := (domain.ContractMonth{Year: 2022, Month: time.December}); cm.Year <= 2028; cm = cm.Next() {
		lo, hi, err := Window(cm)
		require.NoError(t, err)
		windows = append(windows, window{lo, hi})
	}

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if !util.IsBusinessDay(d) {
			continue
		}
		n := 0
		for _, w := range windows {
			if !d.Before(w.lo) && !d.After(w.hi) {
				n++
			}
		}
		require.Equal(t, 1, n, "business day %s in %d windows", d.Format("2006-01-02"), n)

		cm, err := ActiveMonth(d)
		require.NoError(t, err)
		lo, hi, err := Window(cm)
		require.NoError(t, err)
		require.False(t, d.Before(lo) || d.After(hi), "ActiveMonth(%s) = %s does not contain the day", d.Format("2006-01-02"), cm)
	}
}
