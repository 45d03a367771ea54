package domain

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// ColumnType is the inferred physical type of a Frame column.
type ColumnType int

const (
	ColumnString ColumnType = iota
	ColumnInt64
	ColumnFloat64
	ColumnTime
)

func (t ColumnType) String() string {
	switch t {
	case ColumnInt64:
		return "int64"
	case ColumnFloat64:
		return "float64"
	case ColumnTime:
		return "time"
	default:
		return "string"
	}
}

// Column is one named column. A nil entry in Values is a null.
type Column struct {
	Name   string
	Type   ColumnType
	Values []any
}

// Frame is a small columnar table: the normalized result of one fetch. Every
// column has exactly Len() values. A nil *Frame is an empty result.
type Frame struct {
	cols []*Column
	idx  map[string]int
	n    int
}

// NewFrame returns an empty frame that will hold rows rows.
func NewFrame(rows int) *Frame {
	return &Frame{idx: make(map[string]int), n: rows}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return f.n
}

// Columns returns the columns in insertion order.
func (f *Frame) Columns() []*Column {
	if f == nil {
		return nil
	}
	return f.cols
}

// Column looks up a column by name.
func (f *Frame) Column(name string) (*Column, bool) {
	if f == nil {
		return nil, false
	}
	i, ok := f.idx[name]
	if !ok {
		return nil, false
	}
	return f.cols[i], true
}

// Set adds or replaces a column. The column type is inferred from the values
// and mixed numeric columns are widened to float64.
func (f *Frame) Set(name string, values []any) error {
	if len(values) != f.n {
		return fmt.Errorf("column %q has %d values, want %d", name, len(values), f.n)
	}
	typ, coerced := coerce(values)
	col := &Column{Name: name, Type: typ, Values: coerced}
	if i, ok := f.idx[name]; ok {
		f.cols[i] = col
		return nil
	}
	f.idx[name] = len(f.cols)
	f.cols = append(f.cols, col)
	return nil
}

// Take returns a new frame holding the given rows, in order.
func (f *Frame) Take(rows []int) *Frame {
	out := NewFrame(len(rows))
	for _, c := range f.Columns() {
		vals := make([]any, len(rows))
		for i, r := range rows {
			vals[i] = c.Values[r]
		}
		out.idx[c.Name] = len(out.cols)
		out.cols = append(out.cols, &Column{Name: c.Name, Type: c.Type, Values: vals})
	}
	return out
}

// Concat stacks frames vertically. Columns missing from a frame are filled
// with nulls; the column order follows first appearance.
func Concat(frames ...*Frame) *Frame {
	total := 0
	var names []string
	seen := make(map[string]bool)
	for _, fr := range frames {
		total += fr.Len()
		for _, c := range fr.Columns() {
			if !seen[c.Name] {
				seen[c.Name] = true
				names = append(names, c.Name)
			}
		}
	}

	out := NewFrame(total)
	for _, name := range names {
		vals := make([]any, 0, total)
		for _, fr := range frames {
			if c, ok := fr.Column(name); ok {
				vals = append(vals, c.Values...)
				continue
			}
			for i := 0; i < fr.Len(); i++ {
				vals = append(vals, nil)
			}
		}
		// Every column is built to total rows; a mismatch is a bug here.
		if err := out.Set(name, vals); err != nil {
			panic(fmt.Sprintf("concat: %v", err))
		}
	}
	return out
}

// DateSlice is the subset of a frame whose rows fall on one calendar date.
type DateSlice struct {
	Date  time.Time
	Frame *Frame
}

// SplitByDate groups rows by the calendar date of the time column col, in
// the column's own location. Slices are returned in ascending date order and
// preserve row order within each date.
func (f *Frame) SplitByDate(col string) ([]DateSlice, error) {
	if f.Len() == 0 {
		return nil, nil
	}
	c, ok := f.Column(col)
	if !ok {
		return nil, fmt.Errorf("split by date: missing column %q", col)
	}
	if c.Type != ColumnTime {
		return nil, fmt.Errorf("split by date: column %q is %s, want time", col, c.Type)
	}

	groups := make(map[time.Time][]int)
	for i, v := range c.Values {
		ts, ok := v.(time.Time)
		if !ok {
			return nil, fmt.Errorf("split by date: null %q at row %d", col, i)
		}
		d := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
		groups[d] = append(groups[d], i)
	}

	out := make([]DateSlice, 0, len(groups))
	for d, rows := range groups {
		out = append(out, DateSlice{Date: d, Frame: f.Take(rows)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// SortBy orders rows ascending by a time or numeric column. Nulls sort last.
func (f *Frame) SortBy(col string) *Frame {
	c, ok := f.Column(col)
	if !ok {
		return f
	}
	rows := make([]int, f.Len())
	for i := range rows {
		rows[i] = i
	}
	sort.SliceStable(rows, func(a, b int) bool {
		return less(c.Values[rows[a]], c.Values[rows[b]])
	})
	return f.Take(rows)
}

func less(a, b any) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	switch x := a.(type) {
	case time.Time:
		y, _ := b.(time.Time)
		return x.Before(y)
	case int64:
		y, _ := b.(int64)
		return x < y
	case float64:
		y, _ := b.(float64)
		return x < y
	case string:
		y, _ := b.(string)
		return x < y
	}
	return false
}

// ---------------------------------------------------------------------------
// Type inference
// ---------------------------------------------------------------------------

func coerce(values []any) (ColumnType, []any) {
	var hasString, hasInt, hasFloat, hasTime bool
	out := make([]any, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case nil:
		case int:
			out[i] = int64(x)
			hasInt = true
			continue
		case int64:
			hasInt = true
		case float64:
			hasFloat = true
		case string:
			hasString = true
		case time.Time:
			hasTime = true
		default:
			out[i] = fmt.Sprint(x)
			hasString = true
			continue
		}
		out[i] = v
	}

	switch {
	case hasTime && !hasString && !hasInt && !hasFloat:
		return ColumnTime, out
	case hasString || hasTime:
		for i, v := range out {
			out[i] = stringify(v)
		}
		return ColumnString, out
	case hasFloat:
		for i, v := range out {
			if n, ok := v.(int64); ok {
				out[i] = float64(n)
			}
		}
		return ColumnFloat64, out
	case hasInt:
		return ColumnInt64, out
	}
	return ColumnString, out
}

func stringify(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}
