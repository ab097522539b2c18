package models

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Frame is a small in-memory table: an ordered list of column names and
// row-major records. Cells are untyped because the document store enforces
// no schema; consumers coerce with the helpers below and keep the raw value
// when coercion fails.
type Frame struct {
	Columns []string
	Rows    []map[string]interface{}
}

// NewFrame returns an empty frame with the given column headers. A frame
// with headers but zero rows is a valid result (empty store collection).
func NewFrame(columns ...string) *Frame {
	return &Frame{Columns: append([]string{}, columns...)}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.Rows)
}

// HasColumn reports whether name is one of the frame's columns.
func (f *Frame) HasColumn(name string) bool {
	for _, c := range f.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumn assigns a derived column. The value slice must have one entry
// per row; otherwise the frame is left unchanged.
func (f *Frame) AddColumn(name string, values []interface{}) {
	if len(values) != len(f.Rows) {
		return
	}
	if !f.HasColumn(name) {
		f.Columns = append(f.Columns, name)
	}
	for i, row := range f.Rows {
		row[name] = values[i]
	}
}

// Select returns a new frame containing the rows for which keep returns
// true. Column headers are preserved.
func (f *Frame) Select(keep func(row map[string]interface{}) bool) *Frame {
	out := NewFrame(f.Columns...)
	for _, row := range f.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Floats returns the column coerced to float64, one entry per row. Values
// that cannot be coerced come back as NaN so callers can skip them.
func (f *Frame) Floats(name string) []float64 {
	out := make([]float64, len(f.Rows))
	for i, row := range f.Rows {
		v, ok := ToFloat64(row[name])
		if !ok {
			v = math.NaN()
		}
		out[i] = v
	}
	return out
}

// NumericColumn reports whether every present value in the column coerces
// to a number. Empty frames and all-missing columns are not numeric.
func (f *Frame) NumericColumn(name string) bool {
	seen := false
	for _, row := range f.Rows {
		v, present := row[name]
		if !present || v == nil {
			continue
		}
		if _, ok := ToFloat64(v); !ok {
			return false
		}
		seen = true
	}
	return seen
}

// Display returns the column rendered as strings for axis labels. Dates use
// YYYY-MM-DD; floats drop trailing zeros; missing values render empty.
func (f *Frame) Display(name string) []string {
	out := make([]string, len(f.Rows))
	for i, row := range f.Rows {
		out[i] = displayValue(row[name])
	}
	return out
}

func displayValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.Format("2006-01-02")
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// ToFloat64 coerces the numeric types that survive BSON and JSON decoding.
// Booleans, dates, and non-numeric strings do not coerce.
func ToFloat64(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case string:
		parsed, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
