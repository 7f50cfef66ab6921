// Package timetable provides the time-indexed multi-variable table shared by
// the fitting, simulation, and ingestion layers. Rows are keyed by a strictly
// increasing timestamp and columns by sensor variable name.
package timetable

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrNoRows           = errors.New("no observation rows")
	ErrNoColumns        = errors.New("no variable columns")
	ErrNonMonotonic     = errors.New("timestamps are not strictly increasing")
	ErrRowLenMismatch   = errors.New("row has a different length than the column set")
	ErrTableLenMismatch = errors.New("timestamps have a different length than rows")
	ErrUnknownColumn    = errors.New("unknown column")
	ErrTooFewRowsToDiff = errors.New("need at least 2 rows to difference")
	ErrDuplicateColumn  = errors.New("duplicate column name")
)

// Table is an ordered sequence of timestamped observation rows, one column
// per variable. Timestamps are strictly increasing. Values are stored
// row-major.
type Table struct {
	T       []time.Time
	Columns []string
	Data    [][]float64
}

// New validates and copies the input slices into a Table. Timestamps must be
// strictly increasing and every row must have one value per column.
func New(t []time.Time, columns []string, data [][]float64) (*Table, error) {
	if len(t) == 0 {
		return nil, ErrNoRows
	}
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	if len(t) != len(data) {
		return nil, fmt.Errorf(
			"timestamps have length %d, but data has %d rows, %w",
			len(t), len(data), ErrTableLenMismatch,
		)
	}

	seen := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		if _, exists := seen[col]; exists {
			return nil, fmt.Errorf("%q, %w", col, ErrDuplicateColumn)
		}
		seen[col] = struct{}{}
	}

	var lastT time.Time
	for i := 0; i < len(t); i++ {
		if !t[i].After(lastT) {
			return nil, fmt.Errorf("at row %d, %w", i, ErrNonMonotonic)
		}
		lastT = t[i]
		if len(data[i]) != len(columns) {
			return nil, fmt.Errorf(
				"row %d has %d values for %d columns, %w",
				i, len(data[i]), len(columns), ErrRowLenMismatch,
			)
		}
	}

	tbl := &Table{
		T:       make([]time.Time, len(t)),
		Columns: make([]string, len(columns)),
		Data:    make([][]float64, len(data)),
	}
	copy(tbl.T, t)
	copy(tbl.Columns, columns)
	for i, row := range data {
		tbl.Data[i] = make([]float64, len(row))
		copy(tbl.Data[i], row)
	}
	return tbl, nil
}

// Empty returns a zero-row table carrying the given column set. Used for
// degenerate forecast horizons.
func Empty(columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{
		T:       []time.Time{},
		Columns: cols,
		Data:    [][]float64{},
	}
}

// Len returns the number of observation rows.
func (tbl *Table) Len() int {
	return len(tbl.T)
}

// Copy returns a deep copy of the table.
func (tbl *Table) Copy() *Table {
	cp := &Table{
		T:       make([]time.Time, len(tbl.T)),
		Columns: make([]string, len(tbl.Columns)),
		Data:    make([][]float64, len(tbl.Data)),
	}
	copy(cp.T, tbl.T)
	copy(cp.Columns, tbl.Columns)
	for i, row := range tbl.Data {
		cp.Data[i] = make([]float64, len(row))
		copy(cp.Data[i], row)
	}
	return cp
}

// ColumnIndex returns the position of the named column.
func (tbl *Table) ColumnIndex(name string) (int, bool) {
	for i, col := range tbl.Columns {
		if col == name {
			return i, true
		}
	}
	return 0, false
}

// Column returns a copy of the named column's values.
func (tbl *Table) Column(name string) ([]float64, error) {
	idx, exists := tbl.ColumnIndex(name)
	if !exists {
		return nil, fmt.Errorf("%q, %w", name, ErrUnknownColumn)
	}
	vals := make([]float64, len(tbl.Data))
	for i, row := range tbl.Data {
		vals[i] = row[idx]
	}
	return vals, nil
}

// Diff returns the first difference of the table, each value minus its
// immediate predecessor. The first row is dropped since it has no
// predecessor.
func (tbl *Table) Diff() (*Table, error) {
	if len(tbl.T) < 2 {
		return nil, fmt.Errorf("got %d rows, %w", len(tbl.T), ErrTooFewRowsToDiff)
	}
	d := &Table{
		T:       make([]time.Time, len(tbl.T)-1),
		Columns: make([]string, len(tbl.Columns)),
		Data:    make([][]float64, len(tbl.T)-1),
	}
	copy(d.T, tbl.T[1:])
	copy(d.Columns, tbl.Columns)
	for i := 1; i < len(tbl.T); i++ {
		row := make([]float64, len(tbl.Columns))
		for j := range row {
			row[j] = tbl.Data[i][j] - tbl.Data[i-1][j]
		}
		d.Data[i-1] = row
	}
	return d, nil
}

// Tail returns a copy of the last n rows. If n exceeds the number of rows the
// whole table is returned.
func (tbl *Table) Tail(n int) *Table {
	if n >= len(tbl.T) {
		return tbl.Copy()
	}
	start := len(tbl.T) - n
	tail := &Table{
		T:       make([]time.Time, n),
		Columns: make([]string, len(tbl.Columns)),
		Data:    make([][]float64, n),
	}
	copy(tail.T, tbl.T[start:])
	copy(tail.Columns, tbl.Columns)
	for i := 0; i < n; i++ {
		tail.Data[i] = make([]float64, len(tbl.Columns))
		copy(tail.Data[i], tbl.Data[start+i])
	}
	return tail
}

// Matrix returns the table values as a rows x columns dense matrix.
func (tbl *Table) Matrix() *mat.Dense {
	m := mat.NewDense(len(tbl.T), len(tbl.Columns), nil)
	for i, row := range tbl.Data {
		m.SetRow(i, row)
	}
	return m
}

// Row is a single observation snapshot, a value per variable at one point in
// time.
type Row struct {
	T       time.Time
	Columns []string
	Values  []float64
}

// Value returns the snapshot value for the named variable.
func (r Row) Value(name string) (float64, bool) {
	for i, col := range r.Columns {
		if col == name {
			return r.Values[i], true
		}
	}
	return math.NaN(), false
}

// LastRow returns a copy of the most recent observation.
func (tbl *Table) LastRow() Row {
	last := len(tbl.T) - 1
	r := Row{
		T:       tbl.T[last],
		Columns: make([]string, len(tbl.Columns)),
		Values:  make([]float64, len(tbl.Columns)),
	}
	copy(r.Columns, tbl.Columns)
	copy(r.Values, tbl.Data[last])
	return r
}

// HourlyRange generates n hourly timestamps starting one hour after the
// given time.
func HourlyRange(after time.Time, n int) []time.Time {
	t := make([]time.Time, 0, n)
	for i := 1; i <= n; i++ {
		t = append(t, after.Add(time.Duration(i)*time.Hour))
	}
	return t
}
