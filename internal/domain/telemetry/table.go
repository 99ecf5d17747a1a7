// Package telemetry holds the telemetry table and the synthetic generator.
package telemetry

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// Column names of a telemetry table, in storage order.
const (
	ColumnCPU     = "cpu"
	ColumnErrors  = "errors"
	ColumnLatency = "latency"
)

// Columns returns the telemetry column set in storage order.
func Columns() []string {
	return []string{ColumnCPU, ColumnErrors, ColumnLatency}
}

// Table is an immutable row-ordered numeric table with named columns.
type Table struct {
	columns []string
	index   map[string]int
	data    *mat.Dense // nil when the table has no rows
	// outliers lists rows the generator overwrote with spikes.
	outliers []int
}

// NewTable builds a table from row-major values. len(data) must be a
// multiple of len(columns); column names must be unique and non-empty.
func NewTable(columns []string, data []float64) (*Table, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no columns", ErrShape)
	}
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if c == "" {
			return nil, fmt.Errorf("%w: column %d has no name", ErrShape, i)
		}
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrShape, c)
		}
		index[c] = i
	}
	if len(data)%len(columns) != 0 {
		return nil, fmt.Errorf("%w: %d values do not fill %d columns", ErrShape, len(data), len(columns))
	}

	t := &Table{columns: slices.Clone(columns), index: index}
	if rows := len(data) / len(columns); rows > 0 {
		t.data = mat.NewDense(rows, len(columns), slices.Clone(data))
	}
	return t, nil
}

// FromDense wraps a copy of m with the given column names.
func FromDense(columns []string, m mat.Matrix) (*Table, error) {
	r, c := m.Dims()
	if c != len(columns) {
		return nil, fmt.Errorf("%w: matrix has %d columns, names %d", ErrShape, c, len(columns))
	}
	t, err := NewTable(columns, nil)
	if err != nil {
		return nil, err
	}
	if r > 0 {
		t.data = mat.DenseCopyOf(m)
	}
	return t, nil
}

// Rows returns the number of rows.
func (t *Table) Rows() int {
	if t.data == nil {
		return 0
	}
	r, _ := t.data.Dims()
	return r
}

// Columns returns a copy of the column names.
func (t *Table) Columns() []string { return slices.Clone(t.columns) }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.columns) }

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]float64, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return t.ColumnAt(j), nil
}

// ColumnAt returns a copy of column j.
func (t *Table) ColumnAt(j int) []float64 {
	if t.data == nil {
		return []float64{}
	}
	return mat.Col(nil, j, t.data)
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []float64 {
	return mat.Row(nil, i, t.data)
}

// At returns the value at row i, column j.
func (t *Table) At(i, j int) float64 { return t.data.At(i, j) }

// Matrix exposes the values as a read-only matrix. It is nil for an empty table.
func (t *Table) Matrix() mat.Matrix {
	if t.data == nil {
		return nil
	}
	return t.data
}

// OutlierRows returns the indices of injected outlier rows in ascending order.
func (t *Table) OutlierRows() []int { return slices.Clone(t.outliers) }

// HasColumns reports whether the table has exactly the given column set,
// ignoring order.
func (t *Table) HasColumns(names ...string) bool {
	if len(names) != len(t.columns) {
		return false
	}
	for _, n := range names {
		if _, ok := t.index[n]; !ok {
			return false
		}
	}
	return true
}
