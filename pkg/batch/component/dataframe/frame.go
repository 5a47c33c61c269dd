package dataframe

import (
	"errors"
	"fmt"
)

// ErrColumnNotFound is returned when an operation names a column the frame does not have.
var ErrColumnNotFound = errors.New("dataframe: column not found")

// Frame is a schema plus row-major data.
type Frame struct {
	schema Schema
	rows   [][]Value
}

// NewFrame builds a Frame, checking that every row has one cell per field and that every
// cell is nil or of a Go type allowed for its column.
func NewFrame(schema Schema, rows [][]Value) (*Frame, error) {
	width := len(schema.Fields)
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("dataframe: row %d has %d cells, schema has %d fields", i, len(row), width)
		}
		for j, v := range row {
			if !fitsType(v, schema.Fields[j].Type) {
				return nil, fmt.Errorf("dataframe: row %d column %q: value %v (%T) does not fit type %s", i, schema.Fields[j].Name, v, v, schema.Fields[j].Type)
			}
		}
	}
	return &Frame{schema: schema.clone(), rows: rows}, nil
}

func fitsType(v Value, t ColumnType) bool {
	if v == nil {
		return true
	}
	switch v.(type) {
	case int64:
		return t == Int
	case float64:
		return t == Double
	case string:
		return t == String
	default:
		return false
	}
}

// Schema returns the frame schema.
func (f *Frame) Schema() Schema {
	return f.schema.clone()
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.rows)
}

// Row returns a copy of row i.
func (f *Frame) Row(i int) []Value {
	return append([]Value(nil), f.rows[i]...)
}

// Column returns a copy of the values of the named column.
func (f *Frame) Column(name string) ([]Value, error) {
	idx := f.schema.Index(name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	out := make([]Value, len(f.rows))
	for i, row := range f.rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Head returns the first n rows.
func (f *Frame) Head(n int) *Frame {
	if n > len(f.rows) {
		n = len(f.rows)
	}
	if n < 0 {
		n = 0
	}
	return &Frame{schema: f.schema.clone(), rows: f.rows[:n:n]}
}

// Tail returns the last n rows.
func (f *Frame) Tail(n int) *Frame {
	if n > len(f.rows) {
		n = len(f.rows)
	}
	if n < 0 {
		n = 0
	}
	return &Frame{schema: f.schema.clone(), rows: f.rows[len(f.rows)-n:]}
}

func (f *Frame) indexes(names []string) ([]int, error) {
	out := make([]int, len(names))
	for i, name := range names {
		idx := f.schema.Index(name)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
		}
		out[i] = idx
	}
	return out, nil
}
