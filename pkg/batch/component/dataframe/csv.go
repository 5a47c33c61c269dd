package dataframe

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// CSVOptions configures ReadCSV. The first record is always the header.
type CSVOptions struct {
	// Delimiter separates fields. Defaults to ','.
	Delimiter rune
	// InferSchema types columns from their content; when false every column is String.
	InferSchema bool
	// NullValues are the cell texts read as null. Defaults to the empty string only.
	NullValues []string
}

// ReadCSV reads a header row and the records following it.
//
// With InferSchema, a column whose non-null cells all parse as int64 is Int, else as float64
// is Double, else String. A column with no non-null cell is String. Every field is nullable.
func ReadCSV(r io.Reader, opts CSVOptions) (*Frame, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	nulls := opts.NullValues
	if len(nulls) == 0 {
		nulls = []string{""}
	}

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("dataframe: csv input is empty, a header row is required")
	}
	if err != nil {
		return nil, fmt.Errorf("dataframe: failed to read csv header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataframe: failed to read csv: %w", err)
		}
		records = append(records, record)
	}

	isNull := func(s string) bool {
		for _, n := range nulls {
			if s == n {
				return true
			}
		}
		return false
	}

	fields := make([]Field, len(header))
	for i, name := range header {
		t := String
		if opts.InferSchema {
			t = inferColumn(records, i, isNull)
		}
		fields[i] = Field{Name: name, Type: t, Nullable: true}
	}

	rows := make([][]Value, len(records))
	for r, record := range records {
		row := make([]Value, len(record))
		for c, cell := range record {
			if isNull(cell) {
				continue
			}
			v, err := parseCell(cell, fields[c].Type)
			if err != nil {
				return nil, fmt.Errorf("dataframe: csv row %d column %q: %w", r+1, fields[c].Name, err)
			}
			row[c] = v
		}
		rows[r] = row
	}
	return &Frame{schema: Schema{Fields: fields}, rows: rows}, nil
}

func checkHeader(header []string) error {
	seen := make(map[string]struct{}, len(header))
	for i, name := range header {
		if name == "" {
			return fmt.Errorf("dataframe: csv header column %d is empty", i+1)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("dataframe: csv header column %q is duplicated", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

func inferColumn(records [][]string, col int, isNull func(string) bool) ColumnType {
	t := Null
	for _, record := range records {
		cell := record[col]
		if isNull(cell) {
			continue
		}
		t = Widen(t, inferCell(cell))
		if t == String {
			break
		}
	}
	if t == Null {
		return String
	}
	return t
}

func inferCell(s string) ColumnType {
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return Double
	}
	return String
}

func parseCell(s string, t ColumnType) (Value, error) {
	switch t {
	case Int:
		return strconv.ParseInt(s, 10, 64)
	case Double:
		return strconv.ParseFloat(s, 64)
	default:
		return s, nil
	}
}
