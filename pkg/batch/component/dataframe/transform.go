package dataframe

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// How selects the DropNA rule.
type How int

const (
	// All drops a row when every subset column is null.
	All How = iota
	// Any drops a row when at least one subset column is null.
	Any
)

// ParseHow maps "all" and "any" to a How.
func ParseHow(s string) (How, error) {
	switch strings.ToLower(s) {
	case "all":
		return All, nil
	case "any":
		return Any, nil
	default:
		return All, fmt.Errorf("dataframe: unknown dropna rule %q, expected all or any", s)
	}
}

func (h How) String() string {
	if h == Any {
		return "any"
	}
	return "all"
}

// FillNA replaces nulls in the named columns with the given values. Columns absent from the
// frame are ignored. A string fill on a non-string column widens that column to String; a
// float fill on an Int column widens it to Double. Columns not named are returned unchanged.
func FillNA(f *Frame, fills map[string]Value) (*Frame, error) {
	schema := f.schema.clone()
	rows := copyRows(f.rows)

	for _, name := range f.schema.Names() {
		fill, ok := fills[name]
		if !ok {
			continue
		}
		idx := schema.Index(name)
		fillValue, fillType, err := normalize(fill)
		if err != nil {
			return nil, fmt.Errorf("dataframe: fillna column %q: %w", name, err)
		}
		if fillValue == nil {
			continue
		}

		target := schema.Fields[idx].Type
		switch {
		case target == Null:
			target = fillType
		case fillType == String && target != String:
			target = String
		case target == String && fillType != String:
			return nil, fmt.Errorf("dataframe: fillna column %q: cannot fill a string column with %v (%s)", name, fill, fillType)
		default:
			target = Widen(target, fillType)
		}

		fillValue, err = CastValue(fillValue, target)
		if err != nil {
			return nil, fmt.Errorf("dataframe: fillna column %q: %w", name, err)
		}
		for _, row := range rows {
			if row[idx] == nil {
				row[idx] = fillValue
				continue
			}
			if row[idx], err = CastValue(row[idx], target); err != nil {
				return nil, fmt.Errorf("dataframe: fillna column %q: %w", name, err)
			}
		}
		schema.Fields[idx].Type = target
		schema.Fields[idx].Nullable = false
	}
	return &Frame{schema: schema, rows: rows}, nil
}

// DropNA removes rows according to how, looking only at subset. An empty subset means all columns.
func DropNA(f *Frame, subset []string, how How) (*Frame, error) {
	if len(subset) == 0 {
		subset = f.schema.Names()
	}
	idxs, err := f.indexes(subset)
	if err != nil {
		return nil, fmt.Errorf("dataframe: dropna: %w", err)
	}

	kept := make([][]Value, 0, len(f.rows))
	for _, row := range f.rows {
		nulls := 0
		for _, idx := range idxs {
			if row[idx] == nil {
				nulls++
			}
		}
		drop := nulls == len(idxs)
		if how == Any {
			drop = nulls > 0
		}
		if !drop {
			kept = append(kept, row)
		}
	}
	return &Frame{schema: f.schema.clone(), rows: kept}, nil
}

// ColumnsWithPrefix returns the names starting with prefix, in schema order.
func ColumnsWithPrefix(f *Frame, prefix string) []string {
	var out []string
	for _, field := range f.schema.Fields {
		if strings.HasPrefix(field.Name, prefix) {
			out = append(out, field.Name)
		}
	}
	return out
}

// UnpivotSpec describes a wide-to-long reshape.
type UnpivotSpec struct {
	// IDColumns are carried to every output row.
	IDColumns []string
	// ValueColumns are turned into rows, in this order.
	ValueColumns []string
	// NameColumn receives the value column name as a String.
	NameColumn string
	// ValueColumn receives the cell value.
	ValueColumn string
}

// Unpivot emits, for every input row, one row per value column holding the ID columns, the
// value column name and its value. The value type is the widest value column type, with Int
// widened to Double. The output has Len() * len(ValueColumns) rows.
func Unpivot(f *Frame, spec UnpivotSpec) (*Frame, error) {
	if len(spec.ValueColumns) == 0 {
		return nil, fmt.Errorf("dataframe: unpivot requires at least one value column")
	}
	if spec.NameColumn == "" || spec.ValueColumn == "" || spec.NameColumn == spec.ValueColumn {
		return nil, fmt.Errorf("dataframe: unpivot requires distinct name and value column names")
	}
	idIdx, err := f.indexes(spec.IDColumns)
	if err != nil {
		return nil, fmt.Errorf("dataframe: unpivot id columns: %w", err)
	}
	valIdx, err := f.indexes(spec.ValueColumns)
	if err != nil {
		return nil, fmt.Errorf("dataframe: unpivot value columns: %w", err)
	}

	valueType := Null
	for _, idx := range valIdx {
		valueType = Widen(valueType, f.schema.Fields[idx].Type)
	}
	if valueType == Null || valueType == Int {
		valueType = Double
	}

	fields := make([]Field, 0, len(idIdx)+2)
	for _, idx := range idIdx {
		fields = append(fields, f.schema.Fields[idx])
	}
	fields = append(fields,
		Field{Name: spec.NameColumn, Type: String, Nullable: false},
		Field{Name: spec.ValueColumn, Type: valueType, Nullable: true},
	)
	if err := checkUnique(fields); err != nil {
		return nil, fmt.Errorf("dataframe: unpivot: %w", err)
	}

	rows := make([][]Value, 0, len(f.rows)*len(valIdx))
	for _, row := range f.rows {
		for k, idx := range valIdx {
			out := make([]Value, 0, len(fields))
			for _, id := range idIdx {
				out = append(out, row[id])
			}
			v, err := CastValue(row[idx], valueType)
			if err != nil {
				return nil, fmt.Errorf("dataframe: unpivot column %q: %w", spec.ValueColumns[k], err)
			}
			out = append(out, spec.ValueColumns[k], v)
			rows = append(rows, out)
		}
	}
	return &Frame{schema: Schema{Fields: fields}, rows: rows}, nil
}

// WithColumn replaces the named column with fn applied to each of its values. The result
// must be nil or of type t. Nullable is recomputed from the results.
func WithColumn(f *Frame, name string, t ColumnType, fn func(Value) (Value, error)) (*Frame, error) {
	idx := f.schema.Index(name)
	if idx < 0 {
		return nil, fmt.Errorf("dataframe: with column: %w: %s", ErrColumnNotFound, name)
	}
	schema := f.schema.clone()
	rows := copyRows(f.rows)
	nullable := false
	for i, row := range rows {
		v, err := fn(row[idx])
		if err != nil {
			return nil, fmt.Errorf("dataframe: column %q row %d: %w", name, i, err)
		}
		if !fitsType(v, t) {
			return nil, fmt.Errorf("dataframe: column %q row %d: value %v (%T) does not fit type %s", name, i, v, v, t)
		}
		if v == nil {
			nullable = true
		}
		row[idx] = v
	}
	schema.Fields[idx].Type = t
	schema.Fields[idx].Nullable = nullable
	return &Frame{schema: schema, rows: rows}, nil
}

// Cast converts the named column to t with CastValue.
func Cast(f *Frame, name string, t ColumnType) (*Frame, error) {
	return WithColumn(f, name, t, func(v Value) (Value, error) {
		return CastValue(v, t)
	})
}

// CastValue converts v to t. Null stays null. Strings that do not parse are an error.
func CastValue(v Value, t ColumnType) (Value, error) {
	v, _, err := normalize(v)
	if err != nil || v == nil {
		return v, err
	}
	switch t {
	case Int:
		switch x := v.(type) {
		case int64:
			return x, nil
		case float64:
			if x != math.Trunc(x) || x > math.MaxInt64 || x < math.MinInt64 {
				return nil, fmt.Errorf("cannot cast %v to %s without loss", x, t)
			}
			return int64(x), nil
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("cannot cast %q to %s: %w", x, t, err)
			}
			return n, nil
		}
	case Double:
		switch x := v.(type) {
		case int64:
			return float64(x), nil
		case float64:
			return x, nil
		case string:
			n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if err != nil {
				return nil, fmt.Errorf("cannot cast %q to %s: %w", x, t, err)
			}
			return n, nil
		}
	case String:
		return formatValue(v), nil
	}
	return nil, fmt.Errorf("cannot cast %v (%T) to %s", v, v, t)
}

// normalize maps Go numeric types onto the Value representation.
func normalize(v Value) (Value, ColumnType, error) {
	switch x := v.(type) {
	case nil:
		return nil, Null, nil
	case int:
		return int64(x), Int, nil
	case int32:
		return int64(x), Int, nil
	case int64:
		return x, Int, nil
	case float32:
		return float64(x), Double, nil
	case float64:
		return x, Double, nil
	case string:
		return x, String, nil
	default:
		return nil, Null, fmt.Errorf("unsupported value type %T", v)
	}
}

func formatValue(v Value) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func copyRows(rows [][]Value) [][]Value {
	out := make([][]Value, len(rows))
	for i, row := range rows {
		out[i] = append([]Value(nil), row...)
	}
	return out
}

func checkUnique(fields []Field) error {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate column %q", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}
