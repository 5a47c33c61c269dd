// Package dataframe is a small in-process tabular engine: CSV ingestion with type inference,
// null handling, wide-to-long reshaping and plain-text previews. Frames are immutable; every
// operation returns a new Frame.
package dataframe

import (
	"fmt"
	"strings"
)

// ColumnType is the inferred type of a column. Types widen in declaration order.
type ColumnType int

const (
	Null ColumnType = iota
	Int
	Double
	String
)

var columnTypeNames = map[ColumnType]string{
	Null:   "void",
	Int:    "integer",
	Double: "double",
	String: "string",
}

func (t ColumnType) String() string {
	if name, ok := columnTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ColumnType(%d)", int(t))
}

// Widen returns the narrowest type able to hold values of both a and b.
func Widen(a, b ColumnType) ColumnType {
	if a > b {
		return a
	}
	return b
}

// Value is a nullable cell: nil, int64, float64 or string.
type Value = interface{}

// Field describes one column.
type Field struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

// Schema is the ordered list of fields of a Frame.
type Schema struct {
	Fields []Field
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Index returns the position of the named column, or -1.
func (s Schema) Index(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Field returns the named field.
func (s Schema) Field(name string) (Field, bool) {
	if i := s.Index(name); i >= 0 {
		return s.Fields[i], true
	}
	return Field{}, false
}

// String renders the schema as a tree:
//
//	root
//	 |-- ObjectId: integer (nullable = true)
func (s Schema) String() string {
	var b strings.Builder
	b.WriteString("root\n")
	for _, f := range s.Fields {
		fmt.Fprintf(&b, " |-- %s: %s (nullable = %t)\n", f.Name, f.Type, f.Nullable)
	}
	return b.String()
}

func (s Schema) clone() Schema {
	return Schema{Fields: append([]Field(nil), s.Fields...)}
}
