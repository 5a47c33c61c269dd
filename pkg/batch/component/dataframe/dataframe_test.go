package dataframe_test

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/temperature-etl/pkg/batch/component/dataframe"
)

// temperatureCSV builds a wide temperature table with one F<year> column per year in [1961, 2022].
// rows maps a country to its temperatures; a nil slice leaves every year empty.
func temperatureCSV(rows ...[]string) string {
	var b strings.Builder
	b.WriteString("ObjectId,Country,ISO2,ISO3")
	for y := 1961; y <= 2022; y++ {
		fmt.Fprintf(&b, ",F%d", y)
	}
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString(strings.Join(r, ","))
		b.WriteString("\n")
	}
	return b.String()
}

func row(id, country, iso2, iso3 string, value func(year int) string) []string {
	out := []string{id, country, iso2, iso3}
	for y := 1961; y <= 2022; y++ {
		out = append(out, value(y))
	}
	return out
}

func allValues(year int) string { return fmt.Sprintf("%d.5", year-1960) }
func noValues(int) string       { return "" }

func readTemperatures(t *testing.T, rows ...[]string) *dataframe.Frame {
	t.Helper()
	f, err := dataframe.ReadCSV(strings.NewReader(temperatureCSV(rows...)), dataframe.CSVOptions{InferSchema: true})
	require.NoError(t, err)
	return f
}

func yearColumns() []string {
	cols := make([]string, 0, 62)
	for y := 1961; y <= 2022; y++ {
		cols = append(cols, dataframe.YearLabel("F", y))
	}
	return cols
}

func TestReadCSV_InfersSchema(t *testing.T) {
	input := "id,name,score,empty,mixed\n1,\"Doe, Jane\",1.5,,2\n2,Bob,3,,x\n"
	f, err := dataframe.ReadCSV(strings.NewReader(input), dataframe.CSVOptions{InferSchema: true})
	require.NoError(t, err)

	schema := f.Schema()
	assert.Equal(t, []string{"id", "name", "score", "empty", "mixed"}, schema.Names())
	types := make([]dataframe.ColumnType, 0)
	for _, field := range schema.Fields {
		types = append(types, field.Type)
		assert.True(t, field.Nullable)
	}
	assert.Equal(t, []dataframe.ColumnType{dataframe.Int, dataframe.String, dataframe.Double, dataframe.String, dataframe.String}, types)

	assert.Equal(t, 2, f.Len())
	assert.Equal(t, []dataframe.Value{int64(1), "Doe, Jane", 1.5, nil, "2"}, f.Row(0))
	assert.Equal(t, []dataframe.Value{int64(2), "Bob", 3.0, nil, "x"}, f.Row(1))
}

func TestReadCSV_WithoutInference(t *testing.T) {
	f, err := dataframe.ReadCSV(strings.NewReader("a;b\n1;NA\n"), dataframe.CSVOptions{Delimiter: ';', NullValues: []string{"NA"}})
	require.NoError(t, err)
	assert.Equal(t, dataframe.String, f.Schema().Fields[0].Type)
	assert.Equal(t, []dataframe.Value{"1", nil}, f.Row(0))
}

func TestReadCSV_Errors(t *testing.T) {
	tests := map[string]string{
		"empty input":      "",
		"duplicate header": "a,a\n1,2\n",
		"empty header":     "a,\n1,2\n",
		"ragged row":       "a,b\n1,2\n3\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := dataframe.ReadCSV(strings.NewReader(input), dataframe.CSVOptions{InferSchema: true})
			assert.Error(t, err)
		})
	}

	_, err := dataframe.ReadCSV(strings.NewReader("a,b\n1,2\n3\n"), dataframe.CSVOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestFillNA_OnlyTouchesNamedColumn(t *testing.T) {
	f := readTemperatures(t,
		row("1", "A", "", "AAA", allValues),
		row("2", "B", "BB", "", noValues),
	)
	filled, err := dataframe.FillNA(f, map[string]dataframe.Value{"ISO2": "Unknown", "Missing": "x"})
	require.NoError(t, err)

	iso2, err := filled.Column("ISO2")
	require.NoError(t, err)
	assert.Equal(t, []dataframe.Value{"Unknown", "BB"}, iso2)

	for _, name := range f.Schema().Names() {
		if name == "ISO2" {
			continue
		}
		before, _ := f.Column(name)
		after, _ := filled.Column(name)
		assert.Equal(t, before, after, "column %s changed", name)
	}
	original, _ := f.Column("ISO2")
	assert.Equal(t, []dataframe.Value{nil, "BB"}, original, "source frame must not be mutated")
}

func TestFillNA_Widening(t *testing.T) {
	f, err := dataframe.ReadCSV(strings.NewReader("n,s\n1,x\n,\n"), dataframe.CSVOptions{InferSchema: true})
	require.NoError(t, err)

	filled, err := dataframe.FillNA(f, map[string]dataframe.Value{"n": "none"})
	require.NoError(t, err)
	field, _ := filled.Schema().Field("n")
	assert.Equal(t, dataframe.String, field.Type)
	col, _ := filled.Column("n")
	assert.Equal(t, []dataframe.Value{"1", "none"}, col)

	filled, err = dataframe.FillNA(f, map[string]dataframe.Value{"n": 0.5})
	require.NoError(t, err)
	col, _ = filled.Column("n")
	assert.Equal(t, []dataframe.Value{1.0, 0.5}, col)

	_, err = dataframe.FillNA(f, map[string]dataframe.Value{"s": 1})
	assert.Error(t, err)
}

func TestDropNA(t *testing.T) {
	f, err := dataframe.ReadCSV(strings.NewReader("id,F1,F2\n1,,\n2,1,\n3,1,2\n"), dataframe.CSVOptions{InferSchema: true})
	require.NoError(t, err)

	all, err := dataframe.DropNA(f, []string{"F1", "F2"}, dataframe.All)
	require.NoError(t, err)
	ids, _ := all.Column("id")
	assert.Equal(t, []dataframe.Value{int64(2), int64(3)}, ids)

	anyNull, err := dataframe.DropNA(f, []string{"F1", "F2"}, dataframe.Any)
	require.NoError(t, err)
	ids, _ = anyNull.Column("id")
	assert.Equal(t, []dataframe.Value{int64(3)}, ids)

	_, err = dataframe.DropNA(f, []string{"F9"}, dataframe.All)
	assert.True(t, errors.Is(err, dataframe.ErrColumnNotFound))

	how, err := dataframe.ParseHow("ANY")
	require.NoError(t, err)
	assert.Equal(t, dataframe.Any, how)
	_, err = dataframe.ParseHow("some")
	assert.Error(t, err)
}

func TestColumnsWithPrefix(t *testing.T) {
	f := readTemperatures(t)
	assert.Equal(t, yearColumns(), dataframe.ColumnsWithPrefix(f, "F"))
	assert.Empty(t, dataframe.ColumnsWithPrefix(f, "Z"))
}

func TestUnpivot_RowCountsPerCountry(t *testing.T) {
	partial := func(year int) string {
		if year%2 == 0 {
			return ""
		}
		return "1.25"
	}
	f := readTemperatures(t,
		row("1", "A", "AA", "AAA", allValues),
		row("2", "B", "BB", "BBB", noValues),
		row("3", "C", "CC", "CCC", partial),
	)
	cleaned, err := dataframe.DropNA(f, dataframe.ColumnsWithPrefix(f, "F"), dataframe.All)
	require.NoError(t, err)
	require.Equal(t, 2, cleaned.Len())

	long, err := dataframe.Unpivot(cleaned, dataframe.UnpivotSpec{
		IDColumns:    []string{"ObjectId", "Country", "ISO3"},
		ValueColumns: yearColumns(),
		NameColumn:   "Year",
		ValueColumn:  "Temperature",
	})
	require.NoError(t, err)
	assert.Equal(t, cleaned.Len()*62, long.Len())
	assert.Equal(t, []string{"ObjectId", "Country", "ISO3", "Year", "Temperature"}, long.Schema().Names())

	perCountry := map[interface{}]int{}
	nullTemps := map[interface{}]int{}
	countries, _ := long.Column("Country")
	temps, _ := long.Column("Temperature")
	for i, c := range countries {
		perCountry[c]++
		if temps[i] == nil {
			nullTemps[c]++
		}
	}
	assert.Equal(t, map[interface{}]int{"A": 62, "C": 62}, perCountry)
	assert.Equal(t, 31, nullTemps["C"])
	assert.Zero(t, nullTemps["A"])

	assert.Equal(t, []dataframe.Value{int64(1), "A", "AAA", "F1961", 1.5}, long.Row(0))
	assert.Equal(t, []dataframe.Value{int64(1), "A", "AAA", "F2022", 62.5}, long.Row(61))
}

func TestUnpivot_ValueColumnType(t *testing.T) {
	f, err := dataframe.ReadCSV(strings.NewReader("id,F1,F2\n1,2,\n"), dataframe.CSVOptions{InferSchema: true})
	require.NoError(t, err)
	long, err := dataframe.Unpivot(f, dataframe.UnpivotSpec{IDColumns: []string{"id"}, ValueColumns: []string{"F1", "F2"}, NameColumn: "k", ValueColumn: "v"})
	require.NoError(t, err)
	field, _ := long.Schema().Field("v")
	assert.Equal(t, dataframe.String, field.Type, "an all-null column is String and widens the value column")

	f, err = dataframe.ReadCSV(strings.NewReader("id,F1,F2\n1,2,3.5\n"), dataframe.CSVOptions{InferSchema: true})
	require.NoError(t, err)
	long, err = dataframe.Unpivot(f, dataframe.UnpivotSpec{IDColumns: []string{"id"}, ValueColumns: []string{"F1", "F2"}, NameColumn: "k", ValueColumn: "v"})
	require.NoError(t, err)
	vals, _ := long.Column("v")
	assert.Equal(t, []dataframe.Value{2.0, 3.5}, vals)
}

func TestUnpivot_Errors(t *testing.T) {
	f := readTemperatures(t)
	_, err := dataframe.Unpivot(f, dataframe.UnpivotSpec{IDColumns: []string{"Nope"}, ValueColumns: []string{"F1961"}, NameColumn: "Year", ValueColumn: "Temperature"})
	assert.True(t, errors.Is(err, dataframe.ErrColumnNotFound))
	_, err = dataframe.Unpivot(f, dataframe.UnpivotSpec{IDColumns: []string{"Country"}, ValueColumns: []string{"F1900"}, NameColumn: "Year", ValueColumn: "Temperature"})
	assert.True(t, errors.Is(err, dataframe.ErrColumnNotFound))
	_, err = dataframe.Unpivot(f, dataframe.UnpivotSpec{IDColumns: []string{"Country"}, ValueColumns: []string{"F1961"}, NameColumn: "Country", ValueColumn: "Temperature"})
	assert.Error(t, err)
}

func TestParseYearLabel(t *testing.T) {
	year, err := dataframe.ParseYearLabel("F1961")
	require.NoError(t, err)
	assert.Equal(t, int32(1961), year)

	year, err = dataframe.ParseYearLabel("F2022")
	require.NoError(t, err)
	assert.Equal(t, int32(2022), year)

	for _, bad := range []string{"", "F", "F196", "F19610", "f1961", "G1961", "1961", "F19a1", " F1961", "F-961"} {
		_, err := dataframe.ParseYearLabel(bad)
		assert.True(t, errors.Is(err, dataframe.ErrInvalidYearLabel), "label %q", bad)
	}
}

func TestWithColumn_ParsesYears(t *testing.T) {
	f, err := dataframe.ReadCSV(strings.NewReader("Year\nF1961\nF2022\n"), dataframe.CSVOptions{InferSchema: true})
	require.NoError(t, err)

	parsed, err := dataframe.WithColumn(f, "Year", dataframe.Int, func(v dataframe.Value) (dataframe.Value, error) {
		y, err := dataframe.ParseYearLabel(v.(string))
		return int64(y), err
	})
	require.NoError(t, err)
	col, _ := parsed.Column("Year")
	assert.Equal(t, []dataframe.Value{int64(1961), int64(2022)}, col)
	field, _ := parsed.Schema().Field("Year")
	assert.False(t, field.Nullable)

	bad, err := dataframe.ReadCSV(strings.NewReader("Year\nF1961\nX\n"), dataframe.CSVOptions{InferSchema: true})
	require.NoError(t, err)
	_, err = dataframe.WithColumn(bad, "Year", dataframe.Int, func(v dataframe.Value) (dataframe.Value, error) {
		y, err := dataframe.ParseYearLabel(v.(string))
		return int64(y), err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1")
	assert.True(t, errors.Is(err, dataframe.ErrInvalidYearLabel))
}

func TestHeadTailAndShow(t *testing.T) {
	f, err := dataframe.ReadCSV(strings.NewReader("n,name\n1,a\n2,\n3,a very long name that is truncated\n"), dataframe.CSVOptions{InferSchema: true})
	require.NoError(t, err)

	assert.Equal(t, 2, f.Head(2).Len())
	assert.Equal(t, []dataframe.Value{int64(3), "a very long name that is truncated"}, f.Tail(1).Row(0))
	assert.Equal(t, 3, f.Head(10).Len())
	assert.Equal(t, 0, f.Tail(0).Len())

	var buf bytes.Buffer
	require.NoError(t, dataframe.Show(&buf, f, 2))
	assert.Equal(t, "+---+----+\n"+
		"|  n|name|\n"+
		"+---+----+\n"+
		"|  1|   a|\n"+
		"|  2|null|\n"+
		"+---+----+\n"+
		"only showing top 2 rows\n", buf.String())

	assert.Contains(t, dataframe.ShowString(f, 5), "a very long name ...")
}

func TestSchemaString(t *testing.T) {
	f, err := dataframe.ReadCSV(strings.NewReader("ObjectId,Country\n1,A\n"), dataframe.CSVOptions{InferSchema: true})
	require.NoError(t, err)
	assert.Equal(t, "root\n |-- ObjectId: integer (nullable = true)\n |-- Country: string (nullable = true)\n", f.Schema().String())
}

func TestNewFrame_Validates(t *testing.T) {
	schema := dataframe.Schema{Fields: []dataframe.Field{{Name: "n", Type: dataframe.Int}}}
	_, err := dataframe.NewFrame(schema, [][]dataframe.Value{{int64(1)}, {nil}})
	require.NoError(t, err)
	_, err = dataframe.NewFrame(schema, [][]dataframe.Value{{"x"}})
	assert.Error(t, err)
	_, err = dataframe.NewFrame(schema, [][]dataframe.Value{{int64(1), int64(2)}})
	assert.Error(t, err)
}

func TestSession(t *testing.T) {
	s := dataframe.NewSession("etl")
	f := readTemperatures(t)

	require.NoError(t, s.Put("raw", f))
	got, err := s.Get("raw")
	require.NoError(t, err)
	assert.Same(t, f, got)

	_, err = s.Get("missing")
	assert.True(t, errors.Is(err, dataframe.ErrFrameNotFound))

	require.NoError(t, s.Put("cleaned", f))
	names, err := s.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"cleaned", "raw"}, names)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	_, err = s.Get("raw")
	assert.ErrorIs(t, err, dataframe.ErrSessionClosed)
	assert.ErrorIs(t, s.Put("x", f), dataframe.ErrSessionClosed)
	_, err = s.Names()
	assert.ErrorIs(t, err, dataframe.ErrSessionClosed)
}
