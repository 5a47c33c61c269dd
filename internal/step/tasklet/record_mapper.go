package tasklet

import (
	"fmt"
	"math"

	appModel "github.com/tigerroll/temperature-etl/internal/domain/model"
	"github.com/tigerroll/temperature-etl/pkg/batch/component/dataframe"
)

// ToRecords maps the rows of a reshaped frame onto TemperatureRecord. The frame must hold
// every column of appModel.Columns; an ObjectId or Year outside the int32 range is an error.
func ToRecords(f *dataframe.Frame) ([]appModel.TemperatureRecord, error) {
	schema := f.Schema()
	idx := make([]int, len(appModel.Columns))
	for i, name := range appModel.Columns {
		idx[i] = schema.Index(name)
		if idx[i] < 0 {
			return nil, fmt.Errorf("%w: %s", dataframe.ErrColumnNotFound, name)
		}
	}

	records := make([]appModel.TemperatureRecord, f.Len())
	for i := range records {
		row := f.Row(i)
		rec := &records[i]
		var err error
		if rec.ObjectId, err = optionalInt32(row[idx[0]]); err != nil {
			return nil, fmt.Errorf("row %d ObjectId: %w", i, err)
		}
		if rec.Country, err = optionalString(row[idx[1]]); err != nil {
			return nil, fmt.Errorf("row %d Country: %w", i, err)
		}
		if rec.ISO3, err = optionalString(row[idx[2]]); err != nil {
			return nil, fmt.Errorf("row %d ISO3: %w", i, err)
		}
		year, err := optionalInt32(row[idx[3]])
		if err != nil {
			return nil, fmt.Errorf("row %d Year: %w", i, err)
		}
		if year == nil {
			return nil, fmt.Errorf("row %d Year: null in a required column", i)
		}
		rec.Year = *year
		if rec.Temperature, err = optionalFloat64(row[idx[4]]); err != nil {
			return nil, fmt.Errorf("row %d Temperature: %w", i, err)
		}
	}
	return records, nil
}

// FromRecords builds a frame in appModel.Columns order from records.
func FromRecords(records []appModel.TemperatureRecord) (*dataframe.Frame, error) {
	schema := dataframe.Schema{Fields: []dataframe.Field{
		{Name: "ObjectId", Type: dataframe.Int, Nullable: true},
		{Name: "Country", Type: dataframe.String, Nullable: true},
		{Name: "ISO3", Type: dataframe.String, Nullable: true},
		{Name: "Year", Type: dataframe.Int, Nullable: false},
		{Name: "Temperature", Type: dataframe.Double, Nullable: true},
	}}
	rows := make([][]dataframe.Value, len(records))
	for i, rec := range records {
		row := make([]dataframe.Value, 5)
		if rec.ObjectId != nil {
			row[0] = int64(*rec.ObjectId)
		}
		if rec.Country != nil {
			row[1] = *rec.Country
		}
		if rec.ISO3 != nil {
			row[2] = *rec.ISO3
		}
		row[3] = int64(rec.Year)
		if rec.Temperature != nil {
			row[4] = *rec.Temperature
		}
		rows[i] = row
	}
	return dataframe.NewFrame(schema, rows)
}

func optionalInt32(v dataframe.Value) (*int32, error) {
	if v == nil {
		return nil, nil
	}
	n, ok := v.(int64)
	if !ok {
		return nil, fmt.Errorf("expected an integer, got %v (%T)", v, v)
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return nil, fmt.Errorf("%d overflows int32", n)
	}
	out := int32(n)
	return &out, nil
}

func optionalString(v dataframe.Value) (*string, error) {
	if v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected a string, got %v (%T)", v, v)
	}
	return &s, nil
}

func optionalFloat64(v dataframe.Value) (*float64, error) {
	if v == nil {
		return nil, nil
	}
	switch x := v.(type) {
	case float64:
		return &x, nil
	case int64:
		f := float64(x)
		return &f, nil
	default:
		return nil, fmt.Errorf("expected a number, got %v (%T)", v, v)
	}
}
