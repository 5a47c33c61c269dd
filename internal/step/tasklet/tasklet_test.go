package tasklet_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/temperature-etl/internal/step/tasklet"
	"github.com/tigerroll/temperature-etl/pkg/batch/adapter/storage"
	"github.com/tigerroll/temperature-etl/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/temperature-etl/pkg/batch/component/dataframe"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/application/port"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/config"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/metrics"
)

const (
	firstYear = 1961
	lastYear  = 2022
	numYears  = lastYear - firstYear + 1
)

// csvRow is one input country; a nil value is an empty cell.
type csvRow struct {
	objectID string
	country  string
	iso2     string
	iso3     string
	values   []*float64
}

func filledValues(base float64) []*float64 {
	out := make([]*float64, numYears)
	for i := range out {
		v := base + float64(i)/8
		out[i] = &v
	}
	return out
}

func emptyValues() []*float64 {
	return make([]*float64, numYears)
}

func temperatureCSV(rows ...csvRow) string {
	var b strings.Builder
	b.WriteString("ObjectId,Country,ISO2,ISO3")
	for year := firstYear; year <= lastYear; year++ {
		fmt.Fprintf(&b, ",F%d", year)
	}
	b.WriteString("\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%s,%q,%s,%s", r.objectID, r.country, r.iso2, r.iso3)
		for _, v := range r.values {
			b.WriteString(",")
			if v != nil {
				fmt.Fprintf(&b, "%.3f", *v)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

type fixture struct {
	base     string
	session  *dataframe.Session
	resolver storage.StorageConnectionResolver
	recorder metrics.MetricRecorder
}

func newFixture(t *testing.T, csv string) *fixture {
	t.Helper()
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "content"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "content", "temperature.csv"), []byte(csv), 0o644))

	cfg := config.NewConfig()
	cfg.Surfin.AdapterConfigs["storage"] = map[string]interface{}{
		"local": map[string]interface{}{"type": "local", "base_dir": base},
	}
	resolver := storage.NewConnectionResolver(storage.ConnectionResolverParams{
		Providers: []storage.StorageProvider{local.NewLocalProvider(cfg)},
		Cfg:       cfg,
	})
	session := dataframe.NewSession("test")
	t.Cleanup(func() {
		_ = session.Close()
		_ = resolver.CloseAll()
	})
	return &fixture{base: base, session: session, resolver: resolver, recorder: metrics.NewNoOpMetricRecorder()}
}

func (f *fixture) builders() map[string]func(map[string]interface{}) (port.Tasklet, error) {
	out := map[string]func(map[string]interface{}) (port.Tasklet, error){}
	for _, entry := range tasklet.Builders(tasklet.BuilderParams{
		Session:         f.session,
		StorageResolver: f.resolver,
		MetricRecorder:  f.recorder,
	}) {
		builder := entry.Builder
		out[entry.Name] = func(properties map[string]interface{}) (port.Tasklet, error) {
			return builder(config.NewConfig(), properties)
		}
	}
	return out
}

// pipelineSteps mirrors job.yaml.
var pipelineSteps = []struct {
	step       string
	ref        string
	properties map[string]interface{}
}{
	{"extractStep", tasklet.CSVExtractTaskletName, map[string]interface{}{
		"storageRef":      "local",
		"inputPath":       "content/temperature.csv",
		"identityColumns": []interface{}{"ObjectId", "Country", "ISO2", "ISO3"},
		"firstYear":       firstYear,
		"lastYear":        lastYear,
	}},
	{"fillMissingStep", tasklet.FillMissingTaskletName, map[string]interface{}{"column": "ISO2", "value": "Unknown"}},
	{"dropNullRowsStep", tasklet.DropNullRowsTaskletName, map[string]interface{}{"prefix": "F", "how": "all"}},
	{"unpivotStep", tasklet.UnpivotTaskletName, map[string]interface{}{
		"idColumns": []interface{}{"ObjectId", "Country", "ISO3"},
		"firstYear": "1961",
		"lastYear":  lastYear,
	}},
	{"loadStep", tasklet.ParquetLoadTaskletName, map[string]interface{}{
		"storageRef":     "local",
		"outputPath":     "processed_temperature.parquet",
		"saveMode":       "overwrite",
		"compression":    "SNAPPY",
		"maxRowsPerFile": 50,
	}},
	{"verifyStep", tasklet.ParquetVerifyTaskletName, map[string]interface{}{
		"storageRef": "local",
		"outputPath": "processed_temperature.parquet",
	}},
}

// runTasklet drives a tasklet the way TaskletStep does.
func runTasklet(t *testing.T, tl port.Tasklet, stepName string) (*model.StepExecution, error) {
	t.Helper()
	ctx := context.Background()
	je := model.NewJobExecution("instance", "temperatureEtlJob", model.NewJobParameters())
	se := model.NewStepExecution(model.NewID(), je, stepName)
	require.NoError(t, tl.SetExecutionContext(ctx, se.ExecutionContext))
	status, err := tl.Execute(ctx, se)
	ec, ecErr := tl.GetExecutionContext(ctx)
	require.NoError(t, ecErr)
	se.ExecutionContext = ec
	require.NoError(t, tl.Close(ctx))
	if err == nil {
		assert.Equal(t, model.ExitStatusCompleted, status)
	}
	return se, err
}

// runPipeline runs every step and returns their executions keyed by step name.
func runPipeline(t *testing.T, f *fixture) map[string]*model.StepExecution {
	t.Helper()
	builders := f.builders()
	out := map[string]*model.StepExecution{}
	for _, s := range pipelineSteps {
		tl, err := builders[s.ref](s.properties)
		require.NoError(t, err, s.step)
		se, err := runTasklet(t, tl, s.step)
		require.NoError(t, err, s.step)
		out[s.step] = se
	}
	return out
}

func frameRows(f *dataframe.Frame) [][]dataframe.Value {
	rows := make([][]dataframe.Value, f.Len())
	for i := range rows {
		rows[i] = f.Row(i)
	}
	return rows
}

func TestPipeline_DropsAllNullCountries(t *testing.T) {
	f := newFixture(t, temperatureCSV(
		csvRow{"1", "A", "AA", "AAA", filledValues(0.5)},
		csvRow{"2", "B", "BB", "BBB", emptyValues()},
	))
	steps := runPipeline(t, f)

	extract := steps["extractStep"].ExecutionContext
	rows, _ := extract.GetInt(tasklet.ContextKeyExtractRowCount)
	assert.Equal(t, 2, rows)

	drop := steps["dropNullRowsStep"]
	dropped, _ := drop.ExecutionContext.GetInt(tasklet.ContextKeyDroppedCount)
	kept, _ := drop.ExecutionContext.GetInt(tasklet.ContextKeyCleanedRowCount)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 1, kept)
	assert.Equal(t, 1, drop.FilterCount)

	reshaped, err := f.session.Get(tasklet.FrameReshaped)
	require.NoError(t, err)
	require.Equal(t, numYears, reshaped.Len())
	countries, err := reshaped.Column("Country")
	require.NoError(t, err)
	for _, c := range countries {
		assert.Equal(t, "A", c)
	}
	assert.Equal(t, []string{"ObjectId", "Country", "ISO3", "Year", "Temperature"}, reshaped.Schema().Names())

	unpivotRows, _ := steps["unpivotStep"].ExecutionContext.GetInt(tasklet.ContextKeyUnpivotRowCount)
	assert.Equal(t, numYears, unpivotRows)

	load := steps["loadStep"]
	loaded, _ := load.ExecutionContext.GetInt(tasklet.ContextKeyLoadRowCount)
	files, _ := load.ExecutionContext.GetStringSlice(tasklet.ContextKeyLoadFiles)
	assert.Equal(t, numYears, loaded)
	assert.Len(t, files, 2, "maxRowsPerFile 50 splits 62 rows in two part files")
	assert.FileExists(t, filepath.Join(f.base, "processed_temperature.parquet", "_SUCCESS"))

	assert.Equal(t, numYears, steps["verifyStep"].ReadCount)
}

func TestPipeline_RowsPerIdentity(t *testing.T) {
	partial := filledValues(10)
	for i := 0; i < numYears; i += 3 {
		partial[i] = nil
	}
	f := newFixture(t, temperatureCSV(
		csvRow{"1", "Full", "FU", "FUL", filledValues(1)},
		csvRow{"2", "Partial", "PA", "PAR", partial},
		csvRow{"3", "Empty", "EM", "EMP", emptyValues()},
	))
	runPipeline(t, f)

	reshaped, err := f.session.Get(tasklet.FrameReshaped)
	require.NoError(t, err)

	perCountry := map[interface{}]int{}
	nullTemps := map[interface{}]int{}
	for i := 0; i < reshaped.Len(); i++ {
		row := reshaped.Row(i)
		perCountry[row[1]]++
		if row[4] == nil {
			nullTemps[row[1]]++
		}
	}
	assert.Equal(t, numYears, perCountry["Full"])
	assert.Equal(t, numYears, perCountry["Partial"])
	assert.Zero(t, perCountry["Empty"])
	assert.Zero(t, nullTemps["Full"])
	assert.Equal(t, (numYears+2)/3, nullTemps["Partial"])
}

func TestPipeline_RoundTripMatchesReshapedFrame(t *testing.T) {
	f := newFixture(t, temperatureCSV(
		csvRow{"7", "A", "", "AAA", filledValues(-3)},
		csvRow{"8", "B", "BB", "", filledValues(2)},
	))
	runPipeline(t, f)

	reshaped, err := f.session.Get(tasklet.FrameReshaped)
	require.NoError(t, err)
	reread, err := f.session.Get(tasklet.FrameReread)
	require.NoError(t, err)

	assert.Equal(t, reshaped.Len(), reread.Len())
	assert.Equal(t, reshaped.Schema().Names(), reread.Schema().Names())
	for i, field := range reshaped.Schema().Fields {
		assert.Equal(t, field.Type, reread.Schema().Fields[i].Type, field.Name)
	}
	assert.ElementsMatch(t, frameRows(reshaped), frameRows(reread))
}

func TestPipeline_RerunOverwritesOutput(t *testing.T) {
	f := newFixture(t, temperatureCSV(
		csvRow{"1", "A", "AA", "AAA", filledValues(0)},
		csvRow{"2", "B", "", "BBB", filledValues(4)},
	))

	runPipeline(t, f)
	first, err := f.session.Get(tasklet.FrameReread)
	require.NoError(t, err)
	firstFiles := partFiles(t, f.base)

	runPipeline(t, f)
	second, err := f.session.Get(tasklet.FrameReread)
	require.NoError(t, err)
	secondFiles := partFiles(t, f.base)

	assert.Equal(t, frameRows(first), frameRows(second))
	assert.Len(t, secondFiles, len(firstFiles))
	for _, name := range firstFiles {
		assert.NotContains(t, secondFiles, name, "previous part files are removed")
	}
}

func partFiles(t *testing.T, base string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(base, "processed_temperature.parquet"))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "part-") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func TestFillMissing_OnlyTouchesNamedColumn(t *testing.T) {
	f := newFixture(t, temperatureCSV(
		csvRow{"1", "A", "", "AAA", filledValues(1)},
		csvRow{"2", "B", "BB", "", emptyValues()},
	))
	builders := f.builders()
	extract, err := builders[tasklet.CSVExtractTaskletName](pipelineSteps[0].properties)
	require.NoError(t, err)
	_, err = runTasklet(t, extract, "extractStep")
	require.NoError(t, err)

	fill, err := builders[tasklet.FillMissingTaskletName](map[string]interface{}{"column": "ISO2", "value": "Unknown"})
	require.NoError(t, err)
	se, err := runTasklet(t, fill, "fillMissingStep")
	require.NoError(t, err)
	filledCount, _ := se.ExecutionContext.GetInt(tasklet.ContextKeyFilledCount)
	assert.Equal(t, 1, filledCount)

	raw, err := f.session.Get(tasklet.FrameRaw)
	require.NoError(t, err)
	filled, err := f.session.Get(tasklet.FrameFilled)
	require.NoError(t, err)

	iso2, err := filled.Column("ISO2")
	require.NoError(t, err)
	assert.Equal(t, []dataframe.Value{"Unknown", "BB"}, iso2)

	iso2Idx := raw.Schema().Index("ISO2")
	assert.Equal(t, raw.Schema().Names(), filled.Schema().Names())
	for i := 0; i < raw.Len(); i++ {
		before, after := raw.Row(i), filled.Row(i)
		for j := range before {
			if j == iso2Idx {
				continue
			}
			assert.Equal(t, before[j], after[j], "row %d column %s", i, raw.Schema().Fields[j].Name)
		}
	}
	iso3, err := filled.Column("ISO3")
	require.NoError(t, err)
	assert.Nil(t, iso3[1], "other null cells stay null")
}

func TestReshape_ParsesYearLabels(t *testing.T) {
	schema := dataframe.Schema{Fields: []dataframe.Field{
		{Name: "Country", Type: dataframe.String, Nullable: false},
		{Name: "F1961", Type: dataframe.Int, Nullable: false},
		{Name: "F2022", Type: dataframe.Double, Nullable: true},
	}}
	in, err := dataframe.NewFrame(schema, [][]dataframe.Value{{"A", int64(3), nil}})
	require.NoError(t, err)

	out, err := tasklet.Reshape(in, []string{"Country"}, []string{"F1961", "F2022"}, "Year", "Temperature")
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, []dataframe.Value{"A", int64(1961), 3.0}, out.Row(0))
	assert.Equal(t, []dataframe.Value{"A", int64(2022), nil}, out.Row(1))

	field, ok := out.Schema().Field("Year")
	require.True(t, ok)
	assert.Equal(t, dataframe.Int, field.Type)

	t.Run("malformed label", func(t *testing.T) {
		bad := dataframe.Schema{Fields: []dataframe.Field{
			{Name: "Country", Type: dataframe.String},
			{Name: "F61", Type: dataframe.Double, Nullable: true},
		}}
		in, err := dataframe.NewFrame(bad, [][]dataframe.Value{{"A", 1.5}})
		require.NoError(t, err)
		_, err = tasklet.Reshape(in, []string{"Country"}, []string{"F61"}, "Year", "Temperature")
		assert.True(t, errors.Is(err, dataframe.ErrInvalidYearLabel), "got %v", err)
	})
}

func TestToRecords_ObjectIdOverflow(t *testing.T) {
	schema := dataframe.Schema{Fields: []dataframe.Field{
		{Name: "ObjectId", Type: dataframe.Int},
		{Name: "Country", Type: dataframe.String},
		{Name: "ISO3", Type: dataframe.String},
		{Name: "Year", Type: dataframe.Int},
		{Name: "Temperature", Type: dataframe.Double, Nullable: true},
	}}
	in, err := dataframe.NewFrame(schema, [][]dataframe.Value{{int64(1) << 40, "A", "AAA", int64(1961), nil}})
	require.NoError(t, err)
	_, err = tasklet.ToRecords(in)
	assert.ErrorContains(t, err, "overflows int32")
}

func TestExtract_MissingYearColumn(t *testing.T) {
	csv := "ObjectId,Country,ISO2,ISO3,F1961\n1,A,AA,AAA,0.5\n"
	f := newFixture(t, csv)
	extract, err := f.builders()[tasklet.CSVExtractTaskletName](pipelineSteps[0].properties)
	require.NoError(t, err)
	_, err = runTasklet(t, extract, "extractStep")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "F2022")

	_, getErr := f.session.Get(tasklet.FrameRaw)
	assert.ErrorIs(t, getErr, dataframe.ErrFrameNotFound)
}

func TestVerify_RowCountMismatchFails(t *testing.T) {
	f := newFixture(t, temperatureCSV(csvRow{"1", "A", "AA", "AAA", filledValues(0)}))
	builders := f.builders()
	for _, s := range pipelineSteps[:5] {
		tl, err := builders[s.ref](s.properties)
		require.NoError(t, err)
		_, err = runTasklet(t, tl, s.step)
		require.NoError(t, err)
	}

	reshaped, err := f.session.Get(tasklet.FrameReshaped)
	require.NoError(t, err)
	require.NoError(t, f.session.Put("truncated", reshaped.Head(10)))

	verify, err := builders[tasklet.ParquetVerifyTaskletName](map[string]interface{}{
		"storageRef": "local",
		"outputPath": "processed_temperature.parquet",
		"expected":   "truncated",
	})
	require.NoError(t, err)
	_, err = runTasklet(t, verify, "verifyStep")
	assert.ErrorContains(t, err, "read back 62 rows")
}

type mockRecorder struct {
	metrics.NoOpMetricRecorder
	mock.Mock
}

func (m *mockRecorder) RecordBytesWritten(ctx context.Context, stepName string, n int64) {
	m.Called(stepName, n > 0)
}

func TestLoad_RecordsBytesWritten(t *testing.T) {
	f := newFixture(t, temperatureCSV(csvRow{"1", "A", "AA", "AAA", filledValues(0)}))
	recorder := &mockRecorder{}
	recorder.On("RecordBytesWritten", "loadStep", true).Once()
	f.recorder = recorder

	runPipeline(t, f)
	recorder.AssertExpectations(t)
}

func TestBuilders_RejectInvalidProperties(t *testing.T) {
	f := newFixture(t, "")
	builders := f.builders()

	tests := []struct {
		name       string
		ref        string
		properties map[string]interface{}
		wantErr    string
	}{
		{"extract without input", tasklet.CSVExtractTaskletName, map[string]interface{}{"storageRef": "local"}, "required"},
		{"extract multi-char delimiter", tasklet.CSVExtractTaskletName, map[string]interface{}{"storageRef": "local", "inputPath": "x.csv", "delimiter": ";;"}, "single character"},
		{"fill without column", tasklet.FillMissingTaskletName, map[string]interface{}{"value": "Unknown"}, "'column' is required"},
		{"drop with unknown rule", tasklet.DropNullRowsTaskletName, map[string]interface{}{"prefix": "F", "how": "most"}, "invalid 'how'"},
		{"unpivot reversed years", tasklet.UnpivotTaskletName, map[string]interface{}{"idColumns": []interface{}{"Country"}, "firstYear": 2022, "lastYear": 1961}, "invalid year range"},
		{"unpivot with other prefix", tasklet.UnpivotTaskletName, map[string]interface{}{"idColumns": []interface{}{"Country"}, "prefix": "Y", "firstYear": 1961, "lastYear": 2022}, "unsupported prefix 'Y'"},
		{"extract with other year prefix", tasklet.CSVExtractTaskletName, map[string]interface{}{"storageRef": "local", "inputPath": "x.csv", "yearPrefix": "Y"}, "unsupported yearPrefix 'Y'"},
		{"unknown property", tasklet.FillMissingTaskletName, map[string]interface{}{"column": "ISO2", "colour": "red"}, "failed to decode properties"},
		{"load without output", tasklet.ParquetLoadTaskletName, map[string]interface{}{"storageRef": "local"}, "outputPath"},
		{"load with bad save mode", tasklet.ParquetLoadTaskletName, map[string]interface{}{"storageRef": "local", "outputPath": "out", "saveMode": "append"}, "unsupported saveMode"},
		{"verify without storage", tasklet.ParquetVerifyTaskletName, map[string]interface{}{"outputPath": "out"}, "storageRef"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl, err := builders[tt.ref](tt.properties)
			assert.Nil(t, tl)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoad_FailedWriteLeavesNoMarker(t *testing.T) {
	f := newFixture(t, temperatureCSV(csvRow{"1", "A", "AA", "AAA", filledValues(0)}))
	builders := f.builders()
	for _, s := range pipelineSteps[:4] {
		tl, err := builders[s.ref](s.properties)
		require.NoError(t, err)
		_, err = runTasklet(t, tl, s.step)
		require.NoError(t, err)
	}

	// A regular file where the output folder should be makes every part upload fail.
	require.NoError(t, os.WriteFile(filepath.Join(f.base, "processed_temperature.parquet"), []byte("x"), 0o644))

	load, err := builders[tasklet.ParquetLoadTaskletName](pipelineSteps[4].properties)
	require.NoError(t, err)
	se, err := runTasklet(t, load, "loadStep")
	require.Error(t, err)
	_, ok := se.ExecutionContext.Get(tasklet.ContextKeyLoadRowCount)
	assert.False(t, ok)
	assert.NoFileExists(t, filepath.Join(f.base, "processed_temperature.parquet", "_SUCCESS"))
}
