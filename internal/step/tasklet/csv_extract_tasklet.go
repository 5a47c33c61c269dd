package tasklet

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/tigerroll/temperature-etl/pkg/batch/adapter/storage"
	"github.com/tigerroll/temperature-etl/pkg/batch/component/dataframe"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/application/port"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

// ContextKeyExtractRowCount is the number of CSV records read.
const ContextKeyExtractRowCount = "extract.rowCount"

// CSVExtractConfig holds the properties of csvExtractTasklet.
type CSVExtractConfig struct {
	StorageRef string `mapstructure:"storageRef"`
	Bucket     string `mapstructure:"bucket"`
	InputPath  string `mapstructure:"inputPath"`
	// Delimiter is a single character. Defaults to ",".
	Delimiter   string   `mapstructure:"delimiter"`
	InferSchema *bool    `mapstructure:"inferSchema"`
	NullValues  []string `mapstructure:"nullValues"`
	// IdentityColumns must be present in the header.
	IdentityColumns []string `mapstructure:"identityColumns"`
	// YearPrefix, FirstYear and LastYear name the value columns that must be present.
	YearPrefix string `mapstructure:"yearPrefix"`
	FirstYear  int    `mapstructure:"firstYear"`
	LastYear   int    `mapstructure:"lastYear"`
	Output     string `mapstructure:"output"`
}

// CSVExtractTasklet loads the input CSV into a frame with inferred column types.
type CSVExtractTasklet struct {
	frameTasklet
	config          CSVExtractConfig
	storageResolver storage.StorageConnectionResolver
}

// NewCSVExtractTasklet decodes properties and applies defaults.
func NewCSVExtractTasklet(
	properties map[string]interface{},
	session *dataframe.Session,
	storageResolver storage.StorageConnectionResolver,
) (*CSVExtractTasklet, error) {
	const name = "csvExtractTasklet"
	var cfg CSVExtractConfig
	if err := decodeProperties(name, properties, &cfg); err != nil {
		return nil, err
	}
	if cfg.StorageRef == "" || cfg.InputPath == "" {
		return nil, exception.NewBatchErrorf(name, "'storageRef' and 'inputPath' are required")
	}
	if len([]rune(cfg.Delimiter)) > 1 {
		return nil, exception.NewBatchErrorf(name, "delimiter must be a single character, got '%s'", cfg.Delimiter)
	}
	if cfg.FirstYear > cfg.LastYear {
		return nil, exception.NewBatchErrorf(name, "firstYear %d is after lastYear %d", cfg.FirstYear, cfg.LastYear)
	}
	if cfg.InferSchema == nil {
		infer := true
		cfg.InferSchema = &infer
	}
	if cfg.YearPrefix == "" {
		cfg.YearPrefix = dataframe.YearLabelPrefix
	}
	if cfg.YearPrefix != dataframe.YearLabelPrefix {
		return nil, exception.NewBatchErrorf(name, "unsupported yearPrefix '%s': year columns are labelled '%s<year>'", cfg.YearPrefix, dataframe.YearLabelPrefix)
	}
	if cfg.Output == "" {
		cfg.Output = FrameRaw
	}
	return &CSVExtractTasklet{
		frameTasklet:    frameTasklet{name: name, session: session},
		config:          cfg,
		storageResolver: storageResolver,
	}, nil
}

// Execute reads the CSV, checks the expected columns and stores the frame.
func (t *CSVExtractTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	conn, err := t.storageResolver.ResolveStorageConnection(ctx, t.config.StorageRef)
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(t.name, fmt.Sprintf("failed to resolve storage connection '%s'", t.config.StorageRef), err, false, false)
	}
	rc, err := conn.Download(ctx, t.config.Bucket, t.config.InputPath)
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(t.name, fmt.Sprintf("failed to open '%s'", t.config.InputPath), err, false, false)
	}
	defer func() {
		if err := rc.Close(); err != nil {
			logger.Warnf("%s: failed to close '%s': %v", t.name, t.config.InputPath, err)
		}
	}()

	opts := dataframe.CSVOptions{InferSchema: *t.config.InferSchema, NullValues: t.config.NullValues}
	if t.config.Delimiter != "" {
		opts.Delimiter = []rune(t.config.Delimiter)[0]
	}
	counter := &countingReader{r: rc}
	frame, err := dataframe.ReadCSV(counter, opts)
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(t.name, fmt.Sprintf("failed to read CSV '%s'", t.config.InputPath), err, false, false)
	}
	if err := t.checkColumns(frame.Schema()); err != nil {
		return model.ExitStatusFailed, err
	}

	logger.Infof("%s read %d rows and %d columns (%s) from '%s'.",
		t.name, frame.Len(), len(frame.Schema().Fields), humanize.Bytes(uint64(counter.n)), t.config.InputPath)
	logger.Infof("Schema:\n%s", frame.Schema().String())
	logger.Infof("First %d rows:\n%s", previewRows, dataframe.ShowString(frame, previewRows))

	if err := t.output(t.config.Output, frame); err != nil {
		return model.ExitStatusFailed, err
	}
	stepExecution.ReadCount = frame.Len()
	stepExecution.WriteCount = frame.Len()
	t.put(ContextKeyExtractRowCount, frame.Len())
	return model.ExitStatusCompleted, nil
}

func (t *CSVExtractTasklet) checkColumns(schema dataframe.Schema) error {
	required := append([]string(nil), t.config.IdentityColumns...)
	if t.config.LastYear > 0 {
		for year := t.config.FirstYear; year <= t.config.LastYear; year++ {
			required = append(required, dataframe.YearLabel(t.config.YearPrefix, year))
		}
	}
	var missing []string
	for _, name := range required {
		if schema.Index(name) < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return exception.NewBatchErrorf(t.name, "'%s' is missing columns %v", t.config.InputPath, missing)
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

var _ port.Tasklet = (*CSVExtractTasklet)(nil)
