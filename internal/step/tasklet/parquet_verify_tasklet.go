package tasklet

import (
	"context"
	"errors"
	"io"

	appModel "github.com/tigerroll/temperature-etl/internal/domain/model"
	"github.com/tigerroll/temperature-etl/pkg/batch/adapter/storage"
	"github.com/tigerroll/temperature-etl/pkg/batch/component/dataframe"
	"github.com/tigerroll/temperature-etl/pkg/batch/component/step/reader"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/application/port"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

// ContextKeyVerifyRowCount is the number of rows read back.
const ContextKeyVerifyRowCount = "verify.rowCount"

// ParquetVerifyConfig holds the properties of parquetVerifyTasklet.
type ParquetVerifyConfig struct {
	StorageRef string `mapstructure:"storageRef"`
	Bucket     string `mapstructure:"bucket"`
	OutputPath string `mapstructure:"outputPath"`
	// Expected is the frame the output must match in row count.
	Expected string `mapstructure:"expected"`
	Output   string `mapstructure:"output"`
}

// ParquetVerifyTasklet reads the written part files back and fails when their schema or
// row count differs from what was written.
type ParquetVerifyTasklet struct {
	frameTasklet
	config ParquetVerifyConfig
	reader *reader.ParquetReader[appModel.TemperatureRecord]
}

// NewParquetVerifyTasklet decodes properties and creates the Parquet reader.
func NewParquetVerifyTasklet(
	properties map[string]interface{},
	session *dataframe.Session,
	storageResolver storage.StorageConnectionResolver,
) (*ParquetVerifyTasklet, error) {
	const name = "parquetVerifyTasklet"
	var cfg ParquetVerifyConfig
	if err := decodeProperties(name, properties, &cfg); err != nil {
		return nil, err
	}
	if cfg.Expected == "" {
		cfg.Expected = FrameReshaped
	}
	if cfg.Output == "" {
		cfg.Output = FrameReread
	}
	r, err := reader.NewParquetReaderWithConfig(name, reader.ParquetReaderConfig{
		StorageRef: cfg.StorageRef,
		Bucket:     cfg.Bucket,
		InputPath:  cfg.OutputPath,
	}, storageResolver, new(appModel.TemperatureRecord))
	if err != nil {
		return nil, err
	}
	return &ParquetVerifyTasklet{
		frameTasklet: frameTasklet{name: name, session: session},
		config:       cfg,
		reader:       r,
	}, nil
}

func (t *ParquetVerifyTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	expected, err := t.input(t.config.Expected)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	wantSchema, err := reader.SchemaOf(new(appModel.TemperatureRecord))
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(t.name, "failed to derive the TemperatureRecord schema", err, false, false)
	}

	if err := t.reader.Open(ctx, model.NewExecutionContext()); err != nil {
		return model.ExitStatusFailed, err
	}
	records, readErr := t.readAll(ctx)
	if err := t.reader.Close(ctx); err != nil && readErr == nil {
		readErr = err
	}
	if readErr != nil {
		return model.ExitStatusFailed, exception.NewBatchError(t.name, "failed to read the Parquet output back", readErr, false, false)
	}

	gotSchema := t.reader.Schema()
	if !reader.SchemaEqual(gotSchema, wantSchema) {
		return model.ExitStatusFailed, exception.NewBatchErrorf(t.name, "schema read back %v differs from %v", gotSchema, wantSchema)
	}
	if len(records) != expected.Len() {
		return model.ExitStatusFailed, exception.NewBatchErrorf(t.name, "read back %d rows, frame '%s' has %d", len(records), t.config.Expected, expected.Len())
	}

	reread, err := FromRecords(records)
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(t.name, "failed to build the re-read frame", err, false, false)
	}
	if err := t.output(t.config.Output, reread); err != nil {
		return model.ExitStatusFailed, err
	}

	logger.Infof("%s verified %d rows in %d part files under '%s'.", t.name, len(records), len(t.reader.Files()), t.config.OutputPath)
	logger.Infof("First %d rows read back:\n%s", previewRows, dataframe.ShowString(reread, previewRows))

	stepExecution.ReadCount = len(records)
	t.put(ContextKeyVerifyRowCount, len(records))
	return model.ExitStatusCompleted, nil
}

func (t *ParquetVerifyTasklet) readAll(ctx context.Context) ([]appModel.TemperatureRecord, error) {
	var records []appModel.TemperatureRecord
	for {
		rec, err := t.reader.Read(ctx)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
}

var _ port.Tasklet = (*ParquetVerifyTasklet)(nil)
