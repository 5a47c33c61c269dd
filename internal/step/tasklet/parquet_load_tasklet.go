package tasklet

import (
	"context"
	"time"

	appModel "github.com/tigerroll/temperature-etl/internal/domain/model"
	"github.com/tigerroll/temperature-etl/pkg/batch/adapter/storage"
	"github.com/tigerroll/temperature-etl/pkg/batch/component/dataframe"
	"github.com/tigerroll/temperature-etl/pkg/batch/component/step/writer"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/application/port"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/metrics"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

const (
	// ContextKeyLoadRowCount is the number of rows written.
	ContextKeyLoadRowCount = "load.rowCount"
	// ContextKeyLoadFiles lists the part files written.
	ContextKeyLoadFiles = "load.files"
)

// writeBatchSize bounds the items handed to the writer per Write call.
const writeBatchSize = 10000

// ParquetLoadConfig holds the properties of parquetLoadTasklet.
type ParquetLoadConfig struct {
	StorageRef     string `mapstructure:"storageRef"`
	Bucket         string `mapstructure:"bucket"`
	OutputPath     string `mapstructure:"outputPath"`
	SaveMode       string `mapstructure:"saveMode"`
	Compression    string `mapstructure:"compression"`
	MaxRowsPerFile int    `mapstructure:"maxRowsPerFile"`
	Parallelism    int64  `mapstructure:"parallelism"`
	Input          string `mapstructure:"input"`
}

// ParquetLoadTasklet writes the reshaped frame as TemperatureRecord Parquet part files.
type ParquetLoadTasklet struct {
	frameTasklet
	config   ParquetLoadConfig
	writer   *writer.ParquetWriter[appModel.TemperatureRecord]
	recorder metrics.MetricRecorder
}

// NewParquetLoadTasklet decodes properties and creates the Parquet writer.
func NewParquetLoadTasklet(
	properties map[string]interface{},
	session *dataframe.Session,
	storageResolver storage.StorageConnectionResolver,
	recorder metrics.MetricRecorder,
) (*ParquetLoadTasklet, error) {
	const name = "parquetLoadTasklet"
	var cfg ParquetLoadConfig
	if err := decodeProperties(name, properties, &cfg); err != nil {
		return nil, err
	}
	if cfg.Input == "" {
		cfg.Input = FrameReshaped
	}
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	w, err := writer.NewParquetWriterWithConfig(name, writer.ParquetWriterConfig{
		StorageRef:      cfg.StorageRef,
		Bucket:          cfg.Bucket,
		OutputPath:      cfg.OutputPath,
		CompressionType: cfg.Compression,
		SaveMode:        cfg.SaveMode,
		MaxRowsPerFile:  cfg.MaxRowsPerFile,
		Parallelism:     cfg.Parallelism,
	}, storageResolver, new(appModel.TemperatureRecord))
	if err != nil {
		return nil, err
	}
	return &ParquetLoadTasklet{
		frameTasklet: frameTasklet{name: name, session: session},
		config:       cfg,
		writer:       w,
		recorder:     recorder,
	}, nil
}

// Execute writes every row of the input frame. The _SUCCESS marker is only written when
// every part file was uploaded.
func (t *ParquetLoadTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	in, err := t.input(t.config.Input)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	records, err := ToRecords(in)
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(t.name, "failed to map rows to TemperatureRecord", err, false, false)
	}

	start := time.Now()
	if err := t.writer.Open(ctx, model.NewExecutionContext()); err != nil {
		return model.ExitStatusFailed, err
	}
	defer t.writer.Abort(ctx)
	for lo := 0; lo < len(records); lo += writeBatchSize {
		if err := ctx.Err(); err != nil {
			return model.ExitStatusFailed, err
		}
		hi := lo + writeBatchSize
		if hi > len(records) {
			hi = len(records)
		}
		if err := t.writer.Write(ctx, records[lo:hi]); err != nil {
			return model.ExitStatusFailed, err
		}
	}
	if err := t.writer.Close(ctx); err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(t.name, "failed to finish Parquet output", err, false, false)
	}

	files := t.writer.Files()
	t.recorder.RecordBytesWritten(ctx, stepExecution.StepName, t.writer.BytesWritten())
	t.recorder.RecordDuration(ctx, "parquet.load", time.Since(start), map[string]string{"outputPath": t.config.OutputPath})
	logger.Infof("%s wrote %d rows to %d part files under '%s'.", t.name, t.writer.RowCount(), len(files), t.config.OutputPath)

	stepExecution.ReadCount = in.Len()
	stepExecution.WriteCount = int(t.writer.RowCount())
	t.put(ContextKeyLoadRowCount, int(t.writer.RowCount()))
	t.put(ContextKeyLoadFiles, files)
	return model.ExitStatusCompleted, nil
}

var _ port.Tasklet = (*ParquetLoadTasklet)(nil)
