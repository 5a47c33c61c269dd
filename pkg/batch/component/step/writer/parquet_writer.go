package writer

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/temperature-etl/pkg/batch/adapter/storage"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/application/port"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

const (
	// SaveModeOverwrite deletes every object under the output path before writing.
	SaveModeOverwrite = "overwrite"
	// SaveModeErrorIfExists fails Open when the output path already holds objects.
	SaveModeErrorIfExists = "errorifexists"

	// SuccessMarker is written under the output path once every part file is uploaded.
	SuccessMarker = "_SUCCESS"

	// ExecutionContext keys published by the writer.
	ContextKeyRowCount = "parquetWriter.rowCount"
	ContextKeyFiles    = "parquetWriter.files"
)

// ParquetWriterConfig holds the configuration for ParquetWriter.
type ParquetWriterConfig struct {
	// StorageRef is the name of the storage connection to use (e.g., "local_output", "gcs_bucket").
	StorageRef string `mapstructure:"storageRef"`
	// Bucket overrides the bucket of the storage connection. Empty uses the connection default.
	Bucket string `mapstructure:"bucket"`
	// OutputPath is the directory, relative to the bucket, that receives the part files.
	OutputPath string `mapstructure:"outputPath"`
	// CompressionType is the compression codec ("SNAPPY", "GZIP", "NONE").
	CompressionType string `mapstructure:"compressionType"`
	// SaveMode is "overwrite" or "errorifexists".
	SaveMode string `mapstructure:"saveMode"`
	// MaxRowsPerFile rolls a new part file after this many rows. Zero writes a single part file.
	MaxRowsPerFile int `mapstructure:"maxRowsPerFile"`
	// Parallelism is the number of goroutines parquet-go uses to encode a row group.
	Parallelism int64 `mapstructure:"parallelism"`
}

// ParquetWriter implements port.ItemWriter by encoding items into Parquet part files and uploading
// them through a storage connection. The output directory follows the Spark layout:
// part-NNNNN-<run>-c000.<codec>.parquet files plus a trailing _SUCCESS marker.
type ParquetWriter[T any] struct {
	name                      string
	config                    ParquetWriterConfig
	codec                     parquet.CompressionCodec
	storageConnectionResolver storage.StorageConnectionResolver
	// itemPrototype is a pointer to a zero-value instance of the item type, used for schema reflection.
	itemPrototype *T

	storageConn          storage.StorageConnection
	runID                string
	buffered             []T
	files                []string
	rowCount             int64
	bytesWritten         int64
	stepExecutionContext model.ExecutionContext
}

// NewParquetWriter creates a ParquetWriter from JSL-style properties.
func NewParquetWriter[T any](
	name string,
	properties map[string]interface{},
	storageConnectionResolver storage.StorageConnectionResolver,
	itemPrototype *T,
) (*ParquetWriter[T], error) {
	var config ParquetWriterConfig
	if err := mapstructure.Decode(properties, &config); err != nil {
		return nil, exception.NewBatchError("writer", fmt.Sprintf("failed to decode ParquetWriter properties for '%s'", name), err, false, false)
	}
	return NewParquetWriterWithConfig(name, config, storageConnectionResolver, itemPrototype)
}

// NewParquetWriterWithConfig validates config, applies defaults and creates a ParquetWriter.
func NewParquetWriterWithConfig[T any](
	name string,
	config ParquetWriterConfig,
	storageConnectionResolver storage.StorageConnectionResolver,
	itemPrototype *T,
) (*ParquetWriter[T], error) {
	if config.StorageRef == "" {
		return nil, exception.NewBatchErrorf("writer", "ParquetWriter '%s' requires 'storageRef' property", name)
	}
	if config.OutputPath == "" {
		return nil, exception.NewBatchErrorf("writer", "ParquetWriter '%s' requires 'outputPath' property", name)
	}
	if config.MaxRowsPerFile < 0 {
		return nil, exception.NewBatchErrorf("writer", "ParquetWriter '%s': maxRowsPerFile must not be negative, got %d", name, config.MaxRowsPerFile)
	}
	if itemPrototype == nil {
		return nil, exception.NewBatchErrorf("writer", "ParquetWriter '%s' requires an item prototype", name)
	}

	if config.CompressionType == "" {
		config.CompressionType = "SNAPPY"
	}
	codec, err := getCompressionCodec(config.CompressionType)
	if err != nil {
		return nil, exception.NewBatchError("writer", fmt.Sprintf("invalid compression type for ParquetWriter '%s'", name), err, false, false)
	}

	config.SaveMode = strings.ToLower(config.SaveMode)
	switch config.SaveMode {
	case "":
		config.SaveMode = SaveModeOverwrite
	case SaveModeOverwrite, SaveModeErrorIfExists:
	default:
		return nil, exception.NewBatchErrorf("writer", "ParquetWriter '%s': unsupported saveMode '%s'", name, config.SaveMode)
	}

	if config.Parallelism <= 0 {
		config.Parallelism = 1
	}
	config.OutputPath = strings.Trim(config.OutputPath, "/")

	return &ParquetWriter[T]{
		name:                      name,
		config:                    config,
		codec:                     codec,
		storageConnectionResolver: storageConnectionResolver,
		itemPrototype:             itemPrototype,
	}, nil
}

// Open resolves the storage connection and applies the save mode to the output path.
func (w *ParquetWriter[T]) Open(ctx context.Context, ec model.ExecutionContext) error {
	logger.Debugf("ParquetWriter '%s' Open called.", w.name)

	conn, err := w.storageConnectionResolver.ResolveStorageConnection(ctx, w.config.StorageRef)
	if err != nil {
		return exception.NewBatchError("writer", fmt.Sprintf("failed to resolve storage connection '%s' for ParquetWriter '%s'", w.config.StorageRef, w.name), err, false, false)
	}
	w.storageConn = conn

	existing, err := w.listExisting(ctx)
	if err != nil {
		return err
	}
	switch w.config.SaveMode {
	case SaveModeErrorIfExists:
		if len(existing) > 0 {
			return exception.NewBatchErrorf("writer", "ParquetWriter '%s': output path '%s' already exists (%d objects)", w.name, w.config.OutputPath, len(existing))
		}
	case SaveModeOverwrite:
		for _, objectName := range existing {
			if err := w.storageConn.DeleteObject(ctx, w.config.Bucket, objectName); err != nil {
				return exception.NewBatchError("writer", fmt.Sprintf("ParquetWriter '%s' failed to delete '%s'", w.name, objectName), err, false, false)
			}
		}
		if len(existing) > 0 {
			logger.Infof("ParquetWriter '%s': overwrite mode removed %d existing objects under '%s'.", w.name, len(existing), w.config.OutputPath)
		}
	}

	if ec == nil {
		ec = model.NewExecutionContext()
	}
	w.stepExecutionContext = ec
	w.runID = model.NewID()
	w.buffered = nil
	w.files = nil
	w.rowCount = 0
	w.bytesWritten = 0

	logger.Infof("ParquetWriter '%s' opened. Storage: %s, output path: %s, compression: %s", w.name, w.config.StorageRef, w.config.OutputPath, w.config.CompressionType)
	return nil
}

func (w *ParquetWriter[T]) listExisting(ctx context.Context) ([]string, error) {
	var existing []string
	err := w.storageConn.ListObjects(ctx, w.config.Bucket, w.config.OutputPath+"/", func(objectName string) error {
		existing = append(existing, objectName)
		return nil
	})
	if err != nil {
		return nil, exception.NewBatchError("writer", fmt.Sprintf("ParquetWriter '%s' failed to list '%s'", w.name, w.config.OutputPath), err, false, false)
	}
	return existing, nil
}

// Write buffers items and uploads a part file every MaxRowsPerFile rows.
func (w *ParquetWriter[T]) Write(ctx context.Context, items []T) error {
	if w.storageConn == nil {
		return exception.NewBatchErrorf("writer", "ParquetWriter '%s' is not open", w.name)
	}
	for _, item := range items {
		w.buffered = append(w.buffered, item)
		if w.config.MaxRowsPerFile > 0 && len(w.buffered) >= w.config.MaxRowsPerFile {
			if err := w.flush(ctx); err != nil {
				return err
			}
		}
	}
	logger.Debugf("ParquetWriter '%s' buffered %d items. Pending: %d.", w.name, len(items), len(w.buffered))
	return nil
}

// Close uploads the pending part file and the _SUCCESS marker. An empty output still
// gets one part file so that the schema can be read back.
func (w *ParquetWriter[T]) Close(ctx context.Context) error {
	if w.storageConn == nil {
		return nil
	}
	defer func() { w.storageConn = nil }()

	var multiErr error
	if len(w.buffered) > 0 || len(w.files) == 0 {
		if err := w.flush(ctx); err != nil {
			multiErr = multierror.Append(multiErr, err)
		}
	}

	if multiErr == nil {
		markerName := path.Join(w.config.OutputPath, SuccessMarker)
		if err := w.storageConn.Upload(ctx, w.config.Bucket, markerName, bytes.NewReader(nil), "application/octet-stream"); err != nil {
			multiErr = multierror.Append(multiErr, exception.NewBatchError("writer", fmt.Sprintf("ParquetWriter '%s' failed to write '%s'", w.name, markerName), err, false, false))
		}
	}

	w.stepExecutionContext.Put(ContextKeyRowCount, w.rowCount)
	w.stepExecutionContext.Put(ContextKeyFiles, append([]string(nil), w.files...))

	if multiErr != nil {
		return multiErr
	}
	logger.Infof("ParquetWriter '%s' wrote %d rows in %d files (%s) to '%s'.",
		w.name, w.rowCount, len(w.files), humanize.Bytes(uint64(w.bytesWritten)), w.config.OutputPath)
	return nil
}

// Abort releases the writer without uploading buffered rows or the _SUCCESS marker. Part
// files already uploaded stay in place. Abort after Close, or on a writer that is not open,
// does nothing.
func (w *ParquetWriter[T]) Abort(ctx context.Context) {
	if w.storageConn == nil {
		return
	}
	logger.Warnf("ParquetWriter '%s' aborted with %d buffered rows; '%s' has no %s marker.", w.name, len(w.buffered), w.config.OutputPath, SuccessMarker)
	w.buffered = nil
	w.storageConn = nil
}

// flush encodes the buffered items into one part file and uploads it.
func (w *ParquetWriter[T]) flush(ctx context.Context) (err error) {
	items := w.buffered
	w.buffered = nil

	fileName := fmt.Sprintf("part-%05d-%s-c000%s.parquet", len(w.files), w.runID, codecExtension(w.codec))
	objectName := path.Join(w.config.OutputPath, fileName)

	buf := new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, w.itemPrototype, w.config.Parallelism)
	if err != nil {
		return exception.NewBatchError("writer", fmt.Sprintf("ParquetWriter '%s' failed to create Parquet writer for '%s'", w.name, fileName), err, false, false)
	}
	pw.CompressionType = w.codec

	for i, item := range items {
		if err := pw.Write(item); err != nil {
			return exception.NewBatchError("writer", fmt.Sprintf("ParquetWriter '%s' failed to encode row %d of '%s'", w.name, i, fileName), err, false, false)
		}
	}

	// parquet-go panics on some schema/value mismatches during WriteStop.
	func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("ParquetWriter '%s': recovered from panic during WriteStop: %v", w.name, r)
				err = exception.NewBatchError("writer", fmt.Sprintf("ParquetWriter '%s': Parquet writer panicked while finishing '%s'", w.name, fileName), fmt.Errorf("%v", r), false, false)
			}
		}()
		if stopErr := pw.WriteStop(); stopErr != nil {
			err = exception.NewBatchError("writer", fmt.Sprintf("ParquetWriter '%s' failed to finish '%s'", w.name, fileName), stopErr, false, false)
		}
	}()
	if err != nil {
		return err
	}

	size := int64(buf.Len())
	logger.Debugf("ParquetWriter '%s': uploading %s to %s/%s", w.name, humanize.Bytes(uint64(size)), w.config.StorageRef, objectName)
	if err := w.storageConn.Upload(ctx, w.config.Bucket, objectName, buf, "application/octet-stream"); err != nil {
		return exception.NewBatchError("writer", fmt.Sprintf("ParquetWriter '%s' failed to upload '%s'", w.name, objectName), err, false, false)
	}

	w.files = append(w.files, objectName)
	w.rowCount += int64(len(items))
	w.bytesWritten += size
	logger.Infof("ParquetWriter '%s': wrote %d rows to %s (%s).", w.name, len(items), objectName, humanize.Bytes(uint64(size)))
	return nil
}

// getCompressionCodec returns the Parquet compression codec from a string.
func getCompressionCodec(compressionType string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(compressionType) {
	case "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "UNCOMPRESSED":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}

func codecExtension(codec parquet.CompressionCodec) string {
	switch codec {
	case parquet.CompressionCodec_SNAPPY:
		return ".snappy"
	case parquet.CompressionCodec_GZIP:
		return ".gz"
	default:
		return ""
	}
}

// Files returns the object names of the part files written so far.
func (w *ParquetWriter[T]) Files() []string {
	return append([]string(nil), w.files...)
}

// RowCount returns the number of rows uploaded so far.
func (w *ParquetWriter[T]) RowCount() int64 {
	return w.rowCount
}

// BytesWritten returns the encoded size of the uploaded part files.
func (w *ParquetWriter[T]) BytesWritten() int64 {
	return w.bytesWritten
}

// GetExecutionContext returns the context passed to Open, with the writer's counters once closed.
func (w *ParquetWriter[T]) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return w.stepExecutionContext, nil
}

var _ port.ItemWriter[any] = (*ParquetWriter[any])(nil)
