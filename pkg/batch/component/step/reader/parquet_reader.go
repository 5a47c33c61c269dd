package reader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/schema"

	"github.com/tigerroll/temperature-etl/pkg/batch/adapter/storage"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/application/port"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

// ContextKeyReadCount is the ExecutionContext key holding the number of items read.
const ContextKeyReadCount = "parquetReader.readCount"

// ParquetReaderConfig holds the configuration for ParquetReader.
type ParquetReaderConfig struct {
	// StorageRef is the name of the storage connection to read from.
	StorageRef string `mapstructure:"storageRef"`
	// Bucket overrides the bucket of the storage connection. Empty uses the connection default.
	Bucket string `mapstructure:"bucket"`
	// InputPath is the directory holding the part files.
	InputPath string `mapstructure:"inputPath"`
	// Parallelism is the number of goroutines parquet-go uses to decode a file.
	Parallelism int64 `mapstructure:"parallelism"`
}

// ColumnSchema describes one leaf column of a Parquet file.
type ColumnSchema struct {
	Name       string
	Type       string
	Repetition string
	Converted  string
}

func (c ColumnSchema) String() string {
	if c.Converted != "" {
		return fmt.Sprintf("%s %s (%s) %s", c.Name, c.Type, c.Converted, c.Repetition)
	}
	return fmt.Sprintf("%s %s %s", c.Name, c.Type, c.Repetition)
}

// ParquetReader implements port.ItemReader over every part file of a Parquet directory.
// Files are read in lexical order. Names starting with "_" or "." are skipped.
type ParquetReader[T any] struct {
	name                      string
	config                    ParquetReaderConfig
	storageConnectionResolver storage.StorageConnectionResolver
	itemPrototype             *T

	storageConn          storage.StorageConnection
	files                []string
	nextFile             int
	current              []T
	pos                  int
	readCount            int64
	schema               []ColumnSchema
	stepExecutionContext model.ExecutionContext
}

// NewParquetReader creates a ParquetReader from JSL-style properties.
func NewParquetReader[T any](
	name string,
	properties map[string]interface{},
	storageConnectionResolver storage.StorageConnectionResolver,
	itemPrototype *T,
) (*ParquetReader[T], error) {
	var config ParquetReaderConfig
	if err := mapstructure.Decode(properties, &config); err != nil {
		return nil, exception.NewBatchError("reader", fmt.Sprintf("failed to decode ParquetReader properties for '%s'", name), err, false, false)
	}
	return NewParquetReaderWithConfig(name, config, storageConnectionResolver, itemPrototype)
}

// NewParquetReaderWithConfig validates config and creates a ParquetReader.
func NewParquetReaderWithConfig[T any](
	name string,
	config ParquetReaderConfig,
	storageConnectionResolver storage.StorageConnectionResolver,
	itemPrototype *T,
) (*ParquetReader[T], error) {
	if config.StorageRef == "" {
		return nil, exception.NewBatchErrorf("reader", "ParquetReader '%s' requires 'storageRef' property", name)
	}
	if config.InputPath == "" {
		return nil, exception.NewBatchErrorf("reader", "ParquetReader '%s' requires 'inputPath' property", name)
	}
	if itemPrototype == nil {
		return nil, exception.NewBatchErrorf("reader", "ParquetReader '%s' requires an item prototype", name)
	}
	if config.Parallelism <= 0 {
		config.Parallelism = 1
	}
	config.InputPath = strings.Trim(config.InputPath, "/")

	return &ParquetReader[T]{
		name:                      name,
		config:                    config,
		storageConnectionResolver: storageConnectionResolver,
		itemPrototype:             itemPrototype,
	}, nil
}

// Open resolves the storage connection and lists the part files. A directory without
// part files is an error.
func (r *ParquetReader[T]) Open(ctx context.Context, ec model.ExecutionContext) error {
	conn, err := r.storageConnectionResolver.ResolveStorageConnection(ctx, r.config.StorageRef)
	if err != nil {
		return exception.NewBatchError("reader", fmt.Sprintf("failed to resolve storage connection '%s' for ParquetReader '%s'", r.config.StorageRef, r.name), err, false, false)
	}
	r.storageConn = conn

	var files []string
	err = conn.ListObjects(ctx, r.config.Bucket, r.config.InputPath+"/", func(objectName string) error {
		base := path.Base(objectName)
		if strings.HasPrefix(base, "_") || strings.HasPrefix(base, ".") || !strings.HasSuffix(base, ".parquet") {
			return nil
		}
		files = append(files, objectName)
		return nil
	})
	if err != nil {
		return exception.NewBatchError("reader", fmt.Sprintf("ParquetReader '%s' failed to list '%s'", r.name, r.config.InputPath), err, false, false)
	}
	if len(files) == 0 {
		return exception.NewBatchErrorf("reader", "ParquetReader '%s': no Parquet part files under '%s'", r.name, r.config.InputPath)
	}

	if ec == nil {
		ec = model.NewExecutionContext()
	}
	r.stepExecutionContext = ec
	r.files = files
	r.nextFile = 0
	r.current = nil
	r.pos = 0
	r.readCount = 0
	r.schema = nil

	logger.Infof("ParquetReader '%s' opened %d part files under '%s'.", r.name, len(files), r.config.InputPath)
	return nil
}

// Read returns the next item, or io.EOF once every file is exhausted.
func (r *ParquetReader[T]) Read(ctx context.Context) (T, error) {
	var zero T
	if r.storageConn == nil {
		return zero, exception.NewBatchErrorf("reader", "ParquetReader '%s' is not open", r.name)
	}
	for r.pos >= len(r.current) {
		if r.nextFile >= len(r.files) {
			return zero, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		items, err := r.readFile(ctx, r.files[r.nextFile])
		if err != nil {
			return zero, err
		}
		r.nextFile++
		r.current = items
		r.pos = 0
	}
	item := r.current[r.pos]
	r.pos++
	r.readCount++
	return item, nil
}

// readFile stages objectName in a temporary file and decodes all of its rows.
func (r *ParquetReader[T]) readFile(ctx context.Context, objectName string) ([]T, error) {
	tmpPath, err := r.download(ctx, objectName)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmpPath)

	pf, err := local.NewLocalFileReader(tmpPath)
	if err != nil {
		return nil, exception.NewBatchError("reader", fmt.Sprintf("ParquetReader '%s' failed to open '%s'", r.name, objectName), err, false, false)
	}
	defer pf.Close()

	pr, err := reader.NewParquetReader(pf, r.itemPrototype, r.config.Parallelism)
	if err != nil {
		return nil, exception.NewBatchError("reader", fmt.Sprintf("ParquetReader '%s' failed to read footer of '%s'", r.name, objectName), err, false, false)
	}
	defer pr.ReadStop()

	fileSchema := columnsOf(pr.Footer.Schema)
	if r.schema == nil {
		r.schema = fileSchema
	} else if !SchemaEqual(r.schema, fileSchema) {
		return nil, exception.NewBatchErrorf("reader", "ParquetReader '%s': schema of '%s' differs from the first part file", r.name, objectName)
	}

	num := int(pr.GetNumRows())
	items := make([]T, num)
	if num > 0 {
		if err := pr.Read(&items); err != nil {
			return nil, exception.NewBatchError("reader", fmt.Sprintf("ParquetReader '%s' failed to decode '%s'", r.name, objectName), err, false, false)
		}
	}
	logger.Debugf("ParquetReader '%s': read %d rows from %s.", r.name, num, objectName)
	return items, nil
}

func (r *ParquetReader[T]) download(ctx context.Context, objectName string) (string, error) {
	rc, err := r.storageConn.Download(ctx, r.config.Bucket, objectName)
	if err != nil {
		return "", exception.NewBatchError("reader", fmt.Sprintf("ParquetReader '%s' failed to download '%s'", r.name, objectName), err, false, false)
	}
	defer rc.Close()

	tmp, err := os.CreateTemp("", "parquet-reader-*.parquet")
	if err != nil {
		return "", exception.NewBatchError("reader", fmt.Sprintf("ParquetReader '%s' failed to create a temporary file", r.name), err, false, false)
	}
	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", exception.NewBatchError("reader", fmt.Sprintf("ParquetReader '%s' failed to stage '%s'", r.name, objectName), err, false, false)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", exception.NewBatchError("reader", fmt.Sprintf("ParquetReader '%s' failed to stage '%s'", r.name, objectName), err, false, false)
	}
	return tmp.Name(), nil
}

// Close releases the reader and records the read count. The storage connection stays
// owned by its resolver.
func (r *ParquetReader[T]) Close(ctx context.Context) error {
	if r.storageConn == nil {
		return nil
	}
	r.stepExecutionContext.Put(ContextKeyReadCount, r.readCount)
	logger.Infof("ParquetReader '%s' closed after reading %d rows from %d files.", r.name, r.readCount, r.nextFile)
	r.storageConn = nil
	r.current = nil
	return nil
}

// Files returns the part files found by Open.
func (r *ParquetReader[T]) Files() []string {
	return append([]string(nil), r.files...)
}

// Schema returns the leaf columns of the files decoded so far, or nil before the first Read.
func (r *ParquetReader[T]) Schema() []ColumnSchema {
	return append([]ColumnSchema(nil), r.schema...)
}

// GetExecutionContext returns the context passed to Open.
func (r *ParquetReader[T]) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return r.stepExecutionContext, nil
}

// SchemaOf returns the Parquet columns derived from the struct tags of prototype.
func SchemaOf(prototype interface{}) ([]ColumnSchema, error) {
	sh, err := schema.NewSchemaHandlerFromStruct(prototype)
	if err != nil {
		return nil, fmt.Errorf("failed to derive Parquet schema: %w", err)
	}
	return columnsOf(sh.SchemaElements), nil
}

// SchemaEqual reports whether a and b have the same columns in the same order.
func SchemaEqual(a, b []ColumnSchema) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// columnsOf skips the root element.
func columnsOf(elements []*parquet.SchemaElement) []ColumnSchema {
	if len(elements) <= 1 {
		return nil
	}
	columns := make([]ColumnSchema, 0, len(elements)-1)
	for _, el := range elements[1:] {
		c := ColumnSchema{Name: el.GetName()}
		if el.Type != nil {
			c.Type = el.GetType().String()
		}
		if el.RepetitionType != nil {
			c.Repetition = el.GetRepetitionType().String()
		}
		if el.ConvertedType != nil {
			c.Converted = el.GetConvertedType().String()
		}
		columns = append(columns, c)
	}
	return columns
}

var _ port.ItemReader[any] = (*ParquetReader[any])(nil)
