package tasklet

import (
	"go.uber.org/fx"

	"github.com/tigerroll/temperature-etl/pkg/batch/adapter/storage"
	"github.com/tigerroll/temperature-etl/pkg/batch/component/dataframe"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/application/port"
	config "github.com/tigerroll/temperature-etl/pkg/batch/core/config"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/config/jsl"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/metrics"
)

// JSL reference names of the tasklets.
const (
	CSVExtractTaskletName    = "csvExtractTasklet"
	FillMissingTaskletName   = "fillMissingTasklet"
	DropNullRowsTaskletName  = "dropNullRowsTasklet"
	UnpivotTaskletName       = "unpivotTasklet"
	ParquetLoadTaskletName   = "parquetLoadTasklet"
	ParquetVerifyTaskletName = "parquetVerifyTasklet"
)

// BuilderParams defines the dependencies shared by the tasklet builders.
type BuilderParams struct {
	fx.In
	Session         *dataframe.Session
	StorageResolver storage.StorageConnectionResolver
	MetricRecorder  metrics.MetricRecorder
}

// Builders returns a jsl.ComponentBuilderEntry for every tasklet of the job.
func Builders(p BuilderParams) []jsl.ComponentBuilderEntry {
	return []jsl.ComponentBuilderEntry{
		{Name: CSVExtractTaskletName, Builder: func(cfg *config.Config, properties map[string]interface{}) (port.Tasklet, error) {
			return asTasklet(NewCSVExtractTasklet(properties, p.Session, p.StorageResolver))
		}},
		{Name: FillMissingTaskletName, Builder: func(cfg *config.Config, properties map[string]interface{}) (port.Tasklet, error) {
			return asTasklet(NewFillMissingTasklet(properties, p.Session))
		}},
		{Name: DropNullRowsTaskletName, Builder: func(cfg *config.Config, properties map[string]interface{}) (port.Tasklet, error) {
			return asTasklet(NewDropNullRowsTasklet(properties, p.Session))
		}},
		{Name: UnpivotTaskletName, Builder: func(cfg *config.Config, properties map[string]interface{}) (port.Tasklet, error) {
			return asTasklet(NewUnpivotTasklet(properties, p.Session))
		}},
		{Name: ParquetLoadTaskletName, Builder: func(cfg *config.Config, properties map[string]interface{}) (port.Tasklet, error) {
			return asTasklet(NewParquetLoadTasklet(properties, p.Session, p.StorageResolver, p.MetricRecorder))
		}},
		{Name: ParquetVerifyTaskletName, Builder: func(cfg *config.Config, properties map[string]interface{}) (port.Tasklet, error) {
			return asTasklet(NewParquetVerifyTasklet(properties, p.Session, p.StorageResolver))
		}},
	}
}

// asTasklet keeps a failed constructor from yielding a non-nil port.Tasklet.
func asTasklet[T port.Tasklet](t T, err error) (port.Tasklet, error) {
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Module contributes the tasklet builders to the `tasklet_builders` group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		Builders,
		fx.ResultTags(`group:"`+jsl.ComponentBuilderGroup+`,flatten"`),
	)),
)
