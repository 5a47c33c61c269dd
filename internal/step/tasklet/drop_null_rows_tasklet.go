package tasklet

import (
	"context"

	"github.com/tigerroll/temperature-etl/pkg/batch/component/dataframe"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/application/port"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

const (
	// ContextKeyDroppedCount is the number of rows removed.
	ContextKeyDroppedCount = "dropNull.droppedCount"
	// ContextKeyCleanedRowCount is the number of rows kept.
	ContextKeyCleanedRowCount = "dropNull.rowCount"
)

// DropNullRowsConfig holds the properties of dropNullRowsTasklet. The checked columns are
// Columns when set, else every column starting with Prefix.
type DropNullRowsConfig struct {
	Prefix  string   `mapstructure:"prefix"`
	Columns []string `mapstructure:"columns"`
	How     string   `mapstructure:"how"`
	Input   string   `mapstructure:"input"`
	Output  string   `mapstructure:"output"`
}

// DropNullRowsTasklet removes rows whose measurement columns are null.
type DropNullRowsTasklet struct {
	frameTasklet
	config DropNullRowsConfig
	how    dataframe.How
}

// NewDropNullRowsTasklet decodes properties and applies defaults.
func NewDropNullRowsTasklet(properties map[string]interface{}, session *dataframe.Session) (*DropNullRowsTasklet, error) {
	const name = "dropNullRowsTasklet"
	var cfg DropNullRowsConfig
	if err := decodeProperties(name, properties, &cfg); err != nil {
		return nil, err
	}
	if cfg.Prefix == "" && len(cfg.Columns) == 0 {
		return nil, exception.NewBatchErrorf(name, "one of 'prefix' or 'columns' is required")
	}
	if cfg.How == "" {
		cfg.How = "all"
	}
	how, err := dataframe.ParseHow(cfg.How)
	if err != nil {
		return nil, exception.NewBatchError(name, "invalid 'how'", err, false, false)
	}
	if cfg.Input == "" {
		cfg.Input = FrameFilled
	}
	if cfg.Output == "" {
		cfg.Output = FrameCleaned
	}
	return &DropNullRowsTasklet{frameTasklet: frameTasklet{name: name, session: session}, config: cfg, how: how}, nil
}

func (t *DropNullRowsTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	in, err := t.input(t.config.Input)
	if err != nil {
		return model.ExitStatusFailed, err
	}

	subset := t.config.Columns
	if len(subset) == 0 {
		subset = dataframe.ColumnsWithPrefix(in, t.config.Prefix)
		if len(subset) == 0 {
			return model.ExitStatusFailed, exception.NewBatchErrorf(t.name, "no column of '%s' starts with '%s'", t.config.Input, t.config.Prefix)
		}
	}

	out, err := dataframe.DropNA(in, subset, t.how)
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(t.name, "dropna failed", err, false, false)
	}
	if err := t.output(t.config.Output, out); err != nil {
		return model.ExitStatusFailed, err
	}

	dropped := in.Len() - out.Len()
	logger.Infof("%s dropped %d of %d rows (how=%s over %d columns).", t.name, dropped, in.Len(), t.how, len(subset))
	stepExecution.ReadCount = in.Len()
	stepExecution.WriteCount = out.Len()
	stepExecution.FilterCount = dropped
	t.put(ContextKeyDroppedCount, dropped)
	t.put(ContextKeyCleanedRowCount, out.Len())
	return model.ExitStatusCompleted, nil
}

var _ port.Tasklet = (*DropNullRowsTasklet)(nil)
