package tasklet

import (
	"context"

	"github.com/tigerroll/temperature-etl/pkg/batch/component/dataframe"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/application/port"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

// ContextKeyFilledCount is the number of null cells replaced.
const ContextKeyFilledCount = "fillMissing.filledCount"

// FillMissingConfig holds the properties of fillMissingTasklet.
type FillMissingConfig struct {
	Column string `mapstructure:"column"`
	Value  string `mapstructure:"value"`
	Input  string `mapstructure:"input"`
	Output string `mapstructure:"output"`
}

// FillMissingTasklet replaces nulls of one categorical column with a sentinel string.
// No other column is touched.
type FillMissingTasklet struct {
	frameTasklet
	config FillMissingConfig
}

// NewFillMissingTasklet decodes properties and applies defaults.
func NewFillMissingTasklet(properties map[string]interface{}, session *dataframe.Session) (*FillMissingTasklet, error) {
	const name = "fillMissingTasklet"
	var cfg FillMissingConfig
	if err := decodeProperties(name, properties, &cfg); err != nil {
		return nil, err
	}
	if cfg.Column == "" {
		return nil, exception.NewBatchErrorf(name, "'column' is required")
	}
	if cfg.Input == "" {
		cfg.Input = FrameRaw
	}
	if cfg.Output == "" {
		cfg.Output = FrameFilled
	}
	return &FillMissingTasklet{frameTasklet: frameTasklet{name: name, session: session}, config: cfg}, nil
}

func (t *FillMissingTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	in, err := t.input(t.config.Input)
	if err != nil {
		return model.ExitStatusFailed, err
	}

	nulls := 0
	if values, err := in.Column(t.config.Column); err == nil {
		for _, v := range values {
			if v == nil {
				nulls++
			}
		}
	} else {
		logger.Warnf("%s: column '%s' not found; frame passed through unchanged.", t.name, t.config.Column)
	}

	out, err := dataframe.FillNA(in, map[string]dataframe.Value{t.config.Column: t.config.Value})
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(t.name, "fillna failed", err, false, false)
	}
	if err := t.output(t.config.Output, out); err != nil {
		return model.ExitStatusFailed, err
	}

	logger.Infof("%s replaced %d null values of '%s' with '%s'.", t.name, nulls, t.config.Column, t.config.Value)
	stepExecution.ReadCount = in.Len()
	stepExecution.WriteCount = out.Len()
	t.put(ContextKeyFilledCount, nulls)
	return model.ExitStatusCompleted, nil
}

var _ port.Tasklet = (*FillMissingTasklet)(nil)
