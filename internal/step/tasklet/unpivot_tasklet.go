package tasklet

import (
	"context"
	"fmt"

	"github.com/tigerroll/temperature-etl/pkg/batch/component/dataframe"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/application/port"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

// ContextKeyUnpivotRowCount is the number of long-format rows produced.
const ContextKeyUnpivotRowCount = "unpivot.rowCount"

// UnpivotConfig holds the properties of unpivotTasklet.
type UnpivotConfig struct {
	IDColumns   []string `mapstructure:"idColumns"`
	Prefix      string   `mapstructure:"prefix"`
	FirstYear   int      `mapstructure:"firstYear"`
	LastYear    int      `mapstructure:"lastYear"`
	NameColumn  string   `mapstructure:"nameColumn"`
	ValueColumn string   `mapstructure:"valueColumn"`
	Input       string   `mapstructure:"input"`
	Output      string   `mapstructure:"output"`
}

// UnpivotTasklet reshapes the year columns into (Year, Temperature) rows. Year labels are
// parsed strictly: a label other than F followed by four digits fails the step.
type UnpivotTasklet struct {
	frameTasklet
	config       UnpivotConfig
	valueColumns []string
}

// NewUnpivotTasklet decodes properties and applies defaults.
func NewUnpivotTasklet(properties map[string]interface{}, session *dataframe.Session) (*UnpivotTasklet, error) {
	const name = "unpivotTasklet"
	var cfg UnpivotConfig
	if err := decodeProperties(name, properties, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.IDColumns) == 0 {
		return nil, exception.NewBatchErrorf(name, "'idColumns' is required")
	}
	if cfg.FirstYear <= 0 || cfg.LastYear < cfg.FirstYear {
		return nil, exception.NewBatchErrorf(name, "invalid year range %d..%d", cfg.FirstYear, cfg.LastYear)
	}
	if cfg.Prefix == "" {
		cfg.Prefix = dataframe.YearLabelPrefix
	}
	if cfg.Prefix != dataframe.YearLabelPrefix {
		return nil, exception.NewBatchErrorf(name, "unsupported prefix '%s': year columns are labelled '%s<year>'", cfg.Prefix, dataframe.YearLabelPrefix)
	}
	if cfg.NameColumn == "" {
		cfg.NameColumn = "Year"
	}
	if cfg.ValueColumn == "" {
		cfg.ValueColumn = "Temperature"
	}
	if cfg.Input == "" {
		cfg.Input = FrameCleaned
	}
	if cfg.Output == "" {
		cfg.Output = FrameReshaped
	}

	valueColumns := make([]string, 0, cfg.LastYear-cfg.FirstYear+1)
	for year := cfg.FirstYear; year <= cfg.LastYear; year++ {
		valueColumns = append(valueColumns, dataframe.YearLabel(cfg.Prefix, year))
	}
	return &UnpivotTasklet{
		frameTasklet: frameTasklet{name: name, session: session},
		config:       cfg,
		valueColumns: valueColumns,
	}, nil
}

func (t *UnpivotTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	in, err := t.input(t.config.Input)
	if err != nil {
		return model.ExitStatusFailed, err
	}

	out, err := Reshape(in, t.config.IDColumns, t.valueColumns, t.config.NameColumn, t.config.ValueColumn)
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(t.name, "reshape failed", err, false, false)
	}
	if want := in.Len() * len(t.valueColumns); out.Len() != want {
		return model.ExitStatusFailed, exception.NewBatchErrorf(t.name, "reshape produced %d rows, expected %d x %d = %d", out.Len(), in.Len(), len(t.valueColumns), want)
	}
	if err := t.output(t.config.Output, out); err != nil {
		return model.ExitStatusFailed, err
	}

	logger.Infof("%s reshaped %d rows into %d rows over %d year columns.", t.name, in.Len(), out.Len(), len(t.valueColumns))
	logger.Infof("First %d rows:\n%s", previewRows, dataframe.ShowString(out, previewRows))
	logger.Infof("Last %d rows:\n%s", previewRows, dataframe.ShowString(out.Tail(previewRows), previewRows))

	stepExecution.ReadCount = in.Len()
	stepExecution.WriteCount = out.Len()
	t.put(ContextKeyUnpivotRowCount, out.Len())
	return model.ExitStatusCompleted, nil
}

// Reshape unpivots valueColumns into (nameColumn, valueColumn), parses the name column
// with dataframe.ParseYearLabel into Int, and casts the value column to Double.
func Reshape(in *dataframe.Frame, idColumns, valueColumns []string, nameColumn, valueColumn string) (*dataframe.Frame, error) {
	long, err := dataframe.Unpivot(in, dataframe.UnpivotSpec{
		IDColumns:    idColumns,
		ValueColumns: valueColumns,
		NameColumn:   nameColumn,
		ValueColumn:  valueColumn,
	})
	if err != nil {
		return nil, err
	}
	long, err = dataframe.WithColumn(long, nameColumn, dataframe.Int, func(v dataframe.Value) (dataframe.Value, error) {
		label, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %v", dataframe.ErrInvalidYearLabel, v)
		}
		year, err := dataframe.ParseYearLabel(label)
		if err != nil {
			return nil, err
		}
		return int64(year), nil
	})
	if err != nil {
		return nil, err
	}
	return dataframe.Cast(long, valueColumn, dataframe.Double)
}

var _ port.Tasklet = (*UnpivotTasklet)(nil)
