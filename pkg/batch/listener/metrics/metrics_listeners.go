package metrics

import (
	"context"

	port "github.com/tigerroll/temperature-etl/pkg/batch/core/application/port"
	model "github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/metrics"
)

// MetricsStepListener forwards step lifecycle events and the final item counts of each
// StepExecution to a MetricRecorder.
type MetricsStepListener struct {
	recorder metrics.MetricRecorder
}

func NewMetricsStepListener(recorder metrics.MetricRecorder) *MetricsStepListener {
	return &MetricsStepListener{recorder: recorder}
}

func (l *MetricsStepListener) BeforeStep(ctx context.Context, stepExecution *model.StepExecution) {
	l.recorder.RecordStepStart(ctx, stepExecution)
}

// AfterStep records the step end. The counts are totals for one execution, added once.
func (l *MetricsStepListener) AfterStep(ctx context.Context, stepExecution *model.StepExecution) {
	l.recorder.RecordStepEnd(ctx, stepExecution)
	if stepExecution.ReadCount > 0 {
		l.recorder.RecordItemRead(ctx, stepExecution.StepName, stepExecution.ReadCount)
	}
	if stepExecution.WriteCount > 0 {
		l.recorder.RecordItemWrite(ctx, stepExecution.StepName, stepExecution.WriteCount)
	}
	if stepExecution.FilterCount > 0 {
		l.recorder.RecordItemFilter(ctx, stepExecution.StepName, stepExecution.FilterCount)
	}
}

var _ port.StepExecutionListener = (*MetricsStepListener)(nil)
