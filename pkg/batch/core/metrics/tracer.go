package metrics

import (
	"context"

	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
)

// Tracer creates spans around job and step executions.
type Tracer interface {
	// StartJobSpan starts a span for the job and returns the derived context and a function ending it.
	StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func())
	// StartStepSpan starts a child span for the step.
	StartStepSpan(ctx context.Context, execution *model.StepExecution) (context.Context, func())
	// RecordError attaches err to the span carried by ctx.
	RecordError(ctx context.Context, module string, err error)
	// RecordEvent adds a named event to the span carried by ctx.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
