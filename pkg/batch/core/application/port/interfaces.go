// Package port defines the interfaces through which jobs, steps, tasklets, item readers and
// writers, and execution listeners interact.
package port

import (
	"context"

	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/metrics"
)

// Job is a runnable flow of steps.
type Job interface {
	// Run executes the job flow, updating jobExecution as it progresses.
	// It returns the error that failed the job, if any.
	Run(ctx context.Context, jobExecution *model.JobExecution, jobParameters model.JobParameters) error
	// JobName returns the logical job name.
	JobName() string
	// ID returns the JSL job id.
	ID() string
	// GetFlow returns the flow the job executes.
	GetFlow() *model.FlowDefinition
	// ValidateParameters rejects parameters the job cannot run with.
	ValidateParameters(params model.JobParameters) error
}

// Step is a single unit of work within a job flow.
type Step interface {
	// Execute runs the step and records its outcome on stepExecution.
	Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) error
	StepName() string
	ID() string
	// GetExecutionContextPromotion returns the keys promoted to the job context, or nil.
	GetExecutionContextPromotion() *model.ExecutionContextPromotion
	SetMetricRecorder(recorder metrics.MetricRecorder)
	SetTracer(tracer metrics.Tracer)
}

// Tasklet is the body of a tasklet step: one call to Execute does all of the step's work.
type Tasklet interface {
	// Execute performs the work and returns the step's ExitStatus.
	Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error)
	// Close releases resources opened by Execute. It is called even when Execute fails.
	Close(ctx context.Context) error
	// SetExecutionContext hands the step ExecutionContext to the tasklet before Execute.
	SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error
	// GetExecutionContext returns the ExecutionContext to store on the step after Execute.
	GetExecutionContext(ctx context.Context) (model.ExecutionContext, error)
}

// ItemReader reads items one at a time. Read returns io.EOF when exhausted.
type ItemReader[O any] interface {
	Open(ctx context.Context, ec model.ExecutionContext) error
	Read(ctx context.Context) (O, error)
	Close(ctx context.Context) error
	GetExecutionContext(ctx context.Context) (model.ExecutionContext, error)
}

// ItemWriter writes batches of items. Output becomes durable on Close.
type ItemWriter[I any] interface {
	Open(ctx context.Context, ec model.ExecutionContext) error
	Write(ctx context.Context, items []I) error
	Close(ctx context.Context) error
	GetExecutionContext(ctx context.Context) (model.ExecutionContext, error)
}

// JobExecutionListener is notified around a job execution.
type JobExecutionListener interface {
	BeforeJob(ctx context.Context, jobExecution *model.JobExecution)
	AfterJob(ctx context.Context, jobExecution *model.JobExecution)
}

// StepExecutionListener is notified around each step execution.
type StepExecutionListener interface {
	BeforeStep(ctx context.Context, stepExecution *model.StepExecution)
	AfterStep(ctx context.Context, stepExecution *model.StepExecution)
}
