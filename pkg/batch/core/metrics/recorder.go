// Package metrics defines the recording and tracing ports used by jobs and steps.
// Implementations live in infrastructure/metrics; no-op versions are provided here.
package metrics

import (
	"context"
	"time"

	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
)

// MetricRecorder records counters and durations for job and step executions.
type MetricRecorder interface {
	// RecordJobStart is called once when a job execution starts.
	RecordJobStart(ctx context.Context, execution *model.JobExecution)
	// RecordJobEnd is called once when a job execution reaches a terminal status.
	RecordJobEnd(ctx context.Context, execution *model.JobExecution)
	// RecordStepStart is called when a step execution starts.
	RecordStepStart(ctx context.Context, execution *model.StepExecution)
	// RecordStepEnd is called when a step execution finishes.
	RecordStepEnd(ctx context.Context, execution *model.StepExecution)
	// RecordItemRead adds count to the rows read by stepName.
	RecordItemRead(ctx context.Context, stepName string, count int)
	// RecordItemWrite adds count to the rows written by stepName.
	RecordItemWrite(ctx context.Context, stepName string, count int)
	// RecordItemFilter adds count to the rows dropped by stepName.
	RecordItemFilter(ctx context.Context, stepName string, count int)
	// RecordBytesWritten adds n to the bytes uploaded to storage by stepName.
	RecordBytesWritten(ctx context.Context, stepName string, n int64)
	// RecordDuration records an arbitrary named duration.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}
