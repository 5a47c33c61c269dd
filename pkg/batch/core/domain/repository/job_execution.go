package repository

import (
	"context"

	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
)

// JobExecution persists JobExecutions.
type JobExecution interface {
	SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error
	// UpdateJobExecution returns ErrJobExecutionNotFound when the execution was never saved.
	UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error
	FindJobExecutionByID(ctx context.Context, executionID string) (*model.JobExecution, error)
	// FindJobExecutionsByJobInstance returns the executions of instance ordered by start time.
	FindJobExecutionsByJobInstance(ctx context.Context, instance *model.JobInstance) ([]*model.JobExecution, error)
}
