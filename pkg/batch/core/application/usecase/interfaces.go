package usecase

import (
	"context"

	model "github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
)

// JobLauncher is an interface for launching a Job with JobParameters.
type JobLauncher interface {
	// Launch runs the named Job with params to completion and returns its final JobExecution.
	// The error returned here indicates a failure of the launch itself, not of the job:
	// a job that ran and failed is reported through the JobExecution status.
	Launch(ctx context.Context, jobName string, params model.JobParameters) (*model.JobExecution, error)
}

// JobExplorer is an interface for querying batch metadata.
type JobExplorer interface {
	// GetJobExecution retrieves a JobExecution, with its StepExecutions, by its ID.
	GetJobExecution(ctx context.Context, executionID string) (*model.JobExecution, error)

	// GetJobExecutions retrieves all JobExecutions associated with the specified JobInstance.
	GetJobExecutions(ctx context.Context, instanceID string) ([]*model.JobExecution, error)

	// GetStepExecutions retrieves the StepExecutions of a JobExecution in start order.
	GetStepExecutions(ctx context.Context, executionID string) ([]*model.StepExecution, error)

	// GetJobNames retrieves all job names known to the repository.
	GetJobNames(ctx context.Context) ([]string, error)
}
