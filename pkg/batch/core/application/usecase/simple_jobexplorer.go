package usecase

import (
	"context"
	"fmt"

	model "github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/temperature-etl/pkg/batch/core/domain/repository"
	exception "github.com/tigerroll/temperature-etl/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

// SimpleJobExplorer is a simple implementation of the JobExplorer interface.
// It queries batch metadata using a JobRepository.
type SimpleJobExplorer struct {
	jobRepository repository.JobRepository
}

// Verify that SimpleJobExplorer implements the JobExplorer interface.
var _ JobExplorer = (*SimpleJobExplorer)(nil)

// NewSimpleJobExplorer creates a new instance of SimpleJobExplorer.
func NewSimpleJobExplorer(jobRepository repository.JobRepository) *SimpleJobExplorer {
	return &SimpleJobExplorer{
		jobRepository: jobRepository,
	}
}

// GetJobExecution retrieves a JobExecution by its ID.
func (e *SimpleJobExplorer) GetJobExecution(ctx context.Context, executionID string) (*model.JobExecution, error) {
	jobExecution, err := e.jobRepository.FindJobExecutionByID(ctx, executionID)
	if err != nil {
		return nil, exception.NewBatchError("job_explorer", fmt.Sprintf("Failed to retrieve JobExecution (ID: %s)", executionID), err, false, false)
	}
	logger.Debugf("Retrieved JobExecution (ID: %s) from JobRepository.", executionID)
	return jobExecution, nil
}

// GetJobExecutions retrieves all JobExecutions associated with the specified JobInstance.
func (e *SimpleJobExplorer) GetJobExecutions(ctx context.Context, instanceID string) ([]*model.JobExecution, error) {
	jobInstance, err := e.jobRepository.FindJobInstanceByID(ctx, instanceID)
	if err != nil {
		return nil, exception.NewBatchError("job_explorer", fmt.Sprintf("Failed to retrieve JobInstance (ID: %s)", instanceID), err, false, false)
	}

	jobExecutions, err := e.jobRepository.FindJobExecutionsByJobInstance(ctx, jobInstance)
	if err != nil {
		return nil, exception.NewBatchError("job_explorer", fmt.Sprintf("Failed to retrieve JobExecutions associated with JobInstance (ID: %s)", instanceID), err, false, false)
	}
	logger.Debugf("Retrieved %d JobExecutions associated with JobInstance (ID: %s).", len(jobExecutions), instanceID)
	return jobExecutions, nil
}

// GetStepExecutions retrieves the StepExecutions of a JobExecution.
func (e *SimpleJobExplorer) GetStepExecutions(ctx context.Context, executionID string) ([]*model.StepExecution, error) {
	stepExecutions, err := e.jobRepository.FindStepExecutionsByJobExecutionID(ctx, executionID)
	if err != nil {
		return nil, exception.NewBatchError("job_explorer", fmt.Sprintf("Failed to retrieve StepExecutions of JobExecution (ID: %s)", executionID), err, false, false)
	}
	return stepExecutions, nil
}

// GetJobNames retrieves all job names known to the repository.
func (e *SimpleJobExplorer) GetJobNames(ctx context.Context) ([]string, error) {
	names, err := e.jobRepository.GetJobNames(ctx)
	if err != nil {
		return nil, exception.NewBatchError("job_explorer", "Failed to retrieve job names", err, false, false)
	}
	return names, nil
}
