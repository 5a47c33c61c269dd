package repository

import (
	"context"

	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
)

// StepExecution persists StepExecutions.
type StepExecution interface {
	SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error
	UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error
	FindStepExecutionByID(ctx context.Context, executionID string) (*model.StepExecution, error)
	// FindStepExecutionsByJobExecutionID returns the steps of one job execution ordered by start time.
	FindStepExecutionsByJobExecutionID(ctx context.Context, jobExecutionID string) ([]*model.StepExecution, error)
}
