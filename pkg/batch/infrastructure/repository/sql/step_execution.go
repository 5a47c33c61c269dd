package sql

import (
	"context"
	"fmt"

	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/repository"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/exception"
)

// SaveStepExecution inserts a new StepExecution.
func (r *SQLJobRepository) SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	entity, err := fromDomainStepExecution(stepExecution)
	if err != nil {
		return err
	}
	if err := db.Create(entity).Error; err != nil {
		return exception.NewBatchError(module, fmt.Sprintf("Failed to save StepExecution (ID: %s)", stepExecution.ID), err, false, false)
	}
	return nil
}

// UpdateStepExecution writes stepExecution and increments its Version.
func (r *SQLJobRepository) UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	entity, err := fromDomainStepExecution(stepExecution)
	if err != nil {
		return err
	}
	entity.Version = stepExecution.Version + 1
	if err := updateVersioned(db, entity, entity.ID, stepExecution.Version, repository.ErrStepExecutionNotFound); err != nil {
		return err
	}
	stepExecution.Version = entity.Version
	return nil
}

// FindStepExecutionByID finds a StepExecution by its ID. JobExecution is left nil.
func (r *SQLJobRepository) FindStepExecutionByID(ctx context.Context, executionID string) (*model.StepExecution, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	var entity StepExecutionEntity
	if err := db.Where("id = ?", executionID).First(&entity).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, repository.ErrStepExecutionNotFound
		}
		return nil, exception.NewBatchError(module, fmt.Sprintf("Failed to find StepExecution (ID: %s)", executionID), err, false, true)
	}
	return toDomainStepExecution(&entity)
}

// FindStepExecutionsByJobExecutionID returns the steps of a job execution ordered by start time.
func (r *SQLJobRepository) FindStepExecutionsByJobExecutionID(ctx context.Context, jobExecutionID string) ([]*model.StepExecution, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	var rows []StepExecutionEntity
	if err := db.Where("job_execution_id = ?", jobExecutionID).Order("start_time").Find(&rows).Error; err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("Failed to find StepExecutions for JobExecution (ID: %s)", jobExecutionID), err, false, true)
	}
	out := make([]*model.StepExecution, 0, len(rows))
	for i := range rows {
		se, err := toDomainStepExecution(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, se)
	}
	return out, nil
}
