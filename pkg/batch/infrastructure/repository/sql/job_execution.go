package sql

import (
	"context"
	"fmt"

	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/repository"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/exception"
)

// SaveJobExecution inserts a new JobExecution.
func (r *SQLJobRepository) SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	entity, err := fromDomainJobExecution(jobExecution)
	if err != nil {
		return err
	}
	if err := db.Create(entity).Error; err != nil {
		return exception.NewBatchError(module, fmt.Sprintf("Failed to save JobExecution (ID: %s)", jobExecution.ID), err, false, false)
	}
	return nil
}

// UpdateJobExecution writes jobExecution and increments its Version.
func (r *SQLJobRepository) UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	entity, err := fromDomainJobExecution(jobExecution)
	if err != nil {
		return err
	}
	entity.Version = jobExecution.Version + 1
	if err := updateVersioned(db, entity, entity.ID, jobExecution.Version, repository.ErrJobExecutionNotFound); err != nil {
		return err
	}
	jobExecution.Version = entity.Version
	return nil
}

// FindJobExecutionByID finds a JobExecution and attaches its StepExecutions.
func (r *SQLJobRepository) FindJobExecutionByID(ctx context.Context, executionID string) (*model.JobExecution, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	var entity JobExecutionEntity
	if err := db.Where("id = ?", executionID).First(&entity).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, repository.ErrJobExecutionNotFound
		}
		return nil, exception.NewBatchError(module, fmt.Sprintf("Failed to find JobExecution (ID: %s)", executionID), err, false, true)
	}
	je, err := toDomainJobExecution(&entity)
	if err != nil {
		return nil, err
	}

	steps, err := r.FindStepExecutionsByJobExecutionID(ctx, executionID)
	if err != nil {
		return nil, err
	}
	for _, se := range steps {
		se.JobExecution = je
		je.AddStepExecution(se)
	}
	return je, nil
}

// FindJobExecutionsByJobInstance returns the executions of instance ordered by start time.
func (r *SQLJobRepository) FindJobExecutionsByJobInstance(ctx context.Context, instance *model.JobInstance) ([]*model.JobExecution, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	var rows []JobExecutionEntity
	if err := db.Where("job_instance_id = ?", instance.ID).Order("start_time").Find(&rows).Error; err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("Failed to find JobExecutions for JobInstance (ID: %s)", instance.ID), err, false, true)
	}
	out := make([]*model.JobExecution, 0, len(rows))
	for i := range rows {
		je, err := toDomainJobExecution(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, je)
	}
	return out, nil
}
