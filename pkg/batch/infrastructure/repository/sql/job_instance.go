package sql

import (
	"context"
	"fmt"

	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/repository"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/exception"
)

// SaveJobInstance inserts a new JobInstance.
func (r *SQLJobRepository) SaveJobInstance(ctx context.Context, instance *model.JobInstance) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	entity, err := fromDomainJobInstance(instance)
	if err != nil {
		return err
	}
	if err := db.Create(entity).Error; err != nil {
		return exception.NewBatchError(module, fmt.Sprintf("Failed to save JobInstance (ID: %s)", instance.ID), err, false, false)
	}
	return nil
}

// FindJobInstanceByID finds a JobInstance by its ID.
func (r *SQLJobRepository) FindJobInstanceByID(ctx context.Context, id string) (*model.JobInstance, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	var entity JobInstanceEntity
	if err := db.Where("id = ?", id).First(&entity).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, repository.ErrJobInstanceNotFound
		}
		return nil, exception.NewBatchError(module, fmt.Sprintf("Failed to find JobInstance (ID: %s)", id), err, false, true)
	}
	return toDomainJobInstance(&entity)
}

// FindJobInstanceByJobNameAndParameters matches on the job name and the parameters hash.
func (r *SQLJobRepository) FindJobInstanceByJobNameAndParameters(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error) {
	hash, err := params.Hash()
	if err != nil {
		return nil, exception.NewBatchError(module, "Failed to hash JobParameters", err, false, false)
	}
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	var entity JobInstanceEntity
	if err := db.Where("job_name = ? AND parameters_hash = ?", jobName, hash).First(&entity).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, repository.ErrJobInstanceNotFound
		}
		return nil, exception.NewBatchError(module, fmt.Sprintf("Failed to find JobInstance for job '%s'", jobName), err, false, true)
	}
	return toDomainJobInstance(&entity)
}

// GetJobNames returns the distinct job names, sorted.
func (r *SQLJobRepository) GetJobNames(ctx context.Context) ([]string, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	names := []string{}
	if err := db.Model(&JobInstanceEntity{}).Distinct().Order("job_name").Pluck("job_name", &names).Error; err != nil {
		return nil, exception.NewBatchError(module, "Failed to list job names", err, false, true)
	}
	return names, nil
}
