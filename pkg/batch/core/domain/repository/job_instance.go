package repository

import (
	"context"

	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
)

// JobInstance persists JobInstances.
type JobInstance interface {
	// SaveJobInstance stores a new instance.
	SaveJobInstance(ctx context.Context, instance *model.JobInstance) error
	// FindJobInstanceByID returns ErrJobInstanceNotFound when id is unknown.
	FindJobInstanceByID(ctx context.Context, id string) (*model.JobInstance, error)
	// FindJobInstanceByJobNameAndParameters matches on job name and the parameters hash.
	// It returns ErrJobInstanceNotFound when no instance matches.
	FindJobInstanceByJobNameAndParameters(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error)
	// GetJobNames returns the distinct job names, sorted.
	GetJobNames(ctx context.Context) ([]string, error)
}
