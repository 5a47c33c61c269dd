package inmemory

import (
	"context"
	"fmt"
	"sort"

	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/repository"
)

// SaveJobInstance stores a new JobInstance. Saving the same ID twice is an error.
func (r *InMemoryJobRepository) SaveJobInstance(ctx context.Context, instance *model.JobInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobInstances[instance.ID]; exists {
		return fmt.Errorf("JobInstance with ID %s already exists", instance.ID)
	}
	c := *instance
	r.jobInstances[instance.ID] = &c
	return nil
}

// FindJobInstanceByID returns a copy of the instance with the given ID.
func (r *InMemoryJobRepository) FindJobInstanceByID(ctx context.Context, id string) (*model.JobInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	instance, ok := r.jobInstances[id]
	if !ok {
		return nil, repository.ErrJobInstanceNotFound
	}
	c := *instance
	return &c, nil
}

// FindJobInstanceByJobNameAndParameters returns the instance with the same job name and parameters hash.
func (r *InMemoryJobRepository) FindJobInstanceByJobNameAndParameters(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error) {
	hash, err := params.Hash()
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, instance := range r.jobInstances {
		if instance.JobName == jobName && instance.ParametersHash == hash {
			c := *instance
			return &c, nil
		}
	}
	return nil, repository.ErrJobInstanceNotFound
}

// GetJobNames returns the distinct job names, sorted.
func (r *InMemoryJobRepository) GetJobNames(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, instance := range r.jobInstances {
		if _, ok := seen[instance.JobName]; ok {
			continue
		}
		seen[instance.JobName] = struct{}{}
		names = append(names, instance.JobName)
	}
	sort.Strings(names)
	return names, nil
}
