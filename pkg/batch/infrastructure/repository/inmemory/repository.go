// Package inmemory provides a JobRepository that keeps job metadata in process memory.
// It is the default when `job_repository_type` is unset or "inmemory".
package inmemory

import (
	"sync"

	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/repository"
)

// InMemoryJobRepository stores copies of the saved records in maps guarded by one RWMutex.
// Records are copied on the way in and on the way out, so callers never share state with it.
type InMemoryJobRepository struct {
	mu             sync.RWMutex
	jobInstances   map[string]*model.JobInstance
	jobExecutions  map[string]*model.JobExecution
	stepExecutions map[string]*model.StepExecution
}

// NewInMemoryJobRepository creates an empty InMemoryJobRepository.
func NewInMemoryJobRepository() *InMemoryJobRepository {
	return &InMemoryJobRepository{
		jobInstances:   make(map[string]*model.JobInstance),
		jobExecutions:  make(map[string]*model.JobExecution),
		stepExecutions: make(map[string]*model.StepExecution),
	}
}

// Close is a no-op.
func (r *InMemoryJobRepository) Close() error {
	return nil
}

func cloneJobExecution(je *model.JobExecution) *model.JobExecution {
	c := *je
	c.ExecutionContext = je.ExecutionContext.Copy()
	c.Failures = append(model.FailureList(nil), je.Failures...)
	c.StepExecutions = nil
	return &c
}

func cloneStepExecution(se *model.StepExecution) *model.StepExecution {
	c := *se
	c.ExecutionContext = se.ExecutionContext.Copy()
	c.Failures = append(model.FailureList(nil), se.Failures...)
	c.JobExecution = nil
	return &c
}

var _ repository.JobRepository = (*InMemoryJobRepository)(nil)
