// Package repository defines the persistence contract for job metadata: instances, executions
// and step executions. Implementations live under infrastructure/repository.
package repository

import (
	"errors"

	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/exception"
)

var (
	// ErrJobInstanceNotFound is returned when no JobInstance matches a lookup.
	ErrJobInstanceNotFound = errors.New("job instance not found")
	// ErrJobExecutionNotFound is returned when no JobExecution matches a lookup.
	ErrJobExecutionNotFound = errors.New("job execution not found")
	// ErrStepExecutionNotFound is returned when no StepExecution matches a lookup.
	ErrStepExecutionNotFound = errors.New("step execution not found")
)

func init() {
	exception.RegisterErrorType("ErrJobInstanceNotFound", ErrJobInstanceNotFound)
	exception.RegisterErrorType("ErrJobExecutionNotFound", ErrJobExecutionNotFound)
	exception.RegisterErrorType("ErrStepExecutionNotFound", ErrStepExecutionNotFound)
}

// JobRepository persists all job metadata.
type JobRepository interface {
	JobInstance
	JobExecution
	StepExecution

	// Close releases the underlying storage.
	Close() error
}
