package usecase

import (
	"context"
	"errors"
	"fmt"

	port "github.com/tigerroll/temperature-etl/pkg/batch/core/application/port"
	model "github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/temperature-etl/pkg/batch/core/domain/repository"
	exception "github.com/tigerroll/temperature-etl/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

// JobCreator builds a runnable Job by name. *support.JobFactory implements it.
type JobCreator interface {
	CreateJob(jobName string) (port.Job, error)
}

// SimpleJobLauncher implements JobLauncher for local, synchronous execution.
type SimpleJobLauncher struct {
	jobRepository repository.JobRepository
	jobCreator    JobCreator
}

// Verify that SimpleJobLauncher implements the JobLauncher interface.
var _ JobLauncher = (*SimpleJobLauncher)(nil)

// NewSimpleJobLauncher creates a new SimpleJobLauncher.
func NewSimpleJobLauncher(repo repository.JobRepository, creator JobCreator) *SimpleJobLauncher {
	return &SimpleJobLauncher{
		jobRepository: repo,
		jobCreator:    creator,
	}
}

// Launch builds the job, finds or creates its JobInstance, saves a new JobExecution and
// runs the job on the calling goroutine.
//
// One JobInstance exists per job name and parameters hash. Launching again with the same
// parameters adds a new JobExecution to it, unless an earlier execution is still running.
func (l *SimpleJobLauncher) Launch(ctx context.Context, jobName string, jobParameters model.JobParameters) (*model.JobExecution, error) {
	const op = "SimpleJobLauncher.Launch"
	logger.Infof("Launching Job '%s' using JobLauncher. Parameters: %s", jobName, jobParameters.String())

	job, err := l.jobCreator.CreateJob(jobName)
	if err != nil {
		return nil, exception.NewBatchError(op, fmt.Sprintf("Failed to create job definition for '%s'", jobName), err, false, false)
	}

	if err := job.ValidateParameters(jobParameters); err != nil {
		logger.Errorf("Job '%s': JobParameters validation failed: %v", jobName, err)
		return nil, exception.NewBatchError(op, "JobParameters validation error", err, false, false)
	}

	jobInstance, err := l.findOrCreateInstance(ctx, job.JobName(), jobParameters)
	if err != nil {
		return nil, err
	}

	jobExecution := model.NewJobExecution(jobInstance.ID, job.JobName(), jobInstance.Parameters)
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	jobExecution.CancelFunc = cancel

	if err := l.jobRepository.SaveJobExecution(jobCtx, jobExecution); err != nil {
		logger.Errorf("Failed to persist JobExecution (ID: %s) initially: %v", jobExecution.ID, err)
		return jobExecution, exception.NewBatchError(op, "Failed to save JobExecution initially", err, false, false)
	}
	logger.Infof("Starting Job '%s' (Execution ID: %s, Job Instance ID: %s).", jobName, jobExecution.ID, jobInstance.ID)

	if runErr := job.Run(jobCtx, jobExecution, jobExecution.Parameters); runErr != nil {
		logger.Debugf("Job '%s' (Execution ID: %s) returned: %v", jobName, jobExecution.ID, runErr)
	}
	return jobExecution, nil
}

func (l *SimpleJobLauncher) findOrCreateInstance(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error) {
	const op = "SimpleJobLauncher.Launch"

	existing, err := l.jobRepository.FindJobInstanceByJobNameAndParameters(ctx, jobName, params)
	if err != nil && !errors.Is(err, repository.ErrJobInstanceNotFound) {
		return nil, exception.NewBatchError(op, "Failed to search for existing JobInstance", err, false, false)
	}

	if existing != nil {
		executions, err := l.jobRepository.FindJobExecutionsByJobInstance(ctx, existing)
		if err != nil {
			return nil, exception.NewBatchError(op, "Failed to search JobExecutions of existing JobInstance", err, false, false)
		}
		for _, je := range executions {
			if !je.Status.IsFinished() {
				return nil, exception.NewBatchErrorf(op, "JobExecution (ID: %s, Status: %s) of JobInstance (ID: %s) is still running", je.ID, je.Status.String(), existing.ID)
			}
		}
		logger.Infof("Creating new JobExecution for existing JobInstance (ID: %s).", existing.ID)
		return existing, nil
	}

	instance := model.NewJobInstance(jobName, params)
	if err := l.jobRepository.SaveJobInstance(ctx, instance); err != nil {
		return nil, exception.NewBatchError(op, fmt.Sprintf("Failed to save new JobInstance for '%s'", jobName), err, false, false)
	}
	logger.Infof("Created and saved new JobInstance (ID: %s, JobName: %s).", instance.ID, jobName)
	return instance, nil
}
