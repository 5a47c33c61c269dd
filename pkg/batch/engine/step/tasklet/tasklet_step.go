// Package tasklet provides the Step implementation that runs a single port.Tasklet.
package tasklet

import (
	"context"
	"errors"
	"time"

	"github.com/tigerroll/temperature-etl/pkg/batch/core/application/port"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/repository"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/metrics"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

// TaskletStep is a port.Step that delegates its work to one Tasklet.
type TaskletStep struct {
	id                     string
	tasklet                port.Tasklet
	jobRepository          repository.JobRepository
	stepExecutionListeners []port.StepExecutionListener
	promotion              *model.ExecutionContextPromotion
	metricRecorder         metrics.MetricRecorder
	tracer                 metrics.Tracer
}

// NewTaskletStep creates a new TaskletStep. Nil recorder and tracer are replaced by no-ops.
func NewTaskletStep(
	id string,
	tasklet port.Tasklet,
	jobRepository repository.JobRepository,
	stepExecutionListeners []port.StepExecutionListener,
	promotion *model.ExecutionContextPromotion,
	metricRecorder metrics.MetricRecorder,
	tracer metrics.Tracer,
) *TaskletStep {
	if metricRecorder == nil {
		metricRecorder = metrics.NewNoOpMetricRecorder()
	}
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &TaskletStep{
		id:                     id,
		tasklet:                tasklet,
		jobRepository:          jobRepository,
		stepExecutionListeners: stepExecutionListeners,
		promotion:              promotion,
		metricRecorder:         metricRecorder,
		tracer:                 tracer,
	}
}

// SetMetricRecorder implements port.Step.
func (s *TaskletStep) SetMetricRecorder(recorder metrics.MetricRecorder) {
	s.metricRecorder = recorder
}

// SetTracer implements port.Step.
func (s *TaskletStep) SetTracer(tracer metrics.Tracer) {
	s.tracer = tracer
}

// ID returns the step ID.
func (s *TaskletStep) ID() string {
	return s.id
}

// StepName returns the step name, which is its ID.
func (s *TaskletStep) StepName() string {
	return s.id
}

// GetExecutionContextPromotion implements port.Step.
func (s *TaskletStep) GetExecutionContextPromotion() *model.ExecutionContextPromotion {
	return s.promotion
}

// Tasklet returns the wrapped tasklet.
func (s *TaskletStep) Tasklet() port.Tasklet {
	return s.tasklet
}

func (s *TaskletStep) notifyBeforeStep(ctx context.Context, stepExecution *model.StepExecution) {
	for _, l := range s.stepExecutionListeners {
		l.BeforeStep(ctx, stepExecution)
	}
}

func (s *TaskletStep) notifyAfterStep(ctx context.Context, stepExecution *model.StepExecution) {
	for _, l := range s.stepExecutionListeners {
		l.AfterStep(ctx, stepExecution)
	}
}

// Execute runs the tasklet:
//  1. mark STARTED and persist
//  2. hand the ExecutionContext to the tasklet and notify BeforeStep
//  3. run the tasklet, take its ExecutionContext back and close it
//  4. mark COMPLETED, STOPPED on cancellation, or FAILED, then notify AfterStep and persist
//
// A Close or persistence failure fails an otherwise successful step.
func (s *TaskletStep) Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) (err error) {
	ctx, endSpan := s.tracer.StartStepSpan(ctx, stepExecution)
	defer endSpan()

	logger.Infof("TaskletStep '%s' executing.", s.id)

	stepExecution.MarkAsStarted()
	if err := s.jobRepository.UpdateStepExecution(ctx, stepExecution); err != nil {
		return exception.NewBatchError(s.id, "Failed to update StepExecution status to STARTED", err, false, false)
	}

	if err := s.tasklet.SetExecutionContext(ctx, stepExecution.ExecutionContext); err != nil {
		wrapped := exception.NewBatchError(s.id, "Failed to set Tasklet ExecutionContext", err, false, false)
		stepExecution.MarkAsFailed(wrapped)
		s.persistFinal(ctx, stepExecution)
		return wrapped
	}

	s.notifyBeforeStep(ctx, stepExecution)

	exitStatus, err := s.tasklet.Execute(ctx, stepExecution)

	if taskletEC, getErr := s.tasklet.GetExecutionContext(ctx); getErr == nil {
		stepExecution.ExecutionContext = taskletEC
	} else {
		logger.Warnf("TaskletStep '%s': Failed to retrieve ExecutionContext from Tasklet: %v", s.id, getErr)
	}

	if closeErr := s.tasklet.Close(ctx); closeErr != nil {
		logger.Errorf("TaskletStep '%s': Failed to close Tasklet: %v", s.id, closeErr)
		if err == nil {
			err = exception.NewBatchError(s.id, "Failed to close Tasklet", closeErr, false, false)
		}
	}

	switch {
	case err != nil && errors.Is(err, context.Canceled):
		stepExecution.MarkAsStopped()
		stepExecution.AddFailureException(err)
	case err != nil:
		s.tracer.RecordError(ctx, s.id, err)
		stepExecution.MarkAsFailed(err)
	default:
		stepExecution.MarkAsCompleted()
		if exitStatus != "" {
			stepExecution.ExitStatus = exitStatus
		}
	}

	s.notifyAfterStep(ctx, stepExecution)

	if updateErr := s.persistFinal(ctx, stepExecution); updateErr != nil && err == nil {
		err = exception.NewBatchError(s.id, "Failed to persist final StepExecution state", updateErr, false, false)
	}

	logger.Infof("TaskletStep '%s' finished. Status: %s, ExitStatus: %s, Duration: %s",
		s.id, stepExecution.Status, stepExecution.ExitStatus, stepExecution.Duration().Round(time.Millisecond))
	return err
}

func (s *TaskletStep) persistFinal(ctx context.Context, stepExecution *model.StepExecution) error {
	// Persist even if the job context was cancelled so the final state is recorded.
	if err := s.jobRepository.UpdateStepExecution(context.WithoutCancel(ctx), stepExecution); err != nil {
		logger.Errorf("TaskletStep '%s': Failed to update final StepExecution state: %v", s.id, err)
		return err
	}
	return nil
}

var _ port.Step = (*TaskletStep)(nil)
