package runner

import (
	"context"
	"errors"
	"fmt"

	port "github.com/tigerroll/temperature-etl/pkg/batch/core/application/port"
	model "github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/temperature-etl/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/temperature-etl/pkg/batch/core/metrics"
	exception "github.com/tigerroll/temperature-etl/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

// FlowJob is an implementation of port.Job that executes the steps of a JSL flow in order,
// following the transition rules on each step's ExitStatus.
type FlowJob struct {
	id             string
	name           string
	flow           *model.FlowDefinition
	jobRepository  repository.JobRepository
	jobListeners   []port.JobExecutionListener
	metricRecorder metrics.MetricRecorder
	tracer         metrics.Tracer
}

// Verify that FlowJob implements the port.Job interface.
var _ port.Job = (*FlowJob)(nil)

// NewFlowJob creates a new instance of FlowJob. Nil recorder and tracer are replaced by no-ops.
func NewFlowJob(
	id string,
	name string,
	flow *model.FlowDefinition,
	jobRepository repository.JobRepository,
	jobListeners []port.JobExecutionListener,
	metricRecorder metrics.MetricRecorder,
	tracer metrics.Tracer,
) *FlowJob {
	if metricRecorder == nil {
		metricRecorder = metrics.NewNoOpMetricRecorder()
	}
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &FlowJob{
		id:             id,
		name:           name,
		flow:           flow,
		jobRepository:  jobRepository,
		jobListeners:   jobListeners,
		metricRecorder: metricRecorder,
		tracer:         tracer,
	}
}

// ID returns the job ID.
func (j *FlowJob) ID() string {
	return j.id
}

// JobName returns the job name.
func (j *FlowJob) JobName() string {
	return j.name
}

// GetFlow returns the job flow definition.
func (j *FlowJob) GetFlow() *model.FlowDefinition {
	return j.flow
}

// ValidateParameters accepts any parameters. The flow takes its inputs from the JSL properties.
func (j *FlowJob) ValidateParameters(params model.JobParameters) error {
	logger.Debugf("Job '%s': validating JobParameters %s", j.name, params.String())
	return nil
}

func (j *FlowJob) notifyBeforeJob(ctx context.Context, jobExecution *model.JobExecution) {
	for _, l := range j.jobListeners {
		l.BeforeJob(ctx, jobExecution)
	}
}

func (j *FlowJob) notifyAfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	for _, l := range j.jobListeners {
		l.AfterJob(ctx, jobExecution)
	}
}

// Run executes the flow from its start element.
//
// A step error fails the job at once (STOPPED when the context was cancelled). After a
// successful step the first transition rule matching its ExitStatus decides what happens
// next. A step without any transition rule ends the job as COMPLETED; a step whose rules
// do not match its ExitStatus fails it.
//
// The final JobExecution state is always persisted. Run returns the error that ended the
// job, or nil on COMPLETED.
func (j *FlowJob) Run(ctx context.Context, jobExecution *model.JobExecution, jobParameters model.JobParameters) (runErr error) {
	logger.Infof("Starting Job '%s' (Execution ID: %s).", j.name, jobExecution.ID)

	ctx, finishSpan := j.tracer.StartJobSpan(ctx, jobExecution)
	defer finishSpan()

	jobExecution.MarkAsStarted()
	if err := j.jobRepository.UpdateJobExecution(ctx, jobExecution); err != nil {
		wrapped := exception.NewBatchError(j.name, "Failed to update JobExecution status to STARTED", err, false, false)
		jobExecution.MarkAsFailed(wrapped)
		return wrapped
	}

	j.metricRecorder.RecordJobStart(ctx, jobExecution)
	j.notifyBeforeJob(ctx, jobExecution)

	defer func() {
		if !jobExecution.Status.IsFinished() {
			if runErr != nil {
				jobExecution.MarkAsFailed(runErr)
			} else {
				jobExecution.MarkAsCompleted()
			}
		}
		if runErr != nil {
			j.tracer.RecordError(ctx, "job_runner", runErr)
		}

		j.notifyAfterJob(ctx, jobExecution)
		j.metricRecorder.RecordJobEnd(ctx, jobExecution)

		if err := j.jobRepository.UpdateJobExecution(context.WithoutCancel(ctx), jobExecution); err != nil {
			logger.Errorf("Job '%s': Failed to persist final JobExecution (ID: %s) state: %v", j.name, jobExecution.ID, err)
		}

		logger.Infof("Job '%s' (Execution ID: %s) finished. Final Status: %s, Exit Status: %s, Duration: %s",
			j.name, jobExecution.ID, jobExecution.Status, jobExecution.ExitStatus, jobExecution.Duration())
	}()

	currentElementID := j.flow.StartElement
	for {
		if err := ctx.Err(); err != nil {
			logger.Warnf("Context cancelled, interrupting execution of Job '%s': %v", j.name, err)
			jobExecution.AddFailureException(err)
			jobExecution.MarkAsStopped()
			return err
		}

		step, err := j.stepFor(currentElementID)
		if err != nil {
			logger.Errorf("Job '%s': %v", j.name, err)
			jobExecution.MarkAsFailed(err)
			return err
		}

		exitStatus, err := j.executeStep(ctx, jobExecution, step)
		if err != nil {
			logger.Errorf("Job '%s': Step '%s' failed: %v", j.name, step.StepName(), err)
			if errors.Is(err, context.Canceled) {
				jobExecution.AddFailureException(err)
				jobExecution.MarkAsStopped()
			} else {
				jobExecution.MarkAsFailed(err)
			}
			return err
		}
		logger.Infof("Job '%s': Step '%s' completed. ExitStatus: %s", j.name, step.StepName(), exitStatus)

		rule, found := j.flow.GetTransitionRule(step.ID(), exitStatus)
		if !found {
			if j.hasTransitionsFrom(step.ID()) {
				err := exception.NewBatchErrorf(j.name, "No transition from step '%s' matches ExitStatus '%s'", step.ID(), exitStatus)
				logger.Errorf("Job '%s': %v", j.name, err)
				jobExecution.MarkAsFailed(err)
				return err
			}
			logger.Infof("Job '%s': No transition rule from step '%s'. Completing job.", j.name, step.ID())
			jobExecution.MarkAsCompleted()
			return nil
		}

		switch t := rule.Transition; {
		case t.End:
			logger.Infof("Job '%s': 'end' transition from step '%s'. Completing job.", j.name, step.ID())
			jobExecution.MarkAsCompleted()
			return nil
		case t.Fail:
			err := fmt.Errorf("explicit fail transition from step '%s' on ExitStatus '%s'", step.ID(), exitStatus)
			logger.Errorf("Job '%s': %v", j.name, err)
			jobExecution.MarkAsFailed(err)
			return err
		case t.Stop:
			logger.Infof("Job '%s': 'stop' transition from step '%s'. Stopping job.", j.name, step.ID())
			jobExecution.MarkAsStopped()
			return nil
		default:
			currentElementID = t.To
		}
	}
}

func (j *FlowJob) stepFor(id string) (port.Step, error) {
	element, ok := j.flow.Elements[id]
	if !ok {
		return nil, exception.NewBatchErrorf(j.name, "Flow element '%s' not found", id)
	}
	step, ok := element.(port.Step)
	if !ok {
		return nil, exception.NewBatchErrorf(j.name, "Flow element of type %T is not a Step (ID: %s)", element, id)
	}
	return step, nil
}

// executeStep creates and saves the StepExecution, runs the step and promotes its
// ExecutionContext keys into the job context.
func (j *FlowJob) executeStep(ctx context.Context, jobExecution *model.JobExecution, step port.Step) (model.ExitStatus, error) {
	stepName := step.StepName()
	jobExecution.CurrentStepName = stepName

	stepExecution := model.NewStepExecution(model.NewID(), jobExecution, stepName)
	jobExecution.AddStepExecution(stepExecution)
	if err := j.jobRepository.SaveStepExecution(ctx, stepExecution); err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(j.name, fmt.Sprintf("Failed to save StepExecution for step '%s'", stepName), err, false, false)
	}

	if err := step.Execute(ctx, jobExecution, stepExecution); err != nil {
		return stepExecution.ExitStatus, err
	}

	if promoted := step.GetExecutionContextPromotion().Promote(stepExecution.ExecutionContext, jobExecution.ExecutionContext); len(promoted) > 0 {
		logger.Debugf("Job '%s': promoted %v from step '%s' to the job ExecutionContext.", j.name, promoted, stepName)
	}
	if err := j.jobRepository.UpdateJobExecution(ctx, jobExecution); err != nil {
		return stepExecution.ExitStatus, exception.NewBatchError(j.name, fmt.Sprintf("Failed to update JobExecution after step '%s'", stepName), err, false, false)
	}
	return stepExecution.ExitStatus, nil
}

func (j *FlowJob) hasTransitionsFrom(id string) bool {
	for _, rule := range j.flow.TransitionRules {
		if rule.From == id {
			return true
		}
	}
	return false
}
