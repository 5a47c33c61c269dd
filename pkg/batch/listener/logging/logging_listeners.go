package logging

import (
	"context"
	"sort"
	"strings"
	"time"

	port "github.com/tigerroll/temperature-etl/pkg/batch/core/application/port"
	model "github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

// ListenerConfig holds the JSL properties shared by the logging listeners.
type ListenerConfig struct {
	// LogExecutionContext adds the ExecutionContext keys to the after-job and after-step lines.
	LogExecutionContext bool `mapstructure:"logExecutionContext"`
}

// --- Job Execution Listener ---

type LoggingJobListener struct {
	config ListenerConfig
}

func NewLoggingJobListener(config ListenerConfig) *LoggingJobListener {
	return &LoggingJobListener{config: config}
}

func (l *LoggingJobListener) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {
	logger.Infof("JobExecutionListener: BeforeJob - JobName: %s, ID: %s, Params: %s", jobExecution.JobName, jobExecution.ID, jobExecution.Parameters.String())
}

func (l *LoggingJobListener) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	logger.Infof("JobExecutionListener: AfterJob - JobName: %s, Status: %s, ExitStatus: %s, Steps: %d, Duration: %s",
		jobExecution.JobName, jobExecution.Status, jobExecution.ExitStatus, len(jobExecution.StepExecutions), jobExecution.Duration().Round(time.Millisecond))
	for _, failure := range jobExecution.Failures {
		logger.Errorf("JobExecutionListener: AfterJob - JobName: %s, Failure: %s", jobExecution.JobName, failure)
	}
	if l.config.LogExecutionContext {
		logger.Infof("JobExecutionListener: AfterJob - JobName: %s, ExecutionContext keys: [%s]", jobExecution.JobName, keysOf(jobExecution.ExecutionContext))
	}
}

var _ port.JobExecutionListener = (*LoggingJobListener)(nil)

// --- Step Execution Listener ---

type LoggingStepListener struct {
	config ListenerConfig
}

func NewLoggingStepListener(config ListenerConfig) *LoggingStepListener {
	return &LoggingStepListener{config: config}
}

func (l *LoggingStepListener) BeforeStep(ctx context.Context, stepExecution *model.StepExecution) {
	logger.Infof("StepExecutionListener: BeforeStep - StepName: %s, ID: %s", stepExecution.StepName, stepExecution.ID)
}

func (l *LoggingStepListener) AfterStep(ctx context.Context, stepExecution *model.StepExecution) {
	logger.Infof("StepExecutionListener: AfterStep - StepName: %s, Status: %s, ExitStatus: %s, Read: %d, Write: %d, Filter: %d",
		stepExecution.StepName, stepExecution.Status, stepExecution.ExitStatus, stepExecution.ReadCount, stepExecution.WriteCount, stepExecution.FilterCount)
	if l.config.LogExecutionContext {
		logger.Infof("StepExecutionListener: AfterStep - StepName: %s, ExecutionContext keys: [%s]", stepExecution.StepName, keysOf(stepExecution.ExecutionContext))
	}
}

var _ port.StepExecutionListener = (*LoggingStepListener)(nil)

// keysOf lists keys only; values may be large or sensitive.
func keysOf(ec model.ExecutionContext) string {
	keys := make([]string, 0, len(ec))
	for k := range ec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
