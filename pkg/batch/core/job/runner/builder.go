package runner

import (
	port "github.com/tigerroll/temperature-etl/pkg/batch/core/application/port"
	config "github.com/tigerroll/temperature-etl/pkg/batch/core/config"
	support "github.com/tigerroll/temperature-etl/pkg/batch/core/config/support"
	model "github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/temperature-etl/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/temperature-etl/pkg/batch/core/metrics"
)

// NewFlowJobBuilder returns a support.JobBuilder producing a FlowJob with the given id and name.
func NewFlowJobBuilder(id, name string) support.JobBuilder {
	return func(
		jobRepository repository.JobRepository,
		cfg *config.Config,
		listeners []port.JobExecutionListener,
		flow *model.FlowDefinition,
		metricRecorder metrics.MetricRecorder,
		tracer metrics.Tracer,
	) (port.Job, error) {
		return NewFlowJob(id, name, flow, jobRepository, listeners, metricRecorder, tracer), nil
	}
}
