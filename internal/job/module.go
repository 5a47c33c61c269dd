// Package job registers the temperature ETL job with the JobFactory.
package job

import (
	"go.uber.org/fx"

	support "github.com/tigerroll/temperature-etl/pkg/batch/core/config/support"
	jobRunner "github.com/tigerroll/temperature-etl/pkg/batch/core/job/runner"
)

// JobName must match the job id in job.yaml.
const JobName = "temperatureEtlJob"

// NewTemperatureEtlJobBuilder creates the JobBuilder of temperatureEtlJob, a FlowJob over
// the steps of job.yaml.
func NewTemperatureEtlJobBuilder() support.JobBuilder {
	return jobRunner.NewFlowJobBuilder(JobName, JobName)
}

// RegisterTemperatureEtlJobBuilder registers the builder under the JSL job id, so that
// JobFactory.CreateJob(JobName) finds it.
func RegisterTemperatureEtlJobBuilder(jf *support.JobFactory, builder support.JobBuilder) {
	jf.RegisterJobBuilder(JobName, builder)
}

var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewTemperatureEtlJobBuilder,
		fx.ResultTags(`name:"temperatureEtlJobBuilder"`),
	)),
	fx.Invoke(fx.Annotate(
		RegisterTemperatureEtlJobBuilder,
		fx.ParamTags(``, `name:"temperatureEtlJobBuilder"`),
	)),
)
