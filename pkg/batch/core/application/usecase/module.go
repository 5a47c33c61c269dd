package usecase

import (
	"go.uber.org/fx"

	support "github.com/tigerroll/temperature-etl/pkg/batch/core/config/support"
	repository "github.com/tigerroll/temperature-etl/pkg/batch/core/domain/repository"
)

// Module is the Fx module for JobLauncher and JobExplorer.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewSimpleJobExplorer,
		fx.As(new(JobExplorer)),
	)),
	fx.Provide(fx.Annotate(
		func(repo repository.JobRepository, factory *support.JobFactory) *SimpleJobLauncher {
			return NewSimpleJobLauncher(repo, factory)
		},
		fx.As(new(JobLauncher)),
	)),
)
