// Package app composes the temperature ETL application: configuration, storage, job
// repository, metrics, the JobFactory and the job's tasklets, and runs the job once.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"

	appJob "github.com/tigerroll/temperature-etl/internal/job"
	appTasklet "github.com/tigerroll/temperature-etl/internal/step/tasklet"
	gormadapter "github.com/tigerroll/temperature-etl/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/temperature-etl/pkg/batch/adapter/database/gorm/mysql"
	"github.com/tigerroll/temperature-etl/pkg/batch/adapter/database/gorm/postgres"
	"github.com/tigerroll/temperature-etl/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/temperature-etl/pkg/batch/adapter/storage"
	"github.com/tigerroll/temperature-etl/pkg/batch/adapter/storage/gcs"
	"github.com/tigerroll/temperature-etl/pkg/batch/adapter/storage/local"
	usecase "github.com/tigerroll/temperature-etl/pkg/batch/core/application/usecase"
	config "github.com/tigerroll/temperature-etl/pkg/batch/core/config"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/config/jsl"
	supportConfig "github.com/tigerroll/temperature-etl/pkg/batch/core/config/support"
	model "github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	infraMetrics "github.com/tigerroll/temperature-etl/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/temperature-etl/pkg/batch/infrastructure/repository"
	batchlistener "github.com/tigerroll/temperature-etl/pkg/batch/listener"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

// stopTimeout bounds the OnStop hooks, including the wait for a cancelled job to finish.
const stopTimeout = 30 * time.Second

// Result is the outcome of one application run.
type Result struct {
	// ExitCode is 0 when the job COMPLETED and 1 otherwise.
	ExitCode int
	// JobExecution is nil when the job could not be launched.
	JobExecution *model.JobExecution
}

// jobOutcome is written by the job goroutine and read after the application stopped.
type jobOutcome struct {
	mu     sync.Mutex
	result Result
	done   chan struct{}
}

func newJobOutcome() *jobOutcome {
	return &jobOutcome{result: Result{ExitCode: 1}, done: make(chan struct{})}
}

func (o *jobOutcome) set(r Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.result = r
}

func (o *jobOutcome) get() Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result
}

// Options returns the fx options of the application without the job trigger.
func Options(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig, embeddedJSL jsl.JSLDefinitionBytes) fx.Option {
	return fx.Options(
		fx.Supply(
			embeddedConfig,
			embeddedJSL,
			fx.Annotate(envFilePath, fx.ResultTags(`name:"envFilePath"`)),
			fx.Annotate(
				appCtx,
				fx.As(new(context.Context)),
				fx.ResultTags(`name:"appCtx"`),
			),
		),
		fx.StopTimeout(stopTimeout),

		logger.Module,
		config.Module,
		infraMetrics.Module,

		storage.Module,
		local.Module,
		gcs.Module,
		gormadapter.Module,
		sqlite.Module,
		postgres.Module,
		mysql.Module,
		repository.Module,

		supportConfig.Module,
		usecase.Module,
		batchlistener.Module,

		Module,
		appTasklet.Module,
		appJob.Module,
	)
}

// RunApplication starts the application, runs the configured job once and stops.
// Cancelling appCtx stops the running job; the result is then STOPPED with exit code 1.
func RunApplication(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig, embeddedJSL jsl.JSLDefinitionBytes) (Result, error) {
	outcome := newJobOutcome()

	app := fx.New(
		Options(appCtx, envFilePath, embeddedConfig, embeddedJSL),
		fx.Supply(outcome),
		fx.Invoke(fx.Annotate(startJobExecution, fx.ParamTags(
			"",              // lc fx.Lifecycle
			"",              // shutdowner fx.Shutdowner
			"",              // jobLauncher usecase.JobLauncher
			"",              // jobExplorer usecase.JobExplorer
			"",              // cfg *config.Config
			"",              // outcome *jobOutcome
			`name:"appCtx"`, // appCtx context.Context
		))),
	)
	if err := app.Err(); err != nil {
		return Result{ExitCode: 1}, fmt.Errorf("failed to build application: %w", err)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		return Result{ExitCode: 1}, fmt.Errorf("failed to start application: %w", err)
	}

	signal := <-app.Wait()
	logger.Debugf("Application received shutdown signal: %s", signal)

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		logger.Errorf("Application stop failed: %v", err)
	}
	return outcome.get(), nil
}

// startJobExecution is invoked by fx to run the job once the application started.
func startJobExecution(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	jobLauncher usecase.JobLauncher,
	jobExplorer usecase.JobExplorer,
	cfg *config.Config,
	outcome *jobOutcome,
	appCtx context.Context,
) {
	lc.Append(fx.Hook{
		OnStart: onStartJobExecution(jobLauncher, jobExplorer, cfg, shutdowner, outcome, appCtx),
		OnStop:  onStopApplication(outcome),
	})
}

// onStartJobExecution launches the job in a goroutine and requests shutdown with the
// job's exit code when it returns.
func onStartJobExecution(
	jobLauncher usecase.JobLauncher,
	jobExplorer usecase.JobExplorer,
	cfg *config.Config,
	shutdowner fx.Shutdowner,
	outcome *jobOutcome,
	appCtx context.Context,
) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		go func() {
			defer close(outcome.done)
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("Panic recovered in job execution: %v", r)
					outcome.set(Result{ExitCode: 1})
				}
				code := outcome.get().ExitCode
				logger.Infof("Requesting application shutdown after job completion (exit code %d).", code)
				if err := shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
					logger.Errorf("Failed to shutdown application: %v", err)
				}
			}()

			jobName := cfg.Surfin.Batch.JobName
			logger.Infof("Starting job '%s'...", jobName)

			jobExecution, err := jobLauncher.Launch(appCtx, jobName, model.NewJobParameters())
			if err != nil {
				logger.Errorf("Failed to launch job '%s': %v", jobName, err)
				outcome.set(Result{ExitCode: 1})
				return
			}
			outcome.set(Result{ExitCode: jobExecution.ExitCode, JobExecution: jobExecution})
			logSummary(context.WithoutCancel(appCtx), jobExplorer, jobExecution)
		}()
		return nil
	}
}

// onStopApplication waits for the job goroutine so that nothing it uses is closed under it.
func onStopApplication(outcome *jobOutcome) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		select {
		case <-outcome.done:
		case <-ctx.Done():
			return fmt.Errorf("job did not finish before stop timeout: %w", ctx.Err())
		}
		logger.Infof("Application is shutting down.")
		return nil
	}
}

// logSummary logs the persisted state of every step of jobExecution.
func logSummary(ctx context.Context, explorer usecase.JobExplorer, jobExecution *model.JobExecution) {
	steps, err := explorer.GetStepExecutions(ctx, jobExecution.ID)
	if err != nil {
		logger.Warnf("Failed to load step executions of JobExecution (ID: %s): %v", jobExecution.ID, err)
		return
	}
	logger.Infof("Job '%s' (Execution ID: %s) finished with status %s, exit status %s in %s.",
		jobExecution.JobName, jobExecution.ID, jobExecution.Status, jobExecution.ExitStatus, jobExecution.Duration().Round(time.Millisecond))
	for _, se := range steps {
		logger.Infof("  %-18s %-9s read=%d write=%d filter=%d (%s)",
			se.StepName, se.Status, se.ReadCount, se.WriteCount, se.FilterCount, se.Duration().Round(time.Millisecond))
	}
	for _, failure := range jobExecution.Failures {
		logger.Errorf("  failure: %s", failure)
	}
}
