package support_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	port "github.com/tigerroll/temperature-etl/pkg/batch/core/application/port"
	config "github.com/tigerroll/temperature-etl/pkg/batch/core/config"
	jsl "github.com/tigerroll/temperature-etl/pkg/batch/core/config/jsl"
	support "github.com/tigerroll/temperature-etl/pkg/batch/core/config/support"
	model "github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/temperature-etl/pkg/batch/core/metrics"
	runner "github.com/tigerroll/temperature-etl/pkg/batch/core/job/runner"
	"github.com/tigerroll/temperature-etl/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/temperature-etl/pkg/batch/listener/logging"
)

const factoryJob = `
id: factoryJob
name: factoryJob
listeners:
  - ref: loggingJobListener
  - ref: auditJobListener
    properties:
      tag: nightly
flow:
  start-element: first
  elements:
    first:
      id: first
      tasklet:
        ref: putTasklet
        properties:
          key: first.done
      listeners:
        - ref: loggingStepListener
          properties:
            logExecutionContext: true
        - ref: auditStepListener
      transitions:
        - on: COMPLETED
          to: second
    second:
      id: second
      tasklet:
        ref: putTasklet
        properties:
          key: second.done
      transitions:
        - on: COMPLETED
          end: true
`

type putTasklet struct {
	key string
	ec  model.ExecutionContext
}

func (t *putTasklet) Execute(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
	t.ec.Put(t.key, true)
	return model.ExitStatusCompleted, nil
}
func (t *putTasklet) Close(ctx context.Context) error { return nil }
func (t *putTasklet) SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error {
	t.ec = ec
	return nil
}
func (t *putTasklet) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return t.ec, nil
}

type audit struct {
	events []string
}

type auditJobListener struct {
	a   *audit
	tag string
}

func (l *auditJobListener) BeforeJob(ctx context.Context, je *model.JobExecution) {
	l.a.events = append(l.a.events, "beforeJob:"+l.tag)
}
func (l *auditJobListener) AfterJob(ctx context.Context, je *model.JobExecution) {
	l.a.events = append(l.a.events, "afterJob:"+je.Status.String())
}

type auditStepListener struct {
	a *audit
}

func (l *auditStepListener) BeforeStep(ctx context.Context, se *model.StepExecution) {
	l.a.events = append(l.a.events, "beforeStep:"+se.StepName)
}
func (l *auditStepListener) AfterStep(ctx context.Context, se *model.StepExecution) {
	l.a.events = append(l.a.events, "afterStep:"+se.StepName)
}

func newFactory(t *testing.T, repo *inmemory.InMemoryJobRepository, a *audit) *support.JobFactory {
	t.Helper()
	jf := support.NewJobFactory(support.JobFactoryParams{
		Repo:           repo,
		Cfg:            config.NewConfig(),
		MetricRecorder: metrics.NewNoOpMetricRecorder(),
		Tracer:         metrics.NewNoOpTracer(),
		ComponentBuilders: []jsl.ComponentBuilderEntry{{
			Name: "putTasklet",
			Builder: func(cfg *config.Config, properties map[string]interface{}) (port.Tasklet, error) {
				key, _ := properties["key"].(string)
				return &putTasklet{key: key}, nil
			},
		}},
	})
	logging.RegisterListeners(jf)
	jf.RegisterJobListenerBuilder("auditJobListener", func(cfg *config.Config, properties map[string]interface{}) (port.JobExecutionListener, error) {
		tag, _ := properties["tag"].(string)
		return &auditJobListener{a: a, tag: tag}, nil
	})
	jf.RegisterStepExecutionListenerBuilder("auditStepListener", func(cfg *config.Config, properties map[string]interface{}) (port.StepExecutionListener, error) {
		return &auditStepListener{a: a}, nil
	})
	jf.RegisterJobBuilder("factoryJob", runner.NewFlowJobBuilder("factoryJob", "factoryJob"))
	return jf
}

func TestJobFactory_CreateJobFromDefinition(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewInMemoryJobRepository()
	a := &audit{}
	jf := newFactory(t, repo, a)

	def, err := jsl.ParseJSLDefinition([]byte(factoryJob))
	require.NoError(t, err)
	job, err := jf.CreateJobFromDefinition(def)
	require.NoError(t, err)
	assert.Equal(t, "factoryJob", job.JobName())
	assert.Len(t, job.GetFlow().Elements, 2)

	je := model.NewJobExecution("instance", job.JobName(), model.NewJobParameters())
	require.NoError(t, repo.SaveJobExecution(ctx, je))
	require.NoError(t, job.Run(ctx, je, je.Parameters))

	assert.Equal(t, model.BatchStatusCompleted, je.Status)
	assert.Equal(t, []string{
		"beforeJob:nightly",
		"beforeStep:first",
		"afterStep:first",
		"afterJob:COMPLETED",
	}, a.events)
}

func TestJobFactory_Errors(t *testing.T) {
	def, err := jsl.ParseJSLDefinition([]byte(factoryJob))
	require.NoError(t, err)

	t.Run("job builder not registered", func(t *testing.T) {
		jf := newFactory(t, inmemory.NewInMemoryJobRepository(), &audit{})
		other := def
		other.ID = "otherJob"
		_, err := jf.CreateJobFromDefinition(other)
		assert.ErrorContains(t, err, "otherJob")
	})

	t.Run("unknown job listener", func(t *testing.T) {
		jf := newFactory(t, inmemory.NewInMemoryJobRepository(), &audit{})
		other := def
		other.Listeners = []jsl.ComponentRef{{Ref: "missingListener"}}
		_, err := jf.CreateJobFromDefinition(other)
		assert.ErrorContains(t, err, "missingListener")
	})

	t.Run("job not loaded", func(t *testing.T) {
		jf := newFactory(t, inmemory.NewInMemoryJobRepository(), &audit{})
		_, err := jf.CreateJob("neverLoadedJob")
		assert.Error(t, err)
	})
}
