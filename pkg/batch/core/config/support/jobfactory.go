// Package support provides the JobFactory, which turns loaded JSL definitions into runnable jobs.
package support

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/fx"

	port "github.com/tigerroll/temperature-etl/pkg/batch/core/application/port"
	config "github.com/tigerroll/temperature-etl/pkg/batch/core/config"
	jsl "github.com/tigerroll/temperature-etl/pkg/batch/core/config/jsl"
	model "github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/temperature-etl/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/temperature-etl/pkg/batch/core/metrics"
	exception "github.com/tigerroll/temperature-etl/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

// JobBuilder is a function type for creating a specific Job.
//
// Parameters:
//
//	jobRepository: The job repository for persisting job metadata.
//	cfg: The application configuration.
//	listeners: A slice of JobExecutionListener instances.
//	flow: The flow definition of the job.
//	metricRecorder: The metric recorder for the job.
//	tracer: The tracer for the job span.
type JobBuilder func(
	jobRepository repository.JobRepository,
	cfg *config.Config,
	listeners []port.JobExecutionListener,
	flow *model.FlowDefinition,
	metricRecorder metrics.MetricRecorder,
	tracer metrics.Tracer,
) (port.Job, error)

type namedJobListener struct {
	builder jsl.JobExecutionListenerBuilder
	dflt    bool
}

type namedStepListener struct {
	builder jsl.StepExecutionListenerBuilder
	dflt    bool
}

// JobFactory constructs jobs from JSL definitions using the registered builders.
// Default listeners are attached to every job or step; the others only where a JSL
// `listeners` entry refers to them.
type JobFactory struct {
	config            *config.Config
	jobRepository     repository.JobRepository
	metricRecorder    metrics.MetricRecorder
	tracer            metrics.Tracer
	componentBuilders map[string]jsl.ComponentBuilder
	jobBuilders       map[string]JobBuilder
	jobListeners      map[string]namedJobListener
	stepListeners     map[string]namedStepListener
	mu                sync.RWMutex
}

// JobFactoryParams defines the dependencies NewJobFactory receives from fx.
type JobFactoryParams struct {
	fx.In
	Repo              repository.JobRepository
	Cfg               *config.Config
	MetricRecorder    metrics.MetricRecorder
	Tracer            metrics.Tracer
	ComponentBuilders []jsl.ComponentBuilderEntry `group:"tasklet_builders"`
}

// NewJobFactory creates a JobFactory and registers the tasklet builders of the
// `tasklet_builders` group.
func NewJobFactory(p JobFactoryParams) *JobFactory {
	f := &JobFactory{
		config:            p.Cfg,
		jobRepository:     p.Repo,
		metricRecorder:    p.MetricRecorder,
		tracer:            p.Tracer,
		componentBuilders: make(map[string]jsl.ComponentBuilder),
		jobBuilders:       make(map[string]JobBuilder),
		jobListeners:      make(map[string]namedJobListener),
		stepListeners:     make(map[string]namedStepListener),
	}
	for _, entry := range p.ComponentBuilders {
		f.RegisterComponentBuilder(entry.Name, entry.Builder)
	}
	return f
}

// GetConfig returns the Config held by the JobFactory.
func (f *JobFactory) GetConfig() *config.Config {
	return f.config
}

// RegisterComponentBuilder registers a tasklet builder under its JSL reference name.
func (f *JobFactory) RegisterComponentBuilder(name string, builder jsl.ComponentBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.componentBuilders[name]; exists {
		logger.Warnf("JobFactory: component builder '%s' already registered. Overwriting.", name)
	}
	f.componentBuilders[name] = builder
}

// RegisterJobBuilder registers the builder of the job whose JSL id is name.
func (f *JobFactory) RegisterJobBuilder(name string, builder JobBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobBuilders[name] = builder
}

// RegisterJobListenerBuilder registers a JobExecutionListener builder referable from JSL.
func (f *JobFactory) RegisterJobListenerBuilder(name string, builder jsl.JobExecutionListenerBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobListeners[name] = namedJobListener{builder: builder}
}

// RegisterDefaultJobListenerBuilder registers a JobExecutionListener attached to every job.
func (f *JobFactory) RegisterDefaultJobListenerBuilder(name string, builder jsl.JobExecutionListenerBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobListeners[name] = namedJobListener{builder: builder, dflt: true}
}

// RegisterStepExecutionListenerBuilder registers a StepExecutionListener builder referable from JSL.
func (f *JobFactory) RegisterStepExecutionListenerBuilder(name string, builder jsl.StepExecutionListenerBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stepListeners[name] = namedStepListener{builder: builder}
}

// RegisterDefaultStepExecutionListenerBuilder registers a StepExecutionListener attached to every step.
func (f *JobFactory) RegisterDefaultStepExecutionListenerBuilder(name string, builder jsl.StepExecutionListenerBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stepListeners[name] = namedStepListener{builder: builder, dflt: true}
}

// CreateJob builds the job whose JSL definition was loaded under jobName.
func (f *JobFactory) CreateJob(jobName string) (port.Job, error) {
	jslJob, ok := jsl.GetJobDefinition(jobName)
	if !ok {
		return nil, exception.NewBatchErrorf("job_factory", "JSL definition for Job '%s' not found", jobName)
	}
	return f.CreateJobFromDefinition(jslJob)
}

// CreateJobFromDefinition builds a job from an already parsed JSL definition.
func (f *JobFactory) CreateJobFromDefinition(jslJob jsl.Job) (port.Job, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	jobBuilder, found := f.jobBuilders[jslJob.ID]
	if !found {
		return nil, exception.NewBatchErrorf("job_factory", "Builder for Job '%s' not registered", jslJob.ID)
	}

	defaultStepListeners, defaultStepListenerNames, err := f.defaultStepListeners()
	if err != nil {
		return nil, err
	}
	stepListenerBuilders := make(map[string]jsl.StepExecutionListenerBuilder, len(f.stepListeners))
	for name, l := range f.stepListeners {
		if !l.dflt {
			stepListenerBuilders[name] = l.builder
		}
	}

	coreFlow, err := jsl.ConvertJSLToCoreFlow(jslJob.Flow, jsl.FlowConversionParams{
		Config:                   f.config,
		JobRepository:            f.jobRepository,
		ComponentBuilders:        f.componentBuilders,
		StepListenerBuilders:     stepListenerBuilders,
		DefaultStepListeners:     defaultStepListeners,
		DefaultStepListenerNames: defaultStepListenerNames,
		MetricRecorder:           f.metricRecorder,
		Tracer:                   f.tracer,
	})
	if err != nil {
		return nil, exception.NewBatchError("job_factory", fmt.Sprintf("Failed to convert JSL flow for job '%s'", jslJob.ID), err, false, false)
	}

	jobListeners, err := f.jobListenersFor(jslJob)
	if err != nil {
		return nil, err
	}

	job, err := jobBuilder(f.jobRepository, f.config, jobListeners, coreFlow, f.metricRecorder, f.tracer)
	if err != nil {
		return nil, exception.NewBatchError("job_factory", fmt.Sprintf("Failed to instantiate job '%s'", jslJob.ID), err, false, false)
	}
	logger.Debugf("JobFactory: job '%s' built with %d steps and %d job listeners.", jslJob.ID, len(coreFlow.Elements), len(jobListeners))
	return job, nil
}

func (f *JobFactory) defaultStepListeners() ([]port.StepExecutionListener, []string, error) {
	var (
		out   []port.StepExecutionListener
		names []string
	)
	for _, name := range sortedKeys(f.stepListeners) {
		l := f.stepListeners[name]
		if !l.dflt {
			continue
		}
		listener, err := l.builder(f.config, nil)
		if err != nil {
			return nil, nil, exception.NewBatchError("job_factory", fmt.Sprintf("Failed to build default StepExecutionListener '%s'", name), err, false, false)
		}
		out = append(out, listener)
		names = append(names, name)
	}
	return out, names, nil
}

func (f *JobFactory) jobListenersFor(jslJob jsl.Job) ([]port.JobExecutionListener, error) {
	var out []port.JobExecutionListener
	for _, name := range sortedKeys(f.jobListeners) {
		l := f.jobListeners[name]
		if !l.dflt {
			continue
		}
		listener, err := l.builder(f.config, nil)
		if err != nil {
			return nil, exception.NewBatchError("job_factory", fmt.Sprintf("Failed to build default JobExecutionListener '%s'", name), err, false, false)
		}
		out = append(out, listener)
	}

	for _, ref := range jslJob.Listeners {
		l, found := f.jobListeners[ref.Ref]
		if !found {
			return nil, exception.NewBatchErrorf("job_factory", "JobExecutionListener builder '%s' not registered", ref.Ref)
		}
		if l.dflt {
			continue
		}
		listener, err := l.builder(f.config, ref.Properties)
		if err != nil {
			return nil, exception.NewBatchError("job_factory", fmt.Sprintf("Failed to build JobExecutionListener '%s'", ref.Ref), err, false, false)
		}
		out = append(out, listener)
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
