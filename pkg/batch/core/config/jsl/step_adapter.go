package jsl

import (
	"fmt"
	"sort"

	port "github.com/tigerroll/temperature-etl/pkg/batch/core/application/port"
	config "github.com/tigerroll/temperature-etl/pkg/batch/core/config"
	model "github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/temperature-etl/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/temperature-etl/pkg/batch/core/metrics"
	taskletStep "github.com/tigerroll/temperature-etl/pkg/batch/engine/step/tasklet"
	exception "github.com/tigerroll/temperature-etl/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

// FlowConversionParams carries what ConvertJSLToCoreFlow needs to build the steps of a flow.
type FlowConversionParams struct {
	Config                   *config.Config
	JobRepository            repository.JobRepository
	ComponentBuilders        map[string]ComponentBuilder
	StepListenerBuilders     map[string]StepExecutionListenerBuilder
	// DefaultStepListeners are attached to every step ahead of the step's own listeners.
	DefaultStepListeners     []port.StepExecutionListener
	// DefaultStepListenerNames are the refs of DefaultStepListeners. JSL refs to them are ignored.
	DefaultStepListenerNames []string
	MetricRecorder           metrics.MetricRecorder
	Tracer                   metrics.Tracer
}

// ConvertJSLToCoreFlow converts a JSL Flow into a model.FlowDefinition whose elements are
// TaskletSteps. Steps are built in ID order so that builder errors are reproducible.
func ConvertJSLToCoreFlow(jslFlow Flow, p FlowConversionParams) (*model.FlowDefinition, error) {
	module := "jsl_converter"
	if _, ok := jslFlow.Elements[jslFlow.StartElement]; !ok {
		return nil, exception.NewBatchErrorf(module, "Flow 'start-element' '%s' not found in 'elements'", jslFlow.StartElement)
	}

	flowDef := model.NewFlowDefinition(jslFlow.StartElement)

	ids := make([]string, 0, len(jslFlow.Elements))
	for id := range jslFlow.Elements {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		jslStep := jslFlow.Elements[id]
		step, err := buildStep(jslStep, p)
		if err != nil {
			return nil, err
		}
		if err := flowDef.AddElement(id, step); err != nil {
			return nil, exception.NewBatchError(module, fmt.Sprintf("Failed to add step '%s' to flow", id), err, false, false)
		}
		for _, t := range jslStep.Transitions {
			flowDef.AddTransitionRule(id, t.ToModel())
		}
		logger.Debugf("JSL step '%s' converted (tasklet: %s, transitions: %d).", id, jslStep.Tasklet.Ref, len(jslStep.Transitions))
	}
	return flowDef, nil
}

func buildStep(jslStep Step, p FlowConversionParams) (port.Step, error) {
	module := "jsl_converter"

	builder, found := p.ComponentBuilders[jslStep.Tasklet.Ref]
	if !found {
		return nil, exception.NewBatchErrorf(module, "Tasklet builder '%s' for step '%s' is not registered", jslStep.Tasklet.Ref, jslStep.ID)
	}
	tasklet, err := builder(p.Config, jslStep.Tasklet.Properties)
	if err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("Failed to build tasklet '%s' for step '%s'", jslStep.Tasklet.Ref, jslStep.ID), err, false, false)
	}

	listeners := append([]port.StepExecutionListener(nil), p.DefaultStepListeners...)
	for _, listenerRef := range jslStep.Listeners {
		if containsString(p.DefaultStepListenerNames, listenerRef.Ref) {
			continue
		}
		listenerBuilder, found := p.StepListenerBuilders[listenerRef.Ref]
		if !found {
			return nil, exception.NewBatchErrorf(module, "StepExecutionListener builder '%s' is not registered", listenerRef.Ref)
		}
		listener, err := listenerBuilder(p.Config, listenerRef.Properties)
		if err != nil {
			return nil, exception.NewBatchError(module, fmt.Sprintf("Failed to build StepExecutionListener '%s'", listenerRef.Ref), err, false, false)
		}
		listeners = append(listeners, listener)
	}

	return taskletStep.NewTaskletStep(
		jslStep.ID,
		tasklet,
		p.JobRepository,
		listeners,
		jslStep.ExecutionContextPromotion.ToModel(),
		p.MetricRecorder,
		p.Tracer,
	), nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
