// Package jsl defines the models for the Job Specification Language (JSL).
// A JSL file describes, in YAML, the steps of a batch job, the tasklet each step runs
// and the transitions between steps.
package jsl

import (
	port "github.com/tigerroll/temperature-etl/pkg/batch/core/application/port"
	config "github.com/tigerroll/temperature-etl/pkg/batch/core/config"
	model "github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
)

// JSLDefinitionBytes holds the content of a JSL file as a byte slice.
type JSLDefinitionBytes []byte

// Job represents the top-level structure of a JSL file.
type Job struct {
	// ID is the unique identifier for the job.
	ID string `yaml:"id"`
	// Name is the logical name of the job.
	Name string `yaml:"name"`
	// Description is an optional description for the job.
	Description string `yaml:"description,omitempty"`
	// Flow defines the execution flow of the job.
	Flow Flow `yaml:"flow"`
	// Listeners is an optional list of JobExecutionListener references applied to this job.
	Listeners []ComponentRef `yaml:"listeners,omitempty"`
}

// Flow is the set of steps of a job and the element the job starts with.
type Flow struct {
	// StartElement is the ID of the first step.
	StartElement string `yaml:"start-element"`
	// Elements maps each step ID to its definition.
	Elements map[string]Step `yaml:"elements"`
}

// Step is a tasklet-oriented processing unit.
type Step struct {
	ID          string       `yaml:"id"`
	Description string       `yaml:"description,omitempty"`
	Tasklet     ComponentRef `yaml:"tasklet"`
	// Transitions are evaluated in order against the step's ExitStatus.
	Transitions []Transition `yaml:"transitions,omitempty"`
	// Listeners is an optional list of StepExecutionListener references applied to this step.
	Listeners                 []ComponentRef             `yaml:"listeners,omitempty"`
	ExecutionContextPromotion *ExecutionContextPromotion `yaml:"execution-context-promotion,omitempty"`
}

// ComponentRef refers to a registered component.
type ComponentRef struct {
	// Ref is the reference name of the component.
	Ref string `yaml:"ref"`
	// Properties are passed to the component builder, which decodes them.
	Properties map[string]interface{} `yaml:"properties,omitempty"`
}

// Transition defines the next element to execute based on the exit status.
type Transition struct {
	// On is the ExitStatus or wildcard ("*") that triggers the transition.
	On string `yaml:"on"`
	// To is the ID of the target step. It is empty when End, Fail or Stop is set.
	To   string `yaml:"to,omitempty"`
	End  bool   `yaml:"end,omitempty"`
	Fail bool   `yaml:"fail,omitempty"`
	Stop bool   `yaml:"stop,omitempty"`
}

// ExecutionContextPromotion defines the promotion settings from StepExecutionContext to JobExecutionContext.
type ExecutionContextPromotion struct {
	// Keys is an optional list of keys to promote.
	Keys []string `yaml:"keys,omitempty"`
	// JobLevelKeys optionally renames promoted keys at the job level (`stepKey: jobKey`).
	JobLevelKeys map[string]string `yaml:"job-level-keys,omitempty"`
}

// ToModel converts the transition to its runtime form.
func (t Transition) ToModel() model.Transition {
	return model.Transition{On: t.On, To: t.To, End: t.End, Fail: t.Fail, Stop: t.Stop}
}

// ToModel converts the promotion settings to their runtime form. A nil receiver yields nil.
func (p *ExecutionContextPromotion) ToModel() *model.ExecutionContextPromotion {
	if p == nil {
		return nil
	}
	return &model.ExecutionContextPromotion{Keys: p.Keys, JobLevelKeys: p.JobLevelKeys}
}

// ComponentBuilder builds the tasklet referenced by a step from the step's JSL properties.
type ComponentBuilder func(cfg *config.Config, properties map[string]interface{}) (port.Tasklet, error)

// ComponentBuilderEntry registers a ComponentBuilder under its JSL reference name.
// Applications provide entries into the ComponentBuilderGroup fx value group.
type ComponentBuilderEntry struct {
	Name    string
	Builder ComponentBuilder
}

// ComponentBuilderGroup is the fx value group collecting ComponentBuilderEntry values.
const ComponentBuilderGroup = "tasklet_builders"

// JobExecutionListenerBuilder builds a JobExecutionListener from JSL properties.
type JobExecutionListenerBuilder func(cfg *config.Config, properties map[string]interface{}) (port.JobExecutionListener, error)

// StepExecutionListenerBuilder builds a StepExecutionListener from JSL properties.
type StepExecutionListenerBuilder func(cfg *config.Config, properties map[string]interface{}) (port.StepExecutionListener, error)
