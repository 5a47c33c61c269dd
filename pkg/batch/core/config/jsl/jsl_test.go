package jsl_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	port "github.com/tigerroll/temperature-etl/pkg/batch/core/application/port"
	config "github.com/tigerroll/temperature-etl/pkg/batch/core/config"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/config/jsl"
	model "github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/temperature-etl/pkg/batch/infrastructure/repository/inmemory"
)

const twoStepJob = `
id: twoStepJob
name: twoStepJob
flow:
  start-element: first
  elements:
    first:
      id: first
      tasklet:
        ref: echoTasklet
        properties:
          message: hello
          columns: [a, b]
      transitions:
        - on: COMPLETED
          to: second
        - on: "*"
          fail: true
      execution-context-promotion:
        keys: [echo.message]
    second:
      id: second
      tasklet:
        ref: echoTasklet
      transitions:
        - on: COMPLETED
          end: true
`

type echoTasklet struct {
	props map[string]interface{}
	ec    model.ExecutionContext
}

func (t *echoTasklet) Execute(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
	t.ec.Put("echo.message", t.props["message"])
	return model.ExitStatusCompleted, nil
}
func (t *echoTasklet) Close(ctx context.Context) error { return nil }
func (t *echoTasklet) SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error {
	t.ec = ec
	return nil
}
func (t *echoTasklet) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return t.ec, nil
}

func echoBuilder(cfg *config.Config, props map[string]interface{}) (port.Tasklet, error) {
	return &echoTasklet{props: props}, nil
}

func TestParseJSLDefinition(t *testing.T) {
	job, err := jsl.ParseJSLDefinition([]byte(twoStepJob))
	require.NoError(t, err)

	assert.Equal(t, "twoStepJob", job.ID)
	assert.Equal(t, "first", job.Flow.StartElement)
	require.Len(t, job.Flow.Elements, 2)
	first := job.Flow.Elements["first"]
	assert.Equal(t, "echoTasklet", first.Tasklet.Ref)
	assert.Equal(t, "hello", first.Tasklet.Properties["message"])
	assert.Equal(t, []interface{}{"a", "b"}, first.Tasklet.Properties["columns"])
	assert.Equal(t, []string{"echo.message"}, first.ExecutionContextPromotion.Keys)
	assert.True(t, first.Transitions[1].Fail)
}

func TestParseJSLDefinition_Invalid(t *testing.T) {
	cases := map[string]string{
		"not yaml":        "id: [",
		"missing id":      "name: x\nflow:\n  start-element: a\n  elements:\n    a: {id: a, tasklet: {ref: t}}\n",
		"missing name":    "id: x\nflow:\n  start-element: a\n  elements:\n    a: {id: a, tasklet: {ref: t}}\n",
		"missing start":   "id: x\nname: x\nflow:\n  elements:\n    a: {id: a, tasklet: {ref: t}}\n",
		"no elements":     "id: x\nname: x\nflow:\n  start-element: a\n",
		"unknown start":   "id: x\nname: x\nflow:\n  start-element: b\n  elements:\n    a: {id: a, tasklet: {ref: t}}\n",
		"id mismatch":     "id: x\nname: x\nflow:\n  start-element: a\n  elements:\n    a: {id: z, tasklet: {ref: t}}\n",
		"missing tasklet": "id: x\nname: x\nflow:\n  start-element: a\n  elements:\n    a: {id: a}\n",
		"unknown target":  "id: x\nname: x\nflow:\n  start-element: a\n  elements:\n    a: {id: a, tasklet: {ref: t}, transitions: [{on: COMPLETED, to: b}]}\n",
		"two actions":     "id: x\nname: x\nflow:\n  start-element: a\n  elements:\n    a: {id: a, tasklet: {ref: t}, transitions: [{on: COMPLETED, end: true, fail: true}]}\n",
		"missing on":      "id: x\nname: x\nflow:\n  start-element: a\n  elements:\n    a: {id: a, tasklet: {ref: t}, transitions: [{end: true}]}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := jsl.ParseJSLDefinition([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadJSLDefinitionFromBytes_RejectsDuplicateID(t *testing.T) {
	doc := "id: loaderDuplicateJob\nname: x\nflow:\n  start-element: a\n  elements:\n    a: {id: a, tasklet: {ref: t}}\n"
	require.NoError(t, jsl.LoadJSLDefinitionFromBytes([]byte(doc)))
	assert.Error(t, jsl.LoadJSLDefinitionFromBytes([]byte(doc)))

	job, ok := jsl.GetJobDefinition("loaderDuplicateJob")
	require.True(t, ok)
	assert.Equal(t, "a", job.Flow.StartElement)
	assert.Contains(t, jsl.GetLoadedJobIDs(), "loaderDuplicateJob")
}

func TestConvertJSLToCoreFlow(t *testing.T) {
	job, err := jsl.ParseJSLDefinition([]byte(twoStepJob))
	require.NoError(t, err)

	flow, err := jsl.ConvertJSLToCoreFlow(job.Flow, jsl.FlowConversionParams{
		Config:            config.NewConfig(),
		JobRepository:     inmemory.NewInMemoryJobRepository(),
		ComponentBuilders: map[string]jsl.ComponentBuilder{"echoTasklet": echoBuilder},
	})
	require.NoError(t, err)

	assert.Equal(t, "first", flow.StartElement)
	require.Len(t, flow.Elements, 2)
	step, ok := flow.Elements["first"].(port.Step)
	require.True(t, ok)
	assert.Equal(t, "first", step.StepName())
	assert.Equal(t, []string{"echo.message"}, step.GetExecutionContextPromotion().Keys)

	rule, ok := flow.GetTransitionRule("first", model.ExitStatusCompleted)
	require.True(t, ok)
	assert.Equal(t, "second", rule.Transition.To)
	rule, ok = flow.GetTransitionRule("first", model.ExitStatusFailed)
	require.True(t, ok)
	assert.True(t, rule.Transition.Fail)
}

func TestConvertJSLToCoreFlow_BuilderErrors(t *testing.T) {
	job, err := jsl.ParseJSLDefinition([]byte(twoStepJob))
	require.NoError(t, err)

	_, err = jsl.ConvertJSLToCoreFlow(job.Flow, jsl.FlowConversionParams{
		Config:        config.NewConfig(),
		JobRepository: inmemory.NewInMemoryJobRepository(),
	})
	assert.Error(t, err, "unregistered tasklet builder")

	failing := func(cfg *config.Config, props map[string]interface{}) (port.Tasklet, error) {
		return nil, errors.New("bad properties")
	}
	_, err = jsl.ConvertJSLToCoreFlow(job.Flow, jsl.FlowConversionParams{
		Config:            config.NewConfig(),
		JobRepository:     inmemory.NewInMemoryJobRepository(),
		ComponentBuilders: map[string]jsl.ComponentBuilder{"echoTasklet": failing},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad properties")
}
