package tasklet_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	port "github.com/tigerroll/temperature-etl/pkg/batch/core/application/port"
	model "github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	taskletStep "github.com/tigerroll/temperature-etl/pkg/batch/engine/step/tasklet"
	"github.com/tigerroll/temperature-etl/pkg/batch/infrastructure/repository/inmemory"
)

type mockTasklet struct {
	mock.Mock
	ec model.ExecutionContext
}

func (m *mockTasklet) Execute(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
	args := m.Called(ctx, se)
	m.ec.Put("tasklet.ran", true)
	return args.Get(0).(model.ExitStatus), args.Error(1)
}

func (m *mockTasklet) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockTasklet) SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error {
	m.ec = ec
	return nil
}

func (m *mockTasklet) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return m.ec, nil
}

type recordingListener struct {
	events []string
}

func (l *recordingListener) BeforeStep(ctx context.Context, se *model.StepExecution) {
	l.events = append(l.events, "before:"+se.Status.String())
}

func (l *recordingListener) AfterStep(ctx context.Context, se *model.StepExecution) {
	l.events = append(l.events, "after:"+se.Status.String())
}

func setup(t *testing.T) (*inmemory.InMemoryJobRepository, *model.JobExecution, *model.StepExecution) {
	t.Helper()
	ctx := context.Background()
	repo := inmemory.NewInMemoryJobRepository()
	je := model.NewJobExecution("instance", "job", model.NewJobParameters())
	require.NoError(t, repo.SaveJobExecution(ctx, je))
	se := model.NewStepExecution(model.NewID(), je, "step")
	require.NoError(t, repo.SaveStepExecution(ctx, se))
	return repo, je, se
}

func TestTaskletStep_Completes(t *testing.T) {
	repo, je, se := setup(t)
	tasklet := new(mockTasklet)
	tasklet.On("Execute", mock.Anything, se).Return(model.ExitStatusCompleted, nil).Once()
	tasklet.On("Close", mock.Anything).Return(nil).Once()
	listener := &recordingListener{}

	step := taskletStep.NewTaskletStep("step", tasklet, repo, []port.StepExecutionListener{listener}, nil, nil, nil)
	require.NoError(t, step.Execute(context.Background(), je, se))

	assert.Equal(t, model.BatchStatusCompleted, se.Status)
	assert.Equal(t, model.ExitStatusCompleted, se.ExitStatus)
	assert.NotNil(t, se.EndTime)
	assert.Equal(t, []string{"before:STARTED", "after:COMPLETED"}, listener.events)

	ran, ok := se.ExecutionContext.Get("tasklet.ran")
	require.True(t, ok)
	assert.Equal(t, true, ran)

	stored, err := repo.FindStepExecutionByID(context.Background(), se.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, stored.Status)
	_, ok = stored.ExecutionContext.Get("tasklet.ran")
	assert.True(t, ok)
	tasklet.AssertExpectations(t)
}

func TestTaskletStep_CustomExitStatus(t *testing.T) {
	repo, je, se := setup(t)
	tasklet := new(mockTasklet)
	tasklet.On("Execute", mock.Anything, se).Return(model.ExitStatus("PARTIAL"), nil)
	tasklet.On("Close", mock.Anything).Return(nil)

	step := taskletStep.NewTaskletStep("step", tasklet, repo, nil, nil, nil, nil)
	require.NoError(t, step.Execute(context.Background(), je, se))

	assert.Equal(t, model.BatchStatusCompleted, se.Status)
	assert.Equal(t, model.ExitStatus("PARTIAL"), se.ExitStatus)
}

func TestTaskletStep_Failures(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name       string
		execErr    error
		closeErr   error
		wantStatus model.JobStatus
		wantErr    error
	}{
		{name: "execute error", execErr: boom, wantStatus: model.BatchStatusFailed, wantErr: boom},
		{name: "close error", closeErr: boom, wantStatus: model.BatchStatusFailed, wantErr: boom},
		{name: "cancelled", execErr: fmt.Errorf("reading: %w", context.Canceled), wantStatus: model.BatchStatusStopped, wantErr: context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, je, se := setup(t)
			tasklet := new(mockTasklet)
			tasklet.On("Execute", mock.Anything, se).Return(model.ExitStatusFailed, tt.execErr)
			tasklet.On("Close", mock.Anything).Return(tt.closeErr).Once()
			listener := &recordingListener{}

			step := taskletStep.NewTaskletStep("step", tasklet, repo, []port.StepExecutionListener{listener}, nil, nil, nil)
			err := step.Execute(context.Background(), je, se)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantStatus, se.Status)
			assert.NotEmpty(t, se.Failures)
			assert.Equal(t, "after:"+tt.wantStatus.String(), listener.events[len(listener.events)-1])

			stored, err := repo.FindStepExecutionByID(context.Background(), se.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, stored.Status)
			tasklet.AssertExpectations(t)
		})
	}
}

func TestTaskletStep_Accessors(t *testing.T) {
	promotion := &model.ExecutionContextPromotion{Keys: []string{"a"}}
	tasklet := new(mockTasklet)
	step := taskletStep.NewTaskletStep("load", tasklet, inmemory.NewInMemoryJobRepository(), nil, promotion, nil, nil)

	assert.Equal(t, "load", step.ID())
	assert.Equal(t, "load", step.StepName())
	assert.Same(t, promotion, step.GetExecutionContextPromotion())
	assert.Same(t, tasklet, step.Tasklet())
}
