package sql

import (
	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/serialization"
)

func fromDomainJobInstance(ji *model.JobInstance) (*JobInstanceEntity, error) {
	params, err := serialization.MarshalJobParameters(ji.Parameters.Params)
	if err != nil {
		return nil, err
	}
	return &JobInstanceEntity{
		ID:             ji.ID,
		JobName:        ji.JobName,
		Parameters:     string(params),
		CreateTime:     ji.CreateTime,
		Version:        ji.Version,
		ParametersHash: ji.ParametersHash,
	}, nil
}

func toDomainJobInstance(entity *JobInstanceEntity) (*model.JobInstance, error) {
	params := model.NewJobParameters()
	if entity.Parameters != "" {
		if err := serialization.UnmarshalJobParameters([]byte(entity.Parameters), &params.Params); err != nil {
			return nil, err
		}
	}
	return &model.JobInstance{
		ID:             entity.ID,
		JobName:        entity.JobName,
		Parameters:     params,
		CreateTime:     entity.CreateTime,
		Version:        entity.Version,
		ParametersHash: entity.ParametersHash,
	}, nil
}

func fromDomainJobExecution(je *model.JobExecution) (*JobExecutionEntity, error) {
	params, err := serialization.MarshalJobParameters(je.Parameters.Params)
	if err != nil {
		return nil, err
	}
	failures, err := serialization.MarshalFailures(je.Failures)
	if err != nil {
		return nil, err
	}
	ec, err := serialization.MarshalExecutionContext(je.ExecutionContext)
	if err != nil {
		return nil, err
	}
	return &JobExecutionEntity{
		ID:               je.ID,
		JobInstanceID:    je.JobInstanceID,
		JobName:          je.JobName,
		Parameters:       string(params),
		StartTime:        je.StartTime,
		EndTime:          je.EndTime,
		Status:           string(je.Status),
		ExitStatus:       string(je.ExitStatus),
		ExitCode:         je.ExitCode,
		Failures:         string(failures),
		Version:          je.Version,
		CreateTime:       je.CreateTime,
		LastUpdated:      je.LastUpdated,
		ExecutionContext: string(ec),
		CurrentStepName:  je.CurrentStepName,
	}, nil
}

func toDomainJobExecution(entity *JobExecutionEntity) (*model.JobExecution, error) {
	params := model.NewJobParameters()
	if entity.Parameters != "" {
		if err := serialization.UnmarshalJobParameters([]byte(entity.Parameters), &params.Params); err != nil {
			return nil, err
		}
	}
	var failures []string
	if err := serialization.UnmarshalFailures([]byte(entity.Failures), &failures); err != nil {
		return nil, err
	}
	var ec map[string]interface{}
	if err := serialization.UnmarshalExecutionContext([]byte(entity.ExecutionContext), &ec); err != nil {
		return nil, err
	}
	return &model.JobExecution{
		ID:               entity.ID,
		JobInstanceID:    entity.JobInstanceID,
		JobName:          entity.JobName,
		Parameters:       params,
		StartTime:        entity.StartTime,
		EndTime:          entity.EndTime,
		Status:           model.JobStatus(entity.Status),
		ExitStatus:       model.ExitStatus(entity.ExitStatus),
		ExitCode:         entity.ExitCode,
		Failures:         failures,
		Version:          entity.Version,
		CreateTime:       entity.CreateTime,
		LastUpdated:      entity.LastUpdated,
		StepExecutions:   make([]*model.StepExecution, 0),
		ExecutionContext: ec,
		CurrentStepName:  entity.CurrentStepName,
	}, nil
}

func fromDomainStepExecution(se *model.StepExecution) (*StepExecutionEntity, error) {
	failures, err := serialization.MarshalFailures(se.Failures)
	if err != nil {
		return nil, err
	}
	ec, err := serialization.MarshalExecutionContext(se.ExecutionContext)
	if err != nil {
		return nil, err
	}
	return &StepExecutionEntity{
		ID:               se.ID,
		StepName:         se.StepName,
		JobExecutionID:   se.JobExecutionID,
		StartTime:        se.StartTime,
		EndTime:          se.EndTime,
		Status:           string(se.Status),
		ExitStatus:       string(se.ExitStatus),
		Failures:         string(failures),
		ReadCount:        se.ReadCount,
		WriteCount:       se.WriteCount,
		FilterCount:      se.FilterCount,
		ExecutionContext: string(ec),
		LastUpdated:      se.LastUpdated,
		Version:          se.Version,
	}, nil
}

func toDomainStepExecution(entity *StepExecutionEntity) (*model.StepExecution, error) {
	var failures []string
	if err := serialization.UnmarshalFailures([]byte(entity.Failures), &failures); err != nil {
		return nil, err
	}
	var ec map[string]interface{}
	if err := serialization.UnmarshalExecutionContext([]byte(entity.ExecutionContext), &ec); err != nil {
		return nil, err
	}
	return &model.StepExecution{
		ID:               entity.ID,
		StepName:         entity.StepName,
		JobExecutionID:   entity.JobExecutionID,
		StartTime:        entity.StartTime,
		EndTime:          entity.EndTime,
		Status:           model.JobStatus(entity.Status),
		ExitStatus:       model.ExitStatus(entity.ExitStatus),
		Failures:         failures,
		ReadCount:        entity.ReadCount,
		WriteCount:       entity.WriteCount,
		FilterCount:      entity.FilterCount,
		ExecutionContext: ec,
		LastUpdated:      entity.LastUpdated,
		Version:          entity.Version,
	}, nil
}
