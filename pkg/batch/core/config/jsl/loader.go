package jsl

import (
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

var (
	// loadedJobDefinitions holds every job loaded with LoadJSLDefinitionFromBytes, keyed by job ID.
	loadedJobDefinitions = make(map[string]Job)
	definitionsMu        sync.RWMutex
)

// ParseJSLDefinition parses and validates one JSL document without registering it.
func ParseJSLDefinition(data []byte) (Job, error) {
	var jobDef Job
	if err := yaml.Unmarshal(data, &jobDef); err != nil {
		return Job{}, exception.NewBatchError("jsl_loader", "Failed to parse JSL file", err, false, false)
	}
	if err := Validate(jobDef); err != nil {
		return Job{}, err
	}
	return jobDef, nil
}

// Validate checks the structure of a job definition: identifiers, tasklet refs and
// transition targets.
func Validate(jobDef Job) error {
	if jobDef.ID == "" {
		return exception.NewBatchErrorf("jsl_loader", "'id' is not defined in JSL file")
	}
	if jobDef.Name == "" {
		return exception.NewBatchErrorf("jsl_loader", "JSL job '%s' does not have 'name' defined", jobDef.ID)
	}
	if jobDef.Flow.StartElement == "" {
		return exception.NewBatchErrorf("jsl_loader", "JSL job '%s' flow does not have 'start-element' defined", jobDef.ID)
	}
	if len(jobDef.Flow.Elements) == 0 {
		return exception.NewBatchErrorf("jsl_loader", "JSL job '%s' flow does not have 'elements' defined", jobDef.ID)
	}
	if _, ok := jobDef.Flow.Elements[jobDef.Flow.StartElement]; !ok {
		return exception.NewBatchErrorf("jsl_loader", "JSL job '%s': start-element '%s' not found in 'elements'", jobDef.ID, jobDef.Flow.StartElement)
	}

	for id, step := range jobDef.Flow.Elements {
		if step.ID != id {
			return exception.NewBatchErrorf("jsl_loader", "JSL job '%s': step ID '%s' does not match map key '%s'", jobDef.ID, step.ID, id)
		}
		if step.Tasklet.Ref == "" {
			return exception.NewBatchErrorf("jsl_loader", "JSL job '%s': step '%s' does not have 'tasklet.ref' defined", jobDef.ID, id)
		}
		for i, t := range step.Transitions {
			if t.On == "" {
				return exception.NewBatchErrorf("jsl_loader", "JSL job '%s': transition %d of step '%s' has no 'on'", jobDef.ID, i, id)
			}
			actions := 0
			for _, set := range []bool{t.To != "", t.End, t.Fail, t.Stop} {
				if set {
					actions++
				}
			}
			if actions != 1 {
				return exception.NewBatchErrorf("jsl_loader", "JSL job '%s': transition %d of step '%s' must set exactly one of 'to', 'end', 'fail' or 'stop'", jobDef.ID, i, id)
			}
			if t.To != "" {
				if _, ok := jobDef.Flow.Elements[t.To]; !ok {
					return exception.NewBatchErrorf("jsl_loader", "JSL job '%s': transition of step '%s' targets unknown element '%s'", jobDef.ID, id, t.To)
				}
			}
		}
	}
	return nil
}

// LoadJSLDefinitionFromBytes parses one JSL document and registers it under its job ID.
func LoadJSLDefinitionFromBytes(data []byte) error {
	logger.Infof("Starting JSL definition loading.")

	jobDef, err := ParseJSLDefinition(data)
	if err != nil {
		return err
	}

	definitionsMu.Lock()
	defer definitionsMu.Unlock()
	if _, exists := loadedJobDefinitions[jobDef.ID]; exists {
		return exception.NewBatchError("jsl_loader", fmt.Sprintf("JSL Job ID '%s' is duplicated", jobDef.ID), nil, false, false)
	}
	loadedJobDefinitions[jobDef.ID] = jobDef

	logger.Infof("Loaded JSL job '%s' with %d steps.", jobDef.ID, len(jobDef.Flow.Elements))
	return nil
}

// GetJobDefinition retrieves a JSL Job definition by its ID.
func GetJobDefinition(jobID string) (Job, bool) {
	definitionsMu.RLock()
	defer definitionsMu.RUnlock()
	job, ok := loadedJobDefinitions[jobID]
	return job, ok
}

// GetLoadedJobIDs returns the IDs of the loaded jobs, sorted.
func GetLoadedJobIDs() []string {
	definitionsMu.RLock()
	defer definitionsMu.RUnlock()
	ids := make([]string, 0, len(loadedJobDefinitions))
	for id := range loadedJobDefinitions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
