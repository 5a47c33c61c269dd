package model

import "fmt"

// Transition defines the next element to execute for a given exit status.
type Transition struct {
	On   string `yaml:"on"`
	To   string `yaml:"to,omitempty"`
	End  bool   `yaml:"end,omitempty"`
	Fail bool   `yaml:"fail,omitempty"`
	Stop bool   `yaml:"stop,omitempty"`
}

// TransitionRule binds a Transition to its source element.
type TransitionRule struct {
	From       string
	Transition Transition
}

// FlowDefinition is the executable form of a job flow.
// Elements hold the built steps keyed by ID; they are typed interface{} so that this
// package does not depend on the port package.
type FlowDefinition struct {
	StartElement    string
	Elements        map[string]interface{}
	TransitionRules []TransitionRule
}

// NewFlowDefinition creates an empty FlowDefinition.
func NewFlowDefinition(startElement string) *FlowDefinition {
	return &FlowDefinition{
		StartElement:    startElement,
		Elements:        make(map[string]interface{}),
		TransitionRules: make([]TransitionRule, 0),
	}
}

// AddElement adds a flow element. IDs must be unique.
func (fd *FlowDefinition) AddElement(id string, element interface{}) error {
	if _, exists := fd.Elements[id]; exists {
		return fmt.Errorf("flow element ID '%s' already exists", id)
	}
	fd.Elements[id] = element
	return nil
}

// AddTransitionRule appends a transition rule. Rules are matched in insertion order.
func (fd *FlowDefinition) AddTransitionRule(from string, t Transition) {
	fd.TransitionRules = append(fd.TransitionRules, TransitionRule{From: from, Transition: t})
}

// GetTransitionRule returns the first rule from `from` whose On equals exitStatus or "*".
func (fd *FlowDefinition) GetTransitionRule(from string, exitStatus ExitStatus) (TransitionRule, bool) {
	for _, rule := range fd.TransitionRules {
		if rule.From == from && (rule.Transition.On == string(exitStatus) || rule.Transition.On == "*") {
			return rule, true
		}
	}
	return TransitionRule{}, false
}

// ExecutionContextPromotion lists step ExecutionContext keys copied into the job ExecutionContext
// when the step completes. JobLevelKeys optionally renames them.
type ExecutionContextPromotion struct {
	Keys         []string          `yaml:"keys,omitempty"`
	JobLevelKeys map[string]string `yaml:"job-level-keys,omitempty"`
}

// Promote copies the configured keys from stepEC into jobEC and returns the job-level names written.
func (p *ExecutionContextPromotion) Promote(stepEC, jobEC ExecutionContext) []string {
	if p == nil {
		return nil
	}
	var promoted []string
	for _, key := range p.Keys {
		val, ok := stepEC.Get(key)
		if !ok {
			continue
		}
		jobKey := key
		if renamed, ok := p.JobLevelKeys[key]; ok && renamed != "" {
			jobKey = renamed
		}
		jobEC.Put(jobKey, val)
		promoted = append(promoted, jobKey)
	}
	return promoted
}
