package workflow

import (
	"time"

	"github.com/BaSui01/pipeflow/types"
)

// WorkflowStep is one unit of work in a workflow, tagged with an analysis
// type and a set of prerequisite step IDs.
type WorkflowStep struct {
	// ID is the step identifier, unique within the workflow
	ID string `json:"id" yaml:"id"`
	// Name is a human-readable step name
	Name string `json:"name" yaml:"name"`
	// AnalysisType selects the analysis component that runs this step
	AnalysisType string `json:"analysis_type" yaml:"analysis_type"`
	// Dependencies lists step IDs that must complete before this step
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	// Parameters is an opaque parameter map passed to the component
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	// Timeout bounds a single component invocation (0 = no limit)
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// WorkflowDefinition is a named, ordered set of steps with dependency
// constraints, reusable as an analysis pipeline template.
type WorkflowDefinition struct {
	// Name is the workflow identifier
	Name string `json:"name" yaml:"name"`
	// Description describes the workflow
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Steps contains the ordered step definitions
	Steps []WorkflowStep `json:"steps" yaml:"steps"`
}

// Validate checks the structural invariants that can be verified without
// ordering the graph: unique step IDs, no self-dependencies, and
// dependencies that reference only steps within the workflow.
// Cycle detection is the ordering pass's job, see GraphBuilder.Order.
func (d *WorkflowDefinition) Validate() error {
	seen := make(map[string]struct{}, len(d.Steps))
	for _, step := range d.Steps {
		if step.ID == "" {
			return types.NewError(types.ErrInvalidDefinition, "step with empty id").WithWorkflow(d.Name)
		}
		if _, dup := seen[step.ID]; dup {
			return types.NewError(types.ErrDuplicateStepID, "duplicate step id: "+step.ID).
				WithWorkflow(d.Name).WithStep(step.ID)
		}
		seen[step.ID] = struct{}{}
	}

	for _, step := range d.Steps {
		for _, dep := range step.Dependencies {
			if dep == step.ID {
				return types.NewError(types.ErrSelfDependency, "step "+step.ID+" depends on itself").
					WithWorkflow(d.Name).WithStep(step.ID)
			}
			if _, ok := seen[dep]; !ok {
				return types.NewError(types.ErrUnknownDependency,
					"step "+step.ID+" depends on unknown step "+dep).
					WithWorkflow(d.Name).WithStep(step.ID)
			}
		}
	}

	return nil
}

// AnalysisTypes returns the distinct analysis types used by the workflow.
func (d *WorkflowDefinition) AnalysisTypes() []string {
	seen := make(map[string]struct{}, len(d.Steps))
	var result []string
	for _, step := range d.Steps {
		if _, ok := seen[step.AnalysisType]; ok {
			continue
		}
		seen[step.AnalysisType] = struct{}{}
		result = append(result, step.AnalysisType)
	}
	return result
}

// CloneSteps returns a deep copy of the step list so an execution never
// aliases catalog state.
func (d *WorkflowDefinition) CloneSteps() []WorkflowStep {
	steps := make([]WorkflowStep, len(d.Steps))
	for i, step := range d.Steps {
		steps[i] = step
		steps[i].Dependencies = append([]string(nil), step.Dependencies...)
		if step.Parameters != nil {
			params := make(map[string]any, len(step.Parameters))
			for k, v := range step.Parameters {
				params[k] = v
			}
			steps[i].Parameters = params
		}
	}
	return steps
}

// WorkflowInfo summarizes a registered workflow for listings.
type WorkflowInfo struct {
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	StepCount     int      `json:"step_count"`
	AnalysisTypes []string `json:"analysis_types"`
}
