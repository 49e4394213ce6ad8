package workflow

import "sync"

// Built-in analysis type tags understood by the default input selectors
// and the recommendation synthesizer.
const (
	AnalysisTypeDocumentQuality = "document_quality"
	AnalysisTypeRiskAnalysis    = "risk_analysis"
	AnalysisTypeProductivity    = "productivity_analysis"
)

// InputSelector picks the context fields an analysis type consumes. The
// returned map is merged over the step's own parameters when preparing
// component inputs.
type InputSelector func(execContext map[string]any) map[string]any

// SelectorRegistry maps analysis types to input selectors, keeping
// supported types explicit and extensible without a central conditional
// chain.
type SelectorRegistry struct {
	mu        sync.RWMutex
	selectors map[string]InputSelector
}

// NewSelectorRegistry creates a registry preloaded with the built-in
// selectors.
func NewSelectorRegistry() *SelectorRegistry {
	r := &SelectorRegistry{selectors: make(map[string]InputSelector)}
	r.Register(AnalysisTypeDocumentQuality, contextFieldSelector("documents", "quality_criteria"))
	r.Register(AnalysisTypeRiskAnalysis, contextFieldSelector("project_data", "risk_factors"))
	r.Register(AnalysisTypeProductivity, contextFieldSelector("team_members", "performance_data"))
	return r
}

// Register binds an analysis type to a selector, replacing any previous
// binding.
func (r *SelectorRegistry) Register(analysisType string, selector InputSelector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selectors[analysisType] = selector
}

// Select prepares the context-derived inputs for a step. Unmapped types
// receive only the execution's additional_inputs field, when present.
func (r *SelectorRegistry) Select(analysisType string, execContext map[string]any) map[string]any {
	r.mu.RLock()
	selector, ok := r.selectors[analysisType]
	r.mu.RUnlock()

	if !ok {
		return contextFieldSelector("additional_inputs")(execContext)
	}
	return selector(execContext)
}

// contextFieldSelector builds a selector that copies the named fields
// from the execution context when they are present.
func contextFieldSelector(fields ...string) InputSelector {
	return func(execContext map[string]any) map[string]any {
		selected := make(map[string]any, len(fields))
		for _, field := range fields {
			if value, ok := execContext[field]; ok {
				selected[field] = value
			}
		}
		return selected
	}
}
