package workflow

import "time"

// Component output status values reported by analysis components.
const (
	// ComponentStatusSuccess indicates the component produced a usable result
	ComponentStatusSuccess = "success"
	// ComponentStatusError indicates the component reported a degraded result
	ComponentStatusError = "error"
)

// ComponentOutput is the raw result of one analysis component invocation.
// This is the only contract the engine requires of a component.
type ComponentOutput struct {
	// Status is "success" or "error"
	Status string `json:"status"`
	// Score is the component's primary score for the analyzed subject
	Score float64 `json:"score"`
	// Issues lists problems the component found
	Issues []string `json:"issues,omitempty"`
	// Recommendations lists suggested actions, possibly empty
	Recommendations []string `json:"recommendations,omitempty"`
	// Details carries component-specific payload
	Details map[string]any `json:"details,omitempty"`
}

// StepResult is a normalized, post-processed step outcome: the raw
// component output plus attached step metadata, a confidence score in
// [0,1], and recommendations (synthesized when the component returned
// none).
type StepResult struct {
	StepID          string          `json:"step_id"`
	StepName        string          `json:"step_name"`
	AnalysisType    string          `json:"analysis_type"`
	Output          ComponentOutput `json:"output"`
	Timestamp       time.Time       `json:"timestamp"`
	ConfidenceScore float64         `json:"confidence_score"`
	Recommendations []string        `json:"recommendations,omitempty"`
}
