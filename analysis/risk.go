package analysis

import (
	"context"

	"github.com/BaSui01/pipeflow/workflow"
)

// Severity weights for known risk factor categories; unknown factors
// carry the default weight.
var riskWeights = map[string]float64{
	"schedule":   0.15,
	"budget":     0.15,
	"technical":  0.2,
	"compliance": 0.25,
	"security":   0.25,
}

const defaultRiskWeight = 0.1

// RiskAnalyzer scores project risk from the project_data and
// risk_factors context fields.
type RiskAnalyzer struct{}

// NewRiskAnalyzer creates a risk analysis component.
func NewRiskAnalyzer() *RiskAnalyzer {
	return &RiskAnalyzer{}
}

// Invoke sums weighted risk factors, capped at 1. Factors past the cap
// are still reported as issues.
func (a *RiskAnalyzer) Invoke(ctx context.Context, analysisType string, inputs map[string]any) (workflow.ComponentOutput, error) {
	if err := ctx.Err(); err != nil {
		return workflow.ComponentOutput{}, err
	}

	factors := stringSlice(inputs["risk_factors"])

	score := 0.0
	issues := make([]string, 0, len(factors))
	for _, factor := range factors {
		weight, ok := riskWeights[factor]
		if !ok {
			weight = defaultRiskWeight
		}
		score += weight
		issues = append(issues, "risk factor present: "+factor)
	}
	score = min(score, 1)

	return workflow.ComponentOutput{
		Status: workflow.ComponentStatusSuccess,
		Score:  score,
		Issues: issues,
		Details: map[string]any{
			"factor_count": len(factors),
			"project_data": inputs["project_data"],
		},
	}, nil
}
