package analysis

import (
	"context"

	"github.com/BaSui01/pipeflow/workflow"
)

// ProductivityAnalyzer scores team productivity from the team_members
// and performance_data context fields.
type ProductivityAnalyzer struct{}

// NewProductivityAnalyzer creates a productivity analysis component.
func NewProductivityAnalyzer() *ProductivityAnalyzer {
	return &ProductivityAnalyzer{}
}

// Invoke averages the per-member scores in performance_data over the
// team roster. Members without performance data are reported as issues
// and count as zero.
func (a *ProductivityAnalyzer) Invoke(ctx context.Context, analysisType string, inputs map[string]any) (workflow.ComponentOutput, error) {
	if err := ctx.Err(); err != nil {
		return workflow.ComponentOutput{}, err
	}

	members := stringSlice(inputs["team_members"])
	performance := floatMap(inputs["performance_data"])
	if len(members) == 0 {
		return workflow.ComponentOutput{
			Status: workflow.ComponentStatusError,
			Issues: []string{"no team members provided"},
		}, nil
	}

	var issues []string
	total := 0.0
	for _, member := range members {
		score, ok := performance[member]
		if !ok {
			issues = append(issues, "no performance data for "+member)
			continue
		}
		total += min(max(score, 0), 1)
	}

	return workflow.ComponentOutput{
		Status: workflow.ComponentStatusSuccess,
		Score:  total / float64(len(members)),
		Issues: issues,
		Details: map[string]any{
			"team_size": len(members),
		},
	}, nil
}
