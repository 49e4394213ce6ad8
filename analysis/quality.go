package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/pipeflow/workflow"
)

// QualityAnalyzer scores document quality from the documents and
// quality_criteria context fields.
type QualityAnalyzer struct{}

// NewQualityAnalyzer creates a document quality component.
func NewQualityAnalyzer() *QualityAnalyzer {
	return &QualityAnalyzer{}
}

// Invoke scores each document against the criteria. A document passes a
// criterion when its text mentions it; the score is the mean pass rate
// across documents.
func (a *QualityAnalyzer) Invoke(ctx context.Context, analysisType string, inputs map[string]any) (workflow.ComponentOutput, error) {
	if err := ctx.Err(); err != nil {
		return workflow.ComponentOutput{}, err
	}

	documents := stringSlice(inputs["documents"])
	criteria := stringSlice(inputs["quality_criteria"])
	if len(documents) == 0 {
		return workflow.ComponentOutput{
			Status: workflow.ComponentStatusError,
			Issues: []string{"no documents provided"},
		}, nil
	}
	if len(criteria) == 0 {
		criteria = []string{"summary", "scope", "owner"}
	}

	var issues []string
	total := 0.0
	for i, doc := range documents {
		hits := 0
		for _, criterion := range criteria {
			if strings.Contains(strings.ToLower(doc), strings.ToLower(criterion)) {
				hits++
			} else {
				issues = append(issues, fmt.Sprintf("document %d missing criterion %q", i+1, criterion))
			}
		}
		total += float64(hits) / float64(len(criteria))
	}

	return workflow.ComponentOutput{
		Status: workflow.ComponentStatusSuccess,
		Score:  total / float64(len(documents)),
		Issues: issues,
		Details: map[string]any{
			"documents_analyzed": len(documents),
			"criteria":           criteria,
		},
	}, nil
}
