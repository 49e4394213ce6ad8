package analysis

import "github.com/BaSui01/pipeflow/workflow"

// RegisterDefaults binds the reference components to the built-in
// analysis types on the given registry.
func RegisterDefaults(registry *workflow.ComponentRegistry) {
	registry.Register(workflow.AnalysisTypeDocumentQuality, NewQualityAnalyzer())
	registry.Register(workflow.AnalysisTypeRiskAnalysis, NewRiskAnalyzer())
	registry.Register(workflow.AnalysisTypeProductivity, NewProductivityAnalyzer())
}

// stringSlice coerces []string and []any inputs into []string, skipping
// non-string elements.
func stringSlice(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	default:
		return nil
	}
}

// floatMap coerces map[string]float64 and map[string]any inputs into
// map[string]float64, skipping non-numeric values.
func floatMap(value any) map[string]float64 {
	switch v := value.(type) {
	case map[string]float64:
		return v
	case map[string]any:
		result := make(map[string]float64, len(v))
		for key, item := range v {
			switch n := item.(type) {
			case float64:
				result[key] = n
			case int:
				result[key] = float64(n)
			}
		}
		return result
	default:
		return nil
	}
}
