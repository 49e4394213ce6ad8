package workflow

import (
	"sort"

	"go.uber.org/zap"

	"github.com/BaSui01/pipeflow/types"
)

// DependencyGraph maps a step ID to the set of step IDs it depends on.
type DependencyGraph map[string]map[string]struct{}

// markState is the three-state DFS marking used for cycle detection.
type markState int

const (
	markUnvisited markState = iota
	markVisiting
	markVisited
)

// GraphBuilder converts a step list into an adjacency structure and
// computes a dependency-respecting execution order.
type GraphBuilder struct {
	logger *zap.Logger
}

// NewGraphBuilder creates a graph builder. A nil logger is replaced with
// a noop logger.
func NewGraphBuilder(logger *zap.Logger) *GraphBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphBuilder{
		logger: logger.With(zap.String("component", "graph_builder")),
	}
}

// Build converts steps into a dependency graph. It validates the same
// structural invariants as WorkflowDefinition.Validate so that the graph
// is usable even when the caller skipped registration-time validation.
func (b *GraphBuilder) Build(steps []WorkflowStep) (DependencyGraph, error) {
	graph := make(DependencyGraph, len(steps))
	for _, step := range steps {
		if _, dup := graph[step.ID]; dup {
			return nil, types.NewError(types.ErrDuplicateStepID, "duplicate step id: "+step.ID).
				WithStep(step.ID)
		}
		deps := make(map[string]struct{}, len(step.Dependencies))
		for _, dep := range step.Dependencies {
			deps[dep] = struct{}{}
		}
		graph[step.ID] = deps
	}

	for stepID, deps := range graph {
		for dep := range deps {
			if dep == stepID {
				return nil, types.NewError(types.ErrSelfDependency, "step "+stepID+" depends on itself").
					WithStep(stepID)
			}
			if _, ok := graph[dep]; !ok {
				return nil, types.NewError(types.ErrUnknownDependency,
					"step "+stepID+" depends on unknown step "+dep).
					WithStep(stepID)
			}
		}
	}

	return graph, nil
}

// Order computes a topological order of the graph via depth-first
// traversal with three-state marking. Every step appears after all of its
// dependencies. Encountering a node already in the visiting state signals
// a cycle and fails with CYCLE_DETECTED naming the step; no partial order
// is returned. An empty graph yields an empty order.
func (b *GraphBuilder) Order(graph DependencyGraph) ([]string, error) {
	marks := make(map[string]markState, len(graph))
	order := make([]string, 0, len(graph))

	// Sorted roots keep the order deterministic across runs.
	roots := make([]string, 0, len(graph))
	for stepID := range graph {
		roots = append(roots, stepID)
	}
	sort.Strings(roots)

	var visit func(stepID string) error
	visit = func(stepID string) error {
		switch marks[stepID] {
		case markVisited:
			return nil
		case markVisiting:
			return types.NewError(types.ErrCycleDetected,
				"dependency cycle involving step "+stepID).WithStep(stepID)
		}

		marks[stepID] = markVisiting

		deps := make([]string, 0, len(graph[stepID]))
		for dep := range graph[stepID] {
			deps = append(deps, dep)
		}
		sort.Strings(deps)
		for _, dep := range deps {
			if err := visit(dep); err != nil {
				return err
			}
		}

		marks[stepID] = markVisited
		order = append(order, stepID)
		return nil
	}

	for _, stepID := range roots {
		if err := visit(stepID); err != nil {
			return nil, err
		}
	}

	b.logger.Debug("computed execution order", zap.Int("steps", len(order)))
	return order, nil
}
