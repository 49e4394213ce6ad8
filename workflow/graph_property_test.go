package workflow

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/BaSui01/pipeflow/types"
)

// randomDAG builds steps s0..s(n-1) where each step depends on a random
// subset of earlier steps, so the result is acyclic by construction.
func randomDAG(nodeCount int, seed int64) []WorkflowStep {
	rng := rand.New(rand.NewSource(seed))
	steps := make([]WorkflowStep, 0, nodeCount)
	for i := 0; i < nodeCount; i++ {
		s := step(fmt.Sprintf("s%d", i))
		for j := 0; j < i; j++ {
			if rng.Intn(3) == 0 {
				s.Dependencies = append(s.Dependencies, fmt.Sprintf("s%d", j))
			}
		}
		steps = append(steps, s)
	}
	return steps
}

func TestProperty_OrderRespectsDependencies(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("every step appears once, after all its dependencies", prop.ForAll(
		func(nodeCount int, seed int64) bool {
			steps := randomDAG(nodeCount, seed)
			b := NewGraphBuilder(nil)

			graph, err := b.Build(steps)
			if err != nil {
				t.Logf("Build failed: %v", err)
				return false
			}
			order, err := b.Order(graph)
			if err != nil {
				t.Logf("Order failed: %v", err)
				return false
			}
			if len(order) != len(steps) {
				t.Logf("Expected %d steps in order, got %d", len(steps), len(order))
				return false
			}

			position := make(map[string]int, len(order))
			for i, id := range order {
				if _, seen := position[id]; seen {
					t.Logf("Step %s appears twice", id)
					return false
				}
				position[id] = i
			}
			for _, s := range steps {
				for _, dep := range s.Dependencies {
					if position[dep] >= position[s.ID] {
						t.Logf("Dependency %s ordered at %d, dependent %s at %d",
							dep, position[dep], s.ID, position[s.ID])
						return false
					}
				}
			}
			return true
		},
		gen.IntRange(1, 12),
		gen.Int64(),
	))

	properties.Property("ordering is deterministic across runs", prop.ForAll(
		func(nodeCount int, seed int64) bool {
			steps := randomDAG(nodeCount, seed)
			b := NewGraphBuilder(nil)

			graph, err := b.Build(steps)
			if err != nil {
				return false
			}
			first, err := b.Order(graph)
			if err != nil {
				return false
			}
			second, err := b.Order(graph)
			if err != nil {
				return false
			}
			if len(first) != len(second) {
				return false
			}
			for i := range first {
				if first[i] != second[i] {
					t.Logf("Order diverged at %d: %s vs %s", i, first[i], second[i])
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 12),
		gen.Int64(),
	))

	properties.TestingRun(t)
}

func TestProperty_CycleAlwaysDetected(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("a chain with a back edge never yields an order", prop.ForAll(
		func(nodeCount int) bool {
			// Linear chain s0 ← s1 ← … ← s(n-1), plus s0 depending on the
			// last step, which closes a cycle through every node.
			steps := make([]WorkflowStep, 0, nodeCount)
			for i := 0; i < nodeCount; i++ {
				s := step(fmt.Sprintf("s%d", i))
				if i > 0 {
					s.Dependencies = []string{fmt.Sprintf("s%d", i-1)}
				}
				steps = append(steps, s)
			}
			steps[0].Dependencies = []string{fmt.Sprintf("s%d", nodeCount-1)}

			b := NewGraphBuilder(nil)
			graph, err := b.Build(steps)
			if err != nil {
				t.Logf("Build failed: %v", err)
				return false
			}

			order, err := b.Order(graph)
			if err == nil {
				t.Logf("Expected cycle detection error, got order %v", order)
				return false
			}
			if types.GetErrorCode(err) != types.ErrCycleDetected {
				t.Logf("Expected CYCLE_DETECTED, got %s", types.GetErrorCode(err))
				return false
			}
			return order == nil
		},
		gen.IntRange(2, 10),
	))

	properties.TestingRun(t)
}
