package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/pipeflow/types"
)

// mockInvoker is a configurable analysis component for tests.
type mockInvoker struct {
	mu       sync.Mutex
	output   ComponentOutput
	err      error
	delay    time.Duration
	calls    int
	lastType string
	lastIn   map[string]any
	onInvoke func()
}

func (m *mockInvoker) Invoke(ctx context.Context, analysisType string, inputs map[string]any) (ComponentOutput, error) {
	m.mu.Lock()
	m.calls++
	m.lastType = analysisType
	m.lastIn = inputs
	onInvoke := m.onInvoke
	m.mu.Unlock()

	if onInvoke != nil {
		onInvoke()
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ComponentOutput{}, ctx.Err()
		}
	}
	if m.err != nil {
		return ComponentOutput{}, m.err
	}
	return m.output, nil
}

func (m *mockInvoker) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockInvoker) lastInputs() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastIn
}

func newTestExecutor(invoker Invoker, analysisTypes ...string) *StepExecutor {
	registry := NewComponentRegistry(nil)
	for _, at := range analysisTypes {
		registry.Register(at, invoker)
	}
	return NewStepExecutor(registry, nil)
}

func TestStepExecutor_PreparesMappedInputs(t *testing.T) {
	invoker := &mockInvoker{output: ComponentOutput{Status: ComponentStatusSuccess, Score: 0.9}}
	executor := newTestExecutor(invoker, AnalysisTypeProductivity)

	stepDef := WorkflowStep{
		ID:           "p1",
		AnalysisType: AnalysisTypeProductivity,
		Parameters:   map[string]any{"window": "30d"},
	}
	execContext := map[string]any{
		"team_members":     []string{"ana", "bo"},
		"performance_data": map[string]float64{"ana": 0.8},
		"documents":        []string{"not selected"},
	}

	_, err := executor.Execute(context.Background(), stepDef, execContext)
	require.NoError(t, err)

	inputs := invoker.lastInputs()
	assert.Equal(t, []string{"ana", "bo"}, inputs["team_members"])
	assert.Equal(t, map[string]float64{"ana": 0.8}, inputs["performance_data"])
	assert.Equal(t, "30d", inputs["window"])
	assert.NotContains(t, inputs, "documents", "quality fields are not selected for productivity steps")
}

func TestStepExecutor_ParametersWinOnCollision(t *testing.T) {
	invoker := &mockInvoker{output: ComponentOutput{Status: ComponentStatusSuccess}}
	executor := newTestExecutor(invoker, AnalysisTypeDocumentQuality)

	stepDef := WorkflowStep{
		ID:           "q1",
		AnalysisType: AnalysisTypeDocumentQuality,
		Parameters:   map[string]any{"documents": []string{"from params"}},
	}
	execContext := map[string]any{"documents": []string{"from context"}}

	_, err := executor.Execute(context.Background(), stepDef, execContext)
	require.NoError(t, err)
	assert.Equal(t, []string{"from params"}, invoker.lastInputs()["documents"])
}

func TestStepExecutor_UnmappedTypeGetsAdditionalInputs(t *testing.T) {
	invoker := &mockInvoker{output: ComponentOutput{Status: ComponentStatusSuccess}}
	executor := newTestExecutor(invoker, "custom_analysis")

	stepDef := WorkflowStep{
		ID:           "c1",
		AnalysisType: "custom_analysis",
		Parameters:   map[string]any{"depth": 3},
	}
	execContext := map[string]any{
		"additional_inputs": map[string]any{"source": "s3"},
		"team_members":      []string{"not selected"},
	}

	_, err := executor.Execute(context.Background(), stepDef, execContext)
	require.NoError(t, err)

	inputs := invoker.lastInputs()
	assert.Equal(t, map[string]any{"source": "s3"}, inputs["additional_inputs"])
	assert.Equal(t, 3, inputs["depth"])
	assert.NotContains(t, inputs, "team_members")
}

func TestStepExecutor_ConfidenceScoring(t *testing.T) {
	cases := []struct {
		name   string
		output ComponentOutput
		want   float64
	}{
		{"baseline", ComponentOutput{Status: ComponentStatusSuccess}, 0.5},
		{"error status", ComponentOutput{Status: ComponentStatusError}, 0.2},
		{"two issues", ComponentOutput{Status: ComponentStatusSuccess, Issues: []string{"a", "b"}}, 0.6},
		{"issue cap", ComponentOutput{Status: ComponentStatusSuccess, Issues: make([]string, 10)}, 0.7},
		{
			"issues and recommendations capped",
			ComponentOutput{
				Status:          ComponentStatusSuccess,
				Issues:          make([]string, 10),
				Recommendations: make([]string, 10),
			},
			0.9,
		},
		{
			"error with both caps",
			ComponentOutput{
				Status:          ComponentStatusError,
				Issues:          make([]string, 10),
				Recommendations: make([]string, 10),
			},
			0.6,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, confidenceScore(tc.output), 1e-9)
		})
	}
}

func TestStepExecutor_SynthesizesRecommendations(t *testing.T) {
	cases := []struct {
		name         string
		analysisType string
		score        float64
		wantSynth    bool
	}{
		{"low quality", AnalysisTypeDocumentQuality, 0.5, true},
		{"high quality", AnalysisTypeDocumentQuality, 0.9, false},
		{"high risk", AnalysisTypeRiskAnalysis, 0.8, true},
		{"low risk", AnalysisTypeRiskAnalysis, 0.3, false},
		{"low productivity", AnalysisTypeProductivity, 0.4, true},
		{"unknown type", "custom_analysis", 0.1, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			invoker := &mockInvoker{output: ComponentOutput{Status: ComponentStatusSuccess, Score: tc.score}}
			executor := newTestExecutor(invoker, tc.analysisType)

			result, err := executor.Execute(context.Background(),
				WorkflowStep{ID: "s", AnalysisType: tc.analysisType}, map[string]any{})
			require.NoError(t, err)

			if tc.wantSynth {
				assert.NotEmpty(t, result.Recommendations)
			} else {
				assert.Empty(t, result.Recommendations)
			}
		})
	}
}

func TestStepExecutor_ComponentRecommendationsKept(t *testing.T) {
	invoker := &mockInvoker{output: ComponentOutput{
		Status:          ComponentStatusSuccess,
		Score:           0.1,
		Recommendations: []string{"component knows best"},
	}}
	executor := newTestExecutor(invoker, AnalysisTypeDocumentQuality)

	result, err := executor.Execute(context.Background(),
		WorkflowStep{ID: "q", AnalysisType: AnalysisTypeDocumentQuality}, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, []string{"component knows best"}, result.Recommendations)
}

func TestStepExecutor_ComponentError(t *testing.T) {
	invoker := &mockInvoker{err: errors.New("backend unreachable")}
	executor := newTestExecutor(invoker, AnalysisTypeRiskAnalysis)

	result, err := executor.Execute(context.Background(),
		WorkflowStep{ID: "r", AnalysisType: AnalysisTypeRiskAnalysis}, map[string]any{})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, types.ErrStepExecution, types.GetErrorCode(err))
	assert.ErrorContains(t, err, "r")
}

func TestStepExecutor_NoComponentRegistered(t *testing.T) {
	executor := NewStepExecutor(NewComponentRegistry(nil), nil)

	_, err := executor.Execute(context.Background(),
		WorkflowStep{ID: "s", AnalysisType: "unbound"}, map[string]any{})
	require.Error(t, err)
	assert.Equal(t, types.ErrStepExecution, types.GetErrorCode(err))
}

func TestStepExecutor_Timeout(t *testing.T) {
	invoker := &mockInvoker{delay: 200 * time.Millisecond, output: ComponentOutput{Status: ComponentStatusSuccess}}
	executor := newTestExecutor(invoker, AnalysisTypeRiskAnalysis)

	stepDef := WorkflowStep{
		ID:           "slow",
		AnalysisType: AnalysisTypeRiskAnalysis,
		Timeout:      10 * time.Millisecond,
	}

	start := time.Now()
	_, err := executor.Execute(context.Background(), stepDef, map[string]any{})
	require.Error(t, err)
	assert.Equal(t, types.ErrStepTimeout, types.GetErrorCode(err))
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}

// fakeCache is an in-memory ResultCache for executor tests.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]ComponentOutput
	hits    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]ComponentOutput)}
}

func (c *fakeCache) key(analysisType string, inputs map[string]any) string {
	return analysisType
}

func (c *fakeCache) Get(ctx context.Context, analysisType string, inputs map[string]any) (ComponentOutput, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	output, ok := c.entries[c.key(analysisType, inputs)]
	if ok {
		c.hits++
	}
	return output, ok
}

func (c *fakeCache) Set(ctx context.Context, analysisType string, inputs map[string]any, output ComponentOutput) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.key(analysisType, inputs)] = output
}

func TestStepExecutor_CacheShortCircuitsInvocation(t *testing.T) {
	invoker := &mockInvoker{output: ComponentOutput{Status: ComponentStatusSuccess, Score: 0.75}}
	registry := NewComponentRegistry(nil)
	registry.Register(AnalysisTypeDocumentQuality, invoker)
	executor := NewStepExecutor(registry, nil, WithResultCache(newFakeCache()))

	stepDef := WorkflowStep{ID: "q", AnalysisType: AnalysisTypeDocumentQuality}

	first, err := executor.Execute(context.Background(), stepDef, map[string]any{})
	require.NoError(t, err)
	second, err := executor.Execute(context.Background(), stepDef, map[string]any{})
	require.NoError(t, err)

	assert.Equal(t, 1, invoker.callCount(), "second execution should be served from cache")
	assert.Equal(t, first.Output, second.Output)
}
