package workflow

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/BaSui01/pipeflow/types"
)

// Confidence scoring constants. Scoring starts at the base, drops by the
// error penalty when the component reports an error status, and earns up
// to the caps from issue and recommendation counts.
const (
	confidenceBase         = 0.5
	confidenceErrorPenalty = 0.3
	confidencePerItem      = 0.05
	confidenceItemCap      = 0.2
)

// Score thresholds driving recommendation synthesis per analysis type.
const (
	qualityScoreFloor      = 0.7
	riskScoreCeiling       = 0.6
	productivityScoreFloor = 0.7
)

// ResultCache memoizes component outputs keyed by analysis type and a
// digest of the prepared inputs. Implementations decide TTL and eviction.
type ResultCache interface {
	Get(ctx context.Context, analysisType string, inputs map[string]any) (ComponentOutput, bool)
	Set(ctx context.Context, analysisType string, inputs map[string]any, output ComponentOutput)
}

// StepExecutor prepares step inputs from the execution context, invokes
// the analysis-component boundary, and normalizes the result.
type StepExecutor struct {
	registry       *ComponentRegistry
	selectors      *SelectorRegistry
	cache          ResultCache
	tracer         trace.Tracer
	defaultTimeout time.Duration
	logger         *zap.Logger
}

// ExecutorOption configures a StepExecutor.
type ExecutorOption func(*StepExecutor)

// WithResultCache enables memoization of component outputs.
func WithResultCache(cache ResultCache) ExecutorOption {
	return func(e *StepExecutor) { e.cache = cache }
}

// WithTracer enables a span per step invocation.
func WithTracer(tracer trace.Tracer) ExecutorOption {
	return func(e *StepExecutor) { e.tracer = tracer }
}

// WithSelectors replaces the default input selector registry.
func WithSelectors(selectors *SelectorRegistry) ExecutorOption {
	return func(e *StepExecutor) { e.selectors = selectors }
}

// WithDefaultStepTimeout bounds steps that declare no timeout of their
// own. Zero disables the default bound.
func WithDefaultStepTimeout(d time.Duration) ExecutorOption {
	return func(e *StepExecutor) { e.defaultTimeout = d }
}

// NewStepExecutor creates a step executor over the given component
// registry.
func NewStepExecutor(registry *ComponentRegistry, logger *zap.Logger, opts ...ExecutorOption) *StepExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &StepExecutor{
		registry:  registry,
		selectors: NewSelectorRegistry(),
		tracer:    noop.NewTracerProvider().Tracer("pipeflow"),
		logger:    logger.With(zap.String("component", "step_executor")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one step against the execution context and returns the
// post-processed result. Component failures, malformed bindings, and
// per-step timeouts surface as STEP_EXECUTION / STEP_TIMEOUT errors; the
// caller folds them into the per-step status map.
func (e *StepExecutor) Execute(ctx context.Context, step WorkflowStep, execContext map[string]any) (*StepResult, error) {
	invoker, err := e.registry.Get(step.AnalysisType)
	if err != nil {
		return nil, types.NewError(types.ErrStepExecution, "step "+step.ID+" has no component").
			WithStep(step.ID).WithCause(err)
	}

	inputs := e.prepareInputs(step, execContext)

	ctx, span := e.tracer.Start(ctx, "workflow.step",
		trace.WithAttributes(
			attribute.String("step.id", step.ID),
			attribute.String("step.analysis_type", step.AnalysisType),
		))
	defer span.End()

	timeout := step.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	output, err := e.invoke(ctx, invoker, step.AnalysisType, inputs)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, types.NewError(types.ErrStepTimeout,
				"step "+step.ID+" exceeded timeout "+timeout.String()).
				WithStep(step.ID).WithCause(err)
		}
		return nil, types.NewError(types.ErrStepExecution, "component invocation failed for step "+step.ID).
			WithStep(step.ID).WithCause(err)
	}

	result := e.postProcess(step, output)

	e.logger.Debug("step executed",
		zap.String("step_id", step.ID),
		zap.String("analysis_type", step.AnalysisType),
		zap.Float64("confidence", result.ConfidenceScore),
	)

	return result, nil
}

// prepareInputs merges the step's own parameters with the context fields
// chosen by the analysis type's input selector. Step parameters win on
// key collision.
func (e *StepExecutor) prepareInputs(step WorkflowStep, execContext map[string]any) map[string]any {
	selected := e.selectors.Select(step.AnalysisType, execContext)
	inputs := make(map[string]any, len(selected)+len(step.Parameters))
	for k, v := range selected {
		inputs[k] = v
	}
	for k, v := range step.Parameters {
		inputs[k] = v
	}
	return inputs
}

func (e *StepExecutor) invoke(ctx context.Context, invoker Invoker, analysisType string, inputs map[string]any) (ComponentOutput, error) {
	if e.cache != nil {
		if output, ok := e.cache.Get(ctx, analysisType, inputs); ok {
			e.logger.Debug("component output served from cache", zap.String("analysis_type", analysisType))
			return output, nil
		}
	}

	output, err := invoker.Invoke(ctx, analysisType, inputs)
	if err != nil {
		return ComponentOutput{}, err
	}

	if e.cache != nil {
		e.cache.Set(ctx, analysisType, inputs, output)
	}
	return output, nil
}

// postProcess attaches step metadata, scores confidence from the raw
// output, and synthesizes recommendations when the component returned
// none.
func (e *StepExecutor) postProcess(step WorkflowStep, output ComponentOutput) *StepResult {
	result := &StepResult{
		StepID:          step.ID,
		StepName:        step.Name,
		AnalysisType:    step.AnalysisType,
		Output:          output,
		Timestamp:       time.Now(),
		ConfidenceScore: confidenceScore(output),
		Recommendations: output.Recommendations,
	}
	if len(result.Recommendations) == 0 {
		result.Recommendations = synthesizeRecommendations(step.AnalysisType, output)
	}
	return result
}

// confidenceScore computes the deterministic confidence rule over the raw
// component output, clamped to [0,1].
func confidenceScore(output ComponentOutput) float64 {
	score := confidenceBase
	if output.Status == ComponentStatusError {
		score -= confidenceErrorPenalty
	}
	score += min(confidencePerItem*float64(len(output.Issues)), confidenceItemCap)
	score += min(confidencePerItem*float64(len(output.Recommendations)), confidenceItemCap)
	return min(max(score, 0), 1)
}

// synthesizeRecommendations derives threshold-based recommendations per
// analysis type when the component supplied none.
func synthesizeRecommendations(analysisType string, output ComponentOutput) []string {
	switch analysisType {
	case AnalysisTypeDocumentQuality:
		if output.Score < qualityScoreFloor {
			return []string{
				"Improve document clarity and structure",
				"Add missing sections to increase completeness",
			}
		}
	case AnalysisTypeRiskAnalysis:
		if output.Score > riskScoreCeiling {
			return []string{
				"Add mitigation plans for identified risks",
				"Increase project oversight and review frequency",
			}
		}
	case AnalysisTypeProductivity:
		if output.Score < productivityScoreFloor {
			return []string{
				"Optimize team processes to remove bottlenecks",
				"Provide targeted training for underperforming areas",
			}
		}
	}
	return nil
}
