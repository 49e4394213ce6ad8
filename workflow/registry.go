package workflow

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/pipeflow/types"
)

// Invoker is the abstract invocation contract of an analysis component.
// Components live outside the engine; the engine requires nothing beyond
// this interface. Implementations must honor ctx cancellation where they
// can, since per-step timeouts are delivered through the context.
type Invoker interface {
	Invoke(ctx context.Context, analysisType string, inputs map[string]any) (ComponentOutput, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, analysisType string, inputs map[string]any) (ComponentOutput, error)

func (f InvokerFunc) Invoke(ctx context.Context, analysisType string, inputs map[string]any) (ComponentOutput, error) {
	return f(ctx, analysisType, inputs)
}

// ComponentRegistry maps an analysis type tag to the component capable of
// running it.
type ComponentRegistry struct {
	mu       sync.RWMutex
	invokers map[string]Invoker
	logger   *zap.Logger
}

// NewComponentRegistry creates an empty component registry.
func NewComponentRegistry(logger *zap.Logger) *ComponentRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComponentRegistry{
		invokers: make(map[string]Invoker),
		logger:   logger.With(zap.String("component", "component_registry")),
	}
}

// Register binds an analysis type to an invoker, replacing any previous
// binding for the same type.
func (r *ComponentRegistry) Register(analysisType string, invoker Invoker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invokers[analysisType] = invoker
	r.logger.Debug("registered analysis component", zap.String("analysis_type", analysisType))
}

// Get returns the invoker bound to an analysis type.
func (r *ComponentRegistry) Get(analysisType string) (Invoker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	invoker, ok := r.invokers[analysisType]
	if !ok {
		return nil, types.NewError(types.ErrComponentNotFound,
			"no component registered for analysis type "+analysisType)
	}
	return invoker, nil
}

// Types returns the registered analysis types.
func (r *ComponentRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]string, 0, len(r.invokers))
	for t := range r.invokers {
		result = append(result, t)
	}
	return result
}

// ThrottledInvoker wraps an Invoker with a token-bucket rate limit,
// protecting slow or quota-bound external components from bursts of
// concurrent executions.
type ThrottledInvoker struct {
	inner   Invoker
	limiter *rate.Limiter
}

// NewThrottledInvoker limits inner to rps invocations per second with the
// given burst.
func NewThrottledInvoker(inner Invoker, rps float64, burst int) *ThrottledInvoker {
	return &ThrottledInvoker{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Invoke waits for a rate token, then delegates. A context cancelled or
// expired while waiting fails the invocation without calling the
// component.
func (t *ThrottledInvoker) Invoke(ctx context.Context, analysisType string, inputs map[string]any) (ComponentOutput, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return ComponentOutput{}, types.NewError(types.ErrStepExecution, "rate limit wait aborted").WithCause(err)
	}
	return t.inner.Invoke(ctx, analysisType, inputs)
}
