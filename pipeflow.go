// Package pipeflow provides a top-level convenience entry point for
// assembling a workflow engine with minimal boilerplate.
//
// Usage:
//
//	cfg, err := config.NewLoader().WithConfigPath("pipeflow.yaml").Load()
//	engine, err := pipeflow.New(cfg)
//	defer engine.Close(ctx)
//
//	engine.RegisterComponent("document_quality", myInvoker)
//	engine.Orchestrator().RegisterWorkflow("review", "doc review", steps)
//
// The engine wires logging, metrics, telemetry, and the optional result
// cache from configuration. Callers that want finer control can build a
// workflow.Orchestrator directly.
package pipeflow

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/pipeflow/analysis"
	"github.com/BaSui01/pipeflow/config"
	"github.com/BaSui01/pipeflow/internal/cache"
	"github.com/BaSui01/pipeflow/internal/metrics"
	"github.com/BaSui01/pipeflow/internal/telemetry"
	"github.com/BaSui01/pipeflow/workflow"
)

// Engine bundles a configured orchestrator with its wired collaborators.
type Engine struct {
	cfg          *config.Config
	logger       *zap.Logger
	registry     *workflow.ComponentRegistry
	orchestrator *workflow.Orchestrator
	cache        *cache.ResultCache
	telemetry    *telemetry.Providers
}

// Option configures the engine beyond what config covers.
type Option func(*options)

type options struct {
	logger            *zap.Logger
	defaultComponents bool
}

// WithLogger replaces the config-built logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithDefaultComponents registers the reference analysis components for
// the built-in analysis types.
func WithDefaultComponents() Option {
	return func(o *options) { o.defaultComponents = true }
}

// New assembles an engine from configuration.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = buildLogger(cfg.Log)
		if err != nil {
			return nil, fmt.Errorf("build logger: %w", err)
		}
	}

	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	registry := workflow.NewComponentRegistry(logger)

	executorOpts := []workflow.ExecutorOption{
		workflow.WithTracer(otel.Tracer("pipeflow/workflow")),
	}
	if cfg.Engine.DefaultStepTimeout > 0 {
		executorOpts = append(executorOpts, workflow.WithDefaultStepTimeout(cfg.Engine.DefaultStepTimeout))
	}
	var resultCache *cache.ResultCache
	if cfg.Cache.Enabled {
		resultCache = cache.New(cfg.Cache, logger)
		executorOpts = append(executorOpts, workflow.WithResultCache(resultCache))
	}
	executor := workflow.NewStepExecutor(registry, logger, executorOpts...)

	collector := metrics.NewCollector("pipeflow", logger)
	orchestrator := workflow.NewOrchestrator(executor, logger,
		workflow.WithHistoryLimit(cfg.Engine.HistoryLimit),
		workflow.WithMaxParallel(cfg.Engine.MaxParallel),
		workflow.WithMetrics(collector),
	)

	engine := &Engine{
		cfg:          cfg,
		logger:       logger,
		registry:     registry,
		orchestrator: orchestrator,
		cache:        resultCache,
		telemetry:    providers,
	}
	if o.defaultComponents {
		analysis.RegisterDefaults(registry)
	}
	return engine, nil
}

// Orchestrator returns the wired orchestrator.
func (e *Engine) Orchestrator() *workflow.Orchestrator {
	return e.orchestrator
}

// Registry returns the component registry.
func (e *Engine) Registry() *workflow.ComponentRegistry {
	return e.registry
}

// Logger returns the engine logger.
func (e *Engine) Logger() *zap.Logger {
	return e.logger
}

// RegisterComponent binds an analysis type to an invoker, applying the
// configured rate limit when component_rps is set.
func (e *Engine) RegisterComponent(analysisType string, invoker workflow.Invoker) {
	if e.cfg.Engine.ComponentRPS > 0 {
		invoker = workflow.NewThrottledInvoker(invoker, e.cfg.Engine.ComponentRPS, e.cfg.Engine.ComponentBurst)
	}
	e.registry.Register(analysisType, invoker)
}

// Close releases the cache connection and flushes telemetry.
func (e *Engine) Close(ctx context.Context) error {
	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			e.logger.Warn("close result cache", zap.Error(err))
		}
	}
	return e.telemetry.Shutdown(ctx)
}

// buildLogger constructs a zap logger from the log configuration.
func buildLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.Encoding = cfg.Format
	if cfg.Format == "console" {
		zapCfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	if len(cfg.OutputPaths) > 0 {
		zapCfg.OutputPaths = cfg.OutputPaths
	}
	return zapCfg.Build()
}
