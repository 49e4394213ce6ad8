package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/pipeflow/types"
)

// MetricsRecorder receives engine-level measurements. The prometheus
// implementation lives in internal/metrics; a nil recorder disables
// recording.
type MetricsRecorder interface {
	ExecutionStarted(workflowName string)
	ExecutionFinished(workflowName string, status ExecutionStatus, duration time.Duration)
	StepExecuted(analysisType string, failed bool, duration time.Duration)
}

// DefaultMaxParallel bounds concurrent executions in
// ExecuteParallelWorkflows when not configured.
const DefaultMaxParallel = 8

// Orchestrator is the top-level engine. It holds the workflow catalog,
// tracks active executions, drives the per-execution control loop, and
// retains terminal executions in a bounded history. Construct one
// explicitly and share it by reference; there is no package-level
// instance.
type Orchestrator struct {
	mu        sync.RWMutex
	workflows map[string]*WorkflowDefinition
	active    map[string]*WorkflowExecution

	history     ExecutionStore
	graphs      *GraphBuilder
	executor    *StepExecutor
	metrics     MetricsRecorder
	maxParallel int
	logger      *zap.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithHistory replaces the bounded in-memory history store.
func WithHistory(store ExecutionStore) OrchestratorOption {
	return func(o *Orchestrator) { o.history = store }
}

// WithHistoryLimit sets the bound of the default in-memory history.
func WithHistoryLimit(limit int) OrchestratorOption {
	return func(o *Orchestrator) { o.history = NewMemoryHistory(limit) }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(metrics MetricsRecorder) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = metrics }
}

// WithMaxParallel bounds the number of concurrently running executions
// in ExecuteParallelWorkflows.
func WithMaxParallel(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxParallel = n
		}
	}
}

// NewOrchestrator creates an orchestrator over the given step executor.
func NewOrchestrator(executor *StepExecutor, logger *zap.Logger, opts ...OrchestratorOption) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		workflows:   make(map[string]*WorkflowDefinition),
		active:      make(map[string]*WorkflowExecution),
		history:     NewMemoryHistory(DefaultHistoryLimit),
		graphs:      NewGraphBuilder(logger),
		executor:    executor,
		maxParallel: DefaultMaxParallel,
		logger:      logger.With(zap.String("component", "orchestrator")),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RegisterWorkflow registers a named step list. Malformed definitions
// fail with DUPLICATE_STEP_ID, SELF_DEPENDENCY, or UNKNOWN_DEPENDENCY.
// Re-registering the same name replaces the definition, so registering an
// identical definition twice is a no-op.
func (o *Orchestrator) RegisterWorkflow(name, description string, steps []WorkflowStep) error {
	def := &WorkflowDefinition{Name: name, Description: description, Steps: steps}
	return o.RegisterDefinition(def)
}

// RegisterDefinition registers a complete workflow definition.
func (o *Orchestrator) RegisterDefinition(def *WorkflowDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.workflows[def.Name] = def
	o.logger.Info("registered workflow",
		zap.String("workflow", def.Name),
		zap.Int("steps", len(def.Steps)),
	)
	return nil
}

// RegisterWorkflowFromFile loads a YAML or JSON definition file and
// registers it.
func (o *Orchestrator) RegisterWorkflowFromFile(path string) error {
	def, err := LoadDefinitionFile(path)
	if err != nil {
		return err
	}
	return o.RegisterDefinition(def)
}

// WorkflowRequest is one entry in an ExecuteParallelWorkflows batch.
type WorkflowRequest struct {
	WorkflowName string         `json:"workflow_name"`
	Context      map[string]any `json:"context,omitempty"`
	ExecutionID  string         `json:"execution_id,omitempty"`
}

// ParallelResult is one outcome slot of an ExecuteParallelWorkflows
// batch, in the same position as its request.
type ParallelResult struct {
	Snapshot *ExecutionSnapshot `json:"snapshot,omitempty"`
	Err      error              `json:"-"`
}

// ExecuteWorkflow runs one execution of a registered workflow to a
// terminal state and returns its snapshot. Business-level failures (step
// errors, cycles, unsatisfied dependencies) are reported inside the
// snapshot; only programmer-level errors (unknown workflow name,
// execution ID collision) return a non-nil error.
func (o *Orchestrator) ExecuteWorkflow(ctx context.Context, name string, execContext map[string]any, executionID string) (*ExecutionSnapshot, error) {
	exec, err := o.createExecution(name, execContext, executionID)
	if err != nil {
		return nil, err
	}

	o.runToCompletion(ctx, exec)
	return o.retire(exec), nil
}

// createExecution registers a new active execution for the named
// workflow.
func (o *Orchestrator) createExecution(name string, execContext map[string]any, executionID string) (*WorkflowExecution, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	def, ok := o.workflows[name]
	if !ok {
		return nil, types.NewError(types.ErrWorkflowNotFound, "workflow not registered: "+name).
			WithWorkflow(name)
	}

	if executionID == "" {
		executionID = uuid.NewString()
	}
	if o.executionKnownLocked(executionID) {
		return nil, types.NewError(types.ErrDuplicateExecutionID,
			"execution id already in use: "+executionID).WithWorkflow(name)
	}

	if execContext == nil {
		execContext = make(map[string]any)
	}

	exec := NewWorkflowExecution(executionID, name, def.CloneSteps(), execContext)
	o.active[executionID] = exec

	if o.metrics != nil {
		o.metrics.ExecutionStarted(name)
	}
	o.logger.Info("execution created",
		zap.String("execution_id", executionID),
		zap.String("workflow", name),
	)
	return exec, nil
}

func (o *Orchestrator) executionKnownLocked(executionID string) bool {
	if _, ok := o.active[executionID]; ok {
		return true
	}
	_, ok := o.history.Get(executionID)
	return ok
}

// runToCompletion is the control loop. Steps run strictly sequentially in
// topological order; the first step failure halts the remainder
// (fail-fast). Cancellation is observed at step boundaries only.
func (o *Orchestrator) runToCompletion(ctx context.Context, exec *WorkflowExecution) {
	graph, err := o.graphs.Build(exec.Steps())
	if err != nil {
		exec.Fail("dependency graph construction failed: " + err.Error())
		return
	}
	order, err := o.graphs.Order(graph)
	if err != nil {
		exec.Fail("execution ordering failed: " + err.Error())
		return
	}

	if err := exec.Start(); err != nil {
		// Cancelled between creation and start; nothing ran.
		o.logger.Info("execution not started",
			zap.String("execution_id", exec.ID()),
			zap.Error(err),
		)
		return
	}

	stepsByID := make(map[string]WorkflowStep, len(exec.Steps()))
	for _, step := range exec.Steps() {
		stepsByID[step.ID] = step
	}

	for _, stepID := range order {
		if exec.Status() != ExecutionStatusRunning {
			o.logger.Info("execution stopped at step boundary",
				zap.String("execution_id", exec.ID()),
				zap.String("status", string(exec.Status())),
			)
			return
		}
		if err := ctx.Err(); err != nil {
			exec.Cancel()
			return
		}

		step := stepsByID[stepID]

		if unmet := unmetDependencies(exec, step); unmet != "" {
			// Invariant violation: a correct topological order satisfies
			// every dependency before its dependent runs. Logged apart
			// from component failures so configuration bugs are
			// distinguishable from analysis failures.
			depErr := types.NewError(types.ErrDependencyUnsatisfied,
				"dependencies not satisfied for step "+stepID+": "+unmet).WithStep(stepID)
			o.logger.Error("dependency invariant violated",
				zap.String("execution_id", exec.ID()),
				zap.String("step_id", stepID),
				zap.String("unsatisfied", unmet),
			)
			exec.Fail(depErr.Error())
			return
		}

		stepStart := time.Now()
		result, stepErr := o.executor.Execute(ctx, step, exec.Context())
		if o.metrics != nil {
			o.metrics.StepExecuted(step.AnalysisType, stepErr != nil, time.Since(stepStart))
		}

		if stepErr != nil {
			o.logger.Warn("step failed, halting execution",
				zap.String("execution_id", exec.ID()),
				zap.String("step_id", stepID),
				zap.Error(stepErr),
			)
			if err := exec.FailStep(stepID, stepErr); err != nil {
				// Execution went terminal mid-step (cancel race); the
				// failure is moot.
				return
			}
			exec.Fail("workflow halted after step " + stepID + " failed")
			return
		}

		if err := exec.CompleteStep(stepID, result); err != nil {
			// Cancel landed while the step was in flight; the result is
			// dropped and no further step starts.
			o.logger.Info("step result dropped, execution no longer running",
				zap.String("execution_id", exec.ID()),
				zap.String("step_id", stepID),
			)
			return
		}
	}

	if err := exec.Complete(); err != nil {
		o.logger.Info("execution not completed",
			zap.String("execution_id", exec.ID()),
			zap.Error(err),
		)
	}
}

// unmetDependencies returns a comma-joined list of declared dependencies
// not COMPLETED in this execution, or "" when all are satisfied.
func unmetDependencies(exec *WorkflowExecution, step WorkflowStep) string {
	statuses := exec.StepStatuses()
	var unmet string
	for _, dep := range step.Dependencies {
		if statuses[dep] != StepStatusCompleted {
			if unmet != "" {
				unmet += ", "
			}
			unmet += dep
		}
	}
	return unmet
}

// retire snapshots a terminal execution, moves it from the active set to
// the bounded history, and records metrics.
func (o *Orchestrator) retire(exec *WorkflowExecution) *ExecutionSnapshot {
	snapshot := exec.Snapshot()

	o.mu.Lock()
	delete(o.active, exec.ID())
	o.mu.Unlock()
	o.history.Save(snapshot)

	if o.metrics != nil {
		o.metrics.ExecutionFinished(snapshot.WorkflowID, snapshot.Status, exec.Duration())
	}
	o.logger.Info("execution retired",
		zap.String("execution_id", snapshot.ExecutionID),
		zap.String("workflow", snapshot.WorkflowID),
		zap.String("status", string(snapshot.Status)),
		zap.Float64("seconds", snapshot.ExecutionTimeSeconds),
	)
	return snapshot
}

// ExecuteParallelWorkflows runs each request as an independent concurrent
// execution and returns outcomes in the same order as the input. One
// request's failure is isolated to its own slot and never cancels
// siblings.
func (o *Orchestrator) ExecuteParallelWorkflows(ctx context.Context, requests []WorkflowRequest) []ParallelResult {
	results := make([]ParallelResult, len(requests))
	if len(requests) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(o.maxParallel)

	for i, req := range requests {
		i, req := i, req
		g.Go(func() error {
			snapshot, err := o.ExecuteWorkflow(ctx, req.WorkflowName, req.Context, req.ExecutionID)
			results[i] = ParallelResult{Snapshot: snapshot, Err: err}
			return nil
		})
	}

	// Goroutines never return errors; Wait is a join.
	_ = g.Wait()
	return results
}

// GetWorkflowStatus returns a snapshot of an execution, checking active
// executions first and then history. Unknown IDs fail with
// EXECUTION_NOT_FOUND.
func (o *Orchestrator) GetWorkflowStatus(executionID string) (*ExecutionSnapshot, error) {
	o.mu.RLock()
	exec, ok := o.active[executionID]
	o.mu.RUnlock()
	if ok {
		return exec.Snapshot(), nil
	}

	if snapshot, ok := o.history.Get(executionID); ok {
		return snapshot, nil
	}
	return nil, types.NewError(types.ErrExecutionNotFound, "execution not found: "+executionID)
}

// CancelWorkflow requests cooperative cancellation of a non-terminal
// execution. It reports whether the cancellation took effect. An
// in-flight step call is not forcibly aborted; the loop stops at the next
// step boundary.
func (o *Orchestrator) CancelWorkflow(executionID string) bool {
	o.mu.RLock()
	exec, ok := o.active[executionID]
	o.mu.RUnlock()
	if !ok {
		return false
	}

	cancelled := exec.Cancel()
	if cancelled {
		o.logger.Info("execution cancelled",
			zap.String("execution_id", executionID),
			zap.String("workflow", exec.WorkflowName()),
		)
	}
	return cancelled
}

// ListAvailableWorkflows summarizes every registered workflow.
func (o *Orchestrator) ListAvailableWorkflows() []WorkflowInfo {
	o.mu.RLock()
	defer o.mu.RUnlock()

	result := make([]WorkflowInfo, 0, len(o.workflows))
	for _, def := range o.workflows {
		result = append(result, WorkflowInfo{
			Name:          def.Name,
			Description:   def.Description,
			StepCount:     len(def.Steps),
			AnalysisTypes: def.AnalysisTypes(),
		})
	}
	return result
}

// GetExecutionHistory returns terminal executions most-recent-first,
// optionally filtered by workflow name. limit <= 0 means no limit.
func (o *Orchestrator) GetExecutionHistory(workflowName string, limit int) []*ExecutionSnapshot {
	return o.history.List(workflowName, limit)
}

// ActiveExecutions returns the IDs of currently running executions.
func (o *Orchestrator) ActiveExecutions() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	ids := make([]string, 0, len(o.active))
	for id := range o.active {
		ids = append(ids, id)
	}
	return ids
}
