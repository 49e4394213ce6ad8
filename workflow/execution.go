package workflow

import (
	"sync"
	"time"

	"github.com/BaSui01/pipeflow/types"
)

// ExecutionStatus represents the overall status of a workflow execution.
type ExecutionStatus string

const (
	// ExecutionStatusPending indicates the execution has been created but not started
	ExecutionStatusPending ExecutionStatus = "pending"
	// ExecutionStatusRunning indicates the execution is in progress
	ExecutionStatusRunning ExecutionStatus = "running"
	// ExecutionStatusCompleted indicates the execution completed successfully
	ExecutionStatusCompleted ExecutionStatus = "completed"
	// ExecutionStatusFailed indicates the execution failed
	ExecutionStatusFailed ExecutionStatus = "failed"
	// ExecutionStatusCancelled indicates the execution was cancelled
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
	// ExecutionStatusPaused is declared for forward compatibility with an
	// external scheduler. No engine transition reaches it; pause/resume has
	// no contract here.
	ExecutionStatusPaused ExecutionStatus = "paused"
)

// Terminal reports whether the status permits no further transitions.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed || s == ExecutionStatusCancelled
}

// StepStatus represents the status of a single step within an execution.
type StepStatus string

const (
	// StepStatusPending indicates the step has not run
	StepStatusPending StepStatus = "pending"
	// StepStatusCompleted indicates the step completed successfully
	StepStatusCompleted StepStatus = "completed"
	// StepStatusFailed indicates the step failed
	StepStatusFailed StepStatus = "failed"
)

// WorkflowExecution tracks the per-run state of one workflow execution:
// overall status, per-step status and results, timestamps, and accumulated
// errors. It is created by the orchestrator and mutated by the control
// loop driving it; Cancel may flip the status from another goroutine, so
// all access goes through the mutex.
type WorkflowExecution struct {
	mu sync.RWMutex

	id           string
	workflowName string
	context      map[string]any
	steps        []WorkflowStep

	status      ExecutionStatus
	stepStatus  map[string]StepStatus
	stepResults map[string]*StepResult
	startedAt   time.Time
	completedAt time.Time
	errors      []string
}

// NewWorkflowExecution creates a pending execution over a private copy of
// the definition's steps. Every step starts in StepStatusPending.
func NewWorkflowExecution(id, workflowName string, steps []WorkflowStep, execContext map[string]any) *WorkflowExecution {
	stepStatus := make(map[string]StepStatus, len(steps))
	for _, step := range steps {
		stepStatus[step.ID] = StepStatusPending
	}
	return &WorkflowExecution{
		id:           id,
		workflowName: workflowName,
		context:      execContext,
		steps:        steps,
		status:       ExecutionStatusPending,
		stepStatus:   stepStatus,
		stepResults:  make(map[string]*StepResult, len(steps)),
	}
}

// ID returns the execution identifier.
func (e *WorkflowExecution) ID() string {
	return e.id
}

// WorkflowName returns the name of the workflow being executed.
func (e *WorkflowExecution) WorkflowName() string {
	return e.workflowName
}

// Context returns the execution's input context. The map is owned by the
// execution; callers must not mutate it.
func (e *WorkflowExecution) Context() map[string]any {
	return e.context
}

// Steps returns the execution's private step copies.
func (e *WorkflowExecution) Steps() []WorkflowStep {
	return e.steps
}

// Status returns the current overall status.
func (e *WorkflowExecution) Status() ExecutionStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// StepStatuses returns a copy of the per-step status map.
func (e *WorkflowExecution) StepStatuses() map[string]StepStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	statuses := make(map[string]StepStatus, len(e.stepStatus))
	for id, st := range e.stepStatus {
		statuses[id] = st
	}
	return statuses
}

// Start transitions PENDING → RUNNING and records the start time.
func (e *WorkflowExecution) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != ExecutionStatusPending {
		return types.NewError(types.ErrInvalidTransition,
			"cannot start execution in status "+string(e.status))
	}
	e.status = ExecutionStatusRunning
	e.startedAt = time.Now()
	return nil
}

// CompleteStep records a successful step result. Valid only while the
// execution is RUNNING and the step is PENDING.
func (e *WorkflowExecution) CompleteStep(stepID string, result *StepResult) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.stepTransitionLocked(stepID); err != nil {
		return err
	}
	e.stepStatus[stepID] = StepStatusCompleted
	e.stepResults[stepID] = result
	return nil
}

// FailStep records a step failure and appends the error. Valid only while
// the execution is RUNNING and the step is PENDING.
func (e *WorkflowExecution) FailStep(stepID string, stepErr error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.stepTransitionLocked(stepID); err != nil {
		return err
	}
	e.stepStatus[stepID] = StepStatusFailed
	e.errors = append(e.errors, "step "+stepID+": "+stepErr.Error())
	return nil
}

func (e *WorkflowExecution) stepTransitionLocked(stepID string) error {
	if e.status != ExecutionStatusRunning {
		return types.NewError(types.ErrInvalidTransition,
			"cannot mutate step "+stepID+" while execution is "+string(e.status)).WithStep(stepID)
	}
	current, ok := e.stepStatus[stepID]
	if !ok {
		return types.NewError(types.ErrInternalError, "unknown step "+stepID).WithStep(stepID)
	}
	if current != StepStatusPending {
		return types.NewError(types.ErrInvalidTransition,
			"step "+stepID+" already "+string(current)).WithStep(stepID)
	}
	return nil
}

// Complete transitions RUNNING → COMPLETED and records the completion
// time. Called only when the control loop finishes the whole order
// without a fatal step failure.
func (e *WorkflowExecution) Complete() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != ExecutionStatusRunning {
		return types.NewError(types.ErrInvalidTransition,
			"cannot complete execution in status "+string(e.status))
	}
	e.status = ExecutionStatusCompleted
	e.completedAt = time.Now()
	return nil
}

// Fail moves any non-terminal execution to FAILED, records the completion
// time, and appends the reason.
func (e *WorkflowExecution) Fail(reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status.Terminal() {
		return
	}
	e.status = ExecutionStatusFailed
	e.completedAt = time.Now()
	e.errors = append(e.errors, reason)
}

// Cancel moves a non-terminal execution to CANCELLED. It reports whether
// the cancellation took effect. Already-completed steps are retained; the
// control loop observes the status at the next step boundary.
func (e *WorkflowExecution) Cancel() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status.Terminal() {
		return false
	}
	e.status = ExecutionStatusCancelled
	e.completedAt = time.Now()
	return true
}

// Duration returns completed_at − started_at, or zero while either
// timestamp is unset.
func (e *WorkflowExecution) Duration() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.startedAt.IsZero() || e.completedAt.IsZero() {
		return 0
	}
	return e.completedAt.Sub(e.startedAt)
}

// ExecutionSnapshot is an immutable view of an execution handed to
// callers. Snapshots never alias live execution state.
type ExecutionSnapshot struct {
	ExecutionID          string                 `json:"execution_id"`
	WorkflowID           string                 `json:"workflow_id"`
	Status               ExecutionStatus        `json:"status"`
	Context              map[string]any         `json:"context,omitempty"`
	StepResults          map[string]*StepResult `json:"step_results"`
	StepStatus           map[string]StepStatus  `json:"step_status"`
	StartedAt            time.Time              `json:"started_at,omitzero"`
	CompletedAt          time.Time              `json:"completed_at,omitzero"`
	Errors               []string               `json:"errors,omitempty"`
	ExecutionTimeSeconds float64                `json:"execution_time_seconds"`
}

// Snapshot captures the execution's full per-step status, results, and
// errors regardless of outcome.
func (e *WorkflowExecution) Snapshot() *ExecutionSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stepStatus := make(map[string]StepStatus, len(e.stepStatus))
	for id, st := range e.stepStatus {
		stepStatus[id] = st
	}
	stepResults := make(map[string]*StepResult, len(e.stepResults))
	for id, res := range e.stepResults {
		clone := *res
		stepResults[id] = &clone
	}
	ctx := make(map[string]any, len(e.context))
	for k, v := range e.context {
		ctx[k] = v
	}

	var seconds float64
	if !e.startedAt.IsZero() && !e.completedAt.IsZero() {
		seconds = e.completedAt.Sub(e.startedAt).Seconds()
	}

	return &ExecutionSnapshot{
		ExecutionID:          e.id,
		WorkflowID:           e.workflowName,
		Status:               e.status,
		Context:              ctx,
		StepResults:          stepResults,
		StepStatus:           stepStatus,
		StartedAt:            e.startedAt,
		CompletedAt:          e.completedAt,
		Errors:               append([]string(nil), e.errors...),
		ExecutionTimeSeconds: seconds,
	}
}
