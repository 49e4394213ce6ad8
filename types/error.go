package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// Definition error codes, raised at registration or before any step runs.
const (
	ErrCycleDetected     ErrorCode = "CYCLE_DETECTED"
	ErrUnknownDependency ErrorCode = "UNKNOWN_DEPENDENCY"
	ErrDuplicateStepID   ErrorCode = "DUPLICATE_STEP_ID"
	ErrSelfDependency    ErrorCode = "SELF_DEPENDENCY"
	ErrInvalidDefinition ErrorCode = "INVALID_DEFINITION"
)

// Execution error codes.
const (
	ErrStepExecution         ErrorCode = "STEP_EXECUTION"
	ErrStepTimeout           ErrorCode = "STEP_TIMEOUT"
	ErrDependencyUnsatisfied ErrorCode = "DEPENDENCY_UNSATISFIED"
	ErrDuplicateExecutionID  ErrorCode = "DUPLICATE_EXECUTION_ID"
	ErrExecutionNotFound     ErrorCode = "EXECUTION_NOT_FOUND"
	ErrWorkflowNotFound      ErrorCode = "WORKFLOW_NOT_FOUND"
	ErrInvalidTransition     ErrorCode = "INVALID_TRANSITION"
	ErrComponentNotFound     ErrorCode = "COMPONENT_NOT_FOUND"
	ErrInternalError         ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code     ErrorCode `json:"code"`
	Message  string    `json:"message"`
	StepID   string    `json:"step_id,omitempty"`
	Workflow string    `json:"workflow,omitempty"`
	Cause    error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithStep attaches the offending step ID.
func (e *Error) WithStep(stepID string) *Error {
	e.StepID = stepID
	return e
}

// WithWorkflow attaches the workflow name.
func (e *Error) WithWorkflow(name string) *Error {
	e.Workflow = name
	return e
}

// GetErrorCode extracts the error code from an error, unwrapping as
// needed.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given engine error code.
func IsCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
