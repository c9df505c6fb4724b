// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrAccountNotFound indicates an account was not found by the given identifier.
	ErrAccountNotFound = errors.New("account not found")

	// ErrProxyNotFound indicates a proxy was not found by the given identifier.
	ErrProxyNotFound = errors.New("proxy not found")

	// ErrTaskNotFound indicates an automation task was not found by the given identifier.
	ErrTaskNotFound = errors.New("automation task not found")

	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrStepNotFound indicates a workflow step was not found by the given identifier.
	ErrStepNotFound = errors.New("workflow step not found")

	// ErrRunLogNotFound indicates a run-log row was not found.
	ErrRunLogNotFound = errors.New("run log not found")
)

// StoreError wraps persistence errors with the operation and entity that failed.
type StoreError struct {
	Op       string // Operation being performed (e.g., "SaveWorkflow", "DueTasks")
	EntityID string // Entity identifier if applicable
	Err      error  // Underlying error
}

func (e *StoreError) Error() string {
	if e.EntityID != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Op, e.EntityID, e.Err)
	}

	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for store errors.
func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a new store error with context.
func NewStoreError(op, entityID string, err error) *StoreError {
	return &StoreError{Op: op, EntityID: entityID, Err: err}
}

// IsAccountNotFound checks if an error indicates an account was not found.
func IsAccountNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

// IsTaskNotFound checks if an error indicates a task was not found.
func IsTaskNotFound(err error) bool {
	return errors.Is(err, ErrTaskNotFound)
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsRunLogNotFound checks if an error indicates a run-log row was not found.
func IsRunLogNotFound(err error) bool {
	return errors.Is(err, ErrRunLogNotFound)
}
