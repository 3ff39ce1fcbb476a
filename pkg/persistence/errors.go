// Package persistence provides standardized error types for persistence operations.
package persistence

import "errors"

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrExecutionNotFound indicates an execution was not found by the given identifier.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrTemplateNotFound indicates a template was not found by the given identifier.
	ErrTemplateNotFound = errors.New("template not found")
)

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsExecutionNotFound checks if an error indicates an execution was not found.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsTemplateNotFound checks if an error indicates a template was not found.
func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}
