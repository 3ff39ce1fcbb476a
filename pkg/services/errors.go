// Package services provides the workflow authoring operations and the
// standardized error types for the service layer.
package services

import (
	"errors"
	"fmt"
)

// Business logic errors. These indicate client errors (4xx responses).
var (
	// Validation errors (400 Bad Request).
	ErrInvalidRequest       = errors.New("invalid request")
	ErrInvalidNodeKind      = errors.New("invalid node kind")
	ErrInvalidStatus        = errors.New("invalid workflow status")
	ErrWorkflowNameRequired = errors.New("workflow name is required")

	// Authoring errors (404 Not Found on the referenced entity).
	ErrNodeNotFound = errors.New("node not found in workflow")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should
// return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidNodeKind) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrWorkflowNameRequired)
}

// IsNodeNotFound checks if an error reports a missing connection endpoint.
func IsNodeNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
