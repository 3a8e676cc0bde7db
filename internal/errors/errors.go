// Package errors provides centralized error definitions and error handling
// utilities for the Flowboard codebase. It defines domain-specific errors,
// semantic error types, error constructors with context wrapping, and
// error classification helpers.
//
// # Error Types
//
// Domain-specific errors represent errors from specific subsystems:
//   - GraphError: errors related to dependency graph construction and edges
//   - PlanError: errors related to wave planning
//   - StoreError: errors related to the persistence layer
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//
// # Usage
//
// Creating errors:
//
//	// Domain-specific error
//	err := errors.NewGraphError("rejected edge", errors.ErrCircularDependency).
//		WithEdge("task-a", "task-b")
//
//	// Semantic error
//	err := errors.NewNotFoundError("task", "task-42")
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrCircularDependency) { ... }
//
//	var graphErr *errors.GraphError
//	if errors.As(err, &graphErr) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Graph-related sentinel errors
var (
	// ErrCircularDependency indicates an edge insertion would close a cycle
	// in the blocks subgraph. The edge is never added; the rest of the graph
	// is unaffected.
	ErrCircularDependency = New("circular dependency")
	// ErrResourceNotFound indicates an operation referenced an unknown
	// task identifier.
	ErrResourceNotFound = New("resource not found")
	// ErrValidationFailed indicates a malformed task record or an invalid
	// dependency-type tag.
	ErrValidationFailed = New("validation failed")
)

// Scheduling-related sentinel errors
var (
	// ErrNoCandidates indicates no task is eligible for recommendation
	// under the supplied filters.
	ErrNoCandidates = New("no eligible tasks")
	// ErrExecutionAborted indicates the executor stopped scheduling further
	// waves after a failure with exit-on-error enabled.
	ErrExecutionAborted = New("execution aborted")
)

// Store-related sentinel errors
var (
	// ErrBoardNotFound indicates a board could not be found.
	ErrBoardNotFound = New("board not found")
	// ErrTaskNotFound indicates a task could not be found.
	ErrTaskNotFound = New("task not found")
	// ErrDuplicateID indicates an insert collided with an existing identifier.
	ErrDuplicateID = New("duplicate identifier")
)

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message string
	cause   error
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// GraphError represents errors related to dependency graph construction
// and edge insertion.
//
// Example:
//
//	err := errors.NewGraphError("rejected edge", errors.ErrCircularDependency)
//	err = err.WithEdge("task-a", "task-b").WithEdgeType("blocks")
type GraphError struct {
	baseError
	From     string
	To       string
	EdgeType string
}

// NewGraphError creates a new GraphError.
func NewGraphError(message string, cause error) *GraphError {
	return &GraphError{
		baseError: baseError{message: message, cause: cause},
	}
}

// WithEdge adds the offending edge to the error context.
func (e *GraphError) WithEdge(from, to string) *GraphError {
	e.From = from
	e.To = to
	return e
}

// WithEdgeType adds the dependency type to the error context.
func (e *GraphError) WithEdgeType(t string) *GraphError {
	e.EdgeType = t
	return e
}

// Error returns the formatted error message.
func (e *GraphError) Error() string {
	var parts []string
	if e.From != "" || e.To != "" {
		parts = append(parts, fmt.Sprintf("edge=%s->%s", e.From, e.To))
	}
	if e.EdgeType != "" {
		parts = append(parts, fmt.Sprintf("type=%s", e.EdgeType))
	}

	prefix := "graph error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("graph error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *GraphError) Is(target error) bool {
	if _, ok := target.(*GraphError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// PlanError represents errors related to wave planning.
//
// Planning stalemates are not PlanErrors: a stalemate is reported as
// structured data on the Plan itself so callers can decide whether to
// proceed with the resolvable prefix.
type PlanError struct {
	baseError
	TaskID string
	Wave   int
}

// NewPlanError creates a new PlanError.
func NewPlanError(message string, cause error) *PlanError {
	return &PlanError{
		baseError: baseError{message: message, cause: cause},
		Wave:      -1, // -1 indicates not set
	}
}

// WithTaskID adds a task ID to the error context.
func (e *PlanError) WithTaskID(id string) *PlanError {
	e.TaskID = id
	return e
}

// WithWave adds a wave index to the error context.
func (e *PlanError) WithWave(idx int) *PlanError {
	e.Wave = idx
	return e
}

// Error returns the formatted error message.
func (e *PlanError) Error() string {
	var parts []string
	if e.TaskID != "" {
		parts = append(parts, fmt.Sprintf("task=%s", e.TaskID))
	}
	if e.Wave >= 0 {
		parts = append(parts, fmt.Sprintf("wave=%d", e.Wave))
	}

	prefix := "plan error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("plan error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *PlanError) Is(target error) bool {
	if _, ok := target.(*PlanError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// StoreError represents errors related to the persistence layer.
//
// Example:
//
//	err := errors.NewStoreError("insert task", sqlErr).WithBoard("board-1")
type StoreError struct {
	baseError
	Board string
	Table string
}

// NewStoreError creates a new StoreError.
func NewStoreError(message string, cause error) *StoreError {
	return &StoreError{
		baseError: baseError{message: message, cause: cause},
	}
}

// WithBoard adds a board ID to the error context.
func (e *StoreError) WithBoard(id string) *StoreError {
	e.Board = id
	return e
}

// WithTable adds the affected table to the error context.
func (e *StoreError) WithTable(table string) *StoreError {
	e.Table = table
	return e
}

// Error returns the formatted error message.
func (e *StoreError) Error() string {
	var parts []string
	if e.Board != "" {
		parts = append(parts, fmt.Sprintf("board=%s", e.Board))
	}
	if e.Table != "" {
		parts = append(parts, fmt.Sprintf("table=%s", e.Table))
	}

	prefix := "store error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("store error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *StoreError) Is(target error) bool {
	if _, ok := target.(*StoreError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("task", "task-42")
//	fmt.Println(err) // "task 'task-42' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message: fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	if errors.Is(target, ErrResourceNotFound) {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("priority out of range")
//	err = err.WithField("priority").WithValue(9)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{message: message},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrValidationFailed) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var notFound *NotFoundError
	return As(err, &notFound) ||
		Is(err, ErrResourceNotFound) ||
		Is(err, ErrTaskNotFound) ||
		Is(err, ErrBoardNotFound)
}

// IsConflict returns true if the error represents a state conflict that the
// caller may resolve by changing the request (cycle-closing edges, duplicate
// identifiers).
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	return Is(err, ErrCircularDependency) || Is(err, ErrDuplicateID)
}

// IsValidation returns true if the error indicates malformed input.
func IsValidation(err error) bool {
	if err == nil {
		return false
	}
	var validation *ValidationError
	return As(err, &validation) || Is(err, ErrValidationFailed)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to load board")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to load board %s", boardID)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
