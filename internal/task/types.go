// Package task defines the core task data types used throughout Flowboard.
//
// Tasks live on kanban boards and carry the scheduling inputs consumed by
// the graph, planner, executor, and recommend packages: identity,
// completion state, priority, effort size, due date, assignee, and a typed
// dependency list. Records are validated once at the ingestion boundary so
// the scheduler's internals can assume well-formed input.
package task

import (
	"time"

	"github.com/flowboardhq/flowboard/internal/errors"
)

// -----------------------------------------------------------------------------
// Status
// -----------------------------------------------------------------------------

// Status represents the current lifecycle state of a task.
type Status string

const (
	// StatusTodo indicates the task has not been started.
	StatusTodo Status = "todo"

	// StatusInProgress indicates the task is actively being worked on.
	// In-progress tasks receive a continuity boost when scoring
	// recommendations.
	StatusInProgress Status = "in_progress"

	// StatusDone indicates the task is complete.
	StatusDone Status = "done"

	// StatusBlocked indicates the task is waiting on something external.
	// Blocked tasks are excluded from recommendation entirely.
	StatusBlocked Status = "blocked"

	// StatusArchived indicates the task has been retired from the board.
	// Archived tasks are excluded from recommendation entirely.
	StatusArchived Status = "archived"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if this is a recognized status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusBlocked, StatusArchived:
		return true
	default:
		return false
	}
}

// -----------------------------------------------------------------------------
// Size
// -----------------------------------------------------------------------------

// Size represents the estimated effort class of a task.
type Size string

const (
	// SizeS is a small, well-scoped task.
	SizeS Size = "S"
	// SizeM is a moderate task with some scope.
	SizeM Size = "M"
	// SizeL is a large task; consider splitting it.
	SizeL Size = "L"
	// SizeXL is an extra-large task that almost certainly should be split.
	SizeXL Size = "XL"
)

// String returns the string representation of the size.
func (s Size) String() string {
	return string(s)
}

// IsValid returns true if this is a recognized size value.
func (s Size) IsValid() bool {
	switch s {
	case SizeS, SizeM, SizeL, SizeXL:
		return true
	default:
		return false
	}
}

// -----------------------------------------------------------------------------
// Dependency
// -----------------------------------------------------------------------------

// DependencyType classifies an edge between two tasks.
//
// Only blocks edges participate in scheduling order and cycle checks;
// relates_to and duplicates edges are informational.
type DependencyType string

const (
	// DepBlocks means the referenced task must complete before this one starts.
	DepBlocks DependencyType = "blocks"
	// DepRelatesTo links two tasks for navigation without constraining order.
	DepRelatesTo DependencyType = "relates_to"
	// DepDuplicates marks this task as a duplicate of the referenced one.
	DepDuplicates DependencyType = "duplicates"
)

// String returns the string representation of the dependency type.
func (d DependencyType) String() string {
	return string(d)
}

// IsValid returns true if this is a recognized dependency type.
func (d DependencyType) IsValid() bool {
	switch d {
	case DepBlocks, DepRelatesTo, DepDuplicates:
		return true
	default:
		return false
	}
}

// Scheduling returns true if edges of this type constrain execution order.
func (d DependencyType) Scheduling() bool {
	return d == DepBlocks
}

// Dependency is a typed reference from one task to another.
// The referenced task is the dependency: for blocks edges it must
// complete first.
type Dependency struct {
	// TaskID is the identifier of the task this task depends on.
	TaskID string `json:"task_id" yaml:"task_id"`

	// Type classifies the edge. Defaults to blocks when empty at ingestion.
	Type DependencyType `json:"type" yaml:"type"`
}

// -----------------------------------------------------------------------------
// Priority bounds
// -----------------------------------------------------------------------------

// Priority is an ordered urgency scale from PriorityMin (lowest) to
// PriorityMax (highest).
const (
	PriorityMin = 1
	PriorityMax = 5
)

// -----------------------------------------------------------------------------
// Node
// -----------------------------------------------------------------------------

// Node is a single task record as consumed by the scheduler.
//
// Nodes are constructed by the store or by file ingestion and handed to the
// graph per scheduling session. The executor mutates Done in place as tasks
// finish; persisting that mutation back to storage is the caller's
// responsibility.
type Node struct {
	// ID uniquely identifies this task.
	ID string `json:"id" yaml:"id"`

	// Title is a short, human-readable name for the task.
	Title string `json:"title" yaml:"title"`

	// BoardID is the board this task belongs to.
	BoardID string `json:"board_id,omitempty" yaml:"board_id,omitempty"`

	// Phase is a caller-supplied label used only for display grouping.
	// It has no effect on dependency order.
	Phase string `json:"phase,omitempty" yaml:"phase,omitempty"`

	// Done marks the task as complete for scheduling purposes.
	Done bool `json:"done" yaml:"done"`

	// Priority is the declared urgency on the PriorityMin..PriorityMax scale.
	Priority int `json:"priority" yaml:"priority"`

	// Size is the effort class of this task.
	Size Size `json:"size" yaml:"size"`

	// Status is the lifecycle state of this task.
	Status Status `json:"status" yaml:"status"`

	// DueAt is the optional due timestamp. Nil means no due date.
	DueAt *time.Time `json:"due_at,omitempty" yaml:"due_at,omitempty"`

	// Assignee is the optional owner of this task.
	Assignee string `json:"assignee,omitempty" yaml:"assignee,omitempty"`

	// Dependencies lists the typed edges from this task to the tasks it
	// depends on, in declaration order.
	Dependencies []Dependency `json:"dependencies" yaml:"dependencies"`
}

// BlockingDeps returns the IDs of the blocks-typed dependencies, in
// declaration order.
func (n *Node) BlockingDeps() []string {
	var ids []string
	for _, dep := range n.Dependencies {
		if dep.Type.Scheduling() {
			ids = append(ids, dep.TaskID)
		}
	}
	return ids
}

// Completed returns true if this task counts as finished for scheduling:
// either the Done flag is set or the status is done.
func (n *Node) Completed() bool {
	return n.Done || n.Status == StatusDone
}

// Recommendable returns true if this task may appear in recommendations.
// Blocked and archived tasks never do.
func (n *Node) Recommendable() bool {
	return n.Status != StatusBlocked && n.Status != StatusArchived
}

// Validate checks the node for well-formedness. It returns a
// ValidationError (matching errors.ErrValidationFailed) describing the
// first problem found.
func (n *Node) Validate() error {
	if n.ID == "" {
		return errors.NewValidationError("task ID cannot be empty").
			WithField("id").
			WithCause(errors.ErrValidationFailed)
	}
	if !n.Status.IsValid() {
		return errors.NewValidationError("unknown status").
			WithField("status").
			WithValue(string(n.Status)).
			WithCause(errors.ErrValidationFailed)
	}
	if n.Size != "" && !n.Size.IsValid() {
		return errors.NewValidationError("unknown size").
			WithField("size").
			WithValue(string(n.Size)).
			WithCause(errors.ErrValidationFailed)
	}
	if n.Priority < PriorityMin || n.Priority > PriorityMax {
		return errors.NewValidationError("priority out of range").
			WithField("priority").
			WithValue(n.Priority).
			WithCause(errors.ErrValidationFailed)
	}
	for _, dep := range n.Dependencies {
		if dep.TaskID == "" {
			return errors.NewValidationError("dependency task ID cannot be empty").
				WithField("dependencies").
				WithCause(errors.ErrValidationFailed)
		}
		if !dep.Type.IsValid() {
			return errors.NewValidationError("unknown dependency type").
				WithField("dependencies").
				WithValue(string(dep.Type)).
				WithCause(errors.ErrValidationFailed)
		}
	}
	return nil
}

// Normalize fills in defaults for optional fields: empty status becomes
// todo, empty size becomes M, zero priority becomes the midpoint, and
// dependencies without a type become blocks. Call before Validate when
// ingesting loosely-specified records.
func (n *Node) Normalize() {
	if n.Status == "" {
		n.Status = StatusTodo
	}
	if n.Size == "" {
		n.Size = SizeM
	}
	if n.Priority == 0 {
		n.Priority = (PriorityMin + PriorityMax) / 2
	}
	for i := range n.Dependencies {
		if n.Dependencies[i].Type == "" {
			n.Dependencies[i].Type = DepBlocks
		}
	}
}
