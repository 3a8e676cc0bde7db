// Package store defines the persistence interface for boards, tasks, and
// their relationships. Implementations live in subpackages; the scheduler
// core never touches storage directly.
package store

import (
	"context"
	"time"

	"github.com/flowboardhq/flowboard/internal/executor"
	"github.com/flowboardhq/flowboard/internal/task"
)

// Board is a kanban board containing tasks.
type Board struct {
	// ID uniquely identifies the board.
	ID string `json:"id"`

	// Name is the human-readable board name.
	Name string `json:"name"`

	// CreatedAt is when the board was created.
	CreatedAt time.Time `json:"created_at"`
}

// Note is a freeform comment attached to a task.
type Note struct {
	// ID is the note's storage identifier.
	ID int64 `json:"id"`

	// TaskID is the task this note belongs to.
	TaskID string `json:"task_id"`

	// Body is the note text.
	Body string `json:"body"`

	// CreatedAt is when the note was written.
	CreatedAt time.Time `json:"created_at"`
}

// Store is the persistence contract. All methods honor context
// cancellation. Lookups of missing records return errors matching
// errors.ErrResourceNotFound.
type Store interface {
	// CreateBoard inserts a new board. Duplicate IDs fail with
	// ErrDuplicateID.
	CreateBoard(ctx context.Context, b *Board) error

	// GetBoard fetches a board by ID.
	GetBoard(ctx context.Context, id string) (*Board, error)

	// ListBoards returns all boards ordered by ID.
	ListBoards(ctx context.Context) ([]*Board, error)

	// DeleteBoard removes a board and everything on it.
	DeleteBoard(ctx context.Context, id string) error

	// CreateTask inserts a new task with its dependencies and tags.
	CreateTask(ctx context.Context, t *task.Node) error

	// GetTask fetches a task by ID, dependencies included.
	GetTask(ctx context.Context, id string) (*task.Node, error)

	// ListTasks returns the tasks on a board ordered by ID.
	// An empty boardID returns every task.
	ListTasks(ctx context.Context, boardID string) ([]*task.Node, error)

	// UpdateTask rewrites a task's fields and dependency list.
	UpdateTask(ctx context.Context, t *task.Node) error

	// DeleteTask removes a task, its dependencies, notes, and tags.
	// Edges pointing at the task from other tasks are removed too.
	DeleteTask(ctx context.Context, id string) error

	// AddDependency records a typed edge from one task to another.
	// Both tasks must exist. Duplicate edges are idempotent.
	AddDependency(ctx context.Context, fromID, toID string, typ task.DependencyType) error

	// RemoveDependency deletes the edge between two tasks if present.
	RemoveDependency(ctx context.Context, fromID, toID string) error

	// AddNote attaches a note to a task and returns it with ID and
	// timestamp filled in.
	AddNote(ctx context.Context, taskID, body string) (*Note, error)

	// ListNotes returns a task's notes in creation order.
	ListNotes(ctx context.Context, taskID string) ([]*Note, error)

	// AddTag attaches a label to a task. Idempotent.
	AddTag(ctx context.Context, taskID, tag string) error

	// RemoveTag detaches a label from a task if present.
	RemoveTag(ctx context.Context, taskID, tag string) error

	// ListTags returns a task's tags sorted.
	ListTags(ctx context.Context, taskID string) ([]string, error)

	// SaveCompletion writes an execution report's outcomes back: tasks
	// that succeeded are marked done. Skipped and failed tasks are left
	// untouched.
	SaveCompletion(ctx context.Context, report *executor.Report) error

	// Close releases the underlying storage.
	Close() error
}
