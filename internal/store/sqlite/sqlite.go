// Package sqlite implements the store.Store interface on SQLite using the
// pure-Go modernc.org/sqlite driver. Schema migrations are embedded and
// applied on open, tracked through the user_version pragma.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/flowboardhq/flowboard/internal/errors"
	"github.com/flowboardhq/flowboard/internal/executor"
	"github.com/flowboardhq/flowboard/internal/store"
	"github.com/flowboardhq/flowboard/internal/task"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// DB implements store.Store on a SQLite database file.
type DB struct {
	db *sql.DB
}

// compile-time interface check
var _ store.Store = (*DB)(nil)

// Open opens (creating if necessary) the database at path and applies any
// pending migrations. busyTimeout bounds how long writes wait on a locked
// database.
func Open(path string, busyTimeout time.Duration) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)",
		path, busyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.NewStoreError("open database", err)
	}

	// SQLite allows one writer; a single connection avoids lock churn.
	db.SetMaxOpenConns(1)

	s := &DB{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// migrate applies embedded migrations newer than the stored user_version,
// in lexical filename order.
func (s *DB) migrate() error {
	entries, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return errors.NewStoreError("list migrations", err)
	}
	sort.Strings(entries)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return errors.NewStoreError("read schema version", err)
	}

	for i, name := range entries {
		v := i + 1
		if v <= version {
			continue
		}

		script, err := migrationFS.ReadFile(name)
		if err != nil {
			return errors.NewStoreError("read migration", err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return errors.NewStoreError("begin migration", err)
		}
		if _, err := tx.Exec(string(script)); err != nil {
			tx.Rollback()
			return errors.NewStoreError(fmt.Sprintf("apply migration %s", name), err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v)); err != nil {
			tx.Rollback()
			return errors.NewStoreError("bump schema version", err)
		}
		if err := tx.Commit(); err != nil {
			return errors.NewStoreError("commit migration", err)
		}
	}
	return nil
}

// Close releases the database handle.
func (s *DB) Close() error {
	return s.db.Close()
}

// -----------------------------------------------------------------------------
// Boards
// -----------------------------------------------------------------------------

// CreateBoard inserts a new board. Duplicate IDs fail with ErrDuplicateID.
func (s *DB) CreateBoard(ctx context.Context, b *store.Board) error {
	if b.ID == "" {
		return errors.NewValidationError("board ID cannot be empty").
			WithField("id").
			WithCause(errors.ErrValidationFailed)
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	exists, err := s.rowExists(ctx, "SELECT 1 FROM boards WHERE id = ?", b.ID)
	if err != nil {
		return errors.NewStoreError("check board", err).WithTable("boards")
	}
	if exists {
		return errors.NewStoreError("board already exists", errors.ErrDuplicateID).
			WithBoard(b.ID).
			WithTable("boards")
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO boards (id, name, created_at) VALUES (?, ?, ?)",
		b.ID, b.Name, b.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return errors.NewStoreError("insert board", err).WithTable("boards")
	}
	return nil
}

// GetBoard fetches a board by ID.
func (s *DB) GetBoard(ctx context.Context, id string) (*store.Board, error) {
	var b store.Board
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM boards WHERE id = ?", id).
		Scan(&b.ID, &b.Name, &createdAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("board", id).
			WithCause(errors.ErrBoardNotFound)
	}
	if err != nil {
		return nil, errors.NewStoreError("select board", err).WithTable("boards")
	}
	b.CreatedAt = parseTime(createdAt)
	return &b, nil
}

// ListBoards returns all boards ordered by ID.
func (s *DB) ListBoards(ctx context.Context) ([]*store.Board, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, created_at FROM boards ORDER BY id")
	if err != nil {
		return nil, errors.NewStoreError("select boards", err).WithTable("boards")
	}
	defer rows.Close()

	var boards []*store.Board
	for rows.Next() {
		var b store.Board
		var createdAt string
		if err := rows.Scan(&b.ID, &b.Name, &createdAt); err != nil {
			return nil, errors.NewStoreError("scan board", err).WithTable("boards")
		}
		b.CreatedAt = parseTime(createdAt)
		boards = append(boards, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError("iterate boards", err).WithTable("boards")
	}
	return boards, nil
}

// DeleteBoard removes a board and everything on it.
func (s *DB) DeleteBoard(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStoreError("begin delete board", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM boards WHERE id = ?", id)
	if err != nil {
		return errors.NewStoreError("delete board", err).WithTable("boards")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFoundError("board", id).
			WithCause(errors.ErrBoardNotFound)
	}

	// Cascade by hand: dependency rows carry no FK (dangling refs are
	// legal) and notes/tags hang off tasks.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM dependencies WHERE from_id IN (SELECT id FROM tasks WHERE board_id = ?)
		    OR to_id IN (SELECT id FROM tasks WHERE board_id = ?)`, id, id); err != nil {
		return errors.NewStoreError("delete board dependencies", err).WithTable("dependencies")
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE board_id = ?", id); err != nil {
		return errors.NewStoreError("delete board tasks", err).WithTable("tasks")
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStoreError("commit delete board", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Tasks
// -----------------------------------------------------------------------------

// CreateTask inserts a new task with its dependency list.
func (s *DB) CreateTask(ctx context.Context, t *task.Node) error {
	if err := t.Validate(); err != nil {
		return err
	}

	exists, err := s.rowExists(ctx, "SELECT 1 FROM tasks WHERE id = ?", t.ID)
	if err != nil {
		return errors.NewStoreError("check task", err).WithTable("tasks")
	}
	if exists {
		return errors.NewStoreError("task already exists", errors.ErrDuplicateID).
			WithTable("tasks")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStoreError("begin create task", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO tasks (id, board_id, title, phase, done, priority, size, status, due_at, assignee)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.BoardID, t.Title, t.Phase, boolToInt(t.Done), t.Priority,
		string(t.Size), string(t.Status), timePtrToString(t.DueAt), t.Assignee)
	if err != nil {
		return errors.NewStoreError("insert task", err).WithTable("tasks")
	}

	if err := insertDeps(ctx, tx, t.ID, t.Dependencies); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStoreError("commit create task", err)
	}
	return nil
}

// GetTask fetches a task by ID, dependencies included.
func (s *DB) GetTask(ctx context.Context, id string) (*task.Node, error) {
	t, err := s.scanTask(ctx, id)
	if err != nil {
		return nil, err
	}

	deps, err := s.depsOf(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Dependencies = deps
	return t, nil
}

// ListTasks returns the tasks on a board ordered by ID. An empty boardID
// returns every task.
func (s *DB) ListTasks(ctx context.Context, boardID string) ([]*task.Node, error) {
	query := `SELECT id, board_id, title, phase, done, priority, size, status, due_at, assignee
	          FROM tasks`
	args := []any{}
	if boardID != "" {
		query += " WHERE board_id = ?"
		args = append(args, boardID)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewStoreError("select tasks", err).WithTable("tasks")
	}
	defer rows.Close()

	var tasks []*task.Node
	byID := make(map[string]*task.Node)
	for rows.Next() {
		t, err := scanTaskRow(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
		byID[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError("iterate tasks", err).WithTable("tasks")
	}

	// One pass over the edge table instead of a query per task.
	depRows, err := s.db.QueryContext(ctx,
		"SELECT from_id, to_id, type FROM dependencies ORDER BY rowid")
	if err != nil {
		return nil, errors.NewStoreError("select dependencies", err).WithTable("dependencies")
	}
	defer depRows.Close()

	for depRows.Next() {
		var fromID, toID, typ string
		if err := depRows.Scan(&fromID, &toID, &typ); err != nil {
			return nil, errors.NewStoreError("scan dependency", err).WithTable("dependencies")
		}
		if t, ok := byID[fromID]; ok {
			t.Dependencies = append(t.Dependencies, task.Dependency{
				TaskID: toID,
				Type:   task.DependencyType(typ),
			})
		}
	}
	if err := depRows.Err(); err != nil {
		return nil, errors.NewStoreError("iterate dependencies", err).WithTable("dependencies")
	}

	return tasks, nil
}

// UpdateTask rewrites a task's fields and dependency list.
func (s *DB) UpdateTask(ctx context.Context, t *task.Node) error {
	if err := t.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStoreError("begin update task", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE tasks SET board_id = ?, title = ?, phase = ?, done = ?, priority = ?,
		        size = ?, status = ?, due_at = ?, assignee = ?
		 WHERE id = ?`,
		t.BoardID, t.Title, t.Phase, boolToInt(t.Done), t.Priority,
		string(t.Size), string(t.Status), timePtrToString(t.DueAt), t.Assignee, t.ID)
	if err != nil {
		return errors.NewStoreError("update task", err).WithTable("tasks")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFoundError("task", t.ID).
			WithCause(errors.ErrTaskNotFound)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM dependencies WHERE from_id = ?", t.ID); err != nil {
		return errors.NewStoreError("clear dependencies", err).WithTable("dependencies")
	}
	if err := insertDeps(ctx, tx, t.ID, t.Dependencies); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStoreError("commit update task", err)
	}
	return nil
}

// DeleteTask removes a task, its dependencies, notes, and tags. Edges
// pointing at the task from other tasks are removed too.
func (s *DB) DeleteTask(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStoreError("begin delete task", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return errors.NewStoreError("delete task", err).WithTable("tasks")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFoundError("task", id).
			WithCause(errors.ErrTaskNotFound)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM dependencies WHERE from_id = ? OR to_id = ?", id, id); err != nil {
		return errors.NewStoreError("delete task dependencies", err).WithTable("dependencies")
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStoreError("commit delete task", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Dependencies
// -----------------------------------------------------------------------------

// AddDependency records a typed edge from one task to another. Both tasks
// must exist. Duplicate edges are idempotent.
func (s *DB) AddDependency(ctx context.Context, fromID, toID string, typ task.DependencyType) error {
	if !typ.IsValid() {
		return errors.NewValidationError("unknown dependency type").
			WithField("type").
			WithValue(string(typ)).
			WithCause(errors.ErrValidationFailed)
	}

	for _, id := range []string{fromID, toID} {
		exists, err := s.rowExists(ctx, "SELECT 1 FROM tasks WHERE id = ?", id)
		if err != nil {
			return errors.NewStoreError("check task", err).WithTable("tasks")
		}
		if !exists {
			return errors.NewNotFoundError("task", id).
				WithCause(errors.ErrResourceNotFound)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dependencies (from_id, to_id, type) VALUES (?, ?, ?)
		 ON CONFLICT (from_id, to_id) DO UPDATE SET type = excluded.type`,
		fromID, toID, string(typ))
	if err != nil {
		return errors.NewStoreError("insert dependency", err).WithTable("dependencies")
	}
	return nil
}

// RemoveDependency deletes the edge between two tasks if present.
func (s *DB) RemoveDependency(ctx context.Context, fromID, toID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM dependencies WHERE from_id = ? AND to_id = ?", fromID, toID)
	if err != nil {
		return errors.NewStoreError("delete dependency", err).WithTable("dependencies")
	}
	return nil
}

// -----------------------------------------------------------------------------
// Notes and tags
// -----------------------------------------------------------------------------

// AddNote attaches a note to a task.
func (s *DB) AddNote(ctx context.Context, taskID, body string) (*store.Note, error) {
	exists, err := s.rowExists(ctx, "SELECT 1 FROM tasks WHERE id = ?", taskID)
	if err != nil {
		return nil, errors.NewStoreError("check task", err).WithTable("tasks")
	}
	if !exists {
		return nil, errors.NewNotFoundError("task", taskID).
			WithCause(errors.ErrTaskNotFound)
	}

	createdAt := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO notes (task_id, body, created_at) VALUES (?, ?, ?)",
		taskID, body, createdAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, errors.NewStoreError("insert note", err).WithTable("notes")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.NewStoreError("note ID", err).WithTable("notes")
	}
	return &store.Note{ID: id, TaskID: taskID, Body: body, CreatedAt: createdAt}, nil
}

// ListNotes returns a task's notes in creation order.
func (s *DB) ListNotes(ctx context.Context, taskID string) ([]*store.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, task_id, body, created_at FROM notes WHERE task_id = ? ORDER BY id",
		taskID)
	if err != nil {
		return nil, errors.NewStoreError("select notes", err).WithTable("notes")
	}
	defer rows.Close()

	var notes []*store.Note
	for rows.Next() {
		var n store.Note
		var createdAt string
		if err := rows.Scan(&n.ID, &n.TaskID, &n.Body, &createdAt); err != nil {
			return nil, errors.NewStoreError("scan note", err).WithTable("notes")
		}
		n.CreatedAt = parseTime(createdAt)
		notes = append(notes, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError("iterate notes", err).WithTable("notes")
	}
	return notes, nil
}

// AddTag attaches a label to a task. Idempotent.
func (s *DB) AddTag(ctx context.Context, taskID, tag string) error {
	exists, err := s.rowExists(ctx, "SELECT 1 FROM tasks WHERE id = ?", taskID)
	if err != nil {
		return errors.NewStoreError("check task", err).WithTable("tasks")
	}
	if !exists {
		return errors.NewNotFoundError("task", taskID).
			WithCause(errors.ErrTaskNotFound)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO tags (task_id, tag) VALUES (?, ?)", taskID, tag)
	if err != nil {
		return errors.NewStoreError("insert tag", err).WithTable("tags")
	}
	return nil
}

// RemoveTag detaches a label from a task if present.
func (s *DB) RemoveTag(ctx context.Context, taskID, tag string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM tags WHERE task_id = ? AND tag = ?", taskID, tag)
	if err != nil {
		return errors.NewStoreError("delete tag", err).WithTable("tags")
	}
	return nil
}

// ListTags returns a task's tags sorted.
func (s *DB) ListTags(ctx context.Context, taskID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT tag FROM tags WHERE task_id = ? ORDER BY tag", taskID)
	if err != nil {
		return nil, errors.NewStoreError("select tags", err).WithTable("tags")
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, errors.NewStoreError("scan tag", err).WithTable("tags")
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError("iterate tags", err).WithTable("tags")
	}
	return tags, nil
}

// -----------------------------------------------------------------------------
// Execution reports
// -----------------------------------------------------------------------------

// SaveCompletion marks tasks that succeeded in the report as done.
// Dry-run reports persist nothing.
func (s *DB) SaveCompletion(ctx context.Context, report *executor.Report) error {
	if report == nil || report.DryRun {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStoreError("begin save completion", err)
	}
	defer tx.Rollback()

	for _, r := range report.Results {
		if r.Outcome != executor.OutcomeSucceeded {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE tasks SET done = 1, status = ? WHERE id = ?",
			string(task.StatusDone), r.TaskID); err != nil {
			return errors.NewStoreError("mark task done", err).WithTable("tasks")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStoreError("commit save completion", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (s *DB) rowExists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *DB) scanTask(ctx context.Context, id string) (*task.Node, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, board_id, title, phase, done, priority, size, status, due_at, assignee
		 FROM tasks WHERE id = ?`, id)

	t, err := scanTaskRow(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("task", id).
			WithCause(errors.ErrTaskNotFound)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *DB) depsOf(ctx context.Context, id string) ([]task.Dependency, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT to_id, type FROM dependencies WHERE from_id = ? ORDER BY rowid", id)
	if err != nil {
		return nil, errors.NewStoreError("select dependencies", err).WithTable("dependencies")
	}
	defer rows.Close()

	var deps []task.Dependency
	for rows.Next() {
		var toID, typ string
		if err := rows.Scan(&toID, &typ); err != nil {
			return nil, errors.NewStoreError("scan dependency", err).WithTable("dependencies")
		}
		deps = append(deps, task.Dependency{TaskID: toID, Type: task.DependencyType(typ)})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError("iterate dependencies", err).WithTable("dependencies")
	}
	return deps, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTaskRow(row scanner) (*task.Node, error) {
	var t task.Node
	var done int
	var size, status string
	var dueAt sql.NullString

	err := row.Scan(&t.ID, &t.BoardID, &t.Title, &t.Phase, &done, &t.Priority,
		&size, &status, &dueAt, &t.Assignee)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, errors.NewStoreError("scan task", err).WithTable("tasks")
	}

	t.Done = done != 0
	t.Size = task.Size(size)
	t.Status = task.Status(status)
	if dueAt.Valid && dueAt.String != "" {
		ts := parseTime(dueAt.String)
		t.DueAt = &ts
	}
	return &t, nil
}

func insertDeps(ctx context.Context, tx *sql.Tx, fromID string, deps []task.Dependency) error {
	for _, dep := range deps {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO dependencies (from_id, to_id, type) VALUES (?, ?, ?)
			 ON CONFLICT (from_id, to_id) DO UPDATE SET type = excluded.type`,
			fromID, dep.TaskID, string(dep.Type)); err != nil {
			return errors.NewStoreError("insert dependency", err).WithTable("dependencies")
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func timePtrToString(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
