package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/flowboardhq/flowboard/internal/errors"
	"github.com/flowboardhq/flowboard/internal/executor"
	"github.com/flowboardhq/flowboard/internal/store"
	"github.com/flowboardhq/flowboard/internal/task"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), 5*time.Second)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTask(id string, deps ...string) *task.Node {
	t := &task.Node{
		ID:       id,
		Title:    "task " + id,
		BoardID:  "board-1",
		Priority: 3,
		Size:     task.SizeM,
		Status:   task.StatusTodo,
	}
	for _, dep := range deps {
		t.Dependencies = append(t.Dependencies, task.Dependency{TaskID: dep, Type: task.DepBlocks})
	}
	return t
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(path, time.Second)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	db.Close()

	db, err = Open(path, time.Second)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	db.Close()
}

func TestBoardCRUD(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	b := &store.Board{ID: "board-1", Name: "Backend"}
	if err := db.CreateBoard(ctx, b); err != nil {
		t.Fatalf("CreateBoard failed: %v", err)
	}
	if b.CreatedAt.IsZero() {
		t.Error("CreateBoard should fill CreatedAt")
	}

	got, err := db.GetBoard(ctx, "board-1")
	if err != nil {
		t.Fatalf("GetBoard failed: %v", err)
	}
	if got.Name != "Backend" {
		t.Errorf("Name = %q, want Backend", got.Name)
	}

	if err := db.CreateBoard(ctx, &store.Board{ID: "board-1"}); !errors.Is(err, errors.ErrDuplicateID) {
		t.Errorf("duplicate CreateBoard err = %v, want ErrDuplicateID", err)
	}

	if err := db.CreateBoard(ctx, &store.Board{ID: "board-2", Name: "Frontend"}); err != nil {
		t.Fatal(err)
	}
	boards, err := db.ListBoards(ctx)
	if err != nil {
		t.Fatalf("ListBoards failed: %v", err)
	}
	if len(boards) != 2 || boards[0].ID != "board-1" || boards[1].ID != "board-2" {
		t.Errorf("ListBoards returned wrong set: %+v", boards)
	}

	if err := db.DeleteBoard(ctx, "board-2"); err != nil {
		t.Fatalf("DeleteBoard failed: %v", err)
	}
	if _, err := db.GetBoard(ctx, "board-2"); !errors.IsNotFound(err) {
		t.Errorf("GetBoard after delete err = %v, want not found", err)
	}
	if err := db.DeleteBoard(ctx, "board-2"); !errors.IsNotFound(err) {
		t.Errorf("double DeleteBoard err = %v, want not found", err)
	}
}

func TestTaskCRUD(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	due := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	created := newTask("t1")
	created.DueAt = &due
	created.Assignee = "alice"
	created.Phase = "phase-1"

	if err := db.CreateTask(ctx, created); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	got, err := db.GetTask(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Title != "task t1" || got.Assignee != "alice" || got.Phase != "phase-1" {
		t.Errorf("GetTask returned %+v", got)
	}
	if got.DueAt == nil || !got.DueAt.Equal(due) {
		t.Errorf("DueAt = %v, want %v", got.DueAt, due)
	}

	if err := db.CreateTask(ctx, newTask("t1")); !errors.Is(err, errors.ErrDuplicateID) {
		t.Errorf("duplicate CreateTask err = %v, want ErrDuplicateID", err)
	}

	got.Status = task.StatusInProgress
	got.Priority = 5
	got.DueAt = nil
	if err := db.UpdateTask(ctx, got); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}

	updated, err := db.GetTask(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != task.StatusInProgress || updated.Priority != 5 {
		t.Errorf("update not persisted: %+v", updated)
	}
	if updated.DueAt != nil {
		t.Errorf("DueAt = %v, want nil after clearing", updated.DueAt)
	}

	if err := db.UpdateTask(ctx, newTask("ghost")); !errors.IsNotFound(err) {
		t.Errorf("UpdateTask on missing task err = %v, want not found", err)
	}

	if err := db.DeleteTask(ctx, "t1"); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if _, err := db.GetTask(ctx, "t1"); !errors.IsNotFound(err) {
		t.Errorf("GetTask after delete err = %v, want not found", err)
	}
}

func TestTaskDependenciesPersist(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.CreateTask(ctx, newTask("a")); err != nil {
		t.Fatal(err)
	}
	b := newTask("b", "a")
	b.Dependencies = append(b.Dependencies, task.Dependency{TaskID: "z", Type: task.DepRelatesTo})
	if err := db.CreateTask(ctx, b); err != nil {
		t.Fatalf("CreateTask with deps failed: %v", err)
	}

	got, err := db.GetTask(ctx, "b")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Dependencies) != 2 {
		t.Fatalf("got %d dependencies, want 2", len(got.Dependencies))
	}
	if got.Dependencies[0].TaskID != "a" || got.Dependencies[0].Type != task.DepBlocks {
		t.Errorf("first dep = %+v", got.Dependencies[0])
	}
	if got.Dependencies[1].TaskID != "z" || got.Dependencies[1].Type != task.DepRelatesTo {
		t.Errorf("second dep = %+v", got.Dependencies[1])
	}

	tasks, err := db.ListTasks(ctx, "board-1")
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	// tasks sorted by ID: a, b
	if len(tasks[1].Dependencies) != 2 {
		t.Errorf("ListTasks should attach dependencies, got %+v", tasks[1].Dependencies)
	}

	// Deleting the target removes inbound edges too.
	if err := db.DeleteTask(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	got, err = db.GetTask(ctx, "b")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Dependencies) != 1 || got.Dependencies[0].TaskID != "z" {
		t.Errorf("inbound edge not removed: %+v", got.Dependencies)
	}
}

func TestAddRemoveDependency(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.CreateTask(ctx, newTask("a")); err != nil {
		t.Fatal(err)
	}
	if err := db.CreateTask(ctx, newTask("b")); err != nil {
		t.Fatal(err)
	}

	if err := db.AddDependency(ctx, "b", "a", task.DepBlocks); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}
	// Idempotent.
	if err := db.AddDependency(ctx, "b", "a", task.DepBlocks); err != nil {
		t.Fatalf("duplicate AddDependency failed: %v", err)
	}

	if err := db.AddDependency(ctx, "b", "ghost", task.DepBlocks); !errors.IsNotFound(err) {
		t.Errorf("AddDependency to missing task err = %v, want not found", err)
	}
	if err := db.AddDependency(ctx, "b", "a", "needs"); !errors.IsValidation(err) {
		t.Errorf("AddDependency with bad type err = %v, want validation error", err)
	}

	got, err := db.GetTask(ctx, "b")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Dependencies) != 1 {
		t.Fatalf("got %d dependencies, want 1", len(got.Dependencies))
	}

	if err := db.RemoveDependency(ctx, "b", "a"); err != nil {
		t.Fatalf("RemoveDependency failed: %v", err)
	}
	got, err = db.GetTask(ctx, "b")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Dependencies) != 0 {
		t.Errorf("dependencies remain after removal: %+v", got.Dependencies)
	}
}

func TestNotesAndTags(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.CreateTask(ctx, newTask("t1")); err != nil {
		t.Fatal(err)
	}

	n1, err := db.AddNote(ctx, "t1", "first note")
	if err != nil {
		t.Fatalf("AddNote failed: %v", err)
	}
	if n1.ID == 0 || n1.CreatedAt.IsZero() {
		t.Errorf("AddNote should fill ID and CreatedAt: %+v", n1)
	}
	if _, err := db.AddNote(ctx, "t1", "second note"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.AddNote(ctx, "ghost", "x"); !errors.IsNotFound(err) {
		t.Errorf("AddNote to missing task err = %v, want not found", err)
	}

	notes, err := db.ListNotes(ctx, "t1")
	if err != nil {
		t.Fatalf("ListNotes failed: %v", err)
	}
	if len(notes) != 2 || notes[0].Body != "first note" || notes[1].Body != "second note" {
		t.Errorf("ListNotes = %+v", notes)
	}

	for _, tag := range []string{"urgent", "backend", "urgent"} {
		if err := db.AddTag(ctx, "t1", tag); err != nil {
			t.Fatalf("AddTag(%q) failed: %v", tag, err)
		}
	}
	tags, err := db.ListTags(ctx, "t1")
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}
	if len(tags) != 2 || tags[0] != "backend" || tags[1] != "urgent" {
		t.Errorf("ListTags = %v, want [backend urgent]", tags)
	}

	if err := db.RemoveTag(ctx, "t1", "urgent"); err != nil {
		t.Fatalf("RemoveTag failed: %v", err)
	}
	tags, _ = db.ListTags(ctx, "t1")
	if len(tags) != 1 || tags[0] != "backend" {
		t.Errorf("ListTags after removal = %v", tags)
	}
}

func TestSaveCompletion(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := db.CreateTask(ctx, newTask(id)); err != nil {
			t.Fatal(err)
		}
	}

	report := &executor.Report{
		Results: []executor.Result{
			{TaskID: "a", Outcome: executor.OutcomeSucceeded},
			{TaskID: "b", Outcome: executor.OutcomeFailed},
			{TaskID: "c", Outcome: executor.OutcomeSkipped},
		},
	}
	if err := db.SaveCompletion(ctx, report); err != nil {
		t.Fatalf("SaveCompletion failed: %v", err)
	}

	a, _ := db.GetTask(ctx, "a")
	if !a.Done || a.Status != task.StatusDone {
		t.Errorf("a should be done, got done=%v status=%s", a.Done, a.Status)
	}
	b, _ := db.GetTask(ctx, "b")
	if b.Done {
		t.Error("failed task b must not be marked done")
	}
	c, _ := db.GetTask(ctx, "c")
	if c.Done {
		t.Error("skipped task c must not be marked done")
	}
}

func TestSaveCompletionDryRun(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.CreateTask(ctx, newTask("a")); err != nil {
		t.Fatal(err)
	}

	report := &executor.Report{
		DryRun:  true,
		Results: []executor.Result{{TaskID: "a", Outcome: executor.OutcomeSucceeded}},
	}
	if err := db.SaveCompletion(ctx, report); err != nil {
		t.Fatalf("SaveCompletion failed: %v", err)
	}

	a, _ := db.GetTask(ctx, "a")
	if a.Done {
		t.Error("dry-run report must not persist completion")
	}
}
