package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flowboardhq/flowboard/internal/graph"
	"github.com/flowboardhq/flowboard/internal/ingest"
	"github.com/flowboardhq/flowboard/internal/logging"
	"github.com/flowboardhq/flowboard/internal/planner"
	"github.com/flowboardhq/flowboard/internal/store/sqlite"
	"github.com/flowboardhq/flowboard/internal/task"
)

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "flowboard" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "flowboard")
	}

	// Check for expected subcommands (compare by Name(), not Use which includes args)
	expectedCmds := []string{"serve", "plan", "run", "next", "import"}
	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}

	for _, expected := range expectedCmds {
		if !cmdMap[expected] {
			t.Errorf("expected subcommand %q not found", expected)
		}
	}
}

func TestRunCommandFlags(t *testing.T) {
	for _, name := range []string{"board", "exec", "dry-run", "watch", "max-parallel", "exit-on-error"} {
		if runCmd.Flags().Lookup(name) == nil {
			t.Errorf("run command missing flag --%s", name)
		}
	}
}

func TestTaskActionDefaultSucceeds(t *testing.T) {
	action := taskAction("", logging.NopLogger())
	err := action(context.Background(), &task.Node{ID: "t1", Title: "anything"})
	if err != nil {
		t.Errorf("default action returned %v, want nil", err)
	}
}

func TestTaskActionRunsCommand(t *testing.T) {
	log := logging.NopLogger()

	action := taskAction(`test "$FLOWBOARD_TASK_ID" = "t1"`, log)
	if err := action(context.Background(), &task.Node{ID: "t1"}); err != nil {
		t.Errorf("env-checking command failed: %v", err)
	}

	failing := taskAction("exit 3", log)
	if err := failing(context.Background(), &task.Node{ID: "t2"}); err == nil {
		t.Error("failing command returned nil error")
	}
}

func TestImportTasksSkipsDuplicates(t *testing.T) {
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), 5*time.Second)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.Close()

	existing := &task.Node{ID: "a", Title: "Already there"}
	existing.Normalize()
	if err := db.CreateTask(context.Background(), existing); err != nil {
		t.Fatalf("seed task: %v", err)
	}

	set := &ingest.TaskSet{Tasks: []*task.Node{
		{ID: "a", Title: "Duplicate"},
		{ID: "b", Title: "New"},
	}}
	for _, n := range set.Tasks {
		n.Normalize()
	}

	created, skipped, err := importTasks(context.Background(), db, set)
	if err != nil {
		t.Fatalf("importTasks: %v", err)
	}
	if created != 1 || skipped != 1 {
		t.Errorf("created = %d, skipped = %d, want 1 and 1", created, skipped)
	}

	got, err := db.GetTask(context.Background(), "a")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Title != "Already there" {
		t.Errorf("duplicate import overwrote task: title = %q", got.Title)
	}
}

func TestPrintPlanListsStuckWithMissingDeps(t *testing.T) {
	ready := &task.Node{ID: "a", Title: "Ready work"}
	stuck := &task.Node{ID: "b", Title: "Orphaned work", Dependencies: []task.Dependency{
		{TaskID: "missing", Type: task.DepBlocks},
		{TaskID: "also-missing", Type: task.DepBlocks},
	}}
	for _, n := range []*task.Node{ready, stuck} {
		n.Normalize()
	}
	g, err := graph.Build([]*task.Node{ready, stuck})
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	plan := planner.Compute(g, g.CompletedSet())

	var buf bytes.Buffer
	printPlan(&buf, g, plan)
	out := buf.String()

	if !strings.Contains(out, "Wave 1") || !strings.Contains(out, "Ready work") {
		t.Errorf("output missing runnable wave:\n%s", out)
	}
	if !strings.Contains(out, "Stuck") || !strings.Contains(out, "Orphaned work") {
		t.Errorf("output missing stuck section:\n%s", out)
	}
	if !strings.Contains(out, "waiting on: missing, also-missing") {
		t.Errorf("output missing dangling dependency list:\n%s", out)
	}
}

func TestPrintPlanEmpty(t *testing.T) {
	g, err := graph.Build(nil)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	plan := planner.Compute(g, nil)

	var buf bytes.Buffer
	printPlan(&buf, g, plan)
	if !strings.Contains(buf.String(), "Nothing to schedule") {
		t.Errorf("empty plan output = %q", buf.String())
	}
}
