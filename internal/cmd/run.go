package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/flowboardhq/flowboard/internal/executor"
	"github.com/flowboardhq/flowboard/internal/graph"
	"github.com/flowboardhq/flowboard/internal/logging"
	"github.com/flowboardhq/flowboard/internal/planner"
	"github.com/flowboardhq/flowboard/internal/task"
	"github.com/flowboardhq/flowboard/internal/tui"
)

var (
	runBoard       string
	runExec        string
	runDryRun      bool
	runWatch       bool
	runMaxParallel int
	runExitOnError bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the plan wave by wave",
	Long: `Execute every pending task in dependency order. Waves run one after
another; tasks within a wave run concurrently up to --max-parallel.
With --exec, each task invokes the given shell command with
FLOWBOARD_TASK_ID and FLOWBOARD_TASK_TITLE set; a non-zero exit marks
the task failed. Without --exec, tasks are simply marked done.
Successful completions are written back to the store unless --dry-run
is set.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runBoard, "board", "", "restrict the run to one board")
	runCmd.Flags().StringVar(&runExec, "exec", "", "shell command invoked per task")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "preview the run without invoking anything or persisting")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "render live progress while the run executes")
	runCmd.Flags().IntVar(&runMaxParallel, "max-parallel", -1, "max concurrent tasks per wave (overrides config; 0 = unbounded)")
	runCmd.Flags().BoolVar(&runExitOnError, "exit-on-error", false, "stop scheduling waves after the first failure")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	g, err := loadGraph(cmd.Context(), st, runBoard)
	if err != nil {
		return err
	}

	plan := planner.Compute(g, g.CompletedSet())
	if plan.TaskCount() == 0 && len(plan.Stuck) == 0 {
		fmt.Println("Nothing to run")
		return nil
	}

	opts := executor.Options{
		MaxConcurrent: cfg.Scheduler.MaxParallel,
		ExitOnError:   cfg.Scheduler.ExitOnError || runExitOnError,
		DryRun:        runDryRun,
	}
	if runMaxParallel >= 0 {
		opts.MaxConcurrent = runMaxParallel
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	action := taskAction(runExec, log)

	var report *executor.Report
	if runWatch && !runDryRun {
		report, err = runWatched(ctx, g, plan, action, opts)
		if err != nil {
			return err
		}
	} else {
		report = executor.Run(ctx, g, plan, action, opts)
	}

	if !report.DryRun {
		if err := st.SaveCompletion(cmd.Context(), report); err != nil {
			return fmt.Errorf("failed to persist completions: %w", err)
		}
	}

	printReport(plan, report)
	if report.Failed > 0 {
		return fmt.Errorf("%d task(s) failed", report.Failed)
	}
	return nil
}

// taskAction builds the per-task action. With a command template, each
// task runs it through the shell; otherwise completion is a no-op.
func taskAction(command string, log *logging.Logger) executor.Action {
	if command == "" {
		return func(ctx context.Context, t *task.Node) error {
			log.WithTask(t.ID).Info("task marked done")
			return nil
		}
	}
	return func(ctx context.Context, t *task.Node) error {
		c := exec.CommandContext(ctx, "sh", "-c", command)
		c.Env = append(os.Environ(),
			"FLOWBOARD_TASK_ID="+t.ID,
			"FLOWBOARD_TASK_TITLE="+t.Title,
			"FLOWBOARD_BOARD_ID="+t.BoardID,
		)
		out, err := c.CombinedOutput()
		taskLog := log.WithTask(t.ID)
		if err != nil {
			taskLog.Error("task command failed", "error", err, "output", string(out))
			return fmt.Errorf("command failed for %s: %w", t.ID, err)
		}
		taskLog.Info("task command succeeded")
		return nil
	}
}

// runWatched executes the plan while a bubbletea program renders progress.
// Wave boundaries are inferred from the first task started in each wave;
// waves run strictly sequentially so the inference is exact.
func runWatched(ctx context.Context, g *graph.Graph, plan *planner.Plan, action executor.Action, opts executor.Options) (*executor.Report, error) {
	program := tea.NewProgram(tui.NewProgress(len(plan.Waves), plan.TaskCount()))

	waveOf := make(map[string]int)
	for i, wave := range plan.Waves {
		for _, id := range wave {
			waveOf[id] = i
		}
	}

	var mu sync.Mutex
	announced := -1
	instrumented := func(ctx context.Context, t *task.Node) error {
		mu.Lock()
		if w := waveOf[t.ID]; w > announced {
			announced = w
			program.Send(tui.WaveStartedMsg{Index: w, Size: len(plan.Waves[w])})
		}
		mu.Unlock()

		program.Send(tui.TaskStartedMsg{ID: t.ID})
		err := action(ctx, t)

		outcome := executor.OutcomeSucceeded
		if err != nil {
			outcome = executor.OutcomeFailed
		}
		program.Send(tui.TaskFinishedMsg{ID: t.ID, Outcome: outcome})
		return err
	}

	reportCh := make(chan *executor.Report, 1)
	go func() {
		report := executor.Run(ctx, g, plan, instrumented, opts)
		reportCh <- report
		program.Send(tui.RunFinishedMsg{Report: report})
	}()

	if _, err := program.Run(); err != nil {
		return nil, fmt.Errorf("progress view failed: %w", err)
	}
	return <-reportCh, nil
}

// printReport renders the final per-wave summary.
func printReport(plan *planner.Plan, report *executor.Report) {
	for i, wave := range plan.Waves {
		fmt.Println(headerStyle.Render(fmt.Sprintf("Wave %d", i+1)))
		for _, id := range wave {
			res := report.ResultFor(id)
			if res == nil {
				continue
			}
			fmt.Printf("  %s %s%s\n", outcomeMark(res), id, resultDetail(res))
		}
	}

	if len(plan.Stuck) > 0 {
		fmt.Println(failStyle.Render("Stuck"))
		for _, id := range plan.Stuck {
			fmt.Printf("  %s %s\n", failStyle.Render("✗"), id)
		}
	}

	summary := fmt.Sprintf("%d succeeded, %d failed, %d skipped in %s",
		report.Succeeded, report.Failed, report.Skipped,
		report.Duration().Round(time.Millisecond))
	if report.DryRun {
		summary += " (dry run, nothing persisted)"
	}
	if report.Aborted {
		summary += " (aborted after failure)"
	}
	fmt.Println(dimStyle.Render(summary))
}

func outcomeMark(res *executor.Result) string {
	switch res.Outcome {
	case executor.OutcomeSucceeded:
		return okStyle.Render("✓")
	case executor.OutcomeFailed:
		return failStyle.Render("✗")
	default:
		return warnStyle.Render("-")
	}
}

func resultDetail(res *executor.Result) string {
	switch {
	case res.Error != "":
		return dimStyle.Render("  " + res.Error)
	case res.SkipReason != "":
		return dimStyle.Render("  " + res.SkipReason)
	default:
		return ""
	}
}
