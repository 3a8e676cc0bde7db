// Package executor runs planned waves under a bounded-concurrency policy
// with partial-failure tolerance.
//
// Waves run strictly sequentially: wave k+1 does not start until every
// task in wave k has finished, succeeded or failed. Within a wave, tasks
// run concurrently bounded by a channel semaphore. Workers only report
// outcomes back over a channel; the executor goroutine that owns the run
// loop is the only one that mutates the completed set and task nodes, so
// the graph itself needs no locking. The completed set is resynchronized
// at every wave boundary.
package executor

import (
	"context"
	"sync"
	"time"

	"github.com/flowboardhq/flowboard/internal/graph"
	"github.com/flowboardhq/flowboard/internal/planner"
	"github.com/flowboardhq/flowboard/internal/task"
)

// Action is the caller-supplied unit of work invoked once per task. It may
// block; the executor assumes nothing about its cost or purity. It must
// report success or failure unambiguously through its error return. The
// executor never retries an action.
type Action func(ctx context.Context, t *task.Node) error

// Options configures a run.
type Options struct {
	// MaxConcurrent caps in-flight actions within a wave. Zero or negative
	// means unbounded concurrency within the wave.
	MaxConcurrent int

	// ExitOnError stops scheduling further waves after any failure.
	// Already-started tasks in the current wave are allowed to finish;
	// there is no preemptive cancellation of in-flight actions.
	ExitOnError bool

	// DryRun skips invoking the action entirely, marking every scheduled
	// task as a no-op success. Used to preview an execution plan.
	DryRun bool
}

// Outcome classifies how a task ended.
type Outcome string

const (
	// OutcomeSucceeded means the action returned nil (or the run was a dry
	// run).
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeFailed means the action returned an error.
	OutcomeFailed Outcome = "failed"
	// OutcomeSkipped means the task was never invoked; see SkipReason.
	OutcomeSkipped Outcome = "skipped"
)

// Skip reasons recorded on skipped results.
const (
	SkipAborted     = "aborted: earlier failure with exit-on-error set"
	SkipUnsatisfied = "dependency did not complete"
	SkipStuck       = "unresolvable dependency: task absent from supplied set"
)

// Result is the per-task outcome of a run.
type Result struct {
	// TaskID identifies the task.
	TaskID string `json:"task_id"`

	// Wave is the zero-based wave index the task was scheduled in, or -1
	// for tasks that were stuck at planning time.
	Wave int `json:"wave"`

	// Outcome classifies how the task ended.
	Outcome Outcome `json:"outcome"`

	// Elapsed is the wall-clock time the action ran. Zero for skipped
	// tasks and dry runs.
	Elapsed time.Duration `json:"elapsed"`

	// Err is the captured action error, nil otherwise. Failures are
	// aggregated here and never propagated as run-level errors.
	Err error `json:"-"`

	// Error is Err rendered for serialization.
	Error string `json:"error,omitempty"`

	// SkipReason explains an OutcomeSkipped result.
	SkipReason string `json:"skip_reason,omitempty"`
}

// Report aggregates per-task outcomes for a whole run.
type Report struct {
	// Results holds one entry per task in wave order, stuck tasks last.
	Results []Result `json:"results"`

	// Succeeded, Failed, and Skipped count outcomes.
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`

	// Aborted is true when ExitOnError stopped scheduling further waves.
	Aborted bool `json:"aborted"`

	// DryRun records whether actions were actually invoked.
	DryRun bool `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration returns the wall-clock duration of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ResultFor returns the result for a task ID, or nil if absent.
func (r *Report) ResultFor(id string) *Result {
	for i := range r.Results {
		if r.Results[i].TaskID == id {
			return &r.Results[i]
		}
	}
	return nil
}

// outcomeMsg is what a worker sends back when its action returns.
type outcomeMsg struct {
	taskID  string
	err     error
	elapsed time.Duration
}

// Run executes the plan's waves against the graph. Per-task failures are
// captured in the report, never returned; the only mutation Run performs
// on the graph's nodes is setting Done on tasks that succeed. Persisting
// that completion is the caller's responsibility.
func Run(ctx context.Context, g *graph.Graph, plan *planner.Plan, action Action, opts Options) *Report {
	report := &Report{
		StartedAt: time.Now(),
		DryRun:    opts.DryRun,
	}

	// completed starts from node state and is resynchronized after every
	// wave. Only this goroutine touches it.
	completed := g.CompletedSet()

	for waveIdx, wave := range plan.Waves {
		if report.Aborted {
			for _, id := range wave {
				report.add(Result{
					TaskID: id, Wave: waveIdx,
					Outcome: OutcomeSkipped, SkipReason: SkipAborted,
				})
			}
			continue
		}

		runWave(ctx, g, wave, waveIdx, action, opts, completed, report)

		if opts.ExitOnError && report.Failed > 0 {
			report.Aborted = true
		}
	}

	for _, id := range plan.Stuck {
		report.add(Result{
			TaskID: id, Wave: -1,
			Outcome: OutcomeSkipped, SkipReason: SkipStuck,
		})
	}

	report.FinishedAt = time.Now()
	return report
}

// runWave executes one wave under the concurrency cap and folds the
// outcomes into the report and completed set.
func runWave(ctx context.Context, g *graph.Graph, wave []string, waveIdx int, action Action, opts Options, completed map[string]bool, report *Report) {
	// Resynchronize eligibility first: a dependency that failed in an
	// earlier wave disqualifies its dependents without aborting the run.
	var runnable []string
	for _, id := range wave {
		if !g.IsSatisfied(id, completed) {
			report.add(Result{
				TaskID: id, Wave: waveIdx,
				Outcome: OutcomeSkipped, SkipReason: SkipUnsatisfied,
			})
			continue
		}
		runnable = append(runnable, id)
	}

	if opts.DryRun {
		for _, id := range runnable {
			completed[id] = true
			report.add(Result{TaskID: id, Wave: waveIdx, Outcome: OutcomeSucceeded})
		}
		return
	}

	var semaphore chan struct{}
	if opts.MaxConcurrent > 0 {
		semaphore = make(chan struct{}, opts.MaxConcurrent)
	}

	outcomes := make(chan outcomeMsg, len(runnable))
	var wg sync.WaitGroup

	for _, id := range runnable {
		t := g.Node(id)
		wg.Add(1)
		go func(id string, t *task.Node) {
			defer wg.Done()

			if semaphore != nil {
				semaphore <- struct{}{}
				defer func() { <-semaphore }()
			}

			start := time.Now()
			err := action(ctx, t)
			outcomes <- outcomeMsg{taskID: id, err: err, elapsed: time.Since(start)}
		}(id, t)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	// Wave barrier: collect every outcome before the next wave starts.
	// Workers never mutate the graph or the completed set themselves.
	for msg := range outcomes {
		res := Result{TaskID: msg.taskID, Wave: waveIdx, Elapsed: msg.elapsed}
		if msg.err != nil {
			res.Outcome = OutcomeFailed
			res.Err = msg.err
			res.Error = msg.err.Error()
		} else {
			res.Outcome = OutcomeSucceeded
			completed[msg.taskID] = true
			if t := g.Node(msg.taskID); t != nil {
				t.Done = true
			}
		}
		report.add(res)
	}
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	switch res.Outcome {
	case OutcomeSucceeded:
		r.Succeeded++
	case OutcomeFailed:
		r.Failed++
	case OutcomeSkipped:
		r.Skipped++
	}
}
