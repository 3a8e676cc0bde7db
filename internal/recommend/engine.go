// Package recommend scores eligible tasks from weighted signals and picks
// the best candidate to work on next.
//
// A task's urgency score is a weighted sum of four normalized signals:
// declared priority, due-date proximity, blocking fan-out, and an
// in-progress continuity boost. Blocked and archived tasks are never
// recommended. Selection is deterministic: argmax by score with ties
// broken by earliest due date, then by smallest identifier.
package recommend

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/flowboardhq/flowboard/internal/errors"
	"github.com/flowboardhq/flowboard/internal/graph"
	"github.com/flowboardhq/flowboard/internal/task"
	"github.com/gobwas/glob"
	"github.com/sourcegraph/conc/iter"
)

// Weights holds the signal weights for scoring. The defaults sum to 1.0
// at saturation; overriding them is a policy choice, not a correctness
// requirement.
type Weights struct {
	// Priority weighs the task's declared priority level, normalized to
	// [0,1] across the PriorityMin..PriorityMax scale.
	Priority float64 `mapstructure:"priority"`

	// Due weighs due-date urgency. Overdue tasks saturate to maximum
	// urgency; tasks without a due date contribute zero.
	Due float64 `mapstructure:"due"`

	// FanOut weighs blocking fan-out, normalized against the graph's
	// maximum. Tasks that unblock more work rank higher.
	FanOut float64 `mapstructure:"fan_out"`

	// InProgressBoost is the flat continuity offset added to in-progress
	// tasks over todo ones.
	InProgressBoost float64 `mapstructure:"in_progress_boost"`
}

// DefaultWeights returns the standard scoring weights.
func DefaultWeights() Weights {
	return Weights{
		Priority:        0.30,
		Due:             0.30,
		FanOut:          0.25,
		InProgressBoost: 0.15,
	}
}

// dueHorizon is the window over which due-date urgency ramps from zero to
// saturation. Anything due further out contributes nothing.
const dueHorizon = 7 * 24 * time.Hour

// Level buckets a score for display.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Fixed score thresholds for level bucketing: scores below levelMedium
// are low, below levelHigh medium, below levelCritical high, and
// everything else critical.
const (
	levelMedium   = 0.30
	levelHigh     = 0.55
	levelCritical = 0.80
)

func bucket(score float64) Level {
	switch {
	case score < levelMedium:
		return LevelLow
	case score < levelHigh:
		return LevelMedium
	case score < levelCritical:
		return LevelHigh
	default:
		return LevelCritical
	}
}

// Score is the scored urgency of a single task.
type Score struct {
	// Value is the weighted-sum score in [0,1].
	Value float64 `json:"value"`

	// Level buckets Value for display.
	Level Level `json:"level"`

	// Reasons lists the signals that contributed materially, in
	// human-readable form.
	Reasons []string `json:"reasons"`
}

// Recommendation pairs the selected task with its score.
type Recommendation struct {
	Task  *task.Node `json:"task"`
	Score Score      `json:"score"`
}

// Filters narrows the eligible set before scoring. Assignee and Board
// accept glob patterns; Status matches exactly. Empty fields match
// everything.
type Filters struct {
	Assignee string
	Status   task.Status
	Board    string
}

// Engine scores tasks and recommends the next one to work on.
type Engine struct {
	weights Weights
}

// New creates an engine with the given weights. Zero-valued weights fall
// back to the defaults.
func New(weights Weights) *Engine {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &Engine{weights: weights}
}

// Score computes the urgency score of a task against the current graph
// state at the given time.
func (e *Engine) Score(t *task.Node, g *graph.Graph, now time.Time) Score {
	var value float64
	var reasons []string

	// Declared priority, normalized across the scale.
	prio := float64(t.Priority-task.PriorityMin) / float64(task.PriorityMax-task.PriorityMin)
	prio = clamp01(prio)
	value += e.weights.Priority * prio
	if t.Priority >= task.PriorityMax-1 {
		reasons = append(reasons, fmt.Sprintf("High priority level set (P%d)", t.Priority))
	}

	// Due-date urgency: monotonically decreasing in time remaining,
	// saturating at overdue, zero without a due date.
	if t.DueAt != nil {
		remaining := t.DueAt.Sub(now)
		urgency := clamp01(1 - float64(remaining)/float64(dueHorizon))
		value += e.weights.Due * urgency

		switch {
		case remaining <= 0:
			reasons = append(reasons, "Overdue")
		case remaining <= 24*time.Hour:
			reasons = append(reasons, "Due within 24 hours")
		case remaining <= dueHorizon:
			reasons = append(reasons, fmt.Sprintf("Due within %d days", int(math.Ceil(remaining.Hours()/24))))
		}
	}

	// Blocking fan-out, normalized against the graph's maximum.
	if max := g.MaxFanOut(); max > 0 {
		fanOut := g.FanOut(t.ID)
		value += e.weights.FanOut * float64(fanOut) / float64(max)
		if fanOut == 1 {
			reasons = append(reasons, "Blocks 1 other task")
		} else if fanOut > 1 {
			reasons = append(reasons, fmt.Sprintf("Blocks %d other tasks", fanOut))
		}
	}

	// Continuity preference for work already underway.
	if t.Status == task.StatusInProgress {
		value += e.weights.InProgressBoost
		reasons = append(reasons, "Already in progress")
	}

	return Score{Value: value, Level: bucket(value), Reasons: reasons}
}

// RecommendNext picks the eligible task with the highest score, or
// ErrNoCandidates if the filters leave nothing to recommend. Eligibility
// requires an incomplete, recommendable task whose blocks dependencies
// are all in the completed set.
func (e *Engine) RecommendNext(g *graph.Graph, completed map[string]bool, filters Filters, now time.Time) (*Recommendation, error) {
	recs, err := e.RankAll(g, completed, filters, now)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, errors.ErrNoCandidates
	}
	return &recs[0], nil
}

// RankAll scores every eligible task and returns recommendations in rank
// order. Used by the REST surface and CLI to show the full queue.
func (e *Engine) RankAll(g *graph.Graph, completed map[string]bool, filters Filters, now time.Time) ([]Recommendation, error) {
	candidates, err := e.eligible(g, completed, filters)
	if err != nil {
		return nil, err
	}

	// Scoring is pure per task, so candidates are scored concurrently.
	scores := iter.Map(candidates, func(t **task.Node) Score {
		return e.Score(*t, g, now)
	})

	recs := make([]Recommendation, len(candidates))
	for i := range candidates {
		recs[i] = Recommendation{Task: candidates[i], Score: scores[i]}
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return higherRanked(recs[i].Task, recs[i].Score, recs[j].Task, recs[j].Score)
	})
	return recs, nil
}

// eligible applies completion, satisfaction, and filter checks, returning
// candidates in deterministic ID order.
func (e *Engine) eligible(g *graph.Graph, completed map[string]bool, filters Filters) ([]*task.Node, error) {
	assigneeGlob, err := compileFilter(filters.Assignee)
	if err != nil {
		return nil, errors.NewValidationError("bad assignee filter").
			WithField("assignee").
			WithValue(filters.Assignee).
			WithCause(err)
	}
	boardGlob, err := compileFilter(filters.Board)
	if err != nil {
		return nil, errors.NewValidationError("bad board filter").
			WithField("board").
			WithValue(filters.Board).
			WithCause(err)
	}

	var candidates []*task.Node
	for _, id := range g.IDs() {
		t := g.Node(id)
		if t.Completed() || completed[t.ID] || !t.Recommendable() {
			continue
		}
		if !g.IsSatisfied(t.ID, completed) {
			continue
		}
		if filters.Status != "" && t.Status != filters.Status {
			continue
		}
		if assigneeGlob != nil && !assigneeGlob.Match(t.Assignee) {
			continue
		}
		if boardGlob != nil && !boardGlob.Match(t.BoardID) {
			continue
		}
		candidates = append(candidates, t)
	}
	return candidates, nil
}

// higherRanked reports whether (a, sa) outranks (b, sb): higher score
// first, then earlier due date, then smaller ID. Tasks without a due date
// rank after dated ones at equal score.
func higherRanked(a *task.Node, sa Score, b *task.Node, sb Score) bool {
	if sa.Value != sb.Value {
		return sa.Value > sb.Value
	}
	switch {
	case a.DueAt != nil && b.DueAt == nil:
		return true
	case a.DueAt == nil && b.DueAt != nil:
		return false
	case a.DueAt != nil && b.DueAt != nil && !a.DueAt.Equal(*b.DueAt):
		return a.DueAt.Before(*b.DueAt)
	}
	return a.ID < b.ID
}

func compileFilter(pattern string) (glob.Glob, error) {
	if pattern == "" {
		return nil, nil
	}
	return glob.Compile(pattern)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
