// Package planner partitions a dependency graph into ordered, internally
// parallel execution waves.
//
// A wave is a maximal set of tasks whose blocks dependencies are already
// satisfied, either completed before planning began or scheduled in an
// earlier wave. Waves are computed by iterative topological peeling; the
// blocks subgraph is acyclic by construction, so the only way planning can
// fail to make progress is a dependency on a task absent from the supplied
// set. That remainder is reported as a structured stuck set rather than
// dropped or raised as an error.
package planner

import (
	"sort"

	"github.com/flowboardhq/flowboard/internal/graph"
)

// Plan is the ordered wave sequence for one scheduling session.
type Plan struct {
	// Waves groups task IDs into parallelizable batches. Wave k may only
	// depend on tasks completed before planning or present in waves 0..k-1.
	// Order within a wave is for display only.
	Waves [][]string `json:"waves"`

	// Stuck lists tasks that could not be scheduled because they depend,
	// directly or transitively, on identifiers never supplied. Empty when
	// the plan covers every remaining task.
	Stuck []string `json:"stuck,omitempty"`
}

// Complete returns true if every remaining task was scheduled.
func (p *Plan) Complete() bool {
	return len(p.Stuck) == 0
}

// TaskCount returns the number of scheduled tasks across all waves.
func (p *Plan) TaskCount() int {
	n := 0
	for _, wave := range p.Waves {
		n += len(wave)
	}
	return n
}

// Flatten returns the scheduled task IDs in wave order. The result is a
// valid topological order of the blocks subgraph restricted to scheduled
// tasks.
func (p *Plan) Flatten() []string {
	ids := make([]string, 0, p.TaskCount())
	for _, wave := range p.Waves {
		ids = append(ids, wave...)
	}
	return ids
}

// Compute plans the remaining tasks of the graph into waves, treating the
// supplied completed set as already satisfied. The input set is not
// mutated. Calling Compute twice with identical inputs yields an identical
// plan.
func Compute(g *graph.Graph, completed map[string]bool) *Plan {
	// remaining = all tasks not already completed.
	remaining := make(map[string]bool, g.Len())
	for _, id := range g.IDs() {
		if !completed[id] {
			remaining[id] = true
		}
	}

	// Virtual completed set: grows as waves are peeled. The caller's set
	// stays untouched.
	satisfied := make(map[string]bool, len(completed)+len(remaining))
	for id := range completed {
		satisfied[id] = true
	}

	plan := &Plan{}

	for len(remaining) > 0 {
		var eligible []string
		for id := range remaining {
			if g.IsSatisfied(id, satisfied) {
				eligible = append(eligible, id)
			}
		}

		if len(eligible) == 0 {
			// Stalemate: the remainder depends on tasks never supplied.
			// Cycles cannot reach here; they are rejected at edge insertion.
			plan.Stuck = sortedIDs(remaining)
			break
		}

		sortWave(eligible, g)
		plan.Waves = append(plan.Waves, eligible)

		for _, id := range eligible {
			satisfied[id] = true
			delete(remaining, id)
		}
	}

	return plan
}

// PhaseGroup is a display grouping of scheduled tasks sharing a phase
// label. It is presentation only and orthogonal to dependency order.
type PhaseGroup struct {
	Phase string   `json:"phase"`
	Tasks []string `json:"tasks"`
}

// GroupByPhase regroups a plan's scheduled tasks by their phase label,
// preserving wave order within each group. Tasks without a phase fall
// under the empty label, listed last.
func GroupByPhase(p *Plan, g *graph.Graph) []PhaseGroup {
	byPhase := make(map[string][]string)
	for _, id := range p.Flatten() {
		phase := ""
		if t := g.Node(id); t != nil {
			phase = t.Phase
		}
		byPhase[phase] = append(byPhase[phase], id)
	}

	phases := make([]string, 0, len(byPhase))
	for phase := range byPhase {
		phases = append(phases, phase)
	}
	sort.Slice(phases, func(i, j int) bool {
		// Unlabeled group sorts last.
		if (phases[i] == "") != (phases[j] == "") {
			return phases[j] == ""
		}
		return phases[i] < phases[j]
	})

	groups := make([]PhaseGroup, 0, len(phases))
	for _, phase := range phases {
		groups = append(groups, PhaseGroup{Phase: phase, Tasks: byPhase[phase]})
	}
	return groups
}

// sortWave orders a wave for display: higher declared priority first,
// ties broken by ID. Callers must not rely on this order for correctness.
func sortWave(ids []string, g *graph.Graph) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := g.Node(ids[i]), g.Node(ids[j])
		if a != nil && b != nil && a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return ids[i] < ids[j]
	})
}

func sortedIDs(set map[string]bool) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
