// Package graph provides the in-memory dependency graph over task
// identifiers used by the planner, executor, and recommendation engine.
//
// The graph owns a node arena keyed by task ID plus forward and reverse
// adjacency over blocks edges. Informational edges (relates_to,
// duplicates) are stored but never constrain order. The blocks subgraph is
// kept acyclic at all times: any edge insertion that would close a cycle
// is rejected before the graph is mutated.
//
// A Graph is not safe for concurrent mutation. It is owned by the
// planning loop that built it; concurrent workers report outcomes back to
// that loop rather than touching the graph directly.
package graph

import (
	"sort"

	"github.com/flowboardhq/flowboard/internal/errors"
	"github.com/flowboardhq/flowboard/internal/task"
)

// Graph is the dependency graph for one scheduling session.
type Graph struct {
	nodes map[string]*task.Node

	// adj maps a task to the tasks it is blocked by (its dependencies).
	// radj is the reverse: a task to the tasks it blocks (its dependents).
	adj  map[string]map[string]struct{}
	radj map[string]map[string]struct{}

	// info holds non-scheduling edges keyed by from-task.
	info map[string][]task.Dependency

	// dangling maps a task to blocks-dependency IDs that were not present
	// in the supplied task set. These surface as a planning stalemate, not
	// as a build error, so the caller can proceed with the resolvable
	// prefix.
	dangling map[string][]string
}

// Build constructs a graph from the supplied task set. Each task's blocks
// dependencies become edges, cycle-checked one at a time; dependencies on
// identifiers absent from the set are recorded as dangling rather than
// rejected. Duplicate task IDs fail with a ValidationError.
func Build(tasks []*task.Node) (*Graph, error) {
	g := New()

	for _, t := range tasks {
		if err := g.AddNode(t); err != nil {
			return nil, err
		}
	}

	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			if !g.Has(dep.TaskID) {
				if dep.Type.Scheduling() {
					g.dangling[t.ID] = append(g.dangling[t.ID], dep.TaskID)
				}
				continue
			}
			if err := g.AddEdge(t.ID, dep.TaskID, dep.Type); err != nil {
				return nil, err
			}
		}
	}

	return g, nil
}

// New returns an initialized, empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*task.Node),
		adj:      make(map[string]map[string]struct{}),
		radj:     make(map[string]map[string]struct{}),
		info:     make(map[string][]task.Dependency),
		dangling: make(map[string][]string),
	}
}

// AddNode registers a task in the graph. Re-adding an existing ID fails
// with a ValidationError.
func (g *Graph) AddNode(t *task.Node) error {
	if t.ID == "" {
		return errors.NewValidationError("task ID cannot be empty").
			WithField("id").
			WithCause(errors.ErrValidationFailed)
	}
	if _, ok := g.nodes[t.ID]; ok {
		return errors.NewValidationError("duplicate task ID").
			WithField("id").
			WithValue(t.ID).
			WithCause(errors.ErrValidationFailed)
	}

	g.nodes[t.ID] = t
	g.adj[t.ID] = make(map[string]struct{})
	g.radj[t.ID] = make(map[string]struct{})
	return nil
}

// AddEdge inserts a typed dependency edge: from depends on to. For blocks
// edges the cycle check runs before any mutation, so a rejected edge
// leaves no residue. Duplicate edges are idempotent. Referencing an
// unknown task fails with ErrResourceNotFound.
func (g *Graph) AddEdge(from, to string, typ task.DependencyType) error {
	if !typ.IsValid() {
		return errors.NewValidationError("unknown dependency type").
			WithField("type").
			WithValue(string(typ)).
			WithCause(errors.ErrValidationFailed)
	}
	if _, ok := g.nodes[from]; !ok {
		return errors.NewGraphError("unknown source task", errors.ErrResourceNotFound).
			WithEdge(from, to)
	}
	if _, ok := g.nodes[to]; !ok {
		return errors.NewGraphError("unknown target task", errors.ErrResourceNotFound).
			WithEdge(from, to)
	}

	if !typ.Scheduling() {
		for _, existing := range g.info[from] {
			if existing.TaskID == to && existing.Type == typ {
				return nil
			}
		}
		g.info[from] = append(g.info[from], task.Dependency{TaskID: to, Type: typ})
		return nil
	}

	if _, ok := g.adj[from][to]; ok {
		return nil
	}

	if g.WouldCreateCycle(from, to) {
		return errors.NewGraphError("edge would create a cycle", errors.ErrCircularDependency).
			WithEdge(from, to).
			WithEdgeType(typ.String())
	}

	g.adj[from][to] = struct{}{}
	g.radj[to][from] = struct{}{}
	return nil
}

// WouldCreateCycle reports whether adding the blocks edge from->to would
// close a cycle. The edge closes a cycle iff to can already reach from
// through existing blocks edges. Self-loops are always cycles.
func (g *Graph) WouldCreateCycle(from, to string) bool {
	if from == to {
		return true
	}

	// Depth-first reachability from `to`, bounded by the node count.
	visited := make(map[string]struct{}, len(g.nodes))
	stack := []string{to}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if id == from {
			return true
		}
		if _, seen := visited[id]; seen {
			continue
		}
		visited[id] = struct{}{}

		for next := range g.adj[id] {
			stack = append(stack, next)
		}
	}

	return false
}

// Has returns true if the graph contains the given task ID.
func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Node returns the task with the given ID, or nil if not found.
func (g *Graph) Node(id string) *task.Node {
	return g.nodes[id]
}

// IDs returns all task IDs in the graph, sorted for determinism.
func (g *Graph) IDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DependenciesOf returns the blocks-dependency IDs of the given task,
// sorted. Unknown IDs fail with ErrResourceNotFound.
func (g *Graph) DependenciesOf(id string) ([]string, error) {
	deps, ok := g.adj[id]
	if !ok {
		return nil, errors.NewNotFoundError("task", id).
			WithCause(errors.ErrResourceNotFound)
	}
	return sortedKeys(deps), nil
}

// DependentsOf returns the IDs of tasks blocked by the given task, sorted.
// Unknown IDs fail with ErrResourceNotFound.
func (g *Graph) DependentsOf(id string) ([]string, error) {
	deps, ok := g.radj[id]
	if !ok {
		return nil, errors.NewNotFoundError("task", id).
			WithCause(errors.ErrResourceNotFound)
	}
	return sortedKeys(deps), nil
}

// FanOut returns the number of tasks blocked by the given task, without
// allocating. Unknown IDs report zero.
func (g *Graph) FanOut(id string) int {
	return len(g.radj[id])
}

// MaxFanOut returns the largest blocking fan-out in the graph. Used to
// normalize fan-out when scoring recommendations.
func (g *Graph) MaxFanOut() int {
	max := 0
	for _, deps := range g.radj {
		if len(deps) > max {
			max = len(deps)
		}
	}
	return max
}

// IsSatisfied returns true iff every blocks dependency of the given task
// (dangling ones included) is in the completed set.
func (g *Graph) IsSatisfied(id string, completed map[string]bool) bool {
	for dep := range g.adj[id] {
		if !completed[dep] {
			return false
		}
	}
	for _, dep := range g.dangling[id] {
		if !completed[dep] {
			return false
		}
	}
	return true
}

// Dangling returns the blocks-dependency IDs of the given task that were
// absent from the supplied task set, in declaration order.
func (g *Graph) Dangling(id string) []string {
	return g.dangling[id]
}

// EdgeCount returns the number of blocks edges in the graph.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, deps := range g.adj {
		n += len(deps)
	}
	return n
}

// CompletedSet returns the set of task IDs already completed according to
// their node state. The planner and recommendation engine take this as
// their starting point.
func (g *Graph) CompletedSet() map[string]bool {
	completed := make(map[string]bool)
	for id, t := range g.nodes {
		if t.Completed() {
			completed[id] = true
		}
	}
	return completed
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
