// Package graph builds an id-keyed dependency graph over task records and
// answers blocking questions about it.
//
// Edges are id references in a map, never object pointers, so a cycle is just
// a traversal fact rather than a memory hazard. A graph is built fresh per
// resolution call; blocking results are memoized only within one instance.
package graph

import (
	"sort"

	"github.com/dyluth/warren/pkg/taskboard"
)

// Graph is an id-keyed view of the blocked_by edges across a set of tasks.
// Construct with Build; a Graph is immutable after construction apart from
// its internal memoization and is not safe for concurrent use.
type Graph struct {
	tasks     map[string]*taskboard.TaskRecord
	blockedBy map[string][]string

	cycles      [][]string
	inCycle     map[string]bool
	detected    bool
	blockedMemo map[string]bool
}

// Build constructs a graph purely from the input records.
// Edges referencing unknown task IDs are kept: an edge to a task that does
// not exist is an incomplete dependency and blocks its dependent.
func Build(tasks []*taskboard.TaskRecord) *Graph {
	g := &Graph{
		tasks:       make(map[string]*taskboard.TaskRecord, len(tasks)),
		blockedBy:   make(map[string][]string, len(tasks)),
		inCycle:     make(map[string]bool),
		blockedMemo: make(map[string]bool),
	}

	for _, t := range tasks {
		g.tasks[t.ID] = t

		// Copy and sort edges so traversal (and cycle reporting) is deterministic
		deps := append([]string(nil), t.Dependencies.BlockedBy...)
		sort.Strings(deps)
		g.blockedBy[t.ID] = deps
	}

	return g
}

// Tri-color DFS markers.
const (
	white = iota // unvisited
	grey         // in progress (on the current DFS path)
	black        // done
)

// DetectCycles finds every independent cycle in the blocked_by edges using a
// depth-first traversal with a three-state marker per node. Any edge into an
// in-progress node closes a cycle, reported as the ordered sequence of IDs
// forming it. Results are computed once per graph and cached.
//
// A cycle never surfaces as an error: callers treat cycle members as blocked
// with a circular-dependency reason and carry on with the rest of the graph.
func (g *Graph) DetectCycles() [][]string {
	if g.detected {
		return g.cycles
	}
	g.detected = true

	color := make(map[string]int, len(g.tasks))
	var path []string

	var visit func(id string)
	visit = func(id string) {
		color[id] = grey
		path = append(path, id)

		for _, dep := range g.blockedBy[id] {
			if _, known := g.tasks[dep]; !known {
				// Dangling edge: blocks, but cannot form a cycle
				continue
			}

			switch color[dep] {
			case white:
				visit(dep)
			case grey:
				// Back edge: the cycle is the path segment from dep to id
				for i := len(path) - 1; i >= 0; i-- {
					if path[i] == dep {
						cycle := append([]string(nil), path[i:]...)
						g.cycles = append(g.cycles, cycle)
						for _, member := range cycle {
							g.inCycle[member] = true
						}
						break
					}
				}
			}
		}

		path = path[:len(path)-1]
		color[id] = black
	}

	for _, id := range g.sortedIDs() {
		if color[id] == white {
			visit(id)
		}
	}

	return g.cycles
}

// InCycle reports whether the task participates in a detected cycle.
func (g *Graph) InCycle(taskID string) bool {
	g.DetectCycles()
	return g.inCycle[taskID]
}

// IsBlocked reports whether the task has any direct or transitively reachable
// blocked_by dependency that is not completed, or participates in a cycle.
// Edges to unknown task IDs count as incomplete dependencies.
func (g *Graph) IsBlocked(taskID string) bool {
	if blocked, ok := g.blockedMemo[taskID]; ok {
		return blocked
	}

	blocked := g.computeBlocked(taskID)
	g.blockedMemo[taskID] = blocked
	return blocked
}

// computeBlocked walks the blocked_by closure iteratively. The visited set
// makes the walk terminate even when the closure contains a cycle.
func (g *Graph) computeBlocked(taskID string) bool {
	if g.InCycle(taskID) {
		return true
	}

	visited := map[string]bool{taskID: true}
	frontier := append([]string(nil), g.blockedBy[taskID]...)

	for len(frontier) > 0 {
		dep := frontier[0]
		frontier = frontier[1:]

		if visited[dep] {
			continue
		}
		visited[dep] = true

		t, known := g.tasks[dep]
		if !known {
			// Dependency on a task that doesn't exist: never satisfiable
			return true
		}
		if t.Status != taskboard.StatusCompleted {
			return true
		}

		frontier = append(frontier, g.blockedBy[dep]...)
	}

	return false
}

// DirectBlockers returns the direct blocked_by dependencies of a task that are
// not yet completed (including unknown IDs), sorted for stable output.
func (g *Graph) DirectBlockers(taskID string) []string {
	blockers := []string{}
	for _, dep := range g.blockedBy[taskID] {
		t, known := g.tasks[dep]
		if !known || t.Status != taskboard.StatusCompleted {
			blockers = append(blockers, dep)
		}
	}
	return blockers
}

// TransitiveBlockerCount returns the number of distinct incomplete tasks
// (including unknown IDs) anywhere in the task's blocked_by closure.
func (g *Graph) TransitiveBlockerCount(taskID string) int {
	visited := map[string]bool{taskID: true}
	frontier := append([]string(nil), g.blockedBy[taskID]...)

	count := 0
	for len(frontier) > 0 {
		dep := frontier[0]
		frontier = frontier[1:]

		if visited[dep] {
			continue
		}
		visited[dep] = true

		t, known := g.tasks[dep]
		if !known {
			count++
			continue
		}
		if t.Status != taskboard.StatusCompleted {
			count++
		}

		frontier = append(frontier, g.blockedBy[dep]...)
	}

	return count
}

func (g *Graph) sortedIDs() []string {
	ids := make([]string, 0, len(g.tasks))
	for id := range g.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
