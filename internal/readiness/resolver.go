// Package readiness computes which tasks on the board are currently
// actionable, and explains why the rest are not.
package readiness

import (
	"context"
	"fmt"
	"sort"

	"github.com/dyluth/warren/internal/graph"
	"github.com/dyluth/warren/pkg/taskboard"
)

// Resolver evaluates the dependency graph over persisted task records to
// compute the ready set. It is synchronous, performs no network I/O beyond
// the store read, and holds no state between calls - the graph is rebuilt
// on every resolution so it always reflects the current board.
type Resolver struct {
	store taskboard.Store
}

// New creates a resolver over the given task store.
func New(store taskboard.Store) *Resolver {
	return &Resolver{store: store}
}

// Summary explains why a task is or is not ready.
// Purely derived - computing a summary has no side effects.
type Summary struct {
	TaskID                 string   `json:"task_id"`
	DirectBlockers         []string `json:"direct_blockers"`
	TransitiveBlockerCount int      `json:"transitive_blocker_count"`
	InCycle                bool     `json:"in_cycle"`
}

// ReadyWork reads the board and returns the tasks that are ready to be
// claimed, ordered by priority descending with ties broken by ascending
// last-updated (oldest first), so long-stale ready work surfaces before
// freshly-created work of equal priority.
func (r *Resolver) ReadyWork(ctx context.Context) ([]*taskboard.TaskRecord, error) {
	tasks, err := r.store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read task board: %w", err)
	}

	return ReadyFrom(tasks), nil
}

// ReadyFrom computes the ready set from an already-loaded task list.
// A task is ready iff its status is active, its manual blocked flag is
// clear, it has no owner, and every task in its transitive blocked_by
// closure is completed. Tasks participating in a dependency cycle are
// never ready - a cycle is a data-integrity fault, not a crash condition,
// so affected tasks are simply treated as blocked.
func ReadyFrom(tasks []*taskboard.TaskRecord) []*taskboard.TaskRecord {
	g := graph.Build(tasks)

	ready := []*taskboard.TaskRecord{}
	for _, t := range tasks {
		if t.Status != taskboard.StatusActive {
			continue
		}
		if t.Blocked {
			continue
		}
		if t.Owner != "" {
			continue
		}
		if g.IsBlocked(t.ID) {
			continue
		}
		ready = append(ready, t)
	}

	sort.SliceStable(ready, func(i, j int) bool {
		if ready[i].Priority.Rank() != ready[j].Priority.Rank() {
			return ready[i].Priority.Rank() > ready[j].Priority.Rank()
		}
		if ready[i].UpdatedAtMs != ready[j].UpdatedAtMs {
			return ready[i].UpdatedAtMs < ready[j].UpdatedAtMs
		}
		// Final ID tie-break keeps ordering fully deterministic
		return ready[i].ID < ready[j].ID
	})

	return ready
}

// DependencySummary explains why a task is not ready: its incomplete direct
// blockers, the size of its incomplete transitive closure, and whether it
// sits on a dependency cycle.
func (r *Resolver) DependencySummary(ctx context.Context, taskID string) (*Summary, error) {
	tasks, err := r.store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read task board: %w", err)
	}

	return SummaryFrom(tasks, taskID)
}

// SummaryFrom computes a dependency summary from an already-loaded task list.
// Returns an error if the task is not on the board.
func SummaryFrom(tasks []*taskboard.TaskRecord, taskID string) (*Summary, error) {
	found := false
	for _, t := range tasks {
		if t.ID == taskID {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("task %s not found", taskID)
	}

	g := graph.Build(tasks)

	return &Summary{
		TaskID:                 taskID,
		DirectBlockers:         g.DirectBlockers(taskID),
		TransitiveBlockerCount: g.TransitiveBlockerCount(taskID),
		InCycle:                g.InCycle(taskID),
	}, nil
}
