package graph

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/warren/pkg/taskboard"
)

func task(id string, status taskboard.Status, blockedBy ...string) *taskboard.TaskRecord {
	return &taskboard.TaskRecord{
		ID:       id,
		Status:   status,
		Priority: taskboard.PriorityMedium,
		Dependencies: taskboard.Dependencies{
			BlockedBy: blockedBy,
		},
	}
}

func TestDetectCycles(t *testing.T) {
	t.Run("no cycles in a simple chain", func(t *testing.T) {
		g := Build([]*taskboard.TaskRecord{
			task("a", taskboard.StatusActive, "b"),
			task("b", taskboard.StatusActive, "c"),
			task("c", taskboard.StatusActive),
		})

		assert.Empty(t, g.DetectCycles())
		assert.False(t, g.InCycle("a"))
	})

	t.Run("three-task cycle reported exactly once", func(t *testing.T) {
		g := Build([]*taskboard.TaskRecord{
			task("a", taskboard.StatusActive, "b"),
			task("b", taskboard.StatusActive, "c"),
			task("c", taskboard.StatusActive, "a"),
		})

		cycles := g.DetectCycles()
		require.Len(t, cycles, 1)
		assert.ElementsMatch(t, []string{"a", "b", "c"}, cycles[0])

		for _, id := range []string{"a", "b", "c"} {
			assert.True(t, g.InCycle(id), "task %s should be in cycle", id)
			assert.True(t, g.IsBlocked(id), "task %s should be blocked", id)
		}
	})

	t.Run("multiple independent cycles all reported", func(t *testing.T) {
		g := Build([]*taskboard.TaskRecord{
			task("a", taskboard.StatusActive, "b"),
			task("b", taskboard.StatusActive, "a"),
			task("x", taskboard.StatusActive, "y"),
			task("y", taskboard.StatusActive, "z"),
			task("z", taskboard.StatusActive, "x"),
			task("free", taskboard.StatusActive),
		})

		cycles := g.DetectCycles()
		require.Len(t, cycles, 2)
		assert.False(t, g.InCycle("free"))
		assert.True(t, g.InCycle("a"))
		assert.True(t, g.InCycle("z"))
	})

	t.Run("self-loop is a cycle of one", func(t *testing.T) {
		// Validation rejects self-dependencies at the boundary, but the
		// graph must still degrade safely on dirty data.
		g := Build([]*taskboard.TaskRecord{
			task("loner", taskboard.StatusActive, "loner"),
		})

		cycles := g.DetectCycles()
		require.Len(t, cycles, 1)
		assert.Equal(t, []string{"loner"}, cycles[0])
		assert.True(t, g.IsBlocked("loner"))
	})

	t.Run("cycle does not poison the rest of the graph", func(t *testing.T) {
		g := Build([]*taskboard.TaskRecord{
			task("a", taskboard.StatusActive, "b"),
			task("b", taskboard.StatusActive, "a"),
			task("done-dep", taskboard.StatusCompleted),
			task("ready", taskboard.StatusActive, "done-dep"),
		})

		g.DetectCycles()
		assert.True(t, g.IsBlocked("a"))
		assert.False(t, g.IsBlocked("ready"))
	})
}

func TestIsBlocked(t *testing.T) {
	t.Run("unblocked when all transitive deps completed", func(t *testing.T) {
		g := Build([]*taskboard.TaskRecord{
			task("a", taskboard.StatusActive, "b"),
			task("b", taskboard.StatusCompleted, "c"),
			task("c", taskboard.StatusCompleted),
		})

		assert.False(t, g.IsBlocked("a"))
	})

	t.Run("blocked by a transitive incomplete dep", func(t *testing.T) {
		g := Build([]*taskboard.TaskRecord{
			task("a", taskboard.StatusActive, "b"),
			task("b", taskboard.StatusCompleted, "c"),
			task("c", taskboard.StatusPending),
		})

		assert.True(t, g.IsBlocked("a"))
	})

	t.Run("unknown dependency blocks", func(t *testing.T) {
		g := Build([]*taskboard.TaskRecord{
			task("a", taskboard.StatusActive, "ghost"),
		})

		assert.True(t, g.IsBlocked("a"))
		assert.Equal(t, []string{"ghost"}, g.DirectBlockers("a"))
	})

	t.Run("no dependencies means unblocked", func(t *testing.T) {
		g := Build([]*taskboard.TaskRecord{
			task("a", taskboard.StatusActive),
		})

		assert.False(t, g.IsBlocked("a"))
	})
}

// TestIsBlockedAgainstBruteForce checks IsBlocked against a naive reachability
// computation over randomly generated acyclic graphs.
func TestIsBlockedAgainstBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	statuses := []taskboard.Status{
		taskboard.StatusPending,
		taskboard.StatusActive,
		taskboard.StatusBlocked,
		taskboard.StatusCompleted,
	}

	for trial := 0; trial < 50; trial++ {
		n := 3 + rng.Intn(12)
		tasks := make([]*taskboard.TaskRecord, n)

		// Edges only point at lower indices, so the graph is acyclic
		for i := 0; i < n; i++ {
			var deps []string
			for j := 0; j < i; j++ {
				if rng.Intn(3) == 0 {
					deps = append(deps, fmt.Sprintf("t%d", j))
				}
			}
			tasks[i] = task(fmt.Sprintf("t%d", i), statuses[rng.Intn(len(statuses))], deps...)
		}

		g := Build(tasks)
		require.Empty(t, g.DetectCycles(), "trial %d generated a cycle", trial)

		for _, tk := range tasks {
			assert.Equal(t, bruteForceBlocked(tasks, tk.ID), g.IsBlocked(tk.ID),
				"trial %d task %s", trial, tk.ID)
		}
	}
}

// bruteForceBlocked recomputes reachability from scratch with no memoization.
func bruteForceBlocked(tasks []*taskboard.TaskRecord, id string) bool {
	byID := make(map[string]*taskboard.TaskRecord)
	for _, t := range tasks {
		byID[t.ID] = t
	}

	var reachable []string
	seen := map[string]bool{}
	var walk func(string)
	walk = func(cur string) {
		for _, dep := range byID[cur].Dependencies.BlockedBy {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			reachable = append(reachable, dep)
			if _, ok := byID[dep]; ok {
				walk(dep)
			}
		}
	}
	walk(id)

	for _, dep := range reachable {
		t, ok := byID[dep]
		if !ok || t.Status != taskboard.StatusCompleted {
			return true
		}
	}
	return false
}

func TestTransitiveBlockerCount(t *testing.T) {
	g := Build([]*taskboard.TaskRecord{
		task("a", taskboard.StatusActive, "b", "c"),
		task("b", taskboard.StatusPending, "d"),
		task("c", taskboard.StatusCompleted),
		task("d", taskboard.StatusPending),
	})

	// b and d are incomplete; c is completed
	assert.Equal(t, 2, g.TransitiveBlockerCount("a"))
	assert.Equal(t, 1, g.TransitiveBlockerCount("b"))
	assert.Equal(t, 0, g.TransitiveBlockerCount("c"))
}
