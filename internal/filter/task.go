package filter

import (
	"path/filepath"

	"github.com/dyluth/warren/pkg/taskboard"
)

// Criteria defines filtering criteria for tasks.
// All filters are ANDed together - a task must match ALL criteria to pass.
type Criteria struct {
	Status           string // Exact match for status, empty = no filter
	Owner            string // Exact match for owner, empty = no filter
	Unowned          bool   // Only tasks with no owner
	Priority         string // Exact match for priority, empty = no filter
	TitleGlob        string // Glob pattern for title, empty = no filter
	SinceTimestampMs int64  // Unix timestamp in milliseconds, 0 = no filter
	UntilTimestampMs int64  // Unix timestamp in milliseconds, 0 = no filter
}

// Matches returns true if the task matches all filter criteria.
// Empty/zero criteria values are treated as "match all" for that criterion.
func (c *Criteria) Matches(task *taskboard.TaskRecord) bool {
	// Time filtering - check UpdatedAtMs field
	if c.SinceTimestampMs > 0 && task.UpdatedAtMs < c.SinceTimestampMs {
		return false
	}
	if c.UntilTimestampMs > 0 && task.UpdatedAtMs > c.UntilTimestampMs {
		return false
	}

	if c.Status != "" && string(task.Status) != c.Status {
		return false
	}

	if c.Unowned && task.Owner != "" {
		return false
	}
	if c.Owner != "" && task.Owner != c.Owner {
		return false
	}

	if c.Priority != "" && string(task.Priority) != c.Priority {
		return false
	}

	// Title filtering - glob pattern matching
	if c.TitleGlob != "" {
		matched, err := filepath.Match(c.TitleGlob, task.Title)
		if err != nil || !matched {
			return false
		}
	}

	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c.Status != "" ||
		c.Owner != "" ||
		c.Unowned ||
		c.Priority != "" ||
		c.TitleGlob != "" ||
		c.SinceTimestampMs > 0 ||
		c.UntilTimestampMs > 0
}
