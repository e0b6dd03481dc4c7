package taskboard

import (
	"fmt"
	"time"
)

// TaskRecord represents one unit of schedulable, ownable work on the board.
// Records are created by whatever process authors work, mutated by agents
// (claim/release/status updates), and read-only for the readiness resolver.
type TaskRecord struct {
	ID           string       `json:"id"`             // Unique identifier (UUID for CLI-authored tasks)
	Title        string       `json:"title"`          // Short human-readable description
	Status       Status       `json:"status"`         // Current lifecycle state
	Owner        string       `json:"owner"`          // Agent identifier, empty = unclaimed
	Blocked      bool         `json:"blocked"`        // Manual override flag, independent of dependency blocking
	Priority     Priority     `json:"priority"`       // Scheduling priority
	Dependencies Dependencies `json:"dependencies"`   // Declared relationships to other tasks
	UpdatedAtMs  int64        `json:"updated_at_ms"`  // Unix timestamp in milliseconds of last mutation
}

// Dependencies captures a task's declared relationships to other tasks.
// Only BlockedBy affects readiness; Blocks, Parent and Related are
// informational edges for dashboards and dispatchers.
type Dependencies struct {
	BlockedBy []string `json:"blocked_by"` // Task IDs that must complete before this task is ready
	Blocks    []string `json:"blocks"`     // Task IDs waiting on this task (informational inverse)
	Parent    string   `json:"parent"`     // Optional parent task ID, empty = none
	Related   []string `json:"related"`    // Loosely associated task IDs
}

// Status defines the lifecycle state of a task.
type Status string

const (
	// StatusPending indicates the task exists but is not yet actionable
	StatusPending Status = "pending"

	// StatusActive indicates the task is in play and may be claimed once unblocked
	StatusActive Status = "active"

	// StatusBlocked indicates the task has been explicitly parked
	StatusBlocked Status = "blocked"

	// StatusCompleted indicates the task is done and no longer blocks dependents
	StatusCompleted Status = "completed"
)

// Priority defines the scheduling priority of a task.
// Higher-priority ready work surfaces first.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank returns a sortable weight for the priority, highest first.
// Unknown priorities rank below low so malformed records sink rather than surface.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Lease represents a coordinator-held exclusivity grant on a task.
// At most one non-expired lease exists per task ID. The LeaseID token is
// opaque and unguessable; it must match on release/extend so a stale caller
// cannot clobber a newer lease issued after expiry.
type Lease struct {
	TaskID    string    `json:"task_id"`
	Holder    string    `json:"holder"`
	LeaseID   string    `json:"lease_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the lease has expired as of now.
func (l *Lease) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// Validate checks if the TaskRecord has valid field values.
// Returns an error if any validation fails.
func (t *TaskRecord) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}

	if err := t.Status.Validate(); err != nil {
		return fmt.Errorf("invalid status: %w", err)
	}

	if err := t.Priority.Validate(); err != nil {
		return fmt.Errorf("invalid priority: %w", err)
	}

	// A task must not declare itself as its own blocker
	for _, dep := range t.Dependencies.BlockedBy {
		if dep == t.ID {
			return fmt.Errorf("task %s cannot be blocked by itself", t.ID)
		}
	}

	return nil
}

// Validate checks if the Status is a valid enum value.
func (s Status) Validate() error {
	switch s {
	case StatusPending, StatusActive, StatusBlocked, StatusCompleted:
		return nil
	default:
		return fmt.Errorf("unknown status: %q", s)
	}
}

// Validate checks if the Priority is a valid enum value.
func (p Priority) Validate() error {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return nil
	default:
		return fmt.Errorf("unknown priority: %q", p)
	}
}
