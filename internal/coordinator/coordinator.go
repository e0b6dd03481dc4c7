// Package coordinator implements the lease coordinator: a small concurrent
// service granting short-lived exclusive claims on task IDs.
//
// Lease state is held in memory and is explicitly ephemeral - it does not
// survive a restart. Expiry is evaluated lazily at access time, so no
// background timer is required for correctness; an optional sweep exists
// purely to bound memory growth from abandoned entries.
package coordinator

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dyluth/warren/pkg/taskboard"
)

var (
	// ErrOwnershipMismatch is returned when a release or extend presents a
	// lease token that does not match the current holder's token. This guards
	// against a crashed-then-recovered caller clobbering a lease a different
	// agent has legitimately acquired after expiry.
	ErrOwnershipMismatch = errors.New("lease token does not match current holder")

	// ErrNotFound is returned when the coordinator has no record of the task.
	ErrNotFound = errors.New("no lease record for task")
)

// ValidationError indicates a malformed request (empty task ID or agent,
// non-positive TTL). Rejected immediately at the boundary with no retry.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s", e.Reason)
}

// Conflict is the structured result returned when a claim is denied because
// an unexpired lease with a different holder exists. It is a result, not an
// error: the caller decides whether to wait or pick different work.
type Conflict struct {
	CurrentHolder string    `json:"current_holder"`
	ClaimedAt     time.Time `json:"claimed_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// entry holds the lease slot for a single task ID. Mutations to a slot are
// applied under its own mutex so concurrent operations on the same task never
// interleave partially, while operations on different tasks never block one
// another.
type entry struct {
	mu    sync.Mutex
	lease *taskboard.Lease
	gone  bool // set by Sweep when the entry is removed from the table
}

// Coordinator is the in-memory lease table. Construct one instance explicitly
// with New and inject it into request handlers - there is no ambient global.
// All methods are safe for concurrent use.
type Coordinator struct {
	mu      sync.Mutex // guards the entries map itself
	entries map[string]*entry

	now func() time.Time // test seam for expiry behaviour
}

// New creates an empty coordinator.
func New() *Coordinator {
	return &Coordinator{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// getEntry returns the lease slot for a task, creating it on first access.
func (c *Coordinator) getEntry(taskID string) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[taskID]
	if !ok {
		e = &entry{}
		c.entries[taskID] = e
	}
	return e
}

// lookupEntry returns the lease slot for a task without creating it.
func (c *Coordinator) lookupEntry(taskID string) (*entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[taskID]
	return e, ok
}

// liveLease returns the entry's lease, treating an expired lease as absent.
// Caller must hold the entry's mutex. The expired lease is dropped in place
// (lazy expiry).
func (c *Coordinator) liveLease(e *entry) *taskboard.Lease {
	if e.lease != nil && e.lease.Expired(c.now()) {
		e.lease = nil
	}
	return e.lease
}

// Claim attempts to acquire an exclusive lease on a task for an agent.
//
// On success, returns the new lease. If an unexpired lease with a different
// holder exists, returns a Conflict describing it rather than an error.
// Re-claiming by the current holder refreshes the lease (new token, new
// expiry). With force set the claim always succeeds and revokes any prior
// lease - an administrative override for human intervention, not normal
// agent flow.
func (c *Coordinator) Claim(taskID, agent string, ttl time.Duration, force bool) (*taskboard.Lease, *Conflict, error) {
	if taskID == "" {
		return nil, nil, &ValidationError{Reason: "task_id cannot be empty"}
	}
	if agent == "" {
		return nil, nil, &ValidationError{Reason: "agent cannot be empty"}
	}
	if ttl <= 0 {
		return nil, nil, &ValidationError{Reason: "ttl_seconds must be positive"}
	}

	// A concurrent Sweep may remove the entry between lookup and lock;
	// retry against a fresh slot rather than writing to an orphan.
	var e *entry
	for {
		e = c.getEntry(taskID)
		e.mu.Lock()
		if !e.gone {
			break
		}
		e.mu.Unlock()
	}
	defer e.mu.Unlock()

	current := c.liveLease(e)
	if current != nil && current.Holder != agent && !force {
		return nil, &Conflict{
			CurrentHolder: current.Holder,
			ClaimedAt:     current.IssuedAt,
			ExpiresAt:     current.ExpiresAt,
		}, nil
	}

	now := c.now()
	lease := &taskboard.Lease{
		TaskID:    taskID,
		Holder:    agent,
		LeaseID:   uuid.New().String(),
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	e.lease = lease

	return lease, nil, nil
}

// Release clears a lease. Idempotent on an already-unclaimed task (no-op
// success). Returns ErrNotFound if the coordinator has never seen the task,
// and ErrOwnershipMismatch if leaseID does not match the current holder's
// token.
func (c *Coordinator) Release(taskID, leaseID string) error {
	if taskID == "" {
		return &ValidationError{Reason: "task_id cannot be empty"}
	}

	e, ok := c.lookupEntry(taskID)
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	current := c.liveLease(e)
	if current == nil {
		// Already unclaimed (or expired): releasing again is a no-op
		return nil
	}

	if current.LeaseID != leaseID {
		return fmt.Errorf("task %s: %w", taskID, ErrOwnershipMismatch)
	}

	e.lease = nil
	return nil
}

// Extend pushes a lease's expiry forward by additionalTTL from now - not
// additively from the old expiry, to avoid unbounded drift from repeated
// short extensions. Only the current holder (matching leaseID) may extend.
func (c *Coordinator) Extend(taskID, leaseID string, additionalTTL time.Duration) (*taskboard.Lease, error) {
	if taskID == "" {
		return nil, &ValidationError{Reason: "task_id cannot be empty"}
	}
	if additionalTTL <= 0 {
		return nil, &ValidationError{Reason: "additional_ttl_seconds must be positive"}
	}

	e, ok := c.lookupEntry(taskID)
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	current := c.liveLease(e)
	if current == nil {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}

	if current.LeaseID != leaseID {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrOwnershipMismatch)
	}

	current.ExpiresAt = c.now().Add(additionalTTL)
	return current, nil
}

// Status returns the live lease for a task, or nil if the task is unclaimed
// or its lease has expired.
func (c *Coordinator) Status(taskID string) *taskboard.Lease {
	e, ok := c.lookupEntry(taskID)
	if !ok {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	lease := c.liveLease(e)
	if lease == nil {
		return nil
	}

	copied := *lease
	return &copied
}

// Reservations returns a snapshot of all active (non-expired) leases,
// sorted by task ID for stable output.
func (c *Coordinator) Reservations() []*taskboard.Lease {
	c.mu.Lock()
	snapshot := make(map[string]*entry, len(c.entries))
	for id, e := range c.entries {
		snapshot[id] = e
	}
	c.mu.Unlock()

	leases := []*taskboard.Lease{}
	for _, e := range snapshot {
		e.mu.Lock()
		if lease := c.liveLease(e); lease != nil {
			copied := *lease
			leases = append(leases, &copied)
		}
		e.mu.Unlock()
	}

	sort.Slice(leases, func(i, j int) bool {
		return leases[i].TaskID < leases[j].TaskID
	})

	return leases
}

// Sweep drops expired leases and removes empty entries, returning the number
// of entries removed. Not required for correctness - expiry is already lazy -
// it only bounds memory growth from abandoned task IDs.
func (c *Coordinator) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, e := range c.entries {
		e.mu.Lock()
		if c.liveLease(e) == nil {
			e.gone = true
			delete(c.entries, id)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}
