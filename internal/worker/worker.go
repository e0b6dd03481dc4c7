// Package worker implements the agent work loop: find ready work, claim it,
// run the configured command against it, and record the outcome.
package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/dyluth/warren/internal/coordclient"
	"github.com/dyluth/warren/internal/readiness"
	"github.com/dyluth/warren/pkg/taskboard"
)

// Config is the worker's runtime configuration.
type Config struct {
	// AgentName identifies this worker as a lease holder and task owner.
	AgentName string

	// Command is the tool invocation, argv style. The claimed task is fed
	// to it as JSON on stdin.
	Command []string

	// WorkDir is the working directory for the tool. Empty means inherit.
	WorkDir string

	// PollInterval is how often the watcher re-evaluates readiness.
	PollInterval time.Duration

	// LeaseTTL is the requested lease duration per claim, and the duration
	// each heartbeat extension asks for.
	LeaseTTL time.Duration

	// HeartbeatInterval is how often a running execution extends its
	// lease. Must be comfortably below LeaseTTL.
	HeartbeatInterval time.Duration

	// ExecTimeout is the maximum time the tool may run per task.
	ExecTimeout time.Duration
}

// claimedTask is one unit of granted work travelling from watcher to executor.
type claimedTask struct {
	task    *taskboard.TaskRecord
	leaseID string
}

// Engine runs two concurrent goroutines:
//   - Work Watcher: polls the readiness resolver and claims the best task
//   - Work Executor: runs the tool for each granted task
//
// The watcher blocks on handing work over (queue buffer 1), so at most one
// task is claimed ahead of the execution in flight. Shutdown is coordinated
// through context cancellation.
type Engine struct {
	config   *Config
	store    taskboard.Store
	resolver *readiness.Resolver
	coord    *coordclient.Client
	wg       sync.WaitGroup
}

// New creates a worker engine. The engine does not begin execution until
// Start is called.
func New(config *Config, store taskboard.Store, coord *coordclient.Client) *Engine {
	return &Engine{
		config:   config,
		store:    store,
		resolver: readiness.New(store),
		coord:    coord,
	}
}

// Start launches the watcher and executor goroutines and blocks until the
// context is cancelled and both have drained.
func (e *Engine) Start(ctx context.Context) error {
	log.Printf("[INFO] Worker starting for agent='%s'", e.config.AgentName)

	workQueue := make(chan claimedTask, 1)

	e.wg.Add(1)
	go e.workWatcher(ctx, workQueue)

	e.wg.Add(1)
	go e.workExecutor(ctx, workQueue)

	<-ctx.Done()
	log.Printf("[INFO] Shutdown signal received, initiating graceful shutdown")

	e.wg.Wait()
	log.Printf("[INFO] All goroutines exited, shutdown complete")

	return nil
}

// workWatcher polls for ready work and claims it. Each granted claim is
// handed to the executor; conflicts just mean another agent got there first
// and the next candidate is tried.
func (e *Engine) workWatcher(ctx context.Context, workQueue chan<- claimedTask) {
	defer e.wg.Done()
	defer close(workQueue)
	defer log.Printf("[DEBUG] Work Watcher exited cleanly")

	ticker := time.NewTicker(e.config.PollInterval)
	defer ticker.Stop()

	for {
		if claimed, ok := e.claimNext(ctx); ok {
			select {
			case <-ctx.Done():
				// Shutting down with a claim in hand: give it back.
				e.releaseQuietly(claimed)
				return
			case workQueue <- claimed:
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// claimNext resolves ready work and tries to claim it in resolver order.
// Returns false when nothing is ready or every candidate was lost to a
// competing claimant.
func (e *Engine) claimNext(ctx context.Context) (claimedTask, bool) {
	ready, err := e.resolver.ReadyWork(ctx)
	if err != nil {
		log.Printf("[ERROR] Failed to resolve ready work: %v", err)
		return claimedTask{}, false
	}

	for _, task := range ready {
		result, err := e.coord.Claim(ctx, task.ID, e.config.AgentName, e.config.LeaseTTL)
		if err != nil {
			log.Printf("[ERROR] Claim failed for task %s: %v", task.ID, err)
			continue
		}
		if !result.Granted {
			log.Printf("[DEBUG] Task %s already held by %s, trying next", task.ID, result.Conflict.CurrentHolder)
			continue
		}

		if result.Degraded {
			log.Printf("[WARN] Claimed task %s in degraded mode, exclusivity is best-effort", task.ID)
		}

		owner := e.config.AgentName
		if err := e.store.UpdateTask(ctx, task.ID, taskboard.TaskUpdate{Owner: &owner}); err != nil {
			log.Printf("[ERROR] Failed to record owner on task %s: %v", task.ID, err)
			e.releaseQuietly(claimedTask{task: task, leaseID: result.LeaseID})
			continue
		}

		log.Printf("[INFO] Claimed task %s (lease %s)", task.ID, result.LeaseID)
		return claimedTask{task: task, leaseID: result.LeaseID}, true
	}

	return claimedTask{}, false
}

// workExecutor runs the tool for each granted task until the queue closes.
func (e *Engine) workExecutor(ctx context.Context, workQueue <-chan claimedTask) {
	defer e.wg.Done()
	defer log.Printf("[DEBUG] Work Executor exited cleanly")

	for claimed := range workQueue {
		e.executeTask(ctx, claimed)
	}
}

// executeTask runs the configured command for one claimed task, keeping the
// lease alive with heartbeats while the tool runs, then records the outcome
// and releases the lease. Failures never crash the worker.
func (e *Engine) executeTask(ctx context.Context, claimed claimedTask) {
	task := claimed.task
	log.Printf("[INFO] Executing task %s: command=%v", task.ID, e.config.Command)

	stopHeartbeat := e.startHeartbeat(ctx, claimed)
	startTime := time.Now()

	exitCode, stdout, stderr, err := e.runTool(ctx, task)
	duration := time.Since(startTime)

	stopHeartbeat()

	if err != nil {
		log.Printf("[ERROR] Tool execution failed: task_id=%s exit_code=%d duration=%s error=%v stderr=%s",
			task.ID, exitCode, duration, err, truncate(stderr, 500))
		e.recordFailure(ctx, claimed)
		return
	}

	log.Printf("[INFO] Tool execution completed: task_id=%s exit_code=%d duration=%s stdout=%s",
		task.ID, exitCode, duration, truncate(stdout, 200))

	e.recordSuccess(ctx, claimed)
}

// startHeartbeat extends the lease periodically while the tool runs.
// The returned function stops the heartbeat and must be called exactly once.
func (e *Engine) startHeartbeat(ctx context.Context, claimed claimedTask) func() {
	done := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(e.config.HeartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := e.coord.Extend(ctx, claimed.task.ID, claimed.leaseID, e.config.LeaseTTL); err != nil {
					log.Printf("[WARN] Heartbeat extend failed for task %s: %v", claimed.task.ID, err)
				}
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }
}

// recordSuccess marks the task completed, clears ownership, and releases
// the lease.
func (e *Engine) recordSuccess(ctx context.Context, claimed claimedTask) {
	completed := taskboard.StatusCompleted
	unclaimed := ""
	if err := e.store.UpdateTask(ctx, claimed.task.ID, taskboard.TaskUpdate{
		Status: &completed,
		Owner:  &unclaimed,
	}); err != nil {
		log.Printf("[ERROR] Failed to mark task %s completed: %v", claimed.task.ID, err)
	}

	e.releaseQuietly(claimed)
	log.Printf("[INFO] Task %s completed", claimed.task.ID)
}

// recordFailure returns the task to the pool: ownership cleared, status
// untouched, lease released. Another agent (or this one, next poll) can
// pick it up again.
func (e *Engine) recordFailure(ctx context.Context, claimed claimedTask) {
	unclaimed := ""
	if err := e.store.UpdateTask(ctx, claimed.task.ID, taskboard.TaskUpdate{Owner: &unclaimed}); err != nil {
		log.Printf("[ERROR] Failed to clear owner on task %s: %v", claimed.task.ID, err)
	}

	e.releaseQuietly(claimed)
}

func (e *Engine) releaseQuietly(claimed claimedTask) {
	// Release uses a fresh context: the lease should be returned even when
	// the engine's context is already cancelled.
	releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := e.coord.Release(releaseCtx, claimed.task.ID, claimed.leaseID); err != nil {
		log.Printf("[WARN] Failed to release lease on task %s: %v", claimed.task.ID, err)
	}
}
