package worker

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/warren/internal/coordclient"
	"github.com/dyluth/warren/internal/coordinator"
	"github.com/dyluth/warren/pkg/taskboard"
)

func setupTestEngine(t *testing.T, agent string, command []string) (*Engine, *taskboard.Client, *coordinator.Coordinator) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	store, err := taskboard.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	coord := coordinator.New()
	ts := httptest.NewServer(coordinator.NewServer(coord, "127.0.0.1:0").Handler())
	t.Cleanup(ts.Close)

	config := &Config{
		AgentName:         agent,
		Command:           command,
		PollInterval:      10 * time.Millisecond,
		LeaseTTL:          60 * time.Second,
		HeartbeatInterval: 20 * time.Millisecond,
		ExecTimeout:       5 * time.Second,
	}

	engine := New(config, store, coordclient.New(ts.URL, store))
	return engine, store, coord
}

func seedTask(t *testing.T, store *taskboard.Client, id string, priority taskboard.Priority, blockedBy []string) {
	task := &taskboard.TaskRecord{
		ID:       id,
		Title:    "task " + id,
		Status:   taskboard.StatusActive,
		Priority: priority,
		Dependencies: taskboard.Dependencies{
			BlockedBy: blockedBy,
		},
	}
	require.NoError(t, store.CreateTask(context.Background(), task))
}

func TestClaimNext(t *testing.T) {
	t.Run("claims the highest priority ready task", func(t *testing.T) {
		engine, store, _ := setupTestEngine(t, "agent-x", []string{"true"})
		ctx := context.Background()

		seedTask(t, store, "low", taskboard.PriorityLow, nil)
		seedTask(t, store, "crit", taskboard.PriorityCritical, nil)

		claimed, ok := engine.claimNext(ctx)
		require.True(t, ok)
		assert.Equal(t, "crit", claimed.task.ID)
		assert.NotEmpty(t, claimed.leaseID)

		task, err := store.GetTask(ctx, "crit")
		require.NoError(t, err)
		assert.Equal(t, "agent-x", task.Owner)
	})

	t.Run("skips tasks held by another agent", func(t *testing.T) {
		engine, store, coord := setupTestEngine(t, "agent-x", []string{"true"})
		ctx := context.Background()

		seedTask(t, store, "t1", taskboard.PriorityHigh, nil)
		seedTask(t, store, "t2", taskboard.PriorityLow, nil)

		_, _, err := coord.Claim("t1", "agent-other", 60*time.Second, false)
		require.NoError(t, err)

		claimed, ok := engine.claimNext(ctx)
		require.True(t, ok)
		assert.Equal(t, "t2", claimed.task.ID)
	})

	t.Run("nothing ready returns false", func(t *testing.T) {
		engine, store, _ := setupTestEngine(t, "agent-x", []string{"true"})
		ctx := context.Background()

		seedTask(t, store, "blocked", taskboard.PriorityHigh, []string{"dep"})
		seedTask(t, store, "dep", taskboard.PriorityHigh, nil)
		require.NoError(t, store.UpdateTask(ctx, "dep", taskboard.TaskUpdate{Owner: strPtr("someone")}))

		_, ok := engine.claimNext(ctx)
		assert.False(t, ok)
	})
}

func TestExecuteTask(t *testing.T) {
	t.Run("success marks completed and releases", func(t *testing.T) {
		engine, store, coord := setupTestEngine(t, "agent-x", []string{"sh", "-c", "cat > /dev/null; echo ok"})
		ctx := context.Background()

		seedTask(t, store, "t1", taskboard.PriorityHigh, nil)

		claimed, ok := engine.claimNext(ctx)
		require.True(t, ok)

		engine.executeTask(ctx, claimed)

		task, err := store.GetTask(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, taskboard.StatusCompleted, task.Status)
		assert.Empty(t, task.Owner)
		assert.Nil(t, coord.Status("t1"))
	})

	t.Run("failure returns the task to the pool", func(t *testing.T) {
		engine, store, coord := setupTestEngine(t, "agent-x", []string{"sh", "-c", "exit 1"})
		ctx := context.Background()

		seedTask(t, store, "t1", taskboard.PriorityHigh, nil)

		claimed, ok := engine.claimNext(ctx)
		require.True(t, ok)

		engine.executeTask(ctx, claimed)

		task, err := store.GetTask(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, taskboard.StatusActive, task.Status)
		assert.Empty(t, task.Owner)
		assert.Nil(t, coord.Status("t1"))
	})
}

func TestRunTool(t *testing.T) {
	t.Run("captures stdout and feeds task on stdin", func(t *testing.T) {
		engine, _, _ := setupTestEngine(t, "agent-x", []string{"sh", "-c", "cat"})

		task := &taskboard.TaskRecord{ID: "t1", Title: "echo me", Status: taskboard.StatusActive, Priority: taskboard.PriorityMedium}
		exitCode, stdout, _, err := engine.runTool(context.Background(), task)
		require.NoError(t, err)
		assert.Equal(t, 0, exitCode)
		assert.Contains(t, stdout, `"id":"t1"`)
		assert.Contains(t, stdout, `"agent":"agent-x"`)
	})

	t.Run("non-zero exit is an error", func(t *testing.T) {
		engine, _, _ := setupTestEngine(t, "agent-x", []string{"sh", "-c", "echo oops >&2; exit 3"})

		task := &taskboard.TaskRecord{ID: "t1", Status: taskboard.StatusActive, Priority: taskboard.PriorityMedium}
		exitCode, _, stderr, err := engine.runTool(context.Background(), task)
		require.Error(t, err)
		assert.Equal(t, 3, exitCode)
		assert.Contains(t, stderr, "oops")
	})

	t.Run("timeout kills the tool", func(t *testing.T) {
		engine, _, _ := setupTestEngine(t, "agent-x", []string{"sleep", "10"})
		engine.config.ExecTimeout = 50 * time.Millisecond

		task := &taskboard.TaskRecord{ID: "t1", Status: taskboard.StatusActive, Priority: taskboard.PriorityMedium}
		exitCode, _, _, err := engine.runTool(context.Background(), task)
		require.Error(t, err)
		assert.Equal(t, -1, exitCode)
		assert.Contains(t, err.Error(), "timeout")
	})

	t.Run("empty command rejected", func(t *testing.T) {
		engine, _, _ := setupTestEngine(t, "agent-x", nil)

		task := &taskboard.TaskRecord{ID: "t1", Status: taskboard.StatusActive, Priority: taskboard.PriorityMedium}
		_, _, _, err := engine.runTool(context.Background(), task)
		assert.Error(t, err)
	})
}

// TestEngineEndToEnd drives the full loop: a seeded ready task gets claimed,
// executed, and completed without manual claim plumbing.
func TestEngineEndToEnd(t *testing.T) {
	engine, store, _ := setupTestEngine(t, "agent-x", []string{"sh", "-c", "cat > /dev/null"})

	seedTask(t, store, "t1", taskboard.PriorityHigh, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- engine.Start(ctx) }()

	require.Eventually(t, func() bool {
		task, err := store.GetTask(context.Background(), "t1")
		return err == nil && task.Status == taskboard.StatusCompleted
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func strPtr(s string) *string { return &s }
