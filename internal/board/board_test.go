package board

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/warren/internal/filter"
	"github.com/dyluth/warren/internal/readiness"
	"github.com/dyluth/warren/pkg/taskboard"
)

func setupTestClient(t *testing.T) *taskboard.Client {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client, err := taskboard.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client
}

func createTask(t *testing.T, client *taskboard.Client, task *taskboard.TaskRecord) {
	if task.Status == "" {
		task.Status = taskboard.StatusActive
	}
	if task.Priority == "" {
		task.Priority = taskboard.PriorityMedium
	}
	require.NoError(t, client.CreateTask(context.Background(), task))
}

func TestListTasks(t *testing.T) {
	ctx := context.Background()

	t.Run("empty board prints friendly message", func(t *testing.T) {
		client := setupTestClient(t)
		var buf bytes.Buffer

		require.NoError(t, ListTasks(ctx, client, "test-instance", OutputFormatDefault, nil, &buf))
		assert.Contains(t, buf.String(), "No tasks found for instance 'test-instance'")
	})

	t.Run("table lists all tasks with count", func(t *testing.T) {
		client := setupTestClient(t)
		createTask(t, client, &taskboard.TaskRecord{ID: "task-one", Title: "first"})
		createTask(t, client, &taskboard.TaskRecord{ID: "task-two", Title: "second", Owner: "agent-x"})

		var buf bytes.Buffer
		require.NoError(t, ListTasks(ctx, client, "test-instance", OutputFormatDefault, nil, &buf))

		out := buf.String()
		assert.Contains(t, out, "task-one")
		assert.Contains(t, out, "task-two")
		assert.Contains(t, out, "agent-x")
		assert.Contains(t, out, "2 tasks found")
	})

	t.Run("filters are applied", func(t *testing.T) {
		client := setupTestClient(t)
		createTask(t, client, &taskboard.TaskRecord{ID: "task-one", Title: "first", Owner: "agent-x"})
		createTask(t, client, &taskboard.TaskRecord{ID: "task-two", Title: "second"})

		var buf bytes.Buffer
		criteria := &filter.Criteria{Unowned: true}
		require.NoError(t, ListTasks(ctx, client, "test-instance", OutputFormatDefault, criteria, &buf))

		out := buf.String()
		assert.NotContains(t, out, "task-one")
		assert.Contains(t, out, "task-two")
		assert.Contains(t, out, "1 task found")
	})

	t.Run("jsonl emits one object per line", func(t *testing.T) {
		client := setupTestClient(t)
		createTask(t, client, &taskboard.TaskRecord{ID: "task-one", Title: "first"})
		createTask(t, client, &taskboard.TaskRecord{ID: "task-two", Title: "second"})

		var buf bytes.Buffer
		require.NoError(t, ListTasks(ctx, client, "test-instance", OutputFormatJSONL, nil, &buf))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], `"id":`)
	})

	t.Run("unknown format rejected", func(t *testing.T) {
		client := setupTestClient(t)
		var buf bytes.Buffer

		err := ListTasks(ctx, client, "test-instance", OutputFormat("csv"), nil, &buf)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown output format")
	})
}

func TestFormatReadyTable(t *testing.T) {
	var buf bytes.Buffer
	tasks := []*taskboard.TaskRecord{
		{ID: "task-crit", Title: "urgent", Priority: taskboard.PriorityCritical},
		{ID: "task-low", Title: "later", Priority: taskboard.PriorityLow},
	}

	FormatReadyTable(&buf, tasks, "test-instance")

	out := buf.String()
	// Resolver order preserved: critical row before low row
	assert.Less(t, strings.Index(out, "task-cri"), strings.Index(out, "task-low"))
	assert.Contains(t, out, "2 ready")
}

func TestGetTask(t *testing.T) {
	ctx := context.Background()

	t.Run("writes pretty JSON", func(t *testing.T) {
		client := setupTestClient(t)
		createTask(t, client, &taskboard.TaskRecord{ID: "task-one", Title: "first"})

		var buf bytes.Buffer
		require.NoError(t, GetTask(ctx, client, "task-one", &buf))
		assert.Contains(t, buf.String(), `"id": "task-one"`)
	})

	t.Run("missing task is a typed not-found error", func(t *testing.T) {
		client := setupTestClient(t)

		var buf bytes.Buffer
		err := GetTask(ctx, client, "ghost", &buf)
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})
}

func TestFormatSummary(t *testing.T) {
	t.Run("unblocked task", func(t *testing.T) {
		var buf bytes.Buffer
		FormatSummary(&buf, &readiness.Summary{TaskID: "t1"})

		out := buf.String()
		assert.Contains(t, out, "Direct blockers: none")
		assert.Contains(t, out, "Transitive blockers: 0")
		assert.NotContains(t, out, "cycle")
	})

	t.Run("blocked cyclic task", func(t *testing.T) {
		var buf bytes.Buffer
		FormatSummary(&buf, &readiness.Summary{
			TaskID:                 "t1",
			DirectBlockers:         []string{"t2", "t3"},
			TransitiveBlockerCount: 4,
			InCycle:                true,
		})

		out := buf.String()
		assert.Contains(t, out, "In dependency cycle: yes")
		assert.Contains(t, out, "Direct blockers (2)")
		assert.Contains(t, out, "t3")
		assert.Contains(t, out, "Transitive blockers: 4")
	})
}
