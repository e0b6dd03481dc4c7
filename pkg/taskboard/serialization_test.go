package taskboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskHashRoundTrip(t *testing.T) {
	task := &TaskRecord{
		ID:       "task-a",
		Title:    "wire the API",
		Status:   StatusActive,
		Owner:    "agent-x",
		Blocked:  true,
		Priority: PriorityCritical,
		Dependencies: Dependencies{
			BlockedBy: []string{"task-b", "task-c"},
			Blocks:    []string{"task-d"},
			Parent:    "epic-1",
			Related:   []string{"task-e"},
		},
		UpdatedAtMs: 1700000000000,
	}

	hash, err := TaskToHash(task)
	require.NoError(t, err)

	stringHash := make(map[string]string, len(hash))
	for k, v := range hash {
		switch val := v.(type) {
		case string:
			stringHash[k] = val
		case int64:
			stringHash[k] = "1700000000000"
		}
	}

	decoded, err := HashToTask(stringHash)
	require.NoError(t, err)
	assert.Equal(t, task, decoded)
}

func TestHashToTaskDefaults(t *testing.T) {
	// A minimal hash (as written by early versions or partial updates)
	// decodes with safe defaults rather than failing.
	decoded, err := HashToTask(map[string]string{
		"id":       "task-min",
		"status":   "pending",
		"priority": "low",
	})
	require.NoError(t, err)

	assert.False(t, decoded.Blocked)
	assert.Empty(t, decoded.Owner)
	assert.NotNil(t, decoded.Dependencies.BlockedBy)
	assert.Empty(t, decoded.Dependencies.BlockedBy)
	assert.Zero(t, decoded.UpdatedAtMs)
}

func TestHashToTaskRejectsMalformedJSON(t *testing.T) {
	_, err := HashToTask(map[string]string{
		"id":         "task-bad",
		"status":     "pending",
		"priority":   "low",
		"blocked_by": "{not json",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "blocked_by")
}
