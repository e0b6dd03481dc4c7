package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dyluth/warren/pkg/taskboard"
)

func sampleTask() *taskboard.TaskRecord {
	return &taskboard.TaskRecord{
		ID:          "t1",
		Title:       "fix login bug",
		Status:      taskboard.StatusActive,
		Owner:       "agent-x",
		Priority:    taskboard.PriorityHigh,
		UpdatedAtMs: 5000,
	}
}

func TestCriteriaMatches(t *testing.T) {
	t.Run("empty criteria matches everything", func(t *testing.T) {
		c := &Criteria{}
		assert.True(t, c.Matches(sampleTask()))
		assert.False(t, c.HasFilters())
	})

	t.Run("status filter", func(t *testing.T) {
		c := &Criteria{Status: "active"}
		assert.True(t, c.Matches(sampleTask()))

		c.Status = "completed"
		assert.False(t, c.Matches(sampleTask()))
	})

	t.Run("owner filter", func(t *testing.T) {
		c := &Criteria{Owner: "agent-x"}
		assert.True(t, c.Matches(sampleTask()))

		c.Owner = "agent-y"
		assert.False(t, c.Matches(sampleTask()))
	})

	t.Run("unowned filter", func(t *testing.T) {
		c := &Criteria{Unowned: true}
		assert.False(t, c.Matches(sampleTask()))

		unowned := sampleTask()
		unowned.Owner = ""
		assert.True(t, c.Matches(unowned))
	})

	t.Run("priority filter", func(t *testing.T) {
		c := &Criteria{Priority: "high"}
		assert.True(t, c.Matches(sampleTask()))

		c.Priority = "low"
		assert.False(t, c.Matches(sampleTask()))
	})

	t.Run("title glob filter", func(t *testing.T) {
		c := &Criteria{TitleGlob: "fix *"}
		assert.True(t, c.Matches(sampleTask()))

		c.TitleGlob = "add *"
		assert.False(t, c.Matches(sampleTask()))
	})

	t.Run("time range filter", func(t *testing.T) {
		c := &Criteria{SinceTimestampMs: 4000, UntilTimestampMs: 6000}
		assert.True(t, c.Matches(sampleTask()))

		c.SinceTimestampMs = 6000
		c.UntilTimestampMs = 0
		assert.False(t, c.Matches(sampleTask()))
	})

	t.Run("filters are ANDed", func(t *testing.T) {
		c := &Criteria{Status: "active", Owner: "agent-y"}
		assert.False(t, c.Matches(sampleTask()))
		assert.True(t, c.HasFilters())
	})
}
