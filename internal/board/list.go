// Package board renders task board contents for the CLI: filtered listings,
// single-task detail, and readiness views.
package board

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/dyluth/warren/internal/filter"
	"github.com/dyluth/warren/pkg/taskboard"
)

// OutputFormat specifies how to format the task list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table format with truncated titles
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete tasks as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// ListTasks retrieves all tasks for an instance, applies filter criteria if
// provided, and writes them to the provided writer. Tasks are sorted by last
// update (stalest first) for stable output.
func ListTasks(ctx context.Context, store taskboard.Store, instanceName string, format OutputFormat, filters *filter.Criteria, w io.Writer) error {
	all, err := store.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to read tasks: %w", err)
	}

	var tasks []*taskboard.TaskRecord
	for _, task := range all {
		if filters != nil && !filters.Matches(task) {
			continue
		}
		tasks = append(tasks, task)
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].UpdatedAtMs < tasks[j].UpdatedAtMs
	})

	switch format {
	case OutputFormatDefault:
		FormatTable(w, tasks, instanceName)
	case OutputFormatJSONL:
		if err := FormatJSONL(w, tasks); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	return nil
}
