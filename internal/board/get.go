package board

import (
	"context"
	"fmt"
	"io"

	"github.com/dyluth/warren/pkg/taskboard"
)

// GetTask retrieves a single task by ID and writes it as pretty-printed JSON
// to the writer. Uses IsNotFound() to distinguish "not found" errors from
// other failures.
func GetTask(ctx context.Context, store taskboard.Store, taskID string, w io.Writer) error {
	task, err := store.GetTask(ctx, taskID)
	if err != nil {
		if taskboard.IsNotFound(err) {
			return &TaskNotFoundError{TaskID: taskID}
		}
		return fmt.Errorf("failed to fetch task: %w", err)
	}

	if err := FormatSingleJSON(w, task); err != nil {
		return fmt.Errorf("failed to format task: %w", err)
	}

	return nil
}

// TaskNotFoundError represents a specific "task not found" error.
// This allows callers to distinguish not-found errors from other failures.
type TaskNotFoundError struct {
	TaskID string
}

func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("task with ID '%s' not found", e.TaskID)
}

// IsNotFound returns true if the error is a TaskNotFoundError.
func IsNotFound(err error) bool {
	_, ok := err.(*TaskNotFoundError)
	return ok
}
