// Package watch streams live task board activity to a terminal.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/warren/pkg/taskboard"
)

// OutputFormat controls how streamed events are rendered.
type OutputFormat string

const (
	// OutputFormatDefault renders one human-readable line per event
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL renders each event as a JSON object on its own line
	OutputFormatJSONL OutputFormat = "jsonl"
)

// StreamActivity subscribes to task events and writes one line per mutation
// until the context is cancelled. Returns nil on cancellation.
func StreamActivity(ctx context.Context, client *taskboard.Client, format OutputFormat, w io.Writer) error {
	sub, err := client.SubscribeTaskEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to task events: %w", err)
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err, ok := <-sub.Errors():
			if !ok {
				return nil
			}
			return fmt.Errorf("event stream failed: %w", err)

		case task, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := writeEvent(w, task, format); err != nil {
				return err
			}
		}
	}
}

func writeEvent(w io.Writer, task *taskboard.TaskRecord, format OutputFormat) error {
	switch format {
	case OutputFormatJSONL:
		data, err := json.Marshal(task)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", string(data))
		return err

	default:
		owner := task.Owner
		if owner == "" {
			owner = "-"
		}
		_, err := fmt.Fprintf(w, "[%s] %s status=%s owner=%s priority=%s %s\n",
			time.Now().Format("15:04:05"),
			task.ID,
			task.Status,
			owner,
			task.Priority,
			task.Title,
		)
		return err
	}
}

// WaitForStatus polls a task until it reaches the wanted status or the
// timeout elapses. Polls every 200ms.
func WaitForStatus(ctx context.Context, client *taskboard.Client, taskID string, want taskboard.Status, timeout time.Duration) (*taskboard.TaskRecord, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for task %s to become %s after %v", taskID, want, timeout)

		case <-ticker.C:
			task, err := client.GetTask(ctx, taskID)
			if err != nil {
				if taskboard.IsNotFound(err) {
					continue
				}
				return nil, fmt.Errorf("failed to query task: %w", err)
			}

			if task.Status == want {
				return task, nil
			}
		}
	}
}
