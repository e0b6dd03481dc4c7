package board

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/warren/internal/readiness"
	"github.com/dyluth/warren/pkg/taskboard"
)

// FormatTable writes tasks as a formatted table to the provided writer.
// The table includes columns: ID, STATUS, PRI, OWNER, AGE, and TITLE (truncated).
// Returns the number of tasks formatted.
func FormatTable(w io.Writer, tasks []*taskboard.TaskRecord, instanceName string) int {
	if len(tasks) == 0 {
		fmt.Fprintf(w, "No tasks found for instance '%s'\n", instanceName)
		return 0
	}

	fmt.Fprintf(w, "Tasks for instance '%s':\n\n", instanceName)

	fmt.Fprintf(w, "%-10s %-10s %-9s %-14s %-8s %s\n",
		"ID", "STATUS", "PRI", "OWNER", "AGE", "TITLE")
	fmt.Fprintf(w, "%-10s %-10s %-9s %-14s %-8s %s\n",
		"----------", "----------", "---------", "--------------", "--------", "----------------------------------------")

	for _, task := range tasks {
		fmt.Fprintf(w, "%-10s %-10s %-9s %-14s %-8s %s\n",
			formatID(task.ID),
			task.Status,
			task.Priority,
			formatOwner(task.Owner),
			formatTimestamp(task.UpdatedAtMs),
			formatTitle(task.Title),
		)
	}

	countMsg := "task"
	if len(tasks) != 1 {
		countMsg = "tasks"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(tasks), countMsg)

	return len(tasks)
}

// FormatReadyTable writes ready tasks in resolver order: the first row is the
// task an idle agent should pick up next.
func FormatReadyTable(w io.Writer, tasks []*taskboard.TaskRecord, instanceName string) int {
	if len(tasks) == 0 {
		fmt.Fprintf(w, "No ready tasks for instance '%s'\n", instanceName)
		return 0
	}

	fmt.Fprintf(w, "Ready tasks for instance '%s' (best first):\n\n", instanceName)

	fmt.Fprintf(w, "%-4s %-10s %-9s %-8s %s\n", "#", "ID", "PRI", "AGE", "TITLE")
	fmt.Fprintf(w, "%-4s %-10s %-9s %-8s %s\n", "----", "----------", "---------", "--------", "----------------------------------------")

	for i, task := range tasks {
		fmt.Fprintf(w, "%-4d %-10s %-9s %-8s %s\n",
			i+1,
			formatID(task.ID),
			task.Priority,
			formatTimestamp(task.UpdatedAtMs),
			formatTitle(task.Title),
		)
	}

	fmt.Fprintf(w, "\n%d ready\n", len(tasks))
	return len(tasks)
}

// FormatJSONL writes tasks as line-delimited JSON (JSONL) to the provided writer.
// Each task is written as a single JSON object on its own line.
func FormatJSONL(w io.Writer, tasks []*taskboard.TaskRecord) error {
	for _, task := range tasks {
		data, err := json.Marshal(task)
		if err != nil {
			return fmt.Errorf("failed to marshal task to JSON: %w", err)
		}

		if _, err := fmt.Fprintf(w, "%s\n", string(data)); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}

	return nil
}

// FormatSingleJSON writes a single task as pretty-printed JSON to the provided writer.
// Used in get mode to display complete task details.
func FormatSingleJSON(w io.Writer, task *taskboard.TaskRecord) error {
	data, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal task to JSON: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}

	fmt.Fprintln(w)
	return nil
}

// FormatSummary writes a human-readable dependency summary for one task.
func FormatSummary(w io.Writer, summary *readiness.Summary) {
	fmt.Fprintf(w, "Task: %s\n", summary.TaskID)

	if summary.InCycle {
		fmt.Fprintf(w, "In dependency cycle: yes (will never become ready until the cycle is broken)\n")
	}

	if len(summary.DirectBlockers) == 0 {
		fmt.Fprintf(w, "Direct blockers: none\n")
	} else {
		fmt.Fprintf(w, "Direct blockers (%d):\n", len(summary.DirectBlockers))
		for _, id := range summary.DirectBlockers {
			fmt.Fprintf(w, "  %s\n", id)
		}
	}

	fmt.Fprintf(w, "Transitive blockers: %d\n", summary.TransitiveBlockerCount)
}

// formatID truncates task ID to first 8 characters for compact display.
func formatID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatTitle truncates the title to the first line with max 40 characters.
// Empty titles return "-".
func formatTitle(title string) string {
	if title == "" {
		return "-"
	}

	lines := strings.Split(title, "\n")
	var firstLine string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			firstLine = trimmed
			break
		}
	}

	if firstLine == "" {
		return "-"
	}

	if len(firstLine) > 40 {
		return firstLine[:37] + "..."
	}

	return firstLine
}

// formatOwner formats the owner field for table display.
// Unclaimed tasks show "-".
func formatOwner(owner string) string {
	if owner == "" {
		return "-"
	}
	if len(owner) > 14 {
		return owner[:11] + "..."
	}
	return owner
}

// formatTimestamp formats Unix timestamp in milliseconds to human-readable time.
// Shows relative time like "2m ago", "1h ago", etc.
func formatTimestamp(timestampMs int64) string {
	if timestampMs == 0 {
		return "-"
	}

	t := time.Unix(timestampMs/1000, (timestampMs%1000)*1000000)
	diff := time.Since(t)

	if diff < time.Minute {
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	} else if diff < time.Hour {
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	} else if diff < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
}
