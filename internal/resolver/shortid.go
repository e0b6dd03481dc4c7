// Package resolver turns the short task-id prefixes users type on the
// command line into full task IDs.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dyluth/warren/pkg/taskboard"
)

// MinShortIDLength is the shortest prefix accepted. Six hex characters keep
// accidental multi-matches rare on boards of a few thousand tasks.
const MinShortIDLength = 6

// maxAmbiguousListed caps how many matches the disambiguation listing shows.
const maxAmbiguousListed = 10

// ResolveTaskID resolves a full ID or short prefix to exactly one task ID.
// A value shaped like a full UUID is only verified to exist; anything else
// is treated as a prefix and matched against the board with SCAN. Zero
// matches yields a NotFoundError, more than one an AmbiguousError carrying
// the matched records so callers can show the user what collided.
func ResolveTaskID(ctx context.Context, client *taskboard.Client, shortID string) (string, error) {
	if looksLikeFullID(shortID) {
		if _, err := client.GetTask(ctx, shortID); err != nil {
			if taskboard.IsNotFound(err) {
				return "", fmt.Errorf("task not found: %s", shortID)
			}
			return "", fmt.Errorf("failed to verify task existence: %w", err)
		}
		return shortID, nil
	}

	if len(shortID) < MinShortIDLength {
		return "", fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(shortID))
	}

	matches, err := client.ScanTaskIDs(ctx, shortID)
	if err != nil {
		return "", fmt.Errorf("failed to search for task: %w", err)
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{ShortID: shortID}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{ShortID: shortID, Matches: fetchMatches(ctx, client, matches)}
	}
}

func looksLikeFullID(s string) bool {
	return len(s) == 36 && strings.Count(s, "-") == 4
}

// fetchMatches loads the records behind ambiguous IDs so the listing can
// show title and status. A record that fails to load still appears in the
// listing by ID alone.
func fetchMatches(ctx context.Context, client *taskboard.Client, ids []string) []*taskboard.TaskRecord {
	records := make([]*taskboard.TaskRecord, 0, len(ids))
	for _, id := range ids {
		task, err := client.GetTask(ctx, id)
		if err != nil {
			task = &taskboard.TaskRecord{ID: id}
		}
		records = append(records, task)
	}
	return records
}

// NotFoundError indicates no task on the board matched the prefix.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no tasks found matching '%s'", e.ShortID)
}

// AmbiguousError indicates the prefix matched more than one task.
type AmbiguousError struct {
	ShortID string
	Matches []*taskboard.TaskRecord
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d tasks", e.ShortID, len(e.Matches))
}

// FormatAmbiguousError renders the disambiguation listing: full ID, status
// and title per match, truncated after maxAmbiguousListed entries.
func FormatAmbiguousError(err *AmbiguousError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Short ID '%s' matches %d tasks:\n", err.ShortID, len(err.Matches))

	for i, task := range err.Matches {
		if i == maxAmbiguousListed {
			fmt.Fprintf(&b, "  ...and %d more\n", len(err.Matches)-maxAmbiguousListed)
			break
		}
		if task.Status == "" {
			fmt.Fprintf(&b, "  %s\n", task.ID)
			continue
		}
		fmt.Fprintf(&b, "  %s  %-9s  %s\n", task.ID, task.Status, task.Title)
	}

	b.WriteString("\nUse a longer prefix to uniquely identify the task.")
	return b.String()
}

// IsNotFoundError reports whether err is a NotFoundError.
func IsNotFoundError(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// IsAmbiguousError reports whether err is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	var ambiguous *AmbiguousError
	return errors.As(err, &ambiguous)
}
