package taskboard

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Redis stores data as string-to-string maps (hashes). Complex fields like the
// dependency arrays are JSON-encoded into single hash fields. This provides a
// balance between queryability (individual fields) and flexibility (complex
// structures), and lets partial updates touch only the fields they change.

// TaskToHash converts a TaskRecord struct to a Redis hash format.
// Array fields (blocked_by, blocks, related) are JSON-encoded.
func TaskToHash(t *TaskRecord) (map[string]interface{}, error) {
	blockedByJSON, err := json.Marshal(emptyIfNil(t.Dependencies.BlockedBy))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal blocked_by: %w", err)
	}

	blocksJSON, err := json.Marshal(emptyIfNil(t.Dependencies.Blocks))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal blocks: %w", err)
	}

	relatedJSON, err := json.Marshal(emptyIfNil(t.Dependencies.Related))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal related: %w", err)
	}

	hash := map[string]interface{}{
		"id":            t.ID,
		"title":         t.Title,
		"status":        string(t.Status),
		"owner":         t.Owner,
		"blocked":       strconv.FormatBool(t.Blocked),
		"priority":      string(t.Priority),
		"blocked_by":    string(blockedByJSON),
		"blocks":        string(blocksJSON),
		"parent":        t.Dependencies.Parent,
		"related":       string(relatedJSON),
		"updated_at_ms": t.UpdatedAtMs,
	}

	return hash, nil
}

// HashToTask converts a Redis hash to a TaskRecord struct.
// JSON fields are decoded back to Go types.
func HashToTask(hash map[string]string) (*TaskRecord, error) {
	blockedBy, err := decodeIDList(hash["blocked_by"])
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal blocked_by: %w", err)
	}

	blocks, err := decodeIDList(hash["blocks"])
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal blocks: %w", err)
	}

	related, err := decodeIDList(hash["related"])
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal related: %w", err)
	}

	blocked, err := strconv.ParseBool(defaultIfEmpty(hash["blocked"], "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid blocked field: %w", err)
	}

	updatedAtMs, _ := strconv.ParseInt(hash["updated_at_ms"], 10, 64)

	task := &TaskRecord{
		ID:       hash["id"],
		Title:    hash["title"],
		Status:   Status(hash["status"]),
		Owner:    hash["owner"],
		Blocked:  blocked,
		Priority: Priority(hash["priority"]),
		Dependencies: Dependencies{
			BlockedBy: blockedBy,
			Blocks:    blocks,
			Parent:    hash["parent"],
			Related:   related,
		},
		UpdatedAtMs: updatedAtMs,
	}

	return task, nil
}

// decodeIDList decodes a JSON-encoded string array from a hash field.
// Returns an empty slice (never nil) for missing or empty fields.
func decodeIDList(encoded string) ([]string, error) {
	if encoded == "" {
		return []string{}, nil
	}

	var ids []string
	if err := json.Unmarshal([]byte(encoded), &ids); err != nil {
		return nil, err
	}

	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func emptyIfNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func defaultIfEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
