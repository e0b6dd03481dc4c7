package taskboard

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by instance name to enable
// multiple Warren instances to safely coexist on a single Redis server.
//
// Key pattern: warren:{instance_name}:task:{task_id}
// Channel pattern: warren:{instance_name}:task_events

// TaskKey returns the Redis key for a task record.
// Pattern: warren:{instance_name}:task:{task_id}
func TaskKey(instanceName, taskID string) string {
	return fmt.Sprintf("warren:%s:task:%s", instanceName, taskID)
}

// TaskKeyPattern returns the SCAN pattern matching all task keys for an instance.
func TaskKeyPattern(instanceName string) string {
	return fmt.Sprintf("warren:%s:task:*", instanceName)
}

// TaskKeyPrefix returns the prefix shared by all task keys for an instance.
// Used to extract task IDs from scanned keys.
func TaskKeyPrefix(instanceName string) string {
	return fmt.Sprintf("warren:%s:task:", instanceName)
}

// TaskEventsChannel returns the Pub/Sub channel name for task mutation events.
// Every create and update publishes the full task JSON here.
// Pattern: warren:{instance_name}:task_events
func TaskEventsChannel(instanceName string) string {
	return fmt.Sprintf("warren:%s:task_events", instanceName)
}
