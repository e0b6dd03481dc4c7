package taskboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the task store access contract consumed by the readiness resolver
// and the coordinator client's degraded fallback path. It provides no
// atomicity or locking of its own.
type Store interface {
	// ReadAll returns every task record for the instance.
	ReadAll(ctx context.Context) ([]*TaskRecord, error)

	// GetTask retrieves a single task by ID. Returns IsNotFound-matching
	// error if the task doesn't exist.
	GetTask(ctx context.Context, taskID string) (*TaskRecord, error)

	// UpdateTask applies a partial update to a task. Repeated identical
	// updates are idempotent with respect to the content fields.
	UpdateTask(ctx context.Context, taskID string, update TaskUpdate) error
}

// TaskUpdate describes a partial mutation of a task record.
// Nil fields are left untouched; the last-updated timestamp is always bumped.
type TaskUpdate struct {
	Title     *string
	Status    *Status
	Owner     *string // pointer to empty string clears ownership
	Blocked   *bool
	Priority  *Priority
	BlockedBy *[]string
}

// Client provides instance-scoped Redis operations for the task board.
// All keys and channels are automatically namespaced with the instance name.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb          *redis.Client
	instanceName string
}

// Client implements the Store contract.
var _ Store = (*Client)(nil)

// NewClient creates a new task board client for the specified instance.
// The client automatically namespaces all keys and channels with the instance name.
//
// Returns an error if instanceName is empty.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
// After calling Close(), the client should not be used.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// RedisClient exposes the underlying Redis client for advanced operations
// (SCAN-based listings, test assertions).
func (c *Client) RedisClient() *redis.Client {
	return c.rdb
}

// InstanceName returns the instance this client is scoped to.
func (c *Client) InstanceName() string {
	return c.instanceName
}

// CreateTask writes a task record to Redis and publishes a task event.
// Validates the record before writing. Stamps the last-updated timestamp.
// This method is idempotent - writing the same task twice is safe.
func (c *Client) CreateTask(ctx context.Context, t *TaskRecord) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	t.UpdatedAtMs = time.Now().UnixMilli()

	hash, err := TaskToHash(t)
	if err != nil {
		return fmt.Errorf("failed to serialize task: %w", err)
	}

	key := TaskKey(c.instanceName, t.ID)
	if err := c.rdb.HSet(ctx, key, hash).Err(); err != nil {
		return fmt.Errorf("failed to write task to Redis: %w", err)
	}

	if err := c.publishTaskEvent(ctx, t); err != nil {
		return err
	}

	return nil
}

// GetTask retrieves a task record by ID.
// Returns (nil, redis.Nil) if the task doesn't exist.
// Use IsNotFound() to check for not-found errors.
func (c *Client) GetTask(ctx context.Context, taskID string) (*TaskRecord, error) {
	key := TaskKey(c.instanceName, taskID)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read task from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	task, err := HashToTask(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize task: %w", err)
	}

	return task, nil
}

// TaskExists checks if a task exists without fetching it.
func (c *Client) TaskExists(ctx context.Context, taskID string) (bool, error) {
	key := TaskKey(c.instanceName, taskID)
	exists, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check task existence: %w", err)
	}
	return exists > 0, nil
}

// ReadAll retrieves every task record for the instance using Redis SCAN,
// so it never blocks the server on large boards. Malformed records are
// skipped rather than failing the whole read. Results are sorted by ID
// for stable output.
func (c *Client) ReadAll(ctx context.Context) ([]*TaskRecord, error) {
	prefix := TaskKeyPrefix(c.instanceName)
	iter := c.rdb.Scan(ctx, 0, TaskKeyPattern(c.instanceName), 0).Iterator()

	var tasks []*TaskRecord
	for iter.Next(ctx) {
		taskID := iter.Val()[len(prefix):]

		task, err := c.GetTask(ctx, taskID)
		if err != nil {
			// Skip records that vanished or fail to decode; the resolver
			// must keep working on the rest of the board.
			continue
		}
		tasks = append(tasks, task)
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan tasks: %w", err)
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].ID < tasks[j].ID
	})

	return tasks, nil
}

// ScanTaskIDs returns all task IDs with the given prefix.
// Used by the CLI short-ID resolver.
func (c *Client) ScanTaskIDs(ctx context.Context, idPrefix string) ([]string, error) {
	prefix := TaskKeyPrefix(c.instanceName)
	pattern := fmt.Sprintf("%s%s*", prefix, idPrefix)
	iter := c.rdb.Scan(ctx, 0, pattern, 0).Iterator()

	var ids []string
	for iter.Next(ctx) {
		ids = append(ids, iter.Val()[len(prefix):])
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan task IDs: %w", err)
	}

	sort.Strings(ids)
	return ids, nil
}

// UpdateTask applies a partial update to an existing task record and
// publishes a task event with the new state.
// Only the provided fields are written; the last-updated timestamp is bumped.
// Returns (redis.Nil-wrapped) not-found error if the task doesn't exist.
func (c *Client) UpdateTask(ctx context.Context, taskID string, update TaskUpdate) error {
	key := TaskKey(c.instanceName, taskID)

	exists, err := c.TaskExists(ctx, taskID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("task %s: %w", taskID, redis.Nil)
	}

	hash := map[string]interface{}{
		"updated_at_ms": time.Now().UnixMilli(),
	}

	if update.Title != nil {
		hash["title"] = *update.Title
	}
	if update.Status != nil {
		if err := update.Status.Validate(); err != nil {
			return fmt.Errorf("invalid status: %w", err)
		}
		hash["status"] = string(*update.Status)
	}
	if update.Owner != nil {
		hash["owner"] = *update.Owner
	}
	if update.Blocked != nil {
		hash["blocked"] = strconv.FormatBool(*update.Blocked)
	}
	if update.Priority != nil {
		if err := update.Priority.Validate(); err != nil {
			return fmt.Errorf("invalid priority: %w", err)
		}
		hash["priority"] = string(*update.Priority)
	}
	if update.BlockedBy != nil {
		blockedByJSON, err := json.Marshal(emptyIfNil(*update.BlockedBy))
		if err != nil {
			return fmt.Errorf("failed to marshal blocked_by: %w", err)
		}
		hash["blocked_by"] = string(blockedByJSON)
	}

	if err := c.rdb.HSet(ctx, key, hash).Err(); err != nil {
		return fmt.Errorf("failed to update task in Redis: %w", err)
	}

	// Publish the post-update state so watchers see the full record
	task, err := c.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to re-read task after update: %w", err)
	}

	return c.publishTaskEvent(ctx, task)
}

// publishTaskEvent publishes the full task JSON to the task_events channel.
func (c *Client) publishTaskEvent(ctx context.Context, t *TaskRecord) error {
	taskJSON, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal task for event: %w", err)
	}

	channel := TaskEventsChannel(c.instanceName)
	if err := c.rdb.Publish(ctx, channel, taskJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish task event: %w", err)
	}

	return nil
}

// Subscription represents an active Pub/Sub subscription to task events.
// Caller must call Close() when done to clean up resources.
// Subscriptions deliver full task records via the Events() channel.
type Subscription struct {
	events <-chan *TaskRecord
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of task events.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan *TaskRecord {
	return s.events
}

// Errors returns the channel of subscription errors.
// Errors include JSON unmarshaling failures and other non-fatal issues.
// The subscription continues after errors - messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeTaskEvents subscribes to task mutation events for this instance.
// Returns a Subscription that delivers full task records.
// Caller must call subscription.Close() when done.
// Context cancellation also stops the subscription.
//
// Events are delivered on a buffered channel (size 10) to prevent blocking.
// If the subscriber is too slow, events may be dropped by Redis Pub/Sub
// (at-most-once delivery).
func (c *Client) SubscribeTaskEvents(ctx context.Context) (*Subscription, error) {
	channel := TaskEventsChannel(c.instanceName)
	pubsub := c.rdb.Subscribe(ctx, channel)

	eventsChan := make(chan *TaskRecord, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var task TaskRecord
				if err := json.Unmarshal([]byte(msg.Payload), &task); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal task event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &task:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil).
// Use this to check if GetTask or UpdateTask returned "not found".
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
