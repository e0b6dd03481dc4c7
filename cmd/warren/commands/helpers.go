package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dyluth/warren/internal/config"
	"github.com/dyluth/warren/internal/coordclient"
	"github.com/dyluth/warren/internal/printer"
	"github.com/dyluth/warren/internal/resolver"
	"github.com/dyluth/warren/pkg/taskboard"
)

// loadConfig reads warren.yml from the configured path with a friendly error
// when it is missing.
func loadConfig() (*config.WarrenConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"failed to load configuration",
			err.Error(),
			map[string]string{"Config": configPath},
			[]string{
				"Create a configuration first:\n  warren init",
				"Or point at an existing one:\n  warren --config path/to/warren.yml ...",
			},
		)
	}
	return cfg, nil
}

// newTaskClient connects to the configured task store and verifies
// connectivity before returning.
func newTaskClient(ctx context.Context, cfg *config.WarrenConfig) (*taskboard.Client, error) {
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client, err := taskboard.NewClient(redisOpts, cfg.Instance)
	if err != nil {
		return nil, fmt.Errorf("failed to create task store client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s", cfg.Redis.URL),
			nil,
			[]string{"Check that Redis is running and redis.url in warren.yml is correct."},
		)
	}

	return client, nil
}

// newCoordClient builds the coordinator client with the task store as its
// degraded-mode fallback.
func newCoordClient(cfg *config.WarrenConfig, store *taskboard.Client) *coordclient.Client {
	return coordclient.New(cfg.Coordinator.URL, store)
}

// resolveTask turns a full ID or short prefix into a full task ID, with
// friendly errors for the ambiguous and missing cases.
func resolveTask(ctx context.Context, client *taskboard.Client, arg string) (string, error) {
	taskID, err := resolver.ResolveTaskID(ctx, client, arg)
	if err != nil {
		var ambiguous *resolver.AmbiguousError
		if errors.As(err, &ambiguous) {
			return "", printer.Error(
				fmt.Sprintf("ambiguous task ID '%s'", arg),
				resolver.FormatAmbiguousError(ambiguous),
				nil,
			)
		}
		if resolver.IsNotFoundError(err) {
			return "", printer.Error(
				fmt.Sprintf("no task matching '%s'", arg),
				"The prefix did not match any task on the board.",
				[]string{"List tasks:\n  warren list"},
			)
		}
		return "", err
	}
	return taskID, nil
}
