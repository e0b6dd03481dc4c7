package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/warren/internal/printer"
	"github.com/dyluth/warren/pkg/taskboard"
)

var blockCmd = &cobra.Command{
	Use:   "block TASK_ID",
	Short: "Park a task with the manual blocked flag",
	Long: `Set the manual blocked flag on a task. A blocked task is never ready,
independent of its dependency state. Use 'warren unblock' to lift it.

Examples:
  warren block a1b2c3`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setBlocked(args[0], true)
	},
}

var unblockCmd = &cobra.Command{
	Use:   "unblock TASK_ID",
	Short: "Lift the manual blocked flag from a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setBlocked(args[0], false)
	},
}

func init() {
	rootCmd.AddCommand(blockCmd)
	rootCmd.AddCommand(unblockCmd)
}

func setBlocked(arg string, blocked bool) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := newTaskClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	taskID, err := resolveTask(ctx, client, arg)
	if err != nil {
		return err
	}

	if err := client.UpdateTask(ctx, taskID, taskboard.TaskUpdate{Blocked: &blocked}); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	if blocked {
		printer.Success("Task %s blocked\n", taskID)
	} else {
		printer.Success("Task %s unblocked\n", taskID)
	}
	return nil
}
