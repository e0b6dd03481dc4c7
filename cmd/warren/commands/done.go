package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/warren/internal/printer"
	"github.com/dyluth/warren/pkg/taskboard"
)

var doneLeaseID string

var doneCmd = &cobra.Command{
	Use:   "done TASK_ID",
	Short: "Mark a task completed",
	Long: `Mark a task completed and clear its ownership. Every task blocked on
it moves one step closer to ready.

Pass --lease to also release the coordinator lease in the same step.

Examples:
  warren done a1b2c3
  warren done a1b2c3 --lease 7f3d...`,
	Args: cobra.ExactArgs(1),
	RunE: runDone,
}

func init() {
	doneCmd.Flags().StringVarP(&doneLeaseID, "lease", "l", "", "Lease ID to release after completing")
	rootCmd.AddCommand(doneCmd)
}

func runDone(cmd *cobra.Command, args []string) error {
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

	taskID, err := resolveTask(ctx, client, args[0])
	if err != nil {
		return err
	}

	completed := taskboard.StatusCompleted
	unclaimed := ""
	if err := client.UpdateTask(ctx, taskID, taskboard.TaskUpdate{
		Status: &completed,
		Owner:  &unclaimed,
	}); err != nil {
		return fmt.Errorf("failed to mark task completed: %w", err)
	}

	if doneLeaseID != "" {
		result, err := newCoordClient(cfg, client).Release(ctx, taskID, doneLeaseID)
		if err != nil {
			printer.Warning("task completed but lease release failed: %v\n", err)
		} else if result.Degraded {
			printer.Degraded("release")
		}
	}

	printer.Success("Task %s completed\n", taskID)
	return nil
}
