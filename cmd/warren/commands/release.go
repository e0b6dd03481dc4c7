package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/warren/internal/coordinator"
	"github.com/dyluth/warren/internal/printer"
	"github.com/dyluth/warren/pkg/taskboard"
)

var releaseLeaseID string

var releaseCmd = &cobra.Command{
	Use:   "release TASK_ID",
	Short: "Release a held lease",
	Long: `Release the lease on a task. The lease ID from the original claim must
match; a stale token from a revoked or expired lease is refused so it
cannot clobber a newer holder.

In degraded mode the task's owner field is cleared directly.

Examples:
  warren release a1b2c3 --lease 7f3d...`,
	Args: cobra.ExactArgs(1),
	RunE: runRelease,
}

func init() {
	releaseCmd.Flags().StringVarP(&releaseLeaseID, "lease", "l", "", "Lease ID from the claim (required)")
	releaseCmd.MarkFlagRequired("lease")
	rootCmd.AddCommand(releaseCmd)
}

func runRelease(cmd *cobra.Command, args []string) error {
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

	result, err := newCoordClient(cfg, client).Release(ctx, taskID, releaseLeaseID)
	if err != nil {
		if errors.Is(err, coordinator.ErrOwnershipMismatch) {
			return printer.Error(
				"lease ID does not match",
				"The task is held under a different lease; your token is stale.",
				[]string{fmt.Sprintf("Check the current holder:\n  warren status %s", args[0])},
			)
		}
		if errors.Is(err, coordinator.ErrNotFound) {
			return printer.Error(
				fmt.Sprintf("coordinator has no record of task %s", taskID),
				"Nothing to release.",
				nil,
			)
		}
		return fmt.Errorf("release failed: %w", err)
	}

	if result.Degraded {
		printer.Degraded("release")
	} else {
		// Clear ownership on the board so the task becomes ready again.
		// The degraded path already cleared the owner field directly.
		unclaimed := ""
		if err := client.UpdateTask(ctx, taskID, taskboard.TaskUpdate{Owner: &unclaimed}); err != nil {
			printer.Warning("lease released but owner field not cleared: %v\n", err)
		}
	}

	printer.Success("Released %s\n", taskID)
	return nil
}
