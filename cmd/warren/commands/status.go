package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/warren/internal/printer"
)

var statusCmd = &cobra.Command{
	Use:   "status TASK_ID",
	Short: "Show the lease status of a task",
	Long: `Show who currently holds a task.

Connected, this queries the coordinator's lease table. Degraded, it
falls back to the task store's owner field (no expiry information is
available there).

Examples:
  warren status a1b2c3`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	result, err := newCoordClient(cfg, client).Status(ctx, taskID)
	if err != nil {
		return fmt.Errorf("status query failed: %w", err)
	}

	if result.Degraded {
		printer.Warning("coordinator unreachable; showing the task store's owner field\n")
		if result.Owner == "" {
			printer.Info("Task %s is unclaimed\n", taskID)
		} else {
			printer.Info("Task %s is owned by %s (no lease details available)\n", taskID, result.Owner)
		}
		return nil
	}

	if result.Lease == nil {
		printer.Info("Task %s is unclaimed\n", taskID)
		return nil
	}

	printer.Info("Task %s is held by %s\n", taskID, result.Lease.Holder)
	printer.Info("  Lease ID:   %s\n", result.Lease.LeaseID)
	printer.Info("  Issued at:  %s\n", result.Lease.IssuedAt.Local().Format(time.RFC3339))
	printer.Info("  Expires at: %s\n", result.Lease.ExpiresAt.Local().Format(time.RFC3339))
	return nil
}
