package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/warren/internal/coordclient"
	"github.com/dyluth/warren/internal/printer"
	"github.com/dyluth/warren/pkg/taskboard"
)

var (
	claimAgent string
	claimTTL   time.Duration
	claimForce bool
)

var claimCmd = &cobra.Command{
	Use:   "claim TASK_ID",
	Short: "Claim exclusive ownership of a task",
	Long: `Claim an exclusive lease on a task through the coordinator.

On success the lease ID is printed; keep it, release and extend require
it. If another agent holds a live lease the claim is refused and the
holder is shown. --force revokes any live lease first (administrative
override).

If the coordinator is unreachable the claim falls back to writing the
owner field directly on the task store. The result is marked degraded:
exclusivity is then best-effort only.

Examples:
  warren claim a1b2c3 --agent agent-x
  warren claim a1b2c3 --agent agent-x --ttl 10m
  warren claim a1b2c3 --agent admin --force`,
	Args: cobra.ExactArgs(1),
	RunE: runClaim,
}

func init() {
	claimCmd.Flags().StringVarP(&claimAgent, "agent", "a", "", "Claiming agent identifier (required)")
	claimCmd.Flags().DurationVar(&claimTTL, "ttl", 0, "Lease duration (defaults to coordinator.default_ttl_seconds)")
	claimCmd.Flags().BoolVar(&claimForce, "force", false, "Revoke any live lease first")
	claimCmd.MarkFlagRequired("agent")
	rootCmd.AddCommand(claimCmd)
}

func runClaim(cmd *cobra.Command, args []string) error {
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

	ttl := claimTTL
	if ttl == 0 {
		ttl = cfg.DefaultTTL()
	}

	coord := newCoordClient(cfg, client)

	var result *coordclient.ClaimResult
	if claimForce {
		result, err = coord.ForceClaim(ctx, taskID, claimAgent, ttl)
	} else {
		result, err = coord.Claim(ctx, taskID, claimAgent, ttl)
	}
	if err != nil {
		return fmt.Errorf("claim failed: %w", err)
	}

	if result.Conflict != nil {
		context := map[string]string{"Held by": result.Conflict.CurrentHolder}
		if !result.Conflict.ExpiresAt.IsZero() {
			context["Lease expires"] = result.Conflict.ExpiresAt.Local().Format(time.RFC3339)
		}
		return printer.ErrorWithContext(
			fmt.Sprintf("task %s is already claimed", taskID),
			"Another agent holds a live lease on this task.",
			context,
			[]string{
				"Wait for the lease to expire or be released",
				fmt.Sprintf("Or take it over:\n  warren claim %s --agent %s --force", args[0], claimAgent),
			},
		)
	}

	if result.Degraded {
		printer.Degraded("claim")
	} else {
		// The coordinator granted the lease; record ownership on the board
		// so the task drops out of ready work. The degraded path already
		// wrote the owner field directly.
		if err := client.UpdateTask(ctx, taskID, taskboard.TaskUpdate{Owner: &claimAgent}); err != nil {
			if _, releaseErr := coord.Release(ctx, taskID, result.LeaseID); releaseErr != nil {
				printer.Warning("failed to release lease after store error: %v\n", releaseErr)
			}
			return fmt.Errorf("failed to record ownership on the task: %w", err)
		}
	}

	printer.Success("Claimed %s for %s\n", taskID, claimAgent)
	printer.Info("  Lease ID:   %s\n", result.LeaseID)
	printer.Info("  Expires at: %s\n", result.ExpiresAt.Local().Format(time.RFC3339))

	return nil
}
