package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/warren/internal/coordinator"
	"github.com/dyluth/warren/internal/printer"
)

var (
	extendLeaseID string
	extendTTL     time.Duration
)

var extendCmd = &cobra.Command{
	Use:   "extend TASK_ID",
	Short: "Push a held lease's expiry forward",
	Long: `Extend a lease while work is still in progress. The new expiry is
computed from now, not stacked on the old expiry, so repeated extends
keep the lease exactly one TTL ahead.

Examples:
  warren extend a1b2c3 --lease 7f3d... --ttl 5m`,
	Args: cobra.ExactArgs(1),
	RunE: runExtend,
}

func init() {
	extendCmd.Flags().StringVarP(&extendLeaseID, "lease", "l", "", "Lease ID from the claim (required)")
	extendCmd.Flags().DurationVar(&extendTTL, "ttl", 0, "Additional lease duration from now (defaults to coordinator.default_ttl_seconds)")
	extendCmd.MarkFlagRequired("lease")
	rootCmd.AddCommand(extendCmd)
}

func runExtend(cmd *cobra.Command, args []string) error {
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

	ttl := extendTTL
	if ttl == 0 {
		ttl = cfg.DefaultTTL()
	}

	result, err := newCoordClient(cfg, client).Extend(ctx, taskID, extendLeaseID, ttl)
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
				fmt.Sprintf("no live lease on task %s", taskID),
				"The lease has expired or was never issued; there is nothing to extend.",
				[]string{fmt.Sprintf("Claim it again:\n  warren claim %s --agent <name>", args[0])},
			)
		}
		return fmt.Errorf("extend failed: %w", err)
	}

	if result.Degraded {
		printer.Degraded("extend")
		printer.Warning("no lease exists in degraded mode; extend was a no-op\n")
		return nil
	}

	printer.Success("Extended lease on %s\n", taskID)
	printer.Info("  New expiry: %s\n", result.ExpiresAt.Local().Format(time.RFC3339))
	return nil
}
