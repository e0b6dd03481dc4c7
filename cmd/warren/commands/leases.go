package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/warren/internal/coordclient"
	"github.com/dyluth/warren/internal/printer"
)

var leasesCmd = &cobra.Command{
	Use:   "leases",
	Short: "List all active leases",
	Long: `List every live lease the coordinator holds, sorted by task ID.

This view requires a reachable coordinator; the task store has no lease
table to fall back on.

Examples:
  warren leases`,
	RunE: runLeases,
}

func init() {
	rootCmd.AddCommand(leasesCmd)
}

func runLeases(cmd *cobra.Command, args []string) error {
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

	leases, err := newCoordClient(cfg, client).Reservations(ctx)
	if err != nil {
		if errors.Is(err, coordclient.ErrUnavailable) {
			return printer.Error(
				"coordinator unreachable",
				fmt.Sprintf("Could not reach the lease coordinator at %s.", cfg.Coordinator.URL),
				[]string{"Start the coordinator service, or check coordinator.url in warren.yml."},
			)
		}
		return fmt.Errorf("failed to list leases: %w", err)
	}

	if len(leases) == 0 {
		printer.Info("No active leases\n")
		return nil
	}

	printer.Printf("%-38s %-16s %-38s %s\n", "TASK", "HOLDER", "LEASE", "EXPIRES IN")
	for _, lease := range leases {
		printer.Printf("%-38s %-16s %-38s %s\n",
			lease.TaskID,
			lease.Holder,
			lease.LeaseID,
			time.Until(lease.ExpiresAt).Round(time.Second),
		)
	}
	printer.Printf("\n%d lease(s)\n", len(leases))

	return nil
}
