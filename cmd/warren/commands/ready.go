package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dyluth/warren/internal/board"
	"github.com/dyluth/warren/internal/printer"
	"github.com/dyluth/warren/internal/readiness"
)

var readyOutputFormat string

var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "Show claimable tasks in dispatch order",
	Long: `Show every task that is ready to be claimed, best candidate first.

A task is ready when it is active, not manually blocked, unclaimed, and
every task in its blocked_by chain has completed. Tasks caught in a
dependency cycle are never ready. Ordering is priority first, then
stalest update, with ID as the final tie-break so the order is stable.

Examples:
  # What should an idle agent pick up?
  warren ready

  # Feed a dispatcher
  warren ready --output jsonl | head -1 | jq -r .id`,
	RunE: runReady,
}

func init() {
	readyCmd.Flags().StringVarP(&readyOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	rootCmd.AddCommand(readyCmd)
}

func runReady(cmd *cobra.Command, args []string) error {
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

	ready, err := readiness.New(client).ReadyWork(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve ready work: %w", err)
	}

	switch readyOutputFormat {
	case "default":
		board.FormatReadyTable(os.Stdout, ready, cfg.Instance)
	case "jsonl":
		if err := board.FormatJSONL(os.Stdout, ready); err != nil {
			return err
		}
	default:
		return printer.Error(
			"invalid output format",
			"Unknown format: "+readyOutputFormat,
			[]string{"Valid formats: default, jsonl"},
		)
	}

	return nil
}
