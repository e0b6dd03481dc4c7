package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dyluth/warren/internal/board"
	"github.com/dyluth/warren/internal/readiness"
)

var summaryCmd = &cobra.Command{
	Use:   "summary TASK_ID",
	Short: "Explain why a task is or is not ready",
	Long: `Show a task's dependency picture: its direct incomplete blockers, the
total count of distinct incomplete tasks in its transitive blocked_by
closure, and whether it sits on a dependency cycle.

Examples:
  warren summary a1b2c3`,
	Args: cobra.ExactArgs(1),
	RunE: runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
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

	summary, err := readiness.New(client).DependencySummary(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to build dependency summary: %w", err)
	}

	board.FormatSummary(os.Stdout, summary)
	return nil
}
