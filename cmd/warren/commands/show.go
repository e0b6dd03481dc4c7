package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/dyluth/warren/internal/board"
)

var showCmd = &cobra.Command{
	Use:   "show TASK_ID",
	Short: "Show full details of one task",
	Long: `Show complete details of a single task as pretty-printed JSON.

TASK_ID may be a full ID or a unique prefix of at least 6 characters.

Examples:
  warren show a1b2c3d4-e5f6-7890-abcd-ef1234567890
  warren show a1b2c3`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
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

	return board.GetTask(ctx, client, taskID, os.Stdout)
}
