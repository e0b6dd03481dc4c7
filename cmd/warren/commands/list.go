package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/dyluth/warren/internal/board"
	"github.com/dyluth/warren/internal/filter"
	"github.com/dyluth/warren/internal/printer"
	"github.com/dyluth/warren/internal/timespec"
)

var (
	listOutputFormat string
	listStatus       string
	listOwner        string
	listUnowned      bool
	listPriority     string
	listTitleGlob    string
	listSince        string
	listUntil        string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks on the board",
	Long: `List tasks on the board, optionally filtered.

All filters are ANDed together. Time filters accept Go durations relative
to now ("2h" = two hours ago) or RFC3339 timestamps.

Output Formats:
  default - Human-readable table
  jsonl   - Line-delimited JSON for scripting

Examples:
  # Everything
  warren list

  # Unclaimed active work
  warren list --status active --unowned

  # One agent's tasks touched in the last hour
  warren list --owner agent-x --since 1h

  # Pipe to jq
  warren list --output jsonl | jq -r 'select(.priority=="critical") | .id'`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	listCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status")
	listCmd.Flags().StringVar(&listOwner, "owner", "", "Filter by owner")
	listCmd.Flags().BoolVar(&listUnowned, "unowned", false, "Only unclaimed tasks")
	listCmd.Flags().StringVar(&listPriority, "priority", "", "Filter by priority")
	listCmd.Flags().StringVar(&listTitleGlob, "title", "", "Filter by title glob pattern")
	listCmd.Flags().StringVar(&listSince, "since", "", "Only tasks updated after this time")
	listCmd.Flags().StringVar(&listUntil, "until", "", "Only tasks updated before this time")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var outputFormat board.OutputFormat
	switch listOutputFormat {
	case "default":
		outputFormat = board.OutputFormatDefault
	case "jsonl":
		outputFormat = board.OutputFormatJSONL
	default:
		return printer.Error(
			"invalid output format",
			"Unknown format: "+listOutputFormat,
			[]string{"Valid formats: default, jsonl"},
		)
	}

	sinceMS, untilMS, err := timespec.ParseRange(listSince, listUntil)
	if err != nil {
		return printer.Error("invalid time range", err.Error(), []string{
			"Use a duration like '1h30m' or an RFC3339 timestamp like '2026-08-23T12:00:00Z'.",
		})
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := newTaskClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	criteria := &filter.Criteria{
		Status:           listStatus,
		Owner:            listOwner,
		Unowned:          listUnowned,
		Priority:         listPriority,
		TitleGlob:        listTitleGlob,
		SinceTimestampMs: sinceMS,
		UntilTimestampMs: untilMS,
	}

	return board.ListTasks(ctx, client, cfg.Instance, outputFormat, criteria, os.Stdout)
}
