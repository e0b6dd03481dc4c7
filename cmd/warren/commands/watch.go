package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dyluth/warren/internal/printer"
	"github.com/dyluth/warren/internal/watch"
)

var watchOutputFormat string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live task board activity",
	Long: `Stream every task mutation on the board as it happens, one line per
event, until interrupted with Ctrl+C.

Examples:
  warren watch
  warren watch --output jsonl | jq .status`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	var outputFormat watch.OutputFormat
	switch watchOutputFormat {
	case "default":
		outputFormat = watch.OutputFormatDefault
	case "jsonl":
		outputFormat = watch.OutputFormatJSONL
	default:
		return printer.Error(
			"invalid output format",
			"Unknown format: "+watchOutputFormat,
			[]string{"Valid formats: default, jsonl"},
		)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := newTaskClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	printer.Info("Watching instance '%s' (Ctrl+C to stop)...\n", cfg.Instance)
	return watch.StreamActivity(ctx, client, outputFormat, os.Stdout)
}
