package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dyluth/warren/internal/printer"
	"github.com/dyluth/warren/pkg/taskboard"
)

var (
	addID        string
	addTitle     string
	addStatus    string
	addPriority  string
	addBlockedBy []string
	addBlocks    []string
	addParent    string
	addRelated   []string
	addBlocked   bool
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a new task on the board",
	Long: `Create a new task on the board.

Tasks start active and unclaimed by default; they surface in 'warren ready'
as soon as every task in --blocked-by is completed.

Examples:
  # Simple task
  warren add --title "Fix login timeout"

  # High priority task blocked on two others
  warren add --title "Ship release" --priority high --blocked-by task-a --blocked-by task-b

  # Parked until manually unblocked
  warren add --title "Waiting on vendor" --blocked`,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addID, "id", "", "Task ID (defaults to a new UUID)")
	addCmd.Flags().StringVarP(&addTitle, "title", "t", "", "Task title (required)")
	addCmd.Flags().StringVar(&addStatus, "status", "active", "Initial status: pending, active, blocked or completed")
	addCmd.Flags().StringVarP(&addPriority, "priority", "p", "medium", "Priority: critical, high, medium or low")
	addCmd.Flags().StringArrayVar(&addBlockedBy, "blocked-by", nil, "Task ID that must complete first (repeatable)")
	addCmd.Flags().StringArrayVar(&addBlocks, "blocks", nil, "Task ID waiting on this task (repeatable, informational)")
	addCmd.Flags().StringVar(&addParent, "parent", "", "Parent task ID")
	addCmd.Flags().StringArrayVar(&addRelated, "related", nil, "Loosely related task ID (repeatable)")
	addCmd.Flags().BoolVar(&addBlocked, "blocked", false, "Park the task with the manual blocked flag")
	addCmd.MarkFlagRequired("title")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
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

	taskID := addID
	if taskID == "" {
		taskID = uuid.New().String()
	}

	task := &taskboard.TaskRecord{
		ID:       taskID,
		Title:    addTitle,
		Status:   taskboard.Status(addStatus),
		Priority: taskboard.Priority(addPriority),
		Blocked:  addBlocked,
		Dependencies: taskboard.Dependencies{
			BlockedBy: addBlockedBy,
			Blocks:    addBlocks,
			Parent:    addParent,
			Related:   addRelated,
		},
	}

	if err := client.CreateTask(ctx, task); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	printer.Success("Task created: %s\n", taskID)
	if len(addBlockedBy) > 0 {
		printer.Info("  Blocked by %d task(s); it becomes ready when they complete.\n", len(addBlockedBy))
	}

	return nil
}
