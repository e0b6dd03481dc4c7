package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dyluth/warren/internal/printer"
	"github.com/dyluth/warren/internal/worker"
)

var workAgentName string

var workCmd = &cobra.Command{
	Use:   "work",
	Short: "Run an agent work loop",
	Long: `Run the work loop for an agent defined in warren.yml: poll for ready
tasks, claim the best one, run the agent's command with the task JSON on
stdin, and mark it completed on a zero exit. The lease is heartbeated
while the command runs and released afterwards either way.

Runs until interrupted with Ctrl+C.

Examples:
  warren work --agent builder`,
	RunE: runWork,
}

func init() {
	workCmd.Flags().StringVarP(&workAgentName, "agent", "a", "", "Agent name from warren.yml (required)")
	workCmd.MarkFlagRequired("agent")
	rootCmd.AddCommand(workCmd)
}

func runWork(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	agent, ok := cfg.Agents[workAgentName]
	if !ok {
		known := make([]string, 0, len(cfg.Agents))
		for name := range cfg.Agents {
			known = append(known, name)
		}
		return printer.ErrorWithContext(
			fmt.Sprintf("agent '%s' not found in configuration", workAgentName),
			"The agent must be defined under 'agents:' in warren.yml.",
			map[string]string{"Known agents": fmt.Sprintf("%v", known)},
			nil,
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := newTaskClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	leaseTTL := cfg.DefaultTTL()
	engineConfig := &worker.Config{
		AgentName:         workAgentName,
		Command:           agent.Command,
		WorkDir:           agent.WorkDir,
		PollInterval:      agent.PollInterval(),
		LeaseTTL:          leaseTTL,
		HeartbeatInterval: agent.HeartbeatInterval(leaseTTL),
		ExecTimeout:       agent.ExecTimeout(),
	}

	printer.Info("Starting agent '%s' (Ctrl+C to stop)...\n", workAgentName)
	return worker.New(engineConfig, client, newCoordClient(cfg, client)).Start(ctx)
}
