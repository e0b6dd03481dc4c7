package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dyluth/warren/internal/config"
	"github.com/dyluth/warren/internal/printer"
)

var initInstanceName string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter warren.yml in the current directory",
	Long: `Create a starter warren.yml configuration file.

The instance name defaults to the current directory name and namespaces
every Redis key, so multiple projects can share one Redis server.

Examples:
  # Initialize with inferred instance name
  warren init

  # Initialize with explicit instance name
  warren init --name my-project`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initInstanceName, "name", "n", "", "Instance name (defaults to current directory name)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil {
		return printer.Error(
			fmt.Sprintf("%s already exists", configPath),
			"Refusing to overwrite an existing configuration.",
			[]string{"Edit the existing file, or remove it first if you really want a fresh start."},
		)
	}

	name := initInstanceName
	if name == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to determine current directory: %w", err)
		}
		name = filepath.Base(cwd)
	}

	cfg := config.Default(name)
	if err := cfg.Save(configPath); err != nil {
		return err
	}

	printer.Success("Created %s for instance '%s'\n", configPath, name)
	printer.Info("\nNext steps:\n")
	printer.Info("  • Start Redis (redis.url: %s)\n", cfg.Redis.URL)
	printer.Info("  • Optionally start the lease coordinator at %s\n", cfg.Coordinator.URL)
	printer.Info("  • Add your first task: warren add --title \"...\"\n")

	return nil
}
