package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string

	// configPath is the warren.yml location, shared by all subcommands
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "warren",
	Short: "Warren - Work readiness and claim coordination for agent fleets",
	Long: `Warren coordinates a fleet of agents working through a shared board of
interdependent tasks.

It resolves which tasks are ready (dependencies complete, not blocked,
unclaimed), detects dependency cycles, and arbitrates exclusive claims
through a lease coordinator with TTL-based expiry. When the coordinator
is unreachable, operations degrade to best-effort direct mutation of the
task store rather than stalling the fleet.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "warren.yml", "Path to warren.yml")
}
