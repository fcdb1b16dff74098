package cli

import (
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "taskdeck",
	Version: Version,
	Short:   "A workflow execution core for dependency-driven task graphs",
	Long: `Taskdeck runs projects as dependency graphs of tasks.
It resolves task dependencies, expands instruction macros, and executes
ready tasks stage by stage with durable checkpoints, so an interrupted
run can be resumed without repeating finished work.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().StringVar(&projectPath, "path", "", "Path to the taskdeck workspace (defaults to the current directory)")
}
