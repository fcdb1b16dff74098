package cli

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/pkg/domain/workflow"
)

var runVerbose bool

var runCmd = &cobra.Command{
	Use:   "run <project-id>",
	Short: "Execute a project's task graph from the beginning",
	Long: `Execute a project's task graph from the beginning.

Tasks whose dependencies are satisfied run concurrently within a stage;
a checkpoint is persisted after every stage, so an interrupted run can be
picked up again with 'taskdeck resume'. Ctrl-C cancels at the next stage
boundary.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices(runVerbose)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		exec, err := services.orchestrator.Start(ctx, args[0])
		if exec != nil {
			printExecution(exec)
		}
		if err != nil {
			var stuck *workflow.StuckGraphError
			if errors.As(err, &stuck) {
				return fmt.Errorf("workflow stuck: tasks %v cannot become ready", stuck.Blocked)
			}
			return err
		}
		return nil
	},
}

func printExecution(exec *workflow.Execution) {
	fmt.Printf("Execution %s (%s)\n", exec.ID, exec.Status)
	fmt.Printf("  stages:    %d/%d\n", exec.CurrentStage, exec.TotalStages)
	fmt.Printf("  completed: %d tasks\n", exec.CompletedTasks)
	if exec.FailedTasks > 0 {
		fmt.Printf("  failed:    %d tasks\n", exec.FailedTasks)
	}
	if exec.LastError != "" {
		fmt.Printf("  last error: %s\n", exec.LastError)
	}
}

func init() {
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Log stage progress to stderr")
	RootCmd.AddCommand(runCmd)
}
