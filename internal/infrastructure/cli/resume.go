package cli

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/pkg/domain/workflow"
)

var resumeVerbose bool

var resumeCmd = &cobra.Command{
	Use:   "resume <execution-id>",
	Short: "Resume an interrupted execution from its latest checkpoint",
	Long: `Resume an interrupted execution from its latest checkpoint.

Tasks recorded as completed in the checkpoint are not executed again;
the run continues at the stage after the checkpointed one.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices(resumeVerbose)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		exec, err := services.orchestrator.Resume(ctx, args[0])
		if exec != nil {
			printExecution(exec)
		}
		if err != nil {
			if errors.Is(err, workflow.ErrNotResumable) {
				return fmt.Errorf("execution %s already finished and cannot be resumed", args[0])
			}
			return err
		}
		return nil
	},
}

func init() {
	resumeCmd.Flags().BoolVarP(&resumeVerbose, "verbose", "v", false, "Log stage progress to stderr")
	RootCmd.AddCommand(resumeCmd)
}
