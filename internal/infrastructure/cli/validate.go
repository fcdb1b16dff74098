package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/pkg/domain/graph"
)

var validateCmd = &cobra.Command{
	Use:   "validate <project-id>",
	Short: "Check a project's dependency graph for cycles and bad triggers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices(false)
		if err != nil {
			return err
		}

		tasks, err := services.repo.GetTasksInProject(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := graph.Validate(tasks); err != nil {
			return fmt.Errorf("dependency graph is invalid: %w", err)
		}

		fmt.Printf("Project %s: %d tasks, dependency graph is valid\n", args[0], len(tasks))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(validateCmd)
}
