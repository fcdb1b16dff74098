package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/pkg/domain/task"
	"github.com/taskdeck/taskdeck/pkg/storage"
)

var initCmd = &cobra.Command{
	Use:   "init [project-name]",
	Short: "Initialize a new taskdeck workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := getWorkspaceRoot()
		if err != nil {
			return err
		}
		repo := storage.NewFilesystemRepository(root)
		if err := repo.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize workspace: %w", err)
		}

		projectName := "new-project"
		if len(args) > 0 {
			projectName = args[0]
		}

		now := time.Now().UTC()
		project := &task.Project{
			ID:           projectName,
			Name:         projectName,
			NextSequence: 1,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := repo.SaveProject(cmd.Context(), project); err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}

		fmt.Printf("Successfully initialized taskdeck project: %s\n", projectName)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(initCmd)
}
