package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/pkg/application"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "One-off data migrations",
}

var migrateSequencesCmd = &cobra.Command{
	Use:   "sequences <project-id>",
	Short: "Assign project sequence numbers to legacy tasks",
	Long: `Assign project sequence numbers to legacy tasks.

Tasks created before per-project sequences existed carry only a global id.
This command numbers them in creation order, continuing after the highest
sequence already in use.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices(false)
		if err != nil {
			return err
		}
		migration := application.NewSequenceMigration(services.repo, services.repo, services.logger)
		n, err := migration.Backfill(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Assigned sequences to %d tasks in %s\n", n, args[0])
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateSequencesCmd)
	RootCmd.AddCommand(migrateCmd)
}
