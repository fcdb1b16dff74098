package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/pkg/domain/task"
)

var exportCmd = &cobra.Command{
	Use:   "export <project-id> <file>",
	Short: "Export a project and its tasks to a JSON file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices(false)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		project, err := services.repo.GetProject(ctx, args[0])
		if err != nil {
			return err
		}
		tasks, err := services.repo.GetTasksInProject(ctx, args[0])
		if err != nil {
			return err
		}

		bundle := task.ExportProject(project, tasks, time.Now().UTC())
		data, err := json.MarshalIndent(bundle, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode export: %w", err)
		}
		if err := os.WriteFile(args[1], data, 0600); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}

		fmt.Printf("Exported %s (%d tasks) to %s\n", args[0], len(tasks), args[1])
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file> <project-id>",
	Short: "Import a project export under a new project id",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices(false)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		data, err := os.ReadFile(args[0]) // #nosec G304 -- user-supplied import path
		if err != nil {
			return fmt.Errorf("failed to read export: %w", err)
		}
		var bundle task.ProjectExport
		if err := json.Unmarshal(data, &bundle); err != nil {
			return fmt.Errorf("failed to decode export: %w", err)
		}

		project, tasks := bundle.Import(args[1], mintGlobalID(), time.Now().UTC())
		if err := services.repo.SaveProject(ctx, project); err != nil {
			return err
		}
		for _, t := range tasks {
			if err := services.repo.SaveTask(ctx, t); err != nil {
				return err
			}
		}

		fmt.Printf("Imported %d tasks into %s\n", len(tasks), args[1])
		return nil
	},
}

// mintGlobalID derives fresh global ids from random UUIDs. Collisions across
// a workspace are as unlikely as UUID collisions; sequences remain the
// addressing scheme that matters.
func mintGlobalID() func() int64 {
	return func() int64 {
		id := uuid.New()
		return globalIDFromBytes(id[:8])
	}
}

// globalIDFromBytes folds eight random bytes into a positive int64. The sign
// bit is masked rather than negated: negating math.MinInt64 overflows back to
// itself.
func globalIDFromBytes(b []byte) int64 {
	var n uint64
	for _, by := range b {
		n = n<<8 | uint64(by)
	}
	n &^= 1 << 63
	if n == 0 {
		n = 1
	}
	return int64(n)
}

func init() {
	RootCmd.AddCommand(exportCmd)
	RootCmd.AddCommand(importCmd)
}
