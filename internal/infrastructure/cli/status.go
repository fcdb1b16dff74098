package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/pkg/domain/task"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status <project-id>",
	Short: "Show the tasks and executions of a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatusCmd,
}

// statusJSONOutput represents the JSON output format for status
type statusJSONOutput struct {
	Project    string              `json:"project"`
	Tasks      []taskJSONOutput    `json:"tasks"`
	Counts     map[string]int      `json:"counts"`
	Executions []runJSONOutput     `json:"executions,omitempty"`
}

type taskJSONOutput struct {
	Sequence  int64  `json:"sequence"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	Retries   int    `json:"retries,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

type runJSONOutput struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Stage     int    `json:"stage"`
	Stages    int    `json:"total_stages"`
	Completed int    `json:"completed_tasks"`
	Failed    int    `json:"failed_tasks,omitempty"`
}

func runStatusCmd(cmd *cobra.Command, args []string) error {
	services, err := loadServices(false)
	if err != nil {
		return err
	}
	projectID := args[0]
	ctx := cmd.Context()

	tasks, err := services.repo.GetTasksInProject(ctx, projectID)
	if err != nil {
		return err
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].ProjectSequence < tasks[j].ProjectSequence
	})

	execs, err := services.repo.ListExecutions(ctx, projectID)
	if err != nil {
		return err
	}

	counts := map[string]int{}
	for _, t := range tasks {
		counts[string(t.Status)]++
	}

	if statusJSON {
		out := statusJSONOutput{Project: projectID, Counts: counts}
		for _, t := range tasks {
			out.Tasks = append(out.Tasks, taskJSONOutput{
				Sequence:  t.ProjectSequence,
				Title:     t.Title,
				Status:    string(t.Status),
				Retries:   t.RetryCount,
				LastError: t.LastError,
			})
		}
		for _, e := range execs {
			out.Executions = append(out.Executions, runJSONOutput{
				ID:        e.ID,
				Status:    string(e.Status),
				Stage:     e.CurrentStage,
				Stages:    e.TotalStages,
				Completed: e.CompletedTasks,
				Failed:    e.FailedTasks,
			})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("Project %s: %d tasks\n", projectID, len(tasks))
	for _, t := range tasks {
		marker := " "
		switch {
		case t.Status.IsDone():
			marker = "x"
		case t.Status == task.StatusFailed:
			marker = "!"
		case t.Status == task.StatusInProgress:
			marker = ">"
		}
		fmt.Printf("  [%s] #%d %s (%s)\n", marker, t.ProjectSequence, t.Title, t.Status.DisplayName())
		if t.LastError != "" {
			fmt.Printf("      last error: %s\n", t.LastError)
		}
	}
	if len(execs) > 0 {
		fmt.Println("Executions:")
		for _, e := range execs {
			fmt.Printf("  %s  %s  stage %d/%d, %d completed, %d failed\n",
				e.ID, e.Status, e.CurrentStage, e.TotalStages, e.CompletedTasks, e.FailedTasks)
		}
	}
	return nil
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output in JSON format")
	RootCmd.AddCommand(statusCmd)
}
