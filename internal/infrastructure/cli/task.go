package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/pkg/domain/graph"
	"github.com/taskdeck/taskdeck/pkg/domain/task"
)

var (
	taskDeps        []int64
	taskOperator    string
	taskExpression  string
	taskPolicy      string
	taskTriggerJSON string
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks within a project",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <project-id> <title> [instructions]",
	Short: "Add a task to a project",
	Long: `Add a task to a project.

Instructions may contain macros like {{prev}}, {{task.3.output}} or
{{project.name}}; they are expanded when the task executes. Dependencies
refer to other tasks by their project sequence number.

Examples:
  taskdeck task add demo "Outline" "Write an outline for {{project.name}}"
  taskdeck task add demo "Draft" "Expand this outline: {{prev}}" --deps 1
  taskdeck task add demo "Merge" "{{all_results}}" --deps 1,2 --operator all
  taskdeck task add demo "Ship" --trigger '{"depends_on":{"task_ids":[1,2],"operator":"any"}}'`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices(false)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		projectID := args[0]

		project, err := services.repo.GetProject(ctx, projectID)
		if err != nil {
			return err
		}

		instructions := ""
		if len(args) > 2 {
			instructions = args[2]
		}

		now := time.Now().UTC()
		t := &task.Task{
			ProjectID:       projectID,
			ProjectSequence: project.NextSequence,
			GlobalID:        mintGlobalID()(),
			Title:           args[1],
			Instructions:    instructions,
			Status:          task.StatusTodo,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		switch {
		case taskTriggerJSON != "":
			if len(taskDeps) > 0 || taskExpression != "" {
				return fmt.Errorf("--trigger cannot be combined with --deps or --expression")
			}
			cfg, err := task.ParseTriggerConfig([]byte(taskTriggerJSON))
			if err != nil {
				return fmt.Errorf("invalid trigger configuration: %w", err)
			}
			t.Trigger = cfg
		case len(taskDeps) > 0 || taskExpression != "":
			dep := &task.DependsOn{
				TaskIDs:         taskDeps,
				Operator:        task.Operator(taskOperator),
				Expression:      taskExpression,
				ExecutionPolicy: task.ExecutionPolicy(taskPolicy),
			}
			t.Trigger = &task.TriggerConfig{DependsOn: dep}
			if err := t.Trigger.Validate(); err != nil {
				return fmt.Errorf("invalid dependency configuration: %w", err)
			}
		}

		if err := services.repo.SaveTask(ctx, t); err != nil {
			return err
		}
		project.NextSequence++
		project.UpdatedAt = now
		if err := services.repo.SaveProject(ctx, project); err != nil {
			return err
		}

		fmt.Printf("Added task #%d to %s: %s\n", t.ProjectSequence, projectID, t.Title)
		return nil
	},
}

var taskMoveCmd = &cobra.Command{
	Use:   "move <project-id> <sequence> <action>",
	Short: "Move a task through its lifecycle",
	Long: `Move a task through its lifecycle by applying an action such as
start, complete, block, unblock, fail or reopen.

Starting or completing a task requires its dependencies to be satisfied.

Examples:
  taskdeck task move demo 1 start
  taskdeck task move demo 1 complete`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices(false)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		projectID := args[0]

		sequence, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid task sequence %q", args[1])
		}
		event := strings.ToLower(args[2])

		t, err := services.repo.GetTask(ctx, projectID, sequence)
		if err != nil {
			return err
		}
		all, err := services.repo.GetTasksInProject(ctx, projectID)
		if err != nil {
			return err
		}

		guard := func(seq int64, _ string) bool {
			for _, candidate := range all {
				if candidate.ProjectSequence == seq {
					return graph.IsReady(candidate, all)
				}
			}
			return false
		}
		sm, err := task.NewTaskStateMachine(string(t.Status), projectID, sequence, guard)
		if err != nil {
			return err
		}
		if err := sm.Transition(event); err != nil {
			return err
		}

		if err := services.repo.UpdateTaskStatus(ctx, projectID, sequence, sm.CurrentStatus()); err != nil {
			return err
		}
		fmt.Printf("Task #%d is now %s\n", sequence, sm.CurrentStatus().DisplayName())
		return nil
	},
}

func init() {
	taskAddCmd.Flags().Int64SliceVar(&taskDeps, "deps", nil, "Sequence numbers of tasks this task depends on")
	taskAddCmd.Flags().StringVar(&taskOperator, "operator", "all", "Dependency operator: all or any")
	taskAddCmd.Flags().StringVar(&taskExpression, "expression", "", "Boolean dependency expression, e.g. \"1 && (2 || 3)\"")
	taskAddCmd.Flags().StringVar(&taskPolicy, "policy", "", "Execution policy: once or repeat")
	taskAddCmd.Flags().StringVar(&taskTriggerJSON, "trigger", "", "Raw trigger configuration JSON, validated against the trigger schema")
	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskMoveCmd)
	RootCmd.AddCommand(taskCmd)
}
