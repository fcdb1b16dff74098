package task

import "context"

// Repository is the key-addressed persistence accessor for tasks. The core
// treats it as a synchronous store; reads return the latest committed write.
type Repository interface {
	// GetTask returns the task with the given project sequence, or
	// ErrTaskNotFound.
	GetTask(ctx context.Context, projectID string, sequence int64) (*Task, error)

	// GetTasksInProject returns every task of a project.
	GetTasksInProject(ctx context.Context, projectID string) ([]*Task, error)

	// SaveTask inserts or replaces a task keyed by (projectID, sequence).
	SaveTask(ctx context.Context, t *Task) error

	// UpdateTaskStatus transitions a task's status atomically with respect to
	// concurrent readers evaluating other tasks' readiness.
	UpdateTaskStatus(ctx context.Context, projectID string, sequence int64, status TaskStatus) error

	// UpdateTaskResult stores the execution result, retry count, final status
	// and last error of a completed attempt in one write. A successful attempt
	// passes an empty lastError, clearing any earlier failure.
	UpdateTaskResult(ctx context.Context, projectID string, sequence int64, result *ExecutionResult, status TaskStatus, retryCount int, lastError string) error
}

// ProjectRepository is the read-only project metadata accessor consumed by
// {{project.*}} macros.
type ProjectRepository interface {
	// GetProject returns the project, or ErrProjectNotFound.
	GetProject(ctx context.Context, projectID string) (*Project, error)

	// SaveProject inserts or replaces a project.
	SaveProject(ctx context.Context, p *Project) error
}
