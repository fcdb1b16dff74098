package workflow

import "context"

// Repository persists workflow executions and their checkpoints. Checkpoint
// writes for stage N must be durable before stage N+1 tasks are dispatched;
// SaveCheckpoint returning nil is the durability barrier the orchestrator
// relies on.
type Repository interface {
	// SaveExecution inserts or replaces a run.
	SaveExecution(ctx context.Context, e *Execution) error

	// GetExecution returns a run by id, or ErrExecutionNotFound.
	GetExecution(ctx context.Context, id string) (*Execution, error)

	// ListExecutions returns every run for a project.
	ListExecutions(ctx context.Context, projectID string) ([]*Execution, error)

	// SaveCheckpoint durably appends a checkpoint.
	SaveCheckpoint(ctx context.Context, c *Checkpoint) error

	// GetLatestCheckpoint returns the newest checkpoint for a run, or
	// ErrNoCheckpoint.
	GetLatestCheckpoint(ctx context.Context, executionID string) (*Checkpoint, error)
}
