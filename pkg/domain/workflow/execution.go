// Package workflow models one run of a project's task graph: its execution
// plan, stage progress, and the checkpoints that make a run resumable.
package workflow

import (
	"time"

	"github.com/google/uuid"
)

// Stage is one synchronized batch of concurrently-ready tasks within a run.
type Stage struct {
	Index         int     `json:"index" yaml:"index"`
	TaskSequences []int64 `json:"task_sequences" yaml:"task_sequences"`
}

// Execution is one run of a project's graph. Created when a run starts,
// mutated after every stage, terminal once Status reaches completed, failed
// or cancelled.
type Execution struct {
	ID             string            `json:"id" yaml:"id"`
	ProjectID      string            `json:"project_id" yaml:"project_id"`
	Status         Status            `json:"status" yaml:"status"`
	CurrentStage   int               `json:"current_stage" yaml:"current_stage"`
	TotalStages    int               `json:"total_stages" yaml:"total_stages"`
	CompletedTasks int               `json:"completed_tasks" yaml:"completed_tasks"`
	FailedTasks    int               `json:"failed_tasks" yaml:"failed_tasks"`
	Plan           []Stage           `json:"execution_plan,omitempty" yaml:"execution_plan,omitempty"`
	Context        map[string]string `json:"context,omitempty" yaml:"context,omitempty"`
	LastError      string            `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	CreatedAt      time.Time         `json:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" yaml:"updated_at"`
}

// NewExecution creates a pending run for a project.
func NewExecution(projectID string) *Execution {
	now := time.Now()
	return &Execution{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Status:    StatusPending,
		Context:   make(map[string]string),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetContext stores a run-scoped key/value pair.
func (e *Execution) SetContext(key, value string) {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	e.UpdatedAt = time.Now()
}

// Transition advances the run status through the lifecycle machine.
func (e *Execution) Transition(event string) error {
	sm, err := NewRunStateMachine(string(e.Status), e.ID)
	if err != nil {
		return err
	}
	if err := sm.Transition(event); err != nil {
		return err
	}
	e.Status = sm.CurrentStatus()
	e.UpdatedAt = time.Now()
	return nil
}

// Checkpoint is an immutable snapshot of run progress written at each stage
// boundary, owned by exactly one Execution. Used only for resume.
type Checkpoint struct {
	ID               string            `json:"id" yaml:"id"`
	ExecutionID      string            `json:"execution_id" yaml:"execution_id"`
	StageIndex       int               `json:"stage_index" yaml:"stage_index"`
	CompletedTaskIDs []int64           `json:"completed_task_ids" yaml:"completed_task_ids"`
	Context          map[string]string `json:"context,omitempty" yaml:"context,omitempty"`
	CreatedAt        time.Time         `json:"created_at" yaml:"created_at"`
}

// NewCheckpoint snapshots the run after the given stage completed.
func NewCheckpoint(executionID string, stageIndex int, completed []int64, context map[string]string) *Checkpoint {
	ids := make([]int64, len(completed))
	copy(ids, completed)

	ctx := make(map[string]string, len(context))
	for k, v := range context {
		ctx[k] = v
	}

	return &Checkpoint{
		ID:               uuid.New().String(),
		ExecutionID:      executionID,
		StageIndex:       stageIndex,
		CompletedTaskIDs: ids,
		Context:          ctx,
		CreatedAt:        time.Now(),
	}
}

// Contains reports whether the checkpoint already records the task as
// completed; resumed runs never re-execute such tasks.
func (c *Checkpoint) Contains(sequence int64) bool {
	for _, id := range c.CompletedTaskIDs {
		if id == sequence {
			return true
		}
	}
	return false
}
