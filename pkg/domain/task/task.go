package task

import (
	"time"
)

// Operator controls how a dependency set is combined when deciding readiness.
type Operator string

const (
	// OperatorAll requires every referenced task to be done.
	OperatorAll Operator = "all"
	// OperatorAny requires at least one referenced task to be done.
	OperatorAny Operator = "any"
)

// IsValid checks if the operator is a valid combinator.
func (o Operator) IsValid() bool {
	return o == OperatorAll || o == OperatorAny
}

// ExecutionPolicy controls whether a completed task can be re-triggered.
type ExecutionPolicy string

const (
	// PolicyOnce means a task already done is never re-triggered.
	PolicyOnce ExecutionPolicy = "once"
	// PolicyRepeat means dependency completion re-triggers the task.
	PolicyRepeat ExecutionPolicy = "repeat"
)

// IsValid checks if the execution policy is valid. The empty policy defaults to once.
func (p ExecutionPolicy) IsValid() bool {
	return p == "" || p == PolicyOnce || p == PolicyRepeat
}

// DependsOn is the declarative dependency portion of a trigger configuration.
//
// TaskIDs is ambiguous by construction: it contains either project sequence
// numbers (current scheme) or legacy global identifiers (projects created
// before sequences existed). A single list never mixes the two schemes.
type DependsOn struct {
	TaskIDs         []int64         `json:"task_ids" yaml:"task_ids"`
	Operator        Operator        `json:"operator" yaml:"operator"`
	Expression      string          `json:"expression,omitempty" yaml:"expression,omitempty"`
	ExecutionPolicy ExecutionPolicy `json:"execution_policy,omitempty" yaml:"execution_policy,omitempty"`
}

// TriggerConfig is the declarative dependency/condition spec attached to a task.
type TriggerConfig struct {
	DependsOn *DependsOn `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
}

// Task is a node in a project-scoped graph.
//
// Identity is the composite key (ProjectID, ProjectSequence). ProjectSequence
// is a durable per-project counter assigned at creation and never reused; it
// survives export/import. GlobalID is a database-lifetime identifier that is
// re-minted on import and only used to interpret legacy dependency references.
type Task struct {
	ProjectID       string           `json:"project_id" yaml:"project_id"`
	ProjectSequence int64            `json:"project_sequence" yaml:"project_sequence"`
	GlobalID        int64            `json:"global_id,omitempty" yaml:"global_id,omitempty"`
	Title           string           `json:"title" yaml:"title"`
	Instructions    string           `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	Status          TaskStatus       `json:"status" yaml:"status"`
	Trigger         *TriggerConfig   `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	Result          *ExecutionResult `json:"result,omitempty" yaml:"result,omitempty"`
	RetryCount      int              `json:"retry_count,omitempty" yaml:"retry_count,omitempty"`
	LastError       string           `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	CreatedAt       time.Time        `json:"created_at" yaml:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" yaml:"updated_at"`
}

// DependsOnConfig returns the dependency spec, or nil when the task has none.
func (t *Task) DependsOnConfig() *DependsOn {
	if t.Trigger == nil {
		return nil
	}
	return t.Trigger.DependsOn
}

// HasDependencies reports whether the task declares at least one dependency.
func (t *Task) HasDependencies() bool {
	d := t.DependsOnConfig()
	if d == nil {
		return false
	}
	return len(d.TaskIDs) > 0 || d.Expression != ""
}

// Project holds the metadata fields consumed by {{project.*}} macros.
type Project struct {
	ID            string    `json:"id" yaml:"id"`
	Name          string    `json:"name" yaml:"name"`
	Description   string    `json:"description,omitempty" yaml:"description,omitempty"`
	BaseDevFolder string    `json:"base_dev_folder,omitempty" yaml:"base_dev_folder,omitempty"`
	NextSequence  int64     `json:"next_sequence" yaml:"next_sequence"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" yaml:"updated_at"`
}
