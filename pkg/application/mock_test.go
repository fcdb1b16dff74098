package application

import (
	"context"
	"sync"

	"github.com/taskdeck/taskdeck/pkg/domain/runner"
	"github.com/taskdeck/taskdeck/pkg/domain/task"
	"github.com/taskdeck/taskdeck/pkg/domain/workflow"
)

// memoryRepo is an in-memory task.Repository and task.ProjectRepository.
type memoryRepo struct {
	mu       sync.Mutex
	tasks    map[string]map[int64]*task.Task
	projects map[string]*task.Project
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		tasks:    make(map[string]map[int64]*task.Task),
		projects: make(map[string]*task.Project),
	}
}

func (m *memoryRepo) put(t *task.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tasks[t.ProjectID] == nil {
		m.tasks[t.ProjectID] = make(map[int64]*task.Task)
	}
	// Mirror the filesystem store: a matching nonzero global id under another
	// key is the same task being re-sequenced.
	for key, existing := range m.tasks[t.ProjectID] {
		if t.GlobalID != 0 && existing.GlobalID == t.GlobalID && key != t.ProjectSequence {
			delete(m.tasks[t.ProjectID], key)
		}
	}
	m.tasks[t.ProjectID][t.ProjectSequence] = t
}

func (m *memoryRepo) GetTask(ctx context.Context, projectID string, sequence int64) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[projectID][sequence]
	if !ok {
		return nil, task.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memoryRepo) GetTasksInProject(ctx context.Context, projectID string) ([]*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*task.Task, 0, len(m.tasks[projectID]))
	for _, t := range m.tasks[projectID] {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memoryRepo) SaveTask(ctx context.Context, t *task.Task) error {
	m.put(t)
	return nil
}

func (m *memoryRepo) UpdateTaskStatus(ctx context.Context, projectID string, sequence int64, status task.TaskStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[projectID][sequence]
	if !ok {
		return task.ErrTaskNotFound
	}
	t.Status = status
	return nil
}

func (m *memoryRepo) UpdateTaskResult(ctx context.Context, projectID string, sequence int64, result *task.ExecutionResult, status task.TaskStatus, retryCount int, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[projectID][sequence]
	if !ok {
		return task.ErrTaskNotFound
	}
	if result != nil {
		t.Result = result
	}
	t.Status = status
	t.RetryCount = retryCount
	t.LastError = lastError
	return nil
}

func (m *memoryRepo) GetProject(ctx context.Context, projectID string) (*task.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok {
		return nil, task.ErrProjectNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memoryRepo) SaveProject(ctx context.Context, p *task.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
	return nil
}

func (m *memoryRepo) statusOf(projectID string, sequence int64) task.TaskStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[projectID][sequence].Status
}

func (m *memoryRepo) retriesOf(projectID string, sequence int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[projectID][sequence].RetryCount
}

func (m *memoryRepo) lastErrorOf(projectID string, sequence int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[projectID][sequence].LastError
}

// memoryRunRepo is an in-memory workflow.Repository that records checkpoint
// ordering for durability assertions.
type memoryRunRepo struct {
	mu           sync.Mutex
	executions   map[string]*workflow.Execution
	checkpoints  []*workflow.Checkpoint
	saveCheckErr error
}

func newMemoryRunRepo() *memoryRunRepo {
	return &memoryRunRepo{executions: make(map[string]*workflow.Execution)}
}

func (m *memoryRunRepo) SaveExecution(ctx context.Context, e *workflow.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.executions[e.ID] = &cp
	return nil
}

func (m *memoryRunRepo) GetExecution(ctx context.Context, id string) (*workflow.Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.executions[id]
	if !ok {
		return nil, workflow.ErrExecutionNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memoryRunRepo) ListExecutions(ctx context.Context, projectID string) ([]*workflow.Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*workflow.Execution
	for _, e := range m.executions {
		if e.ProjectID == projectID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryRunRepo) SaveCheckpoint(ctx context.Context, c *workflow.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveCheckErr != nil {
		return m.saveCheckErr
	}
	m.checkpoints = append(m.checkpoints, c)
	return nil
}

func (m *memoryRunRepo) GetLatestCheckpoint(ctx context.Context, executionID string) (*workflow.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.checkpoints) - 1; i >= 0; i-- {
		if m.checkpoints[i].ExecutionID == executionID {
			return m.checkpoints[i], nil
		}
	}
	return nil, workflow.ErrNoCheckpoint
}

// scriptedRunner returns canned responses per invocation and counts calls.
type scriptedRunner struct {
	mu      sync.Mutex
	calls   int
	byInstr map[string]error
	script  []error
	content string
}

func newScriptedRunner() *scriptedRunner {
	return &scriptedRunner{content: "ok", byInstr: make(map[string]error)}
}

func (r *scriptedRunner) ID() string { return "scripted" }

func (r *scriptedRunner) Execute(ctx context.Context, req runner.Request) (*runner.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	call := r.calls
	r.calls++

	if err, ok := r.byInstr[req.Instruction]; ok && err != nil {
		return nil, err
	}
	if call < len(r.script) && r.script[call] != nil {
		return nil, r.script[call]
	}
	return &runner.Result{Content: r.content + ": " + req.Instruction}, nil
}

func (r *scriptedRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
