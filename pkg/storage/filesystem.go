// Package storage persists projects, tasks, workflow executions and
// checkpoints as files under a .taskdeck workspace directory. It satisfies
// the persistence accessor the execution core depends on: a synchronous
// key-addressed store whose reads return the latest committed write.
package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"gopkg.in/yaml.v3"

	"github.com/taskdeck/taskdeck/pkg/domain/task"
	"github.com/taskdeck/taskdeck/pkg/domain/workflow"
)

const TaskdeckDir = ".taskdeck"
const ProjectsFile = "projects.yaml"
const TasksFile = "tasks.json"
const ExecutionsFile = "executions.json"
const CheckpointsFile = "checkpoints.jsonl"

// FilesystemRepository implements task.Repository, task.ProjectRepository and
// workflow.Repository on top of flat workspace files. A single RWMutex makes
// one task's status transition atomic with respect to concurrent readers
// evaluating other tasks' readiness.
type FilesystemRepository struct {
	mu          sync.RWMutex
	root        string
	retryConfig retry.Config
}

func NewFilesystemRepository(root string) *FilesystemRepository {
	return &FilesystemRepository{
		root: root,
		retryConfig: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  10 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
}

// Root returns the workspace root directory.
func (r *FilesystemRepository) Root() string {
	return r.root
}

// ResolvePath ensures the path is within the .taskdeck directory and prevents traversal.
func (r *FilesystemRepository) ResolvePath(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename cannot be empty")
	}

	baseDir := filepath.Join(r.root, TaskdeckDir)
	fullPath := filepath.Join(baseDir, filename)
	cleanPath := filepath.Clean(fullPath)

	if !strings.HasPrefix(cleanPath, baseDir) || filepath.Dir(cleanPath) != baseDir {
		return "", fmt.Errorf("invalid file path: %s", filename)
	}

	return cleanPath, nil
}

func (r *FilesystemRepository) Initialize() error {
	path := filepath.Join(r.root, TaskdeckDir)
	// G301: Use 0700 for directories
	if err := os.MkdirAll(path, 0700); err != nil {
		return fmt.Errorf("failed to create .taskdeck directory: %w", err)
	}
	return nil
}

func (r *FilesystemRepository) IsInitialized() bool {
	_, err := os.Stat(filepath.Join(r.root, TaskdeckDir))
	return err == nil
}

// --- projects ---

func (r *FilesystemRepository) GetProject(ctx context.Context, projectID string) (*task.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	projects, err := r.loadProjects(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		if p.ID == projectID {
			return p, nil
		}
	}
	return nil, task.ErrProjectNotFound
}

func (r *FilesystemRepository) SaveProject(ctx context.Context, p *task.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	projects, err := r.loadProjects(ctx)
	if err != nil {
		return err
	}

	replaced := false
	for i, existing := range projects {
		if existing.ID == p.ID {
			projects[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		projects = append(projects, p)
	}
	return r.saveProjects(projects)
}

func (r *FilesystemRepository) loadProjects(ctx context.Context) ([]*task.Project, error) {
	retryer := retry.New[[]*task.Project](r.retryConfig)

	return retryer.Do(ctx, func(ctx context.Context) ([]*task.Project, error) {
		path, err := r.ResolvePath(ProjectsFile)
		if err != nil {
			return nil, err
		}

		// #nosec G304 -- Path is resolved and validated via ResolvePath
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read projects file: %w", err)
		}

		var projects []*task.Project
		if err := yaml.Unmarshal(data, &projects); err != nil {
			return nil, fmt.Errorf("failed to unmarshal projects: %w", err)
		}
		return projects, nil
	})
}

func (r *FilesystemRepository) saveProjects(projects []*task.Project) error {
	path, err := r.ResolvePath(ProjectsFile)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(projects)
	if err != nil {
		return fmt.Errorf("failed to marshal projects: %w", err)
	}

	// G306: Use 0600 for files
	return os.WriteFile(path, data, 0600)
}

// --- tasks ---

func (r *FilesystemRepository) GetTask(ctx context.Context, projectID string, sequence int64) (*task.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks, err := r.loadTasks(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if t.ProjectID == projectID && t.ProjectSequence == sequence {
			return t, nil
		}
	}
	return nil, task.ErrTaskNotFound
}

func (r *FilesystemRepository) GetTasksInProject(ctx context.Context, projectID string) ([]*task.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks, err := r.loadTasks(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*task.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *FilesystemRepository) SaveTask(ctx context.Context, t *task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tasks, err := r.loadTasks(ctx)
	if err != nil {
		return err
	}

	replaced := false
	for i, existing := range tasks {
		if existing.ProjectID != t.ProjectID {
			continue
		}
		// Same sequence is the usual identity; a matching nonzero global id
		// covers legacy rows whose sequence is being assigned by migration.
		if existing.ProjectSequence == t.ProjectSequence ||
			(t.GlobalID != 0 && existing.GlobalID == t.GlobalID) {
			tasks[i] = t
			replaced = true
			break
		}
	}
	if !replaced {
		tasks = append(tasks, t)
	}
	return r.saveTasks(tasks)
}

func (r *FilesystemRepository) UpdateTaskStatus(ctx context.Context, projectID string, sequence int64, status task.TaskStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tasks, err := r.loadTasks(ctx)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.ProjectID == projectID && t.ProjectSequence == sequence {
			t.Status = status
			t.UpdatedAt = time.Now()
			return r.saveTasks(tasks)
		}
	}
	return task.ErrTaskNotFound
}

func (r *FilesystemRepository) UpdateTaskResult(ctx context.Context, projectID string, sequence int64, result *task.ExecutionResult, status task.TaskStatus, retryCount int, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tasks, err := r.loadTasks(ctx)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.ProjectID == projectID && t.ProjectSequence == sequence {
			if result != nil {
				t.Result = result
			}
			t.Status = status
			t.RetryCount = retryCount
			t.LastError = lastError
			t.UpdatedAt = time.Now()
			return r.saveTasks(tasks)
		}
	}
	return task.ErrTaskNotFound
}

func (r *FilesystemRepository) loadTasks(ctx context.Context) ([]*task.Task, error) {
	retryer := retry.New[[]*task.Task](r.retryConfig)

	return retryer.Do(ctx, func(ctx context.Context) ([]*task.Task, error) {
		path, err := r.ResolvePath(TasksFile)
		if err != nil {
			return nil, err
		}

		// #nosec G304 -- Path is resolved and validated via ResolvePath
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read tasks file: %w", err)
		}

		var tasks []*task.Task
		if err := json.Unmarshal(data, &tasks); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tasks: %w", err)
		}
		return tasks, nil
	})
}

func (r *FilesystemRepository) saveTasks(tasks []*task.Task) error {
	path, err := r.ResolvePath(TasksFile)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tasks: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// --- workflow executions ---

func (r *FilesystemRepository) SaveExecution(ctx context.Context, e *workflow.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	execs, err := r.loadExecutions(ctx)
	if err != nil {
		return err
	}

	replaced := false
	for i, existing := range execs {
		if existing.ID == e.ID {
			execs[i] = e
			replaced = true
			break
		}
	}
	if !replaced {
		execs = append(execs, e)
	}

	path, err := r.ResolvePath(ExecutionsFile)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(execs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal executions: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func (r *FilesystemRepository) GetExecution(ctx context.Context, id string) (*workflow.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	execs, err := r.loadExecutions(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range execs {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, workflow.ErrExecutionNotFound
}

func (r *FilesystemRepository) ListExecutions(ctx context.Context, projectID string) ([]*workflow.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	execs, err := r.loadExecutions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*workflow.Execution, 0, len(execs))
	for _, e := range execs {
		if e.ProjectID == projectID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *FilesystemRepository) loadExecutions(ctx context.Context) ([]*workflow.Execution, error) {
	retryer := retry.New[[]*workflow.Execution](r.retryConfig)

	return retryer.Do(ctx, func(ctx context.Context) ([]*workflow.Execution, error) {
		path, err := r.ResolvePath(ExecutionsFile)
		if err != nil {
			return nil, err
		}

		// #nosec G304 -- Path is resolved and validated via ResolvePath
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read executions file: %w", err)
		}

		var execs []*workflow.Execution
		if err := json.Unmarshal(data, &execs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal executions: %w", err)
		}
		return execs, nil
	})
}

// --- checkpoints ---

// SaveCheckpoint appends one checkpoint to the JSON Lines log and syncs it
// to disk before returning. The orchestrator treats the returned nil as the
// durability barrier between stages.
func (r *FilesystemRepository) SaveCheckpoint(ctx context.Context, c *workflow.Checkpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	path, err := r.ResolvePath(CheckpointsFile)
	if err != nil {
		return err
	}

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	// #nosec G304 -- Path is resolved and validated via ResolvePath
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open checkpoints file: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("failed to append checkpoint: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close() //nolint:errcheck // sync error takes precedence
		return fmt.Errorf("failed to sync checkpoints file: %w", err)
	}
	return f.Close()
}

func (r *FilesystemRepository) GetLatestCheckpoint(ctx context.Context, executionID string) (*workflow.Checkpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	path, err := r.ResolvePath(CheckpointsFile)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- Path is resolved and validated via ResolvePath
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, workflow.ErrNoCheckpoint
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoints file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only close

	var latest *workflow.Checkpoint
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var c workflow.Checkpoint
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			return nil, fmt.Errorf("corrupt checkpoint line: %w", err)
		}
		if c.ExecutionID == executionID {
			cp := c
			latest = &cp
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan checkpoints file: %w", err)
	}
	if latest == nil {
		return nil, workflow.ErrNoCheckpoint
	}
	return latest, nil
}
