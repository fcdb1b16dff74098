package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/taskdeck/taskdeck/pkg/domain/task"
	"github.com/taskdeck/taskdeck/pkg/domain/workflow"
)

func newTestRepo(t *testing.T) *FilesystemRepository {
	t.Helper()
	repo := NewFilesystemRepository(t.TempDir())
	if err := repo.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return repo
}

func TestInitialize(t *testing.T) {
	root := t.TempDir()
	repo := NewFilesystemRepository(root)

	if repo.IsInitialized() {
		t.Error("IsInitialized() = true before Initialize")
	}
	if err := repo.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if !repo.IsInitialized() {
		t.Error("IsInitialized() = false after Initialize")
	}
}

func TestResolvePath(t *testing.T) {
	repo := NewFilesystemRepository(t.TempDir())

	tests := []struct {
		name     string
		filename string
		wantErr  bool
	}{
		{"valid filename", TasksFile, false},
		{"empty filename", "", true},
		{"path traversal", "../../etc/passwd", true},
		{"nested path", "sub/tasks.json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := repo.ResolvePath(tt.filename)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolvePath(%q) error = %v, wantErr %v", tt.filename, err, tt.wantErr)
			}
			if err == nil && filepath.Dir(path) != filepath.Join(repo.Root(), TaskdeckDir) {
				t.Errorf("resolved path %q escapes the workspace", path)
			}
		})
	}
}

func TestProjectRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetProject(ctx, "missing")
	if !errors.Is(err, task.ErrProjectNotFound) {
		t.Errorf("GetProject(missing) error = %v, want ErrProjectNotFound", err)
	}

	p := &task.Project{
		ID:            "demo",
		Name:          "Demo",
		Description:   "a demo",
		BaseDevFolder: "/src/demo",
		NextSequence:  3,
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.SaveProject(ctx, p); err != nil {
		t.Fatalf("SaveProject() error = %v", err)
	}

	got, err := repo.GetProject(ctx, "demo")
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if got.Name != "Demo" || got.NextSequence != 3 || got.BaseDevFolder != "/src/demo" {
		t.Errorf("GetProject() = %+v", got)
	}

	// Saving again replaces instead of duplicating.
	p.NextSequence = 4
	if err := repo.SaveProject(ctx, p); err != nil {
		t.Fatalf("SaveProject() update error = %v", err)
	}
	got, _ = repo.GetProject(ctx, "demo")
	if got.NextSequence != 4 {
		t.Errorf("NextSequence = %d after update, want 4", got.NextSequence)
	}
}

func TestTaskRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetTask(ctx, "demo", 1)
	if !errors.Is(err, task.ErrTaskNotFound) {
		t.Errorf("GetTask() error = %v, want ErrTaskNotFound", err)
	}

	tk := &task.Task{
		ProjectID:       "demo",
		ProjectSequence: 1,
		GlobalID:        100,
		Title:           "First",
		Instructions:    "Say {{project.name}}",
		Status:          task.StatusTodo,
		Trigger: &task.TriggerConfig{DependsOn: &task.DependsOn{
			TaskIDs: []int64{}, Operator: task.OperatorAll,
		}},
	}
	if err := repo.SaveTask(ctx, tk); err != nil {
		t.Fatalf("SaveTask() error = %v", err)
	}

	got, err := repo.GetTask(ctx, "demo", 1)
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if got.Title != "First" || got.Status != task.StatusTodo || got.GlobalID != 100 {
		t.Errorf("GetTask() = %+v", got)
	}
	if got.Trigger == nil || got.Trigger.DependsOn == nil {
		t.Error("trigger config lost in round trip")
	}
}

func TestGetTasksInProject_FiltersByProject(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, tk := range []*task.Task{
		{ProjectID: "a", ProjectSequence: 1, Status: task.StatusTodo},
		{ProjectID: "a", ProjectSequence: 2, Status: task.StatusTodo},
		{ProjectID: "b", ProjectSequence: 1, Status: task.StatusTodo},
	} {
		if err := repo.SaveTask(ctx, tk); err != nil {
			t.Fatal(err)
		}
	}

	got, err := repo.GetTasksInProject(ctx, "a")
	if err != nil {
		t.Fatalf("GetTasksInProject() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d tasks, want 2", len(got))
	}

	empty, err := repo.GetTasksInProject(ctx, "nothing")
	if err != nil {
		t.Fatalf("GetTasksInProject(empty) error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("got %d tasks for unknown project", len(empty))
	}
}

func TestUpdateTaskStatus(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.UpdateTaskStatus(ctx, "demo", 1, task.StatusDone); !errors.Is(err, task.ErrTaskNotFound) {
		t.Errorf("UpdateTaskStatus(missing) error = %v", err)
	}

	tk := &task.Task{ProjectID: "demo", ProjectSequence: 1, Status: task.StatusTodo}
	if err := repo.SaveTask(ctx, tk); err != nil {
		t.Fatal(err)
	}
	if err := repo.UpdateTaskStatus(ctx, "demo", 1, task.StatusInProgress); err != nil {
		t.Fatalf("UpdateTaskStatus() error = %v", err)
	}
	got, _ := repo.GetTask(ctx, "demo", 1)
	if got.Status != task.StatusInProgress {
		t.Errorf("Status = %v", got.Status)
	}
}

func TestUpdateTaskResult(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tk := &task.Task{ProjectID: "demo", ProjectSequence: 1, Status: task.StatusInProgress}
	if err := repo.SaveTask(ctx, tk); err != nil {
		t.Fatal(err)
	}

	result := task.NewTextResult("output")
	if err := repo.UpdateTaskResult(ctx, "demo", 1, result, task.StatusDone, 2, ""); err != nil {
		t.Fatalf("UpdateTaskResult() error = %v", err)
	}

	got, _ := repo.GetTask(ctx, "demo", 1)
	if got.Status != task.StatusDone || got.RetryCount != 2 {
		t.Errorf("task = %+v", got)
	}
	if got.Result == nil || got.Result.Text != "output" {
		t.Errorf("Result = %+v", got.Result)
	}

	// A nil result records status, retries and the failure without clearing
	// the stored result.
	if err := repo.UpdateTaskResult(ctx, "demo", 1, nil, task.StatusFailed, 3, "transient: connection reset"); err != nil {
		t.Fatalf("UpdateTaskResult(nil) error = %v", err)
	}
	got, _ = repo.GetTask(ctx, "demo", 1)
	if got.Result == nil || got.Result.Text != "output" {
		t.Error("nil result overwrote the stored result")
	}
	if got.Status != task.StatusFailed || got.RetryCount != 3 {
		t.Errorf("task = %+v", got)
	}
	if got.LastError != "transient: connection reset" {
		t.Errorf("LastError = %q", got.LastError)
	}

	// A later success clears the recorded failure.
	if err := repo.UpdateTaskResult(ctx, "demo", 1, result, task.StatusDone, 0, ""); err != nil {
		t.Fatalf("UpdateTaskResult() error = %v", err)
	}
	got, _ = repo.GetTask(ctx, "demo", 1)
	if got.LastError != "" {
		t.Errorf("LastError = %q after success, want cleared", got.LastError)
	}
}

func TestSaveTask_ResequencesLegacyRowByGlobalID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	legacy := &task.Task{ProjectID: "demo", ProjectSequence: 0, GlobalID: 700, Status: task.StatusTodo}
	if err := repo.SaveTask(ctx, legacy); err != nil {
		t.Fatal(err)
	}

	legacy.ProjectSequence = 1
	if err := repo.SaveTask(ctx, legacy); err != nil {
		t.Fatal(err)
	}

	all, _ := repo.GetTasksInProject(ctx, "demo")
	if len(all) != 1 {
		t.Fatalf("got %d rows, want the legacy row replaced", len(all))
	}
	if all[0].ProjectSequence != 1 {
		t.Errorf("sequence = %d, want 1", all[0].ProjectSequence)
	}
}

func TestExecutionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetExecution(ctx, "missing")
	if !errors.Is(err, workflow.ErrExecutionNotFound) {
		t.Errorf("GetExecution(missing) error = %v", err)
	}

	exec := workflow.NewExecution("demo")
	exec.TotalStages = 2
	exec.Plan = []workflow.Stage{
		{Index: 0, TaskSequences: []int64{1}},
		{Index: 1, TaskSequences: []int64{2}},
	}
	if err := repo.SaveExecution(ctx, exec); err != nil {
		t.Fatalf("SaveExecution() error = %v", err)
	}

	got, err := repo.GetExecution(ctx, exec.ID)
	if err != nil {
		t.Fatalf("GetExecution() error = %v", err)
	}
	if got.ProjectID != "demo" || got.Status != workflow.StatusPending || len(got.Plan) != 2 {
		t.Errorf("GetExecution() = %+v", got)
	}

	// Update in place.
	exec.Status = workflow.StatusRunning
	exec.CurrentStage = 1
	if err := repo.SaveExecution(ctx, exec); err != nil {
		t.Fatal(err)
	}
	list, err := repo.ListExecutions(ctx, "demo")
	if err != nil {
		t.Fatalf("ListExecutions() error = %v", err)
	}
	if len(list) != 1 || list[0].Status != workflow.StatusRunning {
		t.Errorf("ListExecutions() = %+v", list)
	}
}

func TestCheckpointLog(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetLatestCheckpoint(ctx, "none")
	if !errors.Is(err, workflow.ErrNoCheckpoint) {
		t.Errorf("GetLatestCheckpoint(none) error = %v", err)
	}

	first := workflow.NewCheckpoint("exec-1", 0, []int64{1}, map[string]string{"k": "v"})
	second := workflow.NewCheckpoint("exec-1", 1, []int64{1, 2}, nil)
	other := workflow.NewCheckpoint("exec-2", 0, []int64{9}, nil)

	for _, cp := range []*workflow.Checkpoint{first, second, other} {
		if err := repo.SaveCheckpoint(ctx, cp); err != nil {
			t.Fatalf("SaveCheckpoint() error = %v", err)
		}
	}

	latest, err := repo.GetLatestCheckpoint(ctx, "exec-1")
	if err != nil {
		t.Fatalf("GetLatestCheckpoint() error = %v", err)
	}
	if latest.ID != second.ID {
		t.Errorf("latest = %s, want the most recent append %s", latest.ID, second.ID)
	}
	if latest.StageIndex != 1 || !latest.Contains(2) {
		t.Errorf("latest = %+v", latest)
	}

	otherLatest, err := repo.GetLatestCheckpoint(ctx, "exec-2")
	if err != nil {
		t.Fatalf("GetLatestCheckpoint(exec-2) error = %v", err)
	}
	if otherLatest.ID != other.ID {
		t.Errorf("checkpoint logs of distinct executions interleaved: %s", otherLatest.ID)
	}

	if _, err := repo.GetLatestCheckpoint(ctx, "exec-3"); !errors.Is(err, workflow.ErrNoCheckpoint) {
		t.Errorf("GetLatestCheckpoint(exec-3) error = %v", err)
	}
}
