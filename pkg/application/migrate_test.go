package application

import (
	"context"
	"testing"
	"time"

	"github.com/taskdeck/taskdeck/pkg/domain/task"
)

func legacyTask(global int64, created time.Time) *task.Task {
	return &task.Task{
		ProjectID: "p",
		GlobalID:  global,
		Status:    task.StatusTodo,
		CreatedAt: created,
	}
}

func TestBackfill_AssignsSequencesInCreationOrder(t *testing.T) {
	repo := newMemoryRepo()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// memoryRepo keys tasks by sequence, so seed legacy rows directly.
	repo.tasks["p"] = map[int64]*task.Task{
		-1: legacyTask(300, base.Add(2 * time.Hour)),
		-2: legacyTask(100, base),
		-3: legacyTask(200, base.Add(time.Hour)),
	}
	repo.projects["p"] = &task.Project{ID: "p", NextSequence: 1}

	n, err := NewSequenceMigration(repo, repo, nil).Backfill(context.Background(), "p")
	if err != nil {
		t.Fatalf("Backfill() error = %v", err)
	}
	if n != 3 {
		t.Errorf("migrated %d tasks, want 3", n)
	}

	// Oldest task gets the lowest sequence.
	wantByGlobal := map[int64]int64{100: 1, 200: 2, 300: 3}
	all, _ := repo.GetTasksInProject(context.Background(), "p")
	for _, tk := range all {
		if tk.ProjectSequence <= 0 {
			continue // the unmutated legacy seeds
		}
		if want := wantByGlobal[tk.GlobalID]; tk.ProjectSequence != want {
			t.Errorf("global %d sequence = %d, want %d", tk.GlobalID, tk.ProjectSequence, want)
		}
	}

	p, _ := repo.GetProject(context.Background(), "p")
	if p.NextSequence != 4 {
		t.Errorf("NextSequence = %d, want 4", p.NextSequence)
	}
}

func TestBackfill_ContinuesAfterExistingSequences(t *testing.T) {
	repo := newMemoryRepo()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	repo.put(&task.Task{ProjectID: "p", ProjectSequence: 5, GlobalID: 500, Status: task.StatusDone})
	repo.tasks["p"][-1] = legacyTask(600, base)
	repo.projects["p"] = &task.Project{ID: "p", NextSequence: 6}

	n, err := NewSequenceMigration(repo, repo, nil).Backfill(context.Background(), "p")
	if err != nil {
		t.Fatalf("Backfill() error = %v", err)
	}
	if n != 1 {
		t.Errorf("migrated %d tasks, want 1", n)
	}

	all, _ := repo.GetTasksInProject(context.Background(), "p")
	found := false
	for _, tk := range all {
		if tk.GlobalID == 600 && tk.ProjectSequence == 6 {
			found = true
		}
	}
	if !found {
		t.Error("legacy task was not assigned sequence 6")
	}
}

func TestBackfill_NoLegacyTasksIsANoOp(t *testing.T) {
	repo := newMemoryRepo()
	repo.put(&task.Task{ProjectID: "p", ProjectSequence: 1, Status: task.StatusDone})
	repo.projects["p"] = &task.Project{ID: "p", NextSequence: 2}

	n, err := NewSequenceMigration(repo, repo, nil).Backfill(context.Background(), "p")
	if err != nil {
		t.Fatalf("Backfill() error = %v", err)
	}
	if n != 0 {
		t.Errorf("migrated %d tasks, want 0", n)
	}
	p, _ := repo.GetProject(context.Background(), "p")
	if p.NextSequence != 2 {
		t.Errorf("NextSequence mutated to %d", p.NextSequence)
	}
}
