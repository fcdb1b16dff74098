package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/taskdeck/taskdeck/pkg/domain/graph"
	"github.com/taskdeck/taskdeck/pkg/domain/task"
	"github.com/taskdeck/taskdeck/pkg/domain/workflow"
)

// runSignal carries the cooperative pause/cancel requests for one in-flight
// run. The orchestrator checks it at stage boundaries only; in-flight
// external calls are not preempted.
type runSignal struct {
	pause  bool
	cancel bool
}

// Orchestrator advances a workflow run stage by stage: it collects the ready
// set, executes it concurrently, persists a checkpoint, and advances. Tasks
// within a stage are independent by construction; stages are strictly
// sequential.
type Orchestrator struct {
	tasks    task.Repository
	runs     workflow.Repository
	executor *TaskExecutor
	logger   *zap.Logger

	poolSize int

	mu      sync.Mutex
	signals map[string]*runSignal
}

// NewOrchestrator creates an orchestrator with a bounded in-stage worker
// pool. A poolSize of zero or less defaults to 4.
func NewOrchestrator(tasks task.Repository, runs workflow.Repository, executor *TaskExecutor, poolSize int, logger *zap.Logger) *Orchestrator {
	if poolSize <= 0 {
		poolSize = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		tasks:    tasks,
		runs:     runs,
		executor: executor,
		logger:   logger,
		poolSize: poolSize,
		signals:  make(map[string]*runSignal),
	}
}

// Start creates a run for the project's graph and advances it until a
// terminal state, a pause, or a stuck graph.
func (o *Orchestrator) Start(ctx context.Context, projectID string) (*workflow.Execution, error) {
	all, err := o.tasks.GetTasksInProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	// Configuration errors (cycles, self references, mixed schemes) are
	// reported at graph-build time, not discovered by non-progress.
	if err := graph.Validate(all); err != nil {
		return nil, err
	}

	exec := workflow.NewExecution(projectID)
	exec.Plan = BuildPlan(all)
	exec.TotalStages = len(exec.Plan)

	if err := exec.Transition("start"); err != nil {
		return nil, err
	}
	if err := o.runs.SaveExecution(ctx, exec); err != nil {
		return nil, err
	}

	o.logger.Info("workflow started",
		zap.String("execution", exec.ID),
		zap.String("project", projectID),
		zap.Int("planned_stages", exec.TotalStages))

	completed := make(map[int64]bool)
	return exec, o.advance(ctx, exec, completed)
}

// Resume reconstructs run progress from the latest checkpoint and resumes
// stage advancement without re-executing completed tasks.
func (o *Orchestrator) Resume(ctx context.Context, executionID string) (*workflow.Execution, error) {
	exec, err := o.runs.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if exec.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: execution %s is %s", workflow.ErrNotResumable, executionID, exec.Status)
	}

	cp, err := o.runs.GetLatestCheckpoint(ctx, executionID)
	if err != nil && !errors.Is(err, workflow.ErrNoCheckpoint) {
		return nil, err
	}

	completed := make(map[int64]bool)
	if cp != nil {
		for _, id := range cp.CompletedTaskIDs {
			completed[id] = true
		}
		exec.CurrentStage = cp.StageIndex + 1
		if exec.Context == nil {
			exec.Context = make(map[string]string)
		}
		for k, v := range cp.Context {
			exec.Context[k] = v
		}
	}

	if exec.Status == workflow.StatusPaused {
		if err := exec.Transition("resume"); err != nil {
			return nil, err
		}
	}
	if err := o.runs.SaveExecution(ctx, exec); err != nil {
		return nil, err
	}

	o.logger.Info("workflow resumed",
		zap.String("execution", exec.ID),
		zap.Int("stage", exec.CurrentStage),
		zap.Int("completed_tasks", len(completed)))

	return exec, o.advance(ctx, exec, completed)
}

// Pause requests a pause at the next stage boundary.
func (o *Orchestrator) Pause(executionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	sig := o.signals[executionID]
	if sig == nil {
		sig = &runSignal{}
		o.signals[executionID] = sig
	}
	sig.pause = true
}

// Cancel requests cancellation. At minimum no new stage starts after the
// request; in-flight calls complete or observe the context on their own.
func (o *Orchestrator) Cancel(executionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	sig := o.signals[executionID]
	if sig == nil {
		sig = &runSignal{}
		o.signals[executionID] = sig
	}
	sig.cancel = true
}

func (o *Orchestrator) takeSignal(executionID string) runSignal {
	o.mu.Lock()
	defer o.mu.Unlock()
	sig := o.signals[executionID]
	if sig == nil {
		return runSignal{}
	}
	taken := *sig
	sig.pause = false
	return taken
}

func (o *Orchestrator) clearSignal(executionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.signals, executionID)
}

// advance drives the stage loop until terminal, paused, or stuck.
func (o *Orchestrator) advance(ctx context.Context, exec *workflow.Execution, completed map[int64]bool) error {
	defer o.clearSignal(exec.ID)

	for {
		// Cooperative checks happen here, at the stage boundary.
		if err := ctx.Err(); err != nil {
			return o.terminate(exec, "cancel", err.Error())
		}
		sig := o.takeSignal(exec.ID)
		if sig.cancel {
			return o.terminate(exec, "cancel", "cancelled by user")
		}
		if sig.pause {
			if err := exec.Transition("pause"); err != nil {
				return err
			}
			o.logger.Info("workflow paused", zap.String("execution", exec.ID))
			return o.runs.SaveExecution(context.Background(), exec)
		}

		all, err := o.tasks.GetTasksInProject(ctx, exec.ProjectID)
		if err != nil {
			return o.terminate(exec, "fail", err.Error())
		}

		ready, remaining := o.readySet(all, completed)
		if len(ready) == 0 {
			if len(remaining) == 0 {
				if err := exec.Transition("complete"); err != nil {
					return err
				}
				o.logger.Info("workflow completed",
					zap.String("execution", exec.ID),
					zap.Int("completed_tasks", exec.CompletedTasks),
					zap.Int("failed_tasks", exec.FailedTasks))
				return o.runs.SaveExecution(ctx, exec)
			}
			stuck := &workflow.StuckGraphError{ExecutionID: exec.ID, Blocked: remaining}
			if err := o.terminate(exec, "fail", stuck.Error()); err != nil {
				return err
			}
			return stuck
		}

		stageCompleted, stageFailed := o.runStage(ctx, exec, ready)
		for _, seq := range stageCompleted {
			completed[seq] = true
		}
		exec.CompletedTasks += len(stageCompleted)
		exec.FailedTasks += len(stageFailed)

		if len(stageCompleted) == 0 && len(stageFailed) == 0 {
			// Every ready task was blocked (unresolved references); no
			// progress is possible.
			stuck := &workflow.StuckGraphError{ExecutionID: exec.ID, Blocked: sequencesOf(ready)}
			if err := o.terminate(exec, "fail", stuck.Error()); err != nil {
				return err
			}
			return stuck
		}

		// Checkpoint must be durable before the next stage dispatches, so a
		// crash never loses more than the in-flight stage.
		cp := workflow.NewCheckpoint(exec.ID, exec.CurrentStage, keysOf(completed), exec.Context)
		if err := o.runs.SaveCheckpoint(ctx, cp); err != nil {
			if terr := o.terminate(exec, "fail", fmt.Sprintf("checkpoint write failed: %v", err)); terr != nil {
				return terr
			}
			return fmt.Errorf("checkpoint write failed: %w", err)
		}

		exec.CurrentStage++
		if exec.CurrentStage > exec.TotalStages {
			exec.TotalStages = exec.CurrentStage
		}
		if err := o.runs.SaveExecution(ctx, exec); err != nil {
			return err
		}
	}
}

// readySet partitions a project's tasks into the ready batch and the
// unterminated remainder.
func (o *Orchestrator) readySet(all []*task.Task, completed map[int64]bool) (ready []*task.Task, remaining []int64) {
	for _, t := range all {
		if completed[t.ProjectSequence] || t.Status.IsTerminal() {
			continue
		}
		if t.Status == task.StatusBlocked {
			remaining = append(remaining, t.ProjectSequence)
			continue
		}
		if graph.IsReady(t, all) {
			ready = append(ready, t)
		} else {
			remaining = append(remaining, t.ProjectSequence)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		return ready[i].ProjectSequence < ready[j].ProjectSequence
	})
	sort.Slice(remaining, func(i, j int) bool { return remaining[i] < remaining[j] })
	return ready, remaining
}

// runStage executes one ready batch concurrently through a bounded pool and
// reports which tasks completed and which failed.
func (o *Orchestrator) runStage(ctx context.Context, exec *workflow.Execution, ready []*task.Task) (completed, failed []int64) {
	type stageResult struct {
		sequence int64
		err      error
	}

	results := make(chan stageResult, len(ready))
	pool := make(chan struct{}, o.poolSize)
	var wg sync.WaitGroup

	o.logger.Info("stage dispatch",
		zap.String("execution", exec.ID),
		zap.Int("stage", exec.CurrentStage),
		zap.Int("tasks", len(ready)))

	for _, t := range ready {
		wg.Add(1)
		go func(t *task.Task) {
			defer wg.Done()
			pool <- struct{}{}
			defer func() { <-pool }()

			_, err := o.executor.Execute(ctx, t.ProjectID, t.ProjectSequence)
			results <- stageResult{sequence: t.ProjectSequence, err: err}
		}(t)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		switch {
		case r.err == nil:
			completed = append(completed, r.sequence)
		case errors.Is(r.err, ErrUnresolvedReferences):
			// Blocked, not failed: the task was not executed at all.
			o.logger.Warn("task blocked on unresolved references",
				zap.String("execution", exec.ID),
				zap.Int64("sequence", r.sequence))
		default:
			o.logger.Error("task failed",
				zap.String("execution", exec.ID),
				zap.Int64("sequence", r.sequence),
				zap.Error(r.err))
			failed = append(failed, r.sequence)
		}
	}

	sort.Slice(completed, func(i, j int) bool { return completed[i] < completed[j] })
	sort.Slice(failed, func(i, j int) bool { return failed[i] < failed[j] })
	return completed, failed
}

// terminate moves the run to a terminal state and records the reason.
func (o *Orchestrator) terminate(exec *workflow.Execution, event, reason string) error {
	if err := exec.Transition(event); err != nil {
		return err
	}
	exec.LastError = reason
	// Terminal state writes use a background context so cancellation does
	// not lose the final status.
	return o.runs.SaveExecution(context.Background(), exec)
}

// BuildPlan simulates graph readiness to produce the ordered stages of
// ready-task batches a fully successful run would take. The runtime loop
// still re-evaluates readiness per stage; the plan drives totalStages and
// progress display.
func BuildPlan(all []*task.Task) []workflow.Stage {
	sim := make([]*task.Task, len(all))
	done := make(map[int64]bool)
	for i, t := range all {
		cp := *t
		sim[i] = &cp
		if cp.Status.IsTerminal() {
			done[cp.ProjectSequence] = true
		}
	}

	var plan []workflow.Stage
	for index := 0; ; index++ {
		var batch []int64
		for _, t := range sim {
			if done[t.ProjectSequence] {
				continue
			}
			if graph.IsReady(t, sim) {
				batch = append(batch, t.ProjectSequence)
			}
		}
		if len(batch) == 0 {
			return plan
		}
		sort.Slice(batch, func(i, j int) bool { return batch[i] < batch[j] })
		plan = append(plan, workflow.Stage{Index: index, TaskSequences: batch})

		for _, seq := range batch {
			done[seq] = true
			for _, t := range sim {
				if t.ProjectSequence == seq {
					t.Status = task.StatusDone
				}
			}
		}
	}
}

func sequencesOf(tasks []*task.Task) []int64 {
	out := make([]int64, len(tasks))
	for i, t := range tasks {
		out[i] = t.ProjectSequence
	}
	return out
}

func keysOf(m map[int64]bool) []int64 {
	out := make([]int64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
