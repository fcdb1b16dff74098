package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/taskdeck/taskdeck/pkg/domain/macro"
	"github.com/taskdeck/taskdeck/pkg/domain/runner"
	"github.com/taskdeck/taskdeck/pkg/domain/task"
)

// RetryPolicy configures retry/backoff for transient execution failures.
// Rate-limit and validation failures never retry regardless of MaxRetries.
type RetryPolicy struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultRetryPolicy returns sensible retry defaults for provider calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        3,
		InitialDelay:      2 * time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Delay computes the backoff before retrying after the given zero-based
// attempt: min(MaxDelay, InitialDelay * BackoffMultiplier^attempt).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	multiplier := p.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	d := time.Duration(float64(p.InitialDelay) * math.Pow(multiplier, float64(attempt)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// TaskExecutor runs one task: it materializes the final instruction through
// the macro resolver, delegates execution to the external capability, and
// applies the retry policy with failure classification.
type TaskExecutor struct {
	tasks    task.Repository
	projects task.ProjectRepository
	macros   *macro.Resolver
	runner   runner.Runner
	policy   RetryPolicy
	logger   *zap.Logger
}

// NewTaskExecutor creates an executor. A nil logger is replaced with a no-op.
func NewTaskExecutor(tasks task.Repository, projects task.ProjectRepository, macros *macro.Resolver, r runner.Runner, policy RetryPolicy, logger *zap.Logger) *TaskExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if macros == nil {
		macros = macro.NewResolver()
	}
	return &TaskExecutor{
		tasks:    tasks,
		projects: projects,
		macros:   macros,
		runner:   r,
		policy:   policy,
		logger:   logger,
	}
}

// Execute runs the task with the given project sequence.
//
// Before running, the instruction text is materialized; any unresolved token
// blocks the task instead of executing it. Failures classify three ways:
// rate-limit and validation errors fail immediately with zero retries, while
// transient errors retry up to MaxRetries times with exponential backoff,
// each attempt re-invoking the capability with the same materialized
// instruction. The stored RetryCount records attempts beyond the first.
func (x *TaskExecutor) Execute(ctx context.Context, projectID string, sequence int64) (*task.ExecutionResult, error) {
	t, err := x.tasks.GetTask(ctx, projectID, sequence)
	if err != nil {
		return nil, err
	}

	if t.Trigger != nil {
		if err := t.Trigger.Validate(); err != nil {
			// Configuration errors block the task permanently until the
			// config is corrected.
			if serr := x.tasks.UpdateTaskStatus(ctx, projectID, sequence, task.StatusBlocked); serr != nil {
				return nil, serr
			}
			return nil, err
		}
	}

	all, err := x.tasks.GetTasksInProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var project *task.Project
	if x.projects != nil {
		project, err = x.projects.GetProject(ctx, projectID)
		if err != nil && !errors.Is(err, task.ErrProjectNotFound) {
			return nil, err
		}
	}

	resolution := x.macros.Resolve(t, all, project)
	if !resolution.IsComplete() {
		return nil, &UnresolvedReferencesError{
			ProjectID: projectID,
			Sequence:  sequence,
			Tokens:    resolution.Unresolved,
		}
	}

	if err := x.tasks.UpdateTaskStatus(ctx, projectID, sequence, task.StatusInProgress); err != nil {
		return nil, err
	}

	result, retryCount, execErr := x.attempt(ctx, t, resolution.Text)
	if execErr != nil {
		lastError := fmt.Sprintf("%s: %s", runner.Classify(execErr), execErr)
		if serr := x.tasks.UpdateTaskResult(ctx, projectID, sequence, nil, task.StatusFailed, retryCount, lastError); serr != nil {
			return nil, serr
		}
		return nil, execErr
	}

	if err := x.tasks.UpdateTaskResult(ctx, projectID, sequence, result, task.StatusDone, retryCount, ""); err != nil {
		return nil, err
	}
	return result, nil
}

// attempt drives the per-attempt state machine: each attempt goes
// pending -> running -> succeeded or failed, and the backoff between
// transient failures is a suspension point that must not block other
// concurrently running tasks, so it waits on a timer against the context.
func (x *TaskExecutor) attempt(ctx context.Context, t *task.Task, instruction string) (*task.ExecutionResult, int, error) {
	var lastErr error

	for attempt := 0; ; attempt++ {
		res, err := x.runner.Execute(ctx, runner.Request{Instruction: instruction})
		if err == nil {
			return task.NewTextResult(res.Content), attempt, nil
		}
		lastErr = err

		switch {
		case runner.IsRateLimit(err):
			// Retrying a rate-limited call is counter-productive; surface it
			// distinctly so the UI can say more than "failed".
			x.logger.Warn("task rate limited",
				zap.Int64("sequence", t.ProjectSequence),
				zap.Error(err))
			return nil, attempt, err

		case runner.IsValidation(err):
			return nil, attempt, err

		case runner.IsTransient(err):
			if attempt >= x.policy.MaxRetries {
				return nil, attempt, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt+1, lastErr)
			}
			delay := x.policy.Delay(attempt)
			x.logger.Info("retrying task after transient failure",
				zap.Int64("sequence", t.ProjectSequence),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(err))

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, attempt, ctx.Err()
			case <-timer.C:
			}

		default:
			return nil, attempt, err
		}
	}
}
