package application

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/taskdeck/taskdeck/pkg/domain/task"
)

// SequenceMigration backfills project sequence numbers onto legacy tasks.
//
// Projects created before the sequence scheme existed address tasks by
// global id only. Backfill assigns sequences in creation order, after the
// highest sequence already present, so existing references stay valid.
type SequenceMigration struct {
	tasks    task.Repository
	projects task.ProjectRepository
	logger   *zap.Logger
}

func NewSequenceMigration(tasks task.Repository, projects task.ProjectRepository, logger *zap.Logger) *SequenceMigration {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SequenceMigration{tasks: tasks, projects: projects, logger: logger}
}

// Backfill assigns a sequence to every task in the project lacking one and
// returns how many tasks were updated.
func (m *SequenceMigration) Backfill(ctx context.Context, projectID string) (int, error) {
	all, err := m.tasks.GetTasksInProject(ctx, projectID)
	if err != nil {
		return 0, err
	}

	var next int64 = 1
	var missing []*task.Task
	for _, t := range all {
		if t.ProjectSequence > 0 {
			if t.ProjectSequence >= next {
				next = t.ProjectSequence + 1
			}
			continue
		}
		missing = append(missing, t)
	}

	sort.Slice(missing, func(i, j int) bool {
		return missing[i].CreatedAt.Before(missing[j].CreatedAt)
	})

	for _, t := range missing {
		t.ProjectSequence = next
		next++
		if err := m.tasks.SaveTask(ctx, t); err != nil {
			return 0, err
		}
		m.logger.Info("assigned project sequence",
			zap.String("project", projectID),
			zap.Int64("global_id", t.GlobalID),
			zap.Int64("sequence", t.ProjectSequence))
	}

	if m.projects != nil && len(missing) > 0 {
		if p, err := m.projects.GetProject(ctx, projectID); err == nil {
			if p.NextSequence < next {
				p.NextSequence = next
				if err := m.projects.SaveProject(ctx, p); err != nil {
					return len(missing), err
				}
			}
		}
	}

	return len(missing), nil
}
