package task

import (
	"sort"
	"time"
)

// ProjectExport is a portable snapshot of a project and its tasks.
//
// Dependency references are stored as project sequence numbers, which survive
// the round trip unchanged. Global identifiers are deliberately absent: they
// are re-minted on import, which is exactly why they must never be used as
// the stored dependency addressing scheme.
type ProjectExport struct {
	Name          string    `json:"name" yaml:"name"`
	Description   string    `json:"description,omitempty" yaml:"description,omitempty"`
	BaseDevFolder string    `json:"base_dev_folder,omitempty" yaml:"base_dev_folder,omitempty"`
	ExportedAt    time.Time `json:"exported_at" yaml:"exported_at"`
	Tasks         []*Task   `json:"tasks" yaml:"tasks"`
}

// ExportProject snapshots a project for transfer. Tasks are ordered by
// sequence and stripped of their global identifiers.
func ExportProject(p *Project, tasks []*Task, now time.Time) *ProjectExport {
	exported := make([]*Task, 0, len(tasks))
	for _, t := range tasks {
		cp := *t
		cp.GlobalID = 0
		exported = append(exported, &cp)
	}
	sort.Slice(exported, func(i, j int) bool {
		return exported[i].ProjectSequence < exported[j].ProjectSequence
	})

	return &ProjectExport{
		Name:          p.Name,
		Description:   p.Description,
		BaseDevFolder: p.BaseDevFolder,
		ExportedAt:    now,
		Tasks:         exported,
	}
}

// Import materializes the snapshot into a fresh project. Every task receives
// a new global identifier from mintGlobalID, while project sequences and
// dependency references are preserved byte for byte.
func (e *ProjectExport) Import(projectID string, mintGlobalID func() int64, now time.Time) (*Project, []*Task) {
	var maxSeq int64
	tasks := make([]*Task, 0, len(e.Tasks))
	for _, t := range e.Tasks {
		cp := *t
		cp.ProjectID = projectID
		cp.GlobalID = mintGlobalID()
		cp.CreatedAt = now
		cp.UpdatedAt = now
		if cp.ProjectSequence > maxSeq {
			maxSeq = cp.ProjectSequence
		}
		tasks = append(tasks, &cp)
	}

	p := &Project{
		ID:            projectID,
		Name:          e.Name,
		Description:   e.Description,
		BaseDevFolder: e.BaseDevFolder,
		NextSequence:  maxSeq + 1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return p, tasks
}
