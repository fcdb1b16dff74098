// Package graph decides task readiness from declarative trigger
// configurations and maps between the two historical task addressing schemes.
package graph

import (
	"github.com/taskdeck/taskdeck/pkg/domain/task"
)

// AddressScheme tags how a dependency list identifies tasks. It is produced
// once by DetectScheme at the boundary so downstream logic operates on a
// single unambiguous representation instead of re-testing the scheme.
type AddressScheme string

const (
	// SchemeProjectSequence addresses tasks by their durable per-project
	// sequence number. This is the current scheme and the only one that
	// survives export/import.
	SchemeProjectSequence AddressScheme = "project_sequence"

	// SchemeGlobal addresses tasks by their database-lifetime identifier.
	// Supported only for legacy records created before sequences existed.
	SchemeGlobal AddressScheme = "global"
)

// DetectScheme decides which addressing scheme a dependency list uses, given
// every task in the project.
//
// If every id matches a project sequence in the project, the scheme is
// SchemeProjectSequence. If zero or only a strict subset match, the list is
// legacy and the scheme is SchemeGlobal. An empty list is vacuously
// sequence-addressed so call sites do not special-case it.
func DetectScheme(tasks []*task.Task, taskIDs []int64) AddressScheme {
	if len(taskIDs) == 0 {
		return SchemeProjectSequence
	}

	sequences := make(map[int64]struct{}, len(tasks))
	for _, t := range tasks {
		sequences[t.ProjectSequence] = struct{}{}
	}

	for _, id := range taskIDs {
		if _, ok := sequences[id]; !ok {
			return SchemeGlobal
		}
	}
	return SchemeProjectSequence
}

// ToGlobalIDs maps project sequence numbers to the matching global
// identifiers, silently dropping sequences with no match. The output may be
// shorter than the input; callers must not assume length parity. Matched
// entries keep their input order. Empty input short-circuits without
// touching the task list.
func ToGlobalIDs(tasks []*task.Task, sequences []int64) []int64 {
	if len(sequences) == 0 {
		return []int64{}
	}

	bySequence := make(map[int64]*task.Task, len(tasks))
	for _, t := range tasks {
		bySequence[t.ProjectSequence] = t
	}

	out := make([]int64, 0, len(sequences))
	for _, seq := range sequences {
		t, ok := bySequence[seq]
		if !ok || t.GlobalID == 0 {
			continue
		}
		out = append(out, t.GlobalID)
	}
	return out
}

// resolveByScheme maps each dependency id to a task under the given scheme.
// Ids that resolve to no task are returned in missing.
func resolveByScheme(tasks []*task.Task, taskIDs []int64, scheme AddressScheme) (resolved []*task.Task, missing []int64) {
	index := make(map[int64]*task.Task, len(tasks))
	for _, t := range tasks {
		switch scheme {
		case SchemeGlobal:
			if t.GlobalID != 0 {
				index[t.GlobalID] = t
			}
		default:
			index[t.ProjectSequence] = t
		}
	}

	for _, id := range taskIDs {
		if t, ok := index[id]; ok {
			resolved = append(resolved, t)
		} else {
			missing = append(missing, id)
		}
	}
	return resolved, missing
}
