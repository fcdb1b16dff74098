package graph

import (
	"sort"

	"github.com/taskdeck/taskdeck/pkg/domain/task"
)

// ResolvedDependencies is the single unambiguous representation of a task's
// dependency set, produced after scheme detection.
type ResolvedDependencies struct {
	// Scheme is the addressing scheme the raw list used.
	Scheme AddressScheme
	// Tasks are the resolved dependency tasks, ascending by sequence number.
	// Index 0 is the oldest; the last index is the most recent, which is what
	// {{prev}} refers to.
	Tasks []*task.Task
	// Missing are ids that resolved to no task under the detected scheme.
	Missing []int64
}

// Done reports whether the dependency with the given sequence number is done.
func (r *ResolvedDependencies) Done(sequence int64) bool {
	for _, t := range r.Tasks {
		if t.ProjectSequence == sequence {
			return t.Status.IsDone()
		}
	}
	return false
}

// ResolveDependencies detects the addressing scheme of a dependency list and
// maps each id to a task. Ids that match a project sequence while the
// detected scheme is global indicate a mixed list and fail with
// ErrMixedScheme; ids matching nothing under either scheme are reported in
// Missing and treated as unresolved (never done). An expression, when
// present, overrides task_ids: its atoms are the dependency set, addressed
// by sequence number.
func ResolveDependencies(t *task.Task, all []*task.Task) (*ResolvedDependencies, error) {
	d := t.DependsOnConfig()
	if d == nil {
		return &ResolvedDependencies{Scheme: SchemeProjectSequence}, nil
	}

	if d.Expression != "" {
		expr, err := ParseExpression(d.Expression)
		if err != nil {
			return nil, err
		}
		atoms := make([]int64, 0, len(expr.Atoms()))
		seen := make(map[int64]struct{})
		for _, atom := range expr.Atoms() {
			if _, ok := seen[atom]; ok {
				continue
			}
			seen[atom] = struct{}{}
			atoms = append(atoms, atom)
		}
		resolved, missing := resolveByScheme(all, atoms, SchemeProjectSequence)
		sort.Slice(resolved, func(i, j int) bool {
			return resolved[i].ProjectSequence < resolved[j].ProjectSequence
		})
		return &ResolvedDependencies{Scheme: SchemeProjectSequence, Tasks: resolved, Missing: missing}, nil
	}

	scheme := DetectScheme(all, d.TaskIDs)
	resolved, missing := resolveByScheme(all, d.TaskIDs, scheme)

	if scheme == SchemeGlobal && len(missing) > 0 {
		// A "missing" global id that matches a sequence number in the same
		// project means the list mixes schemes.
		var seqMatched []int64
		sequences := make(map[int64]struct{}, len(all))
		for _, at := range all {
			sequences[at.ProjectSequence] = struct{}{}
		}
		for _, id := range missing {
			if _, ok := sequences[id]; ok {
				seqMatched = append(seqMatched, id)
			}
		}
		if len(seqMatched) > 0 && len(seqMatched) < len(d.TaskIDs) {
			var globalMatched []int64
			for _, rt := range resolved {
				globalMatched = append(globalMatched, rt.GlobalID)
			}
			return nil, &MixedSchemeError{
				ProjectID:   t.ProjectID,
				SequenceIDs: seqMatched,
				GlobalIDs:   globalMatched,
			}
		}
	}

	sort.Slice(resolved, func(i, j int) bool {
		return resolved[i].ProjectSequence < resolved[j].ProjectSequence
	})

	return &ResolvedDependencies{Scheme: scheme, Tasks: resolved, Missing: missing}, nil
}

// OrderedDependencies returns the dependency set sorted ascending by sequence
// number. This ordering underlies {{prev.N}} macro addressing: {{prev}} is
// the highest-sequence dependency, {{prev.1}} the one before it, and so on.
func OrderedDependencies(t *task.Task, all []*task.Task) ([]*task.Task, error) {
	deps, err := ResolveDependencies(t, all)
	if err != nil {
		return nil, err
	}
	return deps.Tasks, nil
}

// IsReady evaluates a task's trigger configuration against the current
// status of every task in its project.
//
// An expression, when present, overrides operator/task_ids: each atom is
// substituted with the completion truth of the referenced task and the
// expression evaluated, with unknown atoms false. Otherwise the operator
// applies: all requires every referenced task done, any requires at least
// one. A task whose execution policy is once and whose own status is already
// done is never reported ready again. Unresolvable configurations (mixed
// schemes, unparseable expressions) are never ready; Validate reports them
// as configuration errors at graph-build time.
func IsReady(t *task.Task, all []*task.Task) bool {
	d := t.DependsOnConfig()
	if d == nil {
		return !t.Status.IsTerminal()
	}

	if d.ExecutionPolicy != task.PolicyRepeat && t.Status.IsDone() {
		return false
	}
	if t.Status == task.StatusFailed {
		return false
	}

	if d.Expression != "" {
		expr, err := ParseExpression(d.Expression)
		if err != nil {
			return false
		}
		bySequence := make(map[int64]*task.Task, len(all))
		for _, at := range all {
			bySequence[at.ProjectSequence] = at
		}
		return expr.Eval(func(seq int64) bool {
			dep, ok := bySequence[seq]
			return ok && dep.Status.IsDone()
		})
	}

	if len(d.TaskIDs) == 0 {
		return true
	}

	deps, err := ResolveDependencies(t, all)
	if err != nil {
		return false
	}

	switch d.Operator {
	case task.OperatorAny:
		for _, dep := range deps.Tasks {
			if dep.Status.IsDone() {
				return true
			}
		}
		return false
	default:
		// all: every referenced id must resolve and be done.
		if len(deps.Missing) > 0 {
			return false
		}
		for _, dep := range deps.Tasks {
			if !dep.Status.IsDone() {
				return false
			}
		}
		return true
	}
}

// Validate checks a project's graph for configuration errors: malformed
// trigger configs, mixed-scheme dependency lists, unparseable expressions,
// self references and cycles. These are caught at graph-build time instead
// of surfacing as infinite non-progress at runtime.
func Validate(all []*task.Task) error {
	adjacency := make(map[int64][]int64, len(all))

	for _, t := range all {
		if t.Trigger != nil {
			if err := t.Trigger.Validate(); err != nil {
				return err
			}
		}

		edges, err := dependencyEdges(t, all)
		if err != nil {
			return err
		}
		for _, dep := range edges {
			if dep == t.ProjectSequence {
				return &CycleError{ProjectID: t.ProjectID, Sequences: []int64{t.ProjectSequence, t.ProjectSequence}}
			}
		}
		adjacency[t.ProjectSequence] = edges
	}

	return detectCycles(all, adjacency)
}

// dependencyEdges returns the sequence numbers a task depends on, whatever
// the addressing scheme or expression form of its trigger.
func dependencyEdges(t *task.Task, all []*task.Task) ([]int64, error) {
	d := t.DependsOnConfig()
	if d == nil {
		return nil, nil
	}

	if d.Expression != "" {
		expr, err := ParseExpression(d.Expression)
		if err != nil {
			return nil, err
		}
		return expr.Atoms(), nil
	}

	deps, err := ResolveDependencies(t, all)
	if err != nil {
		return nil, err
	}
	edges := make([]int64, 0, len(deps.Tasks))
	for _, dep := range deps.Tasks {
		edges = append(edges, dep.ProjectSequence)
	}
	return edges, nil
}

const (
	colorWhite = iota
	colorGray
	colorBlack
)

// detectCycles runs a coloring DFS over the sequence-numbered adjacency.
func detectCycles(all []*task.Task, adjacency map[int64][]int64) error {
	color := make(map[int64]int, len(adjacency))
	var stack []int64
	var projectID string
	if len(all) > 0 {
		projectID = all[0].ProjectID
	}

	var visit func(seq int64) error
	visit = func(seq int64) error {
		color[seq] = colorGray
		stack = append(stack, seq)

		for _, next := range adjacency[seq] {
			switch color[next] {
			case colorGray:
				// Slice the cycle out of the current path.
				cycle := []int64{next}
				for i := len(stack) - 1; i >= 0; i-- {
					cycle = append(cycle, stack[i])
					if stack[i] == next {
						break
					}
				}
				return &CycleError{ProjectID: projectID, Sequences: cycle}
			case colorWhite:
				if err := visit(next); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[seq] = colorBlack
		return nil
	}

	for seq := range adjacency {
		if color[seq] == colorWhite {
			if err := visit(seq); err != nil {
				return err
			}
		}
	}
	return nil
}
