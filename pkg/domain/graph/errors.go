package graph

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors for dependency graph resolution.
var (
	// ErrMixedScheme indicates a task_ids list that mixes project sequence
	// numbers with legacy global identifiers. Mixed schemes are not
	// supported and block the task until the configuration is corrected.
	ErrMixedScheme = errors.New("dependency list mixes addressing schemes")

	// ErrSelfDependency indicates a task that lists its own sequence number.
	ErrSelfDependency = errors.New("task depends on itself")

	// ErrCycle indicates a cycle of mutual dependencies.
	ErrCycle = errors.New("dependency cycle detected")

	// ErrBadExpression indicates a dependency expression that cannot be parsed.
	ErrBadExpression = errors.New("invalid dependency expression")
)

// MixedSchemeError reports which identifiers resolved under which scheme.
type MixedSchemeError struct {
	ProjectID   string
	SequenceIDs []int64
	GlobalIDs   []int64
}

func (e *MixedSchemeError) Error() string {
	return fmt.Sprintf("dependency list in project %s mixes addressing schemes: %v resolve as sequences, %v as global ids",
		e.ProjectID, e.SequenceIDs, e.GlobalIDs)
}

// Is allows errors.Is to work with MixedSchemeError.
func (e *MixedSchemeError) Is(target error) bool {
	return target == ErrMixedScheme
}

// CycleError reports the members of a dependency cycle by sequence number.
type CycleError struct {
	ProjectID string
	Sequences []int64
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Sequences))
	for i, s := range e.Sequences {
		parts[i] = fmt.Sprintf("#%d", s)
	}
	return fmt.Sprintf("dependency cycle in project %s: %s", e.ProjectID, strings.Join(parts, " -> "))
}

// Is allows errors.Is to work with CycleError.
func (e *CycleError) Is(target error) bool {
	return target == ErrCycle
}

// ExpressionError reports why a dependency expression failed to parse.
type ExpressionError struct {
	Expression string
	Reason     string
}

func (e *ExpressionError) Error() string {
	return fmt.Sprintf("invalid dependency expression %q: %s", e.Expression, e.Reason)
}

// Is allows errors.Is to work with ExpressionError.
func (e *ExpressionError) Is(target error) bool {
	return target == ErrBadExpression
}
