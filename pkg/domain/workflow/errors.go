package workflow

import (
	"errors"
	"fmt"
)

// Domain errors for workflow runs.
var (
	// ErrExecutionNotFound indicates no run matches the given id.
	ErrExecutionNotFound = errors.New("workflow execution not found")

	// ErrNoCheckpoint indicates a resume was requested with no checkpoint on
	// record.
	ErrNoCheckpoint = errors.New("no checkpoint found for execution")

	// ErrStuckGraph indicates a stage produced no ready tasks while
	// unterminated tasks remain: an unsatisfiable dependency, a cycle, or
	// every remaining task blocked. Never treated as completion.
	ErrStuckGraph = errors.New("workflow graph is stuck")

	// ErrNotResumable indicates the run is in a state that cannot resume.
	ErrNotResumable = errors.New("execution is not resumable")
)

// StuckGraphError describes the blocking set of a stuck graph.
type StuckGraphError struct {
	ExecutionID string
	// Blocked lists the sequence numbers of unterminated tasks that can
	// never become ready.
	Blocked []int64
}

func (e *StuckGraphError) Error() string {
	return fmt.Sprintf("workflow graph is stuck: no ready tasks while %v remain unterminated", e.Blocked)
}

// Is allows errors.Is to work with StuckGraphError.
func (e *StuckGraphError) Is(target error) bool {
	return target == ErrStuckGraph
}
