package application

import (
	"errors"
	"fmt"
	"strings"
)

// Application-level errors for task execution.
var (
	// ErrUnresolvedReferences indicates macro tokens referencing tasks that
	// do not exist or have not completed. Not a failure: the task is
	// reported blocked rather than executed.
	ErrUnresolvedReferences = errors.New("instruction has unresolved references")

	// ErrRetriesExhausted indicates a transient failure survived every
	// configured retry.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// UnresolvedReferencesError lists the macro tokens left literal after
// resolution, so callers can report which upstream work is missing without
// scanning the instruction text.
type UnresolvedReferencesError struct {
	ProjectID string
	Sequence  int64
	Tokens    []string
}

func (e *UnresolvedReferencesError) Error() string {
	return fmt.Sprintf("task #%d is not runnable: unresolved references %s",
		e.Sequence, strings.Join(e.Tokens, ", "))
}

// Is allows errors.Is to work with UnresolvedReferencesError.
func (e *UnresolvedReferencesError) Is(target error) bool {
	return target == ErrUnresolvedReferences
}
