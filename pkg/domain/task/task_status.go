package task

import (
	"encoding/json"
	"fmt"
)

// TaskStatus is the lifecycle status of a task on the board.
type TaskStatus string

const (
	StatusTodo          TaskStatus = "todo"
	StatusInProgress    TaskStatus = "in_progress"
	StatusNeedsApproval TaskStatus = "needs_approval"
	StatusInReview      TaskStatus = "in_review"
	StatusDone          TaskStatus = "done"
	StatusBlocked       TaskStatus = "blocked"
	StatusFailed        TaskStatus = "failed"
)

// validTransitions defines the allowed state transitions and their events.
// Map: currentStatus -> event -> targetStatus
var validTransitions = map[TaskStatus]map[string]TaskStatus{
	StatusTodo: {
		"start": StatusInProgress,
		"block": StatusBlocked,
	},
	StatusInProgress: {
		"submit":   StatusNeedsApproval,
		"review":   StatusInReview,
		"complete": StatusDone,
		"fail":     StatusFailed,
		"block":    StatusBlocked,
		"stop":     StatusTodo,
	},
	StatusNeedsApproval: {
		"approve": StatusDone,
		"reject":  StatusInProgress,
		"block":   StatusBlocked,
	},
	StatusInReview: {
		"accept": StatusDone,
		"reject": StatusInProgress,
		"block":  StatusBlocked,
	},
	StatusDone: {
		"reopen": StatusTodo,
	},
	StatusBlocked: {
		"unblock": StatusTodo,
	},
	StatusFailed: {
		"reopen": StatusTodo,
		"block":  StatusBlocked,
	},
}

// AllTaskStatuses returns all valid task statuses.
func AllTaskStatuses() []TaskStatus {
	return []TaskStatus{
		StatusTodo,
		StatusInProgress,
		StatusNeedsApproval,
		StatusInReview,
		StatusDone,
		StatusBlocked,
		StatusFailed,
	}
}

// IsValid returns true if the status is a valid task status.
func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusNeedsApproval, StatusInReview,
		StatusDone, StatusBlocked, StatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s TaskStatus) String() string {
	return string(s)
}

// CanTransitionTo returns true if a transition from the current status to the target is allowed.
func (s TaskStatus) CanTransitionTo(target TaskStatus) bool {
	transitions, ok := validTransitions[s]
	if !ok {
		return false
	}

	for _, t := range transitions {
		if t == target {
			return true
		}
	}
	return false
}

// CanTransitionWith returns true if the given event can trigger a transition from this status.
func (s TaskStatus) CanTransitionWith(event string) bool {
	transitions, ok := validTransitions[s]
	if !ok {
		return false
	}

	_, ok = transitions[event]
	return ok
}

// TransitionWith returns the target status for a given event, or an error if not allowed.
func (s TaskStatus) TransitionWith(event string) (TaskStatus, error) {
	transitions, ok := validTransitions[s]
	if !ok {
		return s, fmt.Errorf("no transitions defined for status: %s", s)
	}

	target, ok := transitions[event]
	if !ok {
		return s, fmt.Errorf("event '%s' not allowed from status '%s'", event, s)
	}

	return target, nil
}

// ValidEvents returns all valid events that can be triggered from this status.
func (s TaskStatus) ValidEvents() []string {
	transitions, ok := validTransitions[s]
	if !ok {
		return nil
	}

	var events []string
	for event := range transitions {
		events = append(events, event)
	}
	return events
}

// IsTerminal returns true if the status ends a workflow run for this task.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// IsDone returns true if the task completed successfully.
func (s TaskStatus) IsDone() bool {
	return s == StatusDone
}

// IsBlocked returns true if the task is blocked.
func (s TaskStatus) IsBlocked() bool {
	return s == StatusBlocked
}

// DisplayName returns a human-readable display name for the status.
func (s TaskStatus) DisplayName() string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusNeedsApproval:
		return "Needs Approval"
	case StatusInReview:
		return "In Review"
	case StatusDone:
		return "Done"
	case StatusBlocked:
		return "Blocked"
	case StatusFailed:
		return "Failed"
	default:
		return string(s)
	}
}

// ParseTaskStatus parses a string into a TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid task status: %s", s)
	}
	return status, nil
}

// MarshalJSON implements json.Marshaler interface.
func (s TaskStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (s *TaskStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	// Accept empty string as todo for backward compatibility
	if str == "" {
		*s = StatusTodo
		return nil
	}

	status := TaskStatus(str)
	if !status.IsValid() {
		return fmt.Errorf("invalid task status: %s", str)
	}

	*s = status
	return nil
}
