package workflow

import (
	"encoding/json"
	"fmt"
)

// Status is the lifecycle status of one workflow run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// validTransitions defines the allowed run transitions and their events.
// Running and paused may flip back and forth any number of times before a
// terminal state.
var validTransitions = map[Status]map[string]Status{
	StatusPending: {
		"start":  StatusRunning,
		"cancel": StatusCancelled,
	},
	StatusRunning: {
		"pause":    StatusPaused,
		"complete": StatusCompleted,
		"fail":     StatusFailed,
		"cancel":   StatusCancelled,
	},
	StatusPaused: {
		"resume": StatusRunning,
		"cancel": StatusCancelled,
	},
}

// AllStatuses returns all valid workflow statuses.
func AllStatuses() []Status {
	return []Status{
		StatusPending,
		StatusRunning,
		StatusPaused,
		StatusCompleted,
		StatusFailed,
		StatusCancelled,
	}
}

// IsValid returns true if the status is a valid workflow status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusPaused, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true once the run can no longer advance.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CanTransitionWith returns true if the given event can trigger a transition from this status.
func (s Status) CanTransitionWith(event string) bool {
	transitions, ok := validTransitions[s]
	if !ok {
		return false
	}
	_, ok = transitions[event]
	return ok
}

// TransitionWith returns the target status for a given event, or an error if not allowed.
func (s Status) TransitionWith(event string) (Status, error) {
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

// ParseStatus parses a string into a workflow Status.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid workflow status: %s", s)
	}
	return status, nil
}

// MarshalJSON implements json.Marshaler interface.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	if str == "" {
		*s = StatusPending
		return nil
	}
	status := Status(str)
	if !status.IsValid() {
		return fmt.Errorf("invalid workflow status: %s", str)
	}
	*s = status
	return nil
}
