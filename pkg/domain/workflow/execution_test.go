package workflow

import (
	"testing"
)

func TestNewExecution(t *testing.T) {
	e := NewExecution("proj")
	if e.ID == "" {
		t.Error("ID not assigned")
	}
	if e.ProjectID != "proj" {
		t.Errorf("ProjectID = %q", e.ProjectID)
	}
	if e.Status != StatusPending {
		t.Errorf("Status = %v, want %v", e.Status, StatusPending)
	}
	if e.Context == nil {
		t.Error("Context not initialized")
	}

	other := NewExecution("proj")
	if other.ID == e.ID {
		t.Error("execution ids must be unique")
	}
}

func TestExecution_Transition(t *testing.T) {
	e := NewExecution("proj")
	if err := e.Transition("start"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if e.Status != StatusRunning {
		t.Errorf("Status = %v", e.Status)
	}
	if err := e.Transition("start"); err == nil {
		t.Error("second start should fail")
	}
	if e.Status != StatusRunning {
		t.Errorf("failed transition mutated status to %v", e.Status)
	}
}

func TestExecution_TransitionDrivenByRunStateMachine(t *testing.T) {
	// Transition defers to the interpreter, so the two lifecycle
	// representations cannot drift apart for any status/event pair.
	for _, status := range AllStatuses() {
		for _, event := range []string{"start", "pause", "resume", "complete", "fail", "cancel"} {
			e := NewExecution("proj")
			e.Status = status

			sm, err := NewRunStateMachine(string(status), e.ID)
			if err != nil {
				t.Fatalf("NewRunStateMachine(%s): %v", status, err)
			}
			smErr := sm.Transition(event)
			execErr := e.Transition(event)

			if (smErr == nil) != (execErr == nil) {
				t.Errorf("%s + %s: machine err %v, execution err %v", status, event, smErr, execErr)
				continue
			}
			if smErr == nil && e.Status != sm.CurrentStatus() {
				t.Errorf("%s + %s: execution went to %v, machine to %v", status, event, e.Status, sm.CurrentStatus())
			}
		}
	}
}

func TestExecution_SetContext(t *testing.T) {
	e := &Execution{}
	e.SetContext("key", "value")
	if e.Context["key"] != "value" {
		t.Errorf("Context = %v", e.Context)
	}
}

func TestNewCheckpoint_DefensiveCopies(t *testing.T) {
	completed := []int64{1, 2}
	context := map[string]string{"k": "v"}

	cp := NewCheckpoint("exec-1", 0, completed, context)

	completed[0] = 99
	context["k"] = "mutated"

	if cp.CompletedTaskIDs[0] != 1 {
		t.Error("CompletedTaskIDs aliases the caller's slice")
	}
	if cp.Context["k"] != "v" {
		t.Error("Context aliases the caller's map")
	}
}

func TestCheckpoint_Contains(t *testing.T) {
	cp := NewCheckpoint("exec-1", 2, []int64{3, 5}, nil)
	if !cp.Contains(3) || !cp.Contains(5) {
		t.Error("Contains() missed a recorded task")
	}
	if cp.Contains(4) {
		t.Error("Contains(4) = true")
	}
}
