package task

import (
	"testing"
)

func TestTaskStateMachine_Lifecycle(t *testing.T) {
	sm, err := NewTaskStateMachine(StateTodo, "p", 1, nil)
	if err != nil {
		t.Fatalf("NewTaskStateMachine() error = %v", err)
	}

	if sm.Current() != StateTodo {
		t.Errorf("Current() = %q", sm.Current())
	}
	if err := sm.Transition("start"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if sm.CurrentStatus() != StatusInProgress {
		t.Errorf("CurrentStatus() = %v", sm.CurrentStatus())
	}
	if err := sm.Transition("complete"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !sm.IsTerminal() {
		t.Error("done should be terminal")
	}
}

func TestTaskStateMachine_RejectsInvalidEvent(t *testing.T) {
	sm, err := NewTaskStateMachine(StateTodo, "p", 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := sm.Transition("complete"); err == nil {
		t.Error("complete from todo should be rejected")
	}
	if sm.Current() != StateTodo {
		t.Errorf("state changed to %q on rejected event", sm.Current())
	}
}

func TestTaskStateMachine_GuardBlocksStart(t *testing.T) {
	denied := func(sequence int64, event string) bool { return false }
	sm, err := NewTaskStateMachine(StateTodo, "p", 7, denied)
	if err != nil {
		t.Fatal(err)
	}

	if err := sm.Transition("start"); err == nil {
		t.Error("guard should block start")
	}
	if sm.Current() != StateTodo {
		t.Errorf("state = %q after guarded start", sm.Current())
	}

	// Unguarded events pass regardless.
	if err := sm.Transition("block"); err != nil {
		t.Errorf("block: %v", err)
	}
	if sm.Current() != StateBlocked {
		t.Errorf("state = %q", sm.Current())
	}
}

func TestTaskStateMachine_GuardReceivesSequenceAndEvent(t *testing.T) {
	var gotSeq int64
	var gotEvent string
	guard := func(sequence int64, event string) bool {
		gotSeq, gotEvent = sequence, event
		return true
	}
	sm, err := NewTaskStateMachine(StateTodo, "p", 42, guard)
	if err != nil {
		t.Fatal(err)
	}
	if err := sm.Transition("start"); err != nil {
		t.Fatal(err)
	}
	if gotSeq != 42 || gotEvent != "start" {
		t.Errorf("guard saw (%d, %q)", gotSeq, gotEvent)
	}
}

func TestTaskStateMachine_MatchesStatusTable(t *testing.T) {
	// The statekit machine and the validTransitions table must agree.
	for _, status := range AllTaskStatuses() {
		for _, event := range []string{"start", "submit", "review", "complete", "fail", "block", "stop", "approve", "reject", "accept", "reopen", "unblock"} {
			sm, err := NewTaskStateMachine(string(status), "p", 1, nil)
			if err != nil {
				t.Fatalf("NewTaskStateMachine(%s): %v", status, err)
			}
			smAllows := sm.Transition(event) == nil
			tableAllows := status.CanTransitionWith(event)
			if smAllows != tableAllows {
				t.Errorf("%s + %s: machine %v, table %v", status, event, smAllows, tableAllows)
			}
		}
	}
}
