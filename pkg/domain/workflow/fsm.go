package workflow

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// State constants for statekit integration, kept in sync with Status values.
const (
	StatePending   = "pending"
	StateRunning   = "running"
	StatePaused    = "paused"
	StateCompleted = "completed"
	StateFailed    = "failed"
	StateCancelled = "cancelled"
)

func init() {
	stateMap := map[string]Status{
		StatePending:   StatusPending,
		StateRunning:   StatusRunning,
		StatePaused:    StatusPaused,
		StateCompleted: StatusCompleted,
		StateFailed:    StatusFailed,
		StateCancelled: StatusCancelled,
	}
	for fsmState, status := range stateMap {
		if fsmState != string(status) {
			panic(fmt.Sprintf("FSM state %q does not match workflow Status %q - constants are out of sync", fsmState, status))
		}
	}
}

// RunContext carries state data for one run's machine.
type RunContext struct {
	ExecutionID string
}

// RunStateMachine governs the lifecycle of one workflow run.
type RunStateMachine struct {
	interpreter *statekit.Interpreter[RunContext]
}

// NewRunStateMachine builds an interpreter for the run lifecycle starting
// from the given status.
func NewRunStateMachine(initialState string, executionID string) (*RunStateMachine, error) {
	builder := statekit.NewMachine[RunContext]("workflow-run").
		WithInitial(statekit.StateID(initialState)).
		WithContext(RunContext{ExecutionID: executionID})

	builder.State(StatePending).
		On("start").Target(StateRunning).
		On("cancel").Target(StateCancelled).
		Done()

	builder.State(StateRunning).
		On("pause").Target(StatePaused).
		On("complete").Target(StateCompleted).
		On("fail").Target(StateFailed).
		On("cancel").Target(StateCancelled).
		Done()

	builder.State(StatePaused).
		On("resume").Target(StateRunning).
		On("cancel").Target(StateCancelled).
		Done()

	builder.State(StateCompleted).Done()
	builder.State(StateFailed).Done()
	builder.State(StateCancelled).Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build state machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &RunStateMachine{interpreter: interpreter}, nil
}

// Transition attempts to advance the run lifecycle.
func (sm *RunStateMachine) Transition(event string) error {
	before := sm.Current()
	sm.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	after := sm.Current()

	if before != after {
		return nil
	}
	return fmt.Errorf("the action '%s' is not allowed while the run is in the '%s' state", event, before)
}

func (sm *RunStateMachine) Current() string {
	return string(sm.interpreter.State().Value)
}

// CurrentStatus returns the current state as a Status value object.
func (sm *RunStateMachine) CurrentStatus() Status {
	return Status(sm.Current())
}

// IsTerminal returns true if the run reached a terminal state.
func (sm *RunStateMachine) IsTerminal() bool {
	return sm.CurrentStatus().IsTerminal()
}
