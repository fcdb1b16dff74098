package task

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// State constants for statekit integration.
// These must remain as untyped string constants for statekit.StateID compatibility.
// Values are kept in sync with TaskStatus constants in task_status.go.
const (
	StateTodo          = "todo"
	StateInProgress    = "in_progress"
	StateNeedsApproval = "needs_approval"
	StateInReview      = "in_review"
	StateDone          = "done"
	StateBlocked       = "blocked"
	StateFailed        = "failed"
)

// init validates at startup that FSM state constants match TaskStatus values.
func init() {
	stateMap := map[string]TaskStatus{
		StateTodo:          StatusTodo,
		StateInProgress:    StatusInProgress,
		StateNeedsApproval: StatusNeedsApproval,
		StateInReview:      StatusInReview,
		StateDone:          StatusDone,
		StateBlocked:       StatusBlocked,
		StateFailed:        StatusFailed,
	}

	for fsmState, taskStatus := range stateMap {
		if fsmState != string(taskStatus) {
			panic(fmt.Sprintf("FSM state %q does not match TaskStatus %q - constants are out of sync", fsmState, taskStatus))
		}
	}
}

// TaskContext carries state data.
type TaskContext struct {
	ProjectID string
	Sequence  int64
	Guard     func(sequence int64, event string) bool
}

// TaskStateMachine defines the valid transitions and rules for one task.
type TaskStateMachine struct {
	interpreter *statekit.Interpreter[TaskContext]
}

// NewTaskStateMachine builds an interpreter for the task lifecycle. The guard,
// when provided, is consulted before "start" and "complete" transitions; the
// workflow layer uses it to enforce dependency readiness.
func NewTaskStateMachine(initialState string, projectID string, sequence int64, guard func(int64, string) bool) (*TaskStateMachine, error) {
	if guard == nil {
		guard = func(int64, string) bool { return true }
	}

	builder := statekit.NewMachine[TaskContext]("task-machine").
		WithInitial(statekit.StateID(initialState)).
		WithContext(TaskContext{
			ProjectID: projectID,
			Sequence:  sequence,
			Guard:     guard,
		}).
		WithGuard("readinessGuard", func(ctx TaskContext, e statekit.Event) bool {
			return ctx.Guard(ctx.Sequence, string(e.Type))
		})

	builder.State(StateTodo).
		On("start").Target(StateInProgress).Guard("readinessGuard").
		On("block").Target(StateBlocked).
		Done()

	builder.State(StateInProgress).
		On("submit").Target(StateNeedsApproval).
		On("review").Target(StateInReview).
		On("complete").Target(StateDone).Guard("readinessGuard").
		On("fail").Target(StateFailed).
		On("block").Target(StateBlocked).
		On("stop").Target(StateTodo).
		Done()

	builder.State(StateNeedsApproval).
		On("approve").Target(StateDone).
		On("reject").Target(StateInProgress).
		On("block").Target(StateBlocked).
		Done()

	builder.State(StateInReview).
		On("accept").Target(StateDone).
		On("reject").Target(StateInProgress).
		On("block").Target(StateBlocked).
		Done()

	builder.State(StateDone).
		On("reopen").Target(StateTodo).
		Done()

	builder.State(StateBlocked).
		On("unblock").Target(StateTodo).
		Done()

	builder.State(StateFailed).
		On("reopen").Target(StateTodo).
		On("block").Target(StateBlocked).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build state machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &TaskStateMachine{interpreter: interpreter}, nil
}

// Transition attempts to move the task to a new state.
func (sm *TaskStateMachine) Transition(event string) error {
	before := sm.Current()
	sm.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	after := sm.Current()

	if before != after {
		return nil
	}

	// If no transition matches or a guard rejects the event, statekit leaves
	// the state unchanged.
	return fmt.Errorf("the action '%s' is not allowed while the task is in the '%s' state", event, before)
}

func (sm *TaskStateMachine) Current() string {
	return string(sm.interpreter.State().Value)
}

// CurrentStatus returns the current state as a TaskStatus value object.
func (sm *TaskStateMachine) CurrentStatus() TaskStatus {
	return TaskStatus(sm.Current())
}

// CanTransition checks if the given event is valid for the current state.
func (sm *TaskStateMachine) CanTransition(event string) bool {
	return sm.CurrentStatus().CanTransitionWith(event)
}

// ValidEvents returns the valid events for the current state.
func (sm *TaskStateMachine) ValidEvents() []string {
	return sm.CurrentStatus().ValidEvents()
}

// IsTerminal returns true if the current state ends a workflow run.
func (sm *TaskStateMachine) IsTerminal() bool {
	return sm.CurrentStatus().IsTerminal()
}
