package conductor

import (
	"context"

	"github.com/looplab/fsm"
)

// Turn states, named per spec.md §4.4's state diagram.
const (
	StateIdle         = "idle"
	StateAwaitingUser = "awaiting_user"
	StateRequesting   = "requesting"
	StateStreaming    = "streaming"
	StateDeciding     = "deciding"
	StateAuthorizing  = "authorizing"
	StateExecuting    = "executing"
	StateEmitting     = "emitting"
)

const (
	eventUserInput    = "user_input"
	eventRequestSent  = "request_sent"
	eventStreamDone   = "stream_done"
	eventHasToolCalls = "has_tool_calls"
	eventNoToolCalls  = "no_tool_calls"
	eventAuthorized   = "authorized"
	eventToolsDone    = "tools_done"
	eventEmitted      = "emitted"
	eventReset        = "reset"
)

// newMachine wires a real looplab/fsm.FSM over the turn state diagram.
// Every transition below corresponds to a step the per-turn algorithm
// actually takes; an illegal transition makes fire return an error. Run
// and runTurn act on that error only for the reset and user_input events
// and discard it for the others.
func newMachine() *fsm.FSM {
	return fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventReset, Src: []string{
				StateIdle, StateAwaitingUser, StateRequesting, StateStreaming,
				StateDeciding, StateAuthorizing, StateExecuting, StateEmitting,
			}, Dst: StateAwaitingUser},
			{Name: eventUserInput, Src: []string{StateAwaitingUser}, Dst: StateRequesting},
			{Name: eventRequestSent, Src: []string{StateRequesting}, Dst: StateStreaming},
			{Name: eventStreamDone, Src: []string{StateStreaming}, Dst: StateDeciding},
			{Name: eventHasToolCalls, Src: []string{StateDeciding}, Dst: StateAuthorizing},
			{Name: eventNoToolCalls, Src: []string{StateDeciding}, Dst: StateEmitting},
			{Name: eventAuthorized, Src: []string{StateAuthorizing}, Dst: StateExecuting},
			{Name: eventToolsDone, Src: []string{StateExecuting}, Dst: StateRequesting},
			{Name: eventEmitted, Src: []string{StateEmitting}, Dst: StateAwaitingUser},
		},
		fsm.Callbacks{},
	)
}

func fire(ctx context.Context, m *fsm.FSM, event string) error {
	return m.Event(ctx, event)
}
