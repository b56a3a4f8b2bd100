// Package frontend defines the Frontend Bridge contract: the abstract
// operator-facing I/O boundary the Conductor depends on, plus the
// reference implementations under terminal/ and mock/.
package frontend

import (
	"context"
	"errors"

	"github.com/aravindhsampath/chitti/pkg/wire"
)

// ErrClosed is returned by NextInput/Authorize once the bridge's input
// source has been exhausted (operator disconnected, scripted input drained).
var ErrClosed = errors.New("frontend: bridge closed")

// InputKind discriminates the shapes of InputMessage.
type InputKind int

const (
	InputUserText InputKind = iota
	InputSteer
	InputCancel
	InputQuit
	InputClear
	InputNew
)

// InputMessage is the sum type the Conductor receives from NextInput:
// UserText(s) | Steer(s) | Cancel | Quit | Clear | New.
type InputMessage struct {
	Kind InputKind
	Text string // populated for InputUserText and InputSteer
}

func UserText(s string) InputMessage { return InputMessage{Kind: InputUserText, Text: s} }
func Steer(s string) InputMessage    { return InputMessage{Kind: InputSteer, Text: s} }
func Cancel() InputMessage           { return InputMessage{Kind: InputCancel} }
func Quit() InputMessage             { return InputMessage{Kind: InputQuit} }
func Clear() InputMessage            { return InputMessage{Kind: InputClear} }
func New() InputMessage              { return InputMessage{Kind: InputNew} }

// Authorization is the operator's verdict on a pending tool invocation.
type Authorization int

const (
	Deny Authorization = iota
	Allow
)

// Bridge is the contract the Conductor depends on for all operator I/O.
// The Conductor never assumes a terminal, a socket, or a scripted
// sequence on the other side of it.
type Bridge interface {
	// NextInput blocks for the next operator message. It returns
	// ErrClosed when the input source is exhausted.
	NextInput(ctx context.Context) (InputMessage, error)
	// RenderDelta idempotently appends text to the rendered buffer for
	// partIndex, in arrival order.
	RenderDelta(partIndex int, text string)
	// RenderFinal marks the end of one assistant turn.
	RenderFinal(text string, usage wire.Usage)
	// RenderError surfaces a taxonomy-classified failure to the operator.
	RenderError(taxonomyKind, userMessage string)
	// Authorize requests an Allow/Deny verdict for one pending tool call.
	Authorize(ctx context.Context, call wire.FunctionCall) (Authorization, error)
}

// Authorizer adapts a Bridge to toolsystem.Authorizer without pkg/frontend
// importing pkg/toolsystem (toolsystem's Authorizer interface is
// structurally satisfied by this method set).
type Authorizer struct {
	Bridge Bridge
}

func (a Authorizer) Authorize(ctx context.Context, call wire.FunctionCall) (bool, error) {
	verdict, err := a.Bridge.Authorize(ctx, call)
	if err != nil {
		return false, err
	}
	return verdict == Allow, nil
}
