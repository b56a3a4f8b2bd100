// Package conductor implements the turn state machine: it drives the
// Brain Client, dispatches tool calls through the Tool Registry with
// authorization, and talks to the operator only through the Frontend
// Bridge contract.
package conductor

import (
	"fmt"

	"github.com/aravindhsampath/chitti/pkg/brainclient"
	"github.com/aravindhsampath/chitti/pkg/wire"
)

// ErrorKind is the closed taxonomy of failures the Conductor can surface
// to the operator (spec.md §7). ToolError never appears here — it is
// always round-tripped to the brain instead.
type ErrorKind string

const (
	ErrTransport       ErrorKind = "transport"
	ErrRateLimited     ErrorKind = "rate_limited"
	ErrHTTPClient      ErrorKind = "http_client_error"
	ErrHTTPServer      ErrorKind = "http_server_error"
	ErrProtocolDecode  ErrorKind = "protocol_decode"
	ErrSafetyBlocked   ErrorKind = "safety_blocked"
	ErrLengthLimited   ErrorKind = "length_limited"
	ErrOtherTerminal   ErrorKind = "other_terminal"
	ErrLoopLimit       ErrorKind = "loop_limit"
	ErrCancelled       ErrorKind = "cancelled"
)

// Error is a taxonomy-classified failure. PreserveCursor tells the turn
// loop whether the conversation cursor survives this failure.
type Error struct {
	Kind           ErrorKind
	Message        string
	Cause          error
	PreserveCursor bool
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("conductor: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("conductor: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// classifyBrainError maps a brainclient taxonomy error onto the
// conductor's operator-facing taxonomy.
func classifyBrainError(err error) *Error {
	switch e := err.(type) {
	case *brainclient.TransportError:
		return &Error{Kind: ErrTransport, Message: "could not reach the brain", Cause: e, PreserveCursor: true}
	case *brainclient.RateLimitedError:
		return &Error{Kind: ErrRateLimited, Message: "the brain is rate limiting requests", Cause: e, PreserveCursor: true}
	case *brainclient.HTTPStatusError:
		if e.IsRetryable() {
			return &Error{Kind: ErrHTTPServer, Message: "the brain returned a server error", Cause: e, PreserveCursor: true}
		}
		return &Error{Kind: ErrHTTPClient, Message: e.Body, Cause: e, PreserveCursor: true}
	case *brainclient.DecodeError:
		return &Error{Kind: ErrProtocolDecode, Message: "the brain returned an unexpected response", Cause: e, PreserveCursor: false}
	case *brainclient.ProtocolMismatchError:
		return &Error{Kind: ErrProtocolDecode, Message: "the brain returned an unexpected response", Cause: e, PreserveCursor: false}
	case *brainclient.CancelledError:
		return &Error{Kind: ErrCancelled, Message: "cancelled", Cause: e, PreserveCursor: true}
	default:
		return &Error{Kind: ErrTransport, Message: "unexpected brain client failure", Cause: err, PreserveCursor: true}
	}
}

// classifyFinishReason maps a terminal, non-STOP finish reason arriving
// with no text and no tool calls onto a user-visible taxonomy error.
func classifyFinishReason(fr wire.FinishReason) *Error {
	switch fr {
	case wire.FinishSafetyBlocked:
		return &Error{Kind: ErrSafetyBlocked, Message: "the response was blocked by safety filtering", PreserveCursor: true}
	case wire.FinishLengthLimited:
		return &Error{Kind: ErrLengthLimited, Message: "the response was cut off at the length limit", PreserveCursor: true}
	default:
		return &Error{Kind: ErrOtherTerminal, Message: "the brain ended the turn without a usable response", PreserveCursor: true}
	}
}
