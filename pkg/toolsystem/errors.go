// Package toolsystem implements the tool registry and dispatcher: the
// capability interface tools implement, parallel dispatch with an
// authorization gate, and the closed error taxonomy every failure folds
// into before it is round-tripped to the brain as a FunctionResult.
package toolsystem

import "fmt"

// ErrorKind is the closed taxonomy of tool-invocation failures. Every
// variant is recoverable: dispatch never panics a turn, it folds the
// failure into a FunctionResult and lets the conductor continue.
type ErrorKind string

const (
	ErrUnknown  ErrorKind = "unknown"
	ErrBadArgs  ErrorKind = "bad_args"
	ErrDenied   ErrorKind = "denied"
	ErrTimeout  ErrorKind = "timeout"
	ErrFailed   ErrorKind = "failed"
	ErrInternal ErrorKind = "internal"
)

// ToolError is the typed failure returned by Dispatch and embedded in the
// FunctionResult sent back to the brain (DispatchParallel returns only the
// FunctionResults).
type ToolError struct {
	Kind    ErrorKind
	ToolName string
	Message string
	Cause   error
}

func (e *ToolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("toolsystem: %s: %s: %s: %v", e.ToolName, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("toolsystem: %s: %s: %s", e.ToolName, e.Kind, e.Message)
}

func (e *ToolError) Unwrap() error { return e.Cause }

func newToolError(kind ErrorKind, toolName, message string, cause error) *ToolError {
	return &ToolError{Kind: kind, ToolName: toolName, Message: message, Cause: cause}
}

// AsFunctionResultValue renders a ToolError into the value map carried by a
// wire.FunctionResult, so a failure is always visible to the brain instead
// of silently dropped.
func (e *ToolError) AsFunctionResultValue() map[string]any {
	return map[string]any{
		"error": map[string]any{
			"kind":    string(e.Kind),
			"message": e.Message,
		},
	}
}
