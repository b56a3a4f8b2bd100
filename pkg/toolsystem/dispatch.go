package toolsystem

import (
	"context"
	"sync"

	"github.com/aravindhsampath/chitti/pkg/wire"
)

// Authorizer gates tool execution before it runs. Implemented by the
// Frontend Bridge; a nil Authorizer passed to Dispatch/DispatchParallel
// means every call is allowed.
type Authorizer interface {
	Authorize(ctx context.Context, call wire.FunctionCall) (bool, error)
}

// Dispatch executes one function call against the registry, routing it
// through authorize first. The returned FunctionResult is always
// populated — failures fold into it rather than propagating as a Go
// error, per the taxonomy's "every variant is recoverable" rule. The
// second return value carries the *ToolError (nil on success) so callers
// that need to branch on failure kind don't have to unwrap the result.
func Dispatch(ctx context.Context, reg Registry, authz Authorizer, call wire.FunctionCall) (wire.FunctionResult, *ToolError) {
	tool, ok := reg.Get(call.Name)
	if !ok {
		te := newToolError(ErrUnknown, call.Name, "no tool registered with this name", nil)
		return errorResult(call, te), te
	}

	if authz != nil {
		allowed, err := authz.Authorize(ctx, call)
		if err != nil {
			te := newToolError(ErrInternal, call.Name, "authorization check failed", err)
			return errorResult(call, te), te
		}
		if !allowed {
			te := newToolError(ErrDenied, call.Name, "not authorized by frontend", nil)
			return errorResult(call, te), te
		}
	}

	value, err := tool.Invoke(ctx, call.Args)
	if err != nil {
		te := classifyInvokeError(call.Name, err)
		return errorResult(call, te), te
	}

	return wire.FunctionResult{CallID: call.CallID, Name: call.Name, Value: value}, nil
}

// DispatchParallel executes every call concurrently and returns results in
// the same order as calls, per spec.md's "dispatch_parallel... order
// preserving" requirement.
func DispatchParallel(ctx context.Context, reg Registry, authz Authorizer, calls []wire.FunctionCall) []wire.FunctionResult {
	results := make([]wire.FunctionResult, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call wire.FunctionCall) {
			defer wg.Done()
			result, _ := Dispatch(ctx, reg, authz, call)
			results[i] = result
		}(i, call)
	}
	wg.Wait()
	return results
}

func errorResult(call wire.FunctionCall, te *ToolError) wire.FunctionResult {
	return wire.FunctionResult{CallID: call.CallID, Name: call.Name, Value: te.AsFunctionResultValue()}
}

// classifyInvokeError maps an error returned by Tool.Invoke to the closed
// taxonomy. Tools that already return a *ToolError (e.g. BashTool
// reporting a timeout) pass their classification through untouched.
func classifyInvokeError(toolName string, err error) *ToolError {
	if te, ok := err.(*ToolError); ok {
		return te
	}
	return newToolError(ErrFailed, toolName, err.Error(), err)
}
