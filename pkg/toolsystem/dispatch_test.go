package toolsystem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aravindhsampath/chitti/pkg/wire"
)

type fakeAuthorizer struct {
	allow bool
	err   error
}

func (a *fakeAuthorizer) Authorize(ctx context.Context, call wire.FunctionCall) (bool, error) {
	return a.allow, a.err
}

func TestDispatchUnknownTool(t *testing.T) {
	reg := NewRegistry()
	result, te := Dispatch(context.Background(), reg, nil, wire.FunctionCall{CallID: "1", Name: "missing"})
	require.NotNil(t, te)
	assert.Equal(t, ErrUnknown, te.Kind)
	assert.Equal(t, "1", result.CallID)
}

func TestDispatchDenied(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool(t, "echo")))

	_, te := Dispatch(context.Background(), reg, &fakeAuthorizer{allow: false}, wire.FunctionCall{
		CallID: "1", Name: "echo", Args: map[string]any{"text": "hi"},
	})
	require.NotNil(t, te)
	assert.Equal(t, ErrDenied, te.Kind)
}

func TestDispatchSuccess(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool(t, "echo")))

	result, te := Dispatch(context.Background(), reg, &fakeAuthorizer{allow: true}, wire.FunctionCall{
		CallID: "1", Name: "echo", Args: map[string]any{"text": "hi"},
	})
	require.Nil(t, te)
	assert.Equal(t, "hi", result.Value["text"])
}

func TestDispatchParallelPreservesOrder(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool(t, "echo")))

	calls := []wire.FunctionCall{
		{CallID: "1", Name: "echo", Args: map[string]any{"text": "a"}},
		{CallID: "2", Name: "echo", Args: map[string]any{"text": "b"}},
		{CallID: "3", Name: "echo", Args: map[string]any{"text": "c"}},
	}
	results := DispatchParallel(context.Background(), reg, &fakeAuthorizer{allow: true}, calls)
	require.Len(t, results, 3)
	assert.Equal(t, "1", results[0].CallID)
	assert.Equal(t, "2", results[1].CallID)
	assert.Equal(t, "3", results[2].CallID)
	assert.Equal(t, "a", results[0].Value["text"])
	assert.Equal(t, "c", results[2].Value["text"])
}
