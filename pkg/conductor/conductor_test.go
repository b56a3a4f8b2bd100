package conductor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aravindhsampath/chitti/pkg/brainclient"
	"github.com/aravindhsampath/chitti/pkg/frontend"
	"github.com/aravindhsampath/chitti/pkg/frontend/mock"
	"github.com/aravindhsampath/chitti/pkg/toolsystem"
	"github.com/aravindhsampath/chitti/pkg/wire"
)

// fakeStream replays a fixed event sequence. When blockOn is >= 0, Next
// blocks at that index until ctx is done, then returns a CancelledError —
// simulating a mid-stream Cancel signal for S5.
type fakeStream struct {
	events  []wire.InteractionEvent
	pos     int
	blockOn int
	ctx     context.Context
}

func (s *fakeStream) Next() (wire.InteractionEvent, error) {
	if s.blockOn >= 0 && s.pos == s.blockOn {
		<-s.ctx.Done()
		return nil, &brainclient.CancelledError{}
	}
	if s.pos >= len(s.events) {
		return nil, brainclient.ErrStreamDone
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}

func (s *fakeStream) Close() error { return nil }

// scriptedBrain answers Send calls from a queue of canned steps, in order.
type scriptedBrain struct {
	mu    sync.Mutex
	steps []func(ctx context.Context) (brainclient.InteractionStream, error)
	calls []wire.InteractionRequest
}

func (b *scriptedBrain) Send(ctx context.Context, req wire.InteractionRequest) (brainclient.InteractionStream, error) {
	b.mu.Lock()
	if len(b.steps) == 0 {
		b.mu.Unlock()
		return nil, errors.New("scriptedBrain: no more steps scripted")
	}
	step := b.steps[0]
	b.steps = b.steps[1:]
	b.calls = append(b.calls, req)
	b.mu.Unlock()
	return step(ctx)
}

func (b *scriptedBrain) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func stream(events ...wire.InteractionEvent) func(ctx context.Context) (brainclient.InteractionStream, error) {
	return func(ctx context.Context) (brainclient.InteractionStream, error) {
		return &fakeStream{events: events, blockOn: -1}, nil
	}
}

// blockingStream returns a stream that yields the given events, then
// blocks forever on ctx at index len(events) — used to simulate a Cancel
// arriving mid-stream.
func blockingStream(events ...wire.InteractionEvent) func(ctx context.Context) (brainclient.InteractionStream, error) {
	return func(ctx context.Context) (brainclient.InteractionStream, error) {
		return &fakeStream{events: events, blockOn: len(events), ctx: ctx}, nil
	}
}

func sendErr(err error) func(ctx context.Context) (brainclient.InteractionStream, error) {
	return func(ctx context.Context) (brainclient.InteractionStream, error) {
		return nil, err
	}
}

func echoRegistry(t *testing.T, names ...string) toolsystem.Registry {
	t.Helper()
	reg := toolsystem.NewRegistry()
	for _, name := range names {
		tool, err := toolsystem.NewBuilder(name, "test tool").
			AddStringParameter("value", "echoed value", false).
			SetHandler(func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return map[string]any{"echoed": args["value"]}, nil
			}).
			Build()
		require.NoError(t, err)
		require.NoError(t, reg.Register(tool))
	}
	return reg
}

// S1: a plain-text turn with no tool calls renders final text once and
// commits the cursor to the server-issued interaction id.
func TestPlainTextTurnRendersOnceAndCommitsCursor(t *testing.T) {
	brain := &scriptedBrain{steps: []func(context.Context) (brainclient.InteractionStream, error){
		stream(
			wire.Start{InteractionID: "interaction-1"},
			wire.ContentDelta{PartIndex: 0, Delta: "Hel"},
			wire.ContentDelta{PartIndex: 0, Delta: "lo"},
			wire.Complete{
				InteractionID: "interaction-1",
				Parts:         []wire.ContentPart{wire.Text{Value: "Hello"}},
				FinishReason:  wire.FinishStop,
			},
		),
	}}
	bridge := mock.New([]frontend.InputMessage{frontend.UserText("hi"), frontend.Quit()}, nil)
	reg := toolsystem.NewRegistry()
	c := New(brain, reg, bridge, Config{Model: "test-model"})

	err := c.Run(context.Background())
	assert.ErrorIs(t, err, ErrQuit)

	require.Len(t, bridge.Finals, 1)
	assert.Equal(t, "Hello", bridge.Finals[0].Text)
	require.Len(t, bridge.Deltas, 2)
	id, ok := c.cur.Get()
	assert.True(t, ok)
	assert.Equal(t, "interaction-1", id)
	require.Len(t, brain.calls, 1)
	assert.Empty(t, brain.calls[0].PreviousInteractionID)
}

// S2: a single authorized tool call round-trips once more before the
// final text renders, and the follow-up request carries the prior
// interaction id as its continuation cursor.
func TestSingleToolCallRoundTrips(t *testing.T) {
	brain := &scriptedBrain{steps: []func(context.Context) (brainclient.InteractionStream, error){
		stream(
			wire.Start{InteractionID: "interaction-1"},
			wire.Complete{
				InteractionID: "interaction-1",
				ToolCalls:     []wire.AssembledToolCall{{CallID: "call-1", Name: "echo", Args: map[string]any{"value": "x"}}},
				FinishReason:  wire.FinishStop,
			},
		),
		stream(
			wire.Start{InteractionID: "interaction-2"},
			wire.Complete{
				InteractionID: "interaction-2",
				Parts:         []wire.ContentPart{wire.Text{Value: "done"}},
				FinishReason:  wire.FinishStop,
			},
		),
	}}
	bridge := mock.New(
		[]frontend.InputMessage{frontend.UserText("run echo"), frontend.Quit()},
		[]frontend.Authorization{frontend.Allow},
	)
	reg := echoRegistry(t, "echo")
	c := New(brain, reg, bridge, Config{Model: "test-model"})

	err := c.Run(context.Background())
	assert.ErrorIs(t, err, ErrQuit)

	require.Len(t, bridge.Finals, 1)
	assert.Equal(t, "done", bridge.Finals[0].Text)
	require.Len(t, brain.calls, 2)
	assert.Equal(t, "interaction-1", brain.calls[1].PreviousInteractionID)
	require.Len(t, bridge.AuthRequests, 1)
	assert.Equal(t, "echo", bridge.AuthRequests[0].Name)
}

// S3: parallel tool calls post results back in the same order the brain
// issued them in, regardless of which finishes first.
func TestParallelToolCallsPreserveOrder(t *testing.T) {
	brain := &scriptedBrain{steps: []func(context.Context) (brainclient.InteractionStream, error){
		stream(
			wire.Start{InteractionID: "interaction-1"},
			wire.Complete{
				InteractionID: "interaction-1",
				ToolCalls: []wire.AssembledToolCall{
					{CallID: "call-1", Name: "slow", Args: map[string]any{"value": "a"}},
					{CallID: "call-2", Name: "fast", Args: map[string]any{"value": "b"}},
				},
				FinishReason: wire.FinishStop,
			},
		),
		stream(
			wire.Start{InteractionID: "interaction-2"},
			wire.Complete{InteractionID: "interaction-2", Parts: []wire.ContentPart{wire.Text{Value: "done"}}, FinishReason: wire.FinishStop},
		),
	}}
	bridge := mock.New(
		[]frontend.InputMessage{frontend.UserText("go"), frontend.Quit()},
		[]frontend.Authorization{frontend.Allow, frontend.Allow},
	)
	reg := toolsystem.NewRegistry()
	slow, err := toolsystem.NewBuilder("slow", "slow tool").
		AddStringParameter("value", "v", false).
		SetHandler(func(ctx context.Context, args map[string]any) (map[string]any, error) {
			time.Sleep(20 * time.Millisecond)
			return map[string]any{"echoed": args["value"]}, nil
		}).Build()
	require.NoError(t, err)
	fast, err := toolsystem.NewBuilder("fast", "fast tool").
		AddStringParameter("value", "v", false).
		SetHandler(func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return map[string]any{"echoed": args["value"]}, nil
		}).Build()
	require.NoError(t, err)
	require.NoError(t, reg.Register(slow))
	require.NoError(t, reg.Register(fast))

	c := New(brain, reg, bridge, Config{Model: "test-model"})
	runErr := c.Run(context.Background())
	assert.ErrorIs(t, runErr, ErrQuit)

	require.Len(t, brain.calls, 2)
	toolContent := brain.calls[1].Input.Content[len(brain.calls[1].Input.Content)-1]
	require.Len(t, toolContent.Parts, 2)
	first := toolContent.Parts[0].(wire.FunctionResult)
	second := toolContent.Parts[1].(wire.FunctionResult)
	assert.Equal(t, "call-1", first.CallID)
	assert.Equal(t, "call-2", second.CallID)
}

// S4: a denied tool call still folds into a well-formed FunctionResult
// reporting denial, and the turn continues rather than aborting.
func TestDeniedToolCallFoldsIntoResult(t *testing.T) {
	brain := &scriptedBrain{steps: []func(context.Context) (brainclient.InteractionStream, error){
		stream(
			wire.Start{InteractionID: "interaction-1"},
			wire.Complete{
				InteractionID: "interaction-1",
				ToolCalls:     []wire.AssembledToolCall{{CallID: "call-1", Name: "echo", Args: map[string]any{"value": "x"}}},
				FinishReason:  wire.FinishStop,
			},
		),
		stream(
			wire.Start{InteractionID: "interaction-2"},
			wire.Complete{InteractionID: "interaction-2", Parts: []wire.ContentPart{wire.Text{Value: "ok"}}, FinishReason: wire.FinishStop},
		),
	}}
	bridge := mock.New(
		[]frontend.InputMessage{frontend.UserText("run echo"), frontend.Quit()},
		[]frontend.Authorization{frontend.Deny},
	)
	reg := echoRegistry(t, "echo")
	c := New(brain, reg, bridge, Config{Model: "test-model"})

	err := c.Run(context.Background())
	assert.ErrorIs(t, err, ErrQuit)

	require.Len(t, brain.calls, 2)
	toolContent := brain.calls[1].Input.Content[len(brain.calls[1].Input.Content)-1]
	require.Len(t, toolContent.Parts, 1)
	result := toolContent.Parts[0].(wire.FunctionResult)
	assert.Equal(t, "call-1", result.CallID)
	assert.Contains(t, result.Value, "error")
}

// S5: a Cancel signal observed mid-stream aborts the in-flight brain call
// with ErrCancelled and preserves the cursor, without tearing down Run.
func TestCancelMidStreamPreservesCursorAndSession(t *testing.T) {
	brain := &scriptedBrain{steps: []func(context.Context) (brainclient.InteractionStream, error){
		blockingStream(wire.Start{InteractionID: "interaction-1"}),
		stream(
			wire.Start{InteractionID: "interaction-2"},
			wire.Complete{InteractionID: "interaction-2", Parts: []wire.ContentPart{wire.Text{Value: "hi again"}}, FinishReason: wire.FinishStop},
		),
	}}
	bridge := mock.New(
		[]frontend.InputMessage{frontend.UserText("start"), frontend.Cancel(), frontend.UserText("hi again"), frontend.Quit()},
		nil,
	)
	reg := toolsystem.NewRegistry()
	c := New(brain, reg, bridge, Config{Model: "test-model"})

	err := c.Run(context.Background())
	assert.ErrorIs(t, err, ErrQuit)

	assert.Empty(t, bridge.Errors, "cancellation should be a silent acknowledgement, not a rendered error")
	require.Len(t, bridge.Finals, 1)
	assert.Equal(t, "hi again", bridge.Finals[0].Text)
	require.Len(t, brain.calls, 2)
	assert.Empty(t, brain.calls[1].PreviousInteractionID, "the cancelled round-trip's interaction id must not reach the cursor")
}

// S6: a rate-limited send is retried exactly once; a second consecutive
// RateLimitedError surfaces to the operator instead of exhausting the
// full retry budget.
func TestRateLimitRetriesOnceThenSurfaces(t *testing.T) {
	brain := &scriptedBrain{steps: []func(context.Context) (brainclient.InteractionStream, error){
		sendErr(&brainclient.RateLimitedError{RetryAfterSeconds: 0}),
		sendErr(&brainclient.RateLimitedError{RetryAfterSeconds: 0}),
	}}
	bridge := mock.New([]frontend.InputMessage{frontend.UserText("hi"), frontend.Quit()}, nil)
	reg := toolsystem.NewRegistry()
	c := New(brain, reg, bridge, Config{Model: "test-model"})

	err := c.Run(context.Background())
	assert.ErrorIs(t, err, ErrQuit)

	assert.Equal(t, 2, brain.callCount())
	require.Len(t, bridge.Errors, 1)
	assert.Equal(t, string(ErrRateLimited), bridge.Errors[0].TaxonomyKind)
}

// Invariant: a protocol/decode error drops the cursor instead of
// preserving it, per spec.md §7 ("Protocol/Decode: ... cursor not
// preserved"), unlike every other taxonomy error.
func TestProtocolDecodeErrorClearsCursor(t *testing.T) {
	brain := &scriptedBrain{steps: []func(context.Context) (brainclient.InteractionStream, error){
		stream(
			wire.Start{InteractionID: "interaction-1"},
			wire.Complete{InteractionID: "interaction-1", Parts: []wire.ContentPart{wire.Text{Value: "hi"}}, FinishReason: wire.FinishStop},
		),
		sendErr(&brainclient.DecodeError{Err: errors.New("malformed json")}),
	}}
	bridge := mock.New(
		[]frontend.InputMessage{frontend.UserText("hi"), frontend.UserText("again"), frontend.Quit()},
		nil,
	)
	reg := toolsystem.NewRegistry()
	c := New(brain, reg, bridge, Config{Model: "test-model"})

	err := c.Run(context.Background())
	assert.ErrorIs(t, err, ErrQuit)

	require.Len(t, bridge.Errors, 1)
	assert.Equal(t, string(ErrProtocolDecode), bridge.Errors[0].TaxonomyKind)
	_, ok := c.cur.Get()
	assert.False(t, ok, "a protocol/decode error must drop the cursor, not preserve it")
}

// Invariant: a /steer sent while AwaitingUser is drained into the very
// next turn's request, not dropped or deferred to some later turn that
// happens to contain tool calls (spec.md §5's "never reordered with user
// inputs" rule applies at every sub-turn boundary).
func TestSteeringDuringAwaitingUserAttachesToNextTurn(t *testing.T) {
	brain := &scriptedBrain{steps: []func(context.Context) (brainclient.InteractionStream, error){
		stream(
			wire.Start{InteractionID: "interaction-1"},
			wire.Complete{InteractionID: "interaction-1", Parts: []wire.ContentPart{wire.Text{Value: "hi"}}, FinishReason: wire.FinishStop},
		),
		stream(
			wire.Start{InteractionID: "interaction-2"},
			wire.Complete{InteractionID: "interaction-2", Parts: []wire.ContentPart{wire.Text{Value: "ok"}}, FinishReason: wire.FinishStop},
		),
	}}
	bridge := mock.New(
		[]frontend.InputMessage{
			frontend.UserText("hi"),
			frontend.Steer("by the way, be terse"),
			frontend.UserText("again"),
			frontend.Quit(),
		},
		nil,
	)
	reg := toolsystem.NewRegistry()
	c := New(brain, reg, bridge, Config{Model: "test-model"})

	err := c.Run(context.Background())
	assert.ErrorIs(t, err, ErrQuit)

	require.Len(t, brain.calls, 2)
	content := brain.calls[1].Input.Content
	require.Len(t, content, 2, "steering content must be prepended ahead of the user's next turn")
	steerPart := content[0].Parts[0].(wire.Text)
	assert.Equal(t, "by the way, be terse", steerPart.Value)
	userPart := content[1].Parts[0].(wire.Text)
	assert.Equal(t, "again", userPart.Value)
}

// Invariant: a loop-limit guard fires instead of round-tripping forever
// when the brain keeps issuing tool calls past MaxTurnRoundtrips.
func TestLoopLimitSurfacesAfterMaxRoundtrips(t *testing.T) {
	steps := make([]func(context.Context) (brainclient.InteractionStream, error), 0, 3)
	for i := 0; i < 3; i++ {
		steps = append(steps, stream(
			wire.Start{InteractionID: "interaction-loop"},
			wire.Complete{
				InteractionID: "interaction-loop",
				ToolCalls:     []wire.AssembledToolCall{{CallID: "call-1", Name: "echo", Args: map[string]any{"value": "x"}}},
				FinishReason:  wire.FinishStop,
			},
		))
	}
	brain := &scriptedBrain{steps: steps}
	bridge := mock.New(
		[]frontend.InputMessage{frontend.UserText("loop"), frontend.Quit()},
		[]frontend.Authorization{frontend.Allow, frontend.Allow, frontend.Allow},
	)
	reg := echoRegistry(t, "echo")
	c := New(brain, reg, bridge, Config{Model: "test-model", MaxTurnRoundtrips: 2})

	err := c.Run(context.Background())
	assert.ErrorIs(t, err, ErrQuit)

	require.Len(t, bridge.Errors, 1)
	assert.Equal(t, string(ErrLoopLimit), bridge.Errors[0].TaxonomyKind)
}

// Invariant: /new drops the cursor so the next turn starts a fresh
// interaction id chain, without requiring /exit or process restart.
func TestNewInputClearsCursorWithoutQuitting(t *testing.T) {
	brain := &scriptedBrain{steps: []func(context.Context) (brainclient.InteractionStream, error){
		stream(
			wire.Start{InteractionID: "interaction-1"},
			wire.Complete{InteractionID: "interaction-1", Parts: []wire.ContentPart{wire.Text{Value: "hi"}}, FinishReason: wire.FinishStop},
		),
		stream(
			wire.Start{InteractionID: "interaction-2"},
			wire.Complete{InteractionID: "interaction-2", Parts: []wire.ContentPart{wire.Text{Value: "hello again"}}, FinishReason: wire.FinishStop},
		),
	}}
	bridge := mock.New(
		[]frontend.InputMessage{frontend.UserText("hi"), frontend.New(), frontend.UserText("hi again"), frontend.Quit()},
		nil,
	)
	reg := toolsystem.NewRegistry()
	c := New(brain, reg, bridge, Config{Model: "test-model"})

	err := c.Run(context.Background())
	assert.ErrorIs(t, err, ErrQuit)

	require.Len(t, brain.calls, 2)
	assert.Empty(t, brain.calls[1].PreviousInteractionID, "/new must drop the previous interaction id")
}
